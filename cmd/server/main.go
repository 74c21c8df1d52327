package main

import (
	"context"

	"github.com/billcraft/billcraft/internal/clock"
	"github.com/billcraft/billcraft/internal/config"
	"github.com/billcraft/billcraft/internal/domain/invoice"
	"github.com/billcraft/billcraft/internal/domain/notification"
	"github.com/billcraft/billcraft/internal/domain/tag"
	"github.com/billcraft/billcraft/internal/logger"
	"github.com/billcraft/billcraft/internal/postgres"
	"github.com/billcraft/billcraft/internal/repository"
	"github.com/billcraft/billcraft/internal/service"
	"github.com/billcraft/billcraft/internal/webhook/publisher"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			postgres.NewClient,
			asIClient,
			clock.New,
			publisher.NewWebhookPublisher,
			repository.NewInvoiceRepository,
			repository.NewTagRepository,
			repository.NewBillingCycleNotifier,
			newServiceParams,
			service.NewInvoiceService,
			service.NewAdjustmentService,
			service.NewBalanceService,
		),
		fx.Invoke(registerHooks),
	)

	app.Run()
}

func asIClient(c *postgres.Client) postgres.IClient {
	return c
}

type serviceDeps struct {
	fx.In

	Logger           *logger.Logger
	Config           *config.Configuration
	DB               postgres.IClient
	InvoiceRepo      invoice.Repository
	TagRepo          tag.Repository
	Notifier         notification.BillingCycleNotifier
	WebhookPublisher publisher.WebhookPublisher
	Clock            clock.Clock
}

func newServiceParams(deps serviceDeps) service.ServiceParams {
	return service.ServiceParams{
		Logger:           deps.Logger,
		Config:           deps.Config,
		DB:               deps.DB,
		InvoiceRepo:      deps.InvoiceRepo,
		TagRepo:          deps.TagRepo,
		Notifier:         deps.Notifier,
		WebhookPublisher: deps.WebhookPublisher,
		Clock:            deps.Clock,
	}
}

func registerHooks(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	log *logger.Logger,
	db *postgres.Client,
	pub publisher.WebhookPublisher,
	invoiceService service.InvoiceService,
	adjustmentService service.AdjustmentService,
	balanceService service.BalanceService,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("invoicing service started",
				"mode", cfg.Deployment.Mode,
				"webhook_enabled", cfg.Webhook.Enabled,
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down invoicing service")
			if err := pub.Close(); err != nil {
				log.Errorw("failed to close webhook publisher", "error", err)
			}
			return db.Close()
		},
	})
}
