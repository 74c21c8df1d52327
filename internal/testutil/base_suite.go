package testutil

import (
	"context"
	"time"

	"github.com/billcraft/billcraft/internal/clock"
	"github.com/billcraft/billcraft/internal/config"
	"github.com/billcraft/billcraft/internal/logger"
	"github.com/billcraft/billcraft/internal/types"
	"github.com/billcraft/billcraft/internal/webhook/publisher"
	"github.com/stretchr/testify/suite"
)

// Stores bundles the in-memory repositories handed to services under test
type Stores struct {
	InvoiceRepo *InMemoryInvoiceStore
	TagRepo     *InMemoryTagStore
}

// BaseServiceTestSuite sets up the shared service test fixtures: in-memory
// stores, a request context carrying tenant and environment, a settable
// clock and a memory-transport webhook publisher.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	logger    *logger.Logger
	cfg       *config.Configuration
	db        *TestDBClient
	stores    Stores
	notifier  *InMemoryBillingNotifier
	clock     *clock.TestClock
	publisher publisher.WebhookPublisher
}

// SetupTest initializes fresh fixtures before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = types.SetTenantID(context.Background(), types.DefaultTenantID)
	s.ctx = types.SetEnvironmentID(s.ctx, types.DefaultEnvironmentID)
	s.ctx = types.SetUserID(s.ctx, types.DefaultUserID)

	cfg := config.GetDefaultConfig()
	log, err := logger.NewLogger(cfg)
	s.Require().NoError(err)

	s.logger = log
	s.cfg = cfg
	s.db = NewTestDBClient()
	s.stores = Stores{
		InvoiceRepo: NewInMemoryInvoiceStore(),
		TagRepo:     NewInMemoryTagStore(),
	}
	s.notifier = NewInMemoryBillingNotifier()
	s.clock = clock.NewTestClock(time.Date(2012, 5, 15, 10, 30, 0, 0, time.UTC))
	s.publisher = publisher.NewWebhookPublisherWithTransport(cfg, log, NewInMemoryPubSub())
}

// TearDownTest clears state after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.stores.InvoiceRepo.Clear()
	s.stores.TagRepo.Clear()
	s.notifier.Clear()
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.cfg
}

func (s *BaseServiceTestSuite) GetDB() *TestDBClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetNotifier() *InMemoryBillingNotifier {
	return s.notifier
}

func (s *BaseServiceTestSuite) GetClock() *clock.TestClock {
	return s.clock
}

func (s *BaseServiceTestSuite) GetWebhookPublisher() publisher.WebhookPublisher {
	return s.publisher
}
