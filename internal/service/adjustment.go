package service

import (
	"context"

	"github.com/billcraft/billcraft/internal/api/dto"
	"github.com/billcraft/billcraft/internal/domain/invoice"
	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/billcraft/billcraft/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// AdjustmentService posts the money-reversing mutations: refunds,
// chargebacks and account credits. Every mutation runs in a single
// transaction; webhooks fire only after the transaction commits.
type AdjustmentService interface {
	// CreateRefund refunds an external payment. Retrying with the same
	// payment cookie returns the refund created by the first call without
	// writing new rows.
	CreateRefund(ctx context.Context, req dto.RefundRequest) (*invoice.InvoicePayment, error)
	// PostChargeback records a chargeback against an invoice payment row,
	// capped at the amount still standing on that payment
	PostChargeback(ctx context.Context, req dto.ChargebackRequest) (*invoice.InvoicePayment, error)
	// InsertCredit issues an account credit, creating a fresh invoice to
	// carry it when no invoice id is supplied
	InsertCredit(ctx context.Context, req dto.CreditRequest) (*invoice.InvoiceLineItem, error)
}

type adjustmentService struct {
	ServiceParams
}

func NewAdjustmentService(params ServiceParams) AdjustmentService {
	return &adjustmentService{ServiceParams: params}
}

func (s *adjustmentService) CreateRefund(ctx context.Context, req dto.RefundRequest) (*invoice.InvoicePayment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var refund *invoice.InvoicePayment
	var created bool

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		// Serialize concurrent retries carrying the same cookie
		if err := s.DB.LockKey(ctx, types.LockRequest{
			Key: types.GenerateLockKey(ctx, types.LockScopeInvoicePayment, map[string]interface{}{
				"payment_cookie_id": req.PaymentCookieID,
			}),
		}); err != nil {
			return err
		}

		payment, err := s.InvoiceRepo.GetPaymentByPaymentID(ctx, req.PaymentID)
		if err != nil {
			return err
		}

		// The bound is the original payment amount. Refunds already issued
		// against the same payment are not subtracted here; the payment
		// system owns that check.
		maxRefundAmount := payment.Amount
		requested := lo.FromPtrOr(req.Amount, maxRefundAmount)
		if requested.GreaterThan(maxRefundAmount) {
			return ierr.NewError("refund amount exceeds payment").
				WithHint("Requested refund is larger than the original payment").
				WithReportableDetails(map[string]any{
					"payment_id": req.PaymentID,
					"requested":  requested.String(),
					"maximum":    maxRefundAmount.String(),
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		// A retried refund shows up as an existing row for this cookie
		existing, err := s.InvoiceRepo.GetPaymentByCookie(ctx, req.PaymentCookieID)
		if err == nil {
			refund = existing
			return nil
		}
		if !ierr.IsNotFound(err) {
			return err
		}

		refund = payment.NewRefund(ctx, requested, req.PaymentCookieID, s.now().Now())
		created = true
		if err := s.InvoiceRepo.CreatePayment(ctx, refund); err != nil {
			return err
		}

		inv, err := s.getInvoiceWithChildren(ctx, payment.InvoiceID)
		if err != nil {
			if ierr.IsNotFound(err) {
				return ierr.NewError("invoice missing for payment").
					WithHint("Payment references an invoice that does not exist").
					WithReportableDetails(map[string]any{
						"invoice_id": payment.InvoiceID,
						"payment_id": req.PaymentID,
					}).
					Mark(ierr.ErrInternal)
			}
			return err
		}
		// Includes the refund row just written
		balanceAfterRefund := inv.Balance()

		// When the account holds credit, consume it first so the refund does
		// not double-return money the credit already covered
		accountCBA, err := s.accountCBA(ctx, inv.CustomerID)
		if err != nil {
			return err
		}
		cbaAdjAmount := decimal.Zero
		if accountCBA.IsPositive() {
			cbaAdjAmount = decimal.Min(requested, accountCBA).Neg()
			cbaItem := invoice.NewCreditBalanceLineItem(ctx, inv.ID, inv.CustomerID,
				cbaAdjAmount, inv.Currency, s.now().Now())
			if err := s.InvoiceRepo.CreateLineItem(ctx, cbaItem); err != nil {
				return err
			}
		}
		requestedAfterCBA := requested.Add(cbaAdjAmount)

		if req.AdjustInvoice {
			// Write the invoice down by what the refund reopened, never past
			// zero and never more than the refund left uncovered by credit
			maxBalanceToAdjust := balanceAfterRefund
			if !maxBalanceToAdjust.IsPositive() {
				maxBalanceToAdjust = decimal.Zero
			}
			toAdjust := decimal.Min(requestedAfterCBA, maxBalanceToAdjust)
			if toAdjust.IsPositive() {
				adjItem := invoice.NewRefundAdjLineItem(ctx, inv.ID, inv.CustomerID,
					toAdjust.Neg(), inv.Currency, s.now().Now())
				if err := s.InvoiceRepo.CreateLineItem(ctx, adjItem); err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.Logger.Infow("refund created",
			"refund_id", refund.ID,
			"payment_id", req.PaymentID,
			"invoice_id", refund.InvoiceID,
			"amount", refund.Amount.String())
		s.publishWebhookEvent(ctx, types.WebhookEventInvoiceRefundCreated, refund)
	}

	return refund, nil
}

func (s *adjustmentService) PostChargeback(ctx context.Context, req dto.ChargebackRequest) (*invoice.InvoicePayment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var chargeback *invoice.InvoicePayment

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.DB.LockKey(ctx, types.LockRequest{
			Key: types.GenerateLockKey(ctx, types.LockScopeInvoicePayment, map[string]interface{}{
				"invoice_payment_id": req.InvoicePaymentID,
			}),
		}); err != nil {
			return err
		}

		// Zero when the payment row does not exist, so an explicit amount
		// against a missing payment fails the bound check first
		maxChargeback, err := s.InvoiceRepo.GetRemainingAmountPaid(ctx, req.InvoicePaymentID)
		if err != nil {
			return err
		}

		requested := lo.FromPtrOr(req.Amount, maxChargeback)
		if !requested.IsPositive() {
			return ierr.NewError("chargeback amount must be positive").
				WithHint("Nothing remains to charge back on this payment").
				WithReportableDetails(map[string]any{
					"invoice_payment_id": req.InvoicePaymentID,
					"requested":          requested.String(),
				}).
				Mark(ierr.ErrValidation)
		}
		if requested.GreaterThan(maxChargeback) {
			return ierr.NewError("chargeback amount exceeds remaining payment").
				WithHint("Requested chargeback is larger than what remains paid").
				WithReportableDetails(map[string]any{
					"invoice_payment_id": req.InvoicePaymentID,
					"requested":          requested.String(),
					"maximum":            maxChargeback.String(),
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		payment, err := s.InvoiceRepo.GetPayment(ctx, req.InvoicePaymentID)
		if err != nil {
			return err
		}

		chargeback = payment.NewChargeback(ctx, requested, s.now().Now())
		return s.InvoiceRepo.CreatePayment(ctx, chargeback)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("chargeback posted",
		"chargeback_id", chargeback.ID,
		"invoice_payment_id", req.InvoicePaymentID,
		"invoice_id", chargeback.InvoiceID,
		"amount", chargeback.Amount.String())
	s.publishWebhookEvent(ctx, types.WebhookEventInvoiceChargebackCreated, chargeback)

	return chargeback, nil
}

func (s *adjustmentService) InsertCredit(ctx context.Context, req dto.CreditRequest) (*invoice.InvoiceLineItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	effectiveDate := req.EffectiveDate
	if effectiveDate.IsZero() {
		effectiveDate = s.now().Now()
	}

	var credit *invoice.InvoiceLineItem

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		invoiceID := lo.FromPtr(req.InvoiceID)
		if invoiceID == "" {
			// No target invoice: create an empty one to carry the credit
			inv := invoice.New(ctx, req.CustomerID, effectiveDate, effectiveDate, req.Currency)
			if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
				return err
			}
			invoiceID = inv.ID
		} else {
			target, err := s.InvoiceRepo.Get(ctx, invoiceID)
			if err != nil {
				return err
			}
			if err := validateCurrencyMatch(target.Currency, req.Currency); err != nil {
				return err
			}
		}

		// Credits are stored negative
		credit = invoice.NewCreditLineItem(ctx, invoiceID, req.CustomerID,
			req.Amount.Neg(), req.Currency, effectiveDate)
		if err := s.InvoiceRepo.CreateLineItem(ctx, credit); err != nil {
			return err
		}

		inv, err := s.getInvoiceWithChildren(ctx, invoiceID)
		if err != nil {
			if ierr.IsNotFound(err) {
				return ierr.NewError("invoice missing for credit").
					WithHint("Credit targets an invoice that does not exist").
					WithReportableDetails(map[string]any{
						"invoice_id": invoiceID,
					}).
					Mark(ierr.ErrInternal)
			}
			return err
		}

		// A credit larger than what the invoice owed leaves a negative
		// balance; park the excess in the account credit pool
		balance := inv.Balance()
		if balance.IsNegative() {
			cbaItem := invoice.NewCreditBalanceLineItem(ctx, inv.ID, req.CustomerID,
				balance.Neg(), inv.Currency, s.now().Now())
			if err := s.InvoiceRepo.CreateLineItem(ctx, cbaItem); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("credit created",
		"credit_id", credit.ID,
		"invoice_id", credit.InvoiceID,
		"customer_id", req.CustomerID,
		"amount", credit.Amount.String())
	s.publishWebhookEvent(ctx, types.WebhookEventInvoiceCreditCreated, credit)

	return credit, nil
}
