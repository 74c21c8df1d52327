package service

import (
	"context"

	"github.com/shopspring/decimal"
)

// BalanceService answers account-level money questions derived from the
// customer's full invoice set.
type BalanceService interface {
	// GetAccountBalance is what the customer owes across all invoices:
	// the sum of invoice balances minus the credit pool already folded into
	// those balances.
	GetAccountBalance(ctx context.Context, customerID string) (decimal.Decimal, error)
	// GetAccountCBA is the customer's available credit
	GetAccountCBA(ctx context.Context, customerID string) (decimal.Decimal, error)
}

type balanceService struct {
	ServiceParams
}

func NewBalanceService(params ServiceParams) BalanceService {
	return &balanceService{ServiceParams: params}
}

func (s *balanceService) GetAccountBalance(ctx context.Context, customerID string) (decimal.Decimal, error) {
	balance := decimal.Zero

	// Single transaction so the rollup sees one consistent snapshot
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		invoices, err := s.InvoiceRepo.ListByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if err := s.populateChildrenAll(ctx, invoices); err != nil {
			return err
		}

		cba := decimal.Zero
		for _, inv := range invoices {
			balance = balance.Add(inv.Balance())
			cba = cba.Add(inv.CBAAmount())
		}
		// CBA items net to zero against the charges they offset, so the
		// outstanding amount excludes the credit pool itself
		balance = balance.Sub(cba)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	return balance, nil
}

func (s *balanceService) GetAccountCBA(ctx context.Context, customerID string) (decimal.Decimal, error) {
	cba := decimal.Zero

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		cba, err = s.accountCBA(ctx, customerID)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}

	return cba, nil
}
