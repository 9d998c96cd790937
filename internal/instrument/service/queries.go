package service

import (
	"context"

	"rightsledger/internal/instrument/models"
	id "rightsledger/pkg/domain"
)

// Summary is the read projection of one instrument. All fields derive from a
// single store snapshot, so they are mutually consistent.
type Summary struct {
	ID                     id.InstrumentID `json:"id"`
	Name                   string          `json:"name"`
	Symbol                 string          `json:"symbol"`
	Info                   string          `json:"info"`
	Owner                  id.AccountID    `json:"owner"`
	TotalValue             uint64          `json:"total_value"`
	ExpectedPeriodicIncome uint64          `json:"expected_periodic_income"`
	UnitPrice              uint64          `json:"unit_price"`
	MaxSupply              uint64          `json:"max_supply"`
	AvailableUnits         uint64          `json:"available_units"`
	SoldUnits              uint64          `json:"sold_units"`
	FundingBps             uint64          `json:"funding_bps"`
	Active                 bool            `json:"active"`
	Paused                 bool            `json:"paused"`
	DistributionCount      int             `json:"distribution_count"`
	InvestorCount          int             `json:"investor_count"`
}

// GetSummary returns the instrument's read projection.
func (s *Service) GetSummary(ctx context.Context, instrumentID id.InstrumentID) (*Summary, error) {
	in, err := s.get(ctx, instrumentID)
	if err != nil {
		return nil, err
	}
	return &Summary{
		ID:                     in.ID,
		Name:                   in.Name,
		Symbol:                 in.Symbol,
		Info:                   in.Info,
		Owner:                  in.Owner,
		TotalValue:             in.TotalValue,
		ExpectedPeriodicIncome: in.ExpectedPeriodicIncome,
		UnitPrice:              in.UnitPrice,
		MaxSupply:              in.MaxSupply,
		AvailableUnits:         in.AvailableUnits(),
		SoldUnits:              in.SoldUnits(),
		FundingBps:             in.FundingBps(),
		Active:                 in.Active,
		Paused:                 in.Paused,
		DistributionCount:      len(in.Distributions),
		InvestorCount:          len(in.Investors),
	}, nil
}

// BalanceOf returns an account's unit balance.
func (s *Service) BalanceOf(ctx context.Context, instrumentID id.InstrumentID, account id.AccountID) (uint64, error) {
	in, err := s.get(ctx, instrumentID)
	if err != nil {
		return 0, err
	}
	return in.BalanceOf(account), nil
}

// IsCompliant reports whether the account has accepted terms.
func (s *Service) IsCompliant(ctx context.Context, instrumentID id.InstrumentID, account id.AccountID) (bool, error) {
	in, err := s.get(ctx, instrumentID)
	if err != nil {
		return false, err
	}
	return in.IsCompliant(account), nil
}

// ListDistributions returns every recorded distribution, oldest first.
func (s *Service) ListDistributions(ctx context.Context, instrumentID id.InstrumentID) ([]models.Distribution, error) {
	in, err := s.get(ctx, instrumentID)
	if err != nil {
		return nil, err
	}
	return in.Distributions, nil
}

// PendingRevenue projects the exact payout ClaimRevenue would make right
// now; 0 for out-of-range, already-claimed or zero-balance cases.
func (s *Service) PendingRevenue(ctx context.Context, instrumentID id.InstrumentID, account id.AccountID, index int) (uint64, error) {
	in, err := s.get(ctx, instrumentID)
	if err != nil {
		return 0, err
	}
	return in.PendingRevenue(account, index), nil
}

// ListInvestors returns the distinct investors in first-investment order.
func (s *Service) ListInvestors(ctx context.Context, instrumentID id.InstrumentID) ([]id.AccountID, error) {
	in, err := s.get(ctx, instrumentID)
	if err != nil {
		return nil, err
	}
	return in.Investors, nil
}

// InvestedTotal returns the account's lifetime net invested amount.
func (s *Service) InvestedTotal(ctx context.Context, instrumentID id.InstrumentID, account id.AccountID) (uint64, error) {
	in, err := s.get(ctx, instrumentID)
	if err != nil {
		return 0, err
	}
	return in.InvestedTotal[account], nil
}

func (s *Service) get(ctx context.Context, instrumentID id.InstrumentID) (*models.Instrument, error) {
	in, err := s.store.Get(ctx, instrumentID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return in, nil
}
