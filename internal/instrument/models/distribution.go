package models

import (
	"math"
	"math/big"
	"time"

	id "rightsledger/pkg/domain"
	dErrors "rightsledger/pkg/domain-errors"
)

// Distribution is an immutable record of one funded revenue event.
//
// SnapshotSoldUnits is the claim denominator frozen at distribution time.
// Holder balances are read at claim time, not snapshotted here: a unit
// transferred after the distribution is recorded but before the original
// holder claims can be claimed by the new holder instead. That looseness is
// the reference behavior and is kept deliberately; snapshotting balances
// would need an auxiliary per-distribution map.
type Distribution struct {
	// TotalAmount is the payment-asset amount actually pulled from the
	// distributor, already pro-rated to sold units.
	TotalAmount uint64
	// SnapshotSoldUnits is soldUnits at the moment of distribution.
	SnapshotSoldUnits uint64
	Timestamp         time.Time
	Description       string
}

// ClaimKey marks one (account, distribution) payout.
type ClaimKey struct {
	Account id.AccountID
	Index   int
}

// CanDistribute guards distribution funding: distributor capability, a
// positive declared amount, and at least one sold unit.
func (in *Instrument) CanDistribute(caller id.AccountID, declaredAmount uint64) error {
	if !in.HasCapability(caller, CapabilityDistributor) {
		return dErrors.New(dErrors.CodePermissionDenied, "distributor capability required")
	}
	if declaredAmount == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "distribution amount must be positive")
	}
	if in.SoldUnits() == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "no units sold yet")
	}
	return nil
}

// ProRatedAmount scales a declared full-supply amount down to the sold
// fraction: the distributor declares income as if every unit were sold and
// funds only the sold share.
func (in *Instrument) ProRatedAmount(declaredAmount uint64) uint64 {
	return mulDiv(declaredAmount, in.SoldUnits(), in.MaxSupply)
}

// ApplyDistribution appends the record and returns its index.
func (in *Instrument) ApplyDistribution(actualAmount uint64, description string, now time.Time) int {
	in.Distributions = append(in.Distributions, Distribution{
		TotalAmount:       actualAmount,
		SnapshotSoldUnits: in.SoldUnits(),
		Timestamp:         now,
		Description:       description,
	})
	return len(in.Distributions) - 1
}

// CanClaim guards a revenue claim and returns the computed share.
func (in *Instrument) CanClaim(caller id.AccountID, index int) (uint64, error) {
	if index < 0 || index >= len(in.Distributions) {
		return 0, dErrors.New(dErrors.CodeNotFound, "invalid distribution")
	}
	if in.Claims[ClaimKey{Account: caller, Index: index}] {
		return 0, dErrors.New(dErrors.CodeConflict, "already claimed")
	}
	balance := in.Balances[caller]
	if balance == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "no units held")
	}
	share := in.claimShare(caller, index)
	if share == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "nothing to claim")
	}
	return share, nil
}

// ApplyClaim marks the payout before any external transfer happens, so a
// reentrant call inside the same critical section would already see
// claimed=true.
func (in *Instrument) ApplyClaim(caller id.AccountID, index int, now time.Time) {
	in.Claims[ClaimKey{Account: caller, Index: index}] = true
	in.UpdatedAt = now
}

// PendingRevenue is the pure projection of a claim: the exact amount a claim
// would pay right now, and 0 (never an error) for out-of-range, claimed, or
// zero-balance cases.
func (in *Instrument) PendingRevenue(account id.AccountID, index int) uint64 {
	if index < 0 || index >= len(in.Distributions) {
		return 0
	}
	if in.Claims[ClaimKey{Account: account, Index: index}] {
		return 0
	}
	if in.Balances[account] == 0 {
		return 0
	}
	return in.claimShare(account, index)
}

func (in *Instrument) claimShare(account id.AccountID, index int) uint64 {
	d := in.Distributions[index]
	return mulDiv(d.TotalAmount, in.Balances[account], d.SnapshotSoldUnits)
}

// mulDiv computes a*b/den with floor division, widening through big.Int so
// uint64 products cannot overflow. A quotient beyond uint64 saturates to
// MaxUint64 instead of wrapping; saturated unit counts then fail the pool
// range check rather than passing as a small wrapped value.
func mulDiv(a, b, den uint64) uint64 {
	if den == 0 {
		return 0
	}
	product := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	product.Quo(product, new(big.Int).SetUint64(den))
	if !product.IsUint64() {
		return math.MaxUint64
	}
	return product.Uint64()
}
