package models

import (
	"time"

	"github.com/google/uuid"

	id "rightsledger/pkg/domain"
	dErrors "rightsledger/pkg/domain-errors"
)

// Capability is a fixed role flag assigned at instrument creation. There is
// no role-transfer primitive: whoever creates the instrument holds both
// capabilities for its lifetime.
type Capability uint8

const (
	// CapabilityAdmin may pause/unpause, activate/deactivate, update
	// metadata and withdraw investment proceeds.
	CapabilityAdmin Capability = iota + 1
	// CapabilityDistributor may fund revenue distributions.
	CapabilityDistributor
)

// Params are the issuance terms fixed at creation.
type Params struct {
	// TotalValue is the declared nominal value of the underlying asset, in
	// payment-asset base units. Informational except when UnitPrice is
	// derived from it.
	TotalValue uint64
	// ExpectedPeriodicIncome is the declared income per period.
	// Informational only.
	ExpectedPeriodicIncome uint64
	// UnitPrice is the fixed price per whole unit in payment-asset base
	// units. When zero it is derived as TotalValue / MaxSupply.
	UnitPrice uint64
	// MaxSupply is the total issuable units. When zero it is derived as
	// TotalValue / UnitPrice, rounded down.
	MaxSupply uint64
	// UnitScale reconciles decimal precision between the payment asset and
	// instrument units: units = net * UnitScale / UnitPrice. Defaults to 1.
	UnitScale uint64
	// FeeBps is the platform fee in basis points, taken gross-up: the
	// caller's payment amount includes the fee.
	FeeBps uint64
	// MinInvestment is the floor on a single payment. Defaults to the net
	// price of one whole unit.
	MinInvestment uint64
}

// Instrument is the aggregate root for one tokenized asset.
//
// Invariants:
//   - MaxSupply is fixed at creation; no operation changes it
//   - PoolUnits + sum(Balances) == MaxSupply at all times (conservation)
//   - unit rounding always floors in the pool's favor
//   - Distributions are append-only; SnapshotSoldUnits never changes once
//     recorded
//   - Claims marks at most one successful payout per (account, distribution)
//
// All mutation goes through Can*/Apply* pairs executed inside the store's
// critical section, so a failed operation never leaves partial state.
type Instrument struct {
	ID     id.InstrumentID
	Name   string
	Symbol string
	Info   string
	// Owner holds both capabilities.
	Owner id.AccountID
	// Custody is the instrument's own payment-asset account; net investment
	// proceeds and distribution escrow both sit there.
	Custody id.AccountID
	// FeeRecipient is credited with issuance fees.
	FeeRecipient id.AccountID

	TotalValue             uint64
	ExpectedPeriodicIncome uint64
	UnitPrice              uint64
	MaxSupply              uint64
	UnitScale              uint64
	FeeBps                 uint64
	MinInvestment          uint64

	Active bool
	Paused bool

	// PoolUnits is the unsold pool, owned by the instrument itself.
	PoolUnits uint64
	Balances  map[id.AccountID]uint64

	// Compliance is the one-way terms-accepted flag per account.
	Compliance map[id.AccountID]bool

	// Investors lists distinct accounts that ever invested, in first-
	// investment order; InvestorIndex backs O(1) membership checks.
	Investors     []id.AccountID
	InvestorIndex map[id.AccountID]bool
	// InvestedTotal accumulates each account's lifetime net investment.
	InvestedTotal map[id.AccountID]uint64

	Distributions []Distribution
	Claims        map[ClaimKey]bool

	// ProceedsBalance tracks the share of the custody account that came
	// from investments and is withdrawable by the admin. Distribution
	// escrow is custody minus this.
	ProceedsBalance uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New validates the issuance terms and builds an instrument holding its full
// supply in the pool.
func New(instrumentID id.InstrumentID, owner, feeRecipient id.AccountID, name, symbol, info string, p Params, now time.Time) (*Instrument, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "instrument name cannot be empty")
	}
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "instrument owner is required")
	}
	if p.UnitScale == 0 {
		p.UnitScale = 1
	}
	if p.UnitPrice == 0 {
		if p.MaxSupply == 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "either unit price or max supply is required")
		}
		p.UnitPrice = p.TotalValue / p.MaxSupply
	}
	if p.UnitPrice == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unit price must be positive")
	}
	if p.MaxSupply == 0 {
		p.MaxSupply = mulDiv(p.TotalValue, p.UnitScale, p.UnitPrice)
	}
	if p.MaxSupply == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "max supply must be positive")
	}
	if p.FeeBps >= 10_000 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "fee must be below 100%")
	}
	if p.MinInvestment == 0 {
		p.MinInvestment = p.UnitPrice / p.UnitScale
		if p.MinInvestment == 0 {
			p.MinInvestment = 1
		}
	}
	if feeRecipient.IsNil() {
		feeRecipient = owner
	}

	return &Instrument{
		ID:                     instrumentID,
		Name:                   name,
		Symbol:                 symbol,
		Info:                   info,
		Owner:                  owner,
		Custody:                id.AccountID(uuid.UUID(instrumentID)),
		FeeRecipient:           feeRecipient,
		TotalValue:             p.TotalValue,
		ExpectedPeriodicIncome: p.ExpectedPeriodicIncome,
		UnitPrice:              p.UnitPrice,
		MaxSupply:              p.MaxSupply,
		UnitScale:              p.UnitScale,
		FeeBps:                 p.FeeBps,
		MinInvestment:          p.MinInvestment,
		Active:                 true,
		PoolUnits:              p.MaxSupply,
		Balances:               make(map[id.AccountID]uint64),
		Compliance:             make(map[id.AccountID]bool),
		InvestorIndex:          make(map[id.AccountID]bool),
		InvestedTotal:          make(map[id.AccountID]uint64),
		Claims:                 make(map[ClaimKey]bool),
		CreatedAt:              now,
		UpdatedAt:              now,
	}, nil
}

// HasCapability reports whether the account holds the capability.
func (in *Instrument) HasCapability(account id.AccountID, c Capability) bool {
	switch c {
	case CapabilityAdmin, CapabilityDistributor:
		return account == in.Owner
	}
	return false
}

// SoldUnits is the derived count of units outside the pool.
func (in *Instrument) SoldUnits() uint64 { return in.MaxSupply - in.PoolUnits }

// AvailableUnits is the unsold pool balance.
func (in *Instrument) AvailableUnits() uint64 { return in.PoolUnits }

// FundingBps reports sold units as basis points of max supply.
func (in *Instrument) FundingBps() uint64 {
	return mulDiv(in.SoldUnits(), 10_000, in.MaxSupply)
}

// BalanceOf returns an account's unit balance.
func (in *Instrument) BalanceOf(account id.AccountID) uint64 { return in.Balances[account] }

// IsCompliant reports whether the account has accepted terms.
func (in *Instrument) IsCompliant(account id.AccountID) bool { return in.Compliance[account] }

// CanAcceptTerms rejects re-acceptance; the flag is set-once.
func (in *Instrument) CanAcceptTerms(account id.AccountID) error {
	if in.Compliance[account] {
		return dErrors.New(dErrors.CodeConflict, "terms already accepted")
	}
	return nil
}

func (in *Instrument) ApplyAcceptTerms(account id.AccountID, now time.Time) {
	in.Compliance[account] = true
	in.UpdatedAt = now
}

// Quote breaks a gross payment into fee, net amount and purchasable units
// using the gross-up convention: the caller's amount includes the fee.
// Every division floors, so rounding drift accrues to the platform and pool,
// never to the investor.
func (in *Instrument) Quote(paymentAmount uint64) (fee, net, units uint64) {
	fee = mulDiv(paymentAmount, in.FeeBps, 10_000+in.FeeBps)
	net = paymentAmount - fee
	units = mulDiv(net, in.UnitScale, in.UnitPrice)
	return fee, net, units
}

// CanInvest checks every invest precondition against the quoted unit count.
func (in *Instrument) CanInvest(caller id.AccountID, paymentAmount, units uint64) error {
	if !in.Active {
		return dErrors.New(dErrors.CodeUnavailable, "instrument is not active")
	}
	if in.Paused {
		return dErrors.New(dErrors.CodeUnavailable, "instrument is paused")
	}
	if !in.Compliance[caller] {
		return dErrors.New(dErrors.CodePermissionDenied, "caller has not accepted terms")
	}
	if paymentAmount < in.MinInvestment {
		return dErrors.New(dErrors.CodeInvalidInput, "payment below minimum investment")
	}
	if units == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "investment too small for one unit")
	}
	if units > in.PoolUnits {
		return dErrors.New(dErrors.CodeInvariantViolation, "not enough units available")
	}
	return nil
}

// ApplyPurchase moves units from the pool to the caller and records the
// investment. Call CanInvest first.
func (in *Instrument) ApplyPurchase(caller id.AccountID, units, net uint64, now time.Time) {
	in.PoolUnits -= units
	in.Balances[caller] += units
	if !in.InvestorIndex[caller] {
		in.InvestorIndex[caller] = true
		in.Investors = append(in.Investors, caller)
	}
	in.InvestedTotal[caller] += net
	in.ProceedsBalance += net
	in.UpdatedAt = now
}

// CanTransfer is the transfer guard for peer-to-peer unit moves: pause state
// and compliance on both ends. The pool is not a peer; pool moves happen only
// through ApplyPurchase.
func (in *Instrument) CanTransfer(from, to id.AccountID, units uint64) error {
	if in.Paused {
		return dErrors.New(dErrors.CodeUnavailable, "instrument is paused")
	}
	if units == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "transfer units must be positive")
	}
	if !in.Compliance[from] {
		return dErrors.New(dErrors.CodePermissionDenied, "sender has not accepted terms")
	}
	if !in.Compliance[to] {
		return dErrors.New(dErrors.CodePermissionDenied, "recipient has not accepted terms")
	}
	if in.Balances[from] < units {
		return dErrors.New(dErrors.CodeInvalidInput, "insufficient unit balance")
	}
	return nil
}

func (in *Instrument) ApplyTransfer(from, to id.AccountID, units uint64, now time.Time) {
	in.Balances[from] -= units
	if in.Balances[from] == 0 {
		delete(in.Balances, from)
	}
	in.Balances[to] += units
	in.UpdatedAt = now
}

// CanPause / CanUnpause / CanSetActive guard the admin switches.

func (in *Instrument) CanPause(caller id.AccountID) error {
	if !in.HasCapability(caller, CapabilityAdmin) {
		return dErrors.New(dErrors.CodePermissionDenied, "admin capability required")
	}
	if in.Paused {
		return dErrors.New(dErrors.CodeConflict, "instrument is already paused")
	}
	return nil
}

func (in *Instrument) ApplyPause(now time.Time) {
	in.Paused = true
	in.UpdatedAt = now
}

func (in *Instrument) CanUnpause(caller id.AccountID) error {
	if !in.HasCapability(caller, CapabilityAdmin) {
		return dErrors.New(dErrors.CodePermissionDenied, "admin capability required")
	}
	if !in.Paused {
		return dErrors.New(dErrors.CodeConflict, "instrument is not paused")
	}
	return nil
}

func (in *Instrument) ApplyUnpause(now time.Time) {
	in.Paused = false
	in.UpdatedAt = now
}

func (in *Instrument) CanSetActive(caller id.AccountID, active bool) error {
	if !in.HasCapability(caller, CapabilityAdmin) {
		return dErrors.New(dErrors.CodePermissionDenied, "admin capability required")
	}
	if in.Active == active {
		return dErrors.New(dErrors.CodeConflict, "instrument already in requested state")
	}
	return nil
}

func (in *Instrument) ApplySetActive(active bool, now time.Time) {
	in.Active = active
	in.UpdatedAt = now
}

func (in *Instrument) CanUpdateInfo(caller id.AccountID) error {
	if !in.HasCapability(caller, CapabilityAdmin) {
		return dErrors.New(dErrors.CodePermissionDenied, "admin capability required")
	}
	return nil
}

func (in *Instrument) ApplyInfoUpdate(name, symbol, info string, now time.Time) {
	if name != "" {
		in.Name = name
	}
	if symbol != "" {
		in.Symbol = symbol
	}
	if info != "" {
		in.Info = info
	}
	in.UpdatedAt = now
}

// CanWithdraw limits the admin to investment proceeds; distribution escrow
// stays untouchable in custody.
func (in *Instrument) CanWithdraw(caller id.AccountID, amount uint64) error {
	if !in.HasCapability(caller, CapabilityAdmin) {
		return dErrors.New(dErrors.CodePermissionDenied, "admin capability required")
	}
	if amount == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "withdraw amount must be positive")
	}
	if amount > in.ProceedsBalance {
		return dErrors.New(dErrors.CodeInvariantViolation, "amount exceeds investment proceeds")
	}
	return nil
}

func (in *Instrument) ApplyWithdraw(amount uint64, now time.Time) {
	in.ProceedsBalance -= amount
	in.UpdatedAt = now
}

// Clone deep-copies the aggregate so the store can commit all-or-nothing.
func (in *Instrument) Clone() *Instrument {
	out := *in
	out.Balances = make(map[id.AccountID]uint64, len(in.Balances))
	for k, v := range in.Balances {
		out.Balances[k] = v
	}
	out.Compliance = make(map[id.AccountID]bool, len(in.Compliance))
	for k, v := range in.Compliance {
		out.Compliance[k] = v
	}
	out.Investors = append([]id.AccountID(nil), in.Investors...)
	out.InvestorIndex = make(map[id.AccountID]bool, len(in.InvestorIndex))
	for k, v := range in.InvestorIndex {
		out.InvestorIndex[k] = v
	}
	out.InvestedTotal = make(map[id.AccountID]uint64, len(in.InvestedTotal))
	for k, v := range in.InvestedTotal {
		out.InvestedTotal[k] = v
	}
	out.Distributions = append([]Distribution(nil), in.Distributions...)
	out.Claims = make(map[ClaimKey]bool, len(in.Claims))
	for k, v := range in.Claims {
		out.Claims[k] = v
	}
	return &out
}
