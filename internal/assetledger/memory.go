package assetledger

import (
	"context"
	"sync"

	id "rightsledger/pkg/domain"
	dErrors "rightsledger/pkg/domain-errors"
	"rightsledger/pkg/platform/sentinel"
)

// InMemory is a payment-asset ledger for dev wiring and tests. Balances are
// plain unsigned integers in the asset's base units.
type InMemory struct {
	mu       sync.RWMutex
	balances map[id.AccountID]uint64
}

func NewInMemory() *InMemory {
	return &InMemory{balances: make(map[id.AccountID]uint64)}
}

// Mint credits an account out of thin air. Test and seed helper only; the
// real payment asset controls its own supply.
func (l *InMemory) Mint(account id.AccountID, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

func (l *InMemory) Transfer(_ context.Context, from, to id.AccountID, amount uint64) error {
	if amount == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "transfer amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return dErrors.Wrap(sentinel.ErrInsufficientFunds, dErrors.CodeExternalFailure, "asset transfer rejected")
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

func (l *InMemory) BalanceOf(_ context.Context, account id.AccountID) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account], nil
}
