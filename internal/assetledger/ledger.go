// Package assetledger abstracts the external payment asset. The accounting
// core treats it as a black box that can fail: any error from a transfer is
// fatal to the enclosing operation, which is rolled back whole.
package assetledger

import (
	"context"

	id "rightsledger/pkg/domain"
)

//go:generate mockgen -source=ledger.go -destination=mock/ledger.go -package=mock

// Ledger is the port to the payment-asset service.
type Ledger interface {
	// Transfer moves amount from one account to another. Implementations
	// must either fully apply the transfer or leave both balances untouched.
	Transfer(ctx context.Context, from, to id.AccountID, amount uint64) error
	// BalanceOf reports the current balance of an account.
	BalanceOf(ctx context.Context, account id.AccountID) (uint64, error)
}
