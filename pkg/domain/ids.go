// Package domain defines the typed identifiers shared across modules.
// Wrapping uuid.UUID in distinct named types lets the compiler reject
// cross-type assignments (an AccountID can never be passed where an
// InstrumentID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "rightsledger/pkg/domain-errors"
)

// InstrumentID identifies a tokenized-rights instrument.
type InstrumentID uuid.UUID

// AccountID identifies an account on the payment asset ledger. Investors,
// distributors, fee recipients, and instrument custody accounts all share
// this identifier space.
type AccountID uuid.UUID

func (i InstrumentID) String() string { return uuid.UUID(i).String() }
func (i InstrumentID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }

// MarshalText renders the ID as its canonical UUID string in JSON and text
// encodings. Named [16]byte types do not inherit uuid.UUID's methods.
func (i InstrumentID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *InstrumentID) UnmarshalText(data []byte) error {
	u, err := uuid.Parse(string(data))
	if err != nil {
		return err
	}
	*i = InstrumentID(u)
	return nil
}

func (a AccountID) String() string { return uuid.UUID(a).String() }
func (a AccountID) IsNil() bool    { return uuid.UUID(a) == uuid.Nil }

func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AccountID) UnmarshalText(data []byte) error {
	u, err := uuid.Parse(string(data))
	if err != nil {
		return err
	}
	*a = AccountID(u)
	return nil
}

// ParseInstrumentID parses and validates an instrument ID at a trust
// boundary. IDs must be valid, non-nil UUIDs.
func ParseInstrumentID(s string) (InstrumentID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return InstrumentID{}, err
	}
	return InstrumentID(u), nil
}

// ParseAccountID parses and validates an account ID at a trust boundary.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid uuid")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil uuid")
	}
	return u, nil
}
