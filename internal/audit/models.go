package audit

import (
	"time"

	id "rightsledger/pkg/domain"
)

// Action names the audited operations. Exactly one event is emitted per
// successful operation; a failed or rolled-back operation emits nothing.
type Action string

const (
	ActionCreated              Action = "instrument_created"
	ActionInvested             Action = "invested"
	ActionPlatformFeeCollected Action = "platform_fee_collected"
	ActionRevenueDistributed   Action = "revenue_distributed"
	ActionRevenueClaimed       Action = "revenue_claimed"
	ActionTermsAccepted        Action = "terms_accepted"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp    time.Time
	Action       Action
	InstrumentID id.InstrumentID
	// Account is the investor/holder the event concerns; for instrument
	// creation it is the creator.
	Account id.AccountID
	// Amount is the payment-asset amount the event moved (net amount for
	// investments, fee for fee collection, funded total for distributions,
	// share for claims). Zero for events that move no funds.
	Amount uint64
	// Units is the instrument-unit quantity involved, when applicable.
	Units uint64
	// DistributionIndex identifies the distribution for distribute/claim
	// events; -1 otherwise.
	DistributionIndex int
	Description       string
	RequestID         string
}
