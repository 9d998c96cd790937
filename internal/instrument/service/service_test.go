package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"rightsledger/internal/assetledger"
	ledgermock "rightsledger/internal/assetledger/mock"
	"rightsledger/internal/audit"
	auditmemory "rightsledger/internal/audit/store/memory"
	"rightsledger/internal/instrument/models"
	"rightsledger/internal/instrument/store"
	id "rightsledger/pkg/domain"
	dErrors "rightsledger/pkg/domain-errors"
	"rightsledger/pkg/requestcontext"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type ServiceSuite struct {
	suite.Suite
	store        *store.InMemory
	assets       *assetledger.InMemory
	events       *auditmemory.Store
	service      *Service
	owner        id.AccountID
	feeRecipient id.AccountID
	instrumentID id.InstrumentID
	custody      id.AccountID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.assets = assetledger.NewInMemory()
	s.events = auditmemory.New()
	s.service = New(s.store, s.assets, WithAuditPublisher(audit.NewPublisher(s.events)))

	s.owner = id.AccountID(uuid.New())
	s.feeRecipient = id.AccountID(uuid.New())
	s.instrumentID = s.createInstrument(models.Params{UnitPrice: 50, MaxSupply: 2000, FeeBps: 200})
}

func (s *ServiceSuite) createInstrument(p models.Params) id.InstrumentID {
	instrumentID := id.InstrumentID(uuid.New())
	in, err := models.New(instrumentID, s.owner, s.feeRecipient, "Warehouse 7", "WH7", "", p, fixedNow)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), in))
	s.custody = in.Custody
	return instrumentID
}

func (s *ServiceSuite) ctxFor(account id.AccountID) context.Context {
	ctx := requestcontext.WithCallerID(context.Background(), account)
	return requestcontext.WithTime(ctx, fixedNow)
}

func (s *ServiceSuite) newInvestor(funds uint64) (id.AccountID, context.Context) {
	account := id.AccountID(uuid.New())
	s.assets.Mint(account, funds)
	ctx := s.ctxFor(account)
	s.Require().NoError(s.service.AcceptTerms(ctx, s.instrumentID))
	return account, ctx
}

func (s *ServiceSuite) balance(account id.AccountID) uint64 {
	got, err := s.assets.BalanceOf(context.Background(), account)
	s.Require().NoError(err)
	return got
}

func (s *ServiceSuite) TestInvest_FeeNetUnits() {
	investor, ctx := s.newInvestor(102)

	result, err := s.service.Invest(ctx, s.instrumentID, 102)
	s.Require().NoError(err)
	s.Equal(uint64(2), result.Fee)
	s.Equal(uint64(100), result.Net)
	s.Equal(uint64(2), result.Units)

	s.Equal(uint64(0), s.balance(investor))
	s.Equal(uint64(100), s.balance(s.custody))
	s.Equal(uint64(2), s.balance(s.feeRecipient))

	units, err := s.service.BalanceOf(ctx, s.instrumentID, investor)
	s.Require().NoError(err)
	s.Equal(uint64(2), units)

	invested, err := s.service.InvestedTotal(ctx, s.instrumentID, investor)
	s.Require().NoError(err)
	s.Equal(uint64(100), invested)

	actions := make([]audit.Action, 0, 3)
	for _, e := range s.events.All() {
		actions = append(actions, e.Action)
	}
	s.Equal([]audit.Action{
		audit.ActionTermsAccepted,
		audit.ActionInvested,
		audit.ActionPlatformFeeCollected,
	}, actions)
}

func (s *ServiceSuite) TestInvest_RequiresTerms() {
	account := id.AccountID(uuid.New())
	s.assets.Mint(account, 102)

	_, err := s.service.Invest(s.ctxFor(account), s.instrumentID, 102)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePermissionDenied))
	s.Equal(uint64(102), s.balance(account))
}

func (s *ServiceSuite) TestInvest_RequiresCaller() {
	_, err := s.service.Invest(context.Background(), s.instrumentID, 102)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestInvest_UnknownInstrument() {
	_, ctx := s.newInvestor(102)
	_, err := s.service.Invest(ctx, id.InstrumentID(uuid.New()), 102)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestInvest_InsufficientPaymentFunds() {
	investor, ctx := s.newInvestor(10)

	_, err := s.service.Invest(ctx, s.instrumentID, 102)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeExternalFailure))

	// The rejected pull rolled the purchase back.
	units, qerr := s.service.BalanceOf(ctx, s.instrumentID, investor)
	s.Require().NoError(qerr)
	s.Equal(uint64(0), units)
	s.Equal(uint64(0), s.balance(s.custody))
}

func (s *ServiceSuite) TestInvest_FeeLegFailureRefundsNet() {
	// Enough to fund the net leg but not the fee leg: the net pull into
	// custody succeeds, the fee pull fails.
	investor, ctx := s.newInvestor(100)

	_, err := s.service.Invest(ctx, s.instrumentID, 102)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeExternalFailure))

	// The external ledger is restored along with the aggregate.
	s.Equal(uint64(100), s.balance(investor))
	s.Equal(uint64(0), s.balance(s.custody))
	s.Equal(uint64(0), s.balance(s.feeRecipient))

	units, qerr := s.service.BalanceOf(ctx, s.instrumentID, investor)
	s.Require().NoError(qerr)
	s.Equal(uint64(0), units)

	// And nothing was audited for the failed attempt.
	for _, e := range s.events.All() {
		s.NotEqual(audit.ActionInvested, e.Action)
	}
}

func (s *ServiceSuite) TestInvest_ExactSellOutThenReject() {
	s.instrumentID = s.createInstrument(models.Params{UnitPrice: 50, MaxSupply: 4})
	_, ctx := s.newInvestor(250)

	result, err := s.service.Invest(ctx, s.instrumentID, 200)
	s.Require().NoError(err)
	s.Equal(uint64(4), result.Units)

	summary, err := s.service.GetSummary(ctx, s.instrumentID)
	s.Require().NoError(err)
	s.Equal(uint64(0), summary.AvailableUnits)
	s.Equal(uint64(10_000), summary.FundingBps)

	// The pool is empty; a further purchase is rejected, never clamped.
	_, err = s.service.Invest(ctx, s.instrumentID, 50)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ServiceSuite) TestDistributeAndClaim_EvenSplit() {
	a, ctxA := s.newInvestor(51)
	b, ctxB := s.newInvestor(51)
	_, err := s.service.Invest(ctxA, s.instrumentID, 51)
	s.Require().NoError(err)
	_, err = s.service.Invest(ctxB, s.instrumentID, 51)
	s.Require().NoError(err)

	// Declared over full supply; with 2 of 2000 units sold the engine pulls
	// 10_000 * 2 / 2000 = 10.
	s.assets.Mint(s.owner, 10)
	ownerCtx := s.ctxFor(s.owner)
	result, err := s.service.Distribute(ownerCtx, s.instrumentID, 10_000, "march rent")
	s.Require().NoError(err)
	s.Equal(0, result.Index)
	s.Equal(uint64(10), result.TotalAmount)
	s.Equal(uint64(2), result.SnapshotSoldUnits)
	s.Equal(uint64(0), s.balance(s.owner))

	pending, err := s.service.PendingRevenue(ctxA, s.instrumentID, a, 0)
	s.Require().NoError(err)
	s.Equal(uint64(5), pending)

	shareA, err := s.service.ClaimRevenue(ctxA, s.instrumentID, 0)
	s.Require().NoError(err)
	shareB, err := s.service.ClaimRevenue(ctxB, s.instrumentID, 0)
	s.Require().NoError(err)
	s.Equal(uint64(5), shareA)
	s.Equal(uint64(5), shareB)
	s.Equal(uint64(5), s.balance(a))
	s.Equal(uint64(5), s.balance(b))

	// Claimed; the projection drops to zero.
	pending, err = s.service.PendingRevenue(ctxA, s.instrumentID, a, 0)
	s.Require().NoError(err)
	s.Equal(uint64(0), pending)
}

func (s *ServiceSuite) TestClaim_AtMostOnce() {
	_, ctx := s.newInvestor(51)
	_, err := s.service.Invest(ctx, s.instrumentID, 51)
	s.Require().NoError(err)

	s.assets.Mint(s.owner, 10)
	_, err = s.service.Distribute(s.ctxFor(s.owner), s.instrumentID, 10_000, "")
	s.Require().NoError(err)

	_, err = s.service.ClaimRevenue(ctx, s.instrumentID, 0)
	s.Require().NoError(err)

	_, err = s.service.ClaimRevenue(ctx, s.instrumentID, 0)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestDistribute_RequiresDistributor() {
	_, ctx := s.newInvestor(51)
	_, err := s.service.Invest(ctx, s.instrumentID, 51)
	s.Require().NoError(err)

	_, err = s.service.Distribute(ctx, s.instrumentID, 10_000, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePermissionDenied))
}

func (s *ServiceSuite) TestDistribute_BeforeFirstSale() {
	s.assets.Mint(s.owner, 100)
	_, err := s.service.Distribute(s.ctxFor(s.owner), s.instrumentID, 10_000, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ServiceSuite) TestDistribute_ProRatedToZero() {
	_, ctx := s.newInvestor(51)
	_, err := s.service.Invest(ctx, s.instrumentID, 51)
	s.Require().NoError(err)

	// 100 * 1 / 2000 floors to zero; the distribution is rejected rather
	// than recorded unfunded.
	s.assets.Mint(s.owner, 100)
	_, err = s.service.Distribute(s.ctxFor(s.owner), s.instrumentID, 100, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	list, err := s.service.ListDistributions(ctx, s.instrumentID)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *ServiceSuite) TestPause_BlocksInvestAndTransfer() {
	a, ctxA := s.newInvestor(153)
	b, _ := s.newInvestor(0)
	_, err := s.service.Invest(ctxA, s.instrumentID, 102)
	s.Require().NoError(err)

	ownerCtx := s.ctxFor(s.owner)
	s.Require().NoError(s.service.Pause(ownerCtx, s.instrumentID))

	_, err = s.service.Invest(ctxA, s.instrumentID, 51)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	err = s.service.Transfer(ctxA, s.instrumentID, b, 1)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	// Unpause is exempt from the paused check and restores both paths.
	s.Require().NoError(s.service.Unpause(ownerCtx, s.instrumentID))
	_, err = s.service.Invest(ctxA, s.instrumentID, 51)
	s.Require().NoError(err)
	s.Require().NoError(s.service.Transfer(ctxA, s.instrumentID, b, 1))

	units, err := s.service.BalanceOf(ctxA, s.instrumentID, a)
	s.Require().NoError(err)
	s.Equal(uint64(2), units)
}

func (s *ServiceSuite) TestPause_RequiresAdmin() {
	_, ctx := s.newInvestor(0)
	err := s.service.Pause(ctx, s.instrumentID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePermissionDenied))
}

func (s *ServiceSuite) TestTransfer_RecipientMustBeCompliant() {
	_, ctxA := s.newInvestor(102)
	_, err := s.service.Invest(ctxA, s.instrumentID, 102)
	s.Require().NoError(err)

	err = s.service.Transfer(ctxA, s.instrumentID, id.AccountID(uuid.New()), 1)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePermissionDenied))
}

func (s *ServiceSuite) TestAcceptTerms_SetOnce() {
	_, ctx := s.newInvestor(0)
	err := s.service.AcceptTerms(ctx, s.instrumentID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestSetActive_GatesInvestment() {
	_, ctx := s.newInvestor(102)
	ownerCtx := s.ctxFor(s.owner)

	s.Require().NoError(s.service.SetActive(ownerCtx, s.instrumentID, false))
	_, err := s.service.Invest(ctx, s.instrumentID, 102)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	s.Require().NoError(s.service.SetActive(ownerCtx, s.instrumentID, true))
	_, err = s.service.Invest(ctx, s.instrumentID, 102)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestUpdateInfo() {
	ownerCtx := s.ctxFor(s.owner)
	s.Require().NoError(s.service.UpdateInfo(ownerCtx, s.instrumentID, "Warehouse 7 East", "", "renovated"))

	summary, err := s.service.GetSummary(ownerCtx, s.instrumentID)
	s.Require().NoError(err)
	s.Equal("Warehouse 7 East", summary.Name)
	s.Equal("WH7", summary.Symbol)
	s.Equal("renovated", summary.Info)
}

func (s *ServiceSuite) TestWithdraw_ProceedsOnlyNotEscrow() {
	_, ctx := s.newInvestor(102)
	_, err := s.service.Invest(ctx, s.instrumentID, 102)
	s.Require().NoError(err)

	s.assets.Mint(s.owner, 10)
	ownerCtx := s.ctxFor(s.owner)
	_, err = s.service.Distribute(ownerCtx, s.instrumentID, 10_000, "")
	s.Require().NoError(err)

	// Custody holds 100 proceeds + 10 escrow; only proceeds may leave.
	payout := id.AccountID(uuid.New())
	err = s.service.WithdrawPayment(ownerCtx, s.instrumentID, payout, 101)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	s.Require().NoError(s.service.WithdrawPayment(ownerCtx, s.instrumentID, payout, 100))
	s.Equal(uint64(100), s.balance(payout))
	s.Equal(uint64(10), s.balance(s.custody))
}

func (s *ServiceSuite) TestListInvestors_DistinctAndOrdered() {
	a, ctxA := s.newInvestor(153)
	b, ctxB := s.newInvestor(51)
	_, err := s.service.Invest(ctxA, s.instrumentID, 51)
	s.Require().NoError(err)
	_, err = s.service.Invest(ctxB, s.instrumentID, 51)
	s.Require().NoError(err)
	_, err = s.service.Invest(ctxA, s.instrumentID, 51)
	s.Require().NoError(err)

	investors, err := s.service.ListInvestors(ctxA, s.instrumentID)
	s.Require().NoError(err)
	s.Equal([]id.AccountID{a, b}, investors)
}

// Rollback tests drive the asset ledger through a mock so individual transfer
// legs can be rejected.

func TestInvest_FeeLegFailureRollsBackEverything(t *testing.T) {
	ctrl := gomock.NewController(t)
	assets := ledgermock.NewMockLedger(ctrl)
	st := store.NewInMemory()
	svc := New(st, assets)

	owner := id.AccountID(uuid.New())
	instrumentID := id.InstrumentID(uuid.New())
	in, err := models.New(instrumentID, owner, id.AccountID(uuid.New()), "Asset", "A", "",
		models.Params{UnitPrice: 50, MaxSupply: 2000, FeeBps: 200}, fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Create(context.Background(), in); err != nil {
		t.Fatal(err)
	}

	investor := id.AccountID(uuid.New())
	ctx := requestcontext.WithCallerID(context.Background(), investor)
	if err := svc.AcceptTerms(ctx, instrumentID); err != nil {
		t.Fatal(err)
	}

	// Net leg succeeds, fee leg is rejected, net is refunded.
	assets.EXPECT().Transfer(gomock.Any(), investor, in.Custody, uint64(100)).Return(nil)
	assets.EXPECT().Transfer(gomock.Any(), investor, in.FeeRecipient, uint64(2)).
		Return(dErrors.New(dErrors.CodeExternalFailure, "asset transfer rejected"))
	assets.EXPECT().Transfer(gomock.Any(), in.Custody, investor, uint64(100)).Return(nil)

	_, err = svc.Invest(ctx, instrumentID, 102)
	if !dErrors.HasCode(err, dErrors.CodeExternalFailure) {
		t.Fatalf("expected external failure, got %v", err)
	}

	units, err := svc.BalanceOf(ctx, instrumentID, investor)
	if err != nil {
		t.Fatal(err)
	}
	if units != 0 {
		t.Fatalf("purchase not rolled back: %d units", units)
	}
	summary, err := svc.GetSummary(ctx, instrumentID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.SoldUnits != 0 {
		t.Fatalf("pool not restored: %d sold", summary.SoldUnits)
	}
}

func TestClaim_TransferFailureLeavesClaimOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	assets := ledgermock.NewMockLedger(ctrl)
	st := store.NewInMemory()
	svc := New(st, assets)

	owner := id.AccountID(uuid.New())
	instrumentID := id.InstrumentID(uuid.New())
	in, err := models.New(instrumentID, owner, owner, "Asset", "A", "",
		models.Params{UnitPrice: 50, MaxSupply: 2000}, fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Create(context.Background(), in); err != nil {
		t.Fatal(err)
	}

	investor := id.AccountID(uuid.New())
	ctx := requestcontext.WithCallerID(context.Background(), investor)
	if err := svc.AcceptTerms(ctx, instrumentID); err != nil {
		t.Fatal(err)
	}
	assets.EXPECT().Transfer(gomock.Any(), investor, in.Custody, uint64(50)).Return(nil)
	if _, err := svc.Invest(ctx, instrumentID, 50); err != nil {
		t.Fatal(err)
	}

	ownerCtx := requestcontext.WithCallerID(context.Background(), owner)
	assets.EXPECT().Transfer(gomock.Any(), owner, in.Custody, uint64(10)).Return(nil)
	if _, err := svc.Distribute(ownerCtx, instrumentID, 20_000, ""); err != nil {
		t.Fatal(err)
	}

	// First payout attempt is rejected; the claimed flag must roll back.
	assets.EXPECT().Transfer(gomock.Any(), in.Custody, investor, uint64(10)).
		Return(dErrors.New(dErrors.CodeExternalFailure, "asset transfer rejected"))
	_, err = svc.ClaimRevenue(ctx, instrumentID, 0)
	if !dErrors.HasCode(err, dErrors.CodeExternalFailure) {
		t.Fatalf("expected external failure, got %v", err)
	}
	pending, err := svc.PendingRevenue(ctx, instrumentID, investor, 0)
	if err != nil {
		t.Fatal(err)
	}
	if pending != 10 {
		t.Fatalf("claim not reopened: pending %d", pending)
	}

	// Retry succeeds exactly once.
	assets.EXPECT().Transfer(gomock.Any(), in.Custody, investor, uint64(10)).Return(nil)
	share, err := svc.ClaimRevenue(ctx, instrumentID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if share != 10 {
		t.Fatalf("unexpected share %d", share)
	}
	if _, err := svc.ClaimRevenue(ctx, instrumentID, 0); !dErrors.HasCode(err, dErrors.CodeConflict) {
		t.Fatalf("expected conflict on second claim, got %v", err)
	}
}
