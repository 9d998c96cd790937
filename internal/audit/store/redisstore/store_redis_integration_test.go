//go:build integration

package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rightsledger/internal/audit"
	"rightsledger/internal/audit/store/redisstore"
	platformredis "rightsledger/internal/platform/redis"
	id "rightsledger/pkg/domain"
	"rightsledger/pkg/testutil/containers"
)

type RedisSinkSuite struct {
	suite.Suite
	container *containers.RedisContainer
	store     *redisstore.Store
}

func TestRedisSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSinkSuite))
}

func (s *RedisSinkSuite) SetupSuite() {
	s.container = containers.NewRedisContainer(s.T())

	client, err := platformredis.New(s.container.URL)
	s.Require().NoError(err)
	s.store = redisstore.New(client)
}

func (s *RedisSinkSuite) SetupTest() {
	s.Require().NoError(s.container.FlushAll(context.Background()))
}

func (s *RedisSinkSuite) TestAppendAndList() {
	ctx := context.Background()
	instrumentID := id.InstrumentID(uuid.New())
	account := id.AccountID(uuid.New())

	events := []audit.Event{
		{Timestamp: time.Now().UTC(), Action: audit.ActionTermsAccepted, InstrumentID: instrumentID, Account: account, DistributionIndex: -1},
		{Timestamp: time.Now().UTC(), Action: audit.ActionInvested, InstrumentID: instrumentID, Account: account, Amount: 100, Units: 2, DistributionIndex: -1},
		{Timestamp: time.Now().UTC(), Action: audit.ActionRevenueClaimed, InstrumentID: instrumentID, Account: account, Amount: 5, DistributionIndex: 0},
	}
	for _, e := range events {
		s.Require().NoError(s.store.Append(ctx, e))
	}

	got, err := s.store.ListByInstrument(ctx, instrumentID.String())
	s.Require().NoError(err)
	s.Require().Len(got, 3)

	// Emission order is preserved.
	s.Equal(audit.ActionTermsAccepted, got[0].Action)
	s.Equal(audit.ActionInvested, got[1].Action)
	s.Equal(audit.ActionRevenueClaimed, got[2].Action)
	s.Equal(uint64(100), got[1].Amount)
	s.Equal(account, got[1].Account)
}

func (s *RedisSinkSuite) TestListUnknownInstrument() {
	got, err := s.store.ListByInstrument(context.Background(), uuid.NewString())
	s.Require().NoError(err)
	s.Empty(got)
}
