// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dao_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/coffer/dao"
)

func TestSkipTwoPeriods(t *testing.T) {
	env := newTestEnv(t, dao.QuorumBasisActive)
	env.addMember(t, mallory)
	ctx := context.Background()
	env.clock.Advance(2*periodLen + tenSeconds)

	_, err := env.dao.ProposeSpending(ctx, "x", 1, founder, mallory)
	requireCode(t, err, dao.ErrCallerNotActiveMember)
	assert.Equal(t, dao.KindAuthorization, dao.KindOf(err))

	due, periods, err := env.dao.FeeDue(mallory)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), periods)
	assert.Equal(t, 2*periodFee, due)

	requireCode(t, env.dao.PayPeriodFee(ctx, mallory, periodFee), dao.ErrWrongFeeAmount)
	require.NoError(t, env.dao.PayPeriodFee(ctx, mallory, 2*periodFee))
	assert.True(t, env.dao.IsActive(mallory))
	m, _ := env.dao.Member(mallory)
	assert.Equal(t, genesisTime.Add(3*periodLen), m.PeriodPaidUntil)
	assert.Equal(t, genesisTime.Add(3*periodLen), env.dao.NextPeriodStart())

	_, err = env.dao.ProposeSpending(ctx, "x", 1, founder, mallory)
	require.NoError(t, err)
	assert.Equal(t, 2*oneEth+2*periodFee, env.dao.Balance())
}

func TestPayPeriodFeeAlreadyPaid(t *testing.T) {
	env := newTestEnv(t, dao.QuorumBasisActive)
	ctx := context.Background()
	err := env.dao.PayPeriodFee(ctx, founder, periodFee)
	requireCode(t, err, dao.ErrAlreadyPaid)
	assert.Equal(t, dao.KindStateConflict, dao.KindOf(err))
	due, periods, err := env.dao.FeeDue(founder)
	require.NoError(t, err)
	assert.Zero(t, due)
	assert.Zero(t, periods)
}

func TestPayPeriodFeeNotMember(t *testing.T) {
	env := newTestEnv(t, dao.QuorumBasisActive)
	requireCode(
		t,
		env.dao.PayPeriodFee(context.Background(), mallory, periodFee),
		dao.ErrCallerNotMember,
	)
	_, _, err := env.dao.FeeDue(mallory)
	requireCode(t, err, dao.ErrCallerNotMember)
}

func TestPayPeriodFeeAtBoundary(t *testing.T) {
	env := newTestEnv(t, dao.QuorumBasisActive)
	ctx := context.Background()
	// Dues paid through the boundary still count as active at the boundary
	env.clock.Advance(periodLen)
	assert.True(t, env.dao.IsActive(founder))
	assert.Equal(t, genesisTime.Add(2*periodLen), env.dao.NextPeriodStart())
	require.NoError(t, env.dao.PayPeriodFee(ctx, founder, periodFee))
	requireCode(t, env.dao.PayPeriodFee(ctx, founder, periodFee), dao.ErrAlreadyPaid)
	env.clock.Advance(time.Second)
	assert.True(t, env.dao.IsActive(founder))
}

func TestPeriodFeeCredited(t *testing.T) {
	env := newTestEnv(t, dao.QuorumBasisActive)
	ctx := context.Background()
	env.clock.Advance(periodLen + tenSeconds)
	assert.False(t, env.dao.IsActive(founder))
	require.NoError(t, env.dao.PayPeriodFee(ctx, founder, periodFee))
	assert.Equal(t, oneEth+periodFee, env.dao.Balance())
	assert.Equal(t, 10*oneEth-oneEth-periodFee, env.ledger.AccountBalance(founder))
	m, _ := env.dao.Member(founder)
	assert.Equal(t, oneEth, m.Points, "dues do not earn points")
	assert.Contains(t, env.eventTypes(), dao.EventPeriodFeePaid)
	require.NoError(t, env.dao.CheckSolvency(ctx))
}

func TestJoinAfterMissedPeriods(t *testing.T) {
	env := newTestEnv(t, dao.QuorumBasisActive)
	ctx := context.Background()
	env.clock.Advance(5*periodLen + tenSeconds)
	// Approval needs an active member
	require.NoError(t, env.dao.RequestToJoin(ctx, mallory, oneEth))
	requireCode(t, env.dao.ApproveJoinRequest(ctx, mallory, founder), dao.ErrCallerNotActiveMember)
	require.NoError(t, env.dao.PayPeriodFee(ctx, founder, 5*periodFee))
	require.NoError(t, env.dao.ApproveJoinRequest(ctx, mallory, founder))
	require.NoError(t, env.dao.Join(ctx, mallory, oneEth))
	m, _ := env.dao.Member(mallory)
	assert.Equal(t, genesisTime.Add(6*periodLen), m.PeriodPaidUntil)
	assert.True(t, env.dao.IsActive(mallory))
}

func TestNextPeriodStartAt(t *testing.T) {
	env := newTestEnv(t, dao.QuorumBasisActive)
	tests := []struct {
		offset time.Duration
		want   time.Duration
	}{
		{0, periodLen},
		{periodLen - time.Second, periodLen},
		{periodLen, 2 * periodLen},
		{periodLen + time.Second, 2 * periodLen},
		{10*periodLen + time.Hour, 11 * periodLen},
	}
	for _, tc := range tests {
		got := env.dao.NextPeriodStartAt(genesisTime.Add(tc.offset))
		assert.Equal(t, genesisTime.Add(tc.want), got, "offset %s", tc.offset)
		assert.True(t, got.After(genesisTime.Add(tc.offset)))
	}
}
