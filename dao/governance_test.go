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

func newParams() dao.Params {
	p := testParams()
	p.Quorum = 66
	p.BuyInFee = 2 * oneEth
	p.VoteTime = 3 * 24 * time.Hour
	p.PeriodFee = periodFee / 2
	return p
}

func TestGovernanceUpdate(t *testing.T) {
	env := newTestEnv(t, dao.QuorumBasisActive)
	env.addMember(t, mallory)
	env.addMember(t, alice)
	ctx := context.Background()
	d := env.dao

	id, err := d.ProposeGovernanceUpdate(ctx, newParams(), founder)
	require.NoError(t, err)
	require.NoError(t, d.VoteGovProposal(ctx, id, dao.ChoiceYes, founder))
	require.NoError(t, d.VoteGovProposal(ctx, id, dao.ChoiceYes, mallory))
	requireCode(t, d.VoteGovProposal(ctx, id, dao.ChoiceYes, mallory), dao.ErrAlreadyVoted)
	requireCode(t, d.ImplementGovProposal(ctx, id), dao.ErrVotingNotOver)

	passed, err := d.GovProposalPassed(id)
	require.NoError(t, err)
	assert.False(t, passed)

	env.clock.Advance(voteTime + tenSeconds)
	requireCode(t, d.VoteGovProposal(ctx, id, dao.ChoiceNo, alice), dao.ErrVotingClosed)
	passed, err = d.GovProposalPassed(id)
	require.NoError(t, err)
	assert.True(t, passed)
	assert.Equal(t, testParams(), d.Params(), "params change only on implementation")

	require.NoError(t, d.ImplementGovProposal(ctx, id))
	assert.Equal(t, newParams(), d.Params())
	assert.Equal(t, uint64(2), d.ParamsVersion())
	requireCode(t, d.ImplementGovProposal(ctx, id), dao.ErrAlreadyImplemented)
	assert.Equal(t, uint64(2), d.ParamsVersion())

	p, err := d.GovernanceProposal(id)
	require.NoError(t, err)
	assert.True(t, p.Implemented)
	assert.True(t, p.Applied)
	assert.Equal(t, float64(2), gaugeValue(t, env.reg, "coffer_dao_params_version"))

	// New buy-in applies to later requests
	requireCode(t, d.RequestToJoin(ctx, bob, oneEth), dao.ErrInsufficientBuyIn)
	require.NoError(t, d.RequestToJoin(ctx, bob, 2*oneEth))
}

func TestGovernanceRejectedStillImplemented(t *testing.T) {
	env := newTestEnv(t, dao.QuorumBasisActive)
	env.addMember(t, mallory)
	ctx := context.Background()
	id, err := env.dao.ProposeGovernanceUpdate(ctx, newParams(), mallory)
	require.NoError(t, err)
	require.NoError(t, env.dao.VoteGovProposal(ctx, id, dao.ChoiceYes, mallory))
	require.NoError(t, env.dao.VoteGovProposal(ctx, id, dao.ChoiceNo, founder))
	env.clock.Advance(voteTime)

	outcome, err := env.dao.GovOutcome(id)
	require.NoError(t, err)
	assert.Equal(t, dao.OutcomeRejected, outcome)
	require.NoError(t, env.dao.ImplementGovProposal(ctx, id))
	assert.Equal(t, testParams(), env.dao.Params())
	assert.Equal(t, uint64(1), env.dao.ParamsVersion())
	p, err := env.dao.GovernanceProposal(id)
	require.NoError(t, err)
	assert.True(t, p.Implemented)
	assert.False(t, p.Applied)
	requireCode(t, env.dao.ImplementGovProposal(ctx, id), dao.ErrAlreadyImplemented)
}

func TestGovernanceRejects(t *testing.T) {
	env := newTestEnv(t, dao.QuorumBasisActive)
	ctx := context.Background()
	_, err := env.dao.ProposeGovernanceUpdate(ctx, newParams(), mallory)
	requireCode(t, err, dao.ErrCallerNotActiveMember)
	bad := newParams()
	bad.Quorum = 150
	_, err = env.dao.ProposeGovernanceUpdate(ctx, bad, founder)
	requireCode(t, err, dao.ErrInvalidParams)
	requireCode(t, env.dao.VoteGovProposal(ctx, 0, dao.ChoiceYes, founder), dao.ErrNoSuchProposal)
	requireCode(t, env.dao.ImplementGovProposal(ctx, 0), dao.ErrNoSuchProposal)
	_, err = env.dao.GovOutcome(3)
	requireCode(t, err, dao.ErrNoSuchProposal)
	assert.Zero(t, env.dao.GovernanceProposalCount())
}

func TestGovernanceOpenBallotsKeepTheirRules(t *testing.T) {
	env := newTestEnv(t, dao.QuorumBasisActive)
	env.addMember(t, mallory)
	env.addMember(t, alice)
	ctx := context.Background()
	d := env.dao
	opened := env.clock.Now()

	gov, err := d.ProposeGovernanceUpdate(ctx, newParams(), founder)
	require.NoError(t, err)
	for _, v := range []dao.Identity{founder, mallory} {
		require.NoError(t, d.VoteGovProposal(ctx, gov, dao.ChoiceYes, v))
	}
	env.clock.Advance(voteTime / 2)
	before, err := d.ProposeSpending(ctx, "before", 1, alice, founder)
	require.NoError(t, err)
	env.clock.Advance(voteTime / 2)
	require.NoError(t, d.ImplementGovProposal(ctx, gov))
	after, err := d.ProposeSpending(ctx, "after", 1, alice, founder)
	require.NoError(t, err)

	p, err := d.SpendingProposal(before)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), p.Initial.Quorum)
	assert.Equal(t, opened.Add(voteTime/2+voteTime), p.Initial.End)

	p, err = d.SpendingProposal(after)
	require.NoError(t, err)
	assert.Equal(t, uint64(66), p.Initial.Quorum)
	assert.Equal(t, env.clock.Now().Add(newParams().VoteTime), p.Initial.End)
	assert.Equal(t, uint64(3), p.Initial.Eligible)
}

func TestGovernanceReanchorsPeriod(t *testing.T) {
	env := newTestEnv(t, dao.QuorumBasisActive)
	ctx := context.Background()
	d := env.dao
	params := testParams()
	params.PeriodLength = 10 * 24 * time.Hour
	id, err := d.ProposeGovernanceUpdate(ctx, params, founder)
	require.NoError(t, err)
	require.NoError(t, d.VoteGovProposal(ctx, id, dao.ChoiceYes, founder))
	env.clock.Advance(voteTime)
	require.NoError(t, d.ImplementGovProposal(ctx, id))

	// The running period keeps its boundary, later ones use the new length
	assert.Equal(t, genesisTime.Add(periodLen), d.NextPeriodStart())
	boundary := genesisTime.Add(periodLen)
	assert.Equal(t, boundary.Add(params.PeriodLength), d.NextPeriodStartAt(boundary))
	assert.Equal(
		t,
		boundary.Add(3*params.PeriodLength),
		d.NextPeriodStartAt(boundary.Add(2*params.PeriodLength+time.Hour)),
	)
}
