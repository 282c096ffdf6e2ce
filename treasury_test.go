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

package coffer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blinklabs-io/coffer"
	"github.com/blinklabs-io/coffer/dao"
	"github.com/blinklabs-io/coffer/database"
	"github.com/blinklabs-io/coffer/event"
	"github.com/blinklabs-io/coffer/ledger"
)

const (
	oneEth  uint64 = 1_000_000_000_000_000_000
	founder        = dao.Identity("creator")
	mallory        = dao.Identity("mallory")
)

var genesisTime = time.Unix(1_700_000_000, 0)

func genesis() dao.Genesis {
	return dao.Genesis{
		Founder: founder,
		Deposit: oneEth,
		Params:  dao.DefaultParams(),
	}
}

func openTreasury(t *testing.T, opts ...coffer.ConfigOptionFunc) *coffer.Treasury {
	t.Helper()
	tr, err := coffer.New(coffer.NewConfig(opts...))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

// deployed returns a dev mode treasury where the founder and mallory hold
// 10 eth each and the founder has deployed with a 1 eth deposit
func deployed(t *testing.T, opts ...coffer.ConfigOptionFunc) *coffer.Treasury {
	t.Helper()
	opts = append(
		[]coffer.ConfigOptionFunc{
			coffer.WithDevMode(true),
			coffer.WithClock(ledger.NewManualClock(genesisTime)),
		},
		opts...,
	)
	tr := openTreasury(t, opts...)
	ctx := context.Background()
	require.NoError(t, tr.Credit(ctx, founder, 10*oneEth))
	require.NoError(t, tr.Credit(ctx, mallory, 10*oneEth))
	require.NoError(t, tr.Deploy(ctx, genesis()))
	return tr
}

func TestNotDeployed(t *testing.T) {
	tr := openTreasury(t)
	assert.False(t, tr.Deployed())
	assert.Nil(t, tr.DAO())
	err := tr.Exec(context.Background(), func(context.Context, *dao.DAO) error {
		return nil
	})
	require.ErrorIs(t, err, coffer.ErrNotDeployed)
	entries, err := tr.Journal(0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeploy(t *testing.T) {
	tr := deployed(t)
	require.True(t, tr.Deployed())
	d := tr.DAO()
	assert.Equal(t, oneEth, d.Balance())
	assert.Equal(t, uint64(1), d.MemberCount())
	assert.Equal(t, 9*oneEth, tr.AccountBalance(founder))
	assert.Equal(t, genesisTime, d.GenesisTime())
	assert.Equal(t, dao.QuorumBasisActive, tr.QuorumBasis())

	require.ErrorIs(t, tr.Deploy(context.Background(), genesis()), coffer.ErrAlreadyDeployed)

	entries, err := tr.Journal(0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, dao.EventDeployed, entries[0].Type)
	assert.Equal(t, uint64(1), entries[0].Seq)
}

func TestDeployRejected(t *testing.T) {
	tr := openTreasury(t)
	ctx := context.Background()
	require.NoError(t, tr.Credit(ctx, founder, oneEth/2))
	err := tr.Deploy(ctx, genesis())
	require.Error(t, err)
	assert.False(t, tr.Deployed())
	assert.Equal(t, oneEth/2, tr.AccountBalance(founder))
	entries, err := tr.Journal(0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExecPersists(t *testing.T) {
	dataDir := t.TempDir()
	clock := ledger.NewManualClock(genesisTime)
	tr := deployed(t, coffer.WithDatabasePath(dataDir), coffer.WithClock(clock))
	ctx := context.Background()
	require.NoError(t, tr.Exec(ctx, func(ctx context.Context, d *dao.DAO) error {
		return d.RequestToJoin(ctx, mallory, oneEth)
	}))
	require.NoError(t, tr.Exec(ctx, func(ctx context.Context, d *dao.DAO) error {
		return d.ApproveJoinRequest(ctx, mallory, founder)
	}))
	require.NoError(t, tr.Exec(ctx, func(ctx context.Context, d *dao.DAO) error {
		return d.Join(ctx, mallory, oneEth)
	}))
	now, err := tr.AdvanceClock(time.Hour)
	require.NoError(t, err)
	want := tr.DAO().Snapshot()
	require.NoError(t, tr.Close())

	tr = openTreasury(t, coffer.WithDatabasePath(dataDir), coffer.WithDevMode(true))
	require.True(t, tr.Deployed())
	assert.Equal(t, want, tr.DAO().Snapshot())
	assert.Equal(t, 9*oneEth, tr.AccountBalance(mallory))
	assert.Equal(t, now, tr.Now())
	assert.True(t, tr.DAO().IsActive(mallory))

	entries, err := tr.Journal(0, 0)
	require.NoError(t, err)
	types := make([]event.EventType, 0, len(entries))
	for _, entry := range entries {
		types = append(types, entry.Type)
	}
	assert.Equal(
		t,
		[]event.EventType{
			dao.EventDeployed,
			dao.EventJoinRequested,
			dao.EventJoinApproved,
			dao.EventMemberJoined,
		},
		types,
	)
}

func TestExecRollsBackOnError(t *testing.T) {
	tr := deployed(t)
	ctx := context.Background()
	before := tr.DAO().Snapshot()
	errBoom := errors.New("boom")
	err := tr.Exec(ctx, func(ctx context.Context, d *dao.DAO) error {
		if err := d.Fund(ctx, founder, oneEth); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, before, tr.DAO().Snapshot())
	assert.Equal(t, 9*oneEth, tr.AccountBalance(founder))
	entries, err := tr.Journal(0, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// Domain errors pass through unchanged
	err = tr.Exec(ctx, func(ctx context.Context, d *dao.DAO) error {
		return d.Fund(ctx, mallory, oneEth)
	})
	require.ErrorIs(t, err, dao.ErrCallerNotMember)
	assert.Equal(t, dao.KindAuthorization, dao.KindOf(err))
}

func TestExecRollsBackOnSaveFailure(t *testing.T) {
	tr := deployed(t)
	ctx := context.Background()
	before := tr.DAO().Snapshot()
	err := tr.Exec(ctx, func(ctx context.Context, d *dao.DAO) error {
		if err := d.Fund(ctx, founder, oneEth); err != nil {
			return err
		}
		// Channels cannot be encoded into the journal
		tr.EventBus().Publish(
			dao.EventFunded,
			event.NewEvent(dao.EventFunded, make(chan int)),
		)
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, before, tr.DAO().Snapshot())
	assert.Equal(t, 9*oneEth, tr.AccountBalance(founder))
	assert.Equal(t, oneEth, tr.DAO().Balance())

	// The treasury keeps working afterwards
	require.NoError(t, tr.Exec(ctx, func(ctx context.Context, d *dao.DAO) error {
		return d.Fund(ctx, founder, oneEth)
	}))
	entries, err := tr.Journal(0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, dao.EventFunded, entries[1].Type)
	assert.Equal(t, uint64(2), entries[1].Seq)
}

func TestExecRejectsUncoveredBalance(t *testing.T) {
	pool := ledger.NewMemoryLedger()
	tr := deployed(t, coffer.WithLedger(pool))
	ctx := context.Background()
	// The pool is shared, so it can be drained behind the treasury's back
	require.NoError(t, pool.Transfer(ctx, "outsider", oneEth))

	err := tr.Exec(ctx, func(ctx context.Context, d *dao.DAO) error {
		return d.Fund(ctx, founder, 1)
	})
	require.ErrorIs(t, err, coffer.ErrInsolvent)
	assert.Equal(t, oneEth, tr.DAO().Balance())
	assert.Equal(t, 9*oneEth, tr.AccountBalance(founder))
	entries, err := tr.Journal(0, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// Refilling the pool restores normal operation
	require.NoError(t, pool.Receive(ctx, "outsider", oneEth))
	require.NoError(t, tr.Exec(ctx, func(ctx context.Context, d *dao.DAO) error {
		return d.Fund(ctx, founder, 1)
	}))
	assert.Equal(t, oneEth+1, tr.DAO().Balance())
}

func TestOpenRejectsUncoveredBalance(t *testing.T) {
	dataDir := t.TempDir()
	tr := deployed(t, coffer.WithDatabasePath(dataDir))
	accounts := map[ledger.Identity]uint64{
		founder: tr.AccountBalance(founder),
		mallory: tr.AccountBalance(mallory),
	}
	require.NoError(t, tr.Close())

	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	require.NoError(t, db.SaveLedger(ledger.Snapshot{Accounts: accounts}, nil))
	require.NoError(t, db.Close())

	_, err = coffer.New(coffer.NewConfig(
		coffer.WithDatabasePath(dataDir),
		coffer.WithDevMode(true),
	))
	require.ErrorIs(t, err, coffer.ErrInsolvent)
}

func TestCreditBeforeDeploy(t *testing.T) {
	dataDir := t.TempDir()
	tr := openTreasury(t, coffer.WithDatabasePath(dataDir))
	require.NoError(t, tr.Credit(context.Background(), founder, 3*oneEth))
	require.NoError(t, tr.Close())

	tr = openTreasury(t, coffer.WithDatabasePath(dataDir))
	assert.False(t, tr.Deployed())
	assert.Equal(t, 3*oneEth, tr.AccountBalance(founder))
	require.NoError(t, tr.Deploy(context.Background(), genesis()))
	assert.Equal(t, 2*oneEth, tr.AccountBalance(founder))
}

func TestCreditOverflow(t *testing.T) {
	tr := openTreasury(t)
	ctx := context.Background()
	require.NoError(t, tr.Credit(ctx, founder, ^uint64(0)))
	require.Error(t, tr.Credit(ctx, founder, 1))
	assert.Equal(t, ^uint64(0), tr.AccountBalance(founder))
}

func TestAdvanceClock(t *testing.T) {
	tr := openTreasury(t)
	assert.False(t, tr.IsDevMode())
	_, err := tr.AdvanceClock(time.Hour)
	require.ErrorIs(t, err, coffer.ErrNotDevMode)

	tr = deployed(t)
	require.True(t, tr.IsDevMode())
	now, err := tr.AdvanceClock(1500 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, genesisTime.Add(time.Second), now)
	now, err = tr.AdvanceClock(-time.Hour)
	require.NoError(t, err)
	assert.Equal(t, genesisTime.Add(time.Second), now)

	_, err = tr.AdvanceClock(dao.DefaultPeriodLength)
	require.NoError(t, err)
	assert.False(t, tr.DAO().IsActive(founder))
}

func TestQuorumBasisKept(t *testing.T) {
	dataDir := t.TempDir()
	tr := deployed(
		t,
		coffer.WithDatabasePath(dataDir),
		coffer.WithQuorumBasis(dao.QuorumBasisAll),
	)
	require.NoError(t, tr.Close())

	tr = openTreasury(
		t,
		coffer.WithDatabasePath(dataDir),
		coffer.WithQuorumBasis(dao.QuorumBasisActive),
	)
	assert.Equal(t, dao.QuorumBasisAll, tr.QuorumBasis())
}

func TestInvalidQuorumBasis(t *testing.T) {
	_, err := coffer.New(coffer.NewConfig(coffer.WithQuorumBasis("most")))
	require.Error(t, err)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	tr := deployed(t, coffer.WithPrometheusRegistry(reg))
	require.NoError(t, tr.Exec(context.Background(), func(ctx context.Context, d *dao.DAO) error {
		return d.RequestToJoin(ctx, mallory, oneEth)
	}))
	count, err := testutil.GatherAndCount(reg, "coffer_dao_members", "coffer_dao_join_requests")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, mf := range families {
		if len(mf.GetMetric()) == 1 && mf.GetMetric()[0].GetGauge() != nil {
			values[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, float64(1), values["coffer_dao_members"])
	assert.Equal(t, float64(1), values["coffer_dao_join_requests"])
	assert.Equal(t, float64(oneEth), values["coffer_dao_balance"])
}

func TestClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	tr, err := coffer.New(coffer.NewConfig(coffer.WithDevMode(true)))
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	require.ErrorIs(t, tr.Deploy(context.Background(), genesis()), coffer.ErrClosed)
	require.ErrorIs(t, tr.Credit(context.Background(), founder, 1), coffer.ErrClosed)
}
