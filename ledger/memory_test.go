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

package ledger_test

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/coffer/ledger"
)

func TestMemoryLedgerReceiveTransfer(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemoryLedger()
	require.NoError(t, l.Credit("alice", 100))

	require.NoError(t, l.Receive(ctx, "alice", 60))
	assert.Equal(t, uint64(40), l.AccountBalance("alice"))
	pool, err := l.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), pool)

	err = l.Receive(ctx, "alice", 41)
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.Equal(t, uint64(40), l.AccountBalance("alice"))

	require.NoError(t, l.Transfer(ctx, "bob", 25))
	assert.Equal(t, uint64(25), l.AccountBalance("bob"))
	err = l.Transfer(ctx, "bob", 36)
	require.ErrorIs(t, err, ledger.ErrInsufficientPool)
	pool, err = l.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(35), pool)
}

func TestMemoryLedgerRejects(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemoryLedger()
	require.ErrorIs(t, l.Credit("", 1), ledger.ErrInvalidIdentity)
	require.ErrorIs(t, l.Receive(ctx, "", 0), ledger.ErrInvalidIdentity)
	require.ErrorIs(t, l.Transfer(ctx, "", 0), ledger.ErrInvalidIdentity)
	require.NoError(t, l.Credit("alice", math.MaxUint64))
	require.ErrorIs(t, l.Credit("alice", 1), ledger.ErrBalanceOverflow)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, l.Receive(cancelled, "alice", 1), context.Canceled)
	require.ErrorIs(t, l.Transfer(cancelled, "alice", 0), context.Canceled)
	_, err := l.Balance(cancelled)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMemoryLedgerSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemoryLedger()
	require.NoError(t, l.Credit("alice", 10))
	require.NoError(t, l.Receive(ctx, "alice", 4))
	snap := l.Snapshot()
	assert.Equal(t, ledger.Snapshot{
		Accounts: map[ledger.Identity]uint64{"alice": 6},
		Pool:     4,
	}, snap)

	require.NoError(t, l.Transfer(ctx, "bob", 4))
	l.Restore(snap)
	assert.Equal(t, uint64(6), l.AccountBalance("alice"))
	assert.Zero(t, l.AccountBalance("bob"))

	// Mutating the snapshot does not leak into the ledger
	snap.Accounts["alice"] = 0
	assert.Equal(t, uint64(6), l.AccountBalance("alice"))
}

func TestMemoryLedgerConcurrent(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemoryLedger()
	require.NoError(t, l.Credit("alice", 1000))
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				assert.NoError(t, l.Receive(ctx, "alice", 1))
				assert.NoError(t, l.Transfer(ctx, "bob", 1))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(900), l.AccountBalance("alice"))
	assert.Equal(t, uint64(100), l.AccountBalance("bob"))
}
