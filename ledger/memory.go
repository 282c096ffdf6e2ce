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

package ledger

import (
	"context"
	"fmt"
	"maps"
	"math/bits"
	"sync"
)

// Snapshot is a point-in-time copy of a MemoryLedger
type Snapshot struct {
	Accounts map[Identity]uint64
	Pool     uint64
}

// MemoryLedger keeps account and pool balances in memory. Its state can be
// captured with Snapshot and persisted by the database layer.
type MemoryLedger struct {
	mu       sync.RWMutex
	accounts map[Identity]uint64
	pool     uint64
}

var _ Ledger = (*MemoryLedger)(nil)

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		accounts: make(map[Identity]uint64),
	}
}

func (l *MemoryLedger) Receive(
	ctx context.Context,
	from Identity,
	amount uint64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if from == "" {
		return ErrInvalidIdentity
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.accounts[from]
	if bal < amount {
		return fmt.Errorf(
			"%w: account %s holds %d, needs %d",
			ErrInsufficientBalance,
			from,
			bal,
			amount,
		)
	}
	newPool, carry := bits.Add64(l.pool, amount, 0)
	if carry != 0 {
		return ErrBalanceOverflow
	}
	l.accounts[from] = bal - amount
	l.pool = newPool
	return nil
}

func (l *MemoryLedger) Transfer(
	ctx context.Context,
	to Identity,
	amount uint64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to == "" {
		return ErrInvalidIdentity
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pool < amount {
		return fmt.Errorf(
			"%w: pool holds %d, needs %d",
			ErrInsufficientPool,
			l.pool,
			amount,
		)
	}
	newBal, carry := bits.Add64(l.accounts[to], amount, 0)
	if carry != 0 {
		return ErrBalanceOverflow
	}
	l.pool -= amount
	l.accounts[to] = newBal
	return nil
}

func (l *MemoryLedger) Balance(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pool, nil
}

// Credit mints amount into the account of id. It stands in for an external
// wallet top-up.
func (l *MemoryLedger) Credit(id Identity, amount uint64) error {
	if id == "" {
		return ErrInvalidIdentity
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	newBal, carry := bits.Add64(l.accounts[id], amount, 0)
	if carry != 0 {
		return ErrBalanceOverflow
	}
	l.accounts[id] = newBal
	return nil
}

// AccountBalance returns the balance held by id outside the pool
func (l *MemoryLedger) AccountBalance(id Identity) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts[id]
}

func (l *MemoryLedger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		Accounts: maps.Clone(l.accounts),
		Pool:     l.pool,
	}
}

// Restore replaces all balances with those in s
func (l *MemoryLedger) Restore(s Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts = make(map[Identity]uint64, len(s.Accounts))
	maps.Copy(l.accounts, s.Accounts)
	l.pool = s.Pool
}
