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

// Package ledger defines the value-transfer and time collaborators used by
// the treasury, along with in-process reference implementations.
package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInsufficientBalance = errors.New("insufficient account balance")
	ErrInsufficientPool    = errors.New("insufficient pool balance")
	ErrInvalidIdentity     = errors.New("invalid identity")
	ErrBalanceOverflow     = errors.New("balance overflow")
)

// Identity is an opaque, authenticated account address
type Identity string

func (i Identity) String() string {
	return string(i)
}

// Ledger moves value between member accounts and the shared treasury pool.
// Every move is atomic: it either completes fully or leaves all balances
// untouched.
type Ledger interface {
	// Receive moves amount from the account of from into the pool
	Receive(ctx context.Context, from Identity, amount uint64) error
	// Transfer moves amount from the pool to the account of to
	Transfer(ctx context.Context, to Identity, amount uint64) error
	// Balance returns the current pool balance
	Balance(ctx context.Context) (uint64, error)
}

// Clock supplies the current time with second resolution
type Clock interface {
	Now() time.Time
}
