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

package dao

import (
	"context"
	"fmt"
)

// reserved is the sum of all outstanding earmarks
func (d *DAO) reserved() uint64 {
	var total uint64
	for _, amount := range d.earmarks {
		total += amount
	}
	return total
}

// available is the pool balance not earmarked for a reserved proposal
func (d *DAO) available() uint64 {
	r := d.reserved()
	if r > d.balance {
		return 0
	}
	return d.balance - r
}

// AvailableFunds returns the spendable pool balance
func (d *DAO) AvailableFunds() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.available()
}

// ReservedFunds returns the amount earmarked for reserved, not yet
// withdrawn proposals
func (d *DAO) ReservedFunds() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reserved()
}

// Balance returns the pool balance as tracked by the DAO
func (d *DAO) Balance() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.balance
}

// CheckSolvency verifies that earmarks are covered by the tracked balance
// and that the ledger pool holds at least that balance
func (d *DAO) CheckSolvency(ctx context.Context) error {
	d.mu.Lock()
	balance := d.balance
	reserved := d.reserved()
	d.mu.Unlock()
	if reserved > balance {
		return fmt.Errorf(
			"reserved funds %d exceed balance %d",
			reserved,
			balance,
		)
	}
	poolBalance, err := d.config.Ledger.Balance(ctx)
	if err != nil {
		return fmt.Errorf("query ledger balance: %w", err)
	}
	if poolBalance < balance {
		return fmt.Errorf(
			"ledger pool holds %d, treasury expects %d",
			poolBalance,
			balance,
		)
	}
	return nil
}
