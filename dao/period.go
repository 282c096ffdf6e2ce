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
	"time"
)

// PayPeriodFee settles every period id has missed. amount must equal the
// period fee times the number of missed periods.
func (d *DAO) PayPeriodFee(ctx context.Context, id Identity, amount uint64) error {
	return d.run(ctx, "pay_period_fee", func(ctx context.Context, now time.Time) error {
		m, ok := d.members[id]
		if !ok {
			return ErrCallerNotMember.withf("%s is not a member", id)
		}
		nps := d.nextPeriodStartAt(now)
		if !m.PeriodPaidUntil.Before(nps) {
			return ErrAlreadyPaid.withf(
				"paid until %s",
				m.PeriodPaidUntil.UTC().Format(time.RFC3339),
			)
		}
		missed := missedPeriods(m.PeriodPaidUntil, nps, d.params.PeriodLength)
		due, err := mulAmount(d.params.PeriodFee, missed)
		if err != nil {
			return err
		}
		if amount != due {
			return ErrWrongFeeAmount.withf(
				"paid %d, %d due for %d periods",
				amount,
				due,
				missed,
			)
		}
		newBalance, err := addAmount(d.balance, amount)
		if err != nil {
			return err
		}
		if err := d.config.Ledger.Receive(ctx, id, amount); err != nil {
			return ErrTransferFailed.wrap(err)
		}
		d.nextPeriodStart = nps
		m.PeriodPaidUntil = nps
		d.balance = newBalance
		d.emit(EventPeriodFeePaid, now, PeriodFeePaidEvent{
			Identity:  id,
			Amount:    amount,
			Periods:   missed,
			PaidUntil: nps,
		})
		return nil
	})
}

// FeeDue returns the amount id must pay to settle dues now and the number
// of periods it covers. A zero amount means nothing is due.
func (d *DAO) FeeDue(id Identity) (uint64, uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.members[id]
	if !ok {
		return 0, 0, ErrCallerNotMember.withf("%s is not a member", id)
	}
	nps := d.nextPeriodStartAt(d.now())
	if !m.PeriodPaidUntil.Before(nps) {
		return 0, 0, nil
	}
	missed := missedPeriods(m.PeriodPaidUntil, nps, d.params.PeriodLength)
	due, err := mulAmount(d.params.PeriodFee, missed)
	if err != nil {
		return 0, 0, err
	}
	return due, missed, nil
}

// NextPeriodStart returns the start of the next dues period
func (d *DAO) NextPeriodStart() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nextPeriodStartAt(d.now())
}

// NextPeriodStartAt returns the first period boundary strictly after t.
// It lets a ledger.PeriodClock follow the DAO's schedule.
func (d *DAO) NextPeriodStartAt(t time.Time) time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nextPeriodStartAt(t)
}

func (d *DAO) GenesisTime() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.genesisTime
}
