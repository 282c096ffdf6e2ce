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

// RequestToJoin opens a join request for id offering feeOffered
func (d *DAO) RequestToJoin(
	ctx context.Context,
	id Identity,
	feeOffered uint64,
) error {
	return d.run(ctx, "request_to_join", func(_ context.Context, now time.Time) error {
		if _, ok := d.members[id]; ok {
			return ErrAlreadyMember
		}
		if _, ok := d.joinRequests[id]; ok {
			return ErrDuplicateRequest
		}
		if feeOffered < d.params.BuyInFee {
			return ErrInsufficientBuyIn.withf(
				"offered %d, buy-in fee is %d",
				feeOffered,
				d.params.BuyInFee,
			)
		}
		d.joinRequests[id] = &JoinRequest{
			Identity:    id,
			FeeOffered:  feeOffered,
			RequestedAt: now,
		}
		d.emit(EventJoinRequested, now, JoinRequestedEvent{
			Identity:   id,
			FeeOffered: feeOffered,
		})
		return nil
	})
}

// ApproveJoinRequest records approver's approval of the request from id
func (d *DAO) ApproveJoinRequest(
	ctx context.Context,
	id Identity,
	approver Identity,
) error {
	return d.run(ctx, "approve_join_request", func(_ context.Context, now time.Time) error {
		if err := d.requireActive(approver, now); err != nil {
			return err
		}
		req, ok := d.joinRequests[id]
		if !ok {
			return ErrNoSuchRequest.withf("no join request for %s", id)
		}
		if req.approvedBy(approver) {
			return ErrAlreadyApproved
		}
		req.Approvers = append(req.Approvers, approver)
		d.emit(EventJoinApproved, now, JoinApprovedEvent{
			Identity:  id,
			Approver:  approver,
			Approvals: len(req.Approvers),
		})
		return nil
	})
}

// Join converts an approved join request into membership, receiving
// paidAmount from id
func (d *DAO) Join(ctx context.Context, id Identity, paidAmount uint64) error {
	return d.run(ctx, "join", func(ctx context.Context, now time.Time) error {
		req, ok := d.joinRequests[id]
		if !ok {
			return ErrNoJoinRequest
		}
		eligible := d.eligibleVoters(now)
		approvals := uint64(len(req.Approvers))
		if !quorumMet(approvals, eligible, d.params.Quorum) {
			return ErrNotEnoughApprovals.withf(
				"%d approvals of %d eligible members, quorum is %d%%",
				approvals,
				eligible,
				d.params.Quorum,
			)
		}
		if paidAmount < d.params.BuyInFee {
			return ErrInsufficientBuyIn.withf(
				"paid %d, buy-in fee is %d",
				paidAmount,
				d.params.BuyInFee,
			)
		}
		newBalance, err := addAmount(d.balance, paidAmount)
		if err != nil {
			return err
		}
		if err := d.config.Ledger.Receive(ctx, id, paidAmount); err != nil {
			return ErrTransferFailed.wrap(err)
		}
		nps := d.nextPeriodStartAt(now)
		d.nextPeriodStart = nps
		d.members[id] = &Member{
			Identity:        id,
			Points:          paidAmount,
			PeriodPaidUntil: nps,
			JoinedAt:        now,
		}
		delete(d.joinRequests, id)
		d.balance = newBalance
		d.emit(EventMemberJoined, now, MemberJoinedEvent{
			Identity: id,
			Paid:     paidAmount,
		})
		return nil
	})
}

// Fund receives amount from an existing member and credits their points
func (d *DAO) Fund(ctx context.Context, id Identity, amount uint64) error {
	return d.run(ctx, "fund", func(ctx context.Context, now time.Time) error {
		m, ok := d.members[id]
		if !ok {
			return ErrCallerNotMember.withf("%s is not a member", id)
		}
		newPoints, err := addAmount(m.Points, amount)
		if err != nil {
			return err
		}
		newBalance, err := addAmount(d.balance, amount)
		if err != nil {
			return err
		}
		if err := d.config.Ledger.Receive(ctx, id, amount); err != nil {
			return ErrTransferFailed.wrap(err)
		}
		m.Points = newPoints
		d.balance = newBalance
		d.emit(EventFunded, now, FundedEvent{
			Identity: id,
			Amount:   amount,
		})
		return nil
	})
}

// IsActive reports whether id is a member whose dues are settled through
// the current time
func (d *DAO) IsActive(id Identity) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isActive(id, d.now())
}

// Member returns a copy of the member record for id
func (d *DAO) Member(id Identity) (Member, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.members[id]
	if !ok {
		return Member{}, false
	}
	return *m, true
}

// Members returns copies of all member records ordered by join time
func (d *DAO) Members() []Member {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sortedMembers()
}

// JoinRequest returns a copy of the pending join request for id
func (d *DAO) JoinRequest(id Identity) (JoinRequest, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	req, ok := d.joinRequests[id]
	if !ok {
		return JoinRequest{}, false
	}
	return *req.clone(), true
}

func (d *DAO) MemberCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return uint64(len(d.members))
}

func (d *DAO) ActiveMemberCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activeCount(d.now())
}
