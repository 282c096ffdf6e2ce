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

const (
	BallotSpendingInitial = "spending_initial"
	BallotSpendingRelease = "spending_release"
	BallotGovernance      = "governance"
)

// ProposeSpending opens a spending proposal paying amount to recipient and
// returns its id
func (d *DAO) ProposeSpending(
	ctx context.Context,
	name string,
	amount uint64,
	recipient Identity,
	caller Identity,
) (uint64, error) {
	var id uint64
	err := d.run(ctx, "propose_spending", func(_ context.Context, now time.Time) error {
		if err := d.requireActive(caller, now); err != nil {
			return err
		}
		if _, ok := d.members[recipient]; !ok {
			return ErrNoSuchMember.withf("recipient %s is not a member", recipient)
		}
		if avail := d.available(); amount > avail {
			return ErrInsufficientFunds.withf(
				"requested %d, %d available",
				amount,
				avail,
			)
		}
		id = uint64(len(d.spending))
		d.spending = append(d.spending, &SpendingProposal{
			ID:        id,
			Name:      name,
			Amount:    amount,
			Recipient: recipient,
			Initial: newBallot(
				caller,
				now,
				d.params.VoteTime,
				d.eligibleVoters(now),
				d.params.Quorum,
			),
		})
		d.emit(EventSpendingProposed, now, SpendingProposedEvent{
			ID:        id,
			Name:      name,
			Amount:    amount,
			Recipient: recipient,
			Proposer:  caller,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// VoteSpendingProposal casts caller's vote in the initial round
func (d *DAO) VoteSpendingProposal(
	ctx context.Context,
	id uint64,
	choice Choice,
	caller Identity,
) error {
	return d.run(ctx, "vote_spending", func(_ context.Context, now time.Time) error {
		if err := d.requireActive(caller, now); err != nil {
			return err
		}
		p, err := d.spendingProposal(id)
		if err != nil {
			return err
		}
		return d.castVote(p.Initial, BallotSpendingInitial, id, caller, choice, now)
	})
}

// VoteReleaseFundsSpendingProposal casts caller's vote in the release
// round. The release ballot opens on the first such vote after the initial
// round has passed.
func (d *DAO) VoteReleaseFundsSpendingProposal(
	ctx context.Context,
	id uint64,
	choice Choice,
	caller Identity,
) error {
	return d.run(ctx, "vote_release", func(_ context.Context, now time.Time) error {
		if err := d.requireActive(caller, now); err != nil {
			return err
		}
		p, err := d.spendingProposal(id)
		if err != nil {
			return err
		}
		if outcome := p.Initial.Outcome(now); outcome != OutcomePassed {
			return ErrInitialVoteNotPassed.withf("initial %s", outcome.reason())
		}
		ballot := p.Release
		if ballot == nil {
			ballot = newBallot(
				caller,
				now,
				d.params.VoteTime,
				d.eligibleVoters(now),
				d.params.Quorum,
			)
		}
		if err := d.castVote(ballot, BallotSpendingRelease, id, caller, choice, now); err != nil {
			return err
		}
		p.Release = ballot
		return nil
	})
}

// InitialPassed applies the pass rule to the initial round
func (d *DAO) InitialPassed(id uint64) (bool, error) {
	outcome, err := d.InitialOutcome(id)
	return outcome == OutcomePassed, err
}

func (d *DAO) InitialOutcome(id uint64) (Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.spendingProposal(id)
	if err != nil {
		return OutcomePending, err
	}
	return p.Initial.Outcome(d.now()), nil
}

// ReleasePassed applies the pass rule to the release round
func (d *DAO) ReleasePassed(id uint64) (bool, error) {
	outcome, err := d.ReleaseOutcome(id)
	return outcome == OutcomePassed, err
}

// ReleaseOutcome distinguishes an undecided release round from one that
// failed on quorum or on majority
func (d *DAO) ReleaseOutcome(id uint64) (Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.spendingProposal(id)
	if err != nil {
		return OutcomePending, err
	}
	return releaseOutcome(p, d.now()), nil
}

// EnoughFundsForProposal reports whether the spendable pool covers the
// proposal amount
func (d *DAO) EnoughFundsForProposal(id uint64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.spendingProposal(id)
	if err != nil {
		return false, err
	}
	return d.available() >= p.Amount, nil
}

// ReserveFunds earmarks the proposal amount so that other proposals cannot
// spend it before the recipient withdraws
func (d *DAO) ReserveFunds(ctx context.Context, id uint64, caller Identity) error {
	return d.run(ctx, "reserve_funds", func(_ context.Context, now time.Time) error {
		p, err := d.spendingProposal(id)
		if err != nil {
			return err
		}
		if caller != p.Recipient {
			return ErrCallerNotRecipient
		}
		if p.FundsReserved {
			return ErrAlreadyReserved
		}
		if releaseOutcome(p, now) != OutcomePassed {
			return ErrReleaseNotPassed.withf("%s", releaseBlockedReason(p, now))
		}
		if p.Withdrawn {
			return ErrAlreadyWithdrawn
		}
		if avail := d.available(); avail < p.Amount {
			return ErrInsufficientFunds.withf(
				"reserving %d, %d available",
				p.Amount,
				avail,
			)
		}
		d.earmarks[id] = p.Amount
		p.FundsReserved = true
		d.emit(EventFundsReserved, now, FundsReservedEvent{
			ID:        id,
			Recipient: p.Recipient,
			Amount:    p.Amount,
		})
		return nil
	})
}

// Withdraw pays the proposal amount to its recipient exactly once
func (d *DAO) Withdraw(ctx context.Context, id uint64, caller Identity) error {
	return d.run(ctx, "withdraw", func(ctx context.Context, now time.Time) error {
		p, err := d.spendingProposal(id)
		if err != nil {
			return err
		}
		if caller != p.Recipient {
			return ErrCallerNotRecipient
		}
		if releaseOutcome(p, now) != OutcomePassed {
			return ErrReleaseNotPassed.withf("%s", releaseBlockedReason(p, now))
		}
		if p.Withdrawn {
			return ErrAlreadyWithdrawn
		}
		_, reserved := d.earmarks[id]
		if !reserved && d.available() < p.Amount {
			return ErrInsufficientContractBalance.withf(
				"withdrawing %d, %d available, reserve funds first",
				p.Amount,
				d.available(),
			)
		}
		if d.balance < p.Amount {
			return ErrInsufficientContractBalance.withf(
				"withdrawing %d, pool holds %d",
				p.Amount,
				d.balance,
			)
		}
		if err := d.config.Ledger.Transfer(ctx, p.Recipient, p.Amount); err != nil {
			return ErrTransferFailed.wrap(err)
		}
		d.balance -= p.Amount
		delete(d.earmarks, id)
		p.Withdrawn = true
		d.emit(EventFundsWithdrawn, now, FundsWithdrawnEvent{
			ID:        id,
			Recipient: p.Recipient,
			Amount:    p.Amount,
			Reserved:  reserved,
		})
		return nil
	})
}

// SpendingProposal returns a copy of the proposal with the given id
func (d *DAO) SpendingProposal(id uint64) (SpendingProposal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.spendingProposal(id)
	if err != nil {
		return SpendingProposal{}, err
	}
	return *p.clone(), nil
}

func (d *DAO) SpendingProposalCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return uint64(len(d.spending))
}

func (d *DAO) spendingProposal(id uint64) (*SpendingProposal, error) {
	if id >= uint64(len(d.spending)) {
		return nil, ErrNoSuchProposal.withf("no spending proposal %d", id)
	}
	return d.spending[id], nil
}

func releaseOutcome(p *SpendingProposal, now time.Time) Outcome {
	if p.Initial.Outcome(now) != OutcomePassed || p.Release == nil {
		return OutcomePending
	}
	return p.Release.Outcome(now)
}

func releaseBlockedReason(p *SpendingProposal, now time.Time) string {
	if outcome := p.Initial.Outcome(now); outcome != OutcomePassed {
		return "initial " + outcome.reason()
	}
	if p.Release == nil {
		return "release vote has not started"
	}
	return "release " + p.Release.Outcome(now).reason()
}

// castVote validates, records and rewards one vote. The voter must already
// have been checked for active membership.
func (d *DAO) castVote(
	b *Ballot,
	kind string,
	id uint64,
	voter Identity,
	choice Choice,
	now time.Time,
) error {
	if err := b.checkVote(voter, now); err != nil {
		return err
	}
	m := d.members[voter]
	newPoints, err := addAmount(m.Points, d.params.VotingReward)
	if err != nil {
		return err
	}
	b.record(voter, choice)
	m.Points = newPoints
	d.metrics.voted(kind, choice)
	d.emit(EventVoteCast, now, VoteCastEvent{
		Ballot:   kind,
		ID:       id,
		Voter:    voter,
		Choice:   choice,
		Yes:      b.Yes,
		No:       b.No,
		Reward:   d.params.VotingReward,
		Deadline: b.End,
	})
	return nil
}
