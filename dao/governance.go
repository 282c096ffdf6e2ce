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

// ProposeGovernanceUpdate opens a proposal to replace all parameters with
// params and returns its id
func (d *DAO) ProposeGovernanceUpdate(
	ctx context.Context,
	params Params,
	caller Identity,
) (uint64, error) {
	var id uint64
	params = params.normalize()
	err := d.run(ctx, "propose_governance", func(_ context.Context, now time.Time) error {
		if err := d.requireActive(caller, now); err != nil {
			return err
		}
		if err := params.Validate(); err != nil {
			return err
		}
		id = uint64(len(d.governance))
		d.governance = append(d.governance, &GovernanceProposal{
			ID:     id,
			Params: params,
			Ballot: newBallot(
				caller,
				now,
				d.params.VoteTime,
				d.eligibleVoters(now),
				d.params.Quorum,
			),
		})
		d.emit(EventGovernanceProposed, now, GovernanceProposedEvent{
			ID:       id,
			Params:   params,
			Proposer: caller,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// VoteGovProposal casts caller's vote on a governance proposal
func (d *DAO) VoteGovProposal(
	ctx context.Context,
	id uint64,
	choice Choice,
	caller Identity,
) error {
	return d.run(ctx, "vote_governance", func(_ context.Context, now time.Time) error {
		if err := d.requireActive(caller, now); err != nil {
			return err
		}
		p, err := d.governanceProposal(id)
		if err != nil {
			return err
		}
		return d.castVote(p.Ballot, BallotGovernance, id, caller, choice, now)
	})
}

// GovProposalPassed applies the pass rule to the proposal ballot
func (d *DAO) GovProposalPassed(id uint64) (bool, error) {
	outcome, err := d.GovOutcome(id)
	return outcome == OutcomePassed, err
}

func (d *DAO) GovOutcome(id uint64) (Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.governanceProposal(id)
	if err != nil {
		return OutcomePending, err
	}
	return p.Ballot.Outcome(d.now()), nil
}

// ImplementGovProposal closes a governance proposal once voting is over.
// A passed proposal replaces all parameters at once; a failed one changes
// nothing. Either way the proposal can not be implemented again.
func (d *DAO) ImplementGovProposal(ctx context.Context, id uint64) error {
	return d.run(ctx, "implement_governance", func(_ context.Context, now time.Time) error {
		p, err := d.governanceProposal(id)
		if err != nil {
			return err
		}
		if p.Ballot.Open(now) {
			return ErrVotingNotOver.withf(
				"voting ends at %s",
				p.Ballot.End.UTC().Format(time.RFC3339),
			)
		}
		if p.Implemented {
			return ErrAlreadyImplemented
		}
		outcome := p.Ballot.Outcome(now)
		if outcome == OutcomePassed {
			// Anchor the period schedule under the old length first
			d.nextPeriodStart = d.nextPeriodStartAt(now)
			d.params = p.Params
			d.paramsVersion++
			p.Applied = true
		}
		p.Implemented = true
		d.emit(EventGovernanceImplemented, now, GovernanceImplementedEvent{
			ID:            id,
			Outcome:       outcome,
			Applied:       p.Applied,
			Params:        d.params,
			ParamsVersion: d.paramsVersion,
		})
		if p.Applied {
			d.logger.Info(
				"governance parameters replaced",
				"proposal", id,
				"params", d.params.String(),
				"version", d.paramsVersion,
			)
		}
		return nil
	})
}

// GovernanceProposal returns a copy of the proposal with the given id
func (d *DAO) GovernanceProposal(id uint64) (GovernanceProposal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.governanceProposal(id)
	if err != nil {
		return GovernanceProposal{}, err
	}
	return *p.clone(), nil
}

func (d *DAO) GovernanceProposalCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return uint64(len(d.governance))
}

// Params returns the parameters currently in force
func (d *DAO) Params() Params {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.params
}

// ParamsVersion increases by one each time governance replaces the
// parameters
func (d *DAO) ParamsVersion() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paramsVersion
}

func (d *DAO) governanceProposal(id uint64) (*GovernanceProposal, error) {
	if id >= uint64(len(d.governance)) {
		return nil, ErrNoSuchProposal.withf("no governance proposal %d", id)
	}
	return d.governance[id], nil
}
