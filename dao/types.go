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
	"slices"
	"time"

	"github.com/blinklabs-io/coffer/ledger"
)

type Identity = ledger.Identity

// Member is a participant who has bought in. Members are never removed.
type Member struct {
	Identity Identity
	// Points is the accumulated contribution value
	Points          uint64
	PeriodPaidUntil time.Time
	JoinedAt        time.Time
}

// ActiveAt reports whether dues are settled through t
func (m Member) ActiveAt(t time.Time) bool {
	return !m.PeriodPaidUntil.Before(t)
}

// JoinRequest is a pending application for membership
type JoinRequest struct {
	Identity    Identity
	FeeOffered  uint64
	Approvers   []Identity
	RequestedAt time.Time
}

func (r *JoinRequest) approvedBy(id Identity) bool {
	return slices.Contains(r.Approvers, id)
}

func (r *JoinRequest) clone() *JoinRequest {
	ret := *r
	ret.Approvers = slices.Clone(r.Approvers)
	return &ret
}

// SpendingProposal pays Amount to Recipient after passing an initial vote
// and a release vote
type SpendingProposal struct {
	ID            uint64
	Name          string
	Amount        uint64
	Recipient     Identity
	Withdrawn     bool
	FundsReserved bool
	Initial       *Ballot
	// Release is nil until the first release vote is cast
	Release *Ballot
}

func (p *SpendingProposal) clone() *SpendingProposal {
	ret := *p
	ret.Initial = p.Initial.clone()
	ret.Release = p.Release.clone()
	return &ret
}

// SpendingState is the lifecycle stage of a spending proposal
type SpendingState string

const (
	SpendingInitialVoting   SpendingState = "initial_voting"
	SpendingInitialPassed   SpendingState = "initial_passed"
	SpendingInitialRejected SpendingState = "initial_rejected"
	SpendingReleaseVoting   SpendingState = "release_voting"
	SpendingReleasePassed   SpendingState = "release_passed"
	SpendingReleaseRejected SpendingState = "release_rejected"
	SpendingReserved        SpendingState = "reserved"
	SpendingWithdrawn       SpendingState = "withdrawn"
)

// StateAt derives the lifecycle stage at now
func (p *SpendingProposal) StateAt(now time.Time) SpendingState {
	switch {
	case p.Withdrawn:
		return SpendingWithdrawn
	case p.FundsReserved:
		return SpendingReserved
	}
	switch p.Initial.Outcome(now) {
	case OutcomePending:
		return SpendingInitialVoting
	case OutcomeQuorumNotMet, OutcomeRejected:
		return SpendingInitialRejected
	}
	if p.Release == nil {
		return SpendingInitialPassed
	}
	switch p.Release.Outcome(now) {
	case OutcomePending:
		return SpendingReleaseVoting
	case OutcomePassed:
		return SpendingReleasePassed
	}
	return SpendingReleaseRejected
}

// GovernanceProposal replaces the DAO parameters when its ballot passes
type GovernanceProposal struct {
	ID          uint64
	Params      Params
	Implemented bool
	// Applied is set when implementation swapped in Params
	Applied bool
	Ballot  *Ballot
}

func (p *GovernanceProposal) clone() *GovernanceProposal {
	ret := *p
	ret.Ballot = p.Ballot.clone()
	return &ret
}
