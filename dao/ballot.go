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
	"fmt"
	"math/bits"
	"slices"
	"strings"
	"time"
)

// Choice is a yes/no vote
type Choice bool

const (
	ChoiceNo  Choice = false
	ChoiceYes Choice = true
)

func (c Choice) String() string {
	if c {
		return "yes"
	}
	return "no"
}

func ParseChoice(s string) (Choice, error) {
	switch strings.ToLower(s) {
	case "yes", "y", "true", "1", "for":
		return ChoiceYes, nil
	case "no", "n", "false", "0", "against":
		return ChoiceNo, nil
	}
	return ChoiceNo, fmt.Errorf("invalid choice: %q", s)
}

// Outcome is the result of applying the pass rule to a ballot
type Outcome int

const (
	// OutcomePending means the deadline has not been reached
	OutcomePending Outcome = iota
	// OutcomeQuorumNotMet means too few eligible members voted
	OutcomeQuorumNotMet
	// OutcomeRejected means the quorum was met but yes did not beat no
	OutcomeRejected
	OutcomePassed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeQuorumNotMet:
		return "quorum not met"
	case OutcomeRejected:
		return "rejected"
	case OutcomePassed:
		return "passed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Decided reports whether the deadline has passed
func (o Outcome) Decided() bool {
	return o != OutcomePending
}

// reason is the message surfaced when a ballot with this outcome blocks
// a later step
func (o Outcome) reason() string {
	switch o {
	case OutcomePending:
		return "vote is still open"
	case OutcomeQuorumNotMet:
		return "not enough members participated"
	case OutcomeRejected:
		return "vote did not pass"
	}
	return o.String()
}

// Ballot is a deadline-bound yes/no vote. The eligible voter count and
// quorum are fixed when the ballot opens so that its outcome never changes
// after the deadline.
type Ballot struct {
	Proposer Identity
	Start    time.Time
	End      time.Time
	Yes      uint64
	No       uint64
	// Eligible is the number of eligible voters when the ballot opened
	Eligible uint64
	// Quorum is the participation percentage in force when the ballot opened
	Quorum uint64
	// Voters in the order their votes were cast
	Voters []Identity

	voted map[Identity]struct{}
}

func newBallot(
	proposer Identity,
	start time.Time,
	voteTime time.Duration,
	eligible uint64,
	quorum uint64,
) *Ballot {
	return &Ballot{
		Proposer: proposer,
		Start:    start,
		End:      start.Add(voteTime),
		Eligible: eligible,
		Quorum:   quorum,
		voted:    make(map[Identity]struct{}),
	}
}

// HasVoted reports whether id has cast a vote on this ballot
func (b *Ballot) HasVoted(id Identity) bool {
	b.index()
	_, ok := b.voted[id]
	return ok
}

// Open reports whether votes are still accepted at now
func (b *Ballot) Open(now time.Time) bool {
	return now.Before(b.End)
}

func (b *Ballot) checkVote(voter Identity, now time.Time) error {
	if !b.Open(now) {
		return ErrVotingClosed.withf("voting closed at %s", b.End.UTC().Format(time.RFC3339))
	}
	if b.HasVoted(voter) {
		return ErrAlreadyVoted
	}
	return nil
}

// record must only be called after checkVote succeeded
func (b *Ballot) record(voter Identity, choice Choice) {
	b.index()
	if choice == ChoiceYes {
		b.Yes++
	} else {
		b.No++
	}
	b.voted[voter] = struct{}{}
	b.Voters = append(b.Voters, voter)
}

// Outcome applies the pass rule at now
func (b *Ballot) Outcome(now time.Time) Outcome {
	if now.Before(b.End) {
		return OutcomePending
	}
	if !quorumMet(uint64(len(b.Voters)), b.Eligible, b.Quorum) {
		return OutcomeQuorumNotMet
	}
	if b.Yes <= b.No {
		return OutcomeRejected
	}
	return OutcomePassed
}

// Passed is true only after the deadline and only if the pass rule holds
func (b *Ballot) Passed(now time.Time) bool {
	return b.Outcome(now) == OutcomePassed
}

func (b *Ballot) clone() *Ballot {
	if b == nil {
		return nil
	}
	ret := *b
	ret.Voters = slices.Clone(b.Voters)
	ret.voted = nil
	return &ret
}

func (b *Ballot) index() {
	if b.voted != nil {
		return
	}
	b.voted = make(map[Identity]struct{}, len(b.Voters))
	for _, v := range b.Voters {
		b.voted[v] = struct{}{}
	}
}

// quorumMet reports whether count/eligible*100 >= quorum without
// truncating division. An empty electorate never meets a quorum.
func quorumMet(count, eligible, quorum uint64) bool {
	if eligible == 0 {
		return false
	}
	lhsHi, lhsLo := bits.Mul64(count, 100)
	rhsHi, rhsLo := bits.Mul64(quorum, eligible)
	if lhsHi != rhsHi {
		return lhsHi > rhsHi
	}
	return lhsLo >= rhsLo
}
