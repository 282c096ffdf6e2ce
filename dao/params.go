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
	"time"
)

const (
	DefaultQuorum       uint64 = 50
	DefaultBuyInFee     uint64 = 1_000_000_000_000_000_000
	DefaultPeriodFee    uint64 = 100_000_000_000_000_000
	DefaultVotingReward uint64 = 10_000_000_000_000_000
	// One twelfth of a Julian year
	DefaultPeriodLength = 2_629_800 * time.Second
	DefaultVoteTime     = 7 * 24 * time.Hour
)

// Params is the set of operating parameters that governance can replace.
// It is only ever swapped as a whole.
type Params struct {
	// Quorum is the participation threshold as a percentage (0-100)
	Quorum       uint64
	BuyInFee     uint64
	VoteTime     time.Duration
	VotingReward uint64
	PeriodFee    uint64
	PeriodLength time.Duration
}

func DefaultParams() Params {
	return Params{
		Quorum:       DefaultQuorum,
		BuyInFee:     DefaultBuyInFee,
		VoteTime:     DefaultVoteTime,
		VotingReward: DefaultVotingReward,
		PeriodFee:    DefaultPeriodFee,
		PeriodLength: DefaultPeriodLength,
	}
}

// Validate checks that the parameters describe a usable DAO
func (p Params) Validate() error {
	if p.Quorum > 100 {
		return ErrInvalidParams.withf("quorum %d exceeds 100 percent", p.Quorum)
	}
	if p.VoteTime < time.Second {
		return ErrInvalidParams.withf("vote time %s is shorter than one second", p.VoteTime)
	}
	if p.PeriodLength < time.Second {
		return ErrInvalidParams.withf("period length %s is shorter than one second", p.PeriodLength)
	}
	return nil
}

// normalize truncates durations to the clock resolution
func (p Params) normalize() Params {
	p.VoteTime = p.VoteTime.Truncate(time.Second)
	p.PeriodLength = p.PeriodLength.Truncate(time.Second)
	return p
}

func (p Params) String() string {
	return fmt.Sprintf(
		"quorum=%d%% buyInFee=%d voteTime=%s votingReward=%d periodFee=%d periodLength=%s",
		p.Quorum,
		p.BuyInFee,
		p.VoteTime,
		p.VotingReward,
		p.PeriodFee,
		p.PeriodLength,
	)
}

// QuorumBasis selects which members count as eligible voters when
// computing participation
type QuorumBasis string

const (
	// QuorumBasisActive counts only members whose dues are current
	QuorumBasisActive QuorumBasis = "active"
	// QuorumBasisAll counts every member
	QuorumBasisAll QuorumBasis = "all"
)

func ParseQuorumBasis(s string) (QuorumBasis, error) {
	switch QuorumBasis(s) {
	case "", QuorumBasisActive:
		return QuorumBasisActive, nil
	case QuorumBasisAll:
		return QuorumBasisAll, nil
	}
	return "", fmt.Errorf("unknown quorum basis: %q", s)
}
