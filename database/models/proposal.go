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

package models

import "github.com/blinklabs-io/coffer/database/types"

type SpendingProposal struct {
	ID            uint         `gorm:"primarykey"`
	ProposalID    uint64       `gorm:"uniqueIndex;not null"`
	Name          string       `gorm:"size:255;not null"`
	Amount        types.Uint64 `gorm:"not null"`
	Recipient     string       `gorm:"index;size:255;not null"`
	Withdrawn     bool         `gorm:"not null"`
	FundsReserved bool         `gorm:"not null"`
	// Earmark is set while funds are reserved and not yet withdrawn
	Earmark *types.Uint64
}

func (SpendingProposal) TableName() string {
	return "spending_proposal"
}

type GovernanceProposal struct {
	ID          uint   `gorm:"primarykey"`
	ProposalID  uint64 `gorm:"uniqueIndex;not null"`
	Params      Params `gorm:"embedded;embeddedPrefix:param_"`
	Implemented bool   `gorm:"not null"`
	Applied     bool   `gorm:"not null"`
}

func (GovernanceProposal) TableName() string {
	return "governance_proposal"
}

// Ballot kinds
const (
	BallotKindSpendingInitial = "spending_initial"
	BallotKindSpendingRelease = "spending_release"
	BallotKindGovernance      = "governance"
)

// Ballot stores one round of voting on a proposal
type Ballot struct {
	ID         uint         `gorm:"primarykey"`
	Kind       string       `gorm:"uniqueIndex:idx_ballot_proposal,priority:1;size:32;not null"`
	ProposalID uint64       `gorm:"uniqueIndex:idx_ballot_proposal,priority:2;not null"`
	Proposer   string       `gorm:"size:255;not null"`
	OpensAt    int64        `gorm:"not null"`
	ClosesAt   int64        `gorm:"index;not null"`
	Yes        uint64       `gorm:"not null"`
	No         uint64       `gorm:"not null"`
	Eligible   uint64       `gorm:"not null"`
	Quorum     uint64       `gorm:"not null"`
	Votes      []BallotVote `gorm:"foreignKey:BallotID;constraint:OnDelete:CASCADE"`
}

func (Ballot) TableName() string {
	return "ballot"
}

// BallotVote records that a member voted. Choices are only tallied on the
// ballot. Position preserves voting order.
type BallotVote struct {
	ID       uint   `gorm:"primarykey"`
	BallotID uint   `gorm:"uniqueIndex:idx_ballot_vote,priority:1;not null"`
	Voter    string `gorm:"uniqueIndex:idx_ballot_vote,priority:2;size:255;not null"`
	Position int    `gorm:"not null"`
}

func (BallotVote) TableName() string {
	return "ballot_vote"
}
