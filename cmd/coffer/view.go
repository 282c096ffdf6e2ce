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

package main

import (
	"fmt"
	"time"

	"github.com/blinklabs-io/coffer"
	"github.com/blinklabs-io/coffer/dao"
)

type paramsView struct {
	Quorum       uint64 `json:"quorum"`
	BuyInFee     uint64 `json:"buyInFee"`
	VoteTime     string `json:"voteTime"`
	VotingReward uint64 `json:"votingReward"`
	PeriodFee    uint64 `json:"periodFee"`
	PeriodLength string `json:"periodLength"`
}

func newParamsView(p dao.Params) paramsView {
	return paramsView{
		Quorum:       p.Quorum,
		BuyInFee:     p.BuyInFee,
		VoteTime:     p.VoteTime.String(),
		VotingReward: p.VotingReward,
		PeriodFee:    p.PeriodFee,
		PeriodLength: p.PeriodLength.String(),
	}
}

type memberView struct {
	Identity        dao.Identity `json:"identity"`
	Points          uint64       `json:"points"`
	PeriodPaidUntil time.Time    `json:"periodPaidUntil"`
	JoinedAt        time.Time    `json:"joinedAt"`
	Active          bool         `json:"active"`
	FeeDue          uint64       `json:"feeDue"`
	PeriodsDue      uint64       `json:"periodsDue"`
}

func newMemberView(d *dao.DAO, m dao.Member) (memberView, error) {
	due, periods, err := d.FeeDue(m.Identity)
	if err != nil {
		return memberView{}, err
	}
	return memberView{
		Identity:        m.Identity,
		Points:          m.Points,
		PeriodPaidUntil: m.PeriodPaidUntil.UTC(),
		JoinedAt:        m.JoinedAt.UTC(),
		Active:          d.IsActive(m.Identity),
		FeeDue:          due,
		PeriodsDue:      periods,
	}, nil
}

type joinRequestView struct {
	Identity    dao.Identity   `json:"identity"`
	FeeOffered  uint64         `json:"feeOffered"`
	Approvers   []dao.Identity `json:"approvers"`
	RequestedAt time.Time      `json:"requestedAt"`
}

func newJoinRequestView(req dao.JoinRequest) joinRequestView {
	approvers := req.Approvers
	if approvers == nil {
		approvers = []dao.Identity{}
	}
	return joinRequestView{
		Identity:    req.Identity,
		FeeOffered:  req.FeeOffered,
		Approvers:   approvers,
		RequestedAt: req.RequestedAt.UTC(),
	}
}

// identityView reports everything known about one identity
type identityView struct {
	Identity    dao.Identity     `json:"identity"`
	Balance     uint64           `json:"balance"`
	Member      *memberView      `json:"member,omitempty"`
	JoinRequest *joinRequestView `json:"joinRequest,omitempty"`
}

func showIdentity(tr *coffer.Treasury, id dao.Identity) (any, error) {
	view := identityView{
		Identity: id,
		Balance:  tr.AccountBalance(id),
	}
	d := tr.DAO()
	if d == nil {
		return view, nil
	}
	if m, ok := d.Member(id); ok {
		mv, err := newMemberView(d, m)
		if err != nil {
			return nil, err
		}
		view.Member = &mv
	}
	if req, ok := d.JoinRequest(id); ok {
		rv := newJoinRequestView(req)
		view.JoinRequest = &rv
	}
	return view, nil
}

type ballotView struct {
	Proposer dao.Identity   `json:"proposer"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Open     bool           `json:"open"`
	Yes      uint64         `json:"yes"`
	No       uint64         `json:"no"`
	Eligible uint64         `json:"eligible"`
	Quorum   uint64         `json:"quorum"`
	Voters   []dao.Identity `json:"voters"`
	Outcome  string         `json:"outcome"`
}

func newBallotView(b *dao.Ballot, now time.Time) *ballotView {
	if b == nil {
		return nil
	}
	voters := b.Voters
	if voters == nil {
		voters = []dao.Identity{}
	}
	return &ballotView{
		Proposer: b.Proposer,
		Start:    b.Start.UTC(),
		End:      b.End.UTC(),
		Open:     b.Open(now),
		Yes:      b.Yes,
		No:       b.No,
		Eligible: b.Eligible,
		Quorum:   b.Quorum,
		Voters:   voters,
		Outcome:  b.Outcome(now).String(),
	}
}

type spendingView struct {
	ID            uint64            `json:"id"`
	Name          string            `json:"name"`
	Amount        uint64            `json:"amount"`
	AmountEth     string            `json:"amountEth"`
	Recipient     dao.Identity      `json:"recipient"`
	State         dao.SpendingState `json:"state"`
	FundsReserved bool              `json:"fundsReserved"`
	Withdrawn     bool              `json:"withdrawn"`
	EnoughFunds   bool              `json:"enoughFunds"`
	Initial       *ballotView       `json:"initial"`
	Release       *ballotView       `json:"release,omitempty"`
}

func showSpending(tr *coffer.Treasury, id uint64) (any, error) {
	d := tr.DAO()
	p, err := d.SpendingProposal(id)
	if err != nil {
		return nil, err
	}
	enough, err := d.EnoughFundsForProposal(id)
	if err != nil {
		return nil, err
	}
	now := tr.Now()
	return spendingView{
		ID:            p.ID,
		Name:          p.Name,
		Amount:        p.Amount,
		AmountEth:     formatEth(p.Amount),
		Recipient:     p.Recipient,
		State:         p.StateAt(now),
		FundsReserved: p.FundsReserved,
		Withdrawn:     p.Withdrawn,
		EnoughFunds:   enough,
		Initial:       newBallotView(p.Initial, now),
		Release:       newBallotView(p.Release, now),
	}, nil
}

type governanceView struct {
	ID          uint64      `json:"id"`
	Params      paramsView  `json:"params"`
	Implemented bool        `json:"implemented"`
	Applied     bool        `json:"applied"`
	Ballot      *ballotView `json:"ballot"`
}

func showGovernance(tr *coffer.Treasury, id uint64) (any, error) {
	p, err := tr.DAO().GovernanceProposal(id)
	if err != nil {
		return nil, err
	}
	return governanceView{
		ID:          p.ID,
		Params:      newParamsView(p.Params),
		Implemented: p.Implemented,
		Applied:     p.Applied,
		Ballot:      newBallotView(p.Ballot, tr.Now()),
	}, nil
}

type statusView struct {
	Now                 time.Time       `json:"now"`
	DevMode             bool            `json:"devMode"`
	QuorumBasis         dao.QuorumBasis `json:"quorumBasis"`
	GenesisTime         time.Time       `json:"genesisTime"`
	NextPeriodStart     time.Time       `json:"nextPeriodStart"`
	Params              paramsView      `json:"params"`
	ParamsVersion       uint64          `json:"paramsVersion"`
	Members             uint64          `json:"members"`
	ActiveMembers       uint64          `json:"activeMembers"`
	Balance             uint64          `json:"balance"`
	BalanceEth          string          `json:"balanceEth"`
	AvailableFunds      uint64          `json:"availableFunds"`
	ReservedFunds       uint64          `json:"reservedFunds"`
	SpendingProposals   uint64          `json:"spendingProposals"`
	GovernanceProposals uint64          `json:"governanceProposals"`
}

func showStatus(tr *coffer.Treasury) (any, error) {
	d := tr.DAO()
	now := tr.Now()
	return statusView{
		Now:                 now.UTC(),
		DevMode:             tr.IsDevMode(),
		QuorumBasis:         tr.QuorumBasis(),
		GenesisTime:         d.GenesisTime().UTC(),
		NextPeriodStart:     d.NextPeriodStartAt(now).UTC(),
		Params:              newParamsView(d.Params()),
		ParamsVersion:       d.ParamsVersion(),
		Members:             d.MemberCount(),
		ActiveMembers:       d.ActiveMemberCount(),
		Balance:             d.Balance(),
		BalanceEth:          formatEth(d.Balance()),
		AvailableFunds:      d.AvailableFunds(),
		ReservedFunds:       d.ReservedFunds(),
		SpendingProposals:   d.SpendingProposalCount(),
		GovernanceProposals: d.GovernanceProposalCount(),
	}, nil
}

// proposalID is printed by the propose commands
type proposalID struct {
	ID uint64 `json:"id"`
}

func parseProposalID(s string) (uint64, error) {
	var id uint64
	if _, err := fmt.Sscan(s, &id); err != nil {
		return 0, fmt.Errorf("invalid proposal id %q: %w", s, err)
	}
	return id, nil
}
