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
	"time"

	"github.com/blinklabs-io/coffer/event"
)

const (
	EventDeployed              event.EventType = "dao.deployed"
	EventJoinRequested         event.EventType = "dao.join_requested"
	EventJoinApproved          event.EventType = "dao.join_approved"
	EventMemberJoined          event.EventType = "dao.member_joined"
	EventFunded                event.EventType = "dao.funded"
	EventPeriodFeePaid         event.EventType = "dao.period_fee_paid"
	EventSpendingProposed      event.EventType = "dao.spending_proposed"
	EventVoteCast              event.EventType = "dao.vote_cast"
	EventFundsReserved         event.EventType = "dao.funds_reserved"
	EventFundsWithdrawn        event.EventType = "dao.funds_withdrawn"
	EventGovernanceProposed    event.EventType = "dao.governance_proposed"
	EventGovernanceImplemented event.EventType = "dao.governance_implemented"
)

// EventTypes lists every event type the DAO publishes
var EventTypes = []event.EventType{
	EventDeployed,
	EventJoinRequested,
	EventJoinApproved,
	EventMemberJoined,
	EventFunded,
	EventPeriodFeePaid,
	EventSpendingProposed,
	EventVoteCast,
	EventFundsReserved,
	EventFundsWithdrawn,
	EventGovernanceProposed,
	EventGovernanceImplemented,
}

type DeployedEvent struct {
	Founder Identity
	Deposit uint64
	Params  Params
}

type JoinRequestedEvent struct {
	Identity   Identity
	FeeOffered uint64
}

type JoinApprovedEvent struct {
	Identity  Identity
	Approver  Identity
	Approvals int
}

type MemberJoinedEvent struct {
	Identity Identity
	Paid     uint64
}

type FundedEvent struct {
	Identity Identity
	Amount   uint64
}

type PeriodFeePaidEvent struct {
	Identity  Identity
	Amount    uint64
	Periods   uint64
	PaidUntil time.Time
}

type SpendingProposedEvent struct {
	ID        uint64
	Name      string
	Amount    uint64
	Recipient Identity
	Proposer  Identity
}

type VoteCastEvent struct {
	Ballot   string
	ID       uint64
	Voter    Identity
	Choice   Choice
	Yes      uint64
	No       uint64
	Reward   uint64
	Deadline time.Time
}

type FundsReservedEvent struct {
	ID        uint64
	Recipient Identity
	Amount    uint64
}

type FundsWithdrawnEvent struct {
	ID        uint64
	Recipient Identity
	Amount    uint64
	Reserved  bool
}

type GovernanceProposedEvent struct {
	ID       uint64
	Params   Params
	Proposer Identity
}

type GovernanceImplementedEvent struct {
	ID            uint64
	Outcome       Outcome
	Applied       bool
	Params        Params
	ParamsVersion uint64
}
