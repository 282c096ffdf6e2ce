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
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

// State is a complete copy of the DAO, suitable for persistence
type State struct {
	Params          Params
	ParamsVersion   uint64
	GenesisTime     time.Time
	NextPeriodStart time.Time
	Balance         uint64
	// Earmarks maps reserved, not yet withdrawn proposal ids to amounts
	Earmarks     map[uint64]uint64
	Members      []Member
	JoinRequests []JoinRequest
	Spending     []SpendingProposal
	Governance   []GovernanceProposal
}

// Snapshot captures the current state
func (d *DAO) Snapshot() *State {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := &State{
		Params:          d.params,
		ParamsVersion:   d.paramsVersion,
		GenesisTime:     d.genesisTime,
		NextPeriodStart: d.nextPeriodStart,
		Balance:         d.balance,
		Earmarks:        maps.Clone(d.earmarks),
		Members:         d.sortedMembers(),
		JoinRequests:    make([]JoinRequest, 0, len(d.joinRequests)),
		Spending:        make([]SpendingProposal, 0, len(d.spending)),
		Governance:      make([]GovernanceProposal, 0, len(d.governance)),
	}
	for _, req := range d.joinRequests {
		st.JoinRequests = append(st.JoinRequests, *req.clone())
	}
	slices.SortFunc(st.JoinRequests, func(a, b JoinRequest) int {
		return cmp.Or(
			a.RequestedAt.Compare(b.RequestedAt),
			cmp.Compare(a.Identity, b.Identity),
		)
	})
	for _, p := range d.spending {
		st.Spending = append(st.Spending, *p.clone())
	}
	for _, p := range d.governance {
		st.Governance = append(st.Governance, *p.clone())
	}
	return st
}

// Load replaces the current state with st after checking its invariants
func (d *DAO) Load(st *State) error {
	if st == nil {
		return errors.New("dao: nil state")
	}
	if err := validateState(st); err != nil {
		return fmt.Errorf("dao: invalid state: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params = st.Params
	d.paramsVersion = st.ParamsVersion
	d.genesisTime = st.GenesisTime
	d.nextPeriodStart = st.NextPeriodStart
	d.balance = st.Balance
	d.earmarks = make(map[uint64]uint64, len(st.Earmarks))
	maps.Copy(d.earmarks, st.Earmarks)
	d.members = make(map[Identity]*Member, len(st.Members))
	for _, m := range st.Members {
		d.members[m.Identity] = &m
	}
	d.joinRequests = make(map[Identity]*JoinRequest, len(st.JoinRequests))
	for _, req := range st.JoinRequests {
		d.joinRequests[req.Identity] = req.clone()
	}
	d.spending = make([]*SpendingProposal, 0, len(st.Spending))
	for _, p := range st.Spending {
		d.spending = append(d.spending, p.clone())
	}
	d.governance = make([]*GovernanceProposal, 0, len(st.Governance))
	for _, p := range st.Governance {
		d.governance = append(d.governance, p.clone())
	}
	d.updateMetrics(d.now())
	return nil
}

func validateState(st *State) error {
	if err := st.Params.Validate(); err != nil {
		return err
	}
	members := make(map[Identity]struct{}, len(st.Members))
	for _, m := range st.Members {
		if _, ok := members[m.Identity]; ok {
			return fmt.Errorf("duplicate member %s", m.Identity)
		}
		members[m.Identity] = struct{}{}
	}
	for _, req := range st.JoinRequests {
		if _, ok := members[req.Identity]; ok {
			return fmt.Errorf("join request for existing member %s", req.Identity)
		}
	}
	var reserved uint64
	for i, p := range st.Spending {
		if p.ID != uint64(i) {
			return fmt.Errorf("spending proposal %d stored at index %d", p.ID, i)
		}
		if p.Initial == nil {
			return fmt.Errorf("spending proposal %d has no initial ballot", p.ID)
		}
		amount, ok := st.Earmarks[p.ID]
		if ok != (p.FundsReserved && !p.Withdrawn) {
			return fmt.Errorf("spending proposal %d earmark mismatch", p.ID)
		}
		if ok && amount != p.Amount {
			return fmt.Errorf(
				"spending proposal %d earmark %d does not match amount %d",
				p.ID,
				amount,
				p.Amount,
			)
		}
		reserved += amount
	}
	for id := range st.Earmarks {
		if id >= uint64(len(st.Spending)) {
			return fmt.Errorf("earmark for unknown proposal %d", id)
		}
	}
	if reserved > st.Balance {
		return fmt.Errorf("reserved %d exceeds balance %d", reserved, st.Balance)
	}
	for i, p := range st.Governance {
		if p.ID != uint64(i) {
			return fmt.Errorf("governance proposal %d stored at index %d", p.ID, i)
		}
		if p.Ballot == nil {
			return fmt.Errorf("governance proposal %d has no ballot", p.ID)
		}
	}
	return nil
}

func (d *DAO) sortedMembers() []Member {
	ret := make([]Member, 0, len(d.members))
	for _, m := range d.members {
		ret = append(ret, *m)
	}
	slices.SortFunc(ret, func(a, b Member) int {
		return cmp.Or(
			a.JoinedAt.Compare(b.JoinedAt),
			cmp.Compare(a.Identity, b.Identity),
		)
	})
	return ret
}
