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

package database

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/blinklabs-io/coffer/dao"
	"github.com/blinklabs-io/coffer/database/models"
	"github.com/blinklabs-io/coffer/database/types"
	"github.com/blinklabs-io/coffer/ledger"
)

var ErrStateNotFound = errors.New("no treasury state saved")

// SaveState replaces the saved treasury and ledger state. A nil txn runs a
// transaction of its own.
func (d *Database) SaveState(
	st *dao.State,
	snap ledger.Snapshot,
	txn *Txn,
) error {
	if st == nil {
		return errors.New("nil treasury state")
	}
	rec := stateToRecords(st, snap)
	if txn == nil {
		return d.Transaction(true).Do(func(txn *Txn) error {
			return d.Metadata().ReplaceState(rec, txn.Metadata())
		})
	}
	return d.Metadata().ReplaceState(rec, txn.Metadata())
}

// LoadState returns the saved treasury and ledger state. It returns
// ErrStateNotFound when nothing has been saved yet.
func (d *Database) LoadState(txn *Txn) (*dao.State, ledger.Snapshot, error) {
	rec, err := d.Metadata().GetState(metadataTxn(txn))
	if err != nil {
		return nil, ledger.Snapshot{}, fmt.Errorf("load state: %w", err)
	}
	if rec == nil {
		return nil, ledger.Snapshot{}, ErrStateNotFound
	}
	st, snap, err := recordsToState(rec)
	if err != nil {
		return nil, ledger.Snapshot{}, fmt.Errorf("decode state: %w", err)
	}
	return st, snap, nil
}

// SaveLedger replaces only the saved account and pool balances. It is used
// before a treasury has been deployed.
func (d *Database) SaveLedger(snap ledger.Snapshot, txn *Txn) error {
	accounts, pool := ledgerToModels(snap)
	if txn == nil {
		return d.Transaction(true).Do(func(txn *Txn) error {
			return d.Metadata().ReplaceLedger(accounts, pool, txn.Metadata())
		})
	}
	return d.Metadata().ReplaceLedger(accounts, pool, txn.Metadata())
}

// LoadLedger returns the saved account and pool balances
func (d *Database) LoadLedger(txn *Txn) (ledger.Snapshot, error) {
	accounts, pool, err := d.Metadata().GetLedger(metadataTxn(txn))
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("load ledger: %w", err)
	}
	return ledgerFromModels(accounts, pool), nil
}

func ledgerToModels(snap ledger.Snapshot) ([]models.LedgerAccount, models.LedgerPool) {
	accounts := make([]models.LedgerAccount, 0, len(snap.Accounts))
	for id, balance := range snap.Accounts {
		accounts = append(accounts, models.LedgerAccount{
			Identity: string(id),
			Balance:  types.Uint64(balance),
		})
	}
	slices.SortFunc(accounts, func(a, b models.LedgerAccount) int {
		return cmp.Compare(a.Identity, b.Identity)
	})
	return accounts, models.LedgerPool{Balance: types.Uint64(snap.Pool)}
}

func ledgerFromModels(
	accounts []models.LedgerAccount,
	pool models.LedgerPool,
) ledger.Snapshot {
	snap := ledger.Snapshot{
		Accounts: make(map[ledger.Identity]uint64, len(accounts)),
		Pool:     uint64(pool.Balance),
	}
	for _, account := range accounts {
		snap.Accounts[ledger.Identity(account.Identity)] = uint64(account.Balance)
	}
	return snap
}

func stateToRecords(st *dao.State, snap ledger.Snapshot) *models.StateRecords {
	rec := &models.StateRecords{
		Treasury: models.Treasury{
			ParamsVersion:   st.ParamsVersion,
			GenesisTime:     st.GenesisTime.Unix(),
			NextPeriodStart: st.NextPeriodStart.Unix(),
			Balance:         types.Uint64(st.Balance),
			Params:          paramsToModel(st.Params),
		},
	}
	rec.LedgerAccounts, rec.LedgerPool = ledgerToModels(snap)
	for _, m := range st.Members {
		rec.Members = append(rec.Members, models.Member{
			Identity:        string(m.Identity),
			Points:          types.Uint64(m.Points),
			PeriodPaidUntil: m.PeriodPaidUntil.Unix(),
			JoinedAt:        m.JoinedAt.Unix(),
		})
	}
	for _, req := range st.JoinRequests {
		tmpReq := models.JoinRequest{
			Identity:    string(req.Identity),
			FeeOffered:  types.Uint64(req.FeeOffered),
			RequestedAt: req.RequestedAt.Unix(),
		}
		for i, approver := range req.Approvers {
			tmpReq.Approvals = append(tmpReq.Approvals, models.JoinApproval{
				Approver: string(approver),
				Position: i,
			})
		}
		rec.JoinRequests = append(rec.JoinRequests, tmpReq)
	}
	for _, p := range st.Spending {
		tmpProposal := models.SpendingProposal{
			ProposalID:    p.ID,
			Name:          p.Name,
			Amount:        types.Uint64(p.Amount),
			Recipient:     string(p.Recipient),
			Withdrawn:     p.Withdrawn,
			FundsReserved: p.FundsReserved,
		}
		if amount, ok := st.Earmarks[p.ID]; ok {
			earmark := types.Uint64(amount)
			tmpProposal.Earmark = &earmark
		}
		rec.Spending = append(rec.Spending, tmpProposal)
		rec.Ballots = append(
			rec.Ballots,
			ballotToModel(models.BallotKindSpendingInitial, p.ID, p.Initial),
		)
		if p.Release != nil {
			rec.Ballots = append(
				rec.Ballots,
				ballotToModel(models.BallotKindSpendingRelease, p.ID, p.Release),
			)
		}
	}
	for _, p := range st.Governance {
		rec.Governance = append(rec.Governance, models.GovernanceProposal{
			ProposalID:  p.ID,
			Params:      paramsToModel(p.Params),
			Implemented: p.Implemented,
			Applied:     p.Applied,
		})
		rec.Ballots = append(
			rec.Ballots,
			ballotToModel(models.BallotKindGovernance, p.ID, p.Ballot),
		)
	}
	return rec
}

type ballotKey struct {
	kind       string
	proposalID uint64
}

func recordsToState(rec *models.StateRecords) (*dao.State, ledger.Snapshot, error) {
	st := &dao.State{
		Params:          paramsFromModel(rec.Treasury.Params),
		ParamsVersion:   rec.Treasury.ParamsVersion,
		GenesisTime:     time.Unix(rec.Treasury.GenesisTime, 0),
		NextPeriodStart: time.Unix(rec.Treasury.NextPeriodStart, 0),
		Balance:         uint64(rec.Treasury.Balance),
		Earmarks:        make(map[uint64]uint64),
		Members:         make([]dao.Member, 0, len(rec.Members)),
		JoinRequests:    make([]dao.JoinRequest, 0, len(rec.JoinRequests)),
		Spending:        make([]dao.SpendingProposal, 0, len(rec.Spending)),
		Governance:      make([]dao.GovernanceProposal, 0, len(rec.Governance)),
	}
	for _, m := range rec.Members {
		st.Members = append(st.Members, dao.Member{
			Identity:        dao.Identity(m.Identity),
			Points:          uint64(m.Points),
			PeriodPaidUntil: time.Unix(m.PeriodPaidUntil, 0),
			JoinedAt:        time.Unix(m.JoinedAt, 0),
		})
	}
	for _, req := range rec.JoinRequests {
		tmpReq := dao.JoinRequest{
			Identity:    dao.Identity(req.Identity),
			FeeOffered:  uint64(req.FeeOffered),
			RequestedAt: time.Unix(req.RequestedAt, 0),
		}
		for _, approval := range req.Approvals {
			tmpReq.Approvers = append(tmpReq.Approvers, dao.Identity(approval.Approver))
		}
		st.JoinRequests = append(st.JoinRequests, tmpReq)
	}
	ballots := make(map[ballotKey]*dao.Ballot, len(rec.Ballots))
	for _, b := range rec.Ballots {
		key := ballotKey{kind: b.Kind, proposalID: b.ProposalID}
		if _, ok := ballots[key]; ok {
			return nil, ledger.Snapshot{}, fmt.Errorf(
				"duplicate %s ballot for proposal %d",
				b.Kind,
				b.ProposalID,
			)
		}
		ballots[key] = ballotFromModel(b)
	}
	for _, p := range rec.Spending {
		initial, ok := ballots[ballotKey{models.BallotKindSpendingInitial, p.ProposalID}]
		if !ok {
			return nil, ledger.Snapshot{}, fmt.Errorf(
				"spending proposal %d has no initial ballot",
				p.ProposalID,
			)
		}
		st.Spending = append(st.Spending, dao.SpendingProposal{
			ID:            p.ProposalID,
			Name:          p.Name,
			Amount:        uint64(p.Amount),
			Recipient:     dao.Identity(p.Recipient),
			Withdrawn:     p.Withdrawn,
			FundsReserved: p.FundsReserved,
			Initial:       initial,
			Release:       ballots[ballotKey{models.BallotKindSpendingRelease, p.ProposalID}],
		})
		if p.Earmark != nil {
			st.Earmarks[p.ProposalID] = uint64(*p.Earmark)
		}
	}
	for _, p := range rec.Governance {
		ballot, ok := ballots[ballotKey{models.BallotKindGovernance, p.ProposalID}]
		if !ok {
			return nil, ledger.Snapshot{}, fmt.Errorf(
				"governance proposal %d has no ballot",
				p.ProposalID,
			)
		}
		st.Governance = append(st.Governance, dao.GovernanceProposal{
			ID:          p.ProposalID,
			Params:      paramsFromModel(p.Params),
			Implemented: p.Implemented,
			Applied:     p.Applied,
			Ballot:      ballot,
		})
	}
	return st, ledgerFromModels(rec.LedgerAccounts, rec.LedgerPool), nil
}

func paramsToModel(p dao.Params) models.Params {
	return models.Params{
		Quorum:       p.Quorum,
		BuyInFee:     types.Uint64(p.BuyInFee),
		VoteTime:     int64(p.VoteTime / time.Second),
		VotingReward: types.Uint64(p.VotingReward),
		PeriodFee:    types.Uint64(p.PeriodFee),
		PeriodLength: int64(p.PeriodLength / time.Second),
	}
}

func paramsFromModel(p models.Params) dao.Params {
	return dao.Params{
		Quorum:       p.Quorum,
		BuyInFee:     uint64(p.BuyInFee),
		VoteTime:     time.Duration(p.VoteTime) * time.Second,
		VotingReward: uint64(p.VotingReward),
		PeriodFee:    uint64(p.PeriodFee),
		PeriodLength: time.Duration(p.PeriodLength) * time.Second,
	}
}

func ballotToModel(kind string, proposalID uint64, b *dao.Ballot) models.Ballot {
	ret := models.Ballot{
		Kind:       kind,
		ProposalID: proposalID,
		Proposer:   string(b.Proposer),
		OpensAt:    b.Start.Unix(),
		ClosesAt:   b.End.Unix(),
		Yes:        b.Yes,
		No:         b.No,
		Eligible:   b.Eligible,
		Quorum:     b.Quorum,
	}
	for i, voter := range b.Voters {
		ret.Votes = append(ret.Votes, models.BallotVote{
			Voter:    string(voter),
			Position: i,
		})
	}
	return ret
}

func ballotFromModel(b models.Ballot) *dao.Ballot {
	ret := &dao.Ballot{
		Proposer: dao.Identity(b.Proposer),
		Start:    time.Unix(b.OpensAt, 0),
		End:      time.Unix(b.ClosesAt, 0),
		Yes:      b.Yes,
		No:       b.No,
		Eligible: b.Eligible,
		Quorum:   b.Quorum,
	}
	for _, vote := range b.Votes {
		ret.Voters = append(ret.Voters, dao.Identity(vote.Voter))
	}
	return ret
}
