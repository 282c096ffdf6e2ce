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

// Package dao implements the member-governed treasury: membership, dues,
// two-round spending proposals, governance proposals and the fund ledger
// that guards solvency.
package dao

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/bits"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/blinklabs-io/coffer/event"
	"github.com/blinklabs-io/coffer/ledger"
)

var tracer = otel.Tracer("github.com/blinklabs-io/coffer/dao")

type Config struct {
	Logger       *slog.Logger
	Clock        ledger.Clock
	Ledger       ledger.Ledger
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	QuorumBasis  QuorumBasis
}

// Genesis describes a freshly deployed DAO
type Genesis struct {
	Founder Identity
	// Deposit is received from Founder and becomes the founder's points
	Deposit uint64
	Params  Params
}

// DAO is the treasury state machine. All methods are safe for concurrent
// use; a single mutex serializes every operation over the whole state.
type DAO struct {
	mu              sync.Mutex
	config          Config
	logger          *slog.Logger
	metrics         *daoMetrics
	params          Params
	paramsVersion   uint64
	genesisTime     time.Time
	nextPeriodStart time.Time
	balance         uint64
	earmarks        map[uint64]uint64
	members         map[Identity]*Member
	joinRequests    map[Identity]*JoinRequest
	spending        []*SpendingProposal
	governance      []*GovernanceProposal
	pending         []event.Event
}

func newDAO(cfg Config) (*DAO, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("dao: no ledger configured")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = ledger.SystemClock{}
	}
	basis, err := ParseQuorumBasis(string(cfg.QuorumBasis))
	if err != nil {
		return nil, err
	}
	cfg.QuorumBasis = basis
	d := &DAO{
		config:       cfg,
		logger:       cfg.Logger.With("component", "dao"),
		earmarks:     make(map[uint64]uint64),
		members:      make(map[Identity]*Member),
		joinRequests: make(map[Identity]*JoinRequest),
	}
	if cfg.PromRegistry != nil {
		d.metrics = &daoMetrics{}
		d.metrics.init(cfg.PromRegistry)
	}
	return d, nil
}

// Deploy creates a new DAO whose only member is the founder. The deposit
// is received from the founder through the ledger.
func Deploy(ctx context.Context, cfg Config, genesis Genesis) (*DAO, error) {
	d, err := newDAO(cfg)
	if err != nil {
		return nil, err
	}
	params := genesis.Params.normalize()
	err = d.run(ctx, "deploy", func(ctx context.Context, now time.Time) error {
		if err := params.Validate(); err != nil {
			return err
		}
		if genesis.Founder == "" {
			return ErrInvalidParams.withf("no founder identity")
		}
		if genesis.Deposit < params.BuyInFee {
			return ErrInsufficientBuyIn.withf(
				"deposit %d is below the buy-in fee %d",
				genesis.Deposit,
				params.BuyInFee,
			)
		}
		if err := d.config.Ledger.Receive(ctx, genesis.Founder, genesis.Deposit); err != nil {
			return ErrTransferFailed.wrap(err)
		}
		d.params = params
		d.paramsVersion = 1
		d.genesisTime = now
		d.nextPeriodStart = now.Add(params.PeriodLength)
		d.members[genesis.Founder] = &Member{
			Identity:        genesis.Founder,
			Points:          genesis.Deposit,
			PeriodPaidUntil: d.nextPeriodStart,
			JoinedAt:        now,
		}
		d.balance = genesis.Deposit
		d.emit(EventDeployed, now, DeployedEvent{
			Founder: genesis.Founder,
			Deposit: genesis.Deposit,
			Params:  params,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.logger.Info(
		"deployed treasury",
		"founder", genesis.Founder,
		"deposit", genesis.Deposit,
		"params", params.String(),
	)
	return d, nil
}

// Restore rebuilds a DAO from a previously captured State
func Restore(cfg Config, st *State) (*DAO, error) {
	d, err := newDAO(cfg)
	if err != nil {
		return nil, err
	}
	if err := d.Load(st); err != nil {
		return nil, err
	}
	return d, nil
}

// run executes one serialized operation. fn must validate everything before
// it mutates state. Events queued by fn are published after the lock is
// released and only if fn succeeded.
func (d *DAO) run(
	ctx context.Context,
	op string,
	fn func(ctx context.Context, now time.Time) error,
) error {
	ctx, span := tracer.Start(ctx, "dao."+op)
	defer span.End()
	d.mu.Lock()
	now := d.config.Clock.Now()
	err := fn(ctx, now)
	evts := d.pending
	d.pending = nil
	if err == nil {
		d.updateMetrics(now)
	}
	d.mu.Unlock()
	if err != nil {
		span.SetAttributes(attribute.String("dao.error_code", string(CodeOf(err))))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.metrics.rejected(op, KindOf(err))
		d.logger.Debug(
			"operation rejected",
			"op", op,
			"error", err,
		)
		return err
	}
	d.metrics.succeeded(op)
	if d.config.EventBus != nil {
		for _, evt := range evts {
			d.config.EventBus.Publish(evt.Type, evt)
		}
	}
	return nil
}

func (d *DAO) emit(evtType event.EventType, now time.Time, data any) {
	d.pending = append(d.pending, event.Event{
		Type:      evtType,
		Timestamp: now,
		Data:      data,
	})
}

// now returns the clock time. Query methods use it without holding the
// lock because the clock is independently synchronized.
func (d *DAO) now() time.Time {
	return d.config.Clock.Now()
}

// nextPeriodStartAt rolls the stored boundary forward in whole periods
// until it lies strictly after now
func (d *DAO) nextPeriodStartAt(now time.Time) time.Time {
	nps := d.nextPeriodStart
	if now.Before(nps) {
		return nps
	}
	length := d.params.PeriodLength
	n := now.Sub(nps)/length + 1
	return nps.Add(n * length)
}

// missedPeriods is the number of whole or partial periods between
// paidUntil and nps, with a minimum of 1
func missedPeriods(paidUntil, nps time.Time, length time.Duration) uint64 {
	gap := nps.Sub(paidUntil)
	if gap <= 0 {
		return 1
	}
	n := uint64((gap + length - 1) / length)
	return max(n, 1)
}

func (d *DAO) isActive(id Identity, now time.Time) bool {
	m, ok := d.members[id]
	return ok && m.ActiveAt(now)
}

func (d *DAO) requireActive(id Identity, now time.Time) error {
	if !d.isActive(id, now) {
		return ErrCallerNotActiveMember.withf("%s is not an active member", id)
	}
	return nil
}

func (d *DAO) activeCount(now time.Time) uint64 {
	var n uint64
	for _, m := range d.members {
		if m.ActiveAt(now) {
			n++
		}
	}
	return n
}

// eligibleVoters counts the electorate under the configured quorum basis
func (d *DAO) eligibleVoters(now time.Time) uint64 {
	if d.config.QuorumBasis == QuorumBasisAll {
		return uint64(len(d.members))
	}
	return d.activeCount(now)
}

func addAmount(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrAmountOverflow.withf("%d + %d overflows", a, b)
	}
	return sum, nil
}

func mulAmount(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrAmountOverflow.withf("%d * %d overflows", a, b)
	}
	return lo, nil
}
