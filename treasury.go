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

// Package coffer ties the treasury state machine to its persistent store.
// Every state-changing call is written to the database before it returns,
// and in-memory state is rolled back when the write fails.
package coffer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/coffer/dao"
	"github.com/blinklabs-io/coffer/database"
	"github.com/blinklabs-io/coffer/event"
	"github.com/blinklabs-io/coffer/ledger"
)

var (
	ErrNotDeployed     = errors.New("treasury has not been deployed")
	ErrAlreadyDeployed = errors.New("treasury is already deployed")
	ErrNotDevMode      = errors.New("clock can only be moved in dev mode")
	ErrClosed          = errors.New("treasury is closed")
	ErrInsolvent       = errors.New("treasury is not covered by the ledger pool")
)

// Ledger is a ledger.Ledger whose balances can be captured and restored
// alongside the treasury state
type Ledger interface {
	ledger.Ledger
	Credit(id ledger.Identity, amount uint64) error
	AccountBalance(id ledger.Identity) uint64
	Snapshot() ledger.Snapshot
	Restore(ledger.Snapshot)
}

type Treasury struct {
	config        Config
	logger        *slog.Logger
	db            *database.Database
	dao           *dao.DAO
	ledger        Ledger
	clock         ledger.Clock
	devClock      *ledger.ManualClock
	quorumBasis   dao.QuorumBasis
	eventBus      *event.EventBus
	journal       *database.Journal
	shutdownFuncs []func(context.Context) error
	mu            sync.Mutex
	closed        bool
}

// New opens the treasury database and restores any saved state
func New(cfg Config) (*Treasury, error) {
	t := &Treasury{
		config: cfg,
		logger: cfg.logger.With("component", "coffer"),
	}
	if cfg.tracing {
		if err := t.setupTracing(); err != nil {
			return nil, err
		}
	}
	db, err := database.New(&database.Config{
		Logger:        cfg.logger,
		PromRegistry:  cfg.promRegistry,
		DataDir:       cfg.dataDir,
		BlobCacheSize: cfg.blobCacheSize,
	})
	if err != nil {
		if db != nil {
			err = errors.Join(err, db.Close())
		}
		return nil, errors.Join(fmt.Errorf("open database: %w", err), t.shutdown())
	}
	t.db = db
	t.eventBus = event.NewEventBus(cfg.promRegistry, cfg.logger)
	t.journal = database.NewJournal(db)
	t.journal.Subscribe(t.eventBus, dao.EventTypes...)
	if err := t.load(); err != nil {
		return nil, errors.Join(err, t.Close())
	}
	return t, nil
}

func (t *Treasury) load() error {
	// Ledger
	t.ledger = t.config.ledger
	if t.ledger == nil {
		t.ledger = ledger.NewMemoryLedger()
	}
	snap, err := t.db.LoadLedger(nil)
	if err != nil {
		return err
	}
	if len(snap.Accounts) > 0 || snap.Pool > 0 {
		t.ledger.Restore(snap)
	}
	// Clock
	if err := t.loadClock(); err != nil {
		return err
	}
	// Quorum basis
	basis, ok, err := t.db.Setting(database.SettingQuorumBasis, nil)
	if err != nil {
		return err
	}
	if !ok {
		basis = string(t.config.quorumBasis)
	}
	t.quorumBasis, err = dao.ParseQuorumBasis(basis)
	if err != nil {
		return err
	}
	if ok && t.config.quorumBasis != "" && t.config.quorumBasis != t.quorumBasis {
		t.logger.Warn(
			"ignoring configured quorum basis for deployed treasury",
			"configured", t.config.quorumBasis,
			"quorum_basis", t.quorumBasis,
		)
	}
	// Treasury state
	st, _, err := t.db.LoadState(nil)
	if err != nil {
		if errors.Is(err, database.ErrStateNotFound) {
			t.logger.Debug("no saved treasury state")
			return nil
		}
		return err
	}
	d, err := dao.Restore(t.daoConfig(true), st)
	if err != nil {
		return fmt.Errorf("restore treasury: %w", err)
	}
	if err := d.CheckSolvency(context.Background()); err != nil {
		return fmt.Errorf("restore treasury: %w: %w", ErrInsolvent, err)
	}
	t.dao = d
	t.logger.Info(
		"restored treasury",
		"members", d.MemberCount(),
		"balance", d.Balance(),
		"params_version", d.ParamsVersion(),
	)
	return nil
}

func (t *Treasury) loadClock() error {
	if !t.config.devMode {
		t.clock = t.config.clock
		if t.clock == nil {
			t.clock = ledger.SystemClock{}
		}
		return nil
	}
	saved, ok, err := t.db.DevClock(nil)
	if err != nil {
		return err
	}
	mc, isManual := t.config.clock.(*ledger.ManualClock)
	switch {
	case isManual:
		t.devClock = mc
		if ok {
			t.devClock.Set(saved)
		}
	case ok:
		t.devClock = ledger.NewManualClock(saved)
	case t.config.clock != nil:
		t.devClock = ledger.NewManualClock(t.config.clock.Now())
	default:
		t.devClock = ledger.NewManualClock(time.Now())
	}
	t.clock = t.devClock
	t.logger.Debug("using dev mode clock", "now", t.devClock.Now())
	return nil
}

func (t *Treasury) daoConfig(metered bool) dao.Config {
	cfg := dao.Config{
		Logger:      t.config.logger,
		Clock:       t.clock,
		Ledger:      t.ledger,
		EventBus:    t.eventBus,
		QuorumBasis: t.quorumBasis,
	}
	if metered {
		cfg.PromRegistry = t.config.promRegistry
	}
	return cfg
}

// Deploy creates the treasury from genesis and saves it
func (t *Treasury) Deploy(ctx context.Context, genesis dao.Genesis) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.dao != nil {
		return ErrAlreadyDeployed
	}
	ledgerBefore := t.ledger.Snapshot()
	// The unmetered instance is replaced once the state is saved, so a failed
	// save leaves no metrics registered
	d, err := dao.Deploy(ctx, t.daoConfig(false), genesis)
	if err != nil {
		t.journal.Discard()
		return err
	}
	if err := d.CheckSolvency(ctx); err != nil {
		t.ledger.Restore(ledgerBefore)
		t.journal.Discard()
		return fmt.Errorf("%w: %w", ErrInsolvent, err)
	}
	st := d.Snapshot()
	err = t.db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := t.db.SetSetting(
			database.SettingQuorumBasis,
			string(t.quorumBasis),
			txn,
		); err != nil {
			return err
		}
		return t.persist(st, txn)
	})
	if err != nil {
		t.ledger.Restore(ledgerBefore)
		t.journal.Discard()
		return fmt.Errorf("save treasury: %w", err)
	}
	d, err = dao.Restore(t.daoConfig(true), st)
	if err != nil {
		return fmt.Errorf("restore treasury: %w", err)
	}
	t.dao = d
	return nil
}

// Exec runs fn against the treasury and saves the resulting state. The new
// balance must be covered by the ledger pool. If fn, that check or the save
// fails, the treasury and ledger are returned to their prior state.
func (t *Treasury) Exec(
	ctx context.Context,
	fn func(ctx context.Context, d *dao.DAO) error,
) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.dao == nil {
		return ErrNotDeployed
	}
	before := t.dao.Snapshot()
	ledgerBefore := t.ledger.Snapshot()
	if err := fn(ctx, t.dao); err != nil {
		return errors.Join(err, t.rollback(before, ledgerBefore))
	}
	if err := t.dao.CheckSolvency(ctx); err != nil {
		t.logger.Error("treasury balance not covered by ledger pool", "error", err)
		return errors.Join(
			fmt.Errorf("%w: %w", ErrInsolvent, err),
			t.rollback(before, ledgerBefore),
		)
	}
	err := t.db.Transaction(true).Do(func(txn *database.Txn) error {
		return t.persist(t.dao.Snapshot(), txn)
	})
	if err != nil {
		t.logger.Error("failed to save treasury state", "error", err)
		return errors.Join(
			fmt.Errorf("save treasury: %w", err),
			t.rollback(before, ledgerBefore),
		)
	}
	return nil
}

// persist writes the treasury state, the ledger and any buffered journal
// events within txn. The caller must hold t.mu.
func (t *Treasury) persist(st *dao.State, txn *database.Txn) error {
	if err := t.db.SaveState(st, t.ledger.Snapshot(), txn); err != nil {
		return err
	}
	if _, err := t.journal.Flush(txn); err != nil {
		return err
	}
	if t.devClock != nil {
		if err := t.db.SetDevClock(t.devClock.Now(), txn); err != nil {
			return err
		}
	}
	return nil
}

func (t *Treasury) rollback(st *dao.State, snap ledger.Snapshot) error {
	t.journal.Discard()
	t.ledger.Restore(snap)
	if err := t.dao.Load(st); err != nil {
		return fmt.Errorf("roll back treasury: %w", err)
	}
	return nil
}

// Credit adds funds to an identity's ledger account, outside the treasury pool
func (t *Treasury) Credit(ctx context.Context, id dao.Identity, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	before := t.ledger.Snapshot()
	if err := t.ledger.Credit(id, amount); err != nil {
		return err
	}
	var err error
	if t.dao == nil {
		err = t.db.SaveLedger(t.ledger.Snapshot(), nil)
	} else {
		err = t.db.SaveState(t.dao.Snapshot(), t.ledger.Snapshot(), nil)
	}
	if err != nil {
		t.ledger.Restore(before)
		return fmt.Errorf("save ledger: %w", err)
	}
	t.logger.Debug("credited account", "identity", id, "amount", amount)
	return nil
}

// AccountBalance returns the ledger balance held by an identity
func (t *Treasury) AccountBalance(id dao.Identity) uint64 {
	return t.ledger.AccountBalance(id)
}

// AdvanceClock moves the dev mode clock forward and returns the new time
func (t *Treasury) AdvanceClock(d time.Duration) (time.Time, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return time.Time{}, ErrClosed
	}
	if t.devClock == nil {
		return time.Time{}, ErrNotDevMode
	}
	now := t.devClock.Now()
	if d < time.Second {
		return now, nil
	}
	target := now.Add(d.Truncate(time.Second))
	if err := t.db.SetDevClock(target, nil); err != nil {
		return now, fmt.Errorf("save clock: %w", err)
	}
	t.devClock.Set(target)
	if t.dao != nil {
		t.dao.RefreshMetrics()
	}
	t.logger.Info("advanced clock", "now", target)
	return target, nil
}

// Journal returns up to limit journal entries recorded after sequence number after
func (t *Treasury) Journal(after uint64, limit int) ([]database.JournalEntry, error) {
	return t.db.JournalEntries(after, limit)
}

// DAO returns the deployed treasury, or nil before deployment. Its query
// methods are safe to call directly; state changes should go through Exec.
func (t *Treasury) DAO() *dao.DAO {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dao
}

// Deployed reports whether genesis has been run
func (t *Treasury) Deployed() bool {
	return t.DAO() != nil
}

func (t *Treasury) Now() time.Time {
	return t.clock.Now()
}

func (t *Treasury) Clock() ledger.Clock {
	return t.clock
}

func (t *Treasury) IsDevMode() bool {
	return t.devClock != nil
}

func (t *Treasury) QuorumBasis() dao.QuorumBasis {
	return t.quorumBasis
}

func (t *Treasury) EventBus() *event.EventBus {
	return t.eventBus
}

func (t *Treasury) Logger() *slog.Logger {
	return t.logger
}

func (t *Treasury) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var err error
	for _, fn := range t.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	t.shutdownFuncs = nil
	return err
}

// Close stops the event bus, flushes tracing and closes the database
func (t *Treasury) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.eventBus != nil {
		t.eventBus.Stop()
	}
	err := t.shutdown()
	if t.db != nil {
		if closeErr := t.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}
	t.logger.Debug("treasury closed")
	return err
}
