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


package sqlite

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/blinklabs-io/coffer/database/models"
	"github.com/blinklabs-io/coffer/database/types"
)

const (
	metadataFile = "metadata.sqlite"
	// WAL journaling with a busy timeout for the serve loop and CLI sharing
	// one data directory
	onDiskPragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=cache_size(-20000)"

	vacuumInterval = 24 * time.Hour
)

// memoryDbCounter gives each in-memory store its own shared-cache database
var memoryDbCounter atomic.Uint64

var errTxnFinished = errors.New("transaction already finished")

type txn struct {
	store *Store
	db    *gorm.DB
	done  bool
}

func (t *txn) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.db.Commit().Error
}

func (t *txn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.db.Rollback().Error
}

// Store keeps the relational treasury state, ledger balances and settings
// in sqlite. Without a data directory the database lives in memory.
type Store struct {
	promRegistry prometheus.Registerer
	db           *gorm.DB
	logger       *slog.Logger
	dataDir      string
	vacuumStop   chan struct{}
	vacuumDone   chan struct{}
	closeOnce    sync.Once
}

// New opens the metadata store and migrates its schema
func New(opts ...StoreOptionFunc) (*Store, error) {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	dsn, err := s.dsn()
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s.db = db
	if err := s.init(); err != nil {
		// Store is available for recovery, so return it with error
		return s, err
	}
	return s, nil
}

func (s *Store) dsn() (string, error) {
	if s.dataDir == "" {
		// cache=shared lets every pooled connection see the same database
		return fmt.Sprintf(
			"file:coffer-%d?mode=memory&cache=shared",
			memoryDbCounter.Add(1),
		), nil
	}
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return fmt.Sprintf(
		"file:%s?%s",
		filepath.Join(s.dataDir, metadataFile),
		onDiskPragmas,
	), nil
}

func (s *Store) init() error {
	if err := s.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
	if s.promRegistry != nil {
		sqlDb, err := s.db.DB()
		if err != nil {
			return err
		}
		if err := s.promRegistry.Register(
			collectors.NewDBStatsCollector(sqlDb, "metadata"),
		); err != nil {
			return err
		}
	}
	for _, model := range models.MigrateModels {
		s.logger.Debug(
			fmt.Sprintf("creating table: %T", model),
			"component", "database",
		)
		if err := s.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	if s.dataDir != "" {
		s.vacuumStop = make(chan struct{})
		s.vacuumDone = make(chan struct{})
		go s.vacuumLoop(vacuumInterval)
	}
	return nil
}

// vacuumLoop frees unused pages once per interval until Close
func (s *Store) vacuumLoop(interval time.Duration) {
	defer close(s.vacuumDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.vacuumStop:
			return
		case <-ticker.C:
			s.logger.Debug(
				"running vacuum on sqlite metadata database",
				"component", "database",
			)
			if err := s.db.Exec("VACUUM").Error; err != nil {
				s.logger.Error(
					"failed to free unused space in metadata store",
					"component", "database",
					"error", err,
				)
			}
		}
	}
}

// Close stops the vacuum loop and closes the database
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.vacuumStop != nil {
			close(s.vacuumStop)
			<-s.vacuumDone
		}
		sqlDb, dbErr := s.db.DB()
		if dbErr != nil {
			err = fmt.Errorf("get database handle: %w", dbErr)
			return
		}
		err = sqlDb.Close()
	})
	return err
}

// DB returns the underlying GORM database handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// DataDir returns the configured data directory, empty for in-memory stores
func (s *Store) DataDir() string {
	return s.dataDir
}

// Transaction begins a sqlite transaction
func (s *Store) Transaction() types.Txn {
	return &txn{store: s, db: s.db.Begin()}
}

// resolveDB returns the gorm handle for tx, or the base handle when tx is
// nil
func (s *Store) resolveDB(tx types.Txn) (*gorm.DB, error) {
	if tx == nil {
		return s.db, nil
	}
	t, ok := tx.(*txn)
	if !ok || t.store != s {
		return nil, types.ErrTxnWrongType
	}
	if t.done {
		return nil, errTxnFinished
	}
	if t.db.Error != nil {
		return nil, t.db.Error
	}
	return t.db, nil
}
