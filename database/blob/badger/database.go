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


package badger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/coffer/database/types"
)

const commitTimestampKey = "commit_timestamp"

// Store keeps the treasury event journal in badger. Without a data
// directory the journal is held in memory and lost on Close.
type Store struct {
	db           *badger.DB
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	metrics      *blobMetrics
	dataDir      string
	cacheSize    uint64
	gcEnabled    bool
	gcInterval   time.Duration
	gcStop       chan struct{}
	gcDone       chan struct{}
}

// New opens the journal store
func New(opts ...StoreOptionFunc) (*Store, error) {
	s := &Store{
		cacheSize:  DefaultBlockCacheSize,
		gcEnabled:  true,
		gcInterval: DefaultGcInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	badgerOpts, err := s.badgerOptions()
	if err != nil {
		return nil, err
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	s.db = db
	if s.promRegistry != nil {
		s.registerBlobMetrics()
	}
	// Value log GC only applies to on-disk stores
	if s.gcEnabled && s.dataDir != "" {
		s.gcStop = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGc()
	}
	return s, nil
}

func (s *Store) badgerOptions() (badger.Options, error) {
	var opts badger.Options
	if s.dataDir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		journalDir := filepath.Join(s.dataDir, "journal")
		if err := os.MkdirAll(journalDir, 0o755); err != nil {
			return opts, fmt.Errorf("create journal dir: %w", err)
		}
		opts = badger.DefaultOptions(journalDir).
			WithBlockCacheSize(int64(s.cacheSize)). //nolint:gosec // cache size is operator supplied
			WithCompression(options.Snappy)
	}
	// The default INFO logging is a bit verbose
	return opts.
		WithLogger(NewBadgerLogger(s.logger)).
		WithLoggingLevel(badger.WARNING), nil
}

func (s *Store) runGc() {
	defer close(s.gcDone)
	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.gcStop:
			return
		case <-ticker.C:
			s.collectGarbage()
		}
	}
}

// collectGarbage rewrites value log files until badger finds nothing left
// to reclaim
func (s *Store) collectGarbage() {
	for {
		err := s.db.RunValueLogGC(0.5)
		if err == nil {
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) {
			s.logger.Warn(
				"journal value log GC failed",
				"component", "database",
				"error", err,
			)
		}
		return
	}
}

// Close stops background GC and closes badger
func (s *Store) Close() error {
	if s.gcStop != nil {
		close(s.gcStop)
		<-s.gcDone
		s.gcStop = nil
	}
	return s.db.Close()
}

// DataDir returns the configured data directory, empty for in-memory stores
func (s *Store) DataDir() string {
	return s.dataDir
}

// Get returns a copy of the value stored under key
func (s *Store) Get(tx types.Txn, key []byte) ([]byte, error) {
	btx, err := s.badgerTxn(tx)
	if err != nil {
		return nil, err
	}
	item, err := btx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, types.ErrBlobKeyNotFound
	} else if err != nil {
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	s.metrics.read(len(val))
	return val, nil
}

// Set stores val under key
func (s *Store) Set(tx types.Txn, key, val []byte) error {
	btx, err := s.badgerTxn(tx)
	if err != nil {
		return err
	}
	if err := btx.Set(key, val); err != nil {
		return err
	}
	s.metrics.written(len(val))
	return nil
}

// NewIterator walks the keys starting with prefix. Items are only valid
// while tx is open.
func (s *Store) NewIterator(tx types.Txn, prefix []byte) types.BlobIterator {
	btx, err := s.badgerTxn(tx)
	if err != nil {
		return &iterator{err: err}
	}
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	return &iterator{it: btx.NewIterator(opts)}
}

// GetCommitTimestamp returns the timestamp written by the last coordinated
// commit
func (s *Store) GetCommitTimestamp() (int64, error) {
	tx := s.NewTransaction(false)
	defer tx.Rollback() //nolint:errcheck
	val, err := s.Get(tx, []byte(commitTimestampKey))
	if err != nil {
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("invalid commit timestamp length %d", len(val))
	}
	return int64(types.BlobBytesToUint64(val)), nil //nolint:gosec // written from an int64
}

// SetCommitTimestamp records timestamp as part of tx
func (s *Store) SetCommitTimestamp(timestamp int64, tx types.Txn) error {
	return s.Set(
		tx,
		[]byte(commitTimestampKey),
		types.BlobKeyUint64ToBytes(uint64(timestamp)), //nolint:gosec // read back as int64
	)
}
