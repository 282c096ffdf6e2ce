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


// Package database persists the treasury. Relational state, ledger balances
// and settings live in a sqlite metadata store; the event journal lives in a
// badger blob store. Both are committed together through Txn.
package database

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/coffer/database/blob"
	"github.com/blinklabs-io/coffer/database/blob/badger"
	"github.com/blinklabs-io/coffer/database/metadata"
	"github.com/blinklabs-io/coffer/database/metadata/sqlite"
)

// Config holds the database configuration
type Config struct {
	Logger        *slog.Logger
	PromRegistry  prometheus.Registerer
	DataDir       string
	BlobCacheSize uint64
	// DisableBlobGc turns off badger value log GC for on-disk stores
	DisableBlobGc bool
}

type Database struct {
	logger   *slog.Logger
	blob     blob.BlobStore
	metadata metadata.MetadataStore
	dataDir  string
}

// New opens both stores under cfg.DataDir, or in memory when it is empty.
// When the stores disagree on their last commit the database is returned
// together with a CommitTimestampError so that it can be inspected.
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	metadataStore, err := sqlite.New(
		sqlite.WithLogger(logger),
		sqlite.WithPromRegistry(cfg.PromRegistry),
		sqlite.WithDataDir(cfg.DataDir),
	)
	if err != nil {
		if metadataStore != nil {
			_ = metadataStore.Close()
		}
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	blobOpts := []badger.StoreOptionFunc{
		badger.WithLogger(logger),
		badger.WithPromRegistry(cfg.PromRegistry),
		badger.WithDataDir(cfg.DataDir),
		badger.WithGc(!cfg.DisableBlobGc),
	}
	if cfg.BlobCacheSize > 0 {
		blobOpts = append(blobOpts, badger.WithBlockCacheSize(cfg.BlobCacheSize))
	}
	blobStore, err := badger.New(blobOpts...)
	if err != nil {
		_ = metadataStore.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	db := &Database{
		logger:   logger.With("component", "database"),
		blob:     blobStore,
		metadata: metadataStore,
		dataDir:  cfg.DataDir,
	}
	if err := db.checkCommitTimestamp(); err != nil {
		return db, err
	}
	return db, nil
}

// Blob returns the journal store
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// Metadata returns the relational store
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Transaction starts a transaction spanning both stores
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close closes both stores
func (d *Database) Close() error {
	return errors.Join(d.metadata.Close(), d.blob.Close())
}
