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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/coffer/database/types"
)

// Txn pairs a metadata transaction with a blob transaction. A read-write Txn
// stamps both stores with the same commit timestamp, so that treasury state
// and journal entries written together are detected if only one half lands.
type Txn struct {
	db       *Database
	blob     types.Txn
	metadata types.Txn
	mu       sync.Mutex
	done     bool
	write    bool
}

func NewTxn(db *Database, readWrite bool) *Txn {
	return &Txn{
		db:       db,
		blob:     db.Blob().NewTransaction(readWrite),
		metadata: db.Metadata().Transaction(),
		write:    readWrite,
	}
}

func (t *Txn) DB() *Database {
	return t.db
}

// Metadata returns the metadata half of the transaction
func (t *Txn) Metadata() types.Txn {
	return t.metadata
}

// Blob returns the blob half of the transaction
func (t *Txn) Blob() types.Txn {
	return t.blob
}

// Do runs fn and commits, or rolls back if fn fails
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %w: original error: %w", rbErr, err)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// Commit stamps and commits both halves, the journal first. Read-only
// transactions are released instead.
func (t *Txn) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	if !t.write {
		return t.discard()
	}
	if err := t.db.updateCommitTimestamp(t, time.Now().UnixMilli()); err != nil {
		return errors.Join(
			fmt.Errorf("failed to update commit timestamp: %w", err),
			t.discard(),
		)
	}
	t.done = true
	if err := t.blob.Commit(); err != nil {
		return errors.Join(
			fmt.Errorf("blob commit failed: %w", err),
			t.metadata.Rollback(),
		)
	}
	if err := t.metadata.Commit(); err != nil {
		// The journal is now ahead of the treasury state. The commit
		// timestamp check will refuse to open the database.
		t.db.logger.Error(
			"partial commit: blob committed, metadata failed",
			"error", err,
		)
		return fmt.Errorf("partial commit: metadata commit failed after blob commit: %w", err)
	}
	return nil
}

func (t *Txn) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	return t.discard()
}

func (t *Txn) discard() error {
	t.done = true
	var errs []error
	if err := t.blob.Rollback(); err != nil {
		errs = append(errs, fmt.Errorf("blob rollback: %w", err))
	}
	if err := t.metadata.Rollback(); err != nil {
		errs = append(errs, fmt.Errorf("metadata rollback: %w", err))
	}
	return errors.Join(errs...)
}

// Release rolls back an unfinished transaction and logs any error. It is
// meant for defer statements.
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"error", err,
			"read_write", t.write,
		)
	}
}
