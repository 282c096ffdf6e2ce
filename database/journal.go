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
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/coffer/database/types"
	"github.com/blinklabs-io/coffer/event"
)

// JournalEntry is one event as recorded in the blob store
type JournalEntry struct {
	Seq       uint64          `json:"seq"`
	Type      event.EventType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Journal buffers published events until Flush writes them to the blob
// store as part of a transaction
type Journal struct {
	db      *Database
	mu      sync.Mutex
	pending []event.Event
}

var _ event.Subscriber = (*Journal)(nil)

func NewJournal(db *Database) *Journal {
	return &Journal{db: db}
}

// Subscribe registers the journal for each of the given event types
func (j *Journal) Subscribe(bus *event.EventBus, eventTypes ...event.EventType) {
	for _, evtType := range eventTypes {
		bus.RegisterSubscriber(evtType, j)
	}
}

func (j *Journal) Deliver(evt event.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pending = append(j.pending, evt)
	return nil
}

func (j *Journal) Close() {}

// Pending returns the number of buffered events
func (j *Journal) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}

// Discard drops buffered events
func (j *Journal) Discard() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pending = nil
}

// Flush appends buffered events to the journal within txn and returns the
// number written. The buffer is emptied even on error.
func (j *Journal) Flush(txn *Txn) (int, error) {
	j.mu.Lock()
	evts := j.pending
	j.pending = nil
	j.mu.Unlock()
	if len(evts) == 0 {
		return 0, nil
	}
	if txn == nil {
		return 0, types.ErrNilTxn
	}
	blobStore := j.db.Blob()
	seq, err := journalSequence(blobStore.Get(txn.Blob(), []byte(types.JournalSequenceBlobKey)))
	if err != nil {
		return 0, err
	}
	for _, evt := range evts {
		seq++
		entry := JournalEntry{
			Seq:       seq,
			Type:      evt.Type,
			Timestamp: evt.Timestamp.UTC(),
		}
		if evt.Data != nil {
			data, err := json.Marshal(evt.Data)
			if err != nil {
				return 0, fmt.Errorf("encode %s event: %w", evt.Type, err)
			}
			entry.Data = data
		}
		entryBytes, err := json.Marshal(entry)
		if err != nil {
			return 0, fmt.Errorf("encode journal entry: %w", err)
		}
		if err := blobStore.Set(txn.Blob(), types.JournalBlobKey(seq), entryBytes); err != nil {
			return 0, fmt.Errorf("write journal entry %d: %w", seq, err)
		}
	}
	if err := blobStore.Set(
		txn.Blob(),
		[]byte(types.JournalSequenceBlobKey),
		types.BlobKeyUint64ToBytes(seq),
	); err != nil {
		return 0, fmt.Errorf("write journal sequence: %w", err)
	}
	return len(evts), nil
}

func journalSequence(val []byte, err error) (uint64, error) {
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("read journal sequence: %w", err)
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("invalid journal sequence length %d", len(val))
	}
	return types.BlobBytesToUint64(val), nil
}

// JournalEntries returns up to limit entries with a sequence number greater
// than after, oldest first. A limit of zero or less returns all of them.
func (d *Database) JournalEntries(after uint64, limit int) ([]JournalEntry, error) {
	txn := d.Transaction(false)
	defer txn.Release()
	prefix := []byte(types.JournalBlobKeyPrefix)
	iter := d.Blob().NewIterator(txn.Blob(), prefix)
	defer iter.Close()
	var ret []JournalEntry
	for iter.Seek(types.JournalBlobKey(after + 1)); iter.ValidForPrefix(prefix); iter.Next() {
		item := iter.Item()
		seq, ok := types.JournalBlobKeySequence(item.Key())
		if !ok {
			return nil, fmt.Errorf("malformed journal key %x", item.Key())
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, fmt.Errorf("read journal entry %d: %w", seq, err)
		}
		var entry JournalEntry
		if err := json.Unmarshal(val, &entry); err != nil {
			return nil, fmt.Errorf("decode journal entry %d: %w", seq, err)
		}
		ret = append(ret, entry)
		if limit > 0 && len(ret) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// JournalSequence returns the sequence number of the newest journal entry
func (d *Database) JournalSequence() (uint64, error) {
	txn := d.Transaction(false)
	defer txn.Release()
	return journalSequence(d.Blob().Get(txn.Blob(), []byte(types.JournalSequenceBlobKey)))
}
