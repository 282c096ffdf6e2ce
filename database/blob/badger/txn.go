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

	badger "github.com/dgraph-io/badger/v4"

	"github.com/blinklabs-io/coffer/database/types"
)

// ErrTxnFinished is returned when a committed or discarded transaction is
// used again
var ErrTxnFinished = errors.New("transaction already finished")

type txn struct {
	store *Store
	tx    *badger.Txn
	done  bool
}

// NewTransaction starts a badger transaction. Commit and Rollback may be
// called any number of times; only the first has an effect.
func (s *Store) NewTransaction(update bool) types.Txn {
	return &txn{store: s, tx: s.db.NewTransaction(update)}
}

func (t *txn) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Commit()
}

func (t *txn) Rollback() error {
	if !t.done {
		t.done = true
		t.tx.Discard()
	}
	return nil
}

// badgerTxn unwraps a live transaction started by this store
func (s *Store) badgerTxn(tx types.Txn) (*badger.Txn, error) {
	if tx == nil {
		return nil, types.ErrNilTxn
	}
	t, ok := tx.(*txn)
	if !ok || t.store != s {
		return nil, types.ErrTxnWrongType
	}
	if t.done {
		return nil, ErrTxnFinished
	}
	return t.tx, nil
}

// iterator adapts a badger iterator. A nil it reports err and yields nothing.
type iterator struct {
	it  *badger.Iterator
	err error
}

func (i *iterator) Seek(key []byte) {
	if i.it != nil {
		i.it.Seek(key)
	}
}

func (i *iterator) ValidForPrefix(prefix []byte) bool {
	return i.it != nil && i.it.ValidForPrefix(prefix)
}

func (i *iterator) Next() {
	i.it.Next()
}

func (i *iterator) Item() types.BlobItem {
	return i.it.Item()
}

func (i *iterator) Close() {
	if i.it != nil {
		i.it.Close()
	}
}

func (i *iterator) Err() error {
	return i.err
}
