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


// Package types holds the value types and store interfaces shared by the
// metadata and blob halves of the database.
package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrBlobKeyNotFound is returned by blob reads of a missing key
	ErrBlobKeyNotFound = errors.New("blob key not found")
	// ErrTxnWrongType is returned when a store is handed a transaction it
	// did not start
	ErrTxnWrongType = errors.New("invalid transaction type")
	// ErrNilTxn is returned when a write is attempted without a transaction
	ErrNilTxn = errors.New("nil transaction")
)

// Uint64 is stored as a decimal string. Treasury amounts use the full
// unsigned range, which sqlite integers cannot hold.
//
//nolint:recvcheck
type Uint64 uint64

func (u Uint64) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(u), 10), nil
}

func (u *Uint64) Scan(val any) error {
	var s string
	switch v := val.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("expected decimal string, got %T", val)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("scan uint64: %w", err)
	}
	*u = Uint64(n)
	return nil
}

// Txn is the commit/rollback handle of one store. The database layer pairs
// a metadata Txn with a blob Txn.
type Txn interface {
	Commit() error
	Rollback() error
}

// BlobItem is a key/value pair yielded by a BlobIterator
type BlobItem interface {
	Key() []byte
	ValueCopy(dst []byte) ([]byte, error)
}

// BlobIterator walks blob keys in order. Items must only be used while the
// transaction that created the iterator is open.
type BlobIterator interface {
	Seek(key []byte)
	ValidForPrefix(prefix []byte) bool
	Next()
	Item() BlobItem
	Close()
	Err() error
}
