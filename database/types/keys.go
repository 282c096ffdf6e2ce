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


package types

import (
	"encoding/binary"
)

// Journal entries and the journal counter live in separate key namespaces
const (
	JournalBlobKeyPrefix   = "je"
	JournalSequenceBlobKey = "js"
)

// BlobKeyUint64ToBytes encodes n big-endian so that keys sort numerically
func BlobKeyUint64ToBytes(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}

// BlobBytesToUint64 decodes a value written by BlobKeyUint64ToBytes
func BlobBytesToUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// JournalBlobKey sorts journal entries by sequence number
func JournalBlobKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte(JournalBlobKeyPrefix), seq)
}

// JournalBlobKeySequence extracts the sequence number from a journal key
func JournalBlobKeySequence(key []byte) (uint64, bool) {
	if len(key) != len(JournalBlobKeyPrefix)+8 ||
		string(key[:len(JournalBlobKeyPrefix)]) != JournalBlobKeyPrefix {
		return 0, false
	}
	return BlobBytesToUint64(key[len(JournalBlobKeyPrefix):]), true
}
