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

package types_test

import (
	"database/sql"
	"database/sql/driver"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/coffer/database/types"
)

func TestUint64ScanValue(t *testing.T) {
	for _, v := range []uint64{0, 123, math.MaxInt64 + 1, math.MaxUint64} {
		orig := types.Uint64(v)
		var valuer driver.Valuer = orig
		out, err := valuer.Value()
		require.NoError(t, err)
		var tmp types.Uint64
		var scanner sql.Scanner = &tmp
		require.NoError(t, scanner.Scan(out))
		assert.Equal(t, orig, tmp)
		require.NoError(t, scanner.Scan([]byte(out.(string))))
		assert.Equal(t, orig, tmp)
	}
	var tmp types.Uint64
	require.Error(t, tmp.Scan(int64(5)))
	require.Error(t, tmp.Scan("-1"))
}

func TestJournalBlobKey(t *testing.T) {
	a := types.JournalBlobKey(1)
	b := types.JournalBlobKey(256)
	assert.Less(t, string(a), string(b), "keys must sort by sequence")
	seq, ok := types.JournalBlobKeySequence(b)
	require.True(t, ok)
	assert.Equal(t, uint64(256), seq)
	_, ok = types.JournalBlobKeySequence([]byte(types.JournalSequenceBlobKey))
	assert.False(t, ok)
	assert.False(
		t,
		strings.HasPrefix(types.JournalSequenceBlobKey, types.JournalBlobKeyPrefix),
		"the journal counter must not sort among the entries",
	)
}

func TestBlobKeyUint64(t *testing.T) {
	for _, v := range []uint64{0, 1, 1_700_000_000_123, math.MaxUint64} {
		b := types.BlobKeyUint64ToBytes(v)
		require.Len(t, b, 8)
		assert.Equal(t, v, types.BlobBytesToUint64(b))
	}
}
