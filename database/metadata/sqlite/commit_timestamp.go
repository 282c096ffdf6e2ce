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
	"fmt"
	"strconv"

	"github.com/blinklabs-io/coffer/database/types"
)

// commitTimestampSetting is kept in the setting table beside the other
// treasury settings
const commitTimestampSetting = "commit_timestamp"

// GetCommitTimestamp returns the timestamp of the last coordinated commit,
// or zero for a fresh store
func (s *Store) GetCommitTimestamp() (int64, error) {
	val, ok, err := s.GetSetting(commitTimestampSetting, nil)
	if err != nil || !ok {
		return 0, err
	}
	ts, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid commit timestamp %q: %w", val, err)
	}
	return ts, nil
}

// SetCommitTimestamp records timestamp as part of tx
func (s *Store) SetCommitTimestamp(timestamp int64, tx types.Txn) error {
	if tx == nil {
		return types.ErrNilTxn
	}
	return s.SetSetting(commitTimestampSetting, strconv.FormatInt(timestamp, 10), tx)
}
