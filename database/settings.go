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
	"fmt"
	"strconv"
	"time"

	"github.com/blinklabs-io/coffer/database/types"
)

const (
	// SettingDevClock holds the unix time of the manual clock in dev mode
	SettingDevClock = "dev_clock"
	// SettingQuorumBasis records the quorum basis the treasury was created with
	SettingQuorumBasis = "quorum_basis"
)

func metadataTxn(txn *Txn) types.Txn {
	if txn == nil {
		return nil
	}
	return txn.Metadata()
}

// Setting returns the value stored under key and whether it was found
func (d *Database) Setting(key string, txn *Txn) (string, bool, error) {
	return d.Metadata().GetSetting(key, metadataTxn(txn))
}

// SetSetting stores value under key
func (d *Database) SetSetting(key, value string, txn *Txn) error {
	return d.Metadata().SetSetting(key, value, metadataTxn(txn))
}

// DevClock returns the saved dev mode clock time
func (d *Database) DevClock(txn *Txn) (time.Time, bool, error) {
	val, ok, err := d.Setting(SettingDevClock, txn)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	secs, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid %s setting %q: %w", SettingDevClock, val, err)
	}
	return time.Unix(secs, 0), true, nil
}

// SetDevClock saves the dev mode clock time with second resolution
func (d *Database) SetDevClock(t time.Time, txn *Txn) error {
	return d.SetSetting(SettingDevClock, strconv.FormatInt(t.Unix(), 10), txn)
}
