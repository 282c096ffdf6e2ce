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

package models

import "github.com/blinklabs-io/coffer/database/types"

// LedgerAccount is an account balance held outside the treasury pool
type LedgerAccount struct {
	ID       uint         `gorm:"primarykey"`
	Identity string       `gorm:"uniqueIndex;size:255;not null"`
	Balance  types.Uint64 `gorm:"not null"`
}

func (LedgerAccount) TableName() string {
	return "ledger_account"
}

const LedgerPoolRowId = 1

// LedgerPool is the value held by the treasury pool. There is at most
// one row.
type LedgerPool struct {
	ID      uint         `gorm:"primarykey"`
	Balance types.Uint64 `gorm:"not null"`
}

func (LedgerPool) TableName() string {
	return "ledger_pool"
}
