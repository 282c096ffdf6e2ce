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

package metadata

import (
	"gorm.io/gorm"

	"github.com/blinklabs-io/coffer/database/models"
	"github.com/blinklabs-io/coffer/database/types"
)

// MetadataStore is the relational half of the database
type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Treasury state
	ReplaceState(*models.StateRecords, types.Txn) error
	GetState(types.Txn) (*models.StateRecords, error)

	// Ledger balances
	ReplaceLedger([]models.LedgerAccount, models.LedgerPool, types.Txn) error
	GetLedger(types.Txn) ([]models.LedgerAccount, models.LedgerPool, error)

	// Settings
	GetSetting(string, types.Txn) (string, bool, error)
	SetSetting(string, string, types.Txn) error
}
