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
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blinklabs-io/coffer/database/models"
	"github.com/blinklabs-io/coffer/database/types"
)

// ReplaceState deletes all saved state rows and inserts rec in their place
func (s *Store) ReplaceState(
	rec *models.StateRecords,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	for _, model := range models.StateModels {
		if result := db.Where("1 = 1").Delete(model); result.Error != nil {
			return fmt.Errorf("clear %T: %w", model, result.Error)
		}
	}
	treasury := rec.Treasury
	treasury.ID = models.TreasuryRowId
	if result := db.Create(&treasury); result.Error != nil {
		return result.Error
	}
	if err := createAll(db, rec.Members); err != nil {
		return err
	}
	if err := createAll(db, rec.JoinRequests); err != nil {
		return err
	}
	if err := createAll(db, rec.Spending); err != nil {
		return err
	}
	if err := createAll(db, rec.Governance); err != nil {
		return err
	}
	if err := createAll(db, rec.Ballots); err != nil {
		return err
	}
	return insertLedger(db, rec.LedgerAccounts, rec.LedgerPool)
}

// ReplaceLedger replaces the saved account and pool balances only
func (s *Store) ReplaceLedger(
	accounts []models.LedgerAccount,
	pool models.LedgerPool,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	for _, model := range []any{&models.LedgerAccount{}, &models.LedgerPool{}} {
		if result := db.Where("1 = 1").Delete(model); result.Error != nil {
			return fmt.Errorf("clear %T: %w", model, result.Error)
		}
	}
	return insertLedger(db, accounts, pool)
}

func insertLedger(
	db *gorm.DB,
	accounts []models.LedgerAccount,
	pool models.LedgerPool,
) error {
	pool.ID = models.LedgerPoolRowId
	if result := db.Create(&pool); result.Error != nil {
		return result.Error
	}
	return createAll(db, accounts)
}

// GetLedger loads the saved account and pool balances. Missing rows read
// as zero balances.
func (s *Store) GetLedger(
	txn types.Txn,
) ([]models.LedgerAccount, models.LedgerPool, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, models.LedgerPool{}, err
	}
	return getLedger(db)
}

func getLedger(db *gorm.DB) ([]models.LedgerAccount, models.LedgerPool, error) {
	var pool models.LedgerPool
	result := db.First(&pool, models.LedgerPoolRowId)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, models.LedgerPool{}, result.Error
	}
	var accounts []models.LedgerAccount
	if result := db.Order("id").Find(&accounts); result.Error != nil {
		return nil, models.LedgerPool{}, result.Error
	}
	return accounts, pool, nil
}

// createAll inserts rows along with their associations. Rows are copied
// so that generated IDs are not written back into the caller's slice.
func createAll[T any](db *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	tmpRows := make([]T, len(rows))
	copy(tmpRows, rows)
	if result := db.Create(&tmpRows); result.Error != nil {
		var zero T
		return fmt.Errorf("insert %T: %w", zero, result.Error)
	}
	return nil
}

// GetState loads all saved state rows. It returns nil if no state has
// been saved.
func (s *Store) GetState(txn types.Txn) (*models.StateRecords, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	rec := &models.StateRecords{}
	result := db.First(&rec.Treasury, models.TreasuryRowId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	byPosition := func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	}
	if result := db.Order("id").Find(&rec.Members); result.Error != nil {
		return nil, result.Error
	}
	if result := db.Preload("Approvals", byPosition).Order("id").Find(&rec.JoinRequests); result.Error != nil {
		return nil, result.Error
	}
	if result := db.Order("proposal_id").Find(&rec.Spending); result.Error != nil {
		return nil, result.Error
	}
	if result := db.Order("proposal_id").Find(&rec.Governance); result.Error != nil {
		return nil, result.Error
	}
	if result := db.Preload("Votes", byPosition).Order("id").Find(&rec.Ballots); result.Error != nil {
		return nil, result.Error
	}
	rec.LedgerAccounts, rec.LedgerPool, err = getLedger(db)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetSetting returns the value stored under key and whether it exists
func (s *Store) GetSetting(key string, txn types.Txn) (string, bool, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return "", false, err
	}
	var tmpSetting models.Setting
	result := db.Where("setting_key = ?", key).First(&tmpSetting)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, result.Error
	}
	return tmpSetting.Value, true, nil
}

// SetSetting creates or replaces the value stored under key
func (s *Store) SetSetting(key, value string, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&models.Setting{Key: key, Value: value})
	return result.Error
}
