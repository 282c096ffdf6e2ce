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

const TreasuryRowId = 1

// Treasury holds the scalar DAO state and the parameters in force.
// There is at most one row.
type Treasury struct {
	ID              uint         `gorm:"primarykey"`
	ParamsVersion   uint64       `gorm:"not null"`
	GenesisTime     int64        `gorm:"not null"`
	NextPeriodStart int64        `gorm:"not null"`
	Balance         types.Uint64 `gorm:"not null"`
	Params          Params       `gorm:"embedded;embeddedPrefix:param_"`
}

func (Treasury) TableName() string {
	return "treasury"
}

// Params is embedded wherever a full parameter set is stored. Durations
// are whole seconds.
type Params struct {
	Quorum       uint64       `gorm:"not null"`
	BuyInFee     types.Uint64 `gorm:"not null"`
	VoteTime     int64        `gorm:"not null"`
	VotingReward types.Uint64 `gorm:"not null"`
	PeriodFee    types.Uint64 `gorm:"not null"`
	PeriodLength int64        `gorm:"not null"`
}
