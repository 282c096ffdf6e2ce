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

type Member struct {
	ID              uint         `gorm:"primarykey"`
	Identity        string       `gorm:"uniqueIndex;size:255;not null"`
	Points          types.Uint64 `gorm:"not null"`
	PeriodPaidUntil int64        `gorm:"index;not null"`
	JoinedAt        int64        `gorm:"not null"`
}

func (Member) TableName() string {
	return "member"
}

type JoinRequest struct {
	ID          uint           `gorm:"primarykey"`
	Identity    string         `gorm:"uniqueIndex;size:255;not null"`
	FeeOffered  types.Uint64   `gorm:"not null"`
	RequestedAt int64          `gorm:"not null"`
	Approvals   []JoinApproval `gorm:"foreignKey:JoinRequestID;constraint:OnDelete:CASCADE"`
}

func (JoinRequest) TableName() string {
	return "join_request"
}

// JoinApproval records one member's approval of a join request. Position
// preserves approval order.
type JoinApproval struct {
	ID            uint   `gorm:"primarykey"`
	JoinRequestID uint   `gorm:"uniqueIndex:idx_join_approval,priority:1;not null"`
	Approver      string `gorm:"uniqueIndex:idx_join_approval,priority:2;size:255;not null"`
	Position      int    `gorm:"not null"`
}

func (JoinApproval) TableName() string {
	return "join_approval"
}
