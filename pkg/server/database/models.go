/* Copyright 2025 Praxis Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"time"
)

// Model is the base model definition
type Model struct {
	ID        int       `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Profile is a model for a learning profile. State holds the serialized
// profile state; the server never stores the recovery secret, only its hash.
type Profile struct {
	Model
	UUID               string     `json:"uuid" gorm:"uniqueIndex;type:text"`
	RecoverySecretHash string     `json:"-"`
	State              string     `json:"-"`
	StateUpdatedAt     int64      `json:"-" gorm:"default:0"`
	LastLoginAt        *time.Time `json:"-"`
}

// Session represents a profile session
type Session struct {
	Model
	ProfileID  int    `gorm:"index"`
	Key        string `gorm:"index"`
	LastUsedAt time.Time
	ExpiresAt  time.Time
}

// File is a model for a vault file. The content lives in the blob store at
// StoragePath; the row holds metadata only.
type File struct {
	Model
	UUID        string `json:"uuid" gorm:"uniqueIndex;type:text"`
	ProfileID   int    `json:"-" gorm:"index"`
	Name        string `json:"name"`
	Mime        string `json:"mime"`
	Size        int64  `json:"size"`
	Checksum    string `json:"checksum"`
	StoragePath string `json:"-"`
}
