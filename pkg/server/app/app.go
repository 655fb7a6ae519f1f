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

// Package app provides the application for the server and implements its
// operations on profiles, sessions and files.
package app

import (
	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/clock"
	"github.com/praxislearn/praxis/pkg/server/blob"
	"gorm.io/gorm"
)

var (
	// ErrEmptyDB is an error for missing database connection in the app configuration
	ErrEmptyDB = errors.New("No database connection was provided")
	// ErrEmptyClock is an error for missing clock in the app configuration
	ErrEmptyClock = errors.New("No clock was provided")
	// ErrEmptyBlobStore is an error for missing blob store in the app configuration
	ErrEmptyBlobStore = errors.New("No blob store was provided")
)

// App is an application context
type App struct {
	DB                  *gorm.DB
	Clock               clock.Clock
	BlobStore           blob.Store
	DisableRegistration bool
	AppEnv              string
	Port                string
	DBPath              string
}

// Validate validates the app configuration
func (a *App) Validate() error {
	if a.DB == nil {
		return ErrEmptyDB
	}
	if a.Clock == nil {
		return ErrEmptyClock
	}
	if a.BlobStore == nil {
		return ErrEmptyBlobStore
	}

	return nil
}
