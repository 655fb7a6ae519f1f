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

// Package consts provides definitions of constants
package consts

var (
	// LegacyPraxisDirName is the name of the legacy directory containing praxis files
	LegacyPraxisDirName = ".praxis"
	// PraxisDirName is the name of the directory containing praxis files
	PraxisDirName = "praxis"
	// PraxisDBFileName is a filename for the Praxis SQLite database
	PraxisDBFileName = "praxis.db"
	// ConfigFilename is the name of the config file
	ConfigFilename = "praxisrc"

	// LegacyProgressFilename is the legacy file holding pre-migration progress data
	LegacyProgressFilename = "progress.json"
	// LegacyOnboardingFilename is the legacy file holding pre-migration onboarding data
	LegacyOnboardingFilename = "onboarding.json"

	// SystemSchema is the key for schema in the system table
	SystemSchema = "schema"
	// SystemLastSyncAt is the timestamp of the server at the last sync
	SystemLastSyncAt = "last_sync_time"
	// SystemLastUpgrade is the timestamp at which the system most recently checked for an upgrade
	SystemLastUpgrade = "last_upgrade"
	// SystemSessionKey is the session key
	SystemSessionKey = "session_token"
	// SystemSessionKeyExpiry is the timestamp at which the session key will expire
	SystemSessionKeyExpiry = "session_token_expiry"
	// SystemProfileState is the cached profile state snapshot
	SystemProfileState = "profile_state"
	// SystemProfileHint is the display hint for the current profile
	SystemProfileHint = "profile_hint"
	// SystemLegacyImported marks that legacy data was folded into the profile
	SystemLegacyImported = "legacy_imported"
)
