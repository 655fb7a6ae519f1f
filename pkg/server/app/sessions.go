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

package app

import (
	"time"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/server/crypt"
	"github.com/praxislearn/praxis/pkg/server/database"
	"gorm.io/gorm"
)

// sessionTTL is how long a session key stays valid after it is issued
const sessionTTL = 24 * 100 * time.Hour

// CreateSession returns a new session for the profile of the given id
func (a *App) CreateSession(db *gorm.DB, profileID int) (database.Session, error) {
	key, err := crypt.GetRandomStr(32)
	if err != nil {
		return database.Session{}, errors.Wrap(err, "generating key")
	}

	now := a.Clock.Now()
	session := database.Session{
		ProfileID:  profileID,
		Key:        key,
		LastUsedAt: now,
		ExpiresAt:  now.Add(sessionTTL),
	}

	if err := db.Save(&session).Error; err != nil {
		return database.Session{}, errors.Wrap(err, "saving session")
	}

	return session, nil
}

// DeleteProfileSessions deletes all existing sessions for the given profile. It
// effectively invalidates all existing sessions.
func (a *App) DeleteProfileSessions(db *gorm.DB, profileID int) error {
	if err := db.Where("profile_id = ?", profileID).Delete(&database.Session{}).Error; err != nil {
		return errors.Wrap(err, "deleting sessions")
	}

	return nil
}

// DeleteSession deletes the session that match the given info
func (a *App) DeleteSession(sessionKey string) error {
	if err := a.DB.Where("key = ?", sessionKey).Delete(&database.Session{}).Error; err != nil {
		return errors.Wrap(err, "deleting the session")
	}

	return nil
}

// PurgeExpiredSessions deletes sessions whose expiry has passed and returns
// the number of deleted rows.
func (a *App) PurgeExpiredSessions() (int64, error) {
	res := a.DB.Where("expires_at < ?", a.Clock.Now()).Delete(&database.Session{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "deleting expired sessions")
	}

	return res.RowsAffected, nil
}
