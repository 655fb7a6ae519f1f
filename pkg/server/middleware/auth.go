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

package middleware

import (
	"errors"
	"net/http"

	pkgErrors "github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/server/app"
	"github.com/praxislearn/praxis/pkg/server/context"
	"github.com/praxislearn/praxis/pkg/server/database"
	"gorm.io/gorm"
)

// Auth is an authentication middleware
func Auth(a *app.App, next http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile, session, ok, err := AuthWithSession(a, r)
		if !ok {
			RespondUnauthorized(w)
			return
		}
		if err != nil {
			DoError(w, "authenticating with session", err, http.StatusInternalServerError)
			return
		}

		ctx := context.WithProfile(r.Context(), &profile)
		ctx = context.WithSession(ctx, &session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthWithSession performs profile authentication with session. Expiry is
// judged against the app clock so that session lifetime follows the same
// clock that minted it.
func AuthWithSession(a *app.App, r *http.Request) (database.Profile, database.Session, bool, error) {
	var profile database.Profile
	var session database.Session

	sessionKey, err := GetCredential(r)
	if err != nil {
		return profile, session, false, pkgErrors.Wrap(err, "getting credential")
	}
	if sessionKey == "" {
		return profile, session, false, nil
	}

	err = a.DB.Where("key = ?", sessionKey).First(&session).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return profile, session, false, nil
	} else if err != nil {
		return profile, session, false, pkgErrors.Wrap(err, "finding session")
	}

	now := a.Clock.Now()
	if session.ExpiresAt.Before(now) {
		return profile, session, false, nil
	}

	err = a.DB.Where("id = ?", session.ProfileID).First(&profile).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return profile, session, false, nil
	} else if err != nil {
		return profile, session, false, pkgErrors.Wrap(err, "finding profile from session")
	}

	session.LastUsedAt = now
	if err := a.DB.Save(&session).Error; err != nil {
		return profile, session, false, pkgErrors.Wrap(err, "updating session")
	}

	return profile, session, true, nil
}
