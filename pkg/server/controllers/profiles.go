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

package controllers

import (
	"encoding/json"
	"net/http"

	pkgErrors "github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/profile"
	"github.com/praxislearn/praxis/pkg/server/app"
	"github.com/praxislearn/praxis/pkg/server/context"
	"github.com/praxislearn/praxis/pkg/server/log"
	mw "github.com/praxislearn/praxis/pkg/server/middleware"
)

// NewProfiles creates a new Profiles controller
func NewProfiles(app *app.App) *Profiles {
	return &Profiles{
		app: app,
	}
}

// Profiles is a profile controller
type Profiles struct {
	app *app.App
}

// InitProfileResponse is the response for creating a profile. RecoveryKey is
// included here and nowhere else; the server does not keep it.
type InitProfileResponse struct {
	ProfileUUID string `json:"profile_uuid"`
	RecoveryKey string `json:"recovery_key"`
	Key         string `json:"key"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Create handles creating a new profile
func (p *Profiles) Create(w http.ResponseWriter, r *http.Request) {
	reg, err := p.app.CreateProfile()
	if err != nil {
		handleJSONError(w, err, "creating profile")
		return
	}

	setSessionCookie(w, reg.Session.Key, reg.Session.ExpiresAt)
	respondJSON(w, http.StatusCreated, InitProfileResponse{
		ProfileUUID: reg.Profile.UUID,
		RecoveryKey: reg.RecoveryKey,
		Key:         reg.Session.Key,
		ExpiresAt:   reg.Session.ExpiresAt.Unix(),
	})
}

// StateResponse is the response for state reads and writes
type StateResponse struct {
	State       json.RawMessage `json:"state"`
	CurrentTime int64           `json:"current_time"`
}

type getStateQuery struct {
	UpdatedAfter int64 `schema:"updated_after"`
}

// GetState returns the authoritative state of the profile
func (p *Profiles) GetState(w http.ResponseWriter, r *http.Request) {
	prof := context.Profile(r.Context())

	var query getStateQuery
	if err := parseQuery(r, &query); err != nil {
		handleJSONError(w, err, "parsing query")
		return
	}

	if query.UpdatedAfter > 0 && prof.StateUpdatedAt <= query.UpdatedAfter {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	state, err := p.app.GetState(*prof)
	if err != nil {
		handleJSONError(w, err, "getting state")
		return
	}

	b, err := json.Marshal(state)
	if err != nil {
		handleJSONError(w, err, "marshalling state")
		return
	}

	respondJSON(w, http.StatusOK, StateResponse{
		State:       b,
		CurrentTime: p.app.Clock.Now().UnixMilli(),
	})
}

// clockSkewThreshold is the client clock drift beyond which the skew is logged
const clockSkewThreshold = int64(5 * 60 * 1000)

// UpdateStatePayload is the payload for proposing a state
type UpdateStatePayload struct {
	State      json.RawMessage `json:"state"`
	ClientTime int64           `json:"client_time"`
}

// UpdateState merges a proposed state into the stored state and returns the
// authoritative result
func (p *Profiles) UpdateState(w http.ResponseWriter, r *http.Request) {
	prof := context.Profile(r.Context())

	var payload UpdateStatePayload
	if err := parseRequestData(r, &payload); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	now := p.app.Clock.Now().UnixMilli()
	if payload.ClientTime > 0 {
		skew := now - payload.ClientTime
		if skew < -clockSkewThreshold || skew > clockSkewThreshold {
			log.WithFields(log.Fields{
				"profile_uuid": prof.UUID,
				"skew_ms":      skew,
			}).Debug("client clock skew")
		}
	}

	merged, err := p.app.SaveProposedState(prof, payload.State)
	if err != nil {
		handleJSONError(w, err, "saving proposed state")
		return
	}

	b, err := json.Marshal(merged)
	if err != nil {
		handleJSONError(w, err, "marshalling state")
		return
	}

	respondJSON(w, http.StatusOK, StateResponse{
		State:       b,
		CurrentTime: p.app.Clock.Now().UnixMilli(),
	})
}

// ActivityItem is one activity entry in an activity response
type ActivityItem struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Path      string `json:"path"`
	Timestamp int64  `json:"timestamp"`
}

// ActivityResponse is the response for the activity log
type ActivityResponse struct {
	Activity []ActivityItem `json:"activity"`
	Total    int            `json:"total"`
}

type getActivityQuery struct {
	After int64 `schema:"after"`
	Limit int   `schema:"limit"`
}

// GetActivity returns the activity log of the profile, newest first
func (p *Profiles) GetActivity(w http.ResponseWriter, r *http.Request) {
	prof := context.Profile(r.Context())

	var query getActivityQuery
	if err := parseQuery(r, &query); err != nil {
		handleJSONError(w, err, "parsing query")
		return
	}

	state, err := p.app.GetState(*prof)
	if err != nil {
		handleJSONError(w, err, "getting state")
		return
	}

	var entries []profile.Activity
	if state.Learning != nil {
		entries = state.Learning.Activity
	}

	items := []ActivityItem{}
	for _, entry := range entries {
		if query.After > 0 && entry.Timestamp <= query.After {
			continue
		}
		items = append(items, ActivityItem{
			ID:        entry.ID,
			Kind:      entry.Kind,
			Path:      entry.Path,
			Timestamp: entry.Timestamp,
		})
	}

	total := len(items)
	if query.Limit > 0 && len(items) > query.Limit {
		items = items[:query.Limit]
	}

	respondJSON(w, http.StatusOK, ActivityResponse{
		Activity: items,
		Total:    total,
	})
}

// RestorePayload is the payload for restoring a profile with a recovery key
type RestorePayload struct {
	RecoveryKey string `json:"recovery_key"`
}

// RestoreResponse is the response for a successful restore
type RestoreResponse struct {
	ProfileUUID string `json:"profile_uuid"`
	Key         string `json:"key"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Restore authenticates a recovery key and issues a new session
func (p *Profiles) Restore(w http.ResponseWriter, r *http.Request) {
	var payload RestorePayload
	if err := parseRequestData(r, &payload); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	prof, session, err := p.app.RestoreProfile(payload.RecoveryKey)
	if err != nil {
		handleJSONError(w, err, "restoring profile")
		return
	}

	setSessionCookie(w, session.Key, session.ExpiresAt)
	respondJSON(w, http.StatusOK, RestoreResponse{
		ProfileUUID: prof.UUID,
		Key:         session.Key,
		ExpiresAt:   session.ExpiresAt.Unix(),
	})
}

// Delete removes the profile along with all of its data
func (p *Profiles) Delete(w http.ResponseWriter, r *http.Request) {
	prof := context.Profile(r.Context())

	if err := p.app.DeleteProfile(*prof); err != nil {
		handleJSONError(w, err, "deleting profile")
		return
	}

	unsetSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (p *Profiles) signout(r *http.Request) (bool, error) {
	key, err := mw.GetCredential(r)
	if err != nil {
		return false, pkgErrors.Wrap(err, "getting credentials")
	}

	if key == "" {
		return false, nil
	}

	if err = p.app.DeleteSession(key); err != nil {
		return false, pkgErrors.Wrap(err, "deleting session")
	}

	return true, nil
}

// Signout deletes the session of the request
func (p *Profiles) Signout(w http.ResponseWriter, r *http.Request) {
	ok, err := p.signout(r)
	if err != nil {
		handleJSONError(w, err, "signing out")
		return
	}

	if ok {
		unsetSessionCookie(w)
	}

	w.WriteHeader(http.StatusNoContent)
}
