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
	"encoding/json"
	goerrors "errors"
	"strings"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/profile"
	"github.com/praxislearn/praxis/pkg/server/crypt"
	"github.com/praxislearn/praxis/pkg/server/database"
	"github.com/praxislearn/praxis/pkg/server/helpers"
	"github.com/praxislearn/praxis/pkg/server/log"
	"gorm.io/gorm"
)

var (
	// ErrRegistrationDisabled is an error for attempting to create a profile
	// while registration is disabled
	ErrRegistrationDisabled = errors.New("registration is disabled")
	// ErrProfileNotFound is an error for a profile that does not exist
	ErrProfileNotFound = errors.New("profile not found")
	// ErrInvalidRecoveryKey is an error for a malformed or unmatched recovery key
	ErrInvalidRecoveryKey = errors.New("invalid recovery key")
)

// recoverySecretByteSize is the entropy of the recovery secret in bytes
const recoverySecretByteSize = 32

// ProfileRegistration is the result of creating a new profile. RecoveryKey
// carries the plaintext recovery key. It is shown to the client exactly once
// and never persisted; only its hash is stored.
type ProfileRegistration struct {
	Profile     database.Profile
	Session     database.Session
	RecoveryKey string
}

// CreateProfile creates a new profile with an empty state, along with a
// session for it and a one-time recovery key.
func (a *App) CreateProfile() (ProfileRegistration, error) {
	if a.DisableRegistration {
		return ProfileRegistration{}, ErrRegistrationDisabled
	}

	uuid, err := helpers.GenUUID()
	if err != nil {
		return ProfileRegistration{}, errors.Wrap(err, "generating uuid")
	}
	secret, err := crypt.GetRandomStr(recoverySecretByteSize)
	if err != nil {
		return ProfileRegistration{}, errors.Wrap(err, "generating recovery secret")
	}
	secretHash, err := crypt.HashRecoverySecret(secret)
	if err != nil {
		return ProfileRegistration{}, errors.Wrap(err, "hashing recovery secret")
	}

	initialState, err := json.Marshal(profile.NewState())
	if err != nil {
		return ProfileRegistration{}, errors.Wrap(err, "marshalling initial state")
	}

	var ret ProfileRegistration
	err = a.DB.Transaction(func(tx *gorm.DB) error {
		p := database.Profile{
			UUID:               uuid,
			RecoverySecretHash: secretHash,
			State:              string(initialState),
		}
		if err := tx.Create(&p).Error; err != nil {
			return errors.Wrap(err, "creating profile")
		}

		session, err := a.CreateSession(tx, p.ID)
		if err != nil {
			return errors.Wrap(err, "creating session")
		}

		ret = ProfileRegistration{
			Profile:     p,
			Session:     session,
			RecoveryKey: uuid + "." + secret,
		}
		return nil
	})
	if err != nil {
		return ProfileRegistration{}, err
	}

	return ret, nil
}

// GetProfileByUUID finds a profile with the given uuid
func (a *App) GetProfileByUUID(uuid string) (database.Profile, error) {
	var p database.Profile
	err := a.DB.Where("uuid = ?", uuid).First(&p).Error
	if goerrors.Is(err, gorm.ErrRecordNotFound) {
		return p, ErrProfileNotFound
	} else if err != nil {
		return p, errors.Wrap(err, "finding profile")
	}

	return p, nil
}

// GetState parses the stored state of the given profile. Stored states are
// normalized on write, so issues indicate data written by an older server.
func (a *App) GetState(p database.Profile) (profile.State, error) {
	if p.State == "" {
		return profile.NewState(), nil
	}

	state, issues := profile.Parse([]byte(p.State))
	for _, issue := range issues {
		log.WithFields(log.Fields{
			"profile_uuid": p.UUID,
			"path":         issue.Path,
			"reason":       issue.Reason,
		}).Debug("normalized stored state field")
	}

	return state, nil
}

// SaveProposedState merges a state proposed by a client into the stored state
// and persists the result. The returned state is authoritative.
func (a *App) SaveProposedState(p *database.Profile, proposed []byte) (profile.State, error) {
	stored, err := a.GetState(*p)
	if err != nil {
		return profile.State{}, errors.Wrap(err, "getting stored state")
	}

	proposedState, issues := profile.Parse(proposed)
	for _, issue := range issues {
		log.WithFields(log.Fields{
			"profile_uuid": p.UUID,
			"path":         issue.Path,
			"reason":       issue.Reason,
		}).Debug("normalized proposed state field")
	}

	// The stored copy sits in the server slot so server-authoritative
	// structures, file metadata in particular, win over the proposal.
	now := a.Clock.Now().UnixMilli()
	merged := profile.Merge(proposedState, stored, now)

	b, err := json.Marshal(merged)
	if err != nil {
		return profile.State{}, errors.Wrap(err, "marshalling merged state")
	}

	p.State = string(b)
	p.StateUpdatedAt = merged.UpdatedAt
	if err := a.DB.Save(p).Error; err != nil {
		return profile.State{}, errors.Wrap(err, "saving profile")
	}

	return merged, nil
}

// RestoreProfile authenticates a recovery key of the form <uuid>.<secret> and
// returns the matching profile along with a fresh session.
func (a *App) RestoreProfile(recoveryKey string) (database.Profile, database.Session, error) {
	parts := strings.SplitN(recoveryKey, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return database.Profile{}, database.Session{}, ErrInvalidRecoveryKey
	}

	var p database.Profile
	err := a.DB.Where("uuid = ?", parts[0]).First(&p).Error
	if goerrors.Is(err, gorm.ErrRecordNotFound) {
		return database.Profile{}, database.Session{}, ErrInvalidRecoveryKey
	} else if err != nil {
		return database.Profile{}, database.Session{}, errors.Wrap(err, "finding profile")
	}

	if !crypt.CompareRecoverySecret(p.RecoverySecretHash, parts[1]) {
		return database.Profile{}, database.Session{}, ErrInvalidRecoveryKey
	}

	session, err := a.CreateSession(a.DB, p.ID)
	if err != nil {
		return database.Profile{}, database.Session{}, errors.Wrap(err, "creating session")
	}

	now := a.Clock.Now()
	p.LastLoginAt = &now
	if err := a.DB.Save(&p).Error; err != nil {
		return database.Profile{}, database.Session{}, errors.Wrap(err, "updating last login")
	}

	return p, session, nil
}

// DeleteProfile removes the profile along with its sessions, its file
// metadata and the stored file content.
func (a *App) DeleteProfile(p database.Profile) error {
	var files []database.File
	if err := a.DB.Where("profile_id = ?", p.ID).Find(&files).Error; err != nil {
		return errors.Wrap(err, "finding files")
	}

	err := a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("profile_id = ?", p.ID).Delete(&database.File{}).Error; err != nil {
			return errors.Wrap(err, "deleting files")
		}
		if err := a.DeleteProfileSessions(tx, p.ID); err != nil {
			return errors.Wrap(err, "deleting sessions")
		}
		if err := tx.Delete(&p).Error; err != nil {
			return errors.Wrap(err, "deleting profile")
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := a.BlobStore.Delete(f.StoragePath); err != nil {
			log.WithFields(log.Fields{
				"file_uuid": f.UUID,
			}).ErrorWrap(err, "deleting blob")
		}
	}

	return nil
}

// SweepExpiredDismissals removes recommendation dismissals whose expiry has
// passed from every stored profile state. It returns the number of profiles
// that were updated.
func (a *App) SweepExpiredDismissals() (int, error) {
	var profiles []database.Profile
	if err := a.DB.Find(&profiles).Error; err != nil {
		return 0, errors.Wrap(err, "finding profiles")
	}

	now := a.Clock.Now().UnixMilli()
	updated := 0

	for i := range profiles {
		p := &profiles[i]

		state, err := a.GetState(*p)
		if err != nil {
			return updated, errors.Wrap(err, "getting stored state")
		}

		changed := false
		for id, d := range state.Personalization.Dismissed {
			if d.Until <= now {
				delete(state.Personalization.Dismissed, id)
				changed = true
			}
		}
		if !changed {
			continue
		}

		b, err := json.Marshal(state)
		if err != nil {
			return updated, errors.Wrap(err, "marshalling state")
		}

		p.State = string(b)
		if err := a.DB.Save(p).Error; err != nil {
			return updated, errors.Wrap(err, "saving profile")
		}
		updated++
	}

	return updated, nil
}
