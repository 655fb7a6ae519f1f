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

// Package session implements the local profile cache and its synchronization
// with the server. A Session holds the cached snapshot, applies mutations to
// it offline-first, and pushes the result to the server on a debounced
// schedule. All mutations succeed locally regardless of network state.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/client"
	"github.com/praxislearn/praxis/pkg/cli/consts"
	"github.com/praxislearn/praxis/pkg/cli/context"
	"github.com/praxislearn/praxis/pkg/cli/database"
	"github.com/praxislearn/praxis/pkg/cli/log"
	"github.com/praxislearn/praxis/pkg/cli/migrate"
	"github.com/praxislearn/praxis/pkg/profile"
)

// ErrNotLoggedIn is an error for operations that require a server session
var ErrNotLoggedIn = errors.New("not logged in")

// defaultDebounce is the window within which mutations coalesce into a
// single outbound sync.
const defaultDebounce = 300 * time.Millisecond

// hintLen is the number of profile UUID characters kept for display
const hintLen = 8

// Options configures a Session.
type Options struct {
	// Debounce is the sync coalescing window. Zero means the default.
	Debounce time.Duration
	// Location is the timezone used for calendar-day arithmetic such as
	// daily token grants and streaks. Nil means the system timezone.
	Location *time.Location
}

// Session is the client-side profile session. It owns the cached snapshot
// and the single outstanding sync timer. Create one per process and tear it
// down with Close or Logout.
type Session struct {
	mu    sync.Mutex
	ctx   context.PraxisCtx
	state profile.State
	loc   *time.Location

	debounce time.Duration
	timer    *time.Timer
	syncing  bool
	syncDone chan struct{}
	syncErr  error
	closed   bool

	subscribers map[int]func(profile.State)
	nextSubID   int

	recoveryHandler    func(key string)
	pendingRecoveryKey string
}

// New creates a Session loading the cached snapshot from the local database.
// A missing or corrupt snapshot yields an empty state.
func New(ctx context.PraxisCtx, opts Options) (*Session, error) {
	debounce := opts.Debounce
	if debounce == 0 {
		debounce = defaultDebounce
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	state, err := loadState(ctx.DB)
	if err != nil {
		return nil, errors.Wrap(err, "loading the cached state")
	}

	return &Session{
		ctx:         ctx,
		state:       state,
		loc:         loc,
		debounce:    debounce,
		subscribers: map[int]func(profile.State){},
	}, nil
}

// NewFromCtx creates a Session with defaults derived from the runtime
// context, resolving the configured timezone.
func NewFromCtx(ctx context.PraxisCtx) (*Session, error) {
	return New(ctx, Options{Location: LocationFor(ctx.Timezone)})
}

// LocationFor resolves a configured timezone name, falling back to the
// system timezone when the name is empty or unknown.
func LocationFor(name string) *time.Location {
	if name == "" {
		return time.Local
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Debug("unknown timezone %s: %s\n", name, err)
		return time.Local
	}

	return loc
}

func loadState(db *database.DB) (profile.State, error) {
	ok, err := database.SystemExists(db, consts.SystemProfileState)
	if err != nil {
		return profile.State{}, errors.Wrap(err, "checking for a cached state")
	}
	if !ok {
		return profile.NewState(), nil
	}

	var raw string
	if err := database.GetSystem(db, consts.SystemProfileState, &raw); err != nil {
		return profile.State{}, errors.Wrap(err, "reading the cached state")
	}

	state, issues := profile.Parse([]byte(raw))
	for _, issue := range issues {
		log.Debug("cached state issue at %s: %s\n", issue.Path, issue.Reason)
	}

	return state, nil
}

// GetCachedState returns a copy of the cached snapshot
func (s *Session) GetCachedState() profile.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Clone()
}

// Subscribe registers a callback invoked with a copy of the new snapshot
// whenever the cached state changes. It returns a function that removes the
// subscription.
func (s *Session) Subscribe(fn func(profile.State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.subscribers, id)
	}
}

// OnRecoveryKey registers the handler for a newly issued recovery key. The
// key is delivered exactly once; if one was issued before the handler was
// registered, it is delivered immediately.
func (s *Session) OnRecoveryKey(fn func(key string)) {
	s.mu.Lock()
	s.recoveryHandler = fn
	key := s.pendingRecoveryKey
	s.pendingRecoveryKey = ""
	s.mu.Unlock()

	if key != "" && fn != nil {
		fn(key)
	}
}

// mutate applies fn to a copy of the cached snapshot. If fn reports a
// change, the new snapshot is stamped, persisted, broadcast to subscribers
// and a debounced sync is scheduled. A no-op mutation neither writes nor
// notifies.
func (s *Session) mutate(fn func(next *profile.State, now int64) (bool, error)) error {
	s.mu.Lock()

	now := s.ctx.Clock.Now().UnixMilli()
	next := s.state.Clone()

	changed, err := fn(&next, now)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}

	next.UpdatedAt = now
	s.state = next

	persistErr := s.persistLocked()
	subs := s.subscriberListLocked()
	snapshot := s.state.Clone()
	s.scheduleSyncLocked()
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot)
	}

	return persistErr
}

func (s *Session) persistLocked() error {
	b, err := json.Marshal(s.state)
	if err != nil {
		return errors.Wrap(err, "marshaling the state")
	}

	if err := database.UpsertSystem(s.ctx.DB, consts.SystemProfileState, string(b)); err != nil {
		return errors.Wrap(err, "persisting the state")
	}

	return nil
}

func (s *Session) subscriberListLocked() []func(profile.State) {
	ret := make([]func(profile.State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		ret = append(ret, fn)
	}

	return ret
}

func (s *Session) scheduleSyncLocked() {
	if s.closed {
		return
	}

	if s.timer != nil {
		s.timer.Stop()
	}

	s.timer = time.AfterFunc(s.debounce, func() {
		// Failures are swallowed here. The next mutation's debounce
		// cycle retries.
		if err := s.Sync(); err != nil {
			log.Debug("sync failed: %s\n", err)
		}
	})
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Sync pushes the current snapshot to the server and adopts the server's
// authoritative response as the new cached snapshot. A call arriving while a
// sync is in flight attaches to the in-flight result rather than issuing a
// second one.
func (s *Session) Sync() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("session is closed")
	}
	if s.syncing {
		done := s.syncDone
		s.mu.Unlock()
		<-done

		s.mu.Lock()
		err := s.syncErr
		s.mu.Unlock()
		return err
	}
	s.syncing = true
	s.syncDone = make(chan struct{})
	s.mu.Unlock()

	err := s.syncOnce()

	s.mu.Lock()
	s.syncing = false
	s.syncErr = err
	close(s.syncDone)
	s.mu.Unlock()

	return err
}

// Flush cancels any pending debounced sync and syncs immediately
func (s *Session) Flush() error {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()

	return s.Sync()
}

func (s *Session) syncOnce() error {
	if err := s.ensureProfile(); err != nil {
		return errors.Wrap(err, "ensuring a server profile")
	}

	if err := s.importLegacy(); err != nil {
		return errors.Wrap(err, "importing legacy data")
	}

	// The snapshot is taken at fire time, not at schedule time
	s.mu.Lock()
	local := s.state.Clone()
	cctx := s.ctx
	s.mu.Unlock()

	now := cctx.Clock.Now().UnixMilli()

	getResp, err := client.GetState(cctx, 0)
	if err != nil {
		return errors.Wrap(err, "getting the server state")
	}

	serverState, issues := profile.Parse(getResp.State)
	for _, issue := range issues {
		log.Debug("server state issue at %s: %s\n", issue.Path, issue.Reason)
	}

	merged := profile.Merge(local, serverState, now)
	b, err := json.Marshal(merged)
	if err != nil {
		return errors.Wrap(err, "marshaling the merged state")
	}

	pushResp, err := client.PushState(cctx, b, now)
	if err != nil {
		return errors.Wrap(err, "pushing the state")
	}

	authoritative, issues := profile.Parse(pushResp.State)
	for _, issue := range issues {
		log.Debug("authoritative state issue at %s: %s\n", issue.Path, issue.Reason)
	}

	s.adopt(authoritative)

	if err := database.UpsertSystem(s.ctx.DB, consts.SystemLastSyncAt, now); err != nil {
		return errors.Wrap(err, "recording the sync time")
	}

	return nil
}

// adopt replaces the cached snapshot with the server's authoritative state
func (s *Session) adopt(state profile.State) {
	s.mu.Lock()

	s.state = state
	if err := s.persistLocked(); err != nil {
		log.Debug("persisting the adopted state: %s\n", err)
	}

	subs := s.subscriberListLocked()
	snapshot := s.state.Clone()
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot)
	}
}

// ensureProfile creates a server-side profile on first use. The recovery key
// returned by the server is surfaced through the registered handler exactly
// once and is never retrievable afterwards.
func (s *Session) ensureProfile() error {
	s.mu.Lock()
	if s.ctx.SessionKey != "" {
		s.mu.Unlock()
		return nil
	}
	cctx := s.ctx
	s.mu.Unlock()

	resp, err := client.InitProfile(cctx)
	if err != nil {
		return errors.Wrap(err, "initializing a profile")
	}

	if err := database.UpsertSystem(cctx.DB, consts.SystemSessionKey, resp.Key); err != nil {
		return errors.Wrap(err, "saving the session key")
	}
	if err := database.UpsertSystem(cctx.DB, consts.SystemSessionKeyExpiry, resp.ExpiresAt); err != nil {
		return errors.Wrap(err, "saving the session key expiry")
	}

	hint := resp.ProfileUUID
	if len(hint) > hintLen {
		hint = hint[:hintLen]
	}
	if err := database.UpsertSystem(cctx.DB, consts.SystemProfileHint, hint); err != nil {
		return errors.Wrap(err, "saving the profile hint")
	}

	s.mu.Lock()
	s.ctx.SessionKey = resp.Key
	s.ctx.SessionKeyExpiry = resp.ExpiresAt
	handler := s.recoveryHandler
	if handler == nil {
		s.pendingRecoveryKey = resp.RecoveryKey
	}
	s.mu.Unlock()

	if handler != nil {
		handler(resp.RecoveryKey)
	}

	return nil
}

// importLegacy folds pre-migration local data into the snapshot exactly once
func (s *Session) importLegacy() error {
	done, err := database.SystemExists(s.ctx.DB, consts.SystemLegacyImported)
	if err != nil {
		return errors.Wrap(err, "checking the import marker")
	}
	if done {
		return nil
	}

	s.mu.Lock()
	cctx := s.ctx
	s.mu.Unlock()

	legacy, found, err := migrate.LegacyLocalState(cctx)
	if err != nil {
		return errors.Wrap(err, "reading legacy data")
	}

	if found {
		s.mu.Lock()
		now := s.ctx.Clock.Now().UnixMilli()
		s.state = profile.Merge(s.state, legacy, now)
		if err := s.persistLocked(); err != nil {
			s.mu.Unlock()
			return errors.Wrap(err, "persisting the imported state")
		}
		s.mu.Unlock()
	}

	now := s.ctx.Clock.Now().UnixMilli()
	if err := database.UpsertSystem(s.ctx.DB, consts.SystemLegacyImported, now); err != nil {
		return errors.Wrap(err, "recording the import marker")
	}

	return nil
}

// Restore exchanges a recovery key for a fresh session and pulls the
// restored profile state. An invalid key is rejected with
// client.ErrInvalidRecoveryKey.
func (s *Session) Restore(recoveryKey string) error {
	s.mu.Lock()
	cctx := s.ctx
	s.mu.Unlock()

	resp, err := client.Restore(cctx, recoveryKey)
	if err != nil {
		return err
	}

	if err := database.UpsertSystem(cctx.DB, consts.SystemSessionKey, resp.Key); err != nil {
		return errors.Wrap(err, "saving the session key")
	}
	if err := database.UpsertSystem(cctx.DB, consts.SystemSessionKeyExpiry, resp.ExpiresAt); err != nil {
		return errors.Wrap(err, "saving the session key expiry")
	}

	hint := resp.ProfileUUID
	if len(hint) > hintLen {
		hint = hint[:hintLen]
	}
	if err := database.UpsertSystem(cctx.DB, consts.SystemProfileHint, hint); err != nil {
		return errors.Wrap(err, "saving the profile hint")
	}

	s.mu.Lock()
	s.ctx.SessionKey = resp.Key
	s.ctx.SessionKeyExpiry = resp.ExpiresAt
	s.mu.Unlock()

	return s.Sync()
}

// Logout invalidates the server session and removes the local credentials.
// The cached snapshot is kept for offline use.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.stopTimerLocked()
	key := s.ctx.SessionKey
	cctx := s.ctx
	s.mu.Unlock()

	if key == "" {
		return ErrNotLoggedIn
	}

	if err := client.Signout(cctx, key); err != nil {
		return errors.Wrap(err, "signing out")
	}

	if err := database.DeleteSystem(cctx.DB, consts.SystemSessionKey); err != nil {
		return errors.Wrap(err, "removing the session key")
	}
	if err := database.DeleteSystem(cctx.DB, consts.SystemSessionKeyExpiry); err != nil {
		return errors.Wrap(err, "removing the session key expiry")
	}

	s.mu.Lock()
	s.ctx.SessionKey = ""
	s.ctx.SessionKeyExpiry = 0
	s.mu.Unlock()

	return nil
}

// Delete removes the profile and all of its data from the server, then
// removes the local credentials and resets the cached snapshot.
func (s *Session) Delete() error {
	s.mu.Lock()
	s.stopTimerLocked()
	cctx := s.ctx
	s.mu.Unlock()

	if cctx.SessionKey == "" {
		return ErrNotLoggedIn
	}

	if err := client.DeleteProfile(cctx); err != nil {
		return errors.Wrap(err, "deleting the profile")
	}

	for _, key := range []string{
		consts.SystemSessionKey,
		consts.SystemSessionKeyExpiry,
		consts.SystemProfileState,
		consts.SystemProfileHint,
		consts.SystemLastSyncAt,
	} {
		if err := database.DeleteSystem(cctx.DB, key); err != nil {
			return errors.Wrapf(err, "removing %s", key)
		}
	}

	s.mu.Lock()
	s.ctx.SessionKey = ""
	s.ctx.SessionKeyExpiry = 0
	s.state = profile.NewState()
	subs := s.subscriberListLocked()
	snapshot := s.state.Clone()
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot)
	}

	return nil
}

// Close tears the session down, cancelling any pending sync
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.closed = true
}
