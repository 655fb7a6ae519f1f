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

package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/assert"
	"github.com/praxislearn/praxis/pkg/cli/client"
	"github.com/praxislearn/praxis/pkg/cli/consts"
	"github.com/praxislearn/praxis/pkg/cli/context"
	"github.com/praxislearn/praxis/pkg/cli/database"
	"github.com/praxislearn/praxis/pkg/clock"
	"github.com/praxislearn/praxis/pkg/profile"
	"github.com/praxislearn/praxis/pkg/server/controllers"
	serverdatabase "github.com/praxislearn/praxis/pkg/server/database"
	servertestutils "github.com/praxislearn/praxis/pkg/server/testutils"
	"gorm.io/gorm"
)

// testEnv wires a session against a server running the full router in-process
type testEnv struct {
	session  *Session
	ctx      context.PraxisCtx
	db       *database.DB
	serverDB *gorm.DB
	clock    *clock.Mock
}

func newTestCtx(t *testing.T, endpoint string, clk clock.Clock) context.PraxisCtx {
	t.Helper()

	db := database.InitTestDB(t)

	return context.PraxisCtx{
		APIEndpoint: endpoint,
		DB:          db,
		Clock:       clk,
		HTTPClient:  &http.Client{},
		Paths: context.Paths{
			LegacyPraxis: t.TempDir(),
		},
	}
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	serverDB := servertestutils.InitMemoryDB(t)
	a := controllers.NewTestApp(serverDB)
	server := controllers.MustNewServer(t, &a)
	t.Cleanup(server.Close)

	clk := clock.NewMock()
	ctx := newTestCtx(t, server.URL+"/api", clk)

	s, err := New(ctx, Options{Debounce: time.Hour, Location: time.UTC})
	if err != nil {
		t.Fatal(errors.Wrap(err, "initializing session"))
	}
	t.Cleanup(s.Close)

	return testEnv{
		session:  s,
		ctx:      ctx,
		db:       ctx.DB,
		serverDB: serverDB,
		clock:    clk,
	}
}

func TestSyncCreatesProfile(t *testing.T) {
	env := newTestEnv(t)

	var recoveryKeys []string
	env.session.OnRecoveryKey(func(key string) {
		recoveryKeys = append(recoveryKeys, key)
	})

	if err := env.session.CompleteNode("n1", profile.DifficultyBeginner); err != nil {
		t.Fatal(errors.Wrap(err, "completing node"))
	}
	if err := env.session.Flush(); err != nil {
		t.Fatal(errors.Wrap(err, "flushing"))
	}

	assert.Equal(t, len(recoveryKeys), 1, "recovery key should be delivered exactly once")
	assert.NotEqual(t, recoveryKeys[0], "", "recovery key should not be empty")

	ok, err := database.SystemExists(env.db, consts.SystemSessionKey)
	if err != nil {
		t.Fatal(errors.Wrap(err, "checking session key"))
	}
	assert.Equal(t, ok, true, "session key should be saved")

	var profileCount int64
	servertestutils.MustExec(t, env.serverDB.Model(&serverdatabase.Profile{}).Count(&profileCount), "counting profiles")
	assert.Equal(t, profileCount, int64(1), "profile count mismatch")

	var p serverdatabase.Profile
	servertestutils.MustExec(t, env.serverDB.First(&p), "finding profile")
	serverState, _ := profile.Parse([]byte(p.State))
	assert.DeepEqual(t, serverState.Progress.CompletedNodes, []string{"n1"}, "server should hold the pushed nodes")

	cached := env.session.GetCachedState()
	assert.DeepEqual(t, cached.Progress.CompletedNodes, []string{"n1"}, "cached state should hold the nodes")
	assert.Equal(t, cached.UpdatedAt, serverState.UpdatedAt, "cache should adopt the authoritative stamp")

	// Repeated syncs reuse the profile
	if err := env.session.Flush(); err != nil {
		t.Fatal(errors.Wrap(err, "flushing again"))
	}
	servertestutils.MustExec(t, env.serverDB.Model(&serverdatabase.Profile{}).Count(&profileCount), "counting profiles")
	assert.Equal(t, profileCount, int64(1), "no second profile should be created")
}

func TestRecoveryKeyPending(t *testing.T) {
	env := newTestEnv(t)

	if err := env.session.Flush(); err != nil {
		t.Fatal(errors.Wrap(err, "flushing"))
	}

	var got []string
	env.session.OnRecoveryKey(func(key string) {
		got = append(got, key)
	})
	assert.Equal(t, len(got), 1, "pending recovery key should be delivered on registration")

	env.session.OnRecoveryKey(func(key string) {
		got = append(got, key)
	})
	assert.Equal(t, len(got), 1, "recovery key must not be delivered twice")
}

func TestTwoDeviceConvergence(t *testing.T) {
	serverDB := servertestutils.InitMemoryDB(t)
	a := controllers.NewTestApp(serverDB)
	server := controllers.MustNewServer(t, &a)
	defer server.Close()

	clk := clock.NewMock()

	deviceA, err := New(newTestCtx(t, server.URL+"/api", clk), Options{Debounce: time.Hour, Location: time.UTC})
	if err != nil {
		t.Fatal(errors.Wrap(err, "initializing device A"))
	}
	defer deviceA.Close()

	var recoveryKey string
	deviceA.OnRecoveryKey(func(key string) {
		recoveryKey = key
	})
	if err := deviceA.Flush(); err != nil {
		t.Fatal(errors.Wrap(err, "flushing device A"))
	}

	deviceB, err := New(newTestCtx(t, server.URL+"/api", clk), Options{Debounce: time.Hour, Location: time.UTC})
	if err != nil {
		t.Fatal(errors.Wrap(err, "initializing device B"))
	}
	defer deviceB.Close()

	if err := deviceB.Restore(recoveryKey); err != nil {
		t.Fatal(errors.Wrap(err, "restoring device B"))
	}

	if err := deviceA.CompleteNode("n1", profile.DifficultyBeginner); err != nil {
		t.Fatal(errors.Wrap(err, "completing on device A"))
	}
	if err := deviceB.CompleteNode("n2", profile.DifficultyAdvanced); err != nil {
		t.Fatal(errors.Wrap(err, "completing on device B"))
	}

	if err := deviceA.Flush(); err != nil {
		t.Fatal(errors.Wrap(err, "flushing device A"))
	}
	if err := deviceB.Flush(); err != nil {
		t.Fatal(errors.Wrap(err, "flushing device B"))
	}
	if err := deviceA.Flush(); err != nil {
		t.Fatal(errors.Wrap(err, "flushing device A again"))
	}

	expected := []string{"n1", "n2"}
	assert.DeepEqual(t, deviceA.GetCachedState().Progress.CompletedNodes, expected, "device A should converge")
	assert.DeepEqual(t, deviceB.GetCachedState().Progress.CompletedNodes, expected, "device B should converge")
}

func TestRestoreInvalidKey(t *testing.T) {
	env := newTestEnv(t)

	err := env.session.Restore("bogus-recovery-key")

	assert.Equal(t, err, client.ErrInvalidRecoveryKey, "error mismatch")
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)

	if err := env.session.CompleteNode("n1", profile.DifficultyBeginner); err != nil {
		t.Fatal(errors.Wrap(err, "completing node"))
	}
	if err := env.session.Flush(); err != nil {
		t.Fatal(errors.Wrap(err, "flushing"))
	}

	if err := env.session.Logout(); err != nil {
		t.Fatal(errors.Wrap(err, "logging out"))
	}

	ok, err := database.SystemExists(env.db, consts.SystemSessionKey)
	if err != nil {
		t.Fatal(errors.Wrap(err, "checking session key"))
	}
	assert.Equal(t, ok, false, "session key should be removed")

	var sessionCount int64
	servertestutils.MustExec(t, env.serverDB.Model(&serverdatabase.Session{}).Count(&sessionCount), "counting sessions")
	assert.Equal(t, sessionCount, int64(0), "server session should be deleted")

	// The snapshot stays usable offline
	cached := env.session.GetCachedState()
	assert.DeepEqual(t, cached.Progress.CompletedNodes, []string{"n1"}, "cached state should be kept")

	assert.Equal(t, env.session.Logout(), ErrNotLoggedIn, "second logout should fail")
}

func TestDeleteProfile(t *testing.T) {
	env := newTestEnv(t)

	if err := env.session.CompleteNode("n1", profile.DifficultyBeginner); err != nil {
		t.Fatal(errors.Wrap(err, "completing node"))
	}
	if err := env.session.Flush(); err != nil {
		t.Fatal(errors.Wrap(err, "flushing"))
	}

	if err := env.session.Delete(); err != nil {
		t.Fatal(errors.Wrap(err, "deleting"))
	}

	var profileCount int64
	servertestutils.MustExec(t, env.serverDB.Model(&serverdatabase.Profile{}).Count(&profileCount), "counting profiles")
	assert.Equal(t, profileCount, int64(0), "server profile should be deleted")

	for _, key := range []string{
		consts.SystemSessionKey,
		consts.SystemProfileState,
		consts.SystemProfileHint,
		consts.SystemLastSyncAt,
	} {
		ok, err := database.SystemExists(env.db, key)
		if err != nil {
			t.Fatal(errors.Wrapf(err, "checking %s", key))
		}
		assert.Equal(t, ok, false, fmt.Sprintf("%s should be removed", key))
	}

	assert.DeepEqual(t, env.session.GetCachedState(), profile.NewState(), "cached state should be reset")
}

func TestStatePersistence(t *testing.T) {
	env := newTestEnv(t)

	if err := env.session.CompleteNode("n1", profile.DifficultyIntermediate); err != nil {
		t.Fatal(errors.Wrap(err, "completing node"))
	}

	// A new session from the same database sees the snapshot without syncing
	reopened, err := New(env.ctx, Options{Debounce: time.Hour, Location: time.UTC})
	if err != nil {
		t.Fatal(errors.Wrap(err, "reopening session"))
	}
	defer reopened.Close()

	assert.DeepEqual(t, reopened.GetCachedState(), env.session.GetCachedState(), "reloaded state mismatch")
}

// fakeServer is a minimal state endpoint that records pushes
type fakeServer struct {
	mu        sync.Mutex
	putCount  int
	lastState json.RawMessage
	server    *httptest.Server
}

func newFakeServer(t *testing.T) *fakeServer {
	f := &fakeServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/profile/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case "GET":
			f.mu.Lock()
			state := f.lastState
			f.mu.Unlock()

			if state == nil {
				b, err := json.Marshal(profile.NewState())
				if err != nil {
					t.Fatal(errors.Wrap(err, "marshaling state"))
				}
				state = b
			}

			if err := json.NewEncoder(w).Encode(client.GetStateResp{State: state}); err != nil {
				t.Fatal(errors.Wrap(err, "encoding response"))
			}
		case "PUT":
			var payload client.PushStatePayload
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatal(errors.Wrap(err, "decoding payload"))
			}

			f.mu.Lock()
			f.putCount++
			f.lastState = payload.State
			f.mu.Unlock()

			if err := json.NewEncoder(w).Encode(client.PushStateResp{State: payload.State}); err != nil {
				t.Fatal(errors.Wrap(err, "encoding response"))
			}
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeServer) puts() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.putCount
}

func waitFor(t *testing.T, message string, fn func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatal(message)
}

func TestDebounceCoalescing(t *testing.T) {
	fake := newFakeServer(t)

	ctx := newTestCtx(t, fake.server.URL+"/api", clock.NewMock())
	// An existing credential skips profile creation against the fake server
	ctx.SessionKey = "testkey"

	s, err := New(ctx, Options{Debounce: 50 * time.Millisecond, Location: time.UTC})
	if err != nil {
		t.Fatal(errors.Wrap(err, "initializing session"))
	}
	defer s.Close()

	for i := 0; i < 5; i++ {
		if err := s.RecordActivity(profile.ActivityPatternViewed, fmt.Sprintf("/patterns/%d", i)); err != nil {
			t.Fatal(errors.Wrap(err, "recording activity"))
		}
	}

	waitFor(t, "sync did not fire", func() bool {
		return fake.puts() > 0
	})

	assert.Equal(t, fake.puts(), 1, "mutations within the window should coalesce into one sync")

	fake.mu.Lock()
	pushed := fake.lastState
	fake.mu.Unlock()

	state, _ := profile.Parse(pushed)
	assert.Equal(t, len(state.Learning.Activity), 5, "the snapshot should be taken at fire time")
}

func TestNoopMutationDoesNotSync(t *testing.T) {
	fake := newFakeServer(t)

	ctx := newTestCtx(t, fake.server.URL+"/api", clock.NewMock())
	ctx.SessionKey = "testkey"

	s, err := New(ctx, Options{Debounce: 20 * time.Millisecond, Location: time.UTC})
	if err != nil {
		t.Fatal(errors.Wrap(err, "initializing session"))
	}
	defer s.Close()

	notified := 0
	s.Subscribe(func(profile.State) {
		notified++
	})

	// A fresh state starts at the role step; moving to it changes nothing
	if err := s.SetOnboardingStep(profile.StepRole); err != nil {
		t.Fatal(errors.Wrap(err, "setting step"))
	}

	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, fake.puts(), 0, "a no-op mutation should not schedule a sync")
	assert.Equal(t, notified, 0, "a no-op mutation should not notify subscribers")

	ok, err := database.SystemExists(ctx.DB, consts.SystemProfileState)
	if err != nil {
		t.Fatal(errors.Wrap(err, "checking cached state"))
	}
	assert.Equal(t, ok, false, "a no-op mutation should not persist")
}

func TestSubscribe(t *testing.T) {
	env := newTestEnv(t)

	var got []profile.State
	unsubscribe := env.session.Subscribe(func(s profile.State) {
		got = append(got, s)
	})

	if err := env.session.CompleteNode("n1", profile.DifficultyBeginner); err != nil {
		t.Fatal(errors.Wrap(err, "completing node"))
	}

	assert.Equal(t, len(got), 1, "subscriber should be notified")
	assert.DeepEqual(t, got[0].Progress.CompletedNodes, []string{"n1"}, "snapshot mismatch")

	unsubscribe()

	if err := env.session.CompleteNode("n2", profile.DifficultyBeginner); err != nil {
		t.Fatal(errors.Wrap(err, "completing another node"))
	}

	assert.Equal(t, len(got), 1, "unsubscribed callback should not be notified")
}
