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
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/assert"
	"github.com/praxislearn/praxis/pkg/profile"
)

func TestCompleteNode(t *testing.T) {
	env := newTestEnv(t)
	s := env.session
	now := env.clock.Now().UnixMilli()

	if err := s.CompleteNode("n1", profile.DifficultyBeginner); err != nil {
		t.Fatal(errors.Wrap(err, "executing"))
	}

	got := s.GetCachedState()
	assert.DeepEqual(t, got.Progress.CompletedNodes, []string{"n1"}, "completed nodes mismatch")
	assert.Equal(t, got.Progress.TotalXP, 25, "xp mismatch")
	assert.Equal(t, got.Progress.Level, 1, "level mismatch")
	assert.Equal(t, got.Progress.StreakDays, 1, "streak mismatch")
	assert.Equal(t, got.Progress.LastActivityDate, now, "last activity mismatch")
	assert.Equal(t, got.Progress.CompletedAtByNode["n1"], now, "completion timestamp mismatch")
	assert.Equal(t, got.UpdatedAt, now, "updated at mismatch")

	assert.Equal(t, len(got.Learning.Activity), 1, "activity count mismatch")
	assert.Equal(t, got.Learning.Activity[0].Kind, profile.ActivityNodeCompleted, "activity kind mismatch")
	assert.Equal(t, got.Learning.Activity[0].Path, "n1", "activity path mismatch")

	// Re-completing is a no-op
	if err := s.CompleteNode("n1", profile.DifficultyBeginner); err != nil {
		t.Fatal(errors.Wrap(err, "re-completing"))
	}
	again := s.GetCachedState()
	assert.Equal(t, again.Progress.TotalXP, 25, "xp must not be awarded twice")
	assert.Equal(t, len(again.Learning.Activity), 1, "no activity should be appended")
}

func TestCompleteNodeLevelsUp(t *testing.T) {
	env := newTestEnv(t)
	s := env.session

	for i := 0; i < 4; i++ {
		if err := s.CompleteNode(fmt.Sprintf("n%d", i), profile.DifficultyIntermediate); err != nil {
			t.Fatal(errors.Wrap(err, "completing node"))
		}
	}

	got := s.GetCachedState()
	assert.Equal(t, got.Progress.TotalXP, 200, "xp mismatch")
	assert.Equal(t, got.Progress.Level, 3, "level mismatch")
}

func TestUnlockNode(t *testing.T) {
	env := newTestEnv(t)
	s := env.session

	t.Run("insufficient tokens", func(t *testing.T) {
		err := s.UnlockNode("n1", profile.DifficultyBeginner)

		assert.Equal(t, errors.Cause(err), ErrInsufficientTokens, "error mismatch")

		got := s.GetCachedState()
		assert.Equal(t, got.Progress == nil, true, "failed unlock must not change the state")
	})

	t.Run("affordable", func(t *testing.T) {
		granted, err := s.GrantDailyTokens()
		if err != nil {
			t.Fatal(errors.Wrap(err, "granting tokens"))
		}
		assert.Equal(t, granted, 3, "grant amount mismatch")

		if err := s.UnlockNode("n1", profile.DifficultyIntermediate); err != nil {
			t.Fatal(errors.Wrap(err, "executing"))
		}

		got := s.GetCachedState()
		assert.DeepEqual(t, got.Progress.UnlockedNodes, []string{"n1"}, "unlocked nodes mismatch")
		assert.Equal(t, got.Progress.Tokens, 1, "tokens should be spent")
		assert.Equal(t, got.Learning.Activity[0].Kind, profile.ActivityNodeUnlocked, "activity kind mismatch")
	})

	t.Run("already unlocked", func(t *testing.T) {
		if err := s.UnlockNode("n1", profile.DifficultyIntermediate); err != nil {
			t.Fatal(errors.Wrap(err, "executing"))
		}

		got := s.GetCachedState()
		assert.Equal(t, got.Progress.Tokens, 1, "tokens must not be spent twice")
	})
}

func TestGrantDailyTokens(t *testing.T) {
	env := newTestEnv(t)
	s := env.session

	granted, err := s.GrantDailyTokens()
	if err != nil {
		t.Fatal(errors.Wrap(err, "executing"))
	}
	assert.Equal(t, granted, 3, "first grant mismatch")

	// Same calendar day
	env.clock.Advance(2 * time.Hour)
	granted, err = s.GrantDailyTokens()
	if err != nil {
		t.Fatal(errors.Wrap(err, "executing"))
	}
	assert.Equal(t, granted, 0, "the grant should be idempotent per day")

	// Next day extends the streak
	env.clock.Advance(24 * time.Hour)
	granted, err = s.GrantDailyTokens()
	if err != nil {
		t.Fatal(errors.Wrap(err, "executing"))
	}
	assert.Equal(t, granted, 3, "next day grant mismatch")

	got := s.GetCachedState()
	assert.Equal(t, got.Progress.Tokens, 6, "token balance mismatch")
	assert.Equal(t, got.Progress.StreakDays, 2, "streak mismatch")
}

func TestGrantDailyTokensStreakBonus(t *testing.T) {
	env := newTestEnv(t)
	s := env.session

	total := 0
	for day := 1; day <= 7; day++ {
		granted, err := s.GrantDailyTokens()
		if err != nil {
			t.Fatal(errors.Wrap(err, "executing"))
		}
		total += granted
		env.clock.Advance(24 * time.Hour)
	}

	got := s.GetCachedState()
	assert.Equal(t, got.Progress.StreakDays, 7, "streak mismatch")
	// Six base grants plus the bonus-carrying seventh
	assert.Equal(t, total, 6*3+5, "total grant mismatch")
}

func TestMilestones(t *testing.T) {
	env := newTestEnv(t)
	s := env.session
	now := env.clock.Now().UnixMilli()

	if err := s.StartMilestone("m1"); err != nil {
		t.Fatal(errors.Wrap(err, "starting"))
	}

	got := s.GetCachedState()
	m := got.Learning.Milestones["m1"]
	assert.Equal(t, m.Status, profile.StatusInProgress, "status mismatch")
	assert.Equal(t, m.StartedAt, now, "started at mismatch")
	assert.Equal(t, m.Source, profile.SourceManual, "source mismatch")

	// Starting again is a no-op
	if err := s.StartMilestone("m1"); err != nil {
		t.Fatal(errors.Wrap(err, "re-starting"))
	}

	if err := s.CompleteMilestone("m1"); err != nil {
		t.Fatal(errors.Wrap(err, "completing"))
	}

	got = s.GetCachedState()
	m = got.Learning.Milestones["m1"]
	assert.Equal(t, m.Status, profile.StatusCompleted, "status mismatch")
	assert.Equal(t, m.CompletedAt, now, "completed at mismatch")
	assert.Equal(t, got.Learning.Activity[0].Kind, profile.ActivityMilestoneCompleted, "activity kind mismatch")

	// Completing again is a no-op
	if err := s.CompleteMilestone("m1"); err != nil {
		t.Fatal(errors.Wrap(err, "re-completing"))
	}
	assert.Equal(t, len(s.GetCachedState().Learning.Activity), 1, "no activity should be appended")
}

func TestMilestonesAdvanceStage(t *testing.T) {
	env := newTestEnv(t)
	s := env.session

	for i := 0; i < 3; i++ {
		if err := s.CompleteMilestone(fmt.Sprintf("m%d", i)); err != nil {
			t.Fatal(errors.Wrap(err, "completing milestone"))
		}
	}

	assert.Equal(t, s.GetCachedState().Learning.Stage, profile.StageMid, "stage mismatch")

	for i := 3; i < 6; i++ {
		if err := s.CompleteMilestone(fmt.Sprintf("m%d", i)); err != nil {
			t.Fatal(errors.Wrap(err, "completing milestone"))
		}
	}

	assert.Equal(t, s.GetCachedState().Learning.Stage, profile.StageLate, "stage mismatch")
}

func TestOnboarding(t *testing.T) {
	env := newTestEnv(t)
	s := env.session
	now := env.clock.Now().UnixMilli()

	if err := s.SetOnboardingStep(profile.StepGoal); err != nil {
		t.Fatal(errors.Wrap(err, "setting step"))
	}

	got := s.GetCachedState()
	assert.Equal(t, got.Onboarding.CurrentStep, profile.StepGoal, "step mismatch")

	if err := s.CompleteOnboarding("engineer", "interview", []byte(`{"track": "backend"}`)); err != nil {
		t.Fatal(errors.Wrap(err, "completing"))
	}

	got = s.GetCachedState()
	assert.Equal(t, got.Onboarding.IsComplete, true, "completion mismatch")
	assert.Equal(t, got.Onboarding.SelectedRole, "engineer", "role mismatch")
	assert.Equal(t, got.Onboarding.SelectedGoal, "interview", "goal mismatch")
	assert.Equal(t, got.Onboarding.CompletedAt, now, "completed at mismatch")

	// Completing with the same answers is a no-op
	if err := s.CompleteOnboarding("engineer", "interview", nil); err != nil {
		t.Fatal(errors.Wrap(err, "re-completing"))
	}

	err := s.SetOnboardingStep("bogus")
	assert.NotEqual(t, err, nil, "an invalid step should be rejected")
}

func TestRecordActivityBounded(t *testing.T) {
	env := newTestEnv(t)
	s := env.session

	for i := 0; i < profile.ActivityCap+10; i++ {
		if err := s.RecordActivity(profile.ActivityPatternViewed, fmt.Sprintf("/patterns/%d", i)); err != nil {
			t.Fatal(errors.Wrap(err, "recording"))
		}
	}

	got := s.GetCachedState()
	assert.Equal(t, len(got.Learning.Activity), profile.ActivityCap, "the log should stay bounded")
}

func TestDismissals(t *testing.T) {
	env := newTestEnv(t)
	s := env.session
	now := env.clock.Now().UnixMilli()

	if err := s.DismissRecommendation("r1", now+100000); err != nil {
		t.Fatal(errors.Wrap(err, "dismissing"))
	}
	if err := s.DismissRecommendation("r2", now-5); err != nil {
		t.Fatal(errors.Wrap(err, "dismissing"))
	}

	// Re-dismissing with the same expiry is a no-op
	notified := 0
	unsubscribe := s.Subscribe(func(profile.State) { notified++ })
	if err := s.DismissRecommendation("r1", now+100000); err != nil {
		t.Fatal(errors.Wrap(err, "re-dismissing"))
	}
	assert.Equal(t, notified, 0, "a same-expiry dismissal should be a no-op")
	unsubscribe()

	removed, err := s.SweepExpiredDismissals()
	if err != nil {
		t.Fatal(errors.Wrap(err, "sweeping"))
	}
	assert.Equal(t, removed, 1, "removed count mismatch")

	got := s.GetCachedState()
	_, hasLive := got.Personalization.Dismissed["r1"]
	_, hasExpired := got.Personalization.Dismissed["r2"]
	assert.Equal(t, hasLive, true, "live dismissal should survive")
	assert.Equal(t, hasExpired, false, "expired dismissal should be removed")

	// Sweeping with nothing expired is a no-op
	removed, err = s.SweepExpiredDismissals()
	if err != nil {
		t.Fatal(errors.Wrap(err, "re-sweeping"))
	}
	assert.Equal(t, removed, 0, "nothing should be removed")
}

func TestMarkSurfaceSeen(t *testing.T) {
	env := newTestEnv(t)
	s := env.session
	now := env.clock.Now().UnixMilli()

	err := s.MarkSurfaceSeen("bogus_surface", []string{"r1"})
	assert.Equal(t, errors.Cause(err), ErrUnknownSurface, "an unknown surface should be rejected")

	if err := s.MarkSurfaceSeen("home", []string{"r2", "r1"}); err != nil {
		t.Fatal(errors.Wrap(err, "executing"))
	}

	got := s.GetCachedState()
	surface := got.Personalization.Surfaces["home"]
	assert.Equal(t, surface.LastSeenAt, now, "last seen mismatch")
	assert.DeepEqual(t, surface.LastRecommendationIDs, []string{"r1", "r2"}, "recommendation ids should be sorted")
}

func TestContextOverride(t *testing.T) {
	env := newTestEnv(t)
	s := env.session

	if err := s.SetContextOverride("architect", "scale"); err != nil {
		t.Fatal(errors.Wrap(err, "setting"))
	}

	got := s.GetCachedState()
	assert.Equal(t, got.Personalization.ContextOverride.Role, "architect", "role mismatch")
	assert.Equal(t, got.Personalization.ContextOverride.Goal, "scale", "goal mismatch")

	// Setting the same override is a no-op
	notified := 0
	unsubscribe := s.Subscribe(func(profile.State) { notified++ })
	if err := s.SetContextOverride("architect", "scale"); err != nil {
		t.Fatal(errors.Wrap(err, "re-setting"))
	}
	assert.Equal(t, notified, 0, "a same-value override should be a no-op")
	unsubscribe()

	if err := s.ClearContextOverride(); err != nil {
		t.Fatal(errors.Wrap(err, "clearing"))
	}
	assert.Equal(t, s.GetCachedState().Personalization.ContextOverride == nil, true, "override should be cleared")

	// Clearing again is a no-op
	if err := s.ClearContextOverride(); err != nil {
		t.Fatal(errors.Wrap(err, "re-clearing"))
	}
}

func TestAttachFileRequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.session.AttachFile("notes.pdf", nil)
	assert.Equal(t, err, ErrNotLoggedIn, "error mismatch")

	assert.Equal(t, env.session.RemoveFile("some-uuid"), ErrNotLoggedIn, "error mismatch")
}

func TestAttachFile(t *testing.T) {
	env := newTestEnv(t)
	s := env.session

	// Establish a server profile first
	if err := s.Flush(); err != nil {
		t.Fatal(errors.Wrap(err, "flushing"))
	}

	uuid, err := s.AttachFile("notes.txt", strings.NewReader("file content"))
	if err != nil {
		t.Fatal(errors.Wrap(err, "executing"))
	}
	assert.NotEqual(t, uuid, "", "file uuid should be set")

	got := s.GetCachedState()
	f, ok := got.Files[uuid]
	assert.Equal(t, ok, true, "file metadata should be recorded")
	assert.Equal(t, f.Name, "notes.txt", "name mismatch")
	assert.Equal(t, f.Size, int64(len("file content")), "size mismatch")

	if err := s.RemoveFile(uuid); err != nil {
		t.Fatal(errors.Wrap(err, "removing"))
	}

	_, ok = s.GetCachedState().Files[uuid]
	assert.Equal(t, ok, false, "file metadata should be dropped")
}
