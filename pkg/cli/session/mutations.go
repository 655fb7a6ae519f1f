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
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/client"
	"github.com/praxislearn/praxis/pkg/cli/utils"
	"github.com/praxislearn/praxis/pkg/profile"
)

// ErrInsufficientTokens is an error for unlocking a node the user cannot afford
var ErrInsufficientTokens = errors.New("not enough tokens")

// ErrUnknownSurface is an error for an unrecognized personalization surface
var ErrUnknownSurface = errors.New("unknown surface")

func ensureOnboarding(next *profile.State) *profile.Onboarding {
	if next.Onboarding == nil {
		next.Onboarding = &profile.Onboarding{CurrentStep: profile.StepRole}
	}

	return next.Onboarding
}

func ensureProgress(next *profile.State) *profile.Progress {
	if next.Progress == nil {
		next.Progress = profile.NewProgress()
	}
	if next.Progress.CompletedAtByNode == nil {
		next.Progress.CompletedAtByNode = map[string]int64{}
	}

	return next.Progress
}

func ensureLearning(next *profile.State) *profile.Learning {
	if next.Learning == nil {
		next.Learning = profile.NewLearning()
	}
	if next.Learning.Milestones == nil {
		next.Learning.Milestones = map[string]profile.Milestone{}
	}

	return next.Learning
}

func appendActivity(next *profile.State, kind, path string, now int64) error {
	id, err := utils.GenerateUUID()
	if err != nil {
		return errors.Wrap(err, "generating an activity id")
	}

	learning := ensureLearning(next)
	learning.Activity = profile.AppendActivity(learning.Activity, profile.Activity{
		ID:        id,
		Kind:      kind,
		Path:      path,
		Timestamp: now,
	})

	return nil
}

// SetOnboardingStep moves the onboarding flow to the given step
func (s *Session) SetOnboardingStep(step string) error {
	switch step {
	case profile.StepRole, profile.StepGoal, profile.StepJourney:
	default:
		return errors.Errorf("invalid onboarding step %q", step)
	}

	return s.mutate(func(next *profile.State, now int64) (bool, error) {
		onboarding := ensureOnboarding(next)
		if onboarding.CurrentStep == step {
			return false, nil
		}

		onboarding.CurrentStep = step
		onboarding.UpdatedAt = now

		return true, nil
	})
}

// CompleteOnboarding records the onboarding answers and marks the flow
// complete. Completion is sticky; it survives merges with incomplete copies.
func (s *Session) CompleteOnboarding(role, goal string, journey json.RawMessage) error {
	return s.mutate(func(next *profile.State, now int64) (bool, error) {
		onboarding := ensureOnboarding(next)
		if onboarding.IsComplete && onboarding.SelectedRole == role && onboarding.SelectedGoal == goal {
			return false, nil
		}

		onboarding.SelectedRole = role
		onboarding.SelectedGoal = goal
		if journey != nil {
			onboarding.Journey = append(json.RawMessage{}, journey...)
		}
		onboarding.IsComplete = true
		if onboarding.CompletedAt == 0 {
			onboarding.CompletedAt = now
		}
		onboarding.UpdatedAt = now

		return true, nil
	})
}

// CompleteNode marks a skill tree node completed, awarding XP by difficulty
// and advancing the streak. Completing an already-completed node is a no-op.
func (s *Session) CompleteNode(nodeID, difficulty string) error {
	return s.mutate(func(next *profile.State, now int64) (bool, error) {
		progress := ensureProgress(next)
		if containsNode(progress.CompletedNodes, nodeID) {
			return false, nil
		}

		progress.CompletedNodes = insertNode(progress.CompletedNodes, nodeID)
		progress.CompletedAtByNode[nodeID] = now
		progress.TotalXP += profile.XPReward(difficulty)
		if level := profile.LevelForXP(progress.TotalXP); level > progress.Level {
			progress.Level = level
		}
		progress.StreakDays = profile.NextStreak(progress.StreakDays, progress.LastActivityDate, now, s.loc)
		progress.LastActivityDate = now

		if err := appendActivity(next, profile.ActivityNodeCompleted, nodeID, now); err != nil {
			return false, err
		}

		return true, nil
	})
}

// UnlockNode spends tokens to unlock a skill tree node. The unlock fails
// with ErrInsufficientTokens when the balance does not cover the cost,
// leaving the state unchanged.
func (s *Session) UnlockNode(nodeID, difficulty string) error {
	return s.mutate(func(next *profile.State, now int64) (bool, error) {
		progress := ensureProgress(next)
		if containsNode(progress.UnlockedNodes, nodeID) {
			return false, nil
		}

		cost := profile.UnlockCost(difficulty)
		if progress.Tokens < cost {
			return false, ErrInsufficientTokens
		}

		progress.Tokens -= cost
		progress.UnlockedNodes = insertNode(progress.UnlockedNodes, nodeID)

		if err := appendActivity(next, profile.ActivityNodeUnlocked, nodeID, now); err != nil {
			return false, err
		}

		return true, nil
	})
}

// GrantDailyTokens issues the daily token grant. The grant is idempotent per
// calendar day in the session's timezone; it returns the number of tokens
// granted, zero when today's grant was already issued.
func (s *Session) GrantDailyTokens() (int, error) {
	var granted int

	err := s.mutate(func(next *profile.State, now int64) (bool, error) {
		progress := ensureProgress(next)
		if profile.SameDay(progress.LastTokenGrant, now, s.loc) {
			return false, nil
		}

		streak := profile.NextStreak(progress.StreakDays, progress.LastActivityDate, now, s.loc)
		granted = profile.GrantAmount(streak)

		progress.Tokens += granted
		progress.StreakDays = streak
		progress.LastTokenGrant = now
		progress.LastActivityDate = now

		return true, nil
	})
	if err != nil {
		return 0, err
	}

	return granted, nil
}

// StartMilestone marks a milestone in progress. Completed milestones stay
// completed.
func (s *Session) StartMilestone(milestoneID string) error {
	return s.mutate(func(next *profile.State, now int64) (bool, error) {
		learning := ensureLearning(next)

		m := learning.Milestones[milestoneID]
		if m.Status == profile.StatusCompleted || m.Status == profile.StatusInProgress {
			return false, nil
		}

		m.Status = profile.StatusInProgress
		if m.StartedAt == 0 {
			m.StartedAt = now
		}
		m.Source = profile.SourceManual
		learning.Milestones[milestoneID] = m
		learning.Stage = profile.DeriveStage(learning.Milestones)

		return true, nil
	})
}

// CompleteMilestone marks a milestone completed and recomputes the learning
// stage. Completing an already-completed milestone is a no-op.
func (s *Session) CompleteMilestone(milestoneID string) error {
	return s.mutate(func(next *profile.State, now int64) (bool, error) {
		learning := ensureLearning(next)

		m := learning.Milestones[milestoneID]
		if m.Status == profile.StatusCompleted {
			return false, nil
		}

		m.Status = profile.StatusCompleted
		if m.StartedAt == 0 {
			m.StartedAt = now
		}
		m.CompletedAt = now
		if m.Source == "" {
			m.Source = profile.SourceManual
		}
		learning.Milestones[milestoneID] = m
		learning.Stage = profile.DeriveStage(learning.Milestones)

		if err := appendActivity(next, profile.ActivityMilestoneCompleted, milestoneID, now); err != nil {
			return false, err
		}

		return true, nil
	})
}

// RecordActivity appends an entry to the activity log. The log is bounded;
// the oldest entries fall off past the cap.
func (s *Session) RecordActivity(kind, path string) error {
	return s.mutate(func(next *profile.State, now int64) (bool, error) {
		if err := appendActivity(next, kind, path, now); err != nil {
			return false, err
		}

		return true, nil
	})
}

// DismissRecommendation suppresses a recommendation until the given time
func (s *Session) DismissRecommendation(recommendationID string, until int64) error {
	return s.mutate(func(next *profile.State, now int64) (bool, error) {
		if next.Personalization.Dismissed == nil {
			next.Personalization.Dismissed = map[string]profile.Dismissal{}
		}

		existing, ok := next.Personalization.Dismissed[recommendationID]
		if ok && existing.Until == until {
			return false, nil
		}

		next.Personalization.Dismissed[recommendationID] = profile.Dismissal{
			Until:     until,
			UpdatedAt: now,
		}

		return true, nil
	})
}

// SweepExpiredDismissals removes dismissals whose expiry has passed. It
// returns the number of entries removed.
func (s *Session) SweepExpiredDismissals() (int, error) {
	var removed int

	err := s.mutate(func(next *profile.State, now int64) (bool, error) {
		for id, d := range next.Personalization.Dismissed {
			if d.Until <= now {
				delete(next.Personalization.Dismissed, id)
				removed++
			}
		}

		return removed > 0, nil
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}

// MarkSurfaceSeen records that a surface was shown with the given
// recommendation set. The surface must be one of profile.SurfaceIDs.
func (s *Session) MarkSurfaceSeen(surfaceID string, recommendationIDs []string) error {
	if !knownSurface(surfaceID) {
		return errors.Wrap(ErrUnknownSurface, surfaceID)
	}

	return s.mutate(func(next *profile.State, now int64) (bool, error) {
		if next.Personalization.Surfaces == nil {
			next.Personalization.Surfaces = map[string]profile.Surface{}
		}

		ids := append([]string{}, recommendationIDs...)
		sort.Strings(ids)

		next.Personalization.Surfaces[surfaceID] = profile.Surface{
			LastSeenAt:            now,
			LastRecommendationIDs: ids,
			UpdatedAt:             now,
		}

		return true, nil
	})
}

// SetContextOverride pins an explicit role and goal, overriding the
// onboarding answers for recommendation purposes
func (s *Session) SetContextOverride(role, goal string) error {
	return s.mutate(func(next *profile.State, now int64) (bool, error) {
		existing := next.Personalization.ContextOverride
		if existing != nil && existing.Role == role && existing.Goal == goal {
			return false, nil
		}

		next.Personalization.ContextOverride = &profile.ContextOverride{
			Role:      role,
			Goal:      goal,
			UpdatedAt: now,
		}

		return true, nil
	})
}

// ClearContextOverride removes the pinned role and goal
func (s *Session) ClearContextOverride() error {
	return s.mutate(func(next *profile.State, now int64) (bool, error) {
		if next.Personalization.ContextOverride == nil {
			return false, nil
		}

		next.Personalization.ContextOverride = nil

		return true, nil
	})
}

// AttachFile uploads a vault file and records its metadata in the profile.
// The file metadata is server-authoritative; on the next sync the server's
// copy wins for any shared ID. It returns the file's UUID.
func (s *Session) AttachFile(name string, content io.Reader) (string, error) {
	s.mu.Lock()
	cctx := s.ctx
	s.mu.Unlock()

	if cctx.SessionKey == "" {
		return "", ErrNotLoggedIn
	}

	resp, err := client.UploadFile(cctx, name, content)
	if err != nil {
		return "", errors.Wrap(err, "uploading the file")
	}

	err = s.mutate(func(next *profile.State, now int64) (bool, error) {
		if next.Files == nil {
			next.Files = map[string]profile.File{}
		}

		next.Files[resp.File.UUID] = profile.File{
			Name:      resp.File.Name,
			Mime:      resp.File.Mime,
			Size:      resp.File.Size,
			Checksum:  resp.File.Checksum,
			CreatedAt: resp.File.CreatedAt,
		}

		return true, nil
	})
	if err != nil {
		return "", err
	}

	return resp.File.UUID, nil
}

// RemoveFile deletes a vault file from the server and drops its metadata
// from the profile
func (s *Session) RemoveFile(fileUUID string) error {
	s.mu.Lock()
	cctx := s.ctx
	s.mu.Unlock()

	if cctx.SessionKey == "" {
		return ErrNotLoggedIn
	}

	if err := client.DeleteFile(cctx, fileUUID); err != nil {
		return errors.Wrap(err, "deleting the file")
	}

	return s.mutate(func(next *profile.State, now int64) (bool, error) {
		if _, ok := next.Files[fileUUID]; !ok {
			return false, nil
		}

		delete(next.Files, fileUUID)

		return true, nil
	})
}

func knownSurface(surfaceID string) bool {
	for _, id := range profile.SurfaceIDs {
		if id == surfaceID {
			return true
		}
	}

	return false
}

func containsNode(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}

	return false
}

func insertNode(ids []string, id string) []string {
	next := append(append([]string{}, ids...), id)
	sort.Strings(next)

	return next
}
