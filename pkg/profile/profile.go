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

// Package profile defines the user profile state model and the pure
// functions that normalize and reconcile it. All timestamps are unix
// milliseconds; zero means unset.
package profile

import (
	"encoding/json"
	"sort"
)

// SchemaVersion is the current version of the profile state schema.
const SchemaVersion = 1

// ActivityCap is the maximum number of entries retained in the activity log.
const ActivityCap = 50

// Onboarding steps
const (
	StepRole    = "role"
	StepGoal    = "goal"
	StepJourney = "journey"
)

// Milestone statuses
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Learning stages
const (
	StageEarly = "early"
	StageMid   = "mid"
	StageLate  = "late"
)

// Milestone sources
const (
	SourceManual   = "manual"
	SourceDerived  = "derived"
	SourceMigrated = "migrated"
)

// Activity kinds
const (
	ActivityPatternViewed      = "pattern_viewed"
	ActivityNodeCompleted      = "node_completed"
	ActivityNodeUnlocked       = "node_unlocked"
	ActivityMilestoneCompleted = "milestone_completed"
	ActivityCalculatorUsed     = "calculator_used"
)

// SurfaceIDs is the fixed set of UI surfaces that carry per-surface
// personalization state.
var SurfaceIDs = []string{
	"home",
	"catalog",
	"pattern_detail",
	"skill_tree",
	"calculators",
}

// State is the root aggregate of a user's profile. It is the unit of
// caching, synchronization and merging.
type State struct {
	Version         int             `json:"version"`
	UpdatedAt       int64           `json:"updated_at"`
	Onboarding      *Onboarding     `json:"onboarding"`
	Progress        *Progress       `json:"progress"`
	Learning        *Learning       `json:"learning"`
	Files           map[string]File `json:"files"`
	Personalization Personalization `json:"personalization"`
}

// Onboarding captures the state of the guided onboarding flow.
type Onboarding struct {
	CurrentStep  string          `json:"current_step"`
	SelectedRole string          `json:"selected_role"`
	SelectedGoal string          `json:"selected_goal"`
	Journey      json.RawMessage `json:"journey"`
	IsComplete   bool            `json:"is_complete"`
	CompletedAt  int64           `json:"completed_at"`
	UpdatedAt    int64           `json:"updated_at"`
}

// Progress is the gamified progression: skill tree nodes, tokens, XP and streaks.
// CompletedNodes and UnlockedNodes are sets; duplicates collapse and order is
// irrelevant, but they are kept sorted for a stable serialized form.
type Progress struct {
	CompletedNodes    []string         `json:"completed_nodes"`
	UnlockedNodes     []string         `json:"unlocked_nodes"`
	Tokens            int              `json:"tokens"`
	TotalXP           int              `json:"total_xp"`
	Level             int              `json:"level"`
	StreakDays        int              `json:"streak_days"`
	LastActivityDate  int64            `json:"last_activity_date"`
	LastTokenGrant    int64            `json:"last_token_grant"`
	CompletedAtByNode map[string]int64 `json:"completed_at_by_node"`
}

// Learning is the richer learning-progress model: milestones, a bounded
// activity log, and a marker recording the one-time legacy import.
type Learning struct {
	Stage      string               `json:"stage"`
	Milestones map[string]Milestone `json:"milestones"`
	Activity   []Activity           `json:"activity"`
	Migration  *Migration           `json:"migration"`
}

// Milestone is the state of a single learning milestone. CompletedAt, once
// set, is never cleared by a merge.
type Milestone struct {
	Status      string `json:"status"`
	StartedAt   int64  `json:"started_at"`
	CompletedAt int64  `json:"completed_at"`
	Source      string `json:"source"`
}

// Activity is one entry in the activity log. Entries are kept newest-first
// and deduplicated by ID.
type Activity struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Path      string `json:"path"`
	Timestamp int64  `json:"timestamp"`
}

// Migration records when legacy local data was folded into the profile.
type Migration struct {
	ImportedAt int64  `json:"imported_at"`
	From       string `json:"from"`
}

// File is the metadata of an uploaded vault file. The bytes live in an
// external blob store; the profile holds metadata only.
type File struct {
	Name        string `json:"name"`
	Mime        string `json:"mime"`
	Size        int64  `json:"size"`
	Checksum    string `json:"checksum"`
	StoragePath string `json:"storage_path"`
	CreatedAt   int64  `json:"created_at"`
}

// Personalization holds role/goal overrides, dismissed recommendations and
// per-surface bookkeeping.
type Personalization struct {
	ContextOverride *ContextOverride     `json:"context_override"`
	Dismissed       map[string]Dismissal `json:"dismissed"`
	Surfaces        map[string]Surface   `json:"surfaces"`
}

// ContextOverride is an explicit role/goal pinned by the user.
type ContextOverride struct {
	Role      string `json:"role"`
	Goal      string `json:"goal"`
	UpdatedAt int64  `json:"updated_at"`
}

// Dismissal suppresses a recommendation until the given time.
type Dismissal struct {
	Until     int64 `json:"until"`
	UpdatedAt int64 `json:"updated_at"`
}

// Surface is the per-surface "last seen" bookkeeping.
type Surface struct {
	LastSeenAt            int64    `json:"last_seen_at"`
	LastRecommendationIDs []string `json:"last_recommendation_ids"`
	UpdatedAt             int64    `json:"updated_at"`
}

// NewState returns an empty profile state at the current schema version.
func NewState() State {
	return State{
		Version: SchemaVersion,
		Files:   map[string]File{},
		Personalization: Personalization{
			Dismissed: map[string]Dismissal{},
			Surfaces:  map[string]Surface{},
		},
	}
}

// NewProgress returns an empty gamified progress structure.
func NewProgress() *Progress {
	return &Progress{
		CompletedNodes:    []string{},
		UnlockedNodes:     []string{},
		Level:             1,
		CompletedAtByNode: map[string]int64{},
	}
}

// NewLearning returns an empty learning progress structure.
func NewLearning() *Learning {
	return &Learning{
		Stage:      StageEarly,
		Milestones: map[string]Milestone{},
		Activity:   []Activity{},
	}
}

// Clone returns a deep copy of the state. Merge and Normalize operate on
// copies so that no caller-owned structure is ever aliased.
func (s State) Clone() State {
	ret := s

	if s.Onboarding != nil {
		o := *s.Onboarding
		if s.Onboarding.Journey != nil {
			o.Journey = append(json.RawMessage{}, s.Onboarding.Journey...)
		}
		ret.Onboarding = &o
	}
	if s.Progress != nil {
		p := *s.Progress
		p.CompletedNodes = append([]string{}, s.Progress.CompletedNodes...)
		p.UnlockedNodes = append([]string{}, s.Progress.UnlockedNodes...)
		p.CompletedAtByNode = make(map[string]int64, len(s.Progress.CompletedAtByNode))
		for k, v := range s.Progress.CompletedAtByNode {
			p.CompletedAtByNode[k] = v
		}
		ret.Progress = &p
	}
	if s.Learning != nil {
		l := *s.Learning
		l.Milestones = make(map[string]Milestone, len(s.Learning.Milestones))
		for k, v := range s.Learning.Milestones {
			l.Milestones[k] = v
		}
		l.Activity = append([]Activity{}, s.Learning.Activity...)
		if s.Learning.Migration != nil {
			m := *s.Learning.Migration
			l.Migration = &m
		}
		ret.Learning = &l
	}

	ret.Files = make(map[string]File, len(s.Files))
	for k, v := range s.Files {
		ret.Files[k] = v
	}

	if s.Personalization.ContextOverride != nil {
		co := *s.Personalization.ContextOverride
		ret.Personalization.ContextOverride = &co
	}
	ret.Personalization.Dismissed = make(map[string]Dismissal, len(s.Personalization.Dismissed))
	for k, v := range s.Personalization.Dismissed {
		ret.Personalization.Dismissed[k] = v
	}
	ret.Personalization.Surfaces = make(map[string]Surface, len(s.Personalization.Surfaces))
	for k, v := range s.Personalization.Surfaces {
		sf := v
		sf.LastRecommendationIDs = append([]string{}, v.LastRecommendationIDs...)
		ret.Personalization.Surfaces[k] = sf
	}

	return ret
}

// sortedSet collapses duplicates and sorts the given IDs.
func sortedSet(ids []string) []string {
	seen := map[string]bool{}
	ret := []string{}

	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		ret = append(ret, id)
	}

	sort.Strings(ret)

	return ret
}
