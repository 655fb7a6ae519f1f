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

package profile

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/praxislearn/praxis/pkg/assert"
)

func TestParseInvalidJSON(t *testing.T) {
	testCases := []struct {
		input string
	}{
		{input: "{not json"},
		{input: ""},
		{input: "[1, 2"},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("test case %d", idx), func(t *testing.T) {
			got, issues := Parse([]byte(tc.input))

			assert.DeepEqual(t, got, NewState(), "malformed input should yield an empty state")
			assert.Equal(t, len(issues), 1, "issue count mismatch")
			assert.Equal(t, issues[0].Path, "$", "issue path mismatch")
			assert.Equal(t, issues[0].Reason, "invalid JSON", "issue reason mismatch")
		})
	}
}

func TestParseNotObject(t *testing.T) {
	got, issues := Parse([]byte(`[1, 2, 3]`))

	assert.DeepEqual(t, got, NewState(), "non-object input should yield an empty state")
	assert.Equal(t, len(issues), 1, "issue count mismatch")
	assert.DeepEqual(t, issues[0], Issue{Path: "$", Reason: "not an object"}, "issue mismatch")
}

func TestNormalizeDefaults(t *testing.T) {
	got, issues := Parse([]byte(`{}`))

	assert.Equal(t, got.Version, SchemaVersion, "version should default to the schema version")
	assert.Equal(t, got.UpdatedAt, int64(0), "updated_at should default to zero")
	assert.Equal(t, got.Onboarding == nil, true, "missing onboarding should stay nil")
	assert.Equal(t, got.Progress == nil, true, "missing progress should stay nil")
	assert.Equal(t, got.Learning == nil, true, "missing learning should stay nil")
	assert.Equal(t, len(got.Files), 0, "files should default to empty")
	assert.Equal(t, len(issues), 0, "defaulting an empty object should not record issues")
}

func TestNormalizeVersionFloor(t *testing.T) {
	got := Normalize(map[string]interface{}{"version": float64(0)})

	assert.Equal(t, got.Version, SchemaVersion, "version below the schema version should be raised")
}

func TestNormalizeOnboarding(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected Onboarding
	}{
		{
			name:  "invalid step falls back",
			input: `{"onboarding": {"current_step": "bogus", "selected_role": "engineer"}}`,
			expected: Onboarding{
				CurrentStep:  StepRole,
				SelectedRole: "engineer",
			},
		},
		{
			name:  "complete without timestamp inherits updated_at",
			input: `{"onboarding": {"current_step": "journey", "is_complete": true, "updated_at": 500}}`,
			expected: Onboarding{
				CurrentStep: StepJourney,
				IsComplete:  true,
				CompletedAt: 500,
				UpdatedAt:   500,
			},
		},
		{
			name:  "incomplete clears completed_at",
			input: `{"onboarding": {"current_step": "goal", "completed_at": 900}}`,
			expected: Onboarding{
				CurrentStep: StepGoal,
			},
		},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("test case %d %s", idx, tc.name), func(t *testing.T) {
			got, _ := Parse([]byte(tc.input))

			assert.DeepEqual(t, *got.Onboarding, tc.expected, "onboarding mismatch")
		})
	}
}

func TestNormalizeJourneyPassthrough(t *testing.T) {
	got, _ := Parse([]byte(`{"onboarding": {"journey": {"track": "backend", "weeks": 12}}}`))

	var journey map[string]interface{}
	err := json.Unmarshal(got.Onboarding.Journey, &journey)
	assert.Equal(t, err, nil, "journey should stay valid JSON")
	assert.Equal(t, journey["track"], "backend", "journey payload should pass through")
}

func TestNormalizeProgress(t *testing.T) {
	input := `{"progress": {
		"completed_nodes": ["n2", "n1", "n2", 7],
		"unlocked_nodes": ["n3"],
		"tokens": -4,
		"total_xp": 250,
		"level": 1,
		"streak_days": 3,
		"completed_at_by_node": {"n1": 100, "n2": -5}
	}}`

	got, issues := Parse([]byte(input))

	p := got.Progress
	assert.DeepEqual(t, p.CompletedNodes, []string{"n1", "n2"}, "completed nodes should dedupe, sort and drop non-strings")
	assert.Equal(t, p.Tokens, 0, "negative tokens should clamp to zero")
	assert.Equal(t, p.Level, 3, "level should be raised to match total xp")
	assert.DeepEqual(t, p.CompletedAtByNode, map[string]int64{"n1": 100}, "invalid node timestamps should be dropped")

	hasTokenIssue := false
	for _, issue := range issues {
		if issue.Path == "tokens" && issue.Reason == "negative" {
			hasTokenIssue = true
		}
	}
	assert.Equal(t, hasTokenIssue, true, "negative tokens should be reported")
}

func TestNormalizeLevelFloor(t *testing.T) {
	got, _ := Parse([]byte(`{"progress": {"level": -2}}`))

	assert.Equal(t, got.Progress.Level, 1, "level should floor at 1")
}

func TestNormalizeMilestones(t *testing.T) {
	input := `{"learning": {"milestones": {
		"m1": {"status": "in_progress", "completed_at": 700},
		"m2": {"status": "completed"},
		"m3": "not an object"
	}}}`

	got, _ := Parse([]byte(input))

	m1 := got.Learning.Milestones["m1"]
	assert.Equal(t, m1.Status, StatusCompleted, "a completion timestamp should force completed status")
	assert.Equal(t, m1.CompletedAt, int64(700), "m1 completed_at mismatch")

	m2 := got.Learning.Milestones["m2"]
	assert.Equal(t, m2.CompletedAt, int64(0), "completed without a timestamp keeps zero")
	assert.Equal(t, m2.Status, StatusCompleted, "m2 status mismatch")

	_, ok := got.Learning.Milestones["m3"]
	assert.Equal(t, ok, false, "malformed milestone should be dropped")
}

func TestNormalizeStageDerived(t *testing.T) {
	input := `{"learning": {
		"stage": "late",
		"milestones": {"m1": {"status": "completed", "completed_at": 100}}
	}}`

	got, _ := Parse([]byte(input))

	assert.Equal(t, got.Learning.Stage, StageEarly, "stage should be derived, not trusted from input")
}

func TestNormalizeActivity(t *testing.T) {
	input := `{"learning": {"activity": [
		{"id": "a1", "kind": "pattern_viewed", "timestamp": 100},
		{"kind": "pattern_viewed", "timestamp": 200},
		{"id": "a1", "kind": "pattern_viewed", "timestamp": 300}
	]}}`

	got, issues := Parse([]byte(input))

	assert.Equal(t, len(got.Learning.Activity), 1, "entries without an id should be dropped and duplicates collapsed")
	assert.Equal(t, got.Learning.Activity[0].Timestamp, int64(300), "the later duplicate should survive")

	hasMissingID := false
	for _, issue := range issues {
		if issue.Path == "learning.activity[1]" && issue.Reason == "missing id" {
			hasMissingID = true
		}
	}
	assert.Equal(t, hasMissingID, true, "a missing id should be reported")
}

func TestNormalizeFiles(t *testing.T) {
	input := `{"files": {
		"f1": {"name": "notes.pdf", "size": 120, "checksum": "abc"},
		"f2": 42
	}}`

	got, _ := Parse([]byte(input))

	assert.Equal(t, len(got.Files), 1, "malformed file entries should be dropped")
	f := got.Files["f1"]
	assert.Equal(t, f.Mime, "application/octet-stream", "mime should default")
	assert.Equal(t, f.Size, int64(120), "size mismatch")
}

func TestNormalizeSurfaces(t *testing.T) {
	input := `{"personalization": {"surfaces": {
		"home": {"last_seen_at": 100, "last_recommendation_ids": ["r1"]},
		"unknown_surface": {"last_seen_at": 200}
	}}}`

	got, _ := Parse([]byte(input))

	_, hasHome := got.Personalization.Surfaces["home"]
	assert.Equal(t, hasHome, true, "known surface should survive")
	_, hasUnknown := got.Personalization.Surfaces["unknown_surface"]
	assert.Equal(t, hasUnknown, false, "unknown surface should be dropped")
}

func TestNormalizeIdempotent(t *testing.T) {
	input := `{
		"version": 1,
		"updated_at": 1000,
		"onboarding": {"current_step": "goal", "selected_role": "engineer", "updated_at": 900},
		"progress": {"completed_nodes": ["n1"], "total_xp": 150, "tokens": 2, "level": 1},
		"learning": {"milestones": {"m1": {"status": "completed", "completed_at": 500}}},
		"personalization": {"dismissed": {"r1": {"until": 2000, "updated_at": 100}}}
	}`

	once, _ := Parse([]byte(input))
	twice := Normalize(once)

	assert.DeepEqual(t, twice, once, "normalizing a normalized state should be a no-op")
}
