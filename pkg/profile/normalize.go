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
)

// Issue records one defaulting decision the normalizer made while
// reconstructing a state from untrusted input.
type Issue struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// report collects issues during a normalization pass.
type report struct {
	issues []Issue
}

func (r *report) add(path, reason string) {
	r.issues = append(r.issues, Issue{Path: path, Reason: reason})
}

// Parse decodes the given JSON bytes and normalizes the result. It never
// fails; malformed JSON yields an empty state with an issue recorded.
func Parse(data []byte) (State, []Issue) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return NewState(), []Issue{{Path: "$", Reason: "invalid JSON"}}
	}

	return NormalizeWithReport(raw)
}

// Normalize reconstructs a structurally valid State from an arbitrary value,
// substituting safe defaults for anything missing or malformed. It is total
// and idempotent, and never aliases its input.
func Normalize(raw interface{}) State {
	ret, _ := NormalizeWithReport(raw)
	return ret
}

// NormalizeWithReport is Normalize with the defaulting decisions made
// inspectable.
func NormalizeWithReport(raw interface{}) (State, []Issue) {
	r := &report{}
	ret := NewState()

	m, ok := raw.(map[string]interface{})
	if !ok {
		// Structs round-trip through here when callers re-normalize an
		// already-typed state.
		if s, isState := raw.(State); isState {
			m = stateToMap(s)
		} else {
			if raw != nil {
				r.add("$", "not an object")
			}
			return ret, r.issues
		}
	}

	ret.Version = normInt(r, m, "version", SchemaVersion)
	if ret.Version < SchemaVersion {
		ret.Version = SchemaVersion
	}
	ret.UpdatedAt = normTimestamp(r, m, "updated_at")

	ret.Onboarding = normOnboarding(r, m["onboarding"])
	ret.Progress = normProgress(r, m["progress"])
	ret.Learning = normLearning(r, m["learning"])
	ret.Files = normFiles(r, m["files"])
	ret.Personalization = normPersonalization(r, m["personalization"])

	return ret, r.issues
}

// stateToMap round-trips a typed state through JSON so that a single
// normalization path handles both typed and untyped input.
func stateToMap(s State) map[string]interface{} {
	b, err := json.Marshal(s)
	if err != nil {
		return map[string]interface{}{}
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]interface{}{}
	}

	return m
}

func asObject(raw interface{}) (map[string]interface{}, bool) {
	m, ok := raw.(map[string]interface{})
	return m, ok
}

func normString(r *report, m map[string]interface{}, key, fallback string) string {
	raw, present := m[key]
	if !present || raw == nil {
		return fallback
	}

	s, ok := raw.(string)
	if !ok {
		r.add(key, "not a string")
		return fallback
	}

	return s
}

func normEnum(r *report, m map[string]interface{}, key string, allowed []string, fallback string) string {
	s := normString(r, m, key, fallback)

	for _, a := range allowed {
		if s == a {
			return s
		}
	}

	if s != fallback {
		r.add(key, fmt.Sprintf("invalid value %q", s))
	}

	return fallback
}

func normBool(r *report, m map[string]interface{}, key string) bool {
	raw, present := m[key]
	if !present || raw == nil {
		return false
	}

	b, ok := raw.(bool)
	if !ok {
		r.add(key, "not a boolean")
		return false
	}

	return b
}

func normInt(r *report, m map[string]interface{}, key string, fallback int) int {
	raw, present := m[key]
	if !present || raw == nil {
		return fallback
	}

	f, ok := raw.(float64)
	if !ok {
		r.add(key, "not a number")
		return fallback
	}

	return int(f)
}

func normNonNegInt(r *report, m map[string]interface{}, key string) int {
	n := normInt(r, m, key, 0)
	if n < 0 {
		r.add(key, "negative")
		return 0
	}

	return n
}

func normTimestamp(r *report, m map[string]interface{}, key string) int64 {
	raw, present := m[key]
	if !present || raw == nil {
		return 0
	}

	f, ok := raw.(float64)
	if !ok || f < 0 {
		r.add(key, "not a timestamp")
		return 0
	}

	return int64(f)
}

func normInt64(r *report, m map[string]interface{}, key string) int64 {
	raw, present := m[key]
	if !present || raw == nil {
		return 0
	}

	f, ok := raw.(float64)
	if !ok || f < 0 {
		r.add(key, "not a non-negative number")
		return 0
	}

	return int64(f)
}

// normStringSlice keeps string elements and silently drops the rest.
func normStringSlice(r *report, raw interface{}, path string) []string {
	if raw == nil {
		return []string{}
	}

	arr, ok := raw.([]interface{})
	if !ok {
		r.add(path, "not an array")
		return []string{}
	}

	ret := []string{}
	for _, el := range arr {
		if s, isStr := el.(string); isStr {
			ret = append(ret, s)
		}
	}

	return ret
}

func normOnboarding(r *report, raw interface{}) *Onboarding {
	if raw == nil {
		return nil
	}

	m, ok := asObject(raw)
	if !ok {
		r.add("onboarding", "not an object")
		return nil
	}

	ret := Onboarding{
		CurrentStep:  normEnum(r, m, "current_step", []string{StepRole, StepGoal, StepJourney}, StepRole),
		SelectedRole: normString(r, m, "selected_role", ""),
		SelectedGoal: normString(r, m, "selected_goal", ""),
		IsComplete:   normBool(r, m, "is_complete"),
		CompletedAt:  normTimestamp(r, m, "completed_at"),
		UpdatedAt:    normTimestamp(r, m, "updated_at"),
	}

	// The journey payload is opaque. Anything JSON-serializable passes
	// through unchanged.
	if j, present := m["journey"]; present && j != nil {
		if b, err := json.Marshal(j); err == nil {
			ret.Journey = b
		}
	}

	// A completed onboarding always carries a completion time.
	if ret.IsComplete && ret.CompletedAt == 0 {
		ret.CompletedAt = ret.UpdatedAt
	}
	if !ret.IsComplete {
		ret.CompletedAt = 0
	}

	return &ret
}

func normProgress(r *report, raw interface{}) *Progress {
	if raw == nil {
		return nil
	}

	m, ok := asObject(raw)
	if !ok {
		r.add("progress", "not an object")
		return nil
	}

	ret := Progress{
		CompletedNodes:    sortedSet(normStringSlice(r, m["completed_nodes"], "progress.completed_nodes")),
		UnlockedNodes:     sortedSet(normStringSlice(r, m["unlocked_nodes"], "progress.unlocked_nodes")),
		Tokens:            normNonNegInt(r, m, "tokens"),
		TotalXP:           normNonNegInt(r, m, "total_xp"),
		Level:             normInt(r, m, "level", 1),
		StreakDays:        normNonNegInt(r, m, "streak_days"),
		LastActivityDate:  normTimestamp(r, m, "last_activity_date"),
		LastTokenGrant:    normTimestamp(r, m, "last_token_grant"),
		CompletedAtByNode: map[string]int64{},
	}

	if ret.Level < 1 {
		r.add("progress.level", "below minimum")
		ret.Level = 1
	}
	// Level is derived from XP and may only grow.
	if derived := LevelForXP(ret.TotalXP); derived > ret.Level {
		ret.Level = derived
	}

	if byNode, isObj := asObject(m["completed_at_by_node"]); isObj {
		for nodeID, v := range byNode {
			f, isNum := v.(float64)
			if !isNum || f < 0 {
				r.add("progress.completed_at_by_node."+nodeID, "not a timestamp")
				continue
			}
			ret.CompletedAtByNode[nodeID] = int64(f)
		}
	}

	return &ret
}

func normMilestone(r *report, raw interface{}, path string) (Milestone, bool) {
	m, ok := asObject(raw)
	if !ok {
		r.add(path, "not an object")
		return Milestone{}, false
	}

	ret := Milestone{
		Status:      normEnum(r, m, "status", []string{StatusNotStarted, StatusInProgress, StatusCompleted}, StatusNotStarted),
		StartedAt:   normTimestamp(r, m, "started_at"),
		CompletedAt: normTimestamp(r, m, "completed_at"),
		Source:      normEnum(r, m, "source", []string{SourceManual, SourceDerived, SourceMigrated}, SourceManual),
	}

	// Completion is a one-way ratchet even within a single record.
	if ret.CompletedAt > 0 {
		ret.Status = StatusCompleted
	}
	if ret.Status != StatusCompleted {
		ret.CompletedAt = 0
	}

	return ret, true
}

func normActivity(r *report, raw interface{}) []Activity {
	if raw == nil {
		return []Activity{}
	}

	arr, ok := raw.([]interface{})
	if !ok {
		r.add("learning.activity", "not an array")
		return []Activity{}
	}

	entries := []Activity{}
	for i, el := range arr {
		m, isObj := asObject(el)
		if !isObj {
			r.add(fmt.Sprintf("learning.activity[%d]", i), "not an object")
			continue
		}

		entry := Activity{
			ID:        normString(r, m, "id", ""),
			Kind:      normString(r, m, "kind", ""),
			Path:      normString(r, m, "path", ""),
			Timestamp: normTimestamp(r, m, "timestamp"),
		}
		if entry.ID == "" {
			r.add(fmt.Sprintf("learning.activity[%d]", i), "missing id")
			continue
		}

		entries = append(entries, entry)
	}

	return capActivity(entries)
}

func normLearning(r *report, raw interface{}) *Learning {
	if raw == nil {
		return nil
	}

	m, ok := asObject(raw)
	if !ok {
		r.add("learning", "not an object")
		return nil
	}

	ret := Learning{
		Milestones: map[string]Milestone{},
		Activity:   normActivity(r, m["activity"]),
	}

	if milestones, isObj := asObject(m["milestones"]); isObj {
		for id, v := range milestones {
			ms, valid := normMilestone(r, v, "learning.milestones."+id)
			if !valid {
				continue
			}
			ret.Milestones[id] = ms
		}
	}

	// Stage is derived, never trusted from input.
	ret.Stage = DeriveStage(ret.Milestones)

	if mig, isObj := asObject(m["migration"]); isObj {
		ret.Migration = &Migration{
			ImportedAt: normTimestamp(r, mig, "imported_at"),
			From:       normString(r, mig, "from", ""),
		}
	}

	return &ret
}

func normFiles(r *report, raw interface{}) map[string]File {
	ret := map[string]File{}

	if raw == nil {
		return ret
	}

	m, ok := asObject(raw)
	if !ok {
		r.add("files", "not an object")
		return ret
	}

	for id, v := range m {
		fm, isObj := asObject(v)
		if !isObj {
			r.add("files."+id, "not an object")
			continue
		}

		size := normInt64(r, fm, "size")
		ret[id] = File{
			Name:        normString(r, fm, "name", ""),
			Mime:        normString(r, fm, "mime", "application/octet-stream"),
			Size:        size,
			Checksum:    normString(r, fm, "checksum", ""),
			StoragePath: normString(r, fm, "storage_path", ""),
			CreatedAt:   normTimestamp(r, fm, "created_at"),
		}
	}

	return ret
}

func normPersonalization(r *report, raw interface{}) Personalization {
	ret := Personalization{
		Dismissed: map[string]Dismissal{},
		Surfaces:  map[string]Surface{},
	}

	m, ok := asObject(raw)
	if !ok {
		if raw != nil {
			r.add("personalization", "not an object")
		}
		return ret
	}

	if co, isObj := asObject(m["context_override"]); isObj {
		ret.ContextOverride = &ContextOverride{
			Role:      normString(r, co, "role", ""),
			Goal:      normString(r, co, "goal", ""),
			UpdatedAt: normTimestamp(r, co, "updated_at"),
		}
	}

	if dismissed, isObj := asObject(m["dismissed"]); isObj {
		for id, v := range dismissed {
			d, isDismissal := asObject(v)
			if !isDismissal {
				r.add("personalization.dismissed."+id, "not an object")
				continue
			}
			ret.Dismissed[id] = Dismissal{
				Until:     normTimestamp(r, d, "until"),
				UpdatedAt: normTimestamp(r, d, "updated_at"),
			}
		}
	}

	if surfaces, isObj := asObject(m["surfaces"]); isObj {
		for _, surfaceID := range SurfaceIDs {
			v, present := surfaces[surfaceID]
			if !present {
				continue
			}
			sm, isSurface := asObject(v)
			if !isSurface {
				r.add("personalization.surfaces."+surfaceID, "not an object")
				continue
			}
			ret.Surfaces[surfaceID] = Surface{
				LastSeenAt:            normTimestamp(r, sm, "last_seen_at"),
				LastRecommendationIDs: normStringSlice(r, sm["last_recommendation_ids"], "personalization.surfaces."+surfaceID+".last_recommendation_ids"),
				UpdatedAt:             normTimestamp(r, sm, "updated_at"),
			}
		}
	}

	return ret
}
