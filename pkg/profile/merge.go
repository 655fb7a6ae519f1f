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
	"sort"
)

// Merge combines two snapshots into one that is a superset of the
// information recorded in either. Inputs must already be normalized. The
// result is a fresh value; neither input is mutated or aliased.
//
// Merge is idempotent and order-independent in effect: the server may
// receive snapshots from two devices in either order and converges to the
// same result. Ties on equal timestamps are broken by comparing the
// serialized records lexicographically, which is arbitrary but
// deterministic across replicas.
func Merge(local, server State, now int64) State {
	ret := NewState()

	ret.Version = maxInt(local.Version, server.Version)
	ret.UpdatedAt = now

	ret.Onboarding = mergeOnboarding(local.Onboarding, server.Onboarding)
	ret.Progress = mergeProgress(local.Progress, server.Progress)
	ret.Learning = mergeLearning(local.Learning, server.Learning)
	ret.Files = mergeFiles(local.Files, server.Files)
	ret.Personalization = mergePersonalization(local.Personalization, server.Personalization)

	return ret
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// laterRecord reports whether record a beats record b given their decisive
// timestamps, falling back to a lexicographic comparison of the serialized
// values on an exact tie.
func laterRecord(a interface{}, aAt int64, b interface{}, bAt int64) bool {
	if aAt != bAt {
		return aAt > bAt
	}

	aBytes, _ := json.Marshal(a)
	bBytes, _ := json.Marshal(b)

	return string(aBytes) > string(bBytes)
}

// mergeOnboarding picks the record with the later decisive timestamp and
// backfills empty fields from the loser. A completion timestamp outranks a
// plain update.
func mergeOnboarding(a, b *Onboarding) *Onboarding {
	if a == nil && b == nil {
		return nil
	}
	if a == nil {
		return cloneOnboarding(b)
	}
	if b == nil {
		return cloneOnboarding(a)
	}

	var winner, loser Onboarding
	if decideOnboarding(*a, *b) {
		winner, loser = *a, *b
	} else {
		winner, loser = *b, *a
	}

	// Backfill: a later but partial record must not discard data the
	// earlier record had.
	if winner.SelectedRole == "" {
		winner.SelectedRole = loser.SelectedRole
	}
	if winner.SelectedGoal == "" {
		winner.SelectedGoal = loser.SelectedGoal
	}
	if winner.Journey == nil {
		winner.Journey = loser.Journey
	}

	// Completion ratchets.
	if loser.IsComplete && !winner.IsComplete {
		winner.IsComplete = true
		winner.CompletedAt = loser.CompletedAt
	}
	if winner.IsComplete && loser.IsComplete {
		winner.CompletedAt = maxInt64(winner.CompletedAt, loser.CompletedAt)
	}

	winner.UpdatedAt = maxInt64(a.UpdatedAt, b.UpdatedAt)

	return cloneOnboarding(&winner)
}

func cloneOnboarding(o *Onboarding) *Onboarding {
	ret := *o
	if o.Journey != nil {
		ret.Journey = append(json.RawMessage{}, o.Journey...)
	}
	return &ret
}

// decideOnboarding reports whether a wins over b. Completion timestamps take
// priority; equal completion falls back to update time, then to the
// serialized tie-break.
func decideOnboarding(a, b Onboarding) bool {
	if a.CompletedAt != b.CompletedAt {
		return a.CompletedAt > b.CompletedAt
	}

	return laterRecord(a, a.UpdatedAt, b, b.UpdatedAt)
}

func mergeProgress(a, b *Progress) *Progress {
	if a == nil && b == nil {
		return nil
	}
	if a == nil {
		a = NewProgress()
	}
	if b == nil {
		b = NewProgress()
	}

	ret := Progress{
		CompletedNodes:    sortedSet(append(append([]string{}, a.CompletedNodes...), b.CompletedNodes...)),
		UnlockedNodes:     sortedSet(append(append([]string{}, a.UnlockedNodes...), b.UnlockedNodes...)),
		Tokens:            maxInt(a.Tokens, b.Tokens),
		TotalXP:           maxInt(a.TotalXP, b.TotalXP),
		Level:             maxInt(a.Level, b.Level),
		StreakDays:        maxInt(a.StreakDays, b.StreakDays),
		LastActivityDate:  maxInt64(a.LastActivityDate, b.LastActivityDate),
		LastTokenGrant:    maxInt64(a.LastTokenGrant, b.LastTokenGrant),
		CompletedAtByNode: map[string]int64{},
	}

	for nodeID, at := range a.CompletedAtByNode {
		ret.CompletedAtByNode[nodeID] = at
	}
	for nodeID, at := range b.CompletedAtByNode {
		if existing, ok := ret.CompletedAtByNode[nodeID]; !ok || at > existing {
			ret.CompletedAtByNode[nodeID] = at
		}
	}

	return &ret
}

// mergeMilestone resolves a single milestone pair. The higher-weight status
// wins, timestamps resolve independently to the later of the two, and a
// non-zero CompletedAt forces the status to completed.
func mergeMilestone(a, b Milestone) Milestone {
	ret := a
	if statusWeight(b.Status) > statusWeight(a.Status) {
		ret = b
	} else if statusWeight(b.Status) == statusWeight(a.Status) && laterRecord(b, 0, a, 0) {
		// Equal weight carries no ordering signal, so the usual
		// lexicographic tie-break decides non-semantic fields.
		ret = b
	}

	ret.StartedAt = mergeSetTimestamp(a.StartedAt, b.StartedAt)
	ret.CompletedAt = mergeSetTimestamp(a.CompletedAt, b.CompletedAt)

	// Completion is sticky.
	if ret.CompletedAt > 0 {
		ret.Status = StatusCompleted
	}

	return ret
}

// mergeSetTimestamp takes the later timestamp while treating zero as unset:
// a set value is never cleared.
func mergeSetTimestamp(a, b int64) int64 {
	if a == 0 {
		return b
	}
	if b == 0 {
		return a
	}

	return maxInt64(a, b)
}

func statusWeight(status string) int {
	switch status {
	case StatusCompleted:
		return 2
	case StatusInProgress:
		return 1
	default:
		return 0
	}
}

// AppendActivity adds an entry to an activity log, deduplicating by ID and
// keeping the log bounded. The input slice is not modified.
func AppendActivity(entries []Activity, entry Activity) []Activity {
	next := make([]Activity, 0, len(entries)+1)
	next = append(next, entries...)
	next = append(next, entry)

	return capActivity(next)
}

// capActivity deduplicates entries by ID keeping the later timestamp, sorts
// them newest-first and truncates to the cap.
func capActivity(entries []Activity) []Activity {
	byID := map[string]Activity{}
	for _, e := range entries {
		if existing, ok := byID[e.ID]; ok && existing.Timestamp >= e.Timestamp {
			continue
		}
		byID[e.ID] = e
	}

	ret := make([]Activity, 0, len(byID))
	for _, e := range byID {
		ret = append(ret, e)
	}

	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Timestamp != ret[j].Timestamp {
			return ret[i].Timestamp > ret[j].Timestamp
		}
		return ret[i].ID < ret[j].ID
	})

	if len(ret) > ActivityCap {
		ret = ret[:ActivityCap]
	}

	return ret
}

func mergeLearning(a, b *Learning) *Learning {
	if a == nil && b == nil {
		return nil
	}
	if a == nil {
		a = NewLearning()
	}
	if b == nil {
		b = NewLearning()
	}

	ret := Learning{
		Milestones: map[string]Milestone{},
	}

	for id, ms := range a.Milestones {
		ret.Milestones[id] = ms
	}
	for id, ms := range b.Milestones {
		if existing, ok := ret.Milestones[id]; ok {
			ret.Milestones[id] = mergeMilestone(existing, ms)
		} else {
			ret.Milestones[id] = ms
		}
	}

	ret.Activity = capActivity(append(append([]Activity{}, a.Activity...), b.Activity...))

	// Stage is derived from the merged milestones, never merged directly. A
	// directly merged stage could contradict the milestone map.
	ret.Stage = DeriveStage(ret.Milestones)

	ret.Migration = mergeMigration(a.Migration, b.Migration)

	return &ret
}

func mergeMigration(a, b *Migration) *Migration {
	if a == nil && b == nil {
		return nil
	}
	if a == nil {
		ret := *b
		return &ret
	}
	if b == nil {
		ret := *a
		return &ret
	}

	// The earlier marker records the actual import event.
	ret := *a
	if b.ImportedAt > 0 && (ret.ImportedAt == 0 || b.ImportedAt < ret.ImportedAt) {
		ret = *b
	}

	return &ret
}

// mergeFiles is a shallow merge keyed by file ID. The server is
// authoritative for blob-backed metadata since it alone can attest the blob
// exists, so a server entry wins outright for a shared ID.
func mergeFiles(local, server map[string]File) map[string]File {
	ret := make(map[string]File, len(local)+len(server))

	for id, f := range local {
		ret[id] = f
	}
	for id, f := range server {
		ret[id] = f
	}

	return ret
}

func mergePersonalization(a, b Personalization) Personalization {
	ret := Personalization{
		Dismissed: map[string]Dismissal{},
		Surfaces:  map[string]Surface{},
	}

	ret.ContextOverride = mergeContextOverride(a.ContextOverride, b.ContextOverride)

	for id, d := range a.Dismissed {
		ret.Dismissed[id] = d
	}
	for id, d := range b.Dismissed {
		if existing, ok := ret.Dismissed[id]; !ok || laterRecord(d, d.UpdatedAt, existing, existing.UpdatedAt) {
			ret.Dismissed[id] = d
		}
	}

	for id, s := range a.Surfaces {
		ret.Surfaces[id] = cloneSurface(s)
	}
	for id, s := range b.Surfaces {
		if existing, ok := ret.Surfaces[id]; !ok || laterRecord(s, s.UpdatedAt, existing, existing.UpdatedAt) {
			ret.Surfaces[id] = cloneSurface(s)
		}
	}

	return ret
}

func cloneSurface(s Surface) Surface {
	s.LastRecommendationIDs = append([]string{}, s.LastRecommendationIDs...)
	return s
}

func mergeContextOverride(a, b *ContextOverride) *ContextOverride {
	if a == nil && b == nil {
		return nil
	}
	if a == nil {
		ret := *b
		return &ret
	}
	if b == nil {
		ret := *a
		return &ret
	}

	var winner, loser ContextOverride
	if laterRecord(*a, a.UpdatedAt, *b, b.UpdatedAt) {
		winner, loser = *a, *b
	} else {
		winner, loser = *b, *a
	}

	if winner.Role == "" {
		winner.Role = loser.Role
	}
	if winner.Goal == "" {
		winner.Goal = loser.Goal
	}

	return &winner
}
