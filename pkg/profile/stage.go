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

const (
	// stageMidThreshold is the number of completed milestones at which a
	// learner moves past the early stage.
	stageMidThreshold = 3
	// stageLateThreshold is the number of completed milestones at which a
	// learner reaches the late stage.
	stageLateThreshold = 6
)

// DeriveStage computes the learning stage from a milestone map. The stage is
// a denormalized field: it is always recomputed from milestones, never
// merged or accepted from input.
func DeriveStage(milestones map[string]Milestone) string {
	completed := 0
	for _, ms := range milestones {
		if ms.Status == StatusCompleted {
			completed++
		}
	}

	switch {
	case completed >= stageLateThreshold:
		return StageLate
	case completed >= stageMidThreshold:
		return StageMid
	default:
		return StageEarly
	}
}
