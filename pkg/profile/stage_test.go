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
	"fmt"
	"testing"

	"github.com/praxislearn/praxis/pkg/assert"
)

func makeMilestones(completed, inProgress int) map[string]Milestone {
	ret := map[string]Milestone{}
	for i := 0; i < completed; i++ {
		ret[fmt.Sprintf("done-%d", i)] = Milestone{Status: StatusCompleted, CompletedAt: 100}
	}
	for i := 0; i < inProgress; i++ {
		ret[fmt.Sprintf("wip-%d", i)] = Milestone{Status: StatusInProgress, StartedAt: 100}
	}

	return ret
}

func TestDeriveStage(t *testing.T) {
	testCases := []struct {
		completed  int
		inProgress int
		expected   string
	}{
		{completed: 0, inProgress: 0, expected: StageEarly},
		{completed: 2, inProgress: 5, expected: StageEarly},
		{completed: 3, inProgress: 0, expected: StageMid},
		{completed: 5, inProgress: 2, expected: StageMid},
		{completed: 6, inProgress: 0, expected: StageLate},
		{completed: 9, inProgress: 1, expected: StageLate},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("test case %d", idx), func(t *testing.T) {
			got := DeriveStage(makeMilestones(tc.completed, tc.inProgress))

			assert.Equal(t, got, tc.expected, "stage mismatch")
		})
	}
}

func TestDeriveStageNil(t *testing.T) {
	assert.Equal(t, DeriveStage(nil), StageEarly, "nil milestones should be early")
}
