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
	"time"

	"github.com/praxislearn/praxis/pkg/assert"
)

func TestLevelForXP(t *testing.T) {
	testCases := []struct {
		totalXP  int
		expected int
	}{
		{totalXP: -50, expected: 1},
		{totalXP: 0, expected: 1},
		{totalXP: 99, expected: 1},
		{totalXP: 100, expected: 2},
		{totalXP: 250, expected: 3},
		{totalXP: 1000, expected: 11},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("test case %d", idx), func(t *testing.T) {
			got := LevelForXP(tc.totalXP)

			assert.Equal(t, got, tc.expected, "level mismatch")
		})
	}
}

func TestUnlockCost(t *testing.T) {
	testCases := []struct {
		difficulty string
		expected   int
	}{
		{difficulty: DifficultyBeginner, expected: 1},
		{difficulty: DifficultyIntermediate, expected: 2},
		{difficulty: DifficultyAdvanced, expected: 3},
		{difficulty: "bogus", expected: 3},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("test case %d", idx), func(t *testing.T) {
			got := UnlockCost(tc.difficulty)

			assert.Equal(t, got, tc.expected, "cost mismatch")
		})
	}
}

func TestXPReward(t *testing.T) {
	testCases := []struct {
		difficulty string
		expected   int
	}{
		{difficulty: DifficultyBeginner, expected: 25},
		{difficulty: DifficultyIntermediate, expected: 50},
		{difficulty: DifficultyAdvanced, expected: 100},
		{difficulty: "bogus", expected: 100},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("test case %d", idx), func(t *testing.T) {
			got := XPReward(tc.difficulty)

			assert.Equal(t, got, tc.expected, "reward mismatch")
		})
	}
}

func TestGrantAmount(t *testing.T) {
	testCases := []struct {
		streakDays int
		expected   int
	}{
		{streakDays: 0, expected: 3},
		{streakDays: 1, expected: 3},
		{streakDays: 6, expected: 3},
		{streakDays: 7, expected: 5},
		{streakDays: 8, expected: 3},
		{streakDays: 14, expected: 5},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("test case %d", idx), func(t *testing.T) {
			got := GrantAmount(tc.streakDays)

			assert.Equal(t, got, tc.expected, "amount mismatch")
		})
	}
}

func TestSameDay(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		a        time.Time
		b        time.Time
		loc      *time.Location
		expected bool
	}{
		{
			a:        time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
			b:        time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC),
			loc:      time.UTC,
			expected: true,
		},
		{
			a:        time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC),
			b:        time.Date(2024, 5, 2, 0, 1, 0, 0, time.UTC),
			loc:      time.UTC,
			expected: false,
		},
		{
			// 01:00 and 05:00 UTC on May 2 are both May 1 in Los Angeles
			a:        time.Date(2024, 5, 2, 1, 0, 0, 0, time.UTC),
			b:        time.Date(2024, 5, 2, 5, 0, 0, 0, time.UTC),
			loc:      la,
			expected: true,
		},
		{
			// same UTC day but different local days
			a:        time.Date(2024, 5, 2, 1, 0, 0, 0, time.UTC),
			b:        time.Date(2024, 5, 2, 20, 0, 0, 0, time.UTC),
			loc:      la,
			expected: false,
		},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("test case %d", idx), func(t *testing.T) {
			got := SameDay(tc.a.UnixMilli(), tc.b.UnixMilli(), tc.loc)

			assert.Equal(t, got, tc.expected, "result mismatch")
		})
	}
}

func TestSameDayUnset(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC).UnixMilli()

	assert.Equal(t, SameDay(0, now, time.UTC), false, "unset first timestamp should not match")
	assert.Equal(t, SameDay(now, 0, time.UTC), false, "unset second timestamp should not match")
}

func TestNextStreak(t *testing.T) {
	day := func(d int) int64 {
		return time.Date(2024, 5, d, 12, 0, 0, 0, time.UTC).UnixMilli()
	}

	testCases := []struct {
		streakDays   int
		lastActivity int64
		now          int64
		expected     int
	}{
		// first ever activity
		{streakDays: 0, lastActivity: 0, now: day(1), expected: 1},
		// same day keeps the streak
		{streakDays: 4, lastActivity: day(1), now: day(1), expected: 4},
		// same day with a zero streak normalizes to 1
		{streakDays: 0, lastActivity: day(1), now: day(1), expected: 1},
		// consecutive day extends
		{streakDays: 4, lastActivity: day(1), now: day(2), expected: 5},
		// a gap resets
		{streakDays: 4, lastActivity: day(1), now: day(3), expected: 1},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("test case %d", idx), func(t *testing.T) {
			got := NextStreak(tc.streakDays, tc.lastActivity, tc.now, time.UTC)

			assert.Equal(t, got, tc.expected, "streak mismatch")
		})
	}
}
