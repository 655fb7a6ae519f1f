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

import "time"

const (
	// xpPerLevel is the amount of XP that advances the learner one level.
	xpPerLevel = 100

	// DailyTokenGrant is the base number of tokens granted per active day.
	DailyTokenGrant = 3
	// StreakBonusTokens is granted on top of the base at every full streak week.
	StreakBonusTokens = 2
	// StreakBonusInterval is the streak length that earns the bonus.
	StreakBonusInterval = 7
)

// Node difficulties
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// LevelForXP returns the level implied by the given total XP. Levels start
// at 1 and advance every xpPerLevel.
func LevelForXP(totalXP int) int {
	if totalXP < 0 {
		return 1
	}

	return 1 + totalXP/xpPerLevel
}

// UnlockCost returns the token cost of unlocking a node of the given
// difficulty. Unknown difficulties cost as much as advanced nodes.
func UnlockCost(difficulty string) int {
	switch difficulty {
	case DifficultyBeginner:
		return 1
	case DifficultyIntermediate:
		return 2
	default:
		return 3
	}
}

// XPReward returns the XP awarded for completing a node of the given
// difficulty.
func XPReward(difficulty string) int {
	switch difficulty {
	case DifficultyBeginner:
		return 25
	case DifficultyIntermediate:
		return 50
	default:
		return 100
	}
}

// GrantAmount returns the number of tokens a daily grant should issue given
// the streak length after the grant.
func GrantAmount(streakDays int) int {
	amount := DailyTokenGrant
	if streakDays > 0 && streakDays%StreakBonusInterval == 0 {
		amount += StreakBonusTokens
	}

	return amount
}

// SameDay reports whether two timestamps fall on the same calendar day in
// the given location. Day boundaries follow the user's effective timezone;
// exact boundary semantics are a product choice, not a merge invariant.
func SameDay(a, b int64, loc *time.Location) bool {
	if a == 0 || b == 0 {
		return false
	}

	ta := time.UnixMilli(a).In(loc)
	tb := time.UnixMilli(b).In(loc)

	return ta.Year() == tb.Year() && ta.YearDay() == tb.YearDay()
}

// DayGap returns the number of calendar-day boundaries between two
// timestamps in the given location. A result of 0 means the same day, 1
// means consecutive days.
func DayGap(earlier, later int64, loc *time.Location) int {
	te := time.UnixMilli(earlier).In(loc)
	tl := time.UnixMilli(later).In(loc)

	startE := time.Date(te.Year(), te.Month(), te.Day(), 0, 0, 0, 0, loc)
	startL := time.Date(tl.Year(), tl.Month(), tl.Day(), 0, 0, 0, 0, loc)

	return int(startL.Sub(startE).Hours() / 24)
}

// NextStreak returns the streak length after activity at now, given the
// previous activity time. A gap of one day extends the streak; anything
// longer resets it to 1.
func NextStreak(streakDays int, lastActivity, now int64, loc *time.Location) int {
	if lastActivity == 0 {
		return 1
	}

	gap := DayGap(lastActivity, now, loc)
	switch {
	case gap == 0:
		if streakDays == 0 {
			return 1
		}
		return streakDays
	case gap == 1:
		return streakDays + 1
	default:
		return 1
	}
}
