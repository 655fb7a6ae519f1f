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

// Package migrate reads the pre-sync local data formats and folds them into
// a profile state. Older releases kept progress and onboarding answers as
// loose JSON files under the legacy dot directory; the session imports them
// exactly once on the first sync.
package migrate

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/consts"
	"github.com/praxislearn/praxis/pkg/cli/context"
	"github.com/praxislearn/praxis/pkg/cli/log"
	"github.com/praxislearn/praxis/pkg/cli/utils"
	"github.com/praxislearn/praxis/pkg/profile"
)

// LegacyLocalState builds a profile state from the legacy local files. The
// second return value reports whether any legacy data was found. Corrupt
// files are treated as absent; a legacy install must never block a sync.
func LegacyLocalState(ctx context.PraxisCtx) (profile.State, bool, error) {
	raw := map[string]interface{}{}
	found := false

	progressPath := filepath.Join(ctx.Paths.LegacyPraxis, consts.LegacyProgressFilename)
	if m, ok, err := readLegacyFile(progressPath); err != nil {
		return profile.State{}, false, errors.Wrap(err, "reading the legacy progress file")
	} else if ok {
		raw["progress"] = m
		found = true
	}

	onboardingPath := filepath.Join(ctx.Paths.LegacyPraxis, consts.LegacyOnboardingFilename)
	if m, ok, err := readLegacyFile(onboardingPath); err != nil {
		return profile.State{}, false, errors.Wrap(err, "reading the legacy onboarding file")
	} else if ok {
		raw["onboarding"] = m
		found = true
	}

	if !found {
		return profile.State{}, false, nil
	}

	state := profile.Normalize(raw)

	if state.Learning == nil {
		state.Learning = profile.NewLearning()
	}
	state.Learning.Migration = &profile.Migration{
		ImportedAt: ctx.Clock.Now().UnixMilli(),
		From:       consts.LegacyPraxisDirName,
	}

	return state, true, nil
}

func readLegacyFile(path string) (map[string]interface{}, bool, error) {
	ok, err := utils.FileExists(path)
	if err != nil {
		return nil, false, errors.Wrapf(err, "checking %s", path)
	}
	if !ok {
		return nil, false, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, false, errors.Wrapf(err, "reading %s", path)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		log.Debug("skipping corrupt legacy file %s: %s\n", path, err)
		return nil, false, nil
	}

	return m, true, nil
}
