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

package context

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/consts"
)

// InitPraxisDirs creates, if missing, the directories praxis writes to
func InitPraxisDirs(paths Paths) error {
	dirs := []string{
		filepath.Join(paths.Config, consts.PraxisDirName),
		filepath.Join(paths.Data, consts.PraxisDirName),
		filepath.Join(paths.Cache, consts.PraxisDirName),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "creating directory at %s", dir)
		}
	}

	return nil
}
