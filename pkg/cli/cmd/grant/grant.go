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

package grant

import (
	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/context"
	"github.com/praxislearn/praxis/pkg/cli/infra"
	"github.com/praxislearn/praxis/pkg/cli/log"
	"github.com/praxislearn/praxis/pkg/cli/session"
	"github.com/spf13/cobra"
)

var example = `
  praxis grant`

// NewCmd returns a new grant command
func NewCmd(ctx context.PraxisCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "grant",
		Short:   "Collect the daily token grant",
		Example: example,
		RunE:    newRun(ctx),
	}

	return cmd
}

func newRun(ctx context.PraxisCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		s, err := session.NewFromCtx(ctx)
		if err != nil {
			return errors.Wrap(err, "creating a session")
		}
		defer s.Close()

		granted, err := s.GrantDailyTokens()
		if err != nil {
			return errors.Wrap(err, "granting tokens")
		}

		if granted == 0 {
			log.Info("today's tokens were already collected\n")
			return nil
		}

		if err := s.Flush(); err != nil {
			log.Debug("sync failed: %s\n", err)
		}

		state := s.GetCachedState()
		if state.Progress != nil {
			log.Successf("collected %d tokens. %d day streak, %d tokens total\n", granted, state.Progress.StreakDays, state.Progress.Tokens)
		} else {
			log.Successf("collected %d tokens\n", granted)
		}

		return nil
	}
}
