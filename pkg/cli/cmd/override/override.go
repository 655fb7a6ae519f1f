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

package override

import (
	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/context"
	"github.com/praxislearn/praxis/pkg/cli/infra"
	"github.com/praxislearn/praxis/pkg/cli/log"
	"github.com/praxislearn/praxis/pkg/cli/session"
	"github.com/spf13/cobra"
)

var example = `
  praxis override architect system-design
  praxis override --clear`

var clearFlag bool

// NewCmd returns a new override command
func NewCmd(ctx context.PraxisCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "override <role> <goal>",
		Short:   "Pin a role and goal, overriding the onboarding answers",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.BoolVar(&clearFlag, "clear", false, "remove the pinned role and goal")

	return cmd
}

func newRun(ctx context.PraxisCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		s, err := session.NewFromCtx(ctx)
		if err != nil {
			return errors.Wrap(err, "creating a session")
		}
		defer s.Close()

		if clearFlag {
			if err := s.ClearContextOverride(); err != nil {
				return errors.Wrap(err, "clearing the override")
			}

			if err := s.Flush(); err != nil {
				log.Debug("sync failed: %s\n", err)
			}

			log.Success("override cleared\n")

			return nil
		}

		if len(args) != 2 {
			return errors.New("provide a role and a goal, or --clear")
		}

		if err := s.SetContextOverride(args[0], args[1]); err != nil {
			return errors.Wrap(err, "setting the override")
		}

		if err := s.Flush(); err != nil {
			log.Debug("sync failed: %s\n", err)
		}

		log.Successf("pinned role %s with goal %s\n", args[0], args[1])

		return nil
	}
}
