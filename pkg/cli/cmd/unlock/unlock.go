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

package unlock

import (
	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/context"
	"github.com/praxislearn/praxis/pkg/cli/infra"
	"github.com/praxislearn/praxis/pkg/cli/log"
	"github.com/praxislearn/praxis/pkg/cli/session"
	"github.com/praxislearn/praxis/pkg/profile"
	"github.com/spf13/cobra"
)

var example = `
  praxis unlock cqrs --difficulty advanced`

var difficultyFlag string

// NewCmd returns a new unlock command
func NewCmd(ctx context.PraxisCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "unlock <node-id>",
		Short:   "Spend tokens to unlock a skill tree node",
		Example: example,
		Args:    cobra.ExactArgs(1),
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVarP(&difficultyFlag, "difficulty", "d", profile.DifficultyBeginner, "the node difficulty, deciding the token cost")

	return cmd
}

func newRun(ctx context.PraxisCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		nodeID := args[0]

		s, err := session.NewFromCtx(ctx)
		if err != nil {
			return errors.Wrap(err, "creating a session")
		}
		defer s.Close()

		err = s.UnlockNode(nodeID, difficultyFlag)
		if errors.Cause(err) == session.ErrInsufficientTokens {
			state := s.GetCachedState()
			balance := 0
			if state.Progress != nil {
				balance = state.Progress.Tokens
			}
			log.Errorf("not enough tokens. the unlock costs %d and you have %d\n", profile.UnlockCost(difficultyFlag), balance)
			return nil
		} else if err != nil {
			return errors.Wrap(err, "unlocking the node")
		}

		if err := s.Flush(); err != nil {
			log.Debug("sync failed: %s\n", err)
		}

		log.Successf("unlocked %s\n", nodeID)

		return nil
	}
}
