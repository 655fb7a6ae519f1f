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

package milestone

import (
	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/context"
	"github.com/praxislearn/praxis/pkg/cli/infra"
	"github.com/praxislearn/praxis/pkg/cli/log"
	"github.com/praxislearn/praxis/pkg/cli/session"
	"github.com/spf13/cobra"
)

var example = `
  praxis milestone start first-pattern
  praxis milestone complete first-pattern`

// NewCmd returns a new milestone command
func NewCmd(ctx context.PraxisCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "milestone",
		Short:   "Manage learning milestones",
		Example: example,
	}

	cmd.AddCommand(newStartCmd(ctx))
	cmd.AddCommand(newCompleteCmd(ctx))

	return cmd
}

func newStartCmd(ctx context.PraxisCtx) *cobra.Command {
	return &cobra.Command{
		Use:   "start <milestone-id>",
		Short: "Mark a milestone in progress",
		Args:  cobra.ExactArgs(1),
		RunE:  newStartRun(ctx),
	}
}

func newStartRun(ctx context.PraxisCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		return mutateMilestone(ctx, args[0], func(s *session.Session, id string) error {
			return s.StartMilestone(id)
		}, "started")
	}
}

func newCompleteCmd(ctx context.PraxisCtx) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <milestone-id>",
		Short: "Mark a milestone completed",
		Args:  cobra.ExactArgs(1),
		RunE:  newCompleteRun(ctx),
	}
}

func newCompleteRun(ctx context.PraxisCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		return mutateMilestone(ctx, args[0], func(s *session.Session, id string) error {
			return s.CompleteMilestone(id)
		}, "completed")
	}
}

func mutateMilestone(ctx context.PraxisCtx, id string, fn func(*session.Session, string) error, verb string) error {
	s, err := session.NewFromCtx(ctx)
	if err != nil {
		return errors.Wrap(err, "creating a session")
	}
	defer s.Close()

	if err := fn(s, id); err != nil {
		return errors.Wrapf(err, "updating milestone %s", id)
	}

	if err := s.Flush(); err != nil {
		log.Debug("sync failed: %s\n", err)
	}

	state := s.GetCachedState()
	if state.Learning != nil {
		log.Successf("%s %s. learning stage: %s\n", verb, id, state.Learning.Stage)
	} else {
		log.Successf("%s %s\n", verb, id)
	}

	return nil
}
