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

package onboard

import (
	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/context"
	"github.com/praxislearn/praxis/pkg/cli/infra"
	"github.com/praxislearn/praxis/pkg/cli/log"
	"github.com/praxislearn/praxis/pkg/cli/session"
	"github.com/praxislearn/praxis/pkg/cli/ui"
	"github.com/spf13/cobra"
)

var example = `
  praxis onboard --role developer --goal interview-prep
  praxis onboard --step journey`

var roleFlag string
var goalFlag string
var stepFlag string

// NewCmd returns a new onboard command
func NewCmd(ctx context.PraxisCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "onboard",
		Short:   "Answer or revisit the onboarding questions",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVar(&roleFlag, "role", "", "your role")
	f.StringVar(&goalFlag, "goal", "", "your learning goal")
	f.StringVar(&stepFlag, "step", "", "move the onboarding flow to the given step without completing it")

	return cmd
}

func newRun(ctx context.PraxisCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		s, err := session.NewFromCtx(ctx)
		if err != nil {
			return errors.Wrap(err, "creating a session")
		}
		defer s.Close()

		if stepFlag != "" {
			if err := s.SetOnboardingStep(stepFlag); err != nil {
				return errors.Wrap(err, "setting the onboarding step")
			}

			return flushAndReport(s)
		}

		role := roleFlag
		if role == "" {
			if err := ui.PromptInput("your role", &role); err != nil {
				return errors.Wrap(err, "getting the role")
			}
		}

		goal := goalFlag
		if goal == "" {
			if err := ui.PromptInput("your goal", &goal); err != nil {
				return errors.Wrap(err, "getting the goal")
			}
		}

		if err := s.CompleteOnboarding(role, goal, nil); err != nil {
			return errors.Wrap(err, "completing onboarding")
		}

		return flushAndReport(s)
	}
}

func flushAndReport(s *session.Session) error {
	if err := s.Flush(); err != nil {
		log.Debug("sync failed: %s\n", err)
	}

	log.Success("onboarding updated\n")

	return nil
}
