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

package dismiss

import (
	"time"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/context"
	"github.com/praxislearn/praxis/pkg/cli/infra"
	"github.com/praxislearn/praxis/pkg/cli/log"
	"github.com/praxislearn/praxis/pkg/cli/session"
	"github.com/spf13/cobra"
)

var example = `
  praxis dismiss rec-settle-in --ttl 168h
  praxis dismiss --sweep`

var ttlFlag time.Duration
var sweepFlag bool

// NewCmd returns a new dismiss command
func NewCmd(ctx context.PraxisCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dismiss <recommendation-id>",
		Short:   "Dismiss a recommendation for a while",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.DurationVar(&ttlFlag, "ttl", 7*24*time.Hour, "how long the recommendation stays dismissed")
	f.BoolVar(&sweepFlag, "sweep", false, "remove expired dismissals instead of adding one")

	return cmd
}

func newRun(ctx context.PraxisCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		s, err := session.NewFromCtx(ctx)
		if err != nil {
			return errors.Wrap(err, "creating a session")
		}
		defer s.Close()

		if sweepFlag {
			removed, err := s.SweepExpiredDismissals()
			if err != nil {
				return errors.Wrap(err, "sweeping dismissals")
			}

			if err := s.Flush(); err != nil {
				log.Debug("sync failed: %s\n", err)
			}

			log.Successf("removed %d expired dismissals\n", removed)

			return nil
		}

		if len(args) != 1 {
			return errors.New("missing the recommendation id")
		}

		until := ctx.Clock.Now().Add(ttlFlag).UnixMilli()
		if err := s.DismissRecommendation(args[0], until); err != nil {
			return errors.Wrap(err, "dismissing the recommendation")
		}

		if err := s.Flush(); err != nil {
			log.Debug("sync failed: %s\n", err)
		}

		log.Successf("dismissed %s until %s\n", args[0], time.UnixMilli(until).Format(time.RFC1123))

		return nil
	}
}
