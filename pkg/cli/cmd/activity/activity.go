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

package activity

import (
	"time"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/client"
	"github.com/praxislearn/praxis/pkg/cli/context"
	"github.com/praxislearn/praxis/pkg/cli/infra"
	"github.com/praxislearn/praxis/pkg/cli/log"
	"github.com/praxislearn/praxis/pkg/cli/session"
	"github.com/spf13/cobra"
)

var example = `
  praxis activity
  praxis activity --remote --limit 10
  praxis activity record pattern_viewed /patterns/cqrs`

var remoteFlag bool
var limitFlag int

// NewCmd returns a new activity command
func NewCmd(ctx context.PraxisCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "activity",
		Short:   "Show the recent activity log",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.BoolVar(&remoteFlag, "remote", false, "list the activity recorded on the server instead of the local copy")
	f.IntVar(&limitFlag, "limit", 0, "the maximum number of entries to show")

	cmd.AddCommand(newRecordCmd(ctx))

	return cmd
}

func newRecordCmd(ctx context.PraxisCtx) *cobra.Command {
	return &cobra.Command{
		Use:   "record <kind> <path>",
		Short: "Record an activity entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session.NewFromCtx(ctx)
			if err != nil {
				return errors.Wrap(err, "creating a session")
			}
			defer s.Close()

			if err := s.RecordActivity(args[0], args[1]); err != nil {
				return errors.Wrap(err, "recording the activity")
			}

			if err := s.Flush(); err != nil {
				log.Debug("sync failed: %s\n", err)
			}

			log.Success("recorded\n")

			return nil
		},
	}
}

func newRun(ctx context.PraxisCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if remoteFlag {
			return printRemote(ctx)
		}

		s, err := session.NewFromCtx(ctx)
		if err != nil {
			return errors.Wrap(err, "creating a session")
		}
		defer s.Close()

		state := s.GetCachedState()
		if state.Learning == nil || len(state.Learning.Activity) == 0 {
			log.Plain("no activity yet\n")
			return nil
		}

		entries := state.Learning.Activity
		if limitFlag > 0 && len(entries) > limitFlag {
			entries = entries[:limitFlag]
		}

		for _, e := range entries {
			printEntry(e.Kind, e.Path, e.Timestamp)
		}

		return nil
	}
}

func printRemote(ctx context.PraxisCtx) error {
	resp, err := client.GetActivity(ctx, 0, limitFlag)
	if err != nil {
		return errors.Wrap(err, "getting the activity from the server")
	}

	if len(resp.Activity) == 0 {
		log.Plain("no activity yet\n")
		return nil
	}

	for _, e := range resp.Activity {
		printEntry(e.Kind, e.Path, e.Timestamp)
	}

	return nil
}

func printEntry(kind, path string, ts int64) {
	t := time.UnixMilli(ts)
	log.Plainf("%s  %-20s %s\n", t.Format("2006-01-02 15:04"), kind, path)
}
