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

package status

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/client"
	"github.com/praxislearn/praxis/pkg/cli/consts"
	"github.com/praxislearn/praxis/pkg/cli/context"
	"github.com/praxislearn/praxis/pkg/cli/database"
	"github.com/praxislearn/praxis/pkg/cli/infra"
	"github.com/praxislearn/praxis/pkg/cli/log"
	"github.com/praxislearn/praxis/pkg/cli/session"
	"github.com/praxislearn/praxis/pkg/cli/utils/diff"
	"github.com/praxislearn/praxis/pkg/profile"
	"github.com/spf13/cobra"
)

var example = `
  praxis status
  praxis status --diff`

var diffFlag bool
var apiEndpointFlag string

// NewCmd returns a new status command
func NewCmd(ctx context.PraxisCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"st"},
		Short:   "Show the cached profile",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.BoolVar(&diffFlag, "diff", false, "show a line diff between the local and the server copy")
	f.StringVar(&apiEndpointFlag, "apiEndpoint", "", "API endpoint to connect to (defaults to value in config)")

	return cmd
}

func newRun(ctx context.PraxisCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if apiEndpointFlag != "" {
			ctx.APIEndpoint = apiEndpointFlag
		}

		s, err := session.NewFromCtx(ctx)
		if err != nil {
			return errors.Wrap(err, "creating a session")
		}
		defer s.Close()

		state := s.GetCachedState()

		if diffFlag {
			return printDiff(ctx, state)
		}

		printSummary(ctx, state)

		return nil
	}
}

func printSummary(ctx context.PraxisCtx, state profile.State) {
	var hint string
	err := database.GetSystem(ctx.DB, consts.SystemProfileHint, &hint)
	if err != nil && errors.Cause(err) != sql.ErrNoRows {
		log.Debug("reading the profile hint: %s\n", err)
	}
	if hint != "" {
		log.Infof("profile %s\n", hint)
	}

	if state.Onboarding != nil && state.Onboarding.IsComplete {
		log.Plainf("role: %s  goal: %s\n", state.Onboarding.SelectedRole, state.Onboarding.SelectedGoal)
	} else {
		log.Plain("onboarding incomplete\n")
	}

	if state.Progress != nil {
		p := state.Progress
		log.Plainf("level %d  %d xp  %d tokens  %d day streak\n", p.Level, p.TotalXP, p.Tokens, p.StreakDays)
		log.Plainf("%d nodes completed, %d unlocked\n", len(p.CompletedNodes), len(p.UnlockedNodes))
	}

	if state.Learning != nil {
		log.Plainf("stage: %s  %d milestones  %d recent activities\n", state.Learning.Stage, len(state.Learning.Milestones), len(state.Learning.Activity))
	}

	if len(state.Files) > 0 {
		log.Plainf("%d vault files\n", len(state.Files))
	}

	if state.UpdatedAt > 0 {
		t := time.UnixMilli(state.UpdatedAt)
		log.Plainf("updated %s\n", t.Format(time.RFC1123))
	}
}

func printDiff(ctx context.PraxisCtx, local profile.State) error {
	resp, err := client.GetState(ctx, 0)
	if err != nil {
		return errors.Wrap(err, "getting the server state")
	}

	server, _ := profile.Parse(resp.State)

	localStr, err := pretty(local)
	if err != nil {
		return errors.Wrap(err, "formatting the local state")
	}
	serverStr, err := pretty(server)
	if err != nil {
		return errors.Wrap(err, "formatting the server state")
	}

	if localStr == serverStr {
		log.Info("local and server copies are identical\n")
		return nil
	}

	for _, d := range diff.Do(serverStr, localStr) {
		switch d.Type {
		case diff.DiffInsert:
			color.Green("+%s", d.Text)
		case diff.DiffDelete:
			color.Red("-%s", d.Text)
		default:
			fmt.Print(d.Text)
		}
	}

	return nil
}

func pretty(state profile.State) (string, error) {
	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshaling the state")
	}

	return string(b) + "\n", nil
}
