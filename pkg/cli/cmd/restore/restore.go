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

package restore

import (
	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/client"
	"github.com/praxislearn/praxis/pkg/cli/context"
	"github.com/praxislearn/praxis/pkg/cli/infra"
	"github.com/praxislearn/praxis/pkg/cli/log"
	"github.com/praxislearn/praxis/pkg/cli/session"
	"github.com/praxislearn/praxis/pkg/cli/ui"
	"github.com/spf13/cobra"
)

var example = `
  praxis restore`

var apiEndpointFlag string

// NewCmd returns a new restore command
func NewCmd(ctx context.PraxisCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "restore",
		Short:   "Restore a profile with a recovery key",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVar(&apiEndpointFlag, "apiEndpoint", "", "API endpoint to connect to (defaults to value in config)")

	return cmd
}

func newRun(ctx context.PraxisCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if apiEndpointFlag != "" {
			ctx.APIEndpoint = apiEndpointFlag
		}

		var recoveryKey string
		if err := ui.PromptSecret("recovery key", &recoveryKey); err != nil {
			return errors.Wrap(err, "getting the recovery key")
		}

		s, err := session.NewFromCtx(ctx)
		if err != nil {
			return errors.Wrap(err, "creating a session")
		}
		defer s.Close()

		err = s.Restore(recoveryKey)
		if errors.Cause(err) == client.ErrInvalidRecoveryKey {
			log.Error("wrong recovery key\n")
			return nil
		} else if err != nil {
			return errors.Wrap(err, "restoring the profile")
		}

		log.Success("profile restored\n")

		return nil
	}
}
