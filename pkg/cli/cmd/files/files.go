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

package files

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/client"
	"github.com/praxislearn/praxis/pkg/cli/context"
	"github.com/praxislearn/praxis/pkg/cli/log"
	"github.com/praxislearn/praxis/pkg/cli/session"
	"github.com/spf13/cobra"
)

var example = `
  praxis files add ./notes.pdf
  praxis files ls
  praxis files get 8a3b... -o notes.pdf
  praxis files rm 8a3b...`

var outputFlag string

// NewCmd returns a new files command
func NewCmd(ctx context.PraxisCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "files",
		Short:   "Manage vault files attached to the profile",
		Example: example,
	}

	cmd.AddCommand(newAddCmd(ctx))
	cmd.AddCommand(newLsCmd(ctx))
	cmd.AddCommand(newGetCmd(ctx))
	cmd.AddCommand(newRmCmd(ctx))

	return cmd
}

func newAddCmd(ctx context.PraxisCtx) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>",
		Short: "Upload a file to the vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "opening the file")
			}
			defer f.Close()

			s, err := session.NewFromCtx(ctx)
			if err != nil {
				return errors.Wrap(err, "creating a session")
			}
			defer s.Close()

			uuid, err := s.AttachFile(filepath.Base(args[0]), f)
			if err != nil {
				return errors.Wrap(err, "attaching the file")
			}

			if err := s.Flush(); err != nil {
				log.Debug("sync failed: %s\n", err)
			}

			log.Successf("uploaded %s\n", uuid)

			return nil
		},
	}
}

func newLsCmd(ctx context.PraxisCtx) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List the vault files",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session.NewFromCtx(ctx)
			if err != nil {
				return errors.Wrap(err, "creating a session")
			}
			defer s.Close()

			state := s.GetCachedState()
			if len(state.Files) == 0 {
				log.Plain("no files\n")
				return nil
			}

			for uuid, f := range state.Files {
				log.Plainf("%s  %-30s %s  %d bytes\n", uuid, f.Name, f.Mime, f.Size)
			}

			return nil
		},
	}
}

func newGetCmd(ctx context.PraxisCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <file-uuid>",
		Short: "Download a vault file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := client.DownloadFile(ctx, args[0])
			if err != nil {
				return errors.Wrap(err, "downloading the file")
			}

			out := outputFlag
			if out == "" {
				out = args[0]
			}

			if err := os.WriteFile(out, content, 0644); err != nil {
				return errors.Wrap(err, "writing the file")
			}

			log.Successf("saved %s\n", out)

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "the path to save the file to")

	return cmd
}

func newRmCmd(ctx context.PraxisCtx) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file-uuid>",
		Short: "Remove a vault file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session.NewFromCtx(ctx)
			if err != nil {
				return errors.Wrap(err, "creating a session")
			}
			defer s.Close()

			if err := s.RemoveFile(args[0]); err != nil {
				return errors.Wrap(err, "removing the file")
			}

			if err := s.Flush(); err != nil {
				log.Debug("sync failed: %s\n", err)
			}

			log.Successf("removed %s\n", args[0])

			return nil
		},
	}
}
