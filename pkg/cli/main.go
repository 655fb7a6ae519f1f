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

package main

import (
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/infra"
	"github.com/praxislearn/praxis/pkg/cli/log"

	// commands
	"github.com/praxislearn/praxis/pkg/cli/cmd/activity"
	"github.com/praxislearn/praxis/pkg/cli/cmd/complete"
	"github.com/praxislearn/praxis/pkg/cli/cmd/dismiss"
	"github.com/praxislearn/praxis/pkg/cli/cmd/files"
	"github.com/praxislearn/praxis/pkg/cli/cmd/grant"
	"github.com/praxislearn/praxis/pkg/cli/cmd/logout"
	"github.com/praxislearn/praxis/pkg/cli/cmd/milestone"
	"github.com/praxislearn/praxis/pkg/cli/cmd/onboard"
	"github.com/praxislearn/praxis/pkg/cli/cmd/override"
	"github.com/praxislearn/praxis/pkg/cli/cmd/remove"
	"github.com/praxislearn/praxis/pkg/cli/cmd/restore"
	"github.com/praxislearn/praxis/pkg/cli/cmd/root"
	"github.com/praxislearn/praxis/pkg/cli/cmd/status"
	"github.com/praxislearn/praxis/pkg/cli/cmd/sync"
	"github.com/praxislearn/praxis/pkg/cli/cmd/unlock"
	"github.com/praxislearn/praxis/pkg/cli/cmd/version"
)

// apiEndpoint and versionTag are populated during link time
var apiEndpoint string
var versionTag = "master"

// parseDBPath extracts --dbPath flag value from command line arguments
// regardless of where it appears (before or after subcommand).
// Returns empty string if not found.
func parseDBPath(args []string) string {
	for i, arg := range args {
		// Handle --dbPath=value
		if strings.HasPrefix(arg, "--dbPath=") {
			return strings.TrimPrefix(arg, "--dbPath=")
		}
		// Handle --dbPath value
		if arg == "--dbPath" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func main() {
	// Parse flags early to get --dbPath before initializing database.
	// We need to manually parse --dbPath because it can appear after the
	// subcommand (e.g., "praxis sync --dbPath=./custom.db") and
	// root.ParseFlags only parses flags before the subcommand.
	dbPath := parseDBPath(os.Args[1:])

	ctx, err := infra.Init(versionTag, apiEndpoint, dbPath)
	if err != nil {
		panic(errors.Wrap(err, "initializing context"))
	}
	defer ctx.DB.Close()

	root.Register(onboard.NewCmd(*ctx))
	root.Register(status.NewCmd(*ctx))
	root.Register(sync.NewCmd(*ctx))
	root.Register(complete.NewCmd(*ctx))
	root.Register(unlock.NewCmd(*ctx))
	root.Register(grant.NewCmd(*ctx))
	root.Register(milestone.NewCmd(*ctx))
	root.Register(activity.NewCmd(*ctx))
	root.Register(dismiss.NewCmd(*ctx))
	root.Register(override.NewCmd(*ctx))
	root.Register(files.NewCmd(*ctx))
	root.Register(restore.NewCmd(*ctx))
	root.Register(logout.NewCmd(*ctx))
	root.Register(remove.NewCmd(*ctx))
	root.Register(version.NewCmd(*ctx))

	if err := root.Execute(); err != nil {
		log.Errorf("%s\n", err.Error())
		os.Exit(1)
	}
}
