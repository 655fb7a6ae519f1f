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

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/prompt"
	"github.com/praxislearn/praxis/pkg/server/app"
	"github.com/praxislearn/praxis/pkg/server/database"
	"github.com/praxislearn/praxis/pkg/server/log"
)

// confirm prompts for user input to confirm a choice
func confirm(r io.Reader, question string, optimistic bool) (bool, error) {
	message := prompt.FormatQuestion(question, optimistic)
	fmt.Print(message + " ")

	confirmed, err := prompt.ReadYesNo(r, optimistic)
	if err != nil {
		return false, errors.Wrap(err, "reading stdin")
	}

	return confirmed, nil
}

func profileListCmd(args []string) {
	fs := setupFlagSet("list", "praxis-server profile list")

	dbPath := fs.String("dbPath", "", "Path to SQLite database file (env: DBPath, default: $XDG_DATA_HOME/praxis/server.db)")

	fs.Parse(args)

	a, cleanup := setupAppWithDB(fs, *dbPath)
	defer cleanup()

	var profiles []database.Profile
	if err := a.DB.Order("created_at ASC").Find(&profiles).Error; err != nil {
		log.ErrorWrap(err, "listing profiles")
		os.Exit(1)
	}

	for _, p := range profiles {
		lastLogin := "never"
		if p.LastLoginAt != nil {
			lastLogin = p.LastLoginAt.Format(time.RFC3339)
		}

		fmt.Printf("%s  created: %s  last login: %s\n", p.UUID, p.CreatedAt.Format(time.RFC3339), lastLogin)
	}

	fmt.Printf("Total: %d\n", len(profiles))
}

func profileRemoveCmd(args []string, stdin io.Reader) {
	fs := setupFlagSet("remove", "praxis-server profile remove")

	uuid := fs.String("uuid", "", "Profile UUID (required)")
	dbPath := fs.String("dbPath", "", "Path to SQLite database file (env: DBPath, default: $XDG_DATA_HOME/praxis/server.db)")

	fs.Parse(args)

	requireString(fs, *uuid, "uuid")

	a, cleanup := setupAppWithDB(fs, *dbPath)
	defer cleanup()

	p, err := a.GetProfileByUUID(*uuid)
	if err != nil {
		if errors.Cause(err) == app.ErrProfileNotFound {
			fmt.Printf("Error: profile %s not found\n", *uuid)
		} else {
			log.ErrorWrap(err, "finding profile")
		}
		os.Exit(1)
	}

	ok, err := confirm(stdin, fmt.Sprintf("Remove profile %s and all of its data?", *uuid), false)
	if err != nil {
		log.ErrorWrap(err, "getting confirmation")
		os.Exit(1)
	}
	if !ok {
		fmt.Println("Aborted by user")
		os.Exit(0)
	}

	if err := a.DeleteProfile(p); err != nil {
		log.ErrorWrap(err, "removing profile")
		os.Exit(1)
	}

	fmt.Printf("Profile removed successfully\n")
	fmt.Printf("UUID: %s\n", *uuid)
}

func profileCmd(args []string) {
	if len(args) < 1 {
		fmt.Println(`Usage:
  praxis-server profile [command]

Available commands:
  list: List profiles
  remove: Remove a profile and all of its data`)
		os.Exit(1)
	}

	subcommand := args[0]
	subArgs := []string{}
	if len(args) > 1 {
		subArgs = args[1:]
	}

	switch subcommand {
	case "list":
		profileListCmd(subArgs)
	case "remove":
		profileRemoveCmd(subArgs, os.Stdin)
	default:
		fmt.Printf("Unknown subcommand: %s\n\n", subcommand)
		fmt.Println(`Available commands:
  list: List profiles
  remove: Remove a profile and all of its data`)
		os.Exit(1)
	}
}
