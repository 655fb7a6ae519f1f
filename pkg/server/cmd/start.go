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
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/server/buildinfo"
	"github.com/praxislearn/praxis/pkg/server/config"
	"github.com/praxislearn/praxis/pkg/server/controllers"
	"github.com/praxislearn/praxis/pkg/server/job"
	"github.com/praxislearn/praxis/pkg/server/log"
)

func startCmd(args []string) {
	fs := setupFlagSet("start", "praxis-server start")

	port := fs.String("port", "", "Server port (env: PORT, default: 3001)")
	dbDriver := fs.String("dbDriver", "", "Database driver: sqlite3 or postgres (env: DBDriver, default: sqlite3)")
	dbPath := fs.String("dbPath", "", "Path to SQLite database file or Postgres DSN (env: DBPath, default: $XDG_DATA_HOME/praxis/server.db)")
	blobDir := fs.String("blobDir", "", "Directory for uploaded file content (env: BlobDir, default: $XDG_DATA_HOME/praxis/blobs)")
	disableRegistration := fs.Bool("disableRegistration", false, "Disable profile registration (env: DisableRegistration, default: false)")
	logLevel := fs.String("logLevel", "", "Log level: debug, info, warn, or error (env: LOG_LEVEL, default: info)")

	fs.Parse(args)

	cfg, err := config.New(config.Params{
		Port:                *port,
		DBDriver:            *dbDriver,
		DBPath:              *dbPath,
		BlobDir:             *blobDir,
		DisableRegistration: *disableRegistration,
		LogLevel:            *logLevel,
	})
	if err != nil {
		fmt.Printf("Error: %s\n\n", err)
		fs.Usage()
		os.Exit(1)
	}

	// Set log level
	log.SetLevel(cfg.LogLevel)

	app := initApp(cfg)
	defer func() {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}()

	scheduler := job.NewScheduler(&app)
	if err := scheduler.Start(); err != nil {
		log.ErrorWrap(err, "starting the scheduler")
		os.Exit(1)
	}
	defer scheduler.Stop()

	ctl := controllers.New(&app)
	rc := controllers.RouteConfig{
		APIRoutes:   controllers.NewAPIRoutes(&app, ctl),
		Controllers: ctl,
	}

	r, err := controllers.NewRouter(&app, rc)
	if err != nil {
		panic(errors.Wrap(err, "initializing router"))
	}

	log.WithFields(log.Fields{
		"version": buildinfo.Version,
		"port":    cfg.Port,
	}).Info("Praxis server starting")

	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.ErrorWrap(err, "server failed")
		os.Exit(1)
	}
}
