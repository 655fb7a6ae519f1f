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

// Package infra provides operations and definitions for the
// local infrastructure for Praxis
package infra

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/client"
	"github.com/praxislearn/praxis/pkg/cli/config"
	"github.com/praxislearn/praxis/pkg/cli/consts"
	"github.com/praxislearn/praxis/pkg/cli/context"
	"github.com/praxislearn/praxis/pkg/cli/database"
	"github.com/praxislearn/praxis/pkg/cli/log"
	"github.com/praxislearn/praxis/pkg/cli/utils"
	"github.com/praxislearn/praxis/pkg/clock"
	"github.com/praxislearn/praxis/pkg/dirs"
	"github.com/spf13/cobra"
)

const (
	// DefaultAPIEndpoint is the default API endpoint used when none is configured
	DefaultAPIEndpoint = "http://localhost:3001/api"
)

// RunEFunc is a function type of praxis commands
type RunEFunc func(*cobra.Command, []string) error

func checkLegacyDBPath() (string, bool) {
	legacyPraxisDir := getLegacyPraxisPath(dirs.Home)
	ok, err := utils.FileExists(fmt.Sprintf("%s/%s", legacyPraxisDir, consts.PraxisDBFileName))
	if ok {
		return legacyPraxisDir, true
	}

	if err != nil {
		log.Error(errors.Wrapf(err, "checking legacy praxis directory at %s", legacyPraxisDir).Error())
	}

	return "", false
}

func getDBPath(paths context.Paths, customPath string) string {
	// If custom path is provided, use it
	if customPath != "" {
		return customPath
	}

	legacyPraxisDir, ok := checkLegacyDBPath()
	if ok {
		return fmt.Sprintf("%s/%s", legacyPraxisDir, consts.PraxisDBFileName)
	}

	return fmt.Sprintf("%s/%s/%s", paths.Data, consts.PraxisDirName, consts.PraxisDBFileName)
}

// newBaseCtx creates a minimal context with paths and database connection.
// This base context is used for file and database initialization before
// being enriched with config values by setupCtx.
func newBaseCtx(versionTag, customDBPath string) (context.PraxisCtx, error) {
	praxisDir := getLegacyPraxisPath(dirs.Home)
	paths := context.Paths{
		Home:         dirs.Home,
		Config:       dirs.ConfigHome,
		Data:         dirs.DataHome,
		Cache:        dirs.CacheHome,
		LegacyPraxis: praxisDir,
	}

	if err := context.InitPraxisDirs(paths); err != nil {
		return context.PraxisCtx{}, errors.Wrap(err, "creating the praxis dirs")
	}

	dbPath := getDBPath(paths, customDBPath)

	db, err := database.Open(dbPath)
	if err != nil {
		return context.PraxisCtx{}, errors.Wrap(err, "connecting to db")
	}

	ctx := context.PraxisCtx{
		Paths:   paths,
		Version: versionTag,
		DB:      db,
	}

	return ctx, nil
}

// Init initializes the Praxis environment and returns a new praxis context.
// apiEndpoint is used when creating a new config file (e.g., from ldflags during tests)
func Init(versionTag, apiEndpoint, dbPath string) (*context.PraxisCtx, error) {
	ctx, err := newBaseCtx(versionTag, dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "initializing a context")
	}

	if err := initConfigFile(ctx, apiEndpoint); err != nil {
		return nil, errors.Wrap(err, "generating the config file")
	}

	if err := database.Migrate(ctx.DB); err != nil {
		return nil, errors.Wrap(err, "running database migrations")
	}
	if err := InitSystem(ctx); err != nil {
		return nil, errors.Wrap(err, "initializing system data")
	}

	ctx, err = setupCtx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "setting up the context")
	}

	log.Debug("context: %+v\n", context.Redact(ctx))

	return &ctx, nil
}

// setupCtx enriches the base context with values from config file and database.
// This is called after files and database have been initialized.
func setupCtx(ctx context.PraxisCtx) (context.PraxisCtx, error) {
	db := ctx.DB

	var sessionKey string
	var sessionKeyExpiry int64

	err := db.QueryRow("SELECT value FROM system WHERE key = ?", consts.SystemSessionKey).Scan(&sessionKey)
	if err != nil && err != sql.ErrNoRows {
		return ctx, errors.Wrap(err, "finding session key")
	}
	err = db.QueryRow("SELECT value FROM system WHERE key = ?", consts.SystemSessionKeyExpiry).Scan(&sessionKeyExpiry)
	if err != nil && err != sql.ErrNoRows {
		return ctx, errors.Wrap(err, "finding session key expiry")
	}

	cf, err := config.Read(ctx)
	if err != nil {
		return ctx, errors.Wrap(err, "reading config")
	}

	ret := context.PraxisCtx{
		Paths:              ctx.Paths,
		Version:            ctx.Version,
		DB:                 ctx.DB,
		SessionKey:         sessionKey,
		SessionKeyExpiry:   sessionKeyExpiry,
		APIEndpoint:        cf.APIEndpoint,
		Clock:              clock.New(),
		EnableUpgradeCheck: cf.EnableUpgradeCheck,
		Timezone:           cf.Timezone,
		HTTPClient:         client.NewRateLimitedHTTPClient(),
	}

	return ret, nil
}

// getLegacyPraxisPath returns a legacy praxis directory path placed under
// the user's home directory
func getLegacyPraxisPath(homeDir string) string {
	return fmt.Sprintf("%s/%s", homeDir, consts.LegacyPraxisDirName)
}

func initSystemKV(db *database.DB, key string, val string) error {
	var count int
	if err := db.QueryRow("SELECT count(*) FROM system WHERE key = ?", key).Scan(&count); err != nil {
		return errors.Wrapf(err, "counting %s", key)
	}

	if count > 0 {
		return nil
	}

	if _, err := db.Exec("INSERT INTO system (key, value) VALUES (?, ?)", key, val); err != nil {
		db.Rollback()
		return errors.Wrapf(err, "inserting %s %s", key, val)
	}

	return nil
}

// InitSystem inserts system data if missing
func InitSystem(ctx context.PraxisCtx) error {
	log.Debug("initializing the system\n")

	db := ctx.DB

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning a transaction")
	}

	nowStr := strconv.FormatInt(time.Now().Unix(), 10)
	if err := initSystemKV(tx, consts.SystemLastUpgrade, nowStr); err != nil {
		return errors.Wrapf(err, "initializing system config for %s", consts.SystemLastUpgrade)
	}
	if err := initSystemKV(tx, consts.SystemLastSyncAt, "0"); err != nil {
		return errors.Wrapf(err, "initializing system config for %s", consts.SystemLastSyncAt)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}

	return nil
}

// initConfigFile populates a new config file if it does not exist yet
func initConfigFile(ctx context.PraxisCtx, apiEndpoint string) error {
	path := config.GetPath(ctx)
	ok, err := utils.FileExists(path)
	if err != nil {
		return errors.Wrap(err, "checking if config exists")
	}
	if ok {
		return nil
	}

	// Use default API endpoint if none provided
	endpoint := apiEndpoint
	if endpoint == "" {
		endpoint = DefaultAPIEndpoint
	}

	cf := config.Config{
		APIEndpoint:        endpoint,
		EnableUpgradeCheck: true,
	}

	if err := config.Write(ctx, cf); err != nil {
		return errors.Wrap(err, "writing config")
	}

	return nil
}
