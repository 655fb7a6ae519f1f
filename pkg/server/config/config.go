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

// Package config provides the server configuration.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/dirs"
	"github.com/praxislearn/praxis/pkg/server/database"
)

const (
	// AppEnvProduction represents an app environment for production.
	AppEnvProduction string = "PRODUCTION"
	// DefaultDataDir is the default directory name for Praxis server data
	DefaultDataDir = "praxis"
	// DefaultDBFilename is the default database filename
	DefaultDBFilename = "server.db"
	// DefaultBlobDirname is the default directory name for uploaded files
	DefaultBlobDirname = "blobs"
)

var (
	// DefaultDBPath is the default path to the database file
	DefaultDBPath = filepath.Join(dirs.DataHome, DefaultDataDir, DefaultDBFilename)
	// DefaultBlobDir is the default directory for uploaded files
	DefaultBlobDir = filepath.Join(dirs.DataHome, DefaultDataDir, DefaultBlobDirname)
)

var (
	// ErrDBMissingPath is an error for an incomplete configuration missing the database path
	ErrDBMissingPath = errors.New("DB Path is empty")
	// ErrDBDriverInvalid is an error for an unsupported database driver
	ErrDBDriverInvalid = errors.New("Invalid DBDriver")
	// ErrPortInvalid is an error for an incomplete configuration with invalid port
	ErrPortInvalid = errors.New("Invalid Port")
	// ErrBlobDirMissing is an error for an incomplete configuration missing the blob directory
	ErrBlobDirMissing = errors.New("Blob directory is empty")
)

func readBoolEnv(name string) bool {
	return os.Getenv(name) == "true"
}

// getOrEnv returns value if non-empty, otherwise env var, otherwise default
func getOrEnv(value, envKey, defaultVal string) string {
	if value != "" {
		return value
	}
	if env := os.Getenv(envKey); env != "" {
		return env
	}
	return defaultVal
}

// Config is an application configuration
type Config struct {
	AppEnv              string
	Port                string
	DBDriver            string
	DBPath              string
	BlobDir             string
	DisableRegistration bool
	LogLevel            string
}

// Params are the configuration parameters for creating a new Config
type Params struct {
	AppEnv              string
	Port                string
	DBDriver            string
	DBPath              string
	BlobDir             string
	DisableRegistration bool
	LogLevel            string
}

// New constructs and returns a new validated config.
// Empty string params will fall back to environment variables and defaults.
func New(p Params) (Config, error) {
	c := Config{
		AppEnv:              getOrEnv(p.AppEnv, "APP_ENV", AppEnvProduction),
		Port:                getOrEnv(p.Port, "PORT", "3001"),
		DBDriver:            getOrEnv(p.DBDriver, "DBDriver", database.DriverSQLite),
		DBPath:              getOrEnv(p.DBPath, "DBPath", DefaultDBPath),
		BlobDir:             getOrEnv(p.BlobDir, "BlobDir", DefaultBlobDir),
		DisableRegistration: p.DisableRegistration || readBoolEnv("DisableRegistration"),
		LogLevel:            getOrEnv(p.LogLevel, "LOG_LEVEL", "info"),
	}

	if err := validate(c); err != nil {
		return Config{}, err
	}

	return c, nil
}

// IsProd checks if the app environment is configured to be production.
func (c Config) IsProd() bool {
	return c.AppEnv == AppEnvProduction
}

func validate(c Config) error {
	if c.Port == "" {
		return ErrPortInvalid
	}
	if c.DBDriver != database.DriverSQLite && c.DBDriver != database.DriverPostgres {
		return errors.Wrapf(ErrDBDriverInvalid, "'%s'", c.DBDriver)
	}
	if c.DBPath == "" {
		return ErrDBMissingPath
	}
	if c.BlobDir == "" {
		return ErrBlobDirMissing
	}

	return nil
}
