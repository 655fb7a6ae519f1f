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

package database

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/server/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// DriverSQLite is the embedded sqlite driver
	DriverSQLite = "sqlite3"
	// DriverPostgres is the postgres driver
	DriverPostgres = "postgres"
)

// InitSchema migrates database schema to reflect the latest model definition
func InitSchema(db *gorm.DB) {
	if err := db.AutoMigrate(
		&Profile{},
		&Session{},
		&File{},
	); err != nil {
		panic(err)
	}
}

// getDBLogLevel maps the application log level to a gorm logger level
func getDBLogLevel(level string) logger.LogLevel {
	switch level {
	case log.LevelDebug:
		return logger.Info
	case log.LevelWarn:
		return logger.Warn
	case log.LevelError:
		return logger.Error
	default:
		return logger.Silent
	}
}

// Open initializes the database connection. For sqlite, dsn is a file path
// and the containing directory is created if missing. For postgres, dsn is
// a connection string.
func Open(driver, dsn, logLevel string) *gorm.DB {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(getDBLogLevel(logLevel)),
	}

	if driver == DriverPostgres {
		db, err := gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			panic(errors.Wrap(err, "opening database connection"))
		}

		return db
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0755); err != nil {
		panic(errors.Wrapf(err, "creating database directory at %s", dir))
	}

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		panic(errors.Wrap(err, "opening database connection"))
	}

	return db
}

// CheckpointWAL flushes the sqlite write-ahead log into the main database
// file. It is a no-op for other drivers.
func CheckpointWAL(db *gorm.DB) error {
	if db.Dialector.Name() != "sqlite" {
		return nil
	}

	if err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error; err != nil {
		return errors.Wrap(err, "checkpointing the WAL")
	}

	return nil
}

// Vacuum reclaims unused space in a sqlite database file. It is a no-op for
// other drivers.
func Vacuum(db *gorm.DB) error {
	if db.Dialector.Name() != "sqlite" {
		return nil
	}

	if err := db.Exec("VACUUM").Error; err != nil {
		return errors.Wrap(err, "vacuuming")
	}

	return nil
}
