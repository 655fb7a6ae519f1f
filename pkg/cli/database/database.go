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

// Package database provides the local SQLite store for the Praxis CLI
package database

import (
	"database/sql"

	"github.com/pkg/errors"
)

// DB is a handle to the local database. It delegates to a transaction when
// one has been started with Begin, so that the same query helpers work
// inside and outside a transaction.
type DB struct {
	conn *sql.DB
	tx   *sql.Tx
}

// Open initializes a database connection at the given path
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	return &DB{conn: conn}, nil
}

// Conn exposes the underlying connection for tooling that requires *sql.DB,
// such as the migration runner.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Begin starts a transaction and returns a handle scoped to it
func (d *DB) Begin() (*DB, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "beginning a transaction")
	}

	return &DB{conn: d.conn, tx: tx}, nil
}

// Commit commits the transaction
func (d *DB) Commit() error {
	if d.tx == nil {
		return errors.New("not in a transaction")
	}

	return d.tx.Commit()
}

// Rollback aborts the transaction
func (d *DB) Rollback() error {
	if d.tx == nil {
		return errors.New("not in a transaction")
	}

	return d.tx.Rollback()
}

// Close closes the underlying connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Exec executes the given query
func (d *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	if d.tx != nil {
		return d.tx.Exec(query, args...)
	}

	return d.conn.Exec(query, args...)
}

// QueryRow executes a query that returns at most one row
func (d *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	if d.tx != nil {
		return d.tx.QueryRow(query, args...)
	}

	return d.conn.QueryRow(query, args...)
}

// Query executes a query that returns rows
func (d *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	if d.tx != nil {
		return d.tx.Query(query, args...)
	}

	return d.conn.Query(query, args...)
}

// GetSystem scans the value for the given key in the system table into dest
func GetSystem(db *DB, key string, dest interface{}) error {
	if err := db.QueryRow("SELECT value FROM system WHERE key = ?", key).Scan(dest); err != nil {
		return errors.Wrapf(err, "getting system value for %s", key)
	}

	return nil
}

// SystemExists checks if a value exists for the given key in the system table
func SystemExists(db *DB, key string) (bool, error) {
	var count int
	if err := db.QueryRow("SELECT count(*) FROM system WHERE key = ?", key).Scan(&count); err != nil {
		return false, errors.Wrapf(err, "counting system value for %s", key)
	}

	return count > 0, nil
}

// InsertSystem inserts a value for the given key in the system table
func InsertSystem(db *DB, key string, val interface{}) error {
	if _, err := db.Exec("INSERT INTO system (key, value) VALUES (?, ?)", key, val); err != nil {
		return errors.Wrapf(err, "inserting system value for %s", key)
	}

	return nil
}

// UpdateSystem updates the value for the given key in the system table
func UpdateSystem(db *DB, key string, val interface{}) error {
	if _, err := db.Exec("UPDATE system SET value = ? WHERE key = ?", val, key); err != nil {
		return errors.Wrapf(err, "updating system value for %s", key)
	}

	return nil
}

// UpsertSystem inserts or updates the value for the given key in the system table
func UpsertSystem(db *DB, key string, val interface{}) error {
	ok, err := SystemExists(db, key)
	if err != nil {
		return err
	}

	if ok {
		return UpdateSystem(db, key, val)
	}

	return InsertSystem(db, key, val)
}

// DeleteSystem removes the value for the given key from the system table
func DeleteSystem(db *DB, key string) error {
	if _, err := db.Exec("DELETE FROM system WHERE key = ?", key); err != nil {
		return errors.Wrapf(err, "deleting system value for %s", key)
	}

	return nil
}
