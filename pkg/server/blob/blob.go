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

// Package blob stores the content of uploaded files. File metadata lives in
// the database; the bytes live in a Store keyed by the file UUID.
package blob

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrNotFound is an error for a blob that does not exist in the store
var ErrNotFound = errors.New("blob not found")

// Store persists file content under a key
type Store interface {
	Put(key string, content io.Reader) (int64, error)
	Open(key string) (io.ReadCloser, error)
	Delete(key string) error
}

// FS is a Store backed by a directory on the local filesystem
type FS struct {
	Dir string
}

// NewFS returns a filesystem store rooted at the given directory,
// creating the directory if it does not exist
func NewFS(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "creating the blob directory")
	}

	return &FS{Dir: dir}, nil
}

func (s *FS) path(key string) string {
	return filepath.Join(s.Dir, key)
}

// Put writes the content under the given key and returns the number of bytes written
func (s *FS) Put(key string, content io.Reader) (int64, error) {
	f, err := os.Create(s.path(key))
	if err != nil {
		return 0, errors.Wrap(err, "creating the blob file")
	}
	defer f.Close()

	n, err := io.Copy(f, content)
	if err != nil {
		return 0, errors.Wrap(err, "writing the blob content")
	}

	return n, nil
}

// Open returns a reader for the content stored under the given key
func (s *FS) Open(key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "opening the blob file")
	}

	return f, nil
}

// Delete removes the content stored under the given key. Deleting a
// missing key is not an error.
func (s *FS) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing the blob file")
	}

	return nil
}
