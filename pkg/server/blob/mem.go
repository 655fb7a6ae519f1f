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

package blob

import (
	"bytes"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Mem is an in-memory Store for testing environments
type Mem struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMem returns a new in-memory store
func NewMem() *Mem {
	return &Mem{blobs: map[string][]byte{}}
}

// Put stores the content under the given key
func (s *Mem) Put(key string, content io.Reader) (int64, error) {
	b, err := io.ReadAll(content)
	if err != nil {
		return 0, errors.Wrap(err, "reading content")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = b

	return int64(len(b)), nil
}

// Open returns a reader for the content stored under the given key
func (s *Mem) Open(key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}

	return io.NopCloser(bytes.NewReader(b)), nil
}

// Delete removes the content stored under the given key
func (s *Mem) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)

	return nil
}
