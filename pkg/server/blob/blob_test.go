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
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/assert"
)

func testStore(t *testing.T, s Store) {
	t.Run("put and open", func(t *testing.T) {
		n, err := s.Put("key1", strings.NewReader("content1"))
		if err != nil {
			t.Fatal(errors.Wrap(err, "putting"))
		}
		assert.Equal(t, n, int64(len("content1")), "size mismatch")

		r, err := s.Open("key1")
		if err != nil {
			t.Fatal(errors.Wrap(err, "opening"))
		}
		defer r.Close()

		b, err := io.ReadAll(r)
		if err != nil {
			t.Fatal(errors.Wrap(err, "reading"))
		}
		assert.Equal(t, string(b), "content1", "content mismatch")
	})

	t.Run("overwrite", func(t *testing.T) {
		if _, err := s.Put("key2", strings.NewReader("old")); err != nil {
			t.Fatal(errors.Wrap(err, "putting"))
		}
		if _, err := s.Put("key2", strings.NewReader("new")); err != nil {
			t.Fatal(errors.Wrap(err, "putting again"))
		}

		r, err := s.Open("key2")
		if err != nil {
			t.Fatal(errors.Wrap(err, "opening"))
		}
		defer r.Close()

		b, err := io.ReadAll(r)
		if err != nil {
			t.Fatal(errors.Wrap(err, "reading"))
		}
		assert.Equal(t, string(b), "new", "content mismatch")
	})

	t.Run("open missing", func(t *testing.T) {
		_, err := s.Open("missing")

		assert.Equal(t, err, ErrNotFound, "error mismatch")
	})

	t.Run("delete", func(t *testing.T) {
		if _, err := s.Put("key3", strings.NewReader("content3")); err != nil {
			t.Fatal(errors.Wrap(err, "putting"))
		}

		if err := s.Delete("key3"); err != nil {
			t.Fatal(errors.Wrap(err, "deleting"))
		}

		_, err := s.Open("key3")
		assert.Equal(t, err, ErrNotFound, "error mismatch")
	})

	t.Run("delete missing", func(t *testing.T) {
		if err := s.Delete("missing"); err != nil {
			t.Fatal(errors.Wrap(err, "deleting a missing key"))
		}
	})
}

func TestFS(t *testing.T) {
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(errors.Wrap(err, "creating the store"))
	}

	testStore(t, s)
}

func TestMem(t *testing.T) {
	testStore(t, NewMem())
}
