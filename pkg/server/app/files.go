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

package app

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	goerrors "errors"
	"io"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/server/database"
	"github.com/praxislearn/praxis/pkg/server/helpers"
	"github.com/praxislearn/praxis/pkg/server/log"
	"gorm.io/gorm"
)

// ErrFileNotFound is an error for a file that does not exist
var ErrFileNotFound = errors.New("file not found")

// UploadFile stores the content in the blob store and records the metadata
// for the given profile.
func (a *App) UploadFile(p database.Profile, name, mime string, content io.Reader) (database.File, error) {
	uuid, err := helpers.GenUUID()
	if err != nil {
		return database.File{}, errors.Wrap(err, "generating uuid")
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, content); err != nil {
		return database.File{}, errors.Wrap(err, "reading content")
	}

	checksum := sha256.Sum256(buf.Bytes())

	size, err := a.BlobStore.Put(uuid, &buf)
	if err != nil {
		return database.File{}, errors.Wrap(err, "storing content")
	}

	file := database.File{
		UUID:        uuid,
		ProfileID:   p.ID,
		Name:        name,
		Mime:        mime,
		Size:        size,
		Checksum:    hex.EncodeToString(checksum[:]),
		StoragePath: uuid,
	}
	if err := a.DB.Create(&file).Error; err != nil {
		if err := a.BlobStore.Delete(uuid); err != nil {
			log.WithFields(log.Fields{
				"file_uuid": uuid,
			}).ErrorWrap(err, "deleting orphaned blob")
		}
		return database.File{}, errors.Wrap(err, "creating file record")
	}

	return file, nil
}

// GetFile finds a file with the given uuid belonging to the given profile
func (a *App) GetFile(p database.Profile, fileUUID string) (database.File, error) {
	var file database.File
	err := a.DB.Where("uuid = ? AND profile_id = ?", fileUUID, p.ID).First(&file).Error
	if goerrors.Is(err, gorm.ErrRecordNotFound) {
		return file, ErrFileNotFound
	} else if err != nil {
		return file, errors.Wrap(err, "finding file")
	}

	return file, nil
}

// OpenFile returns the metadata and a reader for the content of the file
// with the given uuid. The caller is responsible for closing the reader.
func (a *App) OpenFile(p database.Profile, fileUUID string) (database.File, io.ReadCloser, error) {
	file, err := a.GetFile(p, fileUUID)
	if err != nil {
		return database.File{}, nil, err
	}

	content, err := a.BlobStore.Open(file.StoragePath)
	if err != nil {
		return database.File{}, nil, errors.Wrap(err, "opening content")
	}

	return file, content, nil
}

// DeleteFile removes the file metadata and its stored content. The entry in
// the profile's state is purged in the same transaction so a later merge
// cannot resurrect metadata for a blob that no longer exists.
func (a *App) DeleteFile(p *database.Profile, fileUUID string) error {
	file, err := a.GetFile(*p, fileUUID)
	if err != nil {
		return err
	}

	err = a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&file).Error; err != nil {
			return errors.Wrap(err, "deleting file record")
		}

		state, err := a.GetState(*p)
		if err != nil {
			return errors.Wrap(err, "getting stored state")
		}
		if _, ok := state.Files[fileUUID]; !ok {
			return nil
		}

		delete(state.Files, fileUUID)
		state.UpdatedAt = a.Clock.Now().UnixMilli()

		b, err := json.Marshal(state)
		if err != nil {
			return errors.Wrap(err, "marshalling state")
		}
		p.State = string(b)
		p.StateUpdatedAt = state.UpdatedAt

		if err := tx.Save(p).Error; err != nil {
			return errors.Wrap(err, "saving profile")
		}

		return nil
	})
	if err != nil {
		return err
	}

	if err := a.BlobStore.Delete(file.StoragePath); err != nil {
		return errors.Wrap(err, "deleting content")
	}

	return nil
}
