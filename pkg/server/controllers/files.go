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

package controllers

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/praxislearn/praxis/pkg/server/app"
	"github.com/praxislearn/praxis/pkg/server/context"
	"github.com/praxislearn/praxis/pkg/server/database"
	"github.com/praxislearn/praxis/pkg/server/log"
)

// maxFileSize is the upload size limit
const maxFileSize = 10 << 20

// NewFiles creates a new Files controller
func NewFiles(app *app.App) *Files {
	return &Files{
		app: app,
	}
}

// Files is a vault file controller
type Files struct {
	app *app.App
}

// FileItem is the metadata of a file in a response
type FileItem struct {
	UUID      string `json:"uuid"`
	Name      string `json:"name"`
	Mime      string `json:"mime"`
	Size      int64  `json:"size"`
	Checksum  string `json:"checksum"`
	CreatedAt int64  `json:"created_at"`
}

func newFileItem(f database.File) FileItem {
	return FileItem{
		UUID:      f.UUID,
		Name:      f.Name,
		Mime:      f.Mime,
		Size:      f.Size,
		Checksum:  f.Checksum,
		CreatedAt: f.CreatedAt.UnixMilli(),
	}
}

// CreateResponse is the response for uploading a file
type CreateResponse struct {
	File FileItem `json:"file"`
}

// Create handles a file upload
func (f *Files) Create(w http.ResponseWriter, r *http.Request) {
	prof := context.Profile(r.Context())

	if err := r.ParseMultipartForm(maxFileSize); err != nil {
		handleJSONError(w, err, "parsing multipart form")
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		handleJSONError(w, err, "reading form file")
		return
	}
	defer part.Close()

	mime := header.Header.Get("Content-Type")

	file, err := f.app.UploadFile(*prof, header.Filename, mime, part)
	if err != nil {
		handleJSONError(w, err, "uploading file")
		return
	}

	respondJSON(w, http.StatusCreated, CreateResponse{File: newFileItem(file)})
}

// Show streams the content of a file
func (f *Files) Show(w http.ResponseWriter, r *http.Request) {
	prof := context.Profile(r.Context())

	vars := mux.Vars(r)
	fileUUID := vars["fileUUID"]

	file, content, err := f.app.OpenFile(*prof, fileUUID)
	if err != nil {
		handleJSONError(w, err, "opening file")
		return
	}
	defer content.Close()

	if file.Mime != "" {
		w.Header().Set("Content-Type", file.Mime)
	}

	if _, err := io.Copy(w, content); err != nil {
		log.ErrorWrap(err, "writing file content")
	}
}

// Delete removes a file
func (f *Files) Delete(w http.ResponseWriter, r *http.Request) {
	prof := context.Profile(r.Context())

	vars := mux.Vars(r)
	fileUUID := vars["fileUUID"]

	if err := f.app.DeleteFile(prof, fileUUID); err != nil {
		handleJSONError(w, err, "deleting file")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
