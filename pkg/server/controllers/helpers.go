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
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/schema"
	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/server/app"
	"github.com/praxislearn/praxis/pkg/server/log"
)

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// parseQuery decodes the URL query of the request into the given struct
func parseQuery(r *http.Request, dst interface{}) error {
	if err := queryDecoder.Decode(dst, r.URL.Query()); err != nil {
		return errors.Wrap(err, "decoding query")
	}

	return nil
}

// parseRequestData decodes the JSON body of the request into the given struct
func parseRequestData(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrap(err, "decoding payload")
	}

	return nil
}

// respondJSON responds with the JSON-encoding of the given interface
func respondJSON(w http.ResponseWriter, statusCode int, i interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(i); err != nil {
		log.ErrorWrap(err, "encoding response")
	}
}

// errorResponse is the shape of an API error payload
type errorResponse struct {
	Message string `json:"message"`
}

// getStatusCode returns the http status code for the given application error
func getStatusCode(err error) int {
	switch errors.Cause(err) {
	case app.ErrInvalidRecoveryKey:
		return http.StatusUnauthorized
	case app.ErrProfileNotFound, app.ErrFileNotFound:
		return http.StatusNotFound
	case app.ErrRegistrationDisabled:
		return http.StatusForbidden
	}

	return http.StatusInternalServerError
}

// handleJSONError logs the error and responds with an error payload
func handleJSONError(w http.ResponseWriter, err error, msg string) {
	statusCode := getStatusCode(err)

	var respMsg string
	if statusCode == http.StatusInternalServerError {
		log.ErrorWrap(err, msg)
		respMsg = http.StatusText(statusCode)
	} else {
		respMsg = errors.Cause(err).Error()
	}

	respondJSON(w, statusCode, errorResponse{Message: respMsg})
}

func setSessionCookie(w http.ResponseWriter, key string, expires time.Time) {
	cookie := http.Cookie{
		Name:     "id",
		Value:    key,
		Expires:  expires,
		Path:     "/",
		HttpOnly: true,
	}
	http.SetCookie(w, &cookie)
}

func unsetSessionCookie(w http.ResponseWriter) {
	expire := time.Now().Add(time.Hour * -24)
	cookie := http.Cookie{
		Name:     "id",
		Value:    "",
		Expires:  expire,
		Path:     "/",
		HttpOnly: true,
	}

	w.Header().Set("Cache-Control", "no-cache")
	http.SetCookie(w, &cookie)
}
