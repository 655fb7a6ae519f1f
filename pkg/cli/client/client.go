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

// Package client provides interfaces for interacting with the Praxis server
// and the data structures for responses
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/cli/context"
	"github.com/praxislearn/praxis/pkg/cli/log"
	"golang.org/x/time/rate"
)

// ErrInvalidRecoveryKey is an error for an invalid recovery key during restore
var ErrInvalidRecoveryKey = errors.New("wrong recovery key")

// ErrContentTypeMismatch is an error for an unexpected response content type
var ErrContentTypeMismatch = errors.New("content type mismatch")

// HTTPError represents an HTTP error response from the server
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf(`response %d "%s"`, e.StatusCode, e.Message)
}

// IsConflict returns true if the error is a 409 Conflict error
func (e *HTTPError) IsConflict() bool {
	return e.StatusCode == 409
}

var contentTypeApplicationJSON = "application/json"
var contentTypeNone = ""

// requestOptions contains options for requests
type requestOptions struct {
	HTTPClient *http.Client
	// ExpectedContentType is the Content-Type that the client is expecting from the server
	ExpectedContentType *string
	// ContentType overrides the request Content-Type header
	ContentType string
}

const (
	// clientRateLimitPerSecond is the max requests per second the client will make
	clientRateLimitPerSecond = 50
	// clientRateLimitBurst is the burst capacity for rate limiting
	clientRateLimitBurst = 100
)

// rateLimitedTransport wraps an http.RoundTripper with rate limiting
type rateLimitedTransport struct {
	transport http.RoundTripper
	limiter   *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Wait for rate limiter to allow the request
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.transport.RoundTrip(req)
}

// NewRateLimitedHTTPClient creates an HTTP client with rate limiting
func NewRateLimitedHTTPClient() *http.Client {
	// Calculate interval from rate: 1 second / requests per second
	interval := time.Second / time.Duration(clientRateLimitPerSecond)

	transport := &rateLimitedTransport{
		transport: http.DefaultTransport,
		limiter:   rate.NewLimiter(rate.Every(interval), clientRateLimitBurst),
	}
	return &http.Client{
		Transport: transport,
	}
}

func getHTTPClient(ctx context.PraxisCtx, options *requestOptions) *http.Client {
	if options != nil && options.HTTPClient != nil {
		return options.HTTPClient
	}

	if ctx.HTTPClient != nil {
		return ctx.HTTPClient
	}

	return &http.Client{}
}

func getExpectedContentType(options *requestOptions) string {
	if options != nil && options.ExpectedContentType != nil {
		return *options.ExpectedContentType
	}

	return contentTypeApplicationJSON
}

func getReq(ctx context.PraxisCtx, path, method, body string, options *requestOptions) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s%s", ctx.APIEndpoint, path)
	req, err := http.NewRequest(method, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "constructing http request")
	}

	req.Header.Set("CLI-Version", ctx.Version)

	if options != nil && options.ContentType != "" {
		req.Header.Set("Content-Type", options.ContentType)
	}

	if ctx.SessionKey != "" {
		credential := fmt.Sprintf("Bearer %s", ctx.SessionKey)
		req.Header.Set("Authorization", credential)
	}

	return req, nil
}

// checkRespErr checks if the given http response indicates an error. It returns a boolean indicating
// if the response is an error, and a decoded error message.
func checkRespErr(res *http.Response) error {
	if res.StatusCode < 400 {
		return nil
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrapf(err, "server responded with %d but client could not read the response body", res.StatusCode)
	}

	bodyStr := string(body)
	return &HTTPError{
		StatusCode: res.StatusCode,
		Message:    strings.TrimRight(bodyStr, "\n"),
	}
}

func checkContentType(res *http.Response, options *requestOptions) error {
	expected := getExpectedContentType(options)
	if expected == contentTypeNone {
		return nil
	}

	got := res.Header.Get("Content-Type")
	if got != expected {
		return errors.Wrapf(ErrContentTypeMismatch, "got: '%s' want: '%s'. Did you configure your endpoint correctly?", got, expected)
	}

	return nil
}

// doReq does a http request to the given path in the api endpoint
func doReq(ctx context.PraxisCtx, method, path, body string, options *requestOptions) (*http.Response, error) {
	req, err := getReq(ctx, path, method, body, options)
	if err != nil {
		return nil, errors.Wrap(err, "getting request")
	}

	log.Debug("HTTP %s %s\n", method, path)

	hc := getHTTPClient(ctx, options)
	res, err := hc.Do(req)
	if err != nil {
		return res, errors.Wrap(err, "making http request")
	}

	log.Debug("HTTP %d %s\n", res.StatusCode, res.Status)

	if err = checkRespErr(res); err != nil {
		return res, errors.Wrap(err, "server responded with an error")
	}

	if err = checkContentType(res, options); err != nil {
		return res, errors.Wrap(err, "unexpected Content-Type")
	}

	return res, nil
}

// doAuthorizedReq does a http request to the given path in the api endpoint as a
// profile owner, with the appropriate headers. The given path should include the
// preceding slash.
func doAuthorizedReq(ctx context.PraxisCtx, method, path, body string, options *requestOptions) (*http.Response, error) {
	if ctx.SessionKey == "" {
		return nil, errors.New("no session key found")
	}

	return doReq(ctx, method, path, body, options)
}

// InitProfileResp is the response from the profile init endpoint. RecoveryKey is
// returned exactly once and is never retrievable again.
type InitProfileResp struct {
	ProfileUUID string `json:"profile_uuid"`
	RecoveryKey string `json:"recovery_key"`
	Key         string `json:"key"`
	ExpiresAt   int64  `json:"expires_at"`
}

// InitProfile creates a new profile on the server and returns its credentials
func InitProfile(ctx context.PraxisCtx) (InitProfileResp, error) {
	res, err := doReq(ctx, "POST", "/v3/profile", "", nil)
	if err != nil {
		return InitProfileResp{}, errors.Wrap(err, "posting a profile to the server")
	}

	var resp InitProfileResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return InitProfileResp{}, errors.Wrap(err, "decoding payload")
	}

	return resp, nil
}

// GetStateResp is the response from the get profile state endpoint
type GetStateResp struct {
	State       json.RawMessage `json:"state"`
	CurrentTime int64           `json:"current_time"`
}

// GetState gets the authoritative profile state from the server. If updatedAfter is
// nonzero, the server responds 304 with an empty state when nothing changed since
// that timestamp.
func GetState(ctx context.PraxisCtx, updatedAfter int64) (GetStateResp, error) {
	path := "/v3/profile/state"
	if updatedAfter > 0 {
		v := url.Values{}
		v.Set("updated_after", strconv.FormatInt(updatedAfter, 10))
		path = fmt.Sprintf("%s?%s", path, v.Encode())
	}

	res, err := doAuthorizedReq(ctx, "GET", path, "", nil)
	if err != nil {
		return GetStateResp{}, errors.Wrap(err, "making the request")
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return GetStateResp{}, errors.Wrap(err, "reading the response body")
	}

	var resp GetStateResp
	if err = json.Unmarshal(body, &resp); err != nil {
		return resp, errors.Wrap(err, "unmarshalling the payload")
	}

	return resp, nil
}

// PushStatePayload is a payload for proposing a state to the server
type PushStatePayload struct {
	State      json.RawMessage `json:"state"`
	ClientTime int64           `json:"client_time"`
}

// PushStateResp is the response from the push state endpoint. State carries the
// authoritative merged state after the server reconciled the proposal.
type PushStateResp struct {
	State       json.RawMessage `json:"state"`
	CurrentTime int64           `json:"current_time"`
}

// PushState proposes a state to the server and returns the authoritative result
func PushState(ctx context.PraxisCtx, state json.RawMessage, clientTime int64) (PushStateResp, error) {
	payload := PushStatePayload{
		State:      state,
		ClientTime: clientTime,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return PushStateResp{}, errors.Wrap(err, "marshaling payload")
	}

	res, err := doAuthorizedReq(ctx, "PUT", "/v3/profile/state", string(b), nil)
	if err != nil {
		return PushStateResp{}, errors.Wrap(err, "putting the state to the server")
	}

	var resp PushStateResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return PushStateResp{}, errors.Wrap(err, "decoding payload")
	}

	return resp, nil
}

// RespActivity is an activity entry in the response
type RespActivity struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Path      string `json:"path"`
	Timestamp int64  `json:"timestamp"`
}

// GetActivityResp is the response from the get activity endpoint
type GetActivityResp struct {
	Activity []RespActivity `json:"activity"`
	Total    int            `json:"total"`
}

// GetActivity gets the recent activity log from the server
func GetActivity(ctx context.PraxisCtx, after int64, limit int) (GetActivityResp, error) {
	v := url.Values{}
	if after > 0 {
		v.Set("after", strconv.FormatInt(after, 10))
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}

	path := "/v3/profile/activity"
	if queryStr := v.Encode(); queryStr != "" {
		path = fmt.Sprintf("%s?%s", path, queryStr)
	}

	res, err := doAuthorizedReq(ctx, "GET", path, "", nil)
	if err != nil {
		return GetActivityResp{}, errors.Wrap(err, "making the request")
	}

	var resp GetActivityResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return GetActivityResp{}, errors.Wrap(err, "decoding payload")
	}

	return resp, nil
}

// RestorePayload is a payload for /v3/profile/restore
type RestorePayload struct {
	RecoveryKey string `json:"recovery_key"`
}

// RestoreResp is the response from /v3/profile/restore
type RestoreResp struct {
	ProfileUUID string `json:"profile_uuid"`
	Key         string `json:"key"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Restore exchanges a recovery key for a fresh session
func Restore(ctx context.PraxisCtx, recoveryKey string) (RestoreResp, error) {
	payload := RestorePayload{
		RecoveryKey: recoveryKey,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return RestoreResp{}, errors.Wrap(err, "marshaling payload")
	}

	res, err := doReq(ctx, "POST", "/v3/profile/restore", string(b), nil)
	if err != nil {
		// Check if this is a 401 Unauthorized error
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized {
			return RestoreResp{}, ErrInvalidRecoveryKey
		}
		return RestoreResp{}, errors.Wrap(err, "making http request")
	}

	var resp RestoreResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return RestoreResp{}, errors.Wrap(err, "decoding payload")
	}

	return resp, nil
}

// DeleteProfile removes the profile and all of its data from the server
func DeleteProfile(ctx context.PraxisCtx) error {
	opts := requestOptions{
		ExpectedContentType: &contentTypeNone,
	}
	_, err := doAuthorizedReq(ctx, "DELETE", "/v3/profile", "", &opts)
	if err != nil {
		return errors.Wrap(err, "deleting the profile in the server")
	}

	return nil
}

// RespFile is a vault file in the response
type RespFile struct {
	UUID      string `json:"uuid"`
	Name      string `json:"name"`
	Mime      string `json:"mime"`
	Size      int64  `json:"size"`
	Checksum  string `json:"checksum"`
	CreatedAt int64  `json:"created_at"`
}

// UploadFileResp is the response from the upload file endpoint
type UploadFileResp struct {
	File RespFile `json:"file"`
}

// UploadFile uploads a vault file to the server
func UploadFile(ctx context.PraxisCtx, name string, content io.Reader) (UploadFileResp, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return UploadFileResp{}, errors.Wrap(err, "creating form file")
	}
	if _, err = io.Copy(part, content); err != nil {
		return UploadFileResp{}, errors.Wrap(err, "writing the file content")
	}
	if err = w.Close(); err != nil {
		return UploadFileResp{}, errors.Wrap(err, "closing the multipart writer")
	}

	opts := requestOptions{
		ContentType: w.FormDataContentType(),
	}
	res, err := doAuthorizedReq(ctx, "POST", "/v3/files", buf.String(), &opts)
	if err != nil {
		return UploadFileResp{}, errors.Wrap(err, "posting the file to the server")
	}

	var resp UploadFileResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return UploadFileResp{}, errors.Wrap(err, "decoding payload")
	}

	return resp, nil
}

// DownloadFile fetches the content of a vault file from the server
func DownloadFile(ctx context.PraxisCtx, fileUUID string) ([]byte, error) {
	opts := requestOptions{
		ExpectedContentType: &contentTypeNone,
	}

	endpoint := fmt.Sprintf("/v3/files/%s", fileUUID)
	res, err := doAuthorizedReq(ctx, "GET", endpoint, "", &opts)
	if err != nil {
		return nil, errors.Wrap(err, "getting the file from the server")
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading the response body")
	}

	return body, nil
}

// DeleteFile removes a vault file from the server
func DeleteFile(ctx context.PraxisCtx, fileUUID string) error {
	opts := requestOptions{
		ExpectedContentType: &contentTypeNone,
	}

	endpoint := fmt.Sprintf("/v3/files/%s", fileUUID)
	_, err := doAuthorizedReq(ctx, "DELETE", endpoint, "", &opts)
	if err != nil {
		return errors.Wrap(err, "deleting the file in the server")
	}

	return nil
}

// Signout deletes a session on the server side
func Signout(ctx context.PraxisCtx, sessionKey string) error {
	// Share the transport (and thus rate limiter) from ctx.HTTPClient but do not
	// follow redirects
	var hc *http.Client
	if ctx.HTTPClient != nil {
		hc = &http.Client{
			Transport: ctx.HTTPClient.Transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	} else {
		log.Warnf("No HTTP client configured for signout - falling back\n")
		hc = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	opts := requestOptions{
		HTTPClient:          hc,
		ExpectedContentType: &contentTypeNone,
	}
	_, err := doAuthorizedReq(ctx, "POST", "/v3/signout", "", &opts)
	if err != nil {
		return errors.Wrap(err, "making http request")
	}

	return nil
}
