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
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/praxislearn/praxis/pkg/server/app"
	mw "github.com/praxislearn/praxis/pkg/server/middleware"
)

// Route represents a single route
type Route struct {
	Method    string
	Pattern   string
	Handler   http.HandlerFunc
	RateLimit bool
}

// RouteConfig is the configuration for routes
type RouteConfig struct {
	Controllers *Controllers
	APIRoutes   []Route
}

// NewAPIRoutes returns a new api routes
func NewAPIRoutes(a *app.App, c *Controllers) []Route {
	return []Route{
		// v3
		{"POST", "/v3/profile", c.Profiles.Create, true},
		{"GET", "/v3/profile/state", mw.Auth(a, c.Profiles.GetState), false},
		{"PUT", "/v3/profile/state", mw.Auth(a, c.Profiles.UpdateState), false},
		{"GET", "/v3/profile/activity", mw.Auth(a, c.Profiles.GetActivity), true},
		{"POST", "/v3/profile/restore", c.Profiles.Restore, true},
		{"DELETE", "/v3/profile", mw.Auth(a, c.Profiles.Delete), true},
		{"POST", "/v3/signout", c.Profiles.Signout, true},
		{"POST", "/v3/files", mw.Auth(a, c.Files.Create), true},
		{"GET", "/v3/files/{fileUUID}", mw.Auth(a, c.Files.Show), true},
		{"DELETE", "/v3/files/{fileUUID}", mw.Auth(a, c.Files.Delete), true},
	}
}

func registerRoutes(router *mux.Router, wrapper mw.Middleware, app *app.App, routes []Route) {
	for _, route := range routes {
		wrappedHandler := wrapper(route.Handler, app, route.RateLimit)

		router.
			Handle(route.Pattern, wrappedHandler).
			Methods(route.Method)
	}
}

// NewRouter creates and returns a new router
func NewRouter(app *app.App, rc RouteConfig) (http.Handler, error) {
	if err := app.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating the app parameters")
	}

	router := mux.NewRouter().StrictSlash(true)

	apiRouter := router.PathPrefix("/api").Subrouter()
	registerRoutes(apiRouter, mw.APIMw, app, rc.APIRoutes)

	router.PathPrefix("/api/v1").Handler(mw.ApplyLimit(mw.NotSupported, true))
	router.PathPrefix("/api/v2").Handler(mw.ApplyLimit(mw.NotSupported, true))

	router.Handle("/health", mw.ApplyLimit(rc.Controllers.Health.Index, true)).Methods("GET")

	return mw.Global(router), nil
}
