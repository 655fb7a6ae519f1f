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

// Package context provides helpers for values carried in request contexts.
package context

import (
	"context"

	"github.com/praxislearn/praxis/pkg/server/database"
)

const (
	profileKey privateKey = "profile"
	sessionKey privateKey = "session"
)

type privateKey string

// WithProfile creates a new context with the given profile
func WithProfile(ctx context.Context, profile *database.Profile) context.Context {
	return context.WithValue(ctx, profileKey, profile)
}

// WithSession creates a new context with the given session
func WithSession(ctx context.Context, session *database.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// Profile retrieves a profile from the given context. It returns a pointer to
// a profile. If the context does not contain a profile, it returns nil.
func Profile(ctx context.Context) *database.Profile {
	if temp := ctx.Value(profileKey); temp != nil {
		if profile, ok := temp.(*database.Profile); ok {
			return profile
		}
	}

	return nil
}

// Session retrieves a session from the given context.
func Session(ctx context.Context) *database.Session {
	if temp := ctx.Value(sessionKey); temp != nil {
		if session, ok := temp.(*database.Session); ok {
			return session
		}
	}

	return nil
}
