// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api is the HTTP client for the social backend.
//
// # Overview
//
// Client wraps net/http with the concerns every call shares: the bearer
// token from a TokenSource, an X-Request-ID per call, an optional client-side
// rate limit, Prometheus request metrics, an OpenTelemetry span and
// structured logging. Endpoint methods are grouped by resource:
//
//   - auth.go: login, register, current user
//   - users.go: followers, following, suggestions, profile edits, follow toggle
//   - posts.go: feed pages, single posts, create/edit/delete, like toggle
//   - comments.go: list, add, edit, delete, like
//   - notifications.go: history pages and read markers
//
// # Errors
//
// Every failure is an *Error. Non-2xx responses carry the status code and the
// server's {"message": ...} text; transport failures have StatusCode 0 and
// wrap the underlying error. Use IsNotFound, IsUnauthorized and MessageOf
// instead of inspecting fields where possible.
//
// # Thread Safety
//
// Client is safe for concurrent use.
package api
