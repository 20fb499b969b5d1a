// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation holds the client-side checks that run before any
// request leaves the process: empty text, upload allowlists and request
// payload shape. None of these are a security boundary; the backend
// re-validates everything.
package validation

import (
	"errors"
	"fmt"
)

// Error is a client-side validation failure. It always blocks the request
// it guards.
type Error struct {
	// Field names the offending input ("caption", "files", "username").
	Field string

	// Reason is a short human-readable explanation.
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is matches on Field and Reason so sentinel comparisons work on copies.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Field == other.Field && e.Reason == other.Reason
}

var (
	ErrEmptyText        = &Error{Field: "text", Reason: "must not be empty"}
	ErrEmptyPost        = &Error{Field: "post", Reason: "caption or at least one file is required"}
	ErrTooManyImages    = &Error{Field: "files", Reason: fmt.Sprintf("maximum %d images allowed", MaxImages)}
	ErrTooManyVideos    = &Error{Field: "files", Reason: fmt.Sprintf("only %d video allowed", MaxVideos)}
	ErrUnsupportedMedia = &Error{Field: "files", Reason: "only JPEG, PNG, WebP images and MP4 videos are allowed"}
)

// IsValidation reports whether err (or anything it wraps) is a validation
// failure.
func IsValidation(err error) bool {
	var vErr *Error
	return errors.As(err, &vErr)
}
