// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resilience

import (
	"context"
	"log/slog"
)

// Mutation describes an optimistic local change backed by a request.
type Mutation struct {
	// Name is used in logs, e.g. "comment-like:c1".
	Name string

	// Apply performs the local change and captures whatever Revert needs.
	Apply func()

	// Revert restores the state captured by Apply.
	Revert func()

	// Call issues the request. A non-nil error triggers Revert.
	Call func(ctx context.Context) error
}

// Optimistic applies m locally, issues its request and reverts the local
// change when the request fails.
//
// # Description
//
// Built as a two-step saga: the local apply is the first step, compensated
// by Revert; the request is the second. The request's error is returned
// unchanged apart from saga wrapping, so errors.As still finds API errors.
//
// # Examples
//
//	err := resilience.Optimistic(ctx, logger, resilience.Mutation{
//	    Name:   "follow:" + userID,
//	    Apply:  func() { set.flip(userID) },
//	    Revert: func() { set.flip(userID) },
//	    Call:   func(ctx context.Context) error { _, err := client.ToggleFollow(ctx, userID); return err },
//	})
func Optimistic(ctx context.Context, logger *slog.Logger, m Mutation) error {
	saga := NewSaga(SagaConfig{Logger: logger})
	saga.AddStep(SagaStep{
		Name: m.Name + ":apply",
		Execute: func(context.Context) error {
			m.Apply()
			return nil
		},
		Compensate: func(context.Context) error {
			m.Revert()
			return nil
		},
	})
	saga.AddStep(SagaStep{
		Name:    m.Name + ":request",
		Execute: m.Call,
	})
	return saga.Execute(ctx)
}
