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
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Saga Tests
// =============================================================================

func TestNewSaga_FillsDefaults(t *testing.T) {
	s := NewSaga(SagaConfig{})
	assert.Equal(t, DefaultSagaConfig().StepTimeout, s.config.StepTimeout)
	assert.Equal(t, DefaultSagaConfig().CompensationTimeout, s.config.CompensationTimeout)
	assert.NotNil(t, s.config.Logger)
	assert.Equal(t, 0, s.StepCount())
}

func TestSaga_AllStepsSucceed(t *testing.T) {
	var order []string
	s := NewSaga(SagaConfig{Logger: quietLogger()})
	for _, name := range []string{"a", "b", "c"} {
		s.AddStep(SagaStep{
			Name: name,
			Execute: func(context.Context) error {
				order = append(order, name)
				return nil
			},
		})
	}

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, []string{"a", "b", "c"}, s.CompletedSteps())
	assert.NoError(t, s.LastError())
}

func TestSaga_CompensatesInReverseOrder(t *testing.T) {
	var undone []string
	boom := errors.New("boom")

	s := NewSaga(SagaConfig{Logger: quietLogger()})
	for _, name := range []string{"a", "b"} {
		s.AddStep(SagaStep{
			Name:    name,
			Execute: func(context.Context) error { return nil },
			Compensate: func(context.Context) error {
				undone = append(undone, name)
				return nil
			},
		})
	}
	s.AddStep(SagaStep{
		Name:    "c",
		Execute: func(context.Context) error { return boom },
		Compensate: func(context.Context) error {
			undone = append(undone, "c")
			return nil
		},
	})

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `step "c"`)
	assert.Equal(t, []string{"b", "a"}, undone, "failed step is not compensated")
	assert.Equal(t, err, s.LastError())
}

func TestSaga_StepTimeout(t *testing.T) {
	var compensated atomic.Bool
	s := NewSaga(SagaConfig{Logger: quietLogger()})
	s.AddStep(SagaStep{
		Name:       "first",
		Execute:    func(context.Context) error { return nil },
		Compensate: func(context.Context) error { compensated.Store(true); return nil },
	})
	s.AddStep(SagaStep{
		Name:    "slow",
		Timeout: 20 * time.Millisecond,
		Execute: func(ctx context.Context) error {
			<-ctx.Done()
			time.Sleep(50 * time.Millisecond)
			return nil
		},
	})

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.True(t, compensated.Load())
}

func TestSaga_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran bool
	s := NewSaga(SagaConfig{Logger: quietLogger()})
	s.AddStep(SagaStep{Name: "never", Execute: func(context.Context) error { ran = true; return nil }})

	err := s.Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestSaga_OnCompensateReportsFailures(t *testing.T) {
	compErr := errors.New("undo failed")
	var reported []error

	s := NewSaga(SagaConfig{
		Logger:       quietLogger(),
		OnCompensate: func(_ SagaStep, err error) { reported = append(reported, err) },
	})
	s.AddStep(SagaStep{
		Name:       "a",
		Execute:    func(context.Context) error { return nil },
		Compensate: func(context.Context) error { return compErr },
	})
	s.AddStep(SagaStep{Name: "b", Execute: func(context.Context) error { return errors.New("x") }})

	require.Error(t, s.Execute(context.Background()))
	assert.Equal(t, []error{compErr}, reported)
}

// =============================================================================
// Optimistic Tests
// =============================================================================

func TestOptimistic_KeepsChangeOnSuccess(t *testing.T) {
	liked := false
	err := Optimistic(context.Background(), quietLogger(), Mutation{
		Name:   "like",
		Apply:  func() { liked = true },
		Revert: func() { liked = false },
		Call:   func(context.Context) error { return nil },
	})
	require.NoError(t, err)
	assert.True(t, liked)
}

func TestOptimistic_RevertsOnFailure(t *testing.T) {
	apiErr := errors.New("server error (500)")
	count := 3
	err := Optimistic(context.Background(), quietLogger(), Mutation{
		Name:   "like",
		Apply:  func() { count++ },
		Revert: func() { count-- },
		Call:   func(context.Context) error { return apiErr },
	})
	assert.ErrorIs(t, err, apiErr)
	assert.Equal(t, 3, count)
}

func TestOptimistic_AppliedBeforeCall(t *testing.T) {
	applied := false
	var seen bool
	_ = Optimistic(context.Background(), quietLogger(), Mutation{
		Name:   "follow",
		Apply:  func() { applied = true },
		Revert: func() { applied = false },
		Call: func(context.Context) error {
			seen = applied
			return nil
		},
	})
	assert.True(t, seen, "call must observe the optimistic state")
}
