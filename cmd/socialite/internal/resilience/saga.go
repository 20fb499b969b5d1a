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
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// =============================================================================
// Interface
// =============================================================================

// SagaExecutor runs an ordered list of steps and undoes the completed ones
// when a later step fails.
type SagaExecutor interface {
	// AddStep appends a step. Steps run in insertion order.
	AddStep(step SagaStep)

	// Execute runs all steps. On failure the completed steps are compensated
	// in reverse order and the step error is returned.
	Execute(ctx context.Context) error

	// CompletedSteps returns the names of steps that finished in the last run.
	CompletedSteps() []string

	// LastError returns the error of the last run, nil on success.
	LastError() error
}

// SagaStep is one unit of work with an optional undo.
type SagaStep struct {
	// Name identifies the step in logs.
	Name string

	// Execute performs the step.
	Execute func(ctx context.Context) error

	// Compensate undoes Execute. Nil means nothing to undo.
	Compensate func(ctx context.Context) error

	// Timeout overrides SagaConfig.StepTimeout for this step.
	Timeout time.Duration
}

// SagaConfig configures a Saga.
type SagaConfig struct {
	// StepTimeout bounds each step unless the step sets its own.
	StepTimeout time.Duration

	// CompensationTimeout bounds each compensation.
	CompensationTimeout time.Duration

	// Logger receives step progress at Debug and failures at Warn.
	Logger *slog.Logger

	// OnCompensate is called after each compensation attempt; err is nil on
	// success.
	OnCompensate func(step SagaStep, err error)
}

// DefaultSagaConfig returns timeouts suited to interactive requests.
func DefaultSagaConfig() SagaConfig {
	return SagaConfig{
		StepTimeout:         30 * time.Second,
		CompensationTimeout: 5 * time.Second,
		Logger:              slog.Default(),
	}
}

// =============================================================================
// Implementation
// =============================================================================

// Saga is the default SagaExecutor.
//
// # Thread Safety
//
// Execute holds the saga's lock for its whole run; concurrent Execute calls
// on the same Saga serialize.
type Saga struct {
	config    SagaConfig
	steps     []SagaStep
	completed []SagaStep
	lastError error
	mu        sync.Mutex
}

var _ SagaExecutor = (*Saga)(nil)

// NewSaga creates a Saga, filling zero config fields with defaults.
func NewSaga(config SagaConfig) *Saga {
	defaults := DefaultSagaConfig()
	if config.StepTimeout <= 0 {
		config.StepTimeout = defaults.StepTimeout
	}
	if config.CompensationTimeout <= 0 {
		config.CompensationTimeout = defaults.CompensationTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Saga{config: config}
}

func (s *Saga) AddStep(step SagaStep) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, step)
}

func (s *Saga) Execute(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completed = s.completed[:0]
	s.lastError = nil

	for _, step := range s.steps {
		if err := ctx.Err(); err != nil {
			s.lastError = fmt.Errorf("saga cancelled before %q: %w", step.Name, err)
			s.compensate()
			return s.lastError
		}

		timeout := step.Timeout
		if timeout <= 0 {
			timeout = s.config.StepTimeout
		}

		if err := s.executeStep(ctx, step, timeout); err != nil {
			s.lastError = fmt.Errorf("step %q: %w", step.Name, err)
			s.compensate()
			return s.lastError
		}
		s.completed = append(s.completed, step)
	}
	return nil
}

// executeStep runs one step in its own goroutine so a step that ignores its
// context still cannot block the saga past the timeout.
func (s *Saga) executeStep(ctx context.Context, step SagaStep, timeout time.Duration) error {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- step.Execute(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.config.Logger.Debug("saga step failed", "step", step.Name, "duration", time.Since(start), "error", err)
			return err
		}
		s.config.Logger.Debug("saga step completed", "step", step.Name, "duration", time.Since(start))
		return nil
	case <-stepCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("timed out after %v", timeout)
	}
}

// compensate undoes completed steps in reverse order. It uses a fresh
// context: the caller's may already be cancelled, and rollback must still run.
func (s *Saga) compensate() {
	for i := len(s.completed) - 1; i >= 0; i-- {
		step := s.completed[i]
		if step.Compensate == nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.config.CompensationTimeout)
		err := step.Compensate(ctx)
		cancel()

		if err != nil {
			s.config.Logger.Warn("compensation failed", "step", step.Name, "error", err)
		} else {
			s.config.Logger.Debug("compensated step", "step", step.Name)
		}
		if s.config.OnCompensate != nil {
			s.config.OnCompensate(step, err)
		}
	}
}

func (s *Saga) CompletedSteps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, len(s.completed))
	for i, step := range s.completed {
		names[i] = step.Name
	}
	return names
}

func (s *Saga) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// StepCount returns the number of registered steps.
func (s *Saga) StepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}
