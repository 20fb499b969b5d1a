// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/pending"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/resilience"
)

var (
	// ErrUnknownNotification is returned for ids the Store does not hold.
	ErrUnknownNotification = errors.New("notification not found")

	// ErrBusy is returned while the same fetch or mark is in flight.
	ErrBusy = errors.New("notification request already in progress")
)

// Backend is the subset of the API client the service uses.
type Backend interface {
	Notifications(ctx context.Context, skip, limit int) (*model.NotificationPage, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
}

// Service issues notification requests and applies their results to a
// Store.
type Service struct {
	backend Backend
	store   *Store
	pending *pending.Registry
	logger  *slog.Logger
}

// NewService creates a Service over store.
func NewService(backend Backend, store *Store, reg *pending.Registry, logger *slog.Logger) *Service {
	if reg == nil {
		reg = pending.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, store: store, pending: reg, logger: logger}
}

// Store returns the Store the service writes to.
func (s *Service) Store() *Store {
	return s.store
}

// Fetch loads a page of notifications.
//
// # Description
//
// With reset the first page replaces the Store. Otherwise the next page is
// requested with skip set to the number of distinct notifications already
// held, so pushed notifications shift the window the way the server's
// newest-first ordering does.
//
// # Outputs
//
//   - error: ErrBusy while another fetch runs, or the backend error. The
//     Store is unchanged on error.
func (s *Service) Fetch(ctx context.Context, reset bool) error {
	done, ok := s.pending.Begin(pending.Key{Kind: pending.NotifyFetch})
	if !ok {
		return ErrBusy
	}
	defer done()

	skip := 0
	if !reset {
		skip = s.store.Len()
	}
	page, err := s.backend.Notifications(ctx, skip, s.store.PageSize())
	if err != nil {
		return err
	}
	s.store.ApplyPage(page, reset)

	s.logger.Debug("notifications fetched",
		"skip", skip,
		"count", len(page.Notifications),
		"unread", page.UnreadCount,
		"has_more", s.store.HasMore())
	return nil
}

// MarkAsRead marks id read locally and on the server, reverting the local
// change when the request fails. An already read notification issues no
// request.
func (s *Service) MarkAsRead(ctx context.Context, id string) error {
	n, ok := s.store.Get(id)
	if !ok {
		return ErrUnknownNotification
	}
	if n.Read {
		return nil
	}

	done, ok := s.pending.Begin(pending.Key{Kind: pending.MarkRead, ID: id})
	if !ok {
		return ErrBusy
	}
	defer done()

	var changed bool
	err := resilience.Optimistic(ctx, s.logger, resilience.Mutation{
		Name:  "mark-read:" + id,
		Apply: func() { changed = s.store.SetRead(id, true) },
		Revert: func() {
			if changed {
				s.store.SetRead(id, false)
			}
		},
		Call: func(ctx context.Context) error { return s.backend.MarkRead(ctx, id) },
	})
	if err != nil {
		s.logger.Warn("mark read reverted", "notification_id", id, "error", err)
	}
	return err
}

// MarkAllRead marks every notification read and zeroes the unread count,
// restoring both when the request fails.
func (s *Service) MarkAllRead(ctx context.Context) error {
	done, ok := s.pending.Begin(pending.Key{Kind: pending.MarkRead, ID: "*"})
	if !ok {
		return ErrBusy
	}
	defer done()

	var restore func()
	err := resilience.Optimistic(ctx, s.logger, resilience.Mutation{
		Name:   "mark-all-read",
		Apply:  func() { restore = s.store.MarkAllRead() },
		Revert: func() { restore() },
		Call:   s.backend.MarkAllRead,
	})
	if err != nil {
		s.logger.Warn("mark all read reverted", "error", err)
	}
	return err
}
