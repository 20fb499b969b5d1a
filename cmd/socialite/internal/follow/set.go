// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package follow keeps the viewer's followed-user set, the only source of
// truth for "am I following X" across feed and profile views.
package follow

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/pending"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/resilience"
)

var (
	// ErrSelf is returned when the viewer tries to follow themselves.
	ErrSelf = errors.New("cannot follow yourself")

	// ErrBusy is returned while a toggle for the same user is in flight.
	ErrBusy = errors.New("follow toggle already in progress")
)

// Backend is the subset of the API client the set uses.
type Backend interface {
	ToggleFollow(ctx context.Context, userID string) (*model.FollowResult, error)
}

// Set is the followed-id set.
type Set struct {
	viewerID string
	backend  Backend
	pending  *pending.Registry
	logger   *slog.Logger

	mu       sync.RWMutex
	followed map[string]struct{}
}

// NewSet seeds a Set from the session user's following list.
func NewSet(session model.Session, backend Backend, reg *pending.Registry, logger *slog.Logger) *Set {
	if reg == nil {
		reg = pending.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Set{
		viewerID: session.UserID,
		backend:  backend,
		pending:  reg,
		logger:   logger,
		followed: make(map[string]struct{}, len(session.User.Following)),
	}
	for _, id := range session.User.Following {
		s.followed[id] = struct{}{}
	}
	return s
}

// IsFollowing reports whether the viewer follows userID.
func (s *Set) IsFollowing(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.followed[userID]
	return ok
}

// Following returns the followed ids, sorted.
func (s *Set) Following() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.followed))
	for id := range s.followed {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of followed users.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.followed)
}

// Annotate sets IsFollowing on each post from the set.
func (s *Set) Annotate(posts []model.Post) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range posts {
		_, posts[i].IsFollowing = s.followed[posts[i].User.ID]
	}
}

// Toggle follows or unfollows userID.
//
// # Description
//
// Flips membership locally, calls the backend and then adopts the server's
// isFollowing. On failure the flip is reverted.
//
// # Outputs
//
//   - model.FollowResult: The server's answer; FollowersCount is the
//     target's new follower count.
//   - error: ErrSelf, ErrBusy or the backend error.
func (s *Set) Toggle(ctx context.Context, userID string) (model.FollowResult, error) {
	if userID == s.viewerID {
		return model.FollowResult{}, ErrSelf
	}
	done, ok := s.pending.Begin(pending.Key{Kind: pending.Follow, ID: userID})
	if !ok {
		return model.FollowResult{}, ErrBusy
	}
	defer done()

	var res *model.FollowResult
	err := resilience.Optimistic(ctx, s.logger, resilience.Mutation{
		Name:   "follow:" + userID,
		Apply:  func() { s.flip(userID) },
		Revert: func() { s.flip(userID) },
		Call: func(ctx context.Context) error {
			var err error
			res, err = s.backend.ToggleFollow(ctx, userID)
			return err
		},
	})
	if err != nil {
		return model.FollowResult{}, err
	}

	s.set(userID, res.IsFollowing)
	s.logger.Debug("follow toggled", "user_id", userID, "following", res.IsFollowing)
	return *res, nil
}

// Observe records a follow state reported by the backend outside a toggle,
// such as the isFollowing flag of a public profile.
func (s *Set) Observe(userID string, following bool) {
	if userID == "" || userID == s.viewerID {
		return
	}
	s.set(userID, following)
}

func (s *Set) flip(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.followed[userID]; ok {
		delete(s.followed, userID)
		return
	}
	s.followed[userID] = struct{}{}
}

func (s *Set) set(userID string, following bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if following {
		s.followed[userID] = struct{}{}
		return
	}
	delete(s.followed, userID)
}
