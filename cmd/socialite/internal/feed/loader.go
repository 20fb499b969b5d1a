// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package feed holds the paginated home feed and the post mutations made
// from it.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/pkg/validation"
)

// DefaultPageSize is the number of posts per feed page.
const DefaultPageSize = 5

var (
	// ErrFetchInFlight is returned when a page is requested while another
	// fetch has not finished. No request is made.
	ErrFetchInFlight = errors.New("feed fetch already in flight")

	// ErrNoMorePages is returned by LoadMore after the last page.
	ErrNoMorePages = errors.New("no more pages")

	// ErrUnknownPost is returned for ids not in the loaded list.
	ErrUnknownPost = errors.New("post not in feed")
)

// Backend is the subset of the API client the feed uses.
type Backend interface {
	Feed(ctx context.Context, page, limit int) (*model.FeedPage, error)
	Post(ctx context.Context, id string) (*model.Post, error)
	LikePost(ctx context.Context, id string) (*model.LikeResult, error)
	CreatePost(ctx context.Context, caption string, files []validation.MediaFile) error
	EditPost(ctx context.Context, id, caption string) (*model.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// Config configures a Loader.
type Config struct {
	// PageSize defaults to DefaultPageSize.
	PageSize int

	// ViewerID enriches single posts fetched with Get.
	ViewerID string

	Logger *slog.Logger
}

// Loader is the home feed state.
//
// # Description
//
// Posts are held as pointers. A fetch with reset, or of page 1, replaces the
// list; any other page appends, so posts already loaded keep their identity
// across pages. Pagination state is taken verbatim from the response
// envelope.
//
// # Thread Safety
//
// Safe for concurrent use. Returned *model.Post values are shared with the
// loader and must be treated as read-only.
type Loader struct {
	backend  Backend
	pageSize int
	viewerID string
	logger   *slog.Logger

	mu          sync.Mutex
	posts       []*model.Post
	currentPage int
	totalPages  int
	hasMore     bool
	loading     bool
	fetchDone   chan struct{}
	likes       map[string]*likeState
}

// likeState orders like toggles on one post. issued counts requests sent;
// applied is the generation of the response currently reflected in the post.
type likeState struct {
	issued  uint64
	applied uint64
}

// NewLoader creates an empty Loader.
func NewLoader(backend Backend, cfg Config) *Loader {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loader{
		backend:  backend,
		pageSize: cfg.PageSize,
		viewerID: cfg.ViewerID,
		logger:   cfg.Logger,
		likes:    make(map[string]*likeState),
	}
}

// State is the pagination state of the last successful fetch.
type State struct {
	CurrentPage int
	TotalPages  int
	HasMore     bool
	Loading     bool
}

// State returns the pagination state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{CurrentPage: l.currentPage, TotalPages: l.totalPages, HasMore: l.hasMore, Loading: l.loading}
}

// Posts returns the loaded posts in feed order.
func (l *Loader) Posts() []*model.Post {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*model.Post(nil), l.posts...)
}

// Snapshot returns copies of the loaded posts, safe to modify.
func (l *Loader) Snapshot() []model.Post {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Post, len(l.posts))
	for i, p := range l.posts {
		out[i] = *p
	}
	return out
}

// Fetch loads page (1-based).
//
// # Inputs
//
//   - page: Page number. Values below 1 are treated as 1.
//   - reset: Replace the list even for pages after the first.
//
// # Outputs
//
//   - error: ErrFetchInFlight when another fetch is running, otherwise the
//     backend error. A failed fetch leaves list and state unchanged.
func (l *Loader) Fetch(ctx context.Context, page int, reset bool) error {
	if page < 1 {
		page = 1
	}

	l.mu.Lock()
	if l.loading {
		l.mu.Unlock()
		return ErrFetchInFlight
	}
	l.loading = true
	done := make(chan struct{})
	l.fetchDone = done
	l.mu.Unlock()

	res, err := l.backend.Feed(ctx, page, l.pageSize)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false
	l.fetchDone = nil
	close(done)
	if err != nil {
		return err
	}

	if reset || page == 1 {
		l.posts = append([]*model.Post(nil), res.Posts...)
	} else {
		seen := make(map[string]bool, len(l.posts))
		for _, p := range l.posts {
			seen[p.ID] = true
		}
		for _, p := range res.Posts {
			if !seen[p.ID] {
				l.posts = append(l.posts, p)
			}
		}
	}
	l.currentPage = res.CurrentPage
	l.totalPages = res.TotalPages
	l.hasMore = res.HasMore

	l.logger.Debug("feed page loaded", "page", res.CurrentPage, "total_pages", res.TotalPages, "posts", len(l.posts))
	return nil
}

// LoadMore fetches the page after the current one.
func (l *Loader) LoadMore(ctx context.Context) error {
	st := l.State()
	if st.CurrentPage == 0 {
		return l.Fetch(ctx, 1, false)
	}
	if !st.HasMore {
		return ErrNoMorePages
	}
	return l.Fetch(ctx, st.CurrentPage+1, false)
}

// Refresh reloads the first page.
func (l *Loader) Refresh(ctx context.Context) error {
	return l.Fetch(ctx, 1, true)
}

// ToggleLike flips the viewer's like on postID.
//
// # Description
//
// Only IsLiked and LikeCount of that post change, and only from the server's
// answer. Each call takes a generation number. A successful response is
// applied unless a response from a newer generation is already applied, so
// the post always shows the latest answer the server has given. A failed
// call never rolls back an answer from an older call that succeeded.
//
// # Outputs
//
//   - model.LikeResult: The server's answer, applied or not.
//   - error: ErrUnknownPost or the backend error. The post is unchanged on
//     error.
func (l *Loader) ToggleLike(ctx context.Context, postID string) (model.LikeResult, error) {
	l.mu.Lock()
	if l.find(postID) < 0 {
		l.mu.Unlock()
		return model.LikeResult{}, ErrUnknownPost
	}
	st := l.likes[postID]
	if st == nil {
		st = &likeState{}
		l.likes[postID] = st
	}
	st.issued++
	gen := st.issued
	l.mu.Unlock()

	res, err := l.backend.LikePost(ctx, postID)
	if err != nil {
		return model.LikeResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if st.applied > gen {
		l.logger.Debug("discarding stale like response", "post_id", postID, "generation", gen, "applied", st.applied)
		return *res, nil
	}
	st.applied = gen
	if i := l.find(postID); i >= 0 {
		l.posts[i].IsLiked = res.IsLiked
		l.posts[i].LikeCount = res.LikeCount
	}
	return *res, nil
}

// Create validates and publishes a post, then reloads the first page. When
// another fetch is running the reload waits for it and then runs.
//
// # Outputs
//
//   - skipped: Paths dropped by the media allowlist.
//   - error: *validation.Error when nothing postable remains or a limit is
//     exceeded; no request is made in that case. Once the post is published
//     only a failed reload or a cancelled ctx is reported.
func (l *Loader) Create(ctx context.Context, caption string, paths []string) (skipped []string, err error) {
	files, skipped, err := validation.CheckMedia(paths)
	if err != nil {
		return skipped, err
	}
	if err := validation.CheckPost(caption, files); err != nil {
		return skipped, err
	}
	if err := l.backend.CreatePost(ctx, caption, files); err != nil {
		return skipped, err
	}
	return skipped, l.reload(ctx)
}

// reload fetches the first page, waiting out any fetch already in flight.
func (l *Loader) reload(ctx context.Context) error {
	for {
		err := l.Fetch(ctx, 1, true)
		if !errors.Is(err, ErrFetchInFlight) {
			return err
		}

		l.mu.Lock()
		done := l.fetchDone
		l.mu.Unlock()
		if done == nil {
			continue
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Edit replaces a loaded post's caption.
func (l *Loader) Edit(ctx context.Context, postID, caption string) error {
	l.mu.Lock()
	known := l.find(postID) >= 0
	l.mu.Unlock()
	if !known {
		return ErrUnknownPost
	}

	updated, err := l.backend.EditPost(ctx, postID, caption)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.find(postID); i >= 0 {
		if updated != nil {
			caption = updated.Caption
		}
		l.posts[i].Caption = caption
	}
	return nil
}

// Delete deletes a post on the backend and then removes it from the list.
// A failed request leaves the list unchanged.
func (l *Loader) Delete(ctx context.Context, postID string) error {
	if err := l.backend.DeletePost(ctx, postID); err != nil {
		return err
	}
	l.Remove(postID)
	return nil
}

// Remove drops postID from the list. It reports whether anything changed.
func (l *Loader) Remove(postID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.find(postID)
	if i < 0 {
		return false
	}
	l.posts = append(l.posts[:i:i], l.posts[i+1:]...)
	delete(l.likes, postID)
	return true
}

// Get fetches one post with like state derived from its raw likes.
func (l *Loader) Get(ctx context.Context, postID string) (*model.Post, error) {
	p, err := l.backend.Post(ctx, postID)
	if err != nil {
		return nil, err
	}
	p.Enrich(l.viewerID)
	return p, nil
}

func (l *Loader) find(postID string) int {
	for i, p := range l.posts {
		if p.ID == postID {
			return i
		}
	}
	return -1
}
