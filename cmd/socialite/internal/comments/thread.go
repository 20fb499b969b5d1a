// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package comments

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/pending"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/resilience"
	"github.com/AleutianAI/socialite/pkg/validation"
)

var (
	// ErrNotAuthor blocks editing or deleting someone else's comment.
	ErrNotAuthor = errors.New("only the author can change this comment")

	// ErrUnknownComment is returned for ids not in the current list.
	ErrUnknownComment = errors.New("comment not found")

	// ErrBusy is returned while the same action on the same comment is in
	// flight.
	ErrBusy = errors.New("operation already in progress")
)

// Backend is the subset of the API client a Thread uses.
type Backend interface {
	Comments(ctx context.Context, postID string) ([]model.Comment, error)
	AddComment(ctx context.Context, postID string, draft model.CommentDraft) error
	EditComment(ctx context.Context, id, text string) error
	DeleteComment(ctx context.Context, id string) error
	LikeComment(ctx context.Context, id string) error
}

// Thread holds the comments of one post for one viewer.
//
// # Description
//
// Every mutation calls the backend and then refetches the whole list, so
// the tree always reflects server order and ids. Likes are the exception:
// they toggle locally first and revert when the request fails.
//
// # Thread Safety
//
// Safe for concurrent use. The list is guarded by a mutex that is never
// held across a request.
type Thread struct {
	postID   string
	viewerID string
	backend  Backend
	pending  *pending.Registry
	logger   *slog.Logger

	mu       sync.Mutex
	comments []model.Comment
	tree     *Tree
}

// NewThread creates an empty Thread. Call Refresh to load it.
func NewThread(postID, viewerID string, backend Backend, reg *pending.Registry, logger *slog.Logger) *Thread {
	if reg == nil {
		reg = pending.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Thread{
		postID:   postID,
		viewerID: viewerID,
		backend:  backend,
		pending:  reg,
		logger:   logger.With("post_id", postID),
		tree:     BuildTree(nil),
	}
}

// PostID returns the post this thread belongs to.
func (t *Thread) PostID() string {
	return t.postID
}

// Refresh replaces the list with the backend's.
func (t *Thread) Refresh(ctx context.Context) error {
	list, err := t.backend.Comments(ctx, t.postID)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.comments = list
	t.tree = BuildTree(t.comments)
	t.mu.Unlock()
	return nil
}

// Len returns the number of comments in the list, rendered or not.
func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.comments)
}

// Flatten returns the rendered tree.
func (t *Thread) Flatten() []Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tree.Flatten()
}

// Get returns a copy of the comment with id.
func (t *Thread) Get(id string) (model.Comment, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.tree.Get(id)
	if !ok {
		return model.Comment{}, false
	}
	return *c, true
}

// Add posts a top-level comment, or a reply when parentID is set.
func (t *Thread) Add(ctx context.Context, text, parentID string) error {
	if err := validation.RequireText(text); err != nil {
		return err
	}

	draft := model.CommentDraft{Text: text}
	key := pending.Key{Kind: pending.CommentReply, ID: t.postID}
	if parentID != "" {
		if _, ok := t.Get(parentID); !ok {
			return ErrUnknownComment
		}
		draft.Parent = &parentID
		key.ID = parentID
	}

	done, ok := t.pending.Begin(key)
	if !ok {
		return ErrBusy
	}
	defer done()

	if err := t.backend.AddComment(ctx, t.postID, draft); err != nil {
		return err
	}
	return t.Refresh(ctx)
}

// Edit replaces the text of the viewer's own comment.
func (t *Thread) Edit(ctx context.Context, id, text string) error {
	if err := validation.RequireText(text); err != nil {
		return err
	}
	if err := t.checkAuthor(id); err != nil {
		return err
	}

	done, ok := t.pending.Begin(pending.Key{Kind: pending.CommentEdit, ID: id})
	if !ok {
		return ErrBusy
	}
	defer done()

	if err := t.backend.EditComment(ctx, id, text); err != nil {
		return err
	}
	return t.Refresh(ctx)
}

// Delete removes the viewer's own comment. Its replies stay on the server
// but no longer render.
func (t *Thread) Delete(ctx context.Context, id string) error {
	if err := t.checkAuthor(id); err != nil {
		return err
	}

	done, ok := t.pending.Begin(pending.Key{Kind: pending.CommentEdit, ID: id})
	if !ok {
		return ErrBusy
	}
	defer done()

	if err := t.backend.DeleteComment(ctx, id); err != nil {
		return err
	}
	return t.Refresh(ctx)
}

// ToggleLike flips the viewer's like on a comment.
//
// # Description
//
// The like set changes locally before the request. On failure the previous
// set is restored and the error returned; on success the list is refetched.
// A second toggle on the same comment while one is in flight returns
// ErrBusy.
func (t *Thread) ToggleLike(ctx context.Context, id string) error {
	done, ok := t.pending.Begin(pending.Key{Kind: pending.CommentLike, ID: id})
	if !ok {
		return ErrBusy
	}
	defer done()

	var snapshot []string
	var found bool
	err := resilience.Optimistic(ctx, t.logger, resilience.Mutation{
		Name: "comment-like:" + id,
		Apply: func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			c, ok := t.tree.Get(id)
			if !ok {
				return
			}
			found = true
			snapshot = slices.Clone(c.Likes)
			c.ToggleLike(t.viewerID)
		},
		Revert: func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if c, ok := t.tree.Get(id); ok && found {
				c.Likes = snapshot
			}
		},
		Call: func(ctx context.Context) error {
			if !found {
				return ErrUnknownComment
			}
			return t.backend.LikeComment(ctx, id)
		},
	})
	if err != nil {
		if errors.Is(err, ErrUnknownComment) {
			return ErrUnknownComment
		}
		t.logger.Warn("comment like reverted", "comment_id", id, "error", err)
		return err
	}
	return t.Refresh(ctx)
}

func (t *Thread) checkAuthor(id string) error {
	c, ok := t.Get(id)
	if !ok {
		return ErrUnknownComment
	}
	if c.User.ID != t.viewerID {
		return ErrNotAuthor
	}
	return nil
}
