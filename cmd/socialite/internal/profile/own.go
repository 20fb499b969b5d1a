// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package profile

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/pkg/validation"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownPost is returned for ids not among the loaded posts.
var ErrUnknownPost = errors.New("post not on this profile")

// Backend is the subset of the API client the profile views use.
type Backend interface {
	MyPosts(ctx context.Context) ([]*model.Post, error)
	Followers(ctx context.Context) ([]model.User, error)
	Following(ctx context.Context) ([]model.User, error)
	Suggestions(ctx context.Context) ([]model.User, error)
	UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.User, error)
	UploadProfilePicture(ctx context.Context, file validation.MediaFile) (*model.User, error)
	UserProfile(ctx context.Context, username string) (*model.UserProfile, error)
	LikePost(ctx context.Context, id string) (*model.LikeResult, error)
	EditPost(ctx context.Context, id, caption string) (*model.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// SessionRefresher re-fetches the viewer after a profile change.
type SessionRefresher interface {
	Refresh(ctx context.Context) (model.Session, error)
}

// Own is the viewer's profile view.
type Own struct {
	backend Backend
	session SessionRefresher
	logger  *slog.Logger

	mu        sync.Mutex
	posts     []*model.Post
	followers []model.User
	following []model.User
}

// NewOwn creates an empty Own view.
func NewOwn(backend Backend, session SessionRefresher, logger *slog.Logger) *Own {
	if logger == nil {
		logger = slog.Default()
	}
	return &Own{backend: backend, session: session, logger: logger}
}

// Load fetches posts, followers and following concurrently. If any of the
// three fails the view keeps its previous contents.
func (o *Own) Load(ctx context.Context) error {
	var (
		posts     []*model.Post
		followers []model.User
		following []model.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, err = o.backend.MyPosts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		followers, err = o.backend.Followers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		following, err = o.backend.Following(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	o.mu.Lock()
	o.posts, o.followers, o.following = posts, followers, following
	o.mu.Unlock()

	o.logger.Debug("profile loaded", "posts", len(posts), "followers", len(followers), "following", len(following))
	return nil
}

// Posts returns the viewer's posts. Treat them as read-only.
func (o *Own) Posts() []*model.Post {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*model.Post(nil), o.posts...)
}

// Followers returns the users following the viewer.
func (o *Own) Followers() []model.User {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.User(nil), o.followers...)
}

// Following returns the users the viewer follows.
func (o *Own) Following() []model.User {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.User(nil), o.following...)
}

// UpdateProfile edits name and bio, then refreshes the session user.
func (o *Own) UpdateProfile(ctx context.Context, name, bio string) (model.Session, error) {
	update := model.ProfileUpdate{Name: name, Bio: bio}
	if err := validation.Struct(update); err != nil {
		return model.Session{}, err
	}
	if _, err := o.backend.UpdateProfile(ctx, update); err != nil {
		return model.Session{}, err
	}
	return o.session.Refresh(ctx)
}

// UploadPicture replaces the avatar with the image at path, then refreshes
// the session user.
func (o *Own) UploadPicture(ctx context.Context, path string) (model.Session, error) {
	file, err := validation.CheckProfilePicture(path)
	if err != nil {
		return model.Session{}, err
	}
	if _, err := o.backend.UploadProfilePicture(ctx, file); err != nil {
		return model.Session{}, err
	}
	return o.session.Refresh(ctx)
}

// Suggestions lists accounts the viewer might follow.
func (o *Own) Suggestions(ctx context.Context) ([]model.User, error) {
	return o.backend.Suggestions(ctx)
}

// ToggleLike flips the viewer's like on one of their posts.
func (o *Own) ToggleLike(ctx context.Context, postID string) (model.LikeResult, error) {
	return toggleLike(ctx, o.backend, &o.mu, &o.posts, postID)
}

// Edit replaces a post's caption and reloads the post list.
func (o *Own) Edit(ctx context.Context, postID, caption string) error {
	if !o.has(postID) {
		return ErrUnknownPost
	}
	if _, err := o.backend.EditPost(ctx, postID, caption); err != nil {
		return err
	}
	posts, err := o.backend.MyPosts(ctx)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.posts = posts
	o.mu.Unlock()
	return nil
}

// Delete removes one of the viewer's posts.
func (o *Own) Delete(ctx context.Context, postID string) error {
	if err := o.backend.DeletePost(ctx, postID); err != nil {
		return err
	}
	o.mu.Lock()
	o.posts = without(o.posts, postID)
	o.mu.Unlock()
	return nil
}

func (o *Own) has(postID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return indexOf(o.posts, postID) >= 0
}

// =============================================================================
// Shared post helpers
// =============================================================================

func toggleLike(ctx context.Context, backend Backend, mu *sync.Mutex, posts *[]*model.Post, postID string) (model.LikeResult, error) {
	mu.Lock()
	known := indexOf(*posts, postID) >= 0
	mu.Unlock()
	if !known {
		return model.LikeResult{}, ErrUnknownPost
	}

	res, err := backend.LikePost(ctx, postID)
	if err != nil {
		return model.LikeResult{}, err
	}

	mu.Lock()
	defer mu.Unlock()
	if i := indexOf(*posts, postID); i >= 0 {
		(*posts)[i].IsLiked = res.IsLiked
		(*posts)[i].LikeCount = res.LikeCount
	}
	return *res, nil
}

func indexOf(posts []*model.Post, id string) int {
	for i, p := range posts {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func without(posts []*model.Post, id string) []*model.Post {
	i := indexOf(posts, id)
	if i < 0 {
		return posts
	}
	return append(posts[:i:i], posts[i+1:]...)
}
