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
	"sync"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/follow"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
)

// ErrNotLoaded is returned by actions on a Public view before Load.
var ErrNotLoaded = errors.New("profile not loaded")

// Public is another user's profile as seen by the viewer.
type Public struct {
	backend Backend
	follows *follow.Set

	mu             sync.Mutex
	user           model.User
	posts          []*model.Post
	followersCount int
}

// NewPublic creates an empty Public view. Follow toggles go through
// follows so every view agrees on follow state.
func NewPublic(backend Backend, follows *follow.Set) *Public {
	return &Public{backend: backend, follows: follows}
}

// Load fetches the profile of username.
func (p *Public) Load(ctx context.Context, username string) error {
	res, err := p.backend.UserProfile(ctx, username)
	if err != nil {
		return err
	}
	p.follows.Observe(res.User.ID, res.IsFollowing)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.user = res.User
	p.posts = res.Posts
	p.followersCount = len(res.User.Followers)
	return nil
}

// User returns the loaded user document.
func (p *Public) User() model.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user
}

// Posts returns the user's posts. Treat them as read-only.
func (p *Public) Posts() []*model.Post {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*model.Post(nil), p.posts...)
}

// IsFollowing reports whether the viewer follows the loaded user, as held
// by the shared follow set.
func (p *Public) IsFollowing() bool {
	userID := p.User().ID
	return userID != "" && p.follows.IsFollowing(userID)
}

// FollowersCount returns the loaded user's follower count.
func (p *Public) FollowersCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.followersCount
}

// ToggleFollow follows or unfollows the loaded user through the shared
// follow set and adopts the server's follower count.
func (p *Public) ToggleFollow(ctx context.Context) (model.FollowResult, error) {
	userID := p.User().ID
	if userID == "" {
		return model.FollowResult{}, ErrNotLoaded
	}
	res, err := p.follows.Toggle(ctx, userID)
	if err != nil {
		return model.FollowResult{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user.ID == userID {
		p.followersCount = res.FollowersCount
	}
	return res, nil
}

// ToggleLike flips the viewer's like on one of the user's posts.
func (p *Public) ToggleLike(ctx context.Context, postID string) (model.LikeResult, error) {
	return toggleLike(ctx, p.backend, &p.mu, &p.posts, postID)
}
