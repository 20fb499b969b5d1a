// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/pkg/validation"
)

// Followers lists the users following the caller.
func (c *Client) Followers(ctx context.Context) ([]model.User, error) {
	return c.userList(ctx, "users.followers", "/api/users/followers")
}

// Following lists the users the caller follows.
func (c *Client) Following(ctx context.Context) ([]model.User, error) {
	return c.userList(ctx, "users.following", "/api/users/following")
}

// Suggestions lists accounts to follow for the home view.
func (c *Client) Suggestions(ctx context.Context) ([]model.User, error) {
	return c.userList(ctx, "users.suggestions", "/api/users/getHomeFollowers")
}

func (c *Client) userList(ctx context.Context, op, path string) ([]model.User, error) {
	var out userList
	if err := c.do(ctx, request{op: op, method: http.MethodGet, path: path}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateProfile edits the caller's name and bio.
func (c *Client) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.User, error) {
	var out userEnvelope
	err := c.do(ctx, request{op: "users.update", method: http.MethodPut, path: "/api/users/update", json: update}, &out)
	if err != nil {
		return nil, err
	}
	return out.user(), nil
}

// UploadProfilePicture replaces the caller's avatar. file must already have
// passed validation.CheckProfilePicture.
func (c *Client) UploadProfilePicture(ctx context.Context, file validation.MediaFile) (*model.User, error) {
	form := newMultipartForm()
	form.addFile("profilePicture", file)
	body, contentType := form.reader(c.logger)

	var out userEnvelope
	err := c.do(ctx, request{
		op:          "users.upload_picture",
		method:      http.MethodPut,
		path:        "/api/users/upload-profile-picture",
		body:        body,
		contentType: contentType,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.user(), nil
}

// ToggleFollow follows or unfollows userID. The result is the new state.
func (c *Client) ToggleFollow(ctx context.Context, userID string) (*model.FollowResult, error) {
	var out model.FollowResult
	err := c.do(ctx, request{op: "users.follow", method: http.MethodPost, path: "/api/users/follow/" + url.PathEscape(userID)}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UserProfile returns a public profile by username.
func (c *Client) UserProfile(ctx context.Context, username string) (*model.UserProfile, error) {
	var out model.UserProfile
	err := c.do(ctx, request{op: "users.profile", method: http.MethodGet, path: "/api/users/user/" + url.PathEscape(username)}, &out)
	if err != nil {
		return nil, err
	}
	if out.User.ID == "" {
		return nil, &Error{StatusCode: http.StatusNotFound, Message: "user not found in response", Method: http.MethodGet, Path: "/api/users/user/" + username}
	}
	return &out, nil
}

// userList decodes a bare array of users or an object wrapping one under
// "users", "followers" or "following".
type userList []model.User

func (l *userList) UnmarshalJSON(data []byte) error {
	var users []model.User
	if err := json.Unmarshal(data, &users); err == nil {
		*l = users
		return nil
	}
	var wrapped struct {
		Users     []model.User `json:"users"`
		Followers []model.User `json:"followers"`
		Following []model.User `json:"following"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	switch {
	case wrapped.Users != nil:
		*l = wrapped.Users
	case wrapped.Followers != nil:
		*l = wrapped.Followers
	default:
		*l = wrapped.Following
	}
	return nil
}

// userEnvelope decodes either a user document or {"user": {...}}.
type userEnvelope struct {
	direct  model.User
	wrapped *model.User
}

func (e *userEnvelope) UnmarshalJSON(data []byte) error {
	var shape struct {
		User *model.User `json:"user"`
	}
	if err := json.Unmarshal(data, &shape); err == nil && shape.User != nil {
		e.wrapped = shape.User
		return nil
	}
	return json.Unmarshal(data, &e.direct)
}

func (e *userEnvelope) user() *model.User {
	if e.wrapped != nil {
		return e.wrapped
	}
	u := e.direct
	return &u
}
