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
	"net/http"
	"net/url"
	"strconv"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/pkg/validation"
)

// Feed returns one page of the home feed. Pages are 1-based.
func (c *Client) Feed(ctx context.Context, page, limit int) (*model.FeedPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var out model.FeedPage
	if err := c.do(ctx, request{op: "posts.feed", method: http.MethodGet, path: "/api/posts/feed", query: query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyPosts returns the caller's own posts.
func (c *Client) MyPosts(ctx context.Context) ([]*model.Post, error) {
	var out []*model.Post
	if err := c.do(ctx, request{op: "posts.mine", method: http.MethodGet, path: "/api/posts/"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Post returns a single post as stored, with its raw likes array.
func (c *Client) Post(ctx context.Context, id string) (*model.Post, error) {
	var out model.Post
	if err := c.do(ctx, request{op: "posts.get", method: http.MethodGet, path: "/api/posts/" + url.PathEscape(id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePost publishes a post. files must already have passed
// validation.CheckMedia.
func (c *Client) CreatePost(ctx context.Context, caption string, files []validation.MediaFile) error {
	form := newMultipartForm()
	form.addField("caption", caption)
	for _, f := range files {
		form.addFile("files", f)
	}
	body, contentType := form.reader(c.logger)

	return c.do(ctx, request{
		op:          "posts.create",
		method:      http.MethodPost,
		path:        "/api/posts/",
		body:        body,
		contentType: contentType,
	}, nil)
}

// EditPost replaces a post's caption. The returned post is nil when the
// backend answers without a body.
func (c *Client) EditPost(ctx context.Context, id, caption string) (*model.Post, error) {
	var out *model.Post
	err := c.do(ctx, request{
		op:     "posts.edit",
		method: http.MethodPut,
		path:   "/api/posts/" + url.PathEscape(id),
		json:   map[string]string{"caption": caption},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, request{op: "posts.delete", method: http.MethodDelete, path: "/api/posts/" + url.PathEscape(id)}, nil)
}

// LikePost toggles the caller's like and returns the authoritative state.
func (c *Client) LikePost(ctx context.Context, id string) (*model.LikeResult, error) {
	var out model.LikeResult
	err := c.do(ctx, request{op: "posts.like", method: http.MethodPost, path: "/api/posts/" + url.PathEscape(id) + "/like"}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
