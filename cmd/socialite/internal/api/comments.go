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

	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
)

// Comments returns the flat comment list of a post in backend order.
func (c *Client) Comments(ctx context.Context, postID string) ([]model.Comment, error) {
	var out []model.Comment
	if err := c.do(ctx, request{op: "comments.list", method: http.MethodGet, path: "/api/comments/" + url.PathEscape(postID)}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddComment posts a comment or, when draft.Parent is set, a reply.
func (c *Client) AddComment(ctx context.Context, postID string, draft model.CommentDraft) error {
	return c.do(ctx, request{op: "comments.add", method: http.MethodPost, path: "/api/comments/" + url.PathEscape(postID), json: draft}, nil)
}

// EditComment replaces a comment's text.
func (c *Client) EditComment(ctx context.Context, id, text string) error {
	return c.do(ctx, request{
		op:     "comments.edit",
		method: http.MethodPut,
		path:   "/api/comments/" + url.PathEscape(id),
		json:   map[string]string{"text": text},
	}, nil)
}

// DeleteComment removes a comment.
func (c *Client) DeleteComment(ctx context.Context, id string) error {
	return c.do(ctx, request{op: "comments.delete", method: http.MethodDelete, path: "/api/comments/" + url.PathEscape(id)}, nil)
}

// LikeComment toggles the caller's like on a comment.
func (c *Client) LikeComment(ctx context.Context, id string) error {
	return c.do(ctx, request{op: "comments.like", method: http.MethodPost, path: "/api/comments/like/" + url.PathEscape(id)}, nil)
}
