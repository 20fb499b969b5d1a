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
)

// Notifications returns limit notifications after skipping the newest skip.
func (c *Client) Notifications(ctx context.Context, skip, limit int) (*model.NotificationPage, error) {
	query := url.Values{}
	query.Set("skip", strconv.Itoa(skip))
	query.Set("limit", strconv.Itoa(limit))

	var out model.NotificationPage
	if err := c.do(ctx, request{op: "notifications.list", method: http.MethodGet, path: "/api/notifications", query: query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkRead marks one notification read.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.do(ctx, request{op: "notifications.read", method: http.MethodPatch, path: "/api/notifications/" + url.PathEscape(id) + "/read"}, nil)
}

// MarkAllRead marks every notification read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, request{op: "notifications.read_all", method: http.MethodPatch, path: "/api/notifications/read-all"}, nil)
}
