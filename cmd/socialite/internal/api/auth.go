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

	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
)

// Login exchanges credentials for a token and the user document.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error) {
	var out model.AuthResult
	err := c.do(ctx, request{op: "auth.login", method: http.MethodPost, path: "/api/auth/login", json: creds}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. The backend answers with a token; the user
// field may be absent.
func (c *Client) Register(ctx context.Context, reg model.Registration) (*model.AuthResult, error) {
	var out model.AuthResult
	err := c.do(ctx, request{op: "auth.register", method: http.MethodPost, path: "/api/auth/register", json: reg}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, request{op: "users.me", method: http.MethodGet, path: "/api/users/me"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
