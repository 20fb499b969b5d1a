// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package follow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/api"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/testserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSet(t *testing.T) (*Set, *testserver.Server, model.User, model.User) {
	t.Helper()
	srv := testserver.New(t)
	ada := srv.AddUser("ada", "pw")
	bob := srv.AddUser("bob", "pw")
	cy := srv.AddUser("cyd", "pw")
	srv.Follow(ada.ID, cy.ID)
	ada, _ = srv.User(ada.ID)

	client, err := api.New(api.Config{BaseURL: srv.URL, Tokens: api.StaticToken(srv.Token(ada.ID)), Logger: quietLogger()})
	require.NoError(t, err)
	return NewSet(model.NewSession(ada, "t"), client, nil, quietLogger()), srv, ada, bob
}

func TestSet_SeededFromSession(t *testing.T) {
	set, _, ada, bob := newSet(t)
	assert.Equal(t, ada.Following, set.Following())
	assert.False(t, set.IsFollowing(bob.ID))
	assert.Equal(t, 1, set.Len())
}

func TestSet_ToggleAdoptsServerState(t *testing.T) {
	set, srv, ada, bob := newSet(t)
	ctx := context.Background()

	res, err := set.Toggle(ctx, bob.ID)
	require.NoError(t, err)
	assert.True(t, res.IsFollowing)
	assert.Equal(t, 1, res.FollowersCount)
	assert.True(t, set.IsFollowing(bob.ID))

	server, _ := srv.User(bob.ID)
	assert.Equal(t, []string{ada.ID}, server.Followers)

	res, err = set.Toggle(ctx, bob.ID)
	require.NoError(t, err)
	assert.False(t, res.IsFollowing)
	assert.False(t, set.IsFollowing(bob.ID))
}

func TestSet_ServerAnswerWins(t *testing.T) {
	set, srv, _, bob := newSet(t)
	// The server already has the follow; the local set does not.
	srv.Follow(set.viewerID, bob.ID)

	res, err := set.Toggle(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.False(t, res.IsFollowing)
	assert.False(t, set.IsFollowing(bob.ID))
}

func TestSet_ToggleRevertsOnFailure(t *testing.T) {
	set, srv, _, bob := newSet(t)
	srv.Fail("POST /api/users/follow/:id", http.StatusInternalServerError)

	_, err := set.Toggle(context.Background(), bob.ID)
	require.Error(t, err)
	assert.False(t, set.IsFollowing(bob.ID))

	var apiErr *api.Error
	assert.True(t, errors.As(err, &apiErr))
}

func TestSet_ToggleSelf(t *testing.T) {
	set, _, ada, _ := newSet(t)
	_, err := set.Toggle(context.Background(), ada.ID)
	assert.ErrorIs(t, err, ErrSelf)
}

func TestSet_ToggleBusy(t *testing.T) {
	set, srv, _, bob := newSet(t)
	ctx := context.Background()

	arrived, release := srv.Hold("POST /api/users/follow/:id")
	errc := make(chan error, 1)
	go func() {
		_, err := set.Toggle(ctx, bob.ID)
		errc <- err
	}()
	<-arrived

	assert.True(t, set.IsFollowing(bob.ID), "optimistic flip visible while in flight")
	_, err := set.Toggle(ctx, bob.ID)
	assert.ErrorIs(t, err, ErrBusy)

	release()
	require.NoError(t, <-errc)
}

func TestSet_Annotate(t *testing.T) {
	set, _, ada, bob := newSet(t)
	posts := []model.Post{
		{ID: "p1", User: model.User{ID: ada.Following[0]}},
		{ID: "p2", User: bob, IsFollowing: true},
	}
	set.Annotate(posts)
	assert.True(t, posts[0].IsFollowing)
	assert.False(t, posts[1].IsFollowing)
}

func TestSet_Observe(t *testing.T) {
	set, _, ada, bob := newSet(t)
	set.Observe(bob.ID, true)
	assert.True(t, set.IsFollowing(bob.ID))
	set.Observe(ada.ID, true)
	assert.False(t, set.IsFollowing(ada.ID))
}
