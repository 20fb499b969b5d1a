// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package notify

import (
	"context"
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

type fixture struct {
	srv     *testserver.Server
	ada     model.User
	bob     model.User
	token   string
	store   *Store
	service *Service
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := testserver.New(t)
	ada := srv.AddUser("ada", "pw")
	bob := srv.AddUser("bob", "pw")
	token := srv.Token(ada.ID)

	client, err := api.New(api.Config{BaseURL: srv.URL, Tokens: api.StaticToken(token), Logger: quietLogger()})
	require.NoError(t, err)

	store := NewStore(DefaultPageSize)
	return &fixture{
		srv:     srv,
		ada:     ada,
		bob:     bob,
		token:   token,
		store:   store,
		service: NewService(client, store, nil, quietLogger()),
	}
}

func (f *fixture) seed(n int) {
	for i := 0; i < n; i++ {
		f.srv.AddNotification(f.ada.ID, model.NotifyFollow, f.bob.ID)
	}
}

// =============================================================================
// Fetch
// =============================================================================

func TestService_FetchPages(t *testing.T) {
	f := newFixture(t)
	f.seed(25)
	ctx := context.Background()

	require.NoError(t, f.service.Fetch(ctx, true))
	assert.Equal(t, 20, f.store.Len())
	assert.True(t, f.store.HasMore())
	assert.Equal(t, 25, f.store.UnreadCount())

	require.NoError(t, f.service.Fetch(ctx, false))
	assert.Equal(t, 25, f.store.Len())
	assert.False(t, f.store.HasMore())

	list := f.store.List()
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].CreatedAt.After(list[i-1].CreatedAt), "newest first")
	}
}

func TestService_FetchAfterPushHasNoDuplicates(t *testing.T) {
	f := newFixture(t)
	f.seed(3)
	pushed := f.srv.Push(f.ada.ID, model.NotifyLikePost, f.bob.ID)
	f.store.Push(pushed)

	require.NoError(t, f.service.Fetch(context.Background(), true))
	assert.Equal(t, 4, f.store.Len())
	assert.Equal(t, 4, f.store.UnreadCount())
}

func TestService_FetchMoreSkipsPushed(t *testing.T) {
	f := newFixture(t)
	f.seed(20)
	ctx := context.Background()
	require.NoError(t, f.service.Fetch(ctx, true))

	f.store.Push(f.srv.Push(f.ada.ID, model.NotifyFollow, f.bob.ID))
	require.NoError(t, f.service.Fetch(ctx, false))

	assert.Equal(t, 21, f.store.Len())
	assert.False(t, f.store.HasMore())
}

func TestService_FetchFailureKeepsStore(t *testing.T) {
	f := newFixture(t)
	f.seed(2)
	ctx := context.Background()
	require.NoError(t, f.service.Fetch(ctx, true))

	f.srv.Fail("GET /api/notifications", http.StatusInternalServerError)
	require.Error(t, f.service.Fetch(ctx, true))
	assert.Equal(t, 2, f.store.Len())
}

func TestService_FetchInFlight(t *testing.T) {
	f := newFixture(t)
	arrived, release := f.srv.Hold("GET /api/notifications")
	defer release()

	errc := make(chan error, 1)
	go func() { errc <- f.service.Fetch(context.Background(), true) }()
	<-arrived

	assert.ErrorIs(t, f.service.Fetch(context.Background(), false), ErrBusy)
	release()
	require.NoError(t, <-errc)
}

// =============================================================================
// Mark read
// =============================================================================

func TestService_MarkAsRead(t *testing.T) {
	f := newFixture(t)
	n := f.srv.AddNotification(f.ada.ID, model.NotifyFollow, f.bob.ID)
	f.seed(1)
	ctx := context.Background()
	require.NoError(t, f.service.Fetch(ctx, true))

	require.NoError(t, f.service.MarkAsRead(ctx, n.ID))
	assert.Equal(t, 1, f.store.UnreadCount())
	got, _ := f.store.Get(n.ID)
	assert.True(t, got.Read)

	for _, stored := range f.srv.Notifications(f.ada.ID) {
		if stored.ID == n.ID {
			assert.True(t, stored.Read)
		}
	}

	before := f.srv.CountRequests("PATCH")
	require.NoError(t, f.service.MarkAsRead(ctx, n.ID), "already read")
	assert.Equal(t, before, f.srv.CountRequests("PATCH"))
}

func TestService_MarkAsReadReverts(t *testing.T) {
	f := newFixture(t)
	n := f.srv.AddNotification(f.ada.ID, model.NotifyFollow, f.bob.ID)
	ctx := context.Background()
	require.NoError(t, f.service.Fetch(ctx, true))

	f.srv.Fail("PATCH /api/notifications/:id/read", http.StatusInternalServerError)
	err := f.service.MarkAsRead(ctx, n.ID)
	require.Error(t, err)
	assert.Equal(t, "injected failure", api.MessageOf(err))

	got, _ := f.store.Get(n.ID)
	assert.False(t, got.Read)
	assert.Equal(t, 1, f.store.UnreadCount())
}

func TestService_MarkAsReadUnknown(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.service.MarkAsRead(context.Background(), "nope"), ErrUnknownNotification)
	assert.Zero(t, f.srv.CountRequests("PATCH"))
}

func TestService_MarkAllRead(t *testing.T) {
	f := newFixture(t)
	f.seed(3)
	ctx := context.Background()
	require.NoError(t, f.service.Fetch(ctx, true))

	f.srv.Fail("PATCH /api/notifications/read-all", http.StatusBadGateway)
	require.Error(t, f.service.MarkAllRead(ctx))
	assert.Equal(t, 3, f.store.UnreadCount(), "restored")

	require.NoError(t, f.service.MarkAllRead(ctx))
	assert.Zero(t, f.store.UnreadCount())
	for _, n := range f.srv.Notifications(f.ada.ID) {
		assert.True(t, n.Read)
	}
}
