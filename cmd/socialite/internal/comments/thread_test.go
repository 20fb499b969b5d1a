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
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/api"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/pending"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/testserver"
	"github.com/AleutianAI/socialite/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv    *testserver.Server
	thread *Thread
	reg    *pending.Registry
	ada    model.User
	bob    model.User
	post   model.Post
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := testserver.New(t)
	ada := srv.AddUser("ada", "pw")
	bob := srv.AddUser("bob", "pw")
	post := srv.AddPost(bob.ID, "sunset")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := api.New(api.Config{BaseURL: srv.URL, Tokens: api.StaticToken(srv.Token(ada.ID)), Logger: logger})
	require.NoError(t, err)

	reg := pending.New()
	return &fixture{
		srv:    srv,
		thread: NewThread(post.ID, ada.ID, client, reg, logger),
		reg:    reg,
		ada:    ada,
		bob:    bob,
		post:   post,
	}
}

func TestThread_AddAndReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.thread.Add(ctx, "first!", ""))
	nodes := f.thread.Flatten()
	require.Len(t, nodes, 1)
	rootID := nodes[0].Comment.ID

	require.NoError(t, f.thread.Add(ctx, "a reply", rootID))
	nodes = f.thread.Flatten()
	require.Len(t, nodes, 2)
	assert.Equal(t, 1, nodes[1].Depth)
	assert.Equal(t, rootID, nodes[1].Comment.ParentID)

	assert.ErrorIs(t, f.thread.Add(ctx, "x", "missing"), ErrUnknownComment)
}

func TestThread_EmptyTextNeverReachesBackend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.srv.CountRequests("POST /api/comments")

	err := f.thread.Add(ctx, "   \n", "")
	assert.ErrorIs(t, err, validation.ErrEmptyText)
	assert.Equal(t, before, f.srv.CountRequests("POST /api/comments"))
}

func TestThread_EditDeleteOnlyByAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.srv.AddComment(f.post.ID, f.ada.ID, "mine", "")
	theirs := f.srv.AddComment(f.post.ID, f.bob.ID, "theirs", "")
	require.NoError(t, f.thread.Refresh(ctx))

	assert.ErrorIs(t, f.thread.Edit(ctx, theirs.ID, "hijack"), ErrNotAuthor)
	assert.ErrorIs(t, f.thread.Delete(ctx, theirs.ID), ErrNotAuthor)
	assert.ErrorIs(t, f.thread.Edit(ctx, mine.ID, ""), validation.ErrEmptyText)

	require.NoError(t, f.thread.Edit(ctx, mine.ID, "mine, edited"))
	got, ok := f.thread.Get(mine.ID)
	require.True(t, ok)
	assert.Equal(t, "mine, edited", got.Text)

	require.NoError(t, f.thread.Delete(ctx, mine.ID))
	_, ok = f.thread.Get(mine.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, f.thread.Len())
}

func TestThread_DeleteOrphansReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.srv.AddComment(f.post.ID, f.ada.ID, "root", "")
	f.srv.AddComment(f.post.ID, f.bob.ID, "reply", root.ID)
	require.NoError(t, f.thread.Refresh(ctx))
	require.Len(t, f.thread.Flatten(), 2)

	require.NoError(t, f.thread.Delete(ctx, root.ID))
	assert.Equal(t, 1, f.thread.Len())
	assert.Empty(t, f.thread.Flatten(), "reply to a deleted comment is not rendered")
}

func TestThread_ToggleLikeConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cm := f.srv.AddComment(f.post.ID, f.bob.ID, "nice", "")
	require.NoError(t, f.thread.Refresh(ctx))

	require.NoError(t, f.thread.ToggleLike(ctx, cm.ID))
	got, _ := f.thread.Get(cm.ID)
	assert.True(t, got.LikedBy(f.ada.ID))

	require.NoError(t, f.thread.ToggleLike(ctx, cm.ID))
	got, _ = f.thread.Get(cm.ID)
	assert.False(t, got.LikedBy(f.ada.ID))
}

func TestThread_ToggleLikeRevertsOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cm := f.srv.AddComment(f.post.ID, f.bob.ID, "nice", "")
	require.NoError(t, f.thread.Refresh(ctx))

	f.srv.Fail("POST /api/comments/like/:id", http.StatusInternalServerError)
	err := f.thread.ToggleLike(ctx, cm.ID)
	require.Error(t, err)
	assert.Equal(t, "injected failure", api.MessageOf(err))

	got, _ := f.thread.Get(cm.ID)
	assert.Empty(t, got.Likes)
	assert.False(t, f.reg.IsPending(pending.Key{Kind: pending.CommentLike, ID: cm.ID}))
}

func TestThread_ToggleLikeOptimisticWhileInFlight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cm := f.srv.AddComment(f.post.ID, f.bob.ID, "nice", "")
	require.NoError(t, f.thread.Refresh(ctx))

	arrived, release := f.srv.Hold("POST /api/comments/like/:id")
	errc := make(chan error, 1)
	go func() { errc <- f.thread.ToggleLike(ctx, cm.ID) }()
	<-arrived

	got, _ := f.thread.Get(cm.ID)
	assert.True(t, got.LikedBy(f.ada.ID), "like shows before the server answers")
	assert.ErrorIs(t, f.thread.ToggleLike(ctx, cm.ID), ErrBusy)
	assert.True(t, f.reg.IsPending(pending.Key{Kind: pending.CommentLike, ID: cm.ID}))

	release()
	require.NoError(t, <-errc)
}

func TestThread_ToggleLikeUnknown(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.thread.ToggleLike(context.Background(), "nope"), ErrUnknownComment)
}
