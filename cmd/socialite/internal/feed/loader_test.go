// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/api"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/testserver"
	"github.com/AleutianAI/socialite/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	srv    *testserver.Server
	loader *Loader
	ada    model.User
	bob    model.User
}

func newFixture(t *testing.T, posts int) *fixture {
	t.Helper()
	srv := testserver.New(t)
	ada := srv.AddUser("ada", "pw")
	bob := srv.AddUser("bob", "pw")
	for i := 0; i < posts; i++ {
		srv.AddPost(bob.ID, "post")
	}

	client, err := api.New(api.Config{BaseURL: srv.URL, Tokens: api.StaticToken(srv.Token(ada.ID)), Logger: quietLogger()})
	require.NoError(t, err)
	return &fixture{
		srv:    srv,
		loader: NewLoader(client, Config{ViewerID: ada.ID, Logger: quietLogger()}),
		ada:    ada,
		bob:    bob,
	}
}

// =============================================================================
// Pagination
// =============================================================================

func TestLoader_AppendKeepsPointers(t *testing.T) {
	f := newFixture(t, 12)
	ctx := context.Background()

	require.NoError(t, f.loader.Fetch(ctx, 1, false))
	first := f.loader.Posts()
	require.Len(t, first, 5)
	assert.Equal(t, State{CurrentPage: 1, TotalPages: 3, HasMore: true}, f.loader.State())

	require.NoError(t, f.loader.LoadMore(ctx))
	after := f.loader.Posts()
	require.Len(t, after, 10)
	for i := range first {
		assert.Same(t, first[i], after[i], "existing posts keep their identity")
	}

	require.NoError(t, f.loader.LoadMore(ctx))
	assert.Len(t, f.loader.Posts(), 12)
	assert.False(t, f.loader.State().HasMore)
	assert.ErrorIs(t, f.loader.LoadMore(ctx), ErrNoMorePages)
}

func TestLoader_ResetReplaces(t *testing.T) {
	f := newFixture(t, 8)
	ctx := context.Background()

	require.NoError(t, f.loader.Fetch(ctx, 1, false))
	require.NoError(t, f.loader.Fetch(ctx, 2, false))
	require.Len(t, f.loader.Posts(), 8)

	require.NoError(t, f.loader.Fetch(ctx, 2, true))
	assert.Len(t, f.loader.Posts(), 3)
	assert.Equal(t, 2, f.loader.State().CurrentPage)

	require.NoError(t, f.loader.Fetch(ctx, 1, false))
	assert.Len(t, f.loader.Posts(), 5, "page 1 always replaces")
}

func TestLoader_AppendSkipsShiftedDuplicates(t *testing.T) {
	f := newFixture(t, 6)
	ctx := context.Background()

	require.NoError(t, f.loader.Fetch(ctx, 1, false))
	f.srv.AddPost(f.bob.ID, "new at the head")
	require.NoError(t, f.loader.LoadMore(ctx))

	seen := map[string]int{}
	for _, p := range f.loader.Posts() {
		seen[p.ID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
}

func TestLoader_FetchInFlight(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	arrived, release := f.srv.Hold("GET /api/posts/feed")
	errc := make(chan error, 1)
	go func() { errc <- f.loader.Fetch(ctx, 1, false) }()
	<-arrived

	before := f.srv.CountRequests("GET /api/posts/feed")
	assert.ErrorIs(t, f.loader.Fetch(ctx, 1, true), ErrFetchInFlight)
	assert.Equal(t, before, f.srv.CountRequests("GET /api/posts/feed"))
	assert.True(t, f.loader.State().Loading)

	release()
	require.NoError(t, <-errc)
	assert.False(t, f.loader.State().Loading)
}

func TestLoader_FailedFetchKeepsState(t *testing.T) {
	f := newFixture(t, 7)
	ctx := context.Background()
	require.NoError(t, f.loader.Fetch(ctx, 1, false))

	f.srv.Fail("GET /api/posts/feed", http.StatusInternalServerError)
	require.Error(t, f.loader.LoadMore(ctx))
	assert.Len(t, f.loader.Posts(), 5)
	assert.Equal(t, 1, f.loader.State().CurrentPage)
}

// =============================================================================
// Likes
// =============================================================================

func TestLoader_ToggleLikeTouchesOnePost(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	require.NoError(t, f.loader.Fetch(ctx, 1, false))
	before := f.loader.Snapshot()
	target := before[2].ID

	res, err := f.loader.ToggleLike(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, model.LikeResult{IsLiked: true, LikeCount: 1}, res)

	after := f.loader.Snapshot()
	for i := range before {
		if after[i].ID == target {
			assert.True(t, after[i].IsLiked)
			assert.Equal(t, 1, after[i].LikeCount)
			after[i].IsLiked, after[i].LikeCount = before[i].IsLiked, before[i].LikeCount
		}
		assert.Equal(t, before[i], after[i])
	}

	_, err = f.loader.ToggleLike(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownPost)
}

func TestLoader_ToggleLikeFailureLeavesPost(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	require.NoError(t, f.loader.Fetch(ctx, 1, false))
	target := f.loader.Posts()[0]

	f.srv.Fail("POST /api/posts/:id/like", http.StatusInternalServerError)
	_, err := f.loader.ToggleLike(ctx, target.ID)
	require.Error(t, err)
	assert.False(t, target.IsLiked)
	assert.Equal(t, 0, target.LikeCount)
}

type likeReply struct {
	res model.LikeResult
	err error
}

// scriptedBackend answers LikePost from a queue of reply channels so tests
// can choose the order in which responses land.
type scriptedBackend struct {
	Backend
	page    *model.FeedPage
	mu      sync.Mutex
	replies []chan likeReply
	calls   chan struct{}
}

func (b *scriptedBackend) Feed(context.Context, int, int) (*model.FeedPage, error) {
	return b.page, nil
}

func (b *scriptedBackend) LikePost(ctx context.Context, id string) (*model.LikeResult, error) {
	b.mu.Lock()
	ch := b.replies[0]
	b.replies = b.replies[1:]
	b.mu.Unlock()
	b.calls <- struct{}{}

	r := <-ch
	if r.err != nil {
		return nil, r.err
	}
	return &r.res, nil
}

func TestLoader_StaleLikeResponseDiscarded(t *testing.T) {
	first, second := make(chan likeReply, 1), make(chan likeReply, 1)
	backend := &scriptedBackend{
		page:    &model.FeedPage{Posts: []*model.Post{{ID: "p1"}}, CurrentPage: 1, TotalPages: 1},
		replies: []chan likeReply{first, second},
		calls:   make(chan struct{}, 2),
	}
	loader := NewLoader(backend, Config{Logger: quietLogger()})
	ctx := context.Background()
	require.NoError(t, loader.Fetch(ctx, 1, false))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = loader.ToggleLike(ctx, "p1")
	}()
	<-backend.calls

	go func() { second <- likeReply{res: model.LikeResult{IsLiked: false, LikeCount: 0}} }()
	_, err := loader.ToggleLike(ctx, "p1")
	require.NoError(t, err)

	first <- likeReply{res: model.LikeResult{IsLiked: true, LikeCount: 1}}
	<-done

	p := loader.Posts()[0]
	assert.False(t, p.IsLiked, "older response must not overwrite the newer one")
	assert.Equal(t, 0, p.LikeCount)
}

func TestLoader_OlderLikeKeptWhenNewerFails(t *testing.T) {
	first, second := make(chan likeReply, 1), make(chan likeReply, 1)
	backend := &scriptedBackend{
		page:    &model.FeedPage{Posts: []*model.Post{{ID: "p1", LikeCount: 5}}, CurrentPage: 1, TotalPages: 1},
		replies: []chan likeReply{first, second},
		calls:   make(chan struct{}, 2),
	}
	loader := NewLoader(backend, Config{Logger: quietLogger()})
	ctx := context.Background()
	require.NoError(t, loader.Fetch(ctx, 1, false))

	olderDone := make(chan error, 1)
	go func() {
		_, err := loader.ToggleLike(ctx, "p1")
		olderDone <- err
	}()
	<-backend.calls

	newerDone := make(chan error, 1)
	go func() {
		_, err := loader.ToggleLike(ctx, "p1")
		newerDone <- err
	}()
	<-backend.calls

	first <- likeReply{res: model.LikeResult{IsLiked: true, LikeCount: 6}}
	require.NoError(t, <-olderDone)
	second <- likeReply{err: errors.New("network down")}
	require.Error(t, <-newerDone)

	p := loader.Posts()[0]
	assert.True(t, p.IsLiked, "the last answer the server gave stays applied")
	assert.Equal(t, 6, p.LikeCount)
}

// =============================================================================
// Mutations
// =============================================================================

func TestLoader_CreateValidatesBeforeRequest(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	dir := t.TempDir()

	skipped, err := f.loader.Create(ctx, "  ", []string{testserver.WriteText(t, dir, "a.txt")})
	assert.ErrorIs(t, err, validation.ErrEmptyPost)
	assert.Len(t, skipped, 1)

	var images []string
	for i := 0; i < validation.MaxImages+1; i++ {
		images = append(images, testserver.WriteImage(t, dir, string(rune('a'+i))+".png"))
	}
	_, err = f.loader.Create(ctx, "too many", images)
	assert.ErrorIs(t, err, validation.ErrTooManyImages)

	assert.Equal(t, 0, f.srv.CountRequests("POST /api/posts"))
}

func TestLoader_CreateThenReloads(t *testing.T) {
	f := newFixture(t, 6)
	ctx := context.Background()
	require.NoError(t, f.loader.Fetch(ctx, 1, false))
	require.NoError(t, f.loader.LoadMore(ctx))
	dir := t.TempDir()

	_, err := f.loader.Create(ctx, "with video", []string{
		testserver.WriteImage(t, dir, "a.png"),
		testserver.WriteVideo(t, dir, "clip.mp4"),
	})
	require.NoError(t, err)

	posts := f.loader.Posts()
	require.Len(t, posts, 5)
	assert.Equal(t, "with video", posts[0].Caption)
	assert.Equal(t, "/uploads/clip.mp4", posts[0].Video)
	assert.Equal(t, 1, f.loader.State().CurrentPage)
}

func TestLoader_CreateWaitsForFetchInFlight(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	dir := t.TempDir()

	arrived, release := f.srv.Hold("GET /api/posts/feed")
	fetchErr := make(chan error, 1)
	go func() { fetchErr <- f.loader.Fetch(ctx, 1, false) }()
	<-arrived

	createErr := make(chan error, 1)
	go func() {
		_, err := f.loader.Create(ctx, "while loading", []string{testserver.WriteImage(t, dir, "a.png")})
		createErr <- err
	}()
	require.Eventually(t, func() bool {
		return f.srv.CountRequests("POST /api/posts") == 1
	}, 2*time.Second, 5*time.Millisecond)

	release()
	require.NoError(t, <-fetchErr)
	require.NoError(t, <-createErr)

	posts := f.loader.Posts()
	require.NotEmpty(t, posts)
	assert.Equal(t, "while loading", posts[0].Caption)
	assert.False(t, f.loader.State().Loading)
}

func TestLoader_EditAndDelete(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	mine := f.srv.AddPost(f.ada.ID, "draft")
	theirs := f.srv.AddPost(f.bob.ID, "other")
	require.NoError(t, f.loader.Fetch(ctx, 1, false))

	require.NoError(t, f.loader.Edit(ctx, mine.ID, "final"))
	got, _ := f.srv.Post(mine.ID)
	assert.Equal(t, "final", got.Caption)
	assert.ErrorIs(t, f.loader.Edit(ctx, "missing", "x"), ErrUnknownPost)

	require.Error(t, f.loader.Delete(ctx, theirs.ID))
	assert.Len(t, f.loader.Posts(), 2, "failed delete leaves the list unchanged")

	require.NoError(t, f.loader.Delete(ctx, mine.ID))
	posts := f.loader.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, theirs.ID, posts[0].ID)

	assert.False(t, f.loader.Remove("missing"))
	assert.Len(t, f.loader.Posts(), 1)
}

func TestLoader_DeleteMissingPost(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	require.NoError(t, f.loader.Fetch(ctx, 1, false))
	before := f.loader.Posts()

	err := f.loader.Delete(ctx, "missing")
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, before, f.loader.Posts())
}

func TestLoader_GetEnriches(t *testing.T) {
	f := newFixture(t, 0)
	p := f.srv.AddPost(f.bob.ID, "liked")
	f.srv.LikePost(p.ID, f.ada.ID)
	f.srv.LikePost(p.ID, f.bob.ID)

	got, err := f.loader.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, got.IsLiked)
	assert.Equal(t, 2, got.LikeCount)

	_, err = f.loader.Get(context.Background(), "missing")
	assert.True(t, api.IsNotFound(err))
	assert.False(t, errors.Is(err, ErrUnknownPost))
}
