// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var renderNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRenderer(level PersonalityLevel) (*Renderer, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewRenderer(&buf, level).WithClock(func() time.Time { return renderNow }), &buf
}

func TestRenderer_PostMachine(t *testing.T) {
	r, buf := newTestRenderer(PersonalityMachine)
	r.Post(PostView{ID: "p1", Author: "ada", Caption: "hello\tworld\nagain", Likes: 3, Liked: true})
	assert.Equal(t, "POST\tp1\tada\t3\ttrue\thello world again\n", buf.String())
}

func TestRenderer_PostHuman(t *testing.T) {
	r, buf := newTestRenderer(PersonalityStandard)
	r.Post(PostView{
		ID:        "p1",
		Author:    "ada",
		Caption:   "sunset",
		Images:    2,
		Video:     true,
		Likes:     4,
		Liked:     true,
		Following: true,
		CreatedAt: renderNow.Add(-3 * time.Minute),
	})

	out := buf.String()
	for _, want := range []string{"@ada", "3 minutes ago", "[following]", "sunset", "2 images, 1 video", "♥ 4", "id p1"} {
		assert.Contains(t, out, want)
	}
}

func TestRenderer_FeedFooter(t *testing.T) {
	r, buf := newTestRenderer(PersonalityMinimal)
	r.Feed(nil, PageInfo{Current: 1, Total: 0})
	assert.Contains(t, buf.String(), "No posts yet.")
	assert.Contains(t, buf.String(), "page 1 of 1")

	m, mbuf := newTestRenderer(PersonalityMachine)
	m.Feed([]PostView{{ID: "p1", Author: "a"}}, PageInfo{Current: 2, Total: 3, HasMore: true})
	assert.Equal(t, "POST\tp1\ta\t0\tfalse\t\nPAGE\t2\t3\ttrue\n", mbuf.String())
}

func TestRenderer_CommentsIndentByDepth(t *testing.T) {
	r, buf := newTestRenderer(PersonalityMinimal)
	r.Comments([]CommentView{
		{ID: "c1", Author: "ada", Text: "top", Depth: 0},
		{ID: "c2", Author: "bob", Text: "reply", Depth: 1, Liked: true, Likes: 1},
		{ID: "c3", Author: "cy", Text: "deeper", Depth: 2},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "@ada top"))
	assert.True(t, strings.HasPrefix(lines[1], "  ↳ @bob reply"))
	assert.Contains(t, lines[1], "♥ 1")
	assert.True(t, strings.HasPrefix(lines[2], "    ↳ @cy deeper"))
}

func TestRenderer_CommentsMachine(t *testing.T) {
	r, buf := newTestRenderer(PersonalityMachine)
	r.Comments([]CommentView{{ID: "c2", Author: "bob", Text: "hi", Depth: 1, Likes: 2}})
	assert.Equal(t, "COMMENT\tc2\t1\tbob\t2\tfalse\thi\n", buf.String())

	buf.Reset()
	r.Comments(nil)
	assert.Empty(t, buf.String())
}

func TestRenderer_Notifications(t *testing.T) {
	list := []NotificationView{
		{ID: "n2", Text: "bob liked your post.", CreatedAt: renderNow.Add(-time.Hour)},
		{ID: "n1", Text: "cy started following you.", Read: true, CreatedAt: renderNow.Add(-48 * time.Hour)},
	}

	m, mbuf := newTestRenderer(PersonalityMachine)
	m.Notifications(list, 1, true)
	assert.Equal(t,
		"UNREAD\t1\n"+
			"NOTIFICATION\tn2\tunread\t2025-03-01T11:00:00Z\tbob liked your post.\n"+
			"NOTIFICATION\tn1\tread\t2025-02-27T12:00:00Z\tcy started following you.\n",
		mbuf.String())

	r, buf := newTestRenderer(PersonalityStandard)
	r.Notifications(list, 1, true)
	out := buf.String()
	assert.Contains(t, out, "1 unread")
	assert.Contains(t, out, "1 hour ago")
	assert.Contains(t, out, "2 days ago")
	assert.Contains(t, out, "--more")
}

func TestRenderer_NotificationsEmpty(t *testing.T) {
	r, buf := newTestRenderer(PersonalityMinimal)
	r.Notifications(nil, 0, false)
	assert.Contains(t, buf.String(), "0 unread")
	assert.Contains(t, buf.String(), "No notifications.")
}

func TestRenderer_Profile(t *testing.T) {
	u := UserView{ID: "u1", Username: "ada", Name: "Ada", Bio: "math", Followers: 2, Following: 1, IsFollowing: true}
	posts := []PostView{{ID: "p1", Author: "ada", Caption: "notes"}}

	r, buf := newTestRenderer(PersonalityStandard)
	r.Profile(u, posts)
	out := buf.String()
	for _, want := range []string{"Ada", "@ada", "math", "2 followers · 1 following · 1 posts · you follow", "notes"} {
		assert.Contains(t, out, want)
	}

	m, mbuf := newTestRenderer(PersonalityMachine)
	m.Profile(u, posts)
	assert.Equal(t, "USER\tu1\tada\t2\t1\ttrue\nPOST\tp1\tada\t0\tfalse\tnotes\n", mbuf.String())
}

func TestRenderer_Users(t *testing.T) {
	r, buf := newTestRenderer(PersonalityMinimal)
	r.Users("Followers", []UserView{{ID: "u2", Username: "bob"}})
	assert.Contains(t, buf.String(), "Followers (1)")
	assert.Contains(t, buf.String(), "@bob bob")
}
