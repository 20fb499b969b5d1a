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
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// =============================================================================
// View types
// =============================================================================

// PostView is what the renderer needs to show one post.
type PostView struct {
	ID        string
	Author    string
	Caption   string
	Images    int
	Video     bool
	Likes     int
	Liked     bool
	Following bool
	CreatedAt time.Time
}

// CommentView is one comment of a flattened thread. Depth 0 is top level.
type CommentView struct {
	ID        string
	Author    string
	Text      string
	Likes     int
	Liked     bool
	Depth     int
	CreatedAt time.Time
}

// NotificationView is one notification line.
type NotificationView struct {
	ID        string
	Text      string
	Read      bool
	CreatedAt time.Time
}

// UserView is a profile header or a user-list entry.
type UserView struct {
	ID          string
	Username    string
	Name        string
	Bio         string
	Picture     string
	Followers   int
	Following   int
	IsFollowing bool
}

// PageInfo describes the feed pagination state.
type PageInfo struct {
	Current int
	Total   int
	HasMore bool
}

// =============================================================================
// Renderer
// =============================================================================

// Renderer writes social views to w in the style of one personality level.
// Machine output is one tab-separated record per line.
//
// # Thread Safety
//
// Not safe for concurrent use; create one per command.
type Renderer struct {
	w     io.Writer
	level PersonalityLevel
	now   func() time.Time
}

// NewRenderer creates a Renderer.
func NewRenderer(w io.Writer, level PersonalityLevel) *Renderer {
	return &Renderer{w: w, level: level, now: time.Now}
}

// WithClock fixes the reference time for relative timestamps.
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	r.now = now
	return r
}

func (r *Renderer) machine() bool {
	return r.level == PersonalityMachine
}

func (r *Renderer) ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, r.now(), "ago", "from now")
}

// field makes free text safe for a tab-separated record.
func field(s string) string {
	return strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(s)
}

// Post renders one post.
func (r *Renderer) Post(p PostView) {
	if r.machine() {
		fmt.Fprintf(r.w, "POST\t%s\t%s\t%d\t%t\t%s\n", p.ID, p.Author, p.Likes, p.Liked, field(p.Caption))
		return
	}

	header := Styles.Username.Render("@"+p.Author) + Styles.Muted.Render(" · "+r.ago(p.CreatedAt))
	if p.Following {
		header += Styles.Muted.Render("  [following]")
	}
	lines := []string{header}
	if p.Caption != "" {
		lines = append(lines, p.Caption)
	}
	if media := mediaLine(p); media != "" {
		lines = append(lines, Styles.Muted.Render(media))
	}

	heart := IconHollow.Render()
	if p.Liked {
		heart = IconHeart.Render()
	}
	lines = append(lines, fmt.Sprintf("%s %d  %s", heart, p.Likes, Styles.Muted.Render("id "+p.ID)))

	body := strings.Join(lines, "\n")
	if r.level == PersonalityMinimal {
		fmt.Fprintln(r.w, body)
		fmt.Fprintln(r.w)
		return
	}
	fmt.Fprintln(r.w, Styles.Box.Width(64).Render(body))
}

func mediaLine(p PostView) string {
	var parts []string
	switch {
	case p.Images == 1:
		parts = append(parts, "1 image")
	case p.Images > 1:
		parts = append(parts, fmt.Sprintf("%d images", p.Images))
	}
	if p.Video {
		parts = append(parts, "1 video")
	}
	return strings.Join(parts, ", ")
}

// Feed renders a page of posts followed by the pagination state.
func (r *Renderer) Feed(posts []PostView, page PageInfo) {
	if len(posts) == 0 && !r.machine() {
		fmt.Fprintln(r.w, Styles.Muted.Render("No posts yet."))
	}
	for _, p := range posts {
		r.Post(p)
	}
	if r.machine() {
		fmt.Fprintf(r.w, "PAGE\t%d\t%d\t%t\n", page.Current, page.Total, page.HasMore)
		return
	}
	footer := fmt.Sprintf("page %d of %d", page.Current, max(page.Total, page.Current))
	if page.HasMore {
		footer += " · more available"
	}
	fmt.Fprintln(r.w, Styles.Muted.Render(footer))
}

// Comments renders a flattened thread, indenting replies by depth.
func (r *Renderer) Comments(list []CommentView) {
	if len(list) == 0 && !r.machine() {
		fmt.Fprintln(r.w, Styles.Muted.Render("No comments yet."))
		return
	}
	for _, c := range list {
		if r.machine() {
			fmt.Fprintf(r.w, "COMMENT\t%s\t%d\t%s\t%d\t%t\t%s\n", c.ID, c.Depth, c.Author, c.Likes, c.Liked, field(c.Text))
			continue
		}

		indent := strings.Repeat("  ", c.Depth)
		marker := ""
		if c.Depth > 0 {
			marker = IconReply.Render() + " "
		}
		heart := IconHollow.Render()
		if c.Liked {
			heart = IconHeart.Render()
		}
		meta := Styles.Muted.Render(fmt.Sprintf("%s · %s", r.ago(c.CreatedAt), c.ID))
		fmt.Fprintf(r.w, "%s%s%s %s  %s %d  %s\n",
			indent, marker, Styles.Username.Render("@"+c.Author), c.Text, heart, c.Likes, meta)
	}
}

// Notifications renders the notification list with its unread count.
func (r *Renderer) Notifications(list []NotificationView, unread int, hasMore bool) {
	if r.machine() {
		fmt.Fprintf(r.w, "UNREAD\t%d\n", unread)
		for _, n := range list {
			r.Notification(n)
		}
		return
	}

	fmt.Fprintf(r.w, "%s %s\n", IconBell.Render(), Styles.Title.Render(fmt.Sprintf("%d unread", unread)))
	if len(list) == 0 {
		fmt.Fprintln(r.w, Styles.Muted.Render("No notifications."))
		return
	}
	for _, n := range list {
		r.Notification(n)
	}
	if hasMore {
		fmt.Fprintln(r.w, Styles.Muted.Render("more available (--more)"))
	}
}

// Notification renders one notification line, e.g. for a live push.
func (r *Renderer) Notification(n NotificationView) {
	if r.machine() {
		state := "unread"
		if n.Read {
			state = "read"
		}
		fmt.Fprintf(r.w, "NOTIFICATION\t%s\t%s\t%s\t%s\n", n.ID, state, n.CreatedAt.UTC().Format(time.RFC3339), field(n.Text))
		return
	}
	line := fmt.Sprintf("%s  %s", n.Text, Styles.Muted.Render(r.ago(n.CreatedAt)+" · "+n.ID))
	if n.Read {
		fmt.Fprintf(r.w, "  %s\n", line)
		return
	}
	fmt.Fprintln(r.w, Styles.Unread.Render(Styles.Bold.Render(line)))
}

// Profile renders a profile header and the user's posts.
func (r *Renderer) Profile(u UserView, posts []PostView) {
	if r.machine() {
		r.user(u)
		for _, p := range posts {
			r.Post(p)
		}
		return
	}

	lines := []string{Styles.Title.Render(displayName(u)) + " " + Styles.Username.Render("@"+u.Username)}
	if u.Bio != "" {
		lines = append(lines, u.Bio)
	}
	stats := fmt.Sprintf("%d followers · %d following · %d posts", u.Followers, u.Following, len(posts))
	if u.IsFollowing {
		stats += " · you follow"
	}
	lines = append(lines, Styles.Muted.Render(stats))
	fmt.Fprintln(r.w, Styles.Box.Width(64).Render(strings.Join(lines, "\n")))

	for _, p := range posts {
		r.Post(p)
	}
}

// Users renders a titled user list.
func (r *Renderer) Users(title string, users []UserView) {
	if r.machine() {
		for _, u := range users {
			r.user(u)
		}
		return
	}
	fmt.Fprintln(r.w, Styles.Title.Render(fmt.Sprintf("%s (%d)", title, len(users))))
	for _, u := range users {
		line := fmt.Sprintf("%s %s %s", IconBullet.Render(), Styles.Username.Render("@"+u.Username), displayName(u))
		fmt.Fprintf(r.w, "%s %s\n", line, Styles.Muted.Render(u.ID))
	}
}

func (r *Renderer) user(u UserView) {
	fmt.Fprintf(r.w, "USER\t%s\t%s\t%d\t%d\t%t\n", u.ID, u.Username, u.Followers, u.Following, u.IsFollowing)
}

func displayName(u UserView) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
