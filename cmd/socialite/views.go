// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/AleutianAI/socialite/cmd/socialite/internal/comments"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/feed"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/pkg/ux"
)

func postView(p model.Post) ux.PostView {
	return ux.PostView{
		ID:        p.ID,
		Author:    p.User.Username,
		Caption:   p.Caption,
		Images:    len(p.Images),
		Video:     p.Video != "",
		Likes:     p.LikeCount,
		Liked:     p.IsLiked,
		Following: p.IsFollowing,
		CreatedAt: p.CreatedAt,
	}
}

func postViews(posts []model.Post) []ux.PostView {
	views := make([]ux.PostView, len(posts))
	for i, p := range posts {
		views[i] = postView(p)
	}
	return views
}

// derefPosts copies shared post pointers into values the caller may modify.
func derefPosts(posts []*model.Post) []model.Post {
	out := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

func commentViews(nodes []comments.Node, viewerID string) []ux.CommentView {
	views := make([]ux.CommentView, len(nodes))
	for i, n := range nodes {
		views[i] = ux.CommentView{
			ID:        n.Comment.ID,
			Author:    n.Comment.User.Username,
			Text:      n.Comment.Text,
			Likes:     len(n.Comment.Likes),
			Liked:     n.Comment.LikedBy(viewerID),
			Depth:     n.Depth,
			CreatedAt: n.Comment.CreatedAt,
		}
	}
	return views
}

func notificationView(n model.Notification) ux.NotificationView {
	return ux.NotificationView{
		ID:        n.ID,
		Text:      n.Summary(),
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func notificationViews(list []model.Notification) []ux.NotificationView {
	views := make([]ux.NotificationView, len(list))
	for i, n := range list {
		views[i] = notificationView(n)
	}
	return views
}

func userView(u model.User) ux.UserView {
	return ux.UserView{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Bio:       u.Bio,
		Picture:   u.ProfilePicture,
		Followers: len(u.Followers),
		Following: len(u.Following),
	}
}

func userViews(users []model.User) []ux.UserView {
	views := make([]ux.UserView, len(users))
	for i, u := range users {
		views[i] = userView(u)
	}
	return views
}

func pageInfo(st feed.State) ux.PageInfo {
	return ux.PageInfo{Current: st.CurrentPage, Total: st.TotalPages, HasMore: st.HasMore}
}
