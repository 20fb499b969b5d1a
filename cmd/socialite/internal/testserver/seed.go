// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package testserver

import (
	"fmt"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/socketio"
	"github.com/google/uuid"
)

// AddUser creates an account and returns its user document.
func (s *Server) AddUser(username, password string) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, password, username, "")
}

func (s *Server) addUserLocked(username, password, name, email string) model.User {
	id, _ := s.nextID("u")
	u := model.User{ID: id, Username: username, Name: name, Email: email}
	s.users[id] = &account{user: u, password: password}
	s.byName[username] = id
	return u
}

// Token issues a bearer token for userID.
func (s *Server) Token(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokenLocked(userID)
}

func (s *Server) issueTokenLocked(userID string) string {
	token := uuid.NewString()
	s.tokens[token] = userID
	return token
}

// User returns the current state of a user.
func (s *Server) User(userID string) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.users[userID]
	if !ok {
		return model.User{}, false
	}
	return acc.user, true
}

// Follow makes followerID follow targetID without a notification.
func (s *Server) Follow(followerID, targetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setFollowLocked(followerID, targetID, true)
}

func (s *Server) setFollowLocked(followerID, targetID string, follow bool) {
	follower, target := s.users[followerID], s.users[targetID]
	follower.user.Following = remove(follower.user.Following, targetID)
	target.user.Followers = remove(target.user.Followers, followerID)
	if follow {
		follower.user.Following = append(follower.user.Following, targetID)
		target.user.Followers = append(target.user.Followers, followerID)
	}
}

// AddPost stores a text post by userID.
func (s *Server) AddPost(userID, caption string) model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addPostLocked(userID, caption, nil, "")
}

func (s *Server) addPostLocked(userID, caption string, images []string, video string) model.Post {
	id, at := s.nextID("p")
	p := model.Post{
		ID:        id,
		User:      s.users[userID].user,
		Caption:   caption,
		Images:    images,
		Video:     video,
		Likes:     []string{},
		CreatedAt: at,
	}
	s.posts[id] = &storedPost{post: p, order: s.seq}
	return p
}

// Post returns the stored post.
func (s *Server) Post(id string) (model.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.posts[id]
	if !ok {
		return model.Post{}, false
	}
	return sp.post, true
}

// LikePost records a like without a notification.
func (s *Server) LikePost(postID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := s.posts[postID]
	if !contains(sp.post.Likes, userID) {
		sp.post.Likes = append(sp.post.Likes, userID)
	}
}

// AddComment stores a comment. parentID may be empty.
func (s *Server) AddComment(postID, userID, text, parentID string) model.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addCommentLocked(postID, userID, text, parentID)
}

func (s *Server) addCommentLocked(postID, userID, text, parentID string) model.Comment {
	id, at := s.nextID("c")
	c := &model.Comment{
		ID:        id,
		PostID:    postID,
		User:      s.users[userID].user,
		Text:      text,
		ParentID:  parentID,
		Likes:     []string{},
		CreatedAt: at,
	}
	s.comments = append(s.comments, c)
	return *c
}

// Comments returns the stored comments of postID in insertion order.
func (s *Server) Comments(postID string) []model.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Comment
	for _, c := range s.comments {
		if c.PostID == postID {
			out = append(out, *c)
		}
	}
	return out
}

// AddNotification stores a notification for recipientID without pushing it.
func (s *Server) AddNotification(recipientID string, typ model.NotificationType, senderID string) model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeNotificationLocked(recipientID, typ, senderID, "")
}

// Push stores a notification and delivers it to recipientID's realtime
// connections.
func (s *Server) Push(recipientID string, typ model.NotificationType, senderID string) model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.storeNotificationLocked(recipientID, typ, senderID, "")
	s.broadcastLocked(recipientID, eventFrame("notification:new", n))
	return n
}

// PushFrame delivers a raw websocket text frame to recipientID's sessions.
func (s *Server) PushFrame(recipientID, frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(recipientID, []byte(frame))
}

// Resend delivers an already stored notification again.
func (s *Server) Resend(recipientID string, n model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(recipientID, eventFrame("notification:new", n))
}

// Notifications returns the stored notifications of recipientID, newest
// first.
func (s *Server) Notifications(recipientID string) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Notification, 0, len(s.notifications[recipientID]))
	for _, n := range s.notifications[recipientID] {
		out = append(out, *n)
	}
	return out
}

func (s *Server) storeNotificationLocked(recipientID string, typ model.NotificationType, senderID, postID string) model.Notification {
	id, at := s.nextID("n")
	n := &model.Notification{
		ID:        id,
		Type:      typ,
		Sender:    s.users[senderID].user,
		CreatedAt: at,
	}
	if postID != "" {
		n.Post = &model.PostRef{ID: postID, Caption: s.posts[postID].post.Caption}
	}
	s.notifications[recipientID] = append([]*model.Notification{n}, s.notifications[recipientID]...)
	return *n
}

// notifyLocked records activity by senderID for recipientID and pushes it.
// Self-activity produces nothing.
func (s *Server) notifyLocked(recipientID string, typ model.NotificationType, senderID, postID string) {
	if recipientID == senderID {
		return
	}
	n := s.storeNotificationLocked(recipientID, typ, senderID, postID)
	s.broadcastLocked(recipientID, eventFrame("notification:new", n))
}

func eventFrame(event string, data any) []byte {
	frame, err := socketio.EncodeEvent(event, data)
	if err != nil {
		panic(fmt.Sprintf("testserver: encode %s: %v", event, err))
	}
	return frame
}
