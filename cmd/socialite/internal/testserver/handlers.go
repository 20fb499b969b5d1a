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
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/gin-gonic/gin"
)

// =============================================================================
// Auth
// =============================================================================

func (s *Server) handleLogin(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.users[s.byName[body.Username]]
	if !ok || acc.password != body.Password {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
		return
	}

	// Login answers with "id" rather than "_id".
	doc := userDoc(acc.user)
	delete(doc, "_id")
	doc["id"] = acc.user.ID
	c.JSON(http.StatusOK, gin.H{"token": s.issueTokenLocked(acc.user.ID), "user": doc})
}

func (s *Server) handleRegister(c *gin.Context) {
	var body model.Registration
	if err := c.ShouldBindJSON(&body); err != nil || body.Username == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byName[body.Username]; taken {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username already exists"})
		return
	}
	u := s.addUserLocked(body.Username, body.Password, body.Name, body.Email)
	c.JSON(http.StatusCreated, gin.H{"message": "User registered", "token": s.issueTokenLocked(u.ID)})
}

// =============================================================================
// Users
// =============================================================================

func (s *Server) handleMe(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, userDoc(s.users[viewer(c)].user))
}

func (s *Server) handleFollowers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.userDocsLocked(s.users[viewer(c)].user.Followers))
}

func (s *Server) handleFollowing(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.userDocsLocked(s.users[viewer(c)].user.Following))
}

func (s *Server) handleSuggestions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	me := s.users[viewer(c)].user
	var ids []string
	for id := range s.users {
		if id != me.ID && !contains(me.Following, id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	c.JSON(http.StatusOK, s.userDocsLocked(ids))
}

func (s *Server) userDocsLocked(ids []string) []gin.H {
	docs := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		if acc, ok := s.users[id]; ok {
			docs = append(docs, userDoc(acc.user))
		}
	}
	return docs
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var body model.ProfileUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.users[viewer(c)]
	acc.user.Name = body.Name
	acc.user.Bio = body.Bio
	c.JSON(http.StatusOK, userDoc(acc.user))
}

func (s *Server) handleUploadPicture(c *gin.Context) {
	file, err := c.FormFile("profilePicture")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file uploaded"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.users[viewer(c)]
	acc.user.ProfilePicture = "/uploads/" + path.Base(file.Filename)
	c.JSON(http.StatusOK, gin.H{"message": "Profile picture updated", "user": userDoc(acc.user)})
}

func (s *Server) handleFollow(c *gin.Context) {
	me, target := viewer(c), c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.users[target]
	if !ok {
		notFound(c, "User")
		return
	}
	if target == me {
		c.JSON(http.StatusBadRequest, gin.H{"message": "You cannot follow yourself"})
		return
	}

	following := !contains(s.users[me].user.Following, target)
	s.setFollowLocked(me, target, following)
	if following {
		s.notifyLocked(target, model.NotifyFollow, me, "")
	}
	c.JSON(http.StatusOK, gin.H{"isFollowing": following, "followersCount": len(acc.user.Followers)})
}

func (s *Server) handleUserProfile(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byName[c.Param("username")]
	if !ok {
		notFound(c, "User")
		return
	}
	me := viewer(c)
	var posts []gin.H
	for _, sp := range s.sortedPostsLocked() {
		if sp.post.User.ID == id {
			posts = append(posts, s.postViewLocked(sp.post, me))
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"user":        userDoc(s.users[id].user),
		"posts":       nonNilDocs(posts),
		"isFollowing": contains(s.users[me].user.Following, id),
	})
}

// =============================================================================
// Posts
// =============================================================================

func (s *Server) sortedPostsLocked() []*storedPost {
	out := make([]*storedPost, 0, len(s.posts))
	for _, sp := range s.posts {
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].order > out[j].order })
	return out
}

// postViewLocked renders the viewer-relative shape used by list endpoints.
func (s *Server) postViewLocked(p model.Post, viewerID string) gin.H {
	return gin.H{
		"_id":         p.ID,
		"user":        userDoc(s.users[p.User.ID].user),
		"caption":     p.Caption,
		"images":      nonNil(p.Images),
		"video":       p.Video,
		"likeCount":   len(p.Likes),
		"isLiked":     contains(p.Likes, viewerID),
		"isFollowing": contains(s.users[viewerID].user.Following, p.User.ID),
		"createdAt":   p.CreatedAt,
	}
}

// rawPostLocked renders the stored document with its likes array.
func (s *Server) rawPostLocked(p model.Post) gin.H {
	return gin.H{
		"_id":       p.ID,
		"user":      userDoc(s.users[p.User.ID].user),
		"caption":   p.Caption,
		"images":    nonNil(p.Images),
		"video":     p.Video,
		"likes":     nonNil(p.Likes),
		"createdAt": p.CreatedAt,
	}
}

func nonNilDocs(docs []gin.H) []gin.H {
	if docs == nil {
		return []gin.H{}
	}
	return docs
}

func (s *Server) handleFeed(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 5
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.sortedPostsLocked()
	totalPages := (len(all) + limit - 1) / limit
	start := (page - 1) * limit
	end := min(start+limit, len(all))

	posts := []gin.H{}
	for i := start; i < end; i++ {
		posts = append(posts, s.postViewLocked(all[i].post, viewer(c)))
	}
	c.JSON(http.StatusOK, gin.H{
		"posts":       posts,
		"totalPages":  totalPages,
		"currentPage": page,
		"hasMore":     page < totalPages,
	})
}

func (s *Server) handleMyPosts(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	me := viewer(c)
	posts := []gin.H{}
	for _, sp := range s.sortedPostsLocked() {
		if sp.post.User.ID == me {
			posts = append(posts, s.postViewLocked(sp.post, me))
		}
	}
	c.JSON(http.StatusOK, posts)
}

func (s *Server) handleGetPost(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.posts[c.Param("id")]
	if !ok {
		notFound(c, "Post")
		return
	}
	c.JSON(http.StatusOK, s.rawPostLocked(sp.post))
}

func (s *Server) handleCreatePost(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form"})
		return
	}
	caption := strings.Join(form.Value["caption"], "")

	var images []string
	var video string
	for _, fh := range form.File["files"] {
		name := "/uploads/" + path.Base(fh.Filename)
		if strings.HasPrefix(fh.Header.Get("Content-Type"), "video/") {
			video = name
		} else {
			images = append(images, name)
		}
	}
	if strings.TrimSpace(caption) == "" && len(images) == 0 && video == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Post must have a caption or media"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	me := viewer(c)
	p := s.addPostLocked(me, caption, images, video)
	for _, follower := range s.users[me].user.Followers {
		s.notifyLocked(follower, model.NotifyNewPost, me, p.ID)
	}
	c.JSON(http.StatusCreated, s.rawPostLocked(p))
}

func (s *Server) handleEditPost(c *gin.Context) {
	var body struct {
		Caption string `json:"caption"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.posts[c.Param("id")]
	if !ok {
		notFound(c, "Post")
		return
	}
	if sp.post.User.ID != viewer(c) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Not authorized"})
		return
	}
	sp.post.Caption = body.Caption
	c.JSON(http.StatusOK, s.rawPostLocked(sp.post))
}

func (s *Server) handleDeletePost(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.posts[id]
	if !ok {
		notFound(c, "Post")
		return
	}
	if sp.post.User.ID != viewer(c) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Not authorized"})
		return
	}
	delete(s.posts, id)

	kept := s.comments[:0]
	for _, cm := range s.comments {
		if cm.PostID != id {
			kept = append(kept, cm)
		}
	}
	s.comments = kept
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

func (s *Server) handleLikePost(c *gin.Context) {
	me := viewer(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.posts[c.Param("id")]
	if !ok {
		notFound(c, "Post")
		return
	}

	liked := !contains(sp.post.Likes, me)
	sp.post.Likes = remove(sp.post.Likes, me)
	if liked {
		sp.post.Likes = append(sp.post.Likes, me)
		s.notifyLocked(sp.post.User.ID, model.NotifyLikePost, me, sp.post.ID)
	}
	c.JSON(http.StatusOK, gin.H{"isLiked": liked, "likeCount": len(sp.post.Likes)})
}

// =============================================================================
// Comments
// =============================================================================

func (s *Server) findCommentLocked(id string) *model.Comment {
	for _, cm := range s.comments {
		if cm.ID == id {
			return cm
		}
	}
	return nil
}

func (s *Server) handleListComments(c *gin.Context) {
	postID := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []gin.H{}
	for _, cm := range s.comments {
		if cm.PostID != postID {
			continue
		}
		var parent any
		if cm.ParentID != "" {
			parent = gin.H{"_id": cm.ParentID}
		}
		out = append(out, gin.H{
			"_id":       cm.ID,
			"post":      cm.PostID,
			"user":      userDoc(s.users[cm.User.ID].user),
			"text":      cm.Text,
			"parent":    parent,
			"likes":     nonNil(cm.Likes),
			"createdAt": cm.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleAddComment(c *gin.Context) {
	var body struct {
		Text   string  `json:"text"`
		Parent *string `json:"parent"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Comment text is required"})
		return
	}

	me, postID := viewer(c), c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.posts[postID]
	if !ok {
		notFound(c, "Post")
		return
	}

	parentID := ""
	if body.Parent != nil {
		parentID = *body.Parent
	}
	cm := s.addCommentLocked(postID, me, body.Text, parentID)
	if parent := s.findCommentLocked(parentID); parent != nil {
		s.notifyLocked(parent.User.ID, model.NotifyReplyComment, me, postID)
	} else {
		s.notifyLocked(sp.post.User.ID, model.NotifyCommentPost, me, postID)
	}
	c.JSON(http.StatusCreated, cm)
}

func (s *Server) handleEditComment(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Comment text is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cm := s.findCommentLocked(c.Param("id"))
	if cm == nil {
		notFound(c, "Comment")
		return
	}
	if cm.User.ID != viewer(c) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Not authorized"})
		return
	}
	cm.Text = body.Text
	c.JSON(http.StatusOK, cm)
}

func (s *Server) handleDeleteComment(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	cm := s.findCommentLocked(id)
	if cm == nil {
		notFound(c, "Comment")
		return
	}
	if cm.User.ID != viewer(c) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Not authorized"})
		return
	}

	kept := s.comments[:0]
	for _, other := range s.comments {
		if other.ID != id {
			kept = append(kept, other)
		}
	}
	s.comments = kept
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}

func (s *Server) handleLikeComment(c *gin.Context) {
	me := viewer(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	cm := s.findCommentLocked(c.Param("id"))
	if cm == nil {
		notFound(c, "Comment")
		return
	}

	liked := !contains(cm.Likes, me)
	cm.Likes = remove(cm.Likes, me)
	if liked {
		cm.Likes = append(cm.Likes, me)
		s.notifyLocked(cm.User.ID, model.NotifyLikeComment, me, cm.PostID)
	}
	c.JSON(http.StatusOK, gin.H{"likes": cm.Likes})
}

// =============================================================================
// Notifications
// =============================================================================

func (s *Server) handleListNotifications(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.notifications[viewer(c)]

	unread := 0
	for _, n := range all {
		if !n.Read {
			unread++
		}
	}

	page := []model.Notification{}
	for i := skip; i < len(all) && i < skip+limit; i++ {
		page = append(page, *all[i])
	}
	c.JSON(http.StatusOK, gin.H{"notifications": page, "unreadCount": unread})
}

func (s *Server) handleRead(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications[viewer(c)] {
		if n.ID == id {
			n.Read = true
			c.JSON(http.StatusOK, n)
			return
		}
	}
	notFound(c, "Notification")
}

func (s *Server) handleReadAll(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications[viewer(c)] {
		n.Read = true
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}
