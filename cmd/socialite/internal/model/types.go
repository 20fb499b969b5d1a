// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package model

import (
	"encoding/json"
	"slices"
	"time"
)

// =============================================================================
// User & Session
// =============================================================================

// User is a backend user as embedded in posts, comments and notifications.
//
// The backend is inconsistent about the id key: populated documents use
// "_id" while the login and /users/me payloads use "id". Both decode into ID.
type User struct {
	ID             string   `json:"_id"`
	Username       string   `json:"username"`
	Name           string   `json:"name,omitempty"`
	Email          string   `json:"email,omitempty"`
	Bio            string   `json:"bio,omitempty"`
	ProfilePicture string   `json:"profilePicture,omitempty"`
	Followers      []string `json:"followers,omitempty"`
	Following      []string `json:"following,omitempty"`
}

// UnmarshalJSON accepts "_id" or "id", and follower lists given either as
// id strings or as populated user objects.
func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		MongoID        string          `json:"_id"`
		ID             string          `json:"id"`
		Username       string          `json:"username"`
		Name           string          `json:"name"`
		Email          string          `json:"email"`
		Bio            string          `json:"bio"`
		ProfilePicture string          `json:"profilePicture"`
		Followers      json.RawMessage `json:"followers"`
		Following      json.RawMessage `json:"following"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	followers, err := decodeIDList(raw.Followers)
	if err != nil {
		return err
	}
	following, err := decodeIDList(raw.Following)
	if err != nil {
		return err
	}

	*u = User{
		ID:             firstNonEmpty(raw.MongoID, raw.ID),
		Username:       raw.Username,
		Name:           raw.Name,
		Email:          raw.Email,
		Bio:            raw.Bio,
		ProfilePicture: raw.ProfilePicture,
		Followers:      followers,
		Following:      following,
	}
	return nil
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	return firstNonEmpty(u.Name, u.Username)
}

// Session is the authenticated identity plus bearer token.
//
// It is created on login, replaced on profile refresh and destroyed on
// logout. The embedded User keeps the follow lists the feed needs.
type Session struct {
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	Name           string `json:"name,omitempty"`
	Bio            string `json:"bio,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Token          string `json:"-"`
	User           User   `json:"user"`
}

// NewSession builds a Session from the user returned by the backend.
func NewSession(user User, token string) Session {
	return Session{
		UserID:         user.ID,
		Username:       user.Username,
		Name:           user.Name,
		Bio:            user.Bio,
		ProfilePicture: user.ProfilePicture,
		Token:          token,
		User:           user,
	}
}

// Valid reports whether the session can authenticate requests.
func (s Session) Valid() bool {
	return s.Token != "" && s.UserID != ""
}

// =============================================================================
// Posts
// =============================================================================

// Post is a feed entry. LikeCount, IsLiked and IsFollowing are viewer
// relative and come from the server; Likes is only present on endpoints
// that return the raw document.
type Post struct {
	ID          string    `json:"_id"`
	User        User      `json:"user"`
	Caption     string    `json:"caption"`
	Images      []string  `json:"images,omitempty"`
	Video       string    `json:"video,omitempty"`
	Likes       []string  `json:"likes,omitempty"`
	LikeCount   int       `json:"likeCount"`
	IsLiked     bool      `json:"isLiked"`
	IsFollowing bool      `json:"isFollowing,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Enrich derives LikeCount and IsLiked from the raw likes array. It is a
// no-op when the server did not send one.
func (p *Post) Enrich(viewerID string) {
	if p.Likes == nil {
		return
	}
	p.LikeCount = len(p.Likes)
	p.IsLiked = viewerID != "" && slices.Contains(p.Likes, viewerID)
}

// HasMedia reports whether the post carries images or a video.
func (p *Post) HasMedia() bool {
	return len(p.Images) > 0 || p.Video != ""
}

// PostRef is the compact post reference carried by notifications. The
// backend sends either a bare id or a populated object.
type PostRef struct {
	ID      string `json:"_id"`
	Caption string `json:"caption,omitempty"`
}

// UnmarshalJSON accepts a bare id string or an object.
func (r *PostRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*r = PostRef{ID: id}
		return nil
	}
	type plain PostRef
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = PostRef(obj)
	return nil
}

// =============================================================================
// Comments
// =============================================================================

// Comment is one node of a post's reply tree. ParentID is empty for
// top-level comments.
type Comment struct {
	ID        string    `json:"_id"`
	PostID    string    `json:"post"`
	User      User      `json:"user"`
	Text      string    `json:"text"`
	ParentID  string    `json:"parent,omitempty"`
	Likes     []string  `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}

// UnmarshalJSON accepts "parent" as null, an id string or a populated
// comment object, and "post" as an id string or populated object.
func (c *Comment) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string          `json:"_id"`
		Post      json.RawMessage `json:"post"`
		User      User            `json:"user"`
		Text      string          `json:"text"`
		Parent    json.RawMessage `json:"parent"`
		Likes     []string        `json:"likes"`
		CreatedAt time.Time       `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parentID, err := decodeRef(raw.Parent)
	if err != nil {
		return err
	}
	postID, err := decodeRef(raw.Post)
	if err != nil {
		return err
	}

	*c = Comment{
		ID:        raw.ID,
		PostID:    postID,
		User:      raw.User,
		Text:      raw.Text,
		ParentID:  parentID,
		Likes:     raw.Likes,
		CreatedAt: raw.CreatedAt,
	}
	return nil
}

// LikedBy reports whether userID is in the like set.
func (c *Comment) LikedBy(userID string) bool {
	return slices.Contains(c.Likes, userID)
}

// ToggleLike flips userID's membership in the like set.
func (c *Comment) ToggleLike(userID string) {
	if i := slices.Index(c.Likes, userID); i >= 0 {
		c.Likes = slices.Delete(slices.Clone(c.Likes), i, i+1)
		return
	}
	c.Likes = append(slices.Clone(c.Likes), userID)
}

// =============================================================================
// Envelopes
// =============================================================================

// FeedPage is the paginated feed envelope.
type FeedPage struct {
	Posts       []*Post `json:"posts"`
	TotalPages  int     `json:"totalPages"`
	CurrentPage int     `json:"currentPage"`
	HasMore     bool    `json:"hasMore"`
}

// LikeResult is returned by the post like toggle.
type LikeResult struct {
	IsLiked   bool `json:"isLiked"`
	LikeCount int  `json:"likeCount"`
}

// FollowResult is returned by the follow toggle. FollowersCount is only
// filled by some backend versions.
type FollowResult struct {
	IsFollowing    bool `json:"isFollowing"`
	FollowersCount int  `json:"followersCount"`
}

// AuthResult is the login/register response.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// UserProfile is the public profile payload.
type UserProfile struct {
	User        User    `json:"user"`
	Posts       []*Post `json:"posts"`
	IsFollowing bool    `json:"isFollowing"`
}

// =============================================================================
// Requests
// =============================================================================

// Credentials is the login payload.
type Credentials struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

// Registration is the sign-up payload.
type Registration struct {
	Name     string `json:"name" validate:"notblank,max=60"`
	Username string `json:"username" validate:"notblank,alphanum,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// ProfileUpdate is the profile edit payload.
type ProfileUpdate struct {
	Name string `json:"name" validate:"notblank,max=60"`
	Bio  string `json:"bio" validate:"max=280"`
}

// CommentDraft is the comment create payload. Parent is null for a
// top-level comment.
type CommentDraft struct {
	Text   string  `json:"text" validate:"notblank"`
	Parent *string `json:"parent"`
}

// =============================================================================
// Helpers
// =============================================================================

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// decodeRef reads a reference that may be absent, null, an id string or an
// object with "_id".
func decodeRef(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var obj struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	return obj.ID, nil
}

func decodeIDList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id, err := decodeRef(item)
		if err != nil {
			return nil, err
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
