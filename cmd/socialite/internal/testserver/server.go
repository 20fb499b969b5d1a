// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package testserver is an in-memory emulation of the social backend for
// tests: a gin router serving the REST API and a Socket.IO endpoint over
// gorilla/websocket, run under httptest.
//
// # Overview
//
// State lives in maps guarded by one mutex. Seed it with AddUser, AddPost,
// AddComment and friends, then point an api.Client at URL. Failure and
// latency injection (Fail, Hold) target gin route patterns such as
// "POST /api/posts/:id/like".
package testserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/socketio"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type account struct {
	user     model.User
	password string
}

type storedPost struct {
	post  model.Post
	order int
}

type hold struct {
	arrived chan struct{}
	release chan struct{}
}

// Server is the fake backend.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	seq           int
	base          time.Time
	users         map[string]*account
	byName        map[string]string
	tokens        map[string]string
	posts         map[string]*storedPost
	comments      []*model.Comment
	notifications map[string][]*model.Notification
	subscribers   map[string][]*subscriber
	pongs         map[string]int
	pingInterval  time.Duration
	pingTimeout   time.Duration
	failures      map[string][]int
	holds         map[string]*hold
	requests      []string
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(time.Second))
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// New starts a Server and stops it when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		base:          time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		users:         make(map[string]*account),
		byName:        make(map[string]string),
		tokens:        make(map[string]string),
		posts:         make(map[string]*storedPost),
		notifications: make(map[string][]*model.Notification),
		subscribers:   make(map[string][]*subscriber),
		pongs:         make(map[string]int),
		pingInterval:  25 * time.Second,
		pingTimeout:   20 * time.Second,
		failures:      make(map[string][]int),
		holds:         make(map[string]*hold),
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

// Close drops realtime connections and stops the server.
func (s *Server) Close() {
	s.DropConnections()
	s.Server.Close()
}

// WebSocketURL is the realtime base URL ("ws://..."). Socket.IO clients
// connect under /socket.io/.
func (s *Server) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware("socialite-testserver"), s.recordRequests(), s.injectFaults())

	r.GET(socketio.Path, s.handleSocket)

	auth := r.Group("/api/auth")
	auth.POST("/login", s.handleLogin)
	auth.POST("/register", s.handleRegister)

	api := r.Group("/api", s.requireAuth())

	users := api.Group("/users")
	users.GET("/me", s.handleMe)
	users.GET("/followers", s.handleFollowers)
	users.GET("/following", s.handleFollowing)
	users.GET("/getHomeFollowers", s.handleSuggestions)
	users.PUT("/update", s.handleUpdateProfile)
	users.PUT("/upload-profile-picture", s.handleUploadPicture)
	users.POST("/follow/:id", s.handleFollow)
	users.GET("/user/:username", s.handleUserProfile)

	posts := api.Group("/posts")
	posts.GET("/feed", s.handleFeed)
	posts.GET("/", s.handleMyPosts)
	posts.POST("/", s.handleCreatePost)
	posts.GET("/:id", s.handleGetPost)
	posts.PUT("/:id", s.handleEditPost)
	posts.PATCH("/:id", s.handleEditPost)
	posts.DELETE("/:id", s.handleDeletePost)
	posts.POST("/:id/like", s.handleLikePost)

	comments := api.Group("/comments")
	comments.GET("/:id", s.handleListComments)
	comments.POST("/:id", s.handleAddComment)
	comments.PUT("/:id", s.handleEditComment)
	comments.DELETE("/:id", s.handleDeleteComment)
	comments.POST("/like/:id", s.handleLikeComment)

	notifications := api.Group("/notifications")
	notifications.GET("", s.handleListNotifications)
	notifications.PATCH("/read-all", s.handleReadAll)
	notifications.PATCH("/:id/read", s.handleRead)

	return r
}

// =============================================================================
// Middleware
// =============================================================================

func (s *Server) recordRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.requests = append(s.requests, c.Request.Method+" "+c.Request.URL.Path)
		s.mu.Unlock()
		c.Next()
	}
}

func (s *Server) injectFaults() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.Request.Method + " " + c.FullPath()

		s.mu.Lock()
		h := s.holds[route]
		delete(s.holds, route)
		var status int
		if queued := s.failures[route]; len(queued) > 0 {
			status = queued[0]
			s.failures[route] = queued[1:]
		}
		s.mu.Unlock()

		if h != nil {
			close(h.arrived)
			<-h.release
		}
		if status != 0 {
			c.AbortWithStatusJSON(status, gin.H{"message": "injected failure"})
			return
		}
		c.Next()
	}
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		s.mu.Lock()
		userID, ok := s.tokens[token]
		s.mu.Unlock()
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}

func viewer(c *gin.Context) string {
	return c.GetString("userID")
}

// =============================================================================
// Test controls
// =============================================================================

// Fail makes the next request matching route ("METHOD /gin/pattern") answer
// with status. Calls queue.
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], status)
}

// Hold blocks the next request matching route until release is called.
// arrived is closed once that request reaches the server.
func (s *Server) Hold(route string) (arrived <-chan struct{}, release func()) {
	h := &hold{arrived: make(chan struct{}), release: make(chan struct{})}
	s.mu.Lock()
	s.holds[route] = h
	s.mu.Unlock()

	var once sync.Once
	return h.arrived, func() { once.Do(func() { close(h.release) }) }
}

// Requests returns "METHOD /path" for every request received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// CountRequests counts received requests whose "METHOD /path" has prefix.
func (s *Server) CountRequests(prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

// =============================================================================
// Helpers
// =============================================================================

// nextID returns prefix plus a sequence number and advances the clock used
// for createdAt so newer entities always sort first.
func (s *Server) nextID(prefix string) (string, time.Time) {
	s.seq++
	return fmt.Sprintf("%s%d", prefix, s.seq), s.base.Add(time.Duration(s.seq) * time.Minute)
}

func userDoc(u model.User) gin.H {
	return gin.H{
		"_id":            u.ID,
		"username":       u.Username,
		"name":           u.Name,
		"email":          u.Email,
		"bio":            u.Bio,
		"profilePicture": u.ProfilePicture,
		"followers":      nonNil(u.Followers),
		"following":      nonNil(u.Following),
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func remove(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"message": what + " not found"})
}
