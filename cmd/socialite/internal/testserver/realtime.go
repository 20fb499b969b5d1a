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
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/socketio"
)

// handleSocket serves one Socket.IO session over the websocket transport.
// The client names its user in ?userId= and proves it with {"token":...} in
// the namespace join; a mismatch is refused with a connect error.
func (s *Server) handleSocket(c *gin.Context) {
	if c.Query("EIO") != socketio.Protocol || c.Query("transport") != "websocket" {
		c.JSON(http.StatusBadRequest, gin.H{"code": 0, "message": "Transport unknown"})
		return
	}
	userID := c.Query("userId")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	sub := &subscriber{conn: conn}
	defer conn.Close()

	s.mu.Lock()
	interval, timeout := s.pingInterval, s.pingTimeout
	s.mu.Unlock()

	open, err := socketio.EncodeOpen(socketio.Handshake{
		SID:          uuid.NewString(),
		Upgrades:     []string{},
		PingInterval: int(interval / time.Millisecond),
		PingTimeout:  int(timeout / time.Millisecond),
		MaxPayload:   1_000_000,
	})
	if err != nil || sub.send(open) != nil {
		return
	}

	if !s.joinNamespace(sub, userID) {
		return
	}

	s.mu.Lock()
	s.subscribers[userID] = append(s.subscribers[userID], sub)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		subs := s.subscribers[userID]
		for i, other := range subs {
			if other == sub {
				s.subscribers[userID] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		f, err := socketio.Decode(data)
		if err != nil {
			continue
		}
		switch {
		case f.Type == socketio.EnginePong:
			s.mu.Lock()
			s.pongs[userID]++
			s.mu.Unlock()
		case f.Type == socketio.EngineClose:
			return
		case f.Packet != nil && f.Packet.Type == socketio.Disconnect:
			return
		}
	}
}

// joinNamespace waits for the client's Connect packet and answers it.
func (s *Server) joinNamespace(sub *subscriber, userID string) bool {
	_ = sub.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer sub.conn.SetReadDeadline(time.Time{})

	_, data, err := sub.conn.ReadMessage()
	if err != nil {
		return false
	}
	f, err := socketio.Decode(data)
	if err != nil || f.Packet == nil || f.Packet.Type != socketio.Connect {
		return false
	}

	var auth struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(f.Packet.Data, &auth)

	s.mu.Lock()
	owner, ok := s.tokens[auth.Token]
	s.mu.Unlock()
	if !ok || owner != userID {
		if refused, err := socketio.EncodeConnectError("Unauthorized"); err == nil {
			_ = sub.send(refused)
		}
		return false
	}

	joined, err := socketio.EncodeConnect(map[string]string{"sid": uuid.NewString()})
	if err != nil {
		return false
	}
	return sub.send(joined) == nil
}

func (s *Server) broadcastLocked(userID string, frame []byte) {
	for _, sub := range s.subscribers[userID] {
		_ = sub.send(frame)
	}
}

// Subscribers returns the number of joined realtime sessions for userID.
func (s *Server) Subscribers(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers[userID])
}

// WaitForSubscribers polls until userID has n joined sessions or the
// timeout passes.
func (s *Server) WaitForSubscribers(userID string, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.Subscribers(userID) == n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return s.Subscribers(userID) == n
}

// SetPingTiming changes the heartbeat advertised to sessions opened later.
// The server never pings on its own; use Ping.
func (s *Server) SetPingTiming(interval, timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingInterval, s.pingTimeout = interval, timeout
}

// Ping sends an Engine.IO ping to userID's sessions.
func (s *Server) Ping(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(userID, socketio.Ping)
}

// Pongs counts the pongs received from userID's sessions.
func (s *Server) Pongs(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pongs[userID]
}

// Disconnect ends userID's sessions with a Socket.IO disconnect packet.
func (s *Server) Disconnect(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(userID, socketio.EncodeDisconnect())
}

// DropConnections closes every realtime connection from the server side.
func (s *Server) DropConnections() {
	s.mu.Lock()
	var subs []*subscriber
	for _, list := range s.subscribers {
		subs = append(subs, list...)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		_ = sub.conn.Close()
		sub.mu.Unlock()
	}
}
