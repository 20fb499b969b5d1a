// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/api"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/socketio"
)

// =============================================================================
// State
// =============================================================================

// State is the channel's connection state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var (
	// ErrAlreadyOpen is returned by Open on a channel that is not
	// Disconnected.
	ErrAlreadyOpen = errors.New("realtime channel already open")

	// ErrServerClosed is returned by the reader when the server ends the
	// session with an Engine.IO close or a Socket.IO disconnect.
	ErrServerClosed = errors.New("realtime session closed by server")
)

// RealtimeURL turns an API base URL into the realtime base URL: http
// becomes ws and https becomes wss. ws and wss URLs are returned unchanged
// apart from a trailing slash.
func RealtimeURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse realtime url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("realtime url %q: scheme must be http(s) or ws(s)", base)
	}
	if u.Host == "" {
		return "", fmt.Errorf("realtime url %q: missing host", base)
	}
	return strings.TrimSuffix(u.String(), "/"), nil
}

// =============================================================================
// Channel
// =============================================================================

// ChannelConfig configures a Channel.
type ChannelConfig struct {
	// URL is the backend base URL, http(s) or ws(s).
	URL string

	// UserID tags the connection; Token authenticates it.
	UserID string
	Token  string

	// Reconnect re-dials with exponential backoff after the connection
	// drops. Off by default.
	Reconnect      bool
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// HandshakeTimeout bounds each dial. Default 10s.
	HandshakeTimeout time.Duration

	Logger  *slog.Logger
	Metrics *Metrics

	// OnNotification runs on the reader goroutine after each pushed
	// notification is stored. isNew is false for an id already held.
	OnNotification func(n model.Notification, isNew bool)

	// OnState runs on every state change.
	OnState func(State)
}

// Channel is the realtime connection of one logged-in user.
//
// # Description
//
// The backend speaks Socket.IO. Open dials
// <url>/socket.io/?EIO=4&transport=websocket&userId=<id>, waits for the
// Engine.IO handshake, and joins the default namespace with {"token":...}
// as auth. A refused join surfaces as an unauthorized *api.Error. Server
// pings are answered with pongs, and a connection that stays silent longer
// than the advertised ping interval plus timeout is treated as lost.
//
// Each "notification:new" event is pushed into the Store; other events are
// ignored. When the connection drops the channel either reconnects
// (Reconnect) or becomes Disconnected and may be opened again.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Close is idempotent.
type Channel struct {
	cfg    ChannelConfig
	base   string
	store  *Store
	dialer *websocket.Dialer
	logger *slog.Logger

	mu     sync.Mutex
	state  State
	conn   *socket
	cancel context.CancelFunc
	done   chan struct{}
}

// socket is one joined Socket.IO session.
type socket struct {
	ws          *websocket.Conn
	readTimeout time.Duration

	wmu sync.Mutex
}

func (s *socket) write(frame []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return s.ws.WriteMessage(websocket.TextMessage, frame)
}

// close leaves the namespace and closes the websocket.
func (s *socket) close() error {
	_ = s.write(socketio.EncodeDisconnect())
	_ = s.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return s.ws.Close()
}

// NewChannel validates cfg and returns a Disconnected channel writing into
// store.
func NewChannel(store *Store, cfg ChannelConfig) (*Channel, error) {
	base, err := RealtimeURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.UserID == "" || cfg.Token == "" {
		return nil, errors.New("realtime channel needs a user id and token")
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = backoff.DefaultInitialInterval
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Channel{
		cfg:    cfg,
		base:   base,
		store:  store,
		dialer: &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: cfg.HandshakeTimeout},
		logger: logger.With("component", "realtime", "user_id", cfg.UserID),
	}, nil
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed when the reader of the current connection has stopped.
// Before the first Open it is already closed.
func (c *Channel) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.done
}

// Open connects and starts the reader.
//
// # Inputs
//
//   - ctx: Bounds the dial only. The reader runs until Close or until the
//     connection drops for good.
//
// # Outputs
//
//   - error: ErrAlreadyOpen, an *api.Error for a rejected handshake, or the
//     dial error. The channel is Disconnected after an error.
func (c *Channel) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return ErrAlreadyOpen
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	c.state, c.cancel, c.done = Connecting, cancel, done
	c.mu.Unlock()
	c.setState(Connecting)

	dialCtx, dialCancel := context.WithCancel(ctx)
	stop := context.AfterFunc(runCtx, dialCancel)
	conn, err := c.dial(dialCtx)
	stop()
	dialCancel()

	if err != nil {
		cancel()
		c.finish(done)
		return err
	}

	if !c.attach(runCtx, conn) {
		cancel()
		c.finish(done)
		return context.Canceled
	}
	c.logger.Info("realtime connected")
	go c.run(runCtx, cancel, conn, done)
	return nil
}

// Close stops the reader and closes the connection. It waits for the
// reader to exit and is a no-op on a closed channel.
func (c *Channel) Close() error {
	c.mu.Lock()
	cancel, done, conn := c.cancel, c.done, c.conn
	c.cancel = nil
	if cancel != nil {
		cancel()
	}
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}

	if conn != nil {
		_ = conn.close()
	}
	<-done
	c.logger.Info("realtime closed")
	return nil
}

func (c *Channel) run(ctx context.Context, cancel context.CancelFunc, conn *socket, done chan struct{}) {
	defer cancel()
	defer c.finish(done)

	for {
		err := c.readLoop(conn)
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("realtime connection lost", "error", err)
		if !c.cfg.Reconnect {
			return
		}

		c.setState(Connecting)
		next, err := c.reconnect(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Error("realtime reconnect abandoned", "error", err)
			}
			return
		}
		if !c.attach(ctx, next) {
			return
		}
		c.cfg.Metrics.Reconnects.Inc()
		c.logger.Info("realtime reconnected")
		conn = next
	}
}

// finish marks the channel Disconnected and releases Close.
func (c *Channel) finish(done chan struct{}) {
	c.mu.Lock()
	if c.done == done {
		c.cancel = nil
	}
	c.mu.Unlock()
	c.setState(Disconnected)
	close(done)
}

// attach installs conn as the live connection unless ctx was cancelled by
// Close, in which case conn is closed and attach reports false. Close
// cancels under c.mu, so a connection attached here is always seen by it.
func (c *Channel) attach(ctx context.Context, conn *socket) bool {
	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		_ = conn.close()
		return false
	}
	c.state, c.conn = Connected, conn
	c.mu.Unlock()

	c.cfg.Metrics.Connected.Set(1)
	if c.cfg.OnState != nil {
		c.cfg.OnState(Connected)
	}
	return true
}

// setState moves to a state without a live connection, closing the old one.
func (c *Channel) setState(state State) {
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.ws.Close()
	}
	c.state, c.conn = state, nil
	c.mu.Unlock()

	c.cfg.Metrics.Connected.Set(0)
	if c.cfg.OnState != nil {
		c.cfg.OnState(state)
	}
}

func (c *Channel) dial(ctx context.Context) (*socket, error) {
	target := socketio.DialURL(c.base, url.Values{"userId": {c.cfg.UserID}})

	ws, resp, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, &api.Error{
				StatusCode: resp.StatusCode,
				Message:    http.StatusText(resp.StatusCode),
				Method:     http.MethodGet,
				Path:       socketio.Path,
				Wrapped:    err,
			}
		}
		return nil, &api.Error{Method: http.MethodGet, Path: socketio.Path, Wrapped: err}
	}

	deadline := time.Now().Add(c.cfg.HandshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	stop := context.AfterFunc(ctx, func() { _ = ws.SetReadDeadline(time.Now()) })
	defer stop()

	conn, err := c.handshake(ws, deadline)
	if err != nil {
		_ = ws.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return conn, nil
}

// handshake reads the Engine.IO open packet, joins the default namespace
// with the token and waits for the server's verdict.
func (c *Channel) handshake(ws *websocket.Conn, deadline time.Time) (*socket, error) {
	_ = ws.SetReadDeadline(deadline)

	f, err := readFrame(ws)
	if err != nil {
		return nil, &api.Error{Method: http.MethodGet, Path: socketio.Path, Wrapped: fmt.Errorf("engine.io handshake: %w", err)}
	}
	if f.Type != socketio.EngineOpen {
		return nil, &api.Error{Method: http.MethodGet, Path: socketio.Path, Wrapped: fmt.Errorf("engine.io handshake: unexpected packet %q before open", byte(f.Type))}
	}
	var hs socketio.Handshake
	if err := json.Unmarshal(f.Data, &hs); err != nil {
		return nil, &api.Error{Method: http.MethodGet, Path: socketio.Path, Wrapped: fmt.Errorf("engine.io handshake: %w", err)}
	}
	conn := &socket{ws: ws, readTimeout: hs.ReadTimeout()}

	join, err := socketio.EncodeConnect(map[string]string{"token": c.cfg.Token})
	if err != nil {
		return nil, err
	}
	if err := conn.write(join); err != nil {
		return nil, &api.Error{Method: http.MethodGet, Path: socketio.Path, Wrapped: err}
	}

	for {
		f, err := readFrame(ws)
		if err != nil {
			return nil, &api.Error{Method: http.MethodGet, Path: socketio.Path, Wrapped: fmt.Errorf("socket.io connect: %w", err)}
		}
		switch {
		case f.Type == socketio.EnginePing:
			if err := conn.write(socketio.Pong); err != nil {
				return nil, &api.Error{Method: http.MethodGet, Path: socketio.Path, Wrapped: err}
			}
		case f.Type == socketio.EngineClose:
			return nil, &api.Error{Method: http.MethodGet, Path: socketio.Path, Wrapped: ErrServerClosed}
		case f.Packet == nil || f.Packet.Namespace != socketio.DefaultNamespace:
		case f.Packet.Type == socketio.Connect:
			_ = ws.SetReadDeadline(time.Time{})
			c.logger.Debug("socket.io session joined", "sid", hs.SID, "ping_interval_ms", hs.PingInterval)
			return conn, nil
		case f.Packet.Type == socketio.ConnectError:
			return nil, &api.Error{
				StatusCode: http.StatusUnauthorized,
				Message:    f.Packet.ErrorMessage(),
				Method:     http.MethodGet,
				Path:       socketio.Path,
			}
		}
	}
}

func readFrame(ws *websocket.Conn) (socketio.Frame, error) {
	_, data, err := ws.ReadMessage()
	if err != nil {
		return socketio.Frame{}, err
	}
	return socketio.Decode(data)
}

// reconnect dials until it succeeds, the token is rejected or ctx ends.
func (c *Channel) reconnect(ctx context.Context) (*socket, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.InitialBackoff
	policy.MaxInterval = c.cfg.MaxBackoff

	return backoff.Retry(ctx, func() (*socket, error) {
		conn, err := c.dial(ctx)
		if err != nil && api.IsUnauthorized(err) {
			return nil, backoff.Permanent(err)
		}
		return conn, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debug("realtime redial failed", "error", err, "retry_in", next)
		}),
	)
}

// =============================================================================
// Frames
// =============================================================================

func (c *Channel) readLoop(conn *socket) error {
	for {
		if conn.readTimeout > 0 {
			_ = conn.ws.SetReadDeadline(time.Now().Add(conn.readTimeout))
		}
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			return err
		}

		f, err := socketio.Decode(data)
		if err != nil {
			c.cfg.Metrics.Events.WithLabelValues("malformed").Inc()
			c.logger.Warn("malformed realtime frame", "error", err)
			continue
		}
		switch f.Type {
		case socketio.EnginePing:
			if err := conn.write(socketio.Pong); err != nil {
				return fmt.Errorf("send pong: %w", err)
			}
		case socketio.EngineClose:
			return ErrServerClosed
		case socketio.EngineMessage:
			if f.Packet.Namespace != socketio.DefaultNamespace {
				continue
			}
			switch f.Packet.Type {
			case socketio.Disconnect:
				return ErrServerClosed
			case socketio.Event:
				c.handleEvent(*f.Packet)
			default:
				c.cfg.Metrics.Events.WithLabelValues("other").Inc()
			}
		}
	}
}

func (c *Channel) handleEvent(p socketio.Packet) {
	event, args, err := p.Event()
	if err != nil {
		c.cfg.Metrics.Events.WithLabelValues("malformed").Inc()
		c.logger.Warn("malformed realtime event", "error", err)
		return
	}

	if event != model.EventNotificationNew {
		c.cfg.Metrics.Events.WithLabelValues("other").Inc()
		c.logger.Debug("ignoring realtime event", "event", event)
		return
	}

	var n model.Notification
	if len(args) > 0 {
		err = json.Unmarshal(args[0], &n)
	}
	if err != nil || n.ID == "" {
		c.cfg.Metrics.Events.WithLabelValues("malformed").Inc()
		c.logger.Warn("malformed notification event", "error", err)
		return
	}

	isNew := c.store.Push(n)
	c.cfg.Metrics.Events.WithLabelValues(event).Inc()
	c.logger.Debug("notification pushed", "notification_id", n.ID, "type", n.Type, "new", isNew)
	if c.cfg.OnNotification != nil {
		c.cfg.OnNotification(n, isNew)
	}
}
