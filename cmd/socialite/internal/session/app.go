// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session owns the authenticated identity: the bearer token, the
// current user and their durable copies in a Store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/pkg/validation"
)

// ErrNotLoggedIn is returned by operations that need a token.
var ErrNotLoggedIn = errors.New("not logged in")

// Backend is the subset of the API client the session needs.
type Backend interface {
	Login(ctx context.Context, creds model.Credentials) (*model.AuthResult, error)
	Register(ctx context.Context, reg model.Registration) (*model.AuthResult, error)
	Me(ctx context.Context) (*model.User, error)
}

// App is the application context: one per process, passed explicitly to the
// components that need the viewer's identity.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Network calls run without the
// lock held.
type App struct {
	store   Store
	backend Backend
	logger  *slog.Logger

	mu       sync.RWMutex
	session  model.Session
	onLogout []func()
}

// NewApp creates an App over store. Call Bind before any network method.
func NewApp(store Store, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{store: store, logger: logger}
}

// Bind sets the backend. The API client usually takes the App as its
// TokenSource, so the two are wired after construction.
func (a *App) Bind(backend Backend) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.backend = backend
}

func (a *App) getBackend() (Backend, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.backend == nil {
		return nil, errors.New("session: no backend bound")
	}
	return a.backend, nil
}

// Token returns the bearer token, empty when logged out.
func (a *App) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session.Token
}

// Session returns a copy of the current session.
func (a *App) Session() model.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// LoggedIn reports whether a token is held.
func (a *App) LoggedIn() bool {
	return a.Token() != ""
}

// OnLogout registers fn to run after Logout clears the session, e.g. to
// close the realtime channel.
func (a *App) OnLogout(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onLogout = append(a.onLogout, fn)
}

// Restore loads the persisted token and user. It reports whether a token
// was found. A token without a stored user (right after Register) restores
// a session whose user must be fetched with Refresh.
func (a *App) Restore(ctx context.Context) (bool, error) {
	token, err := a.store.Get(ctx, KeyToken)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("restore token: %w", err)
	}

	var user model.User
	raw, err := a.store.Get(ctx, KeyUser)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return false, fmt.Errorf("restore user: %w", err)
	default:
		if err := json.Unmarshal(raw, &user); err != nil {
			a.logger.Warn("discarding unreadable stored user", "error", err)
			user = model.User{}
		}
	}

	a.mu.Lock()
	a.session = model.NewSession(user, string(token))
	a.mu.Unlock()

	a.logger.Debug("session restored", "user_id", user.ID, "has_user", user.ID != "")
	return true, nil
}

// Login validates creds, authenticates and persists token and user.
//
// # Outputs
//
//   - model.Session: The new session.
//   - error: *validation.Error for bad input (no request is made), otherwise
//     the backend error unchanged.
func (a *App) Login(ctx context.Context, creds model.Credentials) (model.Session, error) {
	if err := validation.Struct(creds); err != nil {
		return model.Session{}, err
	}
	backend, err := a.getBackend()
	if err != nil {
		return model.Session{}, err
	}

	res, err := backend.Login(ctx, creds)
	if err != nil {
		return model.Session{}, err
	}
	if res.Token == "" {
		return model.Session{}, errors.New("login response carried no token")
	}

	if err := a.store.Set(ctx, KeyToken, []byte(res.Token)); err != nil {
		return model.Session{}, err
	}
	if err := a.persistUser(ctx, res.User); err != nil {
		return model.Session{}, err
	}

	s := model.NewSession(res.User, res.Token)
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()

	a.logger.Info("logged in", "user_id", s.UserID, "username", s.Username)
	return s, nil
}

// Register creates an account and persists the returned token only. The
// user document is fetched later by Refresh.
func (a *App) Register(ctx context.Context, reg model.Registration) error {
	if err := validation.Struct(reg); err != nil {
		return err
	}
	backend, err := a.getBackend()
	if err != nil {
		return err
	}

	res, err := backend.Register(ctx, reg)
	if err != nil {
		return err
	}
	if res.Token == "" {
		return nil
	}

	if err := a.store.Set(ctx, KeyToken, []byte(res.Token)); err != nil {
		return err
	}
	a.mu.Lock()
	a.session = model.Session{Token: res.Token}
	a.mu.Unlock()

	a.logger.Info("registered", "username", reg.Username)
	return nil
}

// Refresh re-fetches the current user and replaces the stored copy.
func (a *App) Refresh(ctx context.Context) (model.Session, error) {
	token := a.Token()
	if token == "" {
		return model.Session{}, ErrNotLoggedIn
	}
	backend, err := a.getBackend()
	if err != nil {
		return model.Session{}, err
	}

	user, err := backend.Me(ctx)
	if err != nil {
		return model.Session{}, err
	}
	if err := a.persistUser(ctx, *user); err != nil {
		return model.Session{}, err
	}

	s := model.NewSession(*user, token)
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()
	return s, nil
}

// Require restores the session if needed and makes sure the user document
// is present, fetching it when only a token is stored.
func (a *App) Require(ctx context.Context) (model.Session, error) {
	if !a.LoggedIn() {
		ok, err := a.Restore(ctx)
		if err != nil {
			return model.Session{}, err
		}
		if !ok {
			return model.Session{}, ErrNotLoggedIn
		}
	}
	if s := a.Session(); s.Valid() {
		return s, nil
	}
	return a.Refresh(ctx)
}

// Logout forgets the session locally and in the store, then runs the
// OnLogout hooks. The backend is not called.
func (a *App) Logout(ctx context.Context) error {
	err := a.store.Delete(ctx, KeyToken, KeyUser)

	a.mu.Lock()
	a.session = model.Session{}
	hooks := append([]func(){}, a.onLogout...)
	a.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
	if err != nil {
		return fmt.Errorf("clear stored session: %w", err)
	}
	a.logger.Info("logged out")
	return nil
}

// Close closes the underlying store.
func (a *App) Close() error {
	return a.store.Close()
}

func (a *App) persistUser(ctx context.Context, user model.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return a.store.Set(ctx, KeyUser, raw)
}
