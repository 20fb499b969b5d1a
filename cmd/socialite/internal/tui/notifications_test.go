// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tui

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/api"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/notify"
)

var panelNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeActions mimics notify.Service against an in-memory page.
type fakeActions struct {
	store *notify.Store
	page  model.NotificationPage

	mu         sync.Mutex
	fetches    []bool
	markedIDs  []string
	markAllErr error
}

func (f *fakeActions) Fetch(_ context.Context, reset bool) error {
	f.mu.Lock()
	f.fetches = append(f.fetches, reset)
	f.mu.Unlock()
	page := f.page
	f.store.ApplyPage(&page, reset)
	return nil
}

func (f *fakeActions) MarkAsRead(_ context.Context, id string) error {
	f.mu.Lock()
	f.markedIDs = append(f.markedIDs, id)
	f.mu.Unlock()
	f.store.SetRead(id, true)
	return nil
}

func (f *fakeActions) MarkAllRead(context.Context) error {
	restore := f.store.MarkAllRead()
	if f.markAllErr != nil {
		restore()
		return f.markAllErr
	}
	return nil
}

func (f *fakeActions) Store() *notify.Store { return f.store }

func notification(id, sender string, age time.Duration, read bool) model.Notification {
	return model.Notification{
		ID:        id,
		Type:      model.NotifyLikePost,
		Sender:    model.User{ID: "u-" + sender, Username: sender},
		Read:      read,
		CreatedAt: panelNow.Add(-age),
	}
}

func newFake() *fakeActions {
	return &fakeActions{
		store: notify.NewStore(notify.DefaultPageSize),
		page: model.NotificationPage{
			Notifications: []model.Notification{
				notification("n2", "bob", time.Minute, false),
				notification("n1", "cyd", time.Hour, true),
			},
			UnreadCount: 1,
		},
	}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd and returns the messages it produced, skipping spinner
// ticks.
func run(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	switch msg := msg.(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, run(t, c)...)
		}
		return out
	case spinner.TickMsg:
		return nil
	case nil:
		return nil
	default:
		return []tea.Msg{msg}
	}
}

func update(t *testing.T, m NotificationsModel, msg tea.Msg) (NotificationsModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(NotificationsModel)
	require.True(t, ok)
	return nm, cmd
}

// settle feeds every message of cmd back into the model.
func settle(t *testing.T, m NotificationsModel, cmd tea.Cmd) NotificationsModel {
	t.Helper()
	for _, msg := range run(t, cmd) {
		m, _ = update(t, m, msg)
	}
	return m
}

// loaded returns a sized panel after its initial fetch.
func loaded(t *testing.T, fake *fakeActions) NotificationsModel {
	t.Helper()
	m := NewNotificationsModel(context.Background(), fake).WithClock(func() time.Time { return panelNow })
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 20})
	return settle(t, m, m.Init())
}

func TestNotificationsModel_InitLoadsFirstPage(t *testing.T) {
	fake := newFake()
	m := NewNotificationsModel(context.Background(), fake)
	assert.Contains(t, m.View(), "loading notifications")

	m = loaded(t, fake)
	assert.Equal(t, []bool{true}, fake.fetches)

	view := m.View()
	assert.Contains(t, view, "1 unread")
	assert.Contains(t, view, "bob liked your post.")
	assert.Contains(t, view, "1 minute ago")
	assert.Contains(t, view, "cyd liked your post.")
	assert.Contains(t, view, "disconnected")
}

func TestNotificationsModel_MarkSelectedRead(t *testing.T) {
	fake := newFake()
	m := loaded(t, fake)

	m, cmd := update(t, m, keyPress("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, "mark read", m.busy)
	m = settle(t, m, cmd)
	assert.Empty(t, m.busy)

	assert.Equal(t, []string{"n2"}, fake.markedIDs)
	assert.Contains(t, m.View(), "0 unread")
}

func TestNotificationsModel_MarkReadSkipsReadEntry(t *testing.T) {
	fake := newFake()
	m := loaded(t, fake)

	m, _ = update(t, m, keyPress("j"))
	_, cmd := update(t, m, keyPress("r"))
	assert.Nil(t, cmd)
	assert.Empty(t, fake.markedIDs)
}

func TestNotificationsModel_OneRequestAtATime(t *testing.T) {
	fake := newFake()
	m := loaded(t, fake)

	m, first := update(t, m, keyPress("a"))
	require.NotNil(t, first)
	_, second := update(t, m, keyPress("R"))
	assert.Nil(t, second)
}

func TestNotificationsModel_FailureShowsServerMessage(t *testing.T) {
	fake := newFake()
	fake.markAllErr = &api.Error{StatusCode: http.StatusInternalServerError, Message: "server exploded"}
	m := loaded(t, fake)

	m, cmd := update(t, m, keyPress("a"))
	m = settle(t, m, cmd)

	view := m.View()
	assert.Contains(t, view, "mark all read failed: server exploded")
	assert.Contains(t, view, "1 unread", "optimistic change reverted")
}

func TestNotificationsModel_MarkAllWhenNothingUnread(t *testing.T) {
	fake := newFake()
	fake.page.Notifications[0].Read = true
	fake.page.UnreadCount = 0
	m := loaded(t, fake)

	m, cmd := update(t, m, keyPress("a"))
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "everything is read")
}

func TestNotificationsModel_PushKeepsSelection(t *testing.T) {
	fake := newFake()
	m := loaded(t, fake)
	m, _ = update(t, m, keyPress("j"))

	pushed := notification("n3", "dee", 0, false)
	require.True(t, fake.store.Push(pushed))
	m, _ = update(t, m, PushMsg{Notification: pushed, IsNew: true})

	sel, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, "n1", sel.ID)
	assert.Equal(t, 2, m.cursor)
	assert.Contains(t, m.View(), "new: dee liked your post.")
	assert.Contains(t, m.View(), "2 unread")
}

func TestNotificationsModel_LoadMore(t *testing.T) {
	fake := newFake()
	m := loaded(t, fake)

	m, cmd := update(t, m, keyPress("m"))
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "no more notifications")

	full := make([]model.Notification, notify.DefaultPageSize)
	for i := range full {
		full[i] = notification(string(rune('a'+i)), "bob", time.Duration(i)*time.Minute, true)
	}
	fake.page = model.NotificationPage{Notifications: full}
	m, cmd = update(t, m, keyPress("R"))
	m = settle(t, m, cmd)
	require.True(t, fake.store.HasMore())

	_, cmd = update(t, m, keyPress("m"))
	settle(t, m, cmd)
	assert.Equal(t, []bool{true, true, false}, fake.fetches)
}

func TestNotificationsModel_StateAndQuit(t *testing.T) {
	m := loaded(t, newFake())

	m, _ = update(t, m, StateMsg{State: notify.Connected})
	assert.Contains(t, m.View(), "connected")
	assert.NotContains(t, m.View(), "disconnected")

	m, _ = update(t, m, keyPress("?"))
	assert.True(t, m.help.ShowAll)

	m, cmd := update(t, m, keyPress("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestForward(t *testing.T) {
	var got []tea.Msg
	onNotification, onState := Forward(func(msg tea.Msg) { got = append(got, msg) })

	n := notification("n1", "bob", 0, false)
	onNotification(n, true)
	onState(notify.Connecting)

	assert.Equal(t, []tea.Msg{PushMsg{Notification: n, IsNew: true}, StateMsg{State: notify.Connecting}}, got)
}
