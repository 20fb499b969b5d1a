// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tui implements the live notification panel of "socialite
// notifications watch".
//
// # Description
//
// The panel lists the notification Store newest first, marks entries read
// and pages further history. The realtime channel feeds it through
// Forward, which turns channel callbacks into bubbletea messages.
//
// # Thread Safety
//
// The model is used only inside the bubbletea event loop. Store reads are
// safe because the Store synchronizes itself.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/api"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/notify"
	"github.com/AleutianAI/socialite/pkg/ux"
)

// =============================================================================
// Messages
// =============================================================================

// PushMsg reports a notification delivered by the realtime channel. It has
// already been stored.
type PushMsg struct {
	Notification model.Notification
	IsNew        bool
}

// StateMsg reports a realtime connection state change.
type StateMsg struct {
	State notify.State
}

// doneMsg ends a request started from the panel.
type doneMsg struct {
	op  string
	err error
}

// Forward returns channel callbacks that deliver pushes and state changes
// through send, usually (*tea.Program).Send.
func Forward(send func(tea.Msg)) (onNotification func(model.Notification, bool), onState func(notify.State)) {
	onNotification = func(n model.Notification, isNew bool) {
		send(PushMsg{Notification: n, IsNew: isNew})
	}
	onState = func(s notify.State) {
		send(StateMsg{State: s})
	}
	return onNotification, onState
}

// =============================================================================
// Model
// =============================================================================

// Actions is the notification service as the panel uses it.
type Actions interface {
	Fetch(ctx context.Context, reset bool) error
	MarkAsRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Store() *notify.Store
}

const (
	headerHeight = 2
	footerHeight = 3
)

// NotificationsModel is the bubbletea model of the notification panel.
type NotificationsModel struct {
	ctx     context.Context
	actions Actions
	store   *notify.Store
	keys    KeyMap
	now     func() time.Time

	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model

	cursor     int
	selectedID string
	state      notify.State
	busy       string
	status     string
	failed     bool

	width    int
	height   int
	ready    bool
	quitting bool
}

// NewNotificationsModel creates the panel. Init loads the first page.
//
// # Inputs
//
//   - ctx: Bounds every request the panel issues.
//   - actions: Usually a *notify.Service.
func NewNotificationsModel(ctx context.Context, actions Actions) NotificationsModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ux.Styles.Highlight

	return NotificationsModel{
		ctx:     ctx,
		actions: actions,
		store:   actions.Store(),
		keys:    DefaultKeyMap,
		now:     time.Now,
		spinner: sp,
		help:    help.New(),
		state:   notify.Disconnected,
		busy:    "load",
	}
}

// WithClock fixes the reference time for relative timestamps.
func (m NotificationsModel) WithClock(now func() time.Time) NotificationsModel {
	m.now = now
	return m
}

// Init implements tea.Model.
func (m NotificationsModel) Init() tea.Cmd {
	return tea.Batch(m.request(m.busy, func(ctx context.Context) error {
		return m.actions.Fetch(ctx, true)
	}), m.spinner.Tick)
}

// Update implements tea.Model.
func (m NotificationsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := max(m.height-headerHeight-footerHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case PushMsg:
		if msg.IsNew {
			m.setStatus("new: "+msg.Notification.Summary(), false)
		}
		m.refresh()
		return m, nil

	case StateMsg:
		m.state = msg.State
		return m, nil

	case doneMsg:
		m.busy = ""
		switch {
		case msg.err == nil:
			m.setStatus("", false)
		case errors.Is(msg.err, notify.ErrBusy):
		default:
			m.setStatus(msg.op+" failed: "+api.MessageOf(msg.err), true)
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m NotificationsModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.move(-1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.move(1)
		return m, nil

	case key.Matches(msg, m.keys.MarkRead):
		n, ok := m.selected()
		if !ok || n.Read {
			return m, nil
		}
		id := n.ID
		return m.start("mark read", func(ctx context.Context) error {
			return m.actions.MarkAsRead(ctx, id)
		})

	case key.Matches(msg, m.keys.MarkAll):
		if m.store.UnreadCount() == 0 {
			m.setStatus("everything is read", false)
			return m, nil
		}
		return m.start("mark all read", m.actions.MarkAllRead)

	case key.Matches(msg, m.keys.More):
		if !m.store.HasMore() {
			m.setStatus("no more notifications", false)
			return m, nil
		}
		return m.start("load more", func(ctx context.Context) error {
			return m.actions.Fetch(ctx, false)
		})

	case key.Matches(msg, m.keys.Refresh):
		return m.start("refresh", func(ctx context.Context) error {
			return m.actions.Fetch(ctx, true)
		})
	}
	return m, nil
}

// start runs fn as a command unless another request is in flight. Optimistic
// changes made by fn show up when its doneMsg arrives.
func (m NotificationsModel) start(op string, fn func(ctx context.Context) error) (NotificationsModel, tea.Cmd) {
	if m.busy != "" {
		return m, nil
	}
	m.busy = op
	return m, tea.Batch(m.request(op, fn), m.spinner.Tick)
}

func (m NotificationsModel) request(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return doneMsg{op: op, err: fn(ctx)}
	}
}

func (m *NotificationsModel) setStatus(text string, failed bool) {
	m.status = text
	m.failed = failed
}

func (m NotificationsModel) selected() (model.Notification, bool) {
	list := m.store.List()
	if m.cursor < 0 || m.cursor >= len(list) {
		return model.Notification{}, false
	}
	return list[m.cursor], true
}

func (m *NotificationsModel) move(delta int) {
	list := m.store.List()
	if len(list) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(list)-1)
	m.selectedID = list[m.cursor].ID
	m.refresh()
}

// refresh keeps the cursor on the selected notification as pushes insert
// entries above it, then re-renders the viewport.
func (m *NotificationsModel) refresh() {
	list := m.store.List()
	m.cursor = min(m.cursor, max(len(list)-1, 0))
	if m.selectedID != "" {
		for i, n := range list {
			if n.ID == m.selectedID {
				m.cursor = i
				break
			}
		}
	}
	if len(list) > 0 {
		m.selectedID = list[m.cursor].ID
	}

	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderList(list))
	switch {
	case m.cursor < m.viewport.YOffset:
		m.viewport.SetYOffset(m.cursor)
	case m.cursor >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1)
	}
}

func (m NotificationsModel) renderList(list []model.Notification) string {
	if len(list) == 0 {
		return ux.Styles.Muted.Render("No notifications.")
	}
	now := m.now()
	lines := make([]string, len(list))
	for i, n := range list {
		marker := "  "
		if i == m.cursor {
			marker = ux.Styles.Highlight.Render("›") + " "
		}
		dot := " "
		if !n.Read {
			dot = ux.Styles.Liked.Render("●")
		}
		text := n.Summary()
		if !n.Read {
			text = ux.Styles.Bold.Render(text)
		}
		when := ""
		if !n.CreatedAt.IsZero() {
			when = humanize.RelTime(n.CreatedAt, now, "ago", "from now")
		}
		lines[i] = fmt.Sprintf("%s%s %s  %s", marker, dot, text, ux.Styles.Muted.Render(when))
	}
	return strings.Join(lines, "\n")
}

// View implements tea.Model.
func (m NotificationsModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return m.spinner.View() + " loading notifications…"
	}

	var b strings.Builder
	header := fmt.Sprintf("%s %s", ux.IconBell, ux.Styles.Title.Render(fmt.Sprintf("%d unread", m.store.UnreadCount())))
	header += ux.Styles.Muted.Render(" · " + m.state.String())
	if m.busy != "" {
		header += "  " + m.spinner.View() + " " + m.busy
	}
	b.WriteString(header)
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	switch {
	case m.status == "":
		b.WriteString("\n")
	case m.failed:
		b.WriteString(ux.Styles.Error.Render(m.status) + "\n")
	default:
		b.WriteString(ux.Styles.Muted.Render(m.status) + "\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
