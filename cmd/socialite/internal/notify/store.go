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
	"sort"
	"sync"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
)

// DefaultPageSize is the number of notifications requested per page.
const DefaultPageSize = 20

type entry struct {
	n   model.Notification
	seq uint64
}

// Store is the normalized notification state.
type Store struct {
	mu       sync.Mutex
	byID     map[string]*entry
	seq      uint64
	unread   int
	hasMore  bool
	pageSize int
}

// NewStore creates an empty Store. pageSize <= 0 means DefaultPageSize.
func NewStore(pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Store{byID: make(map[string]*entry), pageSize: pageSize}
}

// PageSize returns the fetch page size.
func (s *Store) PageSize() int {
	return s.pageSize
}

// Push upserts a realtime notification and reports whether its id was new.
// A new unread notification increments the unread count; a known id is
// merged without counting it again.
func (s *Store) Push(n model.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(n)
}

// ApplyPage merges a fetched page.
//
// # Description
//
// With reset the map is replaced by the page. Otherwise the page is upserted
// after the existing entries. In both cases the unread count is taken from
// the server, which counts every stored notification including pages not
// yet fetched. HasMore becomes true when the page was full.
func (s *Store) ApplyPage(page *model.NotificationPage, reset bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reset {
		s.byID = make(map[string]*entry, len(page.Notifications))
	}
	for _, n := range page.Notifications {
		s.upsertLocked(n)
	}
	s.unread = page.UnreadCount
	s.hasMore = len(page.Notifications) == s.pageSize
}

func (s *Store) upsertLocked(n model.Notification) bool {
	if e, ok := s.byID[n.ID]; ok {
		if e.n.Read != n.Read {
			if n.Read {
				s.unread--
			} else {
				s.unread++
			}
		}
		e.n = n
		return false
	}
	s.seq++
	s.byID[n.ID] = &entry{n: n, seq: s.seq}
	if !n.Read {
		s.unread++
	}
	return true
}

// List returns the notifications sorted by CreatedAt, newest first. Equal
// timestamps keep first-seen order.
func (s *Store) List() []model.Notification {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.byID))
	for _, e := range s.byID {
		entries = append(entries, e)
	}
	out := make([]model.Notification, len(entries))
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.n.CreatedAt.Equal(b.n.CreatedAt) {
			return a.n.CreatedAt.After(b.n.CreatedAt)
		}
		return a.seq < b.seq
	})
	for i, e := range entries {
		out[i] = e.n
	}
	s.mu.Unlock()
	return out
}

// Get returns the notification with id.
func (s *Store) Get(id string) (model.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return model.Notification{}, false
	}
	return e.n, true
}

// Len returns the number of distinct notifications held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// UnreadCount returns the unread counter. It never goes below zero.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return max(s.unread, 0)
}

// HasMore reports whether the last fetched page was full.
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// SetRead sets the read flag of id and adjusts the unread count. It
// reports whether the flag changed.
func (s *Store) SetRead(id string, read bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok || e.n.Read == read {
		return false
	}
	e.n.Read = read
	if read {
		s.unread--
	} else {
		s.unread++
	}
	return true
}

// MarkAllRead marks every notification read and zeroes the counter. The
// returned func restores the previous flags and count.
func (s *Store) MarkAllRead() (restore func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var flipped []string
	for id, e := range s.byID {
		if !e.n.Read {
			e.n.Read = true
			flipped = append(flipped, id)
		}
	}
	prevUnread := s.unread
	s.unread = 0

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, id := range flipped {
			if e, ok := s.byID[id]; ok {
				e.n.Read = false
			}
		}
		s.unread = prevUnread
	}
}

// Clear drops all state, e.g. on logout.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*entry)
	s.unread = 0
	s.hasMore = false
}
