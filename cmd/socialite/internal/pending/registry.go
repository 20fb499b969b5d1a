// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pending tracks in-flight operations by entity so the same action
// is not issued twice and views can show a loading marker.
package pending

import (
	"sort"
	"sync"
)

// Kind names a family of operations.
type Kind string

const (
	PostLike     Kind = "post-like"
	PostEdit     Kind = "post-edit"
	PostDelete   Kind = "post-delete"
	CommentLike  Kind = "comment-like"
	CommentEdit  Kind = "comment-edit"
	CommentReply Kind = "comment-reply"
	Follow       Kind = "follow"
	MarkRead     Kind = "mark-read"
	FeedFetch    Kind = "feed-fetch"
	NotifyFetch  Kind = "notify-fetch"
)

// Key identifies one pending operation.
type Key struct {
	Kind Kind
	ID   string
}

func (k Key) String() string {
	return string(k.Kind) + ":" + k.ID
}

// Registry is a set of pending keys. The zero value is ready to use.
type Registry struct {
	mu      sync.Mutex
	pending map[Key]struct{}
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{pending: make(map[Key]struct{})}
}

// Begin marks key pending. ok is false when it already was, in which case
// the caller must not start the operation and done is a no-op. done is safe
// to call more than once.
func (r *Registry) Begin(key Key) (done func(), ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending == nil {
		r.pending = make(map[Key]struct{})
	}
	if _, busy := r.pending[key]; busy {
		return func() {}, false
	}
	r.pending[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.pending, key)
			r.mu.Unlock()
		})
	}, true
}

// IsPending reports whether key is in flight.
func (r *Registry) IsPending(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[key]
	return ok
}

// Snapshot returns the pending keys ordered by kind then id.
func (r *Registry) Snapshot() []Key {
	r.mu.Lock()
	keys := make([]Key, 0, len(r.pending))
	for k := range r.pending {
		keys = append(keys, k)
	}
	r.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		return keys[i].ID < keys[j].ID
	})
	return keys
}
