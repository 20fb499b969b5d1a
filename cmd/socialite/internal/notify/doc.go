// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package notify holds the viewer's notifications and keeps them current.
//
// # Overview
//
// Store is a normalized map keyed by notification id. The paginated fetch
// and the realtime push both upsert into it, so a notification seen through
// both paths is listed once and counted once. List is a view derived from
// the map, newest first.
//
// # Components
//
//   - Store: the map, the unread counter and the "more pages" flag
//   - Service: paginated fetch and optimistic mark-as-read
//   - Channel: the Socket.IO session that delivers "notification:new"
//     events into the Store, with optional reconnect backoff
//   - Metrics: push event and reconnect counters
//
// # Thread Safety
//
// All types are safe for concurrent use. The Channel reader runs in its own
// goroutine and writes into the Store.
package notify
