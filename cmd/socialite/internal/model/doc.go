// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package model defines the wire types exchanged with the social backend.
//
// # Overview
//
// Types mirror the backend's JSON documents (MongoDB-style "_id" keys) and
// tolerate the shapes the backend actually sends: references that are
// either a bare id or a populated object, and users keyed by "_id" or "id".
//
// # Components
//
//   - User, Session: identity and the bearer-token session
//   - Post, Comment, Notification: content entities
//   - FeedPage, NotificationPage, LikeResult, FollowResult: response envelopes
//   - Credentials, Registration, ProfileUpdate, CommentDraft: request payloads
//     with go-playground/validator tags
//
// # Thread Safety
//
// Values are plain data. Callers that share *Post or *Comment between
// goroutines must synchronize themselves.
package model
