// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package profile holds the viewer's own profile view and the public
// profile of another user.
//
// # Components
//
//   - Own: the viewer's posts, followers and following, profile edits,
//     avatar upload and follow suggestions
//   - Public: another user's document and posts plus the follow button
//
// Both hold posts as pointers and update like state in place from server
// answers, the same way the feed does.
package profile
