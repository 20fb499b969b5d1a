// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package model

import "time"

// NotificationType is the kind of activity a notification reports.
type NotificationType string

const (
	NotifyNewPost      NotificationType = "new_post"
	NotifyLikePost     NotificationType = "like_post"
	NotifyCommentPost  NotificationType = "comment_post"
	NotifyReplyComment NotificationType = "reply_comment"
	NotifyLikeComment  NotificationType = "like_comment"
	NotifyFollow       NotificationType = "follow"
)

// Describe returns the sentence shown after the sender's name.
func (t NotificationType) Describe() string {
	switch t {
	case NotifyNewPost:
		return "posted something new."
	case NotifyLikePost:
		return "liked your post."
	case NotifyCommentPost:
		return "commented on your post."
	case NotifyReplyComment:
		return "replied to your comment."
	case NotifyLikeComment:
		return "liked your comment."
	case NotifyFollow:
		return "started following you."
	default:
		return "sent you a notification."
	}
}

// Known reports whether t is one of the documented types.
func (t NotificationType) Known() bool {
	switch t {
	case NotifyNewPost, NotifyLikePost, NotifyCommentPost,
		NotifyReplyComment, NotifyLikeComment, NotifyFollow:
		return true
	}
	return false
}

// Notification is one entry of the notification panel.
type Notification struct {
	ID        string           `json:"_id"`
	Type      NotificationType `json:"type"`
	Sender    User             `json:"sender"`
	Post      *PostRef         `json:"post,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Summary renders "<sender> <sentence>".
func (n Notification) Summary() string {
	return n.Sender.DisplayName() + " " + n.Type.Describe()
}

// NotificationPage is one page of notification history.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
}

// Realtime event names.
const (
	EventNotificationNew = "notification:new"
)
