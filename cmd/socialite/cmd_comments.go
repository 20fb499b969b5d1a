// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/comments"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/pkg/ux"
)

// loadThread restores the session and fetches the comments of postID.
func (c *cli) loadThread(ctx context.Context, postID string) (*comments.Thread, model.Session, error) {
	rt := c.rt
	s, err := rt.requireSession(ctx)
	if err != nil {
		return nil, s, err
	}
	thread := comments.NewThread(postID, s.UserID, rt.client, rt.pending, rt.logger)
	if err := ux.WithSpinner("Loading comments...", func() error {
		return thread.Refresh(ctx)
	}); err != nil {
		return nil, s, err
	}
	return thread, s, nil
}

func (c *cli) renderThread(thread *comments.Thread, s model.Session) {
	c.rt.renderer().Comments(commentViews(thread.Flatten(), s.UserID))
}

func (c *cli) commentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "comments",
		Aliases: []string{"comment"},
		Short:   "Read and write the comment thread of a post",
	}
	cmd.AddCommand(
		c.commentsListCmd(),
		c.commentsAddCmd(),
		c.commentsEditCmd(),
		c.commentsDeleteCmd(),
		c.commentsLikeCmd(),
	)
	return cmd
}

func (c *cli) commentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <postId>",
		Short: "Show a post's comments as a reply tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			thread, s, err := c.loadThread(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ux.Title("Comments on " + args[0])
			c.renderThread(thread, s)
			return nil
		},
	}
}

func (c *cli) commentsAddCmd() *cobra.Command {
	var replyTo string
	cmd := &cobra.Command{
		Use:   "add <postId> <text>...",
		Short: "Comment on a post, or reply to a comment with --reply-to",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			thread, s, err := c.loadThread(ctx, args[0])
			if err != nil {
				return err
			}
			if err := thread.Add(ctx, strings.Join(args[1:], " "), replyTo); err != nil {
				return err
			}
			if replyTo != "" {
				ux.Success("reply posted")
			} else {
				ux.Success("comment posted")
			}
			c.renderThread(thread, s)
			return nil
		},
	}
	cmd.Flags().StringVar(&replyTo, "reply-to", "", "id of the comment to reply to")
	return cmd
}

// commentCmd builds a subcommand acting on one comment of --post.
func (c *cli) commentCmd(use, short string, minArgs int, act func(ctx context.Context, thread *comments.Thread, args []string) (string, error)) *cobra.Command {
	var postID string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(minArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			thread, s, err := c.loadThread(ctx, postID)
			if err != nil {
				return err
			}
			msg, err := act(ctx, thread, args)
			if err != nil {
				return err
			}
			ux.Success(msg)
			c.renderThread(thread, s)
			return nil
		},
	}
	cmd.Flags().StringVar(&postID, "post", "", "id of the post the comment belongs to")
	_ = cmd.MarkFlagRequired("post")
	return cmd
}

func (c *cli) commentsEditCmd() *cobra.Command {
	return c.commentCmd("edit <commentId> <text>...", "Edit your comment", 2,
		func(ctx context.Context, thread *comments.Thread, args []string) (string, error) {
			return "comment updated", thread.Edit(ctx, args[0], strings.Join(args[1:], " "))
		})
}

func (c *cli) commentsDeleteCmd() *cobra.Command {
	return c.commentCmd("delete <commentId>", "Delete your comment", 1,
		func(ctx context.Context, thread *comments.Thread, args []string) (string, error) {
			return "comment deleted", thread.Delete(ctx, args[0])
		})
}

func (c *cli) commentsLikeCmd() *cobra.Command {
	return c.commentCmd("like <commentId>", "Like or unlike a comment", 1,
		func(ctx context.Context, thread *comments.Thread, args []string) (string, error) {
			id := args[0]
			if err := thread.ToggleLike(ctx, id); err != nil {
				return "", err
			}
			comment, ok := thread.Get(id)
			if !ok {
				return "like toggled", nil
			}
			verb := "unliked"
			if comment.LikedBy(c.rt.app.Session().UserID) {
				verb = "liked"
			}
			return fmt.Sprintf("%s comment %s (%s)", verb, id, plural(len(comment.Likes), "like")), nil
		})
}
