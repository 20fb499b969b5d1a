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
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/feed"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/pkg/ux"
	"github.com/AleutianAI/socialite/pkg/validation"
)

// newLoader builds the feed loader of s.
func (r *runtime) newLoader(s model.Session) *feed.Loader {
	return feed.NewLoader(r.client, feed.Config{
		PageSize: r.cfg.Feed.PageSize,
		ViewerID: s.UserID,
		Logger:   r.logger,
	})
}

func (c *cli) feedCmd() *cobra.Command {
	var (
		page int
		more bool
	)
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the home feed",
		Long: `Show one page of the home feed, newest first. --more also loads the
page after it and shows both.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := c.rt
			s, err := rt.requireSession(ctx)
			if err != nil {
				return err
			}
			if page < 1 {
				return errors.New("--page must be at least 1")
			}

			loader := rt.newLoader(s)
			if err := ux.WithSpinner("Loading feed...", func() error {
				return loader.Fetch(ctx, page, true)
			}); err != nil {
				return err
			}
			if more {
				switch err := loader.LoadMore(ctx); {
				case errors.Is(err, feed.ErrNoMorePages):
					ux.Warning("no more posts")
				case err != nil:
					return err
				}
			}

			posts := loader.Snapshot()
			rt.follows(s).Annotate(posts)
			rt.renderer().Feed(postViews(posts), pageInfo(loader.State()))
			if loader.State().HasMore {
				ux.Tip(fmt.Sprintf("next: socialite feed --page %d", loader.State().CurrentPage+1))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page to show")
	cmd.Flags().BoolVar(&more, "more", false, "also load the following page")
	return cmd
}

func (c *cli) postCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Create, show, edit, delete and like posts",
	}
	cmd.AddCommand(
		c.postCreateCmd(),
		c.postShowCmd(),
		c.postEditCmd(),
		c.postDeleteCmd(),
		c.postLikeCmd(),
	)
	return cmd
}

func (c *cli) postCreateCmd() *cobra.Command {
	var (
		caption string
		files   []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a post with a caption and up to five images or one video",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := c.rt
			s, err := rt.requireSession(ctx)
			if err != nil {
				return err
			}

			loader := rt.newLoader(s)
			var skipped []string
			spin := ux.NewSpinner("Publishing...").WithType(ux.SpinnerPulse)
			spin.Start()
			skipped, err = loader.Create(ctx, caption, files)
			spin.Stop()
			for _, path := range skipped {
				ux.FileStatus(path, ux.IconWarning, "not an image or video, skipped")
			}
			if err != nil {
				return err
			}
			ux.Success("post published")
			return nil
		},
	}
	cmd.Flags().StringVarP(&caption, "caption", "c", "", "post text")
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "image or video to attach (repeatable)")
	return cmd
}

func (c *cli) postShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <postId>",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := c.rt
			s, err := rt.requireSession(ctx)
			if err != nil {
				return err
			}
			p, err := rt.newLoader(s).Get(ctx, args[0])
			if err != nil {
				return err
			}
			posts := []model.Post{*p}
			rt.follows(s).Annotate(posts)
			rt.renderer().Post(postView(posts[0]))
			return nil
		},
	}
}

func (c *cli) postEditCmd() *cobra.Command {
	var caption string
	cmd := &cobra.Command{
		Use:   "edit <postId>",
		Short: "Replace a post's caption",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := c.rt
			if _, err := rt.requireSession(ctx); err != nil {
				return err
			}
			if err := validation.RequireText(caption); err != nil {
				return err
			}
			p, err := rt.client.EditPost(ctx, args[0], caption)
			if err != nil {
				return err
			}
			if p != nil {
				rt.renderer().Post(postView(*p))
			}
			ux.Success("post updated")
			return nil
		},
	}
	cmd.Flags().StringVarP(&caption, "caption", "c", "", "new caption")
	return cmd
}

func (c *cli) postDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <postId>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := c.rt
			s, err := rt.requireSession(ctx)
			if err != nil {
				return err
			}
			if err := rt.newLoader(s).Delete(ctx, args[0]); err != nil {
				return err
			}
			ux.Success("post deleted")
			return nil
		},
	}
}

func (c *cli) postLikeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <postId>",
		Short: "Like or unlike a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := c.rt
			if _, err := rt.requireSession(ctx); err != nil {
				return err
			}
			res, err := rt.client.LikePost(ctx, args[0])
			if err != nil {
				return err
			}
			verb := "unliked"
			if res.IsLiked {
				verb = "liked"
			}
			ux.Success(fmt.Sprintf("%s post %s (%s)", verb, args[0], plural(res.LikeCount, "like")))
			return nil
		},
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
