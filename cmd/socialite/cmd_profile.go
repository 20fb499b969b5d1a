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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/profile"
	"github.com/AleutianAI/socialite/pkg/ux"
)

func (c *cli) profileCmd() *cobra.Command {
	show := c.profileShowCmd()
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show and edit your own profile",
		Args:  cobra.NoArgs,
		RunE:  show.RunE,
	}
	cmd.AddCommand(
		show,
		c.profileUpdateCmd(),
		c.profileAvatarCmd(),
		c.profileUsersCmd("followers", "Followers", "List the users following you"),
		c.profileUsersCmd("following", "Following", "List the users you follow"),
		c.profileSuggestionsCmd(),
	)
	return cmd
}

// loadOwn restores the session and loads the viewer's profile.
func (c *cli) loadOwn(cmd *cobra.Command) (*profile.Own, model.Session, error) {
	ctx := cmd.Context()
	rt := c.rt
	s, err := rt.requireSession(ctx)
	if err != nil {
		return nil, s, err
	}
	own := profile.NewOwn(rt.client, rt.app, rt.logger)
	if err := ux.WithSpinner("Loading profile...", func() error {
		return own.Load(ctx)
	}); err != nil {
		return nil, s, err
	}
	return own, s, nil
}

func (c *cli) profileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your profile and posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			own, s, err := c.loadOwn(cmd)
			if err != nil {
				return err
			}
			view := userView(s.User)
			view.Followers = len(own.Followers())
			view.Following = len(own.Following())
			c.rt.renderer().Profile(view, postViews(derefPosts(own.Posts())))
			return nil
		},
	}
}

func (c *cli) profileUpdateCmd() *cobra.Command {
	var name, bio string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change your display name and bio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := c.rt
			s, err := rt.requireSession(ctx)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("name") {
				name = s.Name
			}
			if !cmd.Flags().Changed("bio") {
				bio = s.Bio
			}
			s, err = profile.NewOwn(rt.client, rt.app, rt.logger).UpdateProfile(ctx, name, bio)
			if err != nil {
				return err
			}
			ux.Success(fmt.Sprintf("profile updated: %s", s.Name))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&bio, "bio", "", "short bio")
	return cmd
}

func (c *cli) profileAvatarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "avatar <image>",
		Short: "Upload a new profile picture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := c.rt
			if _, err := rt.requireSession(ctx); err != nil {
				return err
			}
			spin := ux.NewSpinner("Uploading...")
			spin.Start()
			s, err := profile.NewOwn(rt.client, rt.app, rt.logger).UploadPicture(ctx, args[0])
			if err != nil {
				spin.Stop()
				return err
			}
			spin.StopWithSuccess("profile picture updated: " + s.ProfilePicture)
			return nil
		},
	}
}

func (c *cli) profileUsersCmd(use, title, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			own, _, err := c.loadOwn(cmd)
			if err != nil {
				return err
			}
			users := own.Followers()
			if use == "following" {
				users = own.Following()
			}
			c.rt.renderer().Users(title, userViews(users))
			return nil
		},
	}
}

func (c *cli) profileSuggestionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggestions",
		Short: "List accounts you might follow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := c.rt
			if _, err := rt.requireSession(ctx); err != nil {
				return err
			}
			users, err := profile.NewOwn(rt.client, rt.app, rt.logger).Suggestions(ctx)
			if err != nil {
				return err
			}
			rt.renderer().Users("Who to follow", userViews(users))
			ux.Tip("follow someone with: socialite follow <userId>")
			return nil
		},
	}
}

func (c *cli) userCmd() *cobra.Command {
	var toggle bool
	cmd := &cobra.Command{
		Use:   "user <username>",
		Short: "Show someone's profile and posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := c.rt
			s, err := rt.requireSession(ctx)
			if err != nil {
				return err
			}

			public := profile.NewPublic(rt.client, rt.follows(s))
			if err := ux.WithSpinner("Loading profile...", func() error {
				return public.Load(ctx, args[0])
			}); err != nil {
				return err
			}
			if toggle {
				res, err := public.ToggleFollow(ctx)
				if err != nil {
					return err
				}
				ux.Success(followMessage("@"+args[0], res))
			}

			view := userView(public.User())
			view.Followers = public.FollowersCount()
			view.IsFollowing = public.IsFollowing()
			rt.renderer().Profile(view, postViews(derefPosts(public.Posts())))
			return nil
		},
	}
	cmd.Flags().BoolVar(&toggle, "follow", false, "follow or unfollow the user before showing the profile")
	return cmd
}

func (c *cli) followCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follow <userId>",
		Short: "Follow or unfollow a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := c.rt
			s, err := rt.requireSession(ctx)
			if err != nil {
				return err
			}
			res, err := rt.follows(s).Toggle(ctx, args[0])
			if err != nil {
				return err
			}
			ux.Success(followMessage(args[0], res))
			return nil
		},
	}
}

func followMessage(who string, res model.FollowResult) string {
	verb := "unfollowed"
	if res.IsFollowing {
		verb = "now following"
	}
	return fmt.Sprintf("%s %s (%s)", verb, who, plural(res.FollowersCount, "follower"))
}
