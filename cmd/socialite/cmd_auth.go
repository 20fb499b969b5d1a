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

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/socialite/cmd/socialite/internal/api"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/pkg/ux"
	"github.com/AleutianAI/socialite/pkg/validation"
)

// errMissingInput is returned when a non-interactive run lacks a required
// flag.
var errMissingInput = errors.New("missing input")

func (c *cli) loginCmd() *cobra.Command {
	var creds model.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Long: `Log in with a username and password. The token is stored in the data
directory, so later commands run as the same user. A stored session is
checked against the server first and reported when it is still accepted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := c.rt

			restored, err := rt.app.Restore(ctx)
			if err != nil {
				return err
			}
			if restored {
				s, err := rt.app.Refresh(ctx)
				switch {
				case err == nil:
					ux.Success("already logged in as @" + s.Username)
					ux.Tip("run `socialite logout` to switch accounts")
					return nil
				case api.IsUnauthorized(err):
					rt.logger.Info("stored session rejected, logging in again")
					ux.WarningBox("Session expired", "the stored session is no longer accepted, log in again")
					if err := rt.app.Logout(ctx); err != nil {
						return err
					}
				default:
					return err
				}
			}

			if creds.Username == "" || creds.Password == "" {
				if err := promptCredentials(&creds); err != nil {
					return err
				}
			}

			var s model.Session
			err = ux.WithSpinner("Logging in...", func() error {
				var err error
				s, err = rt.app.Login(ctx, creds)
				return err
			})
			if err != nil {
				return err
			}
			ux.Success("logged in as @" + s.Username)
			ux.Tip("next: socialite feed")
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password")
	return cmd
}

func promptCredentials(creds *model.Credentials) error {
	if !ux.IsInteractive() {
		return fmt.Errorf("%w: --username and --password are required", errMissingInput)
	}
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Username").Value(&creds.Username).Validate(validation.RequireText),
		huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&creds.Password).Validate(validation.RequireText),
	)).Run()
}

func (c *cli) registerCmd() *cobra.Command {
	var reg model.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt := c.rt

			if reg.Name == "" || reg.Username == "" || reg.Email == "" || reg.Password == "" {
				if err := promptRegistration(&reg); err != nil {
					return err
				}
			}

			if err := ux.WithSpinner("Creating account...", func() error {
				return rt.app.Register(ctx, reg)
			}); err != nil {
				return err
			}
			if !rt.app.LoggedIn() {
				ux.Success("account created, run `socialite login` to continue")
				return nil
			}
			s, err := rt.app.Refresh(ctx)
			if err != nil {
				return err
			}
			ux.Success("account created, logged in as @" + s.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&reg.Name, "name", "", "display name")
	cmd.Flags().StringVarP(&reg.Username, "username", "u", "", "username (letters and digits)")
	cmd.Flags().StringVar(&reg.Email, "email", "", "email address")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "password (at least 6 characters)")
	return cmd
}

func promptRegistration(reg *model.Registration) error {
	if !ux.IsInteractive() {
		return fmt.Errorf("%w: --name, --username, --email and --password are required", errMissingInput)
	}
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Name").Value(&reg.Name).Validate(validation.RequireText),
		huh.NewInput().Title("Username").Value(&reg.Username).Validate(validation.RequireText),
		huh.NewInput().Title("Email").Value(&reg.Email).Validate(validation.RequireText),
		huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&reg.Password),
	)).Run()
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.rt.app.Logout(cmd.Context()); err != nil {
				return err
			}
			ux.Success("logged out")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.rt.requireSession(cmd.Context())
			if err != nil {
				return err
			}
			ux.Box("Logged in", fmt.Sprintf("@%s · %s", s.Username, s.UserID))
			return nil
		},
	}
}
