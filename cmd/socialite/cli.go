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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/socialite/cmd/socialite/config"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/api"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/follow"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/pending"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/session"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/telemetry"
	"github.com/AleutianAI/socialite/pkg/logging"
	"github.com/AleutianAI/socialite/pkg/ux"
	"github.com/AleutianAI/socialite/pkg/validation"
)

// =============================================================================
// Global options
// =============================================================================

type globalOptions struct {
	configPath  string
	personality string // UX personality level (full/standard/minimal/machine)
	logLevel    string // stderr logging is off unless set
}

// =============================================================================
// Runtime
// =============================================================================

// runtime is the wiring shared by the commands of one invocation.
type runtime struct {
	cfg        config.SocialiteConfig
	configPath string
	log        *logging.Logger
	logger     *slog.Logger
	app        *session.App
	client     *api.Client
	registry   *prometheus.Registry
	pending    *pending.Registry
	commands   *telemetry.Commands
	out        io.Writer

	shutdownTelemetry func(context.Context) error
	telemetryFile     *os.File
}

// newRuntime loads the config, applies the personality and opens the
// session store.
//
// # Description
//
// The config file is created with defaults on first use. The personality
// comes from --personality, then SOCIALITE_PERSONALITY, then the config,
// then terminal detection. Logs always go to the log file when one is
// configured; stderr gets them only with --log-level.
func newRuntime(cmd *cobra.Command, opts *globalOptions) (*runtime, error) {
	path := opts.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	created, err := config.EnsureFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	applyPersonality(opts, cfg)

	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	log := logging.New(logging.Config{
		Level:   logging.ParseLevel(level),
		LogDir:  cfg.Logging.Dir,
		Service: "socialite",
		JSON:    cfg.Logging.JSON,
		Quiet:   opts.logLevel == "",
		Output:  cmd.ErrOrStderr(),
	})
	logger := log.Slog()
	if file := log.LogFile(); file != "" {
		logger.Debug("logging to file", "path", file)
	}
	if created {
		logger.Info("created default config", "path", path)
		ux.Muted("created " + path)
	}

	store, err := session.OpenStore(cfg.Storage.DataDir, logger)
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}
	app := session.NewApp(store, logger)

	registry := prometheus.NewRegistry()
	rt := &runtime{
		cfg:        cfg,
		configPath: path,
		log:        log,
		logger:     logger,
		app:        app,
		registry:   registry,
		pending:    pending.New(),
		out:        cmd.OutOrStdout(),
	}
	if err := rt.startTelemetry(cmd); err != nil {
		_ = rt.Close()
		return nil, err
	}

	client, err := api.New(api.Config{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout,
		RateLimit:  cfg.API.RateLimit,
		RateBurst:  cfg.API.RateBurst,
		Tokens:     app,
		Logger:     logger,
		Registerer: registry,
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	app.Bind(client)
	rt.client = client
	return rt, nil
}

// startTelemetry installs the configured OpenTelemetry exporters and the
// command counter.
func (r *runtime) startTelemetry(cmd *cobra.Command) error {
	tc := r.cfg.Telemetry
	out := cmd.ErrOrStderr()
	if tc.File != "" {
		f, err := os.OpenFile(tc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open telemetry file: %w", err)
		}
		r.telemetryFile = f
		out = f
	}

	shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
		ServiceName:    "socialite",
		ServiceVersion: version,
		TraceExporter:  tc.TraceExporter,
		MetricExporter: tc.MetricExporter,
		OTLPEndpoint:   tc.OTLPEndpoint,
		OTLPInsecure:   tc.OTLPInsecure,
		Output:         out,
		Registerer:     r.registry,
	})
	if err != nil {
		return err
	}
	r.shutdownTelemetry = shutdown

	commands, err := telemetry.NewCommands()
	if err != nil {
		return err
	}
	r.commands = commands
	return nil
}

func applyPersonality(opts *globalOptions, cfg config.SocialiteConfig) {
	if opts.personality != "" {
		ux.SetPersonalityLevel(ux.ParsePersonalityLevel(opts.personality))
		return
	}
	ux.InitPersonality(cfg.UI.Personality)
}

func (r *runtime) Close() error {
	var errs []error
	if r.shutdownTelemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		errs = append(errs, r.shutdownTelemetry(ctx))
		cancel()
	}
	if r.telemetryFile != nil {
		errs = append(errs, r.telemetryFile.Close())
	}
	errs = append(errs, r.app.Close(), r.log.Close())
	return errors.Join(errs...)
}

// renderer returns a Renderer for the current personality.
func (r *runtime) renderer() *ux.Renderer {
	return ux.NewRenderer(r.out, ux.GetPersonality().Level)
}

// requireSession restores the stored session, fetching the user document
// when only a token is held.
func (r *runtime) requireSession(ctx context.Context) (model.Session, error) {
	return r.app.Require(ctx)
}

// follows builds the follow set of s.
func (r *runtime) follows(s model.Session) *follow.Set {
	return follow.NewSet(s, r.client, r.pending, r.logger)
}

// =============================================================================
// CLI
// =============================================================================

// cli owns the command tree and the runtime created for the command that
// runs.
type cli struct {
	opts globalOptions
	rt   *runtime
	root *cobra.Command
}

func newCLI() *cli {
	c := &cli{}
	c.root = &cobra.Command{
		Use:           "socialite",
		Version:       version,
		Short:         "A terminal client for the social backend",
		Long:          "socialite reads your feed, posts, comments and notifications from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, &c.opts)
			if err != nil {
				return err
			}
			c.rt = rt
			return nil
		},
	}

	flags := c.root.PersistentFlags()
	flags.StringVar(&c.opts.configPath, "config", "", "config file (default ~/.socialite/socialite.yaml)")
	flags.StringVar(&c.opts.personality, "personality", "", "output style: full, standard, minimal, machine")
	flags.StringVar(&c.opts.logLevel, "log-level", "", "log to stderr at this level: debug, info, warn, error")

	c.root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.feedCmd(),
		c.postCmd(),
		c.commentsCmd(),
		c.profileCmd(),
		c.userCmd(),
		c.followCmd(),
		c.notificationsCmd(),
	)
	return c
}

// run executes args and prints a failing command's error.
func (c *cli) run(ctx context.Context, args []string, out, errOut io.Writer) error {
	ux.SetOutput(out, errOut)
	c.root.SetArgs(args)
	c.root.SetOut(out)
	c.root.SetErr(errOut)

	executed, err := c.root.ExecuteContextC(ctx)
	if c.rt != nil {
		if executed != nil {
			c.rt.commands.Record(ctx, executed.CommandPath(), err)
		}
		if closeErr := c.rt.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		c.rt = nil
	}
	if err != nil {
		ux.Error(describeError(err))
	}
	return err
}

// describeError turns an error into the line shown to the user.
func describeError(err error) string {
	switch {
	case errors.Is(err, session.ErrNotLoggedIn):
		return "not logged in, run `socialite login` first"
	case validation.IsValidation(err):
		return err.Error()
	case api.IsUnauthorized(err):
		return "session expired, run `socialite login` again"
	default:
		return api.MessageOf(err)
	}
}
