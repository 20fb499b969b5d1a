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
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/socialite/cmd/socialite/config"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/model"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/notify"
	"github.com/AleutianAI/socialite/cmd/socialite/internal/tui"
	"github.com/AleutianAI/socialite/pkg/ux"
)

// errChannelClosed ends "notifications watch" when the realtime connection
// drops and is not re-established.
var errChannelClosed = errors.New("realtime connection closed")

func (r *runtime) notifyService() *notify.Service {
	store := notify.NewStore(r.cfg.Notifications.PageSize)
	return notify.NewService(r.client, store, r.pending, r.logger)
}

// fetchNotifications loads the first page, and the next one with more.
func fetchNotifications(ctx context.Context, svc *notify.Service, more bool) error {
	if err := ux.WithSpinner("Loading notifications...", func() error {
		return svc.Fetch(ctx, true)
	}); err != nil {
		return err
	}
	if more && svc.Store().HasMore() {
		return svc.Fetch(ctx, false)
	}
	return nil
}

func (c *cli) renderNotifications(store *notify.Store) {
	c.rt.renderer().Notifications(notificationViews(store.List()), store.UnreadCount(), store.HasMore())
}

func (c *cli) notificationsCmd() *cobra.Command {
	list := c.notificationsListCmd()
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif", "n"},
		Short:   "Read notifications and watch for new ones",
		Args:    cobra.NoArgs,
		RunE:    list.RunE,
	}
	cmd.Flags().AddFlagSet(list.Flags())
	cmd.AddCommand(
		list,
		c.notificationsReadCmd(),
		c.notificationsReadAllCmd(),
		c.notificationsWatchCmd(),
	)
	return cmd
}

func (c *cli) notificationsListCmd() *cobra.Command {
	var more bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := c.rt.requireSession(ctx); err != nil {
				return err
			}
			svc := c.rt.notifyService()
			if err := fetchNotifications(ctx, svc, more); err != nil {
				return err
			}
			c.renderNotifications(svc.Store())
			return nil
		},
	}
	cmd.Flags().BoolVar(&more, "more", false, "also load the next page")
	return cmd
}

func (c *cli) notificationsReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <notificationId>",
		Short: "Mark one notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := c.rt.requireSession(ctx); err != nil {
				return err
			}
			svc := c.rt.notifyService()
			id := args[0]

			if err := findNotification(ctx, svc, id); err != nil {
				return err
			}

			if err := svc.MarkAsRead(ctx, id); err != nil {
				return err
			}
			ux.Success(fmt.Sprintf("marked %s read (%d unread)", id, svc.Store().UnreadCount()))
			return nil
		},
	}
}

// findNotification pages through history until id is loaded or nothing is
// left. An id that is never found is reported by MarkAsRead.
func findNotification(ctx context.Context, svc *notify.Service, id string) error {
	spin := ux.NewSpinner("Looking for " + id + "...")
	spin.Start()
	defer spin.Stop()

	if err := svc.Fetch(ctx, true); err != nil {
		return err
	}
	for page := 2; ; page++ {
		if _, ok := svc.Store().Get(id); ok || !svc.Store().HasMore() {
			return nil
		}
		spin.UpdateMessage(fmt.Sprintf("Looking for %s (page %d)...", id, page))
		if err := svc.Fetch(ctx, false); err != nil {
			return err
		}
	}
}

func (c *cli) notificationsReadAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := c.rt.requireSession(ctx); err != nil {
				return err
			}
			svc := c.rt.notifyService()
			if err := svc.Fetch(ctx, true); err != nil {
				return err
			}
			before := svc.Store().UnreadCount()
			if err := svc.MarkAllRead(ctx); err != nil {
				return err
			}
			ux.Success(fmt.Sprintf("marked %s read", plural(before, "notification")))
			return nil
		},
	}
}

func (c *cli) notificationsWatchCmd() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow new notifications live",
		Long: `Open the realtime channel and show notifications as they arrive. In a
terminal this is an interactive panel; otherwise each new notification is
printed as one line. The config file is reloaded when it changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			rt := c.rt

			s, err := rt.requireSession(ctx)
			if err != nil {
				return err
			}

			if metricsAddr != "" {
				stop, err := serveMetrics(metricsAddr, rt.registry, rt.logger)
				if err != nil {
					return err
				}
				defer stop()
				ux.Info("metrics at http://" + metricsAddr + "/metrics")
			}

			go func() {
				reload := func(cfg config.SocialiteConfig) { c.reload(rt, cfg) }
				if err := config.Watch(ctx, rt.configPath, reload); err != nil {
					rt.logger.Warn("config hot reload disabled", "error", err)
				}
			}()

			svc := rt.notifyService()
			chCfg := rt.channelConfig(s)
			if ux.IsInteractive() {
				return c.watchPanel(ctx, svc, chCfg)
			}
			return c.watchStream(ctx, svc, chCfg)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9464")
	return cmd
}

// reload applies a changed config file to the running watch.
func (c *cli) reload(rt *runtime, cfg config.SocialiteConfig) {
	applyPersonality(&c.opts, cfg)
	rt.logger.Info("config reloaded", "personality", ux.GetPersonality().Level)
}

func (r *runtime) channelConfig(s model.Session) notify.ChannelConfig {
	url := r.cfg.Realtime.URL
	if url == "" {
		url = r.cfg.API.BaseURL
	}
	return notify.ChannelConfig{
		URL:            url,
		UserID:         s.UserID,
		Token:          s.Token,
		Reconnect:      r.cfg.Realtime.Reconnect,
		InitialBackoff: r.cfg.Realtime.BackoffInitial,
		MaxBackoff:     r.cfg.Realtime.BackoffMax,
		Logger:         r.logger,
		Metrics:        notify.NewMetrics(r.registry),
	}
}

// watchStream prints the current list, then one line per new notification
// until ctx ends or the connection is lost.
func (c *cli) watchStream(ctx context.Context, svc *notify.Service, chCfg notify.ChannelConfig) error {
	if err := fetchNotifications(ctx, svc, false); err != nil {
		return err
	}
	c.renderNotifications(svc.Store())

	var mu sync.Mutex
	chCfg.OnNotification = func(n model.Notification, isNew bool) {
		if !isNew {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		c.rt.renderer().Notification(notificationView(n))
	}

	ch, err := notify.NewChannel(svc.Store(), chCfg)
	if err != nil {
		return err
	}
	c.rt.app.OnLogout(func() { _ = ch.Close() })
	if err := ch.Open(ctx); err != nil {
		return err
	}
	defer ch.Close()
	ux.Muted("watching for notifications, press Ctrl-C to stop")

	select {
	case <-ctx.Done():
		return nil
	case <-ch.Done():
		if ctx.Err() != nil {
			return nil
		}
		return errChannelClosed
	}
}

// watchPanel runs the interactive notification panel. The panel keeps
// working from the loaded history when the channel cannot connect.
func (c *cli) watchPanel(ctx context.Context, svc *notify.Service, chCfg notify.ChannelConfig) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(tui.NewNotificationsModel(ctx, svc), tea.WithAltScreen(), tea.WithContext(ctx))
	chCfg.OnNotification, chCfg.OnState = tui.Forward(p.Send)

	ch, err := notify.NewChannel(svc.Store(), chCfg)
	if err != nil {
		return err
	}
	c.rt.app.OnLogout(func() { _ = ch.Close() })
	opened := make(chan struct{})
	go func() {
		defer close(opened)
		if err := ch.Open(ctx); err != nil {
			c.rt.logger.Warn("realtime channel unavailable", "error", err)
		}
	}()

	_, err = p.Run()
	cancel()
	<-opened
	_ = ch.Close()

	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// serveMetrics exposes reg on addr at /metrics until stop is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (stop func(), err error) {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware("socialite-metrics"))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	srv := &http.Server{Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
