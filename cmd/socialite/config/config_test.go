// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestCreateDefault verifies default config creation and round trip.
func TestCreateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".socialite", "socialite.yaml")

	created, err := EnsureFile(path)
	require.NoError(t, err)
	assert.True(t, created)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var cfg SocialiteConfig
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Contains(t, string(data), "timeout: 30s")

	created, err = EnsureFile(path)
	require.NoError(t, err)
	assert.False(t, created, "existing file is left alone")
}

func TestDefaultConfig_IsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://social.example.com/
  rate_limit: 2.5
feed:
  page_size: 10
storage:
  data_dir: ~/socialite-data
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://social.example.com", cfg.API.BaseURL)
	assert.Equal(t, 2.5, cfg.API.RateLimit)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout, "default kept")
	assert.Equal(t, 10, cfg.Feed.PageSize)
	assert.Equal(t, 20, cfg.Notifications.PageSize)
	assert.False(t, strings.HasPrefix(cfg.Storage.DataDir, "~"), "expanded")
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "api:\n  base_url: http://file.example\n")
	t.Setenv(EnvAPIURL, "http://env.example:8080")
	t.Setenv(EnvRealtimeURL, "ws://rt.example")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env.example:8080", cfg.API.BaseURL)
	assert.Equal(t, "ws://rt.example", cfg.Realtime.URL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "api: [", "failed to parse"},
		{"relative url", "api:\n  base_url: localhost:5000\n", "api.base_url"},
		{"page size", "feed:\n  page_size: 0\n", "feed.page_size"},
		{"burst", "api:\n  rate_limit: 1\n  rate_burst: 0\n", "rate_burst"},
		{"backoff", "realtime:\n  backoff_initial: 10s\n  backoff_max: 1s\n", "backoff_max"},
		{"level", "logging:\n  level: loud\n", "logging.level"},
		{"personality", "ui:\n  personality: chatty\n", "ui.personality"},
		{"realtime scheme", "realtime:\n  url: ftp://x\n", "realtime.url"},
		{"trace exporter", "telemetry:\n  trace_exporter: jaeger\n", "telemetry.trace_exporter"},
		{"metric exporter", "telemetry:\n  metric_exporter: statsd\n", "telemetry.metric_exporter"},
		{"otlp endpoint", "telemetry:\n  trace_exporter: otlp\n  otlp_endpoint: \"\"\n", "telemetry.otlp_endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x"), ExpandPath("~/x"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, "/abs", ExpandPath("/abs"))
	assert.Equal(t, "~user/x", ExpandPath("~user/x"))
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	path := writeConfig(t, "feed:\n  page_size: 5\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan SocialiteConfig, 4)
	errc := make(chan error, 1)
	go func() { errc <- Watch(ctx, path, func(c SocialiteConfig) { changes <- c }) }()

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("feed:\n  page_size: 3\n  bad: [\n"), 0644))
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("feed:\n  page_size: 9\n"), 0644))

	select {
	case c := <-changes:
		assert.Equal(t, 9, c.Feed.PageSize, "invalid edit skipped")
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}

	cancel()
	assert.NoError(t, <-errc)
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing", "c.yaml"), func(SocialiteConfig) {})
	assert.Error(t, err)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "socialite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
