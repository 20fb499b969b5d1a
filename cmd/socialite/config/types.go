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
	"errors"
	"fmt"
	"net/url"
	"time"
)

// SocialiteConfig is the on-disk client configuration.
type SocialiteConfig struct {
	// API: backend REST endpoint and client-side request limits
	API APIConfig `yaml:"api"`

	// Realtime: notification socket; URL empty means derive from API.BaseURL
	Realtime RealtimeConfig `yaml:"realtime"`

	Feed          FeedConfig          `yaml:"feed"`
	Notifications NotificationsConfig `yaml:"notifications"`

	// Storage: where the session database lives
	Storage StorageConfig `yaml:"storage"`

	Logging LoggingConfig `yaml:"logging"`
	UI      UIConfig      `yaml:"ui"`

	// Telemetry: OpenTelemetry exporters, all off by default
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`   // e.g. http://localhost:5000
	Timeout   time.Duration `yaml:"timeout"`    // e.g. 30s
	RateLimit float64       `yaml:"rate_limit"` // requests per second, 0 disables
	RateBurst int           `yaml:"rate_burst"`
}

type RealtimeConfig struct {
	URL            string        `yaml:"url,omitempty"`
	Reconnect      bool          `yaml:"reconnect"`
	BackoffInitial time.Duration `yaml:"backoff_initial"`
	BackoffMax     time.Duration `yaml:"backoff_max"`
}

type FeedConfig struct {
	PageSize int `yaml:"page_size"`
}

type NotificationsConfig struct {
	PageSize int `yaml:"page_size"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"` // supports ~
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir,omitempty"` // empty disables file logging
}

type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter"`  // none, stdout, otlp
	MetricExporter string `yaml:"metric_exporter"` // none, stdout, prometheus
	OTLPEndpoint   string `yaml:"otlp_endpoint"`   // e.g. localhost:4317
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	File           string `yaml:"file,omitempty"` // stdout exporters write here; empty means stderr
}

type UIConfig struct {
	// Personality: full, standard, minimal or machine. Empty means detect.
	Personality string `yaml:"personality,omitempty"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() SocialiteConfig {
	return SocialiteConfig{
		API: APIConfig{
			BaseURL:   "http://localhost:5000",
			Timeout:   30 * time.Second,
			RateLimit: 0,
			RateBurst: 5,
		},
		Realtime: RealtimeConfig{
			Reconnect:      false,
			BackoffInitial: 500 * time.Millisecond,
			BackoffMax:     30 * time.Second,
		},
		Feed:          FeedConfig{PageSize: 5},
		Notifications: NotificationsConfig{PageSize: 20},
		Storage:       StorageConfig{DataDir: "~/.socialite/data"},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "~/.socialite/logs",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "none",
			OTLPEndpoint:   "localhost:4317",
			OTLPInsecure:   true,
		},
	}
}

var validPersonalities = map[string]bool{"": true, "full": true, "standard": true, "minimal": true, "machine": true}

var (
	validTraceExporters  = map[string]bool{"": true, "none": true, "stdout": true, "otlp": true}
	validMetricExporters = map[string]bool{"": true, "none": true, "stdout": true, "prometheus": true}
)

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

// Validate reports the first invalid setting.
func (c SocialiteConfig) Validate() error {
	if err := validateBaseURL("api.base_url", c.API.BaseURL, "http", "https"); err != nil {
		return err
	}
	if c.Realtime.URL != "" {
		if err := validateBaseURL("realtime.url", c.Realtime.URL, "http", "https", "ws", "wss"); err != nil {
			return err
		}
	}

	var errs []error
	if c.API.Timeout < 0 {
		errs = append(errs, errors.New("api.timeout must not be negative"))
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, errors.New("api.rate_limit must not be negative"))
	}
	if c.API.RateLimit > 0 && c.API.RateBurst < 1 {
		errs = append(errs, errors.New("api.rate_burst must be at least 1 when rate_limit is set"))
	}
	if c.Realtime.BackoffInitial < 0 || c.Realtime.BackoffMax < 0 {
		errs = append(errs, errors.New("realtime backoff must not be negative"))
	}
	if c.Realtime.BackoffMax > 0 && c.Realtime.BackoffMax < c.Realtime.BackoffInitial {
		errs = append(errs, errors.New("realtime.backoff_max must be at least backoff_initial"))
	}
	if c.Feed.PageSize < 1 || c.Feed.PageSize > 100 {
		errs = append(errs, fmt.Errorf("feed.page_size %d out of range 1..100", c.Feed.PageSize))
	}
	if c.Notifications.PageSize < 1 || c.Notifications.PageSize > 100 {
		errs = append(errs, fmt.Errorf("notifications.page_size %d out of range 1..100", c.Notifications.PageSize))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir is required"))
	}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	if !validPersonalities[c.UI.Personality] {
		errs = append(errs, fmt.Errorf("ui.personality %q is not one of full, standard, minimal, machine", c.UI.Personality))
	}
	if !validTraceExporters[c.Telemetry.TraceExporter] {
		errs = append(errs, fmt.Errorf("telemetry.trace_exporter %q is not one of none, stdout, otlp", c.Telemetry.TraceExporter))
	}
	if !validMetricExporters[c.Telemetry.MetricExporter] {
		errs = append(errs, fmt.Errorf("telemetry.metric_exporter %q is not one of none, stdout, prometheus", c.Telemetry.MetricExporter))
	}
	if c.Telemetry.TraceExporter == "otlp" && c.Telemetry.OTLPEndpoint == "" {
		errs = append(errs, errors.New("telemetry.otlp_endpoint is required for the otlp exporter"))
	}
	return errors.Join(errs...)
}

func validateBaseURL(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s %q must be an absolute %v URL", field, raw, schemes)
}
