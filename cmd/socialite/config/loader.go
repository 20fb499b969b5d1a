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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the file is parsed.
const (
	EnvAPIURL      = "SOCIALITE_API_URL"
	EnvRealtimeURL = "SOCIALITE_REALTIME_URL"
)

// DefaultPath returns ~/.socialite/socialite.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".socialite", "socialite.yaml"), nil
}

// EnsureFile writes the default config to path when nothing exists there.
// created reports whether it did.
func EnsureFile(path string) (created bool, err error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := createDefault(path); err != nil {
		return false, err
	}
	return true, nil
}

// Load reads and validates the config at path.
//
// # Description
//
// The file is decoded over DefaultConfig, so keys missing from the file
// keep their defaults. SOCIALITE_API_URL and SOCIALITE_REALTIME_URL
// override the file. Paths in storage, logging and telemetry are ~-expanded.
//
// # Outputs
//
//   - SocialiteConfig: The effective configuration.
//   - error: Read, parse or validation failure.
func Load(path string) (SocialiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SocialiteConfig{}, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SocialiteConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv(EnvRealtimeURL); v != "" {
		cfg.Realtime.URL = v
	}
	cfg.API.BaseURL = strings.TrimSuffix(cfg.API.BaseURL, "/")
	cfg.Storage.DataDir = ExpandPath(cfg.Storage.DataDir)
	cfg.Logging.Dir = ExpandPath(cfg.Logging.Dir)
	cfg.Telemetry.File = ExpandPath(cfg.Telemetry.File)

	if err := cfg.Validate(); err != nil {
		return SocialiteConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ExpandPath replaces a leading ~ with the home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
