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
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce collapses the burst of events an editor save produces.
const reloadDebounce = 100 * time.Millisecond

// Watch reloads the config at path whenever it changes and passes each
// valid result to onChange.
//
// # Description
//
// The parent directory is watched rather than the file, so saves that
// replace the file (write to temp, rename) are seen. Invalid edits are
// logged and skipped; the previous config stays in effect. Blocks until
// ctx is cancelled. Run it in a goroutine.
//
// # Outputs
//
//   - error: Only when the watcher cannot be set up.
//
// # Examples
//
//	go func() {
//	    if err := config.Watch(ctx, path, apply); err != nil {
//	        logger.Warn("config hot reload disabled", "error", err)
//	    }
//	}()
func Watch(ctx context.Context, path string, onChange func(SocialiteConfig)) error {
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	slog.Debug("Started watching config", "path", path)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(reloadDebounce)

		case <-timer.C:
			cfg, err := Load(path)
			if err != nil {
				slog.Warn("Config reload rejected", "path", path, "error", err)
				continue
			}
			slog.Info("Config reloaded", "path", path)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Config watcher error", "error", err)

		case <-ctx.Done():
			slog.Debug("Config watcher stopping")
			return nil
		}
	}
}
