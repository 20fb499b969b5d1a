// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package testserver

import (
	"os"
	"path/filepath"
	"testing"
)

var (
	pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
	mp4Magic = []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2")
)

// WriteImage writes a file that sniffs as image/png and returns its path.
func WriteImage(t testing.TB, dir, name string) string {
	return writeFixture(t, dir, name, pngMagic)
}

// WriteVideo writes a file that sniffs as video/mp4 and returns its path.
func WriteVideo(t testing.TB, dir, name string) string {
	return writeFixture(t, dir, name, mp4Magic)
}

// WriteText writes a plain-text file, which the media allowlist rejects.
func WriteText(t testing.TB, dir, name string) string {
	return writeFixture(t, dir, name, []byte("just some notes\n"))
}

func writeFixture(t testing.TB, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}
