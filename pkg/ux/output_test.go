// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// captureOutput redirects the print helpers for one test.
func captureOutput(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	oldOut, oldErr := stdout, stderr
	SetOutput(out, errOut)
	t.Cleanup(func() { SetOutput(oldOut, oldErr) })
	return out, errOut
}

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending, IconHeart, IconReply, IconBullet} {
		assert.Contains(t, icon.Render(), string(icon))
	}
}

func TestPrintHelpers_Machine(t *testing.T) {
	withPersonality(t, PersonalityMachine)
	out, errOut := captureOutput(t)

	Title("ignored")
	Muted("ignored")
	Success("logged in")
	Info("plain")
	Warning("careful")
	Error("boom")
	Box("Session", "ada")
	Tip("ignored")

	assert.Equal(t, "OK: logged in\nplain\nSession: ada\n", out.String())
	assert.Equal(t, "WARN: careful\nERROR: boom\n", errOut.String())
}

func TestPrintHelpers_Standard(t *testing.T) {
	withPersonality(t, PersonalityStandard)
	out, errOut := captureOutput(t)

	Title("Feed")
	Success("posted")
	Error("failed")
	Tip("hidden at standard")

	assert.Contains(t, out.String(), "Feed")
	assert.Contains(t, out.String(), "✓")
	assert.Contains(t, out.String(), "posted")
	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, errOut.String(), "✗")
}

func TestTip_Full(t *testing.T) {
	withPersonality(t, PersonalityFull)
	out, _ := captureOutput(t)

	Tip("next: socialite feed --more")
	assert.Contains(t, out.String(), "socialite feed --more")
}

func TestFileStatus(t *testing.T) {
	withPersonality(t, PersonalityMachine)
	out, _ := captureOutput(t)
	FileStatus("notes.txt", IconWarning, "unsupported type")
	assert.Equal(t, "⚠\tnotes.txt\tunsupported type\n", out.String())

	SetPersonalityLevel(PersonalityMinimal)
	out.Reset()
	FileStatus("a.png", IconSuccess, "")
	assert.Contains(t, out.String(), "a.png")
}

func TestWarningBox(t *testing.T) {
	withPersonality(t, PersonalityStandard)
	_, errOut := captureOutput(t)
	WarningBox("Skipped", "2 files")
	assert.Contains(t, errOut.String(), "Skipped")
	assert.Contains(t, errOut.String(), "2 files")
}
