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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpinner_StartStop(t *testing.T) {
	withPersonality(t, PersonalityStandard)
	_, errOut := captureOutput(t)

	s := NewSpinner("loading feed").WithType(SpinnerPulse)
	s.Start()
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.UpdateMessage("still loading")
	s.Stop()
	s.Stop()

	assert.Contains(t, errOut.String(), "loading feed")
}

func TestSpinner_MachineIsSilent(t *testing.T) {
	withPersonality(t, PersonalityMachine)
	out, errOut := captureOutput(t)

	s := NewSpinner("loading")
	s.Start()
	s.Stop()

	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())
}

func TestSpinner_StopWithoutStart(t *testing.T) {
	NewSpinner("never").Stop()
}

func TestWithSpinner(t *testing.T) {
	withPersonality(t, PersonalityMachine)
	captureOutput(t)

	boom := errors.New("boom")
	assert.ErrorIs(t, WithSpinner("x", func() error { return boom }), boom)
	assert.NoError(t, WithSpinner("x", func() error { return nil }))
}

func TestSpinner_StopWithSuccess(t *testing.T) {
	withPersonality(t, PersonalityMachine)
	out, _ := captureOutput(t)

	s := NewSpinner("saving")
	s.Start()
	s.StopWithSuccess("saved")
	assert.Equal(t, "OK: saved\n", out.String())
}
