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
	"testing"

	"github.com/stretchr/testify/assert"
)

// withPersonality sets the level for one test and restores it afterwards.
func withPersonality(t *testing.T, level PersonalityLevel) {
	t.Helper()
	old := GetPersonality()
	SetPersonalityLevel(level)
	t.Cleanup(func() { SetPersonality(old) })
}

func TestParsePersonalityLevel(t *testing.T) {
	tests := []struct {
		in   string
		want PersonalityLevel
	}{
		{"full", PersonalityFull},
		{"F", PersonalityFull},
		{"std", PersonalityStandard},
		{" minimal ", PersonalityMinimal},
		{"q", PersonalityMachine},
		{"machine", PersonalityMachine},
		{"loud", PersonalityStandard},
		{"", PersonalityStandard},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePersonalityLevel(tt.in))
		})
	}
}

func TestSetPersonalityLevel_TipsFollowLevel(t *testing.T) {
	withPersonality(t, PersonalityFull)
	assert.True(t, GetPersonality().ShowTips)

	SetPersonalityLevel(PersonalityMinimal)
	assert.False(t, GetPersonality().ShowTips)
}

func TestInitPersonality_EnvWins(t *testing.T) {
	withPersonality(t, PersonalityStandard)
	t.Setenv(EnvPersonality, "minimal")

	InitPersonality("full")
	assert.Equal(t, PersonalityMinimal, GetPersonality().Level)
}

func TestInitPersonality_Configured(t *testing.T) {
	withPersonality(t, PersonalityStandard)
	t.Setenv(EnvPersonality, "")

	InitPersonality("full")
	assert.Equal(t, PersonalityFull, GetPersonality().Level)
}

func TestInitPersonality_NonTerminal(t *testing.T) {
	withPersonality(t, PersonalityFull)
	t.Setenv(EnvPersonality, "")

	// go test's stdout is not a terminal.
	InitPersonality("")
	assert.Equal(t, PersonalityMachine, GetPersonality().Level)
	assert.False(t, ShouldShowColors())
	assert.False(t, ShouldShowProgress())
	assert.False(t, IsInteractive())
}

func TestDefaultPersonality(t *testing.T) {
	p := DefaultPersonality()
	assert.Equal(t, PersonalityStandard, p.Level)
	assert.False(t, p.ShowTips)
}
