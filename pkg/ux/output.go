// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides the terminal output of the socialite CLI: styles,
// personality levels, a spinner and renderers for posts, comment threads,
// notifications and profiles.
package ux

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Socialite color palette - warm coral on slate
var (
	ColorCoralBright = lipgloss.Color("#FF7A6B") // highlights, titles
	ColorCoral       = lipgloss.Color("#F0604F") // brand, likes
	ColorSky         = lipgloss.Color("#5AB3F0") // usernames, links
	ColorSlate       = lipgloss.Color("#5C6773") // muted text, borders
	ColorInk         = lipgloss.Color("#1F2933") // box backgrounds

	// Semantic colors (keeping standard conventions for clarity)
	ColorSuccess = lipgloss.Color("#3CCB7F")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = ColorSlate
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	// Text styles
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Username  lipgloss.Style
	Liked     lipgloss.Style

	// Box styles
	Box        lipgloss.Style
	WarningBox lipgloss.Style
	Unread     lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorCoralBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorCoral),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorCoralBright).Bold(true),
	Username:  lipgloss.NewStyle().Foreground(ColorSky).Bold(true),
	Liked:     lipgloss.NewStyle().Foreground(ColorCoral),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorSlate).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
	Unread: lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(ColorCoral).
		PaddingLeft(1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
	IconHeart   Icon = "♥"
	IconHollow  Icon = "♡"
	IconReply   Icon = "↳"
	IconBell    Icon = "🔔"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending, IconReply:
		return Styles.Muted.Render(string(i))
	case IconHeart:
		return Styles.Liked.Render(string(i))
	default:
		return string(i)
	}
}

// Output destinations. Swapped by tests and by commands that render into a
// buffer.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects the print helpers. Nil keeps the current writer.
func SetOutput(out, errOut io.Writer) {
	if out != nil {
		stdout = out
	}
	if errOut != nil {
		stderr = errOut
	}
}

// Print helpers that respect personality level

// Title prints a styled title
func Title(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	fmt.Fprintln(stdout, Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func Success(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		fmt.Fprintf(stdout, "OK: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(stdout, "%s %s\n", IconSuccess.Render(), text)
	default:
		fmt.Fprintf(stdout, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning message
func Warning(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		fmt.Fprintf(stderr, "WARN: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(stderr, "%s %s\n", IconWarning.Render(), text)
	default:
		fmt.Fprintf(stderr, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error message
func Error(text string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		fmt.Fprintf(stderr, "ERROR: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(stderr, "%s %s\n", IconError.Render(), text)
	default:
		fmt.Fprintf(stderr, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Info prints an informational message
func Info(text string) {
	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintln(stdout, text)
		return
	}
	fmt.Fprintf(stdout, "%s %s\n", Styles.Muted.Render("│"), text)
}

// Muted prints muted/secondary text
func Muted(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	fmt.Fprintln(stdout, Styles.Muted.Render(text))
}

// Tip prints a hint when the personality shows tips.
func Tip(text string) {
	if !GetPersonality().ShowTips {
		return
	}
	fmt.Fprintf(stdout, "%s %s\n", IconArrow.Render(), Styles.Muted.Render(text))
}

// Box prints text in a rounded box
func Box(title, content string) {
	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintf(stdout, "%s: %s\n", title, content)
		return
	}
	boxStyle := Styles.Box.Width(60)
	titleLine := Styles.Title.Render(title)
	fmt.Fprintln(stdout, boxStyle.Render(titleLine+"\n"+content))
}

// WarningBox prints text in a warning-styled box
func WarningBox(title, content string) {
	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintf(stderr, "WARN %s: %s\n", title, content)
		return
	}
	boxStyle := Styles.WarningBox.Width(60)
	titleLine := Styles.Warning.Bold(true).Render(title)
	fmt.Fprintln(stderr, boxStyle.Render(titleLine+"\n"+content))
}

// FileStatus prints an upload candidate with its status, e.g. a file
// skipped by the media allowlist.
func FileStatus(path string, status Icon, reason string) {
	switch GetPersonality().Level {
	case PersonalityMachine:
		fmt.Fprintf(stdout, "%s\t%s\t%s\n", status, path, reason)
	case PersonalityMinimal:
		fmt.Fprintf(stdout, "%s %s\n", status.Render(), path)
	default:
		if reason != "" {
			fmt.Fprintf(stdout, "%s %s %s\n", status.Render(), path, Styles.Muted.Render("("+reason+")"))
		} else {
			fmt.Fprintf(stdout, "%s %s\n", status.Render(), path)
		}
	}
}
