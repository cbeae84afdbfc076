package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"

	"github.com/jacixn/inkami/reader"
)

var (
	fuchsia   = lipgloss.Color("#EE6FF8")
	yellowish = lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#ECFD65"}
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	darkRed   = lipgloss.AdaptiveColor{Light: "#7A1F35", Dark: "#5A1626"}

	subtleFg        = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	subtleStyle    = lipgloss.NewStyle().Foreground(subtleFg)
	pageRuleStyle  = lipgloss.NewStyle().Foreground(subtleFg)
	pageTitleStyle = lipgloss.NewStyle().Bold(true)
	speakerStyle   = lipgloss.NewStyle().Bold(true)
	activeBarStyle = lipgloss.NewStyle().Foreground(fuchsia)
	wordStyle      = lipgloss.NewStyle().
			Background(lipgloss.Color("226")).
			Foreground(lipgloss.Color("0")).
			Bold(true)

	dialogueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AAFF"))
	narrationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	thoughtStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AF87FF"))
	sfxStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8800"))

	headerTitleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	headerMetaStyle  = lipgloss.NewStyle().Foreground(statusBarNoteFg)

	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ECFD65")).
			Background(fuchsia).
			Bold(true).
			Render

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarSpeedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#949494", Dark: "#5A5A5A"}).
				Background(statusBarBg).
				Render

	statusBarErrorCountStyle = lipgloss.NewStyle().
					Foreground(red).
					Background(statusBarBg).
					Render

	statusBarHelpStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(lipgloss.AdaptiveColor{Light: "#DCDCDC", Dark: "#323232"}).
				Render

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	statusBarErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFDDE5")).
				Background(darkRed).
				Render

	helpViewStyle = lipgloss.NewStyle().
			Foreground(statusBarNoteFg).
			Background(lipgloss.AdaptiveColor{Light: "#f2f2f2", Dark: "#1B1B1B"}).
			Render

	errorTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(red).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().Foreground(yellowish)
)

// stateIcon returns the icon and color of the playback status.
func stateIcon(st reader.PlaybackState) (string, lipgloss.Color) {
	switch {
	case st.Playing && st.Channel == reader.ChannelNone:
		return "⟳", lipgloss.Color("#00AAFF")
	case st.Playing:
		return "▶", lipgloss.Color("#00FF00")
	case st.Status == reader.StatusPaused:
		return "⏸", lipgloss.Color("#FFFF00")
	case st.Status == reader.StatusIdle:
		return "○", lipgloss.Color("#666666")
	default:
		return "■", lipgloss.Color("#888888")
	}
}

// progressBar renders done/total as a bar of width cells.
func progressBar(done, total, width int, color lipgloss.TerminalColor) string {
	if total <= 0 || width < 10 {
		return ""
	}
	filled := min(width, done*width/total)
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(lipgloss.Color("#333333")).Render(strings.Repeat("░", width-filled))
}

// statusBar lays out logo, note, speed and help hint across width, the way
// the pager status bar does.
// statusBar renders the bottom bar. A message replaces the note for a while;
// errCount, when not empty, stays visible either way.
func statusBar(width int, note, errCount, speed string, message string, isError bool) string {
	logo := logoStyle(" inkami ")
	speed = statusBarSpeedStyle(" " + speed + " ")
	helpNote := statusBarHelpStyle(" ? Help ")
	if errCount != "" {
		errCount = statusBarErrorCountStyle(" " + errCount + " ")
	}

	style := statusBarNoteStyle
	if message != "" {
		note = message
		style = statusBarMessageStyle
		if isError {
			style = statusBarErrorStyle
		}
	}

	fixed := ansi.PrintableRuneWidth(logo) +
		ansi.PrintableRuneWidth(errCount) +
		ansi.PrintableRuneWidth(speed) +
		ansi.PrintableRuneWidth(helpNote)
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, width-fixed)), ellipsis) //nolint:gosec
	note = style(note)

	padding := max(0, width-fixed-ansi.PrintableRuneWidth(note))
	return fmt.Sprintf("%s%s%s%s%s%s", logo, note, style(strings.Repeat(" ", padding)), errCount, speed, helpNote)
}

// fillLines pads every line to width so the background covers it.
func fillLines(s string, width int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		n := max(width-ansi.PrintableRuneWidth(lines[i]), 0)
		lines[i] += strings.Repeat(" ", n)
	}
	return strings.Join(lines, "\n")
}
