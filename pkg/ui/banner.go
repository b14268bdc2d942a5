package ui

import (
	"strings"

	"github.com/srodi/procscore/pkg/types"
)

const (
	reset       = "\033[0m"
	bold        = "\033[1m"
	defaultFg   = "\033[39m"
	red         = "\033[31m"
	yellow      = "\033[33m"
	green       = "\033[32m"
	beeYellow   = "\033[38;5;226m"
	honeyOrange = "\033[38;5;214m"
	mint        = "\033[38;5;121m"
	cobalt      = "\033[38;5;33m"
	deepIndigo  = "\033[38;5;61m"
	fuchsia     = "\033[38;5;177m"
	flame       = "\033[38;5;208m"

	// ClearScreen moves the cursor home and clears the terminal.
	ClearScreen = "\033[H\033[2J"
)

// Banner renders a colored procscore wordmark.
func Banner() string {
	var b strings.Builder

	letters := [][]string{
		{"██████╗ ", "██╔══██╗", "██████╔╝", "██╔═══╝ ", "██║     ", "╚═╝     "},
		{"██████╗ ", "██╔══██╗", "██████╔╝", "██╔══██╗", "██║  ██║", "╚═╝  ╚═╝"},
		{" ██████╗ ", "██╔═══██╗", "██║   ██║", "██║   ██║", "╚██████╔╝", " ╚═════╝ "},
		{" ██████╗", "██╔════╝", "██║     ", "██║     ", "╚██████╗", " ╚═════╝"},
		{"███████╗", "██╔════╝", "███████╗", "╚════██║", "███████║", "╚══════╝"},
		{" ██████╗", "██╔════╝", "██║     ", "██║     ", "╚██████╗", " ╚═════╝"},
		{" ██████╗ ", "██╔═══██╗", "██║   ██║", "██║   ██║", "╚██████╔╝", " ╚═════╝ "},
		{"██████╗ ", "██╔══██╗", "██████╔╝", "██╔══██╗", "██║  ██║", "╚═╝  ╚═╝"},
		{"███████╗", "██╔════╝", "█████╗  ", "██╔══╝  ", "███████╗", "╚══════╝"},
	}
	gradient := []string{flame, honeyOrange, beeYellow, mint, cobalt, deepIndigo, fuchsia}
	rows := make([]string, len(letters[0]))
	for i, letter := range letters {
		color := gradient[i%len(gradient)]
		for row := 0; row < len(letter); row++ {
			rows[row] += color + letter[row] + " "
		}
	}
	for _, line := range rows {
		b.WriteString(bold + line + reset + "\n")
	}

	b.WriteString("\n")
	b.WriteString(bold + flame + "procscore" + reset + "  •  process behavior scoring\n\n")

	return b.String()
}

// Tier wraps a tier label in its color. Every tier and the header carry the same number of
// escape bytes so tabwriter columns stay aligned.
func Tier(t types.Tier) string {
	switch t {
	case types.TierHigh:
		return red + t.String() + reset
	case types.TierMedium:
		return yellow + t.String() + reset
	default:
		return green + t.String() + reset
	}
}

// Plain wraps s in escapes of the same width as Tier without changing its color.
func Plain(s string) string {
	return defaultFg + s + reset
}

// Alert renders s in red, for rows that crossed the watch threshold.
func Alert(s string) string {
	return red + s + reset
}
