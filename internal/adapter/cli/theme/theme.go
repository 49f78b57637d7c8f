// Package theme holds the terminal styles of the interactive client.
// Colors adapt to light and dark terminals; NO_COLOR is honored by lipgloss.
package theme

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#66bb6a"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#e65100", Dark: "#ffa726"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#0277bd", Dark: "#4fc3f7"}
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#6a1b9a", Dark: "#ce93d8"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}
)

// Symbols, switched to ASCII by InitSymbols on terminals without UTF-8.
var (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
	SymbolArrowR  = "→"
	SymbolBullet  = "•"
)

var (
	Bold = lipgloss.NewStyle().Bold(true)
	Dim  = lipgloss.NewStyle().Faint(true)

	TextSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	TextError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	TextWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	TextInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	TextMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
)

var (
	Prompt     = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true)
	ToolLabel  = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	ErrorLabel = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	Banner     = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
)

// MaxContentWidth is the word-wrap width for rendered answers.
const MaxContentWidth = 100
