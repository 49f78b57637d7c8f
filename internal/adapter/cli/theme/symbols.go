package theme

import (
	"os"
	"strings"
)

// EnvASCIISymbols forces ASCII symbols when set to 1 or true.
const EnvASCIISymbols = "MCPCHAT_ASCII_SYMBOLS"

// SymbolSet holds the UI symbols for one terminal capability level.
type SymbolSet struct {
	Success string
	Error   string
	Warning string
	ArrowR  string
	Bullet  string
}

var unicodeSymbols = SymbolSet{
	Success: "\u2713", // ✓
	Error:   "\u2717", // ✗
	Warning: "\u26A0", // ⚠
	ArrowR:  "\u2192", // →
	Bullet:  "\u2022", // •
}

var asciiSymbols = SymbolSet{
	Success: "[OK]",
	Error:   "[ERR]",
	Warning: "[!]",
	ArrowR:  "->",
	Bullet:  "*",
}

// DetectUnicodeSupport reports whether the terminal likely renders Unicode.
// The MCPCHAT_ASCII_SYMBOLS override wins over locale detection.
func DetectUnicodeSupport() bool {
	if v := os.Getenv(EnvASCIISymbols); v == "1" || strings.EqualFold(v, "true") {
		return false
	}
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		val := strings.ToLower(os.Getenv(key))
		if strings.Contains(val, "utf-8") || strings.Contains(val, "utf8") {
			return true
		}
	}
	return true
}

// InitSymbols sets the Symbol* variables for the current terminal.
func InitSymbols() {
	set := unicodeSymbols
	if !DetectUnicodeSupport() {
		set = asciiSymbols
	}
	SymbolSuccess = set.Success
	SymbolError = set.Error
	SymbolWarning = set.Warning
	SymbolArrowR = set.ArrowR
	SymbolBullet = set.Bullet
}

func init() {
	InitSymbols()
}
