package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD and drops combining diacritical marks,
// so "Élodie" becomes "Elodie" before lowercasing.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// FormatName reduces a catalog or repack name to its canonical comparable
// form: accents stripped, lowercased, everything outside [a-z0-9] removed.
// Idempotent; empty input yields empty output.
func FormatName(name string) string {
	decomposed, _, err := transform.String(stripMarks, name)
	if err != nil {
		decomposed = name
	}
	lowered := strings.ToLower(decomposed)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatRepackName strips the "[DL]" tag repackers prepend to direct
// download entries, then formats like FormatName.
func FormatRepackName(name string) string {
	return FormatName(strings.Replace(name, "[DL]", "", 1))
}
