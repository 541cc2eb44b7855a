// Package textx provides small text utilities used across the project.
package textx

import (
	"regexp"
	"strings"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	// strip control chars outside tab/newline/carriage return
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

var (
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{2,}`)
)

// Normalize sanitizes s and canonicalizes its whitespace: horizontal runs
// become single spaces, every line is trimmed, blank-line runs become a
// single newline, and the whole result is trimmed.
func Normalize(s string) string {
	s = SanitizeText(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = spaceRuns.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimSpace(ln)
	}
	s = strings.Join(lines, "\n")
	s = newlineRuns.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
