package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

// TrimAndNormalize trims s and collapses every whitespace run to one space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		result.WriteRune(r)
		lastWasSpace = false
	}

	return result.String()
}

// stripControl drops non-printable runes, keeping newlines and tabs.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, s)
}

func trimLines(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = TrimAndNormalize(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// SanitizeAddress keeps a delivery address on a single line.
func SanitizeAddress(input string) string {
	return Pipeline{stripControl, TrimAndNormalize}.Apply(input)
}

// SanitizeNotes keeps line breaks but drops blank lines and control runes.
func SanitizeNotes(input string) string {
	return Pipeline{stripControl, trimLines}.Apply(input)
}

// SanitizeCurrency lowercases an ISO 4217 code the way the payment gateway
// expects it.
func SanitizeCurrency(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}
