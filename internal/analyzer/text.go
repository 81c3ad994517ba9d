package analyzer

import (
	"strings"
	"time"
	"unicode"
)

// matchPhrases returns the phrases found in text as whole words, in list order.
// Matching is case-insensitive.
func matchPhrases(text string, phrases []string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if containsWord(lower, p) {
			found = append(found, p)
		}
	}
	return found
}

func containsWord(text, phrase string) bool {
	start := 0
	for {
		i := strings.Index(text[start:], phrase)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(phrase)
		if boundary(text, i-1) && boundary(text, end) {
			return true
		}
		start = i + 1
	}
}

func boundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	c := rune(text[i])
	return !(unicode.IsLetter(c) || unicode.IsDigit(c))
}

// alnumUpper keeps letters and digits and uppercases them.
func alnumUpper(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// formatWindow renders a duration without trailing zero units.
func formatWindow(d time.Duration) string {
	switch {
	case d <= 0:
		return "window"
	case d%time.Hour == 0:
		return strings.TrimSuffix(d.String(), "0m0s")
	case d%time.Minute == 0:
		return strings.TrimSuffix(d.String(), "0s")
	}
	return d.String()
}
