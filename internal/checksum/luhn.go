// Package checksum validates payment card numbers.
package checksum

import "strings"

const (
	minDigits = 13
	maxDigits = 19
)

// Clean strips the spaces and dashes card numbers are commonly written with.
// Any other character is preserved so Valid can reject it.
func Clean(number string) string {
	var b strings.Builder
	b.Grow(len(number))
	for _, r := range number {
		if r == ' ' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Valid reports whether number passes the Luhn mod-10 check.
// Separators are ignored; non-digits and lengths outside 13..19 fail.
func Valid(number string) bool {
	digits := Clean(number)
	if len(digits) < minDigits || len(digits) > maxDigits {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// Mask hides all but the first six and last four digits.
// Short or malformed input is fully masked.
func Mask(number string) string {
	digits := Clean(number)
	if len(digits) < minDigits {
		return strings.Repeat("*", len(digits))
	}
	return digits[:6] + strings.Repeat("*", len(digits)-10) + digits[len(digits)-4:]
}
