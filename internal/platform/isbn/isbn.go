// Package isbn normalises and checks ISBN-10 and ISBN-13 identifiers.
package isbn

import "strings"

// Clean strips hyphens and spaces and upper-cases a trailing x.
func Clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteByte('X')
		case r == '-' || r == ' ':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Digits keeps only the decimal digits of s. Used as the dedup key.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether s is an ISBN-10 or ISBN-13 with a correct check digit.
func Valid(s string) bool {
	c := Clean(s)
	switch len(c) {
	case 10:
		return valid10(c)
	case 13:
		return valid13(c)
	}
	return false
}

func valid10(c string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		ch := c[i]
		var d int
		switch {
		case ch >= '0' && ch <= '9':
			d = int(ch - '0')
		case ch == 'X' && i == 9:
			d = 10
		default:
			return false
		}
		sum += d * (10 - i)
	}
	return sum%11 == 0
}

func valid13(c string) bool {
	sum := 0
	for i := 0; i < 13; i++ {
		ch := c[i]
		if ch < '0' || ch > '9' {
			return false
		}
		d := int(ch - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return sum%10 == 0
}
