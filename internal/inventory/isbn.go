package inventory

import (
	"errors"
	"strings"
)

var ErrInvalidISBN = errors.New("invalid ISBN")

// NormalizeISBN strips separators and validates the checksum of an ISBN-10 or ISBN-13.
// The returned value is upper-case digits (with a trailing X allowed for ISBN-10).
func NormalizeISBN(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		switch {
		case r >= '0' && r <= '9', r == 'X':
			b.WriteRune(r)
		case r == '-' || r == ' ':
		default:
			return "", ErrInvalidISBN
		}
	}

	isbn := b.String()
	switch len(isbn) {
	case 10:
		if !validISBN10(isbn) {
			return "", ErrInvalidISBN
		}
	case 13:
		if !validISBN13(isbn) {
			return "", ErrInvalidISBN
		}
	default:
		return "", ErrInvalidISBN
	}
	return isbn, nil
}

func validISBN10(isbn string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		c := isbn[i]
		var v int
		switch {
		case c == 'X' && i == 9:
			v = 10
		case c >= '0' && c <= '9':
			v = int(c - '0')
		default:
			return false
		}
		sum += v * (10 - i)
	}
	return sum%11 == 0
}

func validISBN13(isbn string) bool {
	if !strings.HasPrefix(isbn, "978") && !strings.HasPrefix(isbn, "979") {
		return false
	}
	sum := 0
	for i := 0; i < 13; i++ {
		c := isbn[i]
		if c < '0' || c > '9' {
			return false
		}
		v := int(c - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return sum%10 == 0
}
