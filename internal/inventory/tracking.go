package inventory

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// TrackingCode is the parsed form of a copy identifier: PREFIX/SEQUENCE/YEAR with an
// optional -SUBSEQ suffix used when the plain code is already taken.
type TrackingCode struct {
	Prefix   string
	Sequence int
	Year     int
	SubSeq   int
}

func (c TrackingCode) String() string {
	code := fmt.Sprintf("%s/%03d/%d", c.Prefix, c.Sequence, c.Year)
	if c.SubSeq > 0 {
		code += "-" + strconv.Itoa(c.SubSeq)
	}
	return code
}

// FormatTrackingCode builds the plain code for a copy number.
func FormatTrackingCode(prefix string, sequence, year int) string {
	return TrackingCode{Prefix: NormalizePrefix(prefix), Sequence: sequence, Year: year}.String()
}

// NormalizePrefix upper-cases the book code and drops characters that would break parsing.
func NormalizePrefix(prefix string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(prefix)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "BK"
	}
	return b.String()
}

// ParseTrackingCode splits a code back into its parts.
func ParseTrackingCode(code string) (TrackingCode, error) {
	parts := strings.Split(strings.TrimSpace(code), "/")
	if len(parts) != 3 || parts[0] == "" {
		return TrackingCode{}, fmt.Errorf("invalid tracking code %q: expected PREFIX/SEQUENCE/YEAR", code)
	}

	seq, err := strconv.Atoi(parts[1])
	if err != nil || seq <= 0 {
		return TrackingCode{}, fmt.Errorf("invalid tracking code %q: bad sequence", code)
	}

	yearPart, subPart, hasSub := strings.Cut(parts[2], "-")
	year, err := strconv.Atoi(yearPart)
	if err != nil || len(yearPart) != 4 {
		return TrackingCode{}, fmt.Errorf("invalid tracking code %q: bad year", code)
	}

	parsed := TrackingCode{Prefix: parts[0], Sequence: seq, Year: year}
	if hasSub {
		sub, err := strconv.Atoi(subPart)
		if err != nil || sub <= 0 {
			return TrackingCode{}, fmt.Errorf("invalid tracking code %q: bad suffix", code)
		}
		parsed.SubSeq = sub
	}
	return parsed, nil
}

// CodeExistsFunc reports whether a tracking code is already in use.
type CodeExistsFunc func(code string) (bool, error)

// maxSubSeq bounds the collision search.
const maxSubSeq = 99

// AllocateTrackingCode returns the first free code for the sequence, appending -1, -2, ...
// when the plain code collides with an existing copy.
func AllocateTrackingCode(prefix string, sequence, year int, exists CodeExistsFunc) (string, error) {
	code := TrackingCode{Prefix: NormalizePrefix(prefix), Sequence: sequence, Year: year}
	for sub := 0; sub <= maxSubSeq; sub++ {
		code.SubSeq = sub
		taken, err := exists(code.String())
		if err != nil {
			return "", fmt.Errorf("failed to check tracking code: %w", err)
		}
		if !taken {
			return code.String(), nil
		}
	}
	return "", fmt.Errorf("no free tracking code for %s/%03d/%d", code.Prefix, sequence, year)
}
