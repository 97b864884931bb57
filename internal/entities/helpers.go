package entities

import (
	"strconv"
	"strings"
)

func joinName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
