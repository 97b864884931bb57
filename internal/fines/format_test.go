package fines

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatter_Format(t *testing.T) {
	f := NewFormatter("KES", "en")
	assert.Equal(t, "KES 1,250.00", f.Format(decimal.NewFromInt(1250)))
	assert.Equal(t, "KES 0.50", f.Format(decimal.RequireFromString("0.5")))

	bare := NewFormatter("", "not a locale!")
	assert.Equal(t, "10.00", bare.Format(decimal.NewFromInt(10)))
}
