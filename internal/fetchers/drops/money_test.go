package drops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		amount float64
		want   string
	}{
		{0, "$0"},
		{999, "$999"},
		{1000, "$1.000"},
		{1234567, "$1.234.567"},
		{49900.6, "$49.901"},
		{-2500, "-$2.500"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatMoney(tc.amount), "amount %v", tc.amount)
	}
}

func TestFormatMoneyWithDecimals(t *testing.T) {
	assert.Equal(t, "$1.999,50", FormatMoneyWithDecimals(1999.5))
	assert.Equal(t, "$0,05", FormatMoneyWithDecimals(0.05))
	assert.Equal(t, "$120.000,00", FormatMoneyWithDecimals(120000))
}
