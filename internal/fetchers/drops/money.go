package drops

import (
	"math"
	"strconv"
	"strings"
)

// FormatMoney renders amount as a whole-peso price with dot thousands separators,
// e.g. 1234567 -> "$1.234.567".
func FormatMoney(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "$0"
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + "$" + groupThousands(strconv.FormatInt(int64(math.Round(amount)), 10))
}

// FormatMoneyWithDecimals renders amount with two decimals: 1999.5 -> "$1.999,50".
func FormatMoneyWithDecimals(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "$0,00"
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	cents := int64(math.Round(amount * 100))
	whole := strconv.FormatInt(cents/100, 10)
	frac := strconv.FormatInt(cents%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return sign + "$" + groupThousands(whole) + "," + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
