package onboarding

import (
	"math"
	"strconv"
	"strings"
)

// FormatRupees renders an amount with Indian digit grouping, e.g. ₹12,50,000.
func FormatRupees(amount float64) string {
	neg := amount < 0
	amount = math.Abs(amount)

	whole := math.Floor(amount)
	frac := math.Round((amount - whole) * 100)
	if frac >= 100 {
		whole++
		frac = 0
	}

	digits := strconv.FormatFloat(whole, 'f', 0, 64)

	var b strings.Builder
	if len(digits) > 3 {
		head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
		for i, r := range head {
			if i > 0 && (len(head)-i)%2 == 0 {
				b.WriteByte(',')
			}
			b.WriteRune(r)
		}
		b.WriteByte(',')
		b.WriteString(tail)
	} else {
		b.WriteString(digits)
	}

	if frac > 0 {
		b.WriteString(strings.TrimRight("."+strconv.FormatFloat(frac/100, 'f', 2, 64)[2:], "0"))
	}

	out := "₹" + b.String()
	if neg {
		out = "-" + out
	}

	return out
}
