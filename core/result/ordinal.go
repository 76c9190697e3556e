package result

import (
	"strconv"

	"github.com/trezcool/resultportal/core"
)

// Ordinal formats n with its English suffix: 1st, 2nd, 3rd, 4th, 11th, 12th, 13th, 21st...
func Ordinal(n int) string {
	suffix := "th"
	switch abs(n) % 100 {
	case 11, 12, 13:
	default:
		switch abs(n) % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

// NormalizeClassToken turns a raw class cell into its canonical form:
// purely numeric tokens become ordinals ("9" -> "9th"), anything else is trimmed and lower-cased.
// "9", "9th" and "9TH" all normalize to "9th".
func NormalizeClassToken(raw string) string {
	token := core.CleanString(raw, true /* lower */)
	if token == "" || !isDigits(token) {
		return token
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return token
	}
	return Ordinal(n)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
