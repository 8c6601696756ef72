package object

import (
	"strconv"
	"strings"
)

// parseIntLiteral accepts the integer shapes the language accepts: no
// decimal point and no exponent marker.
func parseIntLiteral(s string) (int64, bool) {
	if strings.ContainsAny(s, ".eE") {
		return 0, false
	}
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

func parseFloatLiteral(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
