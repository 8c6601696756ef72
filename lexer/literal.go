package lexer

import (
	"strconv"
	"strings"
)

// keywords reserved from identifier space.
var keywords = map[string]bool{
	"var": true, "let": true, "of": true, "nil": true,
	"true": true, "false": true, "this": true, "base": true,
	"to": true, "in": true, "and": true, "or": true,
	"if": true, "elif": true, "else": true,
	"for": true, "while": true, "break": true, "continue": true,
	"return": true, "import": true, "as": true,
}

// IsKeyword reports whether s is a reserved word.
func IsKeyword(s string) bool {
	return keywords[s]
}

func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// IsIdentChar reports whether c may appear in an identifier.
func IsIdentChar(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '_'
}

// CheckVName reports whether str is a legal variable name: not a keyword,
// not digit-led, and made of letters, digits and underscores only.
func CheckVName(str string) bool {
	if len(str) == 0 || IsKeyword(str) || isDigit(str[0]) {
		return false
	}
	for i := 0; i < len(str); i++ {
		if !IsIdentChar(str[i]) {
			return false
		}
	}
	return true
}

// ParseIntLiteral accepts integer literals: no decimal point, no exponent
// marker.
func ParseIntLiteral(s string) (int64, bool) {
	if strings.ContainsAny(s, ".eE") {
		return 0, false
	}
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

// ParseFloatLiteral accepts float literals, including scientific notation.
func ParseFloatLiteral(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// IsNumeric reports whether s parses as an int or float literal.
func IsNumeric(s string) bool {
	if _, ok := ParseIntLiteral(s); ok {
		return true
	}
	_, ok := ParseFloatLiteral(s)
	return ok
}
