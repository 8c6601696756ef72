// Package lexer segments Tapas source text into units: the maximal
// substrings balanced in parentheses, brackets, braces and quotes,
// terminated by a newline, end-of-input or an unquoted semicolon.
package lexer

import (
	"strings"
)

// Counter tracks bracket and quote balance over a character stream. The
// bracket counters are signed because user source may well close before it
// opens.
type Counter struct {
	paren   int
	bracket int
	brace   int
	squote  int
	dquote  int
}

// Restore zeroes every counter.
func (c *Counter) Restore() {
	*c = Counter{}
}

// Update feeds one character through the counters.
func (c *Counter) Update(ch byte) {
	switch ch {
	case '(':
		if c.OutOfString() {
			c.paren++
		}
	case ')':
		if c.OutOfString() {
			c.paren--
		}
	case '[':
		if c.OutOfString() {
			c.bracket++
		}
	case ']':
		if c.OutOfString() {
			c.bracket--
		}
	case '{':
		if c.OutOfString() {
			c.brace++
		}
	case '}':
		if c.OutOfString() {
			c.brace--
		}
	case '\'':
		if c.dquote == 0 {
			c.squote = 1 - c.squote
		}
	case '"':
		if c.squote == 0 {
			c.dquote = 1 - c.dquote
		}
	}
}

// UpdateString feeds a whole string through the counters.
func (c *Counter) UpdateString(s string) {
	for i := 0; i < len(s); i++ {
		c.Update(s[i])
	}
}

func (c *Counter) OutOfString() bool {
	return c.squote == 0 && c.dquote == 0
}

// Independent reports that the stream seen so far is balanced in every
// bracket system and outside any quote.
func (c *Counter) Independent() bool {
	return c.paren == 0 && c.bracket == 0 && c.brace == 0 && c.OutOfString()
}

// Trim removes leading and trailing whitespace, including newlines.
func Trim(s string) string {
	return strings.Trim(s, " \t\r\n")
}

// TrimBack removes trailing whitespace only.
func TrimBack(s string) string {
	return strings.TrimRight(s, " \t\r\n")
}

// FolderOf returns the directory part of a file location, with the path
// separator convention the search-path pool uses (';'-terminated).
func FolderOf(filepath string) string {
	idx := strings.LastIndexAny(filepath, "/\\")
	if idx < 0 {
		return ";"
	}
	return filepath[:idx] + ";"
}

// StripComment removes everything from the first `//` to the end of line.
func StripComment(line string) string {
	for i := 0; i+1 < len(line); i++ {
		if line[i] == '/' && line[i+1] == '/' {
			return line[:i]
		}
	}
	return line
}

// NegativeToSubtraction rewrites a leading unary minus into an explicit
// subtraction from zero so downstream stages need no special case.
func NegativeToSubtraction(cmds string) string {
	cmds = Trim(cmds)
	if len(cmds) > 0 && cmds[0] == '-' {
		return "(0" + cmds + ")"
	}
	return cmds
}

// RemoveOuterParens strips a parenthesis pair wrapping the whole unit, if
// the pair actually balances across it.
func RemoveOuterParens(cmds string) (string, bool) {
	return removeOuter(cmds, '(', ')')
}

// RemoveOuterBrackets strips a bracket pair wrapping the whole unit.
func RemoveOuterBrackets(cmds string) (string, bool) {
	return removeOuter(cmds, '[', ']')
}

// RemoveOuterBraces strips a brace pair wrapping the whole unit.
func RemoveOuterBraces(cmds string) (string, bool) {
	return removeOuter(cmds, '{', '}')
}

func removeOuter(cmds string, open, close byte) (string, bool) {
	cmds = Trim(cmds)
	n := len(cmds)
	if n < 2 || cmds[0] != open || cmds[n-1] != close {
		return cmds, false
	}
	// `(a) + (b)` keeps its parentheses: the leading pair closes early.
	var ctr Counter
	ctr.Update(open)
	for i := 1; i < n-1; i++ {
		ctr.Update(cmds[i])
		if ctr.Independent() {
			return cmds, false
		}
	}
	return Trim(cmds[1 : n-1]), true
}

// CheckComplete reports whether cmd is balanced as a whole.
func CheckComplete(cmd string) bool {
	var ctr Counter
	ctr.UpdateString(cmd)
	return ctr.Independent()
}

// Preprocess applies the standard unit rewrites: leading unary minus,
// outer-parenthesis removal, trimming.
func Preprocess(fullcmd string) string {
	fullcmd = NegativeToSubtraction(fullcmd)
	fullcmd, _ = RemoveOuterParens(fullcmd)
	return Trim(fullcmd)
}

// split divides str at top-level occurrences of sep, dropping empty
// pieces.
func split(str string, sep byte) []string {
	cmds := Trim(str)
	var units []string
	var ctr Counter
	record := 0
	for i := 0; i < len(cmds); i++ {
		ctr.Update(cmds[i])
		if !ctr.Independent() {
			continue
		}
		if cmds[i] == sep {
			if snap := Trim(cmds[record:i]); len(snap) > 0 {
				units = append(units, snap)
			}
			record = i + 1
		}
	}
	if snap := Trim(cmds[record:]); len(snap) > 0 {
		units = append(units, snap)
	}
	return units
}

// SplitUnitsBySemicolon divides str at top-level semicolons and
// preprocesses each unit, discarding empties.
func SplitUnitsBySemicolon(str string) []string {
	var units []string
	for _, u := range split(str, ';') {
		u = Preprocess(u)
		if len(u) > 0 {
			units = append(units, u)
		}
	}
	return units
}

// SplitByComma divides a parameter list at top-level commas, preprocessing
// each piece.
func SplitByComma(str string) []string {
	raw := split(str, ',')
	params := make([]string, 0, len(raw))
	for _, p := range raw {
		params = append(params, Preprocess(p))
	}
	return params
}

// LexString splits source text into preprocessed units.
func LexString(str string) []string {
	var units []string
	var unit strings.Builder
	var ctr Counter
	for _, line := range strings.Split(str, "\n") {
		line = TrimBack(StripComment(line))
		ctr.UpdateString(line)
		unit.WriteString(line + "\n")
		if ctr.Independent() {
			units = append(units, SplitUnitsBySemicolon(Trim(unit.String()))...)
			unit.Reset()
		}
	}
	return units
}

// LexMarkdown extracts units from the fenced code blocks of a Markdown
// file. Fences tagged `tapas` / `Tapas` (with or without braces) open a
// block; a bare fence opens one too, and also closes whichever block is
// active.
func LexMarkdown(str string) []string {
	var units []string
	var unit strings.Builder
	var ctr Counter
	inBlock := false
	for _, line := range strings.Split(str, "\n") {
		stripped := StripComment(line)
		trimmed := Trim(stripped)
		if !inBlock {
			switch trimmed {
			case "```", "```tapas", "```Tapas", "```{tapas}", "```{Tapas}":
				inBlock = true
			}
			continue
		}
		if trimmed == "```" {
			inBlock = false
			continue
		}
		backTrimmed := TrimBack(stripped)
		ctr.UpdateString(backTrimmed)
		unit.WriteString(backTrimmed + "\n")
		if ctr.Independent() {
			units = append(units, SplitUnitsBySemicolon(Trim(unit.String()))...)
			unit.Reset()
		}
	}
	return units
}

// FirstParen extracts `xxx` from `(xxx)yyy`, returning the index of the
// closing parenthesis.
func FirstParen(str string) (snap string, loc int, ok bool) {
	return firstDelim(str, '(')
}

// LastParen extracts `xxx` from `yyy(xxx)`, returning the index of the
// opening parenthesis.
func LastParen(str string) (snap string, loc int, ok bool) {
	return lastDelim(str, ')')
}

// FirstBracket extracts `xxx` from `[xxx]yyy`.
func FirstBracket(str string) (snap string, loc int, ok bool) {
	return firstDelim(str, '[')
}

// LastBracket extracts `xxx` from `yyy[xxx]`.
func LastBracket(str string) (snap string, loc int, ok bool) {
	return lastDelim(str, ']')
}

// FirstBrace extracts `xxx` from `{xxx}yyy`.
func FirstBrace(str string) (snap string, loc int, ok bool) {
	return firstDelim(str, '{')
}

// LastBrace extracts `xxx` from `yyy{xxx}`.
func LastBrace(str string) (snap string, loc int, ok bool) {
	return lastDelim(str, '}')
}

// FirstSingleQuote extracts `xxx` from `'xxx'yyy`.
func FirstSingleQuote(str string) (snap string, loc int, ok bool) {
	return firstDelim(str, '\'')
}

// FirstDoubleQuote extracts `xxx` from `"xxx"yyy`.
func FirstDoubleQuote(str string) (snap string, loc int, ok bool) {
	return firstDelim(str, '"')
}

func firstDelim(str string, open byte) (string, int, bool) {
	if len(str) == 0 || str[0] != open {
		return "", 0, false
	}
	var ctr Counter
	for i := 0; i < len(str); i++ {
		ctr.Update(str[i])
		if ctr.Independent() {
			return str[1:i], i, true
		}
	}
	return "", 0, false
}

func lastDelim(str string, close byte) (string, int, bool) {
	n := len(str)
	if n == 0 || str[n-1] != close {
		return "", 0, false
	}
	var ctr Counter
	for i := n - 1; i >= 0; i-- {
		ctr.Update(str[i])
		if ctr.Independent() {
			return str[i+1 : n-1], i, true
		}
	}
	return "", 0, false
}
