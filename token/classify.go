package token

import (
	"strings"

	"github.com/zhuanglinsheng/tapas/lexer"
	"github.com/zhuanglinsheng/tapas/terror"
)

// Classify turns one preprocessed unit into its token. Patterns are tried
// in the fixed order described below; the first match wins.
func Classify(unit string) Token {
	unit = lexer.Trim(unit)
	if len(unit) == 0 {
		terror.Compile(terror.CompileInvalidLiter, "token.Classify", "empty liter")
	}

	// 1. literal keywords
	switch unit {
	case "true":
		return Token{Type: TRUE}
	case "false":
		return Token{Type: FALSE}
	case "this":
		return Token{Type: THIS}
	case "base":
		return Token{Type: BASE}
	case "continue":
		return Token{Type: CONTINUE}
	case "break":
		return Token{Type: BREAK}
	}

	// 2. statement prefixes with attached expressions
	if rest, ok := keywordPrefix(unit, "return"); ok {
		if rest == "" {
			return Token{Type: RETURN}
		}
		return Token{Type: RETURN, NVal: 1, V1: rest}
	}
	if rest, ok := keywordPrefix(unit, "var"); ok {
		return classifyDecl(VAR, rest)
	}
	if rest, ok := keywordPrefix(unit, "let"); ok {
		return classifyDecl(LET, rest)
	}
	if rest, ok := keywordPrefix(unit, "import"); ok {
		return classifyImport(rest)
	}

	// 3. control forms whose entire shape must match
	if tok, ok := classifyControl(unit); ok {
		return tok
	}

	// 4. assignment
	if tok, ok := classifyAssign(unit); ok {
		return tok
	}

	// 5. literal composites whose outer shape spans the unit
	if snap, loc, ok := lexer.FirstSingleQuote(unit); ok && loc == len(unit)-1 {
		return Token{Type: SSTR, NVal: 1, V1: snap}
	}
	if snap, loc, ok := lexer.FirstDoubleQuote(unit); ok && loc == len(unit)-1 {
		return Token{Type: DSTR, NVal: 1, V1: snap}
	}
	if snap, loc, ok := lexer.FirstBrace(unit); ok && loc == len(unit)-1 {
		return Token{Type: DICT, NVal: 1, V1: lexer.Trim(snap)}
	}
	if strings.HasPrefix(unit, "#{") {
		if snap, loc, ok := lexer.FirstBrace(unit[1:]); ok && loc == len(unit)-2 {
			return Token{Type: KAPPA, NVal: 1, V1: lexer.Trim(snap)}
		}
	}
	if params, loc, ok := lexer.FirstParen(unit); ok {
		rest := lexer.Trim(unit[loc+1:])
		if blk, bloc, bok := lexer.FirstBrace(rest); bok && bloc == len(rest)-1 {
			return Token{Type: FUNC, NVal: 2, V1: lexer.Trim(params), V2: lexer.Trim(blk)}
		}
	}

	// 6. binary operators, rightmost occurrence of the lowest Type wins
	if tok, ok := classifyBinary(unit); ok {
		return tok
	}

	// 7. trailing call and trailing index
	if args, loc, ok := lexer.LastParen(unit); ok && loc > 0 {
		callee := lexer.Trim(unit[:loc])
		callee, args = reformPipeline(callee, args)
		return Token{Type: EVAL, NVal: 2, V1: callee, V2: lexer.Trim(args)}
	}
	if args, loc, ok := lexer.LastBracket(unit); ok {
		return Token{Type: IDX, NVal: 2, V1: lexer.Trim(unit[:loc]), V2: lexer.Trim(args)}
	}

	// 8. read-only field access a::k
	if loc := topLevelLastIndex(unit, "::"); loc > 0 {
		return Token{Type: IDX2, NVal: 2, V1: lexer.Trim(unit[:loc]), V2: lexer.Trim(unit[loc+2:])}
	}

	// 9. atom; the compiler decides between literal and identifier
	return Token{Type: V, NVal: 1, V1: unit}
}

// keywordPrefix matches `kw` either alone or followed by a separator,
// returning the trimmed remainder.
func keywordPrefix(unit, kw string) (string, bool) {
	if unit == kw {
		return "", true
	}
	if len(unit) > len(kw) && strings.HasPrefix(unit, kw) && !lexer.IsIdentChar(unit[len(kw)]) {
		return lexer.Trim(unit[len(kw):]), true
	}
	return "", false
}

// classifyDecl handles `name[: type][= value]` after var/let.
func classifyDecl(t Type, rest string) Token {
	var name, typ, value string
	hasValue := false
	if eq := topLevelIndexByte(rest, '='); eq >= 0 {
		value = lexer.Trim(rest[eq+1:])
		rest = lexer.Trim(rest[:eq])
		hasValue = true
	}
	if colon := topLevelIndexByte(rest, ':'); colon >= 0 {
		typ = lexer.Trim(rest[colon+1:])
		rest = lexer.Trim(rest[:colon])
		if typ == "" {
			terror.Compile(terror.CompileVarNoType, "token.classifyDecl", rest)
		}
	}
	name = rest
	if !lexer.CheckVName(name) {
		terror.Compile(terror.CompileInvalidVName, "token.classifyDecl", name)
	}
	if hasValue {
		if value == "" {
			terror.Compile(terror.CompileInvalidLiter, "token.classifyDecl", "empty liter")
		}
		return Token{Type: t, NVal: 3, V1: name, V2: typ, V3: value}
	}
	return Token{Type: t, NVal: 1, V1: name, V2: typ}
}

// classifyImport handles `path [as alias]`. A quoted path loses its
// quotes.
func classifyImport(rest string) Token {
	path := rest
	alias := ""
	if loc := topLevelWordIndex(rest, "as"); loc >= 0 {
		path = lexer.Trim(rest[:loc])
		alias = lexer.Trim(rest[loc+2:])
		if !lexer.CheckVName(alias) {
			terror.Compile(terror.CompileInvalidVName, "token.classifyImport", alias)
		}
	}
	path = stripQuotes(path)
	if path == "" {
		terror.Compile(terror.CompileInvalidLiter, "token.classifyImport", "empty liter")
	}
	if alias != "" {
		return Token{Type: IMPORT, NVal: 2, V1: path, V2: alias}
	}
	return Token{Type: IMPORT, NVal: 1, V1: path}
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if s[0] == '\'' && s[len(s)-1] == '\'' || s[0] == '"' && s[len(s)-1] == '"' {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// classifyControl matches while/for/if/elif/else in full.
func classifyControl(unit string) (Token, bool) {
	if rest, ok := keywordPrefix(unit, "else"); ok {
		blk, loc, bok := lexer.FirstBrace(rest)
		if !bok || loc != len(rest)-1 {
			terror.Compile(terror.CompileInvalidLiter, "token.classifyControl", unit)
		}
		return Token{Type: ELSE, NVal: 1, V1: lexer.Trim(blk)}, true
	}
	for _, form := range []struct {
		kw string
		t  Type
	}{{"while", WHILE}, {"if", IF}, {"elif", ELIF}} {
		rest, ok := keywordPrefix(unit, form.kw)
		if !ok {
			continue
		}
		cond, loc, pok := lexer.FirstParen(rest)
		if !pok {
			terror.Compile(terror.CompileInvalidLiter, "token.classifyControl", unit)
		}
		body := lexer.Trim(rest[loc+1:])
		blk, bloc, bok := lexer.FirstBrace(body)
		if !bok || bloc != len(body)-1 {
			terror.Compile(terror.CompileInvalidLiter, "token.classifyControl", unit)
		}
		return Token{Type: form.t, NVal: 2, V1: lexer.Trim(cond), V2: lexer.Trim(blk)}, true
	}
	if rest, ok := keywordPrefix(unit, "for"); ok {
		head, loc, pok := lexer.FirstParen(rest)
		if !pok {
			terror.Compile(terror.CompileInvalidLiter, "token.classifyControl", unit)
		}
		inLoc := topLevelWordIndex(head, "in")
		if inLoc < 0 {
			terror.Compile(terror.CompileInvalidLiter, "token.classifyControl", unit)
		}
		name := lexer.Trim(head[:inLoc])
		iterable := lexer.Trim(head[inLoc+2:])
		if !lexer.CheckVName(name) {
			terror.Compile(terror.CompileInvalidVName, "token.classifyControl", name)
		}
		body := lexer.Trim(rest[loc+1:])
		blk, bloc, bok := lexer.FirstBrace(body)
		if !bok || bloc != len(body)-1 {
			terror.Compile(terror.CompileInvalidLiter, "token.classifyControl", unit)
		}
		return Token{Type: FOR, NVal: 3, V1: name, V2: iterable, V3: lexer.Trim(blk)}, true
	}
	return Token{}, false
}

// classifyAssign finds a top-level single `=` whose neighbours are not
// `=`, `>`, `<`, `!`.
func classifyAssign(unit string) (Token, bool) {
	eq := -1
	var ctr lexer.Counter
	for i := 0; i < len(unit); i++ {
		if !ctr.Independent() || unit[i] != '=' {
			ctr.Update(unit[i])
			continue
		}
		ctr.Update(unit[i])
		if i > 0 && strings.IndexByte("=><!", unit[i-1]) >= 0 {
			continue
		}
		if i+1 < len(unit) && unit[i+1] == '=' {
			i++ // skip both halves of ==
			ctr.Update(unit[i])
			continue
		}
		eq = i
		break
	}
	if eq <= 0 || eq == len(unit)-1 {
		return Token{}, false
	}
	left := lexer.Trim(unit[:eq])
	right := lexer.Trim(unit[eq+1:])
	if left == "" || right == "" {
		return Token{}, false
	}
	if args, loc, ok := lexer.LastBracket(left); ok && loc > 0 {
		return Token{Type: IDXL, NVal: 3, V1: lexer.Trim(left[:loc]), V2: lexer.Trim(args), V3: right}, true
	}
	return Token{Type: ASG, NVal: 2, V1: left, V2: right}, true
}

// binOpCandidate is one operator occurrence found in the scan.
type binOpCandidate struct {
	t   Type
	pos int
	n   int // symbol length
}

// symbolic operators, multi-character first so `>=` is not read as `>`.
var symOps = []struct {
	sym string
	t   Type
}{
	{"==", EQ}, {"!=", NE}, {">=", GE}, {"<=", LE},
	{">", SG}, {"<", SL}, {"+", ADD}, {"-", SUB},
	{"*", MUL}, {"/", DIV}, {"%", MOD}, {"@", MMUL}, {"^", POW},
	{":", PAIR},
}

var wordOps = []struct {
	word string
	t    Type
}{
	{"in", IN}, {"to", TO}, {"or", OR}, {"and", AND},
}

// classifyBinary runs the operator selection: every top-level operator
// position whose two sides are themselves balanced units is a candidate;
// the candidate with the lowest Type wins, rightmost on ties. A unit that
// parses as a number in full is never an operator expression — that is
// what keeps the minus inside `1e-3` from reading as subtraction.
func classifyBinary(unit string) (Token, bool) {
	if lexer.IsNumeric(unit) {
		return Token{}, false
	}
	var best *binOpCandidate
	consider := func(c binOpCandidate) {
		if best == nil || c.t < best.t || (c.t == best.t && c.pos > best.pos) {
			cc := c
			best = &cc
		}
	}
	var ctr lexer.Counter
	for i := 0; i < len(unit); i++ {
		if !ctr.Independent() {
			ctr.Update(unit[i])
			continue
		}
		matched := 0
		c := unit[i]
		if lexer.IsIdentChar(c) && (i == 0 || !lexer.IsIdentChar(unit[i-1])) {
			for _, w := range wordOps {
				end := i + len(w.word)
				if end <= len(unit) && unit[i:end] == w.word &&
					(end == len(unit) || !lexer.IsIdentChar(unit[end])) {
					if okSides(unit, i, len(w.word)) {
						consider(binOpCandidate{t: w.t, pos: i, n: len(w.word)})
					}
					break
				}
			}
		} else if !lexer.IsIdentChar(c) {
			for _, s := range symOps {
				end := i + len(s.sym)
				if end > len(unit) || unit[i:end] != s.sym {
					continue
				}
				if s.t == PAIR && (end < len(unit) && unit[end] == ':' || i > 0 && unit[i-1] == ':') {
					break // `::` is field access, not a pair
				}
				if s.t == SG && i > 0 && unit[i-1] == '=' {
					break // the tail of >=
				}
				if s.t == SL && i > 0 && unit[i-1] == '=' {
					break
				}
				if okSides(unit, i, len(s.sym)) {
					consider(binOpCandidate{t: s.t, pos: i, n: len(s.sym)})
				}
				matched = len(s.sym)
				break
			}
		}
		if matched > 1 {
			for k := 0; k < matched; k++ {
				ctr.Update(unit[i+k])
			}
			i += matched - 1
			continue
		}
		ctr.Update(unit[i])
	}
	if best == nil {
		return Token{}, false
	}
	left := lexer.Preprocess(unit[:best.pos])
	right := lexer.Preprocess(unit[best.pos+best.n:])
	return Token{Type: best.t, NVal: 2, V1: left, V2: right}, true
}

// okSides accepts an operator occurrence only when both sides are
// non-empty balanced units.
func okSides(unit string, pos, n int) bool {
	left := lexer.Trim(unit[:pos])
	right := lexer.Trim(unit[pos+n:])
	if left == "" || right == "" {
		return false
	}
	return lexer.CheckComplete(left) && lexer.CheckComplete(right)
}

// reformPipeline rewrites a.f(x, y) into f(a, x, y).
func reformPipeline(fname, params string) (string, string) {
	loc := topLevelLastIndex(fname, ".")
	if loc < 0 {
		return fname, params
	}
	receiver := fname[:loc]
	fn := fname[loc+1:]
	if params == "" {
		return fn, receiver
	}
	return fn, receiver + "," + params
}

// topLevelIndexByte finds the first top-level occurrence of b.
func topLevelIndexByte(s string, b byte) int {
	var ctr lexer.Counter
	for i := 0; i < len(s); i++ {
		if ctr.Independent() && s[i] == b {
			return i
		}
		ctr.Update(s[i])
	}
	return -1
}

// topLevelLastIndex finds the last top-level occurrence of sub.
func topLevelLastIndex(s, sub string) int {
	var ctr lexer.Counter
	found := -1
	for i := 0; i+len(sub) <= len(s); i++ {
		if ctr.Independent() && s[i:i+len(sub)] == sub {
			found = i
		}
		ctr.Update(s[i])
	}
	return found
}

// topLevelWordIndex finds the first top-level occurrence of word with
// identifier boundaries on both sides.
func topLevelWordIndex(s, word string) int {
	var ctr lexer.Counter
	for i := 0; i+len(word) <= len(s); i++ {
		if ctr.Independent() && s[i:i+len(word)] == word &&
			(i == 0 || !lexer.IsIdentChar(s[i-1])) &&
			(i+len(word) == len(s) || !lexer.IsIdentChar(s[i+len(word)])) {
			return i
		}
		ctr.Update(s[i])
	}
	return -1
}
