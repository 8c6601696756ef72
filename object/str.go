package object

import (
	"strings"

	"github.com/zhuanglinsheng/tapas/terror"
)

// Str is the mutable string composite created by quoted literals.
type Str struct {
	RefCount
	s string
}

func NewStr(s string) *Str {
	return &Str{s: s}
}

func (s *Str) String() string   { return s.s }
func (s *Str) TypeName() string { return "String" }
func (s *Str) Kind() CompoKind  { return KindStr }
func (s *Str) Abbr() string     { return s.s }
func (s *Str) Full() string     { return s.s }
func (s *Str) Len() int64       { return int64(len(s.s)) }
func (s *Str) Copy() Composite  { return NewStr(s.s) }
func (s *Str) Release()         {}

func (s *Str) Identical(v Composite) bool {
	if v == nil || v.Kind() != KindStr {
		return false
	}
	return v.(*Str).s == s.s
}

func (s *Str) idxInt(idx int64, out *Value) {
	if idx < 0 || idx >= int64(len(s.s)) {
		terror.Runtime(terror.RuntimeIdxOutRange, "Str.idxInt", "")
	}
	out.SetCompo(NewStr(s.s[idx : idx+1]))
}

func (s *Str) idxPair(p *Pair, out *Value) {
	first, second := p.First(), p.Second()
	v1 := mustInt(&first, "Str.idxPair")
	v2 := mustInt(&second, "Str.idxPair")
	if v1 < 0 || v2 < 0 {
		terror.Runtime(terror.RuntimeIdxOutRange, "Str.idxPair", "")
	}
	if v1 > v2 {
		terror.Runtime(terror.RuntimeInvalidIndex, "Str.idxPair", "")
	}
	if v2 > int64(len(s.s)) {
		terror.Runtime(terror.RuntimeIdxOutRange, "Str.idxPair", "")
	}
	out.SetCompo(NewStr(s.s[v1:v2]))
}

// Idx reads one character by int index or a substring by pair.
func (s *Str) Idx(params []Value, out *Value) {
	if len(params) != 1 {
		terror.Runtime(terror.RuntimeParamsCtr, "Str.Idx", "1 parameter")
	}
	switch params[0].Type() {
	case TInt:
		s.idxInt(params[0].Int(), out)
	case TCompo:
		p, ok := params[0].Compo().(*Pair)
		if !ok {
			terror.Runtime(terror.RuntimeParamsType, "Str.Idx", "type unsupported")
		}
		s.idxPair(p, out)
	default:
		terror.Runtime(terror.RuntimeParamsType, "Str.Idx", "type unsupported")
	}
}

// ISet replaces one character or a same-length span by a string value.
func (s *Str) ISet(params []Value, v Value) {
	if !v.IsCompo() || v.Compo().Kind() != KindStr {
		terror.Runtime(terror.RuntimeRefType, "Str.ISet", "should be 'String'")
	}
	repl := v.Compo().(*Str)
	if len(params) != 1 {
		terror.Runtime(terror.RuntimeParamsCtr, "Str.ISet", "1 parameter")
	}
	switch params[0].Type() {
	case TInt:
		idx := params[0].Int()
		if idx < 0 || idx >= int64(len(s.s)) {
			terror.Runtime(terror.RuntimeIdxOutRange, "Str.ISet", "idx out of scope")
		}
		if len(repl.s) != 1 {
			terror.Runtime(terror.RuntimeLenInconsis, "Str.ISet", "len inconsistency")
		}
		s.s = s.s[:idx] + repl.s + s.s[idx+1:]
	case TCompo:
		p, ok := params[0].Compo().(*Pair)
		if !ok {
			terror.Runtime(terror.RuntimeParamsType, "Str.ISet", "unsupported")
		}
		first, second := p.First(), p.Second()
		v1 := mustInt(&first, "Str.ISet")
		v2 := mustInt(&second, "Str.ISet")
		if v1 < 0 || v2 < 0 || v1 > int64(len(s.s)) || v2 > int64(len(s.s)) {
			terror.Runtime(terror.RuntimeIdxOutRange, "Str.ISet", "")
		}
		if v1 > v2 {
			terror.Runtime(terror.RuntimeInvalidIndex, "Str.ISet", "")
		}
		if v2-v1 != int64(len(repl.s)) {
			terror.Runtime(terror.RuntimeLenInconsis, "Str.ISet", "")
		}
		s.s = s.s[:v1] + repl.s + s.s[v2:]
	default:
		terror.Runtime(terror.RuntimeParamsType, "Str.ISet", "unsupported")
	}
}

// Append renders ele and appends it.
func (s *Str) Append(ele *Value) {
	if ele.Type() == TNil {
		return
	}
	s.s += ele.Abbr()
}

// Insert renders ele and inserts it at loc.
func (s *Str) Insert(ele *Value, loc int64) {
	if loc < 0 || loc > int64(len(s.s)) {
		terror.Runtime(terror.RuntimeIdxOutRange, "Str.Insert", "")
	}
	if ele.Type() == TNil {
		return
	}
	s.s = s.s[:loc] + ele.Abbr() + s.s[loc:]
}

// Pop drops the last character.
func (s *Str) Pop() {
	if len(s.s) == 0 {
		terror.Runtime(terror.RuntimeRefEmptySet, "Str.Pop", "")
	}
	s.s = s.s[:len(s.s)-1]
}

// Delete removes the character at loc.
func (s *Str) Delete(loc int64) {
	if loc < 0 || loc >= int64(len(s.s)) {
		terror.Runtime(terror.RuntimeIdxOutRange, "Str.Delete", "")
	}
	s.s = s.s[:loc] + s.s[loc+1:]
}

// DeleteRange removes [start, to).
func (s *Str) DeleteRange(start, to Value) {
	if start.Type() != TInt || to.Type() != TInt {
		terror.Runtime(terror.RuntimeRefType, "Str.DeleteRange", "")
	}
	i, j := start.Int(), to.Int()
	if i < 0 || j < 0 || i > j || j > int64(len(s.s)) {
		terror.Runtime(terror.RuntimeIdxOutRange, "Str.DeleteRange", "")
	}
	s.s = s.s[:i] + s.s[j:]
}

// ToBool parses "true" / "false".
func (s *Str) ToBool() bool {
	switch s.s {
	case "true":
		return true
	case "false":
		return false
	}
	terror.Runtime(terror.RuntimeStringEval, "Str.ToBool", s.s)
	return false
}

// ToInt parses an integer literal.
func (s *Str) ToInt() int64 {
	if i, ok := parseIntLiteral(s.s); ok {
		return i
	}
	terror.Runtime(terror.RuntimeStringEval, "Str.ToInt", s.s)
	return 0
}

// ToFloat parses a float literal.
func (s *Str) ToFloat() float64 {
	if f, ok := parseFloatLiteral(s.s); ok {
		return f
	}
	terror.Runtime(terror.RuntimeStringEval, "Str.ToFloat", s.s)
	return 0
}

// BinOp implements string concatenation for `+` in both directions.
func (s *Str) BinOp(op BinOp, v Value, rev bool) (Value, bool) {
	if op != OpAdd {
		return Nil(), false
	}
	var b strings.Builder
	if rev {
		b.WriteString(v.Abbr())
		b.WriteString(s.s)
	} else {
		b.WriteString(s.s)
		b.WriteString(v.Abbr())
	}
	return Compo(NewStr(b.String())), true
}
