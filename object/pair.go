package object

import "github.com/zhuanglinsheng/tapas/terror"

// Pair is the two-element composite created by the `:` expression. It owns
// one reference to each composite half.
type Pair struct {
	RefCount
	first  Value
	second Value
}

// NewPair builds a pair, taking a reference to each composite half.
func NewPair(first, second Value) *Pair {
	p := &Pair{first: Nil(), second: Nil()}
	p.first.Set(first)
	p.second.Set(second)
	if first.IsCompo() {
		first.Compo().AddRef()
	}
	if second.IsCompo() {
		second.Compo().AddRef()
	}
	return p
}

func (p *Pair) First() Value  { return p.first }
func (p *Pair) Second() Value { return p.second }

// SetFirst replaces the first half, dropping the previous reference.
func (p *Pair) SetFirst(v Value) {
	if v.IsCompo() {
		v.Compo().AddRef()
	}
	p.first.DecRefClear()
	p.first.Set(v)
}

// SetSecond replaces the second half, dropping the previous reference.
func (p *Pair) SetSecond(v Value) {
	if v.IsCompo() {
		v.Compo().AddRef()
	}
	p.second.DecRefClear()
	p.second.Set(v)
}

func (p *Pair) TypeName() string { return "Pair" }
func (p *Pair) Kind() CompoKind  { return KindPair }
func (p *Pair) Len() int64       { return 2 }

func (p *Pair) Abbr() string { return pointerString(p.TypeName(), p) }

func (p *Pair) Full() string {
	return p.first.Abbr() + " : " + p.second.Abbr()
}

func (p *Pair) Copy() Composite {
	return NewPair(p.first, p.second)
}

func (p *Pair) Identical(v Composite) bool {
	if v == nil || v.Kind() != KindPair {
		return false
	}
	o := v.(*Pair)
	return p.first.Identical(o.first) && p.second.Identical(o.second)
}

func (p *Pair) Release() {
	p.first.DecRefClear()
	p.second.DecRefClear()
}

// Idx reads half 0 or 1.
func (p *Pair) Idx(params []Value, out *Value) {
	if len(params) != 1 {
		terror.Runtime(terror.RuntimeParamsCtr, "Pair.Idx", "1 parameter")
	}
	switch mustInt(&params[0], "Pair.Idx") {
	case 0:
		*out = p.first
	case 1:
		*out = p.second
	default:
		terror.Runtime(terror.RuntimeIdxOutRange, "Pair.Idx", "")
	}
}

// ISet writes half 0 or 1.
func (p *Pair) ISet(params []Value, v Value) {
	if len(params) != 1 {
		terror.Runtime(terror.RuntimeParamsCtr, "Pair.ISet", "1 parameter")
	}
	switch mustInt(&params[0], "Pair.ISet") {
	case 0:
		p.SetFirst(v)
	case 1:
		p.SetSecond(v)
	default:
		terror.Runtime(terror.RuntimeIdxOutRange, "Pair.ISet", "")
	}
}
