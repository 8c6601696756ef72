package object

import (
	"strings"

	"github.com/zhuanglinsheng/tapas/terror"
)

// List is the vector composite created by `[...]` literals. It owns one
// reference to every composite element and carries an iteration cursor for
// the for-loop protocol.
type List struct {
	RefCount
	elems []Value
	idxi  int64
}

func NewList() *List {
	return &List{}
}

// NewListOf builds a list from elems, taking a reference to each composite
// element.
func NewListOf(elems []Value) *List {
	l := &List{elems: make([]Value, len(elems))}
	for i := range elems {
		l.elems[i].Set(elems[i])
		if elems[i].IsCompo() {
			elems[i].Compo().AddRef()
		}
	}
	return l
}

func (l *List) TypeName() string { return "List" }
func (l *List) Kind() CompoKind  { return KindList }
func (l *List) Len() int64       { return int64(len(l.elems)) }

func (l *List) At(i int64) Value { return l.elems[i] }

func (l *List) Abbr() string {
	var b strings.Builder
	b.WriteString("[")
	for i := range l.elems {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(l.elems[i].Abbr())
	}
	b.WriteString("]")
	return b.String()
}

func (l *List) Full() string { return l.Abbr() }

func (l *List) Copy() Composite {
	cp := &List{elems: make([]Value, len(l.elems))}
	for i := range l.elems {
		if l.elems[i].IsCompo() {
			cp.elems[i] = Compo(l.elems[i].Compo().Copy())
			cp.elems[i].Compo().AddRef()
		} else {
			cp.elems[i] = l.elems[i]
		}
	}
	return cp
}

func (l *List) Identical(v Composite) bool {
	if v == nil || v.Kind() != KindList {
		return false
	}
	o := v.(*List)
	if len(o.elems) != len(l.elems) {
		return false
	}
	for i := range l.elems {
		if !l.elems[i].Identical(o.elems[i]) {
			return false
		}
	}
	return true
}

func (l *List) Release() {
	for i := range l.elems {
		l.elems[i].DecRefClear()
	}
	l.elems = nil
}

func (l *List) idxInt(idx int64, out *Value) {
	if idx < 0 || idx >= int64(len(l.elems)) {
		terror.Runtime(terror.RuntimeIdxOutRange, "List.idxInt", "")
	}
	*out = l.elems[idx]
}

func (l *List) idxPair(p *Pair, out *Value) {
	first, second := p.First(), p.Second()
	v1 := mustInt(&first, "List.idxPair")
	v2 := mustInt(&second, "List.idxPair")
	if v1 < 0 || v2 < 0 || v1 > int64(len(l.elems)) || v2 > int64(len(l.elems)) {
		terror.Runtime(terror.RuntimeIdxOutRange, "List.idxPair", "")
	}
	if v1 > v2 {
		terror.Runtime(terror.RuntimeInvalidIndex, "List.idxPair", "")
	}
	out.SetCompo(NewListOf(l.elems[v1:v2]))
}

// Idx reads an element by int index or a sub-list by pair.
func (l *List) Idx(params []Value, out *Value) {
	if len(params) != 1 {
		terror.Runtime(terror.RuntimeParamsCtr, "List.Idx", "1 parameter")
	}
	switch params[0].Type() {
	case TInt:
		l.idxInt(params[0].Int(), out)
	case TCompo:
		p, ok := params[0].Compo().(*Pair)
		if !ok {
			terror.Runtime(terror.RuntimeParamsType, "List.Idx", "")
		}
		l.idxPair(p, out)
	default:
		terror.Runtime(terror.RuntimeParamsType, "List.Idx", "")
	}
}

// ISet assigns an element by int index. Nil may not be stored.
func (l *List) ISet(params []Value, v Value) {
	if len(params) != 1 {
		terror.Runtime(terror.RuntimeParamsCtr, "List.ISet", "1 parameter")
	}
	idx := mustInt(&params[0], "List.ISet")
	if idx < 0 || idx >= int64(len(l.elems)) {
		terror.Runtime(terror.RuntimeIdxOutRange, "List.ISet", "")
	}
	if v.Type() == TNil {
		terror.Runtime(terror.RuntimeAssignNil, "List.ISet", "")
	}
	slot := &l.elems[idx]
	if v.IsCompo() {
		if slot.IsCompo() && slot.Compo() == v.Compo() {
			return
		}
		v.Compo().AddRef()
	}
	slot.DecRefClear()
	slot.Set(v)
}

// Append adds ele at the end, taking a reference.
func (l *List) Append(ele *Value) {
	var v Value
	v.Set(*ele)
	if ele.IsCompo() {
		ele.Compo().AddRef()
	}
	l.elems = append(l.elems, v)
}

// Insert adds ele at loc, taking a reference.
func (l *List) Insert(ele *Value, loc int64) {
	if loc < 0 || loc > int64(len(l.elems)) {
		terror.Runtime(terror.RuntimeIdxOutRange, "List.Insert", "")
	}
	var v Value
	v.Set(*ele)
	if ele.IsCompo() {
		ele.Compo().AddRef()
	}
	l.elems = append(l.elems, Nil())
	copy(l.elems[loc+1:], l.elems[loc:])
	l.elems[loc] = v
}

// Pop drops the last element.
func (l *List) Pop() {
	if len(l.elems) == 0 {
		terror.Runtime(terror.RuntimeRefEmptySet, "List.Pop", "")
	}
	l.elems[len(l.elems)-1].DecRefClear()
	l.elems = l.elems[:len(l.elems)-1]
}

// Delete removes the element at loc.
func (l *List) Delete(loc int64) {
	if loc < 0 || loc >= int64(len(l.elems)) {
		terror.Runtime(terror.RuntimeIdxOutRange, "List.Delete", "")
	}
	l.elems[loc].DecRefClear()
	l.elems = append(l.elems[:loc], l.elems[loc+1:]...)
}

// DeleteRange removes [start, to).
func (l *List) DeleteRange(start, to Value) {
	if start.Type() != TInt || to.Type() != TInt {
		terror.Runtime(terror.RuntimeRefType, "List.DeleteRange", "")
	}
	i, j := start.Int(), to.Int()
	if i < 0 || j < 0 || i > j || j > int64(len(l.elems)) {
		terror.Runtime(terror.RuntimeIdxOutRange, "List.DeleteRange", "")
	}
	for k := i; k < j; k++ {
		l.elems[k].DecRefClear()
	}
	l.elems = append(l.elems[:i], l.elems[j:]...)
}

// Next advances the iteration cursor; an exhausted cursor restores itself
// so the list can be iterated again.
func (l *List) Next() bool {
	l.idxi++
	if l.idxi > int64(len(l.elems)) {
		l.Restore()
		return false
	}
	return true
}

// Current writes the element under the cursor.
func (l *List) Current(out *Value) {
	if l.idxi < 1 || l.idxi > int64(len(l.elems)) {
		out.SetNil()
		return
	}
	out.Set(l.elems[l.idxi-1])
}

// Contains reports whether e equals any element.
func (l *List) Contains(e Value) bool {
	for i := range l.elems {
		if l.elems[i].Identical(e) {
			return true
		}
	}
	return false
}

func (l *List) Restore() { l.idxi = 0 }
