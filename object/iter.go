package object

import (
	"strconv"

	"github.com/zhuanglinsheng/tapas/terror"
)

// Iter is the integer-range composite created by the `to` expression. It
// holds four integers: start, step, one-past-end and the moving cursor.
type Iter struct {
	RefCount
	loc    int64
	start  int64
	middle int64
	end    int64 // stored one step past the last value
}

// NewIterStep builds `start to end by middle`.
func NewIterStep(start, middle, end int64) *Iter {
	if middle == 0 {
		terror.Runtime(terror.RuntimeRefType, "NewIterStep", "step cannot be 0")
	}
	return &Iter{start: start, middle: middle, end: end + middle, loc: start}
}

// NewIter builds `start to end` with step 1.
func NewIter(start, end int64) *Iter {
	return &Iter{start: start, middle: 1, end: end + 1, loc: start}
}

func (it *Iter) Start() int64  { return it.start }
func (it *Iter) Middle() int64 { return it.middle }
func (it *Iter) End() int64    { return it.end - it.middle }

func (it *Iter) TypeName() string { return "Iterator" }
func (it *Iter) Kind() CompoKind  { return KindIter }

func (it *Iter) Len() int64 {
	gap := it.end - it.middle - it.start
	if gap != 0 && (gap > 0) != (it.middle > 0) {
		return 0
	}
	return gap/it.middle + 1
}

func (it *Iter) Abbr() string { return pointerString(it.TypeName(), it) }

func (it *Iter) Full() string {
	return strconv.FormatInt(it.start, 10) + " to " +
		strconv.FormatInt(it.end-it.middle, 10) + " (by " +
		strconv.FormatInt(it.middle, 10) + ")"
}

func (it *Iter) Copy() Composite {
	return NewIterStep(it.start, it.middle, it.end-it.middle)
}

func (it *Iter) Identical(v Composite) bool {
	if v == nil || v.Kind() != KindIter {
		return false
	}
	o := v.(*Iter)
	return it.start == o.start && it.middle == o.middle && it.end == o.end
}

func (it *Iter) Release() {}

func (it *Iter) Restore() { it.loc = it.start }

// LocIdx is the value under the cursor (the cursor itself sits one step
// ahead after Next).
func (it *Iter) LocIdx() int64 {
	if it.middle > 0 {
		if it.loc-it.middle >= it.start {
			return it.loc - it.middle
		}
		return it.start
	}
	if it.loc-it.middle <= it.start {
		return it.loc - it.middle
	}
	return it.start
}

func (it *Iter) Current(out *Value) {
	out.SetInt(it.LocIdx())
}

// Next advances the cursor and reports whether it is still inside the
// range.
func (it *Iter) Next() bool {
	it.loc += it.middle
	if it.middle > 0 {
		return it.loc <= it.end
	}
	return it.loc >= it.end
}

// Contains reports whether e is an integer inside the range.
func (it *Iter) Contains(e Value) bool {
	if e.Type() != TInt {
		return false
	}
	idx := e.Int()
	if it.middle > 0 {
		return it.start <= idx && idx < it.end
	}
	return it.end < idx && idx < it.start
}
