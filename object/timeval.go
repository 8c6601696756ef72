package object

import "time"

// Time is the opaque wall-clock composite returned by now(). Subtracting
// two times yields the gap in seconds as a float.
type Time struct {
	RefCount
	t time.Time
}

func NewTime(t time.Time) *Time {
	return &Time{t: t}
}

func (tv *Time) Value() time.Time { return tv.t }

func (tv *Time) TypeName() string { return "Time" }
func (tv *Time) Kind() CompoKind  { return KindTime }
func (tv *Time) Len() int64       { return 0 }
func (tv *Time) Abbr() string     { return pointerString(tv.TypeName(), tv) }
func (tv *Time) Full() string     { return tv.t.Format("2006-01-02 15:04:05") }
func (tv *Time) Copy() Composite  { return NewTime(tv.t) }
func (tv *Time) Release()         {}

func (tv *Time) Identical(v Composite) bool {
	o, ok := v.(*Time)
	return ok && o.t.Equal(tv.t)
}

// BinOp implements time subtraction: this - v (or v - this when rev) in
// seconds.
func (tv *Time) BinOp(op BinOp, v Value, rev bool) (Value, bool) {
	if op != OpSub {
		return Nil(), false
	}
	o, ok := v.Compo().(*Time)
	if !v.IsCompo() || !ok {
		return Nil(), false
	}
	d := tv.t.Sub(o.t).Seconds()
	if rev {
		d = -d
	}
	return Float(d), true
}
