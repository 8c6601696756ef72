// Package object implements the Tapas value model: the tagged value, the
// composite-object trait set with reference counting, the built-in
// composite types and the tree of lexical environments the VM executes
// against.
package object

import (
	"strconv"

	"github.com/zhuanglinsheng/tapas/code"
	"github.com/zhuanglinsheng/tapas/terror"
)

// Type is the primitive kind of a value.
type Type uint8

const (
	TNil Type = iota
	TBool
	TInt
	TFloat
	TCompo
)

func (t Type) String() string {
	switch t {
	case TNil:
		return "nil"
	case TBool:
		return "bool"
	case TInt:
		return "int"
	case TFloat:
		return "float"
	case TCompo:
		return "compo"
	}
	return "unknown"
}

// Value is the tagged union every slot, stack cell and literal resolves
// to. The name and environment-slot annotations are used only for
// environment slots and do not participate in equality.
type Value struct {
	typ     Type
	i       int64
	f       float64
	compo   Composite
	envLoc  uint32
	nameLoc uint32
}

// Nil returns the nil value.
func Nil() Value {
	return Value{typ: TNil, envLoc: code.UndefEnvLoc, nameLoc: code.UndefNameLoc}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	v := Nil()
	v.SetBool(b)
	return v
}

// Int returns an integer value.
func Int(i int64) Value {
	v := Nil()
	v.SetInt(i)
	return v
}

// Float returns a float value.
func Float(f float64) Value {
	v := Nil()
	v.SetFloat(f)
	return v
}

// Compo returns a value owning the composite c. The reference count is not
// touched; the caller decides whether the reference is owned or borrowed.
func Compo(c Composite) Value {
	v := Nil()
	v.SetCompo(c)
	return v
}

func (v *Value) Type() Type    { return v.typ }
func (v *Value) IsCompo() bool { return v.typ == TCompo }

func (v *Value) Bool() bool          { return v.i != 0 }
func (v *Value) Int() int64          { return v.i }
func (v *Value) Float() float64      { return v.f }
func (v *Value) Compo() Composite    { return v.compo }
func (v *Value) NameLoc() uint32     { return v.nameLoc }
func (v *Value) EnvLoc() uint32      { return v.envLoc }
func (v *Value) SetNameLoc(l uint32) { v.nameLoc = l }
func (v *Value) SetEnvLoc(l uint32)  { v.envLoc = l }

// SetNil resets the value to nil without touching reference counts.
func (v *Value) SetNil() {
	v.typ = TNil
	v.i = 0
	v.compo = nil
}

func (v *Value) SetBool(b bool) {
	v.typ = TBool
	v.compo = nil
	if b {
		v.i = 1
	} else {
		v.i = 0
	}
}

func (v *Value) SetInt(i int64) {
	v.typ = TInt
	v.compo = nil
	v.i = i
}

func (v *Value) SetFloat(f float64) {
	v.typ = TFloat
	v.compo = nil
	v.f = f
}

func (v *Value) SetCompo(c Composite) {
	v.typ = TCompo
	v.compo = c
}

// Set copies w's type and data into v, keeping v's annotations. Reference
// counts are not touched.
func (v *Value) Set(w Value) {
	v.typ = w.typ
	v.i = w.i
	v.f = w.f
	v.compo = w.compo
}

// TryClear destroys v's composite when its count is zero — first
// decrementing it when dec is set — then resets v to nil. A stack cell
// holding a borrowed reference (count > 0) survives the clear.
func (v *Value) TryClear(dec bool) {
	if v.typ == TCompo {
		if dec {
			v.compo.DecRef()
		}
		if v.compo.RefCtr() == 0 {
			v.compo.Release()
		}
	}
	v.SetNil()
}

// DecRefClear decrements the composite's count, destroys it at zero and
// resets v to nil.
func (v *Value) DecRefClear() {
	v.TryClear(true)
}

// Copy deep-copies composite values and plainly copies primitives.
func (v *Value) Copy() Value {
	if v.IsCompo() {
		return Compo(v.compo.Copy())
	}
	return *v
}

// Identical implements `==` over values. A nil never equals anything,
// including another nil, and values of different primitive kinds are
// strictly unequal. Composite equality delegates to the composite.
func (v *Value) Identical(w Value) bool {
	if v.typ != w.typ {
		return false
	}
	switch v.typ {
	case TNil:
		return false
	case TBool, TInt:
		return v.i == w.i
	case TFloat:
		return v.f == w.f
	case TCompo:
		return v.compo.Identical(w.compo)
	}
	return false
}

func (v *Value) primString() string {
	switch v.typ {
	case TNil:
		return "nil"
	case TBool:
		if v.i != 0 {
			return "true"
		}
		return "false"
	case TInt:
		return strconv.FormatInt(v.i, 10)
	case TFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	}
	return ""
}

// Abbr renders the value briefly.
func (v *Value) Abbr() string {
	if v.IsCompo() {
		return v.compo.Abbr()
	}
	return v.primString()
}

// Full renders the value in detail.
func (v *Value) Full() string {
	if v.IsCompo() {
		return v.compo.Full()
	}
	return v.primString()
}

// mustInt is a helper used across the composite implementations.
func mustInt(v *Value, fn string) int64 {
	if v.Type() != TInt {
		terror.Runtime(terror.RuntimeParamsType, fn, "should be 'int'")
	}
	return v.Int()
}
