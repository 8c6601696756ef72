// Package vm implements the Tapas stack machine: a register-free
// interpreter dispatching 32-bit instruction words against a tree of
// lexical environments.
package vm

import (
	"math"

	"github.com/zhuanglinsheng/tapas/object"
	"github.com/zhuanglinsheng/tapas/terror"
)

// binOpFn computes v1 (op) v2 into out. Out is always cleared before the
// result lands so owned temporaries in the destination cell are released.
type binOpFn func(v1, v2, out *object.Value)

// operatorPair builds a pair value, the generator behind `a : b`.
func operatorPair(v1, v2, out *object.Value) {
	p := object.NewPair(*v1, *v2)
	out.DecRefClear()
	out.SetCompo(p)
}

// operatorTo builds an integer range, the generator behind `a to b`.
func operatorTo(v1, v2, out *object.Value) {
	if v1.Type() != object.TInt || v2.Type() != object.TInt {
		terror.Runtime(terror.RuntimeParamsType, "operatorTo", "")
	}
	it := object.NewIter(v1.Int(), v2.Int())
	out.DecRefClear()
	out.SetCompo(it)
}

// operatorIn asks the right operand's iterable capability whether the
// left operand is a member. Non-iterables answer false.
func operatorIn(v1, v2, out *object.Value) {
	res := false
	if v2.IsCompo() {
		if it, ok := v2.Compo().(object.Iterable); ok {
			res = it.Contains(*v1)
		}
	}
	out.DecRefClear()
	out.SetBool(res)
}

// compoBinOp tries the composite operator trait on either operand,
// forward on the left and reverse on the right.
func compoBinOp(op object.BinOp, v1, v2, out *object.Value, fn string) {
	if v1.IsCompo() {
		if p, ok := v1.Compo().(object.Operable); ok {
			if res, handled := p.BinOp(op, *v2, false); handled {
				out.TryClear(false)
				out.Set(res)
				return
			}
		}
	}
	if v2.IsCompo() {
		if p, ok := v2.Compo().(object.Operable); ok {
			if res, handled := p.BinOp(op, *v1, true); handled {
				out.TryClear(false)
				out.Set(res)
				return
			}
		}
	}
	terror.Runtime(terror.RuntimeParamsType, fn,
		v1.Full()+" "+op.String()+" "+v2.Full())
}

// numPair extracts the numeric shapes of two operands: both int, or any
// mix involving float.
func numPair(v1, v2 *object.Value) (i1, i2 int64, f1, f2 float64, bothInt, numeric bool) {
	t1, t2 := v1.Type(), v2.Type()
	if t1 == object.TInt && t2 == object.TInt {
		return v1.Int(), v2.Int(), 0, 0, true, true
	}
	if (t1 == object.TInt || t1 == object.TFloat) && (t2 == object.TInt || t2 == object.TFloat) {
		if t1 == object.TInt {
			f1 = float64(v1.Int())
		} else {
			f1 = v1.Float()
		}
		if t2 == object.TInt {
			f2 = float64(v2.Int())
		} else {
			f2 = v2.Float()
		}
		return 0, 0, f1, f2, false, true
	}
	return 0, 0, 0, 0, false, false
}

func operatorAdd(v1, v2, out *object.Value) {
	if i1, i2, f1, f2, bothInt, ok := numHelper(v1, v2); ok {
		if bothInt {
			setInt(out, i1+i2)
		} else {
			setFloat(out, f1+f2)
		}
		return
	}
	compoBinOp(object.OpAdd, v1, v2, out, "operatorAdd")
}

func operatorSub(v1, v2, out *object.Value) {
	if i1, i2, f1, f2, bothInt, ok := numHelper(v1, v2); ok {
		if bothInt {
			setInt(out, i1-i2)
		} else {
			setFloat(out, f1-f2)
		}
		return
	}
	compoBinOp(object.OpSub, v1, v2, out, "operatorSub")
}

func operatorMul(v1, v2, out *object.Value) {
	if i1, i2, f1, f2, bothInt, ok := numHelper(v1, v2); ok {
		if bothInt {
			setInt(out, i1*i2)
		} else {
			setFloat(out, f1*f2)
		}
		return
	}
	compoBinOp(object.OpMul, v1, v2, out, "operatorMul")
}

func operatorDiv(v1, v2, out *object.Value) {
	if i1, i2, f1, f2, bothInt, ok := numHelper(v1, v2); ok {
		if bothInt {
			if i2 == 0 {
				terror.Runtime(terror.RuntimeDivIntZero, "operatorDiv", "")
			}
			setInt(out, i1/i2)
		} else {
			setFloat(out, f1/f2)
		}
		return
	}
	compoBinOp(object.OpDiv, v1, v2, out, "operatorDiv")
}

// operatorMod goes through floating fmod even for integer inputs.
func operatorMod(v1, v2, out *object.Value) {
	if _, _, f1, f2, _, ok := numHelperAllFloat(v1, v2); ok {
		setFloat(out, math.Mod(f1, f2))
		return
	}
	compoBinOp(object.OpMod, v1, v2, out, "operatorMod")
}

// operatorPow goes through floating pow even for integer inputs.
func operatorPow(v1, v2, out *object.Value) {
	if _, _, f1, f2, _, ok := numHelperAllFloat(v1, v2); ok {
		setFloat(out, math.Pow(f1, f2))
		return
	}
	compoBinOp(object.OpPow, v1, v2, out, "operatorPow")
}

// operatorMMul has no builtin numeric case; it dispatches only through
// the composite trait.
func operatorMMul(v1, v2, out *object.Value) {
	compoBinOp(object.OpMMul, v1, v2, out, "operatorMMul")
}

// operatorEq delegates to the left operand's trait when present, then the
// right's reverse form, then falls back to structural identity.
func operatorEq(v1, v2, out *object.Value) {
	if v1.IsCompo() {
		if p, ok := v1.Compo().(object.Operable); ok {
			if res, handled := p.BinOp(object.OpEq, *v2, false); handled {
				out.TryClear(false)
				out.Set(res)
				return
			}
		}
	}
	if v2.IsCompo() {
		if p, ok := v2.Compo().(object.Operable); ok {
			if res, handled := p.BinOp(object.OpEq, *v1, true); handled {
				out.TryClear(false)
				out.Set(res)
				return
			}
		}
	}
	res := v1.Identical(*v2)
	out.TryClear(false)
	out.SetBool(res)
}

func operatorNe(v1, v2, out *object.Value) {
	if v1.IsCompo() {
		if p, ok := v1.Compo().(object.Operable); ok {
			if res, handled := p.BinOp(object.OpNe, *v2, false); handled {
				out.TryClear(false)
				out.Set(res)
				return
			}
		}
	}
	if v2.IsCompo() {
		if p, ok := v2.Compo().(object.Operable); ok {
			if res, handled := p.BinOp(object.OpNe, *v1, true); handled {
				out.TryClear(false)
				out.Set(res)
				return
			}
		}
	}
	operatorEq(v1, v2, out)
	out.SetBool(!out.Bool())
}

func operatorSg(v1, v2, out *object.Value) {
	if _, _, f1, f2, _, ok := numHelperAllFloat(v1, v2); ok {
		setBool(out, f1 > f2)
		return
	}
	compoBinOp(object.OpSg, v1, v2, out, "operatorSg")
}

func operatorGe(v1, v2, out *object.Value) {
	if _, _, f1, f2, _, ok := numHelperAllFloat(v1, v2); ok {
		setBool(out, f1 >= f2)
		return
	}
	compoBinOp(object.OpGe, v1, v2, out, "operatorGe")
}

func operatorSl(v1, v2, out *object.Value) {
	if _, _, f1, f2, _, ok := numHelperAllFloat(v1, v2); ok {
		setBool(out, f1 < f2)
		return
	}
	compoBinOp(object.OpSl, v1, v2, out, "operatorSl")
}

func operatorLe(v1, v2, out *object.Value) {
	if _, _, f1, f2, _, ok := numHelperAllFloat(v1, v2); ok {
		setBool(out, f1 <= f2)
		return
	}
	compoBinOp(object.OpLe, v1, v2, out, "operatorLe")
}

// operatorAnd has no truthiness coercion: both operands must be bools, or
// a composite must carry the trait.
func operatorAnd(v1, v2, out *object.Value) {
	if v1.Type() == object.TBool && v2.Type() == object.TBool {
		setBool(out, v1.Bool() && v2.Bool())
		return
	}
	compoBinOp(object.OpAnd, v1, v2, out, "operatorAnd")
}

func operatorOr(v1, v2, out *object.Value) {
	if v1.Type() == object.TBool && v2.Type() == object.TBool {
		setBool(out, v1.Bool() || v2.Bool())
		return
	}
	compoBinOp(object.OpOr, v1, v2, out, "operatorOr")
}

func numHelper(v1, v2 *object.Value) (int64, int64, float64, float64, bool, bool) {
	return numPair(v1, v2)
}

// numHelperAllFloat is numPair with integer inputs promoted.
func numHelperAllFloat(v1, v2 *object.Value) (int64, int64, float64, float64, bool, bool) {
	i1, i2, f1, f2, bothInt, ok := numPair(v1, v2)
	if ok && bothInt {
		return i1, i2, float64(i1), float64(i2), bothInt, ok
	}
	return i1, i2, f1, f2, bothInt, ok
}

func setInt(out *object.Value, i int64) {
	out.DecRefClear()
	out.SetInt(i)
}

func setFloat(out *object.Value, f float64) {
	out.DecRefClear()
	out.SetFloat(f)
}

func setBool(out *object.Value, b bool) {
	out.DecRefClear()
	out.SetBool(b)
}
