package session

import (
	"math"
	"math/rand"

	"github.com/zhuanglinsheng/tapas/object"
	"github.com/zhuanglinsheng/tapas/terror"
)

func mustMat(v *object.Value, fn string) *object.MatReal {
	if v.IsCompo() {
		if m, ok := v.Compo().(*object.MatReal); ok {
			return m
		}
	}
	terror.Runtime(terror.RuntimeParamsType, fn, "should be 'Array'")
	return nil
}

func mustNum(v *object.Value, fn string) float64 {
	switch v.Type() {
	case object.TInt:
		return float64(v.Int())
	case object.TFloat:
		return v.Float()
	}
	terror.Runtime(terror.RuntimeParamsType, fn, "numeric value expected")
	return 0
}

// to_arr: toarr(rows, cols, init) builds a matrix from a row-major list
// or a scalar fill.
func toArr(params []object.Value, out *object.Value) {
	wantParams(params, 3, "toArr")
	rows := int(mustIntArg(&params[0], "toArr"))
	cols := int(mustIntArg(&params[1], "toArr"))
	m := object.NewMatReal(rows, cols)
	if params[2].IsCompo() {
		ls, ok := params[2].Compo().(*object.List)
		if !ok {
			terror.Runtime(terror.RuntimeParamsType, "toArr", "")
		}
		if ls.Len() != int64(rows*cols) {
			terror.Runtime(terror.RuntimeLenInconsis, "toArr", "")
		}
		for i := int64(0); i < ls.Len(); i++ {
			e := ls.At(i)
			m.Data()[i] = mustNum(&e, "toArr")
		}
	} else {
		fill := mustNum(&params[2], "toArr")
		for i := range m.Data() {
			m.Data()[i] = fill
		}
	}
	out.SetCompo(m)
}

// to_arr_random: random(rows, cols) draws uniform [0, 1) entries.
func toArrRandom(params []object.Value, out *object.Value) {
	wantParams(params, 2, "toArrRandom")
	rows := int(mustIntArg(&params[0], "toArrRandom"))
	cols := int(mustIntArg(&params[1], "toArrRandom"))
	m := object.NewMatReal(rows, cols)
	for i := range m.Data() {
		m.Data()[i] = rand.Float64()
	}
	out.SetCompo(m)
}

func arrRows(params []object.Value, out *object.Value) {
	wantParams(params, 1, "arrRows")
	out.SetInt(int64(mustMat(&params[0], "arrRows").Rows()))
}

func arrCols(params []object.Value, out *object.Value) {
	wantParams(params, 1, "arrCols")
	out.SetInt(int64(mustMat(&params[0], "arrCols").Cols()))
}

func arrTranspose(params []object.Value, out *object.Value) {
	wantParams(params, 1, "arrTranspose")
	out.SetCompo(mustMat(&params[0], "arrTranspose").Transpose())
}

// mapFn lifts an elementwise kernel into a host function.
func mapFn(name string, f func(float64) float64) object.HostFn {
	return func(params []object.Value, out *object.Value) {
		wantParams(params, 1, name)
		out.SetCompo(mustMat(&params[0], name).Map(f))
	}
}

// arr_pow: pow(arr, p) raises every element to p.
func arrPow(params []object.Value, out *object.Value) {
	wantParams(params, 2, "arrPow")
	m := mustMat(&params[0], "arrPow")
	p := mustNum(&params[1], "arrPow")
	out.SetCompo(m.Map(func(x float64) float64 { return math.Pow(x, p) }))
}

// boolMapFn lifts an elementwise predicate into a host function yielding
// a boolean matrix.
func boolMapFn(name string, f func(float64) bool) object.HostFn {
	return func(params []object.Value, out *object.Value) {
		wantParams(params, 1, name)
		m := mustMat(&params[0], name)
		b := object.NewMatBool(m.Rows(), m.Cols())
		for i, v := range m.Data() {
			if f(v) {
				b.SetAt(i/m.Cols(), i%m.Cols(), true)
			}
		}
		out.SetCompo(b)
	}
}

// cornerFn lifts an r x c corner selector into a host function.
func cornerFn(name string, sel func(m *object.MatReal, r, c int) *object.MatReal) object.HostFn {
	return func(params []object.Value, out *object.Value) {
		wantParams(params, 3, name)
		m := mustMat(&params[0], name)
		r := int(mustIntArg(&params[1], name))
		c := int(mustIntArg(&params[2], name))
		out.SetCompo(sel(m, r, c))
	}
}

// blockFn lifts a row/column selector into a host function.
func blockFn(name string, sel func(m *object.MatReal, n int) *object.MatReal) object.HostFn {
	return func(params []object.Value, out *object.Value) {
		wantParams(params, 2, name)
		m := mustMat(&params[0], name)
		n := int(mustIntArg(&params[1], name))
		out.SetCompo(sel(m, n))
	}
}

// registerEig installs the matrix package.
func registerEig(lib *object.Library) {
	eig := lib.AddPkg("eig")
	eig.AddHostFn("toarr", toArr, 3)
	eig.AddHostFn("random", toArrRandom, 2)
	eig.AddHostFn("rows", arrRows, 1)
	eig.AddHostFn("cols", arrCols, 1)
	eig.AddHostFn("t", arrTranspose, 1)

	eig.AddHostFn("top", blockFn("arrTop", func(m *object.MatReal, n int) *object.MatReal {
		return m.Block(0, 0, n, m.Cols())
	}), 2)
	eig.AddHostFn("bottom", blockFn("arrBottom", func(m *object.MatReal, n int) *object.MatReal {
		return m.Block(m.Rows()-n, 0, n, m.Cols())
	}), 2)
	eig.AddHostFn("left", blockFn("arrLeft", func(m *object.MatReal, n int) *object.MatReal {
		return m.Block(0, 0, m.Rows(), n)
	}), 2)
	eig.AddHostFn("right", blockFn("arrRight", func(m *object.MatReal, n int) *object.MatReal {
		return m.Block(0, m.Cols()-n, m.Rows(), n)
	}), 2)

	eig.AddHostFn("topleft", cornerFn("arrTopLeft", func(m *object.MatReal, r, c int) *object.MatReal {
		return m.Block(0, 0, r, c)
	}), 3)
	eig.AddHostFn("topright", cornerFn("arrTopRight", func(m *object.MatReal, r, c int) *object.MatReal {
		return m.Block(0, m.Cols()-c, r, c)
	}), 3)
	eig.AddHostFn("bottomleft", cornerFn("arrBottomLeft", func(m *object.MatReal, r, c int) *object.MatReal {
		return m.Block(m.Rows()-r, 0, r, c)
	}), 3)
	eig.AddHostFn("bottomright", cornerFn("arrBottomRight", func(m *object.MatReal, r, c int) *object.MatReal {
		return m.Block(m.Rows()-r, m.Cols()-c, r, c)
	}), 3)

	eig.AddHostFn("abs", mapFn("arrAbs", math.Abs), 1)
	eig.AddHostFn("eleinv", mapFn("arrEleInv", func(x float64) float64 { return 1 / x }), 1)
	eig.AddHostFn("exp", mapFn("arrExp", math.Exp), 1)
	eig.AddHostFn("log", mapFn("arrLog", math.Log), 1)
	eig.AddHostFn("log1p", mapFn("arrLog1p", math.Log1p), 1)
	eig.AddHostFn("log10", mapFn("arrLog10", math.Log10), 1)
	eig.AddHostFn("pow", arrPow, 2)
	eig.AddHostFn("sqrt", mapFn("arrSqrt", math.Sqrt), 1)
	eig.AddHostFn("rsqrt", mapFn("arrRsqrt", func(x float64) float64 { return 1 / math.Sqrt(x) }), 1)

	eig.AddHostFn("sin", mapFn("arrSin", math.Sin), 1)
	eig.AddHostFn("asin", mapFn("arrAsin", math.Asin), 1)
	eig.AddHostFn("cos", mapFn("arrCos", math.Cos), 1)
	eig.AddHostFn("acos", mapFn("arrAcos", math.Acos), 1)
	eig.AddHostFn("tan", mapFn("arrTan", math.Tan), 1)
	eig.AddHostFn("atan", mapFn("arrAtan", math.Atan), 1)
	eig.AddHostFn("sinh", mapFn("arrSinh", math.Sinh), 1)
	eig.AddHostFn("cosh", mapFn("arrCosh", math.Cosh), 1)
	eig.AddHostFn("tanh", mapFn("arrTanh", math.Tanh), 1)

	eig.AddHostFn("ceil", mapFn("arrCeil", math.Ceil), 1)
	eig.AddHostFn("floor", mapFn("arrFloor", math.Floor), 1)
	eig.AddHostFn("round", mapFn("arrRound", math.Round), 1)
	eig.AddHostFn("isfinite", boolMapFn("arrIsFinite", func(x float64) bool {
		return !math.IsInf(x, 0) && !math.IsNaN(x)
	}), 1)
	eig.AddHostFn("isinf", boolMapFn("arrIsInf", func(x float64) bool { return math.IsInf(x, 0) }), 1)
	eig.AddHostFn("isnan", boolMapFn("arrIsNaN", math.IsNaN), 1)
}
