package object

import (
	"fmt"
	"math"
	"strings"

	"github.com/zhuanglinsheng/tapas/terror"
)

// MatReal is the dense real matrix composite behind the eig package.
// Element order is row-major; iteration scans elements row by row.
type MatReal struct {
	RefCount
	rows int
	cols int
	data []float64
	loc  int64
}

// NewMatReal allocates a rows x cols zero matrix.
func NewMatReal(rows, cols int) *MatReal {
	if rows <= 0 || cols <= 0 {
		terror.Runtime(terror.RuntimeParamsType, "NewMatReal", "dimensions must be positive")
	}
	return &MatReal{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// NewMatRealOf wraps data (row-major, length rows*cols).
func NewMatRealOf(rows, cols int, data []float64) *MatReal {
	if len(data) != rows*cols {
		terror.Runtime(terror.RuntimeLenInconsis, "NewMatRealOf", "")
	}
	m := NewMatReal(rows, cols)
	copy(m.data, data)
	return m
}

func (m *MatReal) Rows() int       { return m.rows }
func (m *MatReal) Cols() int       { return m.cols }
func (m *MatReal) Data() []float64 { return m.data }

func (m *MatReal) At(i, j int) float64 { return m.data[i*m.cols+j] }

func (m *MatReal) SetAt(i, j int, v float64) { m.data[i*m.cols+j] = v }

func (m *MatReal) TypeName() string { return "Array" }
func (m *MatReal) Kind() CompoKind  { return KindMatReal }
func (m *MatReal) Len() int64       { return int64(len(m.data)) }
func (m *MatReal) Abbr() string     { return pointerString(m.TypeName(), m) }
func (m *MatReal) Release()         {}

func (m *MatReal) Full() string {
	var b strings.Builder
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				b.WriteString("  ")
			}
			fmt.Fprintf(&b, "%g", m.At(i, j))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *MatReal) Copy() Composite {
	return NewMatRealOf(m.rows, m.cols, m.data)
}

func (m *MatReal) Identical(v Composite) bool {
	o, ok := v.(*MatReal)
	if !ok || o.rows != m.rows || o.cols != m.cols {
		return false
	}
	for i := range m.data {
		if m.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

// Idx reads one element: (i, j) or a single row-major offset.
func (m *MatReal) Idx(params []Value, out *Value) {
	out.SetFloat(m.data[m.offset(params, "MatReal.Idx")])
}

// ISet writes one element from an int or float value.
func (m *MatReal) ISet(params []Value, v Value) {
	off := m.offset(params, "MatReal.ISet")
	switch v.Type() {
	case TInt:
		m.data[off] = float64(v.Int())
	case TFloat:
		m.data[off] = v.Float()
	default:
		terror.Runtime(terror.RuntimeParamsType, "MatReal.ISet", "numeric value expected")
	}
}

func (m *MatReal) offset(params []Value, fn string) int64 {
	switch len(params) {
	case 1:
		off := mustInt(&params[0], fn)
		if off < 0 || off >= int64(len(m.data)) {
			terror.Runtime(terror.RuntimeIdxOutRange, fn, "")
		}
		return off
	case 2:
		i := mustInt(&params[0], fn)
		j := mustInt(&params[1], fn)
		if i < 0 || i >= int64(m.rows) || j < 0 || j >= int64(m.cols) {
			terror.Runtime(terror.RuntimeIdxOutRange, fn, "")
		}
		return i*int64(m.cols) + j
	}
	terror.Runtime(terror.RuntimeParamsCtr, fn, "1 or 2 parameters")
	return 0
}

// Next advances the row-major element cursor, restoring on exhaustion.
func (m *MatReal) Next() bool {
	m.loc++
	if m.loc > int64(len(m.data)) {
		m.Restore()
		return false
	}
	return true
}

func (m *MatReal) Current(out *Value) {
	if m.loc < 1 || m.loc > int64(len(m.data)) {
		out.SetNil()
		return
	}
	out.SetFloat(m.data[m.loc-1])
}

func (m *MatReal) Contains(e Value) bool {
	var want float64
	switch e.Type() {
	case TInt:
		want = float64(e.Int())
	case TFloat:
		want = e.Float()
	default:
		return false
	}
	for _, v := range m.data {
		if v == want {
			return true
		}
	}
	return false
}

func (m *MatReal) Restore() { m.loc = 0 }

// Map applies f elementwise into a fresh matrix.
func (m *MatReal) Map(f func(float64) float64) *MatReal {
	out := NewMatReal(m.rows, m.cols)
	for i, v := range m.data {
		out.data[i] = f(v)
	}
	return out
}

// Transpose returns the transposed matrix.
func (m *MatReal) Transpose() *MatReal {
	out := NewMatReal(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.SetAt(j, i, m.At(i, j))
		}
	}
	return out
}

// Block copies the rows x cols block starting at (i0, j0).
func (m *MatReal) Block(i0, j0, rows, cols int) *MatReal {
	if i0 < 0 || j0 < 0 || rows <= 0 || cols <= 0 || i0+rows > m.rows || j0+cols > m.cols {
		terror.Runtime(terror.RuntimeIdxOutRange, "MatReal.Block", "")
	}
	out := NewMatReal(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.SetAt(i, j, m.At(i0+i, j0+j))
		}
	}
	return out
}

// MatMul is the matrix product this @ o.
func (m *MatReal) MatMul(o *MatReal) *MatReal {
	if m.cols != o.rows {
		terror.Runtime(terror.RuntimeLenInconsis, "MatReal.MatMul", "inner dimensions differ")
	}
	out := NewMatReal(m.rows, o.cols)
	for i := 0; i < m.rows; i++ {
		for k := 0; k < m.cols; k++ {
			a := m.At(i, k)
			if a == 0 {
				continue
			}
			for j := 0; j < o.cols; j++ {
				out.data[i*o.cols+j] += a * o.At(k, j)
			}
		}
	}
	return out
}

func scalarOf(v Value) (float64, bool) {
	switch v.Type() {
	case TInt:
		return float64(v.Int()), true
	case TFloat:
		return v.Float(), true
	}
	return 0, false
}

// BinOp dispatches the matrix operators: elementwise arithmetic against a
// scalar or a same-shape matrix, matrix multiply for `@`, and elementwise
// comparisons yielding a boolean matrix.
func (m *MatReal) BinOp(op BinOp, v Value, rev bool) (Value, bool) {
	var other *MatReal
	scalar, isScalar := scalarOf(v)
	if !isScalar {
		o, ok := v.Compo().(*MatReal)
		if !v.IsCompo() || !ok {
			return Nil(), false
		}
		other = o
	}

	ew := func(f func(a, b float64) float64) Value {
		if isScalar {
			if rev {
				return Compo(m.Map(func(x float64) float64 { return f(scalar, x) }))
			}
			return Compo(m.Map(func(x float64) float64 { return f(x, scalar) }))
		}
		if other.rows != m.rows || other.cols != m.cols {
			terror.Runtime(terror.RuntimeLenInconsis, "MatReal.BinOp", "shapes differ")
		}
		out := NewMatReal(m.rows, m.cols)
		for i := range m.data {
			if rev {
				out.data[i] = f(other.data[i], m.data[i])
			} else {
				out.data[i] = f(m.data[i], other.data[i])
			}
		}
		return Compo(out)
	}
	cmp := func(f func(a, b float64) bool) Value {
		out := NewMatBool(m.rows, m.cols)
		if isScalar {
			for i := range m.data {
				if rev {
					out.data[i] = f(scalar, m.data[i])
				} else {
					out.data[i] = f(m.data[i], scalar)
				}
			}
			return Compo(out)
		}
		if other.rows != m.rows || other.cols != m.cols {
			terror.Runtime(terror.RuntimeLenInconsis, "MatReal.BinOp", "shapes differ")
		}
		for i := range m.data {
			if rev {
				out.data[i] = f(other.data[i], m.data[i])
			} else {
				out.data[i] = f(m.data[i], other.data[i])
			}
		}
		return Compo(out)
	}

	switch op {
	case OpAdd:
		return ew(func(a, b float64) float64 { return a + b }), true
	case OpSub:
		return ew(func(a, b float64) float64 { return a - b }), true
	case OpMul:
		return ew(func(a, b float64) float64 { return a * b }), true
	case OpDiv:
		return ew(func(a, b float64) float64 { return a / b }), true
	case OpMod:
		return ew(math.Mod), true
	case OpPow:
		return ew(math.Pow), true
	case OpMMul:
		if isScalar {
			return Nil(), false
		}
		if rev {
			return Compo(other.MatMul(m)), true
		}
		return Compo(m.MatMul(other)), true
	case OpEq:
		return cmp(func(a, b float64) bool { return a == b }), true
	case OpNe:
		return cmp(func(a, b float64) bool { return a != b }), true
	case OpGe:
		return cmp(func(a, b float64) bool { return a >= b }), true
	case OpSg:
		return cmp(func(a, b float64) bool { return a > b }), true
	case OpLe:
		return cmp(func(a, b float64) bool { return a <= b }), true
	case OpSl:
		return cmp(func(a, b float64) bool { return a < b }), true
	}
	return Nil(), false
}

// MatBool is the boolean matrix produced by elementwise comparisons.
type MatBool struct {
	RefCount
	rows int
	cols int
	data []bool
}

func NewMatBool(rows, cols int) *MatBool {
	if rows <= 0 || cols <= 0 {
		terror.Runtime(terror.RuntimeParamsType, "NewMatBool", "dimensions must be positive")
	}
	return &MatBool{rows: rows, cols: cols, data: make([]bool, rows*cols)}
}

func (m *MatBool) Rows() int            { return m.rows }
func (m *MatBool) Cols() int            { return m.cols }
func (m *MatBool) At(i, j int) bool     { return m.data[i*m.cols+j] }
func (m *MatBool) SetAt(i, j int, v bool) { m.data[i*m.cols+j] = v }

func (m *MatBool) TypeName() string { return "BoolArray" }
func (m *MatBool) Kind() CompoKind  { return KindMatBool }
func (m *MatBool) Len() int64       { return int64(len(m.data)) }
func (m *MatBool) Abbr() string     { return pointerString(m.TypeName(), m) }
func (m *MatBool) Release()         {}

func (m *MatBool) Full() string {
	var b strings.Builder
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				b.WriteString("  ")
			}
			if m.At(i, j) {
				b.WriteString("true")
			} else {
				b.WriteString("false")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *MatBool) Copy() Composite {
	cp := NewMatBool(m.rows, m.cols)
	copy(cp.data, m.data)
	return cp
}

func (m *MatBool) Identical(v Composite) bool {
	o, ok := v.(*MatBool)
	if !ok || o.rows != m.rows || o.cols != m.cols {
		return false
	}
	for i := range m.data {
		if m.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

// Idx reads one element: (i, j) or a single row-major offset.
func (m *MatBool) Idx(params []Value, out *Value) {
	switch len(params) {
	case 1:
		off := mustInt(&params[0], "MatBool.Idx")
		if off < 0 || off >= int64(len(m.data)) {
			terror.Runtime(terror.RuntimeIdxOutRange, "MatBool.Idx", "")
		}
		out.SetBool(m.data[off])
	case 2:
		i := mustInt(&params[0], "MatBool.Idx")
		j := mustInt(&params[1], "MatBool.Idx")
		if i < 0 || i >= int64(m.rows) || j < 0 || j >= int64(m.cols) {
			terror.Runtime(terror.RuntimeIdxOutRange, "MatBool.Idx", "")
		}
		out.SetBool(m.At(int(i), int(j)))
	default:
		terror.Runtime(terror.RuntimeParamsCtr, "MatBool.Idx", "1 or 2 parameters")
	}
}

// ISet writes one element from a bool value.
func (m *MatBool) ISet(params []Value, v Value) {
	if v.Type() != TBool {
		terror.Runtime(terror.RuntimeParamsType, "MatBool.ISet", "bool value expected")
	}
	switch len(params) {
	case 1:
		off := mustInt(&params[0], "MatBool.ISet")
		if off < 0 || off >= int64(len(m.data)) {
			terror.Runtime(terror.RuntimeIdxOutRange, "MatBool.ISet", "")
		}
		m.data[off] = v.Bool()
	case 2:
		i := mustInt(&params[0], "MatBool.ISet")
		j := mustInt(&params[1], "MatBool.ISet")
		if i < 0 || i >= int64(m.rows) || j < 0 || j >= int64(m.cols) {
			terror.Runtime(terror.RuntimeIdxOutRange, "MatBool.ISet", "")
		}
		m.SetAt(int(i), int(j), v.Bool())
	default:
		terror.Runtime(terror.RuntimeParamsCtr, "MatBool.ISet", "1 or 2 parameters")
	}
}

// BinOp dispatches elementwise `and` / `or` against a same-shape boolean
// matrix.
func (m *MatBool) BinOp(op BinOp, v Value, rev bool) (Value, bool) {
	o, ok := v.Compo().(*MatBool)
	if !v.IsCompo() || !ok {
		return Nil(), false
	}
	if o.rows != m.rows || o.cols != m.cols {
		terror.Runtime(terror.RuntimeLenInconsis, "MatBool.BinOp", "shapes differ")
	}
	out := NewMatBool(m.rows, m.cols)
	switch op {
	case OpAnd:
		for i := range m.data {
			out.data[i] = m.data[i] && o.data[i]
		}
	case OpOr:
		for i := range m.data {
			out.data[i] = m.data[i] || o.data[i]
		}
	default:
		return Nil(), false
	}
	return Compo(out), true
}
