package object

import "fmt"

// CompoKind tags every composite variant. The set is closed; the VM
// switches on the tag before reaching for any optional trait.
type CompoKind uint8

const (
	KindPair CompoKind = iota
	KindStr
	KindDict
	KindList
	KindTime
	KindIter
	KindFunc
	KindHostFunc
	KindSessFunc
	KindMatReal
	KindMatBool
	KindLib
)

// Composite is the capability set every heap value implements. Optional
// capabilities (Indexable, Iterable, Operable) are queried per kind.
type Composite interface {
	TypeName() string
	Abbr() string
	Full() string
	Copy() Composite
	Len() int64
	Kind() CompoKind
	Identical(v Composite) bool

	AddRef()
	DecRef()
	RefCtr() uint16

	// Release drops the references the composite owns. Called exactly
	// once, when the count is observed at zero.
	Release()
}

// RefCount is the intrusive 16-bit reference counter embedded in every
// composite. A value holding a composite contributes one count.
type RefCount struct {
	n uint16
}

func (r *RefCount) AddRef()        { r.n++ }
func (r *RefCount) DecRef()        { r.n-- }
func (r *RefCount) RefCtr() uint16 { return r.n }

// Indexable is the get/set-by-key capability behind `a[i]` and
// `a[i] = v`.
type Indexable interface {
	Idx(params []Value, out *Value)
	ISet(params []Value, v Value)
}

// Iterable drives `for (x in e)` and the `in` membership test. Next
// advances the cursor and reports whether another element is available;
// Current writes the element at the cursor.
type Iterable interface {
	Next() bool
	Current(out *Value)
	Contains(e Value) bool
	Restore()
}

// BinOp selects the operator for Operable dispatch.
type BinOp uint8

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpMMul
	OpEq
	OpNe
	OpGe
	OpSg
	OpLe
	OpSl
	OpAnd
	OpOr
)

var binOpSyms = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpPow: "^", OpMMul: "@", OpEq: "==", OpNe: "!=", OpGe: ">=",
	OpSg: ">", OpLe: "<=", OpSl: "<", OpAnd: "and", OpOr: "or",
}

func (op BinOp) String() string {
	if int(op) < len(binOpSyms) {
		return binOpSyms[op]
	}
	return "?"
}

// Operable is the operator capability of composites. rev selects the
// reverse form (`v op this` instead of `this op v`). The second return is
// false when the composite does not support op.
type Operable interface {
	BinOp(op BinOp, v Value, rev bool) (Value, bool)
}

// pointerString renders `"type at 0x..."` (quotes included) the way brief renderings of
// opaque composites print.
func pointerString(typeName string, p any) string {
	return fmt.Sprintf("\"%s at %p\"", typeName, p)
}
