package object

import (
	"github.com/zhuanglinsheng/tapas/code"
	"github.com/zhuanglinsheng/tapas/terror"
)

// ObjArray is a capacity-bounded slot array. Environments and the VM's
// temporary store are both ObjArrays.
type ObjArray struct {
	objs []Value
	n    uint32
}

// NewObjArray allocates an array of cap slots, all nil.
func NewObjArray(cap uint32) ObjArray {
	a := ObjArray{objs: make([]Value, cap)}
	for i := range a.objs {
		a.objs[i] = Nil()
	}
	return a
}

// TryExpand grows the capacity to objMax, keeping existing slots.
func (a *ObjArray) TryExpand(objMax uint32) {
	if uint32(len(a.objs)) < objMax {
		grown := make([]Value, objMax)
		for i := range grown {
			grown[i] = Nil()
		}
		copy(grown, a.objs[:a.n])
		a.objs = grown
	}
}

// ObjCap is the capacity of the array.
func (a *ObjArray) ObjCap() uint32 { return uint32(len(a.objs)) }

// ObjLen is the number of declared slots.
func (a *ObjArray) ObjLen() uint32 { return a.n }

// SetObjLen truncates or restores the declared length without clearing.
func (a *ObjArray) SetObjLen(n uint32) { a.n = n }

// RefObjLoc scans for a slot holding exactly the composite pv, returning
// the declared length when absent.
func (a *ObjArray) RefObjLoc(pv Composite) uint32 {
	for i := uint32(0); i < a.n; i++ {
		v := &a.objs[i]
		if v.IsCompo() && v.Compo() == pv {
			return i
		}
	}
	return a.n
}

// AddObj declares one slot, annotated with its name's pool index.
func (a *ObjArray) AddObj(nameLoc uint32) {
	a.objs[a.n].SetNameLoc(nameLoc)
	a.n++
}

// DelObj undeclares the last slot, releasing its reference.
func (a *ObjArray) DelObj() {
	a.n--
	a.objs[a.n].DecRefClear()
}

// DelObjN undeclares the last n slots.
func (a *ObjArray) DelObjN(n uint32) {
	for ; n > 0; n-- {
		a.DelObj()
	}
}

// HasObj reports whether some declared slot carries nameLoc.
func (a *ObjArray) HasObj(nameLoc uint32) bool {
	for i := uint32(0); i < a.n; i++ {
		if a.objs[i].NameLoc() == nameLoc {
			return true
		}
	}
	return false
}

// GetObj returns the slot at n.
func (a *ObjArray) GetObj(n uint32) *Value {
	return &a.objs[n]
}

// SetObj copy-assigns v into slot loc: the incoming composite gains a
// count before the previous occupant loses one; self-assignment is a
// no-op; nil may not be stored.
func (a *ObjArray) SetObj(loc uint32, v Value) {
	slot := a.GetObj(loc)
	if v.Type() == TNil {
		terror.Runtime(terror.RuntimeAssignNil, "ObjArray.SetObj", "")
	}
	if v.IsCompo() {
		if slot.IsCompo() && slot.Compo() == v.Compo() {
			return
		}
		v.Compo().AddRef()
	}
	slot.DecRefClear()
	slot.Set(v)
}

// ReleaseAll clears every slot up to capacity. Environments call it when
// they are destroyed.
func (a *ObjArray) ReleaseAll() {
	for i := range a.objs {
		a.objs[i].DecRefClear()
	}
	a.n = 0
}

// Env is one node of the lexical-environment tree: a slot array, a parent
// pointer and the per-node VM state (evaluation stack, argument vector,
// arities, category tag). Closures and libraries embed it.
type Env struct {
	ObjArray
	parent      *Env
	locInParent uint32

	vmstack    []Value
	params     []Value
	tmpMax     uint16
	regMax     uint8
	nparams    uint8
	dynNParams uint8
	kind       CompoKind

	// owner is the composite this environment belongs to; the parent
	// scan and the THIS opcode need it.
	owner Composite
}

// initEnv wires an embedded Env. The parent chain is checked for cycles;
// the node's cutoff into the parent (locInParent) is the parent slot
// holding owner, or the parent's declared length when owner is not yet
// stored there.
func (e *Env) initEnv(objCap uint32, parent *Env, regMax uint8, tmpMax uint16, nparams uint8, kind CompoKind, owner Composite) {
	e.ObjArray = NewObjArray(objCap)
	e.parent = parent
	e.kind = kind
	e.owner = owner
	e.tmpMax = tmpMax
	e.nparams = nparams
	e.SetRegMax(regMax)

	for p := parent; p != nil; p = p.parent {
		if p == e {
			terror.Runtime(terror.RuntimeLoopRef, "Env.initEnv", "")
		}
	}
	if parent == nil {
		return
	}
	e.locInParent = parent.ObjLen()
	for i := uint32(0); i < parent.ObjLen(); i++ {
		v := parent.ObjArray.GetObj(i)
		if v.IsCompo() && v.Compo() == owner {
			e.locInParent = i
			break
		}
	}
}

// Parent is the enclosing environment, nil at the root.
func (e *Env) Parent() *Env { return e.parent }

// Top walks to the root of the tree.
func (e *Env) Top() *Env {
	top := e
	for top.parent != nil {
		top = top.parent
	}
	return top
}

// LocInParent is the number of parent slots visible from this node.
func (e *Env) LocInParent() uint32 { return e.locInParent }

func (e *Env) EnvKind() CompoKind        { return e.kind }
func (e *Env) SetEnvKind(k CompoKind)    { e.kind = k }
func (e *Env) Owner() Composite          { return e.owner }
func (e *Env) NParams() uint8            { return e.nparams }
func (e *Env) SetNParams(n uint8)        { e.nparams = n }
func (e *Env) DynNParams() uint8         { return e.dynNParams }
func (e *Env) SetDynNParams(n uint8)     { e.dynNParams = n }
func (e *Env) TmpMax() uint16            { return e.tmpMax }
func (e *Env) SetTmpMax(n uint16)        { e.tmpMax = n }
func (e *Env) RegMax() uint8             { return e.regMax }
func (e *Env) VMStack() []Value          { return e.vmstack }
func (e *Env) Params() []Value           { return e.params }
func (e *Env) SetParams(params []Value)  { e.params = params }

// SetRegMax resizes the node's evaluation-stack buffer.
func (e *Env) SetRegMax(n uint8) {
	e.regMax = n
	if n == 0 {
		e.vmstack = nil
		return
	}
	e.vmstack = make([]Value, n)
	for i := range e.vmstack {
		e.vmstack[i] = Nil()
	}
}

// GetObj resolves a linear offset from this node: offsets beyond the local
// length pass upward to the parent.
func (e *Env) GetObj(loc uint32) *Value {
	if loc < e.ObjLen() {
		return e.ObjArray.GetObj(loc)
	}
	if e.parent == nil {
		terror.Runtime(terror.RuntimeObjUnfound, "Env.GetObj", "")
	}
	return e.parent.getObjFrom(loc-e.ObjLen(), e)
}

func (e *Env) getObjFrom(loc uint32, from *Env) *Value {
	if loc < from.locInParent {
		return e.ObjArray.GetObj(loc)
	}
	if e.parent == nil {
		terror.Runtime(terror.RuntimeObjUnfound, "Env.GetObj", "")
	}
	return e.parent.getObjFrom(loc-from.locInParent, e)
}

// SetObj writes through the same offset protocol as GetObj.
func (e *Env) SetObj(loc uint32, v Value) {
	if loc < e.ObjLen() {
		e.ObjArray.SetObj(loc, v)
		return
	}
	if e.parent == nil {
		terror.Runtime(terror.RuntimeObjUnfound, "Env.SetObj", "")
	}
	e.parent.setObjFrom(loc-e.ObjLen(), v, e)
}

func (e *Env) setObjFrom(loc uint32, v Value, from *Env) {
	if loc < from.locInParent {
		e.ObjArray.SetObj(loc, v)
		return
	}
	if e.parent == nil {
		terror.Runtime(terror.RuntimeEnvInconsis, "Env.SetObj", "")
	}
	e.parent.setObjFrom(loc-from.locInParent, v, e)
}

// AddObjChecked declares a slot guarding the environment limit.
func (e *Env) AddObjChecked(nameLoc uint32) {
	if e.ObjLen() >= code.ObjLimit {
		terror.Runtime(terror.RuntimeEnvInconsis, "Env.AddObjChecked", "object list full")
	}
	e.AddObj(nameLoc)
}
