package compiler

import (
	"github.com/zhuanglinsheng/tapas/code"
	"github.com/zhuanglinsheng/tapas/terror"
)

// StkCtr tracks the evaluation-stack depth statically as instructions are
// emitted, so the artifact header's per-frame depth is exact.
type StkCtr struct {
	ctr uint16
	max uint16
}

func (s *StkCtr) update() {
	if s.max < s.ctr {
		s.max = s.ctr
	}
}

// Add pushes one stack slot.
func (s *StkCtr) Add() {
	if s.ctr+1 > code.RegLimit {
		terror.Compile(terror.CompileRegOverflow, "StkCtr.Add", "")
	}
	s.ctr++
	s.update()
}

// AddN pushes n stack slots.
func (s *StkCtr) AddN(n uint16) {
	if s.ctr+n > code.RegLimit {
		terror.Compile(terror.CompileRegOverflow, "StkCtr.AddN", "")
	}
	s.ctr += n
	s.update()
}

// Ddt pops one stack slot.
func (s *StkCtr) Ddt() {
	if s.ctr == 0 {
		terror.Compile(terror.CompileRegOverflow, "StkCtr.Ddt", "")
	}
	s.ctr--
}

// DdtN pops n stack slots.
func (s *StkCtr) DdtN(n uint16) {
	if s.ctr < n {
		terror.Compile(terror.CompileRegOverflow, "StkCtr.DdtN", "")
	}
	s.ctr -= n
}

func (s *StkCtr) Ctr() uint16 { return s.ctr }
func (s *StkCtr) Max() uint16 { return s.max }

// ObjCtr is a compile-time variable table: the names declared in one
// environment, linked to the table of the enclosing compiler. The named
// table and the temporary table are both ObjCtrs; temporaries simply never
// link a parent.
type ObjCtr struct {
	objs      []string
	envObjMax uint32
	father    *ObjCtr
	npreload  uint32
}

// NewObjCtr builds a table seeded with preludes (the host's default names,
// or a function's parameters).
func NewObjCtr(preludes []string, father *ObjCtr) ObjCtr {
	o := ObjCtr{father: father}
	o.objs = append(o.objs, preludes...)
	o.envObjMax = uint32(len(o.objs))
	o.npreload = uint32(len(o.objs))
	if o.LenAll() >= code.ObjLimit {
		terror.Compile(terror.CompileObjOverflow, "NewObjCtr", "")
	}
	return o
}

// FirstNObjs returns the first n names; imports seed their root compiler
// with the host defaults this way.
func (o *ObjCtr) FirstNObjs(n uint32) []string {
	out := make([]string, n)
	copy(out, o.objs[:n])
	return out
}

// LenCurrent is the number of names in this table.
func (o *ObjCtr) LenCurrent() uint32 {
	return uint32(len(o.objs))
}

// LenAll is the number of names along the whole father chain.
func (o *ObjCtr) LenAll() uint32 {
	if o.father == nil {
		return o.LenCurrent()
	}
	return o.LenCurrent() + o.father.LenAll()
}

// MaxCurrent is the maximum occupancy this table reached.
func (o *ObjCtr) MaxCurrent() uint32 {
	return o.envObjMax
}

// Loc resolves name to a linear offset: the local index when found here,
// otherwise the local length plus the father's resolution. A miss returns
// LenAll.
func (o *ObjCtr) Loc(name string) uint32 {
	loc := uint32(0)
	for _, n := range o.objs {
		if n == name {
			break
		}
		loc++
	}
	if o.father != nil && loc == o.LenCurrent() {
		return loc + o.father.Loc(name)
	}
	return loc
}

// Create declares name, interning it into the string pool and returning
// its local slot. Shadowing within the table and declaration inside a
// control-flow block are rejected.
func (o *ObjCtr) Create(name string, inblk bool, consts *code.Consts, nameLoc *uint32) uint32 {
	loc := o.Loc(name)
	lenCurrent := o.LenCurrent()
	if o.LenAll()+1 >= code.ObjLimit {
		terror.Compile(terror.CompileObjOverflow, "ObjCtr.Create", name)
	}
	if inblk {
		terror.Compile(terror.CompileInBlkVarDef, "ObjCtr.Create", name)
	}
	if loc < lenCurrent {
		terror.Compile(terror.CompileDblDeclare, "ObjCtr.Create", name)
	}
	*nameLoc = consts.AddStr(name)
	o.objs = append(o.objs, name)
	if o.envObjMax < uint32(len(o.objs)) {
		o.envObjMax = uint32(len(o.objs))
	}
	return lenCurrent
}

// DelLastN drops the last n names; preludes are never dropped.
func (o *ObjCtr) DelLastN(n uint32) {
	for ; n > 0; n-- {
		if uint32(len(o.objs)) > o.npreload {
			o.objs = o.objs[:len(o.objs)-1]
		} else {
			terror.Compile(terror.CompileObjOverflow, "ObjCtr.DelLastN", "")
		}
	}
}

// IsPreload reports whether the resolved offset loc names one of the
// host's default registrations. Only the root table carries defaults.
func (o *ObjCtr) IsPreload(loc uint32) bool {
	if o.father == nil {
		return loc < o.npreload
	}
	if loc < o.LenCurrent() {
		return false
	}
	return o.father.IsPreload(loc - o.LenCurrent())
}
