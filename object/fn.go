package object

import "github.com/zhuanglinsheng/tapas/code"

// Function is a closure: a function value that is itself an environment,
// capturing its defining parent. The bytecode body lives inline in the
// enclosing artifact at [cmdLoc, cmdLoc+nCmds).
type Function struct {
	RefCount
	Env
	cmdLoc uint32
	nCmds  uint32
}

// NewFunction builds a closure over parent. nparams may be the
// UNDEF_NPARAMS sentinel for variadic functions.
func NewFunction(nlocals uint32, parent *Env, regMax uint8, tmpMax uint16, nparams uint8, cmdLoc, nCmds uint32) *Function {
	f := &Function{cmdLoc: cmdLoc, nCmds: nCmds}
	f.initEnv(nlocals, parent, regMax, tmpMax, nparams, KindFunc, f)
	return f
}

// NewFrame builds the per-invocation frame of a call to f: an environment
// with f's shape over f's defining parent. The parent cutoff is inherited
// from f so compiled offsets resolve identically in every invocation.
func NewFrame(f *Function) *Function {
	fr := &Function{cmdLoc: f.cmdLoc, nCmds: f.nCmds}
	fr.initEnv(f.ObjCap(), f.Parent(), f.RegMax(), f.TmpMax(), f.NParams(), KindFunc, fr)
	fr.locInParent = f.locInParent
	return fr
}

// AssignParams resets the environment's slots and binds the positional
// arguments. Variadic functions leave the slots empty and read arguments
// through the params vector.
func (f *Function) AssignParams(params []Value, nparams uint8) {
	f.SetObjLen(0)
	if f.NParams() != code.UndefNParams {
		for i := uint8(0); i < nparams; i++ {
			f.AddObj(code.UndefNameLoc)
			f.Env.SetObj(uint32(i), params[i])
		}
	}
	f.SetDynNParams(nparams)
	f.SetParams(params)
}

func (f *Function) CmdLoc() uint32 { return f.cmdLoc }
func (f *Function) NCmds() uint32  { return f.nCmds }

func (f *Function) TypeName() string { return "Function" }
func (f *Function) Kind() CompoKind  { return KindFunc }
func (f *Function) Len() int64       { return 0 }
func (f *Function) Abbr() string     { return pointerString(f.TypeName(), f) }
func (f *Function) Full() string     { return f.Abbr() }

func (f *Function) Copy() Composite {
	return NewFunction(f.ObjCap(), f.Parent(), f.RegMax(), f.TmpMax(), f.NParams(), f.cmdLoc, f.nCmds)
}

func (f *Function) Identical(v Composite) bool {
	o, ok := v.(*Function)
	return ok && o == f
}

func (f *Function) Release() {
	f.ObjArray.ReleaseAll()
}

// HostFn is a general host function: arguments in, one value out.
type HostFn func(params []Value, out *Value)

// HostFunc wraps a general host function as a composite.
type HostFunc struct {
	RefCount
	f       HostFn
	name    string
	nparams uint8
}

func NewHostFunc(f HostFn, name string, nparams uint8) *HostFunc {
	return &HostFunc{f: f, name: name, nparams: nparams}
}

func (h *HostFunc) Fn() HostFn      { return h.f }
func (h *HostFunc) Name() string    { return h.name }
func (h *HostFunc) NParams() uint8  { return h.nparams }
func (h *HostFunc) TypeName() string { return "Host General Function" }
func (h *HostFunc) Kind() CompoKind { return KindHostFunc }
func (h *HostFunc) Len() int64      { return 0 }
func (h *HostFunc) Abbr() string    { return pointerString(h.TypeName(), h) }
func (h *HostFunc) Full() string    { return h.Abbr() }
func (h *HostFunc) Copy() Composite { return NewHostFunc(h.f, h.name, h.nparams) }
func (h *HostFunc) Release()        {}

func (h *HostFunc) Identical(v Composite) bool {
	o, ok := v.(*HostFunc)
	return ok && o == h
}

// SessFn is a session-level host function: it additionally receives the
// environment the call site runs in.
type SessFn func(params []Value, out *Value, env *Env)

// SessFunc wraps a session-level host function as a composite.
type SessFunc struct {
	RefCount
	f    SessFn
	name string
}

func NewSessFunc(f SessFn, name string) *SessFunc {
	return &SessFunc{f: f, name: name}
}

func (h *SessFunc) Fn() SessFn       { return h.f }
func (h *SessFunc) Name() string     { return h.name }
func (h *SessFunc) TypeName() string { return "Host Session Function" }
func (h *SessFunc) Kind() CompoKind  { return KindSessFunc }
func (h *SessFunc) Len() int64       { return 0 }
func (h *SessFunc) Abbr() string     { return pointerString(h.TypeName(), h) }
func (h *SessFunc) Full() string     { return h.Abbr() }
func (h *SessFunc) Copy() Composite  { return NewSessFunc(h.f, h.name) }
func (h *SessFunc) Release()         {}

func (h *SessFunc) Identical(v Composite) bool {
	o, ok := v.(*SessFunc)
	return ok && o == h
}
