package vm

import (
	"fmt"
	"strings"

	"github.com/zhuanglinsheng/tapas/code"
	"github.com/zhuanglinsheng/tapas/object"
	"github.com/zhuanglinsheng/tapas/terror"
)

// VM executes bytecode against one frame: an evaluation stack borrowed
// from the frame's environment, a temporary-object array, and the current
// return-value register. Calls build a fresh VM per frame.
type VM struct {
	tmps   object.ObjArray
	stk    []object.Value
	stkLen int
	regMax uint8
	rev    object.Value
}

// New builds a VM with room for tmpMax temporaries.
func New(tmpMax uint16) *VM {
	return &VM{tmps: object.NewObjArray(uint32(tmpMax)), rev: object.Nil()}
}

// SetTmpMax grows the temporary store.
func (vm *VM) SetTmpMax(tmpMax uint16) {
	vm.tmps.TryExpand(uint32(tmpMax))
}

// SetVMStack borrows an environment's evaluation-stack buffer.
func (vm *VM) SetVMStack(stack []object.Value, regMax uint8) {
	vm.stk = stack
	vm.regMax = regMax
	vm.stkLen = 0
}

// Clean releases the return register and every remaining stack cell.
func (vm *VM) Clean() {
	vm.rev.TryClear(false)
	vm.popCleanN(vm.stkLen)
	vm.tmps.ReleaseAll()
}

// Rev is the current return register.
func (vm *VM) Rev() *object.Value { return &vm.rev }

func (vm *VM) top() *object.Value {
	return &vm.stk[vm.stkLen-1]
}

func (vm *VM) at(loc int) *object.Value {
	return &vm.stk[vm.stkLen-loc-1]
}

func (vm *VM) topN(n int) []object.Value {
	return vm.stk[vm.stkLen-n : vm.stkLen]
}

func (vm *VM) topFree() *object.Value {
	return &vm.stk[vm.stkLen]
}

func (vm *VM) topFreeFilled() {
	vm.stkLen++
}

// popFront removes the top cell, transferring its value out. The cell is
// reset so later free-cell writes never see a stale reference.
func (vm *VM) popFront() object.Value {
	v := vm.stk[vm.stkLen-1]
	vm.stk[vm.stkLen-1].SetNil()
	vm.stkLen--
	return v
}

// popCleanFront removes the top cell, destroying an owned (count zero)
// composite; borrowed references survive.
func (vm *VM) popCleanFront() {
	vm.stk[vm.stkLen-1].TryClear(false)
	vm.stkLen--
}

func (vm *VM) popCleanN(n int) {
	for i := 0; i < n; i++ {
		vm.popCleanFront()
	}
}

func (vm *VM) pushFront(v object.Value) {
	vm.stk[vm.stkLen] = v
	vm.stkLen++
}

// pushRevGuarded pops npop cells and pushes the return register. A
// composite result is pinned across the pops so cleaning an argument or
// container it aliases cannot destroy it.
func (vm *VM) pushRevGuarded(npop int) {
	rv := vm.rev
	vm.rev = object.Nil()
	guard := rv.IsCompo()
	if guard {
		rv.Compo().AddRef()
	}
	vm.popCleanN(npop)
	vm.pushFront(rv)
	if guard {
		rv.Compo().DecRef()
	}
}

// copyEnv copies the composite behind an environment for THIS and BASE.
// Libraries may not be copied.
func (vm *VM) copyEnv(env *object.Env, out *object.Value) {
	switch env.EnvKind() {
	case object.KindFunc:
		out.SetCompo(env.Owner().Copy())
	case object.KindLib:
		terror.Runtime(terror.RuntimeRefType, "VM.copyEnv", "")
	default:
		if env.Owner() == nil {
			terror.Runtime(terror.RuntimeRefType, "VM.copyEnv", "")
		}
		out.SetCompo(env.Owner().Copy())
	}
}

// execIdxR services OP_IDXR: pops the target and nparams keys, pushes the
// element.
func (vm *VM) execIdxR(nparams int) {
	obj := vm.popFront()
	if !obj.IsCompo() {
		terror.Runtime(terror.RuntimeRefType, "VM.execIdxR", "")
	}
	ix, ok := obj.Compo().(object.Indexable)
	if !ok {
		terror.Runtime(terror.RuntimeRefType, "VM.execIdxR", "un-indexable")
	}
	params := vm.topN(nparams)
	ix.Idx(params, &vm.rev)
	vm.pushFront(obj)
	vm.pushRevGuarded(1 + nparams)
}

// execIdxL services OP_IDXL: the target comes from a slot, the keys and
// the value from the stack.
func (vm *VM) execIdxL(loc uint32, nparams int, isenv bool, env *object.Env) {
	var obj *object.Value
	if isenv {
		obj = env.GetObj(loc)
	} else {
		obj = vm.tmps.GetObj(loc)
	}
	if !obj.IsCompo() {
		terror.Runtime(terror.RuntimeRefType, "VM.execIdxL", "")
	}
	ix, ok := obj.Compo().(object.Indexable)
	if !ok {
		terror.Runtime(terror.RuntimeRefType, "VM.execIdxL", "")
	}
	rv := vm.at(nparams)
	params := vm.topN(nparams)
	ix.ISet(params, *rv)
	vm.popCleanN(1 + nparams)
}

// execEval services OP_EVAL, specializing the site in place on first
// execution: host functions rewrite to EVALCF, session functions to
// EVALSF. Closures keep the generic opcode.
func (vm *VM) execEval(instrs code.Instrs, idx uint32, env *object.Env) {
	in := instrs[idx]
	nparams := int(in.U())
	obj := vm.top()
	params := vm.topN(nparams + 1)

	if !obj.IsCompo() {
		terror.Runtime(terror.RuntimeRefType, "VM.execEval", "")
	}
	switch f := obj.Compo().(type) {
	case *object.Function:
		vm.evalClosure(f, params[:nparams], uint8(nparams), env)
	case *object.HostFunc:
		f.Fn()(params[:nparams], &vm.rev)
		instrs[idx] = in.WithOp(code.OP_EVALCF)
	case *object.SessFunc:
		f.Fn()(params[:nparams], &vm.rev, env)
		instrs[idx] = in.WithOp(code.OP_EVALSF)
	default:
		terror.Runtime(terror.RuntimeRefType, "VM.execEval", obj.Full())
	}
	vm.pushRevGuarded(1 + nparams)
}

// evalClosure invokes a closure: arity check, a fresh frame whose
// environment parents the closure's defining scope, argument binding,
// execution, and teardown with the escape check on the returned value.
func (vm *VM) evalClosure(f *object.Function, params []object.Value, nparams uint8, env *object.Env) {
	if f.NParams() != code.UndefNParams && nparams != f.NParams() {
		terror.Runtime(terror.RuntimeParamsCtr, "VM.evalClosure", fmt.Sprintf("want %d params, got %d", f.NParams(), nparams))
	}
	frame := object.NewFrame(f)
	sub := New(frame.TmpMax())
	sub.SetVMStack(frame.VMStack(), frame.RegMax())

	frame.AssignParams(params, nparams)
	sub.ExecRange(f.CmdLoc(), f.NCmds(), &frame.Env)

	vm.rev = *sub.Rev()
	*sub.Rev() = object.Nil()

	// A composite that aliases a non-parameter local may not leave a
	// frame whose closure is about to be destroyed.
	if vm.rev.IsCompo() {
		loc := frame.RefObjLoc(vm.rev.Compo())
		if vm.rev.Compo().RefCtr() > 0 &&
			f.RefCtr() == 0 &&
			loc < frame.ObjLen() &&
			loc >= uint32(f.NParams()) {
			terror.Runtime(terror.RuntimeRecurseRefRet, "VM.evalClosure", "")
		}
	}
	sub.Clean()
	// The frame itself is not torn down here: an escaping closure keeps
	// its captured environment through the parent chain, and the
	// collector reclaims unreferenced frames.
}

// execImport services OP_IMPORT: load the artifact named in the string
// pool, run it inside a sibling library sharing only the default
// registrations, adopt its returned dict as the exposed dictionary and
// push the library.
func (vm *VM) execImport(cloc uint32, strs []string, env *object.Env) {
	top := env.Top()
	current, ok := top.Owner().(*object.Library)
	if !ok {
		terror.Runtime(terror.RuntimeEnvInconsis, "VM.execImport", "")
	}
	lib := current.Recreate()

	file := strs[cloc]
	base := file
	if dot := strings.LastIndex(file, "."); dot >= 0 {
		base = file[:dot]
	}
	w, err := code.Load(base + code.Suffix)
	if err != nil {
		terror.Runtime(terror.RuntimeOther, "VM.execImport", file)
	}
	lib.SetArtifact(w)

	sub := New(w.Info.TmpMax)
	sub.SetVMStack(lib.VMStack(), w.Info.RegMax)
	func() {
		defer func() {
			if r := recover(); r != nil {
				sub.Clean()
				lib.Release()
				if te, ok := r.(*terror.Error); ok {
					panic(te)
				}
				terror.Runtime(terror.RuntimeOther, "VM.execImport", file)
			}
		}()
		sub.ExecRange(0, uint32(len(w.Instrs)), &lib.Env)
	}()

	returned := *sub.Rev()
	*sub.Rev() = object.Nil()
	sub.Clean()

	if returned.IsCompo() {
		if d, isDict := returned.Compo().(*object.Dict); isDict {
			lib.SetExposed(d)
		} else {
			returned.TryClear(false)
			lib.SetExposed(object.NewDict())
		}
	} else {
		lib.SetExposed(object.NewDict())
	}

	vm.topFree().SetCompo(lib)
	vm.topFreeFilled()
}

// execLoopAs services the generic OP_LOOPAS and rewrites the site to the
// specialized form matching the iterable's kind.
func (vm *VM) execLoopAs(instrs code.Instrs, idx uint32, env *object.Env) {
	in := instrs[idx]
	loc := uint32(in.L())
	isenv := in.R() != 0

	viter := vm.top()
	if !viter.IsCompo() {
		terror.Runtime(terror.RuntimeRefType, "VM.execLoopAs", "")
	}
	switch it := viter.Compo().(type) {
	case *object.Iter:
		vm.loopAssign(it, loc, isenv, env)
		instrs[idx] = in.WithOp(code.OP_LOOPIAS)
	case *object.List:
		vm.loopAssign(it, loc, isenv, env)
		instrs[idx] = in.WithOp(code.OP_LOOPLAS)
	default:
		g, ok := viter.Compo().(object.Iterable)
		if !ok {
			terror.Runtime(terror.RuntimeRefType, "VM.execLoopAs", "")
		}
		vm.loopAssign(g, loc, isenv, env)
		instrs[idx] = in.WithOp(code.OP_LOOPGAS)
	}
	vm.topFreeFilled()
}

// loopAssign advances the iterable, binds the current element and leaves
// the continue flag in the free cell above the stack top.
func (vm *VM) loopAssign(it object.Iterable, loc uint32, isenv bool, env *object.Env) {
	vm.topFree().SetBool(it.Next())
	var v object.Value
	it.Current(&v)
	if v.Type() == object.TNil {
		return
	}
	if isenv {
		env.SetObj(loc, v)
	} else {
		vm.tmps.SetObj(loc, v)
	}
}

// execBinOp services the fused arithmetic and comparison opcodes. The
// origin-kind code popped from the stack selects where the operands come
// from; see the compiler's binopSplit for the encoding.
func (vm *VM) execBinOp(f binOpFn, in code.Instr, kind int, env *object.Env) {
	left := uint32(in.L())
	right := uint32(in.R())

	switch kind {
	case 0: // value value
		f(vm.at(int(left)), vm.at(int(right)), vm.at(int(right)))
		vm.popCleanFront()
	case 1: // env value
		f(env.GetObj(left), vm.at(int(right)), vm.at(int(right)))
	case 2: // value env
		f(vm.at(int(left)), env.GetObj(right), vm.at(int(left)))
	case 3: // env env
		f(env.GetObj(left), env.GetObj(right), vm.topFree())
		vm.topFreeFilled()
	case 4: // tmp value
		f(vm.tmps.GetObj(left), vm.at(int(right)), vm.at(int(right)))
	case 5: // value tmp
		f(vm.at(int(left)), vm.tmps.GetObj(right), vm.at(int(left)))
	case 6: // tmp tmp
		f(vm.tmps.GetObj(left), vm.tmps.GetObj(right), vm.topFree())
		vm.topFreeFilled()
	case 7: // env tmp
		f(env.GetObj(left), vm.tmps.GetObj(right), vm.topFree())
		vm.topFreeFilled()
	case 8: // tmp env
		f(vm.tmps.GetObj(left), env.GetObj(right), vm.topFree())
		vm.topFreeFilled()
	}
}

var fusedOps = map[code.Opcode]binOpFn{
	code.OP_ADD:  operatorAdd,
	code.OP_SUB:  operatorSub,
	code.OP_MUL:  operatorMul,
	code.OP_DIV:  operatorDiv,
	code.OP_MOD:  operatorMod,
	code.OP_POW:  operatorPow,
	code.OP_MMUL: operatorMMul,
	code.OP_EQ:   operatorEq,
	code.OP_NE:   operatorNe,
	code.OP_GE:   operatorGe,
	code.OP_SG:   operatorSg,
	code.OP_LE:   operatorLe,
	code.OP_SL:   operatorSl,
	code.OP_AND:  operatorAnd,
	code.OP_OR:   operatorOr,
}

// artifactOf finds the artifact owned by the library at the root of env's
// parent chain.
func artifactOf(env *object.Env) *code.Artifact {
	top := env.Top()
	lib, ok := top.Owner().(*object.Library)
	if !ok || lib.Artifact() == nil {
		terror.Runtime(terror.RuntimeEnvInconsis, "vm.artifactOf", "")
	}
	return lib.Artifact()
}

// ExecRange executes instructions [from, from+ncmds) of the enclosing
// library's artifact in env.
func (vm *VM) ExecRange(from, ncmds uint32, env *object.Env) {
	artifact := artifactOf(env)
	instrs := artifact.Instrs
	ints := artifact.Consts.Ints
	floats := artifact.Consts.Floats
	strs := artifact.Consts.Strs

	idx := from
	end := from + ncmds
	for idx < end {
		in := instrs[idx]
		switch op := in.Op(); op {
		case code.OP_PASS:

		case code.OP_VCRT:
			if in.P() != 0 {
				env.AddObjChecked(in.C())
			} else {
				vm.tmps.AddObj(in.C())
			}

		case code.OP_TMPDEL:
			vm.tmps.DelObjN(in.U())

		case code.OP_THIS:
			vm.copyEnv(env, vm.topFree())
			vm.topFreeFilled()

		case code.OP_BASE:
			if env.Parent() == nil {
				terror.Runtime(terror.RuntimeEnvInconsis, "VM.ExecRange", "no base environment")
			}
			vm.copyEnv(env.Parent(), vm.topFree())
			vm.topFreeFilled()

		case code.OP_BREAK:
			for idx < end && instrs[idx].Op() != code.OP_JPB {
				idx++
			}

		case code.OP_CONTI:
			for idx < end && instrs[idx].Op() != code.OP_JPB {
				idx++
			}
			if idx < end && instrs[idx].Op() == code.OP_JPB {
				idx--
			}

		case code.OP_RET:
			if vm.stkLen > 0 {
				vm.rev = vm.popFront()
			} else {
				vm.rev = object.Nil()
			}
			vm.popCleanN(vm.stkLen)
			return

		case code.OP_IN:
			operatorIn(vm.top(), vm.at(1), &vm.rev)
			vm.pushRevGuarded(2)

		case code.OP_PAIR:
			operatorPair(vm.top(), vm.at(1), &vm.rev)
			vm.pushRevGuarded(2)

		case code.OP_TO:
			operatorTo(vm.top(), vm.at(1), &vm.rev)
			vm.pushRevGuarded(2)

		case code.OP_POPN:
			echo := in.R() != 0
			for i := uint16(0); i < in.L(); i++ {
				if echo && vm.top().Type() != object.TNil {
					fmt.Println(vm.top().Full())
				}
				vm.popCleanFront()
			}

		case code.OP_POPCOV:
			v := vm.top()
			if in.R() != 0 {
				env.SetObj(uint32(in.L()), *v)
			} else {
				vm.tmps.SetObj(uint32(in.L()), *v)
			}
			vm.popFront()

		case code.OP_LOOPAS:
			vm.execLoopAs(instrs, idx, env)

		case code.OP_LOOPIAS:
			p := vm.top().Compo().(*object.Iter)
			vm.topFree().SetBool(p.Next())
			if in.R() != 0 {
				env.GetObj(uint32(in.L())).SetInt(p.LocIdx())
			} else {
				vm.tmps.GetObj(uint32(in.L())).SetInt(p.LocIdx())
			}
			vm.topFreeFilled()

		case code.OP_LOOPLAS:
			p := vm.top().Compo().(*object.List)
			vm.loopAssign(p, uint32(in.L()), in.R() != 0, env)
			vm.topFreeFilled()

		case code.OP_LOOPGAS:
			p := vm.top().Compo().(object.Iterable)
			vm.loopAssign(p, uint32(in.L()), in.R() != 0, env)
			vm.topFreeFilled()

		case code.OP_JPF:
			idx += in.U()

		case code.OP_JPB:
			idx -= in.U()

		case code.OP_CJPFPOP:
			if vm.top().Type() == object.TBool && !vm.top().Bool() {
				idx += in.U()
				vm.popFront()
			} else {
				vm.popCleanFront()
			}

		case code.OP_CJPBPOP:
			if vm.top().Type() == object.TBool && !vm.top().Bool() {
				idx -= in.U()
				vm.popFront()
			} else {
				vm.popCleanFront()
			}

		case code.OP_PUSHX:
			if in.R() != 0 {
				vm.topFree().Set(*env.GetObj(uint32(in.L())))
			} else {
				vm.topFree().Set(*vm.tmps.GetObj(uint32(in.L())))
			}
			vm.topFreeFilled()

		case code.OP_PUSHI:
			vm.topFree().SetInt(ints[in.U()])
			vm.topFreeFilled()

		case code.OP_PUSHD:
			vm.topFree().SetFloat(floats[in.U()])
			vm.topFreeFilled()

		case code.OP_PUSHB:
			vm.topFree().SetBool(in.U() != 0)
			vm.topFreeFilled()

		case code.OP_PUSHS:
			// A fresh string composite on every push; the pool itself is
			// never referenced by values.
			vm.topFree().SetCompo(object.NewStr(strs[in.U()]))
			vm.topFreeFilled()

		case code.OP_PUSHDICT:
			dict := object.NewDict()
			nparams := int(in.U())
			params := vm.topN(nparams)
			for i := 0; i < nparams; i++ {
				dict.AppendPair(&params[i])
			}
			vm.rev.SetCompo(dict)
			vm.pushRevGuarded(nparams)

		case code.OP_PUSHINFO:
			vm.topFree().SetInt(int64(in.U()))
			vm.topFreeFilled()

		case code.OP_IMPORT:
			vm.execImport(in.U(), strs, env)

		case code.OP_IDXR:
			vm.execIdxR(int(in.U()))

		case code.OP_EVAL:
			vm.execEval(instrs, idx, env)

		case code.OP_EVALSF:
			nparams := int(in.U())
			f := vm.top().Compo().(*object.SessFunc)
			params := vm.topN(nparams + 1)
			f.Fn()(params[:nparams], &vm.rev, env)
			vm.pushRevGuarded(1 + nparams)

		case code.OP_EVALCF:
			nparams := int(in.U())
			f := vm.top().Compo().(*object.HostFunc)
			params := vm.topN(nparams + 1)
			f.Fn()(params[:nparams], &vm.rev)
			vm.pushRevGuarded(1 + nparams)

		case code.OP_EVALTF:

		case code.OP_IDXL:
			vm.execIdxL(uint32(in.L()), int(in.B()), in.I() != 0, env)

		case code.OP_PUSHF:
			ncmds := in.U()
			vParams := vm.popFront()
			nparams := uint8(vParams.Int())
			vFregmax := vm.popFront()
			fregmax := uint8(vFregmax.Int())
			vNtmps := vm.popFront()
			ntmps := uint16(vNtmps.Int())
			vNobjs := vm.popFront()
			nobjs := uint32(vNobjs.Int())
			f := object.NewFunction(nobjs, env, fregmax, ntmps, nparams, idx+1, ncmds)
			idx += ncmds
			vm.topFree().SetCompo(f)
			vm.topFreeFilled()

		default:
			if f, ok := fusedOps[op]; ok {
				vKind := vm.popFront()
				kind := int(vKind.Int())
				vm.execBinOp(f, in, kind, env)
				break
			}
			terror.Runtime(terror.RuntimeOther, "VM.ExecRange", fmt.Sprintf("unknown opcode at %d", idx))
		}
		idx++
	}
}

// EvalArtifact executes a library's artifact from instruction `from`,
// recovering runtime errors into an ordinary error return. Partial VM
// state is cleaned; the library keeps whatever the failing instruction
// had produced.
func (vm *VM) EvalArtifact(from uint32, lib *object.Library) (err error) {
	defer func() {
		if r := recover(); r != nil {
			vm.Clean()
			if te, ok := r.(*terror.Error); ok {
				err = te
				return
			}
			panic(r)
		}
	}()
	w := lib.Artifact()
	vm.SetVMStack(lib.VMStack(), w.Info.RegMax)
	vm.ExecRange(from, uint32(len(w.Instrs))-from, &lib.Env)
	vm.SetVMStack(nil, 0)
	return nil
}
