package session

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/zhuanglinsheng/tapas/code"
	"github.com/zhuanglinsheng/tapas/object"
	"github.com/zhuanglinsheng/tapas/terror"
)

// Stdout is where print and sprt write.
var Stdout io.Writer = os.Stdout

// gen_print: print(v1, v2, ...) writes the brief rendering of each
// argument and a newline.
func genPrint(params []object.Value, out *object.Value) {
	var b strings.Builder
	for i := range params {
		b.WriteString(params[i].Abbr())
	}
	fmt.Fprintln(Stdout, b.String())
	out.SetNil()
}

// gen_sprt: sprt(v1, v2, ...) writes the full rendering of each argument.
func genSprt(params []object.Value, out *object.Value) {
	var b strings.Builder
	for i := range params {
		b.WriteString(params[i].Full())
	}
	fmt.Fprintln(Stdout, b.String())
	out.SetNil()
}

func wantParams(params []object.Value, n int, fn string) {
	if len(params) != n {
		terror.Runtime(terror.RuntimeParamsCtr, fn, fmt.Sprintf("%d parameter(s)", n))
	}
}

// gen_len: len(v) is the semantic length of a value.
func genLen(params []object.Value, out *object.Value) {
	wantParams(params, 1, "genLen")
	switch params[0].Type() {
	case object.TNil:
		out.SetInt(0)
	case object.TCompo:
		out.SetInt(params[0].Compo().Len())
	default:
		out.SetInt(1)
	}
}

// gen_type: type(v) names the value's type.
func genType(params []object.Value, out *object.Value) {
	wantParams(params, 1, "genType")
	switch params[0].Type() {
	case object.TNil:
		out.SetCompo(object.NewStr("nil"))
	case object.TBool:
		out.SetCompo(object.NewStr("bool"))
	case object.TInt:
		out.SetCompo(object.NewStr("int"))
	case object.TFloat:
		out.SetCompo(object.NewStr("float"))
	case object.TCompo:
		out.SetCompo(object.NewStr(params[0].Compo().TypeName()))
	}
}

// gen_copy: copy(v) deep-copies composites.
func genCopy(params []object.Value, out *object.Value) {
	wantParams(params, 1, "genCopy")
	*out = params[0].Copy()
}

// gen_identical: identical(a, b).
func genIdentical(params []object.Value, out *object.Value) {
	wantParams(params, 2, "genIdentical")
	out.SetBool(params[0].Identical(params[1]))
}

func toBool(params []object.Value, out *object.Value) {
	wantParams(params, 1, "toBool")
	switch params[0].Type() {
	case object.TNil:
		terror.Runtime(terror.RuntimeAssignNil, "toBool", "")
	case object.TInt:
		out.SetBool(params[0].Int() != 0)
	case object.TBool:
		out.SetBool(params[0].Bool())
	default:
		terror.Runtime(terror.RuntimeParamsType, "toBool", "")
	}
}

func toInt(params []object.Value, out *object.Value) {
	wantParams(params, 1, "toInt")
	switch params[0].Type() {
	case object.TNil:
		terror.Runtime(terror.RuntimeAssignNil, "toInt", "")
	case object.TInt:
		out.SetInt(params[0].Int())
	case object.TFloat:
		f := params[0].Float()
		if f >= 1<<63 || f < -(1<<63) {
			terror.Runtime(terror.RuntimeIntOutOfRange, "toInt", "")
		}
		out.SetInt(int64(f))
	case object.TBool:
		if params[0].Bool() {
			out.SetInt(1)
		} else {
			out.SetInt(0)
		}
	default:
		terror.Runtime(terror.RuntimeParamsType, "toInt", "")
	}
}

func toDouble(params []object.Value, out *object.Value) {
	wantParams(params, 1, "toDouble")
	switch params[0].Type() {
	case object.TInt:
		out.SetFloat(float64(params[0].Int()))
	case object.TFloat:
		out.SetFloat(params[0].Float())
	case object.TBool:
		if params[0].Bool() {
			out.SetFloat(1)
		} else {
			out.SetFloat(0)
		}
	default:
		terror.Runtime(terror.RuntimeParamsType, "toDouble", "")
	}
}

func mustStr(v *object.Value, fn string) *object.Str {
	if v.IsCompo() {
		if s, ok := v.Compo().(*object.Str); ok {
			return s
		}
	}
	terror.Runtime(terror.RuntimeParamsType, fn, "should be 'String'")
	return nil
}

func strToBool(params []object.Value, out *object.Value) {
	wantParams(params, 1, "strToBool")
	out.SetBool(mustStr(&params[0], "strToBool").ToBool())
}

func strToInt(params []object.Value, out *object.Value) {
	wantParams(params, 1, "strToInt")
	out.SetInt(mustStr(&params[0], "strToInt").ToInt())
}

func strToDouble(params []object.Value, out *object.Value) {
	wantParams(params, 1, "strToDouble")
	out.SetFloat(mustStr(&params[0], "strToDouble").ToFloat())
}

func mustIntArg(v *object.Value, fn string) int64 {
	if v.Type() != object.TInt {
		terror.Runtime(terror.RuntimeParamsType, fn, "should be 'int'")
	}
	return v.Int()
}

// to_iter: toiter(from, by, to).
func toIter(params []object.Value, out *object.Value) {
	wantParams(params, 3, "toIter")
	start := mustIntArg(&params[0], "toIter")
	middle := mustIntArg(&params[1], "toIter")
	end := mustIntArg(&params[2], "toIter")
	out.SetCompo(object.NewIterStep(start, middle, end))
}

// to_pair: topair(a, b).
func toPair(params []object.Value, out *object.Value) {
	wantParams(params, 2, "toPair")
	out.SetCompo(object.NewPair(params[0], params[1]))
}

// to_list: tolist(v1, v2, ...) is also the list-literal constructor.
func toList(params []object.Value, out *object.Value) {
	out.SetCompo(object.NewListOf(params))
}

// to_str: tostr(v).
func toStr(params []object.Value, out *object.Value) {
	wantParams(params, 1, "toStr")
	out.SetCompo(object.NewStr(params[0].Abbr()))
}

// set_append: append(set, ele) for strings, lists and dicts (pairs).
func setAppend(params []object.Value, out *object.Value) {
	wantParams(params, 2, "setAppend")
	if !params[0].IsCompo() {
		terror.Runtime(terror.RuntimeRefType, "setAppend", "")
	}
	switch set := params[0].Compo().(type) {
	case *object.Str:
		set.Append(&params[1])
	case *object.List:
		set.Append(&params[1])
	case *object.Dict:
		set.AppendPair(&params[1])
	default:
		terror.Runtime(terror.RuntimeRefType, "setAppend", "")
	}
	out.SetNil()
}

// set_insert: insert(set, ele, loc).
func setInsert(params []object.Value, out *object.Value) {
	wantParams(params, 3, "setInsert")
	if !params[0].IsCompo() {
		terror.Runtime(terror.RuntimeRefType, "setInsert", "")
	}
	loc := mustIntArg(&params[2], "setInsert")
	switch set := params[0].Compo().(type) {
	case *object.Str:
		set.Insert(&params[1], loc)
	case *object.List:
		set.Insert(&params[1], loc)
	default:
		terror.Runtime(terror.RuntimeRefType, "setInsert", "")
	}
	out.SetNil()
}

// set_pop: pop(set, key) removes one element: by index for strings and
// lists, by key for dicts.
func setPop(params []object.Value, out *object.Value) {
	wantParams(params, 2, "setPop")
	if !params[0].IsCompo() {
		terror.Runtime(terror.RuntimeRefType, "setPop", "")
	}
	switch set := params[0].Compo().(type) {
	case *object.Str:
		set.Delete(mustIntArg(&params[1], "setPop"))
	case *object.List:
		set.Delete(mustIntArg(&params[1], "setPop"))
	case *object.Dict:
		set.Delete(&params[1])
	default:
		terror.Runtime(terror.RuntimeRefType, "setPop", "")
	}
	out.SetNil()
}

// set_delete: delete(set, start, to) removes the range [start, to).
func setDelete(params []object.Value, out *object.Value) {
	wantParams(params, 3, "setDelete")
	if !params[0].IsCompo() {
		terror.Runtime(terror.RuntimeRefType, "setDelete", "")
	}
	switch set := params[0].Compo().(type) {
	case *object.Str:
		set.DeleteRange(params[1], params[2])
	case *object.List:
		set.DeleteRange(params[1], params[2])
	default:
		terror.Runtime(terror.RuntimeRefType, "setDelete", "")
	}
	out.SetNil()
}

// set_union: union(a, b) concatenates strings or lists, or merges dicts
// into a fresh one with b's bindings winning.
func setUnion(params []object.Value, out *object.Value) {
	wantParams(params, 2, "setUnion")
	if !params[0].IsCompo() || !params[1].IsCompo() {
		terror.Runtime(terror.RuntimeRefType, "setUnion", "")
	}
	switch a := params[0].Compo().(type) {
	case *object.Str:
		b := mustStr(&params[1], "setUnion")
		out.SetCompo(object.NewStr(a.String() + b.String()))
	case *object.List:
		b, ok := params[1].Compo().(*object.List)
		if !ok {
			terror.Runtime(terror.RuntimeRefType, "setUnion", "")
		}
		merged := object.NewList()
		for i := int64(0); i < a.Len(); i++ {
			v := a.At(i)
			merged.Append(&v)
		}
		for i := int64(0); i < b.Len(); i++ {
			v := b.At(i)
			merged.Append(&v)
		}
		out.SetCompo(merged)
	case *object.Dict:
		b, ok := params[1].Compo().(*object.Dict)
		if !ok {
			terror.Runtime(terror.RuntimeRefType, "setUnion", "")
		}
		merged := a.Copy().(*object.Dict)
		keys := b.Keys()
		for i := int64(0); i < keys.Len(); i++ {
			kv := keys.At(i)
			k := kv.Compo().(*object.Str).String()
			if v, ok := b.Get(k); ok {
				merged.Set(k, v)
			}
		}
		out.SetCompo(merged)
	default:
		terror.Runtime(terror.RuntimeRefType, "setUnion", "")
	}
}

// dict_keys: dkeys(d).
func dictKeys(params []object.Value, out *object.Value) {
	wantParams(params, 1, "dictKeys")
	d, ok := params[0].Compo().(*object.Dict)
	if !params[0].IsCompo() || !ok {
		terror.Runtime(terror.RuntimeParamsType, "dictKeys", "should be 'Dictionary'")
	}
	out.SetCompo(d.Keys())
}

// dict_values: dvalues(d).
func dictValues(params []object.Value, out *object.Value) {
	wantParams(params, 1, "dictValues")
	d, ok := params[0].Compo().(*object.Dict)
	if !params[0].IsCompo() || !ok {
		terror.Runtime(terror.RuntimeParamsType, "dictValues", "should be 'Dictionary'")
	}
	out.SetCompo(d.Values())
}

// time_now: now() wraps the current wall clock.
func timeNow(params []object.Value, out *object.Value) {
	wantParams(params, 0, "timeNow")
	out.SetCompo(object.NewTime(time.Now()))
}

// registerStd installs the std package.
func registerStd(lib *object.Library) {
	std := lib.AddPkg("std")

	std.AddHostFn("print", genPrint, code.UndefNParams)
	std.AddHostFn("sprt", genSprt, code.UndefNParams)
	std.AddHostFn("len", genLen, 1)
	std.AddHostFn("type", genType, 1)
	std.AddHostFn("copy", genCopy, 1)
	std.AddHostFn("identical", genIdentical, 2)
	std.AddHostFn("tobool", toBool, 1)
	std.AddHostFn("toint", toInt, 1)
	std.AddHostFn("todouble", toDouble, 1)

	std.AddHostFn("str2bool", strToBool, 1)
	std.AddHostFn("str2int", strToInt, 1)
	std.AddHostFn("str2double", strToDouble, 1)
	std.AddHostFn("toiter", toIter, 3)
	std.AddHostFn("topair", toPair, 2)
	std.AddHostFn("tolist", toList, code.UndefNParams)
	std.AddHostFn("tostr", toStr, 1)
	std.AddHostFn("append", setAppend, 2)
	std.AddHostFn("insert", setInsert, 3)
	std.AddHostFn("pop", setPop, 2)
	std.AddHostFn("delete", setDelete, 3)
	std.AddHostFn("union", setUnion, 2)
	std.AddHostFn("dkeys", dictKeys, 1)
	std.AddHostFn("dvalues", dictValues, 1)
	std.AddHostFn("now", timeNow, 0)

	// The top-level aliases every script reaches for without the package
	// prefix.
	lib.AddDefault("print", object.Compo(object.NewHostFunc(genPrint, "print", code.UndefNParams)))
	lib.AddDefault("len", object.Compo(object.NewHostFunc(genLen, "len", 1)))
	lib.AddDefault("type", object.Compo(object.NewHostFunc(genType, "type", 1)))
}

// lib_ls: sys::__ls__([lib]) lists a library's names.
func libLs(params []object.Value, out *object.Value, env *object.Env) {
	if len(params) > 1 {
		terror.Runtime(terror.RuntimeParamsCtr, "libLs", "")
	}
	if len(params) == 1 {
		lib, ok := params[0].Compo().(*object.Library)
		if !params[0].IsCompo() || !ok {
			terror.Runtime(terror.RuntimeParamsType, "libLs", "")
		}
		out.SetCompo(lib.ListObjects())
		return
	}
	lib, ok := env.Top().Owner().(*object.Library)
	if !ok {
		terror.Runtime(terror.RuntimeRefType, "libLs", "library supported only")
	}
	out.SetCompo(lib.ListObjects())
}

// lib_path: sys::__path__([lib]) lists a library's search paths.
func libPath(params []object.Value, out *object.Value, env *object.Env) {
	if len(params) > 1 {
		terror.Runtime(terror.RuntimeParamsCtr, "libPath", "")
	}
	if len(params) == 1 {
		lib, ok := params[0].Compo().(*object.Library)
		if !params[0].IsCompo() || !ok {
			terror.Runtime(terror.RuntimeParamsType, "libPath", "")
		}
		out.SetCompo(lib.ListPaths())
		return
	}
	lib, ok := env.Top().Owner().(*object.Library)
	if !ok {
		terror.Runtime(terror.RuntimeEnvInconsis, "libPath", "")
	}
	out.SetCompo(lib.ListPaths())
}

// tf_param: sys::__param__(idx) reads the idx-th argument of the
// enclosing function invocation; variadic functions read their arguments
// this way.
func tfParam(params []object.Value, out *object.Value, env *object.Env) {
	if env.Parent() == nil {
		terror.Runtime(terror.RuntimeEnvInconsis, "tfParam", "")
	}
	if len(params) != 1 {
		terror.Runtime(terror.RuntimeParamsCtr, "tfParam", "1 parameter")
	}
	idx := mustIntArg(&params[0], "tfParam")
	if idx < 0 || idx >= int64(env.DynNParams()) {
		terror.Runtime(terror.RuntimeIdxOutRange, "tfParam", "")
	}
	*out = env.Params()[idx]
}

// tf_nparam: sys::__nparam__() counts the enclosing invocation's
// arguments.
func tfNParam(params []object.Value, out *object.Value, env *object.Env) {
	if env.Parent() == nil {
		terror.Runtime(terror.RuntimeEnvInconsis, "tfNParam", "")
	}
	if len(params) != 0 {
		terror.Runtime(terror.RuntimeParamsCtr, "tfNParam", "0 parameter")
	}
	out.SetInt(int64(env.DynNParams()))
}

// registerSys installs the session-level sys package.
func registerSys(lib *object.Library) {
	sys := lib.AddPkg("sys")
	sys.AddSessFn("__ls__", libLs)
	sys.AddSessFn("__path__", libPath)
	sys.AddSessFn("__param__", tfParam)
	sys.AddSessFn("__nparam__", tfNParam)
}
