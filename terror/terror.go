// Package terror defines the error kinds raised by the Tapas toolchain.
//
// Three families exist: compile-time errors, session errors (artifact IO)
// and runtime errors. Deep pipeline stages raise errors by panicking with
// an *Error; the public entry points of the compiler, the VM and the
// session recover them back into ordinary error returns.
package terror

import "fmt"

// Family tells which stage of the toolchain raised an error.
type Family uint8

const (
	FamilyCompile Family = iota
	FamilySession
	FamilyRuntime
)

func (f Family) String() string {
	switch f {
	case FamilyCompile:
		return "compile"
	case FamilySession:
		return "session"
	case FamilyRuntime:
		return "runtime"
	}
	return "unknown"
}

// Kind is the machine-readable error code within a family.
type Kind string

// Compile-time error kinds.
const (
	CompileOther        Kind = "other"
	CompileUnfoundFile  Kind = "unfound-file"
	CompileBracketsOpen Kind = "brackets-open"
	CompileVarNoType    Kind = "var-no-type"
	CompileDblDeclare   Kind = "dbl-declare"
	CompileInBlkVarDef  Kind = "in-block-var-def"
	CompileObjUnfound   Kind = "obj-unfound"
	CompileInvalidVName Kind = "invalid-vname"
	CompileInvalidLiter Kind = "invalid-liter"
	CompileAsgDefault   Kind = "asg-default"
	CompileRegOverflow  Kind = "reg-overflow"
	CompileCmdOverflow  Kind = "cmd-overflow"
	CompileObjOverflow  Kind = "obj-overflow"
	CompileCstOverflow  Kind = "cst-overflow"
	CompileReturnTmpObj Kind = "return-tmp-obj"
	CompileInvalidFile  Kind = "invalid-file"
)

// Session error kinds.
const (
	SessionIO Kind = "io"
)

// Runtime error kinds.
const (
	RuntimeOther         Kind = "other"
	RuntimeDivIntZero    Kind = "div-int-zero"
	RuntimeParamsCtr     Kind = "params-ctr"
	RuntimeParamsType    Kind = "params-type"
	RuntimeIdxOutRange   Kind = "idx-out-range"
	RuntimeInvalidIndex  Kind = "invalid-index"
	RuntimeLoopRef       Kind = "loop-ref"
	RuntimeRefType       Kind = "ref-type"
	RuntimeLenInconsis   Kind = "len-inconsis"
	RuntimeAssignNil     Kind = "assign-nil"
	RuntimeObjUnfound    Kind = "obj-unfound"
	RuntimeIntOutOfRange Kind = "int-out-of-range"
	RuntimeRefEmptySet   Kind = "ref-empty-set"
	RuntimeStringEval    Kind = "string-eval"
	RuntimeEnvInconsis   Kind = "env-inconsis"
	RuntimeRecurseRefRet Kind = "recurse-ref-ret"
)

// Error carries the family, the kind, the name of the function that raised
// it and a free-form note. It is the only error type the toolchain raises.
type Error struct {
	Family Family
	Kind   Kind
	Fn     string
	Note   string
}

func (e *Error) Error() string {
	if e.Note == "" {
		return fmt.Sprintf("%s error [%s] at %s", e.Family, e.Kind, e.Fn)
	}
	return fmt.Sprintf("%s error [%s] at %s: %s", e.Family, e.Kind, e.Fn, e.Note)
}

// Is reports whether target is a *Error with the same family and kind, so
// callers can match with errors.Is against sentinel values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Family == e.Family && t.Kind == e.Kind
}

// Compile raises a compile-time error by panicking. The compiler entry
// points recover it.
func Compile(kind Kind, fn, note string) {
	panic(&Error{Family: FamilyCompile, Kind: kind, Fn: fn, Note: note})
}

// Session raises a session error by panicking.
func Session(kind Kind, fn, note string) {
	panic(&Error{Family: FamilySession, Kind: kind, Fn: fn, Note: note})
}

// Runtime raises a runtime error by panicking. The VM entry points
// recover it.
func Runtime(kind Kind, fn, note string) {
	panic(&Error{Family: FamilyRuntime, Kind: kind, Fn: fn, Note: note})
}

// Recover converts a panic value produced by Compile/Session/Runtime back
// into an error. Any other panic value is re-raised. Use as
//
//	defer terror.Recover(&err)
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	te, ok := r.(*Error)
	if !ok {
		panic(r)
	}
	*err = te
}
