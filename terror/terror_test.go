package terror

import (
	"errors"
	"testing"
)

func TestErrorString(t *testing.T) {
	e := &Error{Family: FamilyCompile, Kind: CompileDblDeclare, Fn: "ObjCtr.Create", Note: "x"}
	want := "compile error [dbl-declare] at ObjCtr.Create: x"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
	e = &Error{Family: FamilyRuntime, Kind: RuntimeDivIntZero, Fn: "operatorDiv"}
	want = "runtime error [div-int-zero] at operatorDiv"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestErrorIsMatchesFamilyAndKind(t *testing.T) {
	err := &Error{Family: FamilyRuntime, Kind: RuntimeAssignNil, Fn: "somewhere"}
	if !errors.Is(err, &Error{Family: FamilyRuntime, Kind: RuntimeAssignNil}) {
		t.Error("same family and kind did not match")
	}
	if errors.Is(err, &Error{Family: FamilyCompile, Kind: RuntimeAssignNil}) {
		t.Error("different family matched")
	}
	if errors.Is(err, &Error{Family: FamilyRuntime, Kind: RuntimeRefType}) {
		t.Error("different kind matched")
	}
}

func TestRecoverConvertsPanics(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		Compile(CompileUnfoundFile, "test", "m.tap")
		return nil
	}
	err := run()
	var te *Error
	if !errors.As(err, &te) {
		t.Fatalf("recovered %T, want *Error", err)
	}
	if te.Family != FamilyCompile || te.Kind != CompileUnfoundFile {
		t.Errorf("recovered %v", te)
	}
}

func TestRecoverRethrowsForeignPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("foreign panic was swallowed")
		}
	}()
	var err error
	defer Recover(&err)
	panic("not a terror")
}
