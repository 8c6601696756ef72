package compiler

import (
	"errors"
	"reflect"
	"testing"

	"github.com/zhuanglinsheng/tapas/code"
	"github.com/zhuanglinsheng/tapas/terror"
)

func compileDefaults(t *testing.T, defaults []string, src string) *code.Artifact {
	t.Helper()
	c := NewWithDefaults(defaults, nil, false)
	a, err := c.CompileString(src, nil)
	if err != nil {
		t.Fatalf("CompileString(%q) error: %v", src, err)
	}
	return a
}

func compileErrKind(t *testing.T, defaults []string, src string) terror.Kind {
	t.Helper()
	c := NewWithDefaults(defaults, nil, false)
	_, err := c.CompileString(src, nil)
	if err == nil {
		t.Fatalf("CompileString(%q) did not fail", src)
	}
	var te *terror.Error
	if !errors.As(err, &te) {
		t.Fatalf("error is %T, want *terror.Error", err)
	}
	return te.Kind
}

func assertInstrs(t *testing.T, got code.Instrs, want []code.Instr) {
	t.Helper()
	if !reflect.DeepEqual([]code.Instr(got), want) {
		t.Errorf("instructions differ:\n got:  %v\n want: %v", got, want)
	}
}

func TestCompileFusedAdd(t *testing.T) {
	a := compileDefaults(t, nil, "1 + 2")
	assertInstrs(t, a.Instrs, []code.Instr{
		code.MakeU(code.OP_PUSHI, 0), // the right operand compiles first
		code.MakeU(code.OP_PUSHI, 1),
		code.MakeU(code.OP_PUSHINFO, 0),
		code.MakeLR(code.OP_ADD, 0, 1),
		code.MakeLR(code.OP_POPN, 1, 0),
	})
	if !reflect.DeepEqual(a.Consts.Ints, []int64{2, 1}) {
		t.Errorf("int pool = %v, want [2 1]", a.Consts.Ints)
	}
	if a.Info.RegMax != 3 {
		t.Errorf("RegMax = %d, want 3", a.Info.RegMax)
	}
}

func TestCompileVarDeclaration(t *testing.T) {
	a := compileDefaults(t, nil, "var x = 5")
	assertInstrs(t, a.Instrs, []code.Instr{
		code.MakeCP(code.OP_VCRT, 0, 1),
		code.MakeU(code.OP_PUSHI, 0),
		code.MakeLR(code.OP_POPCOV, 0, 1),
	})
	if !reflect.DeepEqual(a.Consts.Strs, []string{"x"}) {
		t.Errorf("string pool = %v, want [x]", a.Consts.Strs)
	}
	if a.Info.ObjMax != 1 {
		t.Errorf("ObjMax = %d, want 1", a.Info.ObjMax)
	}
}

func TestCompileFusedEnvEnv(t *testing.T) {
	a := compileDefaults(t, nil, "var a = 1; var b = 2; a + b")
	tail := a.Instrs[len(a.Instrs)-3:]
	assertInstrs(t, tail, []code.Instr{
		code.MakeU(code.OP_PUSHINFO, 3),
		code.MakeLR(code.OP_ADD, 0, 1),
		code.MakeLR(code.OP_POPN, 1, 0),
	})
}

func TestCompileLetUsesTemporaryTable(t *testing.T) {
	a := compileDefaults(t, nil, "let t = 3; t + 1")
	assertInstrs(t, a.Instrs, []code.Instr{
		code.MakeCP(code.OP_VCRT, 0, 0),
		code.MakeU(code.OP_PUSHI, 0),
		code.MakeLR(code.OP_POPCOV, 0, 0),
		code.MakeU(code.OP_PUSHI, 1),
		code.MakeU(code.OP_PUSHINFO, 4), // tmp (x) value
		code.MakeLR(code.OP_ADD, 0, 0),
		code.MakeLR(code.OP_POPN, 1, 0),
		code.MakeU(code.OP_TMPDEL, 1),
	})
	if a.Info.TmpMax != 1 {
		t.Errorf("TmpMax = %d, want 1", a.Info.TmpMax)
	}
}

func TestCompileIfElseShape(t *testing.T) {
	a := compileDefaults(t, nil, "if (true) { 1 }\nelse { 2 }")
	assertInstrs(t, a.Instrs, []code.Instr{
		code.MakeU(code.OP_PUSHB, 1),
		code.MakeU(code.OP_CJPFPOP, 3),
		code.MakeU(code.OP_PUSHI, 0),
		code.MakeLR(code.OP_POPN, 1, 0),
		code.MakeU(code.OP_JPF, 2),
		code.MakeU(code.OP_PUSHI, 1),
		code.MakeLR(code.OP_POPN, 1, 0),
	})
}

func TestCompileWhileShape(t *testing.T) {
	a := compileDefaults(t, nil, "var a = 0\nwhile (a < 2) { a = a + 1 }")
	n := len(a.Instrs)
	jpb := a.Instrs[n-1]
	if jpb.Op() != code.OP_JPB {
		t.Fatalf("last instruction = %v, want OP_JPB", jpb)
	}
	// The back jump must land on the first condition instruction.
	condStart := uint32(3)
	if got := uint32(n-1) - jpb.U() + 1; got != condStart {
		t.Errorf("JPB lands at %d, want %d", got, condStart)
	}
	cj := a.Instrs[n-6]
	if cj.Op() != code.OP_CJPFPOP {
		t.Fatalf("instruction %d = %v, want OP_CJPFPOP", n-6, cj)
	}
}

func TestCompileForShape(t *testing.T) {
	a := compileDefaults(t, nil, "var s = 0\nfor (i in 0 to 2) { s = s + i }")
	var loopas, jpb, popn int
	for i, in := range a.Instrs {
		switch in.Op() {
		case code.OP_LOOPAS:
			loopas = i
		case code.OP_JPB:
			jpb = i
		case code.OP_POPN:
			popn = i
		}
	}
	if loopas == 0 {
		t.Fatal("no OP_LOOPAS emitted")
	}
	if got := jpb - int(a.Instrs[jpb].U()) + 1; got != loopas {
		t.Errorf("JPB lands at %d, want the OP_LOOPAS at %d", got, loopas)
	}
	if popn < jpb {
		t.Error("iterable POPN missing after the loop")
	}
	if a.Instrs[len(a.Instrs)-1].Op() != code.OP_TMPDEL {
		t.Error("loop temporary not deleted at loop end")
	}
}

func TestCompileFunctionLiteral(t *testing.T) {
	a := compileDefaults(t, nil, "var f = (n) { return n }")
	assertInstrs(t, a.Instrs, []code.Instr{
		code.MakeCP(code.OP_VCRT, 0, 1),
		code.MakeU(code.OP_PUSHINFO, 1), // locals
		code.MakeU(code.OP_PUSHINFO, 0), // temporaries
		code.MakeU(code.OP_PUSHINFO, 1), // stack depth
		code.MakeU(code.OP_PUSHINFO, 1), // parameters
		code.MakeU(code.OP_PUSHF, 2),
		code.MakeLR(code.OP_PUSHX, 0, 1),
		code.Make(code.OP_RET),
		code.MakeLR(code.OP_POPCOV, 0, 1),
	})
}

func TestCompileVariadicFunction(t *testing.T) {
	a := compileDefaults(t, nil, "var f = (...) { return 1 }")
	var nparams *code.Instr
	for i, in := range a.Instrs {
		if in.Op() == code.OP_PUSHF {
			nparams = &a.Instrs[i-1]
			break
		}
	}
	if nparams == nil {
		t.Fatal("no OP_PUSHF emitted")
	}
	if nparams.U() != code.UndefNParams {
		t.Errorf("arity info = %d, want the variadic sentinel %d", nparams.U(), code.UndefNParams)
	}
}

func TestCompileCallShape(t *testing.T) {
	a := compileDefaults(t, []string{"print"}, "print(7)")
	assertInstrs(t, a.Instrs, []code.Instr{
		code.MakeU(code.OP_PUSHI, 0),
		code.MakeLR(code.OP_PUSHX, 0, 1),
		code.MakeU(code.OP_EVAL, 1),
		code.MakeLR(code.OP_POPN, 1, 0),
	})
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		defaults []string
		src      string
		kind     terror.Kind
	}{
		{"double var", nil, "var x\nvar x", terror.CompileDblDeclare},
		{"var shadows let", nil, "let x = 1\nvar x", terror.CompileDblDeclare},
		{"let shadows var", nil, "var x\nlet x = 1", terror.CompileDblDeclare},
		{"var inside if block", nil, "var x\nif (true) { var y }", terror.CompileInBlkVarDef},
		{"assign to builtin", []string{"print"}, "print = 1", terror.CompileAsgDefault},
		{"assign to unknown", nil, "y = 1", terror.CompileObjUnfound},
		{"unknown name", nil, "print2(1)", terror.CompileInvalidLiter},
		{"return temporary", nil, "let t = 1\nreturn t", terror.CompileReturnTmpObj},
		{"import missing file", nil, "import 'no_such.tap'", terror.CompileUnfoundFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if kind := compileErrKind(t, tt.defaults, tt.src); kind != tt.kind {
				t.Errorf("kind = %v, want %v", kind, tt.kind)
			}
		})
	}
}

func TestCompileFileSuffixPolicy(t *testing.T) {
	c := NewWithDefaults(nil, nil, false)
	_, err := c.CompileFile("program.txt", nil)
	var te *terror.Error
	if !errors.As(err, &te) || te.Kind != terror.CompileInvalidFile {
		t.Errorf("error = %v, want invalid-file", err)
	}
	_, err = c.CompileFile("missing.tap", nil)
	if !errors.As(err, &te) || te.Kind != terror.CompileUnfoundFile {
		t.Errorf("error = %v, want unfound-file", err)
	}
}

func TestObjCtrOffsets(t *testing.T) {
	root := NewObjCtr([]string{"print"}, nil)
	nameLoc := code.UndefNameLoc
	var consts code.Consts
	root.Create("a", false, &consts, &nameLoc)

	child := NewObjCtr([]string{"n"}, &root)
	if loc := child.Loc("n"); loc != 0 {
		t.Errorf("param offset = %d, want 0", loc)
	}
	if loc := child.Loc("a"); loc != 2 {
		t.Errorf("captured offset = %d, want 2", loc)
	}
	if loc := child.Loc("print"); loc != 1 {
		t.Errorf("builtin offset = %d, want 1", loc)
	}
	if loc := child.Loc("zzz"); loc != child.LenAll() {
		t.Errorf("missing name = %d, want the miss sentinel %d", loc, child.LenAll())
	}
	if !root.IsPreload(0) {
		t.Error("builtin not recognised as preload")
	}
	if root.IsPreload(1) {
		t.Error("user variable recognised as preload")
	}
	if child.IsPreload(0) {
		t.Error("parameter recognised as preload")
	}
	if !child.IsPreload(1) {
		t.Error("builtin not preload through the chain")
	}
}

func TestStackDepthNeverExceedsHeader(t *testing.T) {
	a := compileDefaults(t, []string{"print"}, "print(1 + 2 * 3, (4 + 5) / 3)")
	if a.Info.RegMax == 0 || a.Info.RegMax > code.RegLimit {
		t.Errorf("RegMax = %d out of range", a.Info.RegMax)
	}
}
