package session

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/zhuanglinsheng/tapas/terror"
)

// capture redirects print output for the duration of one test.
func capture(t *testing.T) *strings.Builder {
	t.Helper()
	var b strings.Builder
	old := Stdout
	Stdout = &b
	t.Cleanup(func() { Stdout = old })
	return &b
}

func lines(b *strings.Builder) []string {
	out := strings.TrimRight(b.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func TestIntegerArithmeticAndDivisionByZero(t *testing.T) {
	b := capture(t)
	sess := New(false)
	if err := sess.ExecuteString("print(1 + 2 * 3)"); err != nil {
		t.Fatalf("first program failed: %v", err)
	}
	if !reflect.DeepEqual(lines(b), []string{"7"}) {
		t.Errorf("output = %q, want [7]", lines(b))
	}

	err := sess.ExecuteString("print(10 / 0)")
	if !errors.Is(err, &terror.Error{Family: terror.FamilyRuntime, Kind: terror.RuntimeDivIntZero}) {
		t.Errorf("error = %v, want div-int-zero", err)
	}
}

func TestClosuresAndCapturedState(t *testing.T) {
	b := capture(t)
	sess := New(false)
	err := sess.ExecuteString(`
var counter = () { var n: int = 0; return () { n = n + 1; return n } }()
print(counter())
print(counter())
print(counter())
`)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(lines(b), []string{"1", "2", "3"}) {
		t.Errorf("output = %q, want [1 2 3]", lines(b))
	}
}

func TestForLoopOverRangeWithListMutation(t *testing.T) {
	b := capture(t)
	sess := New(false)
	err := sess.ExecuteString("var xs = [0,0,0]; for (i in 0 to 2) { xs[i] = i * i }; print(xs)")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(lines(b), []string{"[0, 1, 4]"}) {
		t.Errorf("output = %q, want [[0, 1, 4]]", lines(b))
	}
}

func TestRecursion(t *testing.T) {
	b := capture(t)
	sess := New(false)
	err := sess.ExecuteString("var fact = (n) { if (n <= 1) { return 1 }; return n * fact(n - 1) }; print(fact(5))")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(lines(b), []string{"120"}) {
		t.Errorf("output = %q, want [120]", lines(b))
	}
}

func TestShadowingRules(t *testing.T) {
	sess := New(false)
	err := sess.ExecuteString("var x = 1\nvar x = 2")
	if !errors.Is(err, &terror.Error{Family: terror.FamilyCompile, Kind: terror.CompileDblDeclare}) {
		t.Errorf("error = %v, want dbl-declare", err)
	}

	sess = New(false)
	err = sess.ExecuteString("var x = 1\nif (true) { var x = 2 }")
	if !errors.Is(err, &terror.Error{Family: terror.FamilyCompile, Kind: terror.CompileInBlkVarDef}) {
		t.Errorf("error = %v, want in-block-var-def", err)
	}
}

func TestImportAndExposedDict(t *testing.T) {
	b := capture(t)
	dir := t.TempDir()
	module := filepath.Join(dir, "m.tap")
	if err := os.WriteFile(module, []byte("return {greet: (n) { print('hi ' + n) }}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	main := filepath.Join(dir, "main.tap")
	if err := os.WriteFile(main, []byte("import 'm.tap' as m\nm::greet('world')\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sess := New(false)
	if err := sess.ExecuteFile(main); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(lines(b), []string{"hi world"}) {
		t.Errorf("output = %q, want [hi world]", lines(b))
	}
}

// A side-effect-free program must behave the same executed directly and
// executed from its saved artifact.
func TestCompileExecuteRoundTrip(t *testing.T) {
	src := `
var xs = [1, 2, 3]
var s = 0
for (x in xs) { s = s + x }
print(s)
print('s = ' + std::tostr(s))
`
	dir := t.TempDir()
	file := filepath.Join(dir, "prog.tap")
	if err := os.WriteFile(file, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	b := capture(t)
	if err := New(false).ExecuteFile(file); err != nil {
		t.Fatal(err)
	}
	direct := lines(b)
	b.Reset()

	sess := New(false)
	if err := sess.CompileFile(file); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "prog.tapc")); err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if err := sess.EvalArtifactFile(file); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(lines(b), direct) {
		t.Errorf("artifact run = %q, direct run = %q", lines(b), direct)
	}
}

func TestMarkdownSource(t *testing.T) {
	b := capture(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "doc.md")
	md := "# Doc\n\n```tapas\nprint('from md')\n```\n"
	if err := os.WriteFile(file, []byte(md), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := New(false).ExecuteFile(file); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(lines(b), []string{"from md"}) {
		t.Errorf("output = %q", lines(b))
	}
}

func TestStdBuiltins(t *testing.T) {
	b := capture(t)
	sess := New(false)
	err := sess.ExecuteString(`
var xs = [1, 2]
std::append(xs, 9)
print(xs)
print(len(xs))
print(type(xs))
print(std::str2int('41') + 1)
var d = {b: 2, a: 1}
print(std::dkeys(d))
var p = std::topair(1, 2)
print(p[0] + p[1])
`)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"[1, 2, 9]", "3", "List", "42", "[a, b]", "3"}
	if !reflect.DeepEqual(lines(b), want) {
		t.Errorf("output = %q, want %q", lines(b), want)
	}
}

func TestVariadicParamsThroughSys(t *testing.T) {
	b := capture(t)
	sess := New(false)
	err := sess.ExecuteString(`
var f = (...) { return sys::__nparam__() + sys::__param__(0) }
print(f(10, 20, 30))
`)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(lines(b), []string{"13"}) {
		t.Errorf("output = %q, want [13]", lines(b))
	}
}

func TestEigMatrixAPI(t *testing.T) {
	b := capture(t)
	sess := New(false)
	err := sess.ExecuteString(`
var m = eig::toarr(2, 2, [1, 2, 3, 4])
var n = m @ eig::toarr(2, 2, [1, 0, 0, 1])
print(eig::rows(n))
var s = 0.0
for (x in n) { s = s + x }
print(s)
`)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2", "10"}
	if !reflect.DeepEqual(lines(b), want) {
		t.Errorf("output = %q, want %q", lines(b), want)
	}
}

func TestTimeSubtracts(t *testing.T) {
	b := capture(t)
	sess := New(false)
	err := sess.ExecuteString(`
var t0 = std::now()
var t1 = std::now()
print((t1 - t0) >= 0.0)
`)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(lines(b), []string{"true"}) {
		t.Errorf("output = %q", lines(b))
	}
}

func TestInterpIncremental(t *testing.T) {
	b := capture(t)
	sess := New(false)
	interp := NewInterp(sess)
	steps := []string{
		"var a = 1",
		"var b = a + 1",
		"print(a + b)",
	}
	for _, s := range steps {
		if err := interp.ExecUnit(s); err != nil {
			t.Fatalf("ExecUnit(%q) error: %v", s, err)
		}
	}
	if !reflect.DeepEqual(lines(b), []string{"3"}) {
		t.Errorf("output = %q, want [3]", lines(b))
	}

	// A failing unit must not poison the accumulated program.
	if err := interp.ExecUnit("var a = 2"); err == nil {
		t.Fatal("redeclaration did not fail")
	}
	if err := interp.ExecUnit("print(a)"); err != nil {
		t.Fatalf("session unusable after error: %v", err)
	}
}

func TestRuntimeErrorKeepsLibraryState(t *testing.T) {
	b := capture(t)
	sess := New(false)
	interp := NewInterp(sess)
	if err := interp.ExecUnit("var a = 5"); err != nil {
		t.Fatal(err)
	}
	if err := interp.ExecUnit("print(10 / 0)"); err == nil {
		t.Fatal("division did not fail")
	}
	if err := interp.ExecUnit("print(a)"); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(lines(b), []string{"5"}) {
		t.Errorf("output = %q, want [5]", lines(b))
	}
}

func TestAssignDefaultRejected(t *testing.T) {
	sess := New(false)
	err := sess.ExecuteString("print = 1")
	if !errors.Is(err, &terror.Error{Family: terror.FamilyCompile, Kind: terror.CompileAsgDefault}) {
		t.Errorf("error = %v, want asg-default", err)
	}
}

func TestShowArtifact(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "prog.tap")
	if err := os.WriteFile(file, []byte("print(1 + 2)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sess := New(false)
	if err := sess.CompileFile(file); err != nil {
		t.Fatal(err)
	}
	text, err := sess.ShowArtifact(file)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"OP_PUSHI", "OP_EVAL", "Max Reg. Number"} {
		if !strings.Contains(text, want) {
			t.Errorf("disassembly is missing %q:\n%s", want, text)
		}
	}
}

func TestEigElementwiseAndBlocks(t *testing.T) {
	b := capture(t)
	sess := New(false)
	err := sess.ExecuteString(`
var m = eig::toarr(2, 3, [1, 2, 3, 4, 5, 6])
var top = eig::top(m, 1)
print(eig::cols(top))
var sq = eig::pow(eig::toarr(1, 2, [3, 4]), 2)
print(sq[0] + sq[1])
var z = eig::toarr(1, 1, 0)
print(eig::isnan(eig::log(z - 1.0))[0])
`)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"3", "25", "true"}
	if !reflect.DeepEqual(lines(b), want) {
		t.Errorf("output = %q, want %q", lines(b), want)
	}
}
