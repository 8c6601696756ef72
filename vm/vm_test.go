package vm

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/zhuanglinsheng/tapas/code"
	"github.com/zhuanglinsheng/tapas/compiler"
	"github.com/zhuanglinsheng/tapas/object"
	"github.com/zhuanglinsheng/tapas/terror"
)

// harness is a library with a capturing print and the list constructor,
// the minimum surface the compiled programs below need.
type harness struct {
	lib   *object.Library
	lines []string
}

func newHarness() *harness {
	h := &harness{lib: object.NewLibrary()}
	h.lib.AddDefault("print", object.Compo(object.NewHostFunc(func(params []object.Value, out *object.Value) {
		var b strings.Builder
		for i := range params {
			b.WriteString(params[i].Abbr())
		}
		h.lines = append(h.lines, b.String())
		out.SetNil()
	}, "print", code.UndefNParams)))

	std := h.lib.AddPkg("std")
	std.AddHostFn("tolist", func(params []object.Value, out *object.Value) {
		out.SetCompo(object.NewListOf(params))
	}, code.UndefNParams)
	return h
}

func (h *harness) run(t *testing.T, src string) error {
	t.Helper()
	syner := compiler.NewWithDefaults(h.lib.DefaultNames(), nil, false)
	w, err := syner.CompileString(src, nil)
	if err != nil {
		t.Fatalf("compile error for %q: %v", src, err)
	}
	h.lib.SetArtifact(w)
	return New(w.Info.TmpMax).EvalArtifact(0, h.lib)
}

func runProgram(t *testing.T, src string) []string {
	t.Helper()
	h := newHarness()
	if err := h.run(t, src); err != nil {
		t.Fatalf("runtime error for %q: %v", src, err)
	}
	return h.lines
}

func runtimeErrKind(t *testing.T, src string) terror.Kind {
	t.Helper()
	h := newHarness()
	err := h.run(t, src)
	if err == nil {
		t.Fatalf("no runtime error for %q", src)
	}
	var te *terror.Error
	if !errors.As(err, &te) {
		t.Fatalf("error is %T, want *terror.Error", err)
	}
	if te.Family != terror.FamilyRuntime {
		t.Fatalf("error family = %v, want runtime", te.Family)
	}
	return te.Kind
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		src  string
		out  []string
	}{
		{"precedence", "print(1 + 2 * 3)", []string{"7"}},
		{"grouping", "print((1 + 2) * 3)", []string{"9"}},
		{"float promotion", "print(1 + 0.5)", []string{"1.5"}},
		{"int division", "print(7 / 2)", []string{"3"}},
		{"mod is floating", "print(7 % 2)", []string{"1"}},
		{"pow is floating", "print(2 ^ 3)", []string{"8"}},
		{"unary minus", "var a = 3; print(-a)", []string{"-3"}},
		{"comparison", "print(2 <= 3); print(2 > 3)", []string{"true", "false"}},
		{"logic", "print(true and false); print(true or false)", []string{"false", "true"}},
		{"strict cross-kind equality", "print(1 == 1.0)", []string{"false"}},
		{"string concat", "print('hi ' + 'you')", []string{"hi you"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runProgram(t, tt.src)
			if !reflect.DeepEqual(got, tt.out) {
				t.Errorf("output = %q, want %q", got, tt.out)
			}
		})
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind terror.Kind
	}{
		{"integer division by zero", "print(10 / 0)", terror.RuntimeDivIntZero},
		{"no truthiness", "print(1 and 2)", terror.RuntimeParamsType},
		{"call arity", "var f = (a, b) { return a }\nf(1)", terror.RuntimeParamsCtr},
		{"index out of range", "var xs = [1, 2]\nprint(xs[5])", terror.RuntimeIdxOutRange},
		{"local escape", "var r = () { var xs = [1] ; return xs }()", terror.RuntimeRecurseRefRet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if kind := runtimeErrKind(t, tt.src); kind != tt.kind {
				t.Errorf("kind = %v, want %v", kind, tt.kind)
			}
		})
	}
}

func TestVariablesAndBlocks(t *testing.T) {
	got := runProgram(t, `
var a = 1
let b = 2
a = a + b
print(a)
if (a == 3) { print('yes') }
elif (a == 4) { print('no') }
else { print('never') }
`)
	want := []string{"3", "yes"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestElifChain(t *testing.T) {
	got := runProgram(t, `
var a = 4
if (a == 3) { print('three') }
elif (a == 4) { print('four') }
elif (a == 5) { print('five') }
else { print('other') }
`)
	want := []string{"four"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestWhileLoop(t *testing.T) {
	got := runProgram(t, `
var n = 0
while (n < 3) { n = n + 1 }
print(n)
`)
	if !reflect.DeepEqual(got, []string{"3"}) {
		t.Errorf("output = %q", got)
	}
}

func TestBreakAndContinue(t *testing.T) {
	got := runProgram(t, `
var s = 0
for (i in 0 to 9) {
	if (i == 2) { continue }
	if (i == 4) { break }
	s = s + i
}
print(s)
`)
	// 0 + 1 + 3
	if !reflect.DeepEqual(got, []string{"4"}) {
		t.Errorf("output = %q", got)
	}
}

func TestForOverListWithMutation(t *testing.T) {
	got := runProgram(t, `
var xs = [0, 0, 0]
for (i in 0 to 2) { xs[i] = i * i }
print(xs)
`)
	if !reflect.DeepEqual(got, []string{"[0, 1, 4]"}) {
		t.Errorf("output = %q", got)
	}
}

func TestForOverListElements(t *testing.T) {
	got := runProgram(t, `
var xs = [5, 6, 7]
var s = 0
for (x in xs) { s = s + x }
print(s)
`)
	if !reflect.DeepEqual(got, []string{"18"}) {
		t.Errorf("output = %q", got)
	}
}

func TestMembership(t *testing.T) {
	got := runProgram(t, `
print(3 in 0 to 9)
print(11 in 0 to 9)
var xs = [1, 2]
print(2 in xs)
`)
	want := []string{"true", "false", "true"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestClosuresCaptureState(t *testing.T) {
	got := runProgram(t, `
var counter = () { var n: int = 0; return () { n = n + 1; return n } }()
print(counter())
print(counter())
print(counter())
`)
	want := []string{"1", "2", "3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRecursion(t *testing.T) {
	got := runProgram(t, `
var fact = (n) { if (n <= 1) { return 1 }; return n * fact(n - 1) }
print(fact(5))
`)
	if !reflect.DeepEqual(got, []string{"120"}) {
		t.Errorf("output = %q", got)
	}
}

func TestKappaReturnsTopOfStack(t *testing.T) {
	got := runProgram(t, `
var k = #{ 1 + 2 }
print(k())
`)
	if !reflect.DeepEqual(got, []string{"3"}) {
		t.Errorf("output = %q", got)
	}
}

func TestIndexedAssignmentAndSlices(t *testing.T) {
	got := runProgram(t, `
var s = 'hello'
s[0] = 'H'
print(s)
print(s[1 : 4])
`)
	want := []string{"Hello", "ell"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestDictLiteralAndAccess(t *testing.T) {
	got := runProgram(t, `
var d = {a: 1, b: 2}
print(d::a)
print(d['b'])
`)
	want := []string{"1", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestEvalSiteSpecializes(t *testing.T) {
	h := newHarness()
	if err := h.run(t, "var i = 0\nwhile (i < 2) { print(i); i = i + 1 }"); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, in := range h.lib.Artifact().Instrs {
		if in.Op() == code.OP_EVALCF {
			found = true
		}
	}
	if !found {
		t.Error("host call site did not specialize to OP_EVALCF")
	}
}

func TestLoopSiteSpecializes(t *testing.T) {
	h := newHarness()
	if err := h.run(t, "var s = 0\nfor (i in 0 to 3) { s = s + i }"); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, in := range h.lib.Artifact().Instrs {
		if in.Op() == code.OP_LOOPIAS {
			found = true
		}
	}
	if !found {
		t.Error("loop site did not specialize to OP_LOOPIAS")
	}
}

func TestReturnWithoutValueIsNil(t *testing.T) {
	got := runProgram(t, `
var f = () { return }
var g = (x) { if (x) { return 1 }; return 2 }
f()
print(g(true))
print(g(false))
`)
	want := []string{"1", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestStatementStackIsBalanced(t *testing.T) {
	// Every statement must leave the frame stack empty; the compiled
	// depth is an upper bound the VM never crosses (it would index past
	// the stack buffer otherwise).
	got := runProgram(t, `
1 + 2
'unused'
var a = [1, 2, 3]
a[0]
print('done')
`)
	if !reflect.DeepEqual(got, []string{"done"}) {
		t.Errorf("output = %q", got)
	}
}
