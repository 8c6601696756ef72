package token

import (
	"testing"

	"github.com/zhuanglinsheng/tapas/terror"
)

func TestClassifyShapes(t *testing.T) {
	tests := []struct {
		name string
		unit string
		want Token
	}{
		{"true literal", "true", Token{Type: TRUE}},
		{"continue", "continue", Token{Type: CONTINUE}},
		{"bare return", "return", Token{Type: RETURN}},
		{"return expr", "return a + 1", Token{Type: RETURN, NVal: 1, V1: "a + 1"}},
		{"var bare", "var x", Token{Type: VAR, NVal: 1, V1: "x"}},
		{"var typed", "var x: int", Token{Type: VAR, NVal: 1, V1: "x", V2: "int"}},
		{"var init", "var x = 1 + 2", Token{Type: VAR, NVal: 3, V1: "x", V3: "1 + 2"}},
		{"var typed init", "var n: int = 0", Token{Type: VAR, NVal: 3, V1: "n", V2: "int", V3: "0"}},
		{"let init", "let t = f(1)", Token{Type: LET, NVal: 3, V1: "t", V3: "f(1)"}},
		{"import", "import 'm.tap'", Token{Type: IMPORT, NVal: 1, V1: "m.tap"}},
		{"import alias", "import 'm.tap' as m", Token{Type: IMPORT, NVal: 2, V1: "m.tap", V2: "m"}},
		{"while", "while (a < 3) { a = a + 1 }", Token{Type: WHILE, NVal: 2, V1: "a < 3", V2: "a = a + 1"}},
		{"for", "for (i in 0 to 2) { print(i) }", Token{Type: FOR, NVal: 3, V1: "i", V2: "0 to 2", V3: "print(i)"}},
		{"if", "if (a == 1) { print(a) }", Token{Type: IF, NVal: 2, V1: "a == 1", V2: "print(a)"}},
		{"elif", "elif (a == 2) { print(a) }", Token{Type: ELIF, NVal: 2, V1: "a == 2", V2: "print(a)"}},
		{"else", "else { print(a) }", Token{Type: ELSE, NVal: 1, V1: "print(a)"}},
		{"assign", "x = y + 1", Token{Type: ASG, NVal: 2, V1: "x", V2: "y + 1"}},
		{"indexed assign", "xs[i] = i * i", Token{Type: IDXL, NVal: 3, V1: "xs", V2: "i", V3: "i * i"}},
		{"single quote", "'hi there'", Token{Type: SSTR, NVal: 1, V1: "hi there"}},
		{"double quote", "\"hi\"", Token{Type: DSTR, NVal: 1, V1: "hi"}},
		{"dict", "{a: 1, b: 2}", Token{Type: DICT, NVal: 1, V1: "a: 1, b: 2"}},
		{"kappa", "#{ 1 + 2 }", Token{Type: KAPPA, NVal: 1, V1: "1 + 2"}},
		{"function", "(a, b) { return a + b }", Token{Type: FUNC, NVal: 2, V1: "a, b", V2: "return a + b"}},
		{"variadic function", "(...) { return 0 }", Token{Type: FUNC, NVal: 2, V1: "...", V2: "return 0"}},
		{"call", "f(1, 2)", Token{Type: EVAL, NVal: 2, V1: "f", V2: "1, 2"}},
		{"call no args", "counter()", Token{Type: EVAL, NVal: 2, V1: "counter", V2: ""}},
		{"pipeline call", "a.f(x, y)", Token{Type: EVAL, NVal: 2, V1: "f", V2: "a,x, y"}},
		{"pipeline no args", "a.f()", Token{Type: EVAL, NVal: 2, V1: "f", V2: "a"}},
		{"index", "xs[i + 1]", Token{Type: IDX, NVal: 2, V1: "xs", V2: "i + 1"}},
		{"list literal", "[1, 2, 3]", Token{Type: IDX, NVal: 2, V1: "", V2: "1, 2, 3"}},
		{"field access", "m::greet", Token{Type: IDX2, NVal: 2, V1: "m", V2: "greet"}},
		{"atom identifier", "abc", Token{Type: V, NVal: 1, V1: "abc"}},
		{"atom number", "42", Token{Type: V, NVal: 1, V1: "42"}},
		{"scientific literal stays atom", "1e-3", Token{Type: V, NVal: 1, V1: "1e-3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.unit)
			if got != tt.want {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.unit, got, tt.want)
			}
		})
	}
}

func TestClassifyBinaryPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		unit  string
		typ   Type
		left  string
		right string
	}{
		{"add before mul", "1 + 2 * 3", ADD, "1", "2 * 3"},
		{"mul before pow", "2 * 3 ^ 2", MUL, "2", "3 ^ 2"},
		{"comparison before add", "a + 1 <= b", LE, "a + 1", "b"},
		{"or lowest of logic", "a and b or c", OR, "a and b", "c"},
		{"to splits range", "0 to n - 1", TO, "0", "n - 1"},
		{"in lowest", "x in 0 to 9", IN, "x", "0 to 9"},
		{"pair", "k : v", PAIR, "k", "v"},
		{"rightmost same class", "a - b + c", ADD, "a - b", "c"},
		{"parenthesised side", "(a + b) * c", MUL, "a + b", "c"},
		{"operator inside call hidden", "f(a + b) - g(c)", SUB, "f(a + b)", "g(c)"},
		{"word boundary respected", "printer + tox", ADD, "printer", "tox"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.unit)
			if got.Type != tt.typ {
				t.Fatalf("Classify(%q).Type = %v, want %v", tt.unit, got.Type, tt.typ)
			}
			if got.V1 != tt.left || got.V2 != tt.right {
				t.Errorf("Classify(%q) split = %q | %q, want %q | %q",
					tt.unit, got.V1, got.V2, tt.left, tt.right)
			}
		})
	}
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		name string
		unit string
		kind terror.Kind
	}{
		{"var keyword name", "var while", terror.CompileInvalidVName},
		{"var digit-led name", "var 9x = 1", terror.CompileInvalidVName},
		{"var empty type", "var x:", terror.CompileVarNoType},
		{"if without block", "if (a)", terror.CompileInvalidLiter},
		{"for without in", "for (i of xs) { }", terror.CompileInvalidLiter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatalf("Classify(%q) did not fail", tt.unit)
				}
				te, ok := r.(*terror.Error)
				if !ok {
					panic(r)
				}
				if te.Kind != tt.kind {
					t.Errorf("Classify(%q) kind = %v, want %v", tt.unit, te.Kind, tt.kind)
				}
			}()
			Classify(tt.unit)
		})
	}
}
