package object

import (
	"testing"
	"time"

	"github.com/zhuanglinsheng/tapas/terror"
)

func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return tm
}

func expectRuntime(t *testing.T, kind terror.Kind, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("no %v error raised", kind)
		}
		te, ok := r.(*terror.Error)
		if !ok {
			panic(r)
		}
		if te.Family != terror.FamilyRuntime || te.Kind != kind {
			t.Fatalf("error = %v, want runtime %v", te, kind)
		}
	}()
	f()
}

func TestValueIdentical(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nil never equals nil", Nil(), Nil(), false},
		{"int equals int", Int(3), Int(3), true},
		{"int differs", Int(3), Int(4), false},
		{"kinds are strict", Int(1), Float(1), false},
		{"bool kinds strict", Bool(true), Int(1), false},
		{"float equals", Float(2.5), Float(2.5), true},
		{"strings structural", Compo(NewStr("x")), Compo(NewStr("x")), true},
		{"string vs int", Compo(NewStr("1")), Int(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Identical(tt.b); got != tt.want {
				t.Errorf("Identical = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListIdenticalIsStructural(t *testing.T) {
	a := NewListOf([]Value{Int(1), Int(2)})
	b := NewListOf([]Value{Int(1), Int(2)})
	c := NewListOf([]Value{Int(1), Int(3)})
	if !a.Identical(b) {
		t.Error("equal lists not identical")
	}
	if a.Identical(c) {
		t.Error("different lists identical")
	}
}

func TestObjArraySetObjRefCounts(t *testing.T) {
	arr := NewObjArray(2)
	arr.AddObj(0)
	arr.AddObj(1)

	ls := NewList()
	arr.SetObj(0, Compo(ls))
	if ls.RefCtr() != 1 {
		t.Fatalf("RefCtr = %d after first bind, want 1", ls.RefCtr())
	}

	// Self-assignment is a no-op.
	arr.SetObj(0, *arr.GetObj(0))
	if ls.RefCtr() != 1 {
		t.Errorf("RefCtr = %d after self-assign, want 1", ls.RefCtr())
	}

	// Rebinding another slot adds a count; overwriting drops one.
	arr.SetObj(1, Compo(ls))
	if ls.RefCtr() != 2 {
		t.Errorf("RefCtr = %d after second bind, want 2", ls.RefCtr())
	}
	arr.SetObj(1, Int(5))
	if ls.RefCtr() != 1 {
		t.Errorf("RefCtr = %d after overwrite, want 1", ls.RefCtr())
	}
}

func TestObjArrayRejectsNil(t *testing.T) {
	arr := NewObjArray(1)
	arr.AddObj(0)
	expectRuntime(t, terror.RuntimeAssignNil, func() {
		arr.SetObj(0, Nil())
	})
}

func TestListReleaseDropsElements(t *testing.T) {
	inner := NewStr("x")
	outer := NewListOf([]Value{Compo(inner)})
	if inner.RefCtr() != 1 {
		t.Fatalf("element RefCtr = %d, want 1", inner.RefCtr())
	}
	outer.Release()
	if inner.RefCtr() != 0 {
		t.Errorf("element RefCtr = %d after release, want 0", inner.RefCtr())
	}
}

func TestPairOwnsHalves(t *testing.T) {
	s := NewStr("k")
	p := NewPair(Compo(s), Int(1))
	if s.RefCtr() != 1 {
		t.Fatalf("RefCtr = %d, want 1", s.RefCtr())
	}
	p.SetFirst(Int(0))
	if s.RefCtr() != 0 {
		t.Errorf("RefCtr = %d after replace, want 0", s.RefCtr())
	}
}

func TestDictSetReleasesPrevious(t *testing.T) {
	d := NewDict()
	a := NewStr("a")
	b := NewStr("b")
	d.Set("k", Compo(a))
	d.Set("k", Compo(b))
	if a.RefCtr() != 0 {
		t.Errorf("old value RefCtr = %d, want 0", a.RefCtr())
	}
	if b.RefCtr() != 1 {
		t.Errorf("new value RefCtr = %d, want 1", b.RefCtr())
	}
	if v, ok := d.Get("missing"); ok || v.Type() != TNil {
		t.Error("missing key did not read as nil")
	}
}

func TestIterProtocol(t *testing.T) {
	it := NewIter(0, 2)
	var got []int64
	for it.Next() {
		var v Value
		it.Current(&v)
		got = append(got, v.Int())
	}
	if len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Errorf("iterated %v, want [0 1 2]", got)
	}
	// Exhaustion leaves the cursor ready for another pass after Restore.
	it.Restore()
	if !it.Next() {
		t.Error("restored iterator had no next element")
	}
	if !it.Contains(Int(1)) || it.Contains(Int(3)) || it.Contains(Float(1)) {
		t.Error("Contains misjudged membership")
	}
	if it.Len() != 3 {
		t.Errorf("Len = %d, want 3", it.Len())
	}
}

func TestListIterationAutoRestores(t *testing.T) {
	ls := NewListOf([]Value{Int(5), Int(6)})
	count := 0
	for ls.Next() {
		count++
	}
	if count != 2 {
		t.Fatalf("first pass saw %d elements", count)
	}
	count = 0
	for ls.Next() {
		count++
	}
	if count != 2 {
		t.Errorf("second pass saw %d elements", count)
	}
}

func TestStrIndexing(t *testing.T) {
	s := NewStr("hello")
	var out Value
	s.Idx([]Value{Int(1)}, &out)
	if out.Compo().(*Str).String() != "e" {
		t.Errorf("s[1] = %q", out.Compo().(*Str).String())
	}
	pair := NewPair(Int(1), Int(4))
	s.Idx([]Value{Compo(pair)}, &out)
	if out.Compo().(*Str).String() != "ell" {
		t.Errorf("s[1:4] = %q", out.Compo().(*Str).String())
	}
	expectRuntime(t, terror.RuntimeIdxOutRange, func() {
		s.Idx([]Value{Int(9)}, &out)
	})
	expectRuntime(t, terror.RuntimeLenInconsis, func() {
		s.ISet([]Value{Int(0)}, Compo(NewStr("xx")))
	})
}

func TestStrConcatTrait(t *testing.T) {
	s := NewStr("hi ")
	v, ok := s.BinOp(OpAdd, Compo(NewStr("you")), false)
	if !ok || v.Compo().(*Str).String() != "hi you" {
		t.Errorf("concat = %v, %v", v.Abbr(), ok)
	}
	v, ok = s.BinOp(OpAdd, Int(1), true)
	if !ok || v.Compo().(*Str).String() != "1hi " {
		t.Errorf("reverse concat = %v, %v", v.Abbr(), ok)
	}
}

func TestEnvLinearOffsets(t *testing.T) {
	lib := NewLibrary()
	lib.TryExpand(4)
	lib.AddObj(0)
	lib.AddObj(1)
	lib.Env.SetObj(0, Int(10))
	lib.Env.SetObj(1, Int(20))

	f := NewFunction(2, &lib.Env, 4, 0, 1, 0, 0)
	f.AddObj(0)
	f.Env.SetObj(0, Int(99))

	// Offset 0 is local; past the local length, the excess resolves in
	// the parent.
	if got := f.Env.GetObj(0).Int(); got != 99 {
		t.Errorf("local slot = %d, want 99", got)
	}
	if got := f.Env.GetObj(1).Int(); got != 10 {
		t.Errorf("parent slot 0 = %d, want 10", got)
	}
	if got := f.Env.GetObj(2).Int(); got != 20 {
		t.Errorf("parent slot 1 = %d, want 20", got)
	}
	expectRuntime(t, terror.RuntimeObjUnfound, func() {
		f.Env.GetObj(7)
	})
}

func TestEnvWriteThroughChain(t *testing.T) {
	lib := NewLibrary()
	lib.TryExpand(2)
	lib.AddObj(0)
	lib.Env.SetObj(0, Int(1))

	f := NewFunction(1, &lib.Env, 2, 0, 0, 0, 0)
	f.Env.SetObj(0, Int(7))
	if got := lib.Env.GetObj(0).Int(); got != 7 {
		t.Errorf("write through chain = %d, want 7", got)
	}
}

func TestFrameSharesCutoffWithClosure(t *testing.T) {
	lib := NewLibrary()
	lib.TryExpand(4)
	lib.AddObj(0)
	lib.Env.SetObj(0, Int(5))

	f := NewFunction(1, &lib.Env, 2, 0, 0, 0, 0)
	frame := NewFrame(f)
	if frame.LocInParent() != f.LocInParent() {
		t.Errorf("frame cutoff %d differs from closure cutoff %d",
			frame.LocInParent(), f.LocInParent())
	}
	if got := frame.Env.GetObj(0).Int(); got != 5 {
		t.Errorf("frame resolution = %d, want 5", got)
	}
}

func TestTimeSubtraction(t *testing.T) {
	a := NewTime(mustParseTime(t, "2021-03-01T10:00:00Z"))
	b := NewTime(mustParseTime(t, "2021-03-01T10:00:02Z"))
	v, ok := b.BinOp(OpSub, Compo(a), false)
	if !ok || v.Type() != TFloat || v.Float() != 2 {
		t.Errorf("time sub = %v (%v)", v.Abbr(), ok)
	}
}

func TestMatrixOps(t *testing.T) {
	m := NewMatRealOf(2, 2, []float64{1, 2, 3, 4})
	id := NewMatRealOf(2, 2, []float64{1, 0, 0, 1})
	v, ok := m.BinOp(OpMMul, Compo(id), false)
	if !ok {
		t.Fatal("matmul not handled")
	}
	if !v.Compo().Identical(m) {
		t.Errorf("m @ I = %v", v.Compo().Full())
	}
	v, ok = m.BinOp(OpAdd, Int(1), false)
	if !ok || v.Compo().(*MatReal).At(1, 1) != 5 {
		t.Errorf("m + 1 wrong: %v", v.Compo().Full())
	}
	v, ok = m.BinOp(OpSg, Int(2), false)
	if !ok {
		t.Fatal("comparison not handled")
	}
	mb := v.Compo().(*MatBool)
	if mb.At(0, 0) || !mb.At(1, 1) {
		t.Errorf("m > 2 wrong: %v", mb.Full())
	}
}

func TestMatrixIterationRowMajor(t *testing.T) {
	m := NewMatRealOf(2, 2, []float64{1, 2, 3, 4})
	var got []float64
	for m.Next() {
		var v Value
		m.Current(&v)
		got = append(got, v.Float())
	}
	want := []float64{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("saw %d elements", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestListRendering(t *testing.T) {
	ls := NewListOf([]Value{Int(0), Int(1), Int(4)})
	if ls.Abbr() != "[0, 1, 4]" {
		t.Errorf("Abbr = %q", ls.Abbr())
	}
}
