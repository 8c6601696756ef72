package code

import (
	"testing"
)

func TestInstrNoOperand(t *testing.T) {
	in := Make(OP_RET)
	if in.Op() != OP_RET {
		t.Errorf("Op() = %v, want %v", in.Op(), OP_RET)
	}
}

func TestInstrULayout(t *testing.T) {
	tests := []struct {
		name string
		op   Opcode
		u    uint32
	}{
		{"zero", OP_JPF, 0},
		{"small", OP_PUSHI, 42},
		{"limit", OP_EVAL, 1<<26 - 1},
		{"cmd limit", OP_PUSHF, CmdLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := MakeU(tt.op, tt.u)
			if in.Op() != tt.op {
				t.Errorf("Op() = %v, want %v", in.Op(), tt.op)
			}
			if in.U() != tt.u {
				t.Errorf("U() = %d, want %d", in.U(), tt.u)
			}
		})
	}
}

func TestInstrLRLayout(t *testing.T) {
	tests := []struct {
		name string
		l, r uint16
	}{
		{"zero", 0, 0},
		{"mixed", 7, 1},
		{"limit", 1<<13 - 1, 1<<13 - 1},
		{"left only", 8190, 0},
		{"right only", 0, 8190},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := MakeLR(OP_PUSHX, tt.l, tt.r)
			if in.Op() != OP_PUSHX {
				t.Errorf("Op() = %v, want %v", in.Op(), OP_PUSHX)
			}
			if in.L() != tt.l || in.R() != tt.r {
				t.Errorf("L, R = %d, %d, want %d, %d", in.L(), in.R(), tt.l, tt.r)
			}
		})
	}
}

func TestInstrCPLayout(t *testing.T) {
	tests := []struct {
		name string
		c    uint32
		p    uint8
	}{
		{"zero", 0, 0},
		{"mixed", 300, 1},
		{"limit", 1<<18 - 1, 255},
		{"name sentinel", UndefNameLoc, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := MakeCP(OP_VCRT, tt.c, tt.p)
			if in.Op() != OP_VCRT {
				t.Errorf("Op() = %v, want %v", in.Op(), OP_VCRT)
			}
			if in.C() != tt.c || in.P() != tt.p {
				t.Errorf("C, P = %d, %d, want %d, %d", in.C(), in.P(), tt.c, tt.p)
			}
		})
	}
}

func TestInstrLbiLayout(t *testing.T) {
	tests := []struct {
		name string
		l    uint16
		b    uint8
		i    uint8
	}{
		{"zero", 0, 0, 0},
		{"mixed", 12, 3, 1},
		{"limit", 1<<13 - 1, 255, 1<<5 - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := MakeLbi(OP_IDXL, tt.l, tt.b, tt.i)
			if in.Op() != OP_IDXL {
				t.Errorf("Op() = %v, want %v", in.Op(), OP_IDXL)
			}
			if in.L() != tt.l || in.B() != tt.b || in.I() != tt.i {
				t.Errorf("L, b, i = %d, %d, %d, want %d, %d, %d",
					in.L(), in.B(), in.I(), tt.l, tt.b, tt.i)
			}
		})
	}
}

func TestInstrWithOpKeepsOperands(t *testing.T) {
	in := MakeLR(OP_LOOPAS, 5, 1)
	specialized := in.WithOp(OP_LOOPIAS)
	if specialized.Op() != OP_LOOPIAS {
		t.Errorf("Op() = %v, want %v", specialized.Op(), OP_LOOPIAS)
	}
	if specialized.L() != 5 || specialized.R() != 1 {
		t.Errorf("operands changed: L, R = %d, %d", specialized.L(), specialized.R())
	}
}

func TestInstrAddU(t *testing.T) {
	in := MakeU(OP_JPF, 10)
	in = in.AddU(5)
	if in.U() != 15 {
		t.Errorf("U() = %d, want 15", in.U())
	}
	if in.Op() != OP_JPF {
		t.Errorf("Op() changed to %v", in.Op())
	}
}

func TestConstsDedup(t *testing.T) {
	var c Consts
	if loc := c.AddStr("x"); loc != 0 {
		t.Errorf("first AddStr = %d, want 0", loc)
	}
	if loc := c.AddStr("y"); loc != 1 {
		t.Errorf("second AddStr = %d, want 1", loc)
	}
	if loc := c.AddStr("x"); loc != 0 {
		t.Errorf("repeated AddStr = %d, want 0", loc)
	}
	if loc := c.AddInt(7); loc != 0 {
		t.Errorf("first AddInt = %d, want 0", loc)
	}
	if loc := c.AddInt(7); loc != 0 {
		t.Errorf("repeated AddInt = %d, want 0", loc)
	}
	if loc := c.AddFloat(1.5); loc != 0 {
		t.Errorf("first AddFloat = %d, want 0", loc)
	}
	if loc := c.AddFloat(2.5); loc != 1 {
		t.Errorf("second AddFloat = %d, want 1", loc)
	}
}

func TestConstsCopyIsIndependent(t *testing.T) {
	var c Consts
	c.AddStr("a")
	c.AddInt(1)
	cp := c.Copy()
	c.AddStr("b")
	c.AddInt(2)
	if len(cp.Strs) != 1 || len(cp.Ints) != 1 {
		t.Errorf("copy grew with the original: %d strs, %d ints", len(cp.Strs), len(cp.Ints))
	}
}

func TestOpcodeString(t *testing.T) {
	if OP_PASS.String() != "OP_PASS" {
		t.Errorf("String() = %q", OP_PASS.String())
	}
	if OP_OR.String() != "OP_OR" {
		t.Errorf("String() = %q", OP_OR.String())
	}
}
