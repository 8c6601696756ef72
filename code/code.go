// Package code defines the Tapas bytecode: the 32-bit packed instruction
// word, the opcode set, the literal pools and the compiled-artifact
// envelope that is saved to and loaded from .tapc files.
package code

import (
	"fmt"

	"github.com/zhuanglinsheng/tapas/terror"
)

// Encoding limits. Exceeding any of them is a compile error, never a
// silent truncation.
const (
	CmdLimit = 1<<26 - 1 // instructions per artifact
	CstLimit = 1<<18 - 1 // literals per pool
	ObjLimit = 1<<13 - 1 // named slots per environment
	RegLimit = 255       // evaluation-stack depth per frame
)

// Sentinel operand values.
const (
	UndefNameLoc uint32 = CstLimit // slot has no name
	UndefEnvLoc  uint32 = ObjLimit // value lives outside any environment
	UndefNParams        = 255      // variadic function arity
)

// Opcode occupies the low 6 bits of an instruction word.
type Opcode uint8

const (
	OP_PASS Opcode = iota
	OP_VCRT
	OP_TMPDEL
	OP_THIS
	OP_BASE
	OP_BREAK
	OP_CONTI
	OP_RET
	OP_IN
	OP_PAIR
	OP_TO
	OP_POPN
	OP_POPCOV
	OP_LOOPAS
	OP_LOOPIAS
	OP_LOOPLAS
	OP_LOOPGAS
	OP_JPF
	OP_JPB
	OP_CJPFPOP
	OP_CJPBPOP
	OP_PUSHX
	OP_PUSHI
	OP_PUSHD
	OP_PUSHB
	OP_PUSHS
	OP_PUSHDICT
	OP_PUSHINFO
	OP_IMPORT
	OP_IDXR
	OP_EVAL
	OP_EVALSF
	OP_EVALCF
	OP_EVALTF
	OP_IDXL
	OP_PUSHF
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	OP_MOD
	OP_POW
	OP_MMUL
	OP_EQ
	OP_NE
	OP_GE
	OP_SG
	OP_LE
	OP_SL
	OP_AND
	OP_OR
)

var opcodeNames = [...]string{
	OP_PASS:     "OP_PASS",
	OP_VCRT:     "OP_VCRT",
	OP_TMPDEL:   "OP_TMPDEL",
	OP_THIS:     "OP_THIS",
	OP_BASE:     "OP_BASE",
	OP_BREAK:    "OP_BREAK",
	OP_CONTI:    "OP_CONTI",
	OP_RET:      "OP_RET",
	OP_IN:       "OP_IN",
	OP_PAIR:     "OP_PAIR",
	OP_TO:       "OP_TO",
	OP_POPN:     "OP_POPN",
	OP_POPCOV:   "OP_POPCOV",
	OP_LOOPAS:   "OP_LOOPAS",
	OP_LOOPIAS:  "OP_LOOPIAS",
	OP_LOOPLAS:  "OP_LOOPLAS",
	OP_LOOPGAS:  "OP_LOOPGAS",
	OP_JPF:      "OP_JPF",
	OP_JPB:      "OP_JPB",
	OP_CJPFPOP:  "OP_CJPFPOP",
	OP_CJPBPOP:  "OP_CJPBPOP",
	OP_PUSHX:    "OP_PUSHX",
	OP_PUSHI:    "OP_PUSHI",
	OP_PUSHD:    "OP_PUSHD",
	OP_PUSHB:    "OP_PUSHB",
	OP_PUSHS:    "OP_PUSHS",
	OP_PUSHDICT: "OP_PUSHDICT",
	OP_PUSHINFO: "OP_PUSHINFO",
	OP_IMPORT:   "OP_IMPORT",
	OP_IDXR:     "OP_IDXR",
	OP_EVAL:     "OP_EVAL",
	OP_EVALSF:   "OP_EVALSF",
	OP_EVALCF:   "OP_EVALCF",
	OP_EVALTF:   "OP_EVALTF",
	OP_IDXL:     "OP_IDXL",
	OP_PUSHF:    "OP_PUSHF",
	OP_ADD:      "OP_ADD",
	OP_SUB:      "OP_SUB",
	OP_MUL:      "OP_MUL",
	OP_DIV:      "OP_DIV",
	OP_MOD:      "OP_MOD",
	OP_POW:      "OP_POW",
	OP_MMUL:     "OP_MMUL",
	OP_EQ:       "OP_EQ",
	OP_NE:       "OP_NE",
	OP_GE:       "OP_GE",
	OP_SG:       "OP_SG",
	OP_LE:       "OP_LE",
	OP_SL:       "OP_SL",
	OP_AND:      "OP_AND",
	OP_OR:       "OP_OR",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("OP_%d", uint8(op))
}

// Instr is one 32-bit instruction word. The low 6 bits hold the opcode;
// the upper 26 bits hold one of four operand layouts:
//
//	U      a single 26-bit unsigned
//	L,R    two 13-bit unsigneds
//	C,P    an 18-bit then an 8-bit unsigned
//	L,b,i  a 13-bit, an 8-bit and a 5-bit unsigned
type Instr uint32

const opcodeMask = 1<<6 - 1

// Make builds an instruction without operands.
func Make(op Opcode) Instr {
	return Instr(uint32(op) & opcodeMask)
}

// MakeU builds an Op-U instruction.
func MakeU(op Opcode, u uint32) Instr {
	return Instr(uint32(op)&opcodeMask | u<<6)
}

// MakeLR builds an Op-L-R instruction.
func MakeLR(op Opcode, l, r uint16) Instr {
	return Instr(uint32(op)&opcodeMask | (uint32(l)<<19)>>13 | uint32(r)<<19)
}

// MakeCP builds an Op-C-P instruction.
func MakeCP(op Opcode, c uint32, p uint8) Instr {
	return Instr(uint32(op)&opcodeMask | (c<<14)>>8 | uint32(p)<<24)
}

// MakeLbi builds an Op-L-b-i instruction.
func MakeLbi(op Opcode, l uint16, b uint8, i uint8) Instr {
	return Instr(uint32(op)&opcodeMask | (uint32(l)<<19)>>13 | (uint32(b)<<24)>>5 | uint32(i)<<27)
}

// Op returns the opcode in the low 6 bits.
func (in Instr) Op() Opcode {
	return Opcode(uint32(in) & opcodeMask)
}

// WithOp replaces the opcode, keeping the operand bits. The VM uses it for
// in-place specialization of EVAL and LOOPAS sites.
func (in Instr) WithOp(op Opcode) Instr {
	return Instr(uint32(in)>>6<<6 | uint32(op)&opcodeMask)
}

// U returns the 26-bit operand of an Op-U instruction.
func (in Instr) U() uint32 {
	return uint32(in) >> 6
}

// AddU adds a to the U operand of an Op-U instruction.
func (in Instr) AddU(a uint32) Instr {
	return Instr(uint32(in) + a<<6)
}

// L returns the low 13-bit operand of an Op-L-R or Op-L-b-i instruction.
func (in Instr) L() uint16 {
	return uint16((uint32(in) << 13) >> 19)
}

// R returns the high 13-bit operand of an Op-L-R instruction.
func (in Instr) R() uint16 {
	return uint16(uint32(in) >> 19)
}

// C returns the 18-bit operand of an Op-C-P instruction.
func (in Instr) C() uint32 {
	return (uint32(in) << 8) >> 14
}

// P returns the 8-bit operand of an Op-C-P instruction.
func (in Instr) P() uint8 {
	return uint8(uint32(in) >> 24)
}

// B returns the 8-bit operand of an Op-L-b-i instruction.
func (in Instr) B() uint8 {
	return uint8((uint32(in) << 5) >> 24)
}

// I returns the 5-bit operand of an Op-L-b-i instruction.
func (in Instr) I() uint8 {
	return uint8(uint32(in) >> 27)
}

// String renders the instruction the way the disassembler prints it.
func (in Instr) String() string {
	op := in.Op()
	switch op {
	case OP_PASS, OP_THIS, OP_BASE, OP_BREAK, OP_CONTI, OP_RET, OP_IN, OP_PAIR, OP_TO:
		return fmt.Sprintf("%-12s", op)
	case OP_VCRT:
		return fmt.Sprintf("%-12s%d  %d", op, in.C(), in.P())
	case OP_TMPDEL, OP_JPF, OP_JPB, OP_CJPFPOP, OP_CJPBPOP,
		OP_PUSHI, OP_PUSHD, OP_PUSHB, OP_PUSHS, OP_PUSHDICT, OP_PUSHINFO,
		OP_IMPORT, OP_IDXR, OP_EVAL, OP_EVALSF, OP_EVALCF, OP_EVALTF, OP_PUSHF:
		return fmt.Sprintf("%-12s%d", op, in.U())
	case OP_IDXL:
		return fmt.Sprintf("%-12s%d  %d  %d", op, in.L(), in.B(), in.I())
	default:
		return fmt.Sprintf("%-12s%d  %d", op, in.L(), in.R())
	}
}

// Instrs is a growable instruction vector, used only while compiling.
type Instrs []Instr

// Append appends one instruction, enforcing the artifact-wide limit.
func (v *Instrs) Append(in Instr) {
	if len(*v) >= CmdLimit {
		terror.Compile(terror.CompileCmdOverflow, "Instrs.Append", "")
	}
	*v = append(*v, in)
}

// Consts accumulates the three literal pools during compilation. Adding a
// literal that is already present returns its existing index.
type Consts struct {
	Strs   []string
	Ints   []int64
	Floats []float64
}

// AddStr interns a string literal and returns its pool index.
func (c *Consts) AddStr(s string) uint32 {
	for i, v := range c.Strs {
		if v == s {
			return uint32(i)
		}
	}
	if len(c.Strs) >= CstLimit {
		terror.Compile(terror.CompileCstOverflow, "Consts.AddStr", "")
	}
	c.Strs = append(c.Strs, s)
	return uint32(len(c.Strs) - 1)
}

// AddInt interns an integer literal and returns its pool index.
func (c *Consts) AddInt(i int64) uint32 {
	for j, v := range c.Ints {
		if v == i {
			return uint32(j)
		}
	}
	if len(c.Ints) >= CstLimit {
		terror.Compile(terror.CompileCstOverflow, "Consts.AddInt", "")
	}
	c.Ints = append(c.Ints, i)
	return uint32(len(c.Ints) - 1)
}

// AddFloat interns a float literal and returns its pool index.
func (c *Consts) AddFloat(f float64) uint32 {
	for j, v := range c.Floats {
		if v == f {
			return uint32(j)
		}
	}
	if len(c.Floats) >= CstLimit {
		terror.Compile(terror.CompileCstOverflow, "Consts.AddFloat", "")
	}
	c.Floats = append(c.Floats, f)
	return uint32(len(c.Floats) - 1)
}

// Copy returns an independent copy of the pools. The interactive shell
// snapshots the pools before wrapping each unit.
func (c *Consts) Copy() Consts {
	cp := Consts{
		Strs:   make([]string, len(c.Strs)),
		Ints:   make([]int64, len(c.Ints)),
		Floats: make([]float64, len(c.Floats)),
	}
	copy(cp.Strs, c.Strs)
	copy(cp.Ints, c.Ints)
	copy(cp.Floats, c.Floats)
	return cp
}

// Info is the compile-time header of an artifact: the maximum occupancy of
// the named-variable table, the temporary table and the evaluation stack.
type Info struct {
	ObjMax uint16
	TmpMax uint16
	RegMax uint8
}

// Artifact is a compiled module: the instruction vector, the three literal
// pools and the compile-time header. Artifacts are the unit of
// serialization.
type Artifact struct {
	Instrs Instrs
	Consts Consts
	Info   Info
}
