package code

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/zhuanglinsheng/tapas/terror"
)

// Wrap converts the compiler's growable vectors into a fixed artifact.
// This is the analyser phase; no optimization is performed here — the only
// rewrites happen at run time, in place, on first execution of a site.
func Wrap(cmds Instrs, consts Consts, info Info) *Artifact {
	fixed := make(Instrs, len(cmds))
	copy(fixed, cmds)
	return &Artifact{Instrs: fixed, Consts: consts, Info: info}
}

// Suffix is the on-disk extension of compiled artifacts.
const Suffix = ".tapc"

// On-disk layout, little-endian fixed width:
//
//	u32 ncmds, u32 nints, u32 ndbls, u32 nstrs
//	u16 objMax, u16 tmpMax, u16 regMax, u16 padding
//	ncmds x u32 instruction words
//	nints x i64 integer literals
//	ndbls x f64 float literals
//	per string: u64 length, bytes, NUL

// Save writes the artifact to file.
func (a *Artifact) Save(file string) (err error) {
	defer terror.Recover(&err)
	f, cerr := os.Create(file)
	if cerr != nil {
		terror.Session(terror.SessionIO, "Artifact.Save", file)
	}
	defer f.Close()
	a.write(f)
	return nil
}

func (a *Artifact) write(w io.Writer) {
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(len(a.Instrs)))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(a.Consts.Ints)))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(len(a.Consts.Floats)))
	binary.LittleEndian.PutUint32(hdr[12:], uint32(len(a.Consts.Strs)))
	a.mustWrite(w, hdr[:])

	var info [8]byte
	binary.LittleEndian.PutUint16(info[0:], a.Info.ObjMax)
	binary.LittleEndian.PutUint16(info[2:], a.Info.TmpMax)
	binary.LittleEndian.PutUint16(info[4:], uint16(a.Info.RegMax))
	a.mustWrite(w, info[:])

	var word [8]byte
	for _, in := range a.Instrs {
		binary.LittleEndian.PutUint32(word[:4], uint32(in))
		a.mustWrite(w, word[:4])
	}
	for _, i := range a.Consts.Ints {
		binary.LittleEndian.PutUint64(word[:], uint64(i))
		a.mustWrite(w, word[:])
	}
	for _, d := range a.Consts.Floats {
		binary.LittleEndian.PutUint64(word[:], math.Float64bits(d))
		a.mustWrite(w, word[:])
	}
	for _, s := range a.Consts.Strs {
		binary.LittleEndian.PutUint64(word[:], uint64(len(s)))
		a.mustWrite(w, word[:])
		a.mustWrite(w, []byte(s))
		a.mustWrite(w, []byte{0})
	}
}

func (a *Artifact) mustWrite(w io.Writer, b []byte) {
	if _, err := w.Write(b); err != nil {
		terror.Session(terror.SessionIO, "Artifact.Save", err.Error())
	}
}

// Load reads an artifact from file, validating each section's size against
// its declared count.
func Load(file string) (a *Artifact, err error) {
	defer terror.Recover(&err)
	f, oerr := os.Open(file)
	if oerr != nil {
		terror.Session(terror.SessionIO, "code.Load", file)
	}
	defer f.Close()
	return read(f), nil
}

func read(r io.Reader) *Artifact {
	var hdr [16]byte
	mustRead(r, hdr[:])
	ncmds := binary.LittleEndian.Uint32(hdr[0:])
	nints := binary.LittleEndian.Uint32(hdr[4:])
	ndbls := binary.LittleEndian.Uint32(hdr[8:])
	nstrs := binary.LittleEndian.Uint32(hdr[12:])
	if ncmds > CmdLimit || nints > CstLimit || ndbls > CstLimit || nstrs > CstLimit {
		terror.Session(terror.SessionIO, "code.Load", "corrupt header")
	}

	var info [8]byte
	mustRead(r, info[:])
	a := &Artifact{}
	a.Info.ObjMax = binary.LittleEndian.Uint16(info[0:])
	a.Info.TmpMax = binary.LittleEndian.Uint16(info[2:])
	a.Info.RegMax = uint8(binary.LittleEndian.Uint16(info[4:]))

	var word [8]byte
	a.Instrs = make(Instrs, ncmds)
	for i := range a.Instrs {
		mustRead(r, word[:4])
		a.Instrs[i] = Instr(binary.LittleEndian.Uint32(word[:4]))
	}
	a.Consts.Ints = make([]int64, nints)
	for i := range a.Consts.Ints {
		mustRead(r, word[:])
		a.Consts.Ints[i] = int64(binary.LittleEndian.Uint64(word[:]))
	}
	a.Consts.Floats = make([]float64, ndbls)
	for i := range a.Consts.Floats {
		mustRead(r, word[:])
		a.Consts.Floats[i] = math.Float64frombits(binary.LittleEndian.Uint64(word[:]))
	}
	a.Consts.Strs = make([]string, nstrs)
	for i := range a.Consts.Strs {
		mustRead(r, word[:])
		slen := binary.LittleEndian.Uint64(word[:])
		if slen > uint64(1<<24) {
			terror.Session(terror.SessionIO, "code.Load", "corrupt string length")
		}
		buf := make([]byte, slen+1)
		mustRead(r, buf)
		if buf[slen] != 0 {
			terror.Session(terror.SessionIO, "code.Load", "missing terminator")
		}
		a.Consts.Strs[i] = string(buf[:slen])
	}
	return a
}

func mustRead(r io.Reader, b []byte) {
	if _, err := io.ReadFull(r, b); err != nil {
		terror.Session(terror.SessionIO, "code.Load", "short read")
	}
}

// Disassemble renders the artifact in the layout the show command prints.
func (a *Artifact) Disassemble() string {
	var b strings.Builder
	for i, in := range a.Instrs {
		fmt.Fprintf(&b, "[%d]%s\n", i, in)
	}
	fmt.Fprintf(&b, "Max Obj. Number: %d\n", a.Info.ObjMax)
	fmt.Fprintf(&b, "Max Tmp. Number: %d\n", a.Info.TmpMax)
	fmt.Fprintf(&b, "Max Reg. Number: %d\n", a.Info.RegMax)
	b.WriteString("Const Value List (Integers): ")
	for i, v := range a.Consts.Ints {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", v)
	}
	b.WriteString("\nConst Value List (Double Floats): ")
	for i, v := range a.Consts.Floats {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%f", v)
	}
	b.WriteString("\nConst Value List (Character Strings): ")
	for i, v := range a.Consts.Strs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v)
	}
	b.WriteString("\n")
	return b.String()
}
