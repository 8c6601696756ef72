// Package compiler emits Tapas bytecode in one forward pass over the
// classified units. It keeps three counters while emitting: the named
// variable table (persistent, `var`), the temporary table (`let`,
// block-scoped) and the evaluation-stack depth, so the artifact header is
// exact. Function bodies and kappa blocks compile through nested compilers
// whose named table links the enclosing one; imported files compile through
// a fresh compiler that sees only the host defaults.
package compiler

import (
	"os"
	"strings"

	"github.com/zhuanglinsheng/tapas/code"
	"github.com/zhuanglinsheng/tapas/lexer"
	"github.com/zhuanglinsheng/tapas/terror"
	"github.com/zhuanglinsheng/tapas/token"
)

// Compiler compiles units into bytecode against one environment level.
type Compiler struct {
	objCtr      ObjCtr
	tmpCtr      ObjCtr
	regCtr      StkCtr
	nDefaults   uint32
	interactive bool
}

// New builds a nested compiler whose named table links father's.
func New(father *ObjCtr, interactive bool) *Compiler {
	return &Compiler{
		objCtr:      NewObjCtr(nil, father),
		tmpCtr:      NewObjCtr(nil, nil),
		interactive: interactive,
	}
}

// NewWithDefaults builds a compiler seeded with default names: the host
// registrations for a root compiler, the parameter names for a function
// body.
func NewWithDefaults(defaults []string, father *ObjCtr, interactive bool) *Compiler {
	return &Compiler{
		objCtr:      NewObjCtr(defaults, father),
		tmpCtr:      NewObjCtr(nil, nil),
		nDefaults:   uint32(len(defaults)),
		interactive: interactive,
	}
}

// Info snapshots the compile-time header.
func (c *Compiler) Info() code.Info {
	return code.Info{
		ObjMax: uint16(c.objCtr.MaxCurrent()),
		TmpMax: uint16(c.tmpCtr.MaxCurrent()),
		RegMax: uint8(c.regCtr.Max()),
	}
}

// binExpr is the operand analysis of a fused binary operator site.
type binExpr struct {
	left   string
	right  string
	alType uint32
	lloc   uint32
	rloc   uint32
}

// binopSplit decides the origin-kind code (0-8) of a binary site: whether
// each side resolves to a named slot, a temporary, or must be evaluated on
// the stack.
func (c *Compiler) binopSplit(tok token.Token) binExpr {
	expr := binExpr{left: tok.V1, right: tok.V2}
	objLeft := c.objCtr.Loc(expr.left)
	tmpLeft := c.tmpCtr.Loc(expr.left)
	objRight := c.objCtr.Loc(expr.right)
	tmpRight := c.tmpCtr.Loc(expr.right)
	objAll := c.objCtr.LenAll()
	tmpAll := c.tmpCtr.LenAll()
	expr.alType = 0 // value (x) value

	if objLeft < objAll && tmpRight == tmpAll && objRight == objAll {
		expr.lloc = objLeft
		expr.alType = 1 // env value
	}
	if tmpLeft == tmpAll && objLeft == objAll && objRight < objAll {
		expr.rloc = objRight
		expr.alType = 2 // value env
	}
	if objLeft < objAll && objRight < objAll {
		expr.lloc = objLeft
		expr.rloc = objRight
		expr.alType = 3 // env env
	}
	if tmpLeft < tmpAll && tmpRight == tmpAll && objRight == objAll {
		expr.lloc = tmpLeft
		expr.alType = 4 // tmp value
	}
	if tmpLeft == tmpAll && objLeft == objAll && tmpRight < tmpAll {
		expr.rloc = tmpRight
		expr.alType = 5 // value tmp
	}
	if tmpLeft < tmpAll && tmpRight < tmpAll {
		expr.lloc = tmpLeft
		expr.rloc = tmpRight
		expr.alType = 6 // tmp tmp
	}
	if objLeft < objAll && tmpRight < tmpAll {
		expr.lloc = objLeft
		expr.rloc = tmpRight
		expr.alType = 7 // env tmp
	}
	if tmpLeft < tmpAll && objRight < objAll {
		expr.lloc = tmpLeft
		expr.rloc = objRight
		expr.alType = 8 // tmp env
	}
	return expr
}

// parseV compiles an atom: an int or float literal, or a resolved name.
func (c *Compiler) parseV(tok token.Token, cmds *code.Instrs, consts *code.Consts) {
	if len(tok.V1) == 0 {
		terror.Compile(terror.CompileInvalidLiter, "Compiler.parseV", "empty liter")
	}
	if it, ok := lexer.ParseIntLiteral(tok.V1); ok {
		cmds.Append(code.MakeU(code.OP_PUSHI, consts.AddInt(it)))
		c.regCtr.Add()
		return
	}
	if dt, ok := lexer.ParseFloatLiteral(tok.V1); ok {
		cmds.Append(code.MakeU(code.OP_PUSHD, consts.AddFloat(dt)))
		c.regCtr.Add()
		return
	}
	locTmp := c.tmpCtr.Loc(tok.V1)
	locEnv := c.objCtr.Loc(tok.V1)
	switch {
	case locTmp < c.tmpCtr.LenAll():
		cmds.Append(code.MakeLR(code.OP_PUSHX, uint16(locTmp), 0))
		c.regCtr.Add()
	case locEnv < c.objCtr.LenAll():
		cmds.Append(code.MakeLR(code.OP_PUSHX, uint16(locEnv), 1))
		c.regCtr.Add()
	default:
		terror.Compile(terror.CompileInvalidLiter, "Compiler.parseV", tok.V1)
	}
}

// parseBinopFused compiles a fused binary operator: the PUSHINFO preamble
// supplies the origin-kind code the VM consumes before executing the op.
func (c *Compiler) parseBinopFused(op code.Opcode, expr binExpr, cmds *code.Instrs, consts *code.Consts, paths []string, inblk bool) {
	switch expr.alType {
	case 0: // value value
		c.ParseUnit(expr.right, cmds, consts, paths, false, inblk)
		c.ParseUnit(expr.left, cmds, consts, paths, false, inblk)
		cmds.Append(code.MakeU(code.OP_PUSHINFO, expr.alType))
		c.regCtr.Add()
		cmds.Append(code.MakeLR(op, 0, 1))
		c.regCtr.Ddt() // pop info
		c.regCtr.Ddt() // pop left; the result replaces the right slot
	case 1, 4: // env value / tmp value
		c.ParseUnit(expr.right, cmds, consts, paths, false, inblk)
		cmds.Append(code.MakeU(code.OP_PUSHINFO, expr.alType))
		c.regCtr.Add()
		cmds.Append(code.MakeLR(op, uint16(expr.lloc), 0))
		c.regCtr.Ddt()
	case 2, 5: // value env / value tmp
		c.ParseUnit(expr.left, cmds, consts, paths, false, inblk)
		cmds.Append(code.MakeU(code.OP_PUSHINFO, expr.alType))
		c.regCtr.Add()
		cmds.Append(code.MakeLR(op, 0, uint16(expr.rloc)))
		c.regCtr.Ddt()
	default: // both operands come from slots; only the result is pushed
		cmds.Append(code.MakeU(code.OP_PUSHINFO, expr.alType))
		c.regCtr.Add()
		cmds.Append(code.MakeLR(op, uint16(expr.lloc), uint16(expr.rloc)))
		c.regCtr.Ddt()
		c.regCtr.Add()
	}
}

// parseBinopGeneric compiles in/pair/to, whose operands always travel the
// stack.
func (c *Compiler) parseBinopGeneric(op code.Opcode, tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string, inblk bool) {
	c.ParseUnit(tok.V2, cmds, consts, paths, false, inblk)
	c.ParseUnit(tok.V1, cmds, consts, paths, false, inblk)
	cmds.Append(code.Make(op))
	c.regCtr.DdtN(2)
	c.regCtr.Add()
}

// parseReturn refuses to return a temporary of the current frame, then
// compiles the optional expression and emits RET.
func (c *Compiler) parseReturn(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string, inblk bool) {
	if tok.NVal == 1 {
		if c.tmpCtr.Loc(tok.V1) != c.tmpCtr.LenAll() {
			terror.Compile(terror.CompileReturnTmpObj, "Compiler.parseReturn", tok.V1)
		}
		c.ParseUnit(tok.V1, cmds, consts, paths, false, inblk)
	}
	cmds.Append(code.Make(code.OP_RET))
	c.regCtr.DdtN(c.regCtr.Ctr())
}

func (c *Compiler) parseVar(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string, inblk bool) {
	if c.tmpCtr.Loc(tok.V1) < c.tmpCtr.LenCurrent() {
		terror.Compile(terror.CompileDblDeclare, "Compiler.parseVar", tok.V1)
	}
	nameLoc := code.UndefNameLoc
	loc := c.objCtr.Create(tok.V1, inblk, consts, &nameLoc)
	cmds.Append(code.MakeCP(code.OP_VCRT, nameLoc, 1))

	if tok.NVal == 3 {
		c.compileInitializer(tok.V3, cmds, consts, paths, inblk, &c.objCtr)
		cmds.Append(code.MakeLR(code.OP_POPCOV, uint16(loc), 1))
		c.regCtr.Ddt()
	}
}

func (c *Compiler) parseLet(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string, inblk bool) {
	if c.objCtr.Loc(tok.V1) < c.objCtr.LenCurrent() {
		terror.Compile(terror.CompileDblDeclare, "Compiler.parseLet", tok.V1)
	}
	nameLoc := code.UndefNameLoc
	loc := c.tmpCtr.Create(tok.V1, false, consts, &nameLoc)
	cmds.Append(code.MakeCP(code.OP_VCRT, nameLoc, 0))

	if tok.NVal == 3 {
		c.compileInitializer(tok.V3, cmds, consts, paths, inblk, &c.tmpCtr)
		cmds.Append(code.MakeLR(code.OP_POPCOV, uint16(loc), 0))
		c.regCtr.Ddt()
	}
}

// compileInitializer compiles a declaration's value, undoing the
// declaration when the value itself fails to compile.
func (c *Compiler) compileInitializer(value string, cmds *code.Instrs, consts *code.Consts, paths []string, inblk bool, table *ObjCtr) {
	defer func() {
		if r := recover(); r != nil {
			table.DelLastN(1)
			if te, ok := r.(*terror.Error); ok {
				panic(te)
			}
			panic(r)
		}
	}()
	c.ParseUnit(value, cmds, consts, paths, false, inblk)
}

// findImportedFile resolves an import path: the path as a package
// directory first, then as a file, then each search directory with the
// same two probes.
func findImportedFile(file string, paths []string) (string, bool) {
	probe := func(f string) bool {
		info, err := os.Stat(f)
		return err == nil && !info.IsDir()
	}
	if probe(file + "/__init__.tap") {
		return file + "/__init__.tap", true
	}
	if probe(file) {
		return file, true
	}
	for _, p := range paths {
		if probe(p + "/" + file + "/__init__.tap") {
			return p + "/" + file + "/__init__.tap", true
		}
		if probe(p + "/" + file) {
			return p + "/" + file, true
		}
	}
	return "", false
}

// parseImport compiles the referenced file through a nested compiler
// seeded with only the host defaults, then emits the runtime IMPORT and
// the optional alias binding.
func (c *Compiler) parseImport(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string, inblk bool) {
	file := tok.V1
	if len(file) == 0 {
		terror.Compile(terror.CompileInvalidLiter, "Compiler.parseImport", "empty liter")
	}
	resolved, found := findImportedFile(file, paths)
	if !found {
		terror.Compile(terror.CompileUnfoundFile, "Compiler.parseImport", file)
	}
	sub := NewWithDefaults(c.objCtr.FirstNObjs(c.nDefaults), nil, c.interactive)
	sub.CompileFileToDisk(resolved, paths)

	if tok.NVal == 2 {
		nameLoc := code.UndefNameLoc
		loc := c.objCtr.Create(tok.V2, inblk, consts, &nameLoc)
		cmds.Append(code.MakeCP(code.OP_VCRT, nameLoc, 1))
		cmds.Append(code.MakeU(code.OP_IMPORT, consts.AddStr(resolved)))
		c.regCtr.Add()
		cmds.Append(code.MakeLR(code.OP_POPCOV, uint16(loc), 1))
		c.regCtr.Ddt()
	} else {
		cmds.Append(code.MakeU(code.OP_IMPORT, consts.AddStr(resolved)))
		c.regCtr.Add()
		cmds.Append(code.MakeLR(code.OP_POPN, 1, 0))
		c.regCtr.Ddt()
	}
}

func (c *Compiler) parseWhile(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string) {
	ncmdsOri := uint32(len(*cmds))
	var blk code.Instrs

	c.ParseUnit(tok.V1, cmds, consts, paths, false, true)
	c.regCtr.Ddt() // the CJPFPOP below consumes the condition
	c.ParseBlk(tok.V2, &blk, consts, paths, true, true)

	cmds.Append(code.MakeU(code.OP_CJPFPOP, uint32(len(blk))+1))
	for _, in := range blk {
		cmds.Append(in)
	}
	jpb := 1 + uint32(len(*cmds)) - ncmdsOri
	cmds.Append(code.MakeU(code.OP_JPB, jpb))
}

func (c *Compiler) parseFor(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string, cleanstk, inblk bool) {
	var blk code.Instrs
	c.ParseUnit(tok.V2, cmds, consts, paths, false, inblk)

	loc := uint32(0)
	isenv := false
	locEnv := c.objCtr.Loc(tok.V1)
	locTmp := c.tmpCtr.Loc(tok.V1)
	ntmps := c.tmpCtr.LenCurrent()

	switch {
	case locTmp != c.tmpCtr.LenAll():
		loc = locTmp
	case locEnv != c.objCtr.LenAll():
		loc = locEnv
		isenv = true
	default:
		// A fresh loop name becomes a block-scoped temporary.
		c.ParseUnit("let "+tok.V1, cmds, consts, paths, cleanstk, inblk)
		loc = c.tmpCtr.LenCurrent() - 1
	}

	cmds.Append(code.MakeLR(code.OP_LOOPAS, uint16(loc), boolBit(isenv)))
	c.regCtr.Add()
	c.regCtr.Ddt() // the CJPFPOP below consumes the continue flag

	c.ParseBlk(tok.V3, &blk, consts, paths, true, true)
	cmds.Append(code.MakeU(code.OP_CJPFPOP, 1+uint32(len(blk))))
	for _, in := range blk {
		cmds.Append(in)
	}
	cmds.Append(code.MakeU(code.OP_JPB, 3+uint32(len(blk))))
	cmds.Append(code.MakeLR(code.OP_POPN, 1, 0))
	c.regCtr.Ddt()

	if newtmps := c.tmpCtr.LenCurrent() - ntmps; newtmps > 0 {
		c.tmpCtr.DelLastN(newtmps)
		cmds.Append(code.MakeU(code.OP_TMPDEL, newtmps))
	}
}

func (c *Compiler) parseIf(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string, inblk bool) {
	c.ParseUnit(tok.V1, cmds, consts, paths, false, inblk)
	cmds.Append(code.MakeU(code.OP_CJPFPOP, 0))
	locCJ := len(*cmds) - 1
	c.regCtr.Ddt()

	var blk code.Instrs
	c.ParseBlk(tok.V2, &blk, consts, paths, true, true)
	for _, in := range blk {
		cmds.Append(in)
	}
	cmds.Append(code.Make(code.OP_PASS))
	(*cmds)[locCJ] = code.MakeU(code.OP_CJPFPOP, uint32(len(blk))+1)
}

func (c *Compiler) parseElif(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string) {
	// The trailing PASS marks the preceding arm; it becomes the exit jump.
	if n := len(*cmds); n > 0 && (*cmds)[n-1].Op() == code.OP_PASS {
		*cmds = (*cmds)[:n-1]
	}
	cmds.Append(code.MakeU(code.OP_JPF, 0))
	locJPF := len(*cmds) - 1

	var cond code.Instrs
	c.ParseUnit(tok.V1, &cond, consts, paths, false, true)
	for _, in := range cond {
		cmds.Append(in)
	}
	cmds.Append(code.MakeU(code.OP_CJPFPOP, 0))
	c.regCtr.Ddt()
	locCJ := len(*cmds) - 1

	var blk code.Instrs
	c.ParseBlk(tok.V2, &blk, consts, paths, true, true)
	for _, in := range blk {
		cmds.Append(in)
	}
	cmds.Append(code.Make(code.OP_PASS))
	(*cmds)[locJPF] = code.MakeU(code.OP_JPF, uint32(len(cond))+1+uint32(len(blk)))
	(*cmds)[locCJ] = code.MakeU(code.OP_CJPFPOP, uint32(len(blk))+1)
}

func (c *Compiler) parseElse(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string) {
	if n := len(*cmds); n > 0 && (*cmds)[n-1].Op() == code.OP_PASS {
		*cmds = (*cmds)[:n-1]
	}
	var blk code.Instrs
	c.ParseBlk(tok.V1, &blk, consts, paths, true, true)
	cmds.Append(code.MakeU(code.OP_JPF, uint32(len(blk))))
	for _, in := range blk {
		cmds.Append(in)
	}
}

func (c *Compiler) parseAsg(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string, inblk bool) {
	loc, isenv := c.resolveTarget(tok.V1, "Compiler.parseAsg")
	c.ParseUnit(tok.V2, cmds, consts, paths, false, inblk)
	cmds.Append(code.MakeLR(code.OP_POPCOV, uint16(loc), boolBit(isenv)))
	c.regCtr.Ddt()
}

// resolveTarget finds an assignable slot: a temporary first, then a named
// slot that is not a host default.
func (c *Compiler) resolveTarget(name, fn string) (uint32, bool) {
	locEnv := c.objCtr.Loc(name)
	locTmp := c.tmpCtr.Loc(name)
	switch {
	case locTmp != c.tmpCtr.LenAll():
		return locTmp, false
	case locEnv != c.objCtr.LenAll():
		if c.objCtr.IsPreload(locEnv) {
			terror.Compile(terror.CompileAsgDefault, fn, name)
		}
		return locEnv, true
	}
	terror.Compile(terror.CompileObjUnfound, fn, name)
	return 0, false
}

func (c *Compiler) parseIdxL(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string, inblk bool) {
	loc, isenv := c.resolveTarget(tok.V1, "Compiler.parseIdxL")
	c.ParseUnit(tok.V3, cmds, consts, paths, false, inblk)
	n := c.ParseParams(tok.V2, cmds, consts, paths, inblk)
	cmds.Append(code.MakeLbi(code.OP_IDXL, uint16(loc), n, uint8(boolBit(isenv))))
	c.regCtr.DdtN(uint16(n) + 1)
}

func (c *Compiler) parseIdx(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string, cleanstk, inblk bool) {
	if len(tok.V1) == 0 {
		// `[a, b, c]` is sugar for the list constructor.
		c.ParseUnit("std::tolist("+tok.V2+")", cmds, consts, paths, cleanstk, inblk)
		return
	}
	n := c.ParseParams(tok.V2, cmds, consts, paths, inblk)
	c.ParseUnit(tok.V1, cmds, consts, paths, false, inblk)
	cmds.Append(code.MakeU(code.OP_IDXR, uint32(n)))
	c.regCtr.DdtN(uint16(n) + 1)
	c.regCtr.Add()
}

func (c *Compiler) parseIdx2(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string, inblk bool) {
	c.ParseUnit("'"+tok.V2+"'", cmds, consts, paths, false, inblk)
	c.ParseUnit(tok.V1, cmds, consts, paths, false, inblk)
	cmds.Append(code.MakeU(code.OP_IDXR, 1))
	c.regCtr.Ddt()
}

func (c *Compiler) parseEval(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string, inblk bool) {
	n := c.ParseParams(tok.V2, cmds, consts, paths, inblk)
	c.ParseUnit(tok.V1, cmds, consts, paths, false, inblk)
	cmds.Append(code.MakeU(code.OP_EVAL, uint32(n)))
	c.regCtr.DdtN(uint16(n) + 1)
	c.regCtr.Add()
}

// parseDict compiles `{k: v, ...}`: every element pushes a pair, then
// PUSHDICT folds them. A bare-identifier key that resolves to nothing is
// read as a string key.
func (c *Compiler) parseDict(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string, inblk bool) {
	n := uint8(0)
	if len(tok.V1) > 0 {
		params := lexer.SplitByComma(tok.V1)
		if len(params) >= code.RegLimit {
			terror.Compile(terror.CompileRegOverflow, "Compiler.parseDict", "too many entries")
		}
		for _, p := range params {
			c.ParseUnit(c.quoteBareKey(p), cmds, consts, paths, false, inblk)
		}
		n = uint8(len(params))
	}
	cmds.Append(code.MakeU(code.OP_PUSHDICT, uint32(n)))
	c.regCtr.DdtN(uint16(n))
	c.regCtr.Add()
}

// quoteBareKey rewrites `name : v` into `'name' : v` when name is a valid
// identifier that resolves to no variable.
func (c *Compiler) quoteBareKey(p string) string {
	colon := -1
	var ctr lexer.Counter
	for i := 0; i < len(p); i++ {
		if ctr.Independent() && p[i] == ':' {
			if i+1 < len(p) && p[i+1] == ':' || i > 0 && p[i-1] == ':' {
				ctr.Update(p[i])
				continue
			}
			colon = i
			break
		}
		ctr.Update(p[i])
	}
	if colon <= 0 {
		return p
	}
	key := lexer.Trim(p[:colon])
	if !lexer.CheckVName(key) {
		return p
	}
	if c.tmpCtr.Loc(key) != c.tmpCtr.LenAll() || c.objCtr.Loc(key) != c.objCtr.LenAll() {
		return p
	}
	return "'" + key + "'" + p[colon:]
}

// parseFunc compiles a function literal through a fresh nested compiler,
// then emits the four info pushes and PUSHF with the body inline behind
// it.
func (c *Compiler) parseFunc(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string) {
	var params []string
	nparams := uint32(code.UndefNParams)
	if tok.V1 != "..." {
		if len(tok.V1) > 0 {
			params = lexer.SplitByComma(tok.V1)
			for _, p := range params {
				if !lexer.CheckVName(p) {
					terror.Compile(terror.CompileInvalidVName, "Compiler.parseFunc", p)
				}
			}
		}
		if len(params) >= code.RegLimit {
			terror.Compile(terror.CompileRegOverflow, "Compiler.parseFunc", "too many parameters")
		}
		nparams = uint32(len(params))
	}

	sub := NewWithDefaults(params, &c.objCtr, c.interactive)
	var body code.Instrs
	sub.ParseBlk(tok.V2, &body, consts, paths, true, false)
	info := sub.Info()

	cmds.Append(code.MakeU(code.OP_PUSHINFO, uint32(info.ObjMax)))
	cmds.Append(code.MakeU(code.OP_PUSHINFO, uint32(info.TmpMax)))
	cmds.Append(code.MakeU(code.OP_PUSHINFO, uint32(info.RegMax)))
	cmds.Append(code.MakeU(code.OP_PUSHINFO, nparams))
	c.regCtr.AddN(4)
	cmds.Append(code.MakeU(code.OP_PUSHF, uint32(len(body))))
	c.regCtr.DdtN(4)
	c.regCtr.Add()
	for _, in := range body {
		cmds.Append(in)
	}
}

// parseKappa compiles `#{ blk }` as a zero-parameter function whose body
// keeps its evaluation stack and returns the top value.
func (c *Compiler) parseKappa(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string) {
	sub := New(&c.objCtr, c.interactive)
	var body code.Instrs
	sub.ParseBlk(tok.V1, &body, consts, paths, false, false)
	body.Append(code.Make(code.OP_RET))
	info := sub.Info()

	cmds.Append(code.MakeU(code.OP_PUSHINFO, uint32(info.ObjMax)))
	cmds.Append(code.MakeU(code.OP_PUSHINFO, uint32(info.TmpMax)))
	cmds.Append(code.MakeU(code.OP_PUSHINFO, uint32(info.RegMax)))
	cmds.Append(code.MakeU(code.OP_PUSHINFO, 0))
	c.regCtr.AddN(4)
	cmds.Append(code.MakeU(code.OP_PUSHF, uint32(len(body))))
	c.regCtr.DdtN(4)
	c.regCtr.Add()
	for _, in := range body {
		cmds.Append(in)
	}
}

var binOpcodes = map[token.Type]code.Opcode{
	token.AND: code.OP_AND, token.OR: code.OP_OR,
	token.EQ: code.OP_EQ, token.NE: code.OP_NE,
	token.GE: code.OP_GE, token.LE: code.OP_LE,
	token.SG: code.OP_SG, token.SL: code.OP_SL,
	token.ADD: code.OP_ADD, token.SUB: code.OP_SUB,
	token.MUL: code.OP_MUL, token.DIV: code.OP_DIV,
	token.MOD: code.OP_MOD, token.MMUL: code.OP_MMUL,
	token.POW: code.OP_POW,
}

// parseToken dispatches one classified unit.
func (c *Compiler) parseToken(tok token.Token, cmds *code.Instrs, consts *code.Consts, paths []string, cleanstk, inblk bool) {
	switch tok.Type {
	case token.CONTINUE:
		cmds.Append(code.Make(code.OP_CONTI))
	case token.BREAK:
		cmds.Append(code.Make(code.OP_BREAK))
	case token.RETURN:
		c.parseReturn(tok, cmds, consts, paths, inblk)
	case token.VAR:
		c.parseVar(tok, cmds, consts, paths, inblk)
	case token.LET:
		c.parseLet(tok, cmds, consts, paths, inblk)
	case token.IMPORT:
		c.parseImport(tok, cmds, consts, paths, inblk)
	case token.WHILE:
		c.parseWhile(tok, cmds, consts, paths)
	case token.FOR:
		c.parseFor(tok, cmds, consts, paths, cleanstk, inblk)
	case token.IF:
		c.parseIf(tok, cmds, consts, paths, inblk)
	case token.ELIF:
		c.parseElif(tok, cmds, consts, paths)
	case token.ELSE:
		c.parseElse(tok, cmds, consts, paths)
	case token.ASG:
		c.parseAsg(tok, cmds, consts, paths, inblk)
	case token.IDXL:
		c.parseIdxL(tok, cmds, consts, paths, inblk)
	case token.IN:
		c.parseBinopGeneric(code.OP_IN, tok, cmds, consts, paths, inblk)
	case token.PAIR:
		c.parseBinopGeneric(code.OP_PAIR, tok, cmds, consts, paths, inblk)
	case token.TO:
		c.parseBinopGeneric(code.OP_TO, tok, cmds, consts, paths, inblk)
	case token.EVAL:
		c.parseEval(tok, cmds, consts, paths, inblk)
	case token.IDX:
		c.parseIdx(tok, cmds, consts, paths, cleanstk, inblk)
	case token.IDX2:
		c.parseIdx2(tok, cmds, consts, paths, inblk)
	case token.TRUE:
		cmds.Append(code.MakeU(code.OP_PUSHB, 1))
		c.regCtr.Add()
	case token.FALSE:
		cmds.Append(code.MakeU(code.OP_PUSHB, 0))
		c.regCtr.Add()
	case token.THIS:
		cmds.Append(code.Make(code.OP_THIS))
		c.regCtr.Add()
	case token.BASE:
		cmds.Append(code.Make(code.OP_BASE))
		c.regCtr.Add()
	case token.SSTR, token.DSTR:
		cmds.Append(code.MakeU(code.OP_PUSHS, consts.AddStr(tok.V1)))
		c.regCtr.Add()
	case token.DICT:
		c.parseDict(tok, cmds, consts, paths, inblk)
	case token.FUNC:
		c.parseFunc(tok, cmds, consts, paths)
	case token.KAPPA:
		c.parseKappa(tok, cmds, consts, paths)
	case token.V:
		c.parseV(tok, cmds, consts)
	default:
		if op, ok := binOpcodes[tok.Type]; ok {
			c.parseBinopFused(op, c.binopSplit(tok), cmds, consts, paths, inblk)
			return
		}
		terror.Compile(terror.CompileOther, "Compiler.parseToken", tok.Type.String())
	}
}

// cleanStk pops whatever the unit left on the stack when the unit is a
// statement (isroot). In interactive mode the popped values are echoed.
func (c *Compiler) cleanStk(cmds *code.Instrs, isroot bool, regsOri uint16) {
	regsNow := c.regCtr.Ctr()
	if regsNow < regsOri {
		terror.Compile(terror.CompileRegOverflow, "Compiler.cleanStk", "")
	}
	if !isroot || regsNow == regsOri {
		return
	}
	ddt := regsNow - regsOri
	cmds.Append(code.MakeLR(code.OP_POPN, uint16(ddt), boolBit(c.interactive)))
	c.regCtr.DdtN(ddt)
}

// ParseUnit compiles one syntax unit. cleanstk marks statement position;
// inblk marks control-flow-block position, where `var` is illegal.
func (c *Compiler) ParseUnit(str string, cmds *code.Instrs, consts *code.Consts, paths []string, cleanstk, inblk bool) code.Info {
	units := lexer.SplitUnitsBySemicolon(str)
	if len(units) > 1 {
		for _, u := range units {
			c.ParseUnit(u, cmds, consts, paths, cleanstk, inblk)
		}
		return c.Info()
	}

	cmd := lexer.Preprocess(str)
	if len(cmd) == 0 {
		return c.Info()
	}

	tok := token.Classify(cmd)
	regsOri := c.regCtr.Ctr()
	c.parseToken(tok, cmds, consts, paths, cleanstk, inblk)
	c.cleanStk(cmds, cleanstk, regsOri)
	return c.Info()
}

// ParseUnitSeqs compiles a sequence of units.
func (c *Compiler) ParseUnitSeqs(units []string, cmds *code.Instrs, consts *code.Consts, paths []string, cleanstk, inblk bool) {
	for _, u := range units {
		c.ParseUnit(u, cmds, consts, paths, cleanstk, inblk)
	}
}

// ParseParams compiles a comma-separated parameter list, one push each,
// returning the count.
func (c *Compiler) ParseParams(str string, cmds *code.Instrs, consts *code.Consts, paths []string, inblk bool) uint8 {
	if lexer.Trim(str) == "" {
		return 0
	}
	params := lexer.SplitByComma(str)
	if len(params) >= code.RegLimit {
		terror.Compile(terror.CompileRegOverflow, "Compiler.ParseParams", "too many parameters")
	}
	for _, p := range params {
		if len(p) == 0 {
			terror.Compile(terror.CompileInvalidLiter, "Compiler.ParseParams", "empty liter")
		}
		c.ParseUnit(p, cmds, consts, paths, false, inblk)
	}
	return uint8(len(params))
}

// ParseBlk lexes and compiles a block, dropping the temporaries the block
// declared when it closes.
func (c *Compiler) ParseBlk(str string, cmds *code.Instrs, consts *code.Consts, paths []string, cleanstk, inblk bool) code.Info {
	units := lexer.LexString(str)
	ntmps := c.tmpCtr.LenAll()
	c.ParseUnitSeqs(units, cmds, consts, paths, cleanstk, inblk)
	if newtmps := c.tmpCtr.LenAll() - ntmps; newtmps > 0 {
		c.tmpCtr.DelLastN(newtmps)
		cmds.Append(code.MakeU(code.OP_TMPDEL, newtmps))
	}
	return c.Info()
}

// CompileString compiles source text into an artifact.
func (c *Compiler) CompileString(str string, paths []string) (a *code.Artifact, err error) {
	defer terror.Recover(&err)
	var cmds code.Instrs
	var consts code.Consts
	info := c.ParseBlk(str, &cmds, &consts, paths, true, false)
	return code.Wrap(cmds, consts, info), nil
}

// CompileFile compiles a source file into an artifact. The suffix decides
// the lexer: .tap, .Tap or .TAP is plain source, .md, .Md or .MD routes
// through the Markdown lexer, anything else is rejected.
func (c *Compiler) CompileFile(file string, paths []string) (a *code.Artifact, err error) {
	defer terror.Recover(&err)

	var ismd bool
	dot := strings.LastIndex(file, ".")
	if dot < 0 {
		terror.Compile(terror.CompileInvalidFile, "Compiler.CompileFile", file)
	}
	switch file[dot:] {
	case ".tap", ".Tap", ".TAP":
		ismd = false
	case ".md", ".Md", ".MD":
		ismd = true
	default:
		terror.Compile(terror.CompileInvalidFile, "Compiler.CompileFile", file)
	}

	data, rerr := os.ReadFile(file)
	if rerr != nil {
		terror.Compile(terror.CompileUnfoundFile, "Compiler.CompileFile", file)
	}

	paths = append(paths, strings.TrimSuffix(lexer.FolderOf(file), ";"))
	var units []string
	if ismd {
		units = lexer.LexMarkdown(string(data))
	} else {
		if !lexer.CheckComplete(string(data)) {
			terror.Compile(terror.CompileBracketsOpen, "Compiler.CompileFile", file)
		}
		units = lexer.LexString(string(data))
	}

	var cmds code.Instrs
	var consts code.Consts
	c.ParseUnitSeqs(units, &cmds, &consts, paths, true, false)
	return code.Wrap(cmds, consts, c.Info()), nil
}

// CompileFileToDisk compiles file and writes the artifact next to it with
// the .tapc suffix.
func (c *Compiler) CompileFileToDisk(file string, paths []string) {
	a, err := c.CompileFile(file, paths)
	if err != nil {
		if te, ok := err.(*terror.Error); ok {
			panic(te)
		}
		terror.Compile(terror.CompileOther, "Compiler.CompileFileToDisk", err.Error())
	}
	base := file
	if dot := strings.LastIndex(file, "."); dot >= 0 {
		base = file[:dot]
	}
	if err := a.Save(base + code.Suffix); err != nil {
		if te, ok := err.(*terror.Error); ok {
			panic(te)
		}
		terror.Session(terror.SessionIO, "Compiler.CompileFileToDisk", err.Error())
	}
}

func boolBit(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}
