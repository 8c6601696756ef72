// Package session owns a root library, registers the builtin packages and
// drives compile/execute cycles. A session is strictly sequential: every
// call runs to completion on the calling goroutine.
package session

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/zhuanglinsheng/tapas/code"
	"github.com/zhuanglinsheng/tapas/compiler"
	"github.com/zhuanglinsheng/tapas/lexer"
	"github.com/zhuanglinsheng/tapas/object"
	"github.com/zhuanglinsheng/tapas/terror"
	"github.com/zhuanglinsheng/tapas/vm"
)

// Session is the host-facing façade over one root library.
type Session struct {
	lib         *object.Library
	interactive bool
}

// New builds a session with the sys, std and eig packages registered.
func New(interactive bool) *Session {
	s := &Session{lib: object.NewLibrary(), interactive: interactive}
	registerSys(s.lib)
	registerStd(s.lib)
	registerEig(s.lib)
	return s
}

// Lib is the session's root library.
func (s *Session) Lib() *object.Library { return s.lib }

// AddPath adds a source search path.
func (s *Session) AddPath(path string) { s.lib.AddPath(path) }

// AddPkg registers a host package dictionary.
func (s *Session) AddPkg(name string) *object.Dict { return s.lib.AddPkg(name) }

// GetObj reads the loc-th most recently declared object of the root
// library, the embedding API of the original toolchain.
func (s *Session) GetObj(loc uint32) (v *object.Value, err error) {
	defer terror.Recover(&err)
	n := s.lib.ObjLen()
	if loc >= n {
		terror.Runtime(terror.RuntimeIdxOutRange, "Session.GetObj", "")
	}
	return s.lib.Env.GetObj(n - loc - 1), nil
}

func artifactPathOf(file string) string {
	base := file
	if dot := strings.LastIndex(file, "."); dot >= 0 {
		base = file[:dot]
	}
	return base + code.Suffix
}

// CompileFile compiles a source (or Markdown) file to its .tapc artifact
// on disk.
func (s *Session) CompileFile(file string) (err error) {
	defer terror.Recover(&err)
	syner := compiler.NewWithDefaults(s.lib.DefaultNames(), nil, s.interactive)
	syner.CompileFileToDisk(file, s.lib.Paths())
	return nil
}

// EvalArtifactFile loads the artifact written for file and executes it in
// the session's library.
func (s *Session) EvalArtifactFile(file string) error {
	binf := artifactPathOf(file)
	w, err := code.Load(binf)
	if err != nil {
		log.WithField("file", binf).Debug("artifact load failed")
		return err
	}
	s.lib.SetArtifact(w)
	s.lib.AddPath(lexer.FolderOf(binf))
	machine := vm.New(w.Info.TmpMax)
	if err := machine.EvalArtifact(0, s.lib); err != nil {
		log.WithField("file", binf).Debug("evaluation aborted")
		return err
	}
	return nil
}

// ExecuteFile compiles and executes a file without writing the artifact
// to disk.
func (s *Session) ExecuteFile(file string) error {
	s.lib.AddPath(lexer.FolderOf(file))
	syner := compiler.NewWithDefaults(s.lib.DefaultNames(), nil, s.interactive)
	w, err := syner.CompileFile(file, s.lib.Paths())
	if err != nil {
		return err
	}
	s.lib.SetArtifact(w)
	machine := vm.New(w.Info.TmpMax)
	return machine.EvalArtifact(0, s.lib)
}

// ExecuteString compiles and executes source text.
func (s *Session) ExecuteString(str string) error {
	syner := compiler.NewWithDefaults(s.lib.DefaultNames(), nil, s.interactive)
	w, err := syner.CompileString(str, s.lib.Paths())
	if err != nil {
		return err
	}
	s.lib.SetArtifact(w)
	machine := vm.New(w.Info.TmpMax)
	return machine.EvalArtifact(0, s.lib)
}

// ShowArtifact loads the artifact written for file and renders it.
func (s *Session) ShowArtifact(file string) (string, error) {
	w, err := code.Load(artifactPathOf(file))
	if err != nil {
		return "", err
	}
	return w.Disassemble(), nil
}

// Interp is the incremental compile/execute loop behind the interactive
// shell: units accumulate into one growing instruction vector, and each
// new unit executes from where the previous one stopped.
type Interp struct {
	sess   *Session
	syner  *compiler.Compiler
	cmds   code.Instrs
	consts code.Consts
	info   code.Info
	vm     *vm.VM
}

// NewInterp builds the incremental interpreter of a session.
func NewInterp(s *Session) *Interp {
	return &Interp{
		sess:  s,
		syner: compiler.NewWithDefaults(s.lib.DefaultNames(), nil, s.interactive),
		vm:    vm.New(0),
	}
}

// Disassemble renders the bytecode compiled so far.
func (ip *Interp) Disassemble() string {
	return code.Wrap(ip.cmds, ip.consts.Copy(), ip.info).Disassemble()
}

// ExecUnit compiles one unit onto the accumulated vector and executes the
// newly emitted instructions. Compile errors leave the vector as it was;
// runtime errors clean the machine but keep the library state.
func (ip *Interp) ExecUnit(cmd string) error {
	ncmdOld := uint32(len(ip.cmds))
	savedCmds := make(code.Instrs, len(ip.cmds))
	copy(savedCmds, ip.cmds)

	var compileErr error
	func() {
		defer terror.Recover(&compileErr)
		ip.info = ip.syner.ParseUnit(cmd, &ip.cmds, &ip.consts, ip.sess.lib.Paths(), true, false)
	}()
	if compileErr != nil {
		ip.cmds = savedCmds
		return compileErr
	}

	ip.sess.lib.SetArtifact(code.Wrap(ip.cmds, ip.consts.Copy(), ip.info))
	ip.vm.SetTmpMax(ip.info.TmpMax)
	if err := ip.vm.EvalArtifact(ncmdOld, ip.sess.lib); err != nil {
		return err
	}
	return nil
}
