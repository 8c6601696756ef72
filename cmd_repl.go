package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"
	"golang.org/x/term"

	"github.com/zhuanglinsheng/tapas/lexer"
	"github.com/zhuanglinsheng/tapas/session"
)

// replCmd is the interactive shell: units compile incrementally into one
// growing artifact and execute as soon as their brackets balance.
type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive Tapas session" }
func (*replCmd) Usage() string {
	return `tapas repl
  Start an interactive session. Type exit() to leave and binary() to
  print the bytecode compiled so far.
`
}

func (r *replCmd) SetFlags(f *flag.FlagSet) {}

func (r *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println("Tapas Script")
		fmt.Println("Type `exit()` for leaving,")
		fmt.Println("     `binary()` for printing out binary codes, and")
		fmt.Println("     `sys::__ls__()` for displaying all preloads.")
		fmt.Println()
	}

	rl, err := readline.New(">> ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	sess := session.New(true)
	interp := session.NewInterp(sess)

	var ctr lexer.Counter
	var buffer strings.Builder

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			ctr.Restore()
			buffer.Reset()
			rl.SetPrompt(">> ")
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}

		buffer.WriteString(line)
		buffer.WriteString("\n")
		ctr.UpdateString(line)
		if !ctr.Independent() {
			rl.SetPrompt(".. ")
			continue
		}
		rl.SetPrompt(">> ")
		ctr.Restore()

		blk := lexer.Trim(buffer.String())
		buffer.Reset()
		if blk == "" {
			continue
		}
		if blk == "exit()" {
			break
		}
		if blk == "binary()" {
			fmt.Print(interp.Disassemble())
			continue
		}
		if err := interp.ExecUnit(blk); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	return subcommands.ExitSuccess
}
