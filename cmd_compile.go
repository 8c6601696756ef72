package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/zhuanglinsheng/tapas/session"
)

// compileCmd compiles a source file to its .tapc artifact.
type compileCmd struct{}

func (*compileCmd) Name() string     { return "compile" }
func (*compileCmd) Synopsis() string { return "Compile a Tapas source file to a .tapc artifact" }
func (*compileCmd) Usage() string {
	return `tapas compile <file.tap>
  Compile Tapas code and write <file>.tapc next to the source.
`
}

func (c *compileCmd) SetFlags(f *flag.FlagSet) {}

func (c *compileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "file not provided\n")
		return subcommands.ExitUsageError
	}
	sess := session.New(false)
	if err := sess.CompileFile(args[0]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
