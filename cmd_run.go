package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/zhuanglinsheng/tapas/session"
)

// runCmd compiles and executes a source file without writing the
// artifact.
type runCmd struct {
	echo bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Compile and execute a Tapas source file" }
func (*runCmd) Usage() string {
	return `tapas run <file.tap>
  Compile and execute Tapas code.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.echo, "echo", false, "echo the value of every statement")
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "file not provided\n")
		return subcommands.ExitUsageError
	}
	sess := session.New(r.echo)
	if err := sess.ExecuteFile(args[0]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
