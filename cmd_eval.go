package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/zhuanglinsheng/tapas/session"
)

// evalCmd executes a compiled artifact.
type evalCmd struct{}

func (*evalCmd) Name() string     { return "eval" }
func (*evalCmd) Synopsis() string { return "Execute a compiled .tapc artifact" }
func (*evalCmd) Usage() string {
	return `tapas eval <file>
  Load <file>.tapc and execute it.
`
}

func (e *evalCmd) SetFlags(f *flag.FlagSet) {}

func (e *evalCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "file not provided\n")
		return subcommands.ExitUsageError
	}
	sess := session.New(false)
	if err := sess.EvalArtifactFile(args[0]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
