package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/zhuanglinsheng/tapas/session"
)

// showCmd disassembles a compiled artifact.
type showCmd struct{}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "Disassemble a compiled .tapc artifact" }
func (*showCmd) Usage() string {
	return `tapas show <file>
  Load <file>.tapc and print its instructions, header and literal pools.
`
}

func (s *showCmd) SetFlags(f *flag.FlagSet) {}

func (s *showCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "file not provided\n")
		return subcommands.ExitUsageError
	}
	sess := session.New(false)
	text, err := sess.ShowArtifact(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Print(text)
	return subcommands.ExitSuccess
}
