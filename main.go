// Tapas is a small dynamically-typed scripting language with an
// ahead-of-time compiler, a persistent bytecode format and a stack-based
// virtual machine. The tapas command drives the full toolchain.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	log "github.com/sirupsen/logrus"
)

var verbose = flag.Bool("verbose", false, "log toolchain diagnostics")

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&compileCmd{}, "")
	subcommands.Register(&evalCmd{}, "")
	subcommands.Register(&showCmd{}, "")
	subcommands.Register(&replCmd{}, "")

	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
