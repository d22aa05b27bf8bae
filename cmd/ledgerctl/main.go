package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&consolidateCmd{}, "consolidation")
	commander.Register(&runCmd{}, "consolidation")
	commander.Register(&archiveCmd{}, "consolidation")
	commander.Register(&runsCmd{}, "history")
	commander.Register(&insightsCmd{}, "history")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
