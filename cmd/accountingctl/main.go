// Command accountingctl operates the ledger from the command line: manual
// materialization, portfolio valuation, closing-day overrides and seeding
// the embedded store.
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
	commander.Register(commander.CommandsCommand(), "")
	register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// register adds the subcommands to c.
func register(c *subcommands.Commander) {
	c.Register(&materializeCmd{}, "ledger")
	c.Register(&closingDayCmd{}, "ledger")
	c.Register(&portfolioCmd{}, "investments")
	c.Register(&seedCmd{}, "store")
}
