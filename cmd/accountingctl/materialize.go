package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Matt-Gary/Accounting-app/internal/domain"

	"github.com/google/subcommands"
)

type materializeCmd struct {
	periodFlags
	user string
}

func (*materializeCmd) Name() string     { return "materialize" }
func (*materializeCmd) Synopsis() string { return "create this month's recurring expenses" }
func (*materializeCmd) Usage() string {
	return `accountingctl materialize [-month <m>] [-year <y>] [-user <id>]

  Creates the missing expenses of every active recurring template for the
  given month. Without -user every profile is processed. Running it twice
  creates nothing the second time.
`
}

func (c *materializeCmd) SetFlags(f *flag.FlagSet) {
	c.periodFlags.set(f)
	f.StringVar(&c.user, "user", "", "Only materialize this user's templates")
}

func (c *materializeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	p, err := c.period()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}

	a, err := open(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	var results []domain.MaterializeResult
	if c.user != "" {
		r, err := a.Materializer.Materialize(ctx, p, c.user)
		if err != nil {
			fail("materialize: %v", err)
			return subcommands.ExitFailure
		}
		results = append(results, *r)
	} else {
		results, err = a.Materializer.MaterializeAll(ctx, p)
		if err != nil {
			fail("materialize: %v", err)
			return subcommands.ExitFailure
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tPERIOD\tCREATED\tDUPLICATES\tBACKDATED")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", r.UserID, r.Period, len(r.Created), r.Duplicates, r.Backdated)
	}
	w.Flush()
	return subcommands.ExitSuccess
}
