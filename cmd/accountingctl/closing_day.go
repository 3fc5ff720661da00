package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type closingDayCmd struct {
	periodFlags
	day    int
	remove bool
	list   bool
}

func (*closingDayCmd) Name() string     { return "closing-day" }
func (*closingDayCmd) Synopsis() string { return "show, set or remove a closing-day override" }
func (*closingDayCmd) Usage() string {
	return `accountingctl closing-day [-month <m>] [-year <y>] [-set <day> | -delete | -list]

  Overrides replace every credit card's closing day for one calendar month.
  Without -set or -delete the current override of the month is shown.
`
}

func (c *closingDayCmd) SetFlags(f *flag.FlagSet) {
	c.periodFlags.set(f)
	f.IntVar(&c.day, "set", 0, "Closing day (1-31) to store for the month")
	f.BoolVar(&c.remove, "delete", false, "Remove the month's override")
	f.BoolVar(&c.list, "list", false, "List every override")
}

func (c *closingDayCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.day != 0 && c.remove {
		fail("-set and -delete cannot be used together")
		return subcommands.ExitUsageError
	}
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

	switch {
	case c.list:
		overrides, err := a.Ledger.ListClosingDays(ctx)
		if err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
		for _, o := range overrides {
			fmt.Printf("%04d-%02d\t%d\n", o.Year, o.Month, o.ClosingDay)
		}
	case c.remove:
		if err := a.Ledger.DeleteClosingDay(ctx, p); err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("override for %s removed\n", p)
	case c.day != 0:
		o, err := a.Ledger.SetClosingDay(ctx, p, c.day)
		if err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("%s closes on day %d\n", p, o.ClosingDay)
	default:
		o, err := a.Ledger.GetClosingDay(ctx, p)
		if err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("%s closes on day %d\n", p, o.ClosingDay)
	}
	return subcommands.ExitSuccess
}
