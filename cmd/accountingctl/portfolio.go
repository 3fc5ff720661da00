package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/Matt-Gary/Accounting-app/internal/domain"
	"github.com/Matt-Gary/Accounting-app/internal/report"

	"github.com/Rhymond/go-money"
	"github.com/google/subcommands"
)

type portfolioCmd struct {
	user  string
	types string
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "value a user's holdings with live prices" }
func (*portfolioCmd) Usage() string {
	return `accountingctl portfolio -user <id> [-types stock,crypto]

  Prints every holding with its current value, then the distribution by
  type. With exactly one type the distribution lists single holdings.
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "Owner of the holdings (required)")
	f.StringVar(&c.types, "types", "", "Comma separated investment types for the distribution")
}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.user == "" {
		fail("-user is required")
		return subcommands.ExitUsageError
	}

	a, err := open(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	p, err := a.Portfolio.Value(ctx, c.user)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "NAME\tTYPE\tQTY\tPRICE\tVALUE\tUSD\tPNL %\t")
	for _, v := range p.Investments {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			v.Name, v.Type, v.Quantity, v.CurrentPrice,
			report.Format(v.CurrentValueNative, string(v.Currency)),
			report.Format(v.CurrentValueUSD, money.USD),
			v.PnLPct,
		)
	}
	w.Flush()

	fmt.Printf("\nTotal: %s / %s (USD/BRL %s)\n",
		report.Format(p.TotalValueUSD, money.USD),
		report.Format(p.TotalValueBRL, money.BRL),
		p.ExchangeRates.USDBRL,
	)
	if p.Degraded {
		fmt.Println("warning: price oracle unavailable, values use fallback rates and zero prices")
	} else if len(p.ExchangeRates.Fallbacks) > 0 {
		fmt.Printf("warning: fallback rates used for %s\n", strings.Join(p.ExchangeRates.Fallbacks, ", "))
	}

	var types []domain.InvestmentType
	for _, t := range strings.Split(c.types, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, domain.InvestmentType(strings.ToLower(t)))
		}
	}
	d, err := a.Portfolio.Distribution(ctx, c.user, types)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "LABEL\tUSD\t%\t")
	for _, e := range d.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", e.Label, report.Format(e.ValueUSD, money.USD), e.Percentage)
	}
	w.Flush()
	return subcommands.ExitSuccess
}
