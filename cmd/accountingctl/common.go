package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Matt-Gary/Accounting-app/internal/app"
	"github.com/Matt-Gary/Accounting-app/internal/billing"
	"github.com/Matt-Gary/Accounting-app/internal/config"
	"github.com/Matt-Gary/Accounting-app/internal/infra/observability"
)

var envFile = flag.String("env", ".env", "Path to a dotenv file; missing files are ignored")

// open loads configuration and wires the services. The caller closes the app.
func open(ctx context.Context) (*app.App, error) {
	_ = config.LoadDotEnv(*envFile)
	cfg := config.Load()
	logger := observability.NewLogger(cfg.LogLevel, "accountingctl")

	a, err := app.New(ctx, cfg, observability.NewMetrics(), logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// periodFlags adds -month and -year, defaulting to the current month.
type periodFlags struct {
	month int
	year  int
}

func (p *periodFlags) set(f *flag.FlagSet) {
	now := time.Now().UTC()
	f.IntVar(&p.month, "month", int(now.Month()), "Month (1-12)")
	f.IntVar(&p.year, "year", now.Year(), "Year")
}

func (p *periodFlags) period() (billing.Period, error) {
	return billing.NewPeriod(p.month, p.year)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
