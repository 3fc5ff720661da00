package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Matt-Gary/Accounting-app/internal/domain"

	"github.com/google/subcommands"
)

// seedFile is the reference data loaded into the embedded store.
type seedFile struct {
	PaymentMethods []domain.PaymentMethod `json:"payment_methods"`
	Profiles       []domain.Profile       `json:"profiles"`
	Categories     []domain.Category      `json:"categories"`
}

func decodeSeed(r io.Reader) (*seedFile, error) {
	var s seedFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for _, pm := range s.PaymentMethods {
		if pm.ID == "" {
			return nil, fmt.Errorf("payment method %q has no id", pm.Name)
		}
		if pm.ClosingDay < 0 || pm.ClosingDay > 31 {
			return nil, fmt.Errorf("payment method %s: closing_day %d out of range", pm.ID, pm.ClosingDay)
		}
	}
	for _, p := range s.Profiles {
		if p.ID == "" {
			return nil, fmt.Errorf("profile %q has no id", p.Name)
		}
	}
	for _, c := range s.Categories {
		if c.Key == "" {
			return nil, fmt.Errorf("category %q has no key", c.Label)
		}
	}
	return &s, nil
}

type seedCmd struct {
	file string
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "load reference data into the SQLite store" }
func (*seedCmd) Usage() string {
	return `accountingctl seed -file seed.json

  Upserts payment methods, profiles and categories from a JSON file:
  {"payment_methods":[{"id":"visa","name":"Visa","is_credit_card":true,"closing_day":10}],
   "profiles":[{"id":"u1","name":"Ana"}],
   "categories":[{"key":"food","label":"Food"}]}
  Only available with STORE_BACKEND=sqlite.
`
}

func (c *seedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "seed.json", "Seed file")
}

func (c *seedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fh, err := os.Open(c.file)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}
	defer fh.Close()

	seed, err := decodeSeed(fh)
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

	if a.SQLite == nil {
		fail("seed needs STORE_BACKEND=sqlite; manage Supabase reference data in Supabase")
		return subcommands.ExitUsageError
	}

	for _, pm := range seed.PaymentMethods {
		if err := a.SQLite.SavePaymentMethod(ctx, pm); err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
	}
	for _, p := range seed.Profiles {
		if err := a.SQLite.SaveProfile(ctx, p); err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
	}
	for _, cat := range seed.Categories {
		if err := a.SQLite.SaveCategory(ctx, cat); err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
	}
	fmt.Printf("seeded %d payment methods, %d profiles, %d categories\n",
		len(seed.PaymentMethods), len(seed.Profiles), len(seed.Categories))
	return subcommands.ExitSuccess
}
