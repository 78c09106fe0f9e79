package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/seriesdb"
	"github.com/google/subcommands"
)

type updateCmd struct {
	mode    string
	workers int
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "fetch fresh observations and merge them into the store" }
func (*updateCmd) Usage() string {
	return `sdb update [-mode <mode>] [-workers n] [key...]

  Updates the stored series for the given keys, or for every configured
  key when none is given. Modes: full, backfill, append, incremental:<n>.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.mode, "mode", "append", "update mode: full, backfill, append, incremental:<n>")
	f.IntVar(&c.workers, "workers", 4, "number of keys updated in parallel")
}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	mode, err := seriesdb.ParseUpdateMode(c.mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	svc, done, err := newServiceWith(seriesdb.WithWorkers(c.workers))
	if err != nil {
		return fail(err)
	}
	defer done()

	var keys []string
	if f.NArg() > 0 {
		keys = f.Args()
	}

	results, err := svc.UpdateAll(ctx, keys, mode)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "%-12s FAILED: %v\n", r.Key, r.Err)
			continue
		}
		fmt.Printf("%-12s +%d rows\n", r.Key, r.RowsAdded)
	}
	if err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
