package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type latestCmd struct{}

func (*latestCmd) Name() string     { return "latest" }
func (*latestCmd) Synopsis() string { return "display the most recent close straight from the feed" }
func (*latestCmd) Usage() string {
	return `sdb latest <symbol>...

  Fetches the most recent close quote for each symbol directly from the
  feed, bypassing the store. Useful for intraday checks.
`
}

func (*latestCmd) SetFlags(f *flag.FlagSet) {}

func (c *latestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "at least one symbol is required")
		return subcommands.ExitUsageError
	}

	client := newClient()
	status := subcommands.ExitSuccess
	for _, symbol := range f.Args() {
		v, err := client.Latest(ctx, symbol)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%-12s %v\n", symbol, err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Printf("%-12s %.4f\n", symbol, v)
	}
	return status
}
