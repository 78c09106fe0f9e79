package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/seriesdb"
	"github.com/etnz/seriesdb/date"
	"github.com/google/subcommands"
)

type riskCmd struct {
	key    string
	window string
	kind   string
}

func (*riskCmd) Name() string     { return "risk" }
func (*riskCmd) Synopsis() string { return "compute an annualized risk-adjusted return ratio" }
func (*riskCmd) Usage() string {
	return `sdb risk -k <key> [-w <window>] [-kind sharpe|sortino]

  Computes the annualized Sharpe or Sortino ratio of the close prices
  over the window. The annualization factor follows the observation
  frequency inferred from the data.
`
}

func (c *riskCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.key, "k", "", "series key")
	f.StringVar(&c.window, "w", "1y", "window: ytd, max, or <n>[dwmy]")
	f.StringVar(&c.kind, "kind", "sharpe", "ratio kind: sharpe or sortino")
}

func (c *riskCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.key == "" {
		fmt.Fprintln(os.Stderr, "-k is required")
		return subcommands.ExitUsageError
	}
	kind, err := seriesdb.ParseRiskKind(c.kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	window, err := date.ParseWindow(c.window, date.Today())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	svc, done, err := newService()
	if err != nil {
		return fail(err)
	}
	defer done()

	ratio, err := svc.ComputeRiskRatio(c.key, window, kind)
	if errors.Is(err, seriesdb.ErrUnavailable) {
		fmt.Printf("%s %s %s: unavailable (%v)\n", c.key, c.kind, c.window, err)
		return subcommands.ExitSuccess
	}
	if err != nil {
		return fail(err)
	}
	fmt.Printf("%s %s %s: %.2f\n", c.key, c.kind, c.window, ratio)
	return subcommands.ExitSuccess
}
