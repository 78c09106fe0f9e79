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

type returnCmd struct {
	key    string
	window string
	period string
}

func (*returnCmd) Name() string     { return "return" }
func (*returnCmd) Synopsis() string { return "compute the point-to-point return over a window" }
func (*returnCmd) Usage() string {
	return `sdb return -k <key> [-w <window> | -p <period>]

  Computes the return of the close price between the first and last
  available observations inside the window. -p selects the current
  calendar period (day, week, month, quarter, year) instead of -w.
`
}

func (c *returnCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.key, "k", "", "series key")
	f.StringVar(&c.window, "w", "ytd", "window: ytd, max, or <n>[dwmy]")
	f.StringVar(&c.period, "p", "", "calendar period containing today, overrides -w")
}

func (c *returnCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.key == "" {
		fmt.Fprintln(os.Stderr, "-k is required")
		return subcommands.ExitUsageError
	}
	window, err := date.ParseWindow(c.window, date.Today())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if c.period != "" {
		p, err := date.ParsePeriod(c.period)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		window = date.Today().Range(p)
	}

	svc, done, err := newService()
	if err != nil {
		return fail(err)
	}
	defer done()

	label := c.window
	if c.period != "" {
		label = c.period
	}
	r, err := svc.ComputeReturn(c.key, window)
	if errors.Is(err, seriesdb.ErrUnavailable) {
		fmt.Printf("%s %s: unavailable (%v)\n", c.key, label, err)
		return subcommands.ExitSuccess
	}
	if err != nil {
		return fail(err)
	}
	fmt.Printf("%s %s: %+.2f%%\n", c.key, label, 100*r)
	return subcommands.ExitSuccess
}
