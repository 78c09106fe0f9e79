package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/etnz/seriesdb/date"
	"github.com/google/subcommands"
)

type convertCmd struct {
	key    string
	target string
	window string
}

func (*convertCmd) Name() string     { return "convert" }
func (*convertCmd) Synopsis() string { return "display close prices expressed in another currency" }
func (*convertCmd) Usage() string {
	return `sdb convert -k <key> -to <currency> [-w <window>]

  Displays the close prices of a series converted into the target
  currency, joined by calendar date to the conversion series.
`
}

func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.key, "k", "", "series key to convert")
	f.StringVar(&c.target, "to", "USD", "target currency code")
	f.StringVar(&c.window, "w", "1y", "window to convert")
}

func (c *convertCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.key == "" {
		fmt.Fprintln(os.Stderr, "-k is required")
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

	converted, err := svc.Convert(ctx, c.key, c.target, window)
	if err != nil {
		return fail(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "date\tclose (%s)\n", c.target)
	for on, v := range converted.Values() {
		fmt.Fprintf(w, "%s\t%.4f\n", on, v)
	}
	w.Flush()
	return subcommands.ExitSuccess
}
