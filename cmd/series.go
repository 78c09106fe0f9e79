package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/etnz/seriesdb/date"
	"github.com/google/subcommands"
)

type seriesCmd struct {
	key    string
	window string
}

func (*seriesCmd) Name() string     { return "series" }
func (*seriesCmd) Synopsis() string { return "display the stored rows of one series" }
func (*seriesCmd) Usage() string {
	return `sdb series -k <key> [-w <window>]

  Displays the stored series for a key, most recent rows last. The window
  accepts ytd, max, or <n>[dwmy] (e.g. 30d, 6m, 1y).
`
}

func (c *seriesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.key, "k", "", "series key to display")
	f.StringVar(&c.window, "w", "max", "window of rows to display")
}

func (c *seriesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	series, err := svc.GetSeries(c.key)
	if err != nil {
		return fail(err)
	}
	series = series.Within(window)
	if series.Len() == 0 {
		fmt.Printf("no rows for %q in %s\n", c.key, window)
		return subcommands.ExitSuccess
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "date\t"+strings.Join(series.Schema.Fields, "\t"))
	for row := range series.Rows() {
		cells := make([]string, 0, 1+len(series.Schema.Fields))
		cells = append(cells, row.On.String())
		for _, name := range series.Schema.Fields {
			cells = append(cells, row.Get(name).String())
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
	return subcommands.ExitSuccess
}
