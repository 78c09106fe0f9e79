package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/etnz/seriesdb"
	"github.com/etnz/seriesdb/date"
	"github.com/google/subcommands"
)

type reportCmd struct {
	window string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "display a store-wide report of every configured series" }
func (*reportCmd) Usage() string {
	return `sdb report [-w <window>]

  Displays, for every configured key, the latest stored observation, the
  window return and the annualized Sharpe ratio.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.window, "w", "ytd", "window for returns and ratios")
}

func (c *reportCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	window, err := date.ParseWindow(c.window, date.Today())
	if err != nil {
		return fail(err)
	}

	svc, done, err := newService()
	if err != nil {
		return fail(err)
	}
	defer done()

	cfg, err := loadConfig()
	if err != nil {
		return fail(err)
	}
	keys := cfg.Keys()
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "# Series report (%s)\n\n", c.window)
	b.WriteString("| key | last date | last close | return | sharpe |\n")
	b.WriteString("|---|---|---:|---:|---:|\n")

	for _, key := range keys {
		series, err := svc.GetSeries(key)
		if err != nil || series.Len() == 0 {
			fmt.Fprintf(&b, "| %s | - | - | - | - |\n", key)
			continue
		}
		last, _ := series.Last()
		ret, retErr := svc.ComputeReturn(key, window)
		sharpe, sharpeErr := svc.ComputeRiskRatio(key, window, seriesdb.Sharpe)
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			key, last.On, last.Close,
			cell(100*ret, retErr, "%+.2f%%"),
			cell(sharpe, sharpeErr, "%.2f"),
		)
	}

	printMarkdown(b.String())
	return subcommands.ExitSuccess
}

// cell formats a computed metric, showing unavailable answers as "-".
func cell(v float64, err error, format string) string {
	if errors.Is(err, seriesdb.ErrUnavailable) {
		return "-"
	}
	if err != nil {
		return "error"
	}
	return fmt.Sprintf(format, v)
}
