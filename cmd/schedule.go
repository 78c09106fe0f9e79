package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/etnz/seriesdb"
	"github.com/google/subcommands"
	"github.com/robfig/cron/v3"
)

type scheduleCmd struct {
	spec string
	mode string
	now  bool
}

func (*scheduleCmd) Name() string     { return "schedule" }
func (*scheduleCmd) Synopsis() string { return "run updates on a cron schedule until interrupted" }
func (*scheduleCmd) Usage() string {
	return `sdb schedule [-cron <spec>] [-mode <mode>] [-now]

  Runs an update of every configured key on a cron schedule. The default
  runs each weekday evening. Stops on SIGINT or SIGTERM.
`
}

func (c *scheduleCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.spec, "cron", "0 19 * * 1-5", "cron spec for the update runs")
	f.StringVar(&c.mode, "mode", "append", "update mode for the scheduled runs")
	f.BoolVar(&c.now, "now", false, "also run an update immediately on start")
}

func (c *scheduleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	mode, err := seriesdb.ParseUpdateMode(c.mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	svc, done, err := newService()
	if err != nil {
		return fail(err)
	}
	defer done()

	run := func() {
		results, err := svc.UpdateAll(ctx, nil, mode)
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(os.Stderr, "%-12s FAILED: %v\n", r.Key, r.Err)
			}
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "update run finished with errors\n")
			return
		}
		fmt.Printf("update run finished, %d keys\n", len(results))
	}

	sched := cron.New()
	if _, err := sched.AddFunc(c.spec, run); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid cron spec %q: %v\n", c.spec, err)
		return subcommands.ExitUsageError
	}

	if c.now {
		run()
	}
	sched.Start()
	defer sched.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}
	fmt.Println("scheduler stopped")
	return subcommands.ExitSuccess
}
