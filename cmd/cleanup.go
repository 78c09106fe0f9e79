package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type cleanupCmd struct {
	ref string
}

func (*cleanupCmd) Name() string     { return "cleanup" }
func (*cleanupCmd) Synopsis() string { return "drop redundant weekend rows from stored series" }
func (*cleanupCmd) Usage() string {
	return `sdb cleanup [-ref <key>] [key...]

  Drops weekend rows that duplicate the preceding observation, for the
  given keys or every configured key. With -ref and strict mode enabled
  in the configuration, also drops rows whose date is absent from the
  reference series.
`
}

func (c *cleanupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ref, "ref", "", "reference key for the strict date rule")
}

func (c *cleanupCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, done, err := newService()
	if err != nil {
		return fail(err)
	}
	defer done()

	keys := f.Args()
	if len(keys) == 0 {
		cfg, err := loadConfig()
		if err != nil {
			return fail(err)
		}
		keys = cfg.Keys()
	}

	status := subcommands.ExitSuccess
	for _, key := range keys {
		dropped, err := svc.Cleanup(key, c.ref)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%-12s FAILED: %v\n", key, err)
			status = subcommands.ExitFailure
			continue
		}
		if dropped > 0 {
			fmt.Printf("%-12s -%d rows\n", key, dropped)
		}
	}
	return status
}
