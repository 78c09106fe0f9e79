// Package cmd implements the CLI application to maintain and query the
// series store.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/seriesdb"
	"github.com/etnz/seriesdb/feed"
	"github.com/etnz/seriesdb/recorder"
	"github.com/google/subcommands"
)

// Commands is the list of subcommands a main package registers.
var Commands = []subcommands.Command{
	&updateCmd{},
	&seriesCmd{},
	&convertCmd{},
	&returnCmd{},
	&riskCmd{},
	&latestCmd{},
	&reportCmd{},
	&scheduleCmd{},
	&cleanupCmd{},
}

// As a CLI application it has a very short lived lifecycle, so it is ok to
// use global variables for the shared flags.

var configFile = flag.String("config", "seriesdb.yaml", "Path to the instruments configuration file")
var feedURL = flag.String("feed-url", "https://query1.finance.yahoo.com", "Base URL of the quote feed")
var recordsFile = flag.String("records", "", "Path to the SQLite run records database (disabled when empty)")
var noCache = flag.Bool("no-cache", false, "Disable the daily on-disk response cache")
var logLevel = flag.String("log-level", "info", "Log level: debug, info, warn, error")

// loadConfig reads and validates the app configuration file.
func loadConfig() (*seriesdb.Config, error) {
	return seriesdb.LoadConfig(*configFile)
}

// newClient returns the quote feed client honoring the shared flags.
func newClient() *feed.Client {
	opts := []feed.ClientOption{feed.WithLogger(seriesdb.NewLogger(*logLevel))}
	if *noCache {
		opts = append(opts, feed.WithoutCache())
	}
	return feed.NewClient(*feedURL, opts...)
}

// newService is the central constructor every subcommand goes through.
func newService() (*seriesdb.Service, func(), error) {
	return newServiceWith()
}

func newServiceWith(extra ...seriesdb.Option) (*seriesdb.Service, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	opts := []seriesdb.Option{seriesdb.WithLogger(seriesdb.NewLogger(*logLevel))}
	cleanup := func() {}
	if *recordsFile != "" {
		rec, err := recorder.NewSQLite(*recordsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open records %q: %w", *recordsFile, err)
		}
		opts = append(opts, seriesdb.WithRecorder(rec))
		cleanup = func() { rec.Close() }
	}
	opts = append(opts, extra...)

	return seriesdb.NewService(cfg, newClient(), opts...), cleanup, nil
}

// printMarkdown renders markdown for the terminal, falling back to the raw
// text when the terminal cannot be styled.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// fail prints the error and maps it to an exit status.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}
