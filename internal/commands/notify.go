package commands

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"investtrack/internal/notify"
	"investtrack/internal/server"
	"os"

	"github.com/google/subcommands"
)

type notifyCmd struct {
	window string
}

func (*notifyCmd) Name() string     { return "notify" }
func (*notifyCmd) Synopsis() string { return "send expiration digests once" }
func (*notifyCmd) Usage() string {
	return `investtrack notify [-window 30d|month]

  Runs the same dispatch as the cron endpoints and prints the report.
`
}

func (c *notifyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.window, "window", string(notify.Window30Days), "30d for investments expiring in 30 days, month for the current month")
}

func (c *notifyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	w, err := notify.ParseWindow(c.window)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	e, err := setup(true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer e.close()

	services, err := server.Build(ctx, e.cfg, e.db.DB, e.logger)
	if err != nil {
		e.logger.Error("error building services", "error", err)
		return subcommands.ExitFailure
	}
	defer services.Close()

	report, err := services.Dispatcher.Run(ctx, w)
	if err != nil {
		e.logger.Error("digest dispatch failed", "error", err)
		return subcommands.ExitFailure
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(report)
	if !report.OK() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
