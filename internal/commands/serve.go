package commands

import (
	"context"
	"flag"
	"fmt"
	"investtrack/internal/notify"
	"investtrack/internal/server"
	"os"
	"time"

	"github.com/google/subcommands"
)

type serveCmd struct {
	migrate  bool
	schedule bool
	interval time.Duration
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP API" }
func (*serveCmd) Usage() string {
	return `investtrack serve [-migrate] [-schedule [-interval 1h]]

  Serves the dashboard API and the cron notification endpoints on $PORT.
  With -schedule the digests are also sent from the server process.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.migrate, "migrate", true, "migrate the schema before serving")
	f.BoolVar(&c.schedule, "schedule", false, "send the expiration digests without an external cron")
	f.DurationVar(&c.interval, "interval", time.Hour, "how often the scheduler checks for due digests")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.schedule && c.interval <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -interval must be positive")
		return subcommands.ExitUsageError
	}
	e, err := setup(true, "AUTH_SECRET")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer e.close()

	if c.migrate {
		if err := e.db.Migrate(); err != nil {
			e.logger.Error("error migrating database", "error", err)
			return subcommands.ExitFailure
		}
	}

	services, err := server.Build(ctx, e.cfg, e.db.DB, e.logger)
	if err != nil {
		e.logger.Error("error building services", "error", err)
		return subcommands.ExitFailure
	}
	defer services.Close()

	if c.schedule {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		notify.NewScheduler(services.Dispatcher, c.interval, e.logger).Start(ctx)
	}

	r := server.SetupRouter(services)
	e.logger.Info("listening", "port", e.cfg.Port)
	if err := r.Run(":" + e.cfg.Port); err != nil {
		e.logger.Error("error starting server", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
