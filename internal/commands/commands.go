package commands

import (
	"fmt"
	"investtrack/internal/config"
	"investtrack/internal/database"
	"io"
	"log/slog"
	"os"

	"github.com/google/subcommands"
)

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&serveCmd{}, "server")
	c.Register(&migrateCmd{}, "server")
	c.Register(&notifyCmd{}, "notifications")
	c.Register(&tokenCmd{}, "development")
}

// env is what every command starts from.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *database.Manager
	closer []func() error
}

// setup loads the configuration, opens the log file and, when withDB is
// set, connects to the database.
func setup(withDB bool, required ...string) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if withDB {
		required = append(required, "DATABASE_URL")
	}
	if err := cfg.Require(required...); err != nil {
		return nil, err
	}

	e := &env{cfg: cfg}
	var out io.Writer = os.Stderr
	if cfg.LogFile != "" && cfg.LogFile != "-" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		e.closer = append(e.closer, logFile.Close)
		out = io.MultiWriter(os.Stderr, logFile)
	}
	e.logger = slog.New(slog.NewTextHandler(out, nil))

	if withDB {
		e.db = database.NewDatabaseManager()
		if err := e.db.Connect(cfg.Database); err != nil {
			e.close()
			return nil, fmt.Errorf("error connecting to database: %w", err)
		}
		e.closer = append(e.closer, e.db.Close)
	}
	return e, nil
}

func (e *env) close() {
	for i := len(e.closer) - 1; i >= 0; i-- {
		if err := e.closer[i](); err != nil && e.logger != nil {
			e.logger.Error("error closing resource", "error", err)
		}
	}
}
