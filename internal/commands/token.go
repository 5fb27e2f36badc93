package commands

import (
	"context"
	"flag"
	"fmt"
	"investtrack/internal/auth"
	"investtrack/internal/utils"
	"os"
	"time"

	"github.com/google/subcommands"
)

type tokenCmd struct {
	id, email, name string
	ttl             time.Duration
}

func (*tokenCmd) Name() string     { return "token" }
func (*tokenCmd) Synopsis() string { return "sign a session token for local testing" }
func (*tokenCmd) Usage() string {
	return `investtrack token -email <email> [-id <subject>] [-name <name>] [-ttl 24h]

  Prints a bearer token signed with AUTH_SECRET, as the identity front end would.
`
}

func (c *tokenCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "subject; defaults to the email")
	f.StringVar(&c.email, "email", "", "user email")
	f.StringVar(&c.name, "name", "", "display name")
	f.DurationVar(&c.ttl, "ttl", 24*time.Hour, "token lifetime")
}

func (c *tokenCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.email == "" {
		fmt.Fprintln(os.Stderr, "Error: -email is required")
		return subcommands.ExitUsageError
	}
	if c.id == "" {
		c.id = c.email
	}
	e, err := setup(false, "AUTH_SECRET")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer e.close()

	token, err := auth.CreateToken(utils.User{ID: c.id, Email: c.email, Name: c.name}, []byte(e.cfg.AuthSecret), c.ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(token)
	return subcommands.ExitSuccess
}
