package cli

import (
	"context"
	"flag"

	"github.com/flowdeck/flowdeck/pkg/identity"
)

func newBootstrapStatusCommand() *Command {
	return &Command{
		Name:        "bootstrap-status",
		Description: "Show whether first-principal bootstrap has run",
		Flags:       flag.NewFlagSet("bootstrap-status", flag.ExitOnError),
		Run:         runBootstrapStatus,
	}
}

func runBootstrapStatus(args []string) error {
	flags := flag.NewFlagSet("bootstrap-status", flag.ExitOnError)
	dbURL := flags.String("db-url", "", "PostgreSQL connection URL")
	if err := flags.Parse(args); err != nil {
		return err
	}

	log := newLogger()
	db, err := openDB(*dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	store := identity.NewPostgresStore(db)

	count, err := store.CountUsers(ctx)
	if err != nil {
		return err
	}
	hasAdmin, err := store.HasSystemAdmin(ctx)
	if err != nil {
		return err
	}

	log.WithField("users", count).WithField("has_system_admin", hasAdmin).Info("bootstrap status")
	if hasAdmin {
		log.Info("bootstrap complete: a system admin exists")
	} else {
		log.Warn("bootstrap pending: the next user seen will be promoted")
	}
	return nil
}
