package cli

import (
	"context"
	"flag"

	"github.com/flowdeck/flowdeck/pkg/storage/postgres"
)

func newMigrateCommand() *Command {
	return &Command{
		Name:        "migrate",
		Description: "Apply pending schema migrations",
		Flags:       flag.NewFlagSet("migrate", flag.ExitOnError),
		Run:         runMigrate,
	}
}

func runMigrate(args []string) error {
	flags := flag.NewFlagSet("migrate", flag.ExitOnError)
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

	if err := postgres.RunMigrations(context.Background(), db); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}
