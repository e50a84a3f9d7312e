package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/flowdeck/flowdeck/pkg/identity"
)

func newListUsersCommand() *Command {
	return &Command{
		Name:        "list-users",
		Description: "List users",
		Flags:       flag.NewFlagSet("list-users", flag.ExitOnError),
		Run:         runListUsers,
	}
}

func runListUsers(args []string) error {
	flags := flag.NewFlagSet("list-users", flag.ExitOnError)
	dbURL := flags.String("db-url", "", "PostgreSQL connection URL")
	limit := flags.Int("limit", 100, "Maximum users to list")
	if err := flags.Parse(args); err != nil {
		return err
	}

	db, err := openDB(*dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	store := identity.NewPostgresStore(db)
	users, err := store.ListUsers(context.Background(), *limit, 0)
	if err != nil {
		return err
	}

	fmt.Printf("%-38s %-30s %-20s %-6s %s\n", "ID", "EMAIL", "USERNAME", "ADMIN", "STATUS")
	for _, u := range users {
		fmt.Printf("%-38s %-30s %-20s %-6t %s\n", u.ID, u.Email, u.Username, u.IsSystemAdmin, u.Status)
	}
	return nil
}

func newGrantAdminCommand() *Command {
	return &Command{
		Name:        "grant-admin",
		Description: "Grant the system admin flag to a user",
		Flags:       flag.NewFlagSet("grant-admin", flag.ExitOnError),
		Run: func(args []string) error {
			return runSetAdmin(args, true)
		},
	}
}

func newRevokeAdminCommand() *Command {
	return &Command{
		Name:        "revoke-admin",
		Description: "Revoke the system admin flag from a user",
		Flags:       flag.NewFlagSet("revoke-admin", flag.ExitOnError),
		Run: func(args []string) error {
			return runSetAdmin(args, false)
		},
	}
}

func runSetAdmin(args []string, grant bool) error {
	name := "grant-admin"
	if !grant {
		name = "revoke-admin"
	}
	flags := flag.NewFlagSet(name, flag.ExitOnError)
	dbURL := flags.String("db-url", "", "PostgreSQL connection URL")
	email := flags.String("email", "", "Email of the user")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("-email is required")
	}

	log := newLogger()
	db, err := openDB(*dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	store := identity.NewPostgresStore(db)

	user, err := store.GetByEmail(ctx, *email)
	if err != nil {
		return err
	}
	if err := store.SetSystemAdmin(ctx, user.ID, grant); err != nil {
		return err
	}

	log.WithField("email", *email).WithField("grant", grant).Info("system admin flag updated")
	return nil
}
