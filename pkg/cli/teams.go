package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/flowdeck/flowdeck/pkg/tenant"

	groupspkg "github.com/flowdeck/flowdeck/pkg/groups"
)

func newCreateTeamCommand() *Command {
	return &Command{
		Name:        "create-team",
		Description: "Create a team tenant",
		Flags:       flag.NewFlagSet("create-team", flag.ExitOnError),
		Run:         runCreateTeam,
	}
}

func runCreateTeam(args []string) error {
	flags := flag.NewFlagSet("create-team", flag.ExitOnError)
	dbURL := flags.String("db-url", "", "PostgreSQL connection URL")
	id := flags.String("id", "", "Team tenant id (derived from -domain when empty)")
	domain := flags.String("domain", "", "Email domain to derive the id from")
	name := flags.String("name", "", "Display name")
	if err := flags.Parse(args); err != nil {
		return err
	}

	teamID := strings.ToLower(strings.TrimSpace(*id))
	if teamID == "" {
		if *domain == "" {
			return fmt.Errorf("-id or -domain is required")
		}
		teamID = tenant.TeamID(*domain)
	}
	if tenant.IsPersonalID(teamID) {
		return fmt.Errorf("id %q is reserved for personal tenants", teamID)
	}

	log := newLogger()
	db, err := openDB(*dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	displayName := *name
	if displayName == "" {
		displayName = teamID
	}
	store := groupspkg.NewPostgresStore(db)
	g := &tenant.Group{
		ID:   teamID,
		Name: displayName,
		Kind: tenant.KindTeam,
	}
	if err := store.Create(context.Background(), g); err != nil {
		return err
	}

	log.WithField("group_id", g.ID).Info("team tenant created")
	return nil
}
