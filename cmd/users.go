package main

import (
	"context"

	"github.com/henry-johnson/weekly-discovery/internal/credentials"
	"github.com/henry-johnson/weekly-discovery/internal/formatter"
	"github.com/urfave/cli/v3"
)

// Users lists the users whose credential bundles were discovered from the
// environment namespace. Incomplete bundles show up as warnings, the same
// ones a run would log. Secret values are never printed.
func (r *Runner) Users(ctx context.Context, cmd *cli.Command) error {
	bundles, warnings := credentials.Discover(r.env)

	usernames := make([]string, 0, len(bundles))
	for _, bundle := range bundles {
		usernames = append(usernames, bundle.Username)
	}

	return r.writePlain("%s", formatter.UserListToText(usernames, warnings))
}
