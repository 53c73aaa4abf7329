// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// runCommand executes the weekly pipeline for every discovered user
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Build and publish this week's discovery playlists",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the run summary as JSON",
			},
			&cli.BoolFlag{
				Name:  "markdown",
				Usage: "Output the run summary as Markdown",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log per-stage progress",
			},
		},
		Action: r.Run,
	}
}

// usersCommand lists users discovered from the environment namespace
func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "users",
		Usage:  "List users with complete credential bundles",
		Action: r.Users,
	}
}

// authCommand provisions a refresh token for one user
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize a user and print their credential environment lines",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "username",
				Aliases:  []string{"u"},
				Usage:    "Username to provision, becomes part of the env key",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "client-id",
				Usage:    "Spotify application client ID",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "client-secret",
				Usage:    "Spotify application client secret",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Local port for the OAuth callback",
				Value: 3000,
			},
		},
		Action: r.Auth,
	}
}

// historyCommand reads past runs back out of the journal
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show journaled results from past runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Show entries for one user",
			},
			&cli.StringFlag{
				Name:  "run",
				Usage: "Show every entry from one run ID",
			},
			&cli.StringFlag{
				Name:  "week",
				Usage: "With --user, show the latest entry for a target week (e.g. 2026-W36)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum entries to show with --user",
				Value: 20,
			},
		},
		Action: r.History,
	}
}

// setupCommand initializes the config file and the run journal database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and initialize the run journal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}
