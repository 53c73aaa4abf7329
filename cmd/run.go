package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/henry-johnson/weekly-discovery/internal/credentials"
	"github.com/henry-johnson/weekly-discovery/internal/formatter"
	"github.com/henry-johnson/weekly-discovery/internal/models"
	"github.com/henry-johnson/weekly-discovery/internal/repositories"
	"github.com/henry-johnson/weekly-discovery/internal/shared"
	"github.com/henry-johnson/weekly-discovery/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Run executes the weekly discovery pipeline for every user with a complete
// credential bundle.
//
// Per-user failures are reported in the summary and never fail the command:
// a non-nil return is reserved for configuration problems, so cron treats a
// partially failed week as delivered.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd.String("config")); err != nil {
		return err
	}

	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if r.provider == nil {
		return fmt.Errorf("%w: OPENAI_API_KEY is not set", shared.ErrConfiguration)
	}

	bundles, warnings := credentials.Discover(r.env)
	for _, warning := range warnings {
		r.logger.Warn(warning)
	}
	if len(bundles) == 0 {
		r.logger.Info("no users with complete credentials, nothing to do")
	}

	engine := tasks.NewEngine(r.provider, r.newSession, r.config, r.logger)

	progress := make(chan tasks.ProgressUpdate, 256)
	drained := make(chan struct{})
	verbose := cmd.Bool("verbose")
	go func() {
		defer close(drained)
		for update := range progress {
			if verbose {
				r.logger.Info(update.Message, "user", update.Username, "phase", update.Phase)
			}
		}
	}()

	summary := engine.RunAll(ctx, progress, bundles, warnings)
	close(progress)
	<-drained

	r.journal(summary)

	switch {
	case cmd.Bool("json"):
		data, err := formatter.SummaryToJSON(summary)
		if err != nil {
			return err
		}
		if err := r.writeBytes(data); err != nil {
			return err
		}
	case cmd.Bool("markdown"):
		if err := r.writeBytes(formatter.SummaryToMarkdown(summary)); err != nil {
			return err
		}
	default:
		if err := r.writePlain("%s", formatter.SummaryToText(summary)); err != nil {
			return err
		}
	}

	return nil
}

// journal persists the summary when a journal database is configured.
// Journal trouble is worth a warning, never a failed run.
func (r *Runner) journal(summary *models.RunSummary) {
	path := r.config.Journal.Path
	if path == "" {
		return
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		r.logger.Warn("run journal unavailable", "path", path, "error", err)
		return
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Journal.MaxOpenConns, r.config.Journal.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		r.logger.Warn("run journal migrations failed", "path", path, "error", err)
		return
	}

	if err := repositories.NewRunRepository(db).Record(summary); err != nil {
		r.logger.Warn("failed to journal run", "error", err)
	}
}
