package main

import (
	"context"
	"fmt"
	"os"

	"github.com/henry-johnson/weekly-discovery/internal/formatter"
	"github.com/henry-johnson/weekly-discovery/internal/models"
	"github.com/henry-johnson/weekly-discovery/internal/repositories"
	"github.com/henry-johnson/weekly-discovery/internal/shared"
	"github.com/urfave/cli/v3"
)

// History reads journaled results back out of the run journal, filtered by
// user, run ID, or target week.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd.String("config")); err != nil {
		return err
	}

	path := r.config.Journal.Path
	if path == "" {
		return fmt.Errorf("%w: journal path is not configured", shared.ErrConfiguration)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: run journal not found at %s, run setup first", shared.ErrConfiguration, path)
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to open run journal: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Journal.MaxOpenConns, r.config.Journal.MaxIdleConns)
	repo := repositories.NewRunRepository(db)

	username := cmd.String("user")
	switch {
	case cmd.String("run") != "":
		records, err := repo.ListByRun(cmd.String("run"))
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}
		return r.writePlain("%s", formatter.RecordsToText(records))

	case username != "" && cmd.String("week") != "":
		record, err := repo.LastForWeek(username, cmd.String("week"))
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}
		var records []*models.RunRecord
		if record != nil {
			records = append(records, record)
		}
		return r.writePlain("%s", formatter.RecordsToText(records))

	case username != "":
		records, err := repo.ListByUser(username, cmd.Int("limit"))
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}
		return r.writePlain("%s", formatter.RecordsToText(records))

	default:
		return fmt.Errorf("%w: pass --user or --run to select journal entries", shared.ErrConfiguration)
	}
}
