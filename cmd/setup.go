package main

import (
	"context"
	"fmt"
	"os"

	"github.com/henry-johnson/weekly-discovery/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the embedded template when missing and
// initializes the run journal database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		if err := r.reloadConfig(configPath); err != nil {
			return err
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.logger.Info("config file created", "path", configPath)
		if err := r.reloadConfig(configPath); err != nil {
			return err
		}
	}

	if r.config.Journal.Path == "" {
		r.logger.Info("journal path is empty, run journal disabled")
		return nil
	}

	r.logger.Info("initializing run journal", "path", r.config.Journal.Path)

	db, err := shared.NewDatabase(r.config.Journal.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Journal.MaxOpenConns, r.config.Journal.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Infof("setup complete for journal: %v", r.config.Journal.Path)
	return nil
}
