package main

import (
	"context"
	"os"

	"github.com/henry-johnson/weekly-discovery/internal/services"
	"github.com/henry-johnson/weekly-discovery/internal/shared"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	// Credentials usually arrive through the real environment (cron, CI);
	// a local .env is a development convenience.
	_ = godotenv.Load()

	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		loadedConfig, err := shared.LoadConfig("config.toml")
		if err != nil {
			logger.Fatalf("configuration error: %v", err)
		}
		config = loadedConfig
	}

	var provider services.ModelProvider
	if p, err := services.NewOpenAIProvider(os.Getenv("OPENAI_API_KEY"), config.OpenAI); err == nil {
		provider = p
	}

	runner := NewRunner(RunnerOpts{
		Config:   config,
		Provider: provider,
		Logger:   logger,
	})

	app := &cli.Command{
		Name:     "weekly-discovery",
		Usage:    "Generate weekly Spotify discovery playlists for every configured user",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
