package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/henry-johnson/weekly-discovery/internal/models"
	"github.com/henry-johnson/weekly-discovery/internal/services"
	"github.com/henry-johnson/weekly-discovery/internal/shared"
	"github.com/henry-johnson/weekly-discovery/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	provider   services.ModelProvider
	newSession tasks.SessionFactory
	env        map[string]string
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Provider   services.ModelProvider
	NewSession tasks.SessionFactory
	Env        map[string]string
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Env == nil {
		opts.Env = envNamespace()
	}

	config := opts.Config
	if opts.NewSession == nil {
		opts.NewSession = func(bundle models.CredentialBundle) (services.MusicService, error) {
			return services.NewSpotifyService(bundle, config.Spotify)
		}
	}

	return &Runner{
		config:     opts.Config,
		provider:   opts.Provider,
		newSession: opts.NewSession,
		env:        opts.Env,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, usersCommand, authCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// reloadConfig swaps the runner's config for the one at path. A missing
// file keeps the current config; a file that exists but will not parse is
// a configuration error.
func (r *Runner) reloadConfig(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrConfiguration, err)
	}
	r.config = config
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		if _, err := r.output.Write([]byte("\n")); err != nil {
			return fmt.Errorf("failed to write newline: %w", err)
		}
	}
	return nil
}

// envNamespace snapshots the process environment into a flat map. Keys that
// never parse as credential fields are kept; discovery ignores them.
func envNamespace() map[string]string {
	namespace := make(map[string]string)
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		namespace[key] = value
	}
	return namespace
}
