// Package cli wires the pipeline into a cobra-based command surface,
// following this module's teacher's App/NewApp/subcommand-method
// convention.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nlevents/calpipe/internal/calendarbridge"
	"github.com/nlevents/calpipe/internal/config"
	"github.com/nlevents/calpipe/internal/llm"
	"github.com/nlevents/calpipe/internal/pipeline"
	"github.com/nlevents/calpipe/internal/schedule"
	"github.com/nlevents/calpipe/internal/store"
)

var (
	// Version is set at build time.
	Version = "dev"
	// Commit is set at build time.
	Commit = "none"
)

// App holds the CLI application state.
type App struct {
	config   *config.Config
	store    *store.Store
	pipeline *pipeline.Pipeline
	root     *cobra.Command
}

// NewApp creates a CLI application wired against cfg. Collaborators
// (LLM client, calendar bridge, store) are built lazily on first use so
// `calpipe version` never needs a live bridge or database.
func NewApp(cfg *config.Config) *App {
	a := &App{config: cfg}

	a.root = &cobra.Command{
		Use:   "calpipe",
		Short: "Turn natural-language requests into scheduled calendar events",
		Long: `calpipe runs a natural-language request through an eight-stage
pipeline — parsing the request, resolving relative dates, classifying
work vs. personal and simple vs. multi-step, decomposing complex tasks,
finding free time, and writing the result to your calendar.`,
	}

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.runCmd())
	a.root.AddCommand(a.deleteCmd())
	a.root.AddCommand(a.deleteChildrenCmd())

	return a
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("calpipe %s (commit: %s)\n", Version, Commit)
		},
	}
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.root.Execute()
}

// Close releases any resources held by the app.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// ensurePipeline lazily builds the LLM client, bridge client, store, and
// Pipeline from the loaded config.
func (a *App) ensurePipeline() error {
	if a.pipeline != nil {
		return nil
	}

	client, err := llm.NewClient(a.config.LLM.Provider, a.config.LLM.Model, a.config.LLM.BaseURL)
	if err != nil {
		return fmt.Errorf("initializing LLM client: %w", err)
	}

	bridge := calendarbridge.New(a.config.Bridge.BaseURL)

	db, err := store.New(a.config.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	a.store = db

	blackouts := blackoutsFromConfig(a.config.Blackouts)
	blackouts = append(blackouts, workdayBlackouts(a.config.Schedule.Workdays)...)

	opts := schedule.Options{
		WorkStartHour:  a.config.Pipeline.WorkStartHour,
		WorkEndHour:    a.config.Pipeline.WorkEndHour,
		MaxTasksPerDay: a.config.Pipeline.MaxTasksPerDay,
		MinGapMinutes:  a.config.Pipeline.MinGapMinutes,
		Blackouts:      blackouts,
	}

	a.pipeline = pipeline.New(client, bridge, db, opts, pipeline.NewLogger())
	return nil
}
