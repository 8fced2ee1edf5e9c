// Package cli implements the wattbench command tree.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Version returns the build version.
func Version() string {
	return version
}

// App carries what every command shares.
type App struct {
	Logger *slog.Logger
	Level  *slog.LevelVar
	Stdout io.Writer
	Stderr io.Writer
	Now    func() time.Time

	verbose bool
	noColor bool
}

// NewApp returns an App logging text to stderr at Info level.
func NewApp(stdout, stderr io.Writer) *App {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	return &App{
		Logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
		Level:  level,
		Stdout: stdout,
		Stderr: stderr,
		Now:    time.Now,
	}
}

// NewRootCmd builds the command tree for app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:     "wattbench",
		Short:   "Energy-aware encryption benchmark harness",
		Version: version,
		Long: `wattbench sweeps an encrypt/decrypt workload across power-of-two input
sizes, records per-round timings and estimates the energy used for each
size from a hardware energy counter or by integrating sampled current.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if app.verbose {
				app.Level.Set(slog.LevelDebug)
			}
		},
	}

	root.SetOut(app.Stdout)
	root.SetErr(app.Stderr)

	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&app.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(newSweepCmd(app))
	root.AddCommand(newWorkloadsCmd(app))
	root.AddCommand(newProbeCmd(app))
	root.AddCommand(newInspectCmd(app))
	root.AddCommand(newInitCmd(app))
	root.AddCommand(newSchemaCmd(app))
	root.AddCommand(newVersionCmd(app))

	return root
}

// Execute runs the command line args against a fresh command tree.
func Execute(ctx context.Context, args []string) error {
	app := NewApp(os.Stdout, os.Stderr)
	root := NewRootCmd(app)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err != nil {
		app.Logger.Error("command failed", slog.Any("error", err))
	}
	return err
}
