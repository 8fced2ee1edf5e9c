package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/wattbench/internal/bench/config"
	"github.com/wesleyorama2/wattbench/internal/bench/energy"
	"github.com/wesleyorama2/wattbench/internal/bench/output"
	"github.com/wesleyorama2/wattbench/internal/bench/result"
	"github.com/wesleyorama2/wattbench/internal/bench/sweep"
	"github.com/wesleyorama2/wattbench/internal/workload"
)

type sweepFlags struct {
	configFile     string
	workload       string
	minPow         int
	maxPow         int
	rounds         int
	mode           string
	out            string
	outDir         string
	noManifest     bool
	source         string
	sysfsRoot      string
	sampleInterval time.Duration
	joinTimeout    time.Duration
	rsaBits        int
	quiet          bool
}

func newSweepCmd(app *App) *cobra.Command {
	var f sweepFlags
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a workload across a range of input sizes",
		Long: `Run a workload for every size 2^min-pow .. 2^max-pow bytes, --rounds
times per size, and write the results as CSV.

Flags set on the command line override values from --config.

  wattbench sweep --workload aes-gcm --min-pow 10 --max-pow 20 --rounds 10
  wattbench sweep --config run.yaml --mode per-round`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, &f)
			if err != nil {
				return err
			}
			return runSweep(cmd.Context(), app, cfg, f.quiet)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.configFile, "config", "c", "",
		"Run file (YAML or JSON)")
	flags.StringVarP(&f.workload, "workload", "w", defaults.Workload,
		fmt.Sprintf("Workload to run: %v", workload.Names()))
	flags.IntVar(&f.minPow, "min-pow", defaults.MinPow,
		"Smallest size exponent (size = 2^n bytes)")
	flags.IntVar(&f.maxPow, "max-pow", defaults.MaxPow,
		"Largest size exponent")
	flags.IntVarP(&f.rounds, "rounds", "r", defaults.Rounds,
		"Rounds per size")
	flags.StringVarP(&f.mode, "mode", "m", defaults.Mode,
		"Output rows: aggregate or per-round")
	flags.StringVarP(&f.out, "out", "o", "",
		"CSV output path (default: <out-dir>/<workload>_bench_2p<min>_2p<max>.csv)")
	flags.StringVar(&f.outDir, "out-dir", defaults.OutputDir,
		"Directory for the default output file")
	flags.BoolVar(&f.noManifest, "no-manifest", false,
		"Do not write the <csv>.json manifest")
	flags.StringVar(&f.source, "source", defaults.Energy.Source,
		"Energy source: auto, battery, rapl, none")
	flags.StringVar(&f.sysfsRoot, "sysfs-root", defaults.Energy.SysfsRoot,
		"Root of the sysfs tree")
	flags.DurationVar(&f.sampleInterval, "sample-interval", defaults.Energy.SampleInterval.GetDuration(0),
		"Sampling interval when integrating current")
	flags.DurationVar(&f.joinTimeout, "join-timeout", 0,
		"Wait for the sampler after each size (default: 2x sample interval)")
	flags.IntVar(&f.rsaBits, "rsa-bits", defaults.RSABits,
		"RSA key size for rsa-hybrid")
	flags.BoolVarP(&f.quiet, "quiet", "q", false,
		"Only print the output path")

	return cmd
}

// resolveConfig loads --config (or the defaults) and applies every flag the
// user set explicitly.
func resolveConfig(cmd *cobra.Command, f *sweepFlags) (*config.RunConfig, error) {
	cfg := config.Default()
	if f.configFile != "" {
		loaded, err := config.LoadConfig(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("workload") {
		cfg.Workload = f.workload
	}
	if changed("min-pow") {
		cfg.MinPow = f.minPow
	}
	if changed("max-pow") {
		cfg.MaxPow = f.maxPow
	}
	if changed("rounds") {
		cfg.Rounds = f.rounds
	}
	if changed("mode") {
		cfg.Mode = f.mode
	}
	if changed("out") {
		cfg.Output = f.out
	}
	if changed("out-dir") {
		cfg.OutputDir = f.outDir
	}
	if changed("no-manifest") {
		cfg.Manifest = !f.noManifest
	}
	if changed("source") {
		cfg.Energy.Source = f.source
	}
	if changed("sysfs-root") {
		cfg.Energy.SysfsRoot = f.sysfsRoot
	}
	if changed("sample-interval") {
		cfg.Energy.SampleInterval = config.Duration(f.sampleInterval)
	}
	if changed("join-timeout") {
		cfg.Energy.JoinTimeout = config.Duration(f.joinTimeout)
	}
	if changed("rsa-bits") {
		cfg.RSABits = f.rsaBits
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSweep(ctx context.Context, app *App, cfg *config.RunConfig, quiet bool) error {
	logger := app.Logger

	mode, err := cfg.OutputMode()
	if err != nil {
		return err
	}

	wl, err := workload.NewWithOptions(cfg.Workload, workload.Options{RSABits: cfg.RSABits})
	if err != nil {
		return err
	}

	source, sourceName, err := energy.Open(cfg.Energy.Source, cfg.Energy.SysfsRoot)
	if err != nil {
		return err
	}
	logger.Debug("energy source selected", slog.String("source", sourceName))

	path := cfg.OutputPath()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	console := output.NewConsole(output.ConsoleConfig{Writer: app.Stdout, NoColor: app.noColor})
	if !quiet {
		console.PrintHeader(output.RunInfo{
			Workload: wl.Name(),
			Spec:     cfg.Spec(),
			Mode:     string(mode),
			Source:   sourceName,
			Output:   path,
		})
	}

	meter := energy.NewMeter(source, cfg.MeterConfig(), logger)
	runner := sweep.NewRunner(meter, mode, logger)
	emitter := result.NewFileEmitter(path)

	report, runErr := runner.Run(ctx, cfg.Spec(), wl, emitter)
	if err := emitter.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close %s: %w", path, err)
	}

	if report == nil {
		// nothing was written
		return runErr
	}

	if cfg.Manifest {
		m := output.NewManifest("wattbench "+version, sourceName, report, runErr, app.Now())
		if err := output.WriteManifest(output.ManifestPath(path), m); err != nil {
			runErr = errors.Join(runErr, err)
		} else {
			logger.Debug("manifest written",
				slog.String("path", output.ManifestPath(path)),
				slog.String("run_id", m.RunID),
			)
		}
	}

	if runErr != nil {
		if !quiet {
			console.PrintError(runErr)
		}
		return runErr
	}

	if quiet {
		fmt.Fprintln(app.Stdout, path)
		return nil
	}
	console.PrintSummary(report)
	return nil
}
