package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/wattbench/internal/bench/config"
	"github.com/wesleyorama2/wattbench/internal/bench/energy"
	"github.com/wesleyorama2/wattbench/internal/bench/output"
	"github.com/wesleyorama2/wattbench/internal/workload"
	"github.com/wesleyorama2/wattbench/pkg/jsonpath"
)

func newWorkloadsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "workloads",
		Short: "List available workloads",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			for _, name := range workload.Names() {
				fmt.Fprintln(app.Stdout, name)
			}
			return nil
		},
	}
}

func newProbeCmd(app *App) *cobra.Command {
	var (
		source    string
		sysfsRoot string
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Show which energy readings this machine provides",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			src, name, err := energy.Open(source, sysfsRoot)
			if err != nil {
				return err
			}
			console := output.NewConsole(output.ConsoleConfig{Writer: app.Stdout, NoColor: app.noColor})
			console.PrintProbe(output.Probe(src, name))
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", energy.KindAuto, "Energy source: auto, battery, rapl, none")
	cmd.Flags().StringVar(&sysfsRoot, "sysfs-root", energy.DefaultSysfsRoot, "Root of the sysfs tree")

	return cmd
}

func newInspectCmd(app *App) *cobra.Command {
	var paths []string

	cmd := &cobra.Command{
		Use:   "inspect <manifest.json|results.csv>",
		Short: "Summarise or query a sweep manifest",
		Long: `Print the summary stored in a sweep manifest, or query it with JSONPath.

  wattbench inspect aes-gcm_bench_2p10_2p20.csv
  wattbench inspect aes-gcm_bench_2p10_2p20.csv.json --path '$.sizes[0].energy.method'
  wattbench inspect run.csv --path '$.sizes[*].energy.mWh' --path '$.complete'`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			file := args[0]
			if strings.HasSuffix(strings.ToLower(file), ".csv") {
				file = output.ManifestPath(file)
			}

			if len(paths) == 0 {
				m, err := output.ReadManifest(file)
				if err != nil {
					return err
				}
				return printManifest(app, m)
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read manifest: %w", err)
			}
			return printQueries(app, data, paths)
		},
	}

	cmd.Flags().StringArrayVarP(&paths, "path", "p", nil, "JSONPath expression to print (repeatable)")

	return cmd
}

func printManifest(app *App, m *output.Manifest) error {
	console := output.NewConsole(output.ConsoleConfig{Writer: app.Stdout, NoColor: app.noColor})

	mode := m.Mode
	if !m.Complete {
		mode += " (incomplete)"
	}
	console.PrintHeader(output.RunInfo{
		Workload: m.Workload,
		Spec:     m.Spec,
		Mode:     mode,
		Source:   m.EnergySource,
		Output:   m.CSV,
	})

	console.PrintSummary(m.Report())
	if m.Error != "" {
		console.PrintError(errors.New(m.Error))
	}
	return nil
}

func printQueries(app *App, data []byte, paths []string) error {
	if len(paths) == 1 {
		v, err := jsonpath.Extract(data, paths[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(app.Stdout, v)
		return nil
	}

	named := make(map[string]string, len(paths))
	for _, p := range paths {
		named[p] = p
	}
	values, err := jsonpath.ExtractMultiple(data, named)
	for _, p := range paths {
		if v, ok := values[p]; ok {
			fmt.Fprintf(app.Stdout, "%s\t%s\n", p, v)
		}
	}
	return err
}

func newInitCmd(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [run.yaml|run.json]",
		Short: "Write a run file with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := "wattbench.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}

			data, err := config.Marshal(config.Default(), path)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write run file: %w", err)
			}

			fmt.Fprintln(app.Stdout, path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

func newSchemaCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for run files",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprint(app.Stdout, config.SchemaSource())
			return nil
		},
	}
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintf(app.Stdout, "wattbench %s\n", version)
			return nil
		},
	}
}
