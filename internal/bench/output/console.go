// Package output renders sweep results for people (a console summary) and
// for tools (a JSON manifest next to the CSV).
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/wesleyorama2/wattbench/internal/bench/energy"
	"github.com/wesleyorama2/wattbench/internal/bench/sweep"
)

const (
	ruleWidth = 72
	ruleChar  = "━"
)

// ConsoleConfig contains configuration for Console.
type ConsoleConfig struct {
	Writer      io.Writer
	NoColor     bool
	ForceColors bool
}

// Console prints human-readable run information.
type Console struct {
	w      io.Writer
	scheme *ColorScheme
}

// NewConsole creates a console writer. Colors are used only on a terminal
// that supports them, unless forced or disabled.
func NewConsole(config ConsoleConfig) *Console {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}

	useColors := config.ForceColors || (!config.NoColor && isTerminal(config.Writer) && supportsColors())

	scheme := NoColorScheme()
	if useColors {
		scheme = ForcedColorScheme()
	}

	return &Console{w: config.Writer, scheme: scheme}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func supportsColors() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	term := os.Getenv("TERM")
	return term != "" && term != "dumb"
}

// RunInfo describes a sweep before it starts.
type RunInfo struct {
	Workload string
	Spec     sweep.Spec
	Mode     string
	Source   string
	Output   string
}

// PrintHeader prints the run banner.
func (c *Console) PrintHeader(info RunInfo) {
	rule := c.scheme.Rule.Sprint(strings.Repeat(ruleChar, ruleWidth))

	c.writeln(rule)
	c.writeln(c.scheme.Title.Sprintf("wattbench %s", info.Workload))
	c.writeln(rule)
	c.field("Sizes", fmt.Sprintf("%s .. %s (%d sizes)",
		FormatBytes(1<<info.Spec.MinPow), FormatBytes(1<<info.Spec.MaxPow), len(info.Spec.Sizes())))
	c.field("Rounds", fmt.Sprintf("%d per size", info.Spec.Rounds))
	c.field("Mode", info.Mode)
	c.field("Energy", info.Source)
	c.field("Output", info.Output)
	c.writeln("")
}

// PrintSummary prints one line per completed size and the totals.
func (c *Console) PrintSummary(report *sweep.Report) {
	c.writeln(c.scheme.Title.Sprintf("%-10s %12s %12s %12s %12s %12s  %s",
		"size", "enc median", "enc p99", "dec median", "dec p99", "energy mWh", "method"))

	for _, s := range report.Sizes {
		c.writeln(fmt.Sprintf("%-10s %12s %12s %12s %12s %12.6f  %s",
			FormatBytes(s.SizeBytes),
			FormatNanos(s.Encrypt.Median),
			FormatNanos(s.EncryptPercentiles.P99),
			FormatNanos(s.Decrypt.Median),
			FormatNanos(s.DecryptPercentiles.P99),
			s.Energy.EnergyMilliWattHour,
			c.scheme.Method(s.Energy.Method),
		))
	}

	c.writeln(c.scheme.Rule.Sprint(strings.Repeat(ruleChar, ruleWidth)))
	c.writeln(fmt.Sprintf("%s %d sizes, %s mWh total, written to %s",
		c.scheme.SuccessIcon(),
		len(report.Sizes),
		c.scheme.Value.Sprintf("%.6f", report.TotalEnergy()),
		report.Location,
	))
}

// ProbeResult is what one read of each energy reading returned.
type ProbeResult struct {
	Source      string
	Counter     int64
	CounterOK   bool
	Current     int64
	CurrentOK   bool
	Voltage     int64
	VoltageOK   bool
	WillSample  bool
	Description string
}

// Probe reads every value of source once.
func Probe(source energy.Source, description string) ProbeResult {
	p := ProbeResult{Source: description}
	p.Counter, p.CounterOK = source.EnergyCounter()
	p.Current, p.CurrentOK = source.Current()
	p.Voltage, p.VoltageOK = source.Voltage()
	p.WillSample = !p.CounterOK

	switch {
	case p.CounterOK:
		p.Description = "energy counter available; sweeps use COUNTER mode"
	case p.CurrentOK:
		p.Description = "no energy counter; sweeps integrate sampled current (INTEGRATION mode)"
	default:
		p.Description = "no readings available; sweeps report best-effort INTEGRATION results"
	}
	return p
}

// PrintProbe prints a ProbeResult.
func (c *Console) PrintProbe(p ProbeResult) {
	c.field("Source", p.Source)
	c.reading("Energy counter", p.CounterOK, fmt.Sprintf("%d nWh", p.Counter))
	c.reading("Current", p.CurrentOK, fmt.Sprintf("%d µA", p.Current))
	c.reading("Voltage", p.VoltageOK, fmt.Sprintf("%d mV", p.Voltage))
	c.writeln("")
	c.writeln(p.Description)
}

// PrintError prints a failure line.
func (c *Console) PrintError(err error) {
	c.writeln(fmt.Sprintf("%s %s", c.scheme.ErrorIcon(), c.scheme.Error.Sprint(err.Error())))
}

func (c *Console) reading(label string, ok bool, value string) {
	if !ok {
		c.field(label, c.scheme.ErrorIcon()+" unavailable")
		return
	}
	c.field(label, c.scheme.SuccessIcon()+" "+value)
}

func (c *Console) field(label, value string) {
	c.writeln(fmt.Sprintf("  %s %s", c.scheme.Label.Sprintf("%-15s", label+":"), value))
}

func (c *Console) writeln(s string) {
	fmt.Fprintln(c.w, s)
}

// FormatBytes formats a power-of-two size (e.g. 1024 -> "1KiB").
func FormatBytes(n int) string {
	switch {
	case n >= 1<<30 && n%(1<<30) == 0:
		return fmt.Sprintf("%dGiB", n>>30)
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMiB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKiB", n>>10)
	default:
		return fmt.Sprintf("%dB", n)
	}
}

// FormatNanos formats a nanosecond count with a readable unit.
func FormatNanos(ns int64) string {
	switch {
	case ns >= 1_000_000_000:
		return fmt.Sprintf("%.2fs", float64(ns)/1e9)
	case ns >= 1_000_000:
		return fmt.Sprintf("%.2fms", float64(ns)/1e6)
	case ns >= 1_000:
		return fmt.Sprintf("%.2fµs", float64(ns)/1e3)
	default:
		return fmt.Sprintf("%dns", ns)
	}
}
