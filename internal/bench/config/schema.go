// Package config defines the wattbench run file and turns it into the
// parameters of a sweep.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/wattbench/internal/bench/energy"
	"github.com/wesleyorama2/wattbench/internal/bench/result"
	"github.com/wesleyorama2/wattbench/internal/bench/sweep"
)

// RunConfig is the root of a run file.
type RunConfig struct {
	// Workload names a registered workload (e.g. "aes-gcm")
	Workload string `json:"workload" yaml:"workload"`

	MinPow int `json:"minPow" yaml:"minPow"`
	MaxPow int `json:"maxPow" yaml:"maxPow"`
	Rounds int `json:"rounds" yaml:"rounds"`

	// Mode is "aggregate" or "per-round"
	Mode string `json:"mode" yaml:"mode"`

	// Output is the CSV path. Empty means OutputDir/<default name>.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// OutputDir is used when Output is empty (default: ".")
	OutputDir string `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`

	// Manifest writes a JSON summary next to the CSV
	Manifest bool `json:"manifest" yaml:"manifest"`

	// RSABits is the key size of the rsa-hybrid workload
	RSABits int `json:"rsaBits,omitempty" yaml:"rsaBits,omitempty"`

	Energy EnergyConfig `json:"energy" yaml:"energy"`
}

// EnergyConfig selects and tunes the energy source.
type EnergyConfig struct {
	// Source is "auto", "battery", "rapl" or "none"
	Source string `json:"source" yaml:"source"`

	SysfsRoot string `json:"sysfsRoot,omitempty" yaml:"sysfsRoot,omitempty"`

	// SampleInterval is the integration sampling period (e.g. "100ms")
	SampleInterval Duration `json:"sampleInterval,omitempty" yaml:"sampleInterval,omitempty"`

	// JoinTimeout bounds the wait for the sampler (default: 2 * SampleInterval)
	JoinTimeout Duration `json:"joinTimeout,omitempty" yaml:"joinTimeout,omitempty"`

	DefaultVoltageMilliV int64 `json:"defaultVoltageMilliV,omitempty" yaml:"defaultVoltageMilliV,omitempty"`
}

// Default returns the configuration used when neither a file nor flags say
// otherwise.
func Default() *RunConfig {
	meter := energy.DefaultConfig()
	return &RunConfig{
		Workload:  "aes-gcm",
		MinPow:    10,
		MaxPow:    20,
		Rounds:    10,
		Mode:      string(result.ModeAggregate),
		OutputDir: ".",
		Manifest:  true,
		RSABits:   2048,
		Energy: EnergyConfig{
			Source:               energy.KindAuto,
			SysfsRoot:            energy.DefaultSysfsRoot,
			SampleInterval:       Duration(meter.SampleInterval),
			DefaultVoltageMilliV: meter.DefaultVoltageMilliV,
		},
	}
}

// Spec returns the sweep range.
func (c *RunConfig) Spec() sweep.Spec {
	return sweep.Spec{MinPow: c.MinPow, MaxPow: c.MaxPow, Rounds: c.Rounds}
}

// OutputMode returns the parsed output mode.
func (c *RunConfig) OutputMode() (result.Mode, error) {
	return result.ParseMode(c.Mode)
}

// MeterConfig returns the energy meter settings; zero values take the
// meter's defaults.
func (c *RunConfig) MeterConfig() energy.Config {
	return energy.Config{
		SampleInterval:       c.Energy.SampleInterval.GetDuration(0),
		JoinTimeout:          c.Energy.JoinTimeout.GetDuration(0),
		DefaultVoltageMilliV: c.Energy.DefaultVoltageMilliV,
	}
}

// OutputPath returns Output, or the default file name under OutputDir.
func (c *RunConfig) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	dir := c.OutputDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, DefaultFileName(c.Workload, c.MinPow, c.MaxPow))
}

// DefaultFileName is <workload>_bench_2p<min>_2p<max>.csv.
func DefaultFileName(workload string, minPow, maxPow int) string {
	return fmt.Sprintf("%s_bench_2p%d_2p%d.csv", workload, minPow, maxPow)
}

// Duration is a time.Duration written as a string such as "250ms".
type Duration time.Duration

// GetDuration returns the duration or a default if zero.
func (d Duration) GetDuration(defaultValue time.Duration) time.Duration {
	if d == 0 {
		return defaultValue
	}
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return d.set(s)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a string", node.Line)
	}
	if err := d.set(node.Value); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}

func (d *Duration) set(s string) error {
	if s == "" || s == "null" {
		*d = 0
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}
