package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/wesleyorama2/wattbench/internal/bench/energy"
	"github.com/wesleyorama2/wattbench/internal/bench/sweep"
	"github.com/wesleyorama2/wattbench/internal/workload"
)

// Validate checks the whole run configuration.
//
// Returns nil if valid, or a *sweep.ValidationErrors containing every problem.
func (c *RunConfig) Validate() error {
	errs := &sweep.ValidationErrors{}

	var specErrs *sweep.ValidationErrors
	if err := c.Spec().Validate(); errors.As(err, &specErrs) {
		errs.Errors = append(errs.Errors, specErrs.Errors...)
	}

	if !slices.Contains(workload.Names(), c.Workload) {
		errs.Add("workload", fmt.Sprintf("unknown workload %q (available: %v)", c.Workload, workload.Names()))
	}

	if _, err := c.OutputMode(); err != nil {
		errs.Add("mode", err.Error())
	}

	if c.RSABits != 0 && c.RSABits < 1024 {
		errs.Add("rsaBits", fmt.Sprintf("must be >= 1024, got %d", c.RSABits))
	}

	validateEnergy(&c.Energy, errs)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateEnergy(e *EnergyConfig, errs *sweep.ValidationErrors) {
	switch e.Source {
	case energy.KindAuto, energy.KindBattery, energy.KindRAPL, energy.KindNone:
	default:
		errs.Add("energy.source", fmt.Sprintf("unknown source %q", e.Source))
	}

	if e.SampleInterval < 0 {
		errs.Add("energy.sampleInterval", "must not be negative")
	}
	if e.JoinTimeout < 0 {
		errs.Add("energy.joinTimeout", "must not be negative")
	}
	if e.JoinTimeout > 0 && e.SampleInterval > 0 && e.JoinTimeout < e.SampleInterval {
		errs.Add("energy.joinTimeout", fmt.Sprintf("must be at least sampleInterval (%s)", e.SampleInterval))
	}
	if e.DefaultVoltageMilliV < 0 {
		errs.Add("energy.defaultVoltageMilliV", "must not be negative")
	}
}
