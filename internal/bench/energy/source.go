// Package energy estimates the energy consumed by a block of work, either from
// a hardware energy counter or by integrating sampled current and voltage.
package energy

// Source reads the platform's energy instrumentation.
//
// Every method reports ok=false when the reading is unavailable. A reading may
// be available on one call and unavailable on the next.
type Source interface {
	// EnergyCounter returns a point-in-time energy counter in nanowatt-hours.
	// The counter may decrease while discharging.
	EnergyCounter() (nWh int64, ok bool)

	// Current returns the instantaneous current in microamps. The sign
	// encodes the charge direction.
	Current() (microAmps int64, ok bool)

	// Voltage returns the instantaneous voltage in millivolts.
	Voltage() (milliVolts int64, ok bool)
}

// WrappingCounter is implemented by sources whose energy counter only grows and
// restarts from zero once it reaches its range.
type WrappingCounter interface {
	// CounterRange returns the counter value at which it wraps, in nWh.
	CounterRange() (nWh int64, ok bool)
}

// Unavailable is a Source with no instrumentation at all.
type Unavailable struct{}

func (Unavailable) EnergyCounter() (int64, bool) { return 0, false }
func (Unavailable) Current() (int64, bool)       { return 0, false }
func (Unavailable) Voltage() (int64, bool)       { return 0, false }
