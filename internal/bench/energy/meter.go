package energy

import (
	"context"
	"log/slog"
	"time"
)

// Method identifies how an energy figure was obtained.
type Method string

const (
	// MethodCounter means two reads of the hardware energy counter.
	MethodCounter Method = "COUNTER"

	// MethodIntegration means trapezoidal integration of sampled current and voltage.
	MethodIntegration Method = "INTEGRATION"
)

// Result is the energy consumed by one measured block.
type Result struct {
	Duration            time.Duration `json:"-"`
	DurationMs          int64         `json:"durationMs"`
	Samples             int           `json:"samples"`
	EnergyMilliWattHour float64       `json:"mWh"`
	Method              Method        `json:"method"`
}

// Config controls the integration fallback.
type Config struct {
	// SampleInterval is the time between current/voltage samples (default: 100ms)
	SampleInterval time.Duration

	// JoinTimeout bounds the wait for the sampler after the block returns
	// (default: 2 * SampleInterval)
	JoinTimeout time.Duration

	// DefaultVoltageMilliV is used until the source reports a voltage (default: 4000)
	DefaultVoltageMilliV int64
}

// DefaultConfig returns the default meter configuration.
func DefaultConfig() Config {
	return Config{
		SampleInterval:       100 * time.Millisecond,
		JoinTimeout:          200 * time.Millisecond,
		DefaultVoltageMilliV: 4000,
	}
}

// Meter measures the energy consumed while a block of work runs.
//
// Counter mode is tried first. When the counter is unavailable the meter
// starts a sampling goroutine before the block, stops it right after the
// block returns, and integrates power over the samples it took.
//
// A Meter may be reused across calls but Measure must not be called
// concurrently on the same Source if the Source is not safe for that.
type Meter struct {
	source Source
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// NewMeter creates a Meter reading from source. Zero config fields take their
// defaults; a nil logger discards output.
func NewMeter(source Source, config Config, logger *slog.Logger) *Meter {
	defaults := DefaultConfig()
	if config.SampleInterval <= 0 {
		config.SampleInterval = defaults.SampleInterval
	}
	if config.JoinTimeout <= 0 {
		config.JoinTimeout = 2 * config.SampleInterval
	}
	if config.DefaultVoltageMilliV <= 0 {
		config.DefaultVoltageMilliV = defaults.DefaultVoltageMilliV
	}
	if source == nil {
		source = Unavailable{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Meter{
		source: source,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Config returns the effective configuration.
func (m *Meter) Config() Config {
	return m.config
}

// Measure runs block exactly once and reports the energy consumed while it ran.
//
// The returned error is the block's error. The Result is populated even when
// the block fails; missing instrumentation never produces an error.
func (m *Meter) Measure(ctx context.Context, block func() error) (Result, error) {
	start, ok := m.source.EnergyCounter()
	if !ok {
		return m.integrate(ctx, block)
	}

	t0 := m.now()
	err := block()
	elapsed := m.now().Sub(t0)

	end, ok := m.source.EnergyCounter()
	var delta int64
	if ok {
		delta, ok = m.counterDelta(start, end)
	}
	if !ok {
		// The block already ran; there is no window left to sample.
		m.logger.DebugContext(ctx, "energy counter lost during block",
			slog.Duration("elapsed", elapsed),
		)

		return Result{
			Duration:   elapsed,
			DurationMs: elapsed.Milliseconds(),
			Samples:    1,
			Method:     MethodIntegration,
		}, err
	}

	return Result{
		Duration:            elapsed,
		DurationMs:          elapsed.Milliseconds(),
		Samples:             2,
		EnergyMilliWattHour: float64(delta) / 1e6,
		Method:              MethodCounter,
	}, err
}

// counterDelta returns the energy between two counter reads. A battery counter
// falls while discharging; a wrapping counter that went backwards has passed
// its range once, and ok is false when that range cannot be read.
func (m *Meter) counterDelta(start, end int64) (int64, bool) {
	delta := end - start
	if delta >= 0 {
		return delta, true
	}

	w, wraps := m.source.(WrappingCounter)
	if !wraps {
		return -delta, true
	}
	limit, ok := w.CounterRange()
	if !ok || delta+limit < 0 {
		return 0, false
	}
	return delta + limit, true
}

func (m *Meter) integrate(ctx context.Context, block func() error) (Result, error) {
	voltage := m.config.DefaultVoltageMilliV
	if v, ok := m.source.Voltage(); ok && v > 0 {
		voltage = v
	}

	current, _ := m.source.Current()

	s := newSampler(m.source, m.now, current, voltage)

	stop := make(chan struct{})
	done := make(chan struct{})

	m.logger.DebugContext(ctx, "energy counter unavailable, sampling",
		slog.Duration("interval", m.config.SampleInterval),
		slog.Int64("voltage_mv", voltage),
	)

	t0 := m.now()
	go s.run(ctx, m.config.SampleInterval, stop, done)

	err := func() error {
		defer close(stop)

		return block()
	}()

	elapsed := m.now().Sub(t0)

	timer := time.NewTimer(m.config.JoinTimeout)
	select {
	case <-done:
		timer.Stop()
	case <-timer.C:
		m.logger.DebugContext(ctx, "sampler did not stop in time",
			slog.Duration("join_timeout", m.config.JoinTimeout),
		)
	}

	snap := s.snapshot()

	return Result{
		Duration:            elapsed,
		DurationMs:          elapsed.Milliseconds(),
		Samples:             snap.ticks + 1,
		EnergyMilliWattHour: snap.joules / 3.6,
		Method:              MethodIntegration,
	}, err
}
