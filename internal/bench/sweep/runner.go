// Package sweep drives a workload across a power-of-two range of input sizes,
// measuring timings per round and energy per size.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wesleyorama2/wattbench/internal/bench/energy"
	"github.com/wesleyorama2/wattbench/internal/bench/result"
	"github.com/wesleyorama2/wattbench/internal/bench/stats"
	"github.com/wesleyorama2/wattbench/internal/workload"
)

// ErrNilWorkload is returned by Run when no workload is given.
var ErrNilWorkload = errors.New("workload is nil")

// Meter measures the energy of one block of work.
type Meter interface {
	Measure(ctx context.Context, block func() error) (energy.Result, error)
}

// RoundError reports which round of which size failed.
type RoundError struct {
	SizeBytes int
	Round     int // 1-based
	Err       error
}

func (e *RoundError) Error() string {
	return fmt.Sprintf("size %d round %d: %v", e.SizeBytes, e.Round, e.Err)
}

func (e *RoundError) Unwrap() error {
	return e.Err
}

// Runner executes sweeps. Exactly one output mode is used for every run.
type Runner struct {
	meter  Meter
	mode   result.Mode
	logger *slog.Logger
}

// NewRunner creates a runner measuring with meter and emitting rows of mode.
// A nil logger discards output.
func NewRunner(meter Meter, mode result.Mode, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{meter: meter, mode: mode, logger: logger}
}

// Mode returns the output mode of the runner.
func (r *Runner) Mode() result.Mode {
	return r.mode
}

// Run sweeps wl over spec and writes rows to emitter.
//
// The spec is validated before anything is written. On failure the returned
// report holds the sizes that completed.
func (r *Runner) Run(ctx context.Context, spec Spec, wl workload.Workload, emitter result.Emitter) (*Report, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if wl == nil {
		return nil, ErrNilWorkload
	}
	if result.Header(r.mode) == nil {
		return nil, fmt.Errorf("unknown output mode %q", r.mode)
	}

	if err := emitter.Start(r.mode); err != nil {
		return nil, fmt.Errorf("start output: %w", err)
	}

	report := &Report{
		Location: emitter.Location(),
		Mode:     r.mode,
		Spec:     spec,
		Workload: wl.Name(),
	}

	r.logger.InfoContext(ctx, "sweep started",
		slog.String("workload", wl.Name()),
		slog.String("spec", spec.String()),
		slog.String("mode", string(r.mode)),
		slog.String("output", report.Location),
	)

	for _, size := range spec.Sizes() {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("sweep stopped before size %d: %w", size, err)
		}

		sr, err := r.runSize(ctx, wl, size, spec.Rounds, emitter)
		if err != nil {
			return report, err
		}
		report.Sizes = append(report.Sizes, sr)
	}

	r.logger.InfoContext(ctx, "sweep finished",
		slog.String("workload", wl.Name()),
		slog.Int("sizes", len(report.Sizes)),
	)

	return report, nil
}

func (r *Runner) runSize(ctx context.Context, wl workload.Workload, size, rounds int, emitter result.Emitter) (SizeReport, error) {
	r.logger.DebugContext(ctx, "size started", slog.Int("size", size))

	runner, err := wl.Prepare(size)
	if err != nil {
		return SizeReport{}, fmt.Errorf("prepare %s for size %d: %w", wl.Name(), size, err)
	}

	enc := make([]int64, 0, rounds)
	dec := make([]int64, 0, rounds)

	res, runErr := r.meter.Measure(ctx, func() error {
		for i := 0; i < rounds; i++ {
			sample, err := runner.Run(i)
			if err != nil {
				return &RoundError{SizeBytes: size, Round: i + 1, Err: err}
			}
			enc = append(enc, sample.EncryptNs)
			dec = append(dec, sample.DecryptNs)
		}
		return nil
	})

	if runErr != nil {
		if r.mode == result.ModePerRound {
			// Completed rounds stay visible in the output.
			if err := emitRounds(emitter, size, enc, dec, res.EnergyMilliWattHour); err != nil {
				return SizeReport{}, errors.Join(runErr, err)
			}
		}
		return SizeReport{}, runErr
	}

	sr, err := summarize(size, enc, dec, res)
	if err != nil {
		return SizeReport{}, fmt.Errorf("size %d: %w", size, err)
	}

	switch r.mode {
	case result.ModeAggregate:
		err = emitter.Emit(result.AggregateRow{
			SizeBytes:           size,
			Enc:                 sr.Encrypt,
			Dec:                 sr.Decrypt,
			EnergyMilliWattHour: res.EnergyMilliWattHour,
		})
	case result.ModePerRound:
		err = emitRounds(emitter, size, enc, dec, res.EnergyMilliWattHour)
	}
	if err != nil {
		return SizeReport{}, fmt.Errorf("size %d: %w", size, err)
	}

	r.logger.InfoContext(ctx, "size done",
		slog.Int("size", size),
		slog.String("method", string(res.Method)),
		slog.Float64("energy_mwh", res.EnergyMilliWattHour),
		slog.Duration("duration", res.Duration),
		slog.Int64("enc_median_ns", sr.Encrypt.Median),
		slog.Int64("dec_median_ns", sr.Decrypt.Median),
	)

	return sr, nil
}

// emitRounds writes one row per completed round with total energy split
// evenly across them.
func emitRounds(emitter result.Emitter, size int, enc, dec []int64, totalMWh float64) error {
	if len(enc) == 0 {
		return nil
	}
	perRound := totalMWh / float64(len(enc))

	for i := range enc {
		row := result.RoundRow{
			SizeBytes:           size,
			RoundIndex:          i + 1,
			EncryptNs:           enc[i],
			DecryptNs:           dec[i],
			EnergyMilliWattHour: perRound,
		}
		if err := emitter.Emit(row); err != nil {
			return fmt.Errorf("round %d: %w", i+1, err)
		}
	}
	return nil
}

func summarize(size int, enc, dec []int64, res energy.Result) (SizeReport, error) {
	encStats, err := stats.Compute(enc)
	if err != nil {
		return SizeReport{}, fmt.Errorf("encrypt stats: %w", err)
	}
	decStats, err := stats.Compute(dec)
	if err != nil {
		return SizeReport{}, fmt.Errorf("decrypt stats: %w", err)
	}

	encPct, err := stats.Distribution(enc)
	if err != nil {
		return SizeReport{}, fmt.Errorf("encrypt percentiles: %w", err)
	}
	decPct, err := stats.Distribution(dec)
	if err != nil {
		return SizeReport{}, fmt.Errorf("decrypt percentiles: %w", err)
	}

	return SizeReport{
		SizeBytes:          size,
		Rounds:             len(enc),
		Energy:             res,
		Encrypt:            encStats,
		Decrypt:            decStats,
		EncryptPercentiles: encPct,
		DecryptPercentiles: decPct,
	}, nil
}
