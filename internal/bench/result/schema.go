// Package result defines the tabular output of a sweep and writes it to a sink.
package result

import (
	"fmt"
	"strconv"

	"github.com/wesleyorama2/wattbench/internal/bench/stats"
)

// Mode selects the output schema. Exactly one mode is used per run.
type Mode string

const (
	// ModeAggregate emits one row per size with timing statistics.
	ModeAggregate Mode = "aggregate"

	// ModePerRound emits one row per round.
	ModePerRound Mode = "per-round"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAggregate, ModePerRound:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown output mode %q (want %s or %s)", s, ModeAggregate, ModePerRound)
	}
}

var (
	aggregateHeader = []string{
		"size_bytes",
		"enc_min_ns", "enc_median_ns", "enc_max_ns", "enc_std_ns",
		"dec_min_ns", "dec_median_ns", "dec_max_ns", "dec_std_ns",
		"energy_mWh",
	}

	perRoundHeader = []string{
		"size_bytes", "round_index", "enc_ns", "dec_ns", "energy_mWh",
	}
)

// Header returns the column names for mode, or nil for an unknown mode.
func Header(mode Mode) []string {
	switch mode {
	case ModeAggregate:
		return append([]string(nil), aggregateHeader...)
	case ModePerRound:
		return append([]string(nil), perRoundHeader...)
	default:
		return nil
	}
}

// Row is one output record.
type Row interface {
	Mode() Mode
	Record() []string
}

// AggregateRow summarises every round of one size.
type AggregateRow struct {
	SizeBytes           int
	Enc                 stats.TimingStats
	Dec                 stats.TimingStats
	EnergyMilliWattHour float64
}

func (AggregateRow) Mode() Mode { return ModeAggregate }

// Record formats the row. Standard deviations are truncated to whole nanoseconds.
func (r AggregateRow) Record() []string {
	return []string{
		strconv.Itoa(r.SizeBytes),
		formatInt(r.Enc.Min),
		formatInt(r.Enc.Median),
		formatInt(r.Enc.Max),
		formatInt(int64(r.Enc.StdDev)),
		formatInt(r.Dec.Min),
		formatInt(r.Dec.Median),
		formatInt(r.Dec.Max),
		formatInt(int64(r.Dec.StdDev)),
		formatEnergy(r.EnergyMilliWattHour),
	}
}

// RoundRow is one round. EnergyMilliWattHour is the size total divided
// evenly across its rounds, not a per-round measurement.
type RoundRow struct {
	SizeBytes           int
	RoundIndex          int // 1-based
	EncryptNs           int64
	DecryptNs           int64
	EnergyMilliWattHour float64
}

func (RoundRow) Mode() Mode { return ModePerRound }

func (r RoundRow) Record() []string {
	return []string{
		strconv.Itoa(r.SizeBytes),
		strconv.Itoa(r.RoundIndex),
		formatInt(r.EncryptNs),
		formatInt(r.DecryptNs),
		formatEnergy(r.EnergyMilliWattHour),
	}
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatEnergy(mWh float64) string {
	return strconv.FormatFloat(mWh, 'f', 6, 64)
}
