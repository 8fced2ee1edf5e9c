// Package stats computes order statistics over per-round timing samples.
package stats

import (
	"errors"
	"math"
	"slices"
)

var (
	// ErrNoSamples is returned when a statistic is requested over an empty sample set.
	ErrNoSamples = errors.New("stats: sample set is empty")

	// ErrNegativeSample is returned when a sample is below zero.
	ErrNegativeSample = errors.New("stats: negative sample")
)

// TimingStats holds the order statistics of one sample set, in nanoseconds.
type TimingStats struct {
	Min        int64   `json:"min"`
	Median     int64   `json:"median"`
	Max        int64   `json:"max"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"stddev"`
	StdPercent float64 `json:"stdPercent"`
}

// Compute returns the order statistics of samples.
//
// The median of an even-length set is the integer midpoint of the two middle
// elements. StdDev is the sample standard deviation (n-1 denominator) and is
// zero for a single sample. StdPercent is zero when the mean is zero.
//
// samples is not modified.
func Compute(samples []int64) (TimingStats, error) {
	if len(samples) == 0 {
		return TimingStats{}, ErrNoSamples
	}

	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	if sorted[0] < 0 {
		return TimingStats{}, ErrNegativeSample
	}

	n := len(sorted)
	mid := n / 2

	var median int64
	if n%2 == 1 {
		median = sorted[mid]
	} else {
		lo, hi := sorted[mid-1], sorted[mid]
		median = lo + (hi-lo)/2
	}

	var sum float64
	for _, v := range sorted {
		sum += float64(v)
	}
	mean := sum / float64(n)

	var stddev float64
	if n > 1 {
		var acc float64
		for _, v := range sorted {
			d := float64(v) - mean
			acc += d * d
		}
		stddev = math.Sqrt(acc / float64(n-1))
	}

	stdPercent := 0.0
	if mean != 0 {
		stdPercent = stddev / mean * 100
	}

	return TimingStats{
		Min:        sorted[0],
		Median:     median,
		Max:        sorted[n-1],
		Mean:       mean,
		StdDev:     stddev,
		StdPercent: stdPercent,
	}, nil
}
