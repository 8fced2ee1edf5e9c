package stats

import (
	"fmt"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	// histogram range: 1ns to 1h, 3 significant figures
	histogramMin     int64 = 1
	histogramMax     int64 = 3_600_000_000_000
	histogramSigFigs       = 3
)

// Percentiles are approximate latency quantiles in nanoseconds.
//
// They come from an HDR histogram and are only used for reporting; the CSV
// columns are produced by Compute.
type Percentiles struct {
	P50   int64 `json:"p50"`
	P90   int64 `json:"p90"`
	P99   int64 `json:"p99"`
	Count int64 `json:"count"`
}

// Distribution records samples into an HDR histogram and reads back p50, p90
// and p99. Values outside the histogram range are clamped.
func Distribution(samples []int64) (Percentiles, error) {
	if len(samples) == 0 {
		return Percentiles{}, ErrNoSamples
	}

	hist := hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)

	for _, v := range samples {
		if v < 0 {
			return Percentiles{}, ErrNegativeSample
		}
		if v < histogramMin {
			v = histogramMin
		}
		if v > histogramMax {
			v = histogramMax
		}
		if err := hist.RecordValue(v); err != nil {
			return Percentiles{}, fmt.Errorf("record %d: %w", v, err)
		}
	}

	return Percentiles{
		P50:   hist.ValueAtQuantile(50),
		P90:   hist.ValueAtQuantile(90),
		P99:   hist.ValueAtQuantile(99),
		Count: hist.TotalCount(),
	}, nil
}
