package energy

import (
	"context"
	"sync/atomic"
	"time"
)

type integration struct {
	ticks  int
	joules float64
}

// sampler integrates power between consecutive current samples.
//
// Its fields are owned by the sampling goroutine; the measuring goroutine only
// reads the published snapshot.
type sampler struct {
	source Source
	now    func() time.Time

	lastT  time.Time
	lastI  int64 // µA
	lastV  int64 // mV
	ticks  int
	joules float64

	published atomic.Pointer[integration]
}

func newSampler(source Source, now func() time.Time, current, voltage int64) *sampler {
	s := &sampler{
		source: source,
		now:    now,
		lastT:  now(),
		lastI:  current,
		lastV:  voltage,
	}
	s.published.Store(&integration{})

	return s
}

// run ticks every interval until stop is closed, then books the tail since the
// last tick. A cancelled ctx ends sampling without the closing tick.
func (s *sampler) run(
	ctx context.Context,
	interval time.Duration,
	stop <-chan struct{},
	done chan<- struct{},
) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			if ctx.Err() == nil {
				s.tick()
			}
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick takes one sample and adds the trapezoid since the previous one.
func (s *sampler) tick() {
	now := s.now()

	current, ok := s.source.Current()
	if !ok {
		current = s.lastI
	}
	if v, ok := s.source.Voltage(); ok && v > 0 {
		s.lastV = v
	}

	dt := now.Sub(s.lastT).Seconds()
	if dt < 0 {
		dt = 0
	}

	avgAmps := (float64(abs(s.lastI)) + float64(abs(current))) / 2 / 1e6
	volts := float64(s.lastV) / 1000

	s.joules += volts * avgAmps * dt
	s.ticks++
	s.lastT = now
	s.lastI = current

	s.published.Store(&integration{ticks: s.ticks, joules: s.joules})
}

func (s *sampler) snapshot() integration {
	return *s.published.Load()
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
