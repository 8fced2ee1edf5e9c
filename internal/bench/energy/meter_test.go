package energy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource scripts readings per call and counts every call.
type fakeSource struct {
	counter func(call int64) (int64, bool)
	current func(call int64) (int64, bool)
	voltage func(call int64) (int64, bool)

	counterCalls atomic.Int64
	currentCalls atomic.Int64
	voltageCalls atomic.Int64
}

func (f *fakeSource) EnergyCounter() (int64, bool) {
	n := f.counterCalls.Add(1)
	if f.counter == nil {
		return 0, false
	}
	return f.counter(n)
}

func (f *fakeSource) Current() (int64, bool) {
	n := f.currentCalls.Add(1)
	if f.current == nil {
		return 0, false
	}
	return f.current(n)
}

func (f *fakeSource) Voltage() (int64, bool) {
	n := f.voltageCalls.Add(1)
	if f.voltage == nil {
		return 0, false
	}
	return f.voltage(n)
}

// fakeClock is safe for use from the sampler goroutine.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() Config {
	return Config{
		SampleInterval:       5 * time.Millisecond,
		JoinTimeout:          50 * time.Millisecond,
		DefaultVoltageMilliV: 4000,
	}
}

func TestNewMeter_Defaults(t *testing.T) {
	m := NewMeter(nil, Config{}, nil)

	cfg := m.Config()
	assert.Equal(t, 100*time.Millisecond, cfg.SampleInterval)
	assert.Equal(t, 200*time.Millisecond, cfg.JoinTimeout)
	assert.Equal(t, int64(4000), cfg.DefaultVoltageMilliV)

	m = NewMeter(nil, Config{SampleInterval: 30 * time.Millisecond}, nil)
	assert.Equal(t, 60*time.Millisecond, m.Config().JoinTimeout)
}

func TestMeasure_CounterMode(t *testing.T) {
	src := &fakeSource{
		counter: func(call int64) (int64, bool) {
			// discharging: the counter goes down by 3,000,000 nWh
			if call == 1 {
				return 5_000_000, true
			}
			return 2_000_000, true
		},
		current: func(int64) (int64, bool) { return 1000, true },
		voltage: func(int64) (int64, bool) { return 3800, true },
	}

	m := NewMeter(src, testConfig(), nil)

	calls := 0
	res, err := m.Measure(context.Background(), func() error {
		calls++
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, MethodCounter, res.Method)
	assert.Equal(t, 2, res.Samples)
	assert.InDelta(t, 3.0, res.EnergyMilliWattHour, 1e-12)
	assert.GreaterOrEqual(t, res.Duration, 20*time.Millisecond)

	// no sampling happened
	time.Sleep(4 * testConfig().SampleInterval)
	assert.Equal(t, int64(0), src.currentCalls.Load())
	assert.Equal(t, int64(0), src.voltageCalls.Load())
	assert.Equal(t, int64(2), src.counterCalls.Load())
}

func TestMeasure_CounterModeReturnsBlockError(t *testing.T) {
	src := &fakeSource{
		counter: func(call int64) (int64, bool) { return 100 * call, true },
	}
	m := NewMeter(src, testConfig(), nil)

	boom := errors.New("boom")
	res, err := m.Measure(context.Background(), func() error { return boom })

	require.ErrorIs(t, err, boom)
	assert.Equal(t, MethodCounter, res.Method)
}

func TestMeasure_AllUnavailable(t *testing.T) {
	m := NewMeter(Unavailable{}, testConfig(), nil)

	var res Result
	var err error
	require.NotPanics(t, func() {
		res, err = m.Measure(context.Background(), func() error {
			time.Sleep(30 * time.Millisecond)
			return nil
		})
	})
	require.NoError(t, err)

	assert.Equal(t, MethodIntegration, res.Method)
	assert.GreaterOrEqual(t, res.EnergyMilliWattHour, 0.0)
	assert.GreaterOrEqual(t, res.Samples, 1)
}

func TestMeasure_IntegrationSamplesDuringBlock(t *testing.T) {
	// 1 A at 5 V is 5 W
	src := &fakeSource{
		current: func(int64) (int64, bool) { return -1_000_000, true },
		voltage: func(int64) (int64, bool) { return 5000, true },
	}
	cfg := testConfig()
	cfg.SampleInterval = 10 * time.Millisecond
	cfg.JoinTimeout = 100 * time.Millisecond
	m := NewMeter(src, cfg, nil)

	res, err := m.Measure(context.Background(), func() error {
		time.Sleep(100 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, MethodIntegration, res.Method)
	assert.GreaterOrEqual(t, res.Samples, 3)

	// 5 W over the whole block, tail after the last tick included
	want := 5 * res.Duration.Seconds() / 3.6
	assert.GreaterOrEqual(t, res.EnergyMilliWattHour, want*0.9)
	assert.LessOrEqual(t, res.EnergyMilliWattHour, want*1.2)
}

func TestMeasure_IntegrationBlockShorterThanInterval(t *testing.T) {
	// 1 A at 4 V is 4 W
	src := &fakeSource{
		current: func(int64) (int64, bool) { return 1_000_000, true },
		voltage: func(int64) (int64, bool) { return 4000, true },
	}
	cfg := testConfig()
	cfg.SampleInterval = 500 * time.Millisecond
	cfg.JoinTimeout = time.Second
	m := NewMeter(src, cfg, nil)

	res, err := m.Measure(context.Background(), func() error {
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, MethodIntegration, res.Method)
	assert.Equal(t, 2, res.Samples, "initial reading plus the closing tick")

	want := 4 * res.Duration.Seconds() / 3.6
	assert.Greater(t, res.EnergyMilliWattHour, 0.0)
	assert.GreaterOrEqual(t, res.EnergyMilliWattHour, want*0.9)
}

func TestSampler_ClosingTickOnStop(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	src := &fakeSource{
		current: func(int64) (int64, bool) { return 2_000_000, true },
	}
	s := newSampler(src, clock.Now, 2_000_000, 5000)

	stop := make(chan struct{})
	done := make(chan struct{})
	go s.run(context.Background(), time.Hour, stop, done)

	// 5 V * 2 A * 3 s = 30 J, booked only by the tick on stop
	clock.Advance(3 * time.Second)
	close(stop)
	<-done

	snap := s.snapshot()
	assert.Equal(t, 1, snap.ticks)
	assert.InDelta(t, 30.0, snap.joules, 1e-9)
}

func TestSampler_CancelledSkipsClosingTick(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	src := &fakeSource{
		current: func(int64) (int64, bool) { return 2_000_000, true },
	}
	s := newSampler(src, clock.Now, 2_000_000, 5000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stop := make(chan struct{})
	done := make(chan struct{})
	close(stop)
	s.run(ctx, time.Hour, stop, done)

	<-done
	assert.Equal(t, 0, s.snapshot().ticks)
	assert.Equal(t, int64(0), src.currentCalls.Load())
}

func TestMeasure_BlockErrorStopsSampler(t *testing.T) {
	src := &fakeSource{
		current: func(int64) (int64, bool) { return 500_000, true },
	}
	m := NewMeter(src, testConfig(), nil)

	boom := errors.New("round failed")
	res, err := m.Measure(context.Background(), func() error {
		time.Sleep(25 * time.Millisecond)
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, MethodIntegration, res.Method)

	before := src.currentCalls.Load()
	time.Sleep(6 * testConfig().SampleInterval)
	assert.Equal(t, before, src.currentCalls.Load(), "sampler kept running after Measure returned")
}

func TestMeasure_PanicStopsSampler(t *testing.T) {
	src := &fakeSource{
		current: func(int64) (int64, bool) { return 500_000, true },
	}
	m := NewMeter(src, testConfig(), nil)

	assert.Panics(t, func() {
		_, _ = m.Measure(context.Background(), func() error {
			time.Sleep(15 * time.Millisecond)
			panic("workload exploded")
		})
	})

	// let an in-flight tick finish, then the count must stay put
	time.Sleep(2 * testConfig().SampleInterval)
	before := src.currentCalls.Load()
	time.Sleep(6 * testConfig().SampleInterval)
	assert.Equal(t, before, src.currentCalls.Load())
}

func TestMeasure_CounterLostAfterBlock(t *testing.T) {
	src := &fakeSource{
		counter: func(call int64) (int64, bool) {
			if call == 1 {
				return 1_000_000, true
			}
			return 0, false
		},
	}
	m := NewMeter(src, testConfig(), nil)

	calls := 0
	res, err := m.Measure(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "block must run exactly once")
	assert.Equal(t, MethodIntegration, res.Method)
	assert.Equal(t, 0.0, res.EnergyMilliWattHour)
	assert.Equal(t, 1, res.Samples)
}

func TestMeasure_JoinTimeout(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSource{
		current: func(call int64) (int64, bool) {
			if call > 1 {
				// the sampler wedges inside a read
				<-release
			}
			return 1_000_000, true
		},
	}
	defer close(release)

	cfg := testConfig()
	cfg.JoinTimeout = 20 * time.Millisecond
	m := NewMeter(src, cfg, nil)

	start := time.Now()
	res, err := m.Measure(context.Background(), func() error {
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, MethodIntegration, res.Method)
	assert.GreaterOrEqual(t, res.Samples, 1)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestMeasure_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{
		current: func(int64) (int64, bool) { return 1_000_000, true },
	}
	m := NewMeter(src, testConfig(), nil)

	calls := 0
	res, err := m.Measure(ctx, func() error {
		calls++
		time.Sleep(20 * time.Millisecond)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, MethodIntegration, res.Method)
	assert.Equal(t, 1, res.Samples)
}

func TestMeasure_FakeClockDuration(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	src := &fakeSource{
		counter: func(call int64) (int64, bool) { return 10 * call, true },
	}
	m := NewMeter(src, testConfig(), nil)
	m.now = clock.Now

	res, err := m.Measure(context.Background(), func() error {
		clock.Advance(1500 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1500), res.DurationMs)
	assert.InDelta(t, 10.0/1e6, res.EnergyMilliWattHour, 1e-15)
}

func TestSampler_Trapezoid(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}

	currents := []int64{1_000_000, -3_000_000}
	src := &fakeSource{
		current: func(call int64) (int64, bool) { return currents[call-1], true },
		voltage: func(int64) (int64, bool) { return 0, false },
	}

	s := newSampler(src, clock.Now, 0, 4000)

	// 4 V * (0 + 1 A)/2 * 1 s = 2 J
	clock.Advance(time.Second)
	s.tick()
	assert.InDelta(t, 2.0, s.snapshot().joules, 1e-9)

	// 4 V * (1 A + 3 A)/2 * 2 s = 16 J
	clock.Advance(2 * time.Second)
	s.tick()

	snap := s.snapshot()
	assert.Equal(t, 2, snap.ticks)
	assert.InDelta(t, 18.0, snap.joules, 1e-9)
}

func TestSampler_NegativeElapsedClamped(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	src := &fakeSource{
		current: func(int64) (int64, bool) { return 2_000_000, true },
	}

	s := newSampler(src, clock.Now, 2_000_000, 5000)

	clock.Advance(-time.Second)
	s.tick()

	snap := s.snapshot()
	assert.Equal(t, 1, snap.ticks)
	assert.Equal(t, 0.0, snap.joules)
}

func TestSampler_FallsBackToLastReadings(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	src := &fakeSource{
		current: func(call int64) (int64, bool) {
			if call == 1 {
				return 1_000_000, true
			}
			return 0, false
		},
		voltage: func(call int64) (int64, bool) {
			if call == 1 {
				return 3000, true
			}
			return 0, false
		},
	}

	s := newSampler(src, clock.Now, 1_000_000, 4000)

	// voltage read succeeds: 3 V * 1 A * 1 s
	clock.Advance(time.Second)
	s.tick()
	assert.InDelta(t, 3.0, s.snapshot().joules, 1e-9)

	// both reads fail: last current 1 A, last voltage 3 V
	clock.Advance(time.Second)
	s.tick()
	assert.InDelta(t, 6.0, s.snapshot().joules, 1e-9)
}

// wrappingSource adds a counter range to fakeSource.
type wrappingSource struct {
	*fakeSource
	limit int64
}

func (w wrappingSource) CounterRange() (int64, bool) { return w.limit, w.limit > 0 }

func TestMeasure_CounterDelta(t *testing.T) {
	counter := func(start, end int64) func(int64) (int64, bool) {
		return func(call int64) (int64, bool) {
			if call == 1 {
				return start, true
			}
			return end, true
		}
	}

	tests := []struct {
		name       string
		source     Source
		wantMethod Method
		wantMWh    float64
	}{
		{
			name:       "battery falls",
			source:     &fakeSource{counter: counter(5_000_000, 4_000_000)},
			wantMethod: MethodCounter,
			wantMWh:    1,
		},
		{
			name:       "wrapping counter grows",
			source:     wrappingSource{&fakeSource{counter: counter(1_000_000, 3_000_000)}, 10_000_000},
			wantMethod: MethodCounter,
			wantMWh:    2,
		},
		{
			name:       "wrapping counter wrapped",
			source:     wrappingSource{&fakeSource{counter: counter(9_000_000, 500_000)}, 10_000_000},
			wantMethod: MethodCounter,
			wantMWh:    1.5,
		},
		{
			name:       "wrap without range",
			source:     wrappingSource{&fakeSource{counter: counter(9_000_000, 500_000)}, 0},
			wantMethod: MethodIntegration,
			wantMWh:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMeter(tt.source, testConfig(), nil)
			res, err := m.Measure(context.Background(), func() error { return nil })
			require.NoError(t, err)

			assert.Equal(t, tt.wantMethod, res.Method)
			assert.InDelta(t, tt.wantMWh, res.EnergyMilliWattHour, 1e-12)
		})
	}
}
