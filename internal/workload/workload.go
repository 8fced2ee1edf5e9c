// Package workload provides the units of work a sweep drives: a Workload
// prepares a RoundRunner for one input size, and each round runs one
// encrypt/decrypt pair and reports how long each half took.
package workload

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrUnknownWorkload is returned by New for a name that is not registered.
	ErrUnknownWorkload = errors.New("unknown workload")

	// ErrRoundTrip is returned when decryption does not reproduce the plaintext.
	ErrRoundTrip = errors.New("decrypted output does not match plaintext")
)

// warmupRounds are run untimed by Prepare so the first measured round does
// not pay for lazy initialisation.
const warmupRounds = 3

// RoundSample is the timing of one round.
type RoundSample struct {
	EncryptNs int64
	DecryptNs int64
}

// RoundRunner executes one round at the size it was prepared for.
type RoundRunner interface {
	Run(round int) (RoundSample, error)
}

// RoundFunc adapts a function to RoundRunner.
type RoundFunc func(round int) (RoundSample, error)

// Run calls f(round).
func (f RoundFunc) Run(round int) (RoundSample, error) {
	return f(round)
}

// Workload prepares per-size round runners.
//
// Prepare does the expensive one-time setup for a size (key material,
// plaintext); the returned runner must not redo it between rounds.
type Workload interface {
	Name() string
	Prepare(sizeBytes int) (RoundRunner, error)
}

// Options tunes the workloads that take parameters. Zero fields take defaults.
type Options struct {
	// RSABits is the rsa-hybrid key size (default: 2048)
	RSABits int
}

var registry = map[string]func(Options) Workload{
	"aes-cbc":  func(Options) Workload { return NewAESCBC() },
	"aes-gcm":  func(Options) Workload { return NewAESGCM() },
	"chacha20": func(Options) Workload { return NewChaCha20() },
	"rsa-hybrid": func(o Options) Workload {
		if o.RSABits == 0 {
			o.RSABits = 2048
		}
		return NewRSAHybrid(o.RSABits)
	},
	"elgamal-hybrid": func(Options) Workload { return NewElGamalHybrid() },
}

// New returns the registered workload with the given name and default options.
func New(name string) (Workload, error) {
	return NewWithOptions(name, Options{})
}

// NewWithOptions returns the registered workload with the given name.
func NewWithOptions(name string, opts Options) (Workload, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownWorkload, name, Names())
	}
	return ctor(opts), nil
}

// Names lists the registered workloads in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func timed(fn func() error) (int64, error) {
	start := time.Now()
	err := fn()
	return time.Since(start).Nanoseconds(), err
}

func warmUp(run RoundFunc) (RoundRunner, error) {
	for i := 0; i < warmupRounds; i++ {
		if _, err := run(0); err != nil {
			return nil, fmt.Errorf("warm-up: %w", err)
		}
	}
	return run, nil
}
