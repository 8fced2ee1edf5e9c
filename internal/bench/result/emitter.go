package result

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrAlreadyStarted is returned when Start is called twice on one emitter.
	ErrAlreadyStarted = errors.New("emitter already started")

	// ErrNotStarted is returned when Emit is called before Start.
	ErrNotStarted = errors.New("emitter not started")

	// ErrModeMismatch is returned when a row does not belong to the active schema.
	ErrModeMismatch = errors.New("row does not match output mode")
)

// Emitter writes a header once and then rows of the same schema.
type Emitter interface {
	// Start fixes the schema, resets the destination and writes the header.
	Start(mode Mode) error

	// Emit appends one row. The row is flushed to the sink, and synced when the
	// sink is a file, before Emit returns.
	Emit(row Row) error

	// Location identifies the destination (a file path for file emitters).
	Location() string
}

// CSVEmitter writes comma-separated rows to a file or an io.Writer.
//
// It is not safe for concurrent use; one sweep owns one emitter.
type CSVEmitter struct {
	path string
	name string

	out    io.Writer
	file   *os.File
	csv    *csv.Writer
	mode   Mode
	active bool
}

// NewFileEmitter returns an emitter that (re)creates path on Start. The
// parent directory must already exist.
func NewFileEmitter(path string) *CSVEmitter {
	return &CSVEmitter{path: path, name: path}
}

// NewWriterEmitter returns an emitter writing to w. name is reported by
// Location.
func NewWriterEmitter(w io.Writer, name string) *CSVEmitter {
	return &CSVEmitter{out: w, name: name}
}

// Start truncates the destination and writes the header for mode.
func (e *CSVEmitter) Start(mode Mode) error {
	if e.active {
		return fmt.Errorf("%w (mode %s)", ErrAlreadyStarted, e.mode)
	}

	header := Header(mode)
	if header == nil {
		return fmt.Errorf("unknown output mode %q", mode)
	}

	if e.path != "" {
		f, err := os.Create(e.path)
		if err != nil {
			return fmt.Errorf("create %s: %w", e.path, err)
		}
		e.file = f
		e.out = f
	}

	e.csv = csv.NewWriter(e.out)
	e.mode = mode
	e.active = true

	if err := e.write(header); err != nil {
		e.reset()
		return fmt.Errorf("write header: %w", err)
	}

	return nil
}

// reset returns the emitter to its pre-Start state after a failed Start.
func (e *CSVEmitter) reset() {
	if e.file != nil {
		_ = e.file.Close()
		e.file = nil
		e.out = nil
	}
	e.csv = nil
	e.mode = ""
	e.active = false
}

// Emit writes one row and flushes it.
func (e *CSVEmitter) Emit(row Row) error {
	if !e.active {
		return ErrNotStarted
	}
	if row.Mode() != e.mode {
		return fmt.Errorf("%w: got %s row, emitting %s", ErrModeMismatch, row.Mode(), e.mode)
	}

	if err := e.write(row.Record()); err != nil {
		return fmt.Errorf("write row to %s: %w", e.name, err)
	}

	return nil
}

// Mode returns the active schema, or "" before Start.
func (e *CSVEmitter) Mode() Mode {
	return e.mode
}

func (e *CSVEmitter) Location() string {
	return e.name
}

// Close closes the underlying file, if the emitter opened one.
func (e *CSVEmitter) Close() error {
	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file = nil
	return err
}

func (e *CSVEmitter) write(record []string) error {
	if err := e.csv.Write(record); err != nil {
		return err
	}
	e.csv.Flush()
	if err := e.csv.Error(); err != nil {
		return err
	}
	if e.file != nil {
		return e.file.Sync()
	}
	return nil
}
