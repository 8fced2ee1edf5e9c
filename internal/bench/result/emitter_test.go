package result

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/wattbench/internal/bench/stats"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "aggregate", want: ModeAggregate},
		{in: "per-round", want: ModePerRound},
		{in: "", wantErr: true},
		{in: "rounds", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeader(t *testing.T) {
	assert.Len(t, Header(ModeAggregate), 10)
	assert.Len(t, Header(ModePerRound), 5)
	assert.Nil(t, Header("bogus"))

	h := Header(ModePerRound)
	h[0] = "mutated"
	assert.Equal(t, "size_bytes", Header(ModePerRound)[0], "Header must return a copy")
}

func TestAggregateRow_Record(t *testing.T) {
	row := AggregateRow{
		SizeBytes:           1024,
		Enc:                 stats.TimingStats{Min: 10, Median: 25, Max: 40, StdDev: 12.9},
		Dec:                 stats.TimingStats{Min: 1, Median: 2, Max: 3, StdDev: 1},
		EnergyMilliWattHour: 0.5,
	}

	assert.Equal(t,
		[]string{"1024", "10", "25", "40", "12", "1", "2", "3", "1", "0.500000"},
		row.Record())
	assert.Len(t, row.Record(), len(Header(ModeAggregate)))
}

func TestRoundRow_Record(t *testing.T) {
	row := RoundRow{SizeBytes: 2048, RoundIndex: 3, EncryptNs: 100, DecryptNs: 200, EnergyMilliWattHour: 1.0 / 3}

	assert.Equal(t, []string{"2048", "3", "100", "200", "0.333333"}, row.Record())
	assert.Len(t, row.Record(), len(Header(ModePerRound)))
}

func TestCSVEmitter_Writer(t *testing.T) {
	var buf bytes.Buffer
	e := NewWriterEmitter(&buf, "buffer")

	require.NoError(t, e.Start(ModePerRound))
	require.NoError(t, e.Emit(RoundRow{SizeBytes: 1, RoundIndex: 1, EncryptNs: 5, DecryptNs: 6}))

	assert.Equal(t,
		"size_bytes,round_index,enc_ns,dec_ns,energy_mWh\n1,1,5,6,0.000000\n",
		buf.String())
	assert.Equal(t, "buffer", e.Location())
	assert.Equal(t, ModePerRound, e.Mode())
}

func TestCSVEmitter_Errors(t *testing.T) {
	var buf bytes.Buffer
	e := NewWriterEmitter(&buf, "buffer")

	err := e.Emit(RoundRow{})
	assert.ErrorIs(t, err, ErrNotStarted)

	assert.Error(t, e.Start("bogus"))
	assert.Empty(t, buf.String())

	require.NoError(t, e.Start(ModeAggregate))
	assert.ErrorIs(t, e.Start(ModeAggregate), ErrAlreadyStarted)
	assert.ErrorIs(t, e.Emit(RoundRow{}), ErrModeMismatch)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1, "only the header is written")
}

func TestCSVEmitter_FileTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale,data\n1,2\n3,4\n"), 0o644))

	e := NewFileEmitter(path)
	require.NoError(t, e.Start(ModeAggregate))
	require.NoError(t, e.Emit(AggregateRow{SizeBytes: 1024}))

	// Each row is flushed before Emit returns.
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Header(ModeAggregate), records[0])
	assert.Equal(t, "1024", records[1][0])

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.Equal(t, path, e.Location())
}

func TestCSVEmitter_MissingDirectory(t *testing.T) {
	e := NewFileEmitter(filepath.Join(t.TempDir(), "missing", "out.csv"))
	err := e.Start(ModeAggregate)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestCSVEmitter_SinkFailure(t *testing.T) {
	e := NewWriterEmitter(failingWriter{}, "broken")
	err := e.Start(ModePerRound)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

// flakyWriter fails the first write and accepts the rest.
type flakyWriter struct {
	failed bool
	buf    strings.Builder
}

func (w *flakyWriter) Write(p []byte) (int, error) {
	if !w.failed {
		w.failed = true
		return 0, errors.New("transient")
	}
	return w.buf.Write(p)
}

func TestCSVEmitter_FailedStartIsNotActive(t *testing.T) {
	w := &flakyWriter{}
	e := NewWriterEmitter(w, "flaky")

	require.Error(t, e.Start(ModeAggregate))
	assert.Equal(t, Mode(""), e.Mode())
	assert.ErrorIs(t, e.Emit(RoundRow{SizeBytes: 16, RoundIndex: 1}), ErrNotStarted)

	require.NoError(t, e.Start(ModePerRound))
	require.NoError(t, e.Emit(RoundRow{SizeBytes: 16, RoundIndex: 1}))
	assert.Equal(t, ModePerRound, e.Mode())
	assert.True(t, strings.HasPrefix(w.buf.String(), strings.Join(Header(ModePerRound), ",")+"\n"))
}

func TestCSVEmitter_FileRowsOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.csv")
	e := NewFileEmitter(path)
	require.NoError(t, e.Start(ModePerRound))
	require.NoError(t, e.Emit(RoundRow{SizeBytes: 16, RoundIndex: 1, EncryptNs: 5, DecryptNs: 6}))

	// readable before Close
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
	require.NoError(t, e.Close())
}
