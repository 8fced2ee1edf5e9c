package jsonpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifest = `{
	"workload": "aes-gcm",
	"mode": "aggregate",
	"spec": {"minPow": 10, "maxPow": 11, "rounds": 3},
	"energy.source": "rapl:intel-rapl:0",
	"note": null,
	"sizes": [
		{"sizeBytes": 1024, "energy": {"method": "COUNTER", "mWh": 0.25}},
		{"sizeBytes": 2048, "energy": {"method": "INTEGRATION", "mWh": 0.5}}
	]
}`

func TestCompile(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "$", want: "@this"},
		{path: "$.workload", want: "workload"},
		{path: "$.sizes[0].energy.method", want: "sizes.0.energy.method"},
		{path: "$.sizes[*].sizeBytes", want: "sizes.#.sizeBytes"},
		{path: "$.sizes.length", want: "sizes.#"},
		{path: "$['energy.source']", want: `energy\.source`},
		{path: `$["spec"]["rounds"]`, want: "spec.rounds"},
		{path: " $.mode ", want: "mode"},
		{path: "", wantErr: true},
		{path: "workload", wantErr: true},
		{path: "$.sizes[0", wantErr: true},
		{path: "$.sizes[?(@.x)]", wantErr: true},
		{path: "$..mode", wantErr: true},
		{path: "$x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := Compile(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract(t *testing.T) {
	doc := []byte(manifest)

	tests := []struct {
		path string
		want string
	}{
		{path: "$.workload", want: "aes-gcm"},
		{path: "$.spec.rounds", want: "3"},
		{path: "$.sizes[1].energy.method", want: "INTEGRATION"},
		{path: "$.sizes[0].energy.mWh", want: "0.25"},
		{path: "$.sizes[*].sizeBytes", want: "[1024,2048]"},
		{path: "$.sizes.length", want: "2"},
		{path: "$['energy.source']", want: "rapl:intel-rapl:0"},
		{path: "$.note", want: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := Extract(doc, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_Errors(t *testing.T) {
	_, err := Extract(nil, "$.workload")
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = Extract([]byte("{not json"), "$.workload")
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = Extract([]byte(manifest), "$.sizes[5].energy")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Extract([]byte(manifest), "sizes")
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	res, err := Query([]byte(manifest), "$.sizes[0].energy.mWh")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, res.Float(), 1e-12)
}

func TestExtractMultiple(t *testing.T) {
	got, err := ExtractMultiple([]byte(manifest), map[string]string{
		"workload": "$.workload",
		"first":    "$.sizes[0].sizeBytes",
		"missing":  "$.nope",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "missing")
	assert.Equal(t, map[string]string{"workload": "aes-gcm", "first": "1024"}, got)

	_, err = ExtractMultiple([]byte(manifest), nil)
	assert.Error(t, err)
}
