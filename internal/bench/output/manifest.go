package output

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/wesleyorama2/wattbench/internal/bench/result"
	"github.com/wesleyorama2/wattbench/internal/bench/sweep"
)

// ManifestVersion is bumped when the manifest layout changes incompatibly.
const ManifestVersion = 1

// Manifest is the JSON sidecar written next to a sweep's CSV.
type Manifest struct {
	ManifestVersion int                `json:"manifestVersion"`
	RunID           string             `json:"runId"`
	Tool            string             `json:"tool"`
	CreatedAt       time.Time          `json:"createdAt"`
	CSV             string             `json:"csv"`
	Workload        string             `json:"workload"`
	Mode            string             `json:"mode"`
	Spec            sweep.Spec         `json:"spec"`
	EnergySource    string             `json:"energySource"`
	TotalEnergy     float64            `json:"totalEnergyMWh"`
	Complete        bool               `json:"complete"`
	Error           string             `json:"error,omitempty"`
	Sizes           []sweep.SizeReport `json:"sizes"`
}

// ManifestPath returns the sidecar path for a CSV file.
func ManifestPath(csvPath string) string {
	return csvPath + ".json"
}

// NewManifest builds a manifest from a (possibly partial) report. runErr is
// the error the sweep ended with, if any.
func NewManifest(tool, source string, report *sweep.Report, runErr error, now time.Time) *Manifest {
	m := &Manifest{
		ManifestVersion: ManifestVersion,
		RunID:           uuid.NewString(),
		Tool:            tool,
		CreatedAt:       now.UTC(),
		CSV:             report.Location,
		Workload:        report.Workload,
		Mode:            string(report.Mode),
		Spec:            report.Spec,
		EnergySource:    source,
		TotalEnergy:     report.TotalEnergy(),
		Complete:        runErr == nil,
		Sizes:           report.Sizes,
	}
	if runErr != nil {
		m.Error = runErr.Error()
	}
	if m.Sizes == nil {
		m.Sizes = []sweep.SizeReport{}
	}
	return m
}

// Report rebuilds the sweep report the manifest was made from.
func (m *Manifest) Report() *sweep.Report {
	return &sweep.Report{
		Location: m.CSV,
		Mode:     result.Mode(m.Mode),
		Spec:     m.Spec,
		Workload: m.Workload,
		Sizes:    m.Sizes,
	}
}

// WriteManifest writes m as indented JSON to path, replacing any existing file.
func WriteManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	if m.ManifestVersion != ManifestVersion {
		return nil, fmt.Errorf("manifest %s has version %d, want %d", path, m.ManifestVersion, ManifestVersion)
	}
	return &m, nil
}
