package sweep

import (
	"github.com/wesleyorama2/wattbench/internal/bench/energy"
	"github.com/wesleyorama2/wattbench/internal/bench/result"
	"github.com/wesleyorama2/wattbench/internal/bench/stats"
)

// Report describes a finished (or partially finished) sweep.
type Report struct {
	Location string       `json:"location"`
	Mode     result.Mode  `json:"mode"`
	Spec     Spec         `json:"spec"`
	Workload string       `json:"workload"`
	Sizes    []SizeReport `json:"sizes"`
}

// SizeReport holds everything measured for one size.
type SizeReport struct {
	SizeBytes          int               `json:"sizeBytes"`
	Rounds             int               `json:"rounds"`
	Energy             energy.Result     `json:"energy"`
	Encrypt            stats.TimingStats `json:"encrypt"`
	Decrypt            stats.TimingStats `json:"decrypt"`
	EncryptPercentiles stats.Percentiles `json:"encryptPercentiles"`
	DecryptPercentiles stats.Percentiles `json:"decryptPercentiles"`
}

// TotalEnergy sums the energy of every completed size in mWh.
func (r *Report) TotalEnergy() float64 {
	var total float64
	for _, s := range r.Sizes {
		total += s.Energy.EnergyMilliWattHour
	}
	return total
}
