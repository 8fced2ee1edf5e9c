package energy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultSysfsRoot is where the kernel exposes power_supply and powercap.
const DefaultSysfsRoot = "/sys"

// Source kinds accepted by Open.
const (
	KindAuto    = "auto"
	KindBattery = "battery"
	KindRAPL    = "rapl"
	KindNone    = "none"
)

// ErrNoSource is returned by Open when the requested source kind is absent.
var ErrNoSource = errors.New("energy: source not found")

// Battery reads a power_supply battery node such as
// /sys/class/power_supply/BAT0.
//
// energy_now is in µWh, current_now in µA and voltage_now in µV.
type Battery struct {
	Dir string
}

func (b Battery) EnergyCounter() (int64, bool) {
	uWh, ok := readInt(filepath.Join(b.Dir, "energy_now"))
	if !ok {
		return 0, false
	}
	return uWh * 1000, true
}

func (b Battery) Current() (int64, bool) {
	return readInt(filepath.Join(b.Dir, "current_now"))
}

func (b Battery) Voltage() (int64, bool) {
	uV, ok := readInt(filepath.Join(b.Dir, "voltage_now"))
	if !ok || uV <= 0 {
		return 0, false
	}
	return uV / 1000, true
}

// RAPL reads a powercap zone such as /sys/class/powercap/intel-rapl:0.
// It only provides the energy counter.
type RAPL struct {
	Dir string
}

// EnergyCounter converts energy_uj to nWh (1 nWh = 3.6 µJ).
func (r RAPL) EnergyCounter() (int64, bool) {
	uJ, ok := readInt(filepath.Join(r.Dir, "energy_uj"))
	if !ok {
		return 0, false
	}
	return uJ * 10 / 36, true
}

// CounterRange converts max_energy_range_uj to nWh; energy_uj wraps there.
func (r RAPL) CounterRange() (int64, bool) {
	uJ, ok := readInt(filepath.Join(r.Dir, "max_energy_range_uj"))
	if !ok || uJ <= 0 {
		return 0, false
	}
	return uJ * 10 / 36, true
}

func (RAPL) Current() (int64, bool) { return 0, false }
func (RAPL) Voltage() (int64, bool) { return 0, false }

// Open returns the Source for kind under the sysfs root, and a short
// description of what was selected.
func Open(kind, root string) (Source, string, error) {
	if root == "" {
		root = DefaultSysfsRoot
	}

	switch kind {
	case KindNone:
		return Unavailable{}, KindNone, nil

	case KindBattery:
		dir, ok := findBattery(root)
		if !ok {
			return nil, "", fmt.Errorf("%w: no battery under %s", ErrNoSource, root)
		}
		return Battery{Dir: dir}, KindBattery + ":" + filepath.Base(dir), nil

	case KindRAPL:
		dir, ok := findRAPL(root)
		if !ok {
			return nil, "", fmt.Errorf("%w: no powercap zone under %s", ErrNoSource, root)
		}
		return RAPL{Dir: dir}, KindRAPL + ":" + filepath.Base(dir), nil

	case KindAuto, "":
		if dir, ok := findBattery(root); ok {
			return Battery{Dir: dir}, KindBattery + ":" + filepath.Base(dir), nil
		}
		if dir, ok := findRAPL(root); ok {
			return RAPL{Dir: dir}, KindRAPL + ":" + filepath.Base(dir), nil
		}
		return Unavailable{}, KindNone, nil

	default:
		return nil, "", fmt.Errorf("unknown energy source kind: %s", kind)
	}
}

// findBattery returns the first power_supply node of type Battery that
// exposes an energy counter or a current reading.
func findBattery(root string) (string, bool) {
	nodes, _ := filepath.Glob(filepath.Join(root, "class", "power_supply", "*"))
	sort.Strings(nodes)

	for _, dir := range nodes {
		typ, err := os.ReadFile(filepath.Join(dir, "type"))
		if err != nil || strings.TrimSpace(string(typ)) != "Battery" {
			continue
		}
		if fileExists(filepath.Join(dir, "energy_now")) || fileExists(filepath.Join(dir, "current_now")) {
			return dir, true
		}
	}

	return "", false
}

func findRAPL(root string) (string, bool) {
	zones, _ := filepath.Glob(filepath.Join(root, "class", "powercap", "intel-rapl:*"))
	sort.Strings(zones)

	for _, dir := range zones {
		// package-level zones only; subzones are named intel-rapl:0:0
		if strings.Count(filepath.Base(dir), ":") != 1 {
			continue
		}
		if _, ok := readInt(filepath.Join(dir, "energy_uj")); ok {
			return dir, true
		}
	}

	return "", false
}

func readInt(path string) (int64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
