package hardware

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"kiln_controller/internal/models"
)

// Thermocouple reads a MAX31855-class converter through the Linux IIO sysfs
// interface (maxim_thermocouple driver). Values are raw counts multiplied by
// the channel's *_scale file, in milli-degrees.
type Thermocouple struct {
	tempPath     string
	internalPath string
	faultPath    string

	tempScale     float64
	internalScale float64
}

// NewThermocouple binds the sysfs attribute paths. faultPath is optional; when
// empty a failed read is reported as an open circuit, which is what the driver
// does on any converter fault.
func NewThermocouple(tempPath, internalPath, faultPath string) *Thermocouple {
	return &Thermocouple{
		tempPath:      tempPath,
		internalPath:  internalPath,
		faultPath:     faultPath,
		tempScale:     readScale(tempPath),
		internalScale: readScale(internalPath),
	}
}

func (t *Thermocouple) Read() (models.SensorSample, error) {
	internal := math.NaN()
	if t.internalPath != "" {
		if raw, err := readNumber(t.internalPath); err == nil {
			internal = raw * t.internalScale / 1000
		}
	}

	var code uint8
	if t.faultPath != "" {
		raw, err := readNumber(t.faultPath)
		if err != nil {
			return models.SensorSample{}, fmt.Errorf("read fault bits: %w", err)
		}
		code = uint8(raw)
	}

	raw, err := readNumber(t.tempPath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.SensorSample{}, fmt.Errorf("thermocouple not found: %w", err)
		}
		if code == 0 {
			code = models.FaultOpenCircuit
		}
		s := models.FaultSample(code)
		s.Internal = internal
		return s, nil
	}

	return models.SensorSample{
		Temperature: raw * t.tempScale / 1000,
		Internal:    internal,
		ErrorCode:   code,
	}, nil
}

func (t *Thermocouple) Close() error { return nil }

// readScale reads <channel>_scale next to a *_raw attribute, defaulting to 1.
func readScale(rawPath string) float64 {
	if rawPath == "" || !strings.HasSuffix(rawPath, "_raw") {
		return 1
	}
	scalePath := strings.TrimSuffix(rawPath, "_raw") + "_scale"
	v, err := readNumber(filepath.Clean(scalePath))
	if err != nil || v == 0 {
		return 1
	}
	return v
}

func readNumber(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
}
