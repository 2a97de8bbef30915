package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/follow.report/internal/idm"
	"github.com/banshee-data/follow.report/internal/rotation"
	"github.com/banshee-data/follow.report/internal/simulate"
	"github.com/banshee-data/follow.report/internal/units"
)

// SimConfig is the JSON configuration for a simulation run. Every field is
// optional; omitted fields fall back to the defaults in the Get* methods so
// partial files are safe.
type SimConfig struct {
	// Model parameters
	V0 *float64 `json:"v0,omitempty"`
	T  *float64 `json:"t,omitempty"`
	S0 *float64 `json:"s0,omitempty"`
	A  *float64 `json:"a,omitempty"`
	B  *float64 `json:"b,omitempty"`

	// Integration
	DT     *float64 `json:"dt,omitempty"`
	GapMin *float64 `json:"gap_min,omitempty"`

	// Boundary
	RotationDeg *float64 `json:"rotation_deg,omitempty"`
	SpeedUnit   *string  `json:"speed_unit,omitempty"` // unit of speeds in the CSV files

	// Batch
	Workers *int `json:"workers,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultSimConfig returns a SimConfig with every field set to its default.
func DefaultSimConfig() *SimConfig {
	p := idm.DefaultParams()
	return &SimConfig{
		V0:          ptrFloat64(p.V0),
		T:           ptrFloat64(p.T),
		S0:          ptrFloat64(p.S0),
		A:           ptrFloat64(p.A),
		B:           ptrFloat64(p.B),
		DT:          ptrFloat64(simulate.DefaultDT),
		GapMin:      ptrFloat64(simulate.DefaultGapMin),
		RotationDeg: ptrFloat64(rotation.DefaultAngleDeg),
		SpeedUnit:   ptrString(units.KMPH),
		Workers:     ptrInt(4),
	}
}

// LoadSimConfig loads a SimConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadSimConfig(path string) (*SimConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &SimConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *SimConfig) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if dt := c.GetDT(); !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("dt must be positive, got %f", dt)
	}
	if g := c.GetGapMin(); g < 0 || math.IsNaN(g) || math.IsInf(g, 0) {
		return fmt.Errorf("gap_min must be non-negative, got %f", g)
	}
	if r := c.GetRotationDeg(); math.IsNaN(r) || math.IsInf(r, 0) {
		return fmt.Errorf("rotation_deg must be finite, got %f", r)
	}
	if err := units.Validate(c.GetSpeedUnit()); err != nil {
		return err
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	return nil
}

func getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// Params returns the model parameters, falling back to the defaults.
func (c *SimConfig) Params() idm.Params {
	def := idm.DefaultParams()
	return idm.Params{
		V0: getFloat(c.V0, def.V0),
		T:  getFloat(c.T, def.T),
		S0: getFloat(c.S0, def.S0),
		A:  getFloat(c.A, def.A),
		B:  getFloat(c.B, def.B),
	}
}

// GetDT returns the integration step (s) or the default.
func (c *SimConfig) GetDT() float64 {
	return getFloat(c.DT, simulate.DefaultDT)
}

// GetGapMin returns the gap floor (m) or the default.
func (c *SimConfig) GetGapMin() float64 {
	return getFloat(c.GapMin, simulate.DefaultGapMin)
}

// GetRotationDeg returns the road heading or the default.
func (c *SimConfig) GetRotationDeg() float64 {
	return getFloat(c.RotationDeg, rotation.DefaultAngleDeg)
}

// GetSpeedUnit returns the CSV speed unit or the default.
func (c *SimConfig) GetSpeedUnit() string {
	if c.SpeedUnit == nil || *c.SpeedUnit == "" {
		return units.KMPH
	}
	return *c.SpeedUnit
}

// GetWorkers returns the batch worker count or the default.
func (c *SimConfig) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}

// SimulateConfig returns the integration settings for the simulator.
func (c *SimConfig) SimulateConfig() simulate.Config {
	return simulate.Config{DT: c.GetDT(), GapMin: c.GetGapMin()}
}

// Rotator returns the frame rotation for output positions.
func (c *SimConfig) Rotator() rotation.Rotator {
	return rotation.NewRotator(c.GetRotationDeg())
}

// SetParams overwrites the model parameters, e.g. from command line flags.
func (c *SimConfig) SetParams(p idm.Params) {
	c.V0 = ptrFloat64(p.V0)
	c.T = ptrFloat64(p.T)
	c.S0 = ptrFloat64(p.S0)
	c.A = ptrFloat64(p.A)
	c.B = ptrFloat64(p.B)
}

// LoadParamSets loads a JSON array of model parameter sets, as used for
// batch comparisons. Every set is validated.
func LoadParamSets(path string) ([]idm.Params, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("parameter file must have .json extension, got %q", ext)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter file: %w", err)
	}

	var sets []idm.Params
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("failed to parse parameter JSON: %w", err)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("parameter file %s holds no parameter sets", path)
	}
	for i, p := range sets {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("parameter set %d: %w", i, err)
		}
	}
	return sets, nil
}
