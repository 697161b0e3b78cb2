package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/pulse.report/internal/ecg"
	"github.com/banshee-data/pulse.report/internal/hrv"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for analysis parameters.
// The detector fields share their names with ecg.DetectorConfig so the same
// JSON can be passed to the CLI (--config) and posted to /api/pipeline.
type TuningConfig struct {
	// Conditioner params
	LowcutHz           *float64 `json:"lowcut_hz,omitempty"`
	HighcutHz          *float64 `json:"highcut_hz,omitempty"`
	IntegrationWindowS *float64 `json:"integration_window_s,omitempty"`

	// Detector params
	MinRRS         *float64 `json:"min_rr_s,omitempty"`
	ThresholdScale *float64 `json:"threshold_scale,omitempty"`
	SearchBackS    *float64 `json:"search_back_s,omitempty"`

	// HRV params
	PSDInterpFS   *float64 `json:"psd_interp_fs,omitempty"`
	HistogramBins *int     `json:"histogram_bins,omitempty"`

	// Report params
	ChartMaxPoints *int `json:"chart_max_points,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// Fallback values used by the Get* accessors when a field is unset.
const (
	defaultHistogramBins  = 20
	defaultChartMaxPoints = 2000
)

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
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

	cfg, err := ParseTuningConfig(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseTuningConfig decodes and validates a JSON document. The Get* methods
// provide fallback defaults for any fields not specified.
func ParseTuningConfig(data []byte) (*TuningConfig, error) {
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/pulse/...
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	positive := []struct {
		name  string
		value *float64
	}{
		{"lowcut_hz", c.LowcutHz},
		{"highcut_hz", c.HighcutHz},
		{"integration_window_s", c.IntegrationWindowS},
		{"min_rr_s", c.MinRRS},
		{"threshold_scale", c.ThresholdScale},
		{"search_back_s", c.SearchBackS},
		{"psd_interp_fs", c.PSDInterpFS},
	}
	for _, f := range positive {
		if f.value != nil && !(*f.value > 0) {
			return fmt.Errorf("%s must be positive, got %f", f.name, *f.value)
		}
	}

	if err := hrv.CheckInterpFS(c.GetPSDInterpFS()); err != nil {
		return fmt.Errorf("psd_interp_fs: %w", err)
	}

	if c.GetLowcutHz() >= c.GetHighcutHz() {
		return fmt.Errorf("lowcut_hz (%f) must be below highcut_hz (%f)", c.GetLowcutHz(), c.GetHighcutHz())
	}

	if c.HistogramBins != nil && *c.HistogramBins < 1 {
		return fmt.Errorf("histogram_bins must be at least 1, got %d", *c.HistogramBins)
	}
	if c.ChartMaxPoints != nil && *c.ChartMaxPoints < 2 {
		return fmt.Errorf("chart_max_points must be at least 2, got %d", *c.ChartMaxPoints)
	}

	return nil
}

// Merge returns a copy of c with every field set in override taking its
// value. A nil override returns a plain copy. The result shares no pointers
// with either input.
func (c *TuningConfig) Merge(override *TuningConfig) *TuningConfig {
	if override == nil {
		override = EmptyTuningConfig()
	}
	return &TuningConfig{
		LowcutHz:           pickFloat64(override.LowcutHz, c.LowcutHz),
		HighcutHz:          pickFloat64(override.HighcutHz, c.HighcutHz),
		IntegrationWindowS: pickFloat64(override.IntegrationWindowS, c.IntegrationWindowS),
		MinRRS:             pickFloat64(override.MinRRS, c.MinRRS),
		ThresholdScale:     pickFloat64(override.ThresholdScale, c.ThresholdScale),
		SearchBackS:        pickFloat64(override.SearchBackS, c.SearchBackS),
		PSDInterpFS:        pickFloat64(override.PSDInterpFS, c.PSDInterpFS),
		HistogramBins:      pickInt(override.HistogramBins, c.HistogramBins),
		ChartMaxPoints:     pickInt(override.ChartMaxPoints, c.ChartMaxPoints),
	}
}

// pickFloat64 copies the first non-nil value.
func pickFloat64(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return ptrFloat64(*v)
		}
	}
	return nil
}

func pickInt(vals ...*int) *int {
	for _, v := range vals {
		if v != nil {
			return ptrInt(*v)
		}
	}
	return nil
}

// DetectorConfig converts the detector fields to an ecg.DetectorConfig,
// filling unset fields from ecg.DefaultDetectorConfig.
func (c *TuningConfig) DetectorConfig() ecg.DetectorConfig {
	return ecg.DetectorConfig{
		LowcutHz:           c.GetLowcutHz(),
		HighcutHz:          c.GetHighcutHz(),
		IntegrationWindowS: c.GetIntegrationWindowS(),
		MinRRS:             c.GetMinRRS(),
		ThresholdScale:     c.GetThresholdScale(),
		SearchBackS:        c.GetSearchBackS(),
	}
}

// GetLowcutHz returns the lowcut_hz value or the default.
func (c *TuningConfig) GetLowcutHz() float64 {
	if c.LowcutHz == nil {
		return ecg.DefaultLowcutHz
	}
	return *c.LowcutHz
}

// GetHighcutHz returns the highcut_hz value or the default.
func (c *TuningConfig) GetHighcutHz() float64 {
	if c.HighcutHz == nil {
		return ecg.DefaultHighcutHz
	}
	return *c.HighcutHz
}

// GetIntegrationWindowS returns the integration_window_s value or the default.
func (c *TuningConfig) GetIntegrationWindowS() float64 {
	if c.IntegrationWindowS == nil {
		return ecg.DefaultIntegrationWindowS
	}
	return *c.IntegrationWindowS
}

// GetMinRRS returns the min_rr_s value or the default.
func (c *TuningConfig) GetMinRRS() float64 {
	if c.MinRRS == nil {
		return ecg.DefaultMinRRS
	}
	return *c.MinRRS
}

// GetThresholdScale returns the threshold_scale value or the default.
func (c *TuningConfig) GetThresholdScale() float64 {
	if c.ThresholdScale == nil {
		return ecg.DefaultThresholdScale
	}
	return *c.ThresholdScale
}

// GetSearchBackS returns the search_back_s value or the default.
func (c *TuningConfig) GetSearchBackS() float64 {
	if c.SearchBackS == nil {
		return ecg.DefaultSearchBackS
	}
	return *c.SearchBackS
}

// GetPSDInterpFS returns the psd_interp_fs value or the default.
func (c *TuningConfig) GetPSDInterpFS() float64 {
	if c.PSDInterpFS == nil {
		return hrv.DefaultInterpFS
	}
	return *c.PSDInterpFS
}

// GetHistogramBins returns the histogram_bins value or the default.
func (c *TuningConfig) GetHistogramBins() int {
	if c.HistogramBins == nil {
		return defaultHistogramBins
	}
	return *c.HistogramBins
}

// GetChartMaxPoints returns the chart_max_points value or the default.
func (c *TuningConfig) GetChartMaxPoints() int {
	if c.ChartMaxPoints == nil {
		return defaultChartMaxPoints
	}
	return *c.ChartMaxPoints
}
