package gaze

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/esimov/gaze/utils"
)

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Blink policies applied when only one eye has a valid blink ratio.
const (
	// BlinkStrict requires both ratios, a missing one means not blinking.
	BlinkStrict = "strict"
	// BlinkAvailable averages the ratios which are available.
	BlinkAvailable = "available"
)

// Sources of the point fed into the dwell tracker.
const (
	// SourceRightPupil uses the absolute position of the right pupil.
	SourceRightPupil = "pupil-right"
	// SourceRatio projects the gaze ratios onto the screen.
	SourceRatio = "ratio"
)

// Config groups the tunables of every stage of the gaze pipeline.
type Config struct {
	Region      RegionConfig      `json:"region"`
	Calibration CalibrationConfig `json:"calibration"`
	Locator     LocatorConfig     `json:"locator"`
	Gaze        GazeConfig        `json:"gaze"`
	Dwell       DwellConfig       `json:"dwell"`
}

// RegionConfig configures the eye region isolation.
type RegionConfig struct {
	Margin int `json:"margin"`
}

// CalibrationConfig configures the binarization threshold sweep.
type CalibrationConfig struct {
	ThresholdMin  int `json:"threshold_min"`
	ThresholdMax  int `json:"threshold_max"`
	ThresholdStep int `json:"threshold_step"`
	// Samples is the number of evaluated frames per eye before the
	// calibration is considered complete.
	Samples int `json:"samples"`
	// IrisTarget is the expected share of the eye surface covered by the iris.
	IrisTarget float64 `json:"iris_target"`
}

// LocatorConfig configures the iris segmentation filters.
type LocatorConfig struct {
	BilateralDiameter int     `json:"bilateral_diameter"`
	SigmaColor        float64 `json:"sigma_color"`
	SigmaSpace        float64 `json:"sigma_space"`
	ErodeKernel       int     `json:"erode_kernel"`
	ErodeIterations   int     `json:"erode_iterations"`
}

// GazeConfig configures the direction and blink classification.
type GazeConfig struct {
	EdgeMargin     float64 `json:"edge_margin"`
	RightMax       float64 `json:"right_max"`
	LeftMin        float64 `json:"left_min"`
	BlinkThreshold float64 `json:"blink_threshold"`
	BlinkPolicy    string  `json:"blink_policy"`
}

// DwellConfig configures the screen grid dwell detection.
type DwellConfig struct {
	ScreenWidth  int            `json:"screen_width"`
	ScreenHeight int            `json:"screen_height"`
	Hold         utils.Duration `json:"hold"`
	Source       string         `json:"source"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Region: RegionConfig{
			Margin: DefaultRegionMargin,
		},
		Calibration: CalibrationConfig{
			ThresholdMin:  5,
			ThresholdMax:  100,
			ThresholdStep: 5,
			Samples:       20,
			IrisTarget:    0.48,
		},
		Locator: LocatorConfig{
			BilateralDiameter: 10,
			SigmaColor:        15,
			SigmaSpace:        15,
			ErodeKernel:       3,
			ErodeIterations:   3,
		},
		Gaze: GazeConfig{
			EdgeMargin:     10,
			RightMax:       0.35,
			LeftMin:        0.65,
			BlinkThreshold: 3.8,
			BlinkPolicy:    BlinkStrict,
		},
		Dwell: DwellConfig{
			ScreenWidth:  1920,
			ScreenHeight: 1080,
			Hold:         utils.Duration{Duration: 2 * time.Second},
			Source:       SourceRightPupil,
		},
	}
}

// LoadConfig loads a configuration from a JSON file.
// Fields omitted from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 << 20
	if fileInfo.Size() > maxFileSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that every value is usable.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	for _, f := range []struct {
		name  string
		value float64
	}{
		{"iris target", c.Calibration.IrisTarget},
		{"sigma color", c.Locator.SigmaColor},
		{"sigma space", c.Locator.SigmaSpace},
		{"edge margin", c.Gaze.EdgeMargin},
		{"right max", c.Gaze.RightMax},
		{"left min", c.Gaze.LeftMin},
		{"blink threshold", c.Gaze.BlinkThreshold},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return invalid("%s must be a finite number, got %f", f.name, f.value)
		}
	}

	if c.Region.Margin < 0 {
		return invalid("region margin must be non-negative, got %d", c.Region.Margin)
	}

	cal := c.Calibration
	if cal.ThresholdStep <= 0 {
		return invalid("threshold step must be positive, got %d", cal.ThresholdStep)
	}
	if cal.ThresholdMin < 0 || cal.ThresholdMax > 255 || cal.ThresholdMin > cal.ThresholdMax {
		return invalid("threshold range [%d, %d] must lie within [0, 255]", cal.ThresholdMin, cal.ThresholdMax)
	}
	if cal.Samples <= 0 {
		return invalid("calibration samples must be positive, got %d", cal.Samples)
	}
	if cal.IrisTarget < 0 || cal.IrisTarget > 1 {
		return invalid("iris target must be between 0 and 1, got %f", cal.IrisTarget)
	}

	loc := c.Locator
	if loc.SigmaColor <= 0 || loc.SigmaSpace <= 0 {
		return invalid("bilateral sigmas must be positive, got %f and %f", loc.SigmaColor, loc.SigmaSpace)
	}
	if loc.ErodeKernel < 1 || loc.ErodeKernel%2 == 0 {
		return invalid("erode kernel must be a positive odd number, got %d", loc.ErodeKernel)
	}
	if loc.ErodeIterations < 0 {
		return invalid("erode iterations must be non-negative, got %d", loc.ErodeIterations)
	}

	g := c.Gaze
	if g.RightMax >= g.LeftMin {
		return invalid("right max %f must be lower than left min %f", g.RightMax, g.LeftMin)
	}
	if !utils.Contains([]string{BlinkStrict, BlinkAvailable}, g.BlinkPolicy) {
		return invalid("unknown blink policy %q", g.BlinkPolicy)
	}

	d := c.Dwell
	if d.ScreenWidth <= 0 || d.ScreenHeight <= 0 {
		return invalid("screen size must be positive, got %dx%d", d.ScreenWidth, d.ScreenHeight)
	}
	if d.Hold.Duration < 0 {
		return invalid("dwell hold must be non-negative, got %s", d.Hold)
	}
	if !utils.Contains([]string{SourceRightPupil, SourceRatio}, d.Source) {
		return invalid("unknown dwell source %q", d.Source)
	}
	return nil
}

// thresholds returns the candidate thresholds of the calibration sweep.
func (c CalibrationConfig) thresholds() []int {
	var ts []int
	for t := c.ThresholdMin; t <= c.ThresholdMax && c.ThresholdStep > 0; t += c.ThresholdStep {
		ts = append(ts, t)
	}
	return ts
}
