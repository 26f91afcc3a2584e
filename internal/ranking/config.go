package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Weights defines the positive-signal weights for the weighted scoring model.
// Weights are relative, not percentages: only signals that actually produce
// a non-zero score participate, and their weights are renormalized to sum
// to 1 for each post (see ScorePost).
type Weights struct {
	TimeDecay   float64 `json:"time_decay"`   // Weight for recency (default: 0.25)
	Engagement  float64 `json:"engagement"`   // Weight for reactions/comments (default: 0.20)
	Affinity    float64 `json:"affinity"`     // Weight for viewer-author closeness (default: 0.20)
	Topic       float64 `json:"topic"`        // Weight for topic relevance (default: 0.15)
	ContentType float64 `json:"content_type"` // Weight for medium preference (default: 0.10)
	Proximity   float64 `json:"proximity"`    // Weight for geographic proximity (default: 0.10)
}

// Config holds all tunables for the ranking engine.
type Config struct {
	Weights Weights `json:"weights"`

	// HalfLifeHours is the time-decay half-life: hours after which the
	// recency score halves (default: 48).
	HalfLifeHours float64 `json:"half_life_hours"`

	// MaxDistanceKm is the proximity cutoff; place-tagged posts farther
	// than this from the viewer score zero proximity (default: 50).
	MaxDistanceKm float64 `json:"max_distance_km"`
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string `json:"version"` // Config version for future compatibility
	Config  Config `json:"config"`  // Tunable overrides
}

// Defaults for ranking tunables.
const (
	DefaultHalfLifeHours = 48.0
	DefaultMaxDistanceKm = 50.0
)

// DefaultConfig returns the default ranking configuration. The weights
// favor recency and social signals over medium and location, which matched
// observed engagement during calibration.
func DefaultConfig() *Config {
	return &Config{
		Weights: Weights{
			TimeDecay:   0.25,
			Engagement:  0.20,
			Affinity:    0.20,
			Topic:       0.15,
			ContentType: 0.10,
			Proximity:   0.10,
		},
		HalfLifeHours: DefaultHalfLifeHours,
		MaxDistanceKm: DefaultMaxDistanceKm,
	}
}

// HalfLife returns the time-decay half-life as a duration.
func (c *Config) HalfLife() time.Duration {
	return time.Duration(c.HalfLifeHours * float64(time.Hour))
}

// LoadCalibration loads ranking tunables from a JSON calibration file.
// Partial configurations are merged with defaults so a calibration file
// can override a single weight. On any error the defaults are returned
// alongside the error, so callers degrade gracefully.
func LoadCalibration(filePath string) (*Config, error) {
	if filePath == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultConfig(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var calibration CalibrationConfig
	if err := json.Unmarshal(data, &calibration); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultConfig(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultConfig()
	merged := MergeCalibration(defaults, &calibration.Config)
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override tunables into base. Only non-zero
// values from the override are applied, which allows partial calibration
// files. Returns a new Config; neither argument is mutated.
func MergeCalibration(base *Config, override *Config) *Config {
	if base == nil {
		return DefaultConfig()
	}
	if override == nil {
		result := *base
		return &result
	}

	result := *base

	if override.Weights.TimeDecay != 0 {
		result.Weights.TimeDecay = override.Weights.TimeDecay
	}
	if override.Weights.Engagement != 0 {
		result.Weights.Engagement = override.Weights.Engagement
	}
	if override.Weights.Affinity != 0 {
		result.Weights.Affinity = override.Weights.Affinity
	}
	if override.Weights.Topic != 0 {
		result.Weights.Topic = override.Weights.Topic
	}
	if override.Weights.ContentType != 0 {
		result.Weights.ContentType = override.Weights.ContentType
	}
	if override.Weights.Proximity != 0 {
		result.Weights.Proximity = override.Weights.Proximity
	}
	if override.HalfLifeHours != 0 {
		result.HalfLifeHours = override.HalfLifeHours
	}
	if override.MaxDistanceKm != 0 {
		result.MaxDistanceKm = override.MaxDistanceKm
	}

	return &result
}

// logCalibrationOverrides logs which tunables were overridden from defaults.
func logCalibrationOverrides(defaults *Config, loaded *Config) {
	var overrides []string

	check := func(name string, def, got float64) {
		if got != def {
			overrides = append(overrides, fmt.Sprintf("%s: %.2f -> %.2f", name, def, got))
		}
	}

	check("weights.time_decay", defaults.Weights.TimeDecay, loaded.Weights.TimeDecay)
	check("weights.engagement", defaults.Weights.Engagement, loaded.Weights.Engagement)
	check("weights.affinity", defaults.Weights.Affinity, loaded.Weights.Affinity)
	check("weights.topic", defaults.Weights.Topic, loaded.Weights.Topic)
	check("weights.content_type", defaults.Weights.ContentType, loaded.Weights.ContentType)
	check("weights.proximity", defaults.Weights.Proximity, loaded.Weights.Proximity)
	check("half_life_hours", defaults.HalfLifeHours, loaded.HalfLifeHours)
	check("max_distance_km", defaults.MaxDistanceKm, loaded.MaxDistanceKm)

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
