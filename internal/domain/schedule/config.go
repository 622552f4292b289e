// Package schedule models the configuration handed to the office-hours
// scheduling engine and the ways a web request can produce one.
package schedule

import (
	"fmt"
	"maps"
	"sort"
	"strings"
	"time"
	_ "time/tzdata" // tz validation must not depend on the host zoneinfo

	"go.yaml.in/yaml/v3"
)

// CalendarFile is the name of the calendar every web run produces.
const CalendarFile = "office_hours.ics"

// Default values applied before YAML or form input.
const (
	DefaultOHPerTA    = 1
	DefaultMaxTAPerOH = 3
	DefaultTZ         = "US/Eastern"
)

// Config is the scheduling configuration. Build one with Default, FromYAML
// or FromForm; treat it as read-only afterwards.
type Config struct {
	OHPerTA    int                `koanf:"oh_per_ta" yaml:"oh_per_ta"`
	MaxTAPerOH int                `koanf:"max_ta_per_oh" yaml:"max_ta_per_oh"`
	DateStart  string             `koanf:"date_start" yaml:"date_start,omitempty"`
	DateEnd    string             `koanf:"date_end" yaml:"date_end,omitempty"`
	ScaleDict  map[string]float64 `koanf:"scale_dict" yaml:"scale_dict,omitempty"`
	TZ         string             `koanf:"tz" yaml:"tz"`
	FOut       string             `koanf:"f_out" yaml:"f_out"`
}

// Default returns the configuration used when nothing is supplied.
func Default() Config {
	return Config{
		OHPerTA:    DefaultOHPerTA,
		MaxTAPerOH: DefaultMaxTAPerOH,
		TZ:         DefaultTZ,
		ScaleDict:  map[string]float64{},
		FOut:       CalendarFile,
	}
}

// WithOutput returns a copy of c writing its calendar to path.
func (c Config) WithOutput(path string) Config {
	out := c.clone()
	out.FOut = path
	return out
}

func (c Config) clone() Config {
	out := c
	out.ScaleDict = maps.Clone(c.ScaleDict)
	if out.ScaleDict == nil {
		out.ScaleDict = map[string]float64{}
	}
	return out
}

// Validate reports the first problem that would make the engine fail.
// Scale patterns are not compiled here; the engine owns their dialect.
func (c Config) Validate() error {
	if c.OHPerTA < 1 {
		return fmt.Errorf("%w: oh_per_ta must be at least 1, got %d", ErrInvalidConfig, c.OHPerTA)
	}
	if c.MaxTAPerOH < 1 {
		return fmt.Errorf("%w: max_ta_per_oh must be at least 1, got %d", ErrInvalidConfig, c.MaxTAPerOH)
	}
	if strings.TrimSpace(c.TZ) == "" {
		return fmt.Errorf("%w: tz must not be empty", ErrInvalidConfig)
	}
	if _, err := time.LoadLocation(c.TZ); err != nil {
		return fmt.Errorf("%w: tz %q: %w", ErrInvalidConfig, c.TZ, err)
	}
	for pattern := range c.ScaleDict {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("%w: scale_dict has an empty pattern", ErrInvalidConfig)
		}
	}
	if strings.TrimSpace(c.FOut) == "" {
		return fmt.Errorf("%w: f_out must not be empty", ErrInvalidConfig)
	}
	return nil
}

// Marshal renders c as YAML; this is the config echo shown to users.
func (c Config) Marshal() ([]byte, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal schedule config: %w", err)
	}
	return b, nil
}

// MarshalScale renders a scale mapping back to the web-form syntax.
func MarshalScale(scale map[string]float64) string {
	parts := make([]string, 0, len(scale))
	for _, k := range sortedKeys(scale) {
		parts = append(parts, fmt.Sprintf("%s:%g", k, scale[k]))
	}
	return strings.Join(parts, ",")
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
