package schedule

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// keyDelim separates koanf key paths. scale_dict keys are regular
// expressions and routinely contain dots, so "." cannot be used.
const keyDelim = "\x1f"

var knownKeys = map[string]struct{}{
	"oh_per_ta":     {},
	"max_ta_per_oh": {},
	"date_start":    {},
	"date_end":      {},
	"scale_dict":    {},
	"tz":            {},
	"f_out":         {},
}

// FormFields carries the raw web-form values. An empty string means the
// field was left blank and the default applies.
type FormFields struct {
	OHPerTA    string
	MaxTAPerOH string
	DateStart  string
	DateEnd    string
	ScaleDict  string
	TZ         string
}

// FromYAML reads a YAML document from path on top of the defaults.
func FromYAML(path string) (Config, error) {
	k := koanf.New(keyDelim)
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrParseYAML, err)
	}
	for _, key := range k.Keys() {
		top, _, _ := strings.Cut(key, keyDelim)
		if _, ok := knownKeys[top]; !ok {
			return Config{}, fmt.Errorf("%w: unknown key %q", ErrParseYAML, top)
		}
	}

	cfg := Default()
	conf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.DecodeHookFuncType(timeToStringHook),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, conf); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrParseYAML, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// timeToStringHook turns YAML timestamps such as an unquoted 2025-01-06
// back into the text form the engine expects for date fields.
func timeToStringHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String || from != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	t := data.(time.Time)
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly), nil
	}
	return t.Format(time.RFC3339), nil
}

// FromForm builds a Config from web-form fields on top of the defaults.
func FromForm(f FormFields) (Config, error) {
	cfg := Default()

	if v := strings.TrimSpace(f.OHPerTA); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: oh_per_ta %q is not an integer", ErrInvalidConfig, v)
		}
		cfg.OHPerTA = n
	}
	if v := strings.TrimSpace(f.MaxTAPerOH); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: max_ta_per_oh %q is not an integer", ErrInvalidConfig, v)
		}
		cfg.MaxTAPerOH = n
	}
	if v := strings.TrimSpace(f.DateStart); v != "" {
		cfg.DateStart = v
	}
	if v := strings.TrimSpace(f.DateEnd); v != "" {
		cfg.DateEnd = v
	}
	if v := strings.TrimSpace(f.ScaleDict); v != "" {
		scale, err := ParseScale(v)
		if err != nil {
			return Config{}, err
		}
		cfg.ScaleDict = scale
	}
	if v := strings.TrimSpace(f.TZ); v != "" {
		cfg.TZ = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseScale parses comma separated pattern:multiplier pairs such as
// "a:1.5,b:2.0". Each pair is split on its last colon so patterns may
// themselves contain colons. Patterns are passed to the engine verbatim;
// they use the engine's regular expression dialect, not Go's.
func ParseScale(s string) (map[string]float64, error) {
	out := map[string]float64{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for i, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		idx := strings.LastIndex(entry, ":")
		if idx < 0 {
			return nil, fmt.Errorf("%w: entry %d %q: expected pattern:multiplier", ErrInvalidScale, i+1, entry)
		}
		pattern := strings.TrimSpace(entry[:idx])
		raw := strings.TrimSpace(entry[idx+1:])
		if pattern == "" {
			return nil, fmt.Errorf("%w: entry %d %q: empty pattern", ErrInvalidScale, i+1, entry)
		}
		mult, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(mult) || math.IsInf(mult, 0) {
			return nil, fmt.Errorf("%w: entry %d %q: multiplier %q is not a number", ErrInvalidScale, i+1, entry, raw)
		}
		out[pattern] = mult
	}
	return out, nil
}
