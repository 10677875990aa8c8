// Package config loads the recap settings shared by the API, the CLI and the
// one-shot processor.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phillip-england/rekap/internal/attendance"
	"github.com/phillip-england/rekap/internal/letter"
)

const DefaultPath = "rekap.yaml"

// DefaultHighlightIDs is the VIP list used when none is configured.
var DefaultHighlightIDs = []string{"119", "111", "112", "106", "13", "18", "71", "19", "148", "90", "82", "142", "127"}

type Config struct {
	Threshold int  `yaml:"threshold"`
	Inclusive bool `yaml:"inclusive"`

	LateCutoff      string `yaml:"late_cutoff"`
	WindowStartHour int    `yaml:"window_start_hour"`
	WindowEndHour   int    `yaml:"window_end_hour"`

	Columns     map[string]int `yaml:"columns"`
	ColumnWidth int            `yaml:"column_width"`
	HeaderRows  int            `yaml:"header_rows"`

	Dedup        string   `yaml:"dedup"`
	HighlightIDs []string `yaml:"highlight_ids"`
	HighlightTag string   `yaml:"highlight_name"`

	Locale         string `yaml:"locale"`
	LetterTemplate string `yaml:"letter_template"`
	LogoPath       string `yaml:"logo_path"`
	Company        string `yaml:"company"`
}

func Default() Config {
	mapping := attendance.DefaultColumnMapping()
	columns := make(map[string]int, len(mapping.Columns))
	for f, idx := range mapping.Columns {
		columns[string(f)] = idx
	}
	rule := attendance.DefaultLatenessRule()
	return Config{
		Threshold:       attendance.DefaultThreshold().Days,
		Inclusive:       attendance.DefaultThreshold().Inclusive,
		LateCutoff:      "07:50:00",
		WindowStartHour: rule.WindowStartHour,
		WindowEndHour:   rule.WindowEndHour,
		Columns:         columns,
		ColumnWidth:     mapping.Width,
		HeaderRows:      mapping.HeaderRows,
		Dedup:           string(attendance.DedupFirstSeen),
		HighlightIDs:    append([]string(nil), DefaultHighlightIDs...),
		HighlightTag:    "VIP",
		Locale:          "id",
		Company:         "PT. QUANTUM",
	}
}

// Load reads the YAML file at path (REKAP_CONFIG or rekap.yaml when empty),
// applies REKAP_* environment overrides and validates the result. A missing
// file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) == "" {
		path = DefaultPath
		if envPath := strings.TrimSpace(os.Getenv("REKAP_CONFIG")); envPath != "" {
			path = envPath
		}
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// a columns block replaces the default mapping instead of merging into it
		cfg.Columns = nil
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		log.Printf("loaded config from %s", path)
	case !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Options(); err != nil {
		return Config{}, err
	}
	if _, err := attendance.LocaleFor(cfg.Locale); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if err := envOverrideInt(&cfg.Threshold, "REKAP_THRESHOLD"); err != nil {
		return err
	}
	envOverrideBool(&cfg.Inclusive, "REKAP_INCLUSIVE")
	envOverride(&cfg.LateCutoff, "REKAP_LATE_CUTOFF")
	if err := envOverrideInt(&cfg.WindowStartHour, "REKAP_WINDOW_START_HOUR"); err != nil {
		return err
	}
	if err := envOverrideInt(&cfg.WindowEndHour, "REKAP_WINDOW_END_HOUR"); err != nil {
		return err
	}
	if err := envOverrideInt(&cfg.HeaderRows, "REKAP_HEADER_ROWS"); err != nil {
		return err
	}
	envOverride(&cfg.Dedup, "REKAP_DEDUP")
	envOverride(&cfg.Locale, "REKAP_LOCALE")
	envOverride(&cfg.LetterTemplate, "REKAP_LETTER_TEMPLATE")
	envOverride(&cfg.LogoPath, "REKAP_LOGO_PATH")
	envOverride(&cfg.Company, "REKAP_COMPANY")
	if ids, ok := os.LookupEnv("REKAP_HIGHLIGHT_IDS"); ok {
		cfg.HighlightIDs = SplitList(ids)
	}
	return nil
}

func envOverride(field *string, envKey string) {
	if val := strings.TrimSpace(os.Getenv(envKey)); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	val := strings.TrimSpace(os.Getenv(envKey))
	if val == "" {
		return nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", envKey, val, err)
	}
	*field = parsed
	return nil
}

func envOverrideBool(field *bool, envKey string) {
	if val := strings.TrimSpace(os.Getenv(envKey)); val != "" {
		*field = strings.EqualFold(val, "true") || val == "1"
	}
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Options converts the file settings into pipeline options.
func (c Config) Options() (attendance.Options, error) {
	opts := attendance.DefaultOptions()

	cutoff, err := attendance.ParseClock(strings.TrimSpace(c.LateCutoff))
	if err != nil {
		return opts, fmt.Errorf("late_cutoff: %w", err)
	}
	opts.Lateness = attendance.LatenessRule{
		Cutoff:          cutoff,
		WindowStartHour: c.WindowStartHour,
		WindowEndHour:   c.WindowEndHour,
	}

	dedup, err := attendance.ParseDedupPolicy(c.Dedup)
	if err != nil {
		return opts, err
	}
	opts.Dedup = dedup

	if len(c.Columns) > 0 {
		columns := make(map[attendance.Field]int, len(c.Columns))
		for name, idx := range c.Columns {
			columns[attendance.Field(strings.ToLower(strings.TrimSpace(name)))] = idx
		}
		opts.Columns.Columns = columns
	}
	opts.Columns.Width = c.ColumnWidth
	opts.Columns.HeaderRows = c.HeaderRows

	opts.Threshold = attendance.Threshold{Days: c.Threshold, Inclusive: c.Inclusive}
	opts.Highlight = attendance.NewHighlightSet(c.HighlightTag, c.HighlightIDs)

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func (c Config) LetterLocale() attendance.Locale {
	locale, err := attendance.LocaleFor(c.Locale)
	if err != nil {
		return attendance.Indonesian
	}
	return locale
}

// Renderer builds the letter renderer, loading the logo when one is set.
func (c Config) Renderer() (*letter.Renderer, error) {
	cfg := letter.Config{TemplatePath: c.LetterTemplate, Company: c.Company}
	if strings.TrimSpace(c.LogoPath) != "" {
		logo, err := letter.LoadLogo(c.LogoPath)
		if err != nil {
			return nil, err
		}
		cfg.Logo = logo
	}
	return letter.NewRenderer(cfg)
}

// Summary is a one-line description for startup logs.
func (c Config) Summary() string {
	op := "≥"
	if !c.Inclusive {
		op = ">"
	}
	return fmt.Sprintf("threshold %s%d, cutoff %s, window %02d..%02d, dedup %s, locale %s, %d highlighted ids",
		op, c.Threshold, c.LateCutoff, c.WindowStartHour, c.WindowEndHour, c.Dedup, c.Locale, len(c.HighlightIDs))
}

// WriteFile saves cfg as YAML, refusing to replace an existing file unless force is set.
func WriteFile(path string, cfg Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
