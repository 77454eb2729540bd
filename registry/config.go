package registry

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	lwconfig "github.com/lixenwraith/config"
	"gopkg.in/yaml.v3"
)

// Config holds the backend options from §6: scheduling, shutdown, and
// overflow-related tunables. Loading follows the teacher's
// lixenwraith/config TOML loader plus a reflection-based override map;
// SaveConfig/LoadConfig additionally round-trip through YAML for programs
// that prefer to manage this configuration alongside other YAML state.
type Config struct {
	ThreadAffinity bool   `toml:"thread_affinity" yaml:"thread_affinity"`
	BackendThread  string `toml:"backend_thread_name" yaml:"backend_thread_name"`

	ShutdownTimeoutMs int64 `toml:"shutdown_timeout_ms" yaml:"shutdown_timeout_ms"`

	SleepDurationMinUs int64 `toml:"sleep_duration_min_us" yaml:"sleep_duration_min_us"`
	SleepDurationMaxMs int64 `toml:"sleep_duration_max_ms" yaml:"sleep_duration_max_ms"`
	StrictOrderGraceMs int64 `toml:"strict_order_grace_ms" yaml:"strict_order_grace_ms"`

	TransitEventsSoftLimit int64 `toml:"transit_events_soft_limit" yaml:"transit_events_soft_limit"`
	TransitEventsHardLimit int64 `toml:"transit_events_hard_limit" yaml:"transit_events_hard_limit"`

	RDTSCResyncIntervalS int64 `toml:"rdtsc_resync_interval_s" yaml:"rdtsc_resync_interval_s"`

	QueueCapacity  int64  `toml:"queue_capacity" yaml:"queue_capacity"`
	OverflowPolicy string `toml:"overflow_policy" yaml:"overflow_policy"` // "block", "drop", "unbounded"

	// LogLevelDescriptions holds the 9 user-visible level labels. It is
	// not settable through the string-keyed override map (reflection
	// there only handles scalar fields); construct a Config literal and
	// assign it directly to customize.
	LogLevelDescriptions [9]string `toml:"-" yaml:"log_level_descriptions"`
}

var defaultConfig = Config{
	ThreadAffinity:         false,
	BackendThread:          "quillgo-backend",
	ShutdownTimeoutMs:      2000,
	SleepDurationMinUs:     50,
	SleepDurationMaxMs:     5,
	StrictOrderGraceMs:     0,
	TransitEventsSoftLimit: 4096,
	TransitEventsHardLimit: 65536,
	RDTSCResyncIntervalS:   30,
	QueueCapacity:          4096,
	OverflowPolicy:         "block",
	LogLevelDescriptions: [9]string{
		"TRACE_L3", "TRACE_L2", "TRACE_L1", "DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL", "BACKTRACE",
	},
}

// DefaultConfig returns a copy of the built-in defaults.
func DefaultConfig() *Config {
	c := defaultConfig
	return &c
}

// NewConfigFromFile loads a TOML configuration file over the defaults.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	loader := lwconfig.New()
	if err := loader.RegisterStruct("quillgo.", *cfg); err != nil {
		return nil, fmt.Errorf("quillgo: register config struct: %w", err)
	}
	if err := loader.Load(path, nil); err != nil && !errors.Is(err, lwconfig.ErrConfigNotFound) {
		return nil, fmt.Errorf("quillgo: load config from %s: %w", path, err)
	}
	if err := extractConfig(loader, "quillgo.", cfg); err != nil {
		return nil, fmt.Errorf("quillgo: extract config values: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfigFromDefaults applies a string-keyed override map over the
// built-in defaults.
func NewConfigFromDefaults(overrides map[string]any) (*Config, error) {
	cfg := DefaultConfig()
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, fmt.Errorf("quillgo: apply overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("quillgo: marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadConfig reads a YAML-encoded Config written by SaveConfig, validating
// it before returning.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("quillgo: read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("quillgo: unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func extractConfig(loader *lwconfig.Config, prefix string, cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("toml")
		if tag == "" || tag == "-" {
			continue
		}
		val, found := loader.Get(prefix + tag)
		if !found {
			continue
		}
		if err := setFieldValue(v.Field(i), val); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func applyOverrides(cfg *Config, overrides map[string]any) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	fieldMap := make(map[string]reflect.Value, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("toml")
		if tag != "" && tag != "-" {
			fieldMap[tag] = v.Field(i)
		}
	}

	for key, value := range overrides {
		field, ok := fieldMap[key]
		if !ok {
			return fmt.Errorf("unknown config key: %s", key)
		}
		if err := setFieldValue(field, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value any) error {
	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(s)
	case reflect.Int64:
		switch v := value.(type) {
		case int64:
			field.SetInt(v)
		case int:
			field.SetInt(int64(v))
		default:
			return fmt.Errorf("expected int64, got %T", value)
		}
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}
	return nil
}

// Validate checks cross-field and range invariants, failing fast at
// creation time rather than during logging (the ConfigError kind in §7).
func (c *Config) Validate() error {
	switch c.OverflowPolicy {
	case "block", "drop", "unbounded":
	default:
		return fmt.Errorf("quillgo: invalid overflow_policy %q (use block, drop, or unbounded)", c.OverflowPolicy)
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("quillgo: queue_capacity must be positive: %d", c.QueueCapacity)
	}
	if c.SleepDurationMinUs <= 0 || c.SleepDurationMaxMs <= 0 {
		return fmt.Errorf("quillgo: sleep durations must be positive")
	}
	if c.TransitEventsSoftLimit <= 0 || c.TransitEventsHardLimit <= 0 {
		return fmt.Errorf("quillgo: transit event limits must be positive")
	}
	if c.TransitEventsSoftLimit > c.TransitEventsHardLimit {
		return fmt.Errorf("quillgo: transit_events_soft_limit (%d) cannot exceed transit_events_hard_limit (%d)",
			c.TransitEventsSoftLimit, c.TransitEventsHardLimit)
	}
	if strings.TrimSpace(c.BackendThread) == "" {
		return fmt.Errorf("quillgo: backend_thread_name cannot be empty")
	}
	for i, label := range c.LogLevelDescriptions {
		if strings.TrimSpace(label) == "" {
			return fmt.Errorf("quillgo: log_level_descriptions[%d] cannot be empty", i)
		}
	}
	return nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	copied := *c
	return &copied
}
