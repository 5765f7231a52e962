// Package config loads the job settings from the environment.
//
// Variables are unprefixed and upper snake case, matching the other Cloud Run
// jobs: TASK_ID maps to task_id, NULL_VALUES to null_values and so on. Only
// keys declared on Config are read.
package config

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config holds the settings of the cleaning job.
type Config struct {
	TaskID string `koanf:"task_id" validate:"required"`
	DagID  string `koanf:"dag_id"  validate:"required"`

	Source      string `koanf:"source"      validate:"required"`
	Destination string `koanf:"destination" validate:"required"`

	Header     bool     `koanf:"header"`
	Delimiter  string   `koanf:"delimiter"   validate:"len=1"`
	NullValues []string `koanf:"null_values"`
	ReadMode   string   `koanf:"read_mode"   validate:"oneof=PERMISSIVE DROPMALFORMED FAILFAST"`

	WriteMode   string `koanf:"write_mode"  validate:"oneof=overwrite append errorifexists ignore"`
	Compression string `koanf:"compression" validate:"oneof=snappy gzip zstd none"`

	StorageEndpoint string `koanf:"storage_endpoint"`
	LogLevel        string `koanf:"log_level" validate:"oneof=debug info warn error"`
}

// Fetch holds the settings of the download job.
type Fetch struct {
	TaskID string `koanf:"task_id" validate:"required"`
	DagID  string `koanf:"dag_id"  validate:"required"`

	SourceURL   string        `koanf:"source_url"  validate:"required,url"`
	Destination string        `koanf:"destination" validate:"required"`
	HTTPTimeout time.Duration `koanf:"http_timeout" validate:"gt=0"`

	StorageEndpoint string `koanf:"storage_endpoint"`
	LogLevel        string `koanf:"log_level" validate:"oneof=debug info warn error"`
}

// Default returns the cleaning job defaults.
func Default() Config {
	return Config{
		Header:      true,
		Delimiter:   ",",
		ReadMode:    "PERMISSIVE",
		WriteMode:   "overwrite",
		Compression: "snappy",
		LogLevel:    "info",
	}
}

// DefaultFetch returns the download job defaults.
func DefaultFetch() Fetch {
	return Fetch{
		HTTPTimeout: 60 * time.Second,
		LogLevel:    "info",
	}
}

// Load reads Config from the environment.
func Load() (*Config, error) {
	cfg := Default()
	if err := load(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.ReadMode = strings.ToUpper(c.ReadMode)
	c.WriteMode = strings.ToLower(c.WriteMode)
	c.Compression = strings.ToLower(c.Compression)
}

// LoadFetch reads Fetch from the environment.
func LoadFetch() (*Fetch, error) {
	cfg := DefaultFetch()
	if err := load(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// load overlays the environment on the defaults already in target, then
// validates the result.
func load(target any) error {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(target, "koanf"), nil); err != nil {
		return fmt.Errorf("failed to load defaults: %w", err)
	}

	known := make(map[string]bool)
	for _, key := range tagKeys(target) {
		known[key] = true
	}
	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(key)
			if !known[key] {
				return "", nil
			}
			return key, value
		},
	}), nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := k.UnmarshalWithConf("", target, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           target,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if n, ok := target.(interface{ normalize() }); ok {
		n.normalize()
	}
	if err := validator.New().Struct(target); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// tagKeys lists the koanf tags of the struct target points to.
func tagKeys(target any) []string {
	t := reflect.TypeOf(target).Elem()
	keys := make([]string, 0, t.NumField())
	for i := range t.NumField() {
		if key := t.Field(i).Tag.Get("koanf"); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// Level parses a log level name.
func Level(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}
