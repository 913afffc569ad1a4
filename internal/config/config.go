// internal/config/config.go
//
// Package config loads roughtimed's server configuration. It keeps the
// teacher's single-concrete-struct, env-expanding YAML loader shape but
// adds sibling loaders for raw env vars and in-memory test fixtures
// (LoadFile/LoadEnv/LoadMemory), mirroring the original Rust
// implementation's three interchangeable config sources
// (config/file.rs, config/environment.rs, config/memory.rs) without
// its trait-object dispatch: only one loader ever runs per process, so
// no runtime polymorphism is needed (see SPEC_FULL.md §4.9 / §9).
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/slowdrip-network/roughtimed/internal/kms"
	"github.com/slowdrip-network/roughtimed/internal/rterr"
)

// Defaults, recovered from original_source/src/config/*.rs.
const (
	DefaultBatchSize      = 64
	DefaultStatusInterval = 600 * time.Second
)

// Duration wraps time.Duration for YAML "1s"/"500ms" strings.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string (e.g., \"2s\"): %w", err)
	}
	s = expandEnvDefault(s)
	if s == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = dd
	return nil
}

// Config is the single concrete configuration schema described in
// spec.md §6, populated by exactly one of LoadFile, LoadEnv, or
// LoadMemory.
type Config struct {
	Interface       string   `yaml:"interface"`
	Port            uint16   `yaml:"port"`
	SeedHex         string   `yaml:"seed"`
	BatchSize       uint8    `yaml:"batch_size"`
	SecondsOffset   int64    `yaml:"secondsoffset"`
	StatusInterval  Duration `yaml:"status_interval"`
	KmsProtection   string   `yaml:"kms_protection"`
	HealthCheckPort uint16   `yaml:"health_check_port"`

	// Resolved fields, populated by finalize.
	Seed     []byte         `yaml:"-"`
	KmsMode  kms.Protection `yaml:"-"`
	KmsKeyID string         `yaml:"-"`
}

// LoadFile reads, environment-expands, parses YAML, applies defaults,
// and validates. It rejects unknown top-level keys instead of silently
// ignoring them, matching config/file.rs's InvalidConfiguration
// behavior for unrecognized keys.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read config %s: %v", rterr.ErrInvalidConfiguration, path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", rterr.ErrInvalidConfiguration, err)
	}

	cfg.Interface = expandEnvDefault(cfg.Interface)
	cfg.SeedHex = expandEnvDefault(cfg.SeedHex)
	cfg.KmsProtection = expandEnvDefault(cfg.KmsProtection)

	if err := finalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Environment variable names, recovered from
// original_source/src/config/environment.rs.
const (
	EnvInterface       = "ROUGHTIMED_INTERFACE"
	EnvPort            = "ROUGHTIMED_PORT"
	EnvSeed            = "ROUGHTIMED_SEED"
	EnvBatchSize       = "ROUGHTIMED_BATCH_SIZE"
	EnvSecondsOffset   = "ROUGHTIMED_SECONDSOFFSET"
	EnvStatusInterval  = "ROUGHTIMED_STATUS_INTERVAL"
	EnvKmsProtection   = "ROUGHTIMED_KMS_PROTECTION"
	EnvHealthCheckPort = "ROUGHTIMED_HEALTH_CHECK_PORT"
)

// LoadEnv builds a Config entirely from ROUGHTIMED_* environment
// variables, the Go equivalent of config/environment.rs's EnvironmentConfig.
func LoadEnv() (*Config, error) {
	var cfg Config
	cfg.Interface = os.Getenv(EnvInterface)
	cfg.SeedHex = os.Getenv(EnvSeed)
	cfg.KmsProtection = os.Getenv(EnvKmsProtection)

	var result error
	if v := os.Getenv(EnvPort); v != "" {
		p, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: %s=%q: %v", rterr.ErrInvalidConfiguration, EnvPort, v, err))
		} else {
			cfg.Port = uint16(p)
		}
	}
	if v := os.Getenv(EnvBatchSize); v != "" {
		b, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: %s=%q: %v", rterr.ErrInvalidConfiguration, EnvBatchSize, v, err))
		} else {
			cfg.BatchSize = uint8(b)
		}
	}
	if v := os.Getenv(EnvSecondsOffset); v != "" {
		s, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: %s=%q: %v", rterr.ErrInvalidConfiguration, EnvSecondsOffset, v, err))
		} else {
			cfg.SecondsOffset = s
		}
	}
	if v := os.Getenv(EnvStatusInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: %s=%q: %v", rterr.ErrInvalidConfiguration, EnvStatusInterval, v, err))
		} else {
			cfg.StatusInterval = Duration{Duration: d}
		}
	}
	if v := os.Getenv(EnvHealthCheckPort); v != "" {
		p, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: %s=%q: %v", rterr.ErrInvalidConfiguration, EnvHealthCheckPort, v, err))
		} else {
			cfg.HealthCheckPort = uint16(p)
		}
	}
	if result != nil {
		return nil, result
	}

	if err := finalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadMemory builds a Config directly from a populated struct, with
// defaults and validation applied. It is the test-fixture equivalent of
// config/memory.rs's MemoryConfig.
func LoadMemory(cfg Config) (*Config, error) {
	out := cfg
	if err := finalize(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func applyDefaults(c *Config) {
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.StatusInterval.Duration == 0 {
		c.StatusInterval = Duration{Duration: DefaultStatusInterval}
	}
	if c.KmsProtection == "" {
		c.KmsProtection = "plaintext"
	}
}

// finalize resolves derived fields (decoded seed, parsed kms protection)
// and validates the whole config, aggregating every problem found
// instead of stopping at the first one.
func finalize(c *Config) error {
	applyDefaults(c)

	var result error

	if c.Interface == "" {
		result = multierror.Append(result, fmt.Errorf("%w: interface is required", rterr.ErrInvalidConfiguration))
	}
	if c.Port == 0 {
		result = multierror.Append(result, fmt.Errorf("%w: port is required", rterr.ErrInvalidConfiguration))
	}
	if c.BatchSize == 0 {
		result = multierror.Append(result, fmt.Errorf("%w: batch_size must be > 0", rterr.ErrInvalidConfiguration))
	}
	if c.StatusInterval.Duration <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: status_interval must be > 0", rterr.ErrInvalidConfiguration))
	}
	if c.SecondsOffset < -time.Now().Unix() {
		result = multierror.Append(result, fmt.Errorf("%w: secondsoffset %d would push MIDP before the Unix epoch", rterr.ErrInvalidConfiguration, c.SecondsOffset))
	}

	protection, keyID, err := kms.ParseProtection(c.KmsProtection)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("%w: %v", rterr.ErrInvalidConfiguration, err))
	} else {
		c.KmsMode = protection
		c.KmsKeyID = keyID
	}

	seed, err := hex.DecodeString(c.SeedHex)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("%w: seed is not valid hex: %v", rterr.ErrInvalidConfiguration, err))
	} else {
		c.Seed = seed
		if protection == kms.Plaintext && len(seed) != 32 {
			result = multierror.Append(result, fmt.Errorf("%w: plaintext seed must decode to 32 bytes, got %d", rterr.ErrInvalidSeedLength, len(seed)))
		}
	}

	return result
}

// --- env expansion with ${VAR} and ${VAR:default} ---

var envRe = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvDefault replaces ${VAR} with os.Getenv("VAR"),
// and ${VAR:default} with env value or "default" if unset.
func expandEnvDefault(s string) string {
	if s == "" {
		return s
	}
	return envRe.ReplaceAllStringFunc(s, func(m string) string {
		parts := envRe.FindStringSubmatch(m)
		if len(parts) != 3 {
			return m
		}
		name := parts[1]
		def := parts[2]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return def
	})
}
