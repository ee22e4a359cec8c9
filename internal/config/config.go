// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/aegis-fin/aegis/internal/provider"
	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
)

// Config is the top-level Aegis configuration.
type Config struct {
	Networking NetworkingConfig          `mapstructure:"networking"`
	Providers  map[string]ProviderConfig `mapstructure:"providers"`
	Resilience ResilienceConfig          `mapstructure:"resilience"`
	Storage    StorageConfig             `mapstructure:"storage"`
	Mappings   MappingsConfig            `mapstructure:"mappings"`
}

// NetworkingConfig controls how the gateway listens for connections.
type NetworkingConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// ProviderConfig holds credentials, endpoint, and per-provider tuning
// for one financial-data source. APIKey and ClientSecret accept
// keyring:// URIs resolved via the secret store at startup.
type ProviderConfig struct {
	APIKey       string `mapstructure:"api_key"`
	ClientSecret string `mapstructure:"client_secret"`
	Endpoint     string `mapstructure:"endpoint"`
	TimeoutMs    int    `mapstructure:"timeout_ms"`

	// ErrorOverrides pins vendor error codes to a classification kind
	// (auth, validation, rate_limit, network, provider_unavailable,
	// unknown) without a code change.
	ErrorOverrides map[string]string `mapstructure:"error_overrides"`
}

// ResilienceConfig tunes the circuit breaker and health window.
type ResilienceConfig struct {
	FailureThreshold int `mapstructure:"failure_threshold"`
	SuccessThreshold int `mapstructure:"success_threshold"`
	OpenTimeoutMs    int `mapstructure:"open_timeout_ms"`
	HealthWindowMs   int `mapstructure:"health_window_ms"`
	DefaultTimeoutMs int `mapstructure:"default_timeout_ms"`
}

// OpenTimeout returns the breaker cooldown as a duration.
func (r ResilienceConfig) OpenTimeout() time.Duration {
	return time.Duration(r.OpenTimeoutMs) * time.Millisecond
}

// HealthWindow returns the rolling health window as a duration.
func (r ResilienceConfig) HealthWindow() time.Duration {
	return time.Duration(r.HealthWindowMs) * time.Millisecond
}

// DefaultTimeout returns the per-call timeout as a duration.
func (r ResilienceConfig) DefaultTimeout() time.Duration {
	return time.Duration(r.DefaultTimeoutMs) * time.Millisecond
}

// StorageConfig selects the audit/health storage backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// MappingsConfig locates the institution-provider mapping table.
type MappingsConfig struct {
	Path string `mapstructure:"path"`
}

// SetDefaults installs the documented default values on a Viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("networking.listen", "127.0.0.1:18990")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.success_threshold", 2)
	v.SetDefault("resilience.open_timeout_ms", 60000)
	v.SetDefault("resilience.health_window_ms", 300000)
	v.SetDefault("resilience.default_timeout_ms", 8000)
}

// SetupEnv binds AEGIS_-prefixed environment variables.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("AEGIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix AEGIS_).
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, aegiserr.Errorf(aegiserr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates a Config from a populated Viper.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, aegiserr.Errorf(aegiserr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, aegiserr.Errorf(aegiserr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns a
// slice of all validation errors found, collecting all issues rather
// than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateResilience()...)
	errs = append(errs, c.validateProviders()...)

	return errs
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.Listen == "" {
		errs = append(errs, aegiserr.Errorf(aegiserr.CodeConfigValidateInvalidValue, "config: networking.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Networking.Listen)
	if err != nil {
		errs = append(errs, aegiserr.Errorf(aegiserr.CodeConfigValidateInvalidValue,
			"config: networking.listen must be a valid host:port address, got %q: %w",
			c.Networking.Listen, err,
		))
		return errs
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, aegiserr.Errorf(aegiserr.CodeConfigValidateInvalidValue,
			"config: networking.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, aegiserr.Errorf(aegiserr.CodeConfigValidateInvalidValue,
			"config: networking.listen port must be between 1 and 65535, got %d", port))
	}

	return errs
}

func (c *Config) validateResilience() []error {
	var errs []error

	r := c.Resilience
	if r.FailureThreshold <= 0 {
		errs = append(errs, aegiserr.Errorf(aegiserr.CodeConfigValidateInvalidValue,
			"config: resilience.failure_threshold must be positive, got %d", r.FailureThreshold))
	}
	if r.SuccessThreshold <= 0 {
		errs = append(errs, aegiserr.Errorf(aegiserr.CodeConfigValidateInvalidValue,
			"config: resilience.success_threshold must be positive, got %d", r.SuccessThreshold))
	}
	if r.OpenTimeoutMs <= 0 {
		errs = append(errs, aegiserr.Errorf(aegiserr.CodeConfigValidateInvalidValue,
			"config: resilience.open_timeout_ms must be positive, got %d", r.OpenTimeoutMs))
	}
	if r.HealthWindowMs <= 0 {
		errs = append(errs, aegiserr.Errorf(aegiserr.CodeConfigValidateInvalidValue,
			"config: resilience.health_window_ms must be positive, got %d", r.HealthWindowMs))
	}
	if r.DefaultTimeoutMs <= 0 {
		errs = append(errs, aegiserr.Errorf(aegiserr.CodeConfigValidateInvalidValue,
			"config: resilience.default_timeout_ms must be positive, got %d", r.DefaultTimeoutMs))
	}

	return errs
}

func (c *Config) validateProviders() []error {
	var errs []error

	for name, pc := range c.Providers {
		for code, kind := range pc.ErrorOverrides {
			if _, ok := provider.ParseKind(kind); !ok {
				errs = append(errs, aegiserr.Errorf(aegiserr.CodeConfigValidateInvalidValue,
					"config: providers.%s.error_overrides[%s]: unknown kind %q", name, code, kind))
			}
		}
		if pc.TimeoutMs < 0 {
			errs = append(errs, aegiserr.Errorf(aegiserr.CodeConfigValidateInvalidValue,
				"config: providers.%s.timeout_ms must not be negative, got %d", name, pc.TimeoutMs))
		}
	}

	return errs
}

// ClassifierOverrides converts the string-typed config overrides into
// the provider.Classifier's map form. Validation has already rejected
// unknown kinds.
func (c *Config) ClassifierOverrides() map[string]map[string]provider.Kind {
	if len(c.Providers) == 0 {
		return nil
	}

	out := make(map[string]map[string]provider.Kind)
	for name, pc := range c.Providers {
		if len(pc.ErrorOverrides) == 0 {
			continue
		}
		m := make(map[string]provider.Kind, len(pc.ErrorOverrides))
		for code, kind := range pc.ErrorOverrides {
			if k, ok := provider.ParseKind(kind); ok {
				m[code] = k
			}
		}
		out[strings.ToLower(name)] = m
	}
	return out
}

// ProviderTimeouts extracts the per-provider call timeouts.
func (c *Config) ProviderTimeouts() map[string]time.Duration {
	if len(c.Providers) == 0 {
		return nil
	}

	out := make(map[string]time.Duration)
	for name, pc := range c.Providers {
		if pc.TimeoutMs > 0 {
			out[strings.ToLower(name)] = time.Duration(pc.TimeoutMs) * time.Millisecond
		}
	}
	return out
}
