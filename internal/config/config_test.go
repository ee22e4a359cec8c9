// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-fin/aegis/internal/config"
	"github.com/aegis-fin/aegis/internal/provider"
	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
)

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)

	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:18990", cfg.Networking.Listen)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 5, cfg.Resilience.FailureThreshold)
	assert.Equal(t, 2, cfg.Resilience.SuccessThreshold)
	assert.Equal(t, 60*time.Second, cfg.Resilience.OpenTimeout())
	assert.Equal(t, 5*time.Minute, cfg.Resilience.HealthWindow())
	assert.Equal(t, 8*time.Second, cfg.Resilience.DefaultTimeout())
}

func TestLoad_YAMLFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aegis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
networking:
  listen: "0.0.0.0:9000"
  cors_origins:
    - "https://app.example.com"
storage:
  backend: memory
resilience:
  failure_threshold: 3
providers:
  plaid:
    endpoint: "https://sandbox.plaid.com"
    api_key: "keyring://aegis/plaid-api-key"
    timeout_ms: 4000
    error_overrides:
      ITEM_LOGIN_REQUIRED: auth
mappings:
  path: mappings.yaml
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Networking.Listen)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Networking.CORSOrigins)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 3, cfg.Resilience.FailureThreshold)
	assert.Equal(t, 2, cfg.Resilience.SuccessThreshold, "untouched keys keep defaults")
	assert.Equal(t, "mappings.yaml", cfg.Mappings.Path)

	pc, ok := cfg.Providers["plaid"]
	require.True(t, ok)
	assert.Equal(t, "https://sandbox.plaid.com", pc.Endpoint)
	assert.Equal(t, 4000, pc.TimeoutMs)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, aegiserr.HasCode(err, aegiserr.CodeConfigLoadReadFailure))
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &config.Config{}
	cfg.Networking.Listen = "not-an-address"

	errs := cfg.Validate()
	// One networking error plus five resilience errors.
	assert.Len(t, errs, 6)
}

func TestValidate_Networking(t *testing.T) {
	tests := []struct {
		name    string
		listen  string
		wantErr bool
	}{
		{"valid", "127.0.0.1:18990", false},
		{"empty", "", true},
		{"no port", "127.0.0.1", true},
		{"port out of range", "127.0.0.1:70000", true},
		{"port not a number", "127.0.0.1:http", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Networking.Listen = tt.listen

			errs := cfg.Validate()
			if tt.wantErr {
				assert.NotEmpty(t, errs)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestValidate_Providers(t *testing.T) {
	cfg := validConfig()
	cfg.Providers = map[string]config.ProviderConfig{
		"plaid": {
			TimeoutMs:      -1,
			ErrorOverrides: map[string]string{"SOME_CODE": "not_a_kind"},
		},
	}

	errs := cfg.Validate()
	assert.Len(t, errs, 2)
}

func TestClassifierOverrides_LowercasesProviderNames(t *testing.T) {
	cfg := validConfig()
	cfg.Providers = map[string]config.ProviderConfig{
		"Plaid": {ErrorOverrides: map[string]string{"ITEM_LOGIN_REQUIRED": "auth"}},
		"mx":    {},
	}

	got := cfg.ClassifierOverrides()
	require.Contains(t, got, "plaid")
	assert.Equal(t, provider.KindAuth, got["plaid"]["ITEM_LOGIN_REQUIRED"])
	assert.NotContains(t, got, "mx", "providers without overrides are omitted")
}

func TestProviderTimeouts(t *testing.T) {
	cfg := validConfig()
	cfg.Providers = map[string]config.ProviderConfig{
		"Plaid":    {TimeoutMs: 4000},
		"finicity": {},
	}

	got := cfg.ProviderTimeouts()
	assert.Equal(t, 4*time.Second, got["plaid"])
	assert.NotContains(t, got, "finicity", "zero timeout falls back to the default")
}

func validConfig() *config.Config {
	return &config.Config{
		Networking: config.NetworkingConfig{Listen: "127.0.0.1:18990"},
		Resilience: config.ResilienceConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			OpenTimeoutMs:    60000,
			HealthWindowMs:   300000,
			DefaultTimeoutMs: 8000,
		},
		Storage: config.StorageConfig{Backend: "sqlite"},
	}
}
