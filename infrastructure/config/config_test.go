package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DISCOVERY_API_KEY", "test-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "https://app.ticketmaster.com/discovery/v2", cfg.DiscoveryBaseURL)
	assert.Equal(t, "test-key", cfg.DiscoveryAPIKey)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresAPIKey(t *testing.T) {
	t.Setenv("DISCOVERY_API_KEY", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCOVERY_API_KEY")
}

func TestValidateProductionRequirements(t *testing.T) {
	t.Setenv("DISCOVERY_API_KEY", "test-key")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("MOCK_BIOMETRIC", "false")

	_, err := LoadConfig()
	require.Error(t, err, "production without JWT_SECRET must fail")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SECURE_STORE_SECRET", "sealing-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestValidateRejectsMockBiometricInProduction(t *testing.T) {
	t.Setenv("DISCOVERY_API_KEY", "test-key")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SECURE_STORE_SECRET", "sealing-secret")
	t.Setenv("MOCK_BIOMETRIC", "true")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MOCK_BIOMETRIC")
}
