package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, []string{"edu.muriae.mg.gov.br", "muriae.mg.gov.br"}, cfg.OTPAllowedDomains)
	require.Equal(t, 5, cfg.WorkerConcurrency)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigHonoursEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("OTP_ALLOWED_DOMAINS", "escola.example.org")
	t.Setenv("WORKER_CONCURRENCY", "20")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, []string{"escola.example.org"}, cfg.OTPAllowedDomains)
	require.Equal(t, 20, cfg.WorkerConcurrency)
}
