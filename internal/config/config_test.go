package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EDUWORK_JWT_SECRET", "secret")
	t.Setenv("EDUWORK_UPLOAD_MAX_MB", "0")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "EduWork API", cfg.AppName)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 5*time.Minute, cfg.StatisticsCacheTTL)
	require.True(t, cfg.AllowLateSubmissions)
	require.Equal(t, 50, cfg.UploadMaxMB)
	require.Equal(t, "eduwork", cfg.EventSubjectPrefix)
	require.Equal(t, "*", cfg.CORSAllowOrigins)
	require.Equal(t, 30, cfg.SubmitRateLimit)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EDUWORK_JWT_SECRET", "secret")
	t.Setenv("EDUWORK_SUBMISSION_ALLOW_LATE", "false")
	t.Setenv("EDUWORK_STATISTICS_CACHE_TTL", "30s")
	t.Setenv("EDUWORK_APP_PORT", ":9090")

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.AllowLateSubmissions)
	require.Equal(t, 30*time.Second, cfg.StatisticsCacheTTL)
	require.Equal(t, ":9090", cfg.HTTPAddress())
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("EDUWORK_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsMalformedTTL(t *testing.T) {
	t.Setenv("EDUWORK_JWT_SECRET", "secret")
	t.Setenv("EDUWORK_STATISTICS_CACHE_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
}
