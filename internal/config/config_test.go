package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentora-api/internal/config"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("MENTORA_JWT_SECRET", "secret")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "Asia/Kolkata", cfg.CivilTimezone)
	require.Equal(t, time.Hour, cfg.MeetingDuration)
	require.Equal(t, time.Hour, cfg.DashboardLeadTime)
	require.Equal(t, time.Minute, cfg.BoundaryInterval)
	require.Equal(t, 5*time.Minute, cfg.ReconcileInterval)
	require.True(t, cfg.SchedulerEnabled)
	require.Equal(t, 10, cfg.ActionRateLimitMax)
	require.Equal(t, "*", cfg.CORSAllowOrigins)
	require.Equal(t, ":8080", cfg.HTTPAddress())
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("MENTORA_JWT_SECRET", "secret")
	t.Setenv("MENTORA_APP_PORT", ":9090")
	t.Setenv("MENTORA_MEETING_DURATION", "45m")
	t.Setenv("MENTORA_SCHEDULER_ENABLED", "false")
	t.Setenv("MENTORA_RATE_LIMIT_ACTION_MAX", "3")
	t.Setenv("MENTORA_CORS_ALLOW_ORIGINS", "https://app.mentora.test")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 3, cfg.ActionRateLimitMax)
	require.Equal(t, "https://app.mentora.test", cfg.CORSAllowOrigins)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, 45*time.Minute, cfg.MeetingDuration)
	require.False(t, cfg.SchedulerEnabled)
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	t.Setenv("MENTORA_JWT_SECRET", "")
	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("MENTORA_JWT_SECRET", "secret")
	t.Setenv("MENTORA_REMINDER_LEAD_TIME", "-5m")
	_, err = config.Load()
	require.ErrorContains(t, err, "reminder.lead_time")
}
