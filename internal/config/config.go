package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName              string
	AppEnv               string
	AppPort              string
	DatabaseURL          string
	RedisURL             string
	NATSURL              string
	JWTSecret            string
	CivilTimezone        string
	MeetingDuration      time.Duration
	DashboardLeadTime    time.Duration
	ReminderLeadTime     time.Duration
	ReconcileInterval    time.Duration
	ReminderInterval     time.Duration
	BoundaryInterval     time.Duration
	CourseStatusCacheTTL time.Duration
	EventsChannel        string
	SchedulerEnabled     bool
	RateLimitMax         int
	ActionRateLimitMax   int
	RateLimitWindow      time.Duration
	CORSAllowOrigins     string
	DefaultPaymentAmount int64
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("MENTORA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Mentora API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("civil.timezone", "Asia/Kolkata")
	v.SetDefault("meeting.duration", "1h")
	v.SetDefault("dashboard.lead_time", "1h")
	v.SetDefault("reminder.lead_time", "1h")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.reconcile_interval", "5m")
	v.SetDefault("scheduler.reminder_interval", "10m")
	v.SetDefault("scheduler.boundary_interval", "1m")
	v.SetDefault("course_status.cache_ttl", "5m")
	v.SetDefault("events.channel", "mentora")
	v.SetDefault("rate_limit.max", 120)
	v.SetDefault("rate_limit.action_max", 10)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("payment.default_amount_minor", 0)

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		DatabaseURL:          v.GetString("database.url"),
		RedisURL:             v.GetString("redis.url"),
		NATSURL:              v.GetString("nats.url"),
		JWTSecret:            v.GetString("jwt.secret"),
		CivilTimezone:        strings.TrimSpace(v.GetString("civil.timezone")),
		EventsChannel:        v.GetString("events.channel"),
		SchedulerEnabled:     v.GetBool("scheduler.enabled"),
		RateLimitMax:         v.GetInt("rate_limit.max"),
		ActionRateLimitMax:   v.GetInt("rate_limit.action_max"),
		CORSAllowOrigins:     strings.TrimSpace(v.GetString("cors.allow_origins")),
		DefaultPaymentAmount: v.GetInt64("payment.default_amount_minor"),
	}

	durations := map[string]*time.Duration{
		"meeting.duration":             &cfg.MeetingDuration,
		"dashboard.lead_time":          &cfg.DashboardLeadTime,
		"reminder.lead_time":           &cfg.ReminderLeadTime,
		"scheduler.reconcile_interval": &cfg.ReconcileInterval,
		"scheduler.reminder_interval":  &cfg.ReminderInterval,
		"scheduler.boundary_interval":  &cfg.BoundaryInterval,
		"course_status.cache_ttl":      &cfg.CourseStatusCacheTTL,
		"rate_limit.window":            &cfg.RateLimitWindow,
	}
	for key, target := range durations {
		parsed, err := parseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		*target = parsed
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.CivilTimezone == "" {
		cfg.CivilTimezone = "Asia/Kolkata"
	}

	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 120
	}

	if cfg.ActionRateLimitMax <= 0 {
		cfg.ActionRateLimitMax = 10
	}

	return cfg, nil
}

func parseDuration(raw string) (time.Duration, error) {
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", raw)
	}
	return parsed, nil
}
