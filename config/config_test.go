package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"MONGO_URI", "MONGODB_URI", "SWEEP_INTERVAL", "NOTIFY_ATTEMPTS", "ALLOWED_ORIGINS", "ENV"} {
		t.Setenv(key, "")
	}

	cfg, _ := Load()
	require.Equal(t, "vendor_settlement", cfg.DBName)
	require.Equal(t, 24*time.Hour, cfg.SweepInterval)
	require.Equal(t, 5, cfg.NotifyAttempts)
	require.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	require.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("SWEEP_INTERVAL", "1h30m")
	t.Setenv("SWEEP_JITTER", "not-a-duration")
	t.Setenv("SWEEP_RUN_AT_START", "true")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("ALLOWED_ORIGINS", "https://admin.example.com, https://ops.example.com,")
	t.Setenv("ENV", "production")

	cfg, _ := Load()
	require.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	require.Equal(t, 90*time.Minute, cfg.SweepInterval)
	require.Equal(t, 5*time.Minute, cfg.SweepJitter)
	require.True(t, cfg.SweepRunAtStart)
	require.Equal(t, 3, cfg.RedisDB)
	require.Equal(t, []string{"https://admin.example.com", "https://ops.example.com"}, cfg.AllowedOrigins)
	require.True(t, cfg.IsProduction())
}

func TestMaskMongoURI(t *testing.T) {
	require.Equal(t, "mongodb://admin:***@db:27017/?authSource=admin",
		maskMongoURI("mongodb://admin:secret@db:27017/?authSource=admin"))
	require.Equal(t, "mongodb://db:27017", maskMongoURI("mongodb://db:27017"))
}
