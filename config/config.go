package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read once from the environment.
type Config struct {
	Environment string
	Port        string
	LogLevel    string

	MongoURI string
	DBName   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	JWTSecret      string
	AllowedOrigins []string

	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	SMTPFrom   string
	AdminEmail string

	FirebaseProjectID         string
	FirebaseCredentialsFile   string
	FirebaseCredentialsBase64 string

	SweepInterval   time.Duration
	SweepJitter     time.Duration
	SweepRunAtStart bool

	NotifyWorkers   int
	NotifyQueueSize int
	NotifyAttempts  int
	NotifyDelay     time.Duration
	NotifyMaxDelay  time.Duration
}

// Load reads an optional .env file and then the environment. The returned bool
// reports whether a .env file was found.
func Load() (*Config, bool) {
	envLoaded := godotenv.Load() == nil

	mongoURI := getEnv("MONGO_URI", "")
	if mongoURI == "" {
		mongoURI = getEnv("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0")
	}

	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		MongoURI: mongoURI,
		DBName:   getEnv("DB_NAME", "vendor_settlement"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		LockTTL:       getEnvDuration("SETTLEMENT_LOCK_TTL", 30*time.Second),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),

		SMTPHost:   getEnv("SMTP_HOST", ""),
		SMTPPort:   getEnvInt("SMTP_PORT", 2525),
		SMTPUser:   getEnv("SMTP_USER", ""),
		SMTPPass:   getEnv("SMTP_PASS", ""),
		SMTPFrom:   getEnv("SMTP_FROM", ""),
		AdminEmail: getEnv("ADMIN_EMAIL", ""),

		FirebaseProjectID:         getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile:   getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		FirebaseCredentialsBase64: getEnv("FIREBASE_CREDENTIALS_BASE64", ""),

		SweepInterval:   getEnvDuration("SWEEP_INTERVAL", 24*time.Hour),
		SweepJitter:     getEnvDuration("SWEEP_JITTER", 5*time.Minute),
		SweepRunAtStart: getEnvBool("SWEEP_RUN_AT_START", false),

		NotifyWorkers:   getEnvInt("NOTIFY_WORKERS", 2),
		NotifyQueueSize: getEnvInt("NOTIFY_QUEUE_SIZE", 256),
		NotifyAttempts:  getEnvInt("NOTIFY_ATTEMPTS", 5),
		NotifyDelay:     getEnvDuration("NOTIFY_DELAY", 2*time.Second),
		NotifyMaxDelay:  getEnvDuration("NOTIFY_MAX_DELAY", time.Minute),
	}
	return cfg, envLoaded
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil && value > 0 {
		return value
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
