package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr string

	BotToken       string
	BotPollTimeout int
	BotDebug       bool

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DedupTTL      time.Duration

	ReferenceTimezone string

	PointsPerMessage int64
	PointsPerSticker int64
	PolicyVersion    int

	LeaderboardLimit    int
	LeaderboardCacheTTL time.Duration

	LedgerRetention time.Duration
	PruneInterval   time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "chatrank"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		BotToken:       strings.TrimSpace(getenv("TELEGRAM_BOT_TOKEN", "")),
		BotPollTimeout: getenvInt("TELEGRAM_POLL_TIMEOUT", 60),
		BotDebug:       getenvBool("TELEGRAM_DEBUG", false),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "chatrank"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
		RedisDB:       getenvInt("REDIS_DB", 0),
		DedupTTL:      getenvDuration("DEDUP_TTL", 24*time.Hour),

		ReferenceTimezone: getenv("REFERENCE_TIMEZONE", "UTC"),

		PointsPerMessage: getenvInt64("POINTS_PER_MESSAGE", 1),
		PointsPerSticker: getenvInt64("POINTS_PER_STICKER", 2),
		PolicyVersion:    getenvInt("SCORING_POLICY_VERSION", 1),

		LeaderboardLimit:    getenvInt("LEADERBOARD_LIMIT", 10),
		LeaderboardCacheTTL: getenvDuration("LEADERBOARD_CACHE_TTL", 15*time.Second),

		LedgerRetention: getenvDuration("LEDGER_RETENTION", 30*24*time.Hour),
		PruneInterval:   getenvDuration("PRUNE_INTERVAL", time.Hour),
	}
}

var Module = fx.Module("config",
	fx.Provide(Load),
)

func getenv(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
