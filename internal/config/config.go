package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type MySQLConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

type Config struct {
	Addr              string
	CORSAllowOrigins  string
	AdminToken        string
	DBDriver          string
	SQLitePath        string
	RequestTimeout    time.Duration
	CloseGuardTTL     time.Duration
	NotifyQueueSize   int
	RabbitMQURL       string
	RabbitMQExchange  string
	RegisterCloseHour int
	Location          *time.Location
	LogFormat         string
	MySQL             MySQLConfig
	Redis             RedisConfig
	Mongo             MongoConfig
}

// LoadDotEnv reads .env files into the environment without overriding variables that are
// already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

func Load() Config {
	port := getenv("PORT", "8080")

	return Config{
		Addr:              ":" + port,
		CORSAllowOrigins:  os.Getenv("CORS_ALLOW_ORIGINS"),
		AdminToken:        os.Getenv("ADMIN_TOKEN"),
		DBDriver:          strings.ToLower(getenv("DB_DRIVER", "mysql")),
		SQLitePath:        getenv("SQLITE_PATH", "tpv.db"),
		RequestTimeout:    time.Duration(getenvInt("REQUEST_TIMEOUT_SECONDS", 10, 1, 120)) * time.Second,
		CloseGuardTTL:     time.Duration(getenvInt("CLOSE_GUARD_TTL_SECONDS", 30, 1, 600)) * time.Second,
		NotifyQueueSize:   getenvInt("NOTIFY_QUEUE_SIZE", 256, 1, 65536),
		RabbitMQURL:       strings.TrimSpace(os.Getenv("RABBITMQ_URL")),
		RabbitMQExchange:  getenv("RABBITMQ_EXCHANGE", "notifications_fanout"),
		RegisterCloseHour: getenvInt("REGISTER_CLOSE_HOUR", 0, 0, 23),
		Location:          loadLocation(getenv("TIMEZONE", "Europe/Madrid")),
		LogFormat:         strings.ToLower(getenv("LOG_FORMAT", "json")),
		MySQL: MySQLConfig{
			Host:     getenv("DB_HOST", "127.0.0.1"),
			Port:     getenv("DB_PORT", "3306"),
			User:     getenv("DB_USER", "tpv"),
			Password: getenv("DB_PASSWORD", "tpv"),
			DBName:   getenv("DB_NAME", "tpv"),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getenvInt("REDIS_DB", 0, 0, 15),
		},
		Mongo: MongoConfig{
			URI:        strings.TrimSpace(os.Getenv("MONGO_URI")),
			Database:   getenv("MONGO_DATABASE", "tpv"),
			Collection: getenv("MONGO_AUDIT_COLLECTION", "audit_logs"),
		},
	}
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

// getenvInt falls back when the value is unset, malformed or outside [min, max].
func getenvInt(key string, fallback int, min int, max int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if v < min {
		return fallback
	}
	if max > 0 && v > max {
		return fallback
	}
	return v
}
