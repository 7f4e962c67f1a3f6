package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr      string
	DBDriver        string // mysql or sqlite
	MysqlDSN        string
	SQLitePath      string
	JWTSecret       string
	JWTTTL          time.Duration
	LogLevel        string
	LogFormat       string // text or json
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

var Cfg *Config

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	Cfg = &Config{
		ServerAddr:      ":" + getEnv("PORT", "8080"),
		DBDriver:        getEnv("DB_DRIVER", "mysql"),
		MysqlDSN:        getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/relbox?charset=utf8mb4&parseTime=True&loc=UTC"),
		SQLitePath:      getEnv("SQLITE_PATH", "./relbox.db"),
		JWTSecret:       getEnv("JWT_SECRET", "relbox-secret-key-change-in-production"),
		JWTTTL:          time.Duration(getEnvInt("JWT_TTL_HOURS", 72)) * time.Hour,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		AllowedOrigins:  getEnvSlice("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
		ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 5)) * time.Second,
	}
	return Cfg
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.MysqlDSN
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvSlice(key, defaultValue string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, defaultValue), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
