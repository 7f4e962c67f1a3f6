package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("JWT_TTL_HOURS", "")

	cfg := Load()

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL)
	assert.Equal(t, cfg.MysqlDSN, cfg.DSN())
	assert.Same(t, cfg, Cfg)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("JWT_TTL_HOURS", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.ServerAddr)
	assert.Equal(t, "/tmp/x.db", cfg.DSN())
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}
