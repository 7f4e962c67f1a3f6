package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Open connects to the configured backend and verifies it answers.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverMySQL:
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// One writer at a time; conditional updates stay race free.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Open",
		"driver":   driver,
	}).Info("Database connected successfully")
	return db, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "_pragma=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// CreateTables creates the schema for driver if it does not exist yet.
func CreateTables(ctx context.Context, db *sql.DB, driver string) error {
	var tables []string
	switch driver {
	case DriverMySQL:
		tables = mysqlTables
	case DriverSQLite:
		tables = sqliteTables
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return err
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "CreateTables",
		"driver":   driver,
		"tables":   len(tables),
	}).Info("Database tables created successfully")
	return nil
}

var mysqlTables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          VARCHAR(36) PRIMARY KEY,
		username    VARCHAR(50) NOT NULL,
		nickname    VARCHAR(100),
		password    VARCHAR(255) NOT NULL,
		created_at  DATETIME(6) NOT NULL,
		updated_at  DATETIME(6) NOT NULL,
		UNIQUE KEY uk_username (username)
	)`,
	`CREATE TABLE IF NOT EXISTS friendships (
		id           VARCHAR(36) PRIMARY KEY,
		pair_key     VARCHAR(80) NOT NULL,
		requester_id VARCHAR(36) NOT NULL,
		recipient_id VARCHAR(36) NOT NULL,
		status       ENUM('pending', 'accepted') NOT NULL DEFAULT 'pending',
		created_at   DATETIME(6) NOT NULL,
		updated_at   DATETIME(6) NOT NULL,
		UNIQUE KEY uk_pair (pair_key),
		INDEX idx_requester (requester_id, status),
		INDEX idx_recipient (recipient_id, status)
	)`,
	`CREATE TABLE IF NOT EXISTS partnership_states (
		user_id     VARCHAR(36) NOT NULL,
		visibility  VARCHAR(16) NOT NULL,
		status      VARCHAR(32) NOT NULL,
		partner_ids JSON NOT NULL,
		looking_for JSON NOT NULL,
		version     BIGINT NOT NULL,
		updated_at  DATETIME(6) NOT NULL,
		PRIMARY KEY (user_id, visibility)
	)`,
}

var sqliteTables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          TEXT PRIMARY KEY,
		username    TEXT NOT NULL UNIQUE,
		nickname    TEXT,
		password    TEXT NOT NULL,
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS friendships (
		id           TEXT PRIMARY KEY,
		pair_key     TEXT NOT NULL UNIQUE,
		requester_id TEXT NOT NULL,
		recipient_id TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted')),
		created_at   DATETIME NOT NULL,
		updated_at   DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_friendships_requester ON friendships (requester_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_friendships_recipient ON friendships (recipient_id, status)`,
	`CREATE TABLE IF NOT EXISTS partnership_states (
		user_id     TEXT NOT NULL,
		visibility  TEXT NOT NULL,
		status      TEXT NOT NULL,
		partner_ids TEXT NOT NULL,
		looking_for TEXT NOT NULL,
		version     INTEGER NOT NULL,
		updated_at  DATETIME NOT NULL,
		PRIMARY KEY (user_id, visibility)
	)`,
}
