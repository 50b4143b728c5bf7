package database

import (
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

const busyTimeoutMillis = 5000

// InitDB opens the database and brings the schema up to date with the goose
// migrations found in migrationsDir. The returned teardown closes the pool.
func InitDB(dbPath string, primaryUrl string, authToken string, migrationsDir string) (*sql.DB, func(), error) {
	var (
		db      *sql.DB
		dialect string
		err     error
	)
	if primaryUrl == "" {
		log.Info("Initializing local-only SQLite database", "path", dbPath)
		db, err = openLocal(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open local database: %w", err)
		}
		dialect = "sqlite3"
	} else {
		log.Info("Initializing Turso database", "url", primaryUrl)
		db, err = sql.Open("libsql", primaryUrl+"?authToken="+authToken)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open db %s: %w", primaryUrl, err)
		}
		dialect = "turso"
	}

	teardown := func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database", "error", err)
		}
	}

	if err := migrate(db, dialect, migrationsDir); err != nil {
		teardown()
		return nil, nil, err
	}
	log.Info("Database initialized successfully")
	return db, teardown, nil
}

func openLocal(dbPath string) (*sql.DB, error) {
	if dbPath == ":memory:" {
		db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
		if err != nil {
			return nil, err
		}
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return db, nil
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=%d&_txlock=immediate", dbPath, busyTimeoutMillis)
	return sql.Open("sqlite3", dsn)
}

func migrate(db *sql.DB, dialect, migrationsDir string) error {
	goose.SetLogger(log.Default())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations from %s: %w", migrationsDir, err)
	}
	return nil
}
