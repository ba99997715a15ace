package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"screenshot-organizer/internal/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

type DB struct {
	conn   *sql.DB
	driver string
}

// NewDB opens the configured store and creates its tables.
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}
	if isSQLite(cfg.Driver) {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn, driver: cfg.Driver}
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func isSQLite(driver string) bool {
	return driver == "sqlite3" || driver == "sqlite"
}

func buildDSN(cfg *config.DatabaseConfig) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	switch cfg.Driver {
	case "sqlite3", "sqlite":
		return cfg.Database, nil
	case "mysql":
		port := cfg.Port
		if port == 0 {
			port = 3306
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			cfg.Username, cfg.Password, cfg.Host, port, cfg.Database), nil
	case "postgres":
		port := cfg.Port
		if port == 0 {
			port = 5432
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.Username, cfg.Password),
			Host:     cfg.Host + ":" + strconv.Itoa(port),
			Path:     "/" + cfg.Database,
			RawQuery: "sslmode=disable",
		}
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS analyses (
		digest VARCHAR(64) NOT NULL,
		model VARCHAR(255) NOT NULL,
		text TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (digest, model)
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		operation VARCHAR(64) NOT NULL,
		source TEXT NOT NULL,
		destination TEXT NOT NULL,
		moved INTEGER NOT NULL,
		status VARCHAR(16) NOT NULL,
		error TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL
	)`,
}

func (db *DB) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites '?' placeholders for drivers that number them.
func (db *DB) rebind(query string) string {
	if db.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) GetAnalysis(digest, model string) (string, bool, error) {
	var text string
	err := db.conn.QueryRow(
		db.rebind(`SELECT text FROM analyses WHERE digest = ? AND model = ?`),
		digest, model,
	).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

func (db *DB) PutAnalysis(digest, model, text string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(db.rebind(`DELETE FROM analyses WHERE digest = ? AND model = ?`), digest, model); err != nil {
		return err
	}
	if _, err := tx.Exec(
		db.rebind(`INSERT INTO analyses (digest, model, text, created_at) VALUES (?, ?, ?, ?)`),
		digest, model, text, time.Now().UTC(),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordRun stores a finished run, assigning an ID when it has none.
func (db *DB) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := db.conn.ExecContext(ctx,
		db.rebind(`INSERT INTO runs (id, operation, source, destination, moved, status, error, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.Operation, run.Source, run.Destination, run.Moved, run.Status, run.Error,
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	return err
}

// ListRuns returns the most recent runs first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx,
		db.rebind(`SELECT id, operation, source, destination, moved, status, error, started_at, finished_at
			FROM runs ORDER BY started_at DESC LIMIT ?`),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.Operation, &run.Source, &run.Destination, &run.Moved,
			&run.Status, &run.Error, &run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
