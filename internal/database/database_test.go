package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"screenshot-organizer/internal/config"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(&config.DatabaseConfig{
		Driver:   "sqlite",
		Database: filepath.Join(t.TempDir(), "organizer.db"),
	})
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestAnalysisUpsert(t *testing.T) {
	db := openTestDB(t)

	if _, ok, err := db.GetAnalysis("d1", "llava"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := db.PutAnalysis("d1", "llava", "first"); err != nil {
		t.Fatalf("PutAnalysis: %v", err)
	}
	if err := db.PutAnalysis("d1", "llava", "second"); err != nil {
		t.Fatalf("PutAnalysis overwrite: %v", err)
	}
	text, ok, err := db.GetAnalysis("d1", "llava")
	if err != nil || !ok || text != "second" {
		t.Fatalf("GetAnalysis = (%q, %v, %v)", text, ok, err)
	}
}

func TestRunJournal(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	first := &Run{Operation: "organize_files", Source: "/in", Destination: "/out", Moved: 2, Status: RunStatusSuccess, StartedAt: base, FinishedAt: base.Add(time.Second)}
	second := &Run{Operation: "undo_organization", Source: "/out", Destination: "/in", Moved: 2, Status: RunStatusSuccess, StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute + time.Second)}
	for _, run := range []*Run{first, second} {
		if err := db.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
		if run.ID == "" {
			t.Fatal("expected generated ID")
		}
	}

	runs, err := db.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].Operation != "undo_organization" {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if runs[1].Duration() != time.Second {
		t.Fatalf("unexpected duration %v", runs[1].Duration())
	}
}

func TestBuildDSN(t *testing.T) {
	dsn, err := buildDSN(&config.DatabaseConfig{Driver: "mysql", Host: "db", Username: "u", Password: "p", Database: "org"})
	if err != nil || dsn != "u:p@tcp(db:3306)/org?parseTime=true" {
		t.Fatalf("mysql dsn = %q, %v", dsn, err)
	}
	dsn, err = buildDSN(&config.DatabaseConfig{Driver: "postgres", Host: "db", Username: "u", Password: "p", Database: "org"})
	if err != nil || dsn != "postgres://u:p@db:5432/org?sslmode=disable" {
		t.Fatalf("postgres dsn = %q, %v", dsn, err)
	}
	if _, err := buildDSN(&config.DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	db := &DB{driver: "postgres"}
	if got := db.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("rebind = %q", got)
	}
	db.driver = "mysql"
	if got := db.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("rebind = %q", got)
	}
}
