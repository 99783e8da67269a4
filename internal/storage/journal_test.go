package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"pdfagent/internal/config"
	"pdfagent/internal/models"
)

func newTestJournal(t *testing.T) (*Journal, *sql.DB) {
	t.Helper()
	cfg := config.DatabaseConfig{Driver: "sqlite3", DSN: filepath.Join(t.TempDir(), "journal.db")}
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := Migrate(db, cfg.Driver); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewJournal(db), db
}

func TestJournalRecordAndList(t *testing.T) {
	j, _ := newTestJournal(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first, err := j.Record(ctx, models.Submission{
		SessionID: "s1", FileName: "a.pdf", FileSize: 10, PromptLen: 0,
		Outcome: models.OutcomeSuccess, ClipCount: 2, StartedAt: base, SettledAt: base.Add(time.Second),
	})
	if err != nil || first.ID == 0 {
		t.Fatalf("record: %v id=%v", err, first)
	}
	if _, err := j.Record(ctx, models.Submission{
		SessionID: "s1", FileName: "b.pdf", FileSize: 20, PromptLen: 5,
		Outcome: models.OutcomeFailure, FailureKind: models.FailureTransport, StartedAt: base.Add(time.Minute), SettledAt: base.Add(2 * time.Minute),
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := j.Record(ctx, models.Submission{SessionID: "other", FileName: "c.pdf", Outcome: models.OutcomeSuccess, StartedAt: base, SettledAt: base}); err != nil {
		t.Fatalf("record: %v", err)
	}

	subs, err := j.ListBySession(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(subs))
	}
	if subs[0].FileName != "b.pdf" || subs[0].FailureKind != models.FailureTransport || subs[0].Outcome != models.OutcomeFailure {
		t.Fatalf("unexpected newest submission %#v", subs[0])
	}
	if subs[1].ClipCount != 2 || !subs[1].SettledAt.Equal(base.Add(time.Second)) {
		t.Fatalf("unexpected oldest submission %#v", subs[1])
	}
}

func TestJournalRequiresSession(t *testing.T) {
	j, _ := newTestJournal(t)
	if _, err := j.Record(context.Background(), models.Submission{}); err == nil {
		t.Fatalf("expected error without session id")
	}
}

func TestJournalPrune(t *testing.T) {
	j, _ := newTestJournal(t)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()
	for _, at := range []time.Time{old, recent} {
		if _, err := j.Record(ctx, models.Submission{SessionID: "s", Outcome: models.OutcomeSuccess, StartedAt: at, SettledAt: at}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	n, err := j.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("prune: n=%d err=%v", n, err)
	}
	subs, _ := j.ListBySession(ctx, "s", 10)
	if len(subs) != 1 {
		t.Fatalf("expected one remaining submission, got %d", len(subs))
	}
}

func TestJournalObservesSettledFlights(t *testing.T) {
	j, _ := newTestJournal(t)
	now := time.Now()
	j.FlightStarted(models.FlightReport{FlightID: "f0", SessionID: "s"})
	j.FlightSettled(models.FlightReport{
		FlightID: "f1", SessionID: "s", FileName: "a.pdf", FileSize: 3, PromptLen: 4,
		StartedAt: now, SettledAt: now,
		Failure: &models.Failure{Kind: models.FailureDecode, Detail: "bad", At: now},
	})
	j.FlightSettled(models.FlightReport{
		FlightID: "f2", SessionID: "s", FileName: "b.pdf",
		StartedAt: now, SettledAt: now.Add(time.Second),
		Exchange: models.NewExchange("ex", "text", []string{"QUJD"}, now),
	})

	subs, err := j.ListBySession(context.Background(), "s", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected only settled flights journaled, got %d", len(subs))
	}
	if subs[0].Outcome != models.OutcomeSuccess || subs[0].ClipCount != 1 {
		t.Fatalf("unexpected success row %#v", subs[0])
	}
	if subs[1].Outcome != models.OutcomeFailure || subs[1].FailureKind != models.FailureDecode || subs[1].PromptLen != 4 {
		t.Fatalf("unexpected failure row %#v", subs[1])
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open(config.DatabaseConfig{Driver: "postgres"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := Open(config.DatabaseConfig{Driver: "sqlite3"}); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}
