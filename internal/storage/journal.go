package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"pdfagent/internal/models"
)

const (
	DefaultPruneInterval = time.Hour
	journalWriteTimeout  = 5 * time.Second
)

// Journal records the outcome of every settled submission. It stores
// metadata only, never summary text or audio.
type Journal struct {
	db *sql.DB
}

func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// Record inserts one submission and returns it with its id.
func (j *Journal) Record(ctx context.Context, sub models.Submission) (*models.Submission, error) {
	if sub.SessionID == "" {
		return nil, errors.New("session_id is required")
	}
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO submissions (session_id, file_name, file_size, prompt_len, outcome, failure_kind, clip_count, started_at, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.SessionID, sub.FileName, sub.FileSize, sub.PromptLen, string(sub.Outcome), string(sub.FailureKind),
		sub.ClipCount, sub.StartedAt.UTC(), sub.SettledAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("submission id: %w", err)
	}
	sub.ID = id
	return &sub, nil
}

// ListBySession returns the newest submissions of a session first.
func (j *Journal) ListBySession(ctx context.Context, sessionID string, limit int) ([]*models.Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, session_id, file_name, file_size, prompt_len, outcome, failure_kind, clip_count, started_at, settled_at
		FROM submissions WHERE session_id = ? ORDER BY settled_at DESC, id DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Submission
	for rows.Next() {
		s := new(models.Submission)
		var outcome, kind string
		if err := rows.Scan(&s.ID, &s.SessionID, &s.FileName, &s.FileSize, &s.PromptLen, &outcome, &kind, &s.ClipCount, &s.StartedAt, &s.SettledAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		s.Outcome = models.Outcome(outcome)
		s.FailureKind = models.FailureKind(kind)
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// Prune deletes rows settled before cutoff.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM submissions WHERE settled_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune submissions: %w", err)
	}
	return res.RowsAffected()
}

// StartPruner removes rows older than retention every interval.
func (j *Journal) StartPruner(ctx context.Context, interval, retention time.Duration) {
	if retention <= 0 {
		return
	}
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	go j.pruneLoop(ctx, interval, retention)
}

func (j *Journal) pruneLoop(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Prune(ctx, time.Now().Add(-retention)); err != nil {
				log.Printf("prune submissions error: %v", err)
			}
		}
	}
}

func (j *Journal) FlightStarted(models.FlightReport) {}

// FlightSettled writes the report. Errors are logged; the journal never
// affects the submission itself.
func (j *Journal) FlightSettled(report models.FlightReport) {
	ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
	defer cancel()
	if _, err := j.Record(ctx, *report.Submission()); err != nil {
		log.Printf("journal flight %s: %v", report.FlightID, err)
	}
}
