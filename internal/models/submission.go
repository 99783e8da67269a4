package models

import "time"

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Submission is the journal record of one settled flight. It never carries
// summary text or audio.
type Submission struct {
	ID          int64       `json:"id"`
	SessionID   string      `json:"session_id"`
	FileName    string      `json:"file_name"`
	FileSize    int64       `json:"file_size"`
	PromptLen   int         `json:"prompt_len"`
	Outcome     Outcome     `json:"outcome"`
	FailureKind FailureKind `json:"failure_kind,omitempty"`
	ClipCount   int         `json:"clip_count"`
	StartedAt   time.Time   `json:"started_at"`
	SettledAt   time.Time   `json:"settled_at"`
}
