package models

import (
	"encoding/json"
	"time"
)

// Exchange is one completed summary. It is immutable once built.
type Exchange struct {
	id        string
	text      string
	clips     []string
	createdAt time.Time
}

// NewExchange copies clips so later changes by the caller do not leak in.
func NewExchange(id, text string, clips []string, createdAt time.Time) *Exchange {
	copied := make([]string, len(clips))
	copy(copied, clips)
	return &Exchange{id: id, text: text, clips: copied, createdAt: createdAt}
}

func (e *Exchange) ID() string           { return e.id }
func (e *Exchange) Text() string         { return e.text }
func (e *Exchange) CreatedAt() time.Time { return e.createdAt }
func (e *Exchange) ClipCount() int       { return len(e.clips) }

// AudioClips returns the base64 WAV payloads in service order.
func (e *Exchange) AudioClips() []string {
	out := make([]string, len(e.clips))
	copy(out, e.clips)
	return out
}

// Clip returns one payload by index.
func (e *Exchange) Clip(i int) (string, bool) {
	if i < 0 || i >= len(e.clips) {
		return "", false
	}
	return e.clips[i], true
}

func (e *Exchange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID         string    `json:"id"`
		Text       string    `json:"text"`
		AudioClips []string  `json:"audio_clips"`
		CreatedAt  time.Time `json:"created_at"`
	}{e.id, e.text, e.AudioClips(), e.createdAt})
}
