// Package session holds the per-page interaction state: the upload slot, the
// prompt, the response log and the submission controller.
package session

import (
	"context"
	"sync"
	"time"

	"pdfagent/internal/models"
	"pdfagent/internal/upload"
)

// Deps are the collaborators shared by every session.
type Deps struct {
	Client    Summarizer
	Runner    Runner
	Guard     FlightGuard
	Observers []Observer
	Policy    Policy

	Now   func() time.Time
	NewID func() string
}

// Session is one mounted page instance.
type Session struct {
	id        string
	createdAt time.Time

	Slot       *UploadSlot
	Prompt     *PromptField
	Log        *ResponseLog
	Controller *Controller

	mu       sync.Mutex
	watchers map[chan struct{}]struct{}
	closed   bool
}

// Snapshot is what the view renders.
type Snapshot struct {
	SessionID string                 `json:"session_id"`
	State     models.SubmissionState `json:"state"`
	Failure   *models.Failure        `json:"failure,omitempty"`
	Pending   *models.PendingUpload  `json:"pending_file"`
	Prompt    string                 `json:"prompt"`
	Exchanges []*models.Exchange     `json:"exchanges"`
}

func New(id string, deps Deps) *Session {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	s := &Session{
		id:        id,
		createdAt: now(),
		Slot:      &UploadSlot{},
		Prompt:    &PromptField{},
		Log:       NewResponseLog(),
		watchers:  make(map[chan struct{}]struct{}),
	}
	s.Controller = newController(id, s.Slot, s.Prompt, s.Log, deps, s.notify)
	return s
}

func (s *Session) ID() string           { return s.id }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SelectFile puts f in the slot, replacing any pending file. The session
// owns the caller's reference from here on.
func (s *Session) SelectFile(f *upload.File) error {
	// Close clears the slot after it sets closed, so selecting under the
	// same lock cannot leave a file behind in an unmounted session.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		f.Release()
		return ErrSessionClosed
	}
	s.Slot.Select(f)
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Session) RemoveFile() {
	s.Slot.Clear()
	s.notify()
}

func (s *Session) SetPrompt(text string) {
	s.Prompt.SetValue(text)
	s.notify()
}

func (s *Session) Submit(ctx context.Context) (*Flight, error) {
	return s.Controller.Submit(ctx)
}

// Snapshot reads the state for rendering. With consume set, a surfaced
// failure is handed out once.
func (s *Session) Snapshot(consume bool) Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		Pending:   s.Slot.Pending(),
		Prompt:    s.Prompt.Current(),
		Exchanges: s.Log.All(),
	}
	if consume {
		snap.Failure = s.Controller.ConsumeFailure()
	} else {
		snap.Failure = s.Controller.Failure()
	}
	snap.State = s.Controller.State()
	if snap.Failure != nil {
		snap.State = models.StateFailed
	}
	return snap
}

// Watch returns a channel that receives a signal after each state change.
// It is closed when the session is unmounted.
func (s *Session) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
}

func (s *Session) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close unmounts the session and releases its pending file. An outstanding
// flight is not cancelled; its result is dropped.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for ch := range s.watchers {
		close(ch)
	}
	s.watchers = nil
	s.mu.Unlock()

	s.Controller.close()
	s.Slot.Clear()
	debugLog("[session] %s unmounted", s.id)
}
