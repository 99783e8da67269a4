package session

import (
	"context"
	"sync"
	"time"

	"pdfagent/internal/models"
	"pdfagent/internal/upload"
)

// Flight is one dispatched request. It is never cancelled; Done closes when
// it settles.
type Flight struct {
	id        string
	sessionID string
	file      *upload.File
	prompt    string
	startedAt time.Time
	ctx       context.Context

	done   chan struct{}
	mu     sync.Mutex
	status models.FlightStatus
	report models.FlightReport
}

func newFlight(ctx context.Context, id, sessionID string, file *upload.File, prompt string, startedAt time.Time) *Flight {
	return &Flight{
		id:        id,
		sessionID: sessionID,
		file:      file,
		prompt:    prompt,
		startedAt: startedAt,
		ctx:       context.WithoutCancel(ctx),
		done:      make(chan struct{}),
		status:    models.FlightPending,
	}
}

func (f *Flight) ID() string { return f.id }

func (f *Flight) Done() <-chan struct{} { return f.done }

func (f *Flight) Status() models.FlightStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Report is complete once Done is closed.
func (f *Flight) Report() models.FlightReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.report
}

func (f *Flight) baseReport() models.FlightReport {
	return models.FlightReport{
		FlightID:  f.id,
		SessionID: f.sessionID,
		FileName:  f.file.Name(),
		FileSize:  f.file.Size(),
		PromptLen: len(f.prompt),
		StartedAt: f.startedAt,
	}
}

func (f *Flight) settle(report models.FlightReport) {
	f.mu.Lock()
	f.status = models.FlightSettled
	f.report = report
	f.mu.Unlock()
}
