package models

import "time"

// FlightReport describes one dispatched request, for observers. Exchange is
// set on success, Failure otherwise. Dropped marks a flight that settled
// after its session was unmounted.
type FlightReport struct {
	FlightID  string
	SessionID string
	FileName  string
	FileSize  int64
	PromptLen int
	StartedAt time.Time
	SettledAt time.Time
	Exchange  *Exchange
	Failure   *Failure
	Dropped   bool
}

// Outcome reports success or failure of a settled flight.
func (r FlightReport) Outcome() Outcome {
	if r.Failure != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// Submission converts the report into a journal record.
func (r FlightReport) Submission() *Submission {
	s := &Submission{
		SessionID: r.SessionID,
		FileName:  r.FileName,
		FileSize:  r.FileSize,
		PromptLen: r.PromptLen,
		Outcome:   r.Outcome(),
		StartedAt: r.StartedAt,
		SettledAt: r.SettledAt,
	}
	if r.Failure != nil {
		s.FailureKind = r.Failure.Kind
	}
	if r.Exchange != nil {
		s.ClipCount = r.Exchange.ClipCount()
	}
	return s
}
