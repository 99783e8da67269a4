package models

import "time"

// SubmissionState is the controller state of one session.
type SubmissionState string

const (
	StateIdle     SubmissionState = "idle"
	StateInFlight SubmissionState = "in_flight"
	StateFailed   SubmissionState = "failed"
)

// FlightStatus is the lifecycle of a single dispatched request.
type FlightStatus string

const (
	FlightPending FlightStatus = "pending"
	FlightSettled FlightStatus = "settled"
)

// FailureKind classifies why a submission did not produce an exchange.
type FailureKind string

const (
	FailureConfiguration FailureKind = "configuration"
	FailureTransport     FailureKind = "transport"
	FailureDecode        FailureKind = "decode"
	FailureRequest       FailureKind = "request"
)

// Failure is the transient record of a failed submission.
type Failure struct {
	Kind   FailureKind `json:"kind"`
	Detail string      `json:"detail"`
	At     time.Time   `json:"at"`
}
