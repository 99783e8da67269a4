package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"pdfagent/internal/models"
	"pdfagent/internal/summarizer"
)

var (
	// ErrNoFile means Submit was called with an empty slot. Nothing happened.
	ErrNoFile = errors.New("no file selected")
	// ErrInFlight means a submission for this session is already outstanding.
	ErrInFlight = errors.New("submission already in flight")
	// ErrSessionClosed is returned by operations on an unmounted session.
	ErrSessionClosed = errors.New("session closed")
)

const guardMargin = 30 * time.Second

// Summarizer sends one document and prompt to the remote service.
type Summarizer interface {
	Summarize(ctx context.Context, doc summarizer.Document, prompt string) (*summarizer.Result, error)
}

// Runner executes flights off the request goroutine.
type Runner interface {
	Dispatch(key string, task func()) error
}

// FlightGuard enforces one outstanding submission per session across
// replicas. Acquire reports false when another holder has the key.
type FlightGuard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Observer is told about flights as they start and settle.
type Observer interface {
	FlightStarted(report models.FlightReport)
	FlightSettled(report models.FlightReport)
}

// Policy holds the failure handling switches.
type Policy struct {
	SurfaceFailures     bool
	RetainFileOnFailure bool
	FailureDisplay      time.Duration
	RequestTimeout      time.Duration
}

// Controller drives the Idle -> InFlight -> Idle/Failed cycle of a session.
type Controller struct {
	sessionID string
	slot      *UploadSlot
	prompt    *PromptField
	log       *ResponseLog

	client    Summarizer
	runner    Runner
	guard     FlightGuard
	observers []Observer
	policy    Policy
	onChange  func()

	now   func() time.Time
	newID func() string

	mu      sync.Mutex
	state   models.SubmissionState
	failure *models.Failure
	current *Flight
	last    *Flight
	closed  bool
}

func newController(sessionID string, slot *UploadSlot, prompt *PromptField, rlog *ResponseLog, deps Deps, onChange func()) *Controller {
	c := &Controller{
		sessionID: sessionID,
		slot:      slot,
		prompt:    prompt,
		log:       rlog,
		client:    deps.Client,
		runner:    deps.Runner,
		guard:     deps.Guard,
		observers: deps.Observers,
		policy:    deps.Policy,
		onChange:  onChange,
		now:       deps.Now,
		newID:     deps.NewID,
		state:     models.StateIdle,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if c.runner == nil {
		c.runner = goRunner{}
	}
	return c
}

// Submit dispatches the pending file and prompt. With no file it returns
// ErrNoFile and changes nothing.
func (c *Controller) Submit(ctx context.Context) (*Flight, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if c.state == models.StateInFlight {
		c.mu.Unlock()
		return nil, ErrInFlight
	}
	file := c.slot.retain()
	if file == nil {
		c.mu.Unlock()
		return nil, ErrNoFile
	}
	flight := newFlight(ctx, c.newID(), c.sessionID, file, c.prompt.Current(), c.now())
	c.state = models.StateInFlight
	c.failure = nil
	c.current = flight
	c.mu.Unlock()

	if !c.acquireGuard(ctx) {
		c.revert(flight)
		return nil, ErrInFlight
	}
	// observers hear about the start before the flight can settle
	ready := make(chan struct{})
	if err := c.runner.Dispatch(c.sessionID, func() {
		<-ready
		c.run(flight)
	}); err != nil {
		log.Printf("[session] dispatch for %s rejected: %v", c.sessionID, err)
		c.releaseGuard()
		c.revert(flight)
		return nil, err
	}

	c.mu.Lock()
	c.last = flight
	c.mu.Unlock()
	for _, o := range c.observers {
		o.FlightStarted(flight.baseReport())
	}
	close(ready)
	c.changed()
	return flight, nil
}

// revert undoes a submission that never left the process. The file stays in
// the slot.
func (c *Controller) revert(f *Flight) {
	c.mu.Lock()
	if c.current == f {
		c.current = nil
		c.state = models.StateIdle
	}
	c.mu.Unlock()
	f.file.Release()
}

func (c *Controller) acquireGuard(ctx context.Context) bool {
	if c.guard == nil {
		return true
	}
	ok, err := c.guard.Acquire(ctx, c.sessionID, c.policy.RequestTimeout+guardMargin)
	if err != nil {
		log.Printf("[session] flight guard unavailable for %s: %v", c.sessionID, err)
		return true
	}
	return ok
}

func (c *Controller) releaseGuard() {
	if c.guard == nil {
		return
	}
	if err := c.guard.Release(context.Background(), c.sessionID); err != nil {
		log.Printf("[session] release flight guard for %s: %v", c.sessionID, err)
	}
}

func (c *Controller) run(f *Flight) {
	ctx := f.ctx
	if c.policy.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.RequestTimeout)
		defer cancel()
	}
	res, err := c.call(ctx, f)
	c.settle(f, res, err)
}

func (c *Controller) call(ctx context.Context, f *Flight) (res *summarizer.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &summarizer.Error{Kind: models.FailureRequest, Err: fmt.Errorf("panic while building request: %v", r)}
		}
	}()
	if c.client == nil {
		return nil, &summarizer.Error{Kind: models.FailureConfiguration, Err: summarizer.ErrEndpointMissing}
	}
	res, err = c.client.Summarize(ctx, f.file, f.prompt)
	if err == nil && res == nil {
		err = &summarizer.Error{Kind: models.FailureDecode, Err: errors.New("empty result")}
	}
	return res, err
}

func (c *Controller) settle(f *Flight, res *summarizer.Result, err error) {
	now := c.now()
	report := f.baseReport()
	report.SettledAt = now

	c.mu.Lock()
	if err == nil {
		report.Exchange = models.NewExchange(c.newID(), res.Text, res.Waves, now)
	} else {
		report.Failure = &models.Failure{Kind: summarizer.KindOf(err), Detail: err.Error(), At: now}
	}
	if c.current == f {
		c.current = nil
	}
	switch {
	case c.closed:
		report.Dropped = true
	case err == nil:
		c.log.Prepend(report.Exchange)
		c.slot.Clear()
		c.state = models.StateIdle
	default:
		if !c.policy.RetainFileOnFailure {
			c.slot.Clear()
		}
		if c.policy.SurfaceFailures {
			c.state = models.StateFailed
			c.failure = report.Failure
		} else {
			c.state = models.StateIdle
		}
	}
	f.settle(report)
	c.mu.Unlock()

	if report.Failure != nil {
		log.Printf("[session] flight %s for %s failed (%s): %s", f.id, c.sessionID, report.Failure.Kind, report.Failure.Detail)
	}
	f.file.Release()
	c.releaseGuard()
	for _, o := range c.observers {
		o.FlightSettled(report)
	}
	if !report.Dropped {
		c.changed()
	}
	close(f.done)
}

// State returns the current state. A surfaced failure older than the
// display window reads as Idle.
func (c *Controller) State() models.SubmissionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireFailureLocked()
	return c.state
}

// Failure returns the pending failure without consuming it.
func (c *Controller) Failure() *models.Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireFailureLocked()
	return c.failure
}

// ConsumeFailure returns the pending failure once and moves Failed to Idle.
func (c *Controller) ConsumeFailure() *models.Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireFailureLocked()
	failure := c.failure
	if failure != nil {
		c.failure = nil
		c.state = models.StateIdle
	}
	return failure
}

func (c *Controller) expireFailureLocked() {
	if c.state != models.StateFailed || c.failure == nil {
		return
	}
	if c.policy.FailureDisplay > 0 && c.now().Sub(c.failure.At) >= c.policy.FailureDisplay {
		c.failure = nil
		c.state = models.StateIdle
	}
}

// Current returns the outstanding flight, or nil.
func (c *Controller) Current() *Flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// LastFlight returns the most recently dispatched flight.
func (c *Controller) LastFlight() *Flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// close marks the controller unmounted. An outstanding flight keeps running
// and its result is dropped.
func (c *Controller) close() {
	c.mu.Lock()
	c.closed = true
	c.failure = nil
	c.mu.Unlock()
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

type goRunner struct{}

func (goRunner) Dispatch(_ string, task func()) error {
	go task()
	return nil
}
