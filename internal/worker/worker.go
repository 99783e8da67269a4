package worker

import (
	"log"
	"runtime/debug"
)

type JobType int

const (
	Run JobType = iota
	Stop
)

func (t JobType) String() string {
	switch t {
	case Run:
		return "run"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Job is what travels on a worker channel. Key groups jobs for fair
// dispatch, usually a session id.
type Job struct {
	Type JobType
	Key  string
	Task func()
}

type Worker struct {
	pool       *jobChannelPool
	jobChannel chan Job
}

func newWorker(pool *jobChannelPool) *Worker {
	return &Worker{
		pool:       pool,
		jobChannel: make(chan Job),
	}
}

func (w *Worker) Start() {
	go func() {
		for {
			if !w.pool.Release(w.jobChannel) {
				return
			}
			job := <-w.jobChannel
			switch job.Type {
			case Stop:
				w.pool.retire(w.jobChannel)
				return
			case Run:
				w.execute(job)
			}
		}
	}()
}

func (w *Worker) execute(job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[worker] job for %s panicked: %v\n%s", job.Key, r, debug.Stack())
		}
	}()
	if job.Task != nil {
		job.Task()
	}
}
