// Package sched multiplexes long-running generation jobs onto the
// simulation tick. Jobs are cooperative: each tick every in-flight job gets
// a bounded time slice and suspends itself when the slice is spent, so the
// tick loop never stalls on generation work.
package sched

import (
	"sync/atomic"
	"time"
)

// Status is the lifecycle state of a job.
type Status int32

const (
	StatusPending   Status = iota // submitted, never stepped
	StatusRunning                 // currently inside a slice
	StatusSuspended               // out of slice, resumed next tick
	StatusFinished                // runner completed successfully
	StatusFaulted                 // runner errored or panicked
	StatusCancelled               // cancel observed at a suspension point
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusRunning:
		return "RUNNING"
	case StatusSuspended:
		return "SUSPENDED"
	case StatusFinished:
		return "FINISHED"
	case StatusFaulted:
		return "FAULTED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusFinished, StatusFaulted, StatusCancelled:
		return true
	}
	return false
}

// Runner is one resumable unit of work. Step advances until done or until
// the deadline passes; a non-nil error faults the job. Runners are driven
// from the single scheduler goroutine only.
type Runner interface {
	Step(deadline time.Time) (done bool, err error)
}

// Job tracks one submitted Runner. Owned by the Scheduler; callers hold it
// to poll status, cancel, and read back the runner after completion.
type Job struct {
	id     uint64
	runner Runner

	status    atomic.Int32
	cancelled atomic.Bool

	// Written by the scheduler tick, read by callers after the job turns
	// terminal.
	err     error
	elapsed time.Duration
	slices  int

	submittedAt time.Time
}

// ID returns the scheduler-assigned job ID.
func (j *Job) ID() uint64 { return j.id }

// Runner returns the runner this job wraps.
func (j *Job) Runner() Runner { return j.runner }

// Status returns the current lifecycle state.
func (j *Job) Status() Status { return Status(j.status.Load()) }

// Err returns the fault error. Only meaningful once Status is terminal.
func (j *Job) Err() error { return j.err }

// Elapsed returns the total wall time spent stepping this job.
func (j *Job) Elapsed() time.Duration { return j.elapsed }

// Slices returns how many scheduler slices the job has consumed.
func (j *Job) Slices() int { return j.slices }

// SubmittedAt returns when the job entered the queue.
func (j *Job) SubmittedAt() time.Time { return j.submittedAt }

// Cancel requests cooperative cancellation. The job transitions to
// CANCELLED at its next suspension point; work already performed is the
// caller's to discard.
func (j *Job) Cancel() { j.cancelled.Store(true) }

// CancelRequested reports whether Cancel has been called.
func (j *Job) CancelRequested() bool { return j.cancelled.Load() }

func (j *Job) setStatus(s Status) { j.status.Store(int32(s)) }
