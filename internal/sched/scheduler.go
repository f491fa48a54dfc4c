package sched

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultJobSlice bounds one job's share of a tick. Generation work on the
// order of single-digit milliseconds keeps the tick smooth.
const DefaultJobSlice = 2 * time.Millisecond

// DefaultTickBudget bounds the whole scheduler pass regardless of how many
// jobs are in flight.
const DefaultTickBudget = 5 * time.Millisecond

// Scheduler advances in-flight jobs in submission order, one bounded slice
// per job per tick. Thread-safe, but Tick is expected to be driven from a
// single simulation loop.
type Scheduler struct {
	mu   sync.Mutex
	jobs []*Job

	slice      time.Duration
	tickBudget time.Duration
	nextID     atomic.Uint64

	// Now is the clock for slice accounting. Replaceable in tests.
	Now func() time.Time
}

// NewScheduler creates a scheduler with the given per-job slice and
// per-tick total budget. Non-positive values fall back to the defaults.
func NewScheduler(slice, tickBudget time.Duration) *Scheduler {
	if slice <= 0 {
		slice = DefaultJobSlice
	}
	if tickBudget <= 0 {
		tickBudget = DefaultTickBudget
	}
	return &Scheduler{
		slice:      slice,
		tickBudget: tickBudget,
		Now:        time.Now,
	}
}

// Submit enqueues a runner and returns its job handle.
func (s *Scheduler) Submit(r Runner) *Job {
	job := &Job{
		id:          s.nextID.Add(1),
		runner:      r,
		submittedAt: s.Now(),
	}
	job.setStatus(StatusPending)

	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()

	slog.Debug("job submitted", "jobID", job.id)
	return job
}

// InFlight returns the number of non-terminal jobs in the queue.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Tick advances every queued job by at most one slice and returns the jobs
// that reached a terminal state this tick. Terminal jobs are removed from
// the queue: the caller observes each exactly once. The whole pass is
// bounded by the tick budget; jobs that miss out resume next tick.
func (s *Scheduler) Tick() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.Now()
	var terminal []*Job
	kept := s.jobs[:0]

	for i, job := range s.jobs {
		// Tick budget spent: everything else waits for the next tick.
		if s.Now().Sub(start) >= s.tickBudget {
			kept = append(kept, s.jobs[i:]...)
			break
		}

		// Suspension-point cancellation check.
		if job.CancelRequested() {
			job.setStatus(StatusCancelled)
			terminal = append(terminal, job)
			slog.Debug("job cancelled", "jobID", job.id, "slices", job.slices)
			continue
		}

		job.setStatus(StatusRunning)
		sliceStart := s.Now()
		deadline := sliceStart.Add(s.slice)
		if tickEnd := start.Add(s.tickBudget); tickEnd.Before(deadline) {
			deadline = tickEnd
		}

		done, err := s.step(job, deadline)
		job.elapsed += s.Now().Sub(sliceStart)
		job.slices++

		switch {
		case err != nil:
			job.err = err
			job.setStatus(StatusFaulted)
			terminal = append(terminal, job)
			slog.Error("job faulted",
				"jobID", job.id,
				"slices", job.slices,
				"error", err)
		case done:
			job.setStatus(StatusFinished)
			terminal = append(terminal, job)
			slog.Debug("job finished",
				"jobID", job.id,
				"slices", job.slices,
				"elapsed", job.elapsed)
		default:
			job.setStatus(StatusSuspended)
			kept = append(kept, job)
		}
	}

	// Zero the tail so removed jobs do not pin memory.
	for i := len(kept); i < len(s.jobs); i++ {
		s.jobs[i] = nil
	}
	s.jobs = kept
	return terminal
}

// step runs one slice with panic containment: a panicking runner faults
// its own job, never the tick loop.
func (s *Scheduler) step(job *Job, deadline time.Time) (done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			done = false
			err = fmt.Errorf("job %d panicked: %v", job.id, r)
		}
	}()
	return job.runner.Step(deadline)
}
