package scheduler

import (
	"context"
	"time"
)

// Job is the unit of work a scheduler runs
type Job func(ctx context.Context) error

// ConflictPolicy decides what happens when a job name is already scheduled
type ConflictPolicy int

const (
	// KeepExisting leaves the current schedule untouched
	KeepExisting ConflictPolicy = iota
	// Replace restarts the schedule with the new interval
	Replace
)

func (p ConflictPolicy) String() string {
	switch p {
	case KeepExisting:
		return "keep_existing"
	case Replace:
		return "replace"
	default:
		return "unknown"
	}
}

// Scheduler runs named jobs periodically or once
type Scheduler interface {
	ScheduleDaily(ctx context.Context, name string, interval time.Duration, policy ConflictPolicy, job Job) error
	ScheduleOnce(ctx context.Context, name string, job Job) error
	Start(ctx context.Context)
	Stop()
}

// RunStatus is the outcome of the latest run of a job
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// JobRecord is the persisted state of one scheduled job
type JobRecord struct {
	Name       string        `json:"name"`
	Interval   time.Duration `json:"interval"`
	Once       bool          `json:"once,omitempty"`
	NextRun    time.Time     `json:"next_run"`
	LastRun    time.Time     `json:"last_run,omitempty"`
	LastStatus RunStatus     `json:"last_status"`
	LastRunID  string        `json:"last_run_id,omitempty"`
	LastError  string        `json:"last_error,omitempty"`
}

// Due reports whether the job should run at now
func (r JobRecord) Due(now time.Time) bool {
	return !r.NextRun.After(now)
}

// advance moves NextRun one interval past the run started at ranAt. Missed
// intervals are skipped rather than replayed.
func (r *JobRecord) advance(ranAt time.Time) {
	next := r.NextRun.Add(r.Interval)
	if !next.After(ranAt) {
		next = ranAt.Add(r.Interval)
	}
	r.NextRun = next
}
