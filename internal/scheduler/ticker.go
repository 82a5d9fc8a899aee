package scheduler

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/DaDevFox/task-systems/household-core/internal/kvstore"
)

const (
	jobsBucket = "jobs"

	// DefaultTick is how often the scheduler looks for due jobs
	DefaultTick = time.Minute
)

var _ Scheduler = (*TickerScheduler)(nil)

type scheduledJob struct {
	record JobRecord
	job    Job
}

// TickerScheduler checks for due jobs on a fixed tick. Job schedules are
// persisted so a restart keeps the existing cadence.
type TickerScheduler struct {
	state  kvstore.Store
	logger *logrus.Logger
	clock  func() time.Time
	tick   time.Duration

	mu      sync.Mutex
	jobs    map[string]*scheduledJob
	running map[string]bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a TickerScheduler
type Option func(*TickerScheduler)

// WithClock replaces time.Now
func WithClock(clock func() time.Time) Option {
	return func(s *TickerScheduler) { s.clock = clock }
}

// WithTick sets the due-job check period
func WithTick(tick time.Duration) Option {
	return func(s *TickerScheduler) {
		if tick > 0 {
			s.tick = tick
		}
	}
}

// NewTickerScheduler creates a scheduler persisting job records in state
func NewTickerScheduler(state kvstore.Store, logger *logrus.Logger, opts ...Option) *TickerScheduler {
	if logger == nil {
		logger = logrus.New()
	}
	s := &TickerScheduler{
		state:   state,
		logger:  logger,
		clock:   time.Now,
		tick:    DefaultTick,
		jobs:    make(map[string]*scheduledJob),
		running: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleDaily registers job to run every interval, first one interval from
// now. With KeepExisting an already registered or persisted schedule of the
// same name keeps its interval and next run time.
func (s *TickerScheduler) ScheduleDaily(ctx context.Context, name string, interval time.Duration, policy ConflictPolicy, job Job) error {
	if name == "" {
		return errors.New("job name is required")
	}
	if interval <= 0 {
		return errors.Errorf("job %s: interval must be positive", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logger.WithFields(logrus.Fields{"job": name, "policy": policy.String()})

	if existing, ok := s.jobs[name]; ok && policy == KeepExisting && !existing.record.Once {
		log.Debug("job already scheduled, keeping existing schedule")
		return nil
	}

	record := JobRecord{
		Name:       name,
		Interval:   interval,
		NextRun:    s.clock().Add(interval),
		LastStatus: StatusPending,
	}

	if policy == KeepExisting {
		var persisted JobRecord
		err := kvstore.GetJSON(ctx, s.state, jobsBucket, name, &persisted)
		switch {
		case err == nil && !persisted.Once:
			log.WithField("next_run", persisted.NextRun).Debug("restored persisted schedule")
			record = persisted
		case err != nil && !errors.Is(err, kvstore.ErrNotFound):
			return errors.Wrapf(err, "load job %s", name)
		}
	}

	if err := kvstore.PutJSON(ctx, s.state, jobsBucket, name, record); err != nil {
		return errors.Wrapf(err, "persist job %s", name)
	}
	s.jobs[name] = &scheduledJob{record: record, job: job}

	log.WithFields(logrus.Fields{
		"interval": interval.String(),
		"next_run": record.NextRun,
	}).Info("job scheduled")
	return nil
}

// ScheduleOnce registers job to run at the next tick. The record is removed
// after the run.
func (s *TickerScheduler) ScheduleOnce(ctx context.Context, name string, job Job) error {
	if name == "" {
		return errors.New("job name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := JobRecord{
		Name:       name,
		Once:       true,
		NextRun:    s.clock(),
		LastStatus: StatusPending,
	}
	if err := kvstore.PutJSON(ctx, s.state, jobsBucket, name, record); err != nil {
		return errors.Wrapf(err, "persist job %s", name)
	}
	s.jobs[name] = &scheduledJob{record: record, job: job}

	s.logger.WithField("job", name).Info("one-off job scheduled")
	return nil
}

// Start runs due jobs immediately and then on every tick until ctx ends or
// Stop is called
func (s *TickerScheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		cancel()
		return
	}
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()

		s.logger.WithField("tick", s.tick.String()).Info("scheduler started")
		s.RunDue(ctx)

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("scheduler stopped")
				return
			case <-ticker.C:
				s.RunDue(ctx)
			}
		}
	}()
}

// Stop cancels the tick loop and waits for the current run to finish
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// RunDue runs every job whose next run time has passed, one after another,
// and returns how many ran
func (s *TickerScheduler) RunDue(ctx context.Context) int {
	now := s.clock()

	s.mu.Lock()
	var due []*scheduledJob
	for name, sj := range s.jobs {
		if !s.running[name] && sj.record.Due(now) {
			s.running[name] = true
			due = append(due, sj)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if !due[i].record.NextRun.Equal(due[j].record.NextRun) {
			return due[i].record.NextRun.Before(due[j].record.NextRun)
		}
		return due[i].record.Name < due[j].record.Name
	})

	ran := 0
	for _, sj := range due {
		if ctx.Err() != nil {
			s.release(sj.record.Name)
			continue
		}
		s.run(ctx, sj)
		ran++
	}
	return ran
}

func (s *TickerScheduler) release(name string) {
	s.mu.Lock()
	delete(s.running, name)
	s.mu.Unlock()
}

func (s *TickerScheduler) run(ctx context.Context, sj *scheduledJob) {
	name := sj.record.Name
	runID := uuid.New().String()
	startedAt := s.clock()

	log := s.logger.WithFields(logrus.Fields{"job": name, "run_id": runID})
	log.Debug("job run started")

	err := sj.job(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, name)

	// the job may have been rescheduled while it ran
	if s.jobs[name] != sj {
		return
	}

	record := &sj.record
	record.LastRun = startedAt
	record.LastRunID = runID
	record.LastStatus = StatusSucceeded
	record.LastError = ""
	if err != nil {
		record.LastStatus = StatusFailed
		record.LastError = err.Error()
		log.WithError(err).Error("job run failed")
	} else {
		log.WithField("duration", s.clock().Sub(startedAt).String()).Info("job run completed")
	}

	if record.Once {
		delete(s.jobs, name)
		if delErr := s.state.Delete(ctx, jobsBucket, name); delErr != nil {
			log.WithError(delErr).Warn("failed to remove one-off job record")
		}
		return
	}

	record.advance(startedAt)
	if putErr := kvstore.PutJSON(ctx, s.state, jobsBucket, name, *record); putErr != nil {
		log.WithError(putErr).Warn("failed to persist job record")
	}
}

// Jobs returns the persisted job records ordered by name
func (s *TickerScheduler) Jobs(ctx context.Context) ([]JobRecord, error) {
	entries, err := s.state.List(ctx, jobsBucket)
	if err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}

	records := make([]JobRecord, 0, len(entries))
	for _, entry := range entries {
		var record JobRecord
		if err := json.Unmarshal(entry.Value, &record); err != nil {
			return nil, errors.Wrapf(err, "decode job %s", entry.Key)
		}
		records = append(records, record)
	}
	return records, nil
}
