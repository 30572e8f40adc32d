package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vnykmshr/flowgate/internal/debuglog"
	"github.com/vnykmshr/flowgate/pkg/common/errors"
	"github.com/vnykmshr/flowgate/pkg/common/validation"
	"github.com/vnykmshr/flowgate/pkg/metrics"
	"github.com/vnykmshr/flowgate/pkg/ratelimit/asyncthrottle"
	"github.com/vnykmshr/flowgate/pkg/ratelimit/concurrency"
)

const (
	defaultMaxJobs = 10000
	maxIDLength    = 255
)

// Task is the work a job performs on each run.
type Task func(ctx context.Context) error

// Job is a snapshot of a scheduled job.
type Job struct {
	ID         string
	Expression string
	Overlap    Overlap
	Next       time.Time
	Prev       time.Time
	Running    bool
	Pending    int
}

// Scheduler runs tasks on cron schedules. Every job owns a
// concurrency.Throttler, so its Overlap policy applies to scheduled firings
// and manual triggers alike.
type Scheduler interface {
	// ScheduleCron registers task under id.
	ScheduleCron(id, expr string, task Task, overlap Overlap) error

	// Trigger runs the job now, through its overlap policy. In the
	// SkipIfRunning and Restart policies, and in Coalesce when idle, it
	// waits for the run and returns its error.
	Trigger(ctx context.Context, id string) error

	// Cancel removes the job. Runs in progress finish; queued ones are
	// discarded.
	Cancel(id string) bool

	// List returns the scheduled jobs ordered by id.
	List() []Job

	// Start begins firing jobs on their schedules.
	Start()

	// Stop halts the scheduler. The returned channel closes once every
	// running task has returned. A stopped scheduler cannot be restarted.
	Stop() <-chan struct{}
}

// Config holds configuration options for creating a new Scheduler.
type Config struct {
	// Location is the time zone schedules are evaluated in. Defaults to
	// time.Local.
	Location *time.Location

	// MaxDuration bounds how long a run holds its job's lock. Zero means
	// no timeout.
	MaxDuration time.Duration

	// MaxJobs caps the number of scheduled jobs (default: 10000).
	MaxJobs int

	// Debug enables trace logging, including the cron engine's own.
	Debug bool

	// Name identifies the scheduler in logs and metrics.
	Name string

	// Logger is the base logger used when Debug is set.
	Logger *slog.Logger

	// OnError receives every failed run. Panics arrive as
	// *errors.PanicError.
	OnError func(id string, err error)
}

type job struct {
	id       string
	expr     string
	overlap  Overlap
	schedule cron.Schedule
	entry    cron.EntryID
	task     Task
	gate     concurrency.Throttler
}

type scheduler struct {
	config        Config
	cron          *cron.Cron
	log           debuglog.Logger
	registry      *metrics.Registry
	metricsConfig metrics.Config

	mu      sync.Mutex
	jobs    map[string]*job
	started bool
	stopped bool
	active  sync.WaitGroup
	done    chan struct{}
}

// New creates a scheduler with default configuration.
func New() Scheduler {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a scheduler from config. It panics on an invalid
// config.
func NewWithConfig(config Config) Scheduler {
	s, err := NewWithConfigSafe(config)
	if err != nil {
		panic("invalid scheduler configuration: " + err.Error())
	}
	return s
}

// NewWithConfigSafe creates a scheduler from config, returning an error
// instead of panicking.
func NewWithConfigSafe(config Config) (Scheduler, error) {
	s, err := newScheduler(config, metrics.Config{})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newScheduler(config Config, metricsConfig metrics.Config) (*scheduler, error) {
	if err := validation.ValidateNonNegativeDuration("scheduler", "maxDuration", config.MaxDuration); err != nil {
		return nil, err
	}
	if config.MaxJobs == 0 {
		config.MaxJobs = defaultMaxJobs
	}
	if err := validation.ValidatePositive("scheduler", "maxJobs", config.MaxJobs); err != nil {
		return nil, err
	}
	if config.Location == nil {
		config.Location = time.Local
	}

	log := debuglog.New(config.Logger, "scheduler", config.Name, config.Debug)
	var cronLog cron.Logger = cron.DiscardLogger
	if log.Enabled() {
		cronLog = cronLogger{log: log}
	}

	return &scheduler{
		config:        config,
		cron:          cron.New(cron.WithParser(parser), cron.WithLocation(config.Location), cron.WithLogger(cronLog)),
		log:           log,
		registry:      metrics.For(metricsConfig),
		metricsConfig: metricsConfig,
		jobs:          make(map[string]*job),
		done:          make(chan struct{}),
	}, nil
}

func (s *scheduler) ScheduleCron(id, expr string, task Task, overlap Overlap) error {
	if err := validation.ValidateNotEmpty("scheduler", "id", id); err != nil {
		return err
	}
	if err := validation.ValidateMaxLength("scheduler", "id", id, maxIDLength); err != nil {
		return err
	}
	if task == nil {
		return errors.NewValidationError("scheduler", "task", nil, "cannot be nil")
	}
	if !overlap.valid() {
		return errors.NewValidationError("scheduler", "overlap", int(overlap), "unknown overlap policy")
	}
	schedule, err := parse(expr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return errors.NewOperationError("scheduler", "schedule", errors.ErrClosed)
	}
	if _, exists := s.jobs[id]; exists {
		return errors.NewValidationError("scheduler", "id", id, "already scheduled").
			WithHint("cancel the existing job first or use a different id")
	}
	if len(s.jobs) >= s.config.MaxJobs {
		return errors.NewOperationError("scheduler", "schedule", errors.ErrCapacityExceeded).
			WithContext(fmt.Sprintf("limit of %d jobs", s.config.MaxJobs))
	}

	j := &job{
		id:       id,
		expr:     expr,
		overlap:  overlap,
		schedule: schedule,
		task:     task,
		gate:     s.newGate(id, overlap),
	}
	j.entry = s.cron.Schedule(schedule, cron.FuncJob(func() { s.fire(j) }))
	s.jobs[id] = j

	s.log.Debug("job scheduled", "job", id, "expression", expr, "overlap", overlap.String())
	return nil
}

func (s *scheduler) newGate(id string, overlap Overlap) concurrency.Throttler {
	name := id
	if s.config.Name != "" {
		name = s.config.Name + "/" + id
	}
	config := concurrency.Config{
		Mode:        overlap.Mode(),
		MaxDuration: s.config.MaxDuration,
		Debug:       s.config.Debug,
		Name:        name,
		Logger:      s.config.Logger,
	}
	if s.metricsConfig.Enabled {
		return concurrency.NewWithMetrics(config, s.metricsConfig)
	}
	return concurrency.NewWithConfig(config)
}

func (s *scheduler) Trigger(ctx context.Context, id string) error {
	s.mu.Lock()
	stopped := s.stopped
	j := s.jobs[id]
	s.mu.Unlock()

	if stopped {
		return errors.NewOperationError("scheduler", "trigger", errors.ErrClosed)
	}
	if j == nil {
		return errors.NewOperationError("scheduler", "trigger", errors.ErrNotFound).WithContext("job " + id)
	}
	return s.run(ctx, j)
}

// fire is the cron entry point for a job.
func (s *scheduler) fire(j *job) {
	s.log.Debug("job fired", "job", j.id)
	_ = s.run(context.Background(), j)
}

func (s *scheduler) run(ctx context.Context, j *job) error {
	var ran atomic.Bool
	err := j.gate.Call(ctx, s.guard(j, &ran))
	if j.overlap == SkipIfRunning && !ran.Load() {
		s.log.Debug("run skipped", "job", j.id)
		s.record(j.id, metrics.OutcomeSkipped)
	}
	return err
}

// guard wraps a run of j so it is tracked for Stop, recovered, and
// reported.
func (s *scheduler) guard(j *job, ran *atomic.Bool) asyncthrottle.Action {
	return func(ctx context.Context) (err error) {
		if !s.begin() {
			return nil
		}
		defer s.active.Done()
		ran.Store(true)

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				err = errors.NewPanicError(r)
			}
			s.finish(j.id, time.Since(start), err)
		}()
		return j.task(ctx)
	}
}

// begin registers a run unless the scheduler is stopping.
func (s *scheduler) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.active.Add(1)
	return true
}

func (s *scheduler) finish(id string, elapsed time.Duration, err error) {
	if err == nil {
		s.log.Debug("run succeeded", "job", id, "elapsed", elapsed)
		s.record(id, metrics.OutcomeSucceeded)
		return
	}
	s.log.Error("run failed", "job", id, "elapsed", elapsed, "error", err)
	s.record(id, metrics.OutcomeFailed)
	if s.config.OnError != nil {
		s.config.OnError(id, err)
	}
}

func (s *scheduler) record(id, outcome string) {
	if s.registry == nil {
		return
	}
	s.registry.ScheduledRuns.WithLabelValues(s.config.Name, id, outcome).Inc()
}

func (s *scheduler) Cancel(id string) bool {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.cron.Remove(j.entry)
	j.gate.Dispose()
	s.log.Debug("job cancelled", "job", id)
	return true
}

func (s *scheduler) List() []Job {
	s.mu.Lock()
	jobs := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	now := time.Now().In(s.config.Location)
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		entry := s.cron.Entry(j.entry)
		next := entry.Next
		if next.IsZero() {
			next = j.schedule.Next(now)
		}
		out = append(out, Job{
			ID:         j.id,
			Expression: j.expr,
			Overlap:    j.overlap,
			Next:       next,
			Prev:       entry.Prev,
			Running:    j.gate.IsLocked(),
			Pending:    j.gate.PendingCount(),
		})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

func (s *scheduler) Start() {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.cron.Start()
	s.log.Debug("started")
}

func (s *scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return s.done
	}
	s.stopped = true
	jobs := s.jobs
	s.jobs = make(map[string]*job)
	s.mu.Unlock()

	fired := s.cron.Stop()
	for _, j := range jobs {
		s.cron.Remove(j.entry)
		j.gate.Dispose()
	}
	s.log.Debug("stopping", "jobs", len(jobs))

	go func() {
		<-fired.Done()
		s.active.Wait()
		close(s.done)
	}()
	return s.done
}
