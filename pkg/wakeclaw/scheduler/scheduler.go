// Package scheduler runs the agent's scheduled jobs using robfig/cron for
// cron expression parsing and SQLite persistence for surviving restarts.
// Every job completion is reported through a wake hook so the heartbeat can
// fold it into its next cycle.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// minJobInterval is the minimum time between consecutive executions of the
// same job. Prevents a spin loop when cron fires multiple times within the
// same second boundary.
const minJobInterval = 2 * time.Second

// Job represents a scheduled task.
type Job struct {
	// ID is the unique job identifier.
	ID string `json:"id" yaml:"id"`

	// Schedule is the cron expression or shorthand.
	// Supports standard 5-field cron, @daily, @every 5m, etc.
	Schedule string `json:"schedule" yaml:"schedule"`

	// Type is the schedule type: "cron" (recurring), "at" (one-shot),
	// "every" (interval).
	Type string `json:"type" yaml:"type"`

	// Command is the shell command or prompt executed when the job fires.
	Command string `json:"command" yaml:"command"`

	// Enabled indicates if the job is active.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// CreatedAt is the creation timestamp.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// LastRunAt is the last execution timestamp.
	LastRunAt *time.Time `json:"last_run_at,omitempty" yaml:"last_run_at,omitempty"`

	// LastError contains the error from the last run, if any.
	LastError string `json:"last_error,omitempty" yaml:"last_error,omitempty"`

	// RunCount tracks how many times the job has executed.
	RunCount int `json:"run_count" yaml:"run_count"`
}

// JobHandler executes a job's command and returns its output or an error.
type JobHandler func(ctx context.Context, job *Job) (string, error)

// WakeHook is called after a job execution finishes (success or failure),
// letting the heartbeat know a scheduled job just completed.
type WakeHook func(jobID string)

// JobStorage defines the persistence interface for jobs.
type JobStorage interface {
	Save(job *Job) error
	Delete(id string) error
	LoadAll() ([]*Job, error)
}

// Scheduler manages scheduled jobs.
type Scheduler struct {
	jobs    map[string]*Job
	cron    *cron.Cron
	cronIDs map[string]cron.EntryID

	// runningJobs guards against duplicate runs when a cron fires while the
	// previous run of the same job is still active.
	runningJobs map[string]bool

	storage    JobStorage
	handler    JobHandler
	wakeHook   WakeHook
	jobTimeout time.Duration

	logger *slog.Logger
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler with the given storage and handler.
func New(storage JobStorage, handler JobHandler, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:        make(map[string]*Job),
		cronIDs:     make(map[string]cron.EntryID),
		runningJobs: make(map[string]bool),
		storage:     storage,
		handler:     handler,
		jobTimeout:  5 * time.Minute,
		logger:      logger.With("component", "scheduler"),
	}
}

// SetWakeHook registers the completion hook.
func (s *Scheduler) SetWakeHook(h WakeHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wakeHook = h
}

// Add registers a new job.
func (s *Scheduler) Add(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %q already exists", job.ID)
	}
	if job.Schedule == "" {
		return fmt.Errorf("job schedule is required")
	}

	job.CreatedAt = time.Now()
	if job.Type == "" {
		job.Type = "cron"
	}

	if s.cron != nil && job.Enabled {
		if err := s.scheduleJob(job); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", job.Schedule, err)
		}
	}

	s.jobs[job.ID] = job

	if s.storage != nil {
		if err := s.storage.Save(job); err != nil {
			s.logger.Error("failed to persist job", "id", job.ID, "error", err)
		}
	}

	s.logger.Info("job added", "id", job.ID, "schedule", job.Schedule, "type", job.Type)
	return nil
}

// Remove deletes a job by ID.
func (s *Scheduler) Remove(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[jobID]; !exists {
		return fmt.Errorf("job %q not found", jobID)
	}

	if entryID, ok := s.cronIDs[jobID]; ok {
		s.cron.Remove(entryID)
		delete(s.cronIDs, jobID)
	}
	delete(s.jobs, jobID)

	if s.storage != nil {
		if err := s.storage.Delete(jobID); err != nil {
			s.logger.Error("failed to remove job from storage", "id", jobID, "error", err)
		}
	}

	s.logger.Info("job removed", "id", jobID)
	return nil
}

// List returns all registered jobs.
func (s *Scheduler) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		result = append(result, j)
	}
	return result
}

// Get returns a job by ID.
func (s *Scheduler) Get(jobID string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	return j, ok
}

// Start initializes the cron engine and loads persisted jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.cron = cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)))

	if s.storage != nil {
		jobs, err := s.storage.LoadAll()
		if err != nil {
			s.logger.Error("failed to load jobs", "error", err)
		} else {
			s.mu.Lock()
			for _, job := range jobs {
				s.jobs[job.ID] = job
				if job.Enabled {
					if err := s.scheduleJob(job); err != nil {
						s.logger.Warn("skipping job with invalid schedule",
							"id", job.ID, "schedule", job.Schedule, "error", err)
					}
				}
			}
			s.mu.Unlock()
			s.logger.Info("jobs loaded from storage", "count", len(jobs))
		}
	}

	s.cron.Start()

	s.mu.RLock()
	jobCount := len(s.jobs)
	s.mu.RUnlock()

	s.logger.Info("scheduler started", "jobs", jobCount)
	return nil
}

// Stop gracefully shuts down the scheduler, waiting briefly for running
// jobs to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		select {
		case <-ctx.Done():
		case <-time.After(10 * time.Second):
			s.logger.Warn("scheduler stop timed out")
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("scheduler stopped")
}

// ---------- Internal ----------

// scheduleJob registers a job with the cron engine. Caller holds s.mu.
func (s *Scheduler) scheduleJob(job *Job) error {
	schedule := job.Schedule

	// One-shot jobs use a plain timer instead of cron.
	if job.Type == "at" {
		go s.runOneShotJob(job, schedule)
		return nil
	}

	if job.Type == "every" && schedule[0] != '@' {
		schedule = "@every " + schedule
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.executeJob(job)
	})
	if err != nil {
		return err
	}

	s.cronIDs[job.ID] = entryID
	return nil
}

// runOneShotJob waits until the job's scheduled time, executes it once and
// removes it.
func (s *Scheduler) runOneShotJob(job *Job, timeStr string) {
	target, err := parseOneShotTime(timeStr)
	if err != nil {
		s.logger.Warn("invalid one-shot time", "id", job.ID, "time", timeStr, "error", err)
		return
	}

	delay := time.Until(target)
	if delay <= 0 {
		s.logger.Warn("one-shot time is in the past, executing immediately", "id", job.ID)
		if _, ok := s.Get(job.ID); ok {
			s.executeJob(job)
			s.Remove(job.ID)
		}
		return
	}

	s.logger.Info("one-shot job scheduled", "id", job.ID, "fires_in", delay.String())

	select {
	case <-time.After(delay):
		// The job may have been removed while waiting.
		if _, ok := s.Get(job.ID); !ok {
			return
		}
		s.executeJob(job)
		s.Remove(job.ID)
	case <-s.ctx.Done():
	}
}

// parseOneShotTime parses one-shot schedule times: relative duration
// ("5m", "1h30m"), RFC3339, "2006-01-02 15:04", and "15:04" (today or
// tomorrow).
func parseOneShotTime(timeStr string) (time.Time, error) {
	now := time.Now()

	if d, err := time.ParseDuration(timeStr); err == nil && d > 0 {
		return now.Add(d), nil
	}
	if t, err := time.Parse(time.RFC3339, timeStr); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04", timeStr); err == nil {
		return t, nil
	}
	if t, err := time.Parse("15:04", timeStr); err == nil {
		target := time.Date(now.Year(), now.Month(), now.Day(),
			t.Hour(), t.Minute(), 0, 0, now.Location())
		if target.Before(now) {
			target = target.Add(24 * time.Hour)
		}
		return target, nil
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", timeStr)
}

// executeJob runs a job through the handler with safety guards: per-job
// running flag against duplicate fires, spin-loop guard, panic recovery and
// a timeout. The wake hook fires after completion regardless of outcome.
func (s *Scheduler) executeJob(job *Job) {
	s.mu.Lock()
	if s.runningJobs[job.ID] {
		s.mu.Unlock()
		s.logger.Warn("skipping job (already running)", "id", job.ID)
		return
	}
	if job.LastRunAt != nil && time.Since(*job.LastRunAt) < minJobInterval {
		s.mu.Unlock()
		s.logger.Debug("skipping job (ran too recently)", "id", job.ID)
		return
	}
	s.runningJobs[job.ID] = true
	wake := s.wakeHook
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.runningJobs, job.ID)
		s.mu.Unlock()

		// One bad job must not crash the rest of the schedule.
		if r := recover(); r != nil {
			s.mu.Lock()
			job.LastError = fmt.Sprintf("panic: %v", r)
			_, stillExists := s.jobs[job.ID]
			s.mu.Unlock()
			s.logger.Error("scheduled job panicked", "id", job.ID, "panic", r)
			if s.storage != nil && stillExists {
				s.storage.Save(job)
			}
		}

		if wake != nil {
			wake(job.ID)
		}
	}()

	s.logger.Info("executing scheduled job", "id", job.ID, "command", job.Command)

	s.mu.Lock()
	now := time.Now()
	job.LastRunAt = &now
	job.RunCount++
	s.mu.Unlock()

	// Persist LastRunAt before execution so a crash mid-run does not make
	// the job fire again immediately on restart.
	if s.storage != nil {
		s.storage.Save(job)
	}

	if s.handler == nil {
		job.LastError = "no handler configured"
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
	defer cancel()

	runStart := time.Now()
	result, err := s.handler(ctx, job)
	runDuration := time.Since(runStart)

	s.mu.Lock()
	if err != nil {
		job.LastError = err.Error()
	} else {
		job.LastError = ""
	}
	_, stillExists := s.jobs[job.ID]
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled job failed", "id", job.ID, "error", err, "duration", runDuration)
	} else {
		s.logger.Info("scheduled job completed", "id", job.ID, "output_len", len(result), "duration", runDuration)
	}

	if s.storage != nil && stillExists {
		s.storage.Save(job)
	}
}
