// Package jobs runs named maintenance tasks on cron schedules and lets
// operators pause them or trigger them by hand.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var ErrDuplicateJob = errors.New("job already registered")

type Task func(ctx context.Context) error

// JobInfo is a point-in-time view of a registered job.
type JobInfo struct {
	Name     string     `json:"name"`
	Schedule string     `json:"schedule"`
	Enabled  bool       `json:"enabled"`
	LastRun  *time.Time `json:"lastRun"`
}

type job struct {
	name     string
	schedule string
	enabled  bool
	lastRun  time.Time
	task     Task
}

// Registry owns the cron runner and every job registered with it. Scheduled
// and manual runs of one job may overlap, so tasks must tolerate that.
type Registry struct {
	mu     sync.RWMutex
	cron   *cron.Cron
	jobs   []*job
	byName map[string]*job
	now    func() time.Time
	log    zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		cron:   cron.New(cron.WithSeconds()),
		byName: make(map[string]*job),
		now:    time.Now,
		log:    log,
	}
}

// Register adds an enabled job. Six-field cron expressions (with seconds)
// are expected.
func (r *Registry) Register(name string, schedule string, task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	j := &job{name: name, schedule: schedule, enabled: true, task: task}
	if _, err := r.cron.AddFunc(schedule, func() { r.fire(j) }); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}

	r.jobs = append(r.jobs, j)
	r.byName[name] = j
	return nil
}

func (r *Registry) List() []JobInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]JobInfo, 0, len(r.jobs))
	for _, j := range r.jobs {
		info := JobInfo{Name: j.name, Schedule: j.schedule, Enabled: j.enabled}
		if !j.lastRun.IsZero() {
			lastRun := j.lastRun
			info.LastRun = &lastRun
		}
		infos = append(infos, info)
	}
	return infos
}

// Toggle reports false when no job has that name.
func (r *Registry) Toggle(name string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.byName[name]
	if !ok {
		return false
	}
	j.enabled = enabled
	r.log.Info().Str("job", name).Bool("enabled", enabled).Msg("job toggled")
	return true
}

// RunManually executes the job now, ignoring its enabled flag. It returns
// true once the task has been invoked, whether or not the task succeeded.
func (r *Registry) RunManually(ctx context.Context, name string) bool {
	r.mu.RLock()
	j, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	r.execute(ctx, j, "manual")
	return true
}

func (r *Registry) fire(j *job) {
	r.mu.RLock()
	enabled := j.enabled
	r.mu.RUnlock()
	if !enabled {
		r.log.Debug().Str("job", j.name).Msg("job disabled, skipping")
		return
	}

	r.execute(context.Background(), j, "schedule")
}

func (r *Registry) execute(ctx context.Context, j *job, trigger string) {
	started := r.now()
	r.mu.Lock()
	j.lastRun = started
	r.mu.Unlock()

	defer func() {
		if recovered := recover(); recovered != nil {
			r.log.Error().
				Str("job", j.name).
				Str("trigger", trigger).
				Interface("panic", recovered).
				Msg("job panicked")
		}
	}()

	if err := j.task(ctx); err != nil {
		r.log.Error().Err(err).Str("job", j.name).Str("trigger", trigger).Msg("job failed")
		return
	}
	r.log.Info().
		Str("job", j.name).
		Str("trigger", trigger).
		Dur("took", time.Since(started)).
		Msg("job finished")
}

func (r *Registry) Start() {
	r.cron.Start()
}

// Stop halts the timers. The returned context is done once running
// scheduled jobs have returned.
func (r *Registry) Stop() context.Context {
	return r.cron.Stop()
}
