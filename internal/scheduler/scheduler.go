// Package scheduler runs named jobs on fixed intervals. A Scheduler is a
// constructed instance injected into whatever owns the jobs (the API server,
// the paper trader); there is no process-global scheduler.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coinlab/strategist/internal/logger"
	"github.com/coinlab/strategist/pkg/errors"
)

// JobFunc is one scheduled unit of work. A returned error is logged, not
// fatal; the job keeps its schedule.
type JobFunc func(ctx context.Context) error

// Job describes one registered job.
type Job struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
}

type job struct {
	Job
	fn JobFunc
}

// Scheduler ticks each job on its own interval until stopped.
type Scheduler struct {
	log *logger.Logger

	mu      sync.Mutex
	jobs    map[string]job
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func NewScheduler(log *logger.Logger) *Scheduler {
	return &Scheduler{
		log:  log,
		jobs: make(map[string]job),
	}
}

// Add registers a job and returns its id. Jobs added while the scheduler is
// running start ticking immediately.
func (s *Scheduler) Add(name string, interval time.Duration, fn JobFunc) (string, error) {
	if interval <= 0 {
		return "", errors.New(errors.ErrCodeInvalidParameter, "job interval must be positive")
	}

	if fn == nil {
		return "", errors.New(errors.ErrCodeInvalidParameter, "job function must not be nil")
	}

	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	j := job{
		Job: Job{ID: id, Name: name, Interval: interval},
		fn:  fn,
	}
	s.jobs[id] = j

	if s.running {
		s.spawnLocked(j)
	}

	return id, nil
}

// Remove unregisters a job. A running job finishes its current tick; its
// loop exits on the next tick.
func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return errors.Newf(errors.ErrCodeDataNotFound, "no job with id %s", id)
	}

	delete(s.jobs, id)

	return nil
}

// Jobs lists the registered jobs sorted by name.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.Job)
	}

	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })

	return out
}

// Start launches a ticker loop per registered job. Calling Start twice is an
// error; Stop first.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New(errors.ErrCodeInvalidConfiguration, "scheduler already started")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	// Stash the derived context for jobs added later.
	s.baseCtx = ctx

	for _, j := range s.jobs {
		s.spawnLocked(j)
	}

	s.log.Info("scheduler started", zap.Int("jobs", len(s.jobs)))

	return nil
}

// Stop cancels every job loop and waits for in-flight ticks to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()

		return
	}

	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) spawnLocked(j job) {
	ctx := s.baseCtx

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(j.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			s.mu.Lock()
			_, alive := s.jobs[j.ID]
			s.mu.Unlock()

			if !alive {
				return
			}

			if err := j.fn(ctx); err != nil {
				s.log.Error("scheduled job failed",
					zap.String("job", j.Name),
					zap.String("id", j.ID),
					zap.Error(err))
			}
		}
	}()
}
