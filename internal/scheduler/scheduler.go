package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"lenslingua/internal/logging"
)

type JobFunc func(ctx context.Context) error

// Scheduler runs named jobs on cron schedules (UTC).
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	jobs    map[string]cron.EntryID
	started bool
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]cron.EntryID),
	}
}

// AddJob registers fn under name. An empty spec leaves the job disabled.
func (s *Scheduler) AddJob(name, spec string, fn JobFunc) error {
	log := logging.NewLogger(s.ctx).WithField("job", name)
	if spec == "" {
		log.Info("⚠️ no schedule configured, job disabled")
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	id, err := s.cron.AddFunc(spec, func() {
		log.Infof("🕘 triggered (%s)", spec)
		start := time.Now()
		if err := fn(s.ctx); err != nil {
			log.Errorf("❌ job failed: %v", err)
			return
		}
		log.Infof("✅ job finished in %s", time.Since(start).Round(time.Millisecond))
	})
	if err != nil {
		return fmt.Errorf("schedule %q (%s): %w", name, spec, err)
	}
	s.jobs[name] = id
	return nil
}

// Start runs the scheduler if at least one job is registered.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := logging.NewLogger(s.ctx)
	if len(s.jobs) == 0 {
		log.Warn("⚠️ no jobs registered, scheduler not started")
		return
	}
	s.cron.Start()
	s.started = true
	log.Infof("📅 scheduler started with %d jobs", len(s.jobs))
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()
	if started {
		<-s.cron.Stop().Done()
	}
	s.cancel()
	logging.NewLogger(context.Background()).Info("📅 scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Next returns the next run time of the named job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	entry := s.cron.Entry(id)
	return entry.Next, entry.Valid()
}
