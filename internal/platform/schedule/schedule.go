// Package schedule runs periodic background jobs on cron expressions.
package schedule

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled unit of work. It receives the scheduler's base context.
type Job func(ctx context.Context)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate reports whether spec is an accepted five-field or @descriptor expression.
func Validate(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return nil
}

type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

func New(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers job under name. Panics inside job are recovered and logged.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if err := Validate(spec); err != nil {
		return err
	}
	_, err := s.cron.AddFunc(spec, func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("scheduled job panicked", zap.String("job", name), zap.Any("panic", rec))
			}
		}()
		s.log.Info("scheduled job started", zap.String("job", name))
		job(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.log.Info("job scheduled", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
}

// Stop cancels the job context and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	if !s.running {
		return
	}
	s.running = false

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}
