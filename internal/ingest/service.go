package ingest

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"openbook/internal/platform/events"
)

const (
	TriggerStartup  = "startup"
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
	TriggerCLI      = "cli"
)

type Config struct {
	Genres         []string
	TargetPerGenre int
}

// Syncer runs a full pass over a list of genres.
type Syncer interface {
	SyncAll(ctx context.Context, genres []string, perGenreTarget int) Report
}

// EventPublisher is satisfied by *events.Publisher.
type EventPublisher interface {
	Publish(subject, eventName, userID string, props map[string]any)
}

// Service runs the importer with run bookkeeping. At most one run is active at a time.
type Service struct {
	syncer    Syncer
	repo      Repository
	publisher EventPublisher
	cfg       Config
	log       *zap.Logger
	running   atomic.Bool
}

func NewService(syncer Syncer, repo Repository, publisher EventPublisher, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TargetPerGenre <= 0 {
		cfg.TargetPerGenre = DefaultTargetPerGenre
	}
	return &Service{
		syncer:    syncer,
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// Running reports whether a run is in progress.
func (s *Service) Running() bool {
	return s.running.Load()
}

// Run performs a synchronous importer pass.
func (s *Service) Run(ctx context.Context, trigger string) (Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Report{}, ErrAlreadyRunning
	}
	defer s.running.Store(false)
	return s.execute(ctx, trigger)
}

// Start launches a pass in the background. The run is detached from ctx
// cancellation so it completes even when the triggering request ends.
func (s *Service) Start(ctx context.Context, trigger string) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer s.running.Store(false)
		if _, err := s.execute(runCtx, trigger); err != nil {
			s.log.Error("background sync failed", zap.String("trigger", trigger), zap.Error(err))
		}
	}()
	return nil
}

// RunIfEmpty runs the importer only when the book table is empty.
func (s *Service) RunIfEmpty(ctx context.Context) (bool, error) {
	n, err := s.repo.CountBooks(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		s.log.Info("catalog already populated, skipping startup sync", zap.Int("books", n))
		return false, nil
	}
	_, err = s.Run(ctx, TriggerStartup)
	if errors.Is(err, ErrAlreadyRunning) {
		return false, nil
	}
	return true, err
}

func (s *Service) LatestRun(ctx context.Context) (Run, error) {
	return s.repo.LatestRun(ctx)
}

func (s *Service) execute(ctx context.Context, trigger string) (report Report, err error) {
	run := &Run{
		Status:         RunStatusRunning,
		Trigger:        trigger,
		Genres:         s.cfg.Genres,
		TargetPerGenre: s.cfg.TargetPerGenre,
		StartedAt:      time.Now(),
	}
	runID, err := s.repo.CreateRun(ctx, run)
	if err != nil {
		return Report{}, err
	}
	run.ID = runID

	defer func() {
		now := time.Now()
		run.FinishedAt = &now
		if err != nil {
			run.Error = err.Error()
		}
		if run.Error != "" {
			run.Status = RunStatusFailed
		} else {
			run.Status = RunStatusCompleted
		}
		if updateErr := s.repo.UpdateRun(context.WithoutCancel(ctx), run); updateErr != nil {
			s.log.Error("failed to update sync run", zap.Int64("run_id", run.ID), zap.Error(updateErr))
		}
	}()

	s.log.Info("sync started",
		zap.Int64("run_id", run.ID),
		zap.String("trigger", trigger),
		zap.Strings("genres", s.cfg.Genres),
		zap.Int("target_per_genre", s.cfg.TargetPerGenre),
	)

	report = s.syncer.SyncAll(ctx, s.cfg.Genres, s.cfg.TargetPerGenre)
	run.BooksSaved = report.Saved
	run.FailedGenres = report.Failed
	if len(report.Failed) > 0 {
		run.Error = "genres failed: " + strings.Join(report.Failed, ",")
	}
	if ctx.Err() != nil {
		return report, ctx.Err()
	}

	if s.publisher == nil {
		return report, nil
	}
	s.publisher.Publish(events.SubjectCatalogSyncCompleted, "catalog_sync_completed", "", map[string]any{
		"run_id":     run.ID,
		"trigger":    trigger,
		"saved":      report.Saved,
		"elapsed_ms": report.Elapsed.Milliseconds(),
	})
	return report, nil
}
