package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTargetPerGenre = 100
	maxConsecutiveErrors  = 3
	maxConsecutiveEmpty   = 3
)

// GenreState is the reason a genre loop stopped.
type GenreState string

const (
	StateTargetReached GenreState = "target_reached"
	StateFailed        GenreState = "failed"
	StateExhausted     GenreState = "exhausted"
	StateCanceled      GenreState = "canceled"
)

type GenreResult struct {
	Genre   string        `json:"genre"`
	Saved   int           `json:"saved"`
	Pages   int           `json:"pages"`
	State   GenreState    `json:"state"`
	Elapsed time.Duration `json:"elapsed"`
}

// PageFetcher imports one page of a genre.
type PageFetcher interface {
	FetchPage(ctx context.Context, genre string, pageSize, offset int) (PageOutcome, error)
}

// Synchronizer pages through one genre until the target is met or a
// threshold trips.
type Synchronizer struct {
	fetcher  PageFetcher
	log      *zap.Logger
	pageSize int
	pacing   Pacing
	sleep    SleepFunc
}

func NewSynchronizer(fetcher PageFetcher, log *zap.Logger, pageSize int, pacing Pacing) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Synchronizer{
		fetcher:  fetcher,
		log:      log,
		pageSize: pageSize,
		pacing:   pacing,
		sleep:    pacing.sleepFunc(),
	}
}

// SyncGenre never returns an error: batch failures are counted and a genre
// that fails three times in a row ends in StateFailed with its partial total.
func (s *Synchronizer) SyncGenre(ctx context.Context, genre string, target int) GenreResult {
	if target <= 0 {
		target = DefaultTargetPerGenre
	}
	start := time.Now()
	res := GenreResult{Genre: genre, State: StateTargetReached}
	log := s.log.With(zap.String("genre", genre))

	var offset, consecutiveErrors, consecutiveEmpty int
	for res.Saved < target && consecutiveErrors < maxConsecutiveErrors {
		if ctx.Err() != nil {
			res.State = StateCanceled
			break
		}

		out, err := s.fetcher.FetchPage(ctx, genre, s.pageSize, offset)
		res.Pages++
		if err != nil {
			consecutiveErrors++
			log.Warn("page failed",
				zap.Int("offset", offset),
				zap.Int("consecutive_errors", consecutiveErrors),
				zap.Error(err),
			)
			_ = s.sleep(ctx, s.pacing.PageError)
			continue
		}

		if out.Saved == 0 {
			consecutiveEmpty++
			if consecutiveEmpty >= maxConsecutiveEmpty {
				res.State = StateExhausted
				break
			}
		} else {
			consecutiveEmpty = 0
		}

		res.Saved += out.Saved
		offset += s.pageSize
		consecutiveErrors = 0
		_ = s.sleep(ctx, s.pacing.PageSuccess)
	}

	if consecutiveErrors >= maxConsecutiveErrors {
		res.State = StateFailed
		log.Error("genre abandoned after consecutive errors", zap.Int("saved", res.Saved))
	}
	res.Elapsed = time.Since(start)

	log.Info("genre finished",
		zap.String("state", string(res.State)),
		zap.Int("saved", res.Saved),
		zap.Int("pages", res.Pages),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res
}
