package ingest

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// chunkSize is the number of genres synchronized concurrently.
const chunkSize = 2

// GenreSyncer synchronizes a single genre.
type GenreSyncer interface {
	SyncGenre(ctx context.Context, genre string, target int) GenreResult
}

// Report summarizes a full pass over all genres.
type Report struct {
	Saved   int           `json:"saved"`
	Elapsed time.Duration `json:"elapsed"`
	Genres  []GenreResult `json:"genres"`
	Failed  []string      `json:"failed,omitempty"`
}

type Orchestrator struct {
	syncer GenreSyncer
	log    *zap.Logger
	pacing Pacing
	sleep  SleepFunc
}

func NewOrchestrator(syncer GenreSyncer, log *zap.Logger, pacing Pacing) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		syncer: syncer,
		log:    log,
		pacing: pacing,
		sleep:  pacing.sleepFunc(),
	}
}

// SyncAll runs genres two at a time, always waiting for both before starting
// the next pair. A failing pair is logged and does not stop later pairs.
// Genres that panicked or ended in StateFailed are listed in Report.Failed.
func (o *Orchestrator) SyncAll(ctx context.Context, genres []string, perGenreTarget int) Report {
	start := time.Now()
	var report Report

	chunks := Chunk(genres, chunkSize)
	for i, chunk := range chunks {
		results := make([]*GenreResult, len(chunk))

		var g errgroup.Group
		for j, genre := range chunk {
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("genre %s panicked: %v", genre, r)
						o.log.Error("genre sync panicked",
							zap.String("genre", genre),
							zap.Any("panic", r),
							zap.ByteString("stack", debug.Stack()),
						)
					}
				}()
				res := o.syncer.SyncGenre(ctx, genre, perGenreTarget)
				results[j] = &res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			o.log.Error("chunk failed", zap.Int("chunk", i+1), zap.Strings("genres", chunk), zap.Error(err))
		}

		for j, res := range results {
			if res == nil {
				report.Failed = append(report.Failed, chunk[j])
				continue
			}
			report.Saved += res.Saved
			report.Genres = append(report.Genres, *res)
			if res.State == StateFailed {
				report.Failed = append(report.Failed, res.Genre)
			}
		}

		o.log.Info("chunk finished",
			zap.Int("chunk", i+1),
			zap.Int("chunks", len(chunks)),
			zap.Int("saved_so_far", report.Saved),
		)

		if i < len(chunks)-1 {
			_ = o.sleep(ctx, o.pacing.BetweenChunks)
		}
	}

	report.Elapsed = time.Since(start)
	rate := 0.0
	if secs := report.Elapsed.Seconds(); secs > 0 {
		rate = float64(report.Saved) / secs
	}
	o.log.Info("sync finished",
		zap.Int("saved", report.Saved),
		zap.Int("genres", len(genres)),
		zap.Strings("failed", report.Failed),
		zap.Duration("elapsed", report.Elapsed),
		zap.Float64("books_per_second", rate),
	)
	return report
}

// Chunk splits items into consecutive groups of at most size.
func Chunk(items []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	var out [][]string
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
