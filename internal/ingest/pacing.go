package ingest

import (
	"context"
	"time"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Pacing holds the pauses applied between requests to the external catalog.
type Pacing struct {
	Throttle      time.Duration // after every 5 saved records
	PageSuccess   time.Duration
	PageError     time.Duration
	BetweenChunks time.Duration
	Sleep         SleepFunc
}

func DefaultPacing() Pacing {
	return Pacing{
		Throttle:      200 * time.Millisecond,
		PageSuccess:   time.Second,
		PageError:     3 * time.Second,
		BetweenChunks: 3 * time.Second,
	}
}

func (p Pacing) sleepFunc() SleepFunc {
	if p.Sleep != nil {
		return p.Sleep
	}
	return sleepCtx
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
