// Package ingest imports books from the Open Library subjects API.
package ingest

import (
	"errors"
	"time"
)

const (
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"
)

var (
	ErrNotFound       = errors.New("sync run not found")
	ErrAlreadyRunning = errors.New("sync already running")
)

// Run is the bookkeeping row of one importer pass.
type Run struct {
	ID             int64      `json:"id"`
	Status         string     `json:"status"`
	Trigger        string     `json:"trigger"`
	Genres         []string   `json:"genres"`
	TargetPerGenre int        `json:"target_per_genre"`
	BooksSaved     int        `json:"books_saved"`
	FailedGenres   []string   `json:"failed_genres,omitempty"`
	Error          string     `json:"error,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}
