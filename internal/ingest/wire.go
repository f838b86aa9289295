package ingest

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Deps collects what NewImporter needs beyond the database pool.
type Deps struct {
	Client    CatalogClient
	Publisher EventPublisher
	Log       *zap.Logger
	PageSize  int
	Pacing    Pacing
}

// NewImporter assembles the fetcher, synchronizer, orchestrator and run
// bookkeeping over db. The server and the sync CLI share it.
func NewImporter(db *pgxpool.Pool, cfg Config, deps Deps) *Service {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	fetcher := NewFetcher(deps.Client, NewPgxPool(db), NewPostgresStore(), log.Named("fetcher"), deps.Pacing)
	synchronizer := NewSynchronizer(fetcher, log.Named("synchronizer"), deps.PageSize, deps.Pacing)
	orchestrator := NewOrchestrator(synchronizer, log.Named("orchestrator"), deps.Pacing)
	return NewService(orchestrator, NewPostgresRepo(db), deps.Publisher, cfg, log)
}
