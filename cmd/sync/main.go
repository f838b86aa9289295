// Command sync runs one Open Library import pass and exits.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"openbook/internal/ingest"
	"openbook/internal/platform/config"
	"openbook/internal/platform/events"
	"openbook/internal/platform/logging"
	"openbook/internal/platform/openlibrary"
	"openbook/internal/platform/postgres"
)

// errGenresFailed is returned when the pass finished but some genres did not.
var errGenresFailed = errors.New("one or more genres failed")

type options struct {
	genres  string
	target  int
	ifEmpty bool
}

func main() {
	var opts options
	flag.StringVar(&opts.genres, "genres", "", "Comma separated genres (default: GENRES or the built-in list)")
	flag.IntVar(&opts.target, "target", 0, "Books per genre (default: SYNC_TARGET_PER_GENRE)")
	flag.BoolVar(&opts.ifEmpty, "if-empty", false, "Only run when the books table is empty")
	flag.Parse()

	cfg, err := config.LoadImporter()
	if err != nil {
		panic(err)
	}
	applyFlags(&cfg.Sync, opts.genres, opts.target)

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, opts, logger); err != nil {
		logger.Error("sync failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, opts options, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Open(ctx, postgres.Options{DSN: cfg.Database.DSN, MaxConns: cfg.Database.MaxConns})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	var publisher *events.Publisher
	if cfg.NATS.URL != "" {
		nc, err := events.Connect(events.ConnOptions{URL: cfg.NATS.URL, Name: "openbook-sync"})
		if err != nil {
			logger.Warn("nats unavailable, events disabled", zap.Error(err))
		} else {
			publisher = events.NewPublisher(nc, logger)
			defer publisher.Close()
		}
	}

	client := openlibrary.NewClient(openlibrary.Options{
		BaseURL:    cfg.Sync.APIBaseURL,
		UserAgent:  cfg.Sync.UserAgent,
		RPS:        cfg.Sync.RPS,
		MaxRetries: openlibrary.DefaultMaxRetries,
	})
	importer := ingest.NewImporter(pool,
		ingest.Config{Genres: cfg.Sync.Genres, TargetPerGenre: cfg.Sync.TargetPerGenre},
		ingest.Deps{Client: client, Publisher: publisher, Log: logger, PageSize: cfg.Sync.PageSize, Pacing: ingest.DefaultPacing()},
	)

	if opts.ifEmpty {
		ran, err := importer.RunIfEmpty(ctx)
		if err != nil {
			return err
		}
		if !ran {
			logger.Info("books table is not empty, nothing to do")
		}
		return nil
	}

	report, err := importer.Run(ctx, ingest.TriggerCLI)
	if err != nil {
		return err
	}
	return writeReport(os.Stdout, report)
}

// writeReport prints report as JSON and returns errGenresFailed when any
// genre did not finish.
func writeReport(w io.Writer, report ingest.Report) error {
	if err := json.NewEncoder(w).Encode(report); err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%w: %s", errGenresFailed, strings.Join(report.Failed, ","))
	}
	return nil
}

// applyFlags overrides the configured genres and target when flags are set.
func applyFlags(s *config.Sync, genres string, target int) {
	if list := config.SplitList(genres); len(list) > 0 {
		s.Genres = list
	}
	if target > 0 {
		s.TargetPerGenre = target
	}
}
