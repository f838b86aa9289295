package main

import (
	"context"
	"flag"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"openbook/internal/platform/logging"
	"openbook/internal/platform/postgres"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	logger, err := logging.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	dir := migrationsDir()
	goose.SetLogger(gooseLogger{log: logger.Sugar()})
	if err := goose.SetDialect("postgres"); err != nil {
		logger.Fatal("set goose dialect", zap.Error(err))
	}

	if *command == "create" {
		if *name == "" {
			logger.Fatal("name is required for 'create' command")
		}
		if err := goose.Create(nil, dir, *name, "sql"); err != nil {
			logger.Fatal("create migration", zap.Error(err))
		}
		logger.Info("migration created", zap.String("name", *name), zap.String("dir", dir))
		return
	}

	dsn := databaseDSN()
	pool, err := postgres.Open(context.Background(), postgres.Options{DSN: dsn, MaxConns: 2})
	if err != nil {
		logger.Fatal("connect database", zap.String("dsn", postgres.RedactDSN(dsn)), zap.Error(err))
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	switch *command {
	case "up":
		err = goose.Up(db, dir)
	case "down":
		err = goose.Down(db, dir)
	case "status":
		err = goose.Status(db, dir)
	default:
		logger.Fatal("unknown command, use: up, down, status, create", zap.String("command", *command))
	}
	if err != nil {
		logger.Fatal("migration failed", zap.String("command", *command), zap.Error(err))
	}
	logger.Info("migration finished", zap.String("command", *command))
}
