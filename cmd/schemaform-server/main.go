package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/goliatone/go-schemaform/pkg/orchestrator"
	"github.com/goliatone/go-schemaform/pkg/server"
	"github.com/goliatone/go-schemaform/pkg/store"
	"github.com/goliatone/go-schemaform/pkg/widgets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(ctx, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		} else {
			logger.Warn("ignoring invalid PORT", "value", p)
		}
	}

	var source fs.FS = store.EmbeddedFS()
	if dir := os.Getenv("SCHEMA_DIR"); dir != "" {
		source = os.DirFS(dir)
	}
	fsStore, err := store.NewFSStore(source)
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}

	var st store.Store = fsStore
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		sqlStore, err := store.OpenSQLite(ctx, dsn)
		if err != nil {
			return err
		}
		defer sqlStore.Close()

		names, err := sqlStore.List(ctx)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			if err := sqlStore.Import(ctx, fsStore); err != nil {
				return fmt.Errorf("seed database: %w", err)
			}
			logger.Info("database seeded from schema directory")
		}
		st = sqlStore
	}

	names, err := st.List(ctx)
	if err != nil {
		return err
	}
	logger.Info("forms loaded", "count", len(names), "forms", names)

	orch := orchestrator.New(
		orchestrator.WithStore(st),
		orchestrator.WithWidgetRegistry(widgets.NewRegistry()),
	)
	srv := server.New(orch, server.WithLogger(logger))
	return srv.Run(ctx, fmt.Sprintf(":%d", port))
}
