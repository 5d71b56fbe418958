package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/qepting91/redditboard/internal/board"
	"github.com/qepting91/redditboard/internal/cache"
	"github.com/qepting91/redditboard/internal/collector"
	"github.com/qepting91/redditboard/internal/config"
	"github.com/qepting91/redditboard/internal/dashboard"
	"github.com/qepting91/redditboard/internal/ingest"
	"github.com/qepting91/redditboard/internal/logger"
	"github.com/qepting91/redditboard/internal/storage"
)

func main() {
	// 1. Setup
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Board stopped", "err", err)
		os.Exit(1)
	}
	log.Info("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// 2. Storage
	kv, closeKV, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeKV()

	// 3. Collector (factory picks the mode)
	fetcher, err := collector.NewFetcher(cfg.Reddit)
	if err != nil {
		return err
	}
	log.Info("Collector initialized", "mode", cfg.Reddit.Mode)

	// 4. Trace log writer
	traces := make(chan storage.FetchRecord, 100)
	var writerWg sync.WaitGroup
	if err := os.MkdirAll(filepath.Dir(cfg.TraceLog), 0o755); err != nil {
		log.Warn("Create trace log directory failed", "path", cfg.TraceLog, "err", err)
	}
	writer := &storage.WriterService{FilePath: cfg.TraceLog}
	writerWg.Add(1)
	go writer.Start(&writerWg, traces)

	b := board.New(fetcher, cache.New(kv), kv, board.WithTraceSink(traces))

	// 5. Restore the saved board, seeding it on first start
	if err := seedLayout(ctx, b, cfg.SeedFile, log); err != nil {
		log.Warn("Seeding skipped", "err", err)
	}
	failures, err := b.Restore(ctx)
	if err != nil {
		log.Error("Restore failed", "err", err)
	}
	for name, ferr := range failures {
		log.Warn("Column not restored", "sub", name, "err", ferr)
	}

	// 6. Serve until a signal arrives
	log.Info("Starting dashboard", "port", cfg.Port)
	serveErr := dashboard.StartServer(ctx, b, cfg.Port)
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}

	// 7. Graceful shutdown. Handlers may outlive a timed-out Shutdown, so the
	// board closes the sink once no send is in flight.
	b.CloseTraceSink()
	writerWg.Wait()
	return serveErr
}

// openStore picks the KV backend. Mock mode keeps everything in memory so it
// never touches the real database.
func openStore(cfg *config.Config) (storage.KV, func() error, error) {
	if cfg.Reddit.Mode == "mock" {
		return storage.NewMemoryKV(), func() error { return nil }, nil
	}
	kv, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return kv, kv.Close, nil
}

// seedLayout writes the seed file as the layout when nothing has been saved yet.
func seedLayout(ctx context.Context, b *board.Board, path string, log *slog.Logger) error {
	names, err := b.Layout(ctx)
	if err != nil || len(names) > 0 {
		return err
	}

	seeds, err := ingest.LoadSeeds(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return nil
	}

	log.Info("Seeding board", "file", path, "subreddits", len(seeds))
	return b.SaveLayout(ctx, seeds)
}
