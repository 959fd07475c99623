package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"bookchat/internal/app/chat"
	"bookchat/internal/app/db"
	"bookchat/internal/app/persist"
	"bookchat/internal/app/storage"
	"bookchat/internal/configs"
	"bookchat/internal/handler"
	"bookchat/internal/pkg/limiter"
	"bookchat/internal/pkg/logx"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("persist_backend", cfg.PersistBackend).
		Int("max_content_bytes", cfg.MaxContentBytes).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	bridge := persist.NewBridge(store, persist.Options{
		QueueSize: cfg.PersistQueueSize,
		Workers:   cfg.PersistWorkers,
		Timeout:   cfg.PersistTimeout,
	})

	manager := chat.NewManager()
	dispatcher := chat.NewDispatcher(manager, bridge, chat.WithMaxContentBytes(cfg.MaxContentBytes))
	joinLimiter := limiter.NewIPRateLimiter(rate.Limit(cfg.JoinRate), cfg.JoinBurst)

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: handler.Router(&handler.AppDeps{
			Manager:     manager,
			Dispatcher:  dispatcher,
			Config:      cfg,
			JoinLimiter: joinLimiter,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logx.Info(fmt.Sprintf("Booking chat server starting on http://localhost%s", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		joinLimiter.Sweep(gctx, limiter.DefaultSweepInterval)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logx.Info("Received shutdown signal. Starting graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Hijacked websocket connections are not tracked by Shutdown; the manager closes them.
		err := server.Shutdown(shutdownCtx)
		manager.Shutdown()
		bridge.Close()

		if err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logx.Info("Server gracefully stopped.")
	return nil
}

// openStore returns the message store selected by PERSIST_BACKEND and a function releasing it.
func openStore(ctx context.Context, cfg *configs.AppConfig) (persist.Store, func(), error) {
	switch cfg.PersistBackend {
	case configs.BackendPostgres:
		pool, err := db.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logx.Info("Connected to database, messages are stored in PostgreSQL.")
		return db.NewMessageStore(pool), pool.Close, nil

	case configs.BackendS3:
		archive, err := storage.NewArchive(ctx, cfg.S3)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize message archive: %w", err)
		}
		logx.Info("Messages are archived to object storage.", "bucket", cfg.S3.BucketName)
		return archive, func() {}, nil

	default:
		logx.Warn("No persistence backend configured, messages are not stored.")
		return persist.Discard{}, func() {}, nil
	}
}
