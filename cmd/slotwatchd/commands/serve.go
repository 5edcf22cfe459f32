package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"

	"slotwatch-backend/internal/api"
	"slotwatch-backend/internal/checker"
	"slotwatch-backend/internal/db"
	"slotwatch-backend/internal/history"
	"slotwatch-backend/internal/metrics"
	"slotwatch-backend/internal/notify"
	"slotwatch-backend/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the check loop and the HTTP API.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	appStore := store.NewGormStore(gormDB)
	log.Println("data store initialized")

	hist := history.NewStore(cfg.Checker.HistoryFile)
	m := metrics.New()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var webpushOptions *webpush.Options
	var pool checker.Dispatcher
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		workerPool := notify.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		workerPool.Start(ctx)
		pool = workerPool
	} else {
		log.Println("VAPID keys not configured; web push disabled")
	}

	notifier := notify.NewGitHubNotifier(cfg.GitHub, bookingURL(cfg))
	if notifier.Enabled() {
		notifier.EnsureLabel(ctx)
	}

	svc := checker.NewService(cfg, newSource(cfg), hist, appStore, notifier, pool, m)
	go svc.Run(ctx)

	router := api.NewRouter(&cfg.Server, hist, appStore, webpushOptions, m)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	case <-ctx.Done():
	}
	log.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}

	log.Println("Server gracefully stopped")
	return nil
}
