package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"dukanpos/backend/internal/accounts"
	"dukanpos/backend/internal/config"
	"dukanpos/backend/internal/httpapi"
	"dukanpos/backend/internal/license"
	"dukanpos/backend/internal/outbox"
	"dukanpos/backend/internal/pos"
	"dukanpos/backend/internal/store"
	"dukanpos/backend/internal/store/kvfile"
	"dukanpos/backend/internal/store/sqlite"
	"dukanpos/backend/internal/syncer"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("cannot create data directory %s: %v", cfg.DataDir, err)
	}

	durable, closers := openStores(cfg)

	queue := outbox.New(durable)
	posStore := pos.New(ctx, durable, queue)
	registry := accounts.NewRegistry(durable, queue)
	licenseManager := license.NewManager(durable)

	var scheduler *syncer.Scheduler
	if cfg.SyncBaseURL != "" {
		sync := syncer.New(cfg.SyncBaseURL, queue, licenseManager.Headers)
		scheduler = syncer.NewScheduler(posStore, registry, licenseManager, sync)
		go scheduler.Run(ctx)
		log.Printf("sync: %s", cfg.SyncBaseURL)
	} else {
		log.Println("sync: disabled (SYNC_BASE_URL not set)")
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, registry)
	api := httpapi.New(posStore, registry, licenseManager, scheduler, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("POS terminal listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("terminal stopped")
}

// openStores opens the sqlite store with the JSON file store layered behind
// it; when sqlite cannot open at all, the JSON file carries the state alone.
func openStores(cfg config.Config) (store.Store, []func() error) {
	closers := make([]func() error, 0, 2)

	fallback := kvfile.New(cfg.FallbackPath())
	closers = append(closers, fallback.Close)

	primary, err := sqlite.Open(cfg.DatabasePath())
	if err != nil {
		log.Printf("sqlite unavailable (%v), using %s only", err, filepath.Base(cfg.FallbackPath()))
		return fallback, closers
	}
	closers = append(closers, primary.Close)
	log.Println("store: sqlite with file fallback")

	return store.NewTiered(primary, fallback), closers
}
