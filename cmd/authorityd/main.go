package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dukanpos/backend/internal/authority"
	"dukanpos/backend/internal/authority/cache"
	"dukanpos/backend/internal/authority/memory"
	pgstore "dukanpos/backend/internal/authority/postgres"
	"dukanpos/backend/internal/config"
	"dukanpos/backend/internal/domain"
)

func main() {
	cfg := config.LoadAuthority()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo authority.Store
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Println("store: postgres")
	} else {
		repo = memory.New()
		log.Println("store: in-memory")
	}

	snapshotCache := cache.SnapshotCache(cache.NoopSnapshotCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisSnapshotCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			snapshotCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	if cfg.DefaultLicenseKey != "" {
		ensureLicense(ctx, repo, cfg.DefaultLicenseKey, cfg.DefaultMaxDevices)
	}

	api := authority.NewAPI(repo, snapshotCache, cfg.AllowedOrigin, time.Duration(cfg.SnapshotTTLSeconds)*time.Second)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("sync authority listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

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

	log.Println("authority stopped")
}

// ensureLicense provisions the configured license on first boot so terminals
// can register without manual setup. An existing license is left untouched.
func ensureLicense(ctx context.Context, repo authority.Store, key string, maxDevices int) {
	if _, err := repo.GetLicense(ctx, key); err == nil {
		return
	}
	err := repo.SaveLicense(ctx, domain.License{
		LicenseKey: key,
		Status:     domain.LicenseStatusActive,
		MaxDevices: maxDevices,
		Devices:    []domain.Device{},
	})
	if err != nil {
		log.Printf("WARN: failed to provision default license: %v", err)
		return
	}
	log.Println("provisioned default license")
}
