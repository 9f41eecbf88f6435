// Command fedi-server runs the federation endpoints of a single instance:
// webfinger discovery, actor documents, collection paging and the account
// management API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-fedi-core/internal/collections"
	"github.com/tbourn/go-fedi-core/internal/config"
	httpapi "github.com/tbourn/go-fedi-core/internal/http"
	"github.com/tbourn/go-fedi-core/internal/observability"
	"github.com/tbourn/go-fedi-core/internal/repo"
	"github.com/tbourn/go-fedi-core/internal/sysutil"
	"github.com/tbourn/go-fedi-core/internal/webfinger"
)

// version is set via -ldflags at build time.
var version = "dev"

func main() {
	cfg := config.MustLoad()
	sysutil.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty, cfg.FullDomain(), version)
	gin.SetMode(cfg.GinMode)

	if err := sysutil.EnsureLayout(cfg.BaseDir, cfg.DBPath); err != nil {
		log.Fatal().Err(err).Msg("storage layout")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version, cfg.FullDomain())
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	go purgeIdempotency(ctx, db, time.Hour)

	resolver := webfinger.NewResolver(webfinger.NewCache(), cfg.WebfingerTimeout,
		webfinger.WithHTTPPrefix(cfg.HTTPPrefix),
		webfinger.WithLogger(log.Logger),
	)

	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg, httpapi.Options{
		Resolver:  resolver,
		HTML:      collections.HTMLRenderer{},
		Version:   version,
		Republish: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("domain", cfg.FullDomain()).Bool("trust_caller_header", cfg.Security.TrustCallerHeader).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(sctx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// purgeIdempotency drops expired idempotency records every interval until
// ctx ends.
func purgeIdempotency(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("idempotency purge")
			}
		}
	}
}
