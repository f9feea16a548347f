package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"

	"github.com/go-chi/httplog/v2"
	"golang.org/x/sync/errgroup"

	api "github.com/dkoryagin/shortlink/internal/api/http"
	"github.com/dkoryagin/shortlink/internal/auth"
	"github.com/dkoryagin/shortlink/internal/cache"
	"github.com/dkoryagin/shortlink/internal/config"
	"github.com/dkoryagin/shortlink/internal/database/postgres"
	"github.com/dkoryagin/shortlink/internal/service"
	pkgpostgres "github.com/dkoryagin/shortlink/pkg/postgres"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx); err != nil {
		panic(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}

	logger := httplog.NewLogger("shortlink", httplog.Options{
		Concise: true,
	})

	g, ctx := errgroup.WithContext(ctx)

	db, err := pkgpostgres.New(
		ctx,
		cfg.Postgres.DSN(),
		pkgpostgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		pkgpostgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pkgpostgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		pkgpostgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return err
	}
	g.Go(func() error {
		<-ctx.Done()
		return db.Close()
	})

	if err := pkgpostgres.RunMigrations("file://migrations", cfg.Postgres.DSN()); err != nil {
		return err
	}

	linkCache := cache.New(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err := linkCache.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, serving from the store only until it recovers")
	}
	g.Go(func() error {
		<-ctx.Done()
		return linkCache.Close()
	})

	linkRepo := postgres.NewLinkRepository(db)
	linkSvc := service.NewLinkService(linkRepo, linkCache, logger.Logger, cfg.ShortCodeLength)
	lifecycle := service.NewLifecycleManager(linkRepo, linkCache, logger.Logger)
	authn := auth.NewTokenAuthenticator(cfg.JWTSecret)

	r := api.NewRouter(logger, linkSvc, lifecycle, authn)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        r,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g.Go(func() error {
		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return server.Shutdown(context.Background())
	})

	return g.Wait()
}
