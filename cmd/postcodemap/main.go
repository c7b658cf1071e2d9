package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/silktown-software/postcode-geocode-demo/internal/cache"
	"github.com/silktown-software/postcode-geocode-demo/internal/config"
	"github.com/silktown-software/postcode-geocode-demo/internal/ingest"
	"github.com/silktown-software/postcode-geocode-demo/internal/logging"
	"github.com/silktown-software/postcode-geocode-demo/internal/notify"
	"github.com/silktown-software/postcode-geocode-demo/internal/storage"
	"github.com/silktown-software/postcode-geocode-demo/internal/web"
	"github.com/silktown-software/postcode-geocode-demo/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	var lookup web.PostcodeLookup = store
	var invalidator ingest.Invalidator
	if cfg.RedisURL != "" {
		c, err := cache.Open(ctx, cfg.RedisURL, time.Duration(cfg.CacheTTLMinutes)*time.Minute)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer c.Close()
		lookup = &cache.ReadThrough{Cache: c, Repo: store, Logger: logger}
		invalidator = c
		logger.Info("postcode cache enabled")
	}

	publisher, cleanup, err := buildPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	var objects ingest.ObjectStore
	if cfg.MinIOEnabled() {
		minioStore, err := ingest.NewMinIOStore(cfg)
		if err != nil {
			return err
		}
		objects = minioStore
	}

	webServer, err := web.NewServer(web.Options{
		Lookup:    lookup,
		Health:    store,
		Publisher: publisher,
		Map: web.MapConfig{
			AccessToken: cfg.MapAccessToken,
			StyleURL:    cfg.MapStyleURL,
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	trusted, err := web.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	limiter := web.NewIPRateLimiter(cfg.GeocodeRatePerSec, cfg.GeocodeRateBurst, trusted, logger)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      webServer.Handler(limiter),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	importWorker := &worker.Worker{
		Store:    store,
		Importer: &ingest.Importer{Store: store, Cache: invalidator, Logger: logger},
		Objects:  objects,
		Logger:   logger,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		importWorker.Run(gctx, time.Duration(cfg.WorkerPollIntervalMS)*time.Millisecond)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func buildPublisher(cfg config.Config, logger *slog.Logger) (notify.Publisher, func(), error) {
	publishers := notify.Fanout{notify.LogPublisher{Logger: logger}}
	var cleanups []func()
	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}

	if cfg.NATSURL != "" {
		p, closeNATS, err := notify.DialNATS(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, cleanup, err
		}
		cleanups = append(cleanups, closeNATS)
		publishers = append(publishers, p)
		logger.Info("publishing lookups to nats", "subject", cfg.NATSSubject)
	}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := notify.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		cleanups = append(cleanups, func() { _ = p.Close() })
		publishers = append(publishers, p)
		logger.Info("publishing lookups to kafka", "topic", cfg.KafkaTopic)
	}
	return publishers, cleanup, nil
}
