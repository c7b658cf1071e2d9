package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/silktown-software/postcode-geocode-demo/internal/cache"
	"github.com/silktown-software/postcode-geocode-demo/internal/config"
	"github.com/silktown-software/postcode-geocode-demo/internal/ingest"
	"github.com/silktown-software/postcode-geocode-demo/internal/jobs"
	"github.com/silktown-software/postcode-geocode-demo/internal/logging"
	"github.com/silktown-software/postcode-geocode-demo/internal/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var dir, bucket, prefix, dbPath string
	var queue bool

	flagSet := pflag.NewFlagSet("postcode-import", pflag.ContinueOnError)
	flagSet.StringVar(&dir, "dir", "", "directory containing postcode CSV files")
	flagSet.StringVar(&bucket, "bucket", "", "S3 bucket containing postcode CSV files")
	flagSet.StringVar(&prefix, "prefix", "", "object key prefix inside --bucket")
	flagSet.BoolVar(&queue, "queue", false, "queue the import for the running server instead of importing now")
	flagSet.StringVar(&dbPath, "db", cfg.DatabasePath, "SQLite database path")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	location, err := importLocation(dir, bucket, prefix)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Env)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()
	if err := store.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	if queue {
		id, err := jobs.EnqueueImport(ctx, store, location)
		if err != nil {
			return err
		}
		logger.Info("import queued", "job", id, "source", location)
		return nil
	}

	var objects ingest.ObjectStore
	if bucket != "" {
		minioStore, err := ingest.NewMinIOStore(cfg)
		if err != nil {
			return err
		}
		objects = minioStore
	}
	src, err := ingest.ParseLocation(location, objects)
	if err != nil {
		return err
	}

	importer := &ingest.Importer{Store: store, Logger: logger}
	if cfg.RedisURL != "" {
		c, err := cache.Open(ctx, cfg.RedisURL, time.Duration(cfg.CacheTTLMinutes)*time.Minute)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer c.Close()
		importer.Cache = c
	}
	result, err := importer.Import(ctx, src)
	if err != nil {
		return err
	}
	logger.Info("import finished", "source", location, "files", result.Files, "rows", result.Rows)
	return nil
}

func importLocation(dir, bucket, prefix string) (string, error) {
	switch {
	case dir != "" && bucket != "":
		return "", errors.New("use either --dir or --bucket, not both")
	case dir != "":
		return dir, nil
	case bucket != "":
		return "s3://" + bucket + "/" + prefix, nil
	default:
		return "", errors.New("no directory or bucket specified")
	}
}
