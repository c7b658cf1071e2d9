package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/silktown-software/postcode-geocode-demo/internal/logging"
	"github.com/silktown-software/postcode-geocode-demo/internal/storage"
)

// Invalidator evicts cached lookups for postcodes whose coordinates changed.
type Invalidator interface {
	Delete(ctx context.Context, postcodes ...string) error
}

type Importer struct {
	Store  *storage.Store
	Cache  Invalidator
	Logger *slog.Logger
}

type Result struct {
	Files int
	Rows  int
}

// Import upserts every CSV file in src. A malformed file stops the import;
// files already written stay committed.
func (i *Importer) Import(ctx context.Context, src Source) (Result, error) {
	logger := logging.OrDefault(i.Logger)

	names, err := src.List(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(names) == 0 {
		return Result{}, fmt.Errorf("no csv files in %s", src.Name())
	}

	var result Result
	for _, name := range names {
		rows, err := i.importFile(ctx, src, name)
		if err != nil {
			return result, fmt.Errorf("import %s: %w", name, err)
		}
		logger.Info("imported postcode file", "file", name, "rows", rows)
		result.Files++
		result.Rows += rows
	}
	return result, nil
}

func (i *Importer) importFile(ctx context.Context, src Source, name string) (int, error) {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	records, err := ParseCSV(rc)
	if err != nil {
		return 0, err
	}
	if err := i.Store.UpsertPostcodes(ctx, records); err != nil {
		return 0, err
	}
	if i.Cache != nil {
		postcodes := make([]string, 0, len(records))
		for _, r := range records {
			postcodes = append(postcodes, r.Postcode)
		}
		// stale entries expire with the cache TTL if this fails
		if err := i.Cache.Delete(ctx, postcodes...); err != nil {
			logging.OrDefault(i.Logger).Warn("could not invalidate cached postcodes", "file", name, "error", err)
		}
	}
	return len(records), nil
}
