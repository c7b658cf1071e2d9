package cache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/silktown-software/postcode-geocode-demo/internal/logging"
	"github.com/silktown-software/postcode-geocode-demo/internal/storage"
)

type Repository interface {
	GetPostcode(ctx context.Context, value string) (storage.PostcodeRecord, error)
}

// ReadThrough answers from the cache and falls back to the repository.
// Redis failures are logged and never fail the lookup.
type ReadThrough struct {
	Cache  *Cache
	Repo   Repository
	Logger *slog.Logger
}

func (r *ReadThrough) GetPostcode(ctx context.Context, value string) (storage.PostcodeRecord, error) {
	logger := logging.OrDefault(r.Logger)

	record, err := r.Cache.Get(ctx, value)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, ErrMiss) {
		logger.Warn("postcode cache read failed", "error", err)
	}

	record, err = r.Repo.GetPostcode(ctx, value)
	if err != nil {
		return storage.PostcodeRecord{}, err
	}
	if err := r.Cache.Set(ctx, record); err != nil {
		logger.Warn("postcode cache write failed", "error", err)
	}
	return record, nil
}
