package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/silktown-software/postcode-geocode-demo/internal/ingest"
	"github.com/silktown-software/postcode-geocode-demo/internal/logging"
	"github.com/silktown-software/postcode-geocode-demo/internal/storage"
)

type Importer interface {
	Import(ctx context.Context, src ingest.Source) (ingest.Result, error)
}

type Worker struct {
	Store    *storage.Store
	Importer Importer
	Objects  ingest.ObjectStore
	Logger   *slog.Logger
}

// ProcessNext runs the oldest queued import. A failed import is still
// marked processed, with its error recorded, so it is not retried.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.Store.DequeueImport(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	result, importErr := w.run(ctx, job.Source)
	errMsg := ""
	if importErr != nil {
		errMsg = importErr.Error()
	}
	if err := w.Store.MarkImportProcessed(ctx, job.ID, errMsg); err != nil {
		return true, err
	}
	if importErr != nil {
		return true, fmt.Errorf("import job %d: %w", job.ID, importErr)
	}

	logging.OrDefault(w.Logger).Info("import job finished",
		"job", job.ID, "source", job.Source, "files", result.Files, "rows", result.Rows)
	return true, nil
}

func (w *Worker) run(ctx context.Context, location string) (ingest.Result, error) {
	src, err := ingest.ParseLocation(location, w.Objects)
	if err != nil {
		return ingest.Result{}, err
	}
	return w.Importer.Import(ctx, src)
}

// Run processes jobs until ctx is done, sleeping idleDelay whenever the queue is empty.
func (w *Worker) Run(ctx context.Context, idleDelay time.Duration) {
	if idleDelay <= 0 {
		idleDelay = 2 * time.Second
	}
	logger := logging.OrDefault(w.Logger)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		processed, err := w.ProcessNext(ctx)
		if err != nil {
			logger.Error("worker error", "error", err)
		}
		if !processed {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idleDelay):
			}
		}
	}
}
