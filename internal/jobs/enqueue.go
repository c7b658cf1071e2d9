package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/silktown-software/postcode-geocode-demo/internal/storage"
)

// EnqueueImport queues a CSV import of location (a directory or s3://bucket/prefix)
// for the server's import worker.
func EnqueueImport(ctx context.Context, store *storage.Store, location string) (int64, error) {
	if store == nil {
		return 0, fmt.Errorf("job store not configured")
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return 0, fmt.Errorf("import location required")
	}
	return store.EnqueueImport(ctx, location)
}
