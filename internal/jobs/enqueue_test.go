package jobs

import (
	"context"
	"testing"

	"github.com/silktown-software/postcode-geocode-demo/internal/storage"
)

func TestEnqueueImport(t *testing.T) {
	ctx := context.Background()
	if _, err := EnqueueImport(ctx, nil, "/data"); err == nil {
		t.Fatalf("expected error without store")
	}

	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	if err := store.InitSchema(ctx); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	if _, err := EnqueueImport(ctx, store, "  "); err == nil {
		t.Fatalf("expected error for blank location")
	}
	id, err := EnqueueImport(ctx, store, " s3://postcodes/uk ")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	job, err := store.DequeueImport(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if job.ID != id || job.Source != "s3://postcodes/uk" {
		t.Fatalf("unexpected job: %+v", job)
	}
}
