package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
)

// Source lists and opens CSV files from one location.
type Source interface {
	Name() string
	List(ctx context.Context) ([]string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

type DirSource struct {
	Dir string
}

func (s DirSource) Name() string {
	return s.Dir
}

func (s DirSource) List(ctx context.Context) ([]string, error) {
	info, err := os.Stat(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", s.Dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", s.Dir)
	}
	matches, err := filepath.Glob(filepath.Join(s.Dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func (s DirSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// ObjectStore is the part of an S3 client the bucket source uses.
type ObjectStore interface {
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error)
}

type BucketSource struct {
	Store  ObjectStore
	Bucket string
	Prefix string
}

func (s BucketSource) Name() string {
	return "s3://" + s.Bucket + "/" + s.Prefix
}

func (s BucketSource) List(ctx context.Context) ([]string, error) {
	if s.Store == nil {
		return nil, fmt.Errorf("object storage not configured")
	}
	var keys []string
	for obj := range s.Store.ListObjects(ctx, s.Bucket, minio.ListObjectsOptions{Prefix: s.Prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", s.Name(), obj.Err)
		}
		if strings.HasSuffix(strings.ToLower(obj.Key), ".csv") {
			keys = append(keys, obj.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s BucketSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return s.Store.GetObject(ctx, s.Bucket, name, minio.GetObjectOptions{})
}

// ParseLocation turns an import location into a Source: s3://bucket/prefix
// reads from object storage, anything else is a local directory.
func ParseLocation(location string, store ObjectStore) (Source, error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return DirSource{Dir: location}, nil
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return nil, fmt.Errorf("missing bucket in %q", location)
	}
	if store == nil {
		return nil, fmt.Errorf("%s: object storage not configured", location)
	}
	return BucketSource{Store: store, Bucket: bucket, Prefix: prefix}, nil
}
