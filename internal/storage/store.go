package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/silktown-software/postcode-geocode-demo/internal/postcode"
)

// SQLite refuses statements with more than 999 bound variables.
const sqliteMaxVariables = 999

const postcodeColumns = 5

var (
	ErrEmptyPostcode = errors.New("the postcode is an empty string")
	ErrNotFound      = errors.New("postcode not found")
)

type Store struct {
	db *sql.DB
}

type PostcodeRecord struct {
	Postcode string  `json:"postcode"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

type ImportJob struct {
	ID          int64
	Source      string
	EnqueuedAt  time.Time
	ProcessedAt time.Time
	Error       string
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS postcodes (
	postcode TEXT NOT NULL,
	lookup_key TEXT NOT NULL,
	lat REAL NOT NULL,
	lng REAL NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_postcodes_lookup_key ON postcodes (lookup_key);
CREATE TABLE IF NOT EXISTS import_queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	enqueued_at INTEGER NOT NULL,
	processed_at INTEGER,
	error TEXT NOT NULL DEFAULT ''
);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// GetPostcode matches ignoring case and whitespace, so "ab101ab" finds "AB10 1AB".
func (s *Store) GetPostcode(ctx context.Context, value string) (PostcodeRecord, error) {
	key := postcode.Compact(value)
	if key == "" {
		return PostcodeRecord{}, ErrEmptyPostcode
	}

	row := s.db.QueryRowContext(ctx, `
SELECT postcode, lat, lng
FROM postcodes
WHERE lookup_key = ?
`, key)
	var record PostcodeRecord
	if err := row.Scan(&record.Postcode, &record.Lat, &record.Lng); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PostcodeRecord{}, ErrNotFound
		}
		return PostcodeRecord{}, err
	}
	return record, nil
}

func (s *Store) UpsertPostcode(ctx context.Context, record PostcodeRecord) error {
	key := postcode.Compact(record.Postcode)
	if key == "" {
		return ErrEmptyPostcode
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO postcodes (postcode, lookup_key, lat, lng, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(lookup_key) DO UPDATE SET
	postcode = excluded.postcode,
	lat = excluded.lat,
	lng = excluded.lng,
	updated_at = excluded.updated_at
`, postcode.Normalize(record.Postcode), key, record.Lat, record.Lng, time.Now().Unix())
	return err
}

// UpsertPostcodes writes all records in one transaction, chunking the
// multi-row inserts so no statement exceeds SQLite's variable limit.
func (s *Store) UpsertPostcodes(ctx context.Context, records []PostcodeRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().Unix()
	batchSize := sqliteMaxVariables / postcodeColumns
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		if err := batchUpsert(ctx, tx, records[start:end], now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func batchUpsert(ctx context.Context, tx *sql.Tx, records []PostcodeRecord, now int64) error {
	valueStrings := make([]string, 0, len(records))
	valueArgs := make([]any, 0, len(records)*postcodeColumns)
	for i, r := range records {
		key := postcode.Compact(r.Postcode)
		if key == "" {
			return fmt.Errorf("record %d: %w", i, ErrEmptyPostcode)
		}
		valueStrings = append(valueStrings, "(?, ?, ?, ?, ?)")
		valueArgs = append(valueArgs, postcode.Normalize(r.Postcode), key, r.Lat, r.Lng, now)
	}

	stmt := fmt.Sprintf(`
INSERT INTO postcodes (postcode, lookup_key, lat, lng, updated_at)
VALUES %s
ON CONFLICT(lookup_key) DO UPDATE SET
	postcode = excluded.postcode,
	lat = excluded.lat,
	lng = excluded.lng,
	updated_at = excluded.updated_at
`, strings.Join(valueStrings, ","))

	if _, err := tx.ExecContext(ctx, stmt, valueArgs...); err != nil {
		return fmt.Errorf("could not execute bulk upsert: %w", err)
	}
	return nil
}

func (s *Store) CountPostcodes(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM postcodes
`)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) EnqueueImport(ctx context.Context, source string) (int64, error) {
	if strings.TrimSpace(source) == "" {
		return 0, errors.New("import source required")
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO import_queue (source, enqueued_at)
VALUES (?, ?)
`, source, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DequeueImport returns sql.ErrNoRows when the queue is empty.
func (s *Store) DequeueImport(ctx context.Context) (ImportJob, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, source, enqueued_at
FROM import_queue
WHERE processed_at IS NULL
ORDER BY id
LIMIT 1
`)
	var job ImportJob
	var enqueuedAt int64
	if err := row.Scan(&job.ID, &job.Source, &enqueuedAt); err != nil {
		return ImportJob{}, err
	}
	job.EnqueuedAt = time.Unix(enqueuedAt, 0)
	return job, nil
}

// MarkImportProcessed closes the job; a non-empty errMsg records why it failed.
func (s *Store) MarkImportProcessed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE import_queue
SET processed_at = ?, error = ?
WHERE id = ?
`, time.Now().Unix(), errMsg, id)
	return err
}

func (s *Store) GetImportJob(ctx context.Context, id int64) (ImportJob, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, source, enqueued_at, processed_at, error
FROM import_queue
WHERE id = ?
`, id)
	var job ImportJob
	var enqueuedAt int64
	var processedAt sql.NullInt64
	if err := row.Scan(&job.ID, &job.Source, &enqueuedAt, &processedAt, &job.Error); err != nil {
		return ImportJob{}, err
	}
	job.EnqueuedAt = time.Unix(enqueuedAt, 0)
	if processedAt.Valid {
		job.ProcessedAt = time.Unix(processedAt.Int64, 0)
	}
	return job, nil
}

func (s *Store) CountPendingImports(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM import_queue
WHERE processed_at IS NULL
`)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
