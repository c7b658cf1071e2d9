package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/silktown-software/postcode-geocode-demo/internal/storage"
)

// ParseCSV reads postcode,lat,lng rows. A leading header row is skipped.
func ParseCSV(r io.Reader) ([]storage.PostcodeRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records []storage.PostcodeRecord
	row := 0
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		if row == 1 && isHeader(rec) {
			continue
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("row %d: expected 3 fields, got %d", row, len(rec))
		}

		postcode := strings.TrimSpace(rec[0])
		if postcode == "" {
			return nil, fmt.Errorf("row %d: %w", row, storage.ErrEmptyPostcode)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: parse latitude: %w", row, err)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: parse longitude: %w", row, err)
		}

		records = append(records, storage.PostcodeRecord{Postcode: postcode, Lat: lat, Lng: lng})
	}
	return records, nil
}

func isHeader(rec []string) bool {
	return len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "postcode")
}
