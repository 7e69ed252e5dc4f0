// Package datastore provides the CSV-backed history collaborator consumed by
// the forecast service and the training pipeline. Each (role, location) pair
// maps to one file named after its slug key with a week_start,postings_count
// header.
package datastore

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	demandcast "github.com/jobpulse/demandcast"
	"github.com/jobpulse/demandcast/artifact"
	"github.com/jobpulse/demandcast/timeseries"
)

// CSVStore reads weekly series from processed CSV files under a base
// directory.
type CSVStore struct {
	dir string
}

// NewCSVStore returns a store rooted at dir.
func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir}
}

// Path returns the expected CSV location for a (role, location) pair.
func (s *CSVStore) Path(role, location string) string {
	return filepath.Join(s.dir, artifact.Key(role, location)+".csv")
}

// LoadSeries reads the weekly series for a key sorted ascending by date and
// truncated to the most recent maxWeeks observations when positive. A
// missing file fails with an error wrapping demandcast.ErrNotFound.
func (s *CSVStore) LoadSeries(role, location string, maxWeeks int) (*timeseries.Series, error) {
	path := s.Path(role, location)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("expected file %s, %w", path, demandcast.ErrNotFound)
		}
		return nil, fmt.Errorf("unable to open %s, %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s, %w", path, err)
	}

	dates := make([]time.Time, 0, len(records))
	counts := make([]float64, 0, len(records))
	for i, rec := range records {
		date, err := time.Parse(demandcast.DateFormat, rec[0])
		if err != nil {
			if i == 0 {
				// header row
				continue
			}
			return nil, fmt.Errorf("bad date %q on row %d of %s, %w", rec[0], i+1, path, err)
		}
		count, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad count %q on row %d of %s, %w", rec[1], i+1, path, err)
		}
		dates = append(dates, date)
		counts = append(counts, count)
	}

	series, err := timeseries.New(dates, counts)
	if err != nil {
		return nil, fmt.Errorf("unable to build series from %s, %w", path, err)
	}
	if maxWeeks > 0 {
		series = series.Tail(maxWeeks)
	}
	return series, nil
}
