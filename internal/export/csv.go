// Package export writes captured deals to CSV files: one snapshot per run
// date and a cumulative history.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"grocery_deals/internal/models"
)

const (
	snapshotPrefix = "daily-"
	snapshotSuffix = ".csv"
	// HistoryFile is the append-only file holding every run's records.
	HistoryFile = "all.csv"
)

// SnapshotName returns the file name of the snapshot for date.
func SnapshotName(date string) string {
	return snapshotPrefix + date + snapshotSuffix
}

// Writer writes snapshot and history files below Dir.
type Writer struct {
	Dir string
}

// NewWriter creates a writer for dir. The directory is created on first write.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

// WriteSnapshot replaces the snapshot for date with deals and returns its path.
func (w *Writer) WriteSnapshot(date string, deals []models.Deal) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data dir: %w", err)
	}
	path := filepath.Join(w.Dir, SnapshotName(date))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer f.Close()

	if err := writeRecords(f, deals, true); err != nil {
		return "", fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	return path, f.Close()
}

// AppendHistory appends deals to the history file, writing the header only
// when the file is new.
func (w *Writer) AppendHistory(deals []models.Deal) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data dir: %w", err)
	}
	path := filepath.Join(w.Dir, HistoryFile)
	newFile := false
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		newFile = true
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to open history: %w", err)
	}
	defer f.Close()

	if err := writeRecords(f, deals, newFile); err != nil {
		return "", fmt.Errorf("failed to append history %s: %w", path, err)
	}
	return path, f.Close()
}

func writeRecords(out io.Writer, deals []models.Deal, header bool) error {
	cw := csv.NewWriter(out)
	if header {
		if err := cw.Write(models.CSVHeader); err != nil {
			return err
		}
	}
	for _, d := range deals {
		if err := cw.Write(d.CSVRecord()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadDeals reads a snapshot or history file written by Writer.
func ReadDeals(path string) ([]models.Deal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	// Older files may lack the trailing columns.
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var deals []models.Deal
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == models.CSVHeader[0] {
			continue
		}
		deals = append(deals, models.DealFromCSV(row))
	}
	return deals, nil
}

// RecentSnapshots lists up to n snapshot paths in dir, newest first. A missing
// directory has no snapshots.
func RecentSnapshots(dir string, n int) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, snapshotPrefix+"*"+snapshotSuffix))
	if err != nil {
		return nil, err
	}
	// Snapshot names embed an ISO date, so name order is date order.
	sort.Slice(matches, func(i, j int) bool {
		return filepath.Base(matches[i]) > filepath.Base(matches[j])
	})
	if n >= 0 && len(matches) > n {
		matches = matches[:n]
	}
	return matches, nil
}

// LatestSnapshot returns the newest snapshot path, or "" when there is none.
func LatestSnapshot(dir string) (string, error) {
	paths, err := RecentSnapshots(dir, 1)
	if err != nil || len(paths) == 0 {
		return "", err
	}
	return paths[0], nil
}

// SnapshotDate returns the date embedded in a snapshot path.
func SnapshotDate(path string) string {
	return strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), snapshotPrefix), snapshotSuffix)
}
