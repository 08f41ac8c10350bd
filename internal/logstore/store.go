// Package logstore owns the on-disk record log: an append-only JSONL
// primary store plus a newest-first CSV summary view.
package logstore

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/speedbird-org/public-wifi-monitor/internal/record"
)

const (
	recordsFile = "records.jsonl"
	summaryFile = "connectivity_summary.csv"

	fileMode = 0o644
	dirMode  = 0o755
)

// Store reads and writes the log directory. The JSONL file is the
// source of truth; the CSV is a human-facing view that may lag or be
// missing without affecting correctness.
type Store struct {
	dir    string
	logger *slog.Logger
}

func New(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

func (s *Store) RecordsPath() string { return filepath.Join(s.dir, recordsFile) }
func (s *Store) SummaryPath() string { return filepath.Join(s.dir, summaryFile) }

// Append adds one record to the primary store. The record is written
// as a single line in one Write call and synced, so an overlapping
// invocation sees either the whole line or nothing.
func (s *Store) Append(rec record.Record) error {
	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	line, err := record.MarshalLine(rec)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.RecordsPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, fileMode)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync record store: %w", err)
	}

	return nil
}

// UpdateSummary rewrites the CSV view with the new row directly under
// the header, prior rows preserved below it. The rewrite goes through
// a temp file and rename so a racing reader sees a complete old or
// new file, never a partial one.
func (s *Store) UpdateSummary(rec record.Record) error {
	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	prior := s.readSummaryRows()

	tmp, err := os.CreateTemp(s.dir, summaryFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("create summary temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(record.CSVHeader()); err != nil {
		tmp.Close()
		return fmt.Errorf("write summary header: %w", err)
	}
	if err := w.Write(rec.CSVRow()); err != nil {
		tmp.Close()
		return fmt.Errorf("write summary row: %w", err)
	}
	for _, row := range prior {
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close summary temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.SummaryPath()); err != nil {
		return fmt.Errorf("replace summary: %w", err)
	}

	return nil
}

// readSummaryRows returns the existing data rows of the summary view.
// The view is rebuildable from the primary store, so a missing or
// unreadable file just means starting over with no prior rows.
func (s *Store) readSummaryRows() [][]string {
	f, err := os.Open(s.SummaryPath())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debug("summary view unreadable, rebuilding", "err", err)
		}
		return nil
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil { // header
		return nil
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.logger.Debug("skipping malformed summary row", "err", err)
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// ReadAll parses the primary store, skipping malformed lines, and
// returns records sorted by timestamp ascending regardless of physical
// order. A missing store is not an error: it means no data yet.
func (s *Store) ReadAll() ([]record.Record, error) {
	f, err := os.Open(s.RecordsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open record store: %w", err)
	}
	defer f.Close()

	var records []record.Record

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		rec, err := record.UnmarshalLine(line)
		if err != nil {
			s.logger.Debug("skipping malformed record line", "line", lineNo, "err", err)
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read record store: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return records, nil
}
