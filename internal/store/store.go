// Package store owns the daemon's data files: the reconciled daily
// summary and the append-only raw poll log. Readers may open these
// files at any time from other processes, so the summary is always
// replaced atomically and the poll log is append-only. No locks are
// taken on either side.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/usage-sentinel/sentinel/internal/logger"
	"github.com/usage-sentinel/sentinel/internal/models"
)

// Store reads and writes the daemon's data files.
type Store struct {
	summaryPath string
	rawLogPath  string
}

// New returns a store over the given file paths.
func New(summaryPath, rawLogPath string) *Store {
	return &Store{summaryPath: summaryPath, rawLogPath: rawLogPath}
}

// LoadSummary reads the daily summary. A missing file yields an empty
// summary; a corrupt one is logged and treated as empty rather than
// blocking the daemon.
func (s *Store) LoadSummary() models.DailySummary {
	data, err := os.ReadFile(s.summaryPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read summary file", "path", s.summaryPath, "error", err)
		}
		return make(models.DailySummary)
	}

	var summary models.DailySummary
	if err := json.Unmarshal(data, &summary); err != nil {
		logger.Warn("summary file corrupt, starting fresh", "path", s.summaryPath, "error", err)
		return make(models.DailySummary)
	}
	if summary == nil {
		summary = make(models.DailySummary)
	}
	return summary
}

// SaveSummary writes the summary atomically: marshal to a temp file in
// the same directory, then rename over the old one. Readers never
// observe a partially written file.
func (s *Store) SaveSummary(summary models.DailySummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	tmpFile := s.summaryPath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, s.summaryPath); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// AppendPollRecord appends one record to the raw poll log as a single
// JSONL line.
func (s *Store) AppendPollRecord(record *models.RawPollRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal poll record: %w", err)
	}

	f, err := os.OpenFile(s.rawLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open raw log: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Error("failed to close raw log", "error", err)
		}
	}()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append poll record: %w", err)
	}
	return nil
}

// ReadPollRecords streams every parseable record from the raw poll
// log, oldest first. Malformed lines are skipped; a missing file
// yields no records.
func (s *Store) ReadPollRecords() ([]models.RawPollRecord, error) {
	f, err := os.Open(s.rawLogPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open raw log: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Error("failed to close raw log", "error", err)
		}
	}()

	var records []models.RawPollRecord
	scanner := bufio.NewScanner(f)

	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record models.RawPollRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, scanner.Err()
}

// Baselines are the reconciler inputs recovered from the raw poll log
// after a restart.
type Baselines struct {
	ExtraSpent float64
	HaveExtra  bool
	ResetLabel string
	HaveLabel  bool
}

// ScanBaselines walks the raw poll log and returns the most recently
// recorded overage spend and session reset label.
func (s *Store) ScanBaselines() (Baselines, error) {
	records, err := s.ReadPollRecords()
	if err != nil {
		return Baselines{}, err
	}

	var b Baselines
	for _, record := range records {
		if record.Extra != nil {
			b.ExtraSpent = record.Extra.AmountSpent
			b.HaveExtra = true
		}
		if record.Session != nil && record.Session.ResetTime != "" {
			b.ResetLabel = record.Session.ResetTime
			b.HaveLabel = true
		}
	}
	return b, nil
}
