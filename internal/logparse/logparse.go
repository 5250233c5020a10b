// Package logparse reads Claude conversation logs (JSONL) and extracts
// per-message token usage events. The log tree is treated as read-only
// ground truth: files are scanned in full on every pass and malformed
// lines are skipped, never fatal.
package logparse

import (
	"bufio"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/usage-sentinel/sentinel/internal/logger"
	"github.com/usage-sentinel/sentinel/internal/models"
)

// rawLine is the wire shape of one conversation log line. Only the
// fields needed for usage accounting are decoded.
type rawLine struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
	CWD       string `json:"cwd"`
	Message   struct {
		Model string `json:"model"`
		Usage struct {
			InputTokens              int64 `json:"input_tokens"`
			OutputTokens             int64 `json:"output_tokens"`
			CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
			CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
		} `json:"usage"`
	} `json:"message"`
}

// FindLogFiles walks the projects tree under root and returns every
// JSONL file path. Unreadable subtrees are skipped.
func FindLogFiles(root string) ([]string, error) {
	projectsDir := filepath.Join(root, "projects")

	var files []string
	err := filepath.WalkDir(projectsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A missing or unreadable subtree just yields no files
			return nil
		}
		if !d.IsDir() && filepath.Ext(path) == ".jsonl" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// ParseFile parses a single JSONL conversation log and returns its
// usage events. Lines that are not valid JSON, are not assistant
// messages, or carry no usage are skipped.
func ParseFile(path string) ([]models.UsageEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var events []models.UsageEvent
	scanner := bufio.NewScanner(file)

	// Conversation lines can be very large
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw rawLine
		if err := json.Unmarshal(line, &raw); err != nil {
			// Skip malformed lines
			continue
		}

		if raw.Type != "assistant" || raw.Message.Model == "" {
			continue
		}

		usage := models.TokenUsage{
			InputTokens:         raw.Message.Usage.InputTokens,
			OutputTokens:        raw.Message.Usage.OutputTokens,
			CacheCreationTokens: raw.Message.Usage.CacheCreationInputTokens,
			CacheReadTokens:     raw.Message.Usage.CacheReadInputTokens,
		}
		if usage.IsZero() {
			continue
		}

		timestamp, err := time.Parse(time.RFC3339, raw.Timestamp)
		if err != nil {
			continue
		}

		events = append(events, models.UsageEvent{
			Timestamp:      timestamp,
			Model:          raw.Message.Model,
			Usage:          usage,
			Project:        projectName(raw.CWD, path),
			ConversationID: raw.SessionID,
			RequestID:      raw.RequestID,
		})
	}

	return events, scanner.Err()
}

// ParseTree parses every log file under root. Files that fail to open
// or scan are skipped so one bad file cannot hide the rest.
func ParseTree(root string) ([]models.UsageEvent, error) {
	files, err := FindLogFiles(root)
	if err != nil {
		return nil, err
	}

	var all []models.UsageEvent
	for _, file := range files {
		events, err := ParseFile(file)
		if err != nil {
			logger.Warn("skipping unreadable log file", "path", file, "error", err)
			continue
		}
		all = append(all, events...)
	}
	return all, nil
}

// projectName prefers the recorded working directory, falling back to
// the project directory name the log file lives in.
func projectName(cwd, logPath string) string {
	if cwd != "" {
		return filepath.Base(cwd)
	}
	return filepath.Base(filepath.Dir(logPath))
}
