// Package models defines the shared data types for usage tracking:
// token counters, parsed log events, aggregated statistics, quota
// snapshots, and the persisted daily summary and poll records.
package models

import "time"

// TokenUsage holds the four token counters reported for a single
// assistant message. Values accumulate component-wise and never go
// negative.
type TokenUsage struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_tokens"`
	CacheReadTokens     int64 `json:"cache_read_tokens"`
}

// Add returns the component-wise sum of two usages.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:         u.InputTokens + other.InputTokens,
		OutputTokens:        u.OutputTokens + other.OutputTokens,
		CacheCreationTokens: u.CacheCreationTokens + other.CacheCreationTokens,
		CacheReadTokens:     u.CacheReadTokens + other.CacheReadTokens,
	}
}

// Total returns the sum of all four counters.
func (u TokenUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens + u.CacheCreationTokens + u.CacheReadTokens
}

// IsZero reports whether no tokens were counted at all.
func (u TokenUsage) IsZero() bool {
	return u.Total() == 0
}

// UsageEvent is one assistant message parsed from a conversation log
// line: when it happened, which model served it, and what it cost in
// tokens.
type UsageEvent struct {
	Timestamp      time.Time
	Model          string
	Usage          TokenUsage
	Project        string
	ConversationID string
	RequestID      string
}
