package models

import "time"

// DateKey is the calendar-date aggregation key, formatted YYYY-MM-DD
// in the daemon's local timezone.
const DateKey = "2006-01-02"

// AggregatedStats is one full aggregation pass over every readable
// conversation log. It is rebuilt from scratch each poll cycle; the
// source logs are the system of record and no event-level state is
// carried between passes.
type AggregatedStats struct {
	TotalUsage TokenUsage
	ByModel    map[string]TokenUsage
	ByDate     map[string]TokenUsage
	ByProject  map[string]TokenUsage
	EventCount int
	FirstEvent time.Time
	LastEvent  time.Time
}

// NewAggregatedStats returns an empty stats value with initialized maps.
func NewAggregatedStats() *AggregatedStats {
	return &AggregatedStats{
		ByModel:   make(map[string]TokenUsage),
		ByDate:    make(map[string]TokenUsage),
		ByProject: make(map[string]TokenUsage),
	}
}

// TotalForDate returns the total token count aggregated for the given
// date key, and whether the logs reported anything for that date.
func (s *AggregatedStats) TotalForDate(date string) (int64, bool) {
	if s == nil {
		return 0, false
	}
	usage, ok := s.ByDate[date]
	if !ok {
		return 0, false
	}
	return usage.Total(), true
}

// DateDigest is the by-date slice of an aggregation pass embedded in
// each raw poll record so the validator can replay token history
// without re-reading the conversation logs.
type DateDigest struct {
	TotalEvents int                   `json:"total_events"`
	ByDate      map[string]TokenDaily `json:"by_date"`
	DateRange   []string              `json:"date_range,omitempty"`
}

// TokenDaily is one date's entry in a DateDigest.
type TokenDaily struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_tokens"`
	CacheReadTokens     int64 `json:"cache_read_tokens"`
	TotalTokens         int64 `json:"total_tokens"`
}

// Digest converts the stats into the persisted by-date form.
func (s *AggregatedStats) Digest() *DateDigest {
	d := &DateDigest{ByDate: make(map[string]TokenDaily)}
	if s == nil {
		return d
	}
	d.TotalEvents = s.EventCount
	for date, usage := range s.ByDate {
		d.ByDate[date] = TokenDaily{
			InputTokens:         usage.InputTokens,
			OutputTokens:        usage.OutputTokens,
			CacheCreationTokens: usage.CacheCreationTokens,
			CacheReadTokens:     usage.CacheReadTokens,
			TotalTokens:         usage.Total(),
		}
	}
	if !s.FirstEvent.IsZero() {
		d.DateRange = []string{
			s.FirstEvent.UTC().Format(time.RFC3339),
			s.LastEvent.UTC().Format(time.RFC3339),
		}
	}
	return d
}
