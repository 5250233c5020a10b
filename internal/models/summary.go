package models

import "time"

// DailySummaryEntry is the reconciled record for one calendar date.
// Mutated only by the reconciler; session_tokens + extra_tokens always
// equals total_tokens once both sources have reported for the date.
type DailySummaryEntry struct {
	SessionTokens int64     `json:"session_tokens"`
	ExtraTokens   int64     `json:"extra_tokens"`
	TotalTokens   int64     `json:"total_tokens"`
	ExtraCost     float64   `json:"extra_cost"`
	SessionsCount int       `json:"sessions_count"`
	LastUpdated   time.Time `json:"last_updated"`
}

// DailySummary maps date keys (YYYY-MM-DD) to their reconciled entries.
type DailySummary map[string]*DailySummaryEntry

// Entry returns the entry for a date, creating an empty one if needed.
func (s DailySummary) Entry(date string) *DailySummaryEntry {
	if e, ok := s[date]; ok {
		return e
	}
	e := &DailySummaryEntry{}
	s[date] = e
	return e
}

// Clone returns a deep copy, used by tests and by callers that must
// not observe later reconciler mutations.
func (s DailySummary) Clone() DailySummary {
	out := make(DailySummary, len(s))
	for date, e := range s {
		copied := *e
		out[date] = &copied
	}
	return out
}

// RawPollRecord is one line of the append-only poll log: the full
// quota snapshot as fetched plus the log-derived token digest. This is
// the immutable ground truth the validator replays and the source the
// reconciler rehydrates its baselines from after a restart.
type RawPollRecord struct {
	Timestamp    time.Time      `json:"timestamp"`
	Session      *SessionRecord `json:"session,omitempty"`
	Weekly       *WeeklyRecord  `json:"weekly,omitempty"`
	WeeklyOpus   *WeeklyRecord  `json:"weekly_opus,omitempty"`
	WeeklySonnet *WeeklyRecord  `json:"weekly_sonnet,omitempty"`
	Extra        *ExtraRecord   `json:"extra,omitempty"`
	Plan         *PlanRecord    `json:"plan,omitempty"`
	LogTokens    *DateDigest    `json:"log_tokens,omitempty"`
}

// SessionRecord is the persisted form of a SessionWindow, annotated
// with the advisory calculated window start.
type SessionRecord struct {
	PercentUsed         float64 `json:"percent_used"`
	ResetTime           string  `json:"reset_time"`
	ResetTimezone       string  `json:"reset_timezone"`
	CalculatedStartTime string  `json:"calculated_start_time,omitempty"`
}

// WeeklyRecord is the persisted form of a WeeklyWindow.
type WeeklyRecord struct {
	PercentUsed   float64 `json:"percent_used"`
	ResetTime     string  `json:"reset_time"`
	ResetTimezone string  `json:"reset_timezone"`
	LimitType     string  `json:"limit_type,omitempty"`
}

// ExtraRecord is the persisted form of ExtraUsage.
type ExtraRecord struct {
	PercentUsed   float64 `json:"percent_used"`
	AmountSpent   float64 `json:"amount_spent"`
	AmountLimit   float64 `json:"amount_limit"`
	ResetDate     string  `json:"reset_date"`
	ResetTimezone string  `json:"reset_timezone"`
}

// PlanRecord is the persisted form of Plan.
type PlanRecord struct {
	DisplayName       string `json:"display_name"`
	Tier              string `json:"tier"`
	SessionTokenLimit int64  `json:"session_token_limit,omitempty"`
}
