package models

import "time"

// QuotaSnapshot is one point-in-time read of the remote quota state.
// Every section is optional: a nil section means the service did not
// report that dimension, which is distinct from a zero-valued one.
type QuotaSnapshot struct {
	FetchedAt    time.Time
	Session      *SessionWindow
	Weekly       *WeeklyWindow
	WeeklyOpus   *WeeklyWindow
	WeeklySonnet *WeeklyWindow
	Extra        *ExtraUsage
	Plan         *Plan
}

// SessionWindow is the rolling 5-hour quota window.
type SessionWindow struct {
	PercentUsed   float64
	ResetTime     string // human label, e.g. "7pm" or "2:59pm"
	ResetTimezone string // IANA zone name the label is expressed in
	ResetsAt      time.Time
}

// WeeklyWindow is one of the longer quota windows reported on plans
// that have them.
type WeeklyWindow struct {
	PercentUsed   float64
	ResetTime     string
	ResetTimezone string
	LimitType     string
}

// ExtraUsage is the overage dimension: usage billed beyond the plan's
// included allotment, tracked in dollars.
type ExtraUsage struct {
	PercentUsed   float64
	AmountSpent   float64
	AmountLimit   float64
	ResetDate     string
	ResetTimezone string
}

// Plan describes the subscription tier, as inferred from which quota
// windows the usage service reports.
type Plan struct {
	DisplayName       string
	Tier              string
	SessionTokenLimit int64
}
