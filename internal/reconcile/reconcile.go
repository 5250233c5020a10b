// Package reconcile merges the two views of usage — token counts from
// the conversation logs and quota state from the usage service — into
// the daily summary. Reconciliation is idempotent: replaying the same
// poll record produces the same summary.
package reconcile

import (
	"fmt"
	"time"

	"github.com/usage-sentinel/sentinel/internal/logger"
	"github.com/usage-sentinel/sentinel/internal/models"
	"github.com/usage-sentinel/sentinel/internal/store"
)

// Reconciler folds poll records into the daily summary, carrying the
// overage-spend and reset-label baselines between cycles.
type Reconciler struct {
	store        *store.Store
	costPerToken float64
	loc          *time.Location

	summary models.DailySummary

	lastExtraSpent float64
	haveExtraSpent bool
	lastResetLabel string
	haveResetLabel bool
}

// Result reports what a cycle observed.
type Result struct {
	// ResetDetected is set when the advertised reset label changed,
	// meaning a new session window opened.
	ResetDetected bool
	PrevLabel     string
	NewLabel      string

	// OverageDelta is the dollar increase in overage spend since the
	// previous cycle, zero when spend did not grow.
	OverageDelta float64
	OverageTotal float64
}

// New returns a reconciler over the given store. Date keys use loc.
func New(s *store.Store, costPerToken float64, loc *time.Location) *Reconciler {
	if loc == nil {
		loc = time.Local
	}
	return &Reconciler{
		store:        s,
		costPerToken: costPerToken,
		loc:          loc,
		summary:      s.LoadSummary(),
	}
}

// Rehydrate recovers the baselines from the raw poll log so a restart
// does not miscount the first delta or reset it sees.
func (r *Reconciler) Rehydrate() error {
	b, err := r.store.ScanBaselines()
	if err != nil {
		return fmt.Errorf("failed to scan raw log: %w", err)
	}
	if b.HaveExtra {
		r.lastExtraSpent = b.ExtraSpent
		r.haveExtraSpent = true
	}
	if b.HaveLabel {
		r.lastResetLabel = b.ResetLabel
		r.haveResetLabel = true
	}
	return nil
}

// Summary returns the current in-memory summary.
func (r *Reconciler) Summary() models.DailySummary {
	return r.summary.Clone()
}

// Cycle reconciles one poll record: appends it to the raw log, merges
// it into today's summary entry, and persists the summary atomically.
// Baselines advance only after a successful persist so a failed write
// cannot swallow a delta.
func (r *Reconciler) Cycle(record *models.RawPollRecord) (Result, error) {
	var result Result

	today := record.Timestamp.In(r.loc).Format(models.DateKey)

	// Work on a copy: the live summary and baselines advance only once
	// both writes succeed, so a failed cycle is a clean no-op and the
	// next cycle retries against the last persisted state.
	next := r.summary.Clone()
	entry := next.Entry(today)

	// Token totals come straight from the logs, overwriting whatever
	// was there before. This is what makes replays idempotent.
	if record.LogTokens != nil {
		if daily, ok := record.LogTokens.ByDate[today]; ok {
			total := daily.TotalTokens
			entry.TotalTokens = total

			if r.haveExtraSpent && record.Extra != nil && record.Extra.AmountSpent > 0 {
				extraTokens := int64(record.Extra.AmountSpent / r.costPerToken)
				if extraTokens > total {
					extraTokens = total
				}
				if extraTokens < 0 {
					extraTokens = 0
				}
				entry.ExtraTokens = extraTokens
				entry.SessionTokens = total - extraTokens
			} else {
				entry.SessionTokens = total
				entry.ExtraTokens = 0
			}
		}
	}

	// Overage spend only ever grows within a billing month; a positive
	// delta means paid usage happened since the last poll.
	if record.Extra != nil {
		current := record.Extra.AmountSpent
		if r.haveExtraSpent {
			if delta := current - r.lastExtraSpent; delta > 0 {
				entry.ExtraCost = current
				result.OverageDelta = delta
				result.OverageTotal = current
				logger.Info("overage spend increased",
					"delta", fmt.Sprintf("$%.2f", delta),
					"total", fmt.Sprintf("$%.2f", current))
			}
		}
	}

	// A changed reset label means the previous window closed.
	if record.Session != nil && record.Session.ResetTime != "" {
		current := record.Session.ResetTime
		if r.haveResetLabel && current != r.lastResetLabel {
			entry.SessionsCount++
			result.ResetDetected = true
			result.PrevLabel = r.lastResetLabel
			result.NewLabel = current
			logger.Info("session reset detected", "from", r.lastResetLabel, "to", current)
		}
	}

	entry.LastUpdated = record.Timestamp

	// Raw log first: it is the ground truth the summary can always be
	// rebuilt from.
	if err := r.store.AppendPollRecord(record); err != nil {
		return result, fmt.Errorf("failed to append poll record: %w", err)
	}
	if err := r.store.SaveSummary(next); err != nil {
		return result, fmt.Errorf("failed to save summary: %w", err)
	}

	r.summary = next
	r.commitBaselines(record)
	return result, nil
}

func (r *Reconciler) commitBaselines(record *models.RawPollRecord) {
	if record.Extra != nil {
		r.lastExtraSpent = record.Extra.AmountSpent
		r.haveExtraSpent = true
	}
	if record.Session != nil && record.Session.ResetTime != "" {
		r.lastResetLabel = record.Session.ResetTime
		r.haveResetLabel = true
	}
}
