// Package daemon runs the polling loop: every interval it aggregates
// the conversation logs, fetches a quota snapshot, reconciles both
// into the daily summary, and surfaces resets and overage increases
// as desktop notifications.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/samber/lo"

	"github.com/usage-sentinel/sentinel/internal/aggregator"
	"github.com/usage-sentinel/sentinel/internal/config"
	"github.com/usage-sentinel/sentinel/internal/logger"
	"github.com/usage-sentinel/sentinel/internal/logparse"
	"github.com/usage-sentinel/sentinel/internal/models"
	"github.com/usage-sentinel/sentinel/internal/pricing"
	"github.com/usage-sentinel/sentinel/internal/quotaapi"
	"github.com/usage-sentinel/sentinel/internal/reconcile"
	"github.com/usage-sentinel/sentinel/internal/sessionwindow"
	"github.com/usage-sentinel/sentinel/internal/store"
)

// Fetcher is the quota client seam, satisfied by quotaapi.Client.
type Fetcher interface {
	Fetch(ctx context.Context) (*models.QuotaSnapshot, error)
}

// Daemon owns the poll loop and its collaborators.
type Daemon struct {
	cfg        *config.Config
	client     Fetcher
	reconciler *reconcile.Reconciler
	tracker    *aggregator.Tracker
	loc        *time.Location

	lastStats *models.AggregatedStats
	pollCount int
}

// New wires up a daemon from configuration. The reconciler rehydrates
// its baselines from the raw poll log so restarts do not miscount.
func New(cfg *config.Config) (*Daemon, error) {
	s := store.New(cfg.SummaryPath(), cfg.RawLogPath())
	reconciler := reconcile.New(s, cfg.CostPerToken, time.Local)
	if err := reconciler.Rehydrate(); err != nil {
		return nil, fmt.Errorf("failed to rehydrate baselines: %w", err)
	}

	tracker, err := aggregator.NewTracker(cfg.ClaudeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to watch log tree: %w", err)
	}

	return &Daemon{
		cfg:        cfg,
		client:     quotaapi.NewClient(cfg.CredentialsPath, cfg.HTTPTimeout),
		reconciler: reconciler,
		tracker:    tracker,
		loc:        time.Local,
	}, nil
}

// Run polls until the context is cancelled. Cycles run sequentially;
// an in-flight cycle always completes before shutdown so writes are
// never torn.
func (d *Daemon) Run(ctx context.Context) error {
	logger.Info("usage daemon started",
		"interval", d.cfg.PollInterval,
		"data_dir", d.cfg.DataDir)

	for {
		start := time.Now()
		d.cycle(ctx)

		// Fixed cadence: sleep whatever remains of the interval,
		// never a negative duration
		sleep := d.cfg.PollInterval - time.Since(start)
		if sleep < 0 {
			sleep = 0
		}

		select {
		case <-ctx.Done():
			logger.Info("usage daemon stopping")
			return d.tracker.Close()
		case <-time.After(sleep):
		}
	}
}

// cycle runs one poll. Nothing here is fatal: a failed fetch still
// reconciles log-derived totals, and a failed reconcile is retried
// from the last persisted state next cycle.
func (d *Daemon) cycle(ctx context.Context) {
	d.pollCount++
	logger.Info("poll", "n", d.pollCount)

	stats := d.aggregate()

	snap, err := d.client.Fetch(ctx)
	if err != nil {
		logger.Warn("usage fetch failed, reconciling without snapshot", "error", err)
		snap = nil
	}
	if snap != nil && snap.Session != nil {
		logger.Debug("session window",
			"percent_used", snap.Session.PercentUsed,
			"est_tokens", quotaapi.SessionTokenEstimate(snap.Session.PercentUsed, snap.Plan))
	}

	record := d.buildRecord(snap, stats, time.Now())
	result, err := d.reconciler.Cycle(record)
	if err != nil {
		logger.Error("reconcile cycle failed, will retry next poll", "error", err)
		return
	}

	d.notify(result)
	d.logCycle(record)
}

// aggregate re-reads the log tree when it changed, otherwise reuses
// the previous pass.
func (d *Daemon) aggregate() *models.AggregatedStats {
	if d.lastStats != nil && !d.tracker.Consume() {
		return d.lastStats
	}

	events, err := logparse.ParseTree(d.cfg.ClaudeDir)
	if err != nil {
		logger.Warn("failed to scan log tree", "error", err)
		return d.lastStats
	}

	d.lastStats = aggregator.Aggregate(events, d.loc)
	logger.Debug("aggregated conversation logs",
		"events", d.lastStats.EventCount,
		"total_tokens", d.lastStats.TotalUsage.Total(),
		"est_cost", fmt.Sprintf("$%.2f", lo.SumBy(events, pricing.EventCost)))
	return d.lastStats
}

// buildRecord combines the snapshot and the log digest into one raw
// poll record. A nil snapshot leaves the quota sections absent.
func (d *Daemon) buildRecord(snap *models.QuotaSnapshot, stats *models.AggregatedStats, now time.Time) *models.RawPollRecord {
	record := &models.RawPollRecord{
		Timestamp: now.UTC(),
		LogTokens: stats.Digest(),
	}
	if snap == nil {
		return record
	}

	if snap.Session != nil {
		session := &models.SessionRecord{
			PercentUsed:   snap.Session.PercentUsed,
			ResetTime:     snap.Session.ResetTime,
			ResetTimezone: snap.Session.ResetTimezone,
		}
		if start, err := sessionwindow.WindowStart(snap.Session.ResetTime, snap.Session.ResetTimezone, now); err == nil {
			session.CalculatedStartTime = start.Format(time.RFC3339)
		}
		record.Session = session
	}

	record.Weekly = weeklyRecord(snap.Weekly)
	record.WeeklyOpus = weeklyRecord(snap.WeeklyOpus)
	record.WeeklySonnet = weeklyRecord(snap.WeeklySonnet)

	if snap.Extra != nil {
		record.Extra = &models.ExtraRecord{
			PercentUsed:   snap.Extra.PercentUsed,
			AmountSpent:   snap.Extra.AmountSpent,
			AmountLimit:   snap.Extra.AmountLimit,
			ResetDate:     snap.Extra.ResetDate,
			ResetTimezone: snap.Extra.ResetTimezone,
		}
	}
	if snap.Plan != nil {
		record.Plan = &models.PlanRecord{
			DisplayName:       snap.Plan.DisplayName,
			Tier:              snap.Plan.Tier,
			SessionTokenLimit: snap.Plan.SessionTokenLimit,
		}
	}
	return record
}

func weeklyRecord(w *models.WeeklyWindow) *models.WeeklyRecord {
	if w == nil {
		return nil
	}
	return &models.WeeklyRecord{
		PercentUsed:   w.PercentUsed,
		ResetTime:     w.ResetTime,
		ResetTimezone: w.ResetTimezone,
		LimitType:     w.LimitType,
	}
}

func (d *Daemon) notify(result reconcile.Result) {
	if !d.cfg.Notifications {
		return
	}

	if result.ResetDetected {
		body := fmt.Sprintf("Session window reset: %s -> %s", result.PrevLabel, result.NewLabel)
		if err := beeep.Notify("Usage Sentinel", body, ""); err != nil {
			logger.Debug("notification failed", "error", err)
		}
	}
	if result.OverageDelta > 0 {
		body := fmt.Sprintf("Extra usage increased by $%.2f (now $%.2f)", result.OverageDelta, result.OverageTotal)
		if err := beeep.Notify("Usage Sentinel", body, ""); err != nil {
			logger.Debug("notification failed", "error", err)
		}
	}
}

func (d *Daemon) logCycle(record *models.RawPollRecord) {
	if record.Session != nil {
		logger.Info("  session",
			"percent_used", record.Session.PercentUsed,
			"resets", record.Session.ResetTime)
	}
	if record.Extra != nil {
		logger.Info("  extra",
			"spent", fmt.Sprintf("$%.2f", record.Extra.AmountSpent),
			"limit", fmt.Sprintf("$%.2f", record.Extra.AmountLimit))
	}
	today := record.Timestamp.In(d.loc).Format(models.DateKey)
	if total, ok := d.lastStats.TotalForDate(today); ok && total > 0 {
		logger.Info("  tokens today", "total", total)
	}
}
