package daemon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/usage-sentinel/sentinel/internal/aggregator"
	"github.com/usage-sentinel/sentinel/internal/config"
	"github.com/usage-sentinel/sentinel/internal/models"
	"github.com/usage-sentinel/sentinel/internal/reconcile"
	"github.com/usage-sentinel/sentinel/internal/store"
)

type stubFetcher struct {
	calls int32
	snap  *models.QuotaSnapshot
	err   error
}

func (f *stubFetcher) Fetch(ctx context.Context) (*models.QuotaSnapshot, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.snap, f.err
}

func newTestDaemon(t *testing.T, fetcher Fetcher) (*Daemon, *store.Store) {
	t.Helper()
	dataDir := t.TempDir()
	claudeDir := t.TempDir()

	cfg := &config.Config{
		DataDir:       dataDir,
		ClaudeDir:     claudeDir,
		PollInterval:  10 * time.Millisecond,
		HTTPTimeout:   time.Second,
		CostPerToken:  0.000003,
		Notifications: false,
	}

	s := store.New(cfg.SummaryPath(), cfg.RawLogPath())
	tracker, err := aggregator.NewTracker(claudeDir)
	if err != nil {
		t.Fatalf("NewTracker() error: %v", err)
	}
	t.Cleanup(func() { _ = tracker.Close() })

	return &Daemon{
		cfg:        cfg,
		client:     fetcher,
		reconciler: reconcile.New(s, cfg.CostPerToken, time.UTC),
		tracker:    tracker,
		loc:        time.UTC,
	}, s
}

func testSnapshot() *models.QuotaSnapshot {
	return &models.QuotaSnapshot{
		FetchedAt: time.Now(),
		Session: &models.SessionWindow{
			PercentUsed:   33,
			ResetTime:     "7pm",
			ResetTimezone: "UTC",
		},
		Extra: &models.ExtraUsage{
			AmountSpent:   1.50,
			AmountLimit:   50,
			ResetDate:     "Monthly",
			ResetTimezone: "UTC",
		},
	}
}

func TestCycleAppendsRecord(t *testing.T) {
	fetcher := &stubFetcher{snap: testSnapshot()}
	d, s := newTestDaemon(t, fetcher)

	d.cycle(context.Background())

	records, err := s.ReadPollRecords()
	if err != nil {
		t.Fatalf("ReadPollRecords() error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("raw log has %d records, want 1", len(records))
	}

	record := records[0]
	if record.Session == nil || record.Session.ResetTime != "7pm" {
		t.Errorf("session = %+v", record.Session)
	}
	if record.Session.CalculatedStartTime == "" {
		t.Error("CalculatedStartTime not annotated")
	}
	if record.Extra == nil || record.Extra.AmountSpent != 1.50 {
		t.Errorf("extra = %+v", record.Extra)
	}
	if record.LogTokens == nil {
		t.Error("log digest missing")
	}
}

func TestCycleFetchFailureStillRecords(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("network down")}
	d, s := newTestDaemon(t, fetcher)

	d.cycle(context.Background())

	records, err := s.ReadPollRecords()
	if err != nil {
		t.Fatalf("ReadPollRecords() error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("raw log has %d records, want 1", len(records))
	}
	// Snapshot sections absent, log digest still present
	if records[0].Session != nil || records[0].Extra != nil {
		t.Errorf("record carries snapshot sections despite failed fetch: %+v", records[0])
	}
	if records[0].LogTokens == nil {
		t.Error("log digest missing on failed fetch")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	fetcher := &stubFetcher{snap: testSnapshot()}
	d, _ := newTestDaemon(t, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Let a few cycles run, then stop
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}

	if atomic.LoadInt32(&fetcher.calls) < 2 {
		t.Errorf("fetcher called %d times, want >= 2", fetcher.calls)
	}
}

func TestBuildRecordNilSnapshot(t *testing.T) {
	d, _ := newTestDaemon(t, &stubFetcher{})

	record := d.buildRecord(nil, models.NewAggregatedStats(), time.Now())
	if record.Session != nil || record.Extra != nil || record.Plan != nil {
		t.Errorf("nil snapshot produced sections: %+v", record)
	}
	if record.LogTokens == nil {
		t.Error("log digest missing")
	}
}

func TestAggregateReusesCleanTree(t *testing.T) {
	d, _ := newTestDaemon(t, &stubFetcher{})

	first := d.aggregate()
	if first == nil {
		t.Fatal("aggregate() returned nil")
	}
	// No writes since: the same pass comes back
	second := d.aggregate()
	if first != second {
		t.Error("aggregate() re-read an unchanged tree")
	}
}

func TestSummaryWrittenAfterCycle(t *testing.T) {
	fetcher := &stubFetcher{snap: testSnapshot()}
	d, s := newTestDaemon(t, fetcher)

	d.cycle(context.Background())

	summary := s.LoadSummary()
	today := time.Now().UTC().Format(models.DateKey)
	if _, ok := summary[today]; !ok {
		t.Errorf("summary missing %s after cycle: %v", today, summary)
	}
}
