// Package aggregator turns parsed usage events into aggregated token
// statistics and tracks whether the conversation log tree has changed
// since the last aggregation pass.
package aggregator

import (
	"sort"
	"time"

	"github.com/usage-sentinel/sentinel/internal/models"
)

// Aggregate folds usage events into totals, grouped by model, by
// calendar date, and by project. Date keys use the given location so
// daily totals line up with the user's local day.
func Aggregate(events []models.UsageEvent, loc *time.Location) *models.AggregatedStats {
	if loc == nil {
		loc = time.Local
	}

	stats := models.NewAggregatedStats()

	sorted := make([]models.UsageEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	for _, e := range sorted {
		stats.TotalUsage = stats.TotalUsage.Add(e.Usage)
		stats.ByModel[e.Model] = stats.ByModel[e.Model].Add(e.Usage)

		dateKey := e.Timestamp.In(loc).Format(models.DateKey)
		stats.ByDate[dateKey] = stats.ByDate[dateKey].Add(e.Usage)

		if e.Project != "" {
			stats.ByProject[e.Project] = stats.ByProject[e.Project].Add(e.Usage)
		}

		stats.EventCount++
		if stats.FirstEvent.IsZero() {
			stats.FirstEvent = e.Timestamp
		}
		stats.LastEvent = e.Timestamp
	}

	return stats
}
