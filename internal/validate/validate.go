// Package validate replays the raw poll log over an operator-chosen
// quiet window and reports whether quota usage moved while the user
// was not working. It is the post-hoc check that polling itself never
// consumes usage.
package validate

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/usage-sentinel/sentinel/internal/models"
	"github.com/usage-sentinel/sentinel/internal/store"
)

// Point is one poll reduced to the dimensions the analysis needs.
// Pointer fields are nil when the poll had no snapshot for them.
type Point struct {
	Timestamp      time.Time
	SessionPercent *float64
	ResetLabel     string
	ExtraSpent     *float64
	ExtraLimit     *float64
}

// LoadPoints reads the raw poll log and returns the points inside the
// [start, end] window, oldest first.
func LoadPoints(rawLogPath string, start, end time.Time) ([]Point, error) {
	s := store.New("", rawLogPath)
	records, err := s.ReadPollRecords()
	if err != nil {
		return nil, err
	}

	inWindow := lo.Filter(records, func(r models.RawPollRecord, _ int) bool {
		return !r.Timestamp.Before(start) && !r.Timestamp.After(end)
	})

	return lo.Map(inWindow, func(r models.RawPollRecord, _ int) Point {
		p := Point{Timestamp: r.Timestamp}
		if r.Session != nil {
			percent := r.Session.PercentUsed
			p.SessionPercent = &percent
			p.ResetLabel = r.Session.ResetTime
		}
		if r.Extra != nil {
			spent := r.Extra.AmountSpent
			limit := r.Extra.AmountLimit
			p.ExtraSpent = &spent
			p.ExtraLimit = &limit
		}
		return p
	}), nil
}

// DetectResets returns the indices where a session window rolled over:
// the reset label changed, or the percentage fell by more than fifty
// points between adjacent polls.
func DetectResets(points []Point) []int {
	var resets []int
	for i := 1; i < len(points); i++ {
		prev, curr := points[i-1], points[i]
		if prev.SessionPercent == nil || curr.SessionPercent == nil {
			continue
		}
		if prev.ResetLabel != curr.ResetLabel {
			resets = append(resets, i)
		} else if *prev.SessionPercent > *curr.SessionPercent+50 {
			resets = append(resets, i)
		}
	}
	return resets
}

// Segment is a run of polls between resets (or window boundaries)
// within which usage should only move if the user was active.
type Segment struct {
	Start int // inclusive
	End   int // exclusive
}

// BuildSegments splits the points at each reset index.
func BuildSegments(points []Point, resets []int) []Segment {
	if len(points) == 0 {
		return nil
	}

	var segments []Segment
	prev := 0
	for _, idx := range resets {
		if idx > prev {
			segments = append(segments, Segment{Start: prev, End: idx})
		}
		prev = idx
	}
	segments = append(segments, Segment{Start: prev, End: len(points)})
	return segments
}

// Finding is one observed change within a segment.
type Finding struct {
	Segment       Segment
	SessionChange float64
	ExtraChange   float64
	SessionMoved  bool
	ExtraMoved    bool
}

// Report is the full analysis outcome.
type Report struct {
	Points   []Point
	Resets   []int
	Segments []Segment
	Findings []Finding
}

// Passed reports whether no usage moved in any segment.
func (r *Report) Passed() bool {
	return !lo.SomeBy(r.Findings, func(f Finding) bool {
		return f.SessionMoved || f.ExtraMoved
	})
}

// Analyze segments the points at resets and flags any segment where
// session percentage or overage spend increased.
func Analyze(points []Point) *Report {
	resets := DetectResets(points)
	segments := BuildSegments(points, resets)

	report := &Report{Points: points, Resets: resets, Segments: segments}
	for _, seg := range segments {
		report.Findings = append(report.Findings, analyzeSegment(points, seg))
	}
	return report
}

func analyzeSegment(points []Point, seg Segment) Finding {
	f := Finding{Segment: seg}
	if seg.End-seg.Start < 2 {
		return f
	}

	first := firstWith(points[seg.Start:seg.End], func(p Point) bool { return p.SessionPercent != nil })
	last := lastWith(points[seg.Start:seg.End], func(p Point) bool { return p.SessionPercent != nil })
	if first != nil && last != nil && first != last {
		f.SessionChange = *last.SessionPercent - *first.SessionPercent
		f.SessionMoved = f.SessionChange > 0
	}

	first = firstWith(points[seg.Start:seg.End], func(p Point) bool { return p.ExtraSpent != nil })
	last = lastWith(points[seg.Start:seg.End], func(p Point) bool { return p.ExtraSpent != nil })
	if first != nil && last != nil && first != last {
		f.ExtraChange = *last.ExtraSpent - *first.ExtraSpent
		f.ExtraMoved = f.ExtraChange > 0.001
	}

	return f
}

func firstWith(points []Point, pred func(Point) bool) *Point {
	for i := range points {
		if pred(points[i]) {
			return &points[i]
		}
	}
	return nil
}

func lastWith(points []Point, pred func(Point) bool) *Point {
	for i := len(points) - 1; i >= 0; i-- {
		if pred(points[i]) {
			return &points[i]
		}
	}
	return nil
}

// SegmentLabel names a segment for display, one-based.
func SegmentLabel(i int) string {
	return fmt.Sprintf("Segment %d", i+1)
}
