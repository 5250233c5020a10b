package validate

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"
)

const timeFormat = "2006-01-02 15:04:05"

// Render writes the human-readable report.
func Render(w io.Writer, report *Report, start, end time.Time) {
	rule := strings.Repeat("=", 80)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Usage Validation Report")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Window: %s to %s\n", start.Format(timeFormat), end.Format(timeFormat))
	fmt.Fprintf(w, "Polls:  %d\n", len(report.Points))
	if len(report.Resets) > 0 {
		fmt.Fprintf(w, "Resets: %d session window rollover(s) detected\n", len(report.Resets))
	}

	if chart := sessionChart(report.Points); chart != "" {
		fmt.Fprintln(w, "\nSession usage over the window (%):")
		fmt.Fprintln(w, chart)
	}

	for i, f := range report.Findings {
		seg := f.Segment
		fmt.Fprintf(w, "\n%s (polls %d-%d)\n", SegmentLabel(i), seg.Start+1, seg.End)
		fmt.Fprintf(w, "  %s to %s\n",
			report.Points[seg.Start].Timestamp.Format(timeFormat),
			report.Points[seg.End-1].Timestamp.Format(timeFormat))

		fmt.Fprintf(w, "  Session change: %+.1f%%", f.SessionChange)
		if f.SessionMoved {
			fmt.Fprint(w, "  WARNING: session usage increased")
		}
		fmt.Fprintln(w)

		fmt.Fprintf(w, "  Extra change:   $%+.2f", f.ExtraChange)
		if f.ExtraMoved {
			fmt.Fprint(w, "  WARNING: overage spend increased")
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	if report.Passed() {
		fmt.Fprintln(w, "PASS: no usage movement observed while idle")
	} else {
		fmt.Fprintln(w, "WARNING: usage moved during the idle window, see segments above")
	}
	fmt.Fprintln(w, rule)
}

// sessionChart plots the session percentage series when there are
// enough points to be worth drawing.
func sessionChart(points []Point) string {
	var series []float64
	for _, p := range points {
		if p.SessionPercent != nil {
			series = append(series, *p.SessionPercent)
		}
	}
	if len(series) < 2 {
		return ""
	}
	return asciigraph.Plot(series, asciigraph.Height(8), asciigraph.Width(70))
}
