package sessionwindow

import (
	"testing"
	"time"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		name       string
		label      string
		wantHour   int
		wantMinute int
		wantErr    bool
	}{
		{"SimplePM", "7pm", 19, 0, false},
		{"SimpleAM", "7am", 7, 0, false},
		{"WithMinutes", "2:59pm", 14, 59, false},
		{"Noon", "12pm", 12, 0, false},
		{"Midnight", "12am", 0, 0, false},
		{"Uppercase", "7PM", 19, 0, false},
		{"Whitespace", " 7pm ", 19, 0, false},
		{"HourZero", "0pm", 0, 0, true},
		{"HourThirteen", "13pm", 0, 0, true},
		{"MinuteOutOfRange", "2:75pm", 0, 0, true},
		{"NoMeridiem", "19:00", 0, 0, true},
		{"Empty", "", 0, 0, true},
		{"Garbage", "tomorrow", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hour, minute, err := ParseLabel(tt.label)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLabel(%q) error = %v, wantErr %v", tt.label, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if hour != tt.wantHour || minute != tt.wantMinute {
				t.Errorf("ParseLabel(%q) = %d:%02d, want %d:%02d", tt.label, hour, minute, tt.wantHour, tt.wantMinute)
			}
		})
	}
}

func TestFormatLabel(t *testing.T) {
	tests := []struct {
		name string
		time time.Time
		want string
	}{
		{"OnTheHour", time.Date(2026, 8, 25, 15, 0, 0, 0, time.UTC), "3pm"},
		{"WithMinutes", time.Date(2026, 8, 25, 14, 59, 0, 0, time.UTC), "2:59pm"},
		{"Morning", time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC), "9am"},
		{"Midnight", time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), "12am"},
		{"Noon", time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC), "12pm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatLabel(tt.time); got != tt.want {
				t.Errorf("FormatLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, in := range []time.Time{
		time.Date(2026, 8, 25, 19, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 25, 14, 59, 0, 0, time.UTC),
		time.Date(2026, 8, 25, 0, 30, 0, 0, time.UTC),
	} {
		label := FormatLabel(in)
		hour, minute, err := ParseLabel(label)
		if err != nil {
			t.Fatalf("ParseLabel(%q) error: %v", label, err)
		}
		if hour != in.Hour() || minute != in.Minute() {
			t.Errorf("round trip %q = %d:%02d, want %d:%02d", label, hour, minute, in.Hour(), in.Minute())
		}
	}
}

func TestWindowStart(t *testing.T) {
	tests := []struct {
		name  string
		label string
		tz    string
		now   time.Time
		want  time.Time
	}{
		{
			// Reset still ahead: window runs up to it
			name:  "BeforeReset",
			label: "7pm",
			tz:    "UTC",
			now:   time.Date(2026, 8, 25, 16, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC),
		},
		{
			// Reset already passed: fresh window opened at the reset
			name:  "AfterReset",
			label: "7pm",
			tz:    "UTC",
			now:   time.Date(2026, 8, 25, 21, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 8, 25, 19, 0, 0, 0, time.UTC),
		},
		{
			name:  "WithMinutes",
			label: "2:59pm",
			tz:    "UTC",
			now:   time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 8, 25, 9, 59, 0, 0, time.UTC),
		},
		{
			// 7pm in New York is 23:00 UTC in August (UTC-4)
			name:  "NamedZone",
			label: "7pm",
			tz:    "America/New_York",
			now:   time.Date(2026, 8, 25, 20, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 8, 25, 18, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WindowStart(tt.label, tt.tz, tt.now)
			if err != nil {
				t.Fatalf("WindowStart() error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("WindowStart() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWindowStartInvalidLabel(t *testing.T) {
	if _, err := WindowStart("25pm", "UTC", time.Now()); err == nil {
		t.Error("WindowStart() should reject an invalid label")
	}
}

func TestResetInstantUnknownZone(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	got, err := ResetInstant("7pm", "Not/AZone", now)
	if err != nil {
		t.Fatalf("ResetInstant() error: %v", err)
	}
	want := time.Date(2026, 8, 25, 19, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ResetInstant() = %v, want %v (UTC fallback)", got, want)
	}
}
