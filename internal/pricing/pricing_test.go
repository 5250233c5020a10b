package pricing

import (
	"math"
	"testing"

	"github.com/usage-sentinel/sentinel/internal/models"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name      string
		model     string
		wantInput float64
	}{
		{"Sonnet4", "claude-sonnet-4-20250514", 3e-06},
		{"Sonnet45", "claude-sonnet-4-5", 3e-06},
		{"Opus41", "claude-opus-4-1-20250805", 1.5e-05},
		{"Opus45", "claude-opus-4-5-20251101", 5e-06},
		{"Opus3", "claude-3-opus-20240229", 1.5e-05},
		{"Haiku45", "claude-haiku-4-5", 1e-06},
		{"Haiku35", "claude-3-5-haiku-20241022", 8e-07},
		{"Haiku3", "claude-3-haiku-20240307", 2.5e-07},
		{"CaseInsensitive", "Claude-Opus-4", 1.5e-05},
		{"Unknown", "some-future-model", 3e-06},
		{"Empty", "", 3e-06},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Lookup(tt.model)
			if p.InputCostPerToken != tt.wantInput {
				t.Errorf("Lookup(%q).InputCostPerToken = %g, want %g", tt.model, p.InputCostPerToken, tt.wantInput)
			}
		})
	}
}

func TestCost(t *testing.T) {
	usage := models.TokenUsage{
		InputTokens:         1000,
		OutputTokens:        500,
		CacheCreationTokens: 200,
		CacheReadTokens:     10000,
	}
	p := Lookup("claude-sonnet-4")

	want := 1000*3e-06 + 500*1.5e-05 + 200*3.75e-06 + 10000*3e-07
	if got := Cost(usage, p); math.Abs(got-want) > 1e-12 {
		t.Errorf("Cost() = %g, want %g", got, want)
	}
}

func TestEventCost(t *testing.T) {
	e := models.UsageEvent{
		Model: "claude-opus-4-1",
		Usage: models.TokenUsage{OutputTokens: 100},
	}
	want := 100 * 7.5e-05
	if got := EventCost(e); math.Abs(got-want) > 1e-12 {
		t.Errorf("EventCost() = %g, want %g", got, want)
	}
}
