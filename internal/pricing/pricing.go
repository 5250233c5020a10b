// Package pricing holds the static per-token price table used for the
// daemon's cost attribution. The table is embedded so pricing never
// requires a network call.
package pricing

import (
	"strings"

	"github.com/usage-sentinel/sentinel/internal/models"
)

// ModelPricing is the per-token cost of one model, in dollars.
type ModelPricing struct {
	InputCostPerToken         float64
	OutputCostPerToken        float64
	CacheCreationCostPerToken float64
	CacheReadCostPerToken     float64
}

// sonnetDefault is the fallback when a model cannot be matched.
var sonnetDefault = ModelPricing{
	InputCostPerToken:         3e-06,
	OutputCostPerToken:        1.5e-05,
	CacheCreationCostPerToken: 3.75e-06,
	CacheReadCostPerToken:     3e-07,
}

// table maps model family substrings to their pricing. Ordered from
// most to least specific so e.g. "3-5-haiku" wins over "haiku".
var table = []struct {
	match   string
	pricing ModelPricing
}{
	{"opus-4-5", ModelPricing{5e-06, 2.5e-05, 6.25e-06, 5e-07}},
	{"3-opus", ModelPricing{1.5e-05, 7.5e-05, 1.875e-05, 1.5e-06}},
	{"opus", ModelPricing{1.5e-05, 7.5e-05, 1.875e-05, 1.5e-06}},
	{"3-5-haiku", ModelPricing{8e-07, 4e-06, 1e-06, 8e-08}},
	{"3-haiku", ModelPricing{2.5e-07, 1.25e-06, 3e-07, 3e-08}},
	{"haiku", ModelPricing{1e-06, 5e-06, 1.25e-06, 1e-07}},
	{"sonnet", sonnetDefault},
}

// Lookup returns the pricing for a model name, matching by family
// substring. Unknown models get Sonnet pricing.
func Lookup(modelName string) ModelPricing {
	name := strings.ToLower(modelName)
	for _, entry := range table {
		if strings.Contains(name, entry.match) {
			return entry.pricing
		}
	}
	return sonnetDefault
}

// Cost returns the dollar cost of a usage at the given pricing.
func Cost(usage models.TokenUsage, p ModelPricing) float64 {
	cost := float64(usage.InputTokens) * p.InputCostPerToken
	cost += float64(usage.OutputTokens) * p.OutputCostPerToken
	cost += float64(usage.CacheCreationTokens) * p.CacheCreationCostPerToken
	cost += float64(usage.CacheReadTokens) * p.CacheReadCostPerToken
	return cost
}

// EventCost returns the dollar cost of one usage event.
func EventCost(e models.UsageEvent) float64 {
	return Cost(e.Usage, Lookup(e.Model))
}
