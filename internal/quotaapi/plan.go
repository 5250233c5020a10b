package quotaapi

import "github.com/usage-sentinel/sentinel/internal/models"

// Known subscription tiers.
const (
	TierPro   = "pro"
	TierMax5  = "max_5x"
	TierMax20 = "max_20x"
)

// Approximate session token ceilings per tier, used to translate a
// session percentage into a token estimate.
const (
	proSessionTokens   = 44_000
	max5SessionTokens  = 220_000
	max20SessionTokens = 880_000
)

// classifyPlan infers the subscription tier from which windows the
// usage response carries. Pro plans have no weekly windows; Max plans
// do. The multiplier is not directly observable, so a Max plan is
// reported as 5x unless overage is enabled, which we take as 20x.
func classifyPlan(usage *usageResponse) *models.Plan {
	hasWeekly := usage.SevenDay != nil || usage.SevenDayOpus != nil || usage.SevenDaySonnet != nil

	if !hasWeekly {
		return &models.Plan{
			DisplayName:       "Claude Pro",
			Tier:              TierPro,
			SessionTokenLimit: proSessionTokens,
		}
	}

	if usage.ExtraUsage != nil && usage.ExtraUsage.IsEnabled {
		return &models.Plan{
			DisplayName:       "Claude Max 20x",
			Tier:              TierMax20,
			SessionTokenLimit: max20SessionTokens,
		}
	}

	return &models.Plan{
		DisplayName:       "Claude Max 5x",
		Tier:              TierMax5,
		SessionTokenLimit: max5SessionTokens,
	}
}

// SessionTokenEstimate converts a session percentage into tokens for
// the given plan. Unknown plans fall back to the Pro ceiling.
func SessionTokenEstimate(percentUsed float64, plan *models.Plan) int64 {
	limit := int64(proSessionTokens)
	if plan != nil && plan.SessionTokenLimit > 0 {
		limit = plan.SessionTokenLimit
	}
	if percentUsed < 0 {
		percentUsed = 0
	}
	return int64(percentUsed / 100.0 * float64(limit))
}
