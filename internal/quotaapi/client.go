// Package quotaapi fetches quota snapshots from the subscription's
// OAuth usage endpoint. The only request it ever makes is a read-only
// GET: fetching a snapshot must never register as user activity or
// consume quota.
package quotaapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/usage-sentinel/sentinel/internal/logger"
	"github.com/usage-sentinel/sentinel/internal/models"
	"github.com/usage-sentinel/sentinel/internal/sessionwindow"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	usagePath      = "/api/oauth/usage"

	betaHeader = "oauth-2025-04-20"
	userAgent  = "claude-code/2.0.37"
)

// Client fetches usage snapshots.
type Client struct {
	baseURL         string
	credentialsPath string
	httpClient      *http.Client
}

// NewClient returns a client reading tokens from credentialsPath.
func NewClient(credentialsPath string, timeout time.Duration) *Client {
	return &Client{
		baseURL:         defaultBaseURL,
		credentialsPath: credentialsPath,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

// NewClientWithBaseURL is used by tests to point at a local server.
func NewClientWithBaseURL(baseURL, credentialsPath string, timeout time.Duration) *Client {
	c := NewClient(credentialsPath, timeout)
	c.baseURL = baseURL
	return c
}

// usageResponse is the wire shape of the usage endpoint.
type usageResponse struct {
	FiveHour       *usageBucket `json:"five_hour"`
	SevenDay       *usageBucket `json:"seven_day"`
	SevenDayOpus   *usageBucket `json:"seven_day_opus"`
	SevenDaySonnet *usageBucket `json:"seven_day_sonnet"`
	ExtraUsage     *extraBucket `json:"extra_usage"`
}

type usageBucket struct {
	Utilization float64 `json:"utilization"`
	ResetsAt    string  `json:"resets_at"`
}

type extraBucket struct {
	IsEnabled    bool    `json:"is_enabled"`
	MonthlyLimit float64 `json:"monthly_limit"`
	UsedCredits  float64 `json:"used_credits"`
	Utilization  float64 `json:"utilization"`
}

// Fetch performs one read-only usage request and returns the parsed
// snapshot. Every failure maps to one of the package's error kinds.
func (c *Client) Fetch(ctx context.Context) (*models.QuotaSnapshot, error) {
	token, err := LoadToken(c.credentialsPath)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+usagePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create usage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("anthropic-beta", betaHeader)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrNetworkTimeout, err)
		}
		return nil, fmt.Errorf("usage request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read usage response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, truncate(string(body), 200))
	}

	var usage usageResponse
	if err := json.Unmarshal(body, &usage); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return c.buildSnapshot(&usage, time.Now()), nil
}

// buildSnapshot converts the wire response into a QuotaSnapshot,
// leaving sections nil when the service omitted them.
func (c *Client) buildSnapshot(usage *usageResponse, now time.Time) *models.QuotaSnapshot {
	snap := &models.QuotaSnapshot{FetchedAt: now}

	if usage.FiveHour != nil {
		session := &models.SessionWindow{
			PercentUsed:   usage.FiveHour.Utilization,
			ResetTimezone: "UTC",
		}
		if resetsAt, err := time.Parse(time.RFC3339, usage.FiveHour.ResetsAt); err == nil {
			session.ResetsAt = resetsAt.UTC()
			session.ResetTime = sessionwindow.FormatLabel(resetsAt.UTC())
		} else {
			session.ResetTime = usage.FiveHour.ResetsAt
		}
		snap.Session = session
	}

	snap.Weekly = weeklyWindow(usage.SevenDay, "overall")
	snap.WeeklyOpus = weeklyWindow(usage.SevenDayOpus, "opus")
	snap.WeeklySonnet = weeklyWindow(usage.SevenDaySonnet, "sonnet")

	if usage.ExtraUsage != nil && usage.ExtraUsage.IsEnabled {
		snap.Extra = &models.ExtraUsage{
			PercentUsed: usage.ExtraUsage.Utilization,
			// The service reports credits in cents
			AmountSpent:   usage.ExtraUsage.UsedCredits / 100.0,
			AmountLimit:   usage.ExtraUsage.MonthlyLimit / 100.0,
			ResetDate:     "Monthly",
			ResetTimezone: "UTC",
		}
	}

	snap.Plan = classifyPlan(usage)
	return snap
}

func weeklyWindow(bucket *usageBucket, limitType string) *models.WeeklyWindow {
	if bucket == nil {
		return nil
	}
	w := &models.WeeklyWindow{
		PercentUsed:   bucket.Utilization,
		ResetTimezone: "UTC",
		LimitType:     limitType,
	}
	if resetsAt, err := time.Parse(time.RFC3339, bucket.ResetsAt); err == nil {
		w.ResetTime = resetsAt.UTC().Format(time.RFC3339)
	} else {
		w.ResetTime = bucket.ResetsAt
	}
	return w
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
