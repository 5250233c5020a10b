package quotaapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeCredentials(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".credentials.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const validCreds = `{"claudeAiOauth":{"accessToken":"sk-ant-oat01-test"}}`

func TestLoadToken(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"Valid", validCreds, nil},
		{"NoToken", `{"claudeAiOauth":{}}`, ErrCredentialMissing},
		{"EmptyObject", `{}`, ErrCredentialMissing},
		{"Malformed", `{not json`, ErrCredentialMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCredentials(t, tt.content)
			token, err := LoadToken(path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("LoadToken() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadToken() error: %v", err)
			}
			if token != "sk-ant-oat01-test" {
				t.Errorf("LoadToken() = %q", token)
			}
		})
	}
}

func TestLoadTokenMissingFile(t *testing.T) {
	_, err := LoadToken(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrCredentialMissing) {
		t.Errorf("LoadToken() error = %v, want ErrCredentialMissing", err)
	}
}

func TestFetch(t *testing.T) {
	var gotMethod, gotAuth, gotBeta string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		gotBeta = r.Header.Get("anthropic-beta")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"five_hour": {"utilization": 42.5, "resets_at": "2026-08-25T19:00:00Z"},
			"seven_day": null,
			"extra_usage": {"is_enabled": true, "monthly_limit": 5000, "used_credits": 123.0, "utilization": 2.46}
		}`))
	}))
	defer server.Close()

	creds := writeCredentials(t, validCreds)
	client := NewClientWithBaseURL(server.URL, creds, 5*time.Second)

	snap, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	// Read-only GET: anything else could register as activity
	if gotMethod != http.MethodGet {
		t.Errorf("request method = %q, want GET", gotMethod)
	}
	if gotAuth != "Bearer sk-ant-oat01-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBeta != betaHeader {
		t.Errorf("anthropic-beta = %q", gotBeta)
	}

	if snap.Session == nil {
		t.Fatal("Session section missing")
	}
	if snap.Session.PercentUsed != 42.5 {
		t.Errorf("PercentUsed = %v", snap.Session.PercentUsed)
	}
	if snap.Session.ResetTime != "7pm" {
		t.Errorf("ResetTime = %q, want 7pm", snap.Session.ResetTime)
	}
	if snap.Session.ResetTimezone != "UTC" {
		t.Errorf("ResetTimezone = %q", snap.Session.ResetTimezone)
	}

	if snap.Weekly != nil {
		t.Error("Weekly should be nil when the service reports null")
	}

	if snap.Extra == nil {
		t.Fatal("Extra section missing")
	}
	// Cents convert to dollars
	if snap.Extra.AmountSpent != 1.23 {
		t.Errorf("AmountSpent = %v, want 1.23", snap.Extra.AmountSpent)
	}
	if snap.Extra.AmountLimit != 50.0 {
		t.Errorf("AmountLimit = %v, want 50.0", snap.Extra.AmountLimit)
	}

	if snap.Plan == nil || snap.Plan.Tier != TierPro {
		t.Errorf("Plan = %+v, want pro", snap.Plan)
	}
}

func TestFetchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired token", http.StatusUnauthorized)
	}))
	defer server.Close()

	creds := writeCredentials(t, validCreds)
	client := NewClientWithBaseURL(server.URL, creds, 5*time.Second)

	_, err := client.Fetch(context.Background())
	if !errors.Is(err, ErrHTTPStatus) {
		t.Errorf("Fetch() error = %v, want ErrHTTPStatus", err)
	}
}

func TestFetchMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	creds := writeCredentials(t, validCreds)
	client := NewClientWithBaseURL(server.URL, creds, 5*time.Second)

	_, err := client.Fetch(context.Background())
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Fetch() error = %v, want ErrMalformedResponse", err)
	}
}

func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	creds := writeCredentials(t, validCreds)
	client := NewClientWithBaseURL(server.URL, creds, 50*time.Millisecond)

	_, err := client.Fetch(context.Background())
	if !errors.Is(err, ErrNetworkTimeout) {
		t.Errorf("Fetch() error = %v, want ErrNetworkTimeout", err)
	}
}

func TestFetchMissingCredentials(t *testing.T) {
	client := NewClient(filepath.Join(t.TempDir(), "nope.json"), time.Second)
	_, err := client.Fetch(context.Background())
	if !errors.Is(err, ErrCredentialMissing) {
		t.Errorf("Fetch() error = %v, want ErrCredentialMissing", err)
	}
}

func TestClassifyPlan(t *testing.T) {
	bucket := &usageBucket{Utilization: 10, ResetsAt: "2026-08-31T00:00:00Z"}

	tests := []struct {
		name     string
		usage    usageResponse
		wantTier string
	}{
		{"NoWeekly", usageResponse{FiveHour: bucket}, TierPro},
		{"WeeklyNoExtra", usageResponse{FiveHour: bucket, SevenDay: bucket}, TierMax5},
		{
			"WeeklyWithExtra",
			usageResponse{FiveHour: bucket, SevenDay: bucket, ExtraUsage: &extraBucket{IsEnabled: true}},
			TierMax20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := classifyPlan(&tt.usage)
			if plan.Tier != tt.wantTier {
				t.Errorf("classifyPlan().Tier = %q, want %q", plan.Tier, tt.wantTier)
			}
		})
	}
}

func TestSessionTokenEstimate(t *testing.T) {
	if got := SessionTokenEstimate(50, nil); got != 22_000 {
		t.Errorf("SessionTokenEstimate(50, nil) = %d, want 22000", got)
	}
	plan := classifyPlan(&usageResponse{SevenDay: &usageBucket{}})
	if got := SessionTokenEstimate(10, plan); got != 22_000 {
		t.Errorf("SessionTokenEstimate(10, max5) = %d, want 22000", got)
	}
	if got := SessionTokenEstimate(-5, nil); got != 0 {
		t.Errorf("SessionTokenEstimate(-5, nil) = %d, want 0", got)
	}
}
