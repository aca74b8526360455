package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func float64Ptr(v float64) *float64 { return &v }

func newTestServer(t *testing.T, catalog map[string]rawDocEntry) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(catalog); err != nil {
			t.Fatalf("encode test catalog: %v", err)
		}
	}))
}

// rawDocEntry mirrors the loose upstream JSON shape used in tests; numbers
// are plain JSON numbers here since flexFloat accepts both.
type rawDocEntry struct {
	InputCostPerToken           float64  `json:"input_cost_per_token"`
	OutputCostPerToken          float64  `json:"output_cost_per_token"`
	InputCostPerTokenAbove200k  *float64 `json:"input_cost_per_token_above_200k_tokens,omitempty"`
	OutputCostPerTokenAbove200k *float64 `json:"output_cost_per_token_above_200k_tokens,omitempty"`
	Mode                        string   `json:"mode"`
	LitellmProvider             string   `json:"litellm_provider"`
}

func TestCalculateColdCache(t *testing.T) {
	srv := newTestServer(t, map[string]rawDocEntry{
		"gpt-4o": {InputCostPerToken: 0.0000025, OutputCostPerToken: 0.00001, Mode: "chat", LitellmProvider: "openai"},
	})
	defer srv.Close()

	cachePath := filepath.Join(t.TempDir(), "pricing-cache.json")
	svc := New(srv.Client(), WithSourceURL(srv.URL), WithCachePath(cachePath))

	result, err := svc.Calculate(context.Background(), "gpt-4o", 1000, 500)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result.TieredApplied {
		t.Fatalf("expected no tiering at low token counts")
	}

	wantInput := 1000 * 0.0000025
	wantOutput := 500 * 0.00001
	if abs(result.InputCost-wantInput) > 1e-12 {
		t.Errorf("InputCost = %v, want %v", result.InputCost, wantInput)
	}
	if abs(result.OutputCost-wantOutput) > 1e-12 {
		t.Errorf("OutputCost = %v, want %v", result.OutputCost, wantOutput)
	}

	if _, err := os.Stat(cachePath); err != nil {
		t.Errorf("expected disk cache to be written: %v", err)
	}
}

func TestCalculateTieredAbove200k(t *testing.T) {
	srv := newTestServer(t, map[string]rawDocEntry{
		"gemini-1.5-pro": {
			InputCostPerToken:          0.00000125,
			OutputCostPerToken:         0.000005,
			InputCostPerTokenAbove200k: float64Ptr(0.0000025),
			OutputCostPerTokenAbove200k: float64Ptr(0.00001),
			Mode:                       "chat",
			LitellmProvider:            "gemini",
		},
	})
	defer srv.Close()

	cachePath := filepath.Join(t.TempDir(), "pricing-cache.json")
	svc := New(srv.Client(), WithSourceURL(srv.URL), WithCachePath(cachePath))

	result, err := svc.Calculate(context.Background(), "gemini-1.5-pro", 250_000, 10_000)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !result.TieredApplied {
		t.Fatalf("expected tiering to apply above 200k input tokens")
	}

	wantInput := 200_000*0.00000125 + 50_000*0.0000025
	wantOutput := 10_000 * 0.000005
	if abs(result.InputCost-wantInput) > 1e-9 {
		t.Errorf("InputCost = %v, want %v", result.InputCost, wantInput)
	}
	if abs(result.OutputCost-wantOutput) > 1e-9 {
		t.Errorf("OutputCost = %v, want %v", result.OutputCost, wantOutput)
	}
}

func TestGetLatestPricingFallsBackToStaleCacheOnFetchFailure(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "pricing-cache.json")

	staleCatalog := Catalog{
		"gpt-4o": {InputCostPerToken: 0.0000025, OutputCostPerToken: 0.00001, Mode: "chat"},
	}
	cf := &cacheFile{
		Metadata: cacheMetadata{
			Timestamp: time.Now().Add(-48 * time.Hour),
			SourceURL: "https://example.invalid/stale",
			TTL:       diskTTL,
		},
		Data: staleCatalog,
	}
	if err := writeDiskCache(cachePath, cf); err != nil {
		t.Fatalf("seed stale cache: %v", err)
	}

	// Source URL points at nothing listening, so the remote fetch must fail
	// and the stale disk cache must be served instead of an error.
	svc := New(http.DefaultClient, WithSourceURL("http://127.0.0.1:0/unreachable"), WithCachePath(cachePath))

	catalog, err := svc.GetLatestPricing(context.Background(), false)
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if _, ok := catalog["gpt-4o"]; !ok {
		t.Fatalf("expected stale catalog entry to be served")
	}
}

func TestFormatUSD(t *testing.T) {
	cases := []struct {
		amount float64
		want   string
	}{
		{0.0000012, "$0.000001"},
		{0.5, "$0.5000"},
		{12.3, "$12.30"},
	}
	for _, tc := range cases {
		if got := FormatUSD(tc.amount); got != tc.want {
			t.Errorf("FormatUSD(%v) = %q, want %q", tc.amount, got, tc.want)
		}
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
