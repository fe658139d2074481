package classify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/topicforge/go-site-audit/config"
)

const testEndpoint = "https://classifier.test/intent"

func testClassifier(t *testing.T) (*HTTPClassifier, *httpmock.MockTransport) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ClassifierURL = testEndpoint
	cfg.MaxRetries = 2
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 5 * time.Millisecond
	cfg.ClassifierRPS = 1000
	cfg.ClassifierBurst = 100

	c, err := NewHTTPClassifier(cfg)
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	transport := httpmock.NewMockTransport()
	c.client.Transport = transport
	return c, transport
}

func TestHTTPClassifierSuccess(t *testing.T) {
	c, transport := testClassifier(t)
	transport.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewStringResponder(200, `{"intent":"transactional","confidence":0.92}`))

	got, err := c.ClassifyIntent(context.Background(), "espresso machines", []string{"buy espresso machine"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Intent != IntentTransactional || got.Confidence != 0.92 {
		t.Fatalf("result = %+v, want transactional/0.92", got)
	}
}

func TestHTTPClassifierRetriesTransientFailures(t *testing.T) {
	c, transport := testClassifier(t)

	var calls atomic.Int64
	transport.RegisterResponder(http.MethodPost, testEndpoint,
		func(req *http.Request) (*http.Response, error) {
			if calls.Add(1) == 1 {
				return httpmock.NewStringResponse(500, "boom"), nil
			}
			return httpmock.NewStringResponse(200, `{"intent":"informational","confidence":0.8}`), nil
		})

	var retries atomic.Int64
	c.RetryObserver = func() { retries.Add(1) }

	got, err := c.ClassifyIntent(context.Background(), "coffee", nil)
	if err != nil {
		t.Fatalf("classify after retry: %v", err)
	}
	if got.Intent != IntentInformational {
		t.Fatalf("intent = %q, want informational", got.Intent)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
	if retries.Load() != 1 {
		t.Fatalf("retries observed = %d, want 1", retries.Load())
	}
}

func TestHTTPClassifierExhaustsRetries(t *testing.T) {
	c, transport := testClassifier(t)
	transport.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewStringResponder(503, "unavailable"))

	_, err := c.ClassifyIntent(context.Background(), "coffee", nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	var upstream ErrUpstream
	if !errors.As(err, &upstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	// initial attempt plus MaxRetries
	if info := transport.GetCallCountInfo(); info["POST "+testEndpoint] != 3 {
		t.Fatalf("call count = %d, want 3", info["POST "+testEndpoint])
	}
}

func TestHTTPClassifierDoesNotRetryRejections(t *testing.T) {
	c, transport := testClassifier(t)
	transport.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewStringResponder(400, "bad request"))

	_, err := c.ClassifyIntent(context.Background(), "coffee", nil)
	var rejected ErrRejected
	if !errors.As(err, &rejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if info := transport.GetCallCountInfo(); info["POST "+testEndpoint] != 1 {
		t.Fatalf("call count = %d, want 1", info["POST "+testEndpoint])
	}
}

func TestHTTPClassifierCachesResults(t *testing.T) {
	c, transport := testClassifier(t)
	transport.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewStringResponder(200, `{"intent":"commercial","confidence":0.75}`))

	ctx := context.Background()
	if _, err := c.ClassifyIntent(ctx, "Grinders", []string{"best grinder", "grinder review"}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	// same signature with reordered keywords and different casing
	if _, err := c.ClassifyIntent(ctx, "grinders", []string{"grinder review", "best grinder"}); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if info := transport.GetCallCountInfo(); info["POST "+testEndpoint] != 1 {
		t.Fatalf("call count = %d, want 1 (second call should hit cache)", info["POST "+testEndpoint])
	}
}

func TestHTTPClassifierContextCancellation(t *testing.T) {
	c, transport := testClassifier(t)
	transport.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewStringResponder(500, "boom"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ClassifyIntent(ctx, "coffee", nil)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestRuleClassifier(t *testing.T) {
	tests := []struct {
		name     string
		entity   string
		keywords []string
		want     string
	}{
		{"transactional", "espresso machine", []string{"buy espresso machine online"}, IntentTransactional},
		{"commercial", "grinders", []string{"best burr grinder review"}, IntentCommercial},
		{"navigational", "account", []string{"login page"}, IntentNavigational},
		{"informational fallback", "coffee brewing", []string{"how it works"}, IntentInformational},
		{"entity text counts", "discount coffee", nil, IntentTransactional},
	}

	var rc RuleClassifier
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rc.ClassifyIntent(context.Background(), tt.entity, tt.keywords)
			if err != nil {
				t.Fatalf("rule classifier should never fail: %v", err)
			}
			if got.Intent != tt.want {
				t.Fatalf("intent = %q, want %q", got.Intent, tt.want)
			}
		})
	}
}

func TestCacheKeyNormalizesKeywordOrder(t *testing.T) {
	a := cacheKey("Coffee", []string{"beta", "alpha"})
	b := cacheKey("coffee", []string{"alpha", "beta"})
	if a != b {
		t.Fatalf("cache keys differ: %q vs %q", a, b)
	}
	if strings.Contains(a, "beta,alpha") {
		t.Fatalf("keywords not sorted in key %q", a)
	}
}
