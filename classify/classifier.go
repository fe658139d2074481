// Package classify wraps the search-intent classification collaborator.
// The engine treats classification as an external capability: calls are
// rate limited, retried with backoff, cached, and degrade to a
// deterministic rule-based fallback rather than failing a run.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/topicforge/go-site-audit/config"
)

// Intent labels recognized by the engine.
const (
	IntentInformational = "informational"
	IntentTransactional = "transactional"
	IntentNavigational  = "navigational"
	IntentCommercial    = "commercial"
)

// Result is a classified search intent with the collaborator's
// confidence in it.
type Result struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Classifier resolves the dominant search intent behind an entity and
// its keyword set.
type Classifier interface {
	ClassifyIntent(ctx context.Context, entity string, keywords []string) (Result, error)
}

// RuleClassifier is the deterministic in-process fallback. It never
// fails, so detector signatures stay available without a collaborator.
type RuleClassifier struct{}

// ClassifyIntent applies fixed keyword rules.
func (RuleClassifier) ClassifyIntent(_ context.Context, entity string, keywords []string) (Result, error) {
	text := strings.ToLower(entity + " " + strings.Join(keywords, " "))
	switch {
	case containsAny(text, "buy", "price", "order", "checkout", "deal", "discount", "coupon"):
		return Result{Intent: IntentTransactional, Confidence: 0.7}, nil
	case containsAny(text, "best", "review", "vs", "versus", "compare", "comparison", "top"):
		return Result{Intent: IntentCommercial, Confidence: 0.7}, nil
	case containsAny(text, "login", "contact", "about", "homepage", "official"):
		return Result{Intent: IntentNavigational, Confidence: 0.6}, nil
	default:
		return Result{Intent: IntentInformational, Confidence: 0.5}, nil
	}
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// HTTPClassifier calls a remote classification service. Responses are
// cached by request signature; transient failures are retried with
// exponential backoff up to the configured attempt limit.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	cache    *lru.Cache[string, Result]

	maxRetries int
	backoff    time.Duration
	backoffMax time.Duration

	// RetryObserver, when set, is invoked once per retry attempt.
	RetryObserver func()
}

// NewHTTPClassifier builds a classifier client from cfg.
func NewHTTPClassifier(cfg *config.Config) (*HTTPClassifier, error) {
	if cfg.ClassifierURL == "" {
		return nil, fmt.Errorf("classifier URL cannot be empty")
	}
	cache, err := lru.New[string, Result](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("build classifier cache: %w", err)
	}
	return &HTTPClassifier{
		endpoint:   cfg.ClassifierURL,
		client:     &http.Client{Timeout: cfg.ClassifierTimeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.ClassifierRPS), cfg.ClassifierBurst),
		cache:      cache,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		backoffMax: cfg.RetryBackoffMax,
	}, nil
}

type classifyRequest struct {
	Entity   string   `json:"entity"`
	Keywords []string `json:"keywords"`
}

// ClassifyIntent resolves intent via the remote service, consulting the
// cache first.
func (c *HTTPClassifier) ClassifyIntent(ctx context.Context, entity string, keywords []string) (Result, error) {
	key := cacheKey(entity, keywords)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if c.RetryObserver != nil {
				c.RetryObserver()
			}
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(c.backoffDelay(attempt)):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return Result{}, err
		}

		result, err := c.call(ctx, entity, keywords)
		if err == nil {
			c.cache.Add(key, result)
			return result, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
		slog.Debug("classifier call failed, retrying",
			slog.String("entity", entity),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err),
		)
	}
	return Result{}, fmt.Errorf("classify intent for %q: %w", entity, lastErr)
}

func (c *HTTPClassifier) call(ctx context.Context, entity string, keywords []string) (Result, error) {
	body, err := json.Marshal(classifyRequest{Entity: entity, Keywords: keywords})
	if err != nil {
		return Result{}, fmt.Errorf("encode classify request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, ErrUpstream{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return Result{}, ErrUpstream{Err: err}
		}
		return Result{}, ErrRejected{Err: err}
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, ErrRejected{Err: fmt.Errorf("decode classify response: %w", err)}
	}
	if result.Intent == "" {
		return Result{}, ErrRejected{Err: fmt.Errorf("classifier returned empty intent")}
	}
	return result, nil
}

func (c *HTTPClassifier) backoffDelay(attempt int) time.Duration {
	base := c.backoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	delay := base * time.Duration(1<<(attempt-1))
	if c.backoffMax > 0 && delay > c.backoffMax {
		delay = c.backoffMax
	}
	return delay
}

func cacheKey(entity string, keywords []string) string {
	sorted := make([]string, len(keywords))
	copy(sorted, keywords)
	sort.Strings(sorted)
	return strings.ToLower(entity) + "|" + strings.ToLower(strings.Join(sorted, ","))
}
