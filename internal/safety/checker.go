package safety

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/capsulebuddy/backend/internal/observability/metrics"
)

// Verdict is the safety decision for one medicine against one set of
// patient conditions.
type Verdict struct {
	Safe     bool     `json:"safe"`
	Issues   []string `json:"issues"`
	Warnings []string `json:"warnings"`
}

// Result wraps a Verdict with provenance. The lookup is fail-open: any
// failure (network, non-200, malformed payload, drug not found) degrades to
// a safe verdict, and Defaulted records that this happened so callers and
// tests can tell a computed verdict from the default.
type Result struct {
	Verdict
	Defaulted bool
	Reason    string // why the verdict defaulted, empty when computed
}

// VerdictCache stores computed verdicts. Implementations are best-effort;
// a miss or store failure never affects the verdict.
type VerdictCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// Checker queries a drug-label source (openFDA) for contraindications and
// derives a verdict for a patient's conditions.
type Checker struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	cache      VerdictCache
	cacheTTL   time.Duration
}

// Option configures a Checker
type Option func(*Checker)

// WithCache enables verdict caching with the given TTL
func WithCache(cache VerdictCache, ttl time.Duration) Option {
	return func(c *Checker) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithHTTPClient overrides the HTTP client (tests)
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) {
		c.httpClient = client
	}
}

// NewChecker creates a safety checker. The timeout bounds each lookup so a
// slow upstream cannot stall the caller.
func NewChecker(baseURL string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Checker {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Checker{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// labelResponse is the subset of the openFDA drug/label payload we read
type labelResponse struct {
	Results []struct {
		Warnings          []string `json:"warnings"`
		Contraindications []string `json:"contraindications"`
	} `json:"results"`
}

// Check looks up medicineName by brand name and matches each patient
// condition case-insensitively against the stringified contraindications.
// currentMedications is accepted for interaction checking but is not yet
// evaluated; callers always pass an empty set.
func (c *Checker) Check(ctx context.Context, medicineName string, conditions []string, currentMedications []string) Result {
	_ = currentMedications

	cacheKey := verdictKey(medicineName, conditions)
	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, cacheKey); ok {
			var verdict Verdict
			if err := json.Unmarshal([]byte(cached), &verdict); err == nil {
				metrics.ObserveSafetyLookup("cache_hit")
				return Result{Verdict: verdict}
			}
		}
	}

	lookupURL := fmt.Sprintf("%s/drug/label.json?search=openfda.brand_name:%s&limit=1",
		c.baseURL, url.QueryEscape(medicineName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return c.failOpen(medicineName, fmt.Sprintf("build request: %v", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.failOpen(medicineName, fmt.Sprintf("lookup failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.failOpen(medicineName, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	var payload labelResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return c.failOpen(medicineName, fmt.Sprintf("malformed payload: %v", err))
	}

	if len(payload.Results) == 0 {
		return c.failOpen(medicineName, "no results")
	}

	record := payload.Results[0]
	contraindications := strings.ToLower(strings.Join(record.Contraindications, " "))

	issues := []string{}
	for _, condition := range conditions {
		condition = strings.TrimSpace(condition)
		if condition == "" {
			continue
		}
		if strings.Contains(contraindications, strings.ToLower(condition)) {
			issues = append(issues, fmt.Sprintf("Not recommended for patients with %s", condition))
		}
	}

	warnings := record.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	verdict := Verdict{
		Safe:     len(issues) == 0,
		Issues:   issues,
		Warnings: warnings,
	}

	if c.cache != nil {
		if data, err := json.Marshal(verdict); err == nil {
			c.cache.Set(ctx, cacheKey, string(data), c.cacheTTL)
		}
	}

	metrics.ObserveSafetyLookup("ok")
	return Result{Verdict: verdict}
}

// failOpen returns the degraded safe verdict. Defaulted verdicts are never
// cached so a recovered upstream is consulted again immediately.
func (c *Checker) failOpen(medicineName, reason string) Result {
	c.logger.Warn("safety lookup defaulted to safe",
		slog.String("medicine", medicineName),
		slog.String("reason", reason),
	)
	metrics.ObserveSafetyLookup("defaulted")

	return Result{
		Verdict: Verdict{
			Safe:     true,
			Issues:   []string{},
			Warnings: []string{},
		},
		Defaulted: true,
		Reason:    reason,
	}
}

func verdictKey(medicineName string, conditions []string) string {
	normalized := make([]string, 0, len(conditions))
	for _, cond := range conditions {
		cond = strings.ToLower(strings.TrimSpace(cond))
		if cond != "" {
			normalized = append(normalized, cond)
		}
	}
	sort.Strings(normalized)
	return "safety:" + strings.ToLower(medicineName) + ":" + strings.Join(normalized, ",")
}
