package safety

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type memCache struct {
	mu    sync.Mutex
	store map[string]string
	sets  int
}

func newMemCache() *memCache {
	return &memCache{store: map[string]string{}}
}

func (m *memCache) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.store[key]
	return v, ok
}

func (m *memCache) Set(_ context.Context, key, value string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = value
	m.sets++
}

func labelServer(t *testing.T, contraindications, warnings []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/drug/label.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"results":[{"contraindications":%s,"warnings":%s}]}`,
			jsonStrings(contraindications), jsonStrings(warnings))
	}))
}

func jsonStrings(values []string) string {
	out := "["
	for i, v := range values {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%q", v)
	}
	return out + "]"
}

func TestCheckFlagsContraindicatedCondition(t *testing.T) {
	srv := labelServer(t,
		[]string{"Do not use in patients with asthma or severe renal impairment."},
		[]string{"May cause drowsiness."},
	)
	defer srv.Close()

	c := NewChecker(srv.URL, 2*time.Second, nil)
	result := c.Check(context.Background(), "Ibuprofen", []string{"Asthma"}, []string{})

	if result.Defaulted {
		t.Fatalf("expected computed verdict, got defaulted: %s", result.Reason)
	}
	if result.Safe {
		t.Fatalf("expected unsafe verdict for contraindicated condition")
	}
	if len(result.Issues) != 1 || result.Issues[0] != "Not recommended for patients with Asthma" {
		t.Fatalf("unexpected issues: %v", result.Issues)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected label warnings to pass through, got %v", result.Warnings)
	}
}

func TestCheckSafeWhenNoConditionMatches(t *testing.T) {
	srv := labelServer(t, []string{"Do not use in patients with glaucoma."}, nil)
	defer srv.Close()

	c := NewChecker(srv.URL, 2*time.Second, nil)
	result := c.Check(context.Background(), "Ibuprofen", []string{"Asthma"}, []string{})

	if !result.Safe || result.Defaulted {
		t.Fatalf("expected computed safe verdict, got %+v", result)
	}
	if result.Issues == nil || result.Warnings == nil {
		t.Fatalf("issues and warnings must be non-nil slices")
	}
}

func TestCheckDefaultsSafeOnUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewChecker(srv.URL, 2*time.Second, nil)
	result := c.Check(context.Background(), "Ibuprofen", []string{"Asthma"}, []string{})

	if !result.Defaulted {
		t.Fatalf("expected defaulted verdict on upstream failure")
	}
	if !result.Safe || len(result.Issues) != 0 || len(result.Warnings) != 0 {
		t.Fatalf("defaulted verdict must be safe and empty, got %+v", result.Verdict)
	}
	if result.Reason == "" {
		t.Fatalf("defaulted verdict must carry a reason")
	}
}

func TestCheckDefaultsSafeWhenDrugUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer srv.Close()

	c := NewChecker(srv.URL, 2*time.Second, nil)
	result := c.Check(context.Background(), "NoSuchDrug", []string{"Asthma"}, []string{})

	if !result.Defaulted || !result.Safe {
		t.Fatalf("unknown drug must default to safe, got %+v", result)
	}
}

func TestCheckDefaultsSafeWhenUnreachable(t *testing.T) {
	c := NewChecker("http://127.0.0.1:1", 200*time.Millisecond, nil)
	result := c.Check(context.Background(), "Ibuprofen", []string{"Asthma"}, []string{})

	if !result.Defaulted || !result.Safe {
		t.Fatalf("unreachable upstream must default to safe, got %+v", result)
	}
}

func TestCheckCachesComputedVerdicts(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[{"contraindications":["asthma"],"warnings":[]}]}`)
	}))
	defer srv.Close()

	cache := newMemCache()
	c := NewChecker(srv.URL, 2*time.Second, nil, WithCache(cache, time.Minute))

	first := c.Check(context.Background(), "Ibuprofen", []string{"Asthma"}, []string{})
	second := c.Check(context.Background(), "Ibuprofen", []string{"Asthma"}, []string{})

	if hits != 1 {
		t.Fatalf("expected one upstream lookup, got %d", hits)
	}
	if first.Safe != second.Safe || len(first.Issues) != len(second.Issues) {
		t.Fatalf("cached verdict differs from computed: %+v vs %+v", first, second)
	}
}

func TestCheckNeverCachesDefaultedVerdicts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cache := newMemCache()
	c := NewChecker(srv.URL, 2*time.Second, nil, WithCache(cache, time.Minute))

	result := c.Check(context.Background(), "Ibuprofen", []string{"Asthma"}, []string{})
	if !result.Defaulted {
		t.Fatalf("expected defaulted verdict")
	}
	if cache.sets != 0 {
		t.Fatalf("defaulted verdict must not be cached, saw %d cache writes", cache.sets)
	}
}

func TestVerdictKeyNormalizesConditions(t *testing.T) {
	a := verdictKey("Ibuprofen", []string{"Asthma", "Diabetes"})
	b := verdictKey("ibuprofen", []string{" diabetes ", "ASTHMA"})
	if a != b {
		t.Fatalf("expected normalized keys to agree: %q vs %q", a, b)
	}
}
