package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingExtractor struct {
	calls int64
	delay time.Duration
	fail  bool
}

func (e *countingExtractor) Extract(_ context.Context, source []byte) (json.RawMessage, error) {
	atomic.AddInt64(&e.calls, 1)
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if e.fail {
		return nil, fmt.Errorf("extractor unavailable")
	}
	payload, _ := json.Marshal(map[string]any{"length": len(source)})
	return payload, nil
}

func newTestCache(t *testing.T, extractor Extractor) (*ExtractionCache, *MemoryBackend) {
	t.Helper()
	backend := &MemoryBackend{}
	cache, err := NewExtractionCache(context.Background(), backend, extractor, testLogger())
	if err != nil {
		t.Fatalf("NewExtractionCache failed: %v", err)
	}
	return cache, backend
}

func TestGetOrExtractCachesByFingerprint(t *testing.T) {
	extractor := &countingExtractor{}
	cache, _ := newTestCache(t, extractor)
	ctx := context.Background()
	source := []byte("cv document body")

	payload, hit, err := cache.GetOrExtract(ctx, source)
	if err != nil {
		t.Fatalf("GetOrExtract failed: %v", err)
	}
	if hit {
		t.Error("first call reported a cache hit")
	}
	if payload == nil {
		t.Fatal("expected payload")
	}

	payload2, hit, err := cache.GetOrExtract(ctx, source)
	if err != nil {
		t.Fatalf("GetOrExtract failed: %v", err)
	}
	if !hit {
		t.Error("second call missed the cache")
	}
	if string(payload) != string(payload2) {
		t.Error("cached payload differs from extracted payload")
	}
	if got := atomic.LoadInt64(&extractor.calls); got != 1 {
		t.Errorf("expected 1 extraction, got %d", got)
	}
}

func TestGetOrExtractDistinguishesSources(t *testing.T) {
	extractor := &countingExtractor{}
	cache, _ := newTestCache(t, extractor)
	ctx := context.Background()

	if _, _, err := cache.GetOrExtract(ctx, []byte("source one")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := cache.GetOrExtract(ctx, []byte("source two")); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt64(&extractor.calls); got != 2 {
		t.Errorf("expected 2 extractions, got %d", got)
	}
	if cache.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", cache.Len())
	}
}

func TestExtractionFailureLeavesCacheUnchanged(t *testing.T) {
	extractor := &countingExtractor{fail: true}
	cache, _ := newTestCache(t, extractor)
	ctx := context.Background()
	source := []byte("flaky source")

	if _, _, err := cache.GetOrExtract(ctx, source); err == nil {
		t.Fatal("expected extraction error")
	}
	if cache.Len() != 0 {
		t.Errorf("failed extraction must not populate the cache, got %d entries", cache.Len())
	}
	if _, ok := cache.Lookup(source); ok {
		t.Error("failed extraction left a cache entry")
	}

	// After the upstream recovers, the same fingerprint extracts again
	extractor.fail = false
	if _, hit, err := cache.GetOrExtract(ctx, source); err != nil || hit {
		t.Fatalf("retry after failure: hit=%v err=%v", hit, err)
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 entry after recovery, got %d", cache.Len())
	}
}

func TestConcurrentCallsShareOneExtraction(t *testing.T) {
	extractor := &countingExtractor{delay: 50 * time.Millisecond}
	cache, _ := newTestCache(t, extractor)
	source := []byte("contended source")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := cache.GetOrExtract(context.Background(), source); err != nil {
				t.Errorf("GetOrExtract failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&extractor.calls); got != 1 {
		t.Errorf("expected exactly 1 extraction under concurrency, got %d", got)
	}
}

func TestCachePersistsAcrossInstances(t *testing.T) {
	extractor := &countingExtractor{}
	backend := &MemoryBackend{}
	ctx := context.Background()
	source := []byte("durable source")

	cache, err := NewExtractionCache(ctx, backend, extractor, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := cache.GetOrExtract(ctx, source); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewExtractionCache(ctx, backend, extractor, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	_, hit, err := reopened.GetOrExtract(ctx, source)
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Error("reopened cache missed a persisted entry")
	}
	if got := atomic.LoadInt64(&extractor.calls); got != 1 {
		t.Errorf("expected persisted entry to prevent re-extraction, got %d calls", got)
	}
}
