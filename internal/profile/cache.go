package profile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"applykit/internal/errors"
)

// Extractor produces structured profile data from one raw source document
type Extractor interface {
	Extract(ctx context.Context, source []byte) (json.RawMessage, error)
}

// CacheEntry is one persisted extraction result keyed by source fingerprint
type CacheEntry struct {
	Fingerprint string          `json:"fingerprint"`
	Payload     json.RawMessage `json:"payload"`
	ExtractedAt time.Time       `json:"extractedAt"`
}

// ExtractionCache memoizes extraction results by content fingerprint so each
// distinct source document is extracted at most once, including under
// concurrent requests. A failed extraction leaves the cache unchanged and
// the next request for the same fingerprint retries.
type ExtractionCache struct {
	mu        sync.Mutex
	backend   Backend
	extractor Extractor
	entries   map[string]CacheEntry
	group     singleflight.Group
	logger    *errors.Logger
}

// NewExtractionCache loads persisted entries from the backend. A missing or
// empty cache file starts empty.
func NewExtractionCache(ctx context.Context, backend Backend, extractor Extractor, logger *errors.Logger) (*ExtractionCache, error) {
	c := &ExtractionCache{
		backend:   backend,
		extractor: extractor,
		entries:   make(map[string]CacheEntry),
		logger:    logger,
	}
	raw, err := backend.Load(ctx)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to load extraction cache", err)
	}
	if len(raw) > 0 {
		var entries []CacheEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat, "extraction cache is corrupt", err)
		}
		for _, e := range entries {
			c.entries[e.Fingerprint] = e
		}
	}
	return c, nil
}

// Fingerprint returns the hex sha256 digest of the source bytes
func Fingerprint(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// GetOrExtract returns the cached payload for the source's fingerprint, or
// runs the extractor and caches the result. The returned bool reports a
// cache hit. Concurrent calls for the same fingerprint share one extraction.
func (c *ExtractionCache) GetOrExtract(ctx context.Context, source []byte) (json.RawMessage, bool, error) {
	fp := Fingerprint(source)

	c.mu.Lock()
	if entry, ok := c.entries[fp]; ok {
		c.mu.Unlock()
		return entry.Payload, true, nil
	}
	c.mu.Unlock()

	result, err, _ := c.group.Do(fp, func() (any, error) {
		// A concurrent caller may have populated the entry while this
		// flight was queued
		c.mu.Lock()
		if entry, ok := c.entries[fp]; ok {
			c.mu.Unlock()
			return entry.Payload, nil
		}
		c.mu.Unlock()

		payload, err := c.extractor.Extract(ctx, source)
		if err != nil {
			return nil, errors.NewPipelineError(errors.ErrCodeExtractionFailed, "source extraction failed", err)
		}
		if err := c.store(ctx, fp, payload); err != nil {
			return nil, err
		}
		return payload, nil
	})
	if err != nil {
		return nil, false, err
	}
	return result.(json.RawMessage), false, nil
}

// Lookup returns the cached payload without triggering extraction
func (c *ExtractionCache) Lookup(source []byte) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[Fingerprint(source)]
	if !ok {
		return nil, false
	}
	return entry.Payload, true
}

// Len returns the number of cached entries
func (c *ExtractionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ExtractionCache) store(ctx context.Context, fp string, payload json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[fp] = CacheEntry{
		Fingerprint: fp,
		Payload:     payload,
		ExtractedAt: time.Now().UTC(),
	}

	entries := make([]CacheEntry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInvalidFormat, "failed to serialize extraction cache", err)
	}
	if err := c.backend.Save(ctx, raw); err != nil {
		// Keep the in-memory entry; persistence failure degrades to a
		// warm cache that does not survive restart
		c.logger.Warn("failed to persist extraction cache", "error", err)
	}
	return nil
}
