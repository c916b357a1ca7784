package github

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	apperrors "applykit/internal/errors"
)

const cacheFileName = "github_repos.json"

// RepoSource lists the candidate's repositories
type RepoSource interface {
	ListRepos(ctx context.Context) ([]Repo, error)
}

// CachedSource wraps a RepoSource with an on-disk cache. The repository
// listing changes slowly, so API round trips are skipped while the cache
// file is younger than the TTL.
type CachedSource struct {
	source RepoSource
	dir    string
	ttl    time.Duration
	logger *apperrors.Logger
}

// NewCachedSource creates a cache over source rooted at dir
func NewCachedSource(source RepoSource, dir string, ttl time.Duration, logger *apperrors.Logger) *CachedSource {
	return &CachedSource{
		source: source,
		dir:    dir,
		ttl:    ttl,
		logger: logger,
	}
}

// ListRepos returns the cached listing when fresh, otherwise refreshes from
// the underlying source and rewrites the cache. A failed cache write only
// logs; the listing is still returned.
func (c *CachedSource) ListRepos(ctx context.Context) ([]Repo, error) {
	path := filepath.Join(c.dir, cacheFileName)

	if repos, ok := c.load(path); ok {
		return repos, nil
	}

	repos, err := c.source.ListRepos(ctx)
	if err != nil {
		return nil, err
	}

	c.store(path, repos)
	return repos, nil
}

// Refresh bypasses the cache and rewrites it from the source
func (c *CachedSource) Refresh(ctx context.Context) ([]Repo, error) {
	repos, err := c.source.ListRepos(ctx)
	if err != nil {
		return nil, err
	}
	c.store(filepath.Join(c.dir, cacheFileName), repos)
	return repos, nil
}

func (c *CachedSource) load(path string) ([]Repo, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	age := time.Since(info.ModTime())
	if age >= c.ttl {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var repos []Repo
	if err := json.Unmarshal(data, &repos); err != nil {
		c.logger.Warn("Discarding unreadable GitHub cache", "path", path, "error", err.Error())
		return nil, false
	}

	c.logger.Debug("GitHub repositories loaded from cache",
		"path", path,
		"age", age.Round(time.Second).String(),
		"count", len(repos))
	return repos, true
}

func (c *CachedSource) store(path string, repos []Repo) {
	data, err := json.MarshalIndent(repos, "", "  ")
	if err != nil {
		c.logger.Warn("Failed to serialize GitHub cache", "error", err.Error())
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		c.logger.Warn("Failed to create GitHub cache directory", "error", err.Error())
		return
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		c.logger.Warn("Failed to write GitHub cache", "error", err.Error())
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		c.logger.Warn("Failed to replace GitHub cache", "error", err.Error())
	}
}
