package github

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"applykit/internal/types"
)

func sampleRepos() []Repo {
	return []Repo{
		{Name: "go-service", Technologies: []string{"Go", "PostgreSQL", "docker"}, Recent: true, LastActivity: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
		{Name: "old-scripts", Technologies: []string{"Python"}, Recent: false, LastActivity: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Name: "infra", Technologies: []string{"Terraform", "Kubernetes"}, Recent: true, LastActivity: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)},
		{Name: "dotfiles", Technologies: []string{"Shell"}, Recent: true, LastActivity: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func TestSelectRelevant(t *testing.T) {
	job := &types.JobRequirements{
		MustHave:   []string{"Go", "PostgreSQL"},
		NiceToHave: []string{"Kubernetes"},
		Keywords:   []string{"python"},
	}

	selected := SelectRelevant(sampleRepos(), job, 5)

	if len(selected) != 3 {
		t.Fatalf("expected 3 relevant repos, got %d", len(selected))
	}
	if selected[0].Name != "go-service" {
		t.Errorf("repo with two must-have matches should rank first, got %s", selected[0].Name)
	}
	for _, repo := range selected {
		if repo.Name == "dotfiles" {
			t.Error("repo with no overlap must not be selected")
		}
	}
}

func TestSelectRelevantLimit(t *testing.T) {
	job := &types.JobRequirements{Keywords: []string{"go", "python", "terraform", "shell"}}

	selected := SelectRelevant(sampleRepos(), job, 2)
	if len(selected) > 2 {
		t.Errorf("limit not honored, got %d repos", len(selected))
	}
}

type staticSource struct {
	repos []Repo
	err   error
	calls int
}

func (s *staticSource) ListRepos(ctx context.Context) ([]Repo, error) {
	s.calls++
	return s.repos, s.err
}

func TestCachedSourceServesFreshCache(t *testing.T) {
	dir := t.TempDir()
	source := &staticSource{repos: sampleRepos()}
	cached := NewCachedSource(source, dir, time.Hour, testLogger())

	first, err := cached.ListRepos(context.Background())
	if err != nil {
		t.Fatalf("first ListRepos() error = %v", err)
	}
	second, err := cached.ListRepos(context.Background())
	if err != nil {
		t.Fatalf("second ListRepos() error = %v", err)
	}

	if source.calls != 1 {
		t.Errorf("expected one upstream call, got %d", source.calls)
	}
	if len(first) != len(second) {
		t.Errorf("cache changed the listing: %d vs %d", len(first), len(second))
	}
}

func TestCachedSourceExpiry(t *testing.T) {
	dir := t.TempDir()
	source := &staticSource{repos: sampleRepos()}
	cached := NewCachedSource(source, dir, time.Hour, testLogger())

	if _, err := cached.ListRepos(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Age the cache file past the TTL
	stale := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(filepath.Join(dir, cacheFileName), stale, stale); err != nil {
		t.Fatal(err)
	}

	if _, err := cached.ListRepos(context.Background()); err != nil {
		t.Fatal(err)
	}
	if source.calls != 2 {
		t.Errorf("stale cache should refetch, got %d upstream calls", source.calls)
	}
}

func TestCachedSourceRefreshBypassesCache(t *testing.T) {
	dir := t.TempDir()
	source := &staticSource{repos: sampleRepos()}
	cached := NewCachedSource(source, dir, time.Hour, testLogger())

	if _, err := cached.ListRepos(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if source.calls != 2 {
		t.Errorf("Refresh must hit the source, got %d calls", source.calls)
	}
}

func TestEnricherRelevantProjects(t *testing.T) {
	source := &staticSource{repos: sampleRepos()}
	enricher := NewEnricher(source, nil, 5, testLogger())

	job := &types.JobRequirements{MustHave: []string{"Go"}}
	fragment, err := enricher.RelevantProjects(context.Background(), job)
	if err != nil {
		t.Fatalf("RelevantProjects() error = %v", err)
	}

	var projects []map[string]any
	if err := json.Unmarshal(fragment, &projects); err != nil {
		t.Fatalf("fragment is not valid JSON: %v", err)
	}
	if len(projects) != 1 || projects[0]["name"] != "go-service" {
		t.Errorf("unexpected projects fragment: %v", projects)
	}
}

func TestEnricherNoOverlapReturnsNil(t *testing.T) {
	source := &staticSource{repos: sampleRepos()}
	enricher := NewEnricher(source, nil, 5, testLogger())

	fragment, err := enricher.RelevantProjects(context.Background(), &types.JobRequirements{MustHave: []string{"COBOL"}})
	if err != nil {
		t.Fatal(err)
	}
	if fragment != nil {
		t.Errorf("expected nil fragment, got %s", fragment)
	}
}

func TestEnricherPropagatesSourceError(t *testing.T) {
	source := &staticSource{err: errors.New("api down")}
	enricher := NewEnricher(source, nil, 5, testLogger())

	if _, err := enricher.RelevantProjects(context.Background(), &types.JobRequirements{}); err == nil {
		t.Fatal("expected source error to propagate")
	}
}
