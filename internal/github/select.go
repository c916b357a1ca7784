package github

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	apperrors "applykit/internal/errors"
	"applykit/internal/types"
)

const maxSelected = 5

// scoredRepo pairs a repository with its relevance to one posting
type scoredRepo struct {
	repo  Repo
	score int
}

// SelectRelevant picks the repositories most relevant to the analyzed
// posting by technology overlap. Must-have matches weigh more than
// nice-to-have or keyword matches, recent activity breaks ties upward.
// Repos with no overlap at all are never selected.
func SelectRelevant(repos []Repo, job *types.JobRequirements, limit int) []Repo {
	if limit <= 0 {
		limit = maxSelected
	}

	mustHave := lowerSet(job.MustHave)
	niceToHave := lowerSet(job.NiceToHave)
	keywords := lowerSet(job.Keywords)

	scored := make([]scoredRepo, 0, len(repos))
	for _, repo := range repos {
		score := 0
		for _, tech := range repo.Technologies {
			key := strings.ToLower(tech)
			switch {
			case mustHave[key]:
				score += 3
			case niceToHave[key]:
				score += 2
			case keywords[key]:
				score += 1
			}
		}
		if score == 0 {
			continue
		}
		if repo.Recent {
			score++
		}
		scored = append(scored, scoredRepo{repo, score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].repo.LastActivity.After(scored[j].repo.LastActivity)
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	selected := make([]Repo, len(scored))
	for i, s := range scored {
		selected[i] = s.repo
	}
	return selected
}

func lowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return set
}

// projectSummary is the shape injected into the candidate profile
type projectSummary struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies"`
	URL          string   `json:"url"`
	Readme       string   `json:"readmeSummary,omitempty"`
}

// Enricher surfaces job-relevant repositories as profile project entries
type Enricher struct {
	source   RepoSource
	client   *Client
	maxRepos int
	logger   *apperrors.Logger
}

// NewEnricher builds the enrichment step. client may be nil when README
// fetching is not wanted (tests use a bare source).
func NewEnricher(source RepoSource, client *Client, maxRepos int, logger *apperrors.Logger) *Enricher {
	return &Enricher{
		source:   source,
		client:   client,
		maxRepos: maxRepos,
		logger:   logger,
	}
}

// RelevantProjects returns the selected repositories as a JSON fragment
// suitable for a profile "projects" entry. An empty selection returns nil.
func (e *Enricher) RelevantProjects(ctx context.Context, job *types.JobRequirements) (json.RawMessage, error) {
	repos, err := e.source.ListRepos(ctx)
	if err != nil {
		return nil, err
	}

	selected := SelectRelevant(repos, job, e.maxRepos)
	if len(selected) == 0 {
		return nil, nil
	}
	if e.client != nil {
		selected = e.client.FetchReadmes(ctx, selected)
	}

	summaries := make([]projectSummary, len(selected))
	for i, repo := range selected {
		summaries[i] = projectSummary{
			Name:         repo.Name,
			Description:  repo.Description,
			Technologies: repo.Technologies,
			URL:          repo.HTMLURL,
			Readme:       repo.Readme,
		}
	}

	e.logger.Debug("GitHub projects selected for posting",
		"job_title", job.JobTitle,
		"selected", len(summaries))

	return json.Marshal(summaries)
}
