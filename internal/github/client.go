// Package github fetches and condenses a candidate's repository activity so
// relevant projects can be surfaced in generated documents.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "applykit/internal/errors"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBaseURL  = "https://api.github.com"
	apiVersion      = "2022-11-28"
	requestTimeout  = 15 * time.Second
	perPage         = 100
	recentMonths    = 12
	readmeMaxBytes  = 1000
	minForkCommits  = 5
	languageWorkers = 4
)

// Repo is the condensed summary kept per repository
type Repo struct {
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Technologies []string  `json:"technologies"`
	HTMLURL      string    `json:"htmlUrl"`
	Private      bool      `json:"private"`
	LastActivity time.Time `json:"lastActivity"`
	Recent       bool      `json:"recent"`
	Readme       string    `json:"readmeSummary,omitempty"`
}

// Client talks to the GitHub REST API with a single bearer token
type Client struct {
	baseURL    string
	token      string
	username   string
	httpClient *http.Client
	logger     *apperrors.Logger
}

// NewClient creates a GitHub client. The token needs contents:read and
// metadata:read permissions.
func NewClient(username, token string, logger *apperrors.Logger) *Client {
	return &Client{
		baseURL:  defaultBaseURL,
		token:    token,
		username: username,
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// apiRepo mirrors the fields of the repository listing we consume
type apiRepo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Language    string   `json:"language"`
	Topics      []string `json:"topics"`
	HTMLURL     string   `json:"html_url"`
	Private     bool     `json:"private"`
	Fork        bool     `json:"fork"`
	Archived    bool     `json:"archived"`
	PushedAt    string   `json:"pushed_at"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
}

type apiContributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
}

// get performs one authenticated API request and decodes the JSON body into
// out. It returns the response headers for pagination.
func (c *Client) get(ctx context.Context, url, accept string, out any) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError(apperrors.ErrCodeInvalidRequest,
			"Failed to build GitHub request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError(apperrors.ErrCodeNetworkTimeout,
			"GitHub request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.NewNetworkError(apperrors.ErrCodeUnreadableSource,
			fmt.Sprintf("GitHub API returned %d for %s: %s", resp.StatusCode, url, strings.TrimSpace(string(body))), nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, apperrors.NewNetworkError(apperrors.ErrCodeInvalidFormat,
				"Failed to decode GitHub response", err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	return resp.Header, nil
}

// getRaw fetches a raw-content endpoint (README) and returns up to limit bytes
func (c *Client) getRaw(ctx context.Context, url string, limit int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github.raw")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// nextPageURL extracts the rel="next" target from a Link header
func nextPageURL(h http.Header) string {
	for _, part := range strings.Split(h.Get("Link"), ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		section, _, _ := strings.Cut(part, ";")
		return strings.Trim(strings.TrimSpace(section), "<>")
	}
	return ""
}

// ListRepos fetches all repositories for the authenticated user and returns
// condensed summaries sorted by last activity, newest first. Archived repos
// are dropped; forks are kept only when the user has contributed enough
// commits to them.
func (c *Client) ListRepos(ctx context.Context) ([]Repo, error) {
	var raw []apiRepo

	url := fmt.Sprintf("%s/user/repos?type=all&sort=pushed&per_page=%d", c.baseURL, perPage)
	for url != "" {
		var page []apiRepo
		headers, err := c.get(ctx, url, "application/vnd.github+json", &page)
		if err != nil {
			return nil, err
		}
		raw = append(raw, page...)
		url = nextPageURL(headers)
	}

	var skippedForks, skippedArchived int
	kept := make([]apiRepo, 0, len(raw))
	for _, repo := range raw {
		if repo.Archived {
			skippedArchived++
			continue
		}
		if repo.Fork && !c.hasOwnCommits(ctx, repo) {
			skippedForks++
			continue
		}
		kept = append(kept, repo)
	}

	repos, err := c.condense(ctx, kept)
	if err != nil {
		return nil, err
	}

	sort.Slice(repos, func(i, j int) bool {
		return repos[i].LastActivity.After(repos[j].LastActivity)
	})

	c.logger.Info("GitHub repositories fetched",
		"username", c.username,
		"count", len(repos),
		"skipped_forks", skippedForks,
		"skipped_archived", skippedArchived)

	return repos, nil
}

// hasOwnCommits reports whether the user contributed at least minForkCommits
// commits to a fork. Lookup failures keep the fork out.
func (c *Client) hasOwnCommits(ctx context.Context, repo apiRepo) bool {
	var contributors []apiContributor
	url := fmt.Sprintf("%s/repos/%s/%s/contributors", c.baseURL, repo.Owner.Login, repo.Name)
	if _, err := c.get(ctx, url, "application/vnd.github+json", &contributors); err != nil {
		return false
	}
	for _, contributor := range contributors {
		if strings.EqualFold(contributor.Login, c.username) {
			return contributor.Contributions >= minForkCommits
		}
	}
	return false
}

// condense fetches the language breakdown for each repository in parallel
// and builds the summaries
func (c *Client) condense(ctx context.Context, raw []apiRepo) ([]Repo, error) {
	repos := make([]Repo, len(raw))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(languageWorkers)

	for i, repo := range raw {
		g.Go(func() error {
			languages := map[string]int64{}
			url := fmt.Sprintf("%s/repos/%s/%s/languages", c.baseURL, repo.Owner.Login, repo.Name)
			if _, err := c.get(gctx, url, "application/vnd.github+json", &languages); err != nil {
				// Language breakdown is best effort
				c.logger.Debug("Failed to fetch repo languages",
					"repo", repo.Name,
					"error", err.Error())
			}

			pushed, _ := time.Parse(time.RFC3339, repo.PushedAt)

			summary := Repo{
				Name:         repo.Name,
				Description:  repo.Description,
				Technologies: mergeTechnologies(repo.Language, languages, repo.Topics),
				HTMLURL:      repo.HTMLURL,
				Private:      repo.Private,
				LastActivity: pushed,
				Recent:       isRecent(pushed, time.Now()),
			}

			mu.Lock()
			repos[i] = summary
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return repos, nil
}

// FetchReadmes enriches a short list of repositories with the first part of
// their README. Missing READMEs are left empty.
func (c *Client) FetchReadmes(ctx context.Context, repos []Repo) []Repo {
	for i, repo := range repos {
		// html_url is https://github.com/owner/name
		parts := strings.Split(strings.TrimRight(repo.HTMLURL, "/"), "/")
		if len(parts) < 2 {
			continue
		}
		owner, name := parts[len(parts)-2], parts[len(parts)-1]

		url := fmt.Sprintf("%s/repos/%s/%s/readme", c.baseURL, owner, name)
		readme, err := c.getRaw(ctx, url, readmeMaxBytes)
		if err != nil {
			c.logger.Debug("No README fetched", "repo", repo.Name, "error", err.Error())
			continue
		}
		repos[i].Readme = readme
	}
	return repos
}

// mergeTechnologies merges the primary language, the language breakdown, and
// the topics into one deduplicated list, preserving first-seen casing
func mergeTechnologies(primary string, languages map[string]int64, topics []string) []string {
	sources := make([]string, 0, 1+len(languages)+len(topics))
	if primary != "" {
		sources = append(sources, primary)
	}

	// Language breakdown ordered by byte count so dominant languages lead
	type langBytes struct {
		name  string
		bytes int64
	}
	ordered := make([]langBytes, 0, len(languages))
	for name, n := range languages {
		ordered = append(ordered, langBytes{name, n})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].bytes != ordered[j].bytes {
			return ordered[i].bytes > ordered[j].bytes
		}
		return ordered[i].name < ordered[j].name
	})
	for _, l := range ordered {
		sources = append(sources, l.name)
	}
	sources = append(sources, topics...)

	seen := make(map[string]bool, len(sources))
	result := make([]string, 0, len(sources))
	for _, tech := range sources {
		key := strings.ToLower(tech)
		if !seen[key] {
			seen[key] = true
			result = append(result, tech)
		}
	}
	return result
}

func isRecent(pushed, now time.Time) bool {
	if pushed.IsZero() {
		return false
	}
	return now.Sub(pushed) <= recentMonths*30*24*time.Hour
}
