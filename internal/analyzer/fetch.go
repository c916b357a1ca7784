package analyzer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"applykit/internal/errors"
)

const (
	defaultFetchTimeout = 30 * time.Second
	maxFetchBytes       = 4 << 20
	fetchUserAgent      = "applykit/1.0 (+job posting analyzer)"
)

// Fetcher retrieves a job posting from a URL and reduces it to plain text.
// Every URL gets exactly one attempt: job boards rate-limit aggressively and
// a failing posting should surface to the caller, not spin in retries.
type Fetcher struct {
	client *http.Client
}

// NewFetcher builds a fetcher with an instrumented HTTP transport
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Fetch downloads the posting at url and returns its visible text content
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid job posting URL: %s", url), err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.NewNetworkError(errors.ErrCodeUnreadableSource,
			fmt.Sprintf("failed to fetch job posting from %s", url), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.NewNetworkError(errors.ErrCodeUnreadableSource,
			fmt.Sprintf("job posting fetch returned status %d for %s", resp.StatusCode, url), nil)
	}

	body := io.LimitReader(resp.Body, maxFetchBytes)
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/plain") {
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", errors.NewNetworkError(errors.ErrCodeUnreadableSource,
				"failed to read job posting body", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	text, err := HTMLToText(body)
	if err != nil {
		return "", errors.NewPipelineError(errors.ErrCodeUnreadableSource,
			"failed to parse job posting HTML", err)
	}
	if text == "" {
		return "", errors.NewPipelineError(errors.ErrCodeUnreadableSource,
			fmt.Sprintf("job posting at %s has no readable text", url), nil)
	}
	return text, nil
}

// HTMLToText strips markup and non-content elements, returning visible text
// with normalized line breaks.
func HTMLToText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, nav, header, footer, iframe").Remove()

	var builder strings.Builder
	doc.Find("body").Find("h1, h2, h3, h4, h5, h6, p, li, td, div, span, pre").Each(func(_ int, sel *goquery.Selection) {
		// Only take leaf-level text to avoid duplicating nested containers
		if sel.Children().Length() > 0 {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			builder.WriteString(text)
			builder.WriteByte('\n')
		}
	})

	text := builder.String()
	if strings.TrimSpace(text) == "" {
		// Fallback for pages with unusual structure
		text = doc.Find("body").Text()
	}
	return normalizeWhitespace(text), nil
}

func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, trimmed)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
