// Package analyzer turns a job posting, given as raw text or a URL, into
// structured requirements. Language detection, skill classification, and the
// tone, level, keyword, and instruction metadata are deterministic
// heuristics; an optional AI enricher refines title, company, and the
// metadata fields, but its failure never blocks analysis and it never
// overrides language or skill classification.
package analyzer

import (
	"context"
	"strings"

	"applykit/internal/errors"
	"applykit/internal/types"
)

// Enricher augments a heuristic analysis with AI-derived metadata
type Enricher interface {
	AnalyzeJob(ctx context.Context, postingText string) (*types.JobEnrichment, error)
}

const excerptLength = 200

// Analyzer analyzes job postings
type Analyzer struct {
	fetcher  *Fetcher
	enricher Enricher
	logger   *errors.Logger
}

// New builds an analyzer. enricher may be nil to run purely heuristic.
func New(fetcher *Fetcher, enricher Enricher, logger *errors.Logger) *Analyzer {
	return &Analyzer{
		fetcher:  fetcher,
		enricher: enricher,
		logger:   logger,
	}
}

// AnalyzeURL fetches the posting at url and analyzes it
func (a *Analyzer) AnalyzeURL(ctx context.Context, url string) (*types.JobRequirements, error) {
	text, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	job, err := a.AnalyzeText(ctx, text)
	if err != nil {
		return nil, err
	}
	job.Source.URL = url
	return job, nil
}

// AnalyzeText analyzes posting text directly
func (a *Analyzer) AnalyzeText(ctx context.Context, text string) (*types.JobRequirements, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"job posting text is empty", nil)
	}

	lang, warning := DetectLanguage(text)
	if warning {
		a.logger.Warn("Could not detect posting language, falling back to English")
	}

	mustHave, niceToHave := ExtractSkills(text)

	job := &types.JobRequirements{
		Language:        lang,
		LanguageWarning: warning,
		MustHave:        mustHave,
		NiceToHave:      niceToHave,
		Level:           DetectLevel(text),
		Tone:            DetectTone(text),
		Keywords:        Keywords(mustHave, niceToHave),
		Instructions:    ExtractInstructions(text),
		Source: types.SourceInfo{
			Excerpt: excerpt(text),
		},
	}

	a.enrich(ctx, job, text)
	return job, nil
}

// enrich refines the heuristic analysis with AI-derived metadata. Non-empty
// enrichment fields replace their heuristic counterparts; language and skill
// classification stay heuristic regardless of what the enricher returns.
func (a *Analyzer) enrich(ctx context.Context, job *types.JobRequirements, text string) {
	if a.enricher == nil {
		return
	}

	enrichment, err := a.enricher.AnalyzeJob(ctx, text)
	if err != nil {
		a.logger.Warn("Job analysis enrichment failed, continuing with heuristic results", "error", err)
		return
	}

	job.JobTitle = enrichment.JobTitle
	job.Company = enrichment.Company
	if enrichment.Level != "" {
		job.Level = enrichment.Level
	}
	if enrichment.Tone != "" {
		job.Tone = enrichment.Tone
	}
	if len(enrichment.Keywords) > 0 {
		job.Keywords = enrichment.Keywords
	}
	if enrichment.Instructions != "" {
		job.Instructions = enrichment.Instructions
	}
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLength {
		return text
	}
	return string(runes[:excerptLength]) + "…"
}
