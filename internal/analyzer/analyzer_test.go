package analyzer

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	apperrors "applykit/internal/errors"
	"applykit/internal/types"
)

func testLogger() *apperrors.Logger {
	return apperrors.NewLogger(slog.LevelError)
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantLang    string
		wantWarning bool
	}{
		{
			name:     "english posting",
			text:     "We are looking for a software engineer to join our team. You will work with Go and Kubernetes. Experience with cloud platforms required.",
			wantLang: "en",
		},
		{
			name:     "spanish posting",
			text:     "Buscamos un Ingeniero de Software con experiencia en la nube. Requisitos: Python, AWS.",
			wantLang: "es",
		},
		{
			name:     "french posting",
			text:     "Nous recherchons un ingénieur logiciel pour rejoindre une équipe dans le domaine du cloud avec des compétences solides.",
			wantLang: "fr",
		},
		{
			name:     "german posting",
			text:     "Wir suchen einen Softwareentwickler mit Erfahrung und guten Kenntnissen. Die Aufgaben sind vielfältig und das Unternehmen wächst.",
			wantLang: "de",
		},
		{
			name:        "no markers falls back to english",
			text:        "xylophone zugzwang 12345 qwerty",
			wantLang:    "en",
			wantWarning: true,
		},
		{
			name:        "empty text falls back to english",
			text:        "",
			wantLang:    "en",
			wantWarning: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, warning := DetectLanguage(tt.text)
			if lang != tt.wantLang {
				t.Errorf("DetectLanguage() = %q, want %q", lang, tt.wantLang)
			}
			if warning != tt.wantWarning {
				t.Errorf("warning = %v, want %v", warning, tt.wantWarning)
			}
		})
	}
}

func TestExtractSkills(t *testing.T) {
	text := `About the role

Requirements:
- Python
- AWS
- 5 years of backend experience

Nice to have:
- Terraform
- Python

Benefits:
- Remote work
`
	mustHave, niceToHave := ExtractSkills(text)

	for _, want := range []string{"Python", "AWS"} {
		if !slices.Contains(mustHave, want) {
			t.Errorf("mustHave missing %q: %v", want, mustHave)
		}
	}
	if !slices.Contains(niceToHave, "Terraform") {
		t.Errorf("niceToHave missing Terraform: %v", niceToHave)
	}
	// A skill listed in both sections is a requirement
	if slices.Contains(niceToHave, "Python") {
		t.Errorf("Python must not remain in niceToHave: %v", niceToHave)
	}
	// The benefits section must not leak into skills
	for _, list := range [][]string{mustHave, niceToHave} {
		if slices.Contains(list, "Remote work") {
			t.Errorf("benefits leaked into skills: %v", list)
		}
	}
}

func TestExtractSkillsInlineCue(t *testing.T) {
	mustHave, _ := ExtractSkills("Buscamos un Ingeniero de Software.\nRequisitos: Python, AWS")

	for _, want := range []string{"Python", "AWS"} {
		if !slices.Contains(mustHave, want) {
			t.Errorf("mustHave missing %q: %v", want, mustHave)
		}
	}
}

func TestExtractSkillsNoCuesFallsBackToBullets(t *testing.T) {
	mustHave, _ := ExtractSkills("Great job.\n- Go\n- PostgreSQL\nApply now.")

	if !slices.Contains(mustHave, "Go") || !slices.Contains(mustHave, "PostgreSQL") {
		t.Errorf("bullet fallback failed: %v", mustHave)
	}
}

func TestAnalyzeTextSpanishPosting(t *testing.T) {
	a := New(NewFetcher(0), nil, testLogger())

	job, err := a.AnalyzeText(context.Background(),
		"Buscamos un Ingeniero de Software con experiencia en la nube.\nRequisitos: Python, AWS")
	if err != nil {
		t.Fatalf("AnalyzeText failed: %v", err)
	}

	if job.Language != "es" {
		t.Errorf("language = %q, want es", job.Language)
	}
	if job.LanguageWarning {
		t.Error("unexpected language warning")
	}
	if !slices.Contains(job.MustHave, "Python") || !slices.Contains(job.MustHave, "AWS") {
		t.Errorf("mustHave = %v", job.MustHave)
	}
	if job.Source.Excerpt == "" {
		t.Error("expected source excerpt")
	}
}

func TestAnalyzeTextEmptyInput(t *testing.T) {
	a := New(NewFetcher(0), nil, testLogger())

	if _, err := a.AnalyzeText(context.Background(), "   \n  "); err == nil {
		t.Error("expected error for empty posting text")
	}
}

type fakeEnricher struct {
	enrichment *types.JobEnrichment
	err        error
}

func (f *fakeEnricher) AnalyzeJob(context.Context, string) (*types.JobEnrichment, error) {
	return f.enrichment, f.err
}

func TestEnrichmentFillsMetadata(t *testing.T) {
	enricher := &fakeEnricher{enrichment: &types.JobEnrichment{
		JobTitle: "Software Engineer",
		Company:  "Acme",
		Level:    "senior",
		Tone:     "formal",
		Keywords: []string{"cloud"},
	}}
	a := New(NewFetcher(0), enricher, testLogger())

	job, err := a.AnalyzeText(context.Background(),
		"We are looking for a software engineer with required skills in Go.")
	if err != nil {
		t.Fatal(err)
	}
	if job.JobTitle != "Software Engineer" || job.Company != "Acme" {
		t.Errorf("enrichment not applied: %+v", job)
	}
}

func TestEnrichmentKeepsHeuristicsForEmptyFields(t *testing.T) {
	enricher := &fakeEnricher{enrichment: &types.JobEnrichment{
		JobTitle: "Backend Engineer",
		Tone:     "casual",
	}}
	a := New(NewFetcher(0), enricher, testLogger())

	job, err := a.AnalyzeText(context.Background(),
		"Senior Backend Engineer\n\nWe are looking for a software engineer to build our backend infrastructure with Kubernetes.\nRequirements: Go, Kubernetes")
	if err != nil {
		t.Fatal(err)
	}

	if job.Tone != "casual" {
		t.Errorf("tone = %q, want enrichment to override", job.Tone)
	}
	if job.Level != "senior" {
		t.Errorf("level = %q, want heuristic result to survive", job.Level)
	}
	if len(job.Keywords) == 0 {
		t.Error("expected heuristic keywords to survive empty enrichment")
	}
}

func TestEnrichmentFailureDoesNotBlockAnalysis(t *testing.T) {
	enricher := &fakeEnricher{err: fmt.Errorf("model unavailable")}
	a := New(NewFetcher(0), enricher, testLogger())

	job, err := a.AnalyzeText(context.Background(),
		"We are looking for a software engineer with required experience in Go and the cloud.")
	if err != nil {
		t.Fatalf("enrichment failure must not fail analysis: %v", err)
	}
	if job.Language != "en" {
		t.Errorf("language = %q, want en", job.Language)
	}
}

func TestFetchSingleAttempt(t *testing.T) {
	var requests int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := NewFetcher(0)
	_, err := f.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected fetch error")
	}

	var appErr *apperrors.AppError
	if !stderrors.As(err, &appErr) || appErr.Code != apperrors.ErrCodeUnreadableSource {
		t.Errorf("expected %s error, got %v", apperrors.ErrCodeUnreadableSource, err)
	}
	if got := atomic.LoadInt64(&requests); got != 1 {
		t.Errorf("expected exactly 1 request, got %d", got)
	}
}

func TestFetchStripsMarkup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><script>tracking()</script><style>.x{}</style></head>
<body><h1>Software Engineer</h1><p>We are hiring.</p><ul><li>Go</li></ul></body></html>`)
	}))
	defer server.Close()

	f := NewFetcher(0)
	text, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if strings.Contains(text, "tracking()") || strings.Contains(text, ".x{}") {
		t.Errorf("markup leaked into text: %q", text)
	}
	for _, want := range []string{"Software Engineer", "We are hiring.", "Go"} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q: %q", want, text)
		}
	}
}
