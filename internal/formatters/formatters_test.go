package formatters

import (
	"strings"
	"testing"

	"applykit/internal/pipeline"
	"applykit/internal/types"
)

func sampleJob() *types.JobRequirements {
	return &types.JobRequirements{
		Language:   "es",
		JobTitle:   "Backend Engineer",
		Company:    "Acme",
		MustHave:   []string{"Go", "PostgreSQL"},
		NiceToHave: []string{"Kubernetes"},
		Keywords:   []string{"microservices"},
	}
}

func TestFormatJobText(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleJob(), "text")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	for _, want := range []string{"Backend Engineer", "Acme", "Language: es", "- Go", "- Kubernetes"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q", want)
		}
	}
}

func TestFormatJobMarkdownFlagsLanguageFallback(t *testing.T) {
	job := sampleJob()
	job.Language = "en"
	job.LanguageWarning = true

	out, err := GlobalRegistry.Format(job, "markdown")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(out, "fallback") {
		t.Error("language fallback warning missing from markdown output")
	}
}

func TestFormatDraft(t *testing.T) {
	draft := &pipeline.Draft{
		Kind:      types.KindCV,
		Iteration: 2,
		Public:    "# Jane Doe\n\nExperience.",
		Internal:  "## Gap Analysis\nMissing Kubernetes.",
		Warnings:  []string{"3 forbidden phrases stripped"},
	}

	out, err := GlobalRegistry.Format(draft, "text")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	for _, want := range []string{"iteration 2", "Jane Doe", "WARNINGS", "Gap Analysis"} {
		if !strings.Contains(out, want) {
			t.Errorf("draft output missing %q", want)
		}
	}
}

func TestFormatJSONFallback(t *testing.T) {
	out, err := GlobalRegistry.Format(map[string]int{"count": 3}, "json")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(out, `"count": 3`) {
		t.Errorf("unexpected json output %q", out)
	}
}

func TestFormatUnknownFormat(t *testing.T) {
	if _, err := GlobalRegistry.Format(sampleJob(), "yaml"); err == nil {
		t.Fatal("expected error for unregistered format")
	}
}
