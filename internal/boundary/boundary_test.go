package boundary

import (
	"strings"
	"testing"

	"applykit/internal/types"
)

func TestSplitSentinel(t *testing.T) {
	raw := "# Jane Doe\n\nSenior engineer with Go experience.\n\n" +
		Sentinel +
		"\n## Gap Analysis\n85% match. Candidate lacks Kubernetes.\n"

	result := Split(raw, types.KindCV)

	if result.Report.Method != MethodSeparator {
		t.Errorf("expected method %q, got %q", MethodSeparator, result.Report.Method)
	}
	if result.Report.MissingBoundary {
		t.Error("expected no missing-boundary signal when sentinel present")
	}
	if strings.Contains(result.Public, "85% match") {
		t.Error("match rating leaked into public content")
	}
	if !strings.Contains(result.Internal, "Kubernetes") {
		t.Error("analysis content missing from internal section")
	}
	if !strings.Contains(result.Public, "Jane Doe") {
		t.Error("document content missing from public section")
	}
}

func TestSplitHeadingFallback(t *testing.T) {
	tests := []struct {
		name    string
		heading string
	}{
		{"english", "## Gap Analysis"},
		{"spanish", "## Análisis de Brechas"},
		{"combined", "## Gap Analysis and Recommendations"},
		{"lowercase", "## gap analysis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := "# CV content\n\nExperience section.\n\n" + tt.heading + "\nSome internal notes.\n"

			result := Split(raw, types.KindCV)

			if result.Report.Method != MethodHeading {
				t.Fatalf("expected method %q, got %q", MethodHeading, result.Report.Method)
			}
			if result.Report.MissingBoundary {
				t.Error("expected no missing-boundary signal when heading found")
			}
			if strings.Contains(result.Public, "internal notes") {
				t.Error("analysis leaked into public content")
			}
			if !strings.Contains(result.Internal, "internal notes") {
				t.Error("analysis missing from internal section")
			}
		})
	}
}

func TestSplitCombinedHeadingWinsOverPrefix(t *testing.T) {
	raw := "# CV\n\nContent.\n\n## Gap Analysis and Recommendations\nNotes.\n"

	result := Split(raw, types.KindCV)

	if result.Report.Heading != "## Gap Analysis and Recommendations" {
		t.Errorf("expected combined heading, got %q", result.Report.Heading)
	}
}

func TestSplitForbiddenStripping(t *testing.T) {
	raw := "# John Smith\n\nExperienced developer.\n\n" +
		"Nivel de Adecuación: 90%\n\nMore trailing analysis text.\n"

	result := Split(raw, types.KindCV)

	if result.Report.Method != MethodNone {
		t.Fatalf("expected method %q, got %q", MethodNone, result.Report.Method)
	}
	if !result.Report.MissingBoundary {
		t.Error("expected missing-boundary signal for CV without any separator")
	}
	if len(result.Report.Stripped) == 0 {
		t.Fatal("expected stripped patterns to be reported")
	}
	if strings.Contains(result.Public, "90%") {
		t.Error("match rating leaked into public content")
	}
	if strings.Contains(result.Public, "trailing analysis") {
		t.Error("text after a forbidden match must be stripped too")
	}
	if !strings.Contains(result.Public, "John Smith") {
		t.Error("content before the leak must survive")
	}
	if !strings.Contains(result.Internal, "Adecuación") {
		t.Error("stripped content must move to internal section")
	}
}

func TestSplitCoverLetterNoMissingBoundarySignal(t *testing.T) {
	raw := "Dear Hiring Manager,\n\nI am writing to apply.\n\nSincerely,\nJane\n"

	result := Split(raw, types.KindCoverLetter)

	if result.Report.MissingBoundary {
		t.Error("cover letters without analysis should not flag missing boundary")
	}
	if result.Public == "" {
		t.Error("public content should survive unchanged")
	}
}

func TestSplitPublicNeverContainsForbidden(t *testing.T) {
	inputs := []string{
		"CV text\n85% match with the role.\nMore.",
		"CV text\nMatch rating: 70%\n",
		"Texto\nAnálisis de Gaps\ndetalles\n",
		"Fine text\n" + Sentinel + "\ngap analysis here",
		"Plain text with nothing suspicious at all.",
		"Recomendaciones finales\ntodo el texto",
	}

	for _, raw := range inputs {
		for _, kind := range []types.DocumentKind{types.KindCV, types.KindCoverLetter} {
			result := Split(raw, kind)
			if ContainsForbidden(result.Public) {
				t.Errorf("public content still contains forbidden pattern: %q", result.Public)
			}
		}
	}
}

func TestSplitEmptyInput(t *testing.T) {
	result := Split("", types.KindCV)

	if result.Public != "" {
		t.Errorf("expected empty public content, got %q", result.Public)
	}
	if result.Internal == "" {
		t.Error("expected default internal section")
	}
	if !result.Report.MissingBoundary {
		t.Error("expected missing-boundary signal for empty CV output")
	}
}
