package ai

import (
	"strings"
	"testing"

	"applykit/internal/boundary"
	"applykit/internal/config"
	"applykit/internal/types"
)

func newTestOperationConfig() *config.OperationAIConfig {
	return &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "test-model",
	}
}

func testJob() *types.JobRequirements {
	return &types.JobRequirements{
		Language:   "es",
		JobTitle:   "Backend Engineer",
		Company:    "Acme",
		MustHave:   []string{"Go", "PostgreSQL"},
		NiceToHave: []string{"Kubernetes"},
		Keywords:   []string{"microservices"},
	}
}

func TestBuildDocumentPromptCV(t *testing.T) {
	req := &types.GenerationRequest{
		Kind:        types.KindCV,
		Job:         testJob(),
		ProfileJSON: `{"skills":["Go"]}`,
		Constraint:  types.LengthConstraint{MaxPages: 2},
		Iteration:   1,
	}

	prompt := BuildDocumentPrompt(req)

	for _, want := range []string{
		"SPANISH",
		boundary.Sentinel,
		"Backend Engineer",
		"Go; PostgreSQL",
		"Kubernetes",
		`{"skills":["Go"]}`,
		"Maximum length: 2 pages.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("CV prompt missing %q", want)
		}
	}

	if strings.Contains(prompt, "REFINEMENT ITERATION") {
		t.Error("first iteration must not carry a refinement block")
	}
	if strings.Contains(prompt, "PRIMARY DIRECTIVES") {
		t.Error("prompt without directives must not carry a directives block")
	}
}

func TestBuildDocumentPromptUnsupportedLanguageUsesEnglish(t *testing.T) {
	job := testJob()
	job.Language = "nl"
	req := &types.GenerationRequest{
		Kind:      types.KindCV,
		Job:       job,
		Iteration: 1,
	}

	prompt := BuildDocumentPrompt(req)
	if !strings.Contains(prompt, "ENGLISH") {
		t.Error("unsupported language should fall back to ENGLISH in the prompt")
	}
}

func TestBuildDocumentPromptRefinement(t *testing.T) {
	req := &types.GenerationRequest{
		Kind:      types.KindCV,
		Job:       testJob(),
		Iteration: 3,
		Feedback:  "Shorten the summary",
	}

	prompt := BuildDocumentPrompt(req)
	if !strings.Contains(prompt, "REFINEMENT ITERATION 3") {
		t.Error("refinement block missing")
	}
	if !strings.Contains(prompt, "Shorten the summary") {
		t.Error("feedback text missing from prompt")
	}
}

func TestBuildDocumentPromptDirectives(t *testing.T) {
	req := &types.GenerationRequest{
		Kind:       types.KindCV,
		Job:        testJob(),
		Directives: "Emphasize open source work",
		Iteration:  1,
	}

	prompt := BuildDocumentPrompt(req)
	if !strings.Contains(prompt, "PRIMARY DIRECTIVES") {
		t.Error("directives block missing")
	}
	if !strings.Contains(prompt, "Emphasize open source work") {
		t.Error("directive text missing from prompt")
	}
}

func TestBuildDocumentPromptCoverLetter(t *testing.T) {
	req := &types.GenerationRequest{
		Kind:       types.KindCoverLetter,
		Job:        testJob(),
		ApprovedCV: "# Jane Doe",
		Constraint: types.LengthConstraint{},
		Iteration:  1,
	}

	prompt := BuildDocumentPrompt(req)

	if !strings.Contains(prompt, "## [Job Title] at [Company Name]") {
		t.Error("cover letter heading instruction missing")
	}
	if !strings.Contains(prompt, "approximately 300-400 words") {
		t.Error("default letter length constraint missing")
	}
	if strings.Contains(prompt, boundary.Sentinel) {
		t.Error("cover letter prompt must not mandate the separator")
	}
}

func TestLengthPhrase(t *testing.T) {
	tests := []struct {
		name       string
		constraint types.LengthConstraint
		kind       types.DocumentKind
		want       string
	}{
		{"words", types.LengthConstraint{MaxWords: 350}, types.KindCoverLetter, "approximately 350 words"},
		{"chars", types.LengthConstraint{MaxChars: 1800}, types.KindCoverLetter, "approximately 1800 characters"},
		{"cv pages", types.LengthConstraint{MaxPages: 3}, types.KindCV, "3 pages"},
		{"cv default", types.LengthConstraint{}, types.KindCV, "2 pages"},
		{"letter default", types.LengthConstraint{}, types.KindCoverLetter, "300-400 words"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lengthPhrase(tt.constraint, tt.kind)
			if !strings.Contains(got, tt.want) {
				t.Errorf("lengthPhrase() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestDocumentSystemPromptCarriesApprovedCV(t *testing.T) {
	g := &GeminiProvider{config: newTestOperationConfig()}

	req := &types.GenerationRequest{
		Kind:       types.KindCoverLetter,
		Job:        testJob(),
		ApprovedCV: "# Jane Doe\nSenior Gopher",
	}

	got := g.documentSystemPrompt(req)
	if !strings.Contains(got, "# Jane Doe") {
		t.Error("cover letter system prompt must embed the approved CV")
	}

	req.Kind = types.KindCV
	if got := g.documentSystemPrompt(req); strings.Contains(got, "# Jane Doe") {
		t.Error("CV system prompt must not embed a CV")
	}
}
