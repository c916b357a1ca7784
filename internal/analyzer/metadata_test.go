package analyzer

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"
)

func TestDetectTone(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "formal posting",
			text: "The successful candidate will take on the responsibilities and duties expected of a professional.",
			want: "formal",
		},
		{
			name: "technical posting",
			text: "You will design the architecture of our distributed backend, build the api, and run kubernetes infrastructure.",
			want: "technical",
		},
		{
			name: "casual posting",
			text: "Join our fun team! Awesome perks, snacks, ping pong and flexible hours.",
			want: "casual",
		},
		{
			name: "enthusiastic posting",
			text: "We are passionate about building amazing, exciting products. Rockstar attitude welcome.",
			want: "enthusiastic",
		},
		{
			name: "no markers yields empty tone",
			text: "Se busca persona.",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectTone(tt.text); got != tt.want {
				t.Errorf("DetectTone() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectLevel(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "senior posting",
			text: "Senior Backend Engineer, 7+ years of experience required.",
			want: "senior",
		},
		{
			name: "mid posting",
			text: "Mid-level engineer with 3+ years of experience.",
			want: "mid",
		},
		{
			name: "junior posting",
			text: "Junior developer, entry level, graduates welcome.",
			want: "junior",
		},
		{
			name: "higher count wins over incidental mention",
			text: "Senior role on a senior team. You will mentor one junior engineer.",
			want: "senior",
		},
		{
			name: "no markers yields empty level",
			text: "Engineer wanted.",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLevel(tt.text); got != tt.want {
				t.Errorf("DetectLevel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords([]string{"Go", "AWS"}, []string{"go", "Terraform"})

	want := []string{"Go", "AWS", "Terraform"}
	if !slices.Equal(got, want) {
		t.Errorf("Keywords() = %v, want %v", got, want)
	}
}

func TestKeywordsCapped(t *testing.T) {
	var mustHave []string
	for i := 0; i < maxKeywords+5; i++ {
		mustHave = append(mustHave, fmt.Sprintf("Skill%d", i))
	}

	got := Keywords(mustHave, nil)
	if len(got) != maxKeywords {
		t.Errorf("len(Keywords()) = %d, want %d", len(got), maxKeywords)
	}
}

func TestExtractInstructions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "cue line plus following block",
			text: "Great role.\n\nHow to apply:\nSend an email to jobs@example.com\nInclude portfolio links.\n\nBenefits:\n- Remote",
			want: "How to apply:\nSend an email to jobs@example.com\nInclude portfolio links.",
		},
		{
			name: "block stops at heading",
			text: "To apply, use our careers portal.\nBenefits:\n- Remote",
			want: "To apply, use our careers portal.",
		},
		{
			name: "spanish cue",
			text: "Cómo aplicar: envía tu cv a rrhh@example.com",
			want: "Cómo aplicar: envía tu cv a rrhh@example.com",
		},
		{
			name: "no cue yields empty instructions",
			text: "Great role.\n\nBenefits:\n- Remote",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractInstructions(tt.text); got != tt.want {
				t.Errorf("ExtractInstructions() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnalyzeTextHeuristicMetadata(t *testing.T) {
	a := New(NewFetcher(0), nil, testLogger())

	job, err := a.AnalyzeText(context.Background(), `Senior Backend Engineer

We are looking for a software engineer to join our team and build our backend infrastructure.

Requirements:
- Go
- Kubernetes

How to apply:
Send your CV to jobs@example.com`)
	if err != nil {
		t.Fatalf("AnalyzeText failed: %v", err)
	}

	if job.Level != "senior" {
		t.Errorf("level = %q, want senior", job.Level)
	}
	if job.Tone != "technical" {
		t.Errorf("tone = %q, want technical", job.Tone)
	}
	if !slices.Contains(job.Keywords, "Go") || !slices.Contains(job.Keywords, "Kubernetes") {
		t.Errorf("keywords = %v", job.Keywords)
	}
	if !strings.Contains(job.Instructions, "jobs@example.com") {
		t.Errorf("instructions = %q", job.Instructions)
	}
}
