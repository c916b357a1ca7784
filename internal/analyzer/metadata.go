package analyzer

import (
	"strings"
)

// toneMarkers maps each tone classification to vocabulary that signals it.
// Classification counts marker hits per tone; the highest total wins, ties
// resolving in toneOrder so the most conservative reading prevails.
var toneMarkers = map[string][]string{
	"formal": {
		"responsibilities", "qualifications", "candidate", "professional",
		"duties", "competencies", "successful candidate", "the company",
		"responsabilidades", "candidato", "profesional",
		"responsabilités", "aufgabenbereich", "responsabilità",
	},
	"technical": {
		"api", "architecture", "infrastructure", "distributed",
		"microservices", "kubernetes", "pipeline", "algorithms",
		"backend", "frontend", "stack", "ci/cd", "sdk", "framework",
	},
	"casual": {
		"awesome", "cool", "fun", "perks", "flexible hours",
		"work hard play hard", "ping pong", "snacks", "chill",
		"buen rollo", "ambiente informal",
	},
	"enthusiastic": {
		"passionate", "exciting", "thrive", "love what you do",
		"rockstar", "ninja", "superstar", "amazing", "incredible",
		"apasionado", "emocionante",
	},
}

// toneOrder fixes tie-breaking for tone classification
var toneOrder = []string{"formal", "technical", "casual", "enthusiastic"}

// levelMarkers maps seniority levels to title and body vocabulary. Senior
// markers are checked first so "senior" beats an incidental "junior" mention
// only through its higher count, not through ordering.
var levelMarkers = map[string][]string{
	"senior": {
		"senior", "sr.", "lead", "principal", "staff engineer",
		"architect", "head of", "expert", "10+ years", "8+ years",
		"7+ years", "sénior",
	},
	"mid": {
		"mid-level", "mid level", "intermediate", "semi senior",
		"semi-senior", "3+ years", "4+ years", "5+ years",
	},
	"junior": {
		"junior", "jr.", "entry level", "entry-level", "graduate",
		"intern", "trainee", "no experience required", "recién titulado",
	},
}

var levelOrder = []string{"senior", "mid", "junior"}

// applyCues are phrases that open application instructions in a posting
var applyCues = []string{
	"how to apply", "to apply", "apply by", "apply via", "apply at",
	"send your cv", "send your resume", "submit your application",
	"cómo aplicar", "para postular", "envía tu cv",
	"pour postuler", "bewerbung an", "come candidarsi", "como se candidatar",
}

const maxInstructionLines = 4

// DetectTone classifies the posting's tone from marker vocabulary. A posting
// with no marker hits yields an empty tone so generation prompts omit it.
func DetectTone(text string) string {
	return classify(text, toneMarkers, toneOrder)
}

// DetectLevel classifies the posting's seniority level. Empty when no level
// vocabulary appears.
func DetectLevel(text string) string {
	return classify(text, levelMarkers, levelOrder)
}

func classify(text string, markers map[string][]string, order []string) string {
	lower := strings.ToLower(text)

	best := ""
	bestScore := 0
	for _, candidate := range order {
		score := 0
		for _, marker := range markers[candidate] {
			score += strings.Count(lower, marker)
		}
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best
}

const maxKeywords = 20

// Keywords derives the keyword list from the classified skills. Required
// skills come first, preferred ones fill the remainder, deduplicated
// case-insensitively and capped.
func Keywords(mustHave, niceToHave []string) []string {
	var out []string
	for _, skill := range mustHave {
		out = appendSkill(out, skill)
	}
	for _, skill := range niceToHave {
		out = appendSkill(out, skill)
	}
	if len(out) > maxKeywords {
		out = out[:maxKeywords]
	}
	return out
}

// ExtractInstructions returns the application instructions block: the first
// line containing an apply cue plus the lines that follow it, up to a blank
// line, a heading, or the line cap.
func ExtractInstructions(text string) string {
	lines := strings.Split(text, "\n")

	for i, rawLine := range lines {
		line := strings.TrimSpace(rawLine)
		if !containsCue(line) {
			continue
		}

		block := []string{line}
		for _, rawNext := range lines[i+1:] {
			next := strings.TrimSpace(rawNext)
			if next == "" || isHeading(next) || len(block) >= maxInstructionLines {
				break
			}
			block = append(block, next)
		}
		return strings.Join(block, "\n")
	}
	return ""
}

func containsCue(line string) bool {
	lower := strings.ToLower(line)
	for _, cue := range applyCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}
