// Package boundary enforces the content boundary between externally-facing
// document text and internal analysis in generated output. Public content
// returned by Split never contains a forbidden-pattern match; this is the
// governing correctness property of the tailoring pipeline.
package boundary

import (
	"strings"

	"applykit/internal/types"
)

// Method names for how the public/internal split point was found
const (
	MethodSeparator = "separator"
	MethodHeading   = "heading"
	MethodNone      = "none"
)

// Report describes how the split was performed and what had to be stripped
type Report struct {
	Method  string `json:"method"`
	Heading string `json:"heading,omitempty"`
	// MissingBoundary is set when neither the sentinel nor a known heading
	// was found for a document kind that is expected to carry an internal
	// analysis section. It is a low-confidence quality signal, not an error.
	MissingBoundary bool     `json:"missingBoundary,omitempty"`
	Stripped        []string `json:"stripped,omitempty"`
}

// Result is the outcome of splitting raw generated text
type Result struct {
	Public   string `json:"public"`
	Internal string `json:"internal"`
	Report   Report `json:"report"`
}

// defaultInternal is used when generation produced no internal section at all
const defaultInternal = "## Gap Analysis\nNo significant gaps identified."

// Split separates raw generated text into public content and internal
// analysis using three independent passes: the deterministic sentinel, the
// known-heading fallback, and forbidden-pattern stripping. Each later pass
// catches what an earlier one missed; boundary problems degrade the report,
// never the call.
func Split(raw string, kind types.DocumentKind) Result {
	public, internal, report := splitPoint(raw)

	if internal == "" {
		internal = defaultInternal
	}

	if report.Method == MethodNone && kind == types.KindCV {
		// A CV generation is always asked for a gap analysis section.
		// Its silent absence is itself suspicious.
		report.MissingBoundary = true
	}

	public, internal = stripForbidden(public, internal, &report)

	return Result{
		Public:   strings.TrimSpace(public),
		Internal: strings.TrimSpace(internal),
		Report:   report,
	}
}

// splitPoint applies passes 1 and 2: sentinel first, headings second
func splitPoint(raw string) (public, internal string, report Report) {
	if idx := strings.Index(raw, Sentinel); idx >= 0 {
		public = raw[:idx]
		internal = "## Gap Analysis\n" + strings.TrimSpace(raw[idx+len(Sentinel):])
		report.Method = MethodSeparator
		return public, internal, report
	}

	if pos, heading := findHeading(raw); pos >= 0 {
		public = raw[:pos]
		internal = raw[pos:]
		report.Method = MethodHeading
		report.Heading = heading
		return public, internal, report
	}

	report.Method = MethodNone
	return raw, "", report
}

// findHeading locates the earliest known internal-analysis heading at a line
// start, case-insensitively. Returns -1 if none is present.
func findHeading(raw string) (int, string) {
	lower := strings.ToLower(raw)
	best := -1
	bestHeading := ""

	for _, heading := range internalHeadings {
		needle := strings.ToLower(heading)
		offset := 0
		for {
			idx := strings.Index(lower[offset:], needle)
			if idx < 0 {
				break
			}
			pos := offset + idx
			if pos == 0 || lower[pos-1] == '\n' {
				if best < 0 || pos < best {
					best = pos
					bestHeading = heading
				}
				break
			}
			offset = pos + 1
		}
	}

	return best, bestHeading
}

// stripForbidden is pass 3: every line of public content containing a
// forbidden pattern is moved, from that line to the end of the text, into
// the internal analysis. Repeats until no match remains so the guarantee
// holds regardless of how many separate leaks the text contains.
func stripForbidden(public, internal string, report *Report) (string, string) {
	for {
		pos, pattern := firstForbidden(public)
		if pos < 0 {
			return public, internal
		}

		lineStart := strings.LastIndexByte(public[:pos], '\n') + 1
		leaked := strings.TrimSpace(public[lineStart:])
		public = strings.TrimRight(public[:lineStart], " \t\n")
		if leaked != "" {
			internal = leaked + "\n\n" + internal
		}
		report.Stripped = append(report.Stripped, pattern)
	}
}

// firstForbidden returns the earliest forbidden-pattern match position in
// text, or -1. Phrase matches are case-insensitive.
func firstForbidden(text string) (int, string) {
	lower := strings.ToLower(text)
	best := -1
	bestPattern := ""

	for _, phrase := range forbiddenPhrases {
		if idx := strings.Index(lower, phrase); idx >= 0 && (best < 0 || idx < best) {
			best = idx
			bestPattern = phrase
		}
	}
	for _, re := range forbiddenRegexps {
		if loc := re.FindStringIndex(text); loc != nil && (best < 0 || loc[0] < best) {
			best = loc[0]
			bestPattern = re.String()
		}
	}

	return best, bestPattern
}

// ContainsForbidden reports whether text still carries a forbidden pattern.
// Exposed for validation and tests.
func ContainsForbidden(text string) bool {
	pos, _ := firstForbidden(text)
	return pos >= 0
}
