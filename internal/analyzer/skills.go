package analyzer

import (
	"strings"
)

// Cue phrases marking the start of required and preferred skill sections.
// Matched case-insensitively against heading-like lines.
var mustCues = []string{
	"requirements", "required", "must have", "must-have",
	"qualifications", "what you'll need", "what you will need",
	"requisitos", "imprescindible", "exigences", "profil recherché",
	"anforderungen", "requisiti", "o que procuramos",
}

var niceCues = []string{
	"nice to have", "nice-to-have", "preferred", "bonus", "a plus",
	"deseable", "valorable", "se valorará", "souhaité", "atout",
	"wünschenswert", "von vorteil", "gradito", "diferencial",
}

var bulletPrefixes = []string{"-", "*", "•", "·", "+"}

const maxSkillLength = 80

// ExtractSkills pulls required and preferred skills out of posting text
// using structural cues: a cue heading opens a section, and bullet or
// comma-separated items that follow belong to it until the next heading or
// blank gap. A posting with no cues at all yields bullet items from the
// whole text as required skills, which keeps short unstructured postings
// usable.
func ExtractSkills(text string) (mustHave, niceToHave []string) {
	lines := strings.Split(text, "\n")

	type section int
	const (
		sectionNone section = iota
		sectionMust
		sectionNice
	)

	current := sectionNone
	sawCue := false

	appendTo := func(target *[]string, items []string) {
		for _, item := range items {
			*target = appendSkill(*target, item)
		}
	}

	for _, rawLine := range lines {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if cue, rest := matchCue(line, niceCues); cue {
			current = sectionNice
			sawCue = true
			appendTo(&niceToHave, splitItems(rest))
			continue
		}
		if cue, rest := matchCue(line, mustCues); cue {
			current = sectionMust
			sawCue = true
			appendTo(&mustHave, splitItems(rest))
			continue
		}
		if isHeading(line) {
			current = sectionNone
			continue
		}

		switch current {
		case sectionMust:
			appendTo(&mustHave, splitItems(line))
		case sectionNice:
			appendTo(&niceToHave, splitItems(line))
		}
	}

	if !sawCue {
		for _, rawLine := range lines {
			line := strings.TrimSpace(rawLine)
			if stripBullet(line) != line {
				mustHave = appendSkill(mustHave, stripBullet(line))
			}
		}
	}

	// A skill in both lists is a requirement
	niceToHave = subtract(niceToHave, mustHave)
	return mustHave, niceToHave
}

// matchCue reports whether the line opens a cue section and returns any
// content after the cue on the same line ("Requisitos: Python, AWS").
func matchCue(line string, cues []string) (bool, string) {
	lower := strings.ToLower(line)
	for _, cue := range cues {
		idx := strings.Index(lower, cue)
		if idx < 0 {
			continue
		}
		// The cue must be the line's subject, not a mention deep in prose
		if idx > 20 {
			continue
		}
		rest := line[idx+len(cue):]
		rest = strings.TrimLeft(rest, " \t:")
		return true, rest
	}
	return false, ""
}

// isHeading detects lines that look like a section heading without being a
// known cue, which closes the current skills section.
func isHeading(line string) bool {
	if strings.HasPrefix(line, "#") {
		return true
	}
	trimmed := strings.TrimRight(line, ":")
	return strings.HasSuffix(line, ":") && len(strings.Fields(trimmed)) <= 5
}

// splitItems breaks a content line into individual skill items
func splitItems(line string) []string {
	line = stripBullet(strings.TrimSpace(line))
	if line == "" {
		return nil
	}
	separators := func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	}
	if strings.ContainsFunc(line, separators) {
		return strings.FieldsFunc(line, separators)
	}
	return []string{line}
}

func stripBullet(line string) string {
	for _, prefix := range bulletPrefixes {
		if strings.HasPrefix(line, prefix+" ") {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix+" "))
		}
	}
	return line
}

// appendSkill adds item to list unless empty, oversized, or already present
// case-insensitively.
func appendSkill(list []string, item string) []string {
	item = strings.TrimSpace(strings.TrimRight(item, "."))
	if item == "" || len(item) > maxSkillLength {
		return list
	}
	for _, existing := range list {
		if strings.EqualFold(existing, item) {
			return list
		}
	}
	return append(list, item)
}

func subtract(list, remove []string) []string {
	var out []string
	for _, item := range list {
		found := false
		for _, r := range remove {
			if strings.EqualFold(item, r) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, item)
		}
	}
	return out
}
