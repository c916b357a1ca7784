package analyzer

import (
	"strings"
	"unicode"

	"applykit/internal/types"
)

// languageMarkers maps each supported language to common function words and
// job-posting vocabulary. Detection counts how many words of the posting
// appear in each language's set; the highest total wins.
var languageMarkers = map[string][]string{
	"en": {
		"the", "and", "with", "for", "you", "will", "our", "are",
		"we", "team", "experience", "skills", "required", "work",
		"looking", "join", "role", "years",
	},
	"es": {
		"el", "la", "los", "las", "de", "en", "con", "para", "que",
		"un", "una", "buscamos", "requisitos", "experiencia",
		"empresa", "equipo", "trabajo", "conocimientos", "puesto",
	},
	"fr": {
		"le", "la", "les", "des", "nous", "vous", "avec", "pour",
		"dans", "une", "est", "et", "recherchons", "expérience",
		"équipe", "poste", "compétences", "entreprise",
	},
	"de": {
		"der", "die", "das", "und", "wir", "sie", "mit", "für",
		"ein", "eine", "bei", "suchen", "erfahrung", "kenntnisse",
		"aufgaben", "unternehmen", "stelle", "team",
	},
	"it": {
		"il", "lo", "gli", "di", "che", "per", "con", "del",
		"siamo", "cerchiamo", "esperienza", "requisiti", "azienda",
		"lavoro", "competenze", "ruolo", "anni",
	},
	"pt": {
		"o", "os", "as", "de", "em", "com", "para", "que", "um",
		"uma", "procuramos", "requisitos", "experiência", "empresa",
		"equipe", "trabalho", "conhecimentos", "vaga",
	},
}

var markerSets = buildMarkerSets()

func buildMarkerSets() map[string]map[string]struct{} {
	sets := make(map[string]map[string]struct{}, len(languageMarkers))
	for lang, words := range languageMarkers {
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[w] = struct{}{}
		}
		sets[lang] = set
	}
	return sets
}

// DetectLanguage classifies the posting text into one of the supported
// languages by marker word counts. Ties resolve in the order of
// types.SupportedLanguages, so English wins an exact tie. A text with no
// marker hits at all falls back to English with the warning flag set.
func DetectLanguage(text string) (lang string, warning bool) {
	scores := make(map[string]int, len(markerSets))
	for _, word := range splitWords(text) {
		for candidate, set := range markerSets {
			if _, ok := set[word]; ok {
				scores[candidate]++
			}
		}
	}

	best := ""
	bestScore := 0
	for _, candidate := range types.SupportedLanguages {
		if score := scores[candidate]; score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	if best == "" {
		return types.FallbackLanguage, true
	}
	return best, false
}

// splitWords lowercases text and splits it on anything that is not a letter
func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}
