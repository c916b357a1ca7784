package boundary

import "regexp"

// Sentinel is the deterministic separator every generation prompt mandates
// between public document content and internal analysis.
const Sentinel = "---GAP_ANALYSIS_SEPARATOR---"

// internalHeadings are known internal-analysis section headings, matched
// case-insensitively at line starts when the sentinel is absent. Ordered by
// specificity: longer, more specific headings first so a combined heading
// ("Gap Analysis and Recommendations") wins over its prefix.
var internalHeadings = []string{
	"## Gap Analysis and Recommendations",
	"## Análisis de Gaps y Recomendaciones",
	"## Análisis de Ajuste al Puesto",
	"## Análisis de Brechas",
	"## Análisis de Gaps",
	"## Analyse des Écarts",
	"## Lückenanalyse",
	"## Analisi delle Lacune",
	"## Análise de Lacunas",
	"## Gaps y Recomendaciones",
	"## Gap Analysis",
	"## Recommendations",
	"## Recomendaciones",
}

// forbiddenPhrases is internal-analysis vocabulary and meta-commentary that
// must never appear in public content. Matched case-insensitively.
var forbiddenPhrases = []string{
	"gap analysis",
	"análisis de gaps",
	"análisis de brechas",
	"análisis de ajuste",
	"nivel de adecuación",
	"recomendaciones finales",
	"recommendations",
	"mitigación",
	"fortalezas compensatorias",
	"fortalezas excepcionales",
	"gaps identificados",
	"gaps y recomendaciones",
	"sugerencia cv",
	"sugerencia:",
	"durante la entrevista",
	"fit prácticamente perfecto",
	"match rating",
	"% match",
}

// forbiddenRegexps catch match-percentage ratings in either direction:
// a number followed by a match word, or a match word followed by a number.
var forbiddenRegexps = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\d{1,3}\s*%\s*(?:de\s+)?(?:match|adecuación|ajuste|fit)`),
	regexp.MustCompile(`(?i)(?:match|adecuación|ajuste|fit)\s*(?:rating|score|level|nivel)?\s*[:\-]?\s*\d{1,3}\s*%`),
}
