package types

// DocumentKind identifies which application document a draft belongs to
type DocumentKind string

const (
	KindCV          DocumentKind = "cv"
	KindCoverLetter DocumentKind = "cover-letter"
)

// SupportedLanguages is the closed set of language codes the pipeline handles.
// Detection results outside this set fall back to English with a warning.
var SupportedLanguages = []string{"en", "es", "fr", "de", "it", "pt"}

// FallbackLanguage is used when detection yields an unsupported language
const FallbackLanguage = "en"

// LanguageNames maps supported codes to the names used in generation prompts
var LanguageNames = map[string]string{
	"en": "ENGLISH",
	"es": "SPANISH",
	"fr": "FRENCH",
	"de": "GERMAN",
	"it": "ITALIAN",
	"pt": "PORTUGUESE",
}

// SourceInfo records where the job posting text came from
type SourceInfo struct {
	URL     string `json:"url,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
}

// JobRequirements is the structured result of analyzing a job posting.
// Immutable once produced; owned by the session that requested the analysis.
type JobRequirements struct {
	Language        string     `json:"language"`
	LanguageWarning bool       `json:"languageWarning,omitempty"`
	JobTitle        string     `json:"jobTitle,omitempty"`
	Company         string     `json:"company,omitempty"`
	Level           string     `json:"level,omitempty"`
	Tone            string     `json:"tone,omitempty"`
	MustHave        []string   `json:"mustHave"`
	NiceToHave      []string   `json:"niceToHave"`
	Keywords        []string   `json:"keywords"`
	Instructions    string     `json:"instructions,omitempty"`
	Source          SourceInfo `json:"source"`
}

// JobEnrichment holds the optional AI-derived refinement of a heuristic
// analysis. Language and skill classification are never taken from here.
type JobEnrichment struct {
	JobTitle     string   `json:"jobTitle"`
	Company      string   `json:"company"`
	Level        string   `json:"level"`
	Tone         string   `json:"tone"`
	Keywords     []string `json:"keywords"`
	Instructions string   `json:"instructions"`
}

// LengthConstraint carries the hard length limits passed to every generation
// call. MaxWords and MaxChars are mutually exclusive.
type LengthConstraint struct {
	MaxPages int `json:"maxPages,omitempty"`
	MaxWords int `json:"maxWords,omitempty"`
	MaxChars int `json:"maxChars,omitempty"`
}

// GenerationRequest is the structured prompt input for one draft generation
type GenerationRequest struct {
	Kind        DocumentKind     `json:"kind"`
	Job         *JobRequirements `json:"job"`
	ProfileJSON string           `json:"profile"`
	// ApprovedCV is the final CV content; set only for cover letter generation
	ApprovedCV string           `json:"approvedCV,omitempty"`
	Directives string           `json:"directives,omitempty"`
	Constraint LengthConstraint `json:"constraint"`
	Iteration  int              `json:"iteration"`
	Feedback   string           `json:"feedback,omitempty"`
}

// MergeRequest is the request body for profile merge operations
type MergeRequest struct {
	Path   string `json:"path"`
	Values []any  `json:"values"`
}
