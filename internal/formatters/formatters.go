package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"applykit/internal/pipeline"
	"applykit/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	// Register default formatters
	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "JobRequirements", &JobTextFormatter{})
	registry.RegisterFormatter("markdown", "JobRequirements", &JobMarkdownFormatter{})
	registry.RegisterFormatter("text", "Draft", &DraftTextFormatter{})
	registry.RegisterFormatter("markdown", "Draft", &DraftMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.JobRequirements, *types.JobRequirements:
		return "JobRequirements"
	case pipeline.Draft, *pipeline.Draft:
		return "Draft"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

func asJob(data any) (*types.JobRequirements, error) {
	switch v := data.(type) {
	case types.JobRequirements:
		return &v, nil
	case *types.JobRequirements:
		return v, nil
	default:
		return nil, fmt.Errorf("expected JobRequirements, got %T", data)
	}
}

func asDraft(data any) (*pipeline.Draft, error) {
	switch v := data.(type) {
	case pipeline.Draft:
		return &v, nil
	case *pipeline.Draft:
		return v, nil
	default:
		return nil, fmt.Errorf("expected Draft, got %T", data)
	}
}

// JobTextFormatter handles text formatting for analyzed postings
type JobTextFormatter struct{}

func (jtf *JobTextFormatter) Format(data any) (string, error) {
	job, err := asJob(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString("=== JOB ANALYSIS ===\n\n")
	if job.JobTitle != "" {
		output.WriteString(fmt.Sprintf("Title: %s\n", job.JobTitle))
	}
	if job.Company != "" {
		output.WriteString(fmt.Sprintf("Company: %s\n", job.Company))
	}
	if job.Level != "" {
		output.WriteString(fmt.Sprintf("Level: %s\n", job.Level))
	}
	output.WriteString(fmt.Sprintf("Language: %s", job.Language))
	if job.LanguageWarning {
		output.WriteString(" (fallback, detection was inconclusive)")
	}
	output.WriteString("\n\n")

	if len(job.MustHave) > 0 {
		output.WriteString("Must-have:\n")
		for _, skill := range job.MustHave {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		output.WriteString("\n")
	}
	if len(job.NiceToHave) > 0 {
		output.WriteString("Nice-to-have:\n")
		for _, skill := range job.NiceToHave {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		output.WriteString("\n")
	}
	if len(job.Keywords) > 0 {
		output.WriteString(fmt.Sprintf("Keywords: %s\n", strings.Join(job.Keywords, ", ")))
	}
	if job.Instructions != "" {
		output.WriteString(fmt.Sprintf("Application instructions: %s\n", job.Instructions))
	}
	if job.Source.URL != "" {
		output.WriteString(fmt.Sprintf("Source: %s\n", job.Source.URL))
	}

	return output.String(), nil
}

func (jtf *JobTextFormatter) SupportedType() string {
	return "JobRequirements"
}

// JobMarkdownFormatter handles markdown formatting for analyzed postings
type JobMarkdownFormatter struct{}

func (jmf *JobMarkdownFormatter) Format(data any) (string, error) {
	job, err := asJob(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString("# Job Analysis\n\n")
	if job.JobTitle != "" {
		output.WriteString(fmt.Sprintf("**Title:** %s\n\n", job.JobTitle))
	}
	if job.Company != "" {
		output.WriteString(fmt.Sprintf("**Company:** %s\n\n", job.Company))
	}
	if job.Level != "" {
		output.WriteString(fmt.Sprintf("**Level:** %s\n\n", job.Level))
	}
	output.WriteString(fmt.Sprintf("**Language:** %s", job.Language))
	if job.LanguageWarning {
		output.WriteString(" *(fallback, detection was inconclusive)*")
	}
	output.WriteString("\n\n")

	if len(job.MustHave) > 0 {
		output.WriteString("## Must-Have Requirements\n\n")
		for _, skill := range job.MustHave {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		output.WriteString("\n")
	}
	if len(job.NiceToHave) > 0 {
		output.WriteString("## Nice-to-Have Requirements\n\n")
		for _, skill := range job.NiceToHave {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		output.WriteString("\n")
	}
	if len(job.Keywords) > 0 {
		output.WriteString("## Keywords\n\n")
		output.WriteString(strings.Join(job.Keywords, ", "))
		output.WriteString("\n\n")
	}
	if job.Instructions != "" {
		output.WriteString("## Application Instructions\n\n")
		output.WriteString(job.Instructions)
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (jmf *JobMarkdownFormatter) SupportedType() string {
	return "JobRequirements"
}

// DraftTextFormatter handles text formatting for drafts under review
type DraftTextFormatter struct{}

func (dtf *DraftTextFormatter) Format(data any) (string, error) {
	draft, err := asDraft(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString(fmt.Sprintf("=== %s (iteration %d) ===\n\n",
		strings.ToUpper(string(draft.Kind)), draft.Iteration))
	output.WriteString(draft.Public)
	output.WriteString("\n")

	if len(draft.Warnings) > 0 {
		output.WriteString("\n=== WARNINGS ===\n")
		for _, warning := range draft.Warnings {
			output.WriteString(fmt.Sprintf("- %s\n", warning))
		}
	}

	if draft.Internal != "" {
		output.WriteString("\n=== INTERNAL NOTES (never shared) ===\n\n")
		output.WriteString(draft.Internal)
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (dtf *DraftTextFormatter) SupportedType() string {
	return "Draft"
}

// DraftMarkdownFormatter handles markdown formatting for drafts. The public
// content is already Markdown, so it passes through with the review context
// appended.
type DraftMarkdownFormatter struct{}

func (dmf *DraftMarkdownFormatter) Format(data any) (string, error) {
	draft, err := asDraft(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString(draft.Public)
	output.WriteString("\n")

	if len(draft.Warnings) > 0 {
		output.WriteString("\n## Warnings\n\n")
		for _, warning := range draft.Warnings {
			output.WriteString(fmt.Sprintf("- %s\n", warning))
		}
	}

	if draft.Internal != "" {
		output.WriteString("\n## Internal Notes (never shared)\n\n")
		output.WriteString(draft.Internal)
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (dmf *DraftMarkdownFormatter) SupportedType() string {
	return "Draft"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
