package render

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	apperrors "applykit/internal/errors"
	"applykit/internal/types"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

// Document is the renderable view of an approved draft. Content is the
// public part only; internal analysis never reaches the renderer.
type Document struct {
	Kind    types.DocumentKind
	Content string
	Job     *types.JobRequirements
}

// Renderer turns an approved document into a styled artifact on disk
type Renderer interface {
	Render(doc Document) (string, error)
	RenderToFile(doc Document, dir string) (string, error)
}

// HTMLRenderer produces a self-contained styled HTML page from the
// document's Markdown. PDF conversion is left to an external tool; the page
// carries print CSS so a headless browser produces the final file.
type HTMLRenderer struct {
	style  Style
	md     goldmark.Markdown
	logger *apperrors.Logger
}

var _ Renderer = (*HTMLRenderer)(nil)

// NewHTMLRenderer creates a renderer with the given style
func NewHTMLRenderer(style Style, logger *apperrors.Logger) *HTMLRenderer {
	return &HTMLRenderer{
		style: style,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(ghtml.WithHardWraps()),
		),
		logger: logger,
	}
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
{{.CSS}}
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// Render converts the document to a styled HTML page. A Markdown conversion
// failure falls back to the raw content in a preformatted block instead of
// failing the export.
func (r *HTMLRenderer) Render(doc Document) (string, error) {
	var body template.HTML

	var converted bytes.Buffer
	if err := r.md.Convert([]byte(doc.Content), &converted); err != nil {
		r.logger.Warn("Markdown conversion failed, exporting unstyled content",
			"kind", string(doc.Kind),
			"error", err.Error())
		body = template.HTML("<pre>" + template.HTMLEscapeString(doc.Content) + "</pre>")
	} else {
		body = template.HTML(converted.String())
	}

	var page bytes.Buffer
	err := pageTemplate.Execute(&page, struct {
		CSS  template.CSS
		Body template.HTML
	}{
		CSS:  template.CSS(r.style.css()),
		Body: body,
	})
	if err != nil {
		return "", apperrors.NewInternalError("TEMPLATE_EXECUTION_FAILED",
			"Failed to render document page", err)
	}

	return page.String(), nil
}

// RenderToFile renders the document and writes it under dir using the
// generated filename. Returns the written path.
func (r *HTMLRenderer) RenderToFile(doc Document, dir string) (string, error) {
	page, err := r.Render(doc)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", apperrors.NewIOError("DIRECTORY_CREATE_FAILED",
			"Failed to create output directory", err)
	}

	path := filepath.Join(dir, Filename(doc.Job, doc.Kind, time.Now(), "html"))
	if err := os.WriteFile(path, []byte(page), 0o640); err != nil {
		return "", apperrors.NewIOError("FILE_WRITE_FAILED",
			"Failed to write rendered document", err)
	}

	r.logger.Info("Document rendered",
		"kind", string(doc.Kind),
		"path", path)

	return path, nil
}

// Filename builds the export filename from the job analysis, e.g.
// CV_Acme_Backend_Engineer_20260831.html
func Filename(job *types.JobRequirements, kind types.DocumentKind, now time.Time, ext string) string {
	prefix := "CV"
	if kind == types.KindCoverLetter {
		prefix = "CoverLetter"
	}

	title := "Job"
	company := "Company"
	if job != nil {
		if job.JobTitle != "" {
			title = job.JobTitle
		}
		if job.Company != "" {
			company = job.Company
		}
	}

	return fmt.Sprintf("%s_%s_%s_%s.%s",
		prefix,
		sanitizeFilePart(company),
		sanitizeFilePart(title),
		now.Format("20060102"),
		ext)
}

// sanitizeFilePart keeps letters, digits, underscore and hyphen; spaces and
// slashes become underscores, everything else is dropped
func sanitizeFilePart(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '/':
			b.WriteRune('_')
		}
	}
	return b.String()
}

// CheckPageLimit counts the pages of a converted PDF and reports a constraint
// violation when the count exceeds maxPages. The count is returned either
// way so callers can surface it as an advisory.
func CheckPageLimit(pdfPath string, maxPages int) (int, error) {
	count, err := api.PageCountFile(pdfPath)
	if err != nil {
		return 0, apperrors.NewIOError(apperrors.ErrCodeFileNotReadable,
			"Failed to count pages of rendered document", err)
	}
	return count, checkPageCount(count, maxPages)
}

// checkPageCount applies the page limit. A limit of zero disables the check.
func checkPageCount(count, maxPages int) error {
	if maxPages > 0 && count > maxPages {
		return apperrors.NewValidationError(apperrors.ErrCodeConstraintViolated,
			fmt.Sprintf("Rendered document has %d pages, limit is %d", count, maxPages), nil)
	}
	return nil
}
