package render

import (
	"fmt"
	"os"

	apperrors "applykit/internal/errors"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Style holds the visual configuration applied when rendering a document.
// Values are CSS-ready strings so a style file can override any of them
// without unit conversion.
type Style struct {
	PageSize       string `json:"pageSize"`
	Margin         string `json:"margin"`
	FontFamily     string `json:"fontFamily"`
	HeadingColor   string `json:"headingColor"`
	TextColor      string `json:"textColor"`
	AccentColor    string `json:"accentColor"`
	BodySize       string `json:"bodySize"`
	HeadingSize    string `json:"headingSize"`
	SubheadingSize string `json:"subheadingSize"`
	LineHeight     string `json:"lineHeight"`
}

// DefaultStyle returns the professional default styling used when no design
// template is available
func DefaultStyle() Style {
	return Style{
		PageSize:       "A4",
		Margin:         "0.75in",
		FontFamily:     "Arial, Helvetica, sans-serif",
		HeadingColor:   "#2c3e50",
		TextColor:      "#333333",
		AccentColor:    "#3498db",
		BodySize:       "11pt",
		HeadingSize:    "24pt",
		SubheadingSize: "16pt",
		LineHeight:     "1.6",
	}
}

// US Letter is 612x792 points; everything else maps to A4
const letterWidthPts = 612.0

// ProbeTemplate inspects a design template PDF and derives style settings
// from it. Today only the page size is read from the template; a missing or
// unreadable template falls back to the defaults.
func ProbeTemplate(path string, logger *apperrors.Logger) Style {
	style := DefaultStyle()

	if path == "" {
		return style
	}
	if _, err := os.Stat(path); err != nil {
		logger.Debug("No design template found, using default styling", "path", path)
		return style
	}

	dims, err := api.PageDimsFile(path)
	if err != nil || len(dims) == 0 {
		logger.Warn("Failed to probe design template, using default styling",
			"path", path,
			"error", fmt.Sprintf("%v", err))
		return style
	}

	if dims[0].Width > letterWidthPts-1 && dims[0].Width < letterWidthPts+1 {
		style.PageSize = "Letter"
	}

	logger.Debug("Design template probed",
		"path", path,
		"page_width", dims[0].Width,
		"page_height", dims[0].Height,
		"page_size", style.PageSize)

	return style
}

// css renders the page stylesheet for this style
func (s Style) css() string {
	return fmt.Sprintf(`@page {
    size: %s;
    margin: %s;
}
* {
    margin: 0;
    padding: 0;
    box-sizing: border-box;
}
body {
    font-family: %s;
    font-size: %s;
    color: %s;
    line-height: %s;
}
h1 {
    font-size: %s;
    color: %s;
    font-weight: 700;
    margin-bottom: 0.3em;
}
h2 {
    font-size: %s;
    color: %s;
    font-weight: 600;
    border-bottom: 2px solid %s;
    padding-bottom: 0.2em;
    margin-top: 1em;
    margin-bottom: 0.5em;
}
h3 {
    font-size: %s;
    color: %s;
    margin-top: 0.8em;
    margin-bottom: 0.3em;
    font-weight: bold;
}
p {
    margin: 0.3em 0;
}
ul {
    margin: 0.3em 0;
    padding-left: 1.5em;
}
li {
    margin: 0.2em 0;
}
strong {
    color: %s;
}
a {
    color: %s;
    text-decoration: none;
}
hr {
    border: none;
    border-top: 1px solid #ddd;
    margin: 1em 0;
}`,
		s.PageSize, s.Margin,
		s.FontFamily, s.BodySize, s.TextColor, s.LineHeight,
		s.HeadingSize, s.HeadingColor,
		s.SubheadingSize, s.HeadingColor, s.AccentColor,
		s.BodySize, s.HeadingColor,
		s.HeadingColor,
		s.AccentColor)
}
