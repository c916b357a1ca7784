package common

import (
	"fmt"
	"slices"
	"strings"
)

// ValidateOutputFormat checks a requested output format against the formats
// enabled in configuration. An empty supported list allows any format.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format %q (supported: %s)",
		format, strings.Join(supportedFormats, ", "))
}

// GetSupportedFormats returns a copy of the configured format list, used for
// shell completion of the --format flag.
func GetSupportedFormats(supportedFormats []string) []string {
	return slices.Clone(supportedFormats)
}
