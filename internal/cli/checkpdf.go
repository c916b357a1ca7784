package cli

import (
	stderrors "errors"
	"fmt"

	"applykit/internal/errors"
	"applykit/internal/render"

	"github.com/spf13/cobra"
)

var checkPDFCmd = &cobra.Command{
	Use:   "checkpdf [pdf-file]",
	Short: "Check a converted PDF against the CV page limit",
	Long: `Approved documents are exported as markdown and print-ready HTML; PDF
conversion happens in an external tool such as a headless browser. After
converting, run this command to verify the PDF stays within the configured
page limit (documents.cv.maxPages).

The command prints the page count and exits non-zero when the limit is
exceeded.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckPDF,
}

var checkPDFMaxPages int

func init() {
	checkPDFCmd.Flags().IntVar(&checkPDFMaxPages, "max-pages", 0, "Page limit override (default from config)")
}

func runCheckPDF(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	out := cmd.OutOrStdout()

	limit := checkPDFMaxPages
	if limit == 0 {
		limit = cfg.CVLimits().MaxPages
	}

	count, err := render.CheckPageLimit(args[0], limit)
	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) && appErr.Code == errors.ErrCodeConstraintViolated {
			fmt.Fprintf(out, "%s: %d page(s), exceeds the limit of %d\n", args[0], count, limit)
		}
		return err
	}

	fmt.Fprintf(out, "%s: %d page(s), within the limit of %d\n", args[0], count, limit)
	return nil
}
