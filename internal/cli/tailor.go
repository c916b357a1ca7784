package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"applykit/internal/config"
	"applykit/internal/formatters"
	"applykit/internal/pipeline"
	"applykit/internal/render"
	"applykit/internal/types"
	"applykit/internal/utils"

	"github.com/spf13/cobra"
)

var tailorCmd = &cobra.Command{
	Use:   "tailor [posting-file-or-url]",
	Short: "Tailor a CV and cover letter for a job posting",
	Long: `Run an interactive tailoring session for a job posting. The posting is
analyzed first, then a CV draft is generated from your profile. Review each
draft and either approve it or give feedback for another iteration; once the
CV is approved the cover letter is drafted against it. Approving the letter
writes both documents to the output directory.

The argument is either a path to a plain-text posting file or an http(s) URL.`,
	Args: cobra.ExactArgs(1),
	RunE: runTailor,
}

var (
	tailorDirectives string
	tailorOutputDir  string
	tailorTemplate   string
	tailorHTML       bool
)

func init() {
	tailorCmd.Flags().StringVarP(&tailorDirectives, "directives", "d", "", "Free-form directives for this application (tone, emphasis, etc.)")
	tailorCmd.Flags().StringVar(&tailorOutputDir, "output-dir", "", "Directory for approved documents (default from config)")
	tailorCmd.Flags().StringVar(&tailorTemplate, "template", "", "Design template PDF to derive page styling from")
	tailorCmd.Flags().BoolVar(&tailorHTML, "html", false, "Also write print-ready HTML next to the markdown output")
}

func runTailor(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	deps, err := buildComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	req := pipeline.SessionRequest{
		Directives:  tailorDirectives,
		CVLimit:     toConstraint(cfg.CVLimits()),
		LetterLimit: toConstraint(cfg.LetterLimits()),
	}
	if isURL(args[0]) {
		req.PostingURL = args[0]
	} else {
		if err := utils.ValidateInputFile(args[0]); err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read posting file: %w", err)
		}
		req.PostingText = string(data)
	}

	logger.Info("Starting tailoring session",
		"posting", args[0],
		"directives_chars", len(tailorDirectives))

	session, draft, err := deps.Pipeline.StartSession(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("failed to start tailoring session: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %s: %s at %s (language: %s)\n",
		session.ID, session.Job.JobTitle, session.Job.Company, session.Job.Language)
	if session.Job.LanguageWarning {
		fmt.Fprintln(out, "Warning: posting language could not be detected reliably, defaulting to English")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	letterContent := ""

	for {
		if err := showDraft(out, session, draft); err != nil {
			return err
		}

		fmt.Fprint(out, "\n[a]pprove, give [f]eedback, or [q]uit: ")
		choice, err := readLine(reader)
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(out, "\nSession abandoned")
				return nil
			}
			return err
		}

		switch choice {
		case "a", "approve":
			next, err := deps.Pipeline.Approve(cmd.Context(), session.ID)
			if err != nil {
				return fmt.Errorf("failed to approve draft: %w", err)
			}
			switch session.Stage() {
			case pipeline.StageLetter:
				fmt.Fprintln(out, "\nCV approved. Drafting the cover letter.")
				draft = next
			case pipeline.StageComplete:
				letterContent = next.Public
				return writeApprovedDocuments(cmd, cfg, session, letterContent)
			}
		case "f", "feedback":
			fmt.Fprint(out, "Feedback: ")
			feedback, err := readLine(reader)
			if err != nil {
				return err
			}
			next, err := deps.Pipeline.Feedback(cmd.Context(), session.ID, feedback)
			if err != nil {
				// Transient AI failures land here; keep the session alive so
				// the current draft can still be approved or retried.
				fmt.Fprintf(out, "Refinement failed: %v\n", err)
				continue
			}
			if next.Status == pipeline.StatusIterationLimit {
				fmt.Fprintf(out, "Iteration limit of %d reached for this document. Start a new session to continue.\n",
					pipeline.MaxIterations)
				return nil
			}
			draft = next
		case "q", "quit":
			fmt.Fprintln(out, "Session abandoned")
			return nil
		default:
			fmt.Fprintf(out, "Unknown choice %q\n", choice)
		}
	}
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}

func showDraft(out io.Writer, session *pipeline.Session, draft *pipeline.Draft) error {
	label := "CV"
	if session.Stage() == pipeline.StageLetter {
		label = "Cover letter"
	}
	fmt.Fprintf(out, "\n=== %s draft (iteration %d) ===\n", label, draft.Iteration)

	text, err := formatters.GlobalRegistry.Format(draft, "text")
	if err != nil {
		return fmt.Errorf("failed to format draft: %w", err)
	}
	fmt.Fprintln(out, text)
	return nil
}

// writeApprovedDocuments writes the approved CV and cover letter as markdown,
// plus print-ready HTML when requested.
func writeApprovedDocuments(cmd *cobra.Command, cfg *config.Config, session *pipeline.Session, letterContent string) error {
	logger := getLoggerFromContext(cmd.Context())
	out := cmd.OutOrStdout()

	dir := tailorOutputDir
	if dir == "" {
		dir = cfg.App.OutputDir
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	now := time.Now()
	documents := []render.Document{
		{Kind: types.KindCV, Content: session.ApprovedCV(), Job: session.Job},
		{Kind: types.KindCoverLetter, Content: letterContent, Job: session.Job},
	}

	var renderer *render.HTMLRenderer
	if tailorHTML {
		renderer = render.NewHTMLRenderer(render.ProbeTemplate(tailorTemplate, logger), logger)
	}

	for _, doc := range documents {
		path := filepath.Join(dir, render.Filename(doc.Job, doc.Kind, now, "md"))
		if err := os.WriteFile(path, []byte(doc.Content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", doc.Kind, err)
		}
		fmt.Fprintf(out, "Wrote %s\n", path)

		if renderer != nil {
			htmlPath, err := renderer.RenderToFile(doc, dir)
			if err != nil {
				return fmt.Errorf("failed to render %s: %w", doc.Kind, err)
			}
			fmt.Fprintf(out, "Wrote %s\n", htmlPath)
		}
	}

	if renderer != nil {
		fmt.Fprintln(out, "Convert the HTML to PDF, then run 'applykit checkpdf' to verify the page limit.")
	}

	logger.Info("Tailoring session completed",
		"session_id", session.ID,
		"output_dir", dir)
	return nil
}
