package cli

import (
	"context"
	"fmt"
	"strings"

	"applykit/internal/ai"
	"applykit/internal/analyzer"
	"applykit/internal/common"
	"applykit/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [posting-file-or-url]",
	Short: "Analyze a job posting for language and requirements",
	Long: `Analyze a job posting and extract what the tailoring pipeline needs:
the posting language, the job title and company, required and nice-to-have
skills, and keywords worth echoing in a CV.

The argument is either a path to a plain-text posting file or an http(s) URL.
URLs are fetched once; if the fetch fails the posting must be supplied as a
file instead.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if analyzeConfig.OutputFormat == "" {
			analyzeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		analyzeConfig.MaxFileSize = cfg.App.MaxFileSize
		// Validate format against supported formats
		return common.ValidateOutputFormat(analyzeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyze,
}

var analyzeConfig common.CommandConfig

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func isURL(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	// Create AI service for the analyze operation
	analyzeAIConfig := cfg.GetAnalyzeConfig()
	aiService, err := ai.NewService(&analyzeAIConfig, "analyze", logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	jobAnalyzer := analyzer.New(analyzer.NewFetcher(*analyzeAIConfig.Timeout), aiService, logger)

	if isURL(args[0]) {
		logger.Info("Starting job posting analysis",
			"url", args[0],
			"output_format", analyzeConfig.OutputFormat)
		job, err := jobAnalyzer.AnalyzeURL(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to analyze job posting: %w", err)
		}
		if err := common.NewOutputHandler(logger).HandleOutput(job, analyzeConfig); err != nil {
			return err
		}
		logger.Info("Job posting analysis completed successfully")
		return nil
	}

	createInput := func(contents []string) (string, error) {
		if len(contents) != 1 {
			return "", fmt.Errorf("expected 1 file path, got %d", len(contents))
		}
		return contents[0], nil
	}

	logDetails := func(input string, cfg common.CommandConfig) {
		logger.Info("Starting job posting analysis",
			"posting_chars", len(input),
			"output_format", cfg.OutputFormat)
	}

	analyzeOperation := func(ctx context.Context, input string) (*types.JobRequirements, error) {
		return jobAnalyzer.AnalyzeText(ctx, input)
	}

	err = common.RunFileCommand(
		cmd.Context(),
		logger,
		analyzeConfig,
		args,
		createInput,
		analyzeOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to analyze job posting: %w", err)
	}
	logger.Info("Job posting analysis completed successfully")
	return nil
}
