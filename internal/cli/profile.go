package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"applykit/internal/utils"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the applicant profile store",
	Long: `Manage the structured applicant profile that tailoring sessions draw from.
Profile data accumulates: ingesting a source or merging values never removes
or rewrites existing elements, it only adds what is new.`,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [source-file...]",
	Short: "Extract profile elements from source documents",
	Long: `Extract structured profile elements from free-form source documents
(existing CVs, project notes, bios) and merge them into the profile store.
Each source is fingerprinted; a source seen before is served from the
extraction cache without another AI call.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var mergeCmd = &cobra.Command{
	Use:   "merge [path] [value...]",
	Short: "Append values to a profile path",
	Long: `Append one or more values to a dot-separated path in the profile, for
example "skills" or "experience". Values are parsed as JSON when possible and
stored as strings otherwise. Duplicates of existing elements are skipped.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMerge,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current profile as JSON",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

func init() {
	profileCmd.AddCommand(ingestCmd)
	profileCmd.AddCommand(mergeCmd)
	profileCmd.AddCommand(showCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	deps, err := buildComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	for _, path := range args {
		if err := utils.ValidateInputFileSize(path, cfg.App.MaxFileSize); err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read source file: %w", err)
		}

		added, cacheHit, err := deps.Pipeline.IngestSource(cmd.Context(), data)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d elements added (cache hit: %v)\n", path, added, cacheHit)
	}
	return nil
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	store, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	path := args[0]
	values := make([]any, 0, len(args)-1)
	for _, raw := range args[1:] {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw // not JSON, keep as plain string
		}
		values = append(values, v)
	}

	added, err := store.MergeAppend(cmd.Context(), path, values)
	if err != nil {
		return fmt.Errorf("failed to merge values: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d elements added to %s\n", added, path)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	store, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	snapshot, err := store.JSON()
	if err != nil {
		return fmt.Errorf("failed to serialize profile: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), snapshot)
	return nil
}
