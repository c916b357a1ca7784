package cli

import (
	"context"
	"fmt"

	"applykit/internal/ai"
	"applykit/internal/analyzer"
	"applykit/internal/config"
	"applykit/internal/errors"
	"applykit/internal/github"
	"applykit/internal/pipeline"
	"applykit/internal/profile"
	"applykit/internal/server"
	"applykit/internal/types"
)

// buildComponents assembles the long-lived pieces shared by the tailor,
// profile, and serve commands: the profile store, the extraction cache, the
// job analyzer, and the tailoring pipeline they feed into.
func buildComponents(ctx context.Context, cfg *config.Config, logger *errors.Logger) (server.Dependencies, error) {
	store, err := profile.NewStore(ctx, &profile.FileBackend{Path: cfg.Profile.Path}, logger)
	if err != nil {
		return server.Dependencies{}, fmt.Errorf("failed to open profile store: %w", err)
	}

	extractCfg := cfg.GetExtractConfig()
	extractSvc, err := ai.NewService(&extractCfg, "extract", logger)
	if err != nil {
		return server.Dependencies{}, fmt.Errorf("failed to create extraction AI service: %w", err)
	}
	cache, err := profile.NewExtractionCache(ctx, &profile.FileBackend{Path: cfg.Profile.CachePath}, extractSvc, logger)
	if err != nil {
		return server.Dependencies{}, fmt.Errorf("failed to open extraction cache: %w", err)
	}

	analyzeCfg := cfg.GetAnalyzeConfig()
	analyzeSvc, err := ai.NewService(&analyzeCfg, "analyze", logger)
	if err != nil {
		return server.Dependencies{}, fmt.Errorf("failed to create analysis AI service: %w", err)
	}
	jobAnalyzer := analyzer.New(analyzer.NewFetcher(*analyzeCfg.Timeout), analyzeSvc, logger)

	tailorCfg := cfg.GetTailorConfig()
	tailorSvc, err := ai.NewService(&tailorCfg, "tailor", logger)
	if err != nil {
		return server.Dependencies{}, fmt.Errorf("failed to create tailoring AI service: %w", err)
	}
	letterCfg := cfg.GetLetterConfig()
	letterSvc, err := ai.NewService(&letterCfg, "letter", logger)
	if err != nil {
		return server.Dependencies{}, fmt.Errorf("failed to create letter AI service: %w", err)
	}

	pipe := pipeline.New(store, cache, jobAnalyzer, &ai.DocumentGenerator{Tailor: tailorSvc, Letter: letterSvc}, logger)

	if cfg.GitHub.Enabled {
		client := github.NewClient(cfg.GitHub.Username, cfg.GitHub.Token, logger)
		var source github.RepoSource = client
		if cfg.GitHub.CacheDir != "" {
			source = github.NewCachedSource(client, cfg.GitHub.CacheDir, cfg.GitHub.CacheTTL, logger)
		}
		pipe.SetProjectSource(github.NewEnricher(source, client, cfg.GitHub.MaxRepos, logger))
	}

	return server.Dependencies{Pipeline: pipe, Store: store, Analyzer: jobAnalyzer}, nil
}

// openStore opens just the profile store, for commands that never touch AI
func openStore(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*profile.Store, error) {
	store, err := profile.NewStore(ctx, &profile.FileBackend{Path: cfg.Profile.Path}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile store: %w", err)
	}
	return store, nil
}

func toConstraint(limits config.DocumentLimits) types.LengthConstraint {
	return types.LengthConstraint{
		MaxPages: limits.MaxPages,
		MaxWords: limits.MaxWords,
		MaxChars: limits.MaxChars,
	}
}
