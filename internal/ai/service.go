package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"applykit/internal/config"
	"applykit/internal/errors"
	"applykit/internal/observability"
	"applykit/internal/types"
)

// Service handles AI operations for one operation type
type Service struct {
	Provider Provider // Exported for access from server package
	config   *config.OperationAIConfig
	logger   *errors.Logger
}

// NewService creates a new AI service instance with configuration for a specific operation
func NewService(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) (*Service, error) {
	var provider Provider
	var err error

	// Debug logging for service initialization
	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"operation_type", operationType,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries,
		"use_system_prompts", *cfg.UseSystemPrompts)

	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(cfg, operationType, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}

	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create AI provider", err)
	}

	return &Service{
		Provider: provider,
		config:   cfg,
		logger:   logger,
	}, nil
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) any {
	return s.Provider.GetModelInfo(ctx)
}

// AnalyzeJob satisfies the analyzer's enricher contract. Token usage is
// logged and recorded here since the analyzer has no use for it.
func (s *Service) AnalyzeJob(ctx context.Context, postingText string) (*types.JobEnrichment, error) {
	var enrichment *types.JobEnrichment
	err := trackAI(ctx, "analyze_job", func(ctx context.Context) *observability.AIOperationResult {
		var usage *TokenUsage
		var err error
		enrichment, usage, err = s.Provider.AnalyzeJob(ctx, postingText)
		s.logTokenUsage("analyze_job", usage)
		return &observability.AIOperationResult{Error: err, TokenUsage: metricTokens(usage)}
	})
	if err != nil {
		return nil, err
	}
	return enrichment, nil
}

// Extract satisfies the extraction cache's extractor contract
func (s *Service) Extract(ctx context.Context, source []byte) (json.RawMessage, error) {
	var payload json.RawMessage
	err := trackAI(ctx, "extract_profile", func(ctx context.Context) *observability.AIOperationResult {
		var usage *TokenUsage
		var err error
		payload, usage, err = s.Provider.ExtractProfile(ctx, string(source))
		s.logTokenUsage("extract_profile", usage)
		return &observability.AIOperationResult{Error: err, TokenUsage: metricTokens(usage)}
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *Service) logTokenUsage(operation string, usage *TokenUsage) {
	if usage == nil {
		return
	}
	s.logger.Debug("AI operation token usage",
		"operation", operation,
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"total_tokens", usage.TotalTokens)
}

// trackAI wraps a provider call with the process-wide observability manager,
// recording duration, request counts, and token usage per operation. With no
// manager registered the call runs uninstrumented.
func trackAI(ctx context.Context, operation string, fn func(context.Context) *observability.AIOperationResult) error {
	om := observability.Default()
	return om.GetMetrics().TrackAIOperationWithTokens(ctx, operation, fn, om)
}

func metricTokens(usage *TokenUsage) *observability.TokenUsage {
	if usage == nil {
		return nil
	}
	return &observability.TokenUsage{
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		TotalTokens:  usage.TotalTokens,
	}
}

// DocumentGenerator routes draft generation to the service configured for
// the requested document kind
type DocumentGenerator struct {
	Tailor *Service
	Letter *Service
}

// GenerateDocument satisfies the pipeline's generator contract
func (d *DocumentGenerator) GenerateDocument(ctx context.Context, req *types.GenerationRequest) (string, error) {
	svc := d.Tailor
	if req.Kind == types.KindCoverLetter {
		svc = d.Letter
	}
	if svc == nil {
		return "", errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("No AI service configured for document kind %q", req.Kind), nil)
	}

	var text string
	operation := "generate_" + string(req.Kind)
	err := trackAI(ctx, operation, func(ctx context.Context) *observability.AIOperationResult {
		var usage *TokenUsage
		var genErr error
		text, usage, genErr = svc.Provider.GenerateDocument(ctx, req)
		svc.logTokenUsage(operation, usage)
		return &observability.AIOperationResult{Error: genErr, TokenUsage: metricTokens(usage)}
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
