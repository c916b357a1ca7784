package ai

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"applykit/internal/config"
	apperrors "applykit/internal/errors"
	"applykit/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GeminiProvider implements Provider for Google Gemini
type GeminiProvider struct {
	client         *genai.Client
	httpClient     *http.Client
	config         *config.OperationAIConfig
	circuitBreaker *AICircuitBreaker
	modelBreaker   *ModelCircuitBreaker
	logger         *apperrors.Logger
}

// Ensure GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(cfg *config.OperationAIConfig, operationType string, logger *apperrors.Logger) (*GeminiProvider, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	// Initialize circuit breaker with operation-specific configuration
	circuitBreaker := NewAICircuitBreaker(operationType, cfg, logger)
	modelBreaker := NewModelCircuitBreaker(operationType, cfg, logger)

	return &GeminiProvider{
		client: client,
		httpClient: &http.Client{
			Timeout: *cfg.Timeout,
		},
		config:         cfg,
		circuitBreaker: circuitBreaker,
		modelBreaker:   modelBreaker,
		logger:         logger,
	}, nil
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.Model,
		Available: false,
	}

	// Create a timeout context for the model check
	timeout := getAIModelCheckTimeout()
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Get model information from Gemini API with circuit breaker
	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)

		// Log the error for debugging
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", g.config.Provider,
			"error", err.Error())
		return modelInfo
	}

	// Model is available, populate info
	modelInfo.Available = true
	if model.DisplayName != "" {
		modelInfo.DisplayName = model.DisplayName
	}
	if model.Version != "" {
		modelInfo.Version = model.Version
	}

	// Log successful check
	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"provider", g.config.Provider,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// executeWithRetry executes an AI operation with retry logic and exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= *g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// Log retry attempt
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", *g.config.MaxRetries,
				"error", lastErr.Error())

			// Exponential backoff with jitter to prevent thundering herd
			baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			// Use crypto/rand for secure random jitter
			jitterMax := big.NewInt(int64(float64(baseDelay) * 0.1))
			jitterBig, _ := rand.Int(rand.Reader, jitterMax)
			jitter := time.Duration(jitterBig.Int64())
			// Cap maximum backoff at 30 seconds
			backoff := min(baseDelay+jitter, 30*time.Second)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"successful_attempt", attempt+1,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err

		// Don't retry on certain errors (auth, invalid input, etc.)
		if !g.isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	// Log final failure
	g.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation,
		"total_attempts", *g.config.MaxRetries+1)

	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, *g.config.MaxRetries, lastErr)
}

// isRetryableError determines if an error should trigger a retry
func (g *GeminiProvider) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Check for network errors (timeouts, connection issues)
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true // Retry on timeouts
		}
		// Consider other network errors retryable (e.g., connection refused)
		return true
	}

	// Check for Google API errors (HTTP status codes)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// generateContent runs one generation through the tracer span, circuit
// breaker, and retry stack and returns the raw response. The returned span is
// still open; the caller ends it after recording its own attributes.
func (g *GeminiProvider) generateContent(
	ctx context.Context,
	operationName string,
	userPrompt string,
	systemPrompt string,
	genaiConfig *genai.GenerateContentConfig,
	spanAttributes ...attribute.KeyValue,
) (*genai.GenerateContentResponse, trace.Span, error) {
	tracer := otel.Tracer("applykit.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+operationName)

	// Set base attributes
	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
	)
	span.SetAttributes(spanAttributes...)

	if *g.config.UseSystemPrompts && systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, operationName, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genaiConfig)
		})
	})

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, span, apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed, "Failed to generate content for "+operationName, err)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	return result, span, nil
}

// executeAIOperation is a generic helper for structured-output operations:
// it runs the generation and parses the JSON response into Out.
func executeAIOperation[Out any](
	g *GeminiProvider,
	ctx context.Context,
	operationName string,
	userPrompt string,
	systemPrompt string,
	genaiConfig *genai.GenerateContentConfig,
	spanAttributes ...attribute.KeyValue,
) (Out, *TokenUsage, error) {
	var output Out

	result, span, err := g.generateContent(ctx, operationName, userPrompt, systemPrompt, genaiConfig, spanAttributes...)
	defer span.End()
	if err != nil {
		return output, nil, err
	}

	if err := json.Unmarshal([]byte(result.Text()), &output); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, apperrors.NewAIError("AI_RESPONSE_PARSE_FAILED", "Failed to parse AI response for "+operationName, err)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return output, extractTokenUsage(result), nil
}

// GenerateDocument implements Provider for CV and cover letter drafts.
// The response is raw Markdown, not JSON; boundary handling happens in the
// pipeline, not here.
func (g *GeminiProvider) GenerateDocument(ctx context.Context, req *types.GenerationRequest) (string, *TokenUsage, error) {
	userPrompt := BuildDocumentPrompt(req)
	systemPrompt := g.documentSystemPrompt(req)

	genaiConfig := &genai.GenerateContentConfig{}
	if *g.config.Temperature > 0 {
		genaiConfig.Temperature = g.config.Temperature
	}

	operationName := "tailor_cv"
	if req.Kind == types.KindCoverLetter {
		operationName = "cover_letter"
	}

	result, span, err := g.generateContent(
		ctx,
		operationName,
		userPrompt,
		systemPrompt,
		genaiConfig,
		attribute.String("document.kind", string(req.Kind)),
		attribute.Int("document.iteration", req.Iteration),
		attribute.Int("input.profile_length", len(req.ProfileJSON)),
	)
	defer span.End()
	if err != nil {
		return "", nil, err
	}

	text := result.Text()
	if text == "" {
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed,
			"Model returned an empty document for "+operationName, nil)
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("output.document_length", len(text)),
	)
	return text, extractTokenUsage(result), nil
}

// documentSystemPrompt resolves the system instruction for a draft. Cover
// letter generation carries the approved CV as instruction content so the
// letter cannot drift from it.
func (g *GeminiProvider) documentSystemPrompt(req *types.GenerationRequest) string {
	if req.Kind == types.KindCoverLetter {
		base := resolvePrompt(g.config.CustomPrompts.SystemPrompt, DefaultSystemPrompts.CoverLetter)
		if req.ApprovedCV != "" {
			return base + "\n\nThe candidate's approved CV:\n-----\n" + req.ApprovedCV + "\n-----"
		}
		return base
	}
	return resolvePrompt(g.config.CustomPrompts.SystemPrompt, DefaultSystemPrompts.TailorCV)
}

// AnalyzeJob implements Provider for posting metadata enrichment
func (g *GeminiProvider) AnalyzeJob(ctx context.Context, postingText string) (*types.JobEnrichment, *TokenUsage, error) {
	systemPrompt := resolvePrompt(g.config.CustomPrompts.SystemPrompt, DefaultSystemPrompts.AnalyzeJob)
	userPrompt := fmt.Sprintf(resolvePrompt(g.config.CustomPrompts.UserPrompt, DefaultUserPrompts.AnalyzeJob), postingText)

	output, tokenUsage, err := executeAIOperation[types.JobEnrichment](
		g,
		ctx,
		"analyze_job",
		userPrompt,
		systemPrompt,
		g.buildEnrichmentSchema(),
		attribute.Int("input.posting_length", len(postingText)),
	)
	if err != nil {
		return nil, nil, err
	}

	return &output, tokenUsage, nil
}

// ExtractProfile implements Provider for structured profile extraction.
// The result is kept as raw JSON because the path set is open-ended; the
// profile store merges it path by path.
func (g *GeminiProvider) ExtractProfile(ctx context.Context, source string) (json.RawMessage, *TokenUsage, error) {
	systemPrompt := resolvePrompt(g.config.CustomPrompts.SystemPrompt, DefaultSystemPrompts.ExtractProfile)
	userPrompt := fmt.Sprintf(resolvePrompt(g.config.CustomPrompts.UserPrompt, DefaultUserPrompts.ExtractProfile), source)

	genaiConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if *g.config.Temperature > 0 {
		genaiConfig.Temperature = g.config.Temperature
	}

	output, tokenUsage, err := executeAIOperation[json.RawMessage](
		g,
		ctx,
		"extract_profile",
		userPrompt,
		systemPrompt,
		genaiConfig,
		attribute.Int("input.source_length", len(source)),
	)
	if err != nil {
		return nil, nil, err
	}

	return output, tokenUsage, nil
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	stats := map[string]any{
		"ai_operations":    g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetStats(),
	}

	// Overall health - both breakers must be healthy
	aiHealthy := g.circuitBreaker.IsHealthy()
	modelHealthy := g.modelBreaker.IsHealthy()
	stats["overall_healthy"] = aiHealthy && modelHealthy

	return stats
}

// Close implements Provider interface
func (g *GeminiProvider) Close() error {
	// Gemini client doesn't have a Close method in current single-shot usage
	// Probably needed in streaming mode
	return nil
}

// buildEnrichmentSchema creates the schema for posting enrichment requests
func (g *GeminiProvider) buildEnrichmentSchema() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"jobTitle": {Type: genai.TypeString},
				"company":  {Type: genai.TypeString},
				"level":    {Type: genai.TypeString},
				"tone":     {Type: genai.TypeString},
				"keywords": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
				"instructions": {Type: genai.TypeString},
			},
			Required: []string{"jobTitle", "company", "level", "tone", "keywords", "instructions"},
		},
	}

	// Apply temperature configuration if set
	if *g.config.Temperature > 0 {
		config.Temperature = g.config.Temperature
	}

	return config
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}

// getAIModelCheckTimeout returns the configured AI model check timeout
func getAIModelCheckTimeout() time.Duration {
	// Use default timeout since we don't have access to config here
	// This function should be refactored to accept timeout as parameter
	// Fallback to default
	return 10 * time.Second
}

// resolvePrompt prefers a prompt from the operation's configuration over the
// hardcoded default
func resolvePrompt(fromConfig, fromDefault string) string {
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}
