package ai

import (
	"context"
	"encoding/json"

	"applykit/internal/types"
)

// Provider interface for different AI implementations.
// All methods return token usage information - callers can ignore it if not needed.
type Provider interface {
	GenerateDocument(ctx context.Context, req *types.GenerationRequest) (string, *TokenUsage, error)
	AnalyzeJob(ctx context.Context, postingText string) (*types.JobEnrichment, *TokenUsage, error)
	ExtractProfile(ctx context.Context, source string) (json.RawMessage, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}
