package server

import (
	"time"

	"applykit/internal/analyzer"
	"applykit/internal/config"
	applykitErrors "applykit/internal/errors"
	"applykit/internal/pipeline"
	"applykit/internal/profile"
	"applykit/internal/types"
)

// AnalyzeRequest represents the request body for the analyze endpoint.
// Exactly one of postingUrl and postingText must be set.
type AnalyzeRequest struct {
	PostingURL  string `json:"postingUrl,omitempty"`
	PostingText string `json:"postingText,omitempty"`
}

// IngestRequest represents the request body for the profile ingest endpoint
type IngestRequest struct {
	Source string `json:"source"`
}

// IngestResponse reports the outcome of a profile ingest
type IngestResponse struct {
	ElementsAdded int  `json:"elementsAdded"`
	CacheHit      bool `json:"cacheHit"`
}

// MergeResponse reports the outcome of a direct profile merge
type MergeResponse struct {
	ElementsAdded int `json:"elementsAdded"`
}

// FeedbackRequest carries reviewer comments for the current draft
type FeedbackRequest struct {
	Feedback string `json:"feedback"`
}

// SessionResponse describes a session and its current draft
type SessionResponse struct {
	ID    string                 `json:"id"`
	Stage pipeline.Stage         `json:"stage"`
	Job   *types.JobRequirements `json:"job"`
	Draft *pipeline.Draft        `json:"draft,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *LimiterManager

	// Tailoring pipeline and its collaborators
	Pipeline *pipeline.Pipeline
	Store    *profile.Store
	Analyzer *analyzer.Analyzer

	// Logger
	Logger *applykitErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// Dependencies carries the long-lived pipeline components the server
// serves requests against
type Dependencies struct {
	Pipeline *pipeline.Pipeline
	Store    *profile.Store
	Analyzer *analyzer.Analyzer
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Dependencies, logger *applykitErrors.Logger) *Server {
	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *LimiterManager
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewLimiterManager(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			cfg.RateLimit.Window,
			logger,
		)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Pipeline:       deps.Pipeline,
		Store:          deps.Store,
		Analyzer:       deps.Analyzer,
		Logger:         logger,
	}
}
