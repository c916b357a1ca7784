package ai

import (
	"fmt"

	"applykit/internal/config"
	"applykit/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// Breaker guards one class of upstream calls. A nil Breaker executes calls
// directly, which is how a disabled circuit breaker is represented.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// AICircuitBreaker protects content generation calls
type AICircuitBreaker = Breaker[*genai.GenerateContentResponse]

// ModelCircuitBreaker protects model info lookups
type ModelCircuitBreaker = Breaker[*genai.Model]

// NewAICircuitBreaker creates a circuit breaker configured for a specific operation type
func NewAICircuitBreaker(operationType string, cfg *config.OperationAIConfig, logger *errors.Logger) *AICircuitBreaker {
	return newBreaker[*genai.GenerateContentResponse](
		fmt.Sprintf("AI-%s", operationType), operationType, cfg, logger,
		cfg.CircuitBreaker.MinRequests, cfg.CircuitBreaker.FailureThreshold)
}

// NewModelCircuitBreaker creates a breaker for model info lookups. Model info
// is less critical, so the trip conditions are more lenient than configured.
func NewModelCircuitBreaker(operationType string, cfg *config.OperationAIConfig, logger *errors.Logger) *ModelCircuitBreaker {
	return newBreaker[*genai.Model](
		fmt.Sprintf("AI-Model-%s", operationType), operationType, cfg, logger, 5, 0.8)
}

func newBreaker[T any](name, operationType string, cfg *config.OperationAIConfig, logger *errors.Logger, minRequests uint32, failureThreshold float64) *Breaker[T] {
	if !cfg.CircuitBreaker.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.CircuitBreaker.MaxRequests,
		Interval:    cfg.CircuitBreaker.Interval,
		Timeout:     cfg.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= failureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Info("Circuit breaker state changed",
				"name", name,
				"operation_type", operationType,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.CircuitBreaker.MaxRequests,
				"failure_threshold", failureThreshold)
		},
	}

	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs the provided function with circuit breaker protection
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// GetStats returns circuit breaker statistics
func (b *Breaker[T]) GetStats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}

	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is in closed state
func (b *Breaker[T]) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true // If no circuit breaker, consider it healthy
	}
	return b.cb.State() == gobreaker.StateClosed
}
