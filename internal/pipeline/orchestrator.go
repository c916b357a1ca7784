// Package pipeline drives tailoring sessions: job analysis feeds document
// generation, drafts loop through user feedback under a hard iteration cap,
// and an approved CV becomes input to the cover letter.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"applykit/internal/boundary"
	"applykit/internal/errors"
	"applykit/internal/types"
)

// Generator produces one document draft from a structured request
type Generator interface {
	GenerateDocument(ctx context.Context, req *types.GenerationRequest) (string, error)
}

// State is the refinement loop state of one document
type State string

const (
	// StatePending means generation has not started
	StatePending State = "pending"
	// StateReview means a draft exists and waits for approval or feedback
	StateReview State = "awaiting_review"
	// StateApproved is terminal
	StateApproved State = "approved"
	// StateIterationLimit is terminal: the refinement cap was hit and the
	// document can no longer be regenerated or approved in this session
	StateIterationLimit State = "iteration_limit_reached"
)

// MaxIterations caps the refinement loop per document. The first generation
// is iteration 1, so at most four feedback rounds follow it.
const MaxIterations = 5

// DraftStatus is the review status carried on a draft
type DraftStatus string

const (
	StatusPendingReview  DraftStatus = "pending-review"
	StatusApproved       DraftStatus = "approved"
	StatusIterationLimit DraftStatus = "iteration-limit-reached"
)

// Draft is one generated document iteration after boundary enforcement
type Draft struct {
	Kind      types.DocumentKind `json:"kind"`
	Iteration int                `json:"iteration"`
	Status    DraftStatus        `json:"status"`
	Public    string             `json:"public"`
	Internal  string             `json:"internal"`
	Warnings  []string           `json:"warnings,omitempty"`
	Report    boundary.Report    `json:"report"`
}

// Orchestrator runs the refinement loop for a single document. All methods
// are safe for concurrent use; state transitions are strict and invalid
// calls fail without side effects.
type Orchestrator struct {
	mu        sync.Mutex
	gen       Generator
	base      types.GenerationRequest
	state     State
	iteration int
	current   *Draft
	logger    *errors.Logger
}

// NewOrchestrator prepares a loop for the document described by base.
// base.Iteration and base.Feedback are owned by the orchestrator.
func NewOrchestrator(gen Generator, base types.GenerationRequest, logger *errors.Logger) *Orchestrator {
	return &Orchestrator{
		gen:    gen,
		base:   base,
		state:  StatePending,
		logger: logger,
	}
}

// State returns the current loop state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Current returns the latest draft, or nil before the first generation
func (o *Orchestrator) Current() *Draft {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Start generates the first draft and enters review
func (o *Orchestrator) Start(ctx context.Context) (*Draft, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StatePending {
		return nil, errors.NewPipelineError(errors.ErrCodeInvalidTransition,
			fmt.Sprintf("cannot start generation in state %s", o.state), nil)
	}
	return o.generate(ctx, "")
}

// Refine generates the next draft from user feedback. Feedback on the last
// permitted iteration transitions to the terminal iteration-limit state
// without invoking the generator; the caller learns about it from the
// returned draft's status, not from an error.
func (o *Orchestrator) Refine(ctx context.Context, feedback string) (*Draft, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateReview {
		return nil, errors.NewPipelineError(errors.ErrCodeInvalidTransition,
			fmt.Sprintf("cannot refine in state %s", o.state), nil)
	}
	if o.iteration >= MaxIterations {
		o.state = StateIterationLimit
		o.current.Status = StatusIterationLimit
		o.logger.Info("Iteration limit reached, document is terminal",
			"kind", o.base.Kind, "iterations", o.iteration)
		return o.current, nil
	}
	return o.generate(ctx, feedback)
}

// Approve finalizes the current draft
func (o *Orchestrator) Approve() (*Draft, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateReview:
		o.state = StateApproved
		o.current.Status = StatusApproved
		return o.current, nil
	case StateIterationLimit:
		return nil, errors.NewPipelineError(errors.ErrCodeIterationLimit,
			fmt.Sprintf("iteration limit of %d reached for %s; start a new session to continue",
				MaxIterations, o.base.Kind), nil)
	default:
		return nil, errors.NewPipelineError(errors.ErrCodeInvalidTransition,
			fmt.Sprintf("cannot approve in state %s", o.state), nil)
	}
}

// generate runs one generation call and boundary pass. Caller holds the lock.
func (o *Orchestrator) generate(ctx context.Context, feedback string) (*Draft, error) {
	req := o.base
	req.Iteration = o.iteration + 1
	req.Feedback = feedback

	raw, err := o.gen.GenerateDocument(ctx, &req)
	if err != nil {
		// State is unchanged; the caller may retry the same transition
		return nil, err
	}

	result := boundary.Split(raw, o.base.Kind)
	draft := &Draft{
		Kind:      o.base.Kind,
		Iteration: req.Iteration,
		Status:    StatusPendingReview,
		Public:    result.Public,
		Internal:  result.Internal,
		Report:    result.Report,
	}
	if result.Report.MissingBoundary {
		draft.Warnings = append(draft.Warnings,
			"generated output had no analysis separator; content split is low confidence")
	}
	if n := len(result.Report.Stripped); n > 0 {
		draft.Warnings = append(draft.Warnings,
			fmt.Sprintf("%d internal analysis fragment(s) were stripped from the document", n))
		// A quality signal, never a failure; the content is already stripped
		o.logger.LogError(errors.NewPipelineError(errors.ErrCodeBoundaryViolation,
			fmt.Sprintf("%d internal analysis fragment(s) leaked into generated output", n), nil),
			"Stripped internal analysis from generated document",
			"kind", o.base.Kind, "iteration", req.Iteration, "patterns", result.Report.Stripped)
	}

	o.iteration = req.Iteration
	o.current = draft
	o.state = StateReview
	return draft, nil
}
