package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"applykit/internal/analyzer"
	"applykit/internal/errors"
	"applykit/internal/profile"
	"applykit/internal/types"
)

// Stage is the document currently being refined in a session
type Stage string

const (
	StageCV       Stage = "cv"
	StageLetter   Stage = "cover-letter"
	StageComplete Stage = "complete"
)

// SessionRequest starts a tailoring session. Exactly one of PostingURL and
// PostingText must be set.
type SessionRequest struct {
	PostingURL  string                 `json:"postingUrl,omitempty"`
	PostingText string                 `json:"postingText,omitempty"`
	Directives  string                 `json:"directives,omitempty"`
	CVLimit     types.LengthConstraint `json:"cvLimit"`
	LetterLimit types.LengthConstraint `json:"letterLimit"`
}

// Session is one job application being tailored. The CV is refined first;
// its approved content feeds the cover letter.
type Session struct {
	mu sync.Mutex

	ID          string
	Job         *types.JobRequirements
	stage       Stage
	cv          *Orchestrator
	letter      *Orchestrator
	letterLimit types.LengthConstraint
	approvedCV  string
}

// Stage returns the session's current stage
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// ApprovedCV returns the approved CV content, or empty before approval
func (s *Session) ApprovedCV() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.approvedCV
}

// CurrentDraft returns the latest draft of the document under review
func (s *Session) CurrentDraft() *Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.stage {
	case StageCV:
		return s.cv.Current()
	case StageLetter:
		return s.letter.Current()
	default:
		return s.letter.Current()
	}
}

// ProjectSource supplies job-relevant project entries to inject into the
// profile snapshot used for generation
type ProjectSource interface {
	RelevantProjects(ctx context.Context, job *types.JobRequirements) (json.RawMessage, error)
}

// Pipeline wires the profile store, extraction cache, job analyzer, and
// document generator into tailoring sessions.
type Pipeline struct {
	mu       sync.Mutex
	store    *profile.Store
	cache    *profile.ExtractionCache
	analyzer *analyzer.Analyzer
	gen      Generator
	projects ProjectSource
	sessions map[string]*Session
	logger   *errors.Logger
}

// New assembles a pipeline
func New(store *profile.Store, cache *profile.ExtractionCache, jobAnalyzer *analyzer.Analyzer, gen Generator, logger *errors.Logger) *Pipeline {
	return &Pipeline{
		store:    store,
		cache:    cache,
		analyzer: jobAnalyzer,
		gen:      gen,
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// SetProjectSource enables project enrichment of the profile snapshot.
// Enrichment failures never block a session; they only warn.
func (p *Pipeline) SetProjectSource(src ProjectSource) {
	p.projects = src
}

// profileSnapshot serializes the profile, with relevant projects injected
// when a project source is configured
func (p *Pipeline) profileSnapshot(ctx context.Context, job *types.JobRequirements) (string, error) {
	profileJSON, err := p.store.JSON()
	if err != nil {
		return "", err
	}
	if p.projects == nil {
		return profileJSON, nil
	}

	fragment, err := p.projects.RelevantProjects(ctx, job)
	if err != nil {
		p.logger.Warn("Project enrichment failed, continuing without projects", "error", err.Error())
		return profileJSON, nil
	}
	if len(fragment) == 0 {
		return profileJSON, nil
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(profileJSON), &doc); err != nil {
		return profileJSON, nil
	}
	var projects any
	if err := json.Unmarshal(fragment, &projects); err != nil {
		p.logger.Warn("Discarding invalid project fragment", "error", err.Error())
		return profileJSON, nil
	}
	doc["projects"] = projects

	enriched, err := json.Marshal(doc)
	if err != nil {
		return profileJSON, nil
	}
	return string(enriched), nil
}

// IngestSource runs a raw source document through the extraction cache and
// merges the extracted lists into the profile. The extraction payload is a
// JSON object mapping dotted profile paths to lists of values. Returns the
// number of profile elements added and whether the extraction was cached.
func (p *Pipeline) IngestSource(ctx context.Context, source []byte) (int, bool, error) {
	payload, hit, err := p.cache.GetOrExtract(ctx, source)
	if err != nil {
		return 0, false, err
	}

	var byPath map[string][]any
	if err := json.Unmarshal(payload, &byPath); err != nil {
		return 0, hit, errors.NewPipelineError(errors.ErrCodeExtractionFailed,
			"extraction payload is not a path-to-list object", err)
	}

	total := 0
	for path, values := range byPath {
		added, err := p.store.MergeAppend(ctx, path, values)
		if err != nil {
			return total, hit, err
		}
		total += added
	}
	p.logger.Info("Ingested source document", "added", total, "cacheHit", hit)
	return total, hit, nil
}

// StartSession analyzes the posting, generates the first CV draft, and
// registers the session.
func (p *Pipeline) StartSession(ctx context.Context, req SessionRequest) (*Session, *Draft, error) {
	job, err := p.analyzeRequest(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	profileJSON, err := p.profileSnapshot(ctx, job)
	if err != nil {
		return nil, nil, err
	}

	session := &Session{
		ID:          uuid.NewString(),
		Job:         job,
		stage:       StageCV,
		letterLimit: req.LetterLimit,
		cv: NewOrchestrator(p.gen, types.GenerationRequest{
			Kind:        types.KindCV,
			Job:         job,
			ProfileJSON: profileJSON,
			Directives:  req.Directives,
			Constraint:  req.CVLimit,
		}, p.logger),
	}
	// The letter orchestrator is created at CV approval so it can carry
	// the approved content

	draft, err := session.cv.Start(ctx)
	if err != nil {
		return nil, nil, err
	}

	p.mu.Lock()
	p.sessions[session.ID] = session
	p.mu.Unlock()

	p.logger.Info("Tailoring session started",
		"session", session.ID, "language", job.Language, "title", job.JobTitle)
	return session, draft, nil
}

func (p *Pipeline) analyzeRequest(ctx context.Context, req SessionRequest) (*types.JobRequirements, error) {
	hasURL := strings.TrimSpace(req.PostingURL) != ""
	hasText := strings.TrimSpace(req.PostingText) != ""
	if hasURL == hasText {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"exactly one of postingUrl and postingText is required", nil)
	}
	if hasURL {
		return p.analyzer.AnalyzeURL(ctx, req.PostingURL)
	}
	return p.analyzer.AnalyzeText(ctx, req.PostingText)
}

// Session returns a registered session by ID
func (p *Pipeline) Session(id string) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	session, ok := p.sessions[id]
	if !ok {
		return nil, errors.NewPipelineError(errors.ErrCodeSessionNotFound,
			fmt.Sprintf("no session with id %s", id), nil)
	}
	return session, nil
}

// Feedback refines the document currently under review in the session
func (p *Pipeline) Feedback(ctx context.Context, sessionID, feedback string) (*Draft, error) {
	session, err := p.Session(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	active, err := session.activeOrchestrator()
	session.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return active.Refine(ctx, feedback)
}

// Approve finalizes the document under review. Approving the CV advances the
// session to the cover letter and generates its first draft; approving the
// letter completes the session. The returned draft is the first letter draft
// after CV approval, or the approved draft otherwise.
func (p *Pipeline) Approve(ctx context.Context, sessionID string) (*Draft, error) {
	session, err := p.Session(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	switch session.stage {
	case StageCV:
		approved, err := session.cv.Approve()
		if err != nil {
			return nil, err
		}
		session.approvedCV = approved.Public

		profileJSON, err := p.store.JSON()
		if err != nil {
			return nil, err
		}
		base := session.cv.base
		session.letter = NewOrchestrator(p.gen, types.GenerationRequest{
			Kind:        types.KindCoverLetter,
			Job:         session.Job,
			ProfileJSON: profileJSON,
			ApprovedCV:  approved.Public,
			Directives:  base.Directives,
			Constraint:  session.letterLimit,
		}, p.logger)
		session.stage = StageLetter

		p.logger.Info("CV approved, starting cover letter", "session", session.ID)
		return session.letter.Start(ctx)

	case StageLetter:
		approved, err := session.letter.Approve()
		if err != nil {
			return nil, err
		}
		session.stage = StageComplete
		p.logger.Info("Session complete", "session", session.ID)
		return approved, nil

	default:
		return nil, errors.NewPipelineError(errors.ErrCodeInvalidTransition,
			"session is already complete", nil)
	}
}

// activeOrchestrator returns the loop for the current stage. Caller holds
// the session lock.
func (s *Session) activeOrchestrator() (*Orchestrator, error) {
	switch s.stage {
	case StageCV:
		return s.cv, nil
	case StageLetter:
		return s.letter, nil
	default:
		return nil, errors.NewPipelineError(errors.ErrCodeInvalidTransition,
			"session is already complete", nil)
	}
}
