package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	applykitErrors "applykit/internal/errors"
	"applykit/internal/observability"
	"applykit/internal/pipeline"
	"applykit/internal/types"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// createAnalyzeHandler wraps the job analysis handler with observability
func (s *Server) createAnalyzeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("applykit.api")
		ctx, span := tracer.Start(ctx, "api.analyze")
		defer span.End()

		var req AnalyzeRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		hasURL := strings.TrimSpace(req.PostingURL) != ""
		hasText := strings.TrimSpace(req.PostingText) != ""
		if hasURL == hasText {
			err := fmt.Errorf("exactly one of postingUrl and postingText is required")
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid posting source", err.Error(), http.StatusBadRequest)
			return
		}
		if hasText && len(req.PostingText) > int(s.MaxRequestSize/2) {
			err := fmt.Errorf("posting text too large: %d chars", len(req.PostingText))
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Posting text too large", fmt.Sprintf("postingText exceeds recommended size limit of %d characters", s.MaxRequestSize/2), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Bool("request.from_url", hasURL),
			attribute.Int("request.posting_length", len(req.PostingText)),
			attribute.String("operation", "analyze"),
		)

		metrics := om.GetMetrics()
		var job *types.JobRequirements
		var err error
		if hasURL {
			job, err = s.Analyzer.AnalyzeURL(ctx, req.PostingURL)
		} else {
			job, err = s.Analyzer.AnalyzeText(ctx, req.PostingText)
		}

		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "analysis"))
			metrics.RecordBusinessMetric(ctx, "job_analyzed", false, om)
			writeAppError(w, "Failed to analyze job posting", err)
			return
		}

		metrics.RecordBusinessMetric(ctx, "job_analyzed", true, om,
			attribute.String("language", job.Language),
			attribute.Bool("language_fallback", job.LanguageWarning))

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("job.language", job.Language),
			attribute.Int("job.must_have_count", len(job.MustHave)),
		)

		writeJSONResponse(w, span, job)
	}
}

// createIngestHandler wraps the profile ingest handler with observability
func (s *Server) createIngestHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("applykit.api")
		ctx, span := tracer.Start(ctx, "api.profile.ingest")
		defer span.End()

		var req IngestRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(req.Source) == "" {
			err := fmt.Errorf("missing source document")
			span.RecordError(err)
			writeErrorResponse(w, "Missing source document", "source field is required", http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.source_length", len(req.Source)),
			attribute.String("operation", "ingest"),
		)

		metrics := om.GetMetrics()
		added, hit, err := s.Pipeline.IngestSource(ctx, []byte(req.Source))
		metrics.RecordCacheLookup(ctx, hit)
		if err != nil {
			span.RecordError(err)
			metrics.RecordBusinessMetric(ctx, "profile_merged", false, om)
			writeAppError(w, "Failed to ingest source document", err)
			return
		}

		metrics.RecordBusinessMetric(ctx, "profile_merged", true, om,
			attribute.Int("elements_added", added),
			attribute.Bool("cache_hit", hit))

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("elements_added", added),
			attribute.Bool("cache_hit", hit),
		)

		writeJSONResponse(w, span, IngestResponse{ElementsAdded: added, CacheHit: hit})
	}
}

// createMergeHandler wraps the direct profile merge handler with observability
func (s *Server) createMergeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("applykit.api")
		ctx, span := tracer.Start(ctx, "api.profile.merge")
		defer span.End()

		var req types.MergeRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(req.Path) == "" {
			err := fmt.Errorf("missing merge path")
			span.RecordError(err)
			writeErrorResponse(w, "Missing merge path", "path field is required", http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.String("request.path", req.Path),
			attribute.Int("request.value_count", len(req.Values)),
			attribute.String("operation", "merge"),
		)

		metrics := om.GetMetrics()
		added, err := s.Store.MergeAppend(ctx, req.Path, req.Values)
		if err != nil {
			span.RecordError(err)
			metrics.RecordBusinessMetric(ctx, "profile_merged", false, om)
			writeAppError(w, "Failed to merge into profile", err)
			return
		}

		metrics.RecordBusinessMetric(ctx, "profile_merged", true, om,
			attribute.Int("elements_added", added))

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("elements_added", added),
		)

		writeJSONResponse(w, span, MergeResponse{ElementsAdded: added})
	}
}

// createSessionCreateHandler wraps session creation with observability
func (s *Server) createSessionCreateHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("applykit.api")
		ctx, span := tracer.Start(ctx, "api.sessions.create")
		defer span.End()

		var req pipeline.SessionRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Bool("request.from_url", strings.TrimSpace(req.PostingURL) != ""),
			attribute.String("operation", "session_create"),
		)

		metrics := om.GetMetrics()
		session, draft, err := s.Pipeline.StartSession(ctx, req)
		if err != nil {
			span.RecordError(err)
			metrics.RecordBusinessMetric(ctx, "document_generated", false, om,
				attribute.String("kind", string(types.KindCV)))
			writeAppError(w, "Failed to start tailoring session", err)
			return
		}

		metrics.RecordBusinessMetric(ctx, "document_generated", true, om,
			attribute.String("kind", string(types.KindCV)))
		if len(draft.Warnings) > 0 {
			metrics.RecordBoundaryStrips(ctx, string(types.KindCV), int64(len(draft.Warnings)))
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("session.id", session.ID),
			attribute.String("job.language", session.Job.Language),
		)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		writeJSONResponse(w, span, sessionResponse(session, draft))
	}
}

// createSessionGetHandler returns the current state of a session
func (s *Server) createSessionGetHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracer := om.Tracer("applykit.api")
		_, span := tracer.Start(r.Context(), "api.sessions.get")
		defer span.End()

		session, err := s.Pipeline.Session(r.PathValue("id"))
		if err != nil {
			span.RecordError(err)
			writeAppError(w, "Session not found", err)
			return
		}

		span.SetAttributes(attribute.String("session.id", session.ID))
		writeJSONResponse(w, span, sessionResponse(session, session.CurrentDraft()))
	}
}

// createFeedbackHandler refines the session's current draft with reviewer feedback
func (s *Server) createFeedbackHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("applykit.api")
		ctx, span := tracer.Start(ctx, "api.sessions.feedback")
		defer span.End()

		var req FeedbackRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(req.Feedback) == "" {
			err := fmt.Errorf("missing feedback")
			span.RecordError(err)
			writeErrorResponse(w, "Missing feedback", "feedback field is required", http.StatusBadRequest)
			return
		}

		sessionID := r.PathValue("id")
		span.SetAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("operation", "feedback"),
		)

		metrics := om.GetMetrics()
		draft, err := s.Pipeline.Feedback(ctx, sessionID, req.Feedback)
		if err != nil {
			span.RecordError(err)
			writeAppError(w, "Failed to refine draft", err)
			return
		}

		session, err := s.Pipeline.Session(sessionID)
		if err != nil {
			span.RecordError(err)
			writeAppError(w, "Session not found", err)
			return
		}

		// Feedback at the iteration cap returns the existing draft in its
		// terminal status without a generation call
		if draft.Status != pipeline.StatusIterationLimit {
			kind := string(session.Stage())
			metrics.RecordBusinessMetric(ctx, "document_generated", true, om,
				attribute.String("kind", kind),
				attribute.Int("iteration", draft.Iteration))
			if len(draft.Warnings) > 0 {
				metrics.RecordBoundaryStrips(ctx, kind, int64(len(draft.Warnings)))
			}
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("draft.iteration", draft.Iteration),
			attribute.String("draft.status", string(draft.Status)),
		)

		writeJSONResponse(w, span, sessionResponse(session, draft))
	}
}

// createApproveHandler approves the session's current draft
func (s *Server) createApproveHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("applykit.api")
		ctx, span := tracer.Start(ctx, "api.sessions.approve")
		defer span.End()

		sessionID := r.PathValue("id")
		span.SetAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("operation", "approve"),
		)

		metrics := om.GetMetrics()
		draft, err := s.Pipeline.Approve(ctx, sessionID)
		if err != nil {
			span.RecordError(err)
			writeAppError(w, "Failed to approve draft", err)
			return
		}

		session, err := s.Pipeline.Session(sessionID)
		if err != nil {
			span.RecordError(err)
			writeAppError(w, "Session not found", err)
			return
		}

		switch session.Stage() {
		case pipeline.StageLetter:
			// CV approval produced the first cover letter draft
			metrics.RecordRefinementIterations(ctx, string(types.KindCV), int64(draft.Iteration))
			metrics.RecordBusinessMetric(ctx, "document_generated", true, om,
				attribute.String("kind", string(types.KindCoverLetter)))
		case pipeline.StageComplete:
			metrics.RecordRefinementIterations(ctx, string(types.KindCoverLetter), int64(draft.Iteration))
			metrics.RecordBusinessMetric(ctx, "session_approved", true, om)
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("session.stage", string(session.Stage())),
		)

		writeJSONResponse(w, span, sessionResponse(session, draft))
	}
}

func sessionResponse(session *pipeline.Session, draft *pipeline.Draft) SessionResponse {
	return SessionResponse{
		ID:    session.ID,
		Stage: session.Stage(),
		Job:   session.Job,
		Draft: draft,
	}
}

// writeAppError maps application error codes onto HTTP status codes
func writeAppError(w http.ResponseWriter, label string, err error) {
	status := http.StatusInternalServerError
	var appErr *applykitErrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case applykitErrors.ErrCodeInvalidRequest, applykitErrors.ErrCodeInvalidFormat:
			status = http.StatusBadRequest
		case applykitErrors.ErrCodeSessionNotFound:
			status = http.StatusNotFound
		case applykitErrors.ErrCodeInvalidTransition, applykitErrors.ErrCodeIterationLimit:
			status = http.StatusConflict
		case applykitErrors.ErrCodeUnreadableSource:
			status = http.StatusBadGateway
		}
	}
	writeErrorResponse(w, label, err.Error(), status)
}

func writeJSONResponse(w http.ResponseWriter, span oteltrace.Span, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		span.RecordError(err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// createRateLimitMiddleware adds observability to rate limiting
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	originalMiddleware := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		return originalMiddleware(func(w http.ResponseWriter, r *http.Request) {
			// Wrap the ResponseWriter to detect rate limit responses
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: 200}

			next(wrapper, r)

			if wrapper.statusCode == http.StatusTooManyRequests {
				metrics := om.GetMetrics()
				metrics.RecordBusinessMetric(r.Context(), "rate_limit_hit", true, om,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		})
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
