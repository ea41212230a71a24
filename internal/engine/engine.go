package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpbot/backend/internal/escalate"
	"github.com/helpbot/backend/internal/guard"
	"github.com/helpbot/backend/internal/intent"
	"github.com/helpbot/backend/internal/match"
	"github.com/helpbot/backend/internal/metrics"
	"github.com/helpbot/backend/internal/nlp"
	"github.com/helpbot/backend/internal/paginate"
	"github.com/helpbot/backend/internal/session"
	"github.com/helpbot/backend/internal/storage/models"
)

// Storage is the slice of the storage collaborator the engine consumes.
// The records it serves must stay consistent for the duration of one
// query; cross-query snapshot isolation is not required. Expiring stale
// session rows is the collaborator's responsibility.
type Storage interface {
	FetchAllRecords(ctx context.Context) ([]models.KnowledgeRecord, error)
	FetchPopular(ctx context.Context, limit int) ([]models.KnowledgeRecord, error)
	FetchRecord(ctx context.Context, id int64) (*models.KnowledgeRecord, error)
	IncrementViewCount(ctx context.Context, id int64) error
	AppendQueryLog(ctx context.Context, e models.QueryLogEntry) error
	AppendFeedback(ctx context.Context, e models.FeedbackEntry) error
	FetchSessionHistory(ctx context.Context, sessionID string, since time.Time) ([]models.CategoryFrequency, error)
	FetchUnseenByCategory(ctx context.Context, category, sessionID string, limit int) ([]string, error)
	AppendEscalation(ctx context.Context, rec models.EscalationRecord) (int64, error)
	UpsertSession(ctx context.Context, sessionID, userName, lastQuery string, currentPage, totalPages int) error
}

// PopularCache is an optional read-through cache for popular-record
// lists. A nil cache means every read goes to storage.
type PopularCache interface {
	GetPopular(ctx context.Context, limit int) ([]models.KnowledgeRecord, bool)
	SetPopular(ctx context.Context, limit int, records []models.KnowledgeRecord)
	Invalidate(ctx context.Context)
}

type Options struct {
	RateLimit      int
	RateWindow     time.Duration
	PerPage        int
	MatchThreshold float64
	PopularLimit   int
	HelpListLimit  int
}

func DefaultOptions() Options {
	return Options{
		RateLimit:      10,
		RateWindow:     time.Minute,
		PerPage:        5,
		MatchThreshold: match.DefaultThreshold,
		PopularLimit:   5,
		HelpListLimit:  20,
	}
}

type Request struct {
	Input     string
	UserName  string
	SessionID string
	Page      int
}

// Engine resolves free-text queries against the knowledge base. One
// instance serves many concurrent callers; the rate-limit and session
// tables it owns serialize their own updates.
type Engine struct {
	store    Storage
	cache    PopularCache
	limiter  *guard.RateLimiter
	sessions *session.Store
	matcher  *match.Matcher
	workflow *escalate.Workflow
	opts     Options
	logger   *zap.Logger
}

func New(store Storage, cache PopularCache, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 5
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	if opts.PopularLimit <= 0 {
		opts.PopularLimit = 5
	}
	if opts.HelpListLimit <= 0 {
		opts.HelpListLimit = 20
	}

	return &Engine{
		store:    store,
		cache:    cache,
		limiter:  guard.NewRateLimiter(opts.RateLimit, opts.RateWindow, logger),
		sessions: session.NewStore(),
		matcher:  match.NewMatcher(opts.MatchThreshold),
		workflow: escalate.NewWorkflow(store, logger),
		opts:     opts,
		logger:   logger,
	}
}

// Resolve processes one query end to end: guard, intent, dispatch,
// assemble. Every failure path yields a well-formed Response; nothing
// panics across this boundary.
func (e *Engine) Resolve(ctx context.Context, req Request) (resp Response) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Unexpected failure during query resolution",
				zap.Any("panic", r),
				zap.String("session_id", req.SessionID),
			)
			resp = e.errorResponse(errKindUnexpected)
		}
		metrics.QueryDuration.Observe(time.Since(start).Seconds())
		metrics.QueriesTotal.WithLabelValues(string(resp.State)).Inc()
		metrics.ConfidenceScore.Observe(resp.Confidence)
	}()

	if req.SessionID == "" {
		req.SessionID = fmt.Sprintf("%s_%s", req.UserName, uuid.New().String())
	}
	if req.Page < 1 {
		req.Page = 1
	}

	identity := req.UserName + "_" + req.SessionID
	if !e.limiter.Allow(identity) {
		metrics.RateLimitRejections.Inc()
		return e.errorResponse(errorKind(ErrRateLimited))
	}

	if !guard.ValidateInput(req.Input) {
		metrics.ValidationRejections.Inc()
		return e.errorResponse(errorKind(ErrValidation))
	}

	in := intent.Classify(req.Input)
	metrics.IntentsTotal.WithLabelValues(string(in)).Inc()

	switch in {
	case intent.Greeting:
		return e.handleGreeting(ctx, req)
	case intent.Escalation:
		return e.handleEscalation(ctx, req)
	case intent.Help:
		return e.handleHelp(ctx, req)
	default:
		return e.handleQuestion(ctx, req)
	}
}

func (e *Engine) handleGreeting(ctx context.Context, req Request) Response {
	return Response{
		State:       StateGreeting,
		Message:     pick(greetingMessages),
		Results:     e.popular(ctx, e.opts.PopularLimit),
		Suggestions: e.suggestions(ctx, req.SessionID),
		Confidence:  1.0,
		Timestamp:   time.Now(),
	}
}

func (e *Engine) handleEscalation(ctx context.Context, req Request) Response {
	metrics.EscalationsTotal.Inc()
	payload := e.workflow.Escalate(ctx, req.SessionID, req.UserName, req.Input)

	return Response{
		State:      StateEscalation,
		Message:    "I'll connect you with human support. Here are your options:",
		Escalation: &payload,
		Confidence: 1.0,
		Timestamp:  time.Now(),
	}
}

func (e *Engine) handleHelp(ctx context.Context, req Request) Response {
	popular := e.popular(ctx, e.opts.HelpListLimit)
	items, meta := paginate.Page(popular, req.Page, e.opts.PerPage)

	return Response{
		State:       StateHelp,
		Message:     pick(helpMessages),
		Results:     items,
		Pagination:  &meta,
		Suggestions: e.suggestions(ctx, req.SessionID),
		Confidence:  0.9,
		Timestamp:   time.Now(),
	}
}

func (e *Engine) handleQuestion(ctx context.Context, req Request) Response {
	records, err := e.store.FetchAllRecords(ctx)
	if err != nil {
		storageErr := &StorageError{Op: "fetch_all_records", Err: err}
		e.logger.Error("Knowledge base read failed", zap.Error(storageErr))
		return e.errorResponse(errorKind(storageErr))
	}

	matches := e.matcher.Rank(req.Input, records)
	metrics.MatchResults.Observe(float64(len(matches)))

	if len(matches) == 0 {
		return Response{
			State:       StateNoMatch,
			Message:     pick(noMatchMessages),
			Results:     e.popular(ctx, e.opts.PopularLimit),
			Suggestions: e.suggestions(ctx, req.SessionID),
			Confidence:  0.0,
			Timestamp:   time.Now(),
		}
	}

	results := make([]models.KnowledgeRecord, len(matches))
	resultIDs := make([]int64, len(matches))
	for i, m := range matches {
		results[i] = m.Record
		resultIDs[i] = m.Record.ID
	}

	// The top composite score divided by 100 is the confidence. The
	// overlap bonus can push it above 1.0; that overflow is part of the
	// scoring contract and is passed through unclamped.
	confidence := matches[0].Score / 100.0
	top := matches[0].Record

	items, meta := paginate.Page(results, req.Page, e.opts.PerPage)

	if err := e.store.IncrementViewCount(ctx, top.ID); err != nil {
		e.logger.Warn("View count update failed",
			zap.Int64("question_id", top.ID),
			zap.Error(err),
		)
	}

	logEntry := models.QueryLogEntry{
		UserName:       req.UserName,
		SessionID:      req.SessionID,
		RawQuery:       req.Input,
		ProcessedQuery: strings.Join(nlp.Normalize(req.Input), " "),
		MatchedID:      top.ID,
		Confidence:     confidence,
		ResponseType:   string(StateMatch),
	}
	if err := e.store.AppendQueryLog(ctx, logEntry); err != nil {
		e.logger.Warn("Query log write failed", zap.Error(err))
	}

	e.sessions.Update(req.SessionID, req.UserName, func(st *session.State) {
		st.LastQuery = req.Input
		st.LastResultIDs = resultIDs
		st.CurrentPage = req.Page
		st.TotalPages = meta.TotalPages
	})
	if err := e.store.UpsertSession(ctx, req.SessionID, req.UserName, req.Input, req.Page, meta.TotalPages); err != nil {
		e.logger.Warn("Session persistence failed", zap.Error(err))
	}

	return Response{
		State:      StateMatch,
		Message:    fmt.Sprintf("I found %d relevant results:", len(results)),
		Results:    items,
		Pagination: &meta,
		Confidence: confidence,
		Timestamp:  time.Now(),
	}
}

// SubmitFeedback records a feedback score for a record. The stored
// feedback value becomes the mean of all scores for that record.
func (e *Engine) SubmitFeedback(ctx context.Context, entry models.FeedbackEntry) error {
	if err := e.store.AppendFeedback(ctx, entry); err != nil {
		metrics.FeedbackTotal.WithLabelValues("error").Inc()
		return &StorageError{Op: "append_feedback", Err: err}
	}

	metrics.FeedbackTotal.WithLabelValues("ok").Inc()
	if e.cache != nil {
		e.cache.Invalidate(ctx)
	}
	return nil
}

// TopRecords exposes the popular list to the transport layer.
func (e *Engine) TopRecords(ctx context.Context, limit int) []models.KnowledgeRecord {
	if limit <= 0 {
		limit = e.opts.PopularLimit
	}
	return e.popular(ctx, limit)
}

// Answer returns one record's answer text, with the article link folded
// in when present.
func (e *Engine) Answer(ctx context.Context, id int64) (string, error) {
	record, err := e.store.FetchRecord(ctx, id)
	if err != nil {
		return "", &StorageError{Op: "fetch_record", Err: err}
	}

	if record.ArticleLink != "" {
		return fmt.Sprintf("%s\n\nMore info: %s", record.Answer, record.ArticleLink), nil
	}
	return record.Answer, nil
}

func (e *Engine) Session(sessionID string) (session.State, bool) {
	return e.sessions.Get(sessionID)
}

func (e *Engine) errorResponse(kind string) Response {
	return Response{
		State:      StateError,
		Message:    errorMessages[kind],
		ErrorKind:  kind,
		Confidence: 0.0,
		Timestamp:  time.Now(),
	}
}

// popular reads the popular-record list through the cache when one is
// configured. A storage failure degrades to an empty list; greeting,
// help and no-match responses still render without it.
func (e *Engine) popular(ctx context.Context, limit int) []models.KnowledgeRecord {
	if e.cache != nil {
		if records, ok := e.cache.GetPopular(ctx, limit); ok {
			metrics.CacheHits.WithLabelValues("popular").Inc()
			return records
		}
		metrics.CacheMisses.WithLabelValues("popular").Inc()
	}

	records, err := e.store.FetchPopular(ctx, limit)
	if err != nil {
		e.logger.Warn("Popular records lookup failed", zap.Error(err))
		return nil
	}

	if e.cache != nil {
		e.cache.SetPopular(ctx, limit, records)
	}
	return records
}

// suggestions derives follow-up questions from the session's recent
// category history. Any failure yields an empty list, never an aborted
// query.
func (e *Engine) suggestions(ctx context.Context, sessionID string) []string {
	history, err := e.store.FetchSessionHistory(ctx, sessionID, time.Now().Add(-24*time.Hour))
	if err != nil {
		e.logger.Warn("Session history lookup failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return nil
	}

	var suggestions []string
	for _, cat := range history {
		questions, err := e.store.FetchUnseenByCategory(ctx, cat.Category, sessionID, 2)
		if err != nil {
			e.logger.Warn("Category suggestion lookup failed",
				zap.String("category", cat.Category),
				zap.Error(err),
			)
			continue
		}
		suggestions = append(suggestions, questions...)
	}

	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}
	return suggestions
}
