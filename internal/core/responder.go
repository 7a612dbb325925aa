// ABOUTME: Responder runs one chat turn: retrieve, clarify or answer, attribute sources, record
// ABOUTME: External failures become an apology answer so the session stays usable
package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/harper/optimedix/internal/llm"
	"github.com/harper/optimedix/internal/metrics"
	"github.com/harper/optimedix/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrNilSession is returned when Chat is called without a session
	ErrNilSession = errors.New("chat requires a session")
	// ErrEmptyQuery is returned for blank queries
	ErrEmptyQuery = errors.New("query cannot be empty")
)

// Searcher is the part of the vector index the responder needs
type Searcher interface {
	Query(ctx context.Context, vector []float32, topK int) (models.RetrievalResult, error)
}

// TranscriptStore persists transcript turns beyond the process lifetime
type TranscriptStore interface {
	Append(ctx context.Context, sessionID string, turn models.ConversationTurn) error
}

// ResponderConfig holds the tunables of a chat turn
type ResponderConfig struct {
	TopK            int
	MaxOutputTokens int
	Temperature     float64
	// MergeReplies prefixes a clarifying reply with the query that asked for it
	MergeReplies bool
	FollowUps    FollowUpTable
}

// DefaultResponderConfig mirrors the configuration defaults
func DefaultResponderConfig() ResponderConfig {
	return ResponderConfig{
		TopK:            8,
		MaxOutputTokens: 2048,
		Temperature:     0.1,
		MergeReplies:    true,
		FollowUps:       DefaultFollowUpTable(),
	}
}

// Responder is shared by every session; per-conversation state lives in Session
type Responder struct {
	embedder    llm.Embedder
	index       Searcher
	generator   llm.Generator
	prompts     *PromptBuilder
	cfg         ResponderConfig
	transcripts TranscriptStore
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// ResponderOption configures optional collaborators
type ResponderOption func(*Responder)

// WithTranscriptStore persists every recorded turn
func WithTranscriptStore(store TranscriptStore) ResponderOption {
	return func(r *Responder) { r.transcripts = store }
}

// WithMetrics counts reply outcomes
func WithMetrics(m *metrics.Metrics) ResponderOption {
	return func(r *Responder) { r.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) ResponderOption {
	return func(r *Responder) { r.logger = l }
}

// NewResponder creates a Responder
func NewResponder(embedder llm.Embedder, index Searcher, generator llm.Generator, cfg ResponderConfig, opts ...ResponderOption) *Responder {
	if cfg.TopK <= 0 {
		cfg.TopK = 8
	}
	if cfg.FollowUps == nil {
		cfg.FollowUps = DefaultFollowUpTable()
	}
	r := &Responder{
		embedder:  embedder,
		index:     index,
		generator: generator,
		prompts:   NewPromptBuilder(),
		cfg:       cfg,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Chat processes one user query for session s.
//
// The error is non-nil only for a nil session or a blank query. Every other
// failure is reported as an Answer with OutcomeFailed.
func (r *Responder) Chat(ctx context.Context, s *Session, query string) (models.Reply, error) {
	if s == nil {
		return nil, ErrNilSession
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user := models.ConversationTurn{Role: models.RoleUser, Content: query, Timestamp: time.Now()}
	r.record(ctx, s, user)

	effective := query
	if s.followUp.Pending && r.cfg.MergeReplies && s.followUp.OriginalQuery != "" {
		effective = s.followUp.OriginalQuery + "\nAdditional details: " + query
	}

	reply := r.respond(ctx, s, query, effective)

	assistant := models.ConversationTurn{Role: models.RoleAssistant, Content: reply.Message(), Timestamp: time.Now()}
	r.record(ctx, s, assistant)

	switch rep := reply.(type) {
	case *models.ClarificationRequest:
		s.followUp.Await(effective, rep.Questions)
		s.memory.AppendExchange(user, assistant)
		r.metrics.ObserveReply("clarification")
	case *models.Answer:
		if rep.Outcome != models.OutcomeFailed {
			s.followUp.Clear()
			s.memory.AppendExchange(user, assistant)
		}
		r.metrics.ObserveReply(string(rep.Outcome))
	}
	return reply, nil
}

// respond runs retrieval, the follow-up check and generation
func (r *Responder) respond(ctx context.Context, s *Session, raw, effective string) models.Reply {
	vector, err := r.embedder.Embed(ctx, effective)
	if err != nil {
		return r.fail(s, &models.RetrievalFailure{Stage: "embed", Err: err})
	}

	results, err := r.index.Query(ctx, vector, r.cfg.TopK)
	if err != nil {
		return r.fail(s, &models.RetrievalFailure{Stage: "query", Err: err})
	}
	if len(results) > r.cfg.TopK {
		results = results[:r.cfg.TopK]
	}
	if len(results) == 0 {
		r.logger.Debug("no relevant context", zap.String("session_id", s.ID))
		return &models.Answer{Text: models.NoContextMessage, Outcome: models.OutcomeNoContext}
	}

	if questions := r.cfg.FollowUps.Questions(raw); len(questions) > 0 {
		r.logger.Debug("asking for clarification",
			zap.String("session_id", s.ID),
			zap.Int("questions", len(questions)),
		)
		return &models.ClarificationRequest{Questions: questions}
	}

	prompt, err := r.prompts.Build(results.Texts(), s.memory.Serialize(), effective)
	if err != nil {
		return r.fail(s, &models.GenerationFailure{Err: err})
	}

	text, err := r.generator.Generate(ctx, prompt, llm.GenerateOptions{
		MaxOutputTokens: r.cfg.MaxOutputTokens,
		Temperature:     r.cfg.Temperature,
	})
	if err != nil {
		return r.fail(s, &models.GenerationFailure{Err: err})
	}

	sources := results.Sources()
	return &models.Answer{
		Text:    models.WithSources(text, sources),
		Sources: sources,
		Outcome: models.OutcomeAnswered,
	}
}

func (r *Responder) fail(s *Session, err error) *models.Answer {
	stage := "generate"
	var rf *models.RetrievalFailure
	if errors.As(err, &rf) {
		stage = rf.Stage
	}
	r.logger.Error("chat turn failed",
		zap.String("session_id", s.ID),
		zap.String("stage", stage),
		zap.Error(err),
	)
	return &models.Answer{Text: models.ApologyMessage, Outcome: models.OutcomeFailed, Err: err}
}

// record appends to the in-memory transcript and, when configured, the persistent one
func (r *Responder) record(ctx context.Context, s *Session, turn models.ConversationTurn) {
	s.transcript = append(s.transcript, turn)
	if r.transcripts == nil {
		return
	}
	if err := r.transcripts.Append(ctx, s.ID, turn); err != nil {
		r.logger.Warn("failed to persist transcript turn",
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
	}
}

// Search embeds query and returns the top matches without generating an answer
func (r *Responder) Search(ctx context.Context, query string, topK int) (models.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = r.cfg.TopK
	}
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &models.RetrievalFailure{Stage: "embed", Err: err}
	}
	results, err := r.index.Query(ctx, vector, topK)
	if err != nil {
		return nil, &models.RetrievalFailure{Stage: "query", Err: err}
	}
	return results, nil
}
