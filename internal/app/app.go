// ABOUTME: Wires configuration into a running assistant: storage, providers, index, ingestor and responder
// ABOUTME: Shared by the CLI, the HTTP API and the MCP server so every surface behaves the same
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harper/optimedix/internal/config"
	"github.com/harper/optimedix/internal/core"
	"github.com/harper/optimedix/internal/ingest"
	"github.com/harper/optimedix/internal/llm"
	"github.com/harper/optimedix/internal/logging"
	"github.com/harper/optimedix/internal/metrics"
	"github.com/harper/optimedix/internal/models"
	"github.com/harper/optimedix/internal/storage/sqlite"
	"github.com/harper/optimedix/internal/util"
	"github.com/harper/optimedix/internal/vectorindex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// InMemoryStorage as storage.path keeps transcripts and the manifest in memory
const InMemoryStorage = ":memory:"

// App owns every long-lived component
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Storage   *sqlite.Storage
	Embedder  llm.Embedder
	Generator llm.Generator
	Index     vectorindex.Index
	Ingestor  *ingest.Ingestor
	Responder *core.Responder
	Sessions  *core.Sessions
}

type options struct {
	embedder  llm.Embedder
	generator llm.Generator
}

// Option overrides a component Open would otherwise build from config
type Option func(*options)

// WithEmbedder uses e instead of the configured embedding provider
func WithEmbedder(e llm.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// WithGenerator uses g instead of the configured LLM provider
func WithGenerator(g llm.Generator) Option {
	return func(o *options) { o.generator = g }
}

// RetryPolicy turns the remote section into a retry policy
func RetryPolicy(cfg *config.Config) util.Policy {
	return util.Policy{
		Attempts:  cfg.RetryAttempts(),
		Timeout:   cfg.Remote.Timeout,
		BaseDelay: cfg.Remote.RetryDelay,
	}
}

// Open builds the assistant. It does not ingest; call Ingest for that.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	a := &App{Config: cfg, Logger: logger, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.New(a.Registry)

	var err error
	if cfg.Storage.Path == InMemoryStorage {
		a.Storage, err = sqlite.NewStorageInMemory()
	} else {
		a.Storage, err = sqlite.NewStorageWithPath(cfg.Storage.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	if err := a.build(ctx, o); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, o options) error {
	cfg := a.Config
	policy := RetryPolicy(cfg)

	embedder := o.embedder
	if embedder == nil {
		e, err := llm.NewEmbedder(ctx, cfg.Embedding, policy)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
		embedder = e
	}
	a.Embedder = llm.InstrumentEmbedder(embedder, a.Metrics)

	generator := o.generator
	if generator == nil {
		g, err := llm.NewGenerator(ctx, cfg.LLM, policy)
		if err != nil {
			return fmt.Errorf("failed to create generator: %w", err)
		}
		generator = g
	}
	a.Generator = llm.InstrumentGenerator(generator, a.Metrics)

	index, err := vectorindex.New(ctx, cfg.Index, vectorindex.Options{
		Storage: a.Storage,
		Retry:   policy,
		Logger:  a.Logger.Named("index"),
	})
	if err != nil {
		return fmt.Errorf("failed to open vector index: %w", err)
	}
	a.Index = vectorindex.Instrument(index, a.Metrics)

	// a mismatched index must fail here, not on the first query
	if err := a.Index.Ensure(ctx, a.Embedder.Dimension()); err != nil {
		if errors.Is(err, models.ErrDimensionMismatch) {
			return err
		}
		a.Logger.Warn("vector index unavailable; ingestion will retry", zap.Error(err))
	}

	chunker, err := core.NewChunkEngine(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return err
	}
	a.Ingestor = ingest.NewIngestor(a.Embedder, a.Index, chunker, ingest.Options{
		BatchSize:         cfg.Embedding.BatchSize,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		Extensions:        cfg.Corpus.Extensions,
		Manifest:          a.Storage.Manifest(vectorindex.CollectionName(cfg.Index.Name, cfg.Index.Namespace)),
		Metrics:           a.Metrics,
		Logger:            a.Logger.Named("ingest"),
	})

	followUps := core.DefaultFollowUpTable()
	if cfg.FollowUp.TriggersFile != "" {
		followUps, err = core.LoadFollowUpTable(cfg.FollowUp.TriggersFile)
		if err != nil {
			return err
		}
	}

	a.Responder = core.NewResponder(a.Embedder, a.Index, a.Generator, core.ResponderConfig{
		TopK:            cfg.Retrieval.TopK,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		Temperature:     cfg.LLM.Temperature,
		MergeReplies:    cfg.FollowUp.MergeReplies,
		FollowUps:       followUps,
	},
		core.WithTranscriptStore(a.Storage.Transcripts()),
		core.WithMetrics(a.Metrics),
		core.WithLogger(a.Logger.Named("responder")),
	)
	a.Sessions = core.NewSessions(cfg.Memory.Window, a.Metrics,
		core.WithIdleTTL(cfg.Memory.SessionTTL),
		core.WithMaxSessions(cfg.Memory.MaxSessions),
	)
	return nil
}

// Close releases the index and the database
func (a *App) Close() error {
	var errs []error
	if a.Index != nil {
		errs = append(errs, a.Index.Close())
	}
	if a.Storage != nil {
		errs = append(errs, a.Storage.Close())
	}
	return errors.Join(errs...)
}

// Ingest synchronizes the index with the configured corpus
func (a *App) Ingest(ctx context.Context) (ingest.Report, error) {
	return a.Ingestor.Ingest(ctx, a.Config.Corpus.Path)
}

// Watcher returns a watcher over the configured corpus
func (a *App) Watcher() *ingest.Watcher {
	return ingest.NewWatcher(a.Ingestor, a.Config.Corpus.Path, a.Config.Corpus.WatchDebounce, a.Logger.Named("watch"))
}

// Chat runs one turn in the session named sessionID, creating it when needed
func (a *App) Chat(ctx context.Context, sessionID, query string) (*core.Session, models.Reply, error) {
	s := a.Sessions.GetOrCreate(sessionID)
	ctx = logging.WithSessionID(ctx, s.ID)
	reply, err := a.Responder.Chat(ctx, s, query)
	return s, reply, err
}

// History returns the transcript of a live session, or the persisted one otherwise
func (a *App) History(ctx context.Context, sessionID string) ([]models.ConversationTurn, error) {
	if s, ok := a.Sessions.Get(sessionID); ok {
		return s.Transcript(), nil
	}
	turns, err := a.Storage.Transcripts().Turns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	return turns, nil
}

// ClearSession resets a live session and forgets its persisted turns
func (a *App) ClearSession(ctx context.Context, sessionID string) error {
	if s, ok := a.Sessions.Get(sessionID); ok {
		s.Clear()
	}
	if err := a.Storage.Transcripts().Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear transcript: %w", err)
	}
	return nil
}

// CheckResult is the outcome of one connection check
type CheckResult struct {
	Component string        `json:"component"`
	OK        bool          `json:"ok"`
	Detail    string        `json:"detail"`
	Latency   time.Duration `json:"latency"`
}

// Check probes the embedder, the index and the generator in turn
func (a *App) Check(ctx context.Context) []CheckResult {
	run := func(component string, probe func() (string, error)) CheckResult {
		start := time.Now()
		detail, err := probe()
		r := CheckResult{Component: component, OK: err == nil, Detail: detail, Latency: time.Since(start)}
		if err != nil {
			r.Detail = err.Error()
		}
		return r
	}

	return []CheckResult{
		run("embedding", func() (string, error) {
			v, err := a.Embedder.Embed(ctx, "connection test")
			if err != nil {
				return "", err
			}
			if len(v) != a.Embedder.Dimension() {
				return "", &models.DimensionMismatchError{Expected: a.Embedder.Dimension(), Actual: len(v), Where: "connection check"}
			}
			return fmt.Sprintf("dimension %d", len(v)), nil
		}),
		run("index", func() (string, error) {
			if err := a.Index.Ensure(ctx, a.Embedder.Dimension()); err != nil {
				return "", err
			}
			n, err := a.Index.Count(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d chunks", n), nil
		}),
		run("llm", func() (string, error) {
			text, err := a.Generator.Generate(ctx, "Hello!", llm.GenerateOptions{MaxOutputTokens: 32, Temperature: a.Config.LLM.Temperature})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d characters", len(text)), nil
		}),
	}
}
