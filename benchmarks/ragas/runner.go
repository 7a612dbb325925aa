// ABOUTME: Test runner for the retrieval benchmarks - executes scenarios and collects results
// ABOUTME: Each scenario gets its own corpus and index, then its turns run through the wired assistant

package ragas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harper/optimedix/internal/app"
	"github.com/harper/optimedix/internal/config"
	"github.com/harper/optimedix/internal/llm"
	"github.com/harper/optimedix/internal/models"
	"go.uber.org/zap"
)

// TurnOutcome is what one conversation turn produced
type TurnOutcome struct {
	Response      string
	Clarification bool
	Sources       []string
	// Context holds the passages placed in the prompt, empty when nothing was generated
	Context []string
}

// Options configures a BenchmarkRunner
type Options struct {
	// Embedder and Generator override the providers named in the config
	Embedder  llm.Embedder
	Generator llm.Generator
	Logger    *zap.Logger
	Out       io.Writer
	Verbose   bool
}

// BenchmarkRunner executes benchmark tests
type BenchmarkRunner struct {
	cfg       *config.Config
	embedder  llm.Embedder
	generator llm.Generator
	logger    *zap.Logger
	metrics   *MetricsCalculator
	out       io.Writer
	verbose   bool
}

// NewBenchmarkRunner creates a new benchmark runner
func NewBenchmarkRunner(ctx context.Context, cfg *config.Config, opts Options) (*BenchmarkRunner, error) {
	generator := opts.Generator
	if generator == nil {
		g, err := llm.NewGenerator(ctx, cfg.LLM, app.RetryPolicy(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
		}
		generator = g
	}

	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BenchmarkRunner{
		cfg:       cfg,
		embedder:  opts.Embedder,
		generator: generator,
		logger:    logger,
		metrics:   NewMetricsCalculator(),
		out:       out,
		verbose:   opts.Verbose,
	}, nil
}

// RunTest executes a single benchmark test
func (r *BenchmarkRunner) RunTest(ctx context.Context, scenario TestScenario) (TestResult, error) {
	if r.verbose {
		fmt.Fprintf(r.out, "\n========================================\n")
		fmt.Fprintf(r.out, "RUNNING: %s\n", scenario.Name)
		fmt.Fprintf(r.out, "========================================\n")
		fmt.Fprintf(r.out, "Description: %s\n\n", scenario.Description)
	}

	tmpDir, err := os.MkdirTemp("", "optimedix_bench_"+scenario.ID+"_")
	if err != nil {
		return TestResult{}, fmt.Errorf("failed to create test directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	a, recorder, err := r.setupTest(ctx, scenario, tmpDir)
	if err != nil {
		return TestResult{}, fmt.Errorf("setup failed: %w", err)
	}
	defer func() {
		// Remote backends keep the benchmark collection otherwise
		if err := a.Ingestor.Reindex(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("failed to drop benchmark collection", zap.Error(err))
		}
		_ = a.Close()
	}()

	session := a.Sessions.GetOrCreate("bench-" + scenario.ID)
	var final TurnOutcome
	for _, turn := range scenario.Turns {
		if r.verbose {
			fmt.Fprintf(r.out, "[Turn %d] User: %s\n", turn.TurnNumber, turn.UserMessage)
		}

		recorder.reset()
		reply, err := a.Responder.Chat(ctx, session, turn.UserMessage)
		if err != nil {
			return TestResult{}, fmt.Errorf("turn %d failed: %w", turn.TurnNumber, err)
		}
		outcome := newTurnOutcome(reply, recorder.lastPrompt())

		if r.verbose {
			fmt.Fprintf(r.out, "[Turn %d] AI: %s\n\n", turn.TurnNumber, preview(outcome.Response, 150))
		}

		if turn.TurnNumber == scenario.GroundTruth.FinalQueryTurn {
			final = outcome
		}
	}

	result := r.metrics.EvaluateTest(scenario, final)

	if r.verbose {
		fmt.Fprintf(r.out, "\n========================================\n")
		fmt.Fprintf(r.out, "RESULTS: %s\n", scenario.Name)
		fmt.Fprintf(r.out, "========================================\n")
		fmt.Fprintf(r.out, "Faithfulness: %.2f\n", result.FaithfulnessScore)
		fmt.Fprintf(r.out, "Context Recall: %.2f\n", result.ContextRecallScore)
		fmt.Fprintf(r.out, "Overall Score: %.2f\n", result.OverallScore)
		fmt.Fprintf(r.out, "Status: %s\n", result.Status)
		fmt.Fprintf(r.out, "========================================\n\n")
	}

	return result, nil
}

// setupTest writes the scenario corpus, opens an isolated assistant and ingests
func (r *BenchmarkRunner) setupTest(ctx context.Context, scenario TestScenario, dir string) (*app.App, *promptRecorder, error) {
	corpus := filepath.Join(dir, "corpus")
	if err := os.MkdirAll(corpus, 0755); err != nil {
		return nil, nil, err
	}
	for name, content := range scenario.Documents {
		path := filepath.Join(corpus, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return nil, nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	cfg := *r.cfg
	cfg.Corpus.Path = corpus
	cfg.Storage.Path = app.InMemoryStorage
	cfg.Index.Name = fmt.Sprintf("%s-bench-%s", r.cfg.Index.Name, scenario.ID)
	cfg.Index.Path = filepath.Join(dir, "index")

	recorder := &promptRecorder{inner: r.generator}
	opts := []app.Option{app.WithGenerator(recorder)}
	if r.embedder != nil {
		opts = append(opts, app.WithEmbedder(r.embedder))
	}

	a, err := app.Open(ctx, &cfg, r.logger, opts...)
	if err != nil {
		return nil, nil, err
	}

	report, err := a.Ingest(ctx)
	if err != nil && !models.IsIngestWarning(err) {
		_ = a.Close()
		return nil, nil, fmt.Errorf("failed to ingest scenario corpus: %w", err)
	}
	if r.verbose {
		fmt.Fprintf(r.out, "✓ Corpus ingested: %d document(s), %d chunk(s)\n",
			report.Documents, report.ChunksStored)
	}

	return a, recorder, nil
}

// RunAllTests executes every scenario in order
func (r *BenchmarkRunner) RunAllTests(ctx context.Context, scenarios []TestScenario) ([]TestResult, error) {
	results := make([]TestResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		result, err := r.RunTest(ctx, scenario)
		if err != nil {
			return nil, fmt.Errorf("test %s failed: %w", scenario.ID, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// Summary is the JSON document written by ExportResults
type Summary struct {
	Timestamp  string       `json:"timestamp"`
	TotalTests int          `json:"total_tests"`
	Passed     int          `json:"passed"`
	Failed     int          `json:"failed"`
	Results    []TestResult `json:"results"`
}

// Summarize counts passes and failures
func Summarize(results []TestResult) Summary {
	s := Summary{
		Timestamp:  time.Now().Format(time.RFC3339),
		TotalTests: len(results),
		Results:    results,
	}
	for _, result := range results {
		if result.Status == "PASS" {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// ExportResults writes the results summary as JSON
func ExportResults(results []TestResult, outputPath string) error {
	jsonData, err := json.MarshalIndent(Summarize(results), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}

func newTurnOutcome(reply models.Reply, prompt string) TurnOutcome {
	outcome := TurnOutcome{Response: reply.Message()}
	switch v := reply.(type) {
	case *models.ClarificationRequest:
		outcome.Clarification = true
	case *models.Answer:
		outcome.Sources = v.Sources
		outcome.Context = contextFromPrompt(prompt)
	}
	return outcome
}

// contextFromPrompt extracts the passages rendered between "Context:" and "Chat History:"
func contextFromPrompt(prompt string) []string {
	_, rest, ok := strings.Cut(prompt, "Context:\n")
	if !ok {
		return nil
	}
	section, _, _ := strings.Cut(rest, "\n\nChat History:")
	var passages []string
	for _, p := range strings.Split(section, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			passages = append(passages, p)
		}
	}
	return passages
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// promptRecorder remembers the last prompt sent to the wrapped generator
type promptRecorder struct {
	inner  llm.Generator
	mu     sync.Mutex
	prompt string
}

func (p *promptRecorder) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	p.mu.Lock()
	p.prompt = prompt
	p.mu.Unlock()
	return p.inner.Generate(ctx, prompt, opts)
}

func (p *promptRecorder) reset() {
	p.mu.Lock()
	p.prompt = ""
	p.mu.Unlock()
}

func (p *promptRecorder) lastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompt
}
