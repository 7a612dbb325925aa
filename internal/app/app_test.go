// ABOUTME: Tests for assistant wiring, chat, history and connection checks
// ABOUTME: Uses apptest fixtures with fake providers and in-memory storage
package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/harper/optimedix/internal/app"
	"github.com/harper/optimedix/internal/app/apptest"
	"github.com/harper/optimedix/internal/llm/llmtest"
	"github.com/harper/optimedix/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aspirin = "Aspirin is used for headache and fever reduction."

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := apptest.Config(t.TempDir())
	cfg.Index.Backend = "pinecone"
	_, err := app.Open(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestOpen_TriggersFile(t *testing.T) {
	dir := t.TempDir()
	triggers := filepath.Join(dir, "triggers.yaml")
	require.NoError(t, os.WriteFile(triggers, []byte("- trigger: rash\n  questions: [\"Where is the rash?\"]\n"), 0600))

	f := apptest.New(t, nil, "ok")
	cfg := apptest.Config(f.Corpus)
	cfg.FollowUp.TriggersFile = triggers
	require.NoError(t, os.WriteFile(filepath.Join(f.Corpus, "rash.txt"), []byte("Rashes can be treated with cream."), 0600))

	a, err := app.Open(context.Background(), cfg, nil, app.WithEmbedder(f.Embedder), app.WithGenerator(f.Generator))
	require.NoError(t, err)
	defer func() { _ = a.Close() }()
	_, err = a.Ingest(context.Background())
	require.NoError(t, err)

	_, reply, err := a.Chat(context.Background(), "", "I have a rash")
	require.NoError(t, err)
	clar, ok := reply.(*models.ClarificationRequest)
	require.True(t, ok, "want clarification, got %T", reply)
	assert.Equal(t, []string{"Where is the rash?"}, clar.Questions)
}

func TestChat_EmptyFirstRun(t *testing.T) {
	for _, backend := range []string{"memory", "chromem", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			cfg := apptest.Config(filepath.Join(dir, "corpus"))
			cfg.Index.Backend = backend
			cfg.Index.Path = dir
			gen := llmtest.NewGenerator("unused")

			a, err := app.Open(context.Background(), cfg, nil,
				app.WithEmbedder(llmtest.NewEmbedder(apptest.Dimension)),
				app.WithGenerator(gen),
			)
			require.NoError(t, err)
			defer func() { _ = a.Close() }()

			_, err = a.Ingest(context.Background())
			assert.True(t, models.IsIngestWarning(err))

			_, reply, err := a.Chat(context.Background(), "", "What is aspirin used for?")
			require.NoError(t, err)
			answer, ok := reply.(*models.Answer)
			require.True(t, ok, "want answer, got %T", reply)
			assert.Equal(t, models.OutcomeNoContext, answer.Outcome)
			assert.Equal(t, models.NoContextMessage, answer.Text)
			assert.Zero(t, gen.Calls())
		})
	}
}

func TestChat_ReopenedSQLiteIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus")
	require.NoError(t, os.MkdirAll(corpus, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(corpus, "aspirin.txt"), []byte(aspirin), 0600))

	cfg := apptest.Config(corpus)
	cfg.Index.Backend = "sqlite"
	cfg.Storage.Path = filepath.Join(dir, "optimedix.db")

	first, err := app.Open(ctx, cfg, nil,
		app.WithEmbedder(llmtest.NewEmbedder(apptest.Dimension)),
		app.WithGenerator(llmtest.NewGenerator("unused")),
	)
	require.NoError(t, err)
	_, err = first.Ingest(ctx)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := app.Open(ctx, cfg, nil,
		app.WithEmbedder(llmtest.NewEmbedder(apptest.Dimension)),
		app.WithGenerator(llmtest.NewGenerator("Aspirin treats headaches.")),
	)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	_, reply, err := second.Chat(ctx, "", "What is aspirin used for?")
	require.NoError(t, err)
	answer, ok := reply.(*models.Answer)
	require.True(t, ok, "want answer, got %T", reply)
	assert.Equal(t, models.OutcomeAnswered, answer.Outcome)
	assert.Equal(t, []string{"aspirin.txt"}, answer.Sources)
}

func TestOpen_DimensionMismatchIsFatal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := apptest.Config(filepath.Join(dir, "corpus"))
	cfg.Index.Backend = "sqlite"
	cfg.Storage.Path = filepath.Join(dir, "optimedix.db")

	first, err := app.Open(ctx, cfg, nil,
		app.WithEmbedder(llmtest.NewEmbedder(apptest.Dimension)),
		app.WithGenerator(llmtest.NewGenerator("unused")),
	)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	_, err = app.Open(ctx, cfg, nil,
		app.WithEmbedder(llmtest.NewEmbedder(apptest.Dimension/2)),
		app.WithGenerator(llmtest.NewGenerator("unused")),
	)
	assert.ErrorIs(t, err, models.ErrDimensionMismatch)
}

func TestChat_AnswersWithSources(t *testing.T) {
	f := apptest.New(t, map[string]string{"aspirin.txt": aspirin}, "Aspirin treats headaches.")
	ctx := context.Background()

	s, reply, err := f.App.Chat(ctx, "", "What is aspirin used for?")
	require.NoError(t, err)
	answer, ok := reply.(*models.Answer)
	require.True(t, ok)
	assert.Equal(t, models.OutcomeAnswered, answer.Outcome)
	assert.Equal(t, []string{"aspirin.txt"}, answer.Sources)

	history, err := f.App.History(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	persisted, err := f.App.Storage.Transcripts().Turns(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, persisted, 2)
}

func TestHistory_FallsBackToStorage(t *testing.T) {
	f := apptest.New(t, map[string]string{"aspirin.txt": aspirin}, "answer")
	ctx := context.Background()

	s, _, err := f.App.Chat(ctx, "persisted", "aspirin?")
	require.NoError(t, err)
	f.App.Sessions.Delete(s.ID)

	history, err := f.App.History(ctx, "persisted")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleUser, history[0].Role)
}

func TestClearSession(t *testing.T) {
	f := apptest.New(t, map[string]string{"aspirin.txt": aspirin}, "answer")
	ctx := context.Background()

	s, _, err := f.App.Chat(ctx, "abc", "aspirin?")
	require.NoError(t, err)
	require.NoError(t, f.App.ClearSession(ctx, "abc"))

	assert.Empty(t, s.Transcript())
	assert.Empty(t, s.Memory())
	history, err := f.App.History(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestIngest_MissingCorpusIsWarning(t *testing.T) {
	f := apptest.New(t, nil, "answer")
	f.App.Config.Corpus.Path = filepath.Join(f.Corpus, "absent")

	_, err := f.App.Ingest(context.Background())
	assert.True(t, models.IsIngestWarning(err))
	assert.DirExists(t, f.App.Config.Corpus.Path)
}

func TestCheck(t *testing.T) {
	f := apptest.New(t, map[string]string{"aspirin.txt": aspirin}, "Hi there")

	results := f.App.Check(context.Background())
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.OK, "%s: %s", r.Component, r.Detail)
	}
	assert.Equal(t, "index", results[1].Component)
	assert.Equal(t, "1 chunks", results[1].Detail)
}

func TestCheck_ReportsFailures(t *testing.T) {
	f := apptest.New(t, nil, "Hi")
	f.Generator.Errs = []error{errors.New("quota exceeded")}

	results := f.App.Check(context.Background())
	llmResult := results[2]
	assert.False(t, llmResult.OK)
	assert.Contains(t, llmResult.Detail, "quota exceeded")
}

func TestRetryPolicy(t *testing.T) {
	cfg := apptest.Config(t.TempDir())
	cfg.Remote.Retries = 2
	p := app.RetryPolicy(cfg)
	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, cfg.Remote.Timeout, p.Timeout)
}
