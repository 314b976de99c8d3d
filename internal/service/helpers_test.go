package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"content-eval/internal/config"
	"content-eval/internal/db"
	"content-eval/internal/llm"
	"content-eval/internal/model"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func seedTasks(t *testing.T, conn *gorm.DB, ids ...string) []model.Task {
	t.Helper()
	tasks := make([]model.Task, 0, len(ids))
	for _, id := range ids {
		task := model.Task{
			ID:                    id,
			ContentType:           model.ContentBlogIntro,
			Title:                 "Task " + id,
			Description:           "Description " + id,
			StructuredPrompt:      "Write intro " + id,
			ExamplePromptTemplate: "Like {sample1} and {sample2}, write " + id,
		}
		require.NoError(t, conn.Create(&task).Error)
		tasks = append(tasks, task)
	}
	return tasks
}

func seedExperiment(t *testing.T, conn *gorm.DB, status model.ExperimentStatus, samples ...string) *model.Experiment {
	t.Helper()
	if samples == nil {
		samples = []string{}
	}
	exp := &model.Experiment{Name: "exp", BaselineSamples: samples, Status: status}
	require.NoError(t, conn.Create(exp).Error)
	return exp
}

type genSeed struct {
	task     string
	model    string
	strategy model.PromptStrategy
}

// seedGenerations 直接写入生成记录，绕过 pipeline
func seedGenerations(t *testing.T, conn *gorm.DB, expID uint, seeds ...genSeed) []model.Generation {
	t.Helper()
	gens := make([]model.Generation, 0, len(seeds))
	for i, s := range seeds {
		gen := model.Generation{
			ExperimentID: expID,
			RunID:        "seed",
			TaskID:       s.task,
			Provider:     model.ProviderOpenAI,
			ModelName:    s.model,
			Strategy:     s.strategy,
			PromptUsed:   "prompt",
			Content:      fmt.Sprintf("content %d", i),
			Params:       datatypes.NewJSONType(defaultParams),
			Timestamp:    time.Now(),
		}
		require.NoError(t, conn.Create(&gen).Error)
		gens = append(gens, gen)
	}
	return gens
}

func nGenerations(n int) []genSeed {
	seeds := make([]genSeed, n)
	for i := range seeds {
		seeds[i] = genSeed{task: "A", model: "gpt-4", strategy: model.StrategyStructured}
	}
	return seeds
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeGenerator struct {
	mu       sync.Mutex
	requests []llm.Request
	// 返回 error 的 provider
	failFor map[model.Provider]bool
	onCall  func(n int) error
}

func (g *fakeGenerator) Generate(ctx context.Context, req llm.Request) (*llm.Result, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	n := len(g.requests)
	g.mu.Unlock()

	if g.onCall != nil {
		if err := g.onCall(n); err != nil {
			return nil, err
		}
	}
	if g.failFor[req.Provider] {
		return nil, errors.New("backend down")
	}
	return &llm.Result{
		Content:          fmt.Sprintf("generated by %s/%s", req.Provider, req.Model),
		PromptTokens:     100,
		CompletionTokens: 200,
		LatencyMS:        12.5,
		CostUSD:          0.01,
	}, nil
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

var testEntries = []llm.ModelEntry{
	{Provider: model.ProviderOpenAI, Model: "gpt-4", Params: model.GenerationParams{Temperature: 0.7, MaxTokens: 500}},
	{Provider: model.ProviderAnthropic, Model: "claude-3-opus", Params: model.GenerationParams{Temperature: 0.5, MaxTokens: 400}},
	{Provider: model.ProviderGoogle, Model: "gemini-1.5-pro", Params: model.GenerationParams{Temperature: 0.9, MaxTokens: 300}},
}

func newTestPipeline(conn *gorm.DB, gen llm.Generator, entries []llm.ModelEntry) *GenerationPipeline {
	scheduler := NewScheduler(entries, rand.New(rand.NewSource(1)))
	return NewGenerationPipeline(conn, gen, llm.Pricing{}, scheduler, 0, zap.NewNop())
}

func newTestQueue(conn *gorm.DB, ttl time.Duration, clock *fakeClock) *BlindQueue {
	q := NewBlindQueue(conn, rand.New(rand.NewSource(7)), "B-", ttl, zap.NewNop())
	if clock != nil {
		q.now = clock.Now
	}
	return q
}

func validSubmission(blindID string, overall int) SubmitEvaluationRequest {
	return SubmitEvaluationRequest{
		BlindID:         blindID,
		VoiceMatch:      4,
		Coherence:       4,
		Engaging:        3,
		MeetsBrief:      5,
		OverallQuality:  overall,
		EditTimeMinutes: 5,
		WouldPublish:    model.VerdictWithEdits,
		Notes:           "ok",
	}
}
