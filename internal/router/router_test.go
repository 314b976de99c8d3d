package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"content-eval/internal/config"
	"content-eval/internal/db"
	"content-eval/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testTasks = `{"tasks":[
  {"id":"A","content_type":"blog_intro","title":"Intro","description":"Blog intro",
   "structured_prompt":"Write an intro.","example_prompt_template":"Compare {sample1} and {sample2}"},
  {"id":"B","content_type":"announcement","title":"Release","description":"Release note",
   "structured_prompt":"Write a release note.","example_prompt_template":"Like {sample1}"}
]}`

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	conn, err := db.Open(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(dir, "test.db")})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := &config.Config{
		Providers: []config.ProviderConfig{{
			Name:   "openai",
			Params: config.ParamsConfig{Temperature: 0.7, MaxTokens: 500},
			Models: []config.ModelConfig{{Name: "gpt-4", InputPer1K: 0.01, OutputPer1K: 0.03}},
		}},
		Generation: config.GenerationConfig{Seed: 1},
		Evaluation: config.EvaluationConfig{BlindPrefix: "B-"},
	}
	svc, err := service.NewServiceContext(context.Background(), cfg, conn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	tasksPath := filepath.Join(dir, "tasks.json")
	require.NoError(t, os.WriteFile(tasksPath, []byte(testTasks), 0o644))
	_, err = svc.Tasks.Load(context.Background(), tasksPath)
	require.NoError(t, err)

	return SetupRouter(svc)
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func TestHealth(t *testing.T) {
	r := setupTestRouter(t)
	w := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExperimentFlowOverHTTP(t *testing.T) {
	r := setupTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/experiments", gin.H{
		"name":             "voice test",
		"baseline_samples": []string{"Sample A", "Sample B"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var exp struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	}
	decode(t, w, &exp)
	assert.Equal(t, "setup", exp.Status)

	w = do(t, r, http.MethodPost, "/api/generations/start", gin.H{"experiment_id": exp.ID, "run_all": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var progress service.Progress
	decode(t, w, &progress)
	assert.Equal(t, 4, progress.Generated)
	assert.Equal(t, 4, progress.Total)

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/generations/%d", exp.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "generated_content")
	assert.NotContains(t, w.Body.String(), "prompt_used")
	var gens []map[string]any
	decode(t, w, &gens)
	assert.Len(t, gens, 4)

	var blindIDs []string
	for i := 0; i < 4; i++ {
		w = do(t, r, http.MethodGet, fmt.Sprintf("/api/evaluations/next/%d", exp.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var item map[string]any
		decode(t, w, &item)
		assert.NotContains(t, item, "model_provider")
		assert.True(t, strings.HasPrefix(item["content"].(string), "[STUB:openai:gpt-4]"))
		blindIDs = append(blindIDs, item["blind_id"].(string))
	}
	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/evaluations/next/%d", exp.ID), nil)
	assert.JSONEq(t, `{"done": true}`, w.Body.String())

	for i, id := range blindIDs {
		w = do(t, r, http.MethodPost, fmt.Sprintf("/api/evaluations?experiment_id=%d", exp.ID), gin.H{
			"blind_id":          id,
			"voice_match":       3,
			"coherence":         4,
			"engaging":          4,
			"meets_brief":       5,
			"overall_quality":   i + 2,
			"edit_time_minutes": 10,
			"would_publish":     "yes",
			"notes":             "fine",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var ack struct {
			OK bool `json:"ok"`
			ID uint `json:"id"`
		}
		decode(t, w, &ack)
		assert.True(t, ack.OK)
		assert.NotZero(t, ack.ID)
	}

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/evaluations/progress/%d", exp.ID), nil)
	assert.JSONEq(t, `{"done": 4, "total": 4}`, w.Body.String())

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/analysis/%d/summary", exp.ID), nil)
	assert.JSONEq(t, `{"count": 4, "avg_overall": 3.5}`, w.Body.String())

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/analysis/%d/by-model", exp.ID), nil)
	assert.JSONEq(t, `{"gpt-4": {"count": 4, "avg_overall": 3.5}}`, w.Body.String())

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/analysis/%d/report?format=markdown", exp.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, w.Body.String(), "voice test")

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/experiments/%d", exp.ID), nil)
	decode(t, w, &exp)
	assert.Equal(t, "complete", exp.Status)
}

func TestAsyncGeneration(t *testing.T) {
	r := setupTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/experiments", gin.H{"name": "async"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodPost, "/api/generations/start", gin.H{
		"experiment_id": 1,
		"async":         true,
		"specific_combination": gin.H{
			"provider": "openai",
			"model":    "gpt-4",
			"strategy": "structured",
		},
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var accepted struct {
		RunID string `json:"run_id"`
	}
	decode(t, w, &accepted)
	assert.NotEmpty(t, accepted.RunID)

	w = do(t, r, http.MethodGet, "/api/generations/progress/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var progress service.Progress
	decode(t, w, &progress)
	assert.Equal(t, accepted.RunID, progress.RunID)
	assert.Equal(t, 2, progress.Total)
}

func TestErrorMapping(t *testing.T) {
	r := setupTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/experiments", gin.H{"name": "errors"})
	require.Equal(t, http.StatusCreated, w.Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown experiment", http.MethodGet, "/api/experiments/999", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/experiments/abc", nil, http.StatusBadRequest},
		{"missing name", http.MethodPost, "/api/experiments", gin.H{"description": "x"}, http.StatusBadRequest},
		{"illegal transition", http.MethodPut, "/api/experiments/1/status?status=complete", nil, http.StatusConflict},
		{"unknown status", http.MethodPut, "/api/experiments/1/status", gin.H{"status": "archived"}, http.StatusBadRequest},
		{"missing combination", http.MethodPost, "/api/generations/start", gin.H{"experiment_id": 1}, http.StatusBadRequest},
		{"generate for missing experiment", http.MethodPost, "/api/generations/start", gin.H{"experiment_id": 99, "run_all": true}, http.StatusNotFound},
		{"next for missing experiment", http.MethodGet, "/api/evaluations/next/99", nil, http.StatusNotFound},
		{"unknown blind id", http.MethodPost, "/api/evaluations?experiment_id=1", gin.H{
			"blind_id": "B-UNKNOWN1", "voice_match": 3, "coherence": 3, "engaging": 3, "meets_brief": 3,
			"overall_quality": 3, "edit_time_minutes": 0, "would_publish": "no",
		}, http.StatusNotFound},
		{"score out of range", http.MethodPost, "/api/evaluations?experiment_id=1", gin.H{
			"blind_id": "B-UNKNOWN1", "voice_match": 9, "coherence": 3, "engaging": 3, "meets_brief": 3,
			"overall_quality": 3, "edit_time_minutes": 0, "would_publish": "no",
		}, http.StatusBadRequest},
		{"missing experiment_id", http.MethodPost, "/api/evaluations", gin.H{"blind_id": "B-X"}, http.StatusBadRequest},
		{"unknown task", http.MethodGet, "/api/tasks/Z", nil, http.StatusNotFound},
		{"summary for missing experiment", http.MethodGet, "/api/analysis/99/summary", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	w = do(t, r, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tasks []map[string]any
	decode(t, w, &tasks)
	assert.Len(t, tasks, 2)
}
