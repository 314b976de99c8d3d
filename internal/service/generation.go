package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"content-eval/internal/llm"
	"content-eval/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BuildPrompt structured 原样使用结构化提示词；example_based 用前两条基准样本填充模板，
// 只有一条时两个槽位都用它，没有时填空串。
func BuildPrompt(task model.Task, strategy model.PromptStrategy, samples []string) string {
	switch strategy {
	case model.StrategyStructured:
		return task.StructuredPrompt
	case model.StrategyExampleBased:
		var sample1, sample2 string
		if len(samples) > 0 {
			sample1 = samples[0]
			sample2 = sample1
		}
		if len(samples) > 1 {
			sample2 = samples[1]
		}
		prompt := strings.ReplaceAll(task.ExamplePromptTemplate, "{sample1}", sample1)
		return strings.ReplaceAll(prompt, "{sample2}", sample2)
	default:
		return ""
	}
}

// GenerationSummary 生成记录的来源信息，不含 prompt 和内容
type GenerationSummary struct {
	ID               uint                 `json:"id"`
	RunID            string               `json:"run_id"`
	TaskID           string               `json:"task_id"`
	Provider         model.Provider       `json:"model_provider"`
	ModelName        string               `json:"model_name"`
	Strategy         model.PromptStrategy `json:"prompt_strategy"`
	Timestamp        time.Time            `json:"timestamp"`
	LatencyMS        float64              `json:"latency_ms"`
	PromptTokens     int                  `json:"prompt_tokens"`
	CompletionTokens int                  `json:"completion_tokens"`
	CostUSD          float64              `json:"cost_usd"`
}

type GenerationPipeline struct {
	db        *gorm.DB
	generator llm.Generator
	pricing   llm.Pricing
	scheduler *Scheduler
	limiter   *rate.Limiter
	tracker   *ProgressTracker
	logger    *zap.Logger
	now       func() time.Time

	wg sync.WaitGroup
}

// NewGenerationPipeline pacing 为相邻两次生成调用的最小间隔，0 表示不限速
func NewGenerationPipeline(conn *gorm.DB, generator llm.Generator, pricing llm.Pricing, scheduler *Scheduler, pacing time.Duration, logger *zap.Logger) *GenerationPipeline {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if pacing > 0 {
		limiter = rate.NewLimiter(rate.Every(pacing), 1)
	}
	return &GenerationPipeline{
		db:        conn,
		generator: generator,
		pricing:   pricing,
		scheduler: scheduler,
		limiter:   limiter,
		tracker:   NewProgressTracker(),
		logger:    logger,
		now:       time.Now,
	}
}

type generationRun struct {
	experiment *model.Experiment
	items      []WorkItem
	progress   Progress
}

// Run 同步执行整个计划。单个生成失败会替换为带标记的兜底内容，不会中断计划；
// ctx 取消时返回已完成部分的进度和 ctx.Err()。
func (p *GenerationPipeline) Run(ctx context.Context, req PlanRequest) (*Progress, error) {
	run, err := p.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return p.execute(ctx, run)
}

// Start 校验并切换状态后在后台执行计划，立即返回批次 ID。
// 后台任务不随 ctx 取消，进度通过 Progress 查询。
func (p *GenerationPipeline) Start(ctx context.Context, req PlanRequest) (string, error) {
	run, err := p.prepare(ctx, req)
	if err != nil {
		return "", err
	}

	bg := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if _, err := p.execute(bg, run); err != nil {
			p.logger.Error("Background generation failed",
				zap.Uint("experiment_id", run.experiment.ID),
				zap.String("run_id", run.progress.RunID),
				zap.Error(err))
		}
	}()
	return run.progress.RunID, nil
}

// Wait 等待所有后台批次结束
func (p *GenerationPipeline) Wait() {
	p.wg.Wait()
}

func (p *GenerationPipeline) prepare(ctx context.Context, req PlanRequest) (*generationRun, error) {
	tx := p.db.WithContext(ctx)
	if _, err := findExperiment(tx, req.ExperimentID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, missingExperiment(req.ExperimentID)
		}
		return nil, err
	}

	var tasks []model.Task
	if err := tx.Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("查询任务失败: %w", err)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%w: task catalog is empty", ErrConfiguration)
	}

	items, err := p.scheduler.Plan(req, tasks)
	if err != nil {
		return nil, err
	}

	var exp *model.Experiment
	err = tx.Transaction(func(tx *gorm.DB) error {
		// 行锁保证两个并发的 Run 只有一个能进入 generating
		current, err := findExperiment(tx.Clauses(clause.Locking{Strength: "UPDATE"}), req.ExperimentID)
		if err != nil {
			return err
		}
		if current.Status == model.StatusGenerating {
			return fmt.Errorf("%w: experiment %d is already generating", ErrConfiguration, current.ID)
		}
		exp, err = transitionExperiment(tx, current.ID, model.StatusGenerating)
		return err
	})
	if err != nil {
		return nil, err
	}

	run := &generationRun{
		experiment: exp,
		items:      items,
		progress: Progress{
			RunID:        uuid.NewString(),
			ExperimentID: exp.ID,
			Total:        len(items),
			Running:      true,
		},
	}
	p.tracker.Set(run.progress)
	p.logger.Info("Generation plan built",
		zap.Uint("experiment_id", exp.ID),
		zap.String("run_id", run.progress.RunID),
		zap.Int("total", len(items)),
		zap.Bool("run_all", req.RunAll))
	return run, nil
}

func (p *GenerationPipeline) execute(ctx context.Context, run *generationRun) (*Progress, error) {
	progress := run.progress
	samples := []string(run.experiment.BaselineSamples)

	runErr := func() error {
		for _, item := range run.items {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}

			req := llm.Request{
				Provider: item.Provider,
				Model:    item.Model,
				Prompt:   BuildPrompt(item.Task, item.Strategy, samples),
				Params:   item.Params,
			}
			res, err := p.generator.Generate(ctx, req)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.logger.Warn("Generator failed, using fallback content",
					zap.String("provider", string(item.Provider)),
					zap.String("model", item.Model),
					zap.Error(err))
				res = llm.Fallback(req, p.pricing)
			}
			if res.Degraded {
				progress.Degraded++
			}

			gen := &model.Generation{
				ExperimentID:     run.experiment.ID,
				RunID:            progress.RunID,
				TaskID:           item.Task.ID,
				Provider:         item.Provider,
				ModelName:        item.Model,
				Strategy:         item.Strategy,
				PromptUsed:       req.Prompt,
				Content:          res.Content,
				Params:           datatypes.NewJSONType(item.Params),
				Timestamp:        p.now(),
				LatencyMS:        res.LatencyMS,
				PromptTokens:     res.PromptTokens,
				CompletionTokens: res.CompletionTokens,
				CostUSD:          res.CostUSD,
			}
			if err := p.db.WithContext(ctx).Create(gen).Error; err != nil {
				return fmt.Errorf("保存生成记录失败: %w", err)
			}

			progress.Generated++
			progress.CostUSD += res.CostUSD
			p.tracker.Set(progress)
		}
		return nil
	}()

	// 即使中途失败也进入 evaluating，已生成的记录可以评审，也允许重新生成
	finishCtx := context.WithoutCancel(ctx)
	if err := p.db.WithContext(finishCtx).Transaction(func(tx *gorm.DB) error {
		_, err := transitionExperiment(tx, run.experiment.ID, model.StatusEvaluating)
		return err
	}); err != nil {
		p.logger.Error("Failed to move experiment to evaluating",
			zap.Uint("experiment_id", run.experiment.ID),
			zap.Error(err))
		runErr = errors.Join(runErr, err)
	}

	progress.Running = false
	if runErr != nil {
		progress.Error = runErr.Error()
	}
	p.tracker.Set(progress)

	p.logger.Info("Generation run finished",
		zap.Uint("experiment_id", run.experiment.ID),
		zap.String("run_id", progress.RunID),
		zap.Int("generated", progress.Generated),
		zap.Int("degraded", progress.Degraded),
		zap.Int("total", progress.Total),
		zap.Float64("cost_usd", progress.CostUSD),
		zap.Error(runErr))
	return &progress, runErr
}

// Progress 优先返回进程内的实时进度，否则按已持久化的生成记录计数
func (p *GenerationPipeline) Progress(ctx context.Context, experimentID uint) (*Progress, error) {
	if live, ok := p.tracker.Get(experimentID); ok {
		return &live, nil
	}
	tx := p.db.WithContext(ctx)
	if _, err := findExperiment(tx, experimentID); err != nil {
		return nil, err
	}

	var stored struct {
		Generated int64
		Degraded  int64
		CostUSD   float64
	}
	if err := tx.Model(&model.Generation{}).
		Select("COUNT(*) AS generated, COALESCE(SUM(CASE WHEN content LIKE ? THEN 1 ELSE 0 END), 0) AS degraded, COALESCE(SUM(cost_usd), 0) AS cost_usd",
			llm.StubPrefix+"%").
		Where("experiment_id = ?", experimentID).
		Scan(&stored).Error; err != nil {
		return nil, fmt.Errorf("统计生成记录失败: %w", err)
	}
	return &Progress{
		ExperimentID: experimentID,
		Generated:    int(stored.Generated),
		Degraded:     int(stored.Degraded),
		Total:        int(stored.Generated),
		CostUSD:      stored.CostUSD,
	}, nil
}

// ListGenerations 按 id 升序返回来源信息
func (p *GenerationPipeline) ListGenerations(ctx context.Context, experimentID uint) ([]GenerationSummary, error) {
	tx := p.db.WithContext(ctx)
	if _, err := findExperiment(tx, experimentID); err != nil {
		return nil, err
	}

	var out []GenerationSummary
	if err := tx.Model(&model.Generation{}).
		Select("id, run_id, task_id, provider, model_name, strategy, timestamp, latency_ms, prompt_tokens, completion_tokens, cost_usd").
		Where("experiment_id = ?", experimentID).
		Order("id ASC").
		Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("查询生成记录失败: %w", err)
	}
	return out, nil
}
