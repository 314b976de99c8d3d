package service

import (
	"fmt"
	"math/rand"
	"sync"

	"content-eval/internal/llm"
	"content-eval/internal/model"
)

var defaultParams = model.GenerationParams{Temperature: 0.7, MaxTokens: 500}

// Combination 一个 (provider, model, strategy) 三元组
type Combination struct {
	Provider model.Provider         `json:"provider"`
	Model    string                 `json:"model"`
	Strategy model.PromptStrategy   `json:"strategy"`
	Params   model.GenerationParams `json:"-"`
}

// WorkItem 一个 (组合, 任务) 生成单元
type WorkItem struct {
	Combination
	Task model.Task
}

// PlanRequest RunAll 为 true 时跑全部组合，否则只跑 Combination 指定的一个组合
type PlanRequest struct {
	ExperimentID uint         `json:"experiment_id" binding:"required"`
	RunAll       bool         `json:"run_all"`
	Combination  *Combination `json:"specific_combination"`
}

// Scheduler 展开组合并打乱顺序，避免时间相关因素系统性地影响某个模型或任务
type Scheduler struct {
	entries []llm.ModelEntry

	mu  sync.Mutex
	rng *rand.Rand
}

func NewScheduler(entries []llm.ModelEntry, rng *rand.Rand) *Scheduler {
	return &Scheduler{entries: entries, rng: rng}
}

// Combinations 配置的每个 provider/model 与两种策略的笛卡尔积（未打乱）
func (s *Scheduler) Combinations() []Combination {
	combos := make([]Combination, 0, len(s.entries)*2)
	for _, e := range s.entries {
		for _, strategy := range model.AllStrategies() {
			combos = append(combos, Combination{
				Provider: e.Provider,
				Model:    e.Model,
				Strategy: strategy,
				Params:   e.Params,
			})
		}
	}
	return combos
}

// Plan 生成按组合分组的工作列表。组合顺序与任务顺序分别独立打乱，
// 结果长度 = len(组合) × len(tasks)。
func (s *Scheduler) Plan(req PlanRequest, tasks []model.Task) ([]WorkItem, error) {
	var combos []Combination
	if req.RunAll {
		combos = s.Combinations()
		if len(combos) == 0 {
			return nil, fmt.Errorf("%w: no provider models configured", ErrConfiguration)
		}
	} else {
		combo, err := s.resolve(req.Combination)
		if err != nil {
			return nil, err
		}
		combos = []Combination{combo}
	}

	ordered := make([]model.Task, len(tasks))
	copy(ordered, tasks)

	s.mu.Lock()
	s.rng.Shuffle(len(combos), func(i, j int) { combos[i], combos[j] = combos[j], combos[i] })
	s.rng.Shuffle(len(ordered), func(i, j int) { ordered[i], ordered[j] = ordered[j], ordered[i] })
	s.mu.Unlock()

	items := make([]WorkItem, 0, len(combos)*len(ordered))
	for _, c := range combos {
		for _, t := range ordered {
			items = append(items, WorkItem{Combination: c, Task: t})
		}
	}
	return items, nil
}

func (s *Scheduler) resolve(c *Combination) (Combination, error) {
	if c == nil {
		return Combination{}, fmt.Errorf("%w: specific_combination required when run_all is false", ErrConfiguration)
	}
	if !c.Provider.Valid() {
		return Combination{}, fmt.Errorf("%w: unknown provider %q", ErrConfiguration, c.Provider)
	}
	if c.Model == "" {
		return Combination{}, fmt.Errorf("%w: combination model is empty", ErrConfiguration)
	}
	if !c.Strategy.Valid() {
		return Combination{}, fmt.Errorf("%w: unknown prompt strategy %q", ErrConfiguration, c.Strategy)
	}

	combo := *c
	combo.Params = defaultParams
	if e, ok := llm.Lookup(s.entries, c.Provider, c.Model); ok {
		combo.Params = e.Params
	}
	return combo, nil
}
