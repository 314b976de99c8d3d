package service

import (
	"context"
	"fmt"
	"math"

	"content-eval/internal/model"

	"gorm.io/gorm"
)

// Summary 无评分时只有 count=0，avg_overall 省略
type Summary struct {
	Count      int      `json:"count"`
	AvgOverall *float64 `json:"avg_overall,omitempty"`
}

type GroupStats struct {
	Count      int     `json:"count"`
	AvgOverall float64 `json:"avg_overall"`
}

type Report struct {
	ExperimentID uint                  `json:"experiment_id"`
	Summary      Summary               `json:"summary"`
	ByModel      map[string]GroupStats `json:"by_model"`
	ByStrategy   map[string]GroupStats `json:"by_strategy"`
	ByTask       map[string]GroupStats `json:"by_task"`
}

// scoredRow 一条已评分记录及其生成来源
type scoredRow struct {
	ModelName      string
	Strategy       model.PromptStrategy
	TaskID         string
	OverallQuality int
}

// Aggregator 只读统计，均值为 overall_quality 的算术平均，保留 3 位小数
type Aggregator struct {
	db *gorm.DB
}

func NewAggregator(conn *gorm.DB) *Aggregator {
	return &Aggregator{db: conn}
}

func (a *Aggregator) rows(ctx context.Context, experimentID uint) ([]scoredRow, error) {
	tx := a.db.WithContext(ctx)
	if _, err := findExperiment(tx, experimentID); err != nil {
		return nil, err
	}

	var rows []scoredRow
	if err := tx.Table("evaluations").
		Select("generations.model_name, generations.strategy, generations.task_id, evaluations.overall_quality").
		Joins("JOIN generations ON generations.id = evaluations.generation_id").
		Where("evaluations.experiment_id = ? AND evaluations.overall_quality IS NOT NULL", experimentID).
		Order("evaluations.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("查询评分失败: %w", err)
	}
	return rows, nil
}

func (a *Aggregator) Summary(ctx context.Context, experimentID uint) (*Summary, error) {
	rows, err := a.rows(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	s := summarize(rows)
	return &s, nil
}

func (a *Aggregator) ByModel(ctx context.Context, experimentID uint) (map[string]GroupStats, error) {
	rows, err := a.rows(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	return groupBy(rows, func(r scoredRow) string { return r.ModelName }), nil
}

func (a *Aggregator) ByStrategy(ctx context.Context, experimentID uint) (map[string]GroupStats, error) {
	rows, err := a.rows(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	return groupBy(rows, func(r scoredRow) string { return string(r.Strategy) }), nil
}

func (a *Aggregator) ByTask(ctx context.Context, experimentID uint) (map[string]GroupStats, error) {
	rows, err := a.rows(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	return groupBy(rows, func(r scoredRow) string { return r.TaskID }), nil
}

// Report 四个视图基于同一次读取，保证一致
func (a *Aggregator) Report(ctx context.Context, experimentID uint) (*Report, error) {
	rows, err := a.rows(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	return &Report{
		ExperimentID: experimentID,
		Summary:      summarize(rows),
		ByModel:      groupBy(rows, func(r scoredRow) string { return r.ModelName }),
		ByStrategy:   groupBy(rows, func(r scoredRow) string { return string(r.Strategy) }),
		ByTask:       groupBy(rows, func(r scoredRow) string { return r.TaskID }),
	}, nil
}

func summarize(rows []scoredRow) Summary {
	if len(rows) == 0 {
		return Summary{Count: 0}
	}
	scores := make([]int, 0, len(rows))
	for _, r := range rows {
		scores = append(scores, r.OverallQuality)
	}
	avg := mean(scores)
	return Summary{Count: len(scores), AvgOverall: &avg}
}

// groupBy 没有评分的分组不会出现在结果中
func groupBy(rows []scoredRow, key func(scoredRow) string) map[string]GroupStats {
	buckets := map[string][]int{}
	for _, r := range rows {
		k := key(r)
		buckets[k] = append(buckets[k], r.OverallQuality)
	}
	out := make(map[string]GroupStats, len(buckets))
	for k, scores := range buckets {
		out[k] = GroupStats{Count: len(scores), AvgOverall: mean(scores)}
	}
	return out
}

func mean(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return round3(float64(sum) / float64(len(scores)))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
