package model

import (
	"time"

	"gorm.io/datatypes"
)

// GenerationParams 调用生成后端时使用的参数
type GenerationParams struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Generation 一个 (experiment, task, provider, model, strategy) 组合的生成结果，创建后不可变
type Generation struct {
	ID           uint `gorm:"primarykey" json:"id"`
	ExperimentID uint `gorm:"not null;index" json:"experiment_id"`
	// 同一次调度批次的标识
	RunID  string `gorm:"type:varchar(36);index" json:"run_id"`
	TaskID string `gorm:"type:varchar(16);not null;index" json:"task_id"`

	Provider  Provider       `gorm:"type:varchar(20);not null;index" json:"model_provider"`
	ModelName string         `gorm:"type:varchar(100);not null;index" json:"model_name"`
	Strategy  PromptStrategy `gorm:"type:varchar(20);not null;index" json:"prompt_strategy"`

	PromptUsed string                               `gorm:"type:text" json:"prompt_used"`
	Content    string                               `gorm:"type:text" json:"generated_content"`
	Params     datatypes.JSONType[GenerationParams] `json:"generation_params"`

	Timestamp        time.Time `json:"timestamp"`
	LatencyMS        float64   `json:"latency_ms"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	CostUSD          float64   `json:"cost_usd"`
}
