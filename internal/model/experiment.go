package model

import (
	"time"

	"gorm.io/datatypes"
)

// Experiment 一次对比实验
type Experiment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	// 用于填充 example_based 模板的基准样本
	BaselineSamples datatypes.JSONSlice[string] `json:"baseline_samples"`
	Status          ExperimentStatus            `gorm:"type:varchar(20);not null;default:setup;index" json:"status"`
}
