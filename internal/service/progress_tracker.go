package service

import "sync"

// Progress 一次生成批次的进度
type Progress struct {
	RunID        string  `json:"run_id"`
	ExperimentID uint    `json:"experiment_id"`
	Generated    int     `json:"generated"`
	// 使用兜底内容的条数
	Degraded     int     `json:"degraded"`
	Total        int     `json:"total"`
	CostUSD      float64 `json:"cost_usd"`
	Running      bool    `json:"running"`
	Error        string  `json:"error,omitempty"`
}

// ProgressTracker 保存每个实验最近一次批次的实时进度（进程内）
type ProgressTracker struct {
	mu   sync.RWMutex
	runs map[uint]Progress
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{runs: map[uint]Progress{}}
}

func (t *ProgressTracker) Set(p Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs[p.ExperimentID] = p
}

func (t *ProgressTracker) Get(experimentID uint) (Progress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.runs[experimentID]
	return p, ok
}
