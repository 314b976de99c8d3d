package model

import "time"

// Evaluation 盲评记录：领取时以 reserved 状态创建，提交评分后变为 scored。
// GenerationID 唯一索引保证每条生成最多一条评审。
type Evaluation struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	GenerationID uint   `gorm:"not null;uniqueIndex" json:"generation_id"`
	ExperimentID uint   `gorm:"not null;index" json:"experiment_id"`
	BlindID      string `gorm:"type:varchar(32);not null;uniqueIndex" json:"blind_id"`

	State      EvaluationState `gorm:"type:varchar(16);not null;index" json:"state"`
	ReservedAt time.Time       `gorm:"index" json:"reserved_at"`

	// 1-5 分，提交前为 NULL
	VoiceMatch     *int `json:"voice_match"`
	Coherence      *int `json:"coherence"`
	Engaging       *int `json:"engaging"`
	MeetsBrief     *int `json:"meets_brief"`
	OverallQuality *int `gorm:"index" json:"overall_quality"`

	EditTimeMinutes *int           `json:"edit_time_minutes"`
	WouldPublish    PublishVerdict `gorm:"type:varchar(16)" json:"would_publish"`
	Notes           string         `gorm:"type:text" json:"notes"`

	ScoredAt              *time.Time `json:"evaluated_at"`
	EvaluationTimeSeconds *int       `json:"evaluation_time_seconds"`
}
