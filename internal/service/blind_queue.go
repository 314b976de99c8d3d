package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"content-eval/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errReservationExpired = errors.New("reservation expired")

const (
	blindAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	blindSuffixLength  = 8
	maxReserveAttempts = 5
)

// BlindItem 评审者能看到的全部信息，不含 provider/model/strategy
type BlindItem struct {
	BlindID         string            `json:"blind_id"`
	Content         string            `json:"content"`
	TaskTitle       string            `json:"task_title"`
	TaskDescription string            `json:"task_description"`
	ContentType     model.ContentType `json:"content_type"`
}

type SubmitEvaluationRequest struct {
	BlindID         string               `json:"blind_id" validate:"required"`
	VoiceMatch      int                  `json:"voice_match" validate:"min=1,max=5"`
	Coherence       int                  `json:"coherence" validate:"min=1,max=5"`
	Engaging        int                  `json:"engaging" validate:"min=1,max=5"`
	MeetsBrief      int                  `json:"meets_brief" validate:"min=1,max=5"`
	OverallQuality  int                  `json:"overall_quality" validate:"min=1,max=5"`
	EditTimeMinutes int                  `json:"edit_time_minutes" validate:"min=0"`
	WouldPublish    model.PublishVerdict `json:"would_publish" validate:"required,oneof=yes no with_edits"`
	Notes           string               `json:"notes"`
}

type EvaluationProgress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// ScoredItem 已评分条目的盲态列表项
type ScoredItem struct {
	ID             uint   `json:"id"`
	BlindID        string `json:"blind_id"`
	OverallQuality int    `json:"overall_quality"`
}

// BlindQueue 盲评分发：领取即预留，同一条生成不会发给两个评审者
type BlindQueue struct {
	db     *gorm.DB
	logger *zap.Logger
	prefix string
	// <= 0 表示预留永不过期
	ttl time.Duration
	now func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewBlindQueue(conn *gorm.DB, rng *rand.Rand, prefix string, ttl time.Duration, logger *zap.Logger) *BlindQueue {
	if prefix == "" {
		prefix = "B-"
	}
	return &BlindQueue{
		db:     conn,
		logger: logger,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
		rng:    rng,
	}
}

func (q *BlindQueue) mintBlindID() string {
	q.mu.Lock()
	defer q.mu.Unlock()

	var b strings.Builder
	b.WriteString(q.prefix)
	for i := 0; i < blindSuffixLength; i++ {
		b.WriteByte(blindAlphabet[q.rng.Intn(len(blindAlphabet))])
	}
	return b.String()
}

func (q *BlindQueue) expired(ev *model.Evaluation, now time.Time) bool {
	return q.ttl > 0 && ev.State == model.EvaluationReserved && ev.ReservedAt.Before(now.Add(-q.ttl))
}

// Next 预留 id 最小的未评审生成。没有剩余时返回 nil, nil。
// 选择与预留在同一个事务内完成；并发冲突（唯一索引）时整体重试。
func (q *BlindQueue) Next(ctx context.Context, experimentID uint) (*BlindItem, error) {
	var lastErr error
	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		item, err := q.reserve(ctx, experimentID)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			lastErr = err
			q.logger.Debug("Reservation conflict, retrying",
				zap.Uint("experiment_id", experimentID),
				zap.Int("attempt", attempt+1))
			continue
		}
		return item, err
	}
	return nil, fmt.Errorf("预留盲评失败（重试 %d 次）: %w", maxReserveAttempts, lastErr)
}

func (q *BlindQueue) reserve(ctx context.Context, experimentID uint) (*BlindItem, error) {
	var item *BlindItem
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findExperiment(tx, experimentID); err != nil {
			return err
		}
		now := q.now()

		if q.ttl > 0 {
			res := tx.Where("experiment_id = ? AND state = ? AND reserved_at < ?",
				experimentID, model.EvaluationReserved, now.Add(-q.ttl)).
				Delete(&model.Evaluation{})
			if res.Error != nil {
				return fmt.Errorf("释放过期预留失败: %w", res.Error)
			}
			if res.RowsAffected > 0 {
				q.logger.Info("Expired reservations released",
					zap.Uint("experiment_id", experimentID),
					zap.Int64("count", res.RowsAffected))
			}
		}

		var gen model.Generation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("experiment_id = ?", experimentID).
			Where("NOT EXISTS (SELECT 1 FROM evaluations WHERE evaluations.generation_id = generations.id)").
			Order("id ASC").
			Take(&gen).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("查询待评生成失败: %w", err)
		}

		ev := &model.Evaluation{
			GenerationID: gen.ID,
			ExperimentID: experimentID,
			BlindID:      q.mintBlindID(),
			State:        model.EvaluationReserved,
			ReservedAt:   now,
		}
		if err := tx.Create(ev).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
			return fmt.Errorf("创建盲评预留失败: %w", err)
		}

		var task model.Task
		if err := tx.Where("id = ?", gen.TaskID).Take(&task).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("查询任务失败: %w", err)
		}

		item = &BlindItem{
			BlindID:         ev.BlindID,
			Content:         gen.Content,
			TaskTitle:       task.Title,
			TaskDescription: task.Description,
			ContentType:     task.ContentType,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if item != nil {
		q.logger.Info("Blind item reserved",
			zap.Uint("experiment_id", experimentID),
			zap.String("blind_id", item.BlindID))
	}
	return item, nil
}

// Submit 写入评分。重复提交覆盖之前的结果；未知或已过期的盲评 ID 返回 ErrNotFound 且不创建记录。
// 全部生成都评分后，evaluating 状态的实验自动进入 complete。
func (q *BlindQueue) Submit(ctx context.Context, experimentID uint, req SubmitEvaluationRequest) (*model.Evaluation, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var ev model.Evaluation
	completed := false
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("experiment_id = ? AND blind_id = ?", experimentID, req.BlindID).Take(&ev).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: blind evaluation %s", ErrNotFound, req.BlindID)
		}
		if err != nil {
			return fmt.Errorf("查询盲评失败: %w", err)
		}

		now := q.now()
		if q.expired(&ev, now) {
			return fmt.Errorf("%w: %w: %s", ErrNotFound, errReservationExpired, req.BlindID)
		}

		seconds := int(now.Sub(ev.ReservedAt).Seconds())
		if seconds < 0 {
			seconds = 0
		}
		ev.VoiceMatch = &req.VoiceMatch
		ev.Coherence = &req.Coherence
		ev.Engaging = &req.Engaging
		ev.MeetsBrief = &req.MeetsBrief
		ev.OverallQuality = &req.OverallQuality
		ev.EditTimeMinutes = &req.EditTimeMinutes
		ev.WouldPublish = req.WouldPublish
		ev.Notes = req.Notes
		ev.State = model.EvaluationScored
		ev.ScoredAt = &now
		ev.EvaluationTimeSeconds = &seconds
		if err := tx.Save(&ev).Error; err != nil {
			return fmt.Errorf("保存评分失败: %w", err)
		}

		completed, err = q.completeIfDone(tx, experimentID)
		return err
	})
	if errors.Is(err, errReservationExpired) {
		q.purgeExpired(ctx, experimentID, req.BlindID)
	}
	if err != nil {
		return nil, err
	}

	q.logger.Info("Evaluation submitted",
		zap.Uint("experiment_id", experimentID),
		zap.String("blind_id", ev.BlindID),
		zap.Bool("experiment_complete", completed))
	return &ev, nil
}

func (q *BlindQueue) purgeExpired(ctx context.Context, experimentID uint, blindID string) {
	if q.ttl <= 0 {
		return
	}
	err := q.db.WithContext(ctx).
		Where("experiment_id = ? AND blind_id = ? AND state = ? AND reserved_at < ?",
			experimentID, blindID, model.EvaluationReserved, q.now().Add(-q.ttl)).
		Delete(&model.Evaluation{}).Error
	if err != nil {
		q.logger.Error("Failed to release expired reservation",
			zap.Uint("experiment_id", experimentID),
			zap.Error(err))
	}
}

func (q *BlindQueue) completeIfDone(tx *gorm.DB, experimentID uint) (bool, error) {
	exp, err := findExperiment(tx, experimentID)
	if err != nil {
		return false, err
	}
	if exp.Status != model.StatusEvaluating {
		return false, nil
	}

	progress, err := countProgress(tx, experimentID)
	if err != nil {
		return false, err
	}
	if progress.Total == 0 || progress.Done < progress.Total {
		return false, nil
	}
	if _, err := transitionExperiment(tx, experimentID, model.StatusComplete); err != nil {
		return false, err
	}
	return true, nil
}

// Progress done 为 overall_quality 非空的评审数
func (q *BlindQueue) Progress(ctx context.Context, experimentID uint) (*EvaluationProgress, error) {
	tx := q.db.WithContext(ctx)
	if _, err := findExperiment(tx, experimentID); err != nil {
		return nil, err
	}
	return countProgress(tx, experimentID)
}

func countProgress(tx *gorm.DB, experimentID uint) (*EvaluationProgress, error) {
	var total, done int64
	if err := tx.Model(&model.Generation{}).Where("experiment_id = ?", experimentID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("统计生成记录失败: %w", err)
	}
	if err := tx.Model(&model.Evaluation{}).
		Where("experiment_id = ? AND overall_quality IS NOT NULL", experimentID).
		Count(&done).Error; err != nil {
		return nil, fmt.Errorf("统计评审记录失败: %w", err)
	}
	return &EvaluationProgress{Done: int(done), Total: int(total)}, nil
}

// ListScored 只暴露盲评 ID 与总分，不泄露生成来源
func (q *BlindQueue) ListScored(ctx context.Context, experimentID uint) ([]ScoredItem, error) {
	tx := q.db.WithContext(ctx)
	if _, err := findExperiment(tx, experimentID); err != nil {
		return nil, err
	}

	var items []ScoredItem
	if err := tx.Model(&model.Evaluation{}).
		Select("id, blind_id, overall_quality").
		Where("experiment_id = ? AND overall_quality IS NOT NULL", experimentID).
		Order("id ASC").
		Scan(&items).Error; err != nil {
		return nil, fmt.Errorf("查询评审记录失败: %w", err)
	}
	return items, nil
}
