package service

import (
	"context"
	"errors"
	"fmt"

	"content-eval/internal/model"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type CreateExperimentRequest struct {
	Name            string   `json:"name" validate:"required,max=255"`
	Description     string   `json:"description"`
	BaselineSamples []string `json:"baseline_samples"`
}

// ExperimentService 实验的创建、查询与状态机
type ExperimentService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewExperimentService(conn *gorm.DB, logger *zap.Logger) *ExperimentService {
	return &ExperimentService{db: conn, logger: logger}
}

func (s *ExperimentService) Create(ctx context.Context, req CreateExperimentRequest) (*model.Experiment, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	samples := req.BaselineSamples
	if samples == nil {
		samples = []string{}
	}

	exp := &model.Experiment{
		Name:            req.Name,
		Description:     req.Description,
		BaselineSamples: samples,
		Status:          model.StatusSetup,
	}
	if err := s.db.WithContext(ctx).Create(exp).Error; err != nil {
		return nil, fmt.Errorf("创建实验失败: %w", err)
	}
	s.logger.Info("Experiment created", zap.Uint("experiment_id", exp.ID), zap.String("name", exp.Name))
	return exp, nil
}

// List 按创建时间倒序
func (s *ExperimentService) List(ctx context.Context) ([]model.Experiment, error) {
	var exps []model.Experiment
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&exps).Error; err != nil {
		return nil, fmt.Errorf("查询实验失败: %w", err)
	}
	return exps, nil
}

func (s *ExperimentService) Get(ctx context.Context, id uint) (*model.Experiment, error) {
	return findExperiment(s.db.WithContext(ctx), id)
}

// UpdateStatus 按状态机迁移，非法迁移返回 ErrInvalidTransition
func (s *ExperimentService) UpdateStatus(ctx context.Context, id uint, status model.ExperimentStatus) (*model.Experiment, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown experiment status %q", ErrInvalidInput, status)
	}

	var exp *model.Experiment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		exp, err = transitionExperiment(tx, id, status)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Experiment status updated", zap.Uint("experiment_id", id), zap.String("status", string(status)))
	return exp, nil
}

func findExperiment(tx *gorm.DB, id uint) (*model.Experiment, error) {
	var exp model.Experiment
	err := tx.First(&exp, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: experiment %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("查询实验失败: %w", err)
	}
	return &exp, nil
}

// transitionExperiment 在调用方的事务内完成校验与更新
func transitionExperiment(tx *gorm.DB, id uint, next model.ExperimentStatus) (*model.Experiment, error) {
	exp, err := findExperiment(tx, id)
	if err != nil {
		return nil, err
	}
	if !exp.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, exp.Status, next)
	}
	if exp.Status == next {
		return exp, nil
	}
	if err := tx.Model(exp).Update("status", next).Error; err != nil {
		return nil, fmt.Errorf("更新实验状态失败: %w", err)
	}
	exp.Status = next
	return exp, nil
}
