package service

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"time"

	"content-eval/internal/config"
	"content-eval/internal/llm"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceContext struct {
	Config      *config.Config
	Logger      *zap.Logger
	Generator   *llm.Client
	Tasks       *TaskCatalog
	Experiments *ExperimentService
	Pipeline    *GenerationPipeline
	Queue       *BlindQueue
	Aggregator  *Aggregator
}

func NewServiceContext(ctx context.Context, cfg *config.Config, conn *gorm.DB, logger *zap.Logger) (*ServiceContext, error) {
	entries, pricing, err := llm.BuildTable(cfg.Providers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	generator, err := llm.NewClientFromConfig(ctx, cfg.Providers, pricing, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	seed := cfg.Generation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	scheduler := NewScheduler(entries, rand.New(rand.NewSource(seed)))
	// 盲评 ID 不跟随 generation.seed：重启后不能重放已发出的 ID，也不能从配置推算
	queue := NewBlindQueue(conn, rand.New(rand.NewSource(entropySeed())), cfg.Evaluation.BlindPrefix, cfg.Evaluation.ReservationTTL, logger)

	return &ServiceContext{
		Config:      cfg,
		Logger:      logger,
		Generator:   generator,
		Tasks:       NewTaskCatalog(conn, logger),
		Experiments: NewExperimentService(conn, logger),
		Pipeline:    NewGenerationPipeline(conn, generator, pricing, scheduler, cfg.Generation.Pacing, logger),
		Queue:       queue,
		Aggregator:  NewAggregator(conn),
	}, nil
}

func entropySeed() int64 {
	var b [8]byte
	if _, err := cryptorand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

// Close 等待后台生成结束并释放生成后端
func (s *ServiceContext) Close() error {
	s.Pipeline.Wait()
	return s.Generator.Close()
}
