package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"content-eval/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type taskFile struct {
	Tasks []taskEntry `json:"tasks"`
}

type taskEntry struct {
	ID                    string `json:"id"`
	ContentType           string `json:"content_type"`
	Title                 string `json:"title"`
	Description           string `json:"description"`
	StructuredPrompt      string `json:"structured_prompt"`
	ExamplePromptTemplate string `json:"example_prompt_template"`
}

// TaskCatalog 内容任务目录，加载一次后只读
type TaskCatalog struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewTaskCatalog(conn *gorm.DB, logger *zap.Logger) *TaskCatalog {
	return &TaskCatalog{db: conn, logger: logger}
}

// Load 从 JSON 文件导入尚不存在的任务，返回新增数量。重复加载不会覆盖已有任务。
func (c *TaskCatalog) Load(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: 读取任务文件失败: %w", ErrConfiguration, err)
	}

	var file taskFile
	if err := json.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("%w: 解析任务文件失败: %w", ErrConfiguration, err)
	}

	tasks := make([]model.Task, 0, len(file.Tasks))
	for _, t := range file.Tasks {
		if t.ID == "" {
			return 0, fmt.Errorf("%w: 任务缺少 id", ErrConfiguration)
		}
		ct, err := model.ParseContentType(t.ContentType)
		if err != nil {
			return 0, fmt.Errorf("%w: 任务 %s: %w", ErrConfiguration, t.ID, err)
		}
		tasks = append(tasks, model.Task{
			ID:                    t.ID,
			ContentType:           ct,
			Title:                 t.Title,
			Description:           t.Description,
			StructuredPrompt:      t.StructuredPrompt,
			ExamplePromptTemplate: t.ExamplePromptTemplate,
		})
	}

	inserted := 0
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range tasks {
			var existing model.Task
			err := tx.Where("id = ?", tasks[i].ID).Take(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("查询任务失败: %w", err)
			}
			if err := tx.Create(&tasks[i]).Error; err != nil {
				return fmt.Errorf("写入任务失败: %w", err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.logger.Info("Task catalog loaded",
		zap.String("path", path),
		zap.Int("in_file", len(tasks)),
		zap.Int("inserted", inserted))
	return inserted, nil
}

func (c *TaskCatalog) List(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.db.WithContext(ctx).Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("查询任务失败: %w", err)
	}
	return tasks, nil
}

func (c *TaskCatalog) Get(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := c.db.WithContext(ctx).Where("id = ?", id).Take(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("查询任务失败: %w", err)
	}
	return &task, nil
}
