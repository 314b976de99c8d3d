package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPacing         = 50 * time.Millisecond
	defaultReservationTTL = 2 * time.Hour
	defaultTemperature    = 0.7
	defaultMaxTokens      = 500
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	TasksPath  string           `yaml:"tasks_path"`
	Providers  []ProviderConfig `yaml:"providers"`
	Generation GenerationConfig `yaml:"generation"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	// debug 使用 zap development 配置，其余使用 production
	Level string `yaml:"level"`
}

type DatabaseConfig struct {
	// mysql / sqlite
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	Charset  string `yaml:"charset"`
}

// ProviderConfig 一个生成后端及其可用模型（含定价）
type ProviderConfig struct {
	Name    string        `yaml:"name"`
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Params  ParamsConfig  `yaml:"params"`
	Models  []ModelConfig `yaml:"models"`
}

type ParamsConfig struct {
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// UnmarshalYAML 未写 temperature 时取默认值，显式的 0 保留
func (p *ProviderConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain ProviderConfig
	raw := plain{Params: ParamsConfig{Temperature: defaultTemperature}}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*p = ProviderConfig(raw)
	return nil
}

// ModelConfig 价格单位：美元 / 1000 tokens
type ModelConfig struct {
	Name        string  `yaml:"name"`
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
}

type GenerationConfig struct {
	// 相邻两次生成调用之间的最小间隔，0 表示不限速
	Pacing time.Duration `yaml:"pacing"`
	// 0 表示按时间取种子
	Seed int64 `yaml:"seed"`
}

type EvaluationConfig struct {
	// 领取后未评分的保留时长，超时释放回待评池；0 或负数表示永不过期
	ReservationTTL time.Duration `yaml:"reservation_ttl"`
	BlindPrefix    string        `yaml:"blind_prefix"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 可以显式写 0 的字段先填默认值，yaml 只覆盖文件中出现的键
	config := Config{
		Generation: GenerationConfig{Pacing: defaultPacing},
		Evaluation: EvaluationConfig{ReservationTTL: defaultReservationTTL},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	config.applyDefaults()

	for i := range config.Providers {
		config.Providers[i].APIKey = os.ExpandEnv(config.Providers[i].APIKey)
	}
	config.Database.Password = os.ExpandEnv(config.Database.Password)

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/database.db"
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if c.TasksPath == "" {
		c.TasksPath = "data/tasks.json"
	}
	if c.Evaluation.BlindPrefix == "" {
		c.Evaluation.BlindPrefix = "B-"
	}
	for i := range c.Providers {
		p := &c.Providers[i]
		if p.Params.MaxTokens <= 0 {
			p.Params.MaxTokens = defaultMaxTokens
		}
	}
}
