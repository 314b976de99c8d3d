package cli

import (
	"context"
	"fmt"

	"content-eval/internal/config"
	"content-eval/internal/db"
	"content-eval/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "content-eval",
	Short: "Blind comparison experiments for LLM-generated content",
	Long: `content-eval generates content for every configured provider, model and
prompt strategy across a fixed task catalog, hands the results to human
evaluators one blind sample at a time, and aggregates the ratings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command. Called once from main.main().
func Execute() error {
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "path to the YAML config file")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// app 命令共用的运行时依赖
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	svc    *service.ServiceContext
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	conn, err := db.InitDB(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}

	svc, err := service.NewServiceContext(ctx, cfg, conn, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化服务失败: %w", err)
	}
	return &app{cfg: cfg, logger: logger, svc: svc}, nil
}

func (a *app) close() {
	if err := a.svc.Close(); err != nil {
		a.logger.Warn("Failed to close services", zap.Error(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}
