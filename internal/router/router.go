package router

import (
	"net/http"
	"time"

	"content-eval/internal/handler"
	"content-eval/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SetupRouter(svc *service.ServiceContext) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(svc.Logger))

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 初始化handlers
	experimentHandler := handler.NewExperimentHandler(svc.Experiments)
	taskHandler := handler.NewTaskHandler(svc.Tasks)
	generationHandler := handler.NewGenerationHandler(svc.Pipeline)
	evaluationHandler := handler.NewEvaluationHandler(svc.Queue)
	analysisHandler := handler.NewAnalysisHandler(svc.Aggregator, svc.Experiments, svc.Queue)

	// API路由
	api := r.Group("/api")
	{
		// 实验
		experiments := api.Group("/experiments")
		{
			experiments.POST("", experimentHandler.CreateExperiment)
			experiments.GET("", experimentHandler.ListExperiments)
			experiments.GET("/:id", experimentHandler.GetExperiment)
			experiments.PUT("/:id/status", experimentHandler.UpdateStatus)
		}

		// 任务目录
		tasks := api.Group("/tasks")
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.GET("/:id", taskHandler.GetTask)
		}

		// 生成
		generations := api.Group("/generations")
		{
			generations.POST("/start", generationHandler.StartGeneration)
			generations.GET("/progress/:id", generationHandler.GetProgress)
			generations.GET("/:id", generationHandler.ListGenerations)
		}

		// 盲评
		evaluations := api.Group("/evaluations")
		{
			evaluations.GET("/next/:id", evaluationHandler.NextItem)
			evaluations.POST("", evaluationHandler.SubmitEvaluation)
			evaluations.GET("/progress/:id", evaluationHandler.GetProgress)
			evaluations.GET("/:id", evaluationHandler.ListScored)
		}

		// 统计
		analysis := api.Group("/analysis/:id")
		{
			analysis.GET("/summary", analysisHandler.Summary)
			analysis.GET("/by-model", analysisHandler.ByModel)
			analysis.GET("/by-strategy", analysisHandler.ByStrategy)
			analysis.GET("/by-task", analysisHandler.ByTask)
			analysis.GET("/report", analysisHandler.Report)
		}
	}

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
