package handler

import (
	"context"
	"net/http"

	"content-eval/internal/service"

	"github.com/gin-gonic/gin"
)

type GenerationHandler struct {
	pipeline *service.GenerationPipeline
}

func NewGenerationHandler(pipeline *service.GenerationPipeline) *GenerationHandler {
	return &GenerationHandler{pipeline: pipeline}
}

// StartGeneration 默认同步执行整个计划并返回进度；async=true 时后台执行，返回 202 和 run_id
func (h *GenerationHandler) StartGeneration(c *gin.Context) {
	var req struct {
		service.PlanRequest
		Async bool `json:"async"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Async {
		// 后台任务不随请求结束而取消
		runID, err := h.pipeline.Start(context.WithoutCancel(c.Request.Context()), req.PlanRequest)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"run_id": runID, "experiment_id": req.ExperimentID})
		return
	}

	progress, err := h.pipeline.Run(c.Request.Context(), req.PlanRequest)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (h *GenerationHandler) GetProgress(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	progress, err := h.pipeline.Progress(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// ListGenerations 不返回 prompt 与生成内容
func (h *GenerationHandler) ListGenerations(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	gens, err := h.pipeline.ListGenerations(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gens)
}
