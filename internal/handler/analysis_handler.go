package handler

import (
	"context"
	"net/http"

	"content-eval/internal/service"

	"github.com/gin-gonic/gin"
)

type AnalysisHandler struct {
	aggregator  *service.Aggregator
	experiments *service.ExperimentService
	queue       *service.BlindQueue
}

func NewAnalysisHandler(aggregator *service.Aggregator, experiments *service.ExperimentService, queue *service.BlindQueue) *AnalysisHandler {
	return &AnalysisHandler{aggregator: aggregator, experiments: experiments, queue: queue}
}

func (h *AnalysisHandler) Summary(c *gin.Context) {
	h.serve(c, func(ctx context.Context, id uint) (any, error) {
		return h.aggregator.Summary(ctx, id)
	})
}

func (h *AnalysisHandler) ByModel(c *gin.Context) {
	h.serve(c, func(ctx context.Context, id uint) (any, error) {
		return h.aggregator.ByModel(ctx, id)
	})
}

func (h *AnalysisHandler) ByStrategy(c *gin.Context) {
	h.serve(c, func(ctx context.Context, id uint) (any, error) {
		return h.aggregator.ByStrategy(ctx, id)
	})
}

func (h *AnalysisHandler) ByTask(c *gin.Context) {
	h.serve(c, func(ctx context.Context, id uint) (any, error) {
		return h.aggregator.ByTask(ctx, id)
	})
}

// Report 默认 JSON；?format=markdown 返回 markdown 文本
func (h *AnalysisHandler) Report(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	report, err := h.aggregator.Report(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	if c.Query("format") != "markdown" {
		c.JSON(http.StatusOK, report)
		return
	}

	exp, err := h.experiments.Get(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	progress, err := h.queue.Progress(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(service.RenderReportMarkdown(exp, report, progress)))
}

func (h *AnalysisHandler) serve(c *gin.Context, view func(ctx context.Context, id uint) (any, error)) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	out, err := view(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
