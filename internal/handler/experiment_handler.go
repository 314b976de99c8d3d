package handler

import (
	"net/http"

	"content-eval/internal/model"
	"content-eval/internal/service"

	"github.com/gin-gonic/gin"
)

type ExperimentHandler struct {
	experiments *service.ExperimentService
}

func NewExperimentHandler(experiments *service.ExperimentService) *ExperimentHandler {
	return &ExperimentHandler{experiments: experiments}
}

// CreateExperiment 创建实验，初始状态 setup
func (h *ExperimentHandler) CreateExperiment(c *gin.Context) {
	var req service.CreateExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exp, err := h.experiments.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exp)
}

func (h *ExperimentHandler) ListExperiments(c *gin.Context) {
	exps, err := h.experiments.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, exps)
}

func (h *ExperimentHandler) GetExperiment(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	exp, err := h.experiments.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

// UpdateStatus 状态可以放在 query (?status=) 或 JSON body 中
func (h *ExperimentHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	status := c.Query("status")
	if status == "" {
		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status = req.Status
	}

	next, err := model.ParseExperimentStatus(status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exp, err := h.experiments.UpdateStatus(c.Request.Context(), id, next)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": exp.Status})
}
