package handler

import (
	"net/http"

	"content-eval/internal/service"

	"github.com/gin-gonic/gin"
)

type EvaluationHandler struct {
	queue *service.BlindQueue
}

func NewEvaluationHandler(queue *service.BlindQueue) *EvaluationHandler {
	return &EvaluationHandler{queue: queue}
}

// NextItem 领取下一条盲评；没有剩余时返回 {"done": true}
func (h *EvaluationHandler) NextItem(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	item, err := h.queue.Next(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if item == nil {
		c.JSON(http.StatusOK, gin.H{"done": true})
		return
	}
	c.JSON(http.StatusOK, item)
}

// SubmitEvaluation POST /api/evaluations?experiment_id=
func (h *EvaluationHandler) SubmitEvaluation(c *gin.Context) {
	experimentID, ok := parseUint(c, "experiment_id", c.Query("experiment_id"))
	if !ok {
		return
	}
	var req service.SubmitEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := h.queue.Submit(c.Request.Context(), experimentID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": ev.ID})
}

func (h *EvaluationHandler) GetProgress(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	progress, err := h.queue.Progress(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// ListScored 只返回 id、盲评 ID 与总分
func (h *EvaluationHandler) ListScored(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	items, err := h.queue.ListScored(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}
