package handler

import (
	"net/http"

	"content-eval/internal/service"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	catalog *service.TaskCatalog
}

func NewTaskHandler(catalog *service.TaskCatalog) *TaskHandler {
	return &TaskHandler{catalog: catalog}
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks, err := h.catalog.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}
