package handler

import (
	"errors"
	"net/http"
	"strconv"

	"content-eval/internal/service"

	"github.com/gin-gonic/gin"
)

// writeError 把 service 层错误映射为 HTTP 状态码
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConfiguration), errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidTransition):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	return parseUint(c, name, c.Param(name))
}

func parseUint(c *gin.Context, name, raw string) (uint, bool) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(v), true
}
