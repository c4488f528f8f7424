package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Healthz 探测各依赖，任一失败返回 503
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	result := gin.H{"status": "ok"}
	for _, hc := range h.checks {
		if err := hc.Check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			result["status"] = "degraded"
			result[hc.Name] = err.Error()
			continue
		}
		result[hc.Name] = "ok"
	}
	c.JSON(status, result)
}
