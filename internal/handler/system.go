package handlers

import (
	"EcoWatch/pkg/middleware"
	"EcoWatch/pkg/response"
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
)

// UpdateRateLimiterConfig 更新限流配置
func (h *Handlers) UpdateRateLimiterConfig(c *gin.Context) {
	if h.opts.Limiter == nil {
		response.Fail(c, "rate limiter is disabled", nil)
		return
	}
	var config middleware.RateLimiterConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		response.Fail(c, "invalid request", nil)
		return
	}
	if config.Rate == "" {
		config.Rate = h.opts.Limiter.Config().Rate
	}

	// 更新限流配置
	h.opts.Limiter.UpdateConfig(config)
	response.Success(c, "rate limiter config updated", h.opts.Limiter.Config())
}

// HealthCheck 健康检查接口
func (h *Handlers) HealthCheck(c *gin.Context) {
	// 检查数据库连接
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database connection failed"})
		return
	}
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database ping failed"})
		return
	}

	body := gin.H{
		"status":     "healthy",
		"goroutines": runtime.NumGoroutine(),
	}
	// 主机内存信息取不到时不影响健康状态
	if vm, err := mem.VirtualMemoryWithContext(c.Request.Context()); err == nil {
		body["memory"] = gin.H{
			"total":        vm.Total,
			"available":    vm.Available,
			"used_percent": vm.UsedPercent,
		}
	}
	c.JSON(http.StatusOK, body)
}
