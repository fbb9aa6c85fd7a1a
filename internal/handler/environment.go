package handlers

import (
	"EcoWatch/internal/models"
	apperrors "EcoWatch/pkg/errors"
	"EcoWatch/pkg/middleware"
	"EcoWatch/pkg/response"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) handleHome(c *gin.Context) {
	home, err := h.svc.Dashboard.Home(c.Request.Context())
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, "success", home)
}

func (h *Handlers) handleDashboard(c *gin.Context) {
	view, err := h.svc.Dashboard.Build(c.Request.Context(), models.CurrentUser(c))
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, "success", view)
}

// handleDashboardData 前端轮询接口，直接返回数据不包信封
func (h *Handlers) handleDashboardData(c *gin.Context) {
	data, err := h.svc.Dashboard.Data(c.Request.Context(), models.CurrentUser(c))
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *Handlers) handleWeatherDetails(c *gin.Context) {
	details, err := h.svc.Dashboard.WeatherDetails(c.Request.Context(), models.CurrentUser(c))
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, "success", details)
}

func (h *Handlers) handleAirQualityDetails(c *gin.Context) {
	details, err := h.svc.Dashboard.AirQualityDetails(c.Request.Context(), models.CurrentUser(c), middleware.Lang(c))
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, "success", details)
}

func (h *Handlers) handleWaterLevels(c *gin.Context) {
	city := h.svc.Dashboard.City(models.CurrentUser(c))
	levels, err := h.svc.Water.Refresh(c.Request.Context(), city)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, "success", gin.H{
		"city":         models.DisplayCity(city),
		"water_levels": levels,
		"thresholds":   h.svc.Water.Defaults(),
	})
}

func parseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("invalid %s", name)
	}
	return uint(id), nil
}

// queryInt 缺省时取 def，非数字按参数错误处理
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Validation("invalid %s", name)
	}
	return v, nil
}

// handleUpdateWaterLevel 签名接口，状态由新的数值重新计算
func (h *Handlers) handleUpdateWaterLevel(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	var upd models.WaterLevelUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		response.Fail(c, "invalid request", gin.H{"error": err.Error()})
		return
	}
	level, err := h.svc.Water.Update(c.Request.Context(), id, upd)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, "water level updated", level)
}

func (h *Handlers) handleEcoTips(c *gin.Context) {
	list, err := h.svc.Tips.List(c.Request.Context(), c.DefaultQuery("category", models.CategoryAll))
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, "success", list)
}

func (h *Handlers) handleSearchTips(c *gin.Context) {
	size, err := queryInt(c, "size", 10)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	res, err := h.svc.Tips.Search(c.Request.Context(), c.Query("q"), c.Query("category"), size)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, "success", res)
}

func (h *Handlers) handleCommunityReports(c *gin.Context) {
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	reports, err := h.svc.Dashboard.CommunityReports(c.Request.Context(), models.CurrentUser(c), limit)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, "success", reports)
}
