package handlers

import (
	"EcoWatch/internal/models"
	"EcoWatch/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) handleListAlerts(c *gin.Context) {
	user := models.CurrentUser(c)
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		response.AbortWithResult(c, err)
		return
	}
	alerts, err := models.UnreadAlerts(h.db.WithContext(c.Request.Context()), user.ID, limit)
	if err != nil {
		response.AbortWithResult(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "alerts": alerts, "count": len(alerts)})
}

// handleMarkAlertRead 只接受 POST，其余方法返回 405
func (h *Handlers) handleMarkAlertRead(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"success": false, "error": "Invalid request method"})
		return
	}
	id, err := parseID(c, "id")
	if err != nil {
		response.AbortWithResult(c, err)
		return
	}
	user := models.CurrentUser(c)
	if _, err := models.MarkAlertRead(h.db.WithContext(c.Request.Context()), user.ID, id); err != nil {
		response.AbortWithResult(c, err)
		return
	}
	h.opts.Metrics.RecordAlertRead()
	c.JSON(http.StatusOK, gin.H{"success": true})
}
