package response

import (
	apperrors "EcoWatch/pkg/errors"
	"EcoWatch/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Body 统一响应结构
type Body struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

func Success(c *gin.Context, msg string, data any) {
	c.JSON(http.StatusOK, Body{Code: 0, Msg: msg, Data: data})
}

// Fail 参数或业务错误，返回 400
func Fail(c *gin.Context, msg string, data any) {
	c.JSON(http.StatusBadRequest, Body{Code: http.StatusBadRequest, Msg: msg, Data: data})
}

// AbortWithError 按错误类型映射 HTTP 状态；内部错误只记录日志，不把原始信息返回给客户端
func AbortWithError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	status := kind.HTTPStatus()
	msg := apperrors.GetMessage(err)
	if kind == apperrors.KindInternal {
		logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		msg = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, Body{Code: status, Msg: msg, Data: gin.H{"kind": kind.String()}})
}

// AbortWithResult 用于 {success, error} 形式的接口
func AbortWithResult(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	status := kind.HTTPStatus()
	msg := apperrors.GetMessage(err)
	if kind == apperrors.KindInternal {
		logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		msg = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}
