package middleware

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const DbField = "_ecowatch_db"

// InjectDB 把全局 DB 放进请求上下文，供 models 层的鉴权中间件使用
func InjectDB(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(DbField, db.WithContext(c.Request.Context()))
		c.Next()
	}
}
