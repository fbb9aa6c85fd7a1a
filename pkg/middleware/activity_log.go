package middleware

import (
	"EcoWatch/pkg/logger"
	"net"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mssola/user_agent"
	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ActivityLog 用户操作日志
type ActivityLog struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"index" json:"user_id"`
	Action          string    `gorm:"size:16" json:"action"`  // HTTP 方法
	Target          string    `gorm:"size:255" json:"target"` // 路由模板
	Status          int       `json:"status"`
	IPAddress       string    `gorm:"size:64" json:"ip_address"`
	Device          string    `gorm:"size:64" json:"device"`
	Browser         string    `gorm:"size:128" json:"browser"`
	OperatingSystem string    `gorm:"size:128" json:"operating_system"`
	Mobile          bool      `json:"mobile"`
	Location        string    `gorm:"size:128" json:"location"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// GeoLocator 基于 GeoLite2-City 数据库的 IP 定位，启动时打开一次
type GeoLocator struct {
	reader *geoip2.Reader
}

func NewGeoLocator(path string) (*GeoLocator, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoLocator{reader: r}, nil
}

// City 返回英文城市名，无法定位时返回空串
func (g *GeoLocator) City(address string) string {
	if g == nil || g.reader == nil {
		return ""
	}
	ip := net.ParseIP(address)
	if ip == nil {
		return ""
	}
	record, err := g.reader.City(ip)
	if err != nil {
		return ""
	}
	return record.City.Names["en"]
}

func (g *GeoLocator) Close() error {
	if g == nil || g.reader == nil {
		return nil
	}
	return g.reader.Close()
}

// ActivityLogMiddleware 在请求成功后记录操作日志，写库失败不影响响应
func ActivityLogMiddleware(db *gorm.DB, geo *GeoLocator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status >= 400 {
			return
		}
		var userID uint
		if v, ok := c.Get("user_id"); ok {
			userID = toUint(v)
		}

		ua := user_agent.New(c.Request.UserAgent())
		browser, version := ua.Browser()
		ip := c.ClientIP()
		entry := ActivityLog{
			UserID:          userID,
			Action:          c.Request.Method,
			Target:          routeOf(c),
			Status:          status,
			IPAddress:       ip,
			Device:          ua.Platform(),
			Browser:         browser + " " + version,
			OperatingSystem: ua.OS(),
			Mobile:          ua.Mobile(),
			Location:        geo.City(ip),
		}
		if err := db.WithContext(c.Request.Context()).Create(&entry).Error; err != nil {
			logger.Warn("record activity failed", zap.Error(err))
		}
	}
}
