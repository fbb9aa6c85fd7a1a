// Package services 组合存储与数据源，实现读数新鲜度、水位告警、仪表盘聚合等业务
package services

import (
	"EcoWatch/internal/models"
	"EcoWatch/internal/provider"
	"EcoWatch/pkg/cache"
	"EcoWatch/pkg/i18n"
	"EcoWatch/pkg/metrics"
	"EcoWatch/pkg/search"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

const DefaultCity = "Chennai"

var DefaultThresholds = models.Thresholds{Watch: 3.0, Warning: 4.5, Critical: 6.0}

type Options struct {
	DefaultCity  string
	FreshnessTTL time.Duration
	Thresholds   models.Thresholds
	Clock        clockwork.Clock
	Cache        cache.Cache
	Metrics      *metrics.Metrics
	I18n         *i18n.I18nSupport
	TipIndex     search.Engine
}

func (o Options) withDefaults() Options {
	if o.DefaultCity == "" {
		o.DefaultCity = DefaultCity
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	o.Thresholds = o.Thresholds.Or(DefaultThresholds)
	return o
}

// Services 处理器依赖的全部业务服务
type Services struct {
	Freshness *FreshnessService
	Water     *WaterService
	Dashboard *DashboardService
	Tips      *TipService
	Refresh   *RefreshJob
}

func New(db *gorm.DB, p provider.Provider, opts Options) *Services {
	opts = opts.withDefaults()
	water := NewWaterService(db, p, opts)
	fresh := NewFreshnessService(db, p, water, opts)
	return &Services{
		Freshness: fresh,
		Water:     water,
		Dashboard: NewDashboardService(db, fresh, p, opts),
		Tips:      NewTipService(db, opts.TipIndex),
		Refresh:   NewRefreshJob(db, fresh, water, opts),
	}
}
