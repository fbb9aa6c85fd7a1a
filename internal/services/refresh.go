package services

import (
	"EcoWatch/internal/models"
	"EcoWatch/pkg/logger"
	"EcoWatch/pkg/metrics"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const refreshCityTimeout = 30 * time.Second

// RefreshJob 定时为所有用户城市和默认城市预热读数
type RefreshJob struct {
	db          *gorm.DB
	fresh       *FreshnessService
	water       *WaterService
	defaultCity string
	metrics     *metrics.Metrics
}

func NewRefreshJob(db *gorm.DB, fresh *FreshnessService, water *WaterService, opts Options) *RefreshJob {
	opts = opts.withDefaults()
	return &RefreshJob{db: db, fresh: fresh, water: water, defaultCity: opts.DefaultCity, metrics: opts.Metrics}
}

// Cities 按城市键去重，默认城市排在第一位
func (j *RefreshJob) Cities(ctx context.Context) ([]string, error) {
	cities, err := models.DistinctUserCities(j.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{models.NormalizeCity(j.defaultCity): true}
	out := []string{j.defaultCity}
	for _, c := range cities {
		key := models.NormalizeCity(c)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out, nil
}

func (j *RefreshJob) Run(ctx context.Context) {
	n, err := j.RunOnce(ctx)
	if err != nil {
		logger.Error("refresh readings failed", zap.Int("cities", n), zap.Error(err))
		return
	}
	logger.Info("refresh readings finished", zap.Int("cities", n))
}

// RunOnce 单个城市失败不影响其余城市，返回处理的城市数
func (j *RefreshJob) RunOnce(ctx context.Context) (int, error) {
	cities, err := j.Cities(ctx)
	if err != nil {
		j.metrics.RecordRefresh("error")
		return 0, err
	}
	var errs []error
	for _, city := range cities {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := j.refreshCity(ctx, city); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", city, err))
		}
	}
	err = errors.Join(errs...)
	if err != nil {
		j.metrics.RecordRefresh("error")
	} else {
		j.metrics.RecordRefresh("ok")
	}
	return len(cities), err
}

func (j *RefreshJob) refreshCity(ctx context.Context, city string) error {
	ctx, cancel := context.WithTimeout(ctx, refreshCityTimeout)
	defer cancel()
	if _, err := j.fresh.Latest(ctx, city, models.KindWeather); err != nil {
		return err
	}
	if _, err := j.fresh.Latest(ctx, city, models.KindAirQuality); err != nil {
		return err
	}
	_, err := j.water.Refresh(ctx, city)
	return err
}
