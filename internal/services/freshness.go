package services

import (
	"EcoWatch/internal/models"
	"EcoWatch/internal/provider"
	"EcoWatch/pkg/cache"
	apperrors "EcoWatch/pkg/errors"
	"EcoWatch/pkg/logger"
	"EcoWatch/pkg/metrics"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Reading Latest 的结果，按 Kind 只填充其中一项
type Reading struct {
	Kind        models.Kind            `json:"kind"`
	City        string                 `json:"city"`
	Weather     *models.WeatherData    `json:"weather,omitempty"`
	AirQuality  *models.AirQualityData `json:"air_quality,omitempty"`
	WaterLevels []models.WaterLevel    `json:"water_levels,omitempty"`
}

// Recent 天气与空气质量的当前读数
type Recent struct {
	Weather    *models.WeatherData    `json:"weather"`
	AirQuality *models.AirQualityData `json:"air_quality"`
}

// Series 详情页使用的历史读数，最新在前
type Series struct {
	Kind        models.Kind             `json:"kind"`
	City        string                  `json:"city"`
	Weather     []models.WeatherData    `json:"weather,omitempty"`
	AirQuality  []models.AirQualityData `json:"air_quality,omitempty"`
	WaterLevels []models.WaterLevel     `json:"water_levels,omitempty"`
}

// FreshnessService 优先复用未过期的读数，过期或缺失时向数据源取新值并按时间窗口写入一条
type FreshnessService struct {
	db       *gorm.DB
	cache    cache.Cache
	provider provider.Provider
	water    *WaterService
	clock    clockwork.Clock
	ttl      time.Duration
	metrics  *metrics.Metrics
}

func NewFreshnessService(db *gorm.DB, p provider.Provider, water *WaterService, opts Options) *FreshnessService {
	opts = opts.withDefaults()
	return &FreshnessService{
		db:       db,
		cache:    opts.Cache,
		provider: p,
		water:    water,
		clock:    opts.Clock,
		ttl:      opts.FreshnessTTL,
		metrics:  opts.Metrics,
	}
}

func (s *FreshnessService) TTL() time.Duration { return s.ttl }

// fresh ttl<=0 表示永不过期
func (s *FreshnessService) fresh(recordedAt time.Time) bool {
	if s.ttl <= 0 {
		return true
	}
	return s.clock.Now().Sub(recordedAt) < s.ttl
}

func cityArg(city string) (string, error) {
	key := models.NormalizeCity(city)
	if key == "" {
		return "", apperrors.Validation("city is required")
	}
	return key, nil
}

// Latest 指定城市与类型的最新读数；水位返回该城市全部站点
func (s *FreshnessService) Latest(ctx context.Context, city string, kind models.Kind) (*Reading, error) {
	if !kind.Valid() {
		return nil, apperrors.Validation("unknown reading kind %q", kind)
	}
	if _, err := cityArg(city); err != nil {
		return nil, err
	}
	out := &Reading{Kind: kind, City: models.DisplayCity(city)}
	var err error
	switch kind {
	case models.KindWeather:
		out.Weather, err = s.Weather(ctx, city)
	case models.KindAirQuality:
		out.AirQuality, err = s.AirQuality(ctx, city)
	case models.KindWaterLevel:
		out.WaterLevels, err = s.waterLevels(ctx, city)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FreshnessService) Recent(ctx context.Context, city string) (*Recent, error) {
	w, err := s.Weather(ctx, city)
	if err != nil {
		return nil, err
	}
	aq, err := s.AirQuality(ctx, city)
	if err != nil {
		return nil, err
	}
	return &Recent{Weather: w, AirQuality: aq}, nil
}

func (s *FreshnessService) Weather(ctx context.Context, city string) (*models.WeatherData, error) {
	key, err := cityArg(city)
	if err != nil {
		return nil, err
	}
	return lookup(ctx, s, models.KindWeather, key,
		func(db *gorm.DB) (*models.WeatherData, error) { return models.LatestWeather(db, key) },
		func(w *models.WeatherData) time.Time { return w.RecordedAt },
		func(ctx context.Context, now time.Time) (*models.WeatherData, error) {
			r, err := s.provider.Weather(ctx, city)
			if err != nil {
				return nil, err
			}
			return models.UpsertWeather(s.db.WithContext(ctx), &models.WeatherData{
				City:               models.DisplayCity(city),
				Bucket:             models.Bucket(now, s.ttl),
				Temperature:        r.Temperature,
				Humidity:           r.Humidity,
				Rainfall:           r.Rainfall,
				WindSpeed:          r.WindSpeed,
				Pressure:           r.Pressure,
				WeatherDescription: r.Description,
				Source:             r.Source,
				RecordedAt:         now,
			})
		})
}

func (s *FreshnessService) AirQuality(ctx context.Context, city string) (*models.AirQualityData, error) {
	key, err := cityArg(city)
	if err != nil {
		return nil, err
	}
	return lookup(ctx, s, models.KindAirQuality, key,
		func(db *gorm.DB) (*models.AirQualityData, error) { return models.LatestAirQuality(db, key) },
		func(a *models.AirQualityData) time.Time { return a.RecordedAt },
		func(ctx context.Context, now time.Time) (*models.AirQualityData, error) {
			r, err := s.provider.AirQuality(ctx, city)
			if err != nil {
				return nil, err
			}
			return models.UpsertAirQuality(s.db.WithContext(ctx), &models.AirQualityData{
				City:       models.DisplayCity(city),
				Bucket:     models.Bucket(now, s.ttl),
				AQI:        r.AQI,
				PM25:       r.PM25,
				PM10:       r.PM10,
				NO2:        r.NO2,
				SO2:        r.SO2,
				CO:         r.CO,
				O3:         r.O3,
				Source:     r.Source,
				RecordedAt: now,
			})
		})
}

// waterLevels 站点列表中最新的记录未过期时直接返回，否则重新拉取全部站点
func (s *FreshnessService) waterLevels(ctx context.Context, city string) ([]models.WaterLevel, error) {
	key, _ := cityArg(city)
	levels, err := models.ListWaterLevels(s.db.WithContext(ctx), key)
	if err != nil {
		return nil, err
	}
	var newest time.Time
	for _, l := range levels {
		if l.RecordedAt.After(newest) {
			newest = l.RecordedAt
		}
	}
	kind := string(models.KindWaterLevel)
	if len(levels) > 0 && s.fresh(newest) {
		s.metrics.RecordFreshness(kind, "fresh")
		return levels, nil
	}
	if len(levels) > 0 {
		s.metrics.RecordFreshness(kind, "stale")
	} else {
		s.metrics.RecordFreshness(kind, "miss")
	}
	return s.water.Refresh(ctx, city)
}

func cacheKey(kind models.Kind, cityKey string) string {
	return fmt.Sprintf("reading:%s:%s", kind, strings.ReplaceAll(cityKey, " ", "_"))
}

// lookup 缓存 -> 数据库 -> 数据源
func lookup[T any](
	ctx context.Context,
	s *FreshnessService,
	kind models.Kind,
	cityKey string,
	latest func(*gorm.DB) (*T, error),
	recordedAt func(*T) time.Time,
	fetch func(context.Context, time.Time) (*T, error),
) (*T, error) {
	k := string(kind)
	ck := cacheKey(kind, cityKey)

	if s.cache != nil {
		var cached T
		if cache.GetJSON(ctx, s.cache, ck, &cached) && s.fresh(recordedAt(&cached)) {
			s.metrics.RecordCacheHit(k)
			s.metrics.RecordFreshness(k, "cache")
			return &cached, nil
		}
		s.metrics.RecordCacheMiss(k)
	}

	row, err := latest(s.db.WithContext(ctx))
	if err != nil {
		return nil, apperrors.Wrap(err, "load latest reading failed")
	}
	if row != nil && s.fresh(recordedAt(row)) {
		s.metrics.RecordFreshness(k, "fresh")
		s.remember(ctx, ck, row, recordedAt(row))
		return row, nil
	}
	if row != nil {
		s.metrics.RecordFreshness(k, "stale")
	} else {
		s.metrics.RecordFreshness(k, "miss")
	}

	now := s.clock.Now().UTC()
	row, err = fetch(ctx, now)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, ck, row, recordedAt(row))
	return row, nil
}

// remember 缓存到读数过期为止
func (s *FreshnessService) remember(ctx context.Context, key string, v any, recordedAt time.Time) {
	if s.cache == nil {
		return
	}
	var exp time.Duration
	if s.ttl > 0 {
		exp = s.ttl - s.clock.Now().Sub(recordedAt)
		if exp <= 0 {
			return
		}
	}
	if err := cache.SetJSON(ctx, s.cache, key, v, exp); err != nil {
		logger.Warn("cache reading failed", zap.String("key", key), zap.Error(err))
	}
}

// History 最近 limit 条读数
func (s *FreshnessService) History(ctx context.Context, city string, kind models.Kind, limit int) (*Series, error) {
	if !kind.Valid() {
		return nil, apperrors.Validation("unknown reading kind %q", kind)
	}
	key, err := cityArg(city)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	out := &Series{Kind: kind, City: models.DisplayCity(city)}
	switch kind {
	case models.KindWeather:
		out.Weather, err = models.WeatherHistory(db, key, limit)
	case models.KindAirQuality:
		out.AirQuality, err = models.AirQualityHistory(db, key, limit)
	case models.KindWaterLevel:
		out.WaterLevels, err = models.ListWaterLevels(db, key)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
