package provider

import (
	"EcoWatch/pkg/logger"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Observer 记录外部调用耗时与降级次数，*metrics.Metrics 满足该接口
type Observer interface {
	RecordProviderFallback(kind string)
	RecordProviderDuration(kind, source string, d time.Duration)
}

// Fallback 主数据源失败或超时时改用 backup；primary 为 nil 时直接使用 backup
type Fallback struct {
	primary  Provider
	backup   Provider
	timeout  time.Duration
	observer Observer
}

func NewFallback(primary, backup Provider, timeout time.Duration, observer Observer) *Fallback {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Fallback{primary: primary, backup: backup, timeout: timeout, observer: observer}
}

func call[T any](f *Fallback, ctx context.Context, kind string, primary, backup func(context.Context) (T, error)) (T, error) {
	if f.primary != nil {
		start := time.Now()
		pctx, cancel := context.WithTimeout(ctx, f.timeout)
		v, err := primary(pctx)
		cancel()
		f.observeDuration(kind, "primary", time.Since(start))
		if err == nil {
			return v, nil
		}
		// 调用方自己取消时不再降级
		if ctx.Err() != nil {
			return v, ctx.Err()
		}
		if !errors.Is(err, ErrNotConfigured) {
			logger.Warn("provider failed, using synthetic data", zap.String("kind", kind), zap.Error(err))
			if f.observer != nil {
				f.observer.RecordProviderFallback(kind)
			}
		}
	}
	start := time.Now()
	v, err := backup(ctx)
	f.observeDuration(kind, "backup", time.Since(start))
	return v, err
}

func (f *Fallback) observeDuration(kind, source string, d time.Duration) {
	if f.observer != nil {
		f.observer.RecordProviderDuration(kind, source, d)
	}
}

func (f *Fallback) Weather(ctx context.Context, city string) (WeatherReading, error) {
	return call(f, ctx, "weather",
		func(ctx context.Context) (WeatherReading, error) { return f.primary.Weather(ctx, city) },
		func(ctx context.Context) (WeatherReading, error) { return f.backup.Weather(ctx, city) })
}

func (f *Fallback) AirQuality(ctx context.Context, city string) (AirQualityReading, error) {
	return call(f, ctx, "air_quality",
		func(ctx context.Context) (AirQualityReading, error) { return f.primary.AirQuality(ctx, city) },
		func(ctx context.Context) (AirQualityReading, error) { return f.backup.AirQuality(ctx, city) })
}

func (f *Fallback) WaterLevels(ctx context.Context, city string) ([]StationReading, error) {
	return call(f, ctx, "water_level",
		func(ctx context.Context) ([]StationReading, error) {
			out, err := f.primary.WaterLevels(ctx, city)
			if err == nil && len(out) == 0 {
				return nil, errors.New("no stations reported")
			}
			return out, err
		},
		func(ctx context.Context) ([]StationReading, error) { return f.backup.WaterLevels(ctx, city) })
}

func (f *Fallback) Forecast(ctx context.Context, city string, days int) ([]ForecastDay, error) {
	return call(f, ctx, "forecast",
		func(ctx context.Context) ([]ForecastDay, error) { return f.primary.Forecast(ctx, city, days) },
		func(ctx context.Context) ([]ForecastDay, error) { return f.backup.Forecast(ctx, city, days) })
}
