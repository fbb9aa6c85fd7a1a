// Package provider supplies environmental readings from external sources,
// with a deterministic synthetic generator as the fallback.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
)

var ErrNotConfigured = errors.New("provider not configured")

const (
	SourceHTTP      = "http"
	SourceScrape    = "scrape"
	SourceSynthetic = "synthetic"
)

type WeatherReading struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Rainfall    float64   `json:"rainfall"`
	WindSpeed   float64   `json:"wind_speed"`
	Pressure    float64   `json:"pressure"`
	Description string    `json:"description"`
	RecordedAt  time.Time `json:"recorded_at"`
	Source      string    `json:"-"`
}

type AirQualityReading struct {
	AQI        int       `json:"aqi"`
	PM25       float64   `json:"pm25"`
	PM10       float64   `json:"pm10"`
	NO2        float64   `json:"no2"`
	SO2        float64   `json:"so2"`
	CO         float64   `json:"co"`
	O3         float64   `json:"o3"`
	RecordedAt time.Time `json:"recorded_at"`
	Source     string    `json:"-"`
}

// StationReading 单个水位站的一次观测，阈值为 0 表示使用默认值
type StationReading struct {
	LocationName string    `json:"location_name"`
	City         string    `json:"city"`
	Level        float64   `json:"level"`
	Watch        float64   `json:"watch_level"`
	Warning      float64   `json:"warning_level"`
	Critical     float64   `json:"critical_level"`
	Trend        string    `json:"trend"`
	RecordedAt   time.Time `json:"recorded_at"`
	Source       string    `json:"-"`
}

type ForecastDay struct {
	Date        string  `json:"date"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Description string  `json:"description"`
	RainChance  int     `json:"rain_chance"`
}

type Provider interface {
	Weather(ctx context.Context, city string) (WeatherReading, error)
	AirQuality(ctx context.Context, city string) (AirQualityReading, error)
	WaterLevels(ctx context.Context, city string) ([]StationReading, error)
	Forecast(ctx context.Context, city string, days int) ([]ForecastDay, error)
}

type WaterSource interface {
	WaterLevels(ctx context.Context, city string) ([]StationReading, error)
}

type withWater struct {
	Provider
	water WaterSource
}

func (w withWater) WaterLevels(ctx context.Context, city string) ([]StationReading, error) {
	return w.water.WaterLevels(ctx, city)
}

// WithWaterSource 用单独的水位来源替换 p 的 WaterLevels
func WithWaterSource(p Provider, s WaterSource) Provider {
	if s == nil {
		return p
	}
	return withWater{Provider: p, water: s}
}

type Options struct {
	BaseURL        string
	APIKey         string
	WaterSourceURL string
	Timeout        time.Duration
	Seed           int64
	Slot           time.Duration
}

// New 组装 HTTP 数据源、水位抓取和模拟数据降级；未配置的来源直接走模拟数据
func New(o Options, clock clockwork.Clock, observer Observer) *Fallback {
	var water WaterSource
	if o.WaterSourceURL != "" {
		water = NewWaterScraper(o.WaterSourceURL, o.Timeout)
	}
	primary := WithWaterSource(NewHTTPClient(o.BaseURL, o.APIKey, o.Timeout), water)
	return NewFallback(primary, NewSynthetic(o.Seed, o.Slot, clock), o.Timeout, observer)
}
