package models

import (
	apperrors "EcoWatch/pkg/errors"
	stderrors "errors"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Kind string

const (
	KindWeather    Kind = "weather"
	KindAirQuality Kind = "air_quality"
	KindWaterLevel Kind = "water_level"
)

func (k Kind) Valid() bool {
	return k == KindWeather || k == KindAirQuality || k == KindWaterLevel
}

const (
	SourceHTTP      = "http"
	SourceScrape    = "scrape"
	SourceSynthetic = "synthetic"
)

// NormalizeCity 生成精确匹配用的城市键：去首尾空白、合并空白、小写
func NormalizeCity(city string) string {
	return strings.ToLower(strings.Join(strings.Fields(city), " "))
}

// DisplayCity 城市展示名，如 "  new   delhi" -> "New Delhi"
func DisplayCity(city string) string {
	// Caser 有状态，不能跨 goroutine 共享
	return cases.Title(language.English).String(NormalizeCity(city))
}

// Bucket 时间窗口编号；ttl<=0 时所有读数落在同一个窗口
func Bucket(t time.Time, ttl time.Duration) int64 {
	sec := int64(ttl / time.Second)
	if sec <= 0 {
		return 0
	}
	u := t.Unix()
	b := u / sec
	if u < 0 && u%sec != 0 {
		b--
	}
	return b
}

type WeatherData struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	City               string    `json:"city" gorm:"size:100"`
	CityKey            string    `json:"city_key" gorm:"size:100;uniqueIndex:idx_weather_city_bucket,priority:1"`
	Bucket             int64     `json:"-" gorm:"uniqueIndex:idx_weather_city_bucket,priority:2"`
	Temperature        float64   `json:"temperature"`
	Humidity           float64   `json:"humidity"`
	Rainfall           float64   `json:"rainfall"`
	WindSpeed          float64   `json:"wind_speed"`
	Pressure           float64   `json:"pressure"`
	WeatherDescription string    `json:"weather_description" gorm:"size:100"`
	Source             string    `json:"source" gorm:"size:16"`
	RecordedAt         time.Time `json:"recorded_at" gorm:"index"`
}

func (WeatherData) TableName() string { return "weather_data" }

type AirQualityData struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	City        string    `json:"city" gorm:"size:100"`
	CityKey     string    `json:"city_key" gorm:"size:100;uniqueIndex:idx_air_quality_city_bucket,priority:1"`
	Bucket      int64     `json:"-" gorm:"uniqueIndex:idx_air_quality_city_bucket,priority:2"`
	AQI         int       `json:"aqi"`
	AQICategory string    `json:"aqi_category" gorm:"size:50"`
	AQIColor    string    `json:"aqi_color" gorm:"size:7"`
	PM25        float64   `json:"pm25"`
	PM10        float64   `json:"pm10"`
	NO2         float64   `json:"no2"`
	SO2         float64   `json:"so2"`
	CO          float64   `json:"co"`
	O3          float64   `json:"o3"`
	Source      string    `json:"source" gorm:"size:16"`
	RecordedAt  time.Time `json:"recorded_at" gorm:"index"`
}

func (AirQualityData) TableName() string { return "air_quality_data" }

// AQIBand 美国 EPA 标准的 AQI 分级
type AQIBand struct {
	Max      int    `json:"-"`
	Category string `json:"category"`
	Range    string `json:"range"`
	Color    string `json:"color"`
	Key      string `json:"-"` // i18n 描述的 key
}

var AQIBands = []AQIBand{
	{Max: 50, Category: "Good", Range: "0-50", Color: "#00e400", Key: "aqi.good"},
	{Max: 100, Category: "Moderate", Range: "51-100", Color: "#ffff00", Key: "aqi.moderate"},
	{Max: 150, Category: "Unhealthy for Sensitive Groups", Range: "101-150", Color: "#ff7e00", Key: "aqi.sensitive"},
	{Max: 200, Category: "Unhealthy", Range: "151-200", Color: "#ff0000", Key: "aqi.unhealthy"},
	{Max: 300, Category: "Very Unhealthy", Range: "201-300", Color: "#8f3f97", Key: "aqi.very_unhealthy"},
	{Max: -1, Category: "Hazardous", Range: "301+", Color: "#7e0023", Key: "aqi.hazardous"},
}

func AQIBandOf(aqi int) AQIBand {
	for _, b := range AQIBands {
		if b.Max >= 0 && aqi <= b.Max {
			return b
		}
	}
	return AQIBands[len(AQIBands)-1]
}

// ApplyAQI 根据 AQI 填充分类和颜色
func (a *AirQualityData) ApplyAQI() {
	b := AQIBandOf(a.AQI)
	a.AQICategory = b.Category
	a.AQIColor = b.Color
}

func latestByCity[T any](db *gorm.DB, cityKey string) (*T, error) {
	var out T
	err := db.Where("city_key = ?", cityKey).Order("recorded_at DESC").Order("id DESC").First(&out).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func historyByCity[T any](db *gorm.DB, cityKey string, limit int) ([]T, error) {
	var out []T
	if limit <= 0 {
		limit = 24
	}
	err := db.Where("city_key = ?", cityKey).Order("recorded_at DESC").Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

// upsertBucket 并发写入同一窗口时只保留一条，随后重新读出该行
func upsertBucket[T any](db *gorm.DB, row *T, cityKey string, bucket int64) (*T, error) {
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "city_key"}, {Name: "bucket"}},
		DoNothing: true,
	}).Create(row).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "upsert reading failed")
	}
	var out T
	if err := db.Where("city_key = ? AND bucket = ?", cityKey, bucket).First(&out).Error; err != nil {
		return nil, apperrors.Wrap(err, "reload reading failed")
	}
	return &out, nil
}

// LatestWeather 不存在时返回 nil, nil
func LatestWeather(db *gorm.DB, cityKey string) (*WeatherData, error) {
	return latestByCity[WeatherData](db, cityKey)
}

func WeatherHistory(db *gorm.DB, cityKey string, limit int) ([]WeatherData, error) {
	return historyByCity[WeatherData](db, cityKey, limit)
}

func UpsertWeather(db *gorm.DB, w *WeatherData) (*WeatherData, error) {
	w.CityKey = NormalizeCity(w.City)
	return upsertBucket(db, w, w.CityKey, w.Bucket)
}

func LatestAirQuality(db *gorm.DB, cityKey string) (*AirQualityData, error) {
	return latestByCity[AirQualityData](db, cityKey)
}

func AirQualityHistory(db *gorm.DB, cityKey string, limit int) ([]AirQualityData, error) {
	return historyByCity[AirQualityData](db, cityKey, limit)
}

func UpsertAirQuality(db *gorm.DB, a *AirQualityData) (*AirQualityData, error) {
	a.CityKey = NormalizeCity(a.City)
	a.ApplyAQI()
	return upsertBucket(db, a, a.CityKey, a.Bucket)
}

func CountReadings(db *gorm.DB, model any, cityKey string) (int64, error) {
	var n int64
	err := db.Model(model).Where("city_key = ?", cityKey).Count(&n).Error
	return n, err
}

// CitiesCovered 有天气数据的城市数
func CitiesCovered(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&WeatherData{}).Distinct("city_key").Count(&n).Error
	return n, err
}
