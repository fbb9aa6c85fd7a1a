package services

import (
	"EcoWatch/internal/models"
	"EcoWatch/internal/provider"
	"EcoWatch/pkg/i18n"
	"EcoWatch/pkg/logger"
	"context"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	reportWindow   = 7 * 24 * time.Hour
	reportLimit    = 5
	tipSampleSize  = 4
	alertLimit     = 5
	forecastDays   = 3
	homeTipLimit   = 3
	detailForecast = 7
	historyLimit   = 24
)

// UnitDisplay 按用户单位偏好换算后的展示值
type UnitDisplay struct {
	Units           string                 `json:"units"`
	Temperature     *float64               `json:"temperature"`
	TemperatureUnit string                 `json:"temperature_unit"`
	Rainfall        *float64               `json:"rainfall"`
	RainfallUnit    string                 `json:"rainfall_unit"`
	Forecast        []provider.ForecastDay `json:"forecast"`
}

type DashboardView struct {
	City        string                   `json:"city"`
	Weather     *models.WeatherData      `json:"weather"`
	AirQuality  *models.AirQualityData   `json:"air_quality"`
	WaterLevels []models.WaterLevel      `json:"water_levels"`
	Reports     []models.CommunityReport `json:"community_reports"`
	Tips        []models.EcoTip          `json:"eco_tips"`
	Alerts      []models.UserAlert       `json:"user_alerts"`
	Forecast    []provider.ForecastDay   `json:"forecast"`
	Display     UnitDisplay              `json:"display"`
}

type HomeSummary struct {
	RecentTips    []models.EcoTip `json:"recent_tips"`
	TotalUsers    int64           `json:"total_users"`
	CitiesCovered int64           `json:"cities_covered"`
	ReportsToday  int64           `json:"reports_today"`
}

type WeatherDetails struct {
	City     string                 `json:"city"`
	Current  *models.WeatherData    `json:"current_weather"`
	History  []models.WeatherData   `json:"weather_history"`
	Forecast []provider.ForecastDay `json:"forecast"`
}

type AQIInfo struct {
	Category    string `json:"category"`
	Range       string `json:"range"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

type AirQualityDetails struct {
	City    string                  `json:"city"`
	Current *models.AirQualityData  `json:"current_air_quality"`
	History []models.AirQualityData `json:"air_quality_history"`
	AQIInfo []AQIInfo               `json:"aqi_info"`
}

// DashboardData 前端轮询使用的精简数据
type DashboardData struct {
	Weather    *WeatherBrief    `json:"weather"`
	AirQuality *AirQualityBrief `json:"air_quality"`
	Timestamp  string           `json:"timestamp"`
}

type WeatherBrief struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Rainfall    float64 `json:"rainfall"`
	Description string  `json:"description"`
}

type AirQualityBrief struct {
	AQI      int     `json:"aqi"`
	Category string  `json:"category"`
	Color    string  `json:"color"`
	PM25     float64 `json:"pm25"`
}

// DashboardService 组装用户视图，用户由调用方显式传入
type DashboardService struct {
	db          *gorm.DB
	fresh       *FreshnessService
	provider    provider.Provider
	clock       clockwork.Clock
	defaultCity string
	i18n        *i18n.I18nSupport
}

func NewDashboardService(db *gorm.DB, fresh *FreshnessService, p provider.Provider, opts Options) *DashboardService {
	opts = opts.withDefaults()
	return &DashboardService{
		db:          db,
		fresh:       fresh,
		provider:    p,
		clock:       opts.Clock,
		defaultCity: opts.DefaultCity,
		i18n:        opts.I18n,
	}
}

// City 用户城市，未填写时为默认城市
func (s *DashboardService) City(user *models.User) string { return user.CityOr(s.defaultCity) }

func (s *DashboardService) Build(ctx context.Context, user *models.User) (*DashboardView, error) {
	city := s.City(user)
	db := s.db.WithContext(ctx)
	now := s.clock.Now().UTC()

	recent, err := s.fresh.Recent(ctx, city)
	if err != nil {
		return nil, err
	}
	water, err := s.fresh.Latest(ctx, city, models.KindWaterLevel)
	if err != nil {
		return nil, err
	}
	reports, err := models.RecentReports(db, models.NormalizeCity(city), now.Add(-reportWindow), reportLimit)
	if err != nil {
		return nil, err
	}
	tips, err := models.SampleActiveTips(db, tipSampleSize)
	if err != nil {
		return nil, err
	}
	alerts := []models.UserAlert{}
	if user != nil {
		if alerts, err = models.UnreadAlerts(db, user.ID, alertLimit); err != nil {
			return nil, err
		}
	}

	view := &DashboardView{
		City:        models.DisplayCity(city),
		Weather:     recent.Weather,
		AirQuality:  recent.AirQuality,
		WaterLevels: water.WaterLevels,
		Reports:     reports,
		Tips:        tips,
		Alerts:      alerts,
		Forecast:    s.forecast(ctx, city, forecastDays),
	}
	view.Display = display(user, recent.Weather, view.Forecast)
	return view, nil
}

// forecast 预报失败只记日志，不影响页面
func (s *DashboardService) forecast(ctx context.Context, city string, days int) []provider.ForecastDay {
	out, err := s.provider.Forecast(ctx, city, days)
	if err != nil {
		logger.Warn("forecast failed", zap.String("city", city), zap.Error(err))
		return []provider.ForecastDay{}
	}
	return out
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func CelsiusToFahrenheit(c float64) float64 { return round1(c*9/5 + 32) }

func MillimetresToInches(mm float64) float64 { return math.Round(mm/25.4*100) / 100 }

func display(user *models.User, w *models.WeatherData, forecast []provider.ForecastDay) UnitDisplay {
	d := UnitDisplay{Units: models.UnitsMetric, TemperatureUnit: "°C", RainfallUnit: "mm", Forecast: forecast}
	imperial := user.Imperial()
	if imperial {
		d.Units, d.TemperatureUnit, d.RainfallUnit = models.UnitsImperial, "°F", "in"
		d.Forecast = make([]provider.ForecastDay, len(forecast))
		for i, f := range forecast {
			f.High, f.Low = CelsiusToFahrenheit(f.High), CelsiusToFahrenheit(f.Low)
			d.Forecast[i] = f
		}
	}
	if w != nil {
		t, r := w.Temperature, w.Rainfall
		if imperial {
			t, r = CelsiusToFahrenheit(t), MillimetresToInches(r)
		}
		d.Temperature, d.Rainfall = &t, &r
	}
	return d
}

// Home 首页统计，今天按服务器本地时区的零点计算
func (s *DashboardService) Home(ctx context.Context) (*HomeSummary, error) {
	db := s.db.WithContext(ctx)
	tips, err := models.RecentTips(db, homeTipLimit)
	if err != nil {
		return nil, err
	}
	out := &HomeSummary{RecentTips: tips}
	if out.TotalUsers, err = models.CountUsers(db); err != nil {
		return nil, err
	}
	if out.CitiesCovered, err = models.CitiesCovered(db); err != nil {
		return nil, err
	}
	now := s.clock.Now().In(time.Local)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if out.ReportsToday, err = models.CountReportsSince(db, midnight.UTC()); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DashboardService) Data(ctx context.Context, user *models.User) (*DashboardData, error) {
	recent, err := s.fresh.Recent(ctx, s.City(user))
	if err != nil {
		return nil, err
	}
	out := &DashboardData{Timestamp: s.clock.Now().Format(time.RFC3339)}
	if w := recent.Weather; w != nil {
		out.Weather = &WeatherBrief{
			Temperature: w.Temperature,
			Humidity:    w.Humidity,
			Rainfall:    w.Rainfall,
			Description: w.WeatherDescription,
		}
	}
	if a := recent.AirQuality; a != nil {
		out.AirQuality = &AirQualityBrief{AQI: a.AQI, Category: a.AQICategory, Color: a.AQIColor, PM25: a.PM25}
	}
	return out, nil
}

// WeatherDetails 没有历史时通过新鲜度服务取一次当前值
func (s *DashboardService) WeatherDetails(ctx context.Context, user *models.User) (*WeatherDetails, error) {
	city := s.City(user)
	series, err := s.fresh.History(ctx, city, models.KindWeather, historyLimit)
	if err != nil {
		return nil, err
	}
	out := &WeatherDetails{City: series.City, History: series.Weather}
	if len(series.Weather) > 0 {
		out.Current = &series.Weather[0]
	} else {
		if out.Current, err = s.fresh.Weather(ctx, city); err != nil {
			return nil, err
		}
		out.History = []models.WeatherData{*out.Current}
	}
	out.Forecast = s.forecast(ctx, city, detailForecast)
	return out, nil
}

func (s *DashboardService) AirQualityDetails(ctx context.Context, user *models.User, lang string) (*AirQualityDetails, error) {
	city := s.City(user)
	series, err := s.fresh.History(ctx, city, models.KindAirQuality, historyLimit)
	if err != nil {
		return nil, err
	}
	out := &AirQualityDetails{City: series.City, History: series.AirQuality, AQIInfo: s.AQIInfo(lang)}
	if len(series.AirQuality) > 0 {
		out.Current = &series.AirQuality[0]
	} else {
		if out.Current, err = s.fresh.AirQuality(ctx, city); err != nil {
			return nil, err
		}
		out.History = []models.AirQualityData{*out.Current}
	}
	return out, nil
}

// AQIInfo AQI 分级表，描述按语言翻译
func (s *DashboardService) AQIInfo(lang string) []AQIInfo {
	out := make([]AQIInfo, 0, len(models.AQIBands))
	for _, b := range models.AQIBands {
		desc := b.Key
		if s.i18n != nil {
			desc = s.i18n.T(lang, b.Key, nil)
		}
		out = append(out, AQIInfo{Category: b.Category, Range: b.Range, Color: b.Color, Description: desc})
	}
	return out
}

// CommunityReports 用户城市最近 7 天的社区报告
func (s *DashboardService) CommunityReports(ctx context.Context, user *models.User, limit int) ([]models.CommunityReport, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	since := s.clock.Now().UTC().Add(-reportWindow)
	return models.RecentReports(s.db.WithContext(ctx), models.NormalizeCity(s.City(user)), since, limit)
}
