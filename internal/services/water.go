package services

import (
	"EcoWatch/internal/models"
	"EcoWatch/internal/provider"
	"EcoWatch/pkg/i18n"
	"EcoWatch/pkg/logger"
	"EcoWatch/pkg/metrics"
	"context"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// WaterService 站点水位写入与告警
type WaterService struct {
	db       *gorm.DB
	provider provider.Provider
	clock    clockwork.Clock
	defaults models.Thresholds
	i18n     *i18n.I18nSupport
	metrics  *metrics.Metrics
}

func NewWaterService(db *gorm.DB, p provider.Provider, opts Options) *WaterService {
	opts = opts.withDefaults()
	return &WaterService{
		db:       db,
		provider: p,
		clock:    opts.Clock,
		defaults: opts.Thresholds,
		i18n:     opts.I18n,
		metrics:  opts.Metrics,
	}
}

func (s *WaterService) Defaults() models.Thresholds { return s.defaults }

// Refresh 拉取城市的站点读数并逐个写入，返回该城市全部站点
func (s *WaterService) Refresh(ctx context.Context, city string) ([]models.WaterLevel, error) {
	key, err := cityArg(city)
	if err != nil {
		return nil, err
	}
	stations, err := s.provider.WaterLevels(ctx, city)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	now := s.clock.Now().UTC()
	for _, st := range stations {
		change, err := models.UpsertWaterLevel(db, st.LocationName, stationUpdate(st, city), s.defaults, now)
		if err != nil {
			logger.Warn("upsert water level failed", zap.String("station", st.LocationName), zap.Error(err))
			continue
		}
		s.afterChange(ctx, change)
	}
	return models.ListWaterLevels(db, key)
}

// stationUpdate 数据源没有给出的阈值不覆盖已有值
func stationUpdate(st provider.StationReading, city string) models.WaterLevelUpdate {
	stCity := st.City
	if strings.TrimSpace(stCity) == "" {
		stCity = city
	}
	level := st.Level
	source := st.Source
	upd := models.WaterLevelUpdate{
		City:         &stCity,
		CurrentLevel: &level,
		Source:       &source,
	}
	// recorded_at 由写入时间决定，数据源发布时间只作为 observed_at 保存
	if !st.RecordedAt.IsZero() {
		at := st.RecordedAt
		upd.ObservedAt = &at
	}
	switch st.Trend {
	case models.TrendRising, models.TrendFalling, models.TrendStable:
		trend := st.Trend
		upd.Trend = &trend
	}
	if st.Watch > 0 {
		v := st.Watch
		upd.WatchLevel = &v
	}
	if st.Warning > 0 {
		v := st.Warning
		upd.WarningLevel = &v
	}
	if st.Critical > 0 {
		v := st.Critical
		upd.CriticalLevel = &v
	}
	return upd
}

// Update 手工修改站点，与刷新使用同一套合并逻辑
func (s *WaterService) Update(ctx context.Context, id uint, upd models.WaterLevelUpdate) (*models.WaterLevel, error) {
	change, err := models.ApplyWaterLevelUpdate(s.db.WithContext(ctx), id, upd, s.defaults, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.afterChange(ctx, change)
	return &change.Level, nil
}

func (s *WaterService) afterChange(ctx context.Context, change *models.WaterLevelChange) {
	status := change.Level.AlertStatus
	if status != change.Previous {
		s.metrics.RecordWaterStatusChange(string(status))
	}
	if change.Escalated() && status.Severe() {
		n := s.raiseAlerts(ctx, &change.Level)
		logger.Info("water level escalated",
			zap.String("station", change.Level.LocationName),
			zap.String("from", string(change.Previous)),
			zap.String("to", string(status)),
			zap.Int("alerts", n))
	}
}

// raiseAlerts 为城市内开启通知的用户各创建一条提醒
func (s *WaterService) raiseAlerts(ctx context.Context, w *models.WaterLevel) int {
	db := s.db.WithContext(ctx)
	users, err := models.UsersToNotify(db, w.CityKey)
	if err != nil {
		logger.Error("load users to notify failed", zap.String("city", w.City), zap.Error(err))
		return 0
	}
	title, message := s.alertText(w)
	created := 0
	for _, u := range users {
		alert := &models.UserAlert{
			UserID:    u.ID,
			AlertType: models.AlertTypeWaterLevel,
			Severity:  string(w.AlertStatus),
			Title:     title,
			Message:   message,
		}
		if err := models.CreateUserAlert(db, alert); err != nil {
			logger.Warn("create alert failed", zap.Uint("user_id", u.ID), zap.Error(err))
			continue
		}
		s.metrics.RecordAlertCreated(models.AlertTypeWaterLevel)
		created++
	}
	return created
}

func (s *WaterService) alertText(w *models.WaterLevel) (string, string) {
	status := cases.Title(language.English).String(string(w.AlertStatus))
	data := map[string]interface{}{
		"Status":  status,
		"Station": w.LocationName,
		"City":    w.City,
		"Level":   fmt.Sprintf("%.2f", w.CurrentLevel),
	}
	if s.i18n == nil {
		return fmt.Sprintf("%s water level at %s", status, w.LocationName),
			fmt.Sprintf("The water level at %s in %s is %.2f m (%s).", w.LocationName, w.City, w.CurrentLevel, status)
	}
	return s.i18n.TWithDefaultLang("alert.water.title", data), s.i18n.TWithDefaultLang("alert.water.message", data)
}
