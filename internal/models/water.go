package models

import (
	apperrors "EcoWatch/pkg/errors"
	stderrors "errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AlertStatus string

const (
	StatusNormal   AlertStatus = "normal"
	StatusWatch    AlertStatus = "watch"
	StatusWarning  AlertStatus = "warning"
	StatusCritical AlertStatus = "critical"
)

// Severe 需要给用户发提醒的状态
func (s AlertStatus) Severe() bool { return s == StatusWarning || s == StatusCritical }

func (s AlertStatus) rank() int {
	switch s {
	case StatusWatch:
		return 1
	case StatusWarning:
		return 2
	case StatusCritical:
		return 3
	}
	return 0
}

// Escalated 从 prev 变为更严重的 s
func (s AlertStatus) Escalated(prev AlertStatus) bool { return s.rank() > prev.rank() }

const (
	TrendRising  = "rising"
	TrendFalling = "falling"
	TrendStable  = "stable"
)

type Thresholds struct {
	Watch    float64 `json:"watch"`
	Warning  float64 `json:"warning"`
	Critical float64 `json:"critical"`
}

// Or 为 0 的阈值用 def 补齐
func (t Thresholds) Or(def Thresholds) Thresholds {
	if t.Watch == 0 {
		t.Watch = def.Watch
	}
	if t.Warning == 0 {
		t.Warning = def.Warning
	}
	if t.Critical == 0 {
		t.Critical = def.Critical
	}
	return t
}

// Validate 补齐默认值后各档必须满足 watch <= warning <= critical
func (t Thresholds) Validate() error {
	if t.Watch > t.Warning || t.Warning > t.Critical {
		return apperrors.Validation("thresholds must satisfy watch <= warning <= critical (got %.2f, %.2f, %.2f)",
			t.Watch, t.Warning, t.Critical)
	}
	return nil
}

// ComputeAlertStatus 每档包含下界
func ComputeAlertStatus(value float64, t Thresholds) AlertStatus {
	switch {
	case value >= t.Critical:
		return StatusCritical
	case value >= t.Warning:
		return StatusWarning
	case value >= t.Watch:
		return StatusWatch
	default:
		return StatusNormal
	}
}

type WaterLevel struct {
	ID            uint        `json:"id" gorm:"primaryKey"`
	LocationName  string      `json:"location_name" gorm:"size:200;uniqueIndex"`
	City          string      `json:"city" gorm:"size:100"`
	CityKey       string      `json:"city_key" gorm:"size:100;index"`
	CurrentLevel  float64     `json:"current_level"`
	WatchLevel    float64     `json:"watch_level"`
	WarningLevel  float64     `json:"warning_level"`
	CriticalLevel float64     `json:"critical_level"`
	Trend         string      `json:"trend" gorm:"size:10"`
	AlertStatus   AlertStatus `json:"alert_status" gorm:"size:10"`
	Source        string      `json:"source" gorm:"size:16"`
	RecordedAt    time.Time   `json:"recorded_at" gorm:"index"`
	ObservedAt    *time.Time  `json:"observed_at"`
}

func (w *WaterLevel) Thresholds() Thresholds {
	return Thresholds{Watch: w.WatchLevel, Warning: w.WarningLevel, Critical: w.CriticalLevel}
}

// WaterLevelUpdate 可选字段，nil 表示保持原值
type WaterLevelUpdate struct {
	City          *string    `json:"city"`
	CurrentLevel  *float64   `json:"current_level"`
	WatchLevel    *float64   `json:"watch_level"`
	WarningLevel  *float64   `json:"warning_level"`
	CriticalLevel *float64   `json:"critical_level"`
	Trend         *string    `json:"trend"`
	Source        *string    `json:"source"`
	RecordedAt    *time.Time `json:"recorded_at"`
	ObservedAt    *time.Time `json:"observed_at"`
}

func (u WaterLevelUpdate) Validate() error {
	for name, v := range map[string]*float64{
		"current_level": u.CurrentLevel, "watch_level": u.WatchLevel,
		"warning_level": u.WarningLevel, "critical_level": u.CriticalLevel,
	} {
		if v != nil && *v < 0 {
			return apperrors.Validation("%s must not be negative", name)
		}
	}
	if u.Trend != nil {
		switch *u.Trend {
		case TrendRising, TrendFalling, TrendStable:
		default:
			return apperrors.Validation("trend must be rising, falling or stable")
		}
	}
	if u.City != nil && strings.TrimSpace(*u.City) == "" {
		return apperrors.Validation("city must not be empty")
	}
	return nil
}

// WaterLevelChange 一次更新前后的状态
type WaterLevelChange struct {
	Level    WaterLevel
	Previous AlertStatus
	Created  bool
}

func (c WaterLevelChange) Escalated() bool { return c.Level.AlertStatus.Escalated(c.Previous) }

func (u WaterLevelUpdate) merge(w *WaterLevel) {
	if u.City != nil {
		w.City = DisplayCity(*u.City)
		w.CityKey = NormalizeCity(*u.City)
	}
	if u.CurrentLevel != nil {
		w.CurrentLevel = *u.CurrentLevel
	}
	if u.WatchLevel != nil {
		w.WatchLevel = *u.WatchLevel
	}
	if u.WarningLevel != nil {
		w.WarningLevel = *u.WarningLevel
	}
	if u.CriticalLevel != nil {
		w.CriticalLevel = *u.CriticalLevel
	}
	if u.Trend != nil {
		w.Trend = *u.Trend
	}
	if u.Source != nil {
		w.Source = *u.Source
	}
	if u.RecordedAt != nil {
		w.RecordedAt = u.RecordedAt.UTC()
	}
	if u.ObservedAt != nil {
		at := u.ObservedAt.UTC()
		w.ObservedAt = &at
	}
}

// ApplyWaterLevelUpdate 合并更新、重算状态，数值与状态在同一条 UPDATE 里写入
func ApplyWaterLevelUpdate(db *gorm.DB, id uint, upd WaterLevelUpdate, defaults Thresholds, now time.Time) (*WaterLevelChange, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	var change WaterLevelChange
	err := db.Transaction(func(tx *gorm.DB) error {
		var w WaterLevel
		err := tx.First(&w, id).Error
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("water level %d not found", id)
		}
		if err != nil {
			return err
		}
		change.Previous = w.AlertStatus
		if err := writeWaterLevel(tx, &w, upd, defaults, now); err != nil {
			return err
		}
		change.Level = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// UpsertWaterLevel 按站点名查找或创建，之后走与手工修改相同的合并逻辑
func UpsertWaterLevel(db *gorm.DB, locationName string, upd WaterLevelUpdate, defaults Thresholds, now time.Time) (*WaterLevelChange, error) {
	locationName = strings.TrimSpace(locationName)
	if locationName == "" {
		return nil, apperrors.Validation("location_name is required")
	}
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	var change WaterLevelChange
	err := db.Transaction(func(tx *gorm.DB) error {
		var w WaterLevel
		err := tx.Where("location_name = ?", locationName).First(&w).Error
		switch {
		case stderrors.Is(err, gorm.ErrRecordNotFound):
			w = WaterLevel{LocationName: locationName, Trend: TrendStable}
			upd.merge(&w)
			t := w.Thresholds().Or(defaults)
			if err := t.Validate(); err != nil {
				return err
			}
			w.AlertStatus = ComputeAlertStatus(w.CurrentLevel, t)
			if w.RecordedAt.IsZero() {
				w.RecordedAt = now.UTC()
			}
			res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "location_name"}}, DoNothing: true}).Create(&w)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				change.Previous = StatusNormal
				change.Created = true
				change.Level = w
				return nil
			}
			// 并发创建，重新读出后按更新处理
			if err := tx.Where("location_name = ?", locationName).First(&w).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}
		change.Previous = w.AlertStatus
		if err := writeWaterLevel(tx, &w, upd, defaults, now); err != nil {
			return err
		}
		change.Level = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &change, nil
}

func writeWaterLevel(tx *gorm.DB, w *WaterLevel, upd WaterLevelUpdate, defaults Thresholds, now time.Time) error {
	upd.merge(w)
	if upd.RecordedAt == nil {
		w.RecordedAt = now.UTC()
	}
	t := w.Thresholds().Or(defaults)
	if err := t.Validate(); err != nil {
		return err
	}
	w.AlertStatus = ComputeAlertStatus(w.CurrentLevel, t)
	return tx.Model(&WaterLevel{}).Where("id = ?", w.ID).Updates(map[string]any{
		"city":           w.City,
		"city_key":       w.CityKey,
		"current_level":  w.CurrentLevel,
		"watch_level":    w.WatchLevel,
		"warning_level":  w.WarningLevel,
		"critical_level": w.CriticalLevel,
		"trend":          w.Trend,
		"source":         w.Source,
		"alert_status":   w.AlertStatus,
		"recorded_at":    w.RecordedAt,
		"observed_at":    w.ObservedAt,
	}).Error
}

func GetWaterLevel(db *gorm.DB, id uint) (*WaterLevel, error) {
	var w WaterLevel
	err := db.First(&w, id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("water level %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWaterLevels 城市下所有站点，按站点名排序
func ListWaterLevels(db *gorm.DB, cityKey string) ([]WaterLevel, error) {
	var out []WaterLevel
	err := db.Where("city_key = ?", cityKey).Order("location_name").Find(&out).Error
	return out, err
}
