package models

import (
	apperrors "EcoWatch/pkg/errors"
	"EcoWatch/pkg/util"
	stderrors "errors"
	"time"

	"gorm.io/gorm"
)

const (
	AlertTypeWaterLevel = "water_level"
	AlertTypeAirQuality = "air_quality"
	AlertTypeWeather    = "weather"
	AlertTypeGeneral    = "general"
)

// SigAlertCreated 提醒写入后触发，sender 为 *UserAlert
const SigAlertCreated = "alert.created"

// UserAlert 属于唯一用户的提醒；已读状态只能从 false 变为 true
type UserAlert struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index"`
	AlertType string    `json:"alert_type" gorm:"size:20"`
	Severity  string    `json:"severity" gorm:"size:10"`
	Title     string    `json:"title" gorm:"size:200"`
	Message   string    `json:"message" gorm:"type:text"`
	IsRead    bool      `json:"is_read" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
}

func CreateUserAlert(db *gorm.DB, alert *UserAlert) error {
	if alert.UserID == 0 {
		return apperrors.Validation("alert must belong to a user")
	}
	if alert.AlertType == "" {
		alert.AlertType = AlertTypeGeneral
	}
	alert.IsRead = false
	if err := db.Create(alert).Error; err != nil {
		return err
	}
	util.Sig().Emit(SigAlertCreated, alert)
	return nil
}

// UnreadAlerts 最新的未读提醒
func UnreadAlerts(db *gorm.DB, userID uint, limit int) ([]UserAlert, error) {
	var alerts []UserAlert
	q := db.Where("user_id = ? AND is_read = ?", userID, false).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&alerts).Error
	return alerts, err
}

func CountUnreadAlerts(db *gorm.DB, userID uint) (int64, error) {
	var n int64
	err := db.Model(&UserAlert{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&n).Error
	return n, err
}

// MarkAlertRead 幂等；提醒不存在或不属于该用户时都返回 NotFound
func MarkAlertRead(db *gorm.DB, userID, alertID uint) (*UserAlert, error) {
	var alert UserAlert
	err := db.Where("id = ? AND user_id = ?", alertID, userID).First(&alert).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("alert %d not found", alertID)
	}
	if err != nil {
		return nil, err
	}
	if alert.IsRead {
		return &alert, nil
	}
	err = db.Model(&UserAlert{}).
		Where("id = ? AND user_id = ?", alertID, userID).
		Update("is_read", true).Error
	if err != nil {
		return nil, err
	}
	alert.IsRead = true
	return &alert, nil
}
