package listeners

import (
	"EcoWatch/internal/models"
	"EcoWatch/pkg/logger"
	"EcoWatch/pkg/notification"
	"EcoWatch/pkg/util"
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dispatchTimeout = 10 * time.Second

// InitAlertListeners 提醒写入后异步投递到通知通道，返回值可用于 Disconnect
func InitAlertListeners(db *gorm.DB, n notification.Notifier) int {
	return util.Sig().Connect(models.SigAlertCreated, func(sender any, params ...any) {
		alert, ok := sender.(*models.UserAlert)
		if !ok || n == nil {
			return
		}
		snapshot := *alert

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
			defer cancel()
			if err := DispatchAlert(ctx, db, n, snapshot); err != nil {
				logger.Warn("dispatch alert failed", zap.Uint("alert_id", snapshot.ID), zap.Error(err))
			}
		}()
	})
}

// DispatchAlert 关闭了通知的用户不投递
func DispatchAlert(ctx context.Context, db *gorm.DB, n notification.Notifier, alert models.UserAlert) error {
	user, err := models.GetUserByID(db.WithContext(ctx), alert.UserID)
	if err != nil {
		return err
	}
	if !user.NotificationsEnabled {
		return nil
	}
	return n.Notify(ctx, notification.Message{
		UserID:   user.ID,
		Phone:    user.PhoneNumber,
		Title:    alert.Title,
		Body:     alert.Message,
		Severity: alert.Severity,
		Extras: map[string]interface{}{
			"alert_id":   alert.ID,
			"alert_type": alert.AlertType,
		},
	})
}
