package listeners

import (
	"EcoWatch/internal/models"
	"EcoWatch/pkg/notification"
	"EcoWatch/pkg/util"
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.Migrate(db))
	return db
}

func TestAlertListenerDispatches(t *testing.T) {
	db := newTestDB(t)
	user, err := models.CreateUser(db, "asha", "asha@example.com", "secret1", "Chennai")
	require.NoError(t, err)
	require.NoError(t, db.Model(user).Updates(map[string]any{"phone_number": "+919800000000", "notifications_enabled": true}).Error)

	got := make(chan notification.Message, 1)
	id := InitAlertListeners(db, notification.NotifierFunc(func(_ context.Context, msg notification.Message) error {
		got <- msg
		return nil
	}))
	t.Cleanup(func() { util.Sig().Disconnect(models.SigAlertCreated, id) })

	require.NoError(t, models.CreateUserAlert(db, &models.UserAlert{
		UserID: user.ID, AlertType: models.AlertTypeWaterLevel, Severity: "warning", Title: "High water",
	}))

	select {
	case msg := <-got:
		assert.Equal(t, user.ID, msg.UserID)
		assert.Equal(t, "+919800000000", msg.Phone)
		assert.Equal(t, "High water", msg.Title)
		assert.Equal(t, models.AlertTypeWaterLevel, msg.Extras["alert_type"])
	case <-time.After(2 * time.Second):
		t.Fatal("alert was not dispatched")
	}
}

func TestDispatchSkipsDisabledUsers(t *testing.T) {
	db := newTestDB(t)
	user, err := models.CreateUser(db, "ravi", "", "secret1", "Chennai")
	require.NoError(t, err)
	require.NoError(t, db.Model(user).Update("notifications_enabled", false).Error)

	called := false
	n := notification.NotifierFunc(func(context.Context, notification.Message) error {
		called = true
		return nil
	})
	err = DispatchAlert(context.Background(), db, n, models.UserAlert{UserID: user.ID, Title: "x"})
	require.NoError(t, err)
	assert.False(t, called)

	err = DispatchAlert(context.Background(), db, n, models.UserAlert{UserID: 999})
	assert.Error(t, err)
}
