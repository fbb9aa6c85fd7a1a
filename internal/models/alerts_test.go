package models

import (
	apperrors "EcoWatch/pkg/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkAlertReadIdempotent(t *testing.T) {
	db := newTestDB(t)
	alert := &UserAlert{UserID: 1, AlertType: AlertTypeWaterLevel, Title: "Flood watch"}
	require.NoError(t, CreateUserAlert(db, alert))

	for i := 0; i < 2; i++ {
		got, err := MarkAlertRead(db, 1, alert.ID)
		require.NoError(t, err)
		assert.True(t, got.IsRead)
	}
	n, err := CountUnreadAlerts(db, 1)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMarkAlertReadOwnership(t *testing.T) {
	db := newTestDB(t)
	alert := &UserAlert{UserID: 1, Title: "mine"}
	require.NoError(t, CreateUserAlert(db, alert))

	_, err := MarkAlertRead(db, 2, alert.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	_, err = MarkAlertRead(db, 1, 12345)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	var stored UserAlert
	require.NoError(t, db.First(&stored, alert.ID).Error)
	assert.False(t, stored.IsRead)

	assert.Error(t, CreateUserAlert(db, &UserAlert{Title: "orphan"}))
}

func TestUnreadAlertsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		require.NoError(t, CreateUserAlert(db, &UserAlert{UserID: 1, Title: "a", CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}
	require.NoError(t, CreateUserAlert(db, &UserAlert{UserID: 2, Title: "other"}))

	alerts, err := UnreadAlerts(db, 1, 5)
	require.NoError(t, err)
	require.Len(t, alerts, 5)
	assert.Equal(t, base.Add(6*time.Hour), alerts[0].CreatedAt.UTC())
	for i := 1; i < len(alerts); i++ {
		assert.True(t, alerts[i-1].CreatedAt.After(alerts[i].CreatedAt))
	}
}
