package models

import (
	apperrors "EcoWatch/pkg/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultThresholds = Thresholds{Watch: 3.0, Warning: 4.5, Critical: 6.0}

func TestComputeAlertStatus(t *testing.T) {
	cases := []struct {
		value float64
		want  AlertStatus
	}{
		{0, StatusNormal},
		{2.99, StatusNormal},
		{3.0, StatusWatch},
		{4.49, StatusWatch},
		{4.5, StatusWarning},
		{5.99, StatusWarning},
		{6.0, StatusCritical},
		{10, StatusCritical},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ComputeAlertStatus(c.value, defaultThresholds), "value=%v", c.value)
	}
}

func TestThresholdsFallback(t *testing.T) {
	got := Thresholds{Warning: 2}.Or(defaultThresholds)
	assert.Equal(t, Thresholds{Watch: 3.0, Warning: 2, Critical: 6.0}, got)
	assert.True(t, StatusCritical.Escalated(StatusWarning))
	assert.False(t, StatusWatch.Escalated(StatusWarning))
	assert.True(t, StatusWarning.Severe())
	assert.False(t, StatusWatch.Severe())
}

func TestUpsertAndApplyWaterLevel(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	created, err := UpsertWaterLevel(db, "Adyar River", WaterLevelUpdate{
		City: ptr("chennai"), CurrentLevel: ptr(2.0), Trend: ptr(TrendRising),
	}, defaultThresholds, now)
	require.NoError(t, err)
	assert.True(t, created.Created)
	assert.Equal(t, StatusNormal, created.Level.AlertStatus)
	assert.Equal(t, "Chennai", created.Level.City)

	again, err := UpsertWaterLevel(db, "Adyar River", WaterLevelUpdate{CurrentLevel: ptr(4.5)}, defaultThresholds, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, created.Level.ID, again.Level.ID)
	assert.Equal(t, StatusWarning, again.Level.AlertStatus)
	assert.True(t, again.Escalated())

	// 站点自带阈值优先于默认值
	change, err := ApplyWaterLevelUpdate(db, again.Level.ID, WaterLevelUpdate{
		CurrentLevel: ptr(4.0), WarningLevel: ptr(3.5), CriticalLevel: ptr(4.0),
	}, defaultThresholds, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, StatusWarning, change.Previous)
	assert.Equal(t, StatusCritical, change.Level.AlertStatus)

	stored, err := GetWaterLevel(db, again.Level.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, stored.CurrentLevel)
	assert.Equal(t, StatusCritical, stored.AlertStatus)
	assert.Equal(t, ComputeAlertStatus(stored.CurrentLevel, stored.Thresholds().Or(defaultThresholds)), stored.AlertStatus)

	list, err := ListWaterLevels(db, "chennai")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestApplyWaterLevelErrors(t *testing.T) {
	db := newTestDB(t)
	_, err := ApplyWaterLevelUpdate(db, 42, WaterLevelUpdate{CurrentLevel: ptr(1.0)}, defaultThresholds, time.Now())
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	_, err = ApplyWaterLevelUpdate(db, 42, WaterLevelUpdate{CurrentLevel: ptr(-1.0)}, defaultThresholds, time.Now())
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = UpsertWaterLevel(db, "X", WaterLevelUpdate{Trend: ptr("up")}, defaultThresholds, time.Now())
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = UpsertWaterLevel(db, " ", WaterLevelUpdate{}, defaultThresholds, time.Now())
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestWaterThresholdsMustBeOrdered(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	_, err := UpsertWaterLevel(db, "Cooum", WaterLevelUpdate{
		City: ptr("Chennai"), CurrentLevel: ptr(1.0), WarningLevel: ptr(9.0),
	}, defaultThresholds, now)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	list, err := ListWaterLevels(db, "chennai")
	require.NoError(t, err)
	assert.Empty(t, list)

	created, err := UpsertWaterLevel(db, "Adyar", WaterLevelUpdate{City: ptr("Chennai"), CurrentLevel: ptr(2.0)}, defaultThresholds, now)
	require.NoError(t, err)

	_, err = ApplyWaterLevelUpdate(db, created.Level.ID, WaterLevelUpdate{
		CurrentLevel: ptr(7.0), WatchLevel: ptr(8.0), WarningLevel: ptr(10.0), CriticalLevel: ptr(6.0),
	}, defaultThresholds, now.Add(time.Hour))
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	stored, err := GetWaterLevel(db, created.Level.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, stored.CurrentLevel)
	assert.Equal(t, StatusNormal, stored.AlertStatus)
	assert.Zero(t, stored.CriticalLevel)

	assert.NoError(t, Thresholds{Watch: 2, Warning: 2, Critical: 2}.Validate())
}
