package services

import (
	"EcoWatch/internal/models"
	apperrors "EcoWatch/pkg/errors"
	"EcoWatch/pkg/search"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTipListAndSearch(t *testing.T) {
	engine, err := search.NewTipEngine(search.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	f := newFixture(t, Options{TipIndex: engine})
	ctx := context.Background()

	for _, tip := range []models.EcoTip{
		{Title: "Fix leaking taps", Content: "A dripping tap wastes water", Category: "water", IsActive: true},
		{Title: "Harvest rainwater", Content: "Collect rain water for gardens", Category: "water", IsActive: true},
		{Title: "Switch to LED", Content: "Saves energy", Category: "energy", IsActive: true},
		{Title: "Old water tip", Content: "water everything", Category: "water", IsActive: true},
	} {
		require.NoError(t, f.db.Create(&tip).Error)
	}
	require.NoError(t, f.db.Model(&models.EcoTip{}).Where("title = ?", "Old water tip").Update("is_active", false).Error)

	list, err := f.svc.Tips.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryAll, list.SelectedCategory)
	assert.Len(t, list.Tips, 3)
	assert.Len(t, list.Categories, len(models.Categories))

	list, err = f.svc.Tips.List(ctx, "water")
	require.NoError(t, err)
	assert.Len(t, list.Tips, 2)

	_, err = f.svc.Tips.List(ctx, "space")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	n, err := f.svc.Tips.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	res, err := f.svc.Tips.Search(ctx, "water", "", 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
	for _, tip := range res.Tips {
		assert.True(t, tip.IsActive)
		assert.Equal(t, "water", tip.Category)
	}
	assert.Equal(t, 2, res.Categories["water"])

	res, err = f.svc.Tips.Search(ctx, "water", "energy", 10)
	require.NoError(t, err)
	assert.Empty(t, res.Tips)

	_, err = f.svc.Tips.Search(ctx, " ", "", 10)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestTipSearchDisabled(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.svc.Tips.Search(context.Background(), "water", "", 10)
	assert.Error(t, err)
	n, err := f.svc.Tips.Reindex(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
