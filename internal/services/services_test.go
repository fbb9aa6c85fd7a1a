package services

import (
	"EcoWatch/internal/models"
	"EcoWatch/internal/provider"
	"EcoWatch/pkg/i18n"
	"EcoWatch/pkg/metrics"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var t0 = time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)

type fixture struct {
	db      *gorm.DB
	clock   *clockwork.FakeClock
	metrics *metrics.Metrics
	svc     *Services
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:  gormlogger.Discard,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.Migrate(db))
	return db
}

// newFixture 使用确定性的模拟数据源，opts 中未设置的项取测试默认值
func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(t0)
	m := metrics.NewMetricsForTesting()
	if opts.FreshnessTTL == 0 {
		opts.FreshnessTTL = 30 * time.Minute
	}
	if opts.FreshnessTTL < 0 {
		opts.FreshnessTTL = 0
	}
	opts.Clock = clock
	opts.Metrics = m
	if opts.I18n == nil {
		tr, err := i18n.NewI18nSupport("en")
		require.NoError(t, err)
		opts.I18n = tr
	}
	p := provider.NewSynthetic(42, 30*time.Minute, clock)
	return &fixture{db: db, clock: clock, metrics: m, svc: New(db, p, opts)}
}

func ptr[T any](v T) *T { return &v }
