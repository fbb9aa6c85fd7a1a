package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type row struct {
	ID   uint
	Name string
}

func TestSQLiteBackupAndPrune(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&row{}))
	require.NoError(t, db.Create(&row{Name: "chennai"}).Error)

	dir := t.TempDir()
	b := New(Config{Driver: "sqlite", Dir: dir, Keep: 2}, db)
	ts := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)
	b.now = func() time.Time { ts = ts.Add(time.Hour); return ts }

	var last string
	for i := 0; i < 3; i++ {
		last, err = b.Execute(context.Background())
		require.NoError(t, err)
	}
	files, _ := filepath.Glob(filepath.Join(dir, filePrefix+"*"))
	assert.Len(t, files, 2)
	assert.Equal(t, filepath.Join(dir, "ecowatch_backup_20240101_060000.db"), last)

	restored, err := gorm.Open(sqlite.Open(last), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	var got row
	require.NoError(t, restored.First(&got).Error)
	assert.Equal(t, "chennai", got.Name)
}

func TestUnsupportedDriver(t *testing.T) {
	b := New(Config{Driver: "oracle", Dir: t.TempDir()}, nil)
	_, err := b.Execute(context.Background())
	assert.Error(t, err)

	_, err = New(Config{Driver: "mysql", DSN: "::bad", Dir: t.TempDir()}, nil).Execute(context.Background())
	assert.Error(t, err)
	_, statErr := os.Stat(b.cfg.Dir)
	assert.NoError(t, statErr)
}
