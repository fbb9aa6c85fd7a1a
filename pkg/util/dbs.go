package util

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sqliteMemoryDSN = "file::memory:"

// DBOptions 数据库连接选项
type DBOptions struct {
	Driver        string
	DSN           string
	LogLevel      string        // silent|error|warn|info
	SlowThreshold time.Duration // 慢查询阈值
	MaxOpenConns  int
}

// InitDatabase 根据驱动打开数据库，SQL 日志通过 logrus 输出
func InitDatabase(opts DBOptions) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: newGormLogger(opts.LogLevel, opts.SlowThreshold),
		// 统一存 UTC，SQLite 按文本比较时间才有序
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
	db, err := createDatabaseInstance(cfg, strings.ToLower(opts.Driver), opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	maxOpen := opts.MaxOpenConns
	if isSQLite(opts.Driver) {
		// 内存库每个连接都是独立的数据库，必须只保留一个连接
		maxOpen = 1
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	return db, nil
}

func createDatabaseInstance(cfg *gorm.Config, driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case "mysql":
		return gorm.Open(mysql.Open(dsn), cfg)
	case "pg", "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	}
	if dsn == "" {
		dsn = sqliteMemoryDSN
	}
	return gorm.Open(sqlite.Open(dsn), cfg)
}

func isSQLite(driver string) bool {
	switch strings.ToLower(driver) {
	case "mysql", "pg", "postgres":
		return false
	}
	return true
}

func newGormLogger(level string, slow time.Duration) gormlogger.Interface {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl := gormlogger.Warn
	switch strings.ToLower(level) {
	case "silent":
		lvl = gormlogger.Silent
	case "error":
		lvl = gormlogger.Error
	case "info", "debug":
		lvl = gormlogger.Info
	}
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}
	return gormlogger.New(l, gormlogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
	})
}
