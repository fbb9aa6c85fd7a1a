package backup

import (
	"EcoWatch/pkg/logger"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const filePrefix = "ecowatch_backup_"

type Config struct {
	Driver string
	DSN    string
	Dir    string
	Keep   int // 保留最近的份数，0 表示不清理
}

// Backuper 按数据库类型导出备份文件
type Backuper struct {
	cfg Config
	db  *gorm.DB
	now func() time.Time
}

func New(cfg Config, db *gorm.DB) *Backuper {
	if cfg.Dir == "" {
		cfg.Dir = "backups"
	}
	return &Backuper{cfg: cfg, db: db, now: time.Now}
}

// Run 供定时任务调用
func (b *Backuper) Run(ctx context.Context) {
	dst, err := b.Execute(ctx)
	if err != nil {
		logger.Warn("backup failed", zap.Error(err))
		return
	}
	logger.Info("backup completed", zap.String("file", dst))
}

// Execute 执行一次备份并返回生成的文件路径
func (b *Backuper) Execute(ctx context.Context) (string, error) {
	if err := os.MkdirAll(b.cfg.Dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	stamp := b.now().Format("20060102_150405")

	var (
		dst string
		err error
	)
	switch strings.ToLower(b.cfg.Driver) {
	case "", "sqlite":
		dst = filepath.Join(b.cfg.Dir, filePrefix+stamp+".db")
		err = b.backupSQLite(ctx, dst)
	case "mysql":
		dst = filepath.Join(b.cfg.Dir, filePrefix+stamp+".sql")
		err = backupMySQL(ctx, b.cfg.DSN, dst)
	case "pg", "postgres":
		dst = filepath.Join(b.cfg.Dir, filePrefix+stamp+".sql")
		err = backupPostgres(ctx, b.cfg.DSN, dst)
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER: %s", b.cfg.Driver)
	}
	if err != nil {
		return "", err
	}
	if err := b.prune(); err != nil {
		logger.Warn("prune backups failed", zap.Error(err))
	}
	return dst, nil
}

// backupSQLite 使用 VACUUM INTO 生成一致性快照，内存库同样适用
func (b *Backuper) backupSQLite(ctx context.Context, dst string) error {
	if b.db == nil {
		return fmt.Errorf("sqlite backup requires a database handle")
	}
	abs, err := filepath.Abs(dst)
	if err != nil {
		return err
	}
	return b.db.WithContext(ctx).Exec("VACUUM INTO ?", abs).Error
}

func backupMySQL(ctx context.Context, dsn, dst string) error {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return fmt.Errorf("invalid mysql dsn: %w", err)
	}
	host, port := cfg.Addr, "3306"
	if h, p, ok := strings.Cut(cfg.Addr, ":"); ok {
		host, port = h, p
	}
	args := []string{"-h", host, "-P", port, "-u", cfg.User, "--single-transaction", "--result-file=" + dst, cfg.DBName}
	cmd := exec.CommandContext(ctx, "mysqldump", args...)
	cmd.Env = append(os.Environ(), "MYSQL_PWD="+cfg.Passwd)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to backup MySQL database: %w: %s", err, out)
	}
	return nil
}

func backupPostgres(ctx context.Context, dsn, dst string) error {
	cmd := exec.CommandContext(ctx, "pg_dump", "--dbname="+dsn, "--file="+dst)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to backup Postgres database: %w: %s", err, out)
	}
	return nil
}

// prune 删除超出保留份数的旧备份，文件名中的时间戳保证字典序即时间序
func (b *Backuper) prune() error {
	if b.cfg.Keep <= 0 {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(b.cfg.Dir, filePrefix+"*"))
	if err != nil {
		return err
	}
	if len(matches) <= b.cfg.Keep {
		return nil
	}
	sort.Strings(matches)
	for _, f := range matches[:len(matches)-b.cfg.Keep] {
		if err := os.Remove(f); err != nil {
			return err
		}
	}
	return nil
}
