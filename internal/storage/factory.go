package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"apimon/internal/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// NewStore 根据配置创建存储实例（工厂模式）
//
// 两种模式：
//   - SQLite 模式：APIMON_MYSQL 不设置（默认，单机部署）
//   - MySQL 模式：APIMON_MYSQL 设置为DSN（多实例共享会话）
func NewStore(cfg *config.EnvConfig) (Store, error) {
	if cfg.MySQLDSN == "" {
		store, err := createSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("SQLite 初始化失败: %w", err)
		}
		log.Printf("使用 SQLite 存储: %s", cfg.SQLitePath)
		return store, nil
	}

	store, err := createMySQLStore(cfg.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("MySQL 初始化失败: %w", err)
	}
	log.Print("使用 MySQL 存储")
	return store, nil
}

// NewMemoryStore 内存SQLite存储（测试和一次性环境用，不落盘）
func NewMemoryStore() (*SQLStore, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("打开内存SQLite失败: %w", err)
	}
	db.SetMaxOpenConns(1)
	return bootstrap(db, "sqlite")
}

func createSQLiteStore(path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开SQLite失败: %w", err)
	}

	// modernc.org/sqlite 写并发受限，单连接最稳妥
	db.SetMaxOpenConns(1)

	return bootstrap(db, "sqlite")
}

func createMySQLStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开MySQL连接失败: %w", err)
	}

	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	// 测试连接（Fail-Fast）
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("MySQL连接测试失败: %w", err)
	}

	return bootstrap(db, "mysql")
}

func bootstrap(db *sql.DB, dialect string) (*SQLStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := initSchema(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLStore(db), nil
}
