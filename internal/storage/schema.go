package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// 两张表的建表语句按方言分开维护：MySQL需要显式的VARCHAR长度和
// 引擎声明，SQLite用动态类型即可。列名和语义保持一致。

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS console_sessions (
		token_hash   TEXT PRIMARY KEY,
		bearer_token TEXT NOT NULL,
		username     TEXT NOT NULL,
		role         TEXT NOT NULL,
		expires_at   INTEGER NOT NULL,
		created_at   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON console_sessions(expires_at)`,
	`CREATE TABLE IF NOT EXISTS stress_runs (
		id              TEXT PRIMARY KEY,
		username        TEXT NOT NULL,
		target_endpoint TEXT NOT NULL,
		num_users       INTEGER NOT NULL,
		spawn_rate      INTEGER NOT NULL,
		duration        INTEGER NOT NULL,
		started_at      INTEGER NOT NULL,
		ended_at        INTEGER NOT NULL,
		completed       INTEGER NOT NULL,
		total_requests  INTEGER NOT NULL,
		fail_rate       REAL NOT NULL,
		avg_latency     REAL NOT NULL,
		max_latency     REAL NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_user_started ON stress_runs(username, started_at)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS console_sessions (
		token_hash   VARCHAR(64) PRIMARY KEY,
		bearer_token TEXT NOT NULL,
		username     VARCHAR(255) NOT NULL,
		role         VARCHAR(32) NOT NULL,
		expires_at   BIGINT NOT NULL,
		created_at   BIGINT NOT NULL,
		INDEX idx_sessions_expires (expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS stress_runs (
		id              VARCHAR(36) PRIMARY KEY,
		username        VARCHAR(255) NOT NULL,
		target_endpoint VARCHAR(1024) NOT NULL,
		num_users       INT NOT NULL,
		spawn_rate      INT NOT NULL,
		duration        INT NOT NULL,
		started_at      BIGINT NOT NULL,
		ended_at        BIGINT NOT NULL,
		completed       TINYINT NOT NULL,
		total_requests  BIGINT NOT NULL,
		fail_rate       DOUBLE NOT NULL,
		avg_latency     DOUBLE NOT NULL,
		max_latency     DOUBLE NOT NULL,
		INDEX idx_runs_user_started (username, started_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// initSchema 执行建表（幂等，启动时调用）
func initSchema(ctx context.Context, db *sql.DB, dialect string) error {
	stmts := sqliteSchema
	if dialect == "mysql" {
		stmts = mysqlSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("建表失败: %w", err)
		}
	}
	return nil
}
