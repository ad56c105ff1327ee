package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"apimon/internal/model"
)

// SQLStore 基于database/sql的存储实现，SQLite与MySQL共用
// SQL写法刻意停留在两个方言的交集（?占位符、Unix秒时间戳、无upsert扩展）
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore 包装已打开的连接（schema初始化由工厂完成）
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// ==================== 控制台会话 ====================

func (s *SQLStore) CreateSession(ctx context.Context, sess *model.ConsoleSession) error {
	// 同一token哈希重复写入视为覆盖（先删后插，兼容两种方言）
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM console_sessions WHERE token_hash = ?`, sess.TokenHash); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO console_sessions (token_hash, bearer_token, username, role, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sess.TokenHash, sess.BearerToken, sess.Username, sess.Role, sess.ExpiresAt.Unix(), time.Now().Unix())
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) GetSession(ctx context.Context, tokenHash string) (*model.ConsoleSession, bool, error) {
	var row sessionRow
	err := s.db.QueryRowContext(ctx, `
		SELECT token_hash, bearer_token, username, role, expires_at
		FROM console_sessions WHERE token_hash = ?
	`, tokenHash).Scan(&row.tokenHash, &row.bearerToken, &row.username, &row.role, &row.expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return row.toModel(), true, nil
}

func (s *SQLStore) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM console_sessions WHERE token_hash = ?`, tokenHash)
	return err
}

func (s *SQLStore) CleanExpiredSessions(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM console_sessions WHERE expires_at < ?`, time.Now().Unix())
	return err
}

func (s *SQLStore) LoadAllSessions(ctx context.Context) ([]*model.ConsoleSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token_hash, bearer_token, username, role, expires_at
		FROM console_sessions WHERE expires_at > ?
	`, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*model.ConsoleSession
	for rows.Next() {
		var row sessionRow
		if err := rows.Scan(&row.tokenHash, &row.bearerToken, &row.username, &row.role, &row.expiresAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, row.toModel())
	}
	return sessions, rows.Err()
}

// ==================== 压测归档 ====================

func (s *SQLStore) RecordStressRun(ctx context.Context, run *model.StressRun) error {
	completed := 0
	if run.Completed {
		completed = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stress_runs (
			id, username, target_endpoint, num_users, spawn_rate, duration,
			started_at, ended_at, completed,
			total_requests, fail_rate, avg_latency, max_latency
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Username, run.TargetEndpoint, run.NumUsers, run.SpawnRate, run.Duration,
		run.StartedAt.Unix(), run.EndedAt.Unix(), completed,
		run.TotalRequests, run.FailRate, run.AvgLatency, run.MaxLatency)
	return err
}

func (s *SQLStore) ListStressRuns(ctx context.Context, username string, limit int) ([]*model.StressRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, username, target_endpoint, num_users, spawn_rate, duration,
		       started_at, ended_at, completed,
		       total_requests, fail_rate, avg_latency, max_latency
		FROM stress_runs`
	args := []any{}
	if username != "" {
		query += ` WHERE username = ?`
		args = append(args, username)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*model.StressRun
	for rows.Next() {
		var run model.StressRun
		var startedAt, endedAt int64
		var completed int
		if err := rows.Scan(&run.ID, &run.Username, &run.TargetEndpoint,
			&run.NumUsers, &run.SpawnRate, &run.Duration,
			&startedAt, &endedAt, &completed,
			&run.TotalRequests, &run.FailRate, &run.AvgLatency, &run.MaxLatency); err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(startedAt, 0)
		run.EndedAt = time.Unix(endedAt, 0)
		run.Completed = completed == 1
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
