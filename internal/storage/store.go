// Package storage 控制台本地持久化层。
//
// 本服务不拥有业务数据（API、档位、密钥、用量都在上游网关），
// 本地库只存两类自己的状态：控制台登录会话、压测归档记录。
// SQLite为默认后端，设置 APIMON_MYSQL 后切换为MySQL（SQL方言兼容两者）。
package storage

import (
	"context"
	"time"

	"apimon/internal/model"
)

// Store 存储接口
type Store interface {
	// ==================== 控制台会话 ====================

	// CreateSession 写入会话（token已是SHA256哈希）
	CreateSession(ctx context.Context, sess *model.ConsoleSession) error
	// GetSession 按token哈希查会话，不存在时exists=false且err=nil
	GetSession(ctx context.Context, tokenHash string) (sess *model.ConsoleSession, exists bool, err error)
	// DeleteSession 删除会话（登出）
	DeleteSession(ctx context.Context, tokenHash string) error
	// CleanExpiredSessions 清理已过期会话（后台定时调用）
	CleanExpiredSessions(ctx context.Context) error
	// LoadAllSessions 加载所有未过期会话（启动时恢复内存缓存）
	LoadAllSessions(ctx context.Context) ([]*model.ConsoleSession, error)

	// ==================== 压测归档 ====================

	// RecordStressRun 归档一次已结束的压测
	RecordStressRun(ctx context.Context, run *model.StressRun) error
	// ListStressRuns 按开始时间倒序返回指定用户的压测历史
	// username为空表示不过滤（admin视图）
	ListStressRuns(ctx context.Context, username string, limit int) ([]*model.StressRun, error)

	Close() error
}

// sessionRow 会话表的扫描中转（时间字段以Unix秒存储）
type sessionRow struct {
	tokenHash   string
	bearerToken string
	username    string
	role        string
	expiresAt   int64
}

func (r *sessionRow) toModel() *model.ConsoleSession {
	return &model.ConsoleSession{
		TokenHash:   r.tokenHash,
		BearerToken: r.bearerToken,
		Username:    r.username,
		Role:        r.role,
		ExpiresAt:   time.Unix(r.expiresAt, 0),
	}
}
