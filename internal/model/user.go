package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// 用户角色常量（与上游网关的role字段一致）
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User 网关用户信息（上游所有，本服务只读透传）
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

// IsAdmin 判断是否为管理员角色
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ConsoleSession 控制台登录会话
// 持久化到本地数据库，重启后保持登录状态
// 安全约定：数据库只存控制台Token的SHA256哈希，明文仅返回给浏览器一次
type ConsoleSession struct {
	TokenHash   string    `json:"-"`
	BearerToken string    `json:"-"` // 上游网关签发的bearer token
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IsExpired 检查会话是否已过期
func (s *ConsoleSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// HashToken 计算令牌的SHA256哈希值
// 用于安全存储令牌到数据库
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
