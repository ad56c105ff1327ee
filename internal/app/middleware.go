package app

import (
	"net/http"
	"strings"

	"apimon/internal/model"

	"github.com/gin-gonic/gin"
)

// sessionContextKey gin上下文里的会话键
const sessionContextKey = "console_session"

// extractToken 从Authorization头提取控制台Token
func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// requireSession 会话认证中间件
// 先查内存缓存，未命中回源数据库（多实例共享MySQL时其他实例创建的会话）
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			RespondUnauthorized(c, "missing authorization token")
			c.Abort()
			return
		}

		hash := model.HashToken(token)

		s.sessionsMux.RLock()
		sess, ok := s.sessions[hash]
		s.sessionsMux.RUnlock()

		if !ok {
			dbSess, exists, err := s.store.GetSession(c.Request.Context(), hash)
			if err != nil || !exists {
				RespondUnauthorized(c, "invalid or expired session")
				c.Abort()
				return
			}
			sess = dbSess
			s.sessionsMux.Lock()
			s.sessions[hash] = sess
			s.sessionsMux.Unlock()
		}

		if sess.IsExpired() {
			s.removeSession(c, hash)
			RespondUnauthorized(c, "session expired")
			c.Abort()
			return
		}

		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

// requireAdmin 管理员角色检查（必须在requireSession之后）
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		if sess == nil || sess.Role != model.RoleAdmin {
			RespondErrorMsg(c, http.StatusForbidden, "admin role required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// currentSession 取出中间件放入的会话
func currentSession(c *gin.Context) *model.ConsoleSession {
	if v, ok := c.Get(sessionContextKey); ok {
		if sess, ok := v.(*model.ConsoleSession); ok {
			return sess
		}
	}
	return nil
}

// removeSession 同时清除内存和数据库里的会话
func (s *Server) removeSession(c *gin.Context, hash string) {
	s.sessionsMux.Lock()
	delete(s.sessions, hash)
	s.sessionsMux.Unlock()
	_ = s.store.DeleteSession(c.Request.Context(), hash)
}
