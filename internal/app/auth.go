package app

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"time"

	"apimon/internal/config"
	"apimon/internal/gateway"
	"apimon/internal/model"

	"github.com/gin-gonic/gin"
)

// loginRequest 控制台登录请求（JSON，转发上游前改为表单编码）
type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// loginResult 登录成功响应
// token是控制台自己的会话令牌，上游bearer不出本服务
type loginResult struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// generateConsoleToken 生成控制台会话令牌（256位随机数的hex编码）
func generateConsoleToken() (string, error) {
	buf := make([]byte, config.TokenRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// POST /auth/login
// 凭据透传上游换bearer，再查身份，铸造本地会话令牌
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErrorMsg(c, http.StatusBadRequest, "username and password are required")
		return
	}

	ctx := c.Request.Context()
	bearer, err := s.gateway.Login(ctx, req.Username, req.Password)
	if err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}

	user, err := s.gateway.Me(ctx, bearer)
	if err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}

	token, err := generateConsoleToken()
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}

	sess := &model.ConsoleSession{
		TokenHash:   model.HashToken(token),
		BearerToken: bearer,
		Username:    user.Username,
		Role:        user.Role,
		ExpiresAt:   time.Now().Add(config.SessionExpiry),
	}

	if err := s.store.CreateSession(ctx, sess); err != nil {
		// 持久化失败不拦截登录，重启后需要重新登录
		log.Printf("[WARN] 会话持久化失败: %v", err)
	}

	s.sessionsMux.Lock()
	s.sessions[sess.TokenHash] = sess
	s.sessionsMux.Unlock()

	RespondJSON(c, http.StatusOK, loginResult{
		Token:     token,
		Username:  user.Username,
		Role:      user.Role,
		ExpiresAt: sess.ExpiresAt,
	})
}

// POST /auth/register
// 注册透传上游，成功后前端再走一次登录
func (s *Server) handleRegister(c *gin.Context) {
	var req gateway.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErrorMsg(c, http.StatusBadRequest, "invalid register payload")
		return
	}
	if req.Username == "" || req.Password == "" {
		RespondErrorMsg(c, http.StatusBadRequest, "username and password are required")
		return
	}

	if err := s.gateway.Register(c.Request.Context(), req); err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}
	RespondJSON(c, http.StatusCreated, gin.H{"username": req.Username})
}

// POST /auth/logout
func (s *Server) handleLogout(c *gin.Context) {
	token := extractToken(c)
	if token != "" {
		s.removeSession(c, model.HashToken(token))
	}
	RespondJSON(c, http.StatusOK, gin.H{"message": "logged out"})
}

// GET /auth/me
// 直接返回会话里的身份，不再打上游
func (s *Server) handleMe(c *gin.Context) {
	sess := currentSession(c)
	RespondJSON(c, http.StatusOK, gin.H{
		"username":   sess.Username,
		"role":       sess.Role,
		"expires_at": sess.ExpiresAt,
	})
}
