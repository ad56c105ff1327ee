package app

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"apimon/internal/config"
	"apimon/internal/gateway"
	"apimon/internal/model"
	"apimon/internal/storage"
	"apimon/internal/storage/redis"
	"apimon/internal/stress"

	"github.com/gin-gonic/gin"
)

// Server 控制台HTTP服务
// 职责划分：认证会话归本地（storage），业务数据归上游（gateway），
// 压测遥测会话归内存（stress.Registry），分析快照可选走Redis缓存。
type Server struct {
	cfg     *config.EnvConfig
	store   storage.Store
	gateway *gateway.Client
	cache   *redis.Cache

	// 会话内存缓存（tokenHash → 会话），启动时从数据库恢复
	sessions    map[string]*model.ConsoleSession
	sessionsMux sync.RWMutex

	stressReg *stress.Registry

	shutdownCh chan struct{}
	wg         sync.WaitGroup
}

// NewServer 创建控制台服务实例
func NewServer(cfg *config.EnvConfig, store storage.Store, gw *gateway.Client, cache *redis.Cache) *Server {
	s := &Server{
		cfg:        cfg,
		store:      store,
		gateway:    gw,
		cache:      cache,
		sessions:   make(map[string]*model.ConsoleSession),
		stressReg:  stress.NewRegistry(cfg.FinishedRetention),
		shutdownCh: make(chan struct{}),
	}

	// 从数据库恢复会话（重启后保持登录）
	if err := s.loadSessionsFromDB(); err != nil {
		log.Printf("[WARN] 启动时恢复会话失败: %v", err)
	}

	// 定期清理过期会话
	s.wg.Add(1)
	go s.sessionCleanupLoop()

	return s
}

func (s *Server) loadSessionsFromDB() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessions, err := s.store.LoadAllSessions(ctx)
	if err != nil {
		return err
	}

	s.sessionsMux.Lock()
	for _, sess := range sessions {
		s.sessions[sess.TokenHash] = sess
	}
	s.sessionsMux.Unlock()

	if len(sessions) > 0 {
		log.Printf("[INFO] 已恢复 %d 个控制台会话", len(sessions))
	}
	return nil
}

// sessionCleanupLoop 定期清理过期会话（内存+数据库）
func (s *Server) sessionCleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(config.SessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanExpiredSessions()
		case <-s.shutdownCh:
			return
		}
	}
}

func (s *Server) cleanExpiredSessions() {
	s.sessionsMux.Lock()
	for hash, sess := range s.sessions {
		if sess.IsExpired() {
			delete(s.sessions, hash)
		}
	}
	s.sessionsMux.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.store.CleanExpiredSessions(ctx); err != nil {
		log.Printf("[WARN] 清理过期会话失败: %v", err)
	}
}

// SetupRoutes 路由设置
func (s *Server) SetupRoutes(r *gin.Engine) {
	// 认证端点（公开访问）
	r.POST("/auth/login", s.handleLogin)
	r.POST("/auth/register", s.handleRegister)

	auth := r.Group("/auth")
	auth.Use(s.requireSession())
	{
		auth.POST("/logout", s.handleLogout)
		auth.GET("/me", s.handleMe)
	}

	// 控制台API（需要会话）
	console := r.Group("/console")
	console.Use(s.requireSession())
	{
		console.GET("/apis", s.handleListAPIs)
		console.POST("/apis", s.handleCreateAPI)
		console.PUT("/apis/:id", s.handleUpdateAPI)
		console.DELETE("/apis/:id", s.handleDeleteAPI)

		console.GET("/tiers", s.handleListTiers)
		console.POST("/tiers", s.handleCreateTier)
		console.PUT("/tiers/:id", s.handleUpdateTier)
		console.DELETE("/tiers/:id", s.handleDeleteTier)

		console.GET("/keys", s.handleListKeys)
		console.GET("/keys/all", s.requireAdmin(), s.handleListAllKeys)
		console.POST("/keys", s.handleGenerateKey)
		console.PUT("/keys/:id/revoke", s.handleRevokeKey)
		console.DELETE("/keys/:id", s.handleDeleteKey)

		console.GET("/analytics", s.handleAnalytics)
		console.GET("/analytics/usage", s.requireAdmin(), s.handleUsageSummary)
		console.POST("/analytics/aggregate", s.requireAdmin(), s.handleTriggerAggregation)

		console.POST("/stress/start", s.handleStartStress)
		console.GET("/stress/runs", s.handleStressRuns)
		console.GET("/stress/:id", s.handleStressSnapshot)
		console.POST("/stress/:id/stop", s.handleStopStress)
	}

	// 静态文件服务
	r.GET("/web/*filepath", serveStaticFile)

	// 默认首页重定向
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/web/index.html")
	})
}

// Shutdown 优雅关闭：停掉后台协程和所有进行中的压测会话
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.shutdownCh)
	s.stressReg.StopAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
