package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apimon/internal/app"
	"apimon/internal/config"
	"apimon/internal/gateway"
	"apimon/internal/storage"
	"apimon/internal/storage/redis"
	"apimon/internal/version"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// 优先读取.env文件
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	version.PrintBanner()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	// 设置Gin运行模式
	if cfg.GinMode == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 本地存储（会话 + 压测归档）
	store, err := storage.NewStore(cfg)
	if err != nil {
		log.Fatalf("存储初始化失败: %v", err)
	}
	defer store.Close()

	// 分析快照缓存（可选功能，REDIS_URL未设置时禁用）
	cache, err := redis.New(cfg.RedisURL, config.AnalyticsCacheTTL)
	if err != nil {
		log.Fatalf("Redis初始化失败: %v", err)
	}
	defer cache.Close()
	if !cache.Enabled() {
		log.Printf("Redis未配置，分析查询直连上游")
	}

	gw := gateway.New(cfg.UpstreamURL)
	log.Printf("上游网关: %s", gw.BaseURL())

	srv := app.NewServer(cfg, store, gw, cache)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	srv.SetupRoutes(r)

	httpSrv := &http.Server{
		Addr:    cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("listening on %s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP服务异常退出: %v", err)
		}
	}()

	// 等待退出信号后优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Print("收到退出信号，开始优雅关闭...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] HTTP关闭超时: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] 后台协程关闭超时: %v", err)
	}
	log.Print("已退出")
}
