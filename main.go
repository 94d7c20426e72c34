package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"metaspace/server"
)

// MetaSpace 入口：启动 HTTP + WebSocket 服务，装配目录客户端、
// 认证器与空间注册表
func main() {
	cfg := server.LoadConfig()
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "server listen address, e.g. :8080")
	flag.StringVar(&cfg.DirectoryURL, "directory", cfg.DirectoryURL, "space directory base URL")
	flag.StringVar(&cfg.LogFile, "log", cfg.LogFile, "log file path")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	flag.Parse()

	// 使用第三方 zap 日志库写入滚动文件
	if err := server.InitLogger(cfg.LogFile, cfg.Debug); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	dir := server.NewDirectoryClient(cfg.DirectoryURL)
	registry := server.NewSpaceRegistry(dir, server.SpaceDefaults{
		Width:  cfg.SpaceWidth,
		Height: cfg.SpaceHeight,
		SpawnX: cfg.SpawnX,
		SpawnY: cfg.SpawnY,
	})
	auth := server.NewAuthenticator(cfg.JWTSecret, cfg.AllowAnonymous)
	ws := &server.WSHandler{Registry: registry, Auth: auth}
	admin := &server.Admin{Registry: registry, Auth: auth}

	// 空置空间兜底清扫
	stopReaper := server.StartReaper(registry, cfg.ReaperInterval)
	defer stopReaper()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", ws.HandleWS)
	// 管理与监控接口
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/admin", func(r chi.Router) {
		r.Get("/spaces", admin.HandleSpaces)
		r.Get("/config", admin.HandleConfig)
		r.Post("/config", admin.HandleConfig)
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	go func() {
		server.Log.Infof("MetaSpace listening on %s; ws endpoint: /ws", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
