package adminhttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"hlrecap/internal/logger"
	"hlrecap/internal/runner"
	"hlrecap/internal/store"
	"hlrecap/internal/store/model"

	"github.com/gin-gonic/gin"
)

// RunTrigger 由 runner.Runner 实现，用于手动触发一次回顾。
type RunTrigger interface {
	Run(ctx context.Context, scan model.ScanType) (*runner.RunReport, error)
	Running() bool
}

// Server 提供 daemon 模式下的管理接口（健康检查 + 运行记录查询/触发）。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述管理 HTTP 服务依赖。
type ServerConfig struct {
	Addr    string
	Runs    store.RunRepository
	Trigger RunTrigger
}

// NewServer 构建管理 HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Runs == nil && cfg.Trigger == nil {
		return nil, errors.New("admin http server requires a run store or a trigger")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9992"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		running := cfg.Trigger != nil && cfg.Trigger.Running()
		c.JSON(http.StatusOK, gin.H{"status": "ok", "running": running})
	})
	NewRouter(cfg.Runs, cfg.Trigger).Register(router.Group("/api"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// requestLogger 记录接口调用，便于追踪手动触发。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, c.Writer.Status(), client, time.Since(start))
	}
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router for in-process use.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("管理接口已启动 addr=%s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
