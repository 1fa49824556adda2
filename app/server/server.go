package server

import (
	"context"
	"net/http"
	"os"
	"video-forge/app/config"
	"video-forge/app/database"
	"video-forge/app/engine"
	"video-forge/app/handler"
	"video-forge/app/logger"
	"video-forge/app/middleware"
	"video-forge/app/progress"
	"video-forge/app/promptwatcher"
	"video-forge/app/provider"
	"video-forge/app/service"
	"video-forge/app/taskstore"
	"video-forge/app/visuals"

	"github.com/gin-gonic/gin"
)

// Server 表示 HTTP 服务器
type Server struct {
	Config *config.Config
	Logger *logger.Logger
	gin    *gin.Engine
	http   *http.Server

	pipeline      *service.PipelineService
	broker        *progress.Broker
	sweepService  *service.SweepService
	promptWatcher *promptwatcher.Watcher
}

// New 创建一个新的 Server 实例，组装整条视频生成流水线
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	for _, dir := range []string{cfg.Storage.DataDir, cfg.Storage.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	cache, err := visuals.NewCache(cfg.Storage.VisualsDir)
	if err != nil {
		return nil, err
	}

	broker := progress.NewBroker(log)
	store := taskstore.NewMemoryStore(taskstore.DefaultTTL)

	resolver := visuals.NewResolver(provider.NewPexelsProvider(cfg.Providers.Pexels, log), cache, log)
	assembler := engine.NewAssembler(cfg.Render, log)
	thumbs := visuals.NewThumbnailGenerator(resolver, assembler.ExtractFrame, cfg.Storage.FontFile, log)

	pipeline := service.NewPipelineService(
		cfg, log, store, broker,
		provider.NewGeminiProvider(cfg.Providers.Gemini, log),
		provider.NewElevenLabsProvider(cfg.Providers.ElevenLabs, log),
		provider.NewSupabaseProvider(cfg.Providers.Supabase, log),
		resolver, assembler, thumbs,
	)

	router := gin.Default()

	s := &Server{
		Config: cfg,
		Logger: log,
		gin:    router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		pipeline:     pipeline,
		broker:       broker,
		sweepService: service.NewSweepService(cfg.Sweep, cfg.Storage.VisualsDir, log),
	}

	if cfg.Watcher.Enabled {
		watcher, err := promptwatcher.New(cfg.Storage.PromptDir, pipeline, log)
		if err != nil {
			return nil, err
		}
		s.promptWatcher = watcher
	}

	s.setupRoutes()

	return s, nil
}

// Start 启动服务器及后台服务
func (s *Server) Start() error {
	s.Logger.Infof("在端口 %s 启动服务器", s.Config.Server.Port)

	if err := s.sweepService.Start(); err != nil {
		return err
	}
	if s.promptWatcher != nil {
		if err := s.promptWatcher.Start(); err != nil {
			return err
		}
	}

	return s.http.ListenAndServe()
}

// Shutdown 停止后台服务并优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	if s.promptWatcher != nil {
		if err := s.promptWatcher.Stop(); err != nil {
			s.Logger.Errorf("停止提示词监控器失败: %v", err)
		}
	}
	s.sweepService.Stop()

	if err := database.Close(); err != nil {
		s.Logger.Errorf("关闭数据库连接失败: %v", err)
	}
	return s.http.Shutdown(ctx)
}

// setupRoutes 设置API路由
func (s *Server) setupRoutes() {
	authHandler := handler.NewAuthHandler(s.Config)
	videoHandler := handler.NewVideoHandler(s.pipeline, s.broker, s.Logger)

	s.gin.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.gin.Group("/api")

	// 认证相关路由（不需要JWT验证）
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
	}

	// 任务提交与进度查询开放访问
	videos := api.Group("/videos")
	{
		videos.POST("", videoHandler.CreateVideo)
		videos.GET("/:id/status", videoHandler.GetStatus)
		videos.GET("/:id/stream", videoHandler.StreamStatus)
	}

	// 需要JWT验证的路由
	protected := api.Group("/")
	protected.Use(middleware.JWTAuth(s.Config))
	{
		protected.GET("/me", authHandler.Me)

		// 渲染归档
		records := protected.Group("/records")
		{
			records.GET("", videoHandler.ListRecords)
			records.DELETE("/:id", videoHandler.DeleteRecord)
		}
	}
}
