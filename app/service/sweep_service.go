package service

import (
	"time"
	"video-forge/app/config"
	"video-forge/app/database"
	"video-forge/app/logger"
	"video-forge/app/model"
	"video-forge/app/visuals"

	"github.com/robfig/cron/v3"
)

// SweepService 定时清理服务。
// 按 cron 表达式清理过期的素材缓存和超过保留期的渲染归档。
type SweepService struct {
	cfg    config.SweepConfig
	dir    string
	logger *logger.Logger
	cron   *cron.Cron
}

// NewSweepService 创建定时清理服务
func NewSweepService(cfg config.SweepConfig, visualsDir string, log *logger.Logger) *SweepService {
	return &SweepService{
		cfg:    cfg,
		dir:    visualsDir,
		logger: log,
		cron:   cron.New(),
	}
}

// Start 启动定时清理
func (s *SweepService) Start() error {
	if !s.cfg.Enabled {
		s.logger.Info("定时清理未启用")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Infof("定时清理服务已启动，调度: %s", s.cfg.Schedule)
	return nil
}

// Stop 停止定时清理，等待正在执行的清理结束
func (s *SweepService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("定时清理服务已停止")
}

// sweep 执行一轮清理
func (s *SweepService) sweep() {
	s.logger.Info("🔄 开始定时清理")

	if s.cfg.AssetMaxAge > 0 {
		maxAge := time.Duration(s.cfg.AssetMaxAge) * 24 * time.Hour
		removed := visuals.CleanupStale(s.dir, maxAge, s.logger)
		if removed > 0 {
			s.logger.Infof("清理了 %d 个过期素材缓存", removed)
		}
	}

	s.sweepRecords()
}

// sweepRecords 删除超过保留期的渲染归档
func (s *SweepService) sweepRecords() {
	if database.DB == nil || s.cfg.RecordMaxAge <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.cfg.RecordMaxAge)
	result := database.DB.
		Where("created_at < ?", cutoff).
		Delete(&model.RenderRecord{})
	if result.Error != nil {
		s.logger.Errorf("清理渲染归档失败: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		s.logger.Infof("清理了 %d 条过期渲染归档", result.RowsAffected)
	}
}
