package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
	"video-forge/app/config"
	"video-forge/app/database"
	"video-forge/app/engine"
	"video-forge/app/logger"
	"video-forge/app/model"
	"video-forge/app/progress"
	"video-forge/app/provider"
	"video-forge/app/taskstore"
	"video-forge/app/visuals"

	"github.com/google/uuid"
)

// taskTimeout 单个任务的最长执行时间
const taskTimeout = 30 * time.Minute

// PipelineService 视频生成流水线的驱动器。
// 所有阶段错误都在这里分类并转译成任务状态：
// 致命错误（脚本、语音、合成）中止任务记为 failed；
// 可降级错误（素材、封面、上传）只降低成品质量；
// 顺带错误（清理）仅记日志。
type PipelineService struct {
	cfg       *config.Config
	logger    *logger.Logger
	store     taskstore.Store
	broker    *progress.Broker
	script    provider.ScriptProvider
	voice     provider.VoiceProvider
	storage   provider.StorageProvider
	resolver  *visuals.Resolver
	assembler Compositor
	thumbs    Thumbnailer

	probeDuration probeDurationFunc
}

// probeDurationFunc 音频时长探测函数，测试时可替换
type probeDurationFunc func(ctx context.Context, path string) (float64, error)

// Compositor 视频合成能力
type Compositor interface {
	Assemble(ctx context.Context, audioPath string, resolved []model.SceneAssets, plan *engine.RenderPlan, outputPath string) (*engine.AssembleResult, error)
}

// Thumbnailer 封面生成能力。
// 返回封面底图占用的缓存素材路径，空串表示未占用缓存素材。
type Thumbnailer interface {
	Generate(ctx context.Context, title string, keywords []string, videoPath, outPath string) (string, error)
}

// NewPipelineService 创建流水线服务
func NewPipelineService(
	cfg *config.Config,
	log *logger.Logger,
	store taskstore.Store,
	broker *progress.Broker,
	script provider.ScriptProvider,
	voice provider.VoiceProvider,
	storage provider.StorageProvider,
	resolver *visuals.Resolver,
	assembler Compositor,
	thumbs Thumbnailer,
) *PipelineService {
	return &PipelineService{
		cfg:           cfg,
		logger:        log,
		store:         store,
		broker:        broker,
		script:        script,
		voice:         voice,
		storage:       storage,
		resolver:      resolver,
		assembler:     assembler,
		thumbs:        thumbs,
		probeDuration: engine.ProbeDuration,
	}
}

// Submit 提交新任务，立即返回任务编号，流水线在后台执行
func (s *PipelineService) Submit(prompt string) string {
	taskID := uuid.NewString()

	s.publish(model.TaskRecord{
		TaskID:   taskID,
		Status:   model.TaskStatusPending,
		Progress: 0,
		Message:  "任务已排队",
	})

	go s.run(taskID, prompt)

	s.logger.Infof("🔄 新任务已提交: %s", taskID)
	return taskID
}

// run 执行完整流水线
func (s *PipelineService) run(taskID, prompt string) {
	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	start := time.Now()

	rec := model.TaskRecord{TaskID: taskID, Status: model.TaskStatusProcessing}
	rec.Message = "正在生成脚本..."
	s.publish(rec)

	// 阶段一：脚本生成
	script, err := s.script.Generate(ctx, prompt)
	if err != nil {
		s.fail(rec, prompt, start, stageErr(StageScript, err))
		return
	}
	rec.Progress = 10
	rec.Message = "正在合成旁白..."
	rec.Data.Title = script.Title
	rec.Data.Script = script.Narration
	s.publish(rec)

	// 阶段二：语音合成
	audioPath := filepath.Join(s.cfg.Storage.OutputDir, taskID+".mp3")
	if err := s.voice.Synthesize(ctx, script.Narration, audioPath); err != nil {
		s.fail(rec, prompt, start, stageErr(StageVoice, err))
		return
	}
	rec.Progress = 20
	rec.Message = "正在解析视觉素材..."
	s.publish(rec)

	// 阶段三：素材解析。单场景落空是可降级错误，解析器内部已兜底
	resolved := s.resolver.ResolveScenes(ctx, script.Scenes)
	rec.Progress = 40
	rec.Message = "正在合成视频..."
	s.publish(rec)

	// 阶段四：时长分配与合成
	audioDur, err := s.probeDuration(ctx, audioPath)
	if err != nil {
		s.fail(rec, prompt, start, stageErr(StageAssembly, err))
		return
	}
	plan, err := engine.BuildPlan(audioDur, script.Scenes, resolved)
	if err != nil {
		s.fail(rec, prompt, start, stageErr(StageAssembly, err))
		return
	}
	outputPath := filepath.Join(s.cfg.Storage.OutputDir, taskID+".mp4")
	result, err := s.assembler.Assemble(ctx, audioPath, resolved, plan, outputPath)
	if err != nil {
		s.fail(rec, prompt, start, stageErr(StageAssembly, err))
		return
	}
	rec.Progress = 60
	rec.Message = "正在生成封面..."
	s.publish(rec)

	// 阶段五：封面（失败降级）与缓存清理（只记日志）。
	// 封面底图也算本次渲染使用的素材，清理时一并保留
	thumbPath, thumbSource := s.makeThumbnail(ctx, script, outputPath, taskID)
	if thumbSource != "" {
		result.UsedAssets[thumbSource] = struct{}{}
	}
	visuals.CleanupUnused(s.resolver.Cache().Dir(), result.UsedAssets, s.logger)

	rec.Message = "正在上传成品..."
	s.publish(rec)

	// 阶段六：发布，失败降级为本地路径
	rec.Data.VideoURL = s.publishFile(ctx, outputPath, "video/mp4")
	if thumbPath != "" {
		rec.Data.ThumbnailURL = s.publishFile(ctx, thumbPath, "image/jpeg")
	}
	rec.Progress = 80
	s.publish(rec)

	rec.Status = model.TaskStatusCompleted
	rec.Progress = 100
	rec.Message = "任务完成"
	s.publish(rec)
	s.archive(rec, prompt, time.Since(start).Seconds())

	s.logger.Infof("✅ 任务 %s 完成，耗时 %.1f 秒", taskID, time.Since(start).Seconds())
}

// makeThumbnail 生成封面，失败时返回空路径
func (s *PipelineService) makeThumbnail(ctx context.Context, script *model.Script, videoPath, taskID string) (string, string) {
	thumbPath := filepath.Join(s.cfg.Storage.OutputDir, taskID+".jpg")
	source, err := s.thumbs.Generate(ctx, script.Title, script.ThumbnailKeywords, videoPath, thumbPath)
	if err != nil {
		s.logger.Warnf("封面生成失败，任务继续: %v", err)
		return "", ""
	}
	return thumbPath, source
}

// publishFile 上传产物，失败时降级为本地路径
func (s *PipelineService) publishFile(ctx context.Context, localPath, contentType string) string {
	url, err := s.storage.Publish(ctx, localPath, contentType)
	if err != nil {
		s.logger.Warnf("上传 %s 失败，降级为本地路径: %v", localPath, err)
		return localPath
	}
	return url
}

// fail 把任务转入失败终态
func (s *PipelineService) fail(rec model.TaskRecord, prompt string, start time.Time, stageError *StageError) {
	s.logger.Errorf("❌ 任务 %s %v", rec.TaskID, stageError)

	rec.Status = model.TaskStatusFailed
	rec.Progress = 0
	rec.Message = stageError.Reason()
	rec.Data.Error = stageError.Reason()
	s.publish(rec)
	s.archive(rec, prompt, time.Since(start).Seconds())
}

// publish 写入任务存储并广播给订阅者。
// 终态记录只读：任何指向已终结任务的更新都被丢弃。
func (s *PipelineService) publish(rec model.TaskRecord) {
	if prev, ok := s.store.Get(rec.TaskID); ok && prev.Status.IsTerminal() {
		s.logger.Warnf("任务 %s 已终结，丢弃状态更新 %s/%d", rec.TaskID, rec.Status, rec.Progress)
		return
	}
	s.store.Put(rec)
	s.broker.Publish(rec)
}

// archive 终态任务落库归档
func (s *PipelineService) archive(rec model.TaskRecord, prompt string, elapsed float64) {
	if database.DB == nil {
		return
	}

	record := model.RenderRecord{
		TaskID:       rec.TaskID,
		Prompt:       prompt,
		Title:        rec.Data.Title,
		Status:       rec.Status,
		VideoURL:     rec.Data.VideoURL,
		ThumbnailURL: rec.Data.ThumbnailURL,
		ErrorMsg:     rec.Data.Error,
		ElapsedSec:   elapsed,
	}
	if err := database.DB.Create(&record).Error; err != nil {
		s.logger.Errorf("归档渲染记录失败: %v", err)
	}
}

// Status 查询任务当前状态
func (s *PipelineService) Status(taskID string) (model.TaskRecord, bool) {
	return s.store.Get(taskID)
}

// ListRecords 分页查询历史渲染记录
func (s *PipelineService) ListRecords(page, pageSize int) ([]model.RenderRecord, int64, error) {
	if database.DB == nil {
		return nil, 0, fmt.Errorf("数据库未初始化")
	}

	var total int64
	if err := database.DB.Model(&model.RenderRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []model.RenderRecord
	err := database.DB.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	return records, total, err
}

// DeleteRecord 删除一条历史渲染记录
func (s *PipelineService) DeleteRecord(id uint) error {
	if database.DB == nil {
		return fmt.Errorf("数据库未初始化")
	}
	return database.DB.Delete(&model.RenderRecord{}, id).Error
}
