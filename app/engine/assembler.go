package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"video-forge/app/config"
	"video-forge/app/logger"
	"video-forge/app/model"
)

// trimSafetyMargin 裁剪片段时预留的尾部余量（秒），
// 避免在素材末尾解码时触发流结束错误。
const trimSafetyMargin = 0.1

// runnerFunc 外部命令执行函数，测试时可替换
type runnerFunc func(ctx context.Context, name string, args ...string) error

// probeFunc 媒体时长探测函数，测试时可替换
type probeFunc func(ctx context.Context, path string) (float64, error)

// AssembleResult 一次合成的产物
type AssembleResult struct {
	OutputPath string
	UsedAssets map[string]struct{} // 实际消费的素材路径，供清理使用
}

// Assembler 视频合成器。
// 把异构素材统一到同一画幅，按场景顺序拼接后与旁白音轨封装成单个文件。
type Assembler struct {
	cfg    config.RenderConfig
	logger *logger.Logger
	run    runnerFunc
	probe  probeFunc
}

// NewAssembler 创建视频合成器
func NewAssembler(cfg config.RenderConfig, log *logger.Logger) *Assembler {
	return &Assembler{
		cfg:    cfg,
		logger: log,
		run:    runFFmpeg,
		probe:  ProbeDuration,
	}
}

// Assemble 按时长计划合成最终视频。
// 任何不可恢复的错误都会中止整次合成，不产生部分有效的文件。
func (a *Assembler) Assemble(ctx context.Context, audioPath string, resolved []model.SceneAssets, plan *RenderPlan, outputPath string) (*AssembleResult, error) {
	// 快速失败：音频缺失或没有任何可用素材都无法挽救本次合成
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("旁白音频文件不存在: %s", audioPath)
	}
	if !plan.HasVisuals() {
		return nil, fmt.Errorf("所有场景都没有解析到素材，无法合成")
	}

	workDir := filepath.Join(filepath.Dir(outputPath), ".work_"+strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath)))
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("创建合成工作目录失败: %w", err)
	}
	defer os.RemoveAll(workDir)

	// 第一步：把每个素材规整为统一画幅、统一帧率的片段
	segments, used, err := a.encodeSegments(ctx, resolved, plan, workDir)
	if err != nil {
		return nil, err
	}

	// 第二步：按场景顺序拼接。顺序决定旁白与画面的对齐，绝不能为效率重排
	concatPath := filepath.Join(workDir, "concat.mp4")
	if err := a.concatSegments(ctx, segments, concatPath, workDir); err != nil {
		return nil, err
	}

	// 第三步：与旁白音轨封装，成片时长以音轨为准
	if err := a.mux(ctx, concatPath, audioPath, outputPath); err != nil {
		return nil, err
	}

	a.logger.Infof("✅ 视频合成完成: %s", outputPath)
	return &AssembleResult{OutputPath: outputPath, UsedAssets: used}, nil
}

// segmentJob 单个素材的规整任务
type segmentJob struct {
	asset    model.Asset
	duration float64
	outPath  string
}

// encodeSegments 并发规整所有素材片段，按场景顺序返回片段路径。
// 并发度受配置限制以控制峰值内存，慢一点换稳定。
func (a *Assembler) encodeSegments(ctx context.Context, resolved []model.SceneAssets, plan *RenderPlan, workDir string) ([]string, map[string]struct{}, error) {
	var jobs []segmentJob
	used := make(map[string]struct{})

	for _, sp := range plan.Scenes {
		if sp.AssetCount == 0 {
			// 无素材场景不贡献画面，其旁白时间在上一个画面下流逝
			continue
		}
		for j, asset := range resolved[sp.Index].Assets {
			jobs = append(jobs, segmentJob{
				asset:    asset,
				duration: sp.PerAsset,
				outPath:  filepath.Join(workDir, fmt.Sprintf("seg_%03d_%02d.mp4", sp.Index, j)),
			})
			used[asset.LocalPath] = struct{}{}
		}
	}

	sem := make(chan struct{}, a.cfg.EncodeConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := range jobs {
		wg.Add(1)
		go func(job segmentJob) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			mu.Lock()
			aborted := firstErr != nil
			mu.Unlock()
			if aborted {
				return
			}

			if err := a.encodeSegment(ctx, job); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(jobs[i])
	}
	wg.Wait()

	if firstErr != nil {
		return nil, nil, firstErr
	}

	segments := make([]string, len(jobs))
	for i, job := range jobs {
		segments[i] = job.outPath
	}
	return segments, used, nil
}

// encodeSegment 把单个素材规整为目标画幅的定长片段
func (a *Assembler) encodeSegment(ctx context.Context, job segmentJob) error {
	args := []string{"-y"}
	filter := a.normalizeFilter()

	switch job.asset.Kind {
	case model.AssetKindImage:
		// 静态图片循环铺满分配时长
		args = append(args, "-loop", "1", "-i", job.asset.LocalPath)
	default:
		clipDur, err := a.probe(ctx, job.asset.LocalPath)
		if err != nil {
			return err
		}
		args = append(args, "-i", job.asset.LocalPath)

		// 素材偏短时定格最后一帧补足时长，不回绕循环以免出现明显接缝；
		// 偏长时由输出端 -t 从头截取，安全余量避免在素材末尾解码出错
		usable := clipDur - trimSafetyMargin
		if usable > 0 && usable < job.duration {
			filter += fmt.Sprintf(",tpad=stop_mode=clone:stop_duration=%s", formatSeconds(job.duration-usable))
		}
	}

	args = append(args, "-t", formatSeconds(job.duration))
	args = append(args, "-vf", filter)
	args = append(args, a.encodeArgs()...)
	args = append(args, job.outPath)
	return a.run(ctx, "ffmpeg", args...)
}

// normalizeFilter 统一画幅的滤镜：先按比例放大到覆盖目标框（高度优先），
// 再居中裁切到精确画幅，拼接时不会混入不同尺寸的帧。
func (a *Assembler) normalizeFilter() string {
	w, h := a.cfg.Width, a.cfg.Height
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,fps=%d",
		w, h, w, h, a.cfg.FPS,
	)
}

// encodeArgs 片段统一的编码参数
func (a *Assembler) encodeArgs() []string {
	return []string{
		"-c:v", "libx264",
		"-preset", a.cfg.Preset,
		"-crf", fmt.Sprintf("%d", a.cfg.CRF),
		"-pix_fmt", "yuv420p",
		"-an",
	}
}

// concatSegments 按顺序拼接规整后的片段
func (a *Assembler) concatSegments(ctx context.Context, segments []string, outPath, workDir string) error {
	if len(segments) == 0 {
		return fmt.Errorf("没有可拼接的片段")
	}

	listPath := filepath.Join(workDir, "segments.txt")
	var lines []string
	for _, seg := range segments {
		lines = append(lines, fmt.Sprintf("file '%s'", seg))
	}
	if err := os.WriteFile(listPath, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return fmt.Errorf("写入拼接列表失败: %w", err)
	}

	// 片段编码参数一致，直接流复制
	return a.run(ctx, "ffmpeg", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath,
	)
}

// mux 把画面轨与旁白音轨封装成单个文件，时长以音轨为准
func (a *Assembler) mux(ctx context.Context, videoPath, audioPath, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	return a.run(ctx, "ffmpeg", "-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart", // 优化网络播放
		outPath,
	)
}

// ExtractFrame 从成片中抽取一帧作为封面底图。
// 取样点在 min(1 秒, 时长一半) 处：靠近片头，但对极短视频也安全。
func (a *Assembler) ExtractFrame(ctx context.Context, videoPath, outPath string) error {
	dur, err := a.probe(ctx, videoPath)
	if err != nil {
		return err
	}

	offset := 1.0
	if dur/2 < offset {
		offset = dur / 2
	}

	return a.run(ctx, "ffmpeg", "-y",
		"-ss", formatSeconds(offset),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		outPath,
	)
}

// formatSeconds 秒数格式化为 ffmpeg 参数
func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}

// runFFmpeg 执行外部命令，失败时带上 stderr 便于排查
func runFFmpeg(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if len(msg) > 1024 {
			msg = msg[len(msg)-1024:]
		}
		return fmt.Errorf("%s 执行失败: %w, stderr: %s", name, err, msg)
	}
	return nil
}
