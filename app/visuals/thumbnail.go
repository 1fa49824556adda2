package visuals

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"video-forge/app/logger"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

// 封面统一输出尺寸
const (
	thumbWidth  = 1280
	thumbHeight = 720
)

// frameFunc 成片抽帧函数，测试时可替换
type frameFunc func(ctx context.Context, videoPath, outPath string) error

// ThumbnailGenerator 封面生成器。
// 三级降级：关键词搜图 -> 成片抽帧 -> 绘制标题卡。
// 封面是锦上添花，任何一级失败都只降级，不中断任务。
type ThumbnailGenerator struct {
	resolver     *Resolver
	extractFrame frameFunc
	fontFile     string
	logger       *logger.Logger
}

// NewThumbnailGenerator 创建封面生成器
func NewThumbnailGenerator(resolver *Resolver, extract frameFunc, fontFile string, log *logger.Logger) *ThumbnailGenerator {
	return &ThumbnailGenerator{
		resolver:     resolver,
		extractFrame: extract,
		fontFile:     fontFile,
		logger:       log,
	}
}

// Generate 生成封面图并写入 outPath。
// 返回封面底图占用的缓存素材路径（搜图命中时非空），供清理时纳入使用集合。
func (g *ThumbnailGenerator) Generate(ctx context.Context, title string, keywords []string, videoPath, outPath string) (string, error) {
	if img, sourcePath := g.fromSearch(ctx, keywords); img != nil {
		return sourcePath, g.save(img, outPath)
	}

	if img := g.fromVideo(ctx, videoPath, outPath); img != nil {
		return "", g.save(img, outPath)
	}

	g.logger.Warnf("封面搜图与抽帧均失败，降级为标题卡: %s", title)
	return "", g.save(g.titleCard(title), outPath)
}

// fromSearch 按关键词搜一张横版图片作为封面底图
func (g *ThumbnailGenerator) fromSearch(ctx context.Context, keywords []string) (image.Image, string) {
	asset := g.resolver.ResolveImage(ctx, keywords)
	if asset == nil {
		return nil, ""
	}

	img, err := imaging.Open(asset.LocalPath)
	if err != nil {
		g.logger.Warnf("封面图片解码失败 (%s): %v", asset.LocalPath, err)
		return nil, ""
	}
	return img, asset.LocalPath
}

// fromVideo 从成片抽一帧作为封面底图
func (g *ThumbnailGenerator) fromVideo(ctx context.Context, videoPath, outPath string) image.Image {
	if videoPath == "" {
		return nil
	}

	framePath := filepath.Join(filepath.Dir(outPath), ".frame_"+filepath.Base(outPath))
	defer os.Remove(framePath)

	if err := g.extractFrame(ctx, videoPath, framePath); err != nil {
		g.logger.Warnf("成片抽帧失败: %v", err)
		return nil
	}

	img, err := imaging.Open(framePath)
	if err != nil {
		g.logger.Warnf("抽帧图片解码失败: %v", err)
		return nil
	}
	return img
}

// titleCard 绘制纯色标题卡作为最后兜底
func (g *ThumbnailGenerator) titleCard(title string) image.Image {
	dc := gg.NewContext(thumbWidth, thumbHeight)
	dc.SetColor(color.RGBA{R: 24, G: 28, B: 40, A: 255})
	dc.Clear()

	if g.fontFile != "" {
		if err := dc.LoadFontFace(g.fontFile, 72); err == nil {
			dc.SetColor(color.White)
			dc.DrawStringWrapped(title,
				thumbWidth/2, thumbHeight/2, 0.5, 0.5,
				thumbWidth*0.85, 1.4, gg.AlignCenter)
		} else {
			g.logger.Warnf("加载标题字体失败 (%s): %v", g.fontFile, err)
		}
	}
	return dc.Image()
}

// save 统一裁切到封面尺寸后保存为 JPEG
func (g *ThumbnailGenerator) save(img image.Image, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("创建封面目录失败: %w", err)
	}

	thumb := imaging.Fill(img, thumbWidth, thumbHeight, imaging.Center, imaging.Lanczos)
	if err := imaging.Save(thumb, outPath, imaging.JPEGQuality(85)); err != nil {
		return fmt.Errorf("保存封面失败: %w", err)
	}
	return nil
}
