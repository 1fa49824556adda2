package visuals

import (
	"context"
	"video-forge/app/logger"
	"video-forge/app/model"
	"video-forge/app/provider"
	"video-forge/app/utils/downloader"
)

// 视频片段的最低分辨率门槛（竖向像素）
const minClipHeight = 720

// downloadFunc 下载函数，测试时可替换
type downloadFunc func(ctx context.Context, url, savePath string) error

// Resolver 按关键词降级搜索素材。
// 依次尝试每个关键词，取第一个合格结果；全部落空返回 nil，属于正常降级而非错误。
type Resolver struct {
	provider provider.VisualProvider
	cache    *Cache
	logger   *logger.Logger
	download downloadFunc
}

// NewResolver 创建素材解析器
func NewResolver(p provider.VisualProvider, cache *Cache, log *logger.Logger) *Resolver {
	return &Resolver{
		provider: p,
		cache:    cache,
		logger:   log,
		download: func(ctx context.Context, url, savePath string) error {
			cfg := downloader.DefaultDownloadConfig()
			// 是否重新下载由缓存判断，残留的空文件直接覆盖
			cfg.OverwriteFile = true
			return downloader.DownloadFromURL(ctx, url, savePath, cfg)
		},
	}
}

// Cache 返回底层缓存
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// ResolveClip 按关键词顺序解析一个视频片段。
// 单个关键词内：优先第一个达到分辨率门槛的候选，否则取分辨率最高的候选。
func (r *Resolver) ResolveClip(ctx context.Context, keywords []string) *model.Asset {
	for _, keyword := range keywords {
		candidates, err := r.provider.SearchClips(ctx, keyword)
		if err != nil {
			r.logger.Warnf("关键词 %q 视频搜索失败: %v", keyword, err)
			continue
		}
		if len(candidates) == 0 {
			continue
		}

		candidate, file := pickClip(candidates)
		if file == nil {
			continue
		}

		asset := r.fetch(ctx, keyword, candidate.ID, file.Link, model.AssetKindClip, ".mp4")
		if asset != nil {
			return asset
		}
	}
	return nil
}

// ResolveImage 按关键词顺序解析一张横版图片
func (r *Resolver) ResolveImage(ctx context.Context, keywords []string) *model.Asset {
	for _, keyword := range keywords {
		candidates, err := r.provider.SearchImages(ctx, keyword)
		if err != nil {
			r.logger.Warnf("关键词 %q 图片搜索失败: %v", keyword, err)
			continue
		}

		for _, c := range candidates {
			// 只接受横版图片，避免竖图在横版成片中大面积裁切
			if c.Width <= c.Height || c.URL == "" {
				continue
			}
			asset := r.fetch(ctx, keyword, c.ID, c.URL, model.AssetKindImage, ".jpg")
			if asset != nil {
				return asset
			}
			break // 下载失败时换下一个关键词而不是同词穷举
		}
	}
	return nil
}

// ResolveScenes 为每个场景解析视频素材，保持场景顺序。
// 某个场景全部关键词落空时素材列表为空，由下游跳过该场景。
func (r *Resolver) ResolveScenes(ctx context.Context, scenes model.SceneList) []model.SceneAssets {
	resolved := make([]model.SceneAssets, scenes.Len())
	for i := 0; i < scenes.Len(); i++ {
		scene := scenes.At(i)
		resolved[i] = model.SceneAssets{Index: i}

		asset := r.ResolveClip(ctx, scene.VisualKeywords)
		if asset == nil {
			r.logger.Warnf("场景 %d 的所有关键词均未命中素材: %v", i, scene.VisualKeywords)
			continue
		}
		resolved[i].Assets = append(resolved[i].Assets, *asset)
	}
	return resolved
}

// fetch 下载素材（缓存命中时跳过下载）
func (r *Resolver) fetch(ctx context.Context, keyword, providerID, url string, kind model.AssetKind, ext string) *model.Asset {
	path := r.cache.Path(keyword, providerID, ext)

	if !r.cache.Has(path) {
		if err := r.download(ctx, url, path); err != nil {
			r.logger.Warnf("下载素材失败 (%s): %v", url, err)
			return nil
		}
	} else {
		r.logger.Debugf("缓存命中: %s", path)
	}

	return &model.Asset{
		ProviderID: providerID,
		Kind:       kind,
		Keyword:    keyword,
		LocalPath:  path,
	}
}

// pickClip 从候选中挑选片段：第一个带达标文件的候选优先，
// 否则在全部候选里取分辨率最高的文件。
func pickClip(candidates []provider.ClipCandidate) (*provider.ClipCandidate, *provider.ClipFile) {
	var bestCandidate *provider.ClipCandidate
	var bestFile *provider.ClipFile

	for i := range candidates {
		c := &candidates[i]
		for j := range c.Files {
			f := &c.Files[j]
			if f.Link == "" {
				continue
			}
			if f.Height >= minClipHeight && f.Width > f.Height {
				return c, f
			}
			if bestFile == nil || f.Height > bestFile.Height {
				bestCandidate, bestFile = c, f
			}
		}
	}
	return bestCandidate, bestFile
}
