package provider

import (
	"context"
	"video-forge/app/model"
)

// ScriptProvider 脚本生成服务
type ScriptProvider interface {
	// Generate 根据提示词生成脚本。
	// 返回的场景旁白按顺序拼接必须等于完整旁白，这是下游时长分配的前提。
	Generate(ctx context.Context, prompt string) (*model.Script, error)
}

// VoiceProvider 配音合成服务
type VoiceProvider interface {
	// Synthesize 将旁白文本合成为音频文件并写入 outPath
	Synthesize(ctx context.Context, text, outPath string) error
}

// ImageCandidate 图片搜索候选
type ImageCandidate struct {
	ID     string
	Width  int
	Height int
	URL    string // 下载地址
}

// ClipFile 视频候选的单个可下载文件
type ClipFile struct {
	Width  int
	Height int
	Link   string
}

// ClipCandidate 视频片段搜索候选
type ClipCandidate struct {
	ID       string
	Width    int
	Height   int
	Duration float64
	Files    []ClipFile
}

// VisualProvider 视觉素材搜索服务，返回的候选按提供方的相关度排序
type VisualProvider interface {
	SearchImages(ctx context.Context, keyword string) ([]ImageCandidate, error)
	SearchClips(ctx context.Context, keyword string) ([]ClipCandidate, error)
}

// StorageProvider 对象存储发布服务
type StorageProvider interface {
	// Publish 上传本地文件并返回公开访问地址。
	// 未配置存储时直接返回本地路径且不报错，上传属于可降级环节。
	Publish(ctx context.Context, localPath, contentType string) (string, error)
}
