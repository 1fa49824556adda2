package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"video-forge/app/config"
	"video-forge/app/logger"

	"resty.dev/v3"
)

// SupabaseProvider 基于 Supabase Storage REST 接口的发布实现
type SupabaseProvider struct {
	cfg    config.SupabaseConfig
	client *resty.Client
	logger *logger.Logger
}

// NewSupabaseProvider 创建对象存储客户端
func NewSupabaseProvider(cfg config.SupabaseConfig, log *logger.Logger) *SupabaseProvider {
	client := resty.New()
	client.SetBaseURL(cfg.URL)
	client.SetTimeout(5 * time.Minute)
	client.SetAuthToken(cfg.APIKey)

	return &SupabaseProvider{
		cfg:    cfg,
		client: client,
		logger: log,
	}
}

// configured 是否已配置存储服务
func (p *SupabaseProvider) configured() bool {
	return p.cfg.URL != "" && p.cfg.APIKey != ""
}

// Publish 上传本地文件并返回公开访问地址。
// 未配置存储时直接返回本地路径，发布属于可降级环节。
func (p *SupabaseProvider) Publish(ctx context.Context, localPath, contentType string) (string, error) {
	if !p.configured() {
		p.logger.Infof("未配置对象存储，使用本地路径: %s", localPath)
		return localPath, nil
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("读取待上传文件失败: %w", err)
	}

	objectName := filepath.Base(localPath)
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "true").
		SetBody(data).
		Post(fmt.Sprintf("/storage/v1/object/%s/%s", p.cfg.Bucket, objectName))

	if err != nil {
		return "", fmt.Errorf("上传文件失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("上传文件返回状态码 %d: %s", resp.StatusCode(), resp.String())
	}

	publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s", p.cfg.URL, p.cfg.Bucket, objectName)
	p.logger.Infof("文件已发布: %s", publicURL)
	return publicURL, nil
}
