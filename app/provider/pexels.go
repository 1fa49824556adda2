package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"
	"video-forge/app/config"
	"video-forge/app/logger"

	"resty.dev/v3"
)

// 每次搜索返回的候选数量
const pexelsPerPage = 10

// PexelsProvider 基于 Pexels REST 接口的素材搜索实现
type PexelsProvider struct {
	cfg    config.PexelsConfig
	client *resty.Client
	logger *logger.Logger
}

// NewPexelsProvider 创建素材搜索客户端
func NewPexelsProvider(cfg config.PexelsConfig, log *logger.Logger) *PexelsProvider {
	client := resty.New()
	client.SetBaseURL("https://api.pexels.com")
	client.SetTimeout(30 * time.Second)
	client.SetHeader("Authorization", cfg.APIKey)

	return &PexelsProvider{
		cfg:    cfg,
		client: client,
		logger: log,
	}
}

// pexelsPhotoResponse 图片搜索响应
type pexelsPhotoResponse struct {
	Photos []struct {
		ID     int64 `json:"id"`
		Width  int   `json:"width"`
		Height int   `json:"height"`
		Src    struct {
			Landscape string `json:"landscape"`
			Large2x   string `json:"large2x"`
			Original  string `json:"original"`
		} `json:"src"`
	} `json:"photos"`
}

// pexelsVideoResponse 视频搜索响应
type pexelsVideoResponse struct {
	Videos []struct {
		ID         int64   `json:"id"`
		Width      int     `json:"width"`
		Height     int     `json:"height"`
		Duration   float64 `json:"duration"`
		VideoFiles []struct {
			Width  int    `json:"width"`
			Height int    `json:"height"`
			Link   string `json:"link"`
		} `json:"video_files"`
	} `json:"videos"`
}

// SearchImages 按关键词搜索图片
func (p *PexelsProvider) SearchImages(ctx context.Context, keyword string) ([]ImageCandidate, error) {
	if p.cfg.APIKey == "" {
		return nil, fmt.Errorf("未配置 Pexels API 密钥")
	}

	var result pexelsPhotoResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":    keyword,
			"per_page": strconv.Itoa(pexelsPerPage),
		}).
		SetResult(&result).
		Get("/v1/search")

	if err != nil {
		return nil, fmt.Errorf("图片搜索请求失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("图片搜索返回状态码 %d: %s", resp.StatusCode(), resp.String())
	}

	candidates := make([]ImageCandidate, 0, len(result.Photos))
	for _, photo := range result.Photos {
		url := photo.Src.Landscape
		if url == "" {
			url = photo.Src.Large2x
		}
		if url == "" {
			url = photo.Src.Original
		}
		candidates = append(candidates, ImageCandidate{
			ID:     strconv.FormatInt(photo.ID, 10),
			Width:  photo.Width,
			Height: photo.Height,
			URL:    url,
		})
	}

	p.logger.Debugf("图片搜索 %q 返回 %d 个候选", keyword, len(candidates))
	return candidates, nil
}

// SearchClips 按关键词搜索视频片段
func (p *PexelsProvider) SearchClips(ctx context.Context, keyword string) ([]ClipCandidate, error) {
	if p.cfg.APIKey == "" {
		return nil, fmt.Errorf("未配置 Pexels API 密钥")
	}

	var result pexelsVideoResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":    keyword,
			"per_page": strconv.Itoa(pexelsPerPage),
		}).
		SetResult(&result).
		Get("/videos/search")

	if err != nil {
		return nil, fmt.Errorf("视频搜索请求失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("视频搜索返回状态码 %d: %s", resp.StatusCode(), resp.String())
	}

	candidates := make([]ClipCandidate, 0, len(result.Videos))
	for _, video := range result.Videos {
		files := make([]ClipFile, 0, len(video.VideoFiles))
		for _, f := range video.VideoFiles {
			files = append(files, ClipFile{Width: f.Width, Height: f.Height, Link: f.Link})
		}
		candidates = append(candidates, ClipCandidate{
			ID:       strconv.FormatInt(video.ID, 10),
			Width:    video.Width,
			Height:   video.Height,
			Duration: video.Duration,
			Files:    files,
		})
	}

	p.logger.Debugf("视频搜索 %q 返回 %d 个候选", keyword, len(candidates))
	return candidates, nil
}
