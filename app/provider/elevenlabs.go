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

// ElevenLabsProvider 基于 ElevenLabs REST 接口的配音合成实现
type ElevenLabsProvider struct {
	cfg    config.ElevenLabsConfig
	client *resty.Client
	logger *logger.Logger
}

// NewElevenLabsProvider 创建配音合成客户端
func NewElevenLabsProvider(cfg config.ElevenLabsConfig, log *logger.Logger) *ElevenLabsProvider {
	client := resty.New()
	client.SetBaseURL("https://api.elevenlabs.io")
	client.SetTimeout(60 * time.Second)
	client.SetHeader("xi-api-key", cfg.APIKey)

	return &ElevenLabsProvider{
		cfg:    cfg,
		client: client,
		logger: log,
	}
}

// ttsRequest 合成请求体
type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize 将旁白文本合成为音频并写入 outPath
func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text, outPath string) error {
	if p.cfg.APIKey == "" {
		return fmt.Errorf("未配置 ElevenLabs API 密钥")
	}
	if text == "" {
		return fmt.Errorf("旁白文本为空")
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(ttsRequest{Text: text, ModelID: p.cfg.ModelID}).
		SetHeader("Accept", "audio/mpeg").
		Post(fmt.Sprintf("/v1/text-to-speech/%s", p.cfg.VoiceID))

	if err != nil {
		return fmt.Errorf("请求配音服务失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("配音服务返回状态码 %d: %s", resp.StatusCode(), resp.String())
	}

	audio := resp.Bytes()
	if len(audio) == 0 {
		return fmt.Errorf("配音服务返回空音频")
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("创建音频目录失败: %w", err)
	}
	if err := os.WriteFile(outPath, audio, 0644); err != nil {
		return fmt.Errorf("写入音频文件失败: %w", err)
	}

	p.logger.Debugf("配音合成完成: %s (%d 字节)", outPath, len(audio))
	return nil
}
