package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"video-forge/app/config"
	"video-forge/app/logger"
	"video-forge/app/model"

	"resty.dev/v3"
)

// 脚本生成的提示词模板。要求模型输出固定结构的 JSON，
// 并且所有场景旁白拼接后等于完整旁白。
const scriptPromptTemplate = `你是一个短视频脚本撰写助手。根据下面的主题撰写一段 60 到 90 秒的视频旁白脚本，并按叙事节奏切分为 4 到 8 个场景。

主题: %s

严格输出如下结构的 JSON，不要输出任何其他内容:
{
  "title": "视频标题",
  "narration": "完整旁白文本",
  "scenes": [
    {
      "narration_part": "该场景的旁白片段",
      "visual_keywords": ["最具体的英文搜索词", "次选英文搜索词", "宽泛英文搜索词"]
    }
  ],
  "thumbnail_keywords": ["封面图英文搜索词"]
}

要求: 所有 narration_part 按顺序拼接后必须与 narration 完全一致，不能有缺漏或重复。`

// GeminiProvider 基于 Gemini REST 接口的脚本生成实现
type GeminiProvider struct {
	cfg    config.GeminiConfig
	client *resty.Client
	logger *logger.Logger
}

// NewGeminiProvider 创建 Gemini 脚本生成客户端
func NewGeminiProvider(cfg config.GeminiConfig, log *logger.Logger) *GeminiProvider {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(30 * time.Second)

	return &GeminiProvider{
		cfg:    cfg,
		client: client,
		logger: log,
	}
}

// geminiRequest 生成请求体
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
	Config   *geminiGenCfg   `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenCfg struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

// geminiResponse 生成响应体（只取需要的字段）
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// scriptJSON 模型输出的脚本结构
type scriptJSON struct {
	Title     string `json:"title"`
	Narration string `json:"narration"`
	Scenes    []struct {
		NarrationPart  string   `json:"narration_part"`
		VisualKeywords []string `json:"visual_keywords"`
	} `json:"scenes"`
	ThumbnailKeywords []string `json:"thumbnail_keywords"`
}

// Generate 根据提示词生成脚本
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (*model.Script, error) {
	if p.cfg.APIKey == "" {
		return nil, fmt.Errorf("未配置 Gemini API 密钥")
	}

	body := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: fmt.Sprintf(scriptPromptTemplate, prompt)}}},
		},
		Config: &geminiGenCfg{ResponseMimeType: "application/json"},
	}

	var result geminiResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("key", p.cfg.APIKey).
		SetBody(body).
		SetResult(&result).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", p.cfg.Model))

	if err != nil {
		return nil, fmt.Errorf("请求脚本生成服务失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("脚本生成服务返回状态码 %d: %s", resp.StatusCode(), resp.String())
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("脚本生成服务返回空结果")
	}

	raw := strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text)
	// 个别模型会在 JSON 外包一层代码块标记
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var parsed scriptJSON
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("解析脚本 JSON 失败: %w", err)
	}
	if parsed.Title == "" || len(parsed.Scenes) == 0 {
		return nil, fmt.Errorf("脚本内容不完整: 标题或场景为空")
	}

	scenes := make([]model.Scene, 0, len(parsed.Scenes))
	for _, s := range parsed.Scenes {
		scenes = append(scenes, model.Scene{
			NarrationPart:  s.NarrationPart,
			VisualKeywords: s.VisualKeywords,
		})
	}
	sceneList := model.NewSceneList(scenes)

	// 模型偶尔不遵守拼接约定，此时以场景拼接结果为准
	narration := parsed.Narration
	if joined := sceneList.Narration(); joined != narration {
		p.logger.Warnf("场景旁白拼接与完整旁白不一致，以场景拼接为准")
		narration = joined
	}

	return &model.Script{
		Title:             parsed.Title,
		Narration:         narration,
		Scenes:            sceneList,
		ThumbnailKeywords: parsed.ThumbnailKeywords,
	}, nil
}
