package config

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Render    RenderConfig    `mapstructure:"render"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Watcher   WatcherConfig   `mapstructure:"watcher"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`      // JWT 密钥
	ExpireTime int    `mapstructure:"expire_time"` // 过期时间（小时）
	Issuer     string `mapstructure:"issuer"`      // 签发者
}

// ProvidersConfig 外部服务提供方配置
type ProvidersConfig struct {
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs"`
	Pexels     PexelsConfig     `mapstructure:"pexels"`
	Supabase   SupabaseConfig   `mapstructure:"supabase"`
}

type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type ElevenLabsConfig struct {
	APIKey  string `mapstructure:"api_key"`
	VoiceID string `mapstructure:"voice_id"`
	ModelID string `mapstructure:"model_id"`
}

type PexelsConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type SupabaseConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
	Bucket string `mapstructure:"bucket"`
}

// RenderConfig 视频合成参数
type RenderConfig struct {
	Width             int    `mapstructure:"width"`
	Height            int    `mapstructure:"height"`
	FPS               int    `mapstructure:"fps"`
	Preset            string `mapstructure:"preset"`
	CRF               int    `mapstructure:"crf"`
	EncodeConcurrency int    `mapstructure:"encode_concurrency"` // 并发编码上限，限制峰值内存
}

// StorageConfig 本地目录配置
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`    // 数据根目录
	VisualsDir string `mapstructure:"visuals_dir"` // 下载素材缓存目录
	OutputDir  string `mapstructure:"output_dir"`  // 成品视频输出目录
	PromptDir  string `mapstructure:"prompt_dir"`  // 提示词投递目录
	FontFile   string `mapstructure:"font_file"`   // 封面文字字体，缺省使用内置字体
}

// WatcherConfig 提示词目录监控配置
type WatcherConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SweepConfig 定时清理配置
type SweepConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Schedule     string `mapstructure:"schedule"`       // cron 表达式
	AssetMaxAge  int    `mapstructure:"asset_max_age"`  // 素材缓存保留天数
	RecordMaxAge int    `mapstructure:"record_max_age"` // 渲染归档保留天数
}

func Load() *Config {
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("无法解码配置: %v", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		log.Fatalf("配置验证失败: %v", err)
	}

	return &config
}

// setDefaults 设置默认配置
func setDefaults() {
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.username", "admin")

	// 日志默认配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	// JWT默认配置
	viper.SetDefault("jwt.secret", "your-secret-key-change-in-production")
	viper.SetDefault("jwt.expire_time", 24) // 24小时
	viper.SetDefault("jwt.issuer", "video-forge")

	// 外部服务默认配置
	viper.SetDefault("providers.gemini.model", "gemini-2.0-flash")
	viper.SetDefault("providers.gemini.base_url", "https://generativelanguage.googleapis.com")
	viper.SetDefault("providers.elevenlabs.voice_id", "21m00Tcm4TlvDq8ikWAM")
	viper.SetDefault("providers.elevenlabs.model_id", "eleven_multilingual_v2")
	viper.SetDefault("providers.supabase.bucket", "videos")

	// 合成默认配置
	viper.SetDefault("render.width", 1920)
	viper.SetDefault("render.height", 1080)
	viper.SetDefault("render.fps", 30)
	viper.SetDefault("render.preset", "fast")
	viper.SetDefault("render.crf", 23)
	viper.SetDefault("render.encode_concurrency", 2)

	// 目录默认配置
	viper.SetDefault("storage.data_dir", "data")
	viper.SetDefault("storage.visuals_dir", "data/visuals")
	viper.SetDefault("storage.output_dir", "data/outputs")
	viper.SetDefault("storage.prompt_dir", "data/prompts")

	// 提示词目录监控默认关闭
	viper.SetDefault("watcher.enabled", false)

	// 定时清理默认配置
	viper.SetDefault("sweep.enabled", true)
	viper.SetDefault("sweep.schedule", "0 3 * * *")
	viper.SetDefault("sweep.asset_max_age", 3)
	viper.SetDefault("sweep.record_max_age", 30)
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("服务器端口未设置")
	}
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT密钥未设置")
	}
	if config.Render.Width <= 0 || config.Render.Height <= 0 {
		return fmt.Errorf("输出分辨率无效: %dx%d", config.Render.Width, config.Render.Height)
	}
	if config.Render.FPS <= 0 {
		return fmt.Errorf("帧率无效: %d", config.Render.FPS)
	}
	if config.Render.EncodeConcurrency <= 0 {
		config.Render.EncodeConcurrency = 1
	}
	return nil
}

// DatabasePath 数据库文件路径
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataDir, "video-forge.db")
}
