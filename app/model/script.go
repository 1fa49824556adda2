package model

import "strings"

// AssetKind 素材类型
type AssetKind string

const (
	AssetKindClip  AssetKind = "clip"  // 视频片段
	AssetKindImage AssetKind = "image" // 静态图片
)

// Asset 已下载的素材文件
type Asset struct {
	ProviderID string    `json:"provider_id"` // 素材提供方的唯一标识，与关键词一起作为缓存键
	Kind       AssetKind `json:"kind"`
	Keyword    string    `json:"keyword"`    // 命中的搜索关键词
	LocalPath  string    `json:"local_path"` // 本地文件路径
}

// Scene 脚本的一个叙事片段
type Scene struct {
	NarrationPart  string   `json:"narration_part"`  // 分配给该场景的旁白文本
	VisualKeywords []string `json:"visual_keywords"` // 搜索关键词，按具体程度降序
}

// SceneList 有序且不可变的场景序列。
// 场景顺序在脚本生成时确定，后续的时长分配与剪辑合成必须保持该顺序，
// 否则旁白与画面会错位。
type SceneList struct {
	scenes []Scene
}

// NewSceneList 创建场景序列，复制输入以防外部修改
func NewSceneList(scenes []Scene) SceneList {
	copied := make([]Scene, len(scenes))
	copy(copied, scenes)
	return SceneList{scenes: copied}
}

// Len 场景数量
func (l SceneList) Len() int {
	return len(l.scenes)
}

// At 按序号取场景
func (l SceneList) At(i int) Scene {
	return l.scenes[i]
}

// Narration 按顺序拼接所有场景的旁白。
// 脚本提供方的契约要求拼接结果等于完整旁白，无缝隙无重叠。
func (l SceneList) Narration() string {
	var sb strings.Builder
	for _, s := range l.scenes {
		sb.WriteString(s.NarrationPart)
	}
	return sb.String()
}

// Script 脚本生成结果
type Script struct {
	Title             string
	Narration         string
	Scenes            SceneList
	ThumbnailKeywords []string
}

// SceneAssets 单个场景解析到的素材，序号与 SceneList 对应。
// Assets 为空表示该场景所有关键词都未命中，属于正常降级结果。
type SceneAssets struct {
	Index  int
	Assets []Asset
}
