package engine

import (
	"fmt"
	"unicode/utf8"
	"video-forge/app/model"
)

// DurationTolerance 时长分配允许的浮点误差（秒）
const DurationTolerance = 1e-6

// ScenePlan 单个场景的时长分配
type ScenePlan struct {
	Index      int
	Duration   float64 // 场景占用的墙钟时长（秒）
	AssetCount int     // 场景拥有的素材数量，0 表示该场景不贡献画面
	PerAsset   float64 // 场景内每个素材的展示时长
}

// RenderPlan 一次合成的临时时长计划，从不持久化，每次渲染重新计算
type RenderPlan struct {
	Total  float64
	Scenes []ScenePlan
}

// BuildPlan 根据旁白音频总时长为每个场景分配展示时长。
// 时长与各场景旁白的字符数成正比，所有场景时长之和等于音频总时长；
// 全部旁白为空时退化为平均分配。
// 没有素材的场景保留自己的时长但不产生画面——旁白会在上一个画面下继续播放，
// 留下一个可接受的画面空档，而不是把时间重新分给邻近场景造成累计漂移。
func BuildPlan(totalDuration float64, scenes model.SceneList, resolved []model.SceneAssets) (*RenderPlan, error) {
	if totalDuration <= 0 {
		return nil, fmt.Errorf("音频总时长无效: %f", totalDuration)
	}
	if scenes.Len() == 0 {
		return nil, fmt.Errorf("场景列表为空")
	}
	if len(resolved) != scenes.Len() {
		return nil, fmt.Errorf("素材解析结果数量 %d 与场景数量 %d 不一致", len(resolved), scenes.Len())
	}

	// 统计每个场景旁白的字符数
	lengths := make([]int, scenes.Len())
	totalLen := 0
	for i := 0; i < scenes.Len(); i++ {
		lengths[i] = utf8.RuneCountInString(scenes.At(i).NarrationPart)
		totalLen += lengths[i]
	}

	plan := &RenderPlan{
		Total:  totalDuration,
		Scenes: make([]ScenePlan, scenes.Len()),
	}

	allocated := 0.0
	for i := range plan.Scenes {
		var d float64
		if i == scenes.Len()-1 {
			// 最后一个场景吸收浮点累计误差，保证总和精确
			d = totalDuration - allocated
		} else if totalLen == 0 {
			d = totalDuration / float64(scenes.Len())
		} else {
			d = totalDuration * float64(lengths[i]) / float64(totalLen)
		}
		allocated += d

		sp := ScenePlan{
			Index:      i,
			Duration:   d,
			AssetCount: len(resolved[i].Assets),
		}
		if sp.AssetCount > 0 {
			sp.PerAsset = d / float64(sp.AssetCount)
		}
		plan.Scenes[i] = sp
	}

	return plan, nil
}

// HasVisuals 计划中是否存在至少一个有素材的场景
func (p *RenderPlan) HasVisuals() bool {
	for _, s := range p.Scenes {
		if s.AssetCount > 0 {
			return true
		}
	}
	return false
}
