package service

import "fmt"

// Stage 流水线阶段标识
type Stage string

const (
	StageScript   Stage = "script"
	StageVoice    Stage = "voice"
	StageVisuals  Stage = "visuals"
	StageAssembly Stage = "assembly"
	StagePublish  Stage = "publish"
)

// stageLabels 阶段的用户可读名称
var stageLabels = map[Stage]string{
	StageScript:   "脚本生成",
	StageVoice:    "语音合成",
	StageVisuals:  "素材解析",
	StageAssembly: "视频合成",
	StagePublish:  "发布上传",
}

// StageError 带阶段标识的流水线错误。
// 按错误发生的阶段分类处理，不依赖错误文案判断。
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s失败: %v", stageLabels[e.Stage], e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Reason 面向用户的简短失败原因，不暴露内部细节
func (e *StageError) Reason() string {
	return stageLabels[e.Stage] + "失败"
}

func stageErr(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
