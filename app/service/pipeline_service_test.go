package service

import (
	"context"
	"fmt"
	"testing"
	"time"
	"video-forge/app/config"
	"video-forge/app/engine"
	"video-forge/app/logger"
	"video-forge/app/model"
	"video-forge/app/progress"
	"video-forge/app/provider"
	"video-forge/app/taskstore"
	"video-forge/app/visuals"
)

type fakeScriptProvider struct {
	script *model.Script
	err    error
}

func (f *fakeScriptProvider) Generate(_ context.Context, _ string) (*model.Script, error) {
	return f.script, f.err
}

type fakeVoiceProvider struct {
	err   error
	calls int
}

func (f *fakeVoiceProvider) Synthesize(_ context.Context, _, _ string) error {
	f.calls++
	return f.err
}

type fakeStorageProvider struct {
	url string
	err error
}

func (f *fakeStorageProvider) Publish(_ context.Context, localPath, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.url == "" {
		return localPath, nil
	}
	return f.url, nil
}

type emptyVisualProvider struct{}

func (emptyVisualProvider) SearchImages(_ context.Context, _ string) ([]provider.ImageCandidate, error) {
	return nil, nil
}

func (emptyVisualProvider) SearchClips(_ context.Context, _ string) ([]provider.ClipCandidate, error) {
	return nil, nil
}

type fakeCompositor struct {
	err   error
	calls int
}

func (f *fakeCompositor) Assemble(_ context.Context, _ string, _ []model.SceneAssets, _ *engine.RenderPlan, outputPath string) (*engine.AssembleResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &engine.AssembleResult{OutputPath: outputPath, UsedAssets: map[string]struct{}{}}, nil
}

type fakeThumbnailer struct {
	err error
}

func (f *fakeThumbnailer) Generate(_ context.Context, _ string, _ []string, _, _ string) (string, error) {
	return "", f.err
}

func testScript() *model.Script {
	return &model.Script{
		Title:     "深海生物",
		Narration: "前半段旁白。后半段旁白。",
		Scenes: model.NewSceneList([]model.Scene{
			{NarrationPart: "前半段旁白。", VisualKeywords: []string{"deep sea"}},
			{NarrationPart: "后半段旁白。", VisualKeywords: []string{"ocean creature"}},
		}),
		ThumbnailKeywords: []string{"deep sea"},
	}
}

type pipelineFixture struct {
	svc     *PipelineService
	store   taskstore.Store
	voice   *fakeVoiceProvider
	comp    *fakeCompositor
	storage *fakeStorageProvider
}

func newPipelineFixture(t *testing.T, script *fakeScriptProvider) *pipelineFixture {
	t.Helper()

	log := logger.New(config.LogConfig{Level: "error", Output: "stdout"})
	cfg := &config.Config{
		Storage: config.StorageConfig{OutputDir: t.TempDir()},
	}

	cache, err := visuals.NewCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	resolver := visuals.NewResolver(emptyVisualProvider{}, cache, log)

	f := &pipelineFixture{
		store:   taskstore.NewMemoryStore(taskstore.DefaultTTL),
		voice:   &fakeVoiceProvider{},
		comp:    &fakeCompositor{},
		storage: &fakeStorageProvider{url: "https://cdn.example.com/video.mp4"},
	}
	f.svc = NewPipelineService(cfg, log, f.store, progress.NewBroker(log), script, f.voice, f.storage, resolver, f.comp, &fakeThumbnailer{})
	f.svc.probeDuration = func(_ context.Context, _ string) (float64, error) {
		return 10.0, nil
	}
	return f
}

func waitTerminal(t *testing.T, store taskstore.Store, taskID string) model.TaskRecord {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if rec, ok := store.Get(taskID); ok && rec.Status.IsTerminal() {
			return rec
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("任务未在限期内终结")
	return model.TaskRecord{}
}

func TestPipeline_Completes(t *testing.T) {
	f := newPipelineFixture(t, &fakeScriptProvider{script: testScript()})

	taskID := f.svc.Submit("介绍深海生物")
	rec := waitTerminal(t, f.store, taskID)

	if rec.Status != model.TaskStatusCompleted {
		t.Fatalf("任务应完成，实际: %+v", rec)
	}
	if rec.Progress != 100 {
		t.Errorf("完成任务进度应为 100，实际 %d", rec.Progress)
	}
	if rec.Data.Title != "深海生物" {
		t.Errorf("标题应写入结果: %+v", rec.Data)
	}
	if rec.Data.VideoURL != "https://cdn.example.com/video.mp4" {
		t.Errorf("视频地址应为上传后的地址: %s", rec.Data.VideoURL)
	}
	if f.comp.calls != 1 {
		t.Errorf("合成应执行一次，实际 %d", f.comp.calls)
	}
}

func TestPipeline_VoiceFailureIsFatal(t *testing.T) {
	f := newPipelineFixture(t, &fakeScriptProvider{script: testScript()})
	f.voice.err = fmt.Errorf("上游服务 500")

	taskID := f.svc.Submit("介绍深海生物")
	rec := waitTerminal(t, f.store, taskID)

	if rec.Status != model.TaskStatusFailed {
		t.Fatalf("语音失败应终止任务: %+v", rec)
	}
	if rec.Progress != 0 {
		t.Errorf("失败任务进度应归零，实际 %d", rec.Progress)
	}
	if rec.Data.Error != "语音合成失败" {
		t.Errorf("失败原因不符: %q", rec.Data.Error)
	}
	if f.comp.calls != 0 {
		t.Error("语音失败后不应继续合成")
	}
}

func TestPipeline_ScriptFailureIsFatal(t *testing.T) {
	f := newPipelineFixture(t, &fakeScriptProvider{err: fmt.Errorf("配额耗尽")})

	taskID := f.svc.Submit("介绍深海生物")
	rec := waitTerminal(t, f.store, taskID)

	if rec.Status != model.TaskStatusFailed {
		t.Fatalf("脚本失败应终止任务: %+v", rec)
	}
	if f.voice.calls != 0 {
		t.Error("脚本失败后不应合成语音")
	}
}

func TestPipeline_UploadFailureDegrades(t *testing.T) {
	f := newPipelineFixture(t, &fakeScriptProvider{script: testScript()})
	f.storage.err = fmt.Errorf("存储不可达")

	taskID := f.svc.Submit("介绍深海生物")
	rec := waitTerminal(t, f.store, taskID)

	if rec.Status != model.TaskStatusCompleted {
		t.Fatalf("上传失败应降级而非终止: %+v", rec)
	}
	if rec.Data.VideoURL == "" {
		t.Error("降级后视频地址应为本地路径")
	}
}

func TestPipeline_AssemblyFailureIsFatal(t *testing.T) {
	f := newPipelineFixture(t, &fakeScriptProvider{script: testScript()})
	f.comp.err = fmt.Errorf("编码器退出码 1")

	taskID := f.svc.Submit("介绍深海生物")
	rec := waitTerminal(t, f.store, taskID)

	if rec.Status != model.TaskStatusFailed {
		t.Fatalf("合成失败应终止任务: %+v", rec)
	}
	if rec.Data.Error != "视频合成失败" {
		t.Errorf("失败原因不符: %q", rec.Data.Error)
	}
}

func TestPipeline_TerminalStateIsReadOnly(t *testing.T) {
	f := newPipelineFixture(t, &fakeScriptProvider{script: testScript()})

	done := model.TaskRecord{TaskID: "t1", Status: model.TaskStatusFailed, Message: "脚本生成失败"}
	f.svc.publish(done)

	// 终态之后的任何更新都必须被丢弃
	f.svc.publish(model.TaskRecord{TaskID: "t1", Status: model.TaskStatusProcessing, Progress: 50})

	rec, ok := f.store.Get("t1")
	if !ok {
		t.Fatal("任务记录应存在")
	}
	if rec.Status != model.TaskStatusFailed || rec.Progress != 0 {
		t.Errorf("终态记录被改写: %+v", rec)
	}
}
