package promptwatcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
	"video-forge/app/config"
	"video-forge/app/logger"
)

type fakeSubmitter struct {
	mu      sync.Mutex
	prompts []string
}

func (f *fakeSubmitter) Submit(prompt string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return "task-1"
}

func (f *fakeSubmitter) submitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func testLogger() *logger.Logger {
	return logger.New(config.LogConfig{Level: "error", Output: "stdout"})
}

func TestWatcher_ProcessesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "prompt.txt"), []byte("介绍深海生物"), 0644); err != nil {
		t.Fatal(err)
	}
	// 非 .txt 文件不应被提交
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("忽略我"), 0644); err != nil {
		t.Fatal(err)
	}

	sub := &fakeSubmitter{}
	w, err := New(dir, sub, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(sub.submitted()) > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	prompts := sub.submitted()
	if len(prompts) != 1 || prompts[0] != "介绍深海生物" {
		t.Fatalf("应提交一个提示词任务，实际: %v", prompts)
	}

	// 处理后文件应被重命名，重启后不会重复提交
	if _, err := os.Stat(filepath.Join(dir, "prompt.txt" + processedSuffix)); err != nil {
		t.Error("已处理的提示词文件应带处理标记")
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.md")); err != nil {
		t.Error("非提示词文件不应被改动")
	}
}
