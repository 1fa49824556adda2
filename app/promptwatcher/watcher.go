package promptwatcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"video-forge/app/logger"
	"video-forge/app/utils"

	"github.com/fsnotify/fsnotify"
)

// processedSuffix 已提交的提示词文件重命名后缀，避免重启后重复提交
const processedSuffix = ".done"

// Submitter 任务提交接口
type Submitter interface {
	Submit(prompt string) string
}

// Watcher 提示词投递目录监控器。
// 向目录投递 .txt 文件即提交一个生成任务，文件内容为提示词。
type Watcher struct {
	dir      string
	pipeline Submitter
	logger   *logger.Logger
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	wg       sync.WaitGroup
	watching bool
	mu       sync.Mutex
}

// New 创建提示词监控器
func New(dir string, pipeline Submitter, log *logger.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %w", err)
	}

	return &Watcher{
		dir:      dir,
		pipeline: pipeline,
		logger:   log,
		watcher:  fsw,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start 启动监控
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watching {
		return fmt.Errorf("提示词监控器已经在运行")
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("创建提示词目录失败: %w", err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("添加监控目录失败: %w", err)
	}

	w.watching = true
	w.wg.Add(1)
	go w.watchLoop()

	w.logger.Infof("提示词监控器已启动，投递目录: %s", w.dir)

	// 启动后补扫一次，处理停机期间投递的文件
	go w.processExisting()

	return nil
}

// Stop 停止监控
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.watching {
		return nil
	}

	close(w.stopCh)
	w.watcher.Close()
	w.wg.Wait()
	w.watching = false

	w.logger.Info("提示词监控器已停止")
	return nil
}

// watchLoop 监控事件循环
func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				w.handleFile(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("提示词监控器错误: %v", err)

		case <-w.stopCh:
			return
		}
	}
}

// processExisting 补扫目录中未处理的提示词文件
func (w *Watcher) processExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warnf("扫描提示词目录失败: %v", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.handleFile(filepath.Join(w.dir, entry.Name()))
	}
}

// handleFile 处理单个提示词文件
func (w *Watcher) handleFile(path string) {
	if !strings.EqualFold(filepath.Ext(path), ".txt") {
		return
	}

	if err := w.waitForFileReady(path); err != nil {
		w.logger.Warnf("等待提示词文件就绪失败: %s, 错误: %v", path, err)
		return
	}

	prompt, err := utils.ReadTextFile(path)
	if err != nil {
		w.logger.Errorf("读取提示词文件失败: %s, 错误: %v", path, err)
		return
	}
	if prompt == "" {
		w.logger.Warnf("提示词文件为空，跳过: %s", path)
		w.markProcessed(path)
		return
	}

	taskID := w.pipeline.Submit(prompt)
	w.logger.Infof("提示词文件已提交任务: %s -> %s", filepath.Base(path), taskID)
	w.markProcessed(path)
}

// markProcessed 重命名文件标记已处理
func (w *Watcher) markProcessed(path string) {
	if err := os.Rename(path, path+processedSuffix); err != nil {
		w.logger.Warnf("标记提示词文件已处理失败: %v", err)
	}
}

// waitForFileReady 等待文件写入完成（大小连续两次检查不变）
func (w *Watcher) waitForFileReady(path string) error {
	maxWait := 10 * time.Second
	checkInterval := 200 * time.Millisecond
	timeout := time.After(maxWait)

	var lastSize int64 = -1
	for {
		select {
		case <-timeout:
			return fmt.Errorf("等待文件就绪超时: %s", path)
		case <-time.After(checkInterval):
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("获取文件信息失败: %w", err)
			}
			if info.Size() == lastSize && info.Size() > 0 {
				return nil
			}
			lastSize = info.Size()
		}
	}
}
