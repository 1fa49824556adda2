package visuals

import (
	"os"
	"path/filepath"
	"time"
	"video-forge/app/logger"
)

// CleanupUnused 删除素材目录中不在本次渲染使用集合内的缓存文件。
// 这是以任务为粒度的粗放回收：假设同一时刻只有一个任务占用磁盘，
// 不能与另一个仍在渲染的任务并发执行（并发任务可能仍引用"未使用"的文件）。
// 删除失败只记录日志，不影响任务结果。
func CleanupUnused(dir string, used map[string]struct{}, log *logger.Logger) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warnf("读取素材目录失败: %v", err)
		return 0
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if _, ok := used[path]; ok {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Warnf("删除未使用素材失败 %s: %v", path, err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		log.Infof("清理了 %d 个未使用的素材文件", deleted)
	}
	return deleted
}

// CleanupStale 删除素材目录中超过保留期的缓存文件（定时清理用）。
// 按修改时间做年龄判断，避免误删正在下载或刚被复用的文件。
func CleanupStale(dir string, maxAge time.Duration, log *logger.Logger) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warnf("读取素材目录失败: %v", err)
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Warnf("删除过期素材失败 %s: %v", path, err)
			continue
		}
		deleted++
	}

	return deleted
}
