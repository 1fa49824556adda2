package visuals

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCleanupUnused(t *testing.T) {
	dir := t.TempDir()

	write := func(name string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	a := write("ocean_1.mp4")
	b := write("city_2.mp4")
	c := write("old_unrelated.mp4")

	used := map[string]struct{}{
		a: {},
		b: {},
	}

	deleted := CleanupUnused(dir, used, testLogger())
	if deleted != 1 {
		t.Errorf("应删除 1 个文件，实际 %d", deleted)
	}

	for _, path := range []string{a, b} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("使用中的文件不应被删除: %s", path)
		}
	}
	if _, err := os.Stat(c); !os.IsNotExist(err) {
		t.Errorf("未使用的文件应被删除: %s", c)
	}
}

func TestCleanupStale(t *testing.T) {
	dir := t.TempDir()

	oldFile := filepath.Join(dir, "old.mp4")
	newFile := filepath.Join(dir, "new.mp4")
	for _, p := range []string{oldFile, newFile} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	// 把 old.mp4 的修改时间拨回三天前
	past := time.Now().Add(-72 * time.Hour)
	if err := os.Chtimes(oldFile, past, past); err != nil {
		t.Fatal(err)
	}

	deleted := CleanupStale(dir, 24*time.Hour, testLogger())
	if deleted != 1 {
		t.Errorf("应删除 1 个过期文件，实际 %d", deleted)
	}
	if _, err := os.Stat(newFile); err != nil {
		t.Error("未过期的文件不应被删除")
	}
}
