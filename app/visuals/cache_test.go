package visuals

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeKeyword(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ocean waves", "ocean_waves"},
		{"  City Night!  ", "city_night"},
		{"日落 beach", "beach"},
		{"a/b\\c:d", "a_b_c_d"},
		{"", "asset"},
		{"!!!", "asset"},
		{"averyveryverylongkeywordthatexceedsthelimit", "averyveryverylongkeyword"},
	}

	for _, test := range tests {
		got := SanitizeKeyword(test.input)
		if got != test.expected {
			t.Errorf("SanitizeKeyword(%q) = %q, 期望 %q", test.input, got, test.expected)
		}
		if len(got) > keywordPrefixLimit {
			t.Errorf("SanitizeKeyword(%q) 超过长度限制: %q", test.input, got)
		}
	}
}

func TestCache_PathAndHas(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(dir)
	if err != nil {
		t.Fatalf("创建缓存失败: %v", err)
	}

	path := cache.Path("ocean waves", "12345", ".mp4")
	if filepath.Base(path) != "ocean_waves_12345.mp4" {
		t.Errorf("缓存路径不符合预期: %s", path)
	}

	if cache.Has(path) {
		t.Error("文件不存在时不应命中")
	}

	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	if !cache.Has(path) {
		t.Error("文件存在时应命中")
	}

	// 空文件视为未命中，避免半截下载被复用
	empty := cache.Path("empty", "1", ".mp4")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if cache.Has(empty) {
		t.Error("空文件不应命中")
	}
}
