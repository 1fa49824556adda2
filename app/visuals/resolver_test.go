package visuals

import (
	"context"
	"os"
	"testing"
	"video-forge/app/logger"
	"video-forge/app/model"
	"video-forge/app/provider"

	"video-forge/app/config"
)

// fakeVisualProvider 可编程的素材搜索桩
type fakeVisualProvider struct {
	clips        map[string][]provider.ClipCandidate
	images       map[string][]provider.ImageCandidate
	clipQueries  []string
	imageQueries []string
}

func (f *fakeVisualProvider) SearchClips(_ context.Context, keyword string) ([]provider.ClipCandidate, error) {
	f.clipQueries = append(f.clipQueries, keyword)
	return f.clips[keyword], nil
}

func (f *fakeVisualProvider) SearchImages(_ context.Context, keyword string) ([]provider.ImageCandidate, error) {
	f.imageQueries = append(f.imageQueries, keyword)
	return f.images[keyword], nil
}

func testLogger() *logger.Logger {
	return logger.New(config.LogConfig{Level: "error", Format: "text", Output: "stdout"})
}

func newTestResolver(t *testing.T, p provider.VisualProvider) (*Resolver, *int) {
	t.Helper()
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewResolver(p, cache, testLogger())

	downloads := 0
	r.download = func(_ context.Context, _, savePath string) error {
		downloads++
		return os.WriteFile(savePath, []byte("fake-media"), 0644)
	}
	return r, &downloads
}

func TestResolver_KeywordFallback(t *testing.T) {
	fake := &fakeVisualProvider{
		clips: map[string][]provider.ClipCandidate{
			"rare-no-match": nil,
			"common-match": {
				{ID: "42", Files: []provider.ClipFile{{Width: 1920, Height: 1080, Link: "http://example.com/42.mp4"}}},
			},
		},
	}
	r, downloads := newTestResolver(t, fake)

	asset := r.ResolveClip(context.Background(), []string{"rare-no-match", "common-match"})
	if asset == nil {
		t.Fatal("第二个关键词有结果，应当解析成功")
	}
	if asset.ProviderID != "42" || asset.Keyword != "common-match" {
		t.Errorf("解析结果不符: %+v", asset)
	}
	if len(fake.clipQueries) != 2 {
		t.Errorf("应按顺序查询两个关键词，实际查询: %v", fake.clipQueries)
	}
	if *downloads != 1 {
		t.Errorf("应下载一次，实际 %d 次", *downloads)
	}
}

func TestResolver_AllKeywordsMiss(t *testing.T) {
	fake := &fakeVisualProvider{clips: map[string][]provider.ClipCandidate{}}
	r, downloads := newTestResolver(t, fake)

	asset := r.ResolveClip(context.Background(), []string{"a", "b", "c"})
	if asset != nil {
		t.Error("全部关键词落空应返回 nil")
	}
	if *downloads != 0 {
		t.Error("落空时不应有下载")
	}
}

func TestResolver_CacheHitSkipsDownload(t *testing.T) {
	fake := &fakeVisualProvider{
		clips: map[string][]provider.ClipCandidate{
			"ocean": {
				{ID: "7", Files: []provider.ClipFile{{Width: 1920, Height: 1080, Link: "http://example.com/7.mp4"}}},
			},
		},
	}
	r, downloads := newTestResolver(t, fake)

	first := r.ResolveClip(context.Background(), []string{"ocean"})
	second := r.ResolveClip(context.Background(), []string{"ocean"})

	if first == nil || second == nil {
		t.Fatal("两次解析都应成功")
	}
	if first.LocalPath != second.LocalPath {
		t.Error("同一素材应解析到同一缓存路径")
	}
	if *downloads != 1 {
		t.Errorf("第二次应命中缓存，仅下载一次，实际 %d 次", *downloads)
	}
}

func TestResolver_ImageRequiresLandscape(t *testing.T) {
	fake := &fakeVisualProvider{
		images: map[string][]provider.ImageCandidate{
			"sunset": {
				{ID: "1", Width: 1080, Height: 1920, URL: "http://example.com/portrait.jpg"},
				{ID: "2", Width: 1920, Height: 1080, URL: "http://example.com/landscape.jpg"},
			},
		},
	}
	r, _ := newTestResolver(t, fake)

	asset := r.ResolveImage(context.Background(), []string{"sunset"})
	if asset == nil {
		t.Fatal("应解析到横版图片")
	}
	if asset.ProviderID != "2" {
		t.Errorf("应跳过竖版候选选中横版，实际: %+v", asset)
	}
	if asset.Kind != model.AssetKindImage {
		t.Errorf("素材类型应为图片: %v", asset.Kind)
	}
}

func TestPickClip_PrefersResolutionThreshold(t *testing.T) {
	candidates := []provider.ClipCandidate{
		{ID: "low", Files: []provider.ClipFile{{Width: 640, Height: 360, Link: "l"}}},
		{ID: "hd", Files: []provider.ClipFile{{Width: 1280, Height: 720, Link: "h"}}},
	}

	c, f := pickClip(candidates)
	if c == nil || c.ID != "hd" {
		t.Fatalf("应选中第一个达标候选, 实际: %+v", c)
	}
	if f.Height != 720 {
		t.Errorf("应选中达标文件: %+v", f)
	}

	// 无达标候选时取分辨率最高者
	c, f = pickClip([]provider.ClipCandidate{
		{ID: "a", Files: []provider.ClipFile{{Width: 640, Height: 360, Link: "a"}}},
		{ID: "b", Files: []provider.ClipFile{{Width: 960, Height: 540, Link: "b"}}},
	})
	if c == nil || c.ID != "b" || f.Height != 540 {
		t.Errorf("应降级到最高分辨率候选, 实际: %+v %+v", c, f)
	}
}
