package visuals

import (
	"os"
	"path/filepath"
	"strings"
)

// 缓存键中关键词前缀的最大长度
const keywordPrefixLimit = 24

// Cache 内容寻址的本地素材缓存。
// 缓存键由净化后的关键词前缀和提供方素材编号组成，同一素材跨任务复用，
// 下载前先检查本地文件是否存在。
type Cache struct {
	dir string
}

// NewCache 创建素材缓存，确保目录存在
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir 缓存目录
func (c *Cache) Dir() string {
	return c.dir
}

// Path 计算素材的缓存路径
func (c *Cache) Path(keyword, providerID, ext string) string {
	name := SanitizeKeyword(keyword) + "_" + providerID + ext
	return filepath.Join(c.dir, name)
}

// Has 判断缓存文件是否已存在（命中则跳过下载）
func (c *Cache) Has(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

// SanitizeKeyword 将关键词净化为可安全用于文件名的前缀：
// 小写、字母数字保留、其余折叠为下划线、截断到固定长度。
func SanitizeKeyword(keyword string) string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(keyword)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				sb.WriteByte('_')
				lastUnderscore = true
			}
		}
		if sb.Len() >= keywordPrefixLimit {
			break
		}
	}
	s := strings.Trim(sb.String(), "_")
	if s == "" {
		s = "asset"
	}
	return s
}
