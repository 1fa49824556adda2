package taskstore

import (
	"time"
	"video-forge/app/model"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultTTL 任务记录保留时长，到期后无论成败都从存储中消失
const DefaultTTL = time.Hour

// Store 任务状态存储。
// 记录只由流水线驱动器写入，处理器只读；失效由存储自身按 TTL 处理。
type Store interface {
	Put(record model.TaskRecord)
	Get(taskID string) (model.TaskRecord, bool)
}

// MemoryStore 基于 go-cache 的内存实现
type MemoryStore struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewMemoryStore 创建内存任务存储
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		cache: gocache.New(ttl, 10*time.Minute),
		ttl:   ttl,
	}
}

// Put 写入任务记录并重置过期时间
func (s *MemoryStore) Put(record model.TaskRecord) {
	s.cache.Set(record.TaskID, record, s.ttl)
}

// Get 读取任务记录
func (s *MemoryStore) Get(taskID string) (model.TaskRecord, bool) {
	v, ok := s.cache.Get(taskID)
	if !ok {
		return model.TaskRecord{}, false
	}
	return v.(model.TaskRecord), true
}
