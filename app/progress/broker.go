package progress

import (
	"sync"
	"video-forge/app/logger"
	"video-forge/app/model"
)

// 订阅通道缓冲大小。缓冲满说明订阅方消费过慢，直接丢弃本次更新，
// 投递语义为至少一次、尽力而为，发布端永不阻塞。
const subscriberBuffer = 8

// Broker 任务进度的发布/订阅中枢。
// 只负责扇出，最新状态由任务存储保存；订阅方重连时应先读存储补发当前状态。
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan model.TaskRecord]struct{}
	log         *logger.Logger
}

// NewBroker 创建进度中枢
func NewBroker(log *logger.Logger) *Broker {
	return &Broker{
		subscribers: make(map[string]map[chan model.TaskRecord]struct{}),
		log:         log,
	}
}

// Subscribe 订阅指定任务的进度更新，返回只收通道。
// 订阅方必须在不再监听时调用 Unsubscribe，否则通道会泄漏。
func (b *Broker) Subscribe(taskID string) chan model.TaskRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[taskID]; !ok {
		b.subscribers[taskID] = make(map[chan model.TaskRecord]struct{})
	}

	ch := make(chan model.TaskRecord, subscriberBuffer)
	b.subscribers[taskID][ch] = struct{}{}
	return ch
}

// Unsubscribe 取消订阅并关闭通道
func (b *Broker) Unsubscribe(taskID string, ch chan model.TaskRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if chans, ok := b.subscribers[taskID]; ok {
		if _, exists := chans[ch]; exists {
			delete(chans, ch)
			close(ch)
		}
		if len(chans) == 0 {
			delete(b.subscribers, taskID)
		}
	}
}

// Publish 向任务的所有订阅者广播一条记录。
// 订阅通道已满时跳过该订阅者，发布方不等待。
func (b *Broker) Publish(record model.TaskRecord) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	chans, ok := b.subscribers[record.TaskID]
	if !ok {
		return
	}

	for ch := range chans {
		select {
		case ch <- record:
		default:
			if b.log != nil {
				b.log.Warnf("订阅者消费过慢，丢弃任务 %s 的一条进度更新", record.TaskID)
			}
		}
	}
}

// SubscriberCount 当前任务的订阅者数量（监控与测试用）
func (b *Broker) SubscriberCount(taskID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[taskID])
}
