package taskstore

import (
	"testing"
	"time"
	"video-forge/app/model"
)

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore(time.Minute)

	if _, ok := store.Get("missing"); ok {
		t.Fatal("不存在的任务不应返回记录")
	}

	record := model.TaskRecord{
		TaskID:   "task-1",
		Status:   model.TaskStatusProcessing,
		Progress: 40,
		Message:  "正在获取视觉素材...",
	}
	store.Put(record)

	got, ok := store.Get("task-1")
	if !ok {
		t.Fatal("写入后应能读到记录")
	}
	if got.Status != model.TaskStatusProcessing || got.Progress != 40 {
		t.Errorf("读到的记录不一致: %+v", got)
	}
}

func TestMemoryStore_Overwrite(t *testing.T) {
	store := NewMemoryStore(time.Minute)

	store.Put(model.TaskRecord{TaskID: "task-1", Status: model.TaskStatusPending, Progress: 0})
	store.Put(model.TaskRecord{TaskID: "task-1", Status: model.TaskStatusCompleted, Progress: 100})

	got, ok := store.Get("task-1")
	if !ok {
		t.Fatal("记录应存在")
	}
	if got.Status != model.TaskStatusCompleted || got.Progress != 100 {
		t.Errorf("记录未被覆盖: %+v", got)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(30 * time.Millisecond)

	store.Put(model.TaskRecord{TaskID: "task-1", Status: model.TaskStatusCompleted})
	time.Sleep(60 * time.Millisecond)

	if _, ok := store.Get("task-1"); ok {
		t.Error("超过 TTL 的记录应当过期")
	}
}
