package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"video-forge/app/config"
	"video-forge/app/logger"
	"video-forge/app/model"
	"video-forge/app/progress"

	"github.com/gin-gonic/gin"
)

// fakePipeline 内存任务表桩
type fakePipeline struct {
	mu      sync.Mutex
	records map[string]model.TaskRecord
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{records: make(map[string]model.TaskRecord)}
}

func (f *fakePipeline) put(rec model.TaskRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.TaskID] = rec
}

func (f *fakePipeline) Submit(_ string) string {
	return "task-1"
}

func (f *fakePipeline) Status(taskID string) (model.TaskRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[taskID]
	return rec, ok
}

func (f *fakePipeline) ListRecords(_, _ int) ([]model.RenderRecord, int64, error) {
	return nil, 0, nil
}

func (f *fakePipeline) DeleteRecord(_ uint) error {
	return nil
}

func newStreamFixture(t *testing.T) (*gin.Engine, *fakePipeline, *progress.Broker) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New(config.LogConfig{Level: "error", Output: "stdout"})
	pipeline := newFakePipeline()
	broker := progress.NewBroker(log)

	router := gin.New()
	h := NewVideoHandler(pipeline, broker, log)
	router.GET("/api/videos/:id/stream", h.StreamStatus)
	return router, pipeline, broker
}

func streamRequest(router *gin.Engine, taskID string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/videos/"+taskID+"/stream", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestStreamStatus_TerminalTaskClosesImmediately(t *testing.T) {
	router, pipeline, _ := newStreamFixture(t)

	// 任务早已终结，终态事件发布时还没有任何订阅者
	pipeline.put(model.TaskRecord{
		TaskID:   "done-task",
		Status:   model.TaskStatusCompleted,
		Progress: 100,
		Message:  "任务完成",
	})

	finished := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		finished <- streamRequest(router, "done-task")
	}()

	// 晚到的订阅者必须立即收到终态并关闭，不能挂起等待
	select {
	case w := <-finished:
		body := w.Body.String()
		if !strings.Contains(body, `"status":"completed"`) {
			t.Errorf("补发事件应包含终态: %s", body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("终态任务的进度流不应挂起")
	}
}

func TestStreamStatus_ForwardsUpdatesUntilTerminal(t *testing.T) {
	router, pipeline, broker := newStreamFixture(t)

	pipeline.put(model.TaskRecord{
		TaskID:   "live-task",
		Status:   model.TaskStatusProcessing,
		Progress: 40,
		Message:  "正在合成视频...",
	})

	finished := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		finished <- streamRequest(router, "live-task")
	}()

	// 等订阅建立后再发布终态
	deadline := time.Now().Add(2 * time.Second)
	for broker.SubscriberCount("live-task") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("订阅未在限期内建立")
		}
		time.Sleep(5 * time.Millisecond)
	}
	broker.Publish(model.TaskRecord{
		TaskID:   "live-task",
		Status:   model.TaskStatusCompleted,
		Progress: 100,
		Message:  "任务完成",
	})

	select {
	case w := <-finished:
		body := w.Body.String()
		if !strings.Contains(body, `"progress":40`) {
			t.Errorf("应先补发当前状态: %s", body)
		}
		if !strings.Contains(body, `"status":"completed"`) {
			t.Errorf("应转发终态事件并关闭: %s", body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("收到终态事件后进度流应关闭")
	}

	if broker.SubscriberCount("live-task") != 0 {
		t.Error("流关闭后订阅应被清理")
	}
}

func TestStreamStatus_UnknownTask(t *testing.T) {
	router, _, broker := newStreamFixture(t)

	w := streamRequest(router, "missing")
	if w.Code != http.StatusNotFound {
		t.Errorf("未知任务应返回 404，实际 %d", w.Code)
	}
	if broker.SubscriberCount("missing") != 0 {
		t.Error("404 路径也应清理订阅")
	}
}
