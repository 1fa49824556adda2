package handler

import (
	"net/http"
	"strconv"
	"video-forge/app/logger"
	"video-forge/app/model"
	"video-forge/app/progress"

	"github.com/gin-gonic/gin"
)

// Pipeline 处理器依赖的流水线能力
type Pipeline interface {
	Submit(prompt string) string
	Status(taskID string) (model.TaskRecord, bool)
	ListRecords(page, pageSize int) ([]model.RenderRecord, int64, error)
	DeleteRecord(id uint) error
}

// VideoHandler 视频生成处理器
type VideoHandler struct {
	pipeline Pipeline
	broker   *progress.Broker
	logger   *logger.Logger
}

// NewVideoHandler 创建视频生成处理器
func NewVideoHandler(pipeline Pipeline, broker *progress.Broker, log *logger.Logger) *VideoHandler {
	return &VideoHandler{
		pipeline: pipeline,
		broker:   broker,
		logger:   log,
	}
}

// CreateVideoRequest 创建任务请求结构
type CreateVideoRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// CreateVideo 提交视频生成任务，立即返回任务编号
func (h *VideoHandler) CreateVideo(c *gin.Context) {
	var req CreateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	taskID := h.pipeline.Submit(req.Prompt)
	c.JSON(http.StatusAccepted, ApiResponse{
		Code:    0,
		Message: "任务已提交",
		Data:    gin.H{"task_id": taskID},
	})
}

// GetStatus 查询任务当前状态
func (h *VideoHandler) GetStatus(c *gin.Context) {
	taskID := c.Param("id")

	rec, ok := h.pipeline.Status(taskID)
	if !ok {
		fail(c, http.StatusNotFound, 404, "任务不存在或已过期")
		return
	}

	success(c, rec, "success")
}

// StreamStatus 以 SSE 推送任务进度。
// 必须先订阅、后读存储补发：补发的记录不早于订阅时刻，
// 订阅之后发布的事件都在通道里，两步之间的终态更新不会丢；
// 补发即终态时立即关闭，不会挂起等待。
func (h *VideoHandler) StreamStatus(c *gin.Context) {
	taskID := c.Param("id")

	ch := h.broker.Subscribe(taskID)
	defer h.broker.Unsubscribe(taskID, ch)

	rec, ok := h.pipeline.Status(taskID)
	if !ok {
		fail(c, http.StatusNotFound, 404, "任务不存在或已过期")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("status", rec)
	c.Writer.Flush()
	if rec.Status.IsTerminal() {
		return
	}

	for {
		select {
		case update, open := <-ch:
			if !open {
				return
			}
			c.SSEvent("status", update)
			c.Writer.Flush()
			if update.Status.IsTerminal() {
				return
			}
		case <-c.Request.Context().Done():
			h.logger.Debugf("任务 %s 的进度订阅方断开", taskID)
			return
		}
	}
}

// ListRecords 分页查询历史渲染记录
func (h *VideoHandler) ListRecords(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	records, total, err := h.pipeline.ListRecords(page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, "查询渲染记录失败")
		return
	}

	success(c, gin.H{
		"records":   records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	}, "success")
}

// DeleteRecord 删除一条历史渲染记录
func (h *VideoHandler) DeleteRecord(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, 400, "无效的记录编号")
		return
	}

	if err := h.pipeline.DeleteRecord(uint(id)); err != nil {
		fail(c, http.StatusInternalServerError, 500, "删除渲染记录失败")
		return
	}

	success(c, nil, "删除成功")
}
