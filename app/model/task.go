package model

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal 是否为终态，终态之后任务记录只读
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskPayload 各阶段累积的结果字段
type TaskPayload struct {
	Title        string `json:"title,omitempty"`
	Script       string `json:"script,omitempty"`
	VideoURL     string `json:"video_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Error        string `json:"error,omitempty"`
}

// TaskRecord 任务状态记录，写入任务存储并推送给订阅者
type TaskRecord struct {
	TaskID   string      `json:"task_id"`
	Status   TaskStatus  `json:"status"`
	Progress int         `json:"progress"`
	Message  string      `json:"message"`
	Data     TaskPayload `json:"data"`
}
