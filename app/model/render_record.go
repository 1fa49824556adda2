package model

import (
	"time"

	"gorm.io/gorm"
)

// RenderRecord 渲染归档记录。
// 任务存储中的记录一小时后过期，终态任务同时落库一份供历史查询。
type RenderRecord struct {
	ID           uint           `json:"id" gorm:"primarykey"`
	TaskID       string         `json:"task_id" gorm:"uniqueIndex;not null"`
	Prompt       string         `json:"prompt" gorm:"not null"`
	Title        string         `json:"title"`
	Status       TaskStatus     `json:"status" gorm:"index"`
	VideoURL     string         `json:"video_url"`
	ThumbnailURL string         `json:"thumbnail_url"`
	ErrorMsg     string         `json:"error_msg"`
	ElapsedSec   float64        `json:"elapsed_sec"` // 流水线总耗时（秒）
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 指定表名
func (RenderRecord) TableName() string {
	return "render_records"
}
