package model

import (
	"errors"
	"time"
)

// SubtaskModel 子任务数据模型
type SubtaskModel struct {
	ID          string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	TaskID      string     `gorm:"type:varchar(64);not null;index" json:"task_id"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	OrderIndex  int        `gorm:"type:int;not null;default:0" json:"order_index"`
	IsMandatory bool       `gorm:"not null" json:"is_mandatory"`
	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at"`
	CompletedBy *string    `gorm:"type:varchar(64)" json:"completed_by"`
	CheckType   string     `gorm:"type:varchar(16);not null;default:'manual'" json:"check_type"` // manual/auto
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (SubtaskModel) TableName() string {
	return "process_subtasks"
}

// Validate 验证子任务模型
func (sm *SubtaskModel) Validate() error {
	if sm.ID == "" {
		return errors.New("subtask ID is required")
	}
	if sm.TaskID == "" {
		return errors.New("task ID is required")
	}
	if sm.CheckType != "manual" && sm.CheckType != "auto" {
		return errors.New("check type must be manual or auto")
	}
	return nil
}
