package model

import (
	"errors"
	"time"
)

// TaskModel 流程任务数据模型
type TaskModel struct {
	ID              string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProcInstanceID  string     `gorm:"type:varchar(64);not null;index" json:"proc_instance_id"`
	StageOrderIndex int        `gorm:"type:int;not null" json:"stage_order_index"`
	StageName       string     `gorm:"type:varchar(255)" json:"stage_name"`
	Title           string     `gorm:"type:varchar(255);not null" json:"title"`
	OrderIndex      int        `gorm:"type:int;not null;default:0" json:"order_index"`
	ActionType      string     `gorm:"type:varchar(32);not null" json:"action_type"`            // UPLOAD/EMAIL/GENERATE_DOC/MANUAL
	Status          string     `gorm:"type:varchar(32);not null;index" json:"status"`           // pending/in_progress/completed
	IsMandatory     bool       `gorm:"not null" json:"is_mandatory"`
	IsBypassed      bool       `gorm:"not null;default:false" json:"is_bypassed"`
	BypassReason    *string    `gorm:"type:text" json:"bypass_reason"`
	BypassedBy      *string    `gorm:"type:varchar(64)" json:"bypassed_by"`
	AssignedTo      *string    `gorm:"type:varchar(64);index" json:"assigned_to"`
	Config          string     `gorm:"type:text" json:"config"`                                 // 按 ActionType 区分的配置 (JSON)
	CompletedAt     *time.Time `json:"completed_at"`
	CompletedBy     *string    `gorm:"type:varchar(64)" json:"completed_by"`
	TaskResult      *string    `gorm:"type:text" json:"task_result"`                            // 完成结果 (JSON)
	Version         int        `gorm:"type:int;not null;default:1" json:"version"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (TaskModel) TableName() string {
	return "process_tasks"
}

// Validate 验证任务模型
func (tm *TaskModel) Validate() error {
	if tm.ID == "" {
		return errors.New("task ID is required")
	}
	if tm.ProcInstanceID == "" {
		return errors.New("process instance ID is required")
	}
	if tm.ActionType == "" {
		return errors.New("action type is required")
	}
	if tm.Status == "" {
		return errors.New("task status is required")
	}
	return nil
}
