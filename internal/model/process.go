package model

import (
	"errors"
	"time"
)

// ProcessInstanceModel 流程实例数据模型
// Version 用于乐观锁,每次写入时递增
type ProcessInstanceModel struct {
	ID                string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	TemplateID        string     `gorm:"type:varchar(64);not null;index" json:"template_id"`
	ExternalRef       string     `gorm:"type:varchar(64);index" json:"external_ref"`            // 对外展示编号,如 PROC-2026-0001
	PropertyID        string     `gorm:"type:varchar(64);index" json:"property_id"`
	RequestedBy       string     `gorm:"type:varchar(64);index" json:"requested_by"`
	CurrentStatus     string     `gorm:"type:varchar(32);not null;index" json:"current_status"`
	PercentComplete   int        `gorm:"type:int;not null;default:0" json:"percent_complete"`
	CurrentStageIndex *int       `gorm:"type:int" json:"current_stage_index"`
	StartedAt         *time.Time `json:"started_at"`
	ApprovedAt        *time.Time `json:"approved_at"`
	ApprovedBy        *string    `gorm:"type:varchar(64)" json:"approved_by"`
	RejectedAt        *time.Time `json:"rejected_at"`
	RejectedBy        *string    `gorm:"type:varchar(64)" json:"rejected_by"`
	RejectedReason    *string    `gorm:"type:text" json:"rejected_reason"`
	ReturnedAt        *time.Time `json:"returned_at"`
	ReturnedBy        *string    `gorm:"type:varchar(64)" json:"returned_by"`
	ReturnedReason    *string    `gorm:"type:text" json:"returned_reason"`
	CancelledAt       *time.Time `json:"cancelled_at"`
	CancelledBy       *string    `gorm:"type:varchar(64)" json:"cancelled_by"`
	CancelledReason   *string    `gorm:"type:text" json:"cancelled_reason"`
	CompletedAt       *time.Time `json:"completed_at"`
	Notes             *string    `gorm:"type:text" json:"notes"`
	Version           int        `gorm:"type:int;not null;default:1" json:"version"`
	CreatedAt         time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (ProcessInstanceModel) TableName() string {
	return "process_instances"
}

// Validate 验证流程实例模型
func (pm *ProcessInstanceModel) Validate() error {
	if pm.ID == "" {
		return errors.New("process instance ID is required")
	}
	if pm.TemplateID == "" {
		return errors.New("template ID is required")
	}
	if pm.CurrentStatus == "" {
		return errors.New("process status is required")
	}
	if pm.PercentComplete < 0 || pm.PercentComplete > 100 {
		return errors.New("percent complete must be between 0 and 100")
	}
	return nil
}
