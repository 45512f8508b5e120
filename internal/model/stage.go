package model

import (
	"errors"
	"time"
)

// StageModel 流程阶段数据模型
// 阶段由模板编辑器维护,引擎只读
type StageModel struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	TemplateID string    `gorm:"type:varchar(64);not null;index" json:"template_id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	OrderIndex int       `gorm:"type:int;not null" json:"order_index"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

// TableName 指定表名
func (StageModel) TableName() string {
	return "process_stages"
}

// Validate 验证阶段模型
func (sm *StageModel) Validate() error {
	if sm.ID == "" {
		return errors.New("stage ID is required")
	}
	if sm.TemplateID == "" {
		return errors.New("template ID is required")
	}
	if sm.Name == "" {
		return errors.New("stage name is required")
	}
	return nil
}
