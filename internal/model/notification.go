package model

import (
	"errors"
	"time"
)

// NotificationModel 站内通知数据模型
type NotificationModel struct {
	ID          string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	RecipientID string     `gorm:"type:varchar(64);not null;index" json:"recipient_id"`
	Type        string     `gorm:"type:varchar(64);not null" json:"type"`
	EntityType  string     `gorm:"type:varchar(32);not null" json:"entity_type"`
	EntityID    string     `gorm:"type:varchar(64);not null;index" json:"entity_id"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Body        string     `gorm:"type:text" json:"body"`
	ActionURL   string     `gorm:"type:varchar(255)" json:"action_url"`
	ReadAt      *time.Time `json:"read_at"`
	CreatedAt   time.Time  `gorm:"not null;index" json:"created_at"`
}

// TableName 指定表名
func (NotificationModel) TableName() string {
	return "notifications"
}

// Validate 验证通知模型
func (nm *NotificationModel) Validate() error {
	if nm.ID == "" {
		return errors.New("notification ID is required")
	}
	if nm.RecipientID == "" {
		return errors.New("recipient ID is required")
	}
	if nm.Type == "" {
		return errors.New("notification type is required")
	}
	if nm.Title == "" {
		return errors.New("notification title is required")
	}
	return nil
}
