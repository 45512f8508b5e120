package repository

import (
	"github.com/mautops/property-flow/internal/model"
	"gorm.io/gorm"
)

// NotificationRepository 通知仓储接口
type NotificationRepository interface {
	Save(notification *model.NotificationModel) error
	FindByRecipient(recipientID string, unreadOnly bool) ([]*model.NotificationModel, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓储
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Save 保存通知
func (r *notificationRepository) Save(notification *model.NotificationModel) error {
	if err := notification.Validate(); err != nil {
		return err
	}
	return r.db.Create(notification).Error
}

// FindByRecipient 查找用户的通知
func (r *notificationRepository) FindByRecipient(recipientID string, unreadOnly bool) ([]*model.NotificationModel, error) {
	var notifications []*model.NotificationModel
	query := r.db.Where("recipient_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}
	err := query.Order("created_at DESC").Find(&notifications).Error
	return notifications, err
}
