// Package notify 持久化站内通知并推送给在线用户。
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/property-flow/internal/model"
	"github.com/mautops/property-flow/internal/repository"
	"github.com/mautops/property-flow/internal/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Pusher 在线推送
type Pusher interface {
	SendToUser(userID string, message []byte) int
}

// Emitter 通知发送器
// 通知先落库,再尽力推送给在线连接; 推送失败不影响结果
type Emitter struct {
	db     *gorm.DB
	pusher Pusher
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewEmitter 创建通知发送器,pusher 可为空
func NewEmitter(db *gorm.DB, pusher Pusher, logger logrus.FieldLogger) *Emitter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Emitter{
		db:     db,
		pusher: pusher,
		logger: logger,
		now:    time.Now,
	}
}

// Create 保存并推送一条通知
func (e *Emitter) Create(ctx context.Context, n workflow.Notification) error {
	record := &model.NotificationModel{
		ID:          uuid.New().String(),
		RecipientID: n.RecipientID,
		Type:        n.Type,
		EntityType:  n.EntityType,
		EntityID:    n.EntityID,
		Title:       n.Title,
		Body:        n.Body,
		ActionURL:   n.ActionURL,
		CreatedAt:   e.now(),
	}

	repo := repository.NewNotificationRepository(e.db.WithContext(ctx))
	if err := repo.Save(record); err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	if e.pusher == nil {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	delivered := e.pusher.SendToUser(record.RecipientID, payload)
	e.logger.WithFields(logrus.Fields{
		"notification_id": record.ID,
		"recipient":       record.RecipientID,
		"connections":     delivered,
	}).Debug("notification emitted")
	return nil
}

// List 查询用户的通知
func (e *Emitter) List(ctx context.Context, recipientID string, unreadOnly bool) ([]*model.NotificationModel, error) {
	repo := repository.NewNotificationRepository(e.db.WithContext(ctx))
	notifications, err := repo.FindByRecipient(recipientID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}
