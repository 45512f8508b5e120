package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/property-flow/internal/model"
	"github.com/mautops/property-flow/internal/repository"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	clientIPKey  contextKey = "ip"
	userAgentKey contextKey = "user_agent"
)

// WithRequestInfo 把请求信息放入 context,供审计日志使用
func WithRequestInfo(ctx context.Context, requestID, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	ctx = context.WithValue(ctx, clientIPKey, ip)
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// AuditLogService 审计日志服务
type AuditLogService interface {
	RecordAction(ctx context.Context, userID, action, resourceType, resourceID string, details interface{}) error
	List(ctx context.Context, resourceType, resourceID string) ([]*model.AuditLogModel, error)
}

type auditLogService struct {
	auditRepo repository.AuditLogRepository
}

// NewAuditLogService 创建审计日志服务
func NewAuditLogService(auditRepo repository.AuditLogRepository) AuditLogService {
	return &auditLogService{auditRepo: auditRepo}
}

// RecordAction 记录操作审计日志
func (s *auditLogService) RecordAction(ctx context.Context, userID, action, resourceType, resourceID string, details interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	return s.auditRepo.Save(&model.AuditLogModel{
		ID:           uuid.New().String(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    stringValue(ctx, requestIDKey),
		IP:           stringValue(ctx, clientIPKey),
		UserAgent:    stringValue(ctx, userAgentKey),
		Details:      string(detailsJSON),
		CreatedAt:    time.Now(),
	})
}

// List 查询资源的审计日志
func (s *auditLogService) List(_ context.Context, resourceType, resourceID string) ([]*model.AuditLogModel, error) {
	logs, err := s.auditRepo.FindByResource(resourceType, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}
