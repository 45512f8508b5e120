package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mautops/property-flow/internal/workflow"
	"github.com/sirupsen/logrus"
)

// 审计资源类型
const (
	resourceProcess = "process"
	resourceTask    = "task"
	resourceSubtask = "subtask"
)

// ProcessService 流程服务,负责解析调用者、调用引擎并记录审计日志
type ProcessService interface {
	Get(ctx context.Context, id string) (*workflow.ProcessView, error)
	Recalc(ctx context.Context, id string) (*workflow.ProgressResult, error)
	AutoComplete(ctx context.Context, userID, id, propertyID string) (*workflow.AutoCompleteResult, *workflow.ProgressResult, error)
	Transition(ctx context.Context, userID, id string, req *TransitionRequest) (*workflow.TransitionResult, error)
	ToggleSubtask(ctx context.Context, userID, subtaskID string, req *ToggleSubtaskRequest) (*workflow.ToggleResult, error)
	CompleteTask(ctx context.Context, userID, taskID string, req *CompleteTaskRequest) (*workflow.TaskResult, error)
	BypassTask(ctx context.Context, userID, taskID string, req *BypassTaskRequest) (*workflow.TaskResult, error)
}

// TransitionRequest 生命周期转换请求
type TransitionRequest struct {
	Action string `json:"action" binding:"required"` // approve/reject/return/pause/resume/cancel/resubmit
	Reason string `json:"reason"`
}

// ToggleSubtaskRequest 勾选子任务请求
type ToggleSubtaskRequest struct {
	IsCompleted *bool  `json:"is_completed" binding:"required"`
	TaskID      string `json:"task_id"`
	ProcessID   string `json:"process_id"`
}

// CompleteTaskRequest 完成任务请求
type CompleteTaskRequest struct {
	Result map[string]interface{} `json:"result"`
}

// BypassTaskRequest 跳过任务请求
type BypassTaskRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AutoCompleteRequest 自动完成请求,property_id 为空时使用流程关联的房源
type AutoCompleteRequest struct {
	PropertyID string `json:"property_id"`
}

type processService struct {
	engine   *workflow.Engine
	auditSvc AuditLogService
	logger   logrus.FieldLogger
}

// NewProcessService 创建流程服务
func NewProcessService(engine *workflow.Engine, auditSvc AuditLogService, logger logrus.FieldLogger) ProcessService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &processService{
		engine:   engine,
		auditSvc: auditSvc,
		logger:   logger,
	}
}

// Get 查询流程详情
func (s *processService) Get(ctx context.Context, id string) (*workflow.ProcessView, error) {
	return s.engine.GetProcess(ctx, id)
}

// Recalc 重算进度,存储错误后用于收敛聚合值
func (s *processService) Recalc(ctx context.Context, id string) (*workflow.ProgressResult, error) {
	return s.engine.RecalcProgress(ctx, id)
}

// AutoComplete 自动完成并随后重算进度
func (s *processService) AutoComplete(ctx context.Context, userID, id, propertyID string) (*workflow.AutoCompleteResult, *workflow.ProgressResult, error) {
	result, err := s.engine.AutoCompleteTasks(ctx, id, propertyID)
	if err != nil {
		return nil, nil, err
	}

	progress, err := s.engine.RecalcProgress(ctx, id)
	if err != nil {
		return result, nil, err
	}

	s.audit(ctx, userID, "auto_complete", resourceProcess, id, map[string]interface{}{
		"completed": result.Completed,
		"total":     result.Total,
	})
	return result, progress, nil
}

// Transition 执行生命周期转换
func (s *processService) Transition(ctx context.Context, userID, id string, req *TransitionRequest) (*workflow.TransitionResult, error) {
	actor, err := s.engine.ResolveActor(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Transition(ctx, workflow.TransitionRequest{
		InstanceID: id,
		Action:     req.Action,
		Actor:      actor,
		Reason:     req.Reason,
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, userID, req.Action, resourceProcess, id, map[string]interface{}{
		"from":   result.FromStatus,
		"to":     result.ToStatus,
		"reason": req.Reason,
	})
	return result, nil
}

// ToggleSubtask 勾选子任务
func (s *processService) ToggleSubtask(ctx context.Context, userID, subtaskID string, req *ToggleSubtaskRequest) (*workflow.ToggleResult, error) {
	completed := req.IsCompleted != nil && *req.IsCompleted
	result, err := s.engine.ToggleSubtask(ctx, workflow.ToggleSubtaskRequest{
		SubtaskID:   subtaskID,
		TaskID:      req.TaskID,
		InstanceID:  req.ProcessID,
		IsCompleted: completed,
		ActorID:     userID,
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, userID, "toggle_subtask", resourceSubtask, subtaskID, map[string]interface{}{
		"is_completed": completed,
		"task_status":  result.TaskStatus,
	})
	return result, nil
}

// CompleteTask 完成任务
func (s *processService) CompleteTask(ctx context.Context, userID, taskID string, req *CompleteTaskRequest) (*workflow.TaskResult, error) {
	raw := ""
	if req != nil && len(req.Result) > 0 {
		data, err := marshalResult(req.Result)
		if err != nil {
			return nil, err
		}
		raw = data
	}

	result, err := s.engine.CompleteTask(ctx, workflow.CompleteTaskRequest{
		TaskID:  taskID,
		ActorID: userID,
		Result:  raw,
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, userID, "complete_task", resourceTask, taskID, nil)
	return result, nil
}

// BypassTask 跳过任务
func (s *processService) BypassTask(ctx context.Context, userID, taskID string, req *BypassTaskRequest) (*workflow.TaskResult, error) {
	actor, err := s.engine.ResolveActor(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.BypassTask(ctx, workflow.BypassTaskRequest{
		TaskID: taskID,
		Actor:  actor,
		Reason: req.Reason,
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, userID, "bypass_task", resourceTask, taskID, map[string]interface{}{
		"reason": req.Reason,
	})
	return result, nil
}

// audit 审计日志写入失败不影响业务结果
func (s *processService) audit(ctx context.Context, userID, action, resourceType, resourceID string, details interface{}) {
	if s.auditSvc == nil || userID == "" {
		return
	}
	if err := s.auditSvc.RecordAction(ctx, userID, action, resourceType, resourceID, details); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"action":      action,
			"resource_id": resourceID,
		}).Warn("failed to record audit log")
	}
}

func marshalResult(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task result: %w", err)
	}
	return string(data), nil
}
