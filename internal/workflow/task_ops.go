package workflow

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mautops/property-flow/internal/model"
	"github.com/sirupsen/logrus"
)

// CompleteTaskRequest 手工完成任务请求
// Result 为可选的 JSON 结果
type CompleteTaskRequest struct {
	TaskID  string
	ActorID string
	Result  string
}

// BypassTaskRequest 跳过任务请求
type BypassTaskRequest struct {
	TaskID string
	Actor  Actor
	Reason string
}

// TaskResult 任务操作结果
type TaskResult struct {
	TaskID     string          `json:"task_id"`
	TaskStatus TaskStatus      `json:"task_status"`
	IsBypassed bool            `json:"is_bypassed"`
	Progress   *ProgressResult `json:"progress"`
}

// CompleteTask 直接完成一个没有子任务的任务
// 有子任务的任务状态只能由子任务推导
func (e *Engine) CompleteTask(ctx context.Context, req CompleteTaskRequest) (*TaskResult, error) {
	result := strings.TrimSpace(req.Result)
	if result != "" && !json.Valid([]byte(result)) {
		return nil, validation("task result must be valid JSON")
	}

	var out *TaskResult
	err := e.unitOfWork(ctx, "complete task", func(s *stores) error {
		task, err := e.loadMutableTask(s, req.TaskID)
		if err != nil {
			return err
		}

		count, err := s.subtasks.CountByTaskID(task.ID)
		if err != nil {
			return storageErr("failed to count subtasks", err)
		}
		if count > 0 {
			return validation("task %q is driven by its subtasks and cannot be completed directly", task.ID)
		}

		if TaskStatus(task.Status) != TaskCompleted {
			task.Status = string(TaskCompleted)
			task.CompletedAt = timePtr(e.now())
			task.CompletedBy = strPtr(req.ActorID)
			if result != "" {
				task.TaskResult = strPtr(result)
			}
			if err := s.tasks.UpdateWithVersion(task); err != nil {
				return storageErr("failed to complete task", err)
			}
		}

		out, err = e.taskResult(s, task)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BypassTask 管理员跳过任务,跳过的任务在进度计算中视为完成
func (e *Engine) BypassTask(ctx context.Context, req BypassTaskRequest) (*TaskResult, error) {
	if !req.Actor.Privileged {
		return nil, forbidden("user %q is not allowed to bypass tasks", req.Actor.ID)
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, validation("bypass requires a reason")
	}

	var out *TaskResult
	err := e.unitOfWork(ctx, "bypass task", func(s *stores) error {
		task, err := e.loadMutableTask(s, req.TaskID)
		if err != nil {
			return err
		}

		if !task.IsBypassed {
			task.IsBypassed = true
			task.BypassReason = strPtr(reason)
			task.BypassedBy = strPtr(req.Actor.ID)
			if err := s.tasks.UpdateWithVersion(task); err != nil {
				return storageErr("failed to bypass task", err)
			}
			e.logger.WithFields(logrus.Fields{
				"task_id": task.ID,
				"actor":   req.Actor.ID,
			}).Info("task bypassed")
		}

		out, err = e.taskResult(s, task)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// loadMutableTask 加载任务,所属流程已结束时拒绝修改
func (e *Engine) loadMutableTask(s *stores, taskID string) (*model.TaskModel, error) {
	task, err := s.tasks.FindByID(taskID)
	if err != nil {
		return nil, lookupErr("task", taskID, err)
	}
	proc, err := s.processes.FindByID(task.ProcInstanceID)
	if err != nil {
		return nil, lookupErr("process instance", task.ProcInstanceID, err)
	}
	if status := ProcessStatus(proc.CurrentStatus); status.IsTerminal() {
		return nil, invalidTransition("process is %s, its tasks can no longer change", status)
	}
	return task, nil
}

func (e *Engine) taskResult(s *stores, task *model.TaskModel) (*TaskResult, error) {
	progress, err := e.recalc(s, task.ProcInstanceID)
	if err != nil {
		return nil, err
	}
	return &TaskResult{
		TaskID:     task.ID,
		TaskStatus: TaskStatus(task.Status),
		IsBypassed: task.IsBypassed,
		Progress:   progress,
	}, nil
}
