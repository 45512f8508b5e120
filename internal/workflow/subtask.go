package workflow

import (
	"context"
	"time"

	"github.com/mautops/property-flow/internal/metrics"
	"github.com/mautops/property-flow/internal/model"
)

// ToggleSubtaskRequest 勾选子任务请求
// TaskID、InstanceID 可选,提供时必须与子任务实际归属一致
type ToggleSubtaskRequest struct {
	SubtaskID   string
	TaskID      string
	InstanceID  string
	IsCompleted bool
	ActorID     string
}

// ToggleResult 勾选结果
type ToggleResult struct {
	SubtaskID  string          `json:"subtask_id"`
	TaskID     string          `json:"task_id"`
	TaskStatus TaskStatus      `json:"task_status"`
	Progress   *ProgressResult `json:"progress"`
}

// ToggleSubtask 勾选或取消勾选手工子任务
// 子任务写入 → 任务状态推导 → 流程进度重算,三步在同一事务内完成
func (e *Engine) ToggleSubtask(ctx context.Context, req ToggleSubtaskRequest) (*ToggleResult, error) {
	var result *ToggleResult
	err := e.unitOfWork(ctx, "toggle subtask", func(s *stores) error {
		r, err := e.toggleSubtask(s, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSubtaskToggle(req.IsCompleted)
	return result, nil
}

func (e *Engine) toggleSubtask(s *stores, req ToggleSubtaskRequest) (*ToggleResult, error) {
	subtask, err := s.subtasks.FindByID(req.SubtaskID)
	if err != nil {
		return nil, lookupErr("subtask", req.SubtaskID, err)
	}

	task, err := s.tasks.FindByID(subtask.TaskID)
	if err != nil {
		return nil, lookupErr("task", subtask.TaskID, err)
	}
	if req.TaskID != "" && req.TaskID != task.ID {
		return nil, notFound("subtask %q does not belong to task %q", subtask.ID, req.TaskID)
	}

	proc, err := s.processes.FindByID(task.ProcInstanceID)
	if err != nil {
		return nil, lookupErr("process instance", task.ProcInstanceID, err)
	}
	if req.InstanceID != "" && req.InstanceID != proc.ID {
		return nil, notFound("subtask %q does not belong to process %q", subtask.ID, req.InstanceID)
	}
	if status := ProcessStatus(proc.CurrentStatus); status.IsTerminal() {
		return nil, invalidTransition("process is %s, its tasks can no longer change", status)
	}

	if CheckType(subtask.CheckType) != CheckManual {
		return nil, validation("subtask %q is checked automatically and cannot be toggled", subtask.ID)
	}

	now := e.now()
	subtask.IsCompleted = req.IsCompleted
	if req.IsCompleted {
		subtask.CompletedAt = timePtr(now)
		subtask.CompletedBy = strPtr(req.ActorID)
	} else {
		subtask.CompletedAt = nil
		subtask.CompletedBy = nil
	}
	if err := s.subtasks.UpdateCompletion(subtask); err != nil {
		return nil, storageErr("failed to update subtask", err)
	}

	siblings, err := s.subtasks.FindByTaskID(task.ID)
	if err != nil {
		return nil, storageErr("failed to load subtasks", err)
	}

	// 任务版本号同时保护其下全部子任务,状态未变也要写入
	applyDerivedStatus(task, deriveTaskStatus(siblings), req.ActorID, now)
	if err := s.tasks.UpdateWithVersion(task); err != nil {
		return nil, storageErr("failed to update task status", err)
	}

	progress, err := e.recalc(s, proc.ID)
	if err != nil {
		return nil, err
	}

	return &ToggleResult{
		SubtaskID:  subtask.ID,
		TaskID:     task.ID,
		TaskStatus: TaskStatus(task.Status),
		Progress:   progress,
	}, nil
}

// deriveTaskStatus 由子任务推导任务状态
//   - 存在必填子任务且全部完成 → completed
//   - 至少一个子任务完成 → in_progress
//   - 否则 → pending
func deriveTaskStatus(subtasks []*model.SubtaskModel) TaskStatus {
	mandatory, mandatoryDone, anyDone := 0, 0, false
	for _, st := range subtasks {
		if st.IsCompleted {
			anyDone = true
		}
		if st.IsMandatory {
			mandatory++
			if st.IsCompleted {
				mandatoryDone++
			}
		}
	}

	switch {
	case mandatory > 0 && mandatoryDone == mandatory:
		return TaskCompleted
	case anyDone:
		return TaskInProgress
	default:
		return TaskPending
	}
}

// applyDerivedStatus 把推导出的状态写入任务
// completed_at 只在完成状态下保留,状态未变时保持原值
func applyDerivedStatus(task *model.TaskModel, next TaskStatus, actorID string, now time.Time) {
	if TaskStatus(task.Status) == next {
		return
	}

	task.Status = string(next)
	if next == TaskCompleted {
		task.CompletedAt = timePtr(now)
		task.CompletedBy = strPtr(actorID)
	} else {
		task.CompletedAt = nil
		task.CompletedBy = nil
	}
}
