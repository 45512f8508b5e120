package workflow

import (
	"context"
	"math"

	"github.com/mautops/property-flow/internal/metrics"
	"github.com/mautops/property-flow/internal/model"
)

// ProgressResult 进度计算结果
type ProgressResult struct {
	InstanceID        string        `json:"instance_id"`
	PercentComplete   int           `json:"percent_complete"`
	CurrentStageIndex *int          `json:"current_stage_index,omitempty"`
	IsCompleted       bool          `json:"is_completed"`
	Status            ProcessStatus `json:"status"`
}

// RecalcProgress 重新计算流程实例的完成百分比和当前阶段
// 结果未变化时不写库,重复调用结果一致
func (e *Engine) RecalcProgress(ctx context.Context, instanceID string) (*ProgressResult, error) {
	var result *ProgressResult
	err := e.unitOfWork(ctx, "recalculate progress", func(s *stores) error {
		r, err := e.recalc(s, instanceID)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordProgressRecalc()
	return result, nil
}

// recalc 在当前事务内重算进度
// 这是流程进入 completed 的唯一入口
func (e *Engine) recalc(s *stores, instanceID string) (*ProgressResult, error) {
	proc, err := s.processes.FindByID(instanceID)
	if err != nil {
		return nil, lookupErr("process instance", instanceID, err)
	}

	tasks, err := s.tasks.FindByProcessID(instanceID)
	if err != nil {
		return nil, storageErr("failed to load tasks", err)
	}

	percent, stage := computeProgress(tasks)
	status := ProcessStatus(proc.CurrentStatus)

	changed := proc.PercentComplete != percent || !sameStage(proc.CurrentStageIndex, stage)
	proc.PercentComplete = percent
	proc.CurrentStageIndex = stage

	// 只有进行中的流程会被系统完成; 待审批、暂停、退回的流程在审批或恢复时重算
	if percent == 100 && status == StatusActive {
		proc.CurrentStatus = string(StatusCompleted)
		proc.CompletedAt = timePtr(e.now())
		changed = true
	}

	if changed {
		if err := s.processes.UpdateWithVersion(proc); err != nil {
			return nil, storageErr("failed to update process progress", err)
		}
		if ProcessStatus(proc.CurrentStatus) != status {
			if err := s.history.Save(newHistory(proc.ID, "complete", status, ProcessStatus(proc.CurrentStatus), "all tasks done", "system", e.now())); err != nil {
				return nil, storageErr("failed to save state history", err)
			}
		}
	}

	return &ProgressResult{
		InstanceID:        proc.ID,
		PercentComplete:   percent,
		CurrentStageIndex: stage,
		IsCompleted:       percent == 100,
		Status:            ProcessStatus(proc.CurrentStatus),
	}, nil
}

// computeProgress 完成(或被跳过)任务占比,四舍五入取整; 当前阶段为最小的仍有待办任务的阶段
func computeProgress(tasks []*model.TaskModel) (int, *int) {
	if len(tasks) == 0 {
		return 0, nil
	}

	done := 0
	var stage *int
	for _, t := range tasks {
		if isDone(t) {
			done++
			continue
		}
		if TaskStatus(t.Status) == TaskPending {
			if stage == nil || t.StageOrderIndex < *stage {
				idx := t.StageOrderIndex
				stage = &idx
			}
		}
	}

	percent := int(math.Round(100 * float64(done) / float64(len(tasks))))
	return percent, stage
}

func isDone(t *model.TaskModel) bool {
	return t.IsBypassed || TaskStatus(t.Status) == TaskCompleted
}

func sameStage(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
