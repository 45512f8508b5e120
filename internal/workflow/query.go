package workflow

import (
	"context"

	"github.com/mautops/property-flow/internal/model"
)

// ProcessView 流程实例读模型
type ProcessView struct {
	Process        *model.ProcessInstanceModel `json:"process"`
	AllowedActions []Action                    `json:"allowed_actions"`
	Stages         []*StageView                `json:"stages"`
	History        []*model.StateHistoryModel  `json:"history"`
}

// StageView 阶段及其任务
type StageView struct {
	OrderIndex int         `json:"order_index"`
	Name       string      `json:"name"`
	Tasks      []*TaskView `json:"tasks"`
}

// TaskView 任务及其子任务
type TaskView struct {
	*model.TaskModel
	Subtasks []*model.SubtaskModel `json:"subtasks"`
}

// GetProcess 查询流程实例、按阶段分组的任务以及状态历史
func (e *Engine) GetProcess(ctx context.Context, instanceID string) (*ProcessView, error) {
	s := newStores(e.db.WithContext(ctx))

	proc, err := s.processes.FindByID(instanceID)
	if err != nil {
		return nil, lookupErr("process instance", instanceID, err)
	}

	tasks, err := s.tasks.FindByProcessID(instanceID)
	if err != nil {
		return nil, storageErr("failed to load tasks", err)
	}

	taskIDs := make([]string, 0, len(tasks))
	for _, t := range tasks {
		taskIDs = append(taskIDs, t.ID)
	}
	var subtasks []*model.SubtaskModel
	if len(taskIDs) > 0 {
		subtasks, err = s.subtasks.FindByTaskIDs(taskIDs)
		if err != nil {
			return nil, storageErr("failed to load subtasks", err)
		}
	}
	byTask := make(map[string][]*model.SubtaskModel, len(tasks))
	for _, st := range subtasks {
		byTask[st.TaskID] = append(byTask[st.TaskID], st)
	}

	history, err := s.history.FindByProcessID(instanceID)
	if err != nil {
		return nil, storageErr("failed to load state history", err)
	}

	// 模板阶段名优先,任务上的 stage_name 是创建时的快照
	names := make(map[int]string)
	if proc.TemplateID != "" {
		stages, err := s.stages.FindByTemplateID(proc.TemplateID)
		if err != nil {
			return nil, storageErr("failed to load stages", err)
		}
		for _, st := range stages {
			names[st.OrderIndex] = st.Name
		}
	}

	return &ProcessView{
		Process:        proc,
		AllowedActions: AllowedActions(ProcessStatus(proc.CurrentStatus)),
		Stages:         groupByStage(tasks, byTask, names),
		History:        history,
	}, nil
}

// groupByStage 任务已按 stage_order_index 排序
func groupByStage(tasks []*model.TaskModel, subtasks map[string][]*model.SubtaskModel, names map[int]string) []*StageView {
	var stages []*StageView
	var current *StageView
	for _, t := range tasks {
		if current == nil || current.OrderIndex != t.StageOrderIndex {
			name := t.StageName
			if n, ok := names[t.StageOrderIndex]; ok {
				name = n
			}
			current = &StageView{OrderIndex: t.StageOrderIndex, Name: name}
			stages = append(stages, current)
		}
		current.Tasks = append(current.Tasks, &TaskView{TaskModel: t, Subtasks: subtasks[t.ID]})
	}
	return stages
}
