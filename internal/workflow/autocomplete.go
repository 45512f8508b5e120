package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mautops/property-flow/internal/metrics"
	"github.com/mautops/property-flow/internal/model"
	"github.com/mautops/property-flow/internal/repository"
	"github.com/sirupsen/logrus"
)

// AutoCompleteResult 自动完成结果
type AutoCompleteResult struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// autoCompleteResult 写入 task_result 的内容
type autoCompleteResult struct {
	AutoCompleted bool   `json:"auto_completed"`
	Source        string `json:"source"`
	DocumentID    string `json:"document_id"`
}

// candidate 候选文档及其来源
type candidate struct {
	doc    *model.DocumentModel
	source string
}

// AutoCompleteTasks 用房源或业主已登记的文档自动完成待办的上传任务
// propertyID 为空时使用流程关联的房源; 不重算进度,需要最新聚合值的调用方应随后调用 RecalcProgress
func (e *Engine) AutoCompleteTasks(ctx context.Context, instanceID, propertyID string) (*AutoCompleteResult, error) {
	var result *AutoCompleteResult
	err := e.unitOfWork(ctx, "auto-complete tasks", func(s *stores) error {
		r, err := e.autoComplete(s, instanceID, propertyID)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) autoComplete(s *stores, instanceID, propertyID string) (*AutoCompleteResult, error) {
	proc, err := s.processes.FindByID(instanceID)
	if err != nil {
		return nil, lookupErr("process instance", instanceID, err)
	}
	if propertyID == "" {
		propertyID = proc.PropertyID
	}
	if propertyID == "" {
		return nil, validation("process %q has no linked property", instanceID)
	}
	if status := ProcessStatus(proc.CurrentStatus); status.IsTerminal() {
		return nil, invalidTransition("process is %s, its tasks can no longer change", status)
	}

	tasks, err := s.tasks.FindByFilter(&repository.TaskFilter{
		ProcInstanceID: strPtr(instanceID),
		Status:         strPtr(string(TaskPending)),
		ActionType:     strPtr(string(ActionUpload)),
	})
	if err != nil {
		return nil, storageErr("failed to load upload tasks", err)
	}

	withSubtasks, err := e.tasksWithSubtasks(s, tasks)
	if err != nil {
		return nil, err
	}

	// 有子任务的任务只由子任务驱动,计入总数但不自动完成
	result := &AutoCompleteResult{}
	var eligible []*model.TaskModel
	for _, t := range tasks {
		if t.IsBypassed {
			continue
		}
		result.Total++
		if withSubtasks[t.ID] {
			continue
		}
		eligible = append(eligible, t)
	}
	if len(eligible) == 0 {
		return result, nil
	}

	candidates, err := e.loadCandidates(s, propertyID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	for _, t := range eligible {
		cfg, err := ParseTaskConfig(t.ActionType, t.Config)
		if err != nil {
			e.logger.WithError(err).WithField("task_id", t.ID).Warn("skipping task with unreadable config")
			continue
		}
		docType, ok := RequiredDocType(cfg)
		if !ok {
			continue
		}

		match := findCandidate(candidates, docType, now)
		if match == nil {
			continue
		}

		payload, err := json.Marshal(autoCompleteResult{
			AutoCompleted: true,
			Source:        match.source,
			DocumentID:    match.doc.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal task result: %w", err)
		}

		t.Status = string(TaskCompleted)
		t.CompletedAt = timePtr(now)
		t.CompletedBy = strPtr("system")
		t.TaskResult = strPtr(string(payload))
		if err := s.tasks.UpdateWithVersion(t); err != nil {
			return nil, storageErr("failed to complete task", err)
		}

		result.Completed++
		metrics.RecordTaskAutoCompleted(match.source)
		e.logger.WithFields(logrus.Fields{
			"process_id":  instanceID,
			"task_id":     t.ID,
			"document_id": match.doc.ID,
			"source":      match.source,
		}).Info("task auto-completed from existing document")
	}

	return result, nil
}

func (e *Engine) tasksWithSubtasks(s *stores, tasks []*model.TaskModel) (map[string]bool, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	subtasks, err := s.subtasks.FindByTaskIDs(ids)
	if err != nil {
		return nil, storageErr("failed to load subtasks", err)
	}
	out := make(map[string]bool, len(subtasks))
	for _, st := range subtasks {
		out[st.TaskID] = true
	}
	return out, nil
}

// loadCandidates 一次性取出候选文档: 先房源文档,再业主可复用文档
func (e *Engine) loadCandidates(s *stores, propertyID string) ([]candidate, error) {
	propertyDocs, err := s.documents.FindActiveByProperty(propertyID)
	if err != nil {
		return nil, storageErr("failed to load property documents", err)
	}

	ownerIDs, err := s.properties.FindOwnerIDs(propertyID)
	if err != nil {
		return nil, storageErr("failed to load property owners", err)
	}

	var ownerDocs []*model.DocumentModel
	if len(ownerIDs) > 0 {
		ownerDocs, err = s.documents.FindActiveReusableByOwners(ownerIDs)
		if err != nil {
			return nil, storageErr("failed to load owner documents", err)
		}
	}

	candidates := make([]candidate, 0, len(propertyDocs)+len(ownerDocs))
	for _, d := range propertyDocs {
		candidates = append(candidates, candidate{doc: d, source: SourcePropertyDocument})
	}
	for _, d := range ownerDocs {
		candidates = append(candidates, candidate{doc: d, source: SourceOwnerDocument})
	}
	return candidates, nil
}

// findCandidate 返回第一个类型匹配且仍在有效期内的文档
func findCandidate(candidates []candidate, docType string, now time.Time) *candidate {
	for i := range candidates {
		c := &candidates[i]
		if c.doc.DocTypeID != docType {
			continue
		}
		if documentUsable(c.doc, now) {
			return c
		}
	}
	return nil
}

// documentUsable 文档有效: 状态为 active 且未过期
func documentUsable(doc *model.DocumentModel, now time.Time) bool {
	if doc.Status != DocumentActive {
		return false
	}
	return doc.ValidUntil == nil || doc.ValidUntil.After(now)
}
