package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mautops/property-flow/internal/metrics"
	"github.com/mautops/property-flow/internal/model"
	"github.com/sirupsen/logrus"
)

// 通知类型
const (
	NotifyProcessApproved = "process_approved"
	NotifyProcessRejected = "process_rejected"
	NotifyProcessReturned = "process_returned"
)

// TransitionRequest 生命周期转换请求
type TransitionRequest struct {
	InstanceID string
	Action     string
	Actor      Actor
	Reason     string
}

// TransitionResult 转换结果
// 批准时附带自动完成和进度结果
type TransitionResult struct {
	InstanceID   string              `json:"instance_id"`
	Action       Action              `json:"action"`
	FromStatus   ProcessStatus       `json:"from_status"`
	ToStatus     ProcessStatus       `json:"to_status"`
	AutoComplete *AutoCompleteResult `json:"auto_complete,omitempty"`
	Progress     *ProgressResult     `json:"progress,omitempty"`
}

// Transition 执行生命周期转换
// 顺序: 权限 → 实例存在 → 状态守卫 → 原因校验 → 写入及副作用
// 任何一步失败都不产生写入
func (e *Engine) Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	if !req.Actor.Privileged {
		return nil, forbidden("user %q is not allowed to change process state", req.Actor.ID)
	}

	action, err := ParseAction(req.Action)
	if err != nil {
		return nil, err
	}

	var (
		result        *TransitionResult
		notifications []Notification
	)
	err = e.unitOfWork(ctx, "transition process", func(s *stores) error {
		r, n, err := e.transition(s, req.InstanceID, action, req.Actor, strings.TrimSpace(req.Reason))
		if err != nil {
			return err
		}
		result, notifications = r, n
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(string(action), string(result.ToStatus))
	e.logger.WithFields(logrus.Fields{
		"process_id": result.InstanceID,
		"action":     action,
		"from":       result.FromStatus,
		"to":         result.ToStatus,
		"actor":      req.Actor.ID,
	}).Info("process transitioned")

	e.notify(ctx, notifications)
	return result, nil
}

func (e *Engine) transition(s *stores, instanceID string, action Action, actor Actor, reason string) (*TransitionResult, []Notification, error) {
	proc, err := s.processes.FindByID(instanceID)
	if err != nil {
		return nil, nil, lookupErr("process instance", instanceID, err)
	}

	from := ProcessStatus(proc.CurrentStatus)
	to, err := NextStatus(from, action)
	if err != nil {
		return nil, nil, err
	}

	if requiresReason(action) && utf8.RuneCountInString(reason) < e.minReasonLength {
		return nil, nil, validation("%s requires a reason of at least %d characters", action, e.minReasonLength)
	}

	now := e.now()
	applyTransition(proc, action, to, actor.ID, reason, now)
	if err := s.processes.UpdateWithVersion(proc); err != nil {
		return nil, nil, storageErr("failed to update process status", err)
	}
	if err := s.history.Save(newHistory(proc.ID, string(action), from, to, reason, actor.ID, now)); err != nil {
		return nil, nil, storageErr("failed to save state history", err)
	}

	if err := e.updatePropertyStatus(s, proc.PropertyID, action); err != nil {
		return nil, nil, err
	}

	result := &TransitionResult{
		InstanceID: proc.ID,
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
	}

	if action == ActionApprove && proc.PropertyID != "" {
		auto, err := e.autoComplete(s, proc.ID, proc.PropertyID)
		if err != nil {
			return nil, nil, err
		}
		result.AutoComplete = auto
	}
	if action == ActionApprove || action == ActionResume {
		progress, err := e.recalc(s, proc.ID)
		if err != nil {
			return nil, nil, err
		}
		result.Progress = progress
		result.ToStatus = progress.Status
	}

	return result, transitionNotifications(proc, action, reason), nil
}

// applyTransition 写入目标状态以及对应的时间、操作人、原因
func applyTransition(proc *model.ProcessInstanceModel, action Action, to ProcessStatus, actorID, reason string, now time.Time) {
	proc.CurrentStatus = string(to)

	var reasonPtr *string
	if reason != "" {
		reasonPtr = strPtr(reason)
	}

	switch action {
	case ActionApprove:
		proc.ApprovedAt = timePtr(now)
		proc.ApprovedBy = strPtr(actorID)
		if proc.StartedAt == nil {
			proc.StartedAt = timePtr(now)
		}
	case ActionReject:
		proc.RejectedAt = timePtr(now)
		proc.RejectedBy = strPtr(actorID)
		proc.RejectedReason = reasonPtr
	case ActionReturn:
		proc.ReturnedAt = timePtr(now)
		proc.ReturnedBy = strPtr(actorID)
		proc.ReturnedReason = reasonPtr
	case ActionPause:
		proc.Notes = reasonPtr
	case ActionResume:
		proc.Notes = nil
	case ActionCancel:
		proc.CancelledAt = timePtr(now)
		proc.CancelledBy = strPtr(actorID)
		proc.CancelledReason = reasonPtr
	}
}

// updatePropertyStatus 转换对房源状态的副作用
//   - approve: pending_approval → in_process
//   - cancel: in_process → pending_approval
//   - reject: 强制 cancelled
//
// 条件不满足时不写入
func (e *Engine) updatePropertyStatus(s *stores, propertyID string, action Action) error {
	if propertyID == "" {
		return nil
	}

	var from, to string
	switch action {
	case ActionApprove:
		from, to = PropertyPendingApproval, PropertyInProcess
	case ActionCancel:
		from, to = PropertyInProcess, PropertyPendingApproval
	case ActionReject:
		to = PropertyCancelled
	default:
		return nil
	}

	property, err := s.properties.FindByID(propertyID)
	if err != nil {
		return lookupErr("property", propertyID, err)
	}
	if property.Status == to || (from != "" && property.Status != from) {
		return nil
	}
	if err := s.properties.UpdateStatus(propertyID, to); err != nil {
		return storageErr("failed to update property status", err)
	}
	return nil
}

// transitionNotifications 需要通知申请人的转换
func transitionNotifications(proc *model.ProcessInstanceModel, action Action, reason string) []Notification {
	ref := proc.ExternalRef
	if ref == "" {
		ref = proc.ID
	}

	n := Notification{
		RecipientID: proc.RequestedBy,
		EntityType:  "process_instance",
		EntityID:    proc.ID,
		ActionURL:   fmt.Sprintf("/processes/%s", proc.ID),
	}
	switch action {
	case ActionApprove:
		n.Type = NotifyProcessApproved
		n.Title = fmt.Sprintf("Process %s approved", ref)
		n.Body = "The process has been approved and is now active."
	case ActionReject:
		n.Type = NotifyProcessRejected
		n.Title = fmt.Sprintf("Process %s rejected", ref)
		n.Body = reason
	case ActionReturn:
		n.Type = NotifyProcessReturned
		n.Title = fmt.Sprintf("Process %s returned for changes", ref)
		n.Body = reason
	default:
		return nil
	}
	return []Notification{n}
}

func newHistory(procID, action string, from, to ProcessStatus, reason, operator string, at time.Time) *model.StateHistoryModel {
	return &model.StateHistoryModel{
		ID:             uuid.New().String(),
		ProcInstanceID: procID,
		Action:         action,
		FromState:      string(from),
		ToState:        string(to),
		Reason:         reason,
		Operator:       operator,
		CreatedAt:      at,
	}
}
