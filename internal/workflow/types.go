// Package workflow 实现房源流程引擎: 进度计算、子任务级联、文档复用自动完成以及流程生命周期状态机。
package workflow

// ProcessStatus 流程实例状态
type ProcessStatus string

const (
	StatusPendingApproval ProcessStatus = "pending_approval"
	StatusActive          ProcessStatus = "active"
	StatusOnHold          ProcessStatus = "on_hold"
	StatusCompleted       ProcessStatus = "completed"
	StatusRejected        ProcessStatus = "rejected"
	StatusReturned        ProcessStatus = "returned"
	StatusCancelled       ProcessStatus = "cancelled"
)

// IsTerminal 终态不允许任何后续转换
func (s ProcessStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// ActionType 任务动作类型
type ActionType string

const (
	ActionUpload      ActionType = "UPLOAD"
	ActionEmail       ActionType = "EMAIL"
	ActionGenerateDoc ActionType = "GENERATE_DOC"
	ActionManual      ActionType = "MANUAL"
)

// CheckType 子任务勾选方式,只有 manual 允许用户直接勾选
type CheckType string

const (
	CheckManual CheckType = "manual"
	CheckAuto   CheckType = "auto"
)

// 文档状态
const (
	DocumentActive   = "active"
	DocumentArchived = "archived"
	DocumentExpired  = "expired"
)

// 房源状态(仅列出引擎会读写的取值)
const (
	PropertyPendingApproval = "pending_approval"
	PropertyInProcess       = "in_process"
	PropertyCancelled       = "cancelled"
)

// 自动完成结果中的文档来源
const (
	SourcePropertyDocument = "existing_document"
	SourceOwnerDocument    = "owner_existing_document"
)
