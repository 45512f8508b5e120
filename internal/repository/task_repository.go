package repository

import (
	"time"

	"github.com/mautops/property-flow/internal/model"
	"gorm.io/gorm"
)

// TaskRepository 流程任务仓储接口
type TaskRepository interface {
	Create(task *model.TaskModel) error
	FindByID(id string) (*model.TaskModel, error)
	FindByProcessID(procInstanceID string) ([]*model.TaskModel, error)
	FindByFilter(filter *TaskFilter) ([]*model.TaskModel, error)
	// UpdateWithVersion 按版本号更新,版本不匹配时返回 ErrVersionConflict
	UpdateWithVersion(task *model.TaskModel) error
}

// TaskFilter 任务查询过滤器
type TaskFilter struct {
	ProcInstanceID *string
	Status         *string
	ActionType     *string
	AssignedTo     *string
}

// taskRepository 任务仓储实现
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓储
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create 创建任务
func (r *taskRepository) Create(task *model.TaskModel) error {
	if task.Version == 0 {
		task.Version = 1
	}
	if err := task.Validate(); err != nil {
		return err
	}
	return r.db.Create(task).Error
}

// FindByID 根据 ID 查找任务
func (r *taskRepository) FindByID(id string) (*model.TaskModel, error) {
	var task model.TaskModel
	if err := r.db.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByProcessID 查找流程实例下的全部任务,按阶段和顺序排列
func (r *taskRepository) FindByProcessID(procInstanceID string) ([]*model.TaskModel, error) {
	return r.FindByFilter(&TaskFilter{ProcInstanceID: &procInstanceID})
}

// FindByFilter 根据过滤器查找任务
func (r *taskRepository) FindByFilter(filter *TaskFilter) ([]*model.TaskModel, error) {
	var tasks []*model.TaskModel
	query := r.db.Model(&model.TaskModel{})

	if filter != nil {
		if filter.ProcInstanceID != nil {
			query = query.Where("proc_instance_id = ?", *filter.ProcInstanceID)
		}
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.ActionType != nil {
			query = query.Where("action_type = ?", *filter.ActionType)
		}
		if filter.AssignedTo != nil {
			query = query.Where("assigned_to = ?", *filter.AssignedTo)
		}
	}

	err := query.Order("stage_order_index ASC").Order("order_index ASC").Order("id ASC").Find(&tasks).Error
	return tasks, err
}

// UpdateWithVersion 更新任务的可变字段
func (r *taskRepository) UpdateWithVersion(task *model.TaskModel) error {
	now := time.Now()
	result := r.db.Model(&model.TaskModel{}).
		Where("id = ? AND version = ?", task.ID, task.Version).
		Updates(map[string]interface{}{
			"status":        task.Status,
			"is_bypassed":   task.IsBypassed,
			"bypass_reason": task.BypassReason,
			"bypassed_by":   task.BypassedBy,
			"assigned_to":   task.AssignedTo,
			"completed_at":  task.CompletedAt,
			"completed_by":  task.CompletedBy,
			"task_result":   task.TaskResult,
			"version":       task.Version + 1,
			"updated_at":    now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	task.Version++
	task.UpdatedAt = now
	return nil
}
