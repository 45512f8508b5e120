package repository

import (
	"time"

	"github.com/mautops/property-flow/internal/model"
	"gorm.io/gorm"
)

// SubtaskRepository 子任务仓储接口
type SubtaskRepository interface {
	Create(subtask *model.SubtaskModel) error
	FindByID(id string) (*model.SubtaskModel, error)
	FindByTaskID(taskID string) ([]*model.SubtaskModel, error)
	FindByTaskIDs(taskIDs []string) ([]*model.SubtaskModel, error)
	CountByTaskID(taskID string) (int64, error)
	UpdateCompletion(subtask *model.SubtaskModel) error
}

// subtaskRepository 子任务仓储实现
type subtaskRepository struct {
	db *gorm.DB
}

// NewSubtaskRepository 创建子任务仓储
func NewSubtaskRepository(db *gorm.DB) SubtaskRepository {
	return &subtaskRepository{db: db}
}

// Create 创建子任务
func (r *subtaskRepository) Create(subtask *model.SubtaskModel) error {
	if subtask.CheckType == "" {
		subtask.CheckType = "manual"
	}
	if err := subtask.Validate(); err != nil {
		return err
	}
	return r.db.Create(subtask).Error
}

// FindByID 根据 ID 查找子任务
func (r *subtaskRepository) FindByID(id string) (*model.SubtaskModel, error) {
	var subtask model.SubtaskModel
	if err := r.db.Where("id = ?", id).First(&subtask).Error; err != nil {
		return nil, err
	}
	return &subtask, nil
}

// FindByTaskID 查找任务下的全部子任务
func (r *subtaskRepository) FindByTaskID(taskID string) ([]*model.SubtaskModel, error) {
	var subtasks []*model.SubtaskModel
	err := r.db.Where("task_id = ?", taskID).Order("order_index ASC").Order("id ASC").Find(&subtasks).Error
	return subtasks, err
}

// FindByTaskIDs 批量查找子任务
func (r *subtaskRepository) FindByTaskIDs(taskIDs []string) ([]*model.SubtaskModel, error) {
	var subtasks []*model.SubtaskModel
	if len(taskIDs) == 0 {
		return subtasks, nil
	}
	err := r.db.Where("task_id IN ?", taskIDs).Order("order_index ASC").Order("id ASC").Find(&subtasks).Error
	return subtasks, err
}

// CountByTaskID 统计任务下的子任务数量
func (r *subtaskRepository) CountByTaskID(taskID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.SubtaskModel{}).Where("task_id = ?", taskID).Count(&count).Error
	return count, err
}

// UpdateCompletion 更新子任务完成状态
func (r *subtaskRepository) UpdateCompletion(subtask *model.SubtaskModel) error {
	now := time.Now()
	result := r.db.Model(&model.SubtaskModel{}).
		Where("id = ?", subtask.ID).
		Updates(map[string]interface{}{
			"is_completed": subtask.IsCompleted,
			"completed_at": subtask.CompletedAt,
			"completed_by": subtask.CompletedBy,
			"updated_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	subtask.UpdatedAt = now
	return nil
}
