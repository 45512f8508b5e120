package repository

import (
	"time"

	"github.com/mautops/property-flow/internal/model"
	"gorm.io/gorm"
)

// ProcessRepository 流程实例仓储接口
type ProcessRepository interface {
	Create(proc *model.ProcessInstanceModel) error
	FindByID(id string) (*model.ProcessInstanceModel, error)
	// UpdateWithVersion 按版本号更新,版本不匹配时返回 ErrVersionConflict
	UpdateWithVersion(proc *model.ProcessInstanceModel) error
	CountByStatus() (map[string]int64, error)
}

// processRepository 流程实例仓储实现
type processRepository struct {
	db *gorm.DB
}

// NewProcessRepository 创建流程实例仓储
func NewProcessRepository(db *gorm.DB) ProcessRepository {
	return &processRepository{db: db}
}

// Create 创建流程实例
func (r *processRepository) Create(proc *model.ProcessInstanceModel) error {
	if proc.Version == 0 {
		proc.Version = 1
	}
	if err := proc.Validate(); err != nil {
		return err
	}
	return r.db.Create(proc).Error
}

// FindByID 根据 ID 查找流程实例
func (r *processRepository) FindByID(id string) (*model.ProcessInstanceModel, error) {
	var proc model.ProcessInstanceModel
	if err := r.db.Where("id = ?", id).First(&proc).Error; err != nil {
		return nil, err
	}
	return &proc, nil
}

// UpdateWithVersion 更新流程实例的可变字段
// 使用 map 写入,保证 nil 指针和零值也会落库
func (r *processRepository) UpdateWithVersion(proc *model.ProcessInstanceModel) error {
	now := time.Now()
	result := r.db.Model(&model.ProcessInstanceModel{}).
		Where("id = ? AND version = ?", proc.ID, proc.Version).
		Updates(map[string]interface{}{
			"current_status":      proc.CurrentStatus,
			"percent_complete":    proc.PercentComplete,
			"current_stage_index": proc.CurrentStageIndex,
			"started_at":          proc.StartedAt,
			"approved_at":         proc.ApprovedAt,
			"approved_by":         proc.ApprovedBy,
			"rejected_at":         proc.RejectedAt,
			"rejected_by":         proc.RejectedBy,
			"rejected_reason":     proc.RejectedReason,
			"returned_at":         proc.ReturnedAt,
			"returned_by":         proc.ReturnedBy,
			"returned_reason":     proc.ReturnedReason,
			"cancelled_at":        proc.CancelledAt,
			"cancelled_by":        proc.CancelledBy,
			"cancelled_reason":    proc.CancelledReason,
			"completed_at":        proc.CompletedAt,
			"notes":               proc.Notes,
			"version":             proc.Version + 1,
			"updated_at":          now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	proc.Version++
	proc.UpdatedAt = now
	return nil
}

// CountByStatus 按状态统计流程实例数量
func (r *processRepository) CountByStatus() (map[string]int64, error) {
	var rows []struct {
		CurrentStatus string
		Count         int64
	}
	err := r.db.Model(&model.ProcessInstanceModel{}).
		Select("current_status, COUNT(*) AS count").
		Group("current_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.CurrentStatus] = row.Count
	}
	return counts, nil
}
