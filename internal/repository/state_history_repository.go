package repository

import (
	"github.com/mautops/property-flow/internal/model"
	"gorm.io/gorm"
)

// StateHistoryRepository 流程状态历史仓储接口
type StateHistoryRepository interface {
	Save(history *model.StateHistoryModel) error
	FindByProcessID(procInstanceID string) ([]*model.StateHistoryModel, error)
}

// stateHistoryRepository 状态历史仓储实现
type stateHistoryRepository struct {
	db *gorm.DB
}

// NewStateHistoryRepository 创建状态历史仓储
func NewStateHistoryRepository(db *gorm.DB) StateHistoryRepository {
	return &stateHistoryRepository{db: db}
}

// Save 保存状态历史
func (r *stateHistoryRepository) Save(history *model.StateHistoryModel) error {
	if err := history.Validate(); err != nil {
		return err
	}
	return r.db.Create(history).Error
}

// FindByProcessID 根据流程实例 ID 查找状态历史
func (r *stateHistoryRepository) FindByProcessID(procInstanceID string) ([]*model.StateHistoryModel, error) {
	var histories []*model.StateHistoryModel
	err := r.db.Where("proc_instance_id = ?", procInstanceID).Order("created_at ASC").Find(&histories).Error
	return histories, err
}
