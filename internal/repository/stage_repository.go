package repository

import (
	"github.com/mautops/property-flow/internal/model"
	"gorm.io/gorm"
)

// StageRepository 阶段仓储接口(只读)
type StageRepository interface {
	FindByTemplateID(templateID string) ([]*model.StageModel, error)
}

type stageRepository struct {
	db *gorm.DB
}

// NewStageRepository 创建阶段仓储
func NewStageRepository(db *gorm.DB) StageRepository {
	return &stageRepository{db: db}
}

// FindByTemplateID 查找模板的全部阶段,按顺序排列
func (r *stageRepository) FindByTemplateID(templateID string) ([]*model.StageModel, error) {
	var stages []*model.StageModel
	err := r.db.Where("template_id = ?", templateID).Order("order_index ASC").Find(&stages).Error
	return stages, err
}
