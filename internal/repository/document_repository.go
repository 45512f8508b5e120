package repository

import (
	"github.com/mautops/property-flow/internal/model"
	"gorm.io/gorm"
)

// DocumentRepository 文档登记仓储接口
type DocumentRepository interface {
	Create(doc *model.DocumentModel) error
	// FindActiveByProperty 查找直接登记在房源下的有效文档
	FindActiveByProperty(propertyID string) ([]*model.DocumentModel, error)
	// FindActiveReusableByOwners 查找业主名下未绑定房源、可复用的有效文档
	FindActiveReusableByOwners(ownerIDs []string) ([]*model.DocumentModel, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建文档仓储
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create 登记文档
func (r *documentRepository) Create(doc *model.DocumentModel) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	return r.db.Create(doc).Error
}

// FindActiveByProperty 查找房源下的有效文档(最新登记优先)
func (r *documentRepository) FindActiveByProperty(propertyID string) ([]*model.DocumentModel, error) {
	var docs []*model.DocumentModel
	err := r.db.Where("property_id = ? AND status = ?", propertyID, "active").
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

// FindActiveReusableByOwners 查找业主可复用的有效文档(最新登记优先)
func (r *documentRepository) FindActiveReusableByOwners(ownerIDs []string) ([]*model.DocumentModel, error) {
	var docs []*model.DocumentModel
	if len(ownerIDs) == 0 {
		return docs, nil
	}
	err := r.db.Where("owner_id IN ? AND property_id IS NULL AND status = ?", ownerIDs, "active").
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}
