package repository

import (
	"time"

	"github.com/mautops/property-flow/internal/model"
	"gorm.io/gorm"
)

// PropertyRepository 房源仓储接口
type PropertyRepository interface {
	Create(property *model.PropertyModel) error
	FindByID(id string) (*model.PropertyModel, error)
	UpdateStatus(id string, status string) error
	AddOwner(propertyID string, ownerID string) error
	FindOwnerIDs(propertyID string) ([]string, error)
}

type propertyRepository struct {
	db *gorm.DB
}

// NewPropertyRepository 创建房源仓储
func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

// Create 创建房源
func (r *propertyRepository) Create(property *model.PropertyModel) error {
	if err := property.Validate(); err != nil {
		return err
	}
	return r.db.Create(property).Error
}

// FindByID 根据 ID 查找房源
func (r *propertyRepository) FindByID(id string) (*model.PropertyModel, error) {
	var property model.PropertyModel
	if err := r.db.Where("id = ?", id).First(&property).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

// UpdateStatus 更新房源状态
func (r *propertyRepository) UpdateStatus(id string, status string) error {
	result := r.db.Model(&model.PropertyModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddOwner 关联业主
func (r *propertyRepository) AddOwner(propertyID string, ownerID string) error {
	return r.db.Create(&model.PropertyOwnerModel{
		PropertyID: propertyID,
		OwnerID:    ownerID,
		CreatedAt:  time.Now(),
	}).Error
}

// FindOwnerIDs 查找房源关联的业主 ID
func (r *propertyRepository) FindOwnerIDs(propertyID string) ([]string, error) {
	var ownerIDs []string
	err := r.db.Model(&model.PropertyOwnerModel{}).
		Where("property_id = ?", propertyID).
		Order("owner_id ASC").
		Pluck("owner_id", &ownerIDs).Error
	return ownerIDs, err
}
